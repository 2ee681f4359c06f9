package api

import (
	"fmt"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/juju/clock"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pcprep/pcprep-api/docs"
	v1 "github.com/pcprep/pcprep-api/internal/api/handler/v1"
	"github.com/pcprep/pcprep-api/internal/api/middleware"
	"github.com/pcprep/pcprep-api/internal/config"
	"github.com/pcprep/pcprep-api/internal/live"
	"github.com/pcprep/pcprep-api/internal/metrics"
	"github.com/pcprep/pcprep-api/internal/repository"
	"github.com/pcprep/pcprep-api/internal/repository/dao"
	"github.com/pcprep/pcprep-api/internal/security"
	"github.com/pcprep/pcprep-api/internal/service"
)

const basePath = "/api/v1"

type Server struct {
	Config  *config.AppConfig
	Router  *gin.Engine
	Metrics *metrics.Metrics
	Hub     *live.Hub

	clock        clock.Clock
	loginLimiter *security.LoginRateLimiter
	writeLimiter *middleware.TokenLimiter
	services     *services
}

type services struct {
	auth   *service.AuthService
	user   *service.UserService
	stock  *service.StockService
	status *service.StatusService
	event  *service.EventService
	share  *service.ShareLinkService
	verify *service.VerificationService

	periodic *service.PeriodicService
	reassort *service.ReassortService
}

type handlers struct {
	auth   *v1.AuthHandler
	user   *v1.UserHandler
	stock  *v1.StockHandler
	event  *v1.EventHandler
	verify *v1.VerificationHandler
	report *v1.ReportHandler
	public *v1.PublicHandler
	live   *v1.LiveHandler
	health *v1.HealthHandler

	periodic *v1.PeriodicHandler
	reassort *v1.ReassortHandler
}

func NewServer(conf *config.AppConfig, db *gorm.DB, clk clock.Clock) (*Server, error) {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	m := metrics.New()
	s := &Server{
		Config:       conf,
		Router:       engine,
		Metrics:      m,
		Hub:          live.NewHub(clk, conf.Live.PresenceWindow, m),
		clock:        clk,
		loginLimiter: security.NewLoginRateLimiter(clk, conf.RateLimit.Attempts, conf.RateLimit.Window, conf.RateLimit.Block),
		writeLimiter: middleware.NewTokenLimiter(clk, conf.Public.Rate, conf.Public.Burst),
	}
	s.services = s.initServices(db)

	health, err := s.initHealthHandler(db)
	if err != nil {
		return nil, err
	}

	s.MountMiddlewares()
	s.MountHandlers(handlers{
		auth:   s.initAuthHandler(),
		user:   s.initUserHandler(),
		stock:  s.initStockHandler(),
		event:  s.initEventHandler(),
		verify: s.initVerificationHandler(),
		report: s.initReportHandler(),
		public: s.initPublicHandler(),
		live:   s.initLiveHandler(),
		health: health,

		periodic: s.initPeriodicHandler(),
		reassort: s.initReassortHandler(),
	})

	return s, nil
}

func (s *Server) initServices(db *gorm.DB) *services {
	userRepo := repository.NewUserRepository(dao.NewUserDAO(db))
	stockRepo := repository.NewStockRepository(dao.NewStockDAO(db))
	eventRepo := repository.NewEventRepository(dao.NewEventDAO(db))
	ledgerRepo := repository.NewVerificationRepository(dao.NewVerificationDAO(db))
	auditRepo := repository.NewAuditRepository(dao.NewAuditDAO(db))
	periodicRepo := repository.NewPeriodicRepository(dao.NewPeriodicDAO(db))
	reassortRepo := repository.NewReassortRepository(dao.NewReassortDAO(db))

	status := service.NewStatusService(stockRepo, ledgerRepo, s.Hub, s.clock)

	return &services{
		auth:   service.NewAuthService(userRepo, auditRepo),
		user:   service.NewUserService(userRepo, auditRepo),
		stock:  service.NewStockService(stockRepo, auditRepo, s.clock),
		status: status,
		event:  service.NewEventService(eventRepo, stockRepo, status, auditRepo, auditRepo, s.Hub, s.clock),
		share:  service.NewShareLinkService(eventRepo, auditRepo, s.clock, s.Config.Public.ShareTTL),
		verify: service.NewVerificationService(eventRepo, ledgerRepo, status, auditRepo, s.Hub, s.Metrics, s.clock),

		periodic: service.NewPeriodicService(stockRepo, periodicRepo, reassortRepo, auditRepo, s.clock),
		reassort: service.NewReassortService(reassortRepo, stockRepo, auditRepo, s.clock),
	}
}

func (s *Server) initAuthHandler() *v1.AuthHandler {
	return v1.NewAuthHandler(s.Config.API, s.services.auth, s.services.user)
}

func (s *Server) initUserHandler() *v1.UserHandler {
	return v1.NewUserHandler(s.services.user)
}

func (s *Server) initStockHandler() *v1.StockHandler {
	return v1.NewStockHandler(s.services.stock, s.services.user)
}

func (s *Server) initEventHandler() *v1.EventHandler {
	return v1.NewEventHandler(s.services.event, s.services.share, s.services.user, s.Config.API.PublicURL)
}

func (s *Server) initVerificationHandler() *v1.VerificationHandler {
	return v1.NewVerificationHandler(s.services.verify, s.services.user)
}

func (s *Server) initPeriodicHandler() *v1.PeriodicHandler {
	return v1.NewPeriodicHandler(s.services.periodic, s.services.user)
}

func (s *Server) initReassortHandler() *v1.ReassortHandler {
	return v1.NewReassortHandler(s.services.reassort, s.services.user)
}

func (s *Server) initReportHandler() *v1.ReportHandler {
	return v1.NewReportHandler(s.services.event, s.services.user, s.Config.API.Location())
}

func (s *Server) initPublicHandler() *v1.PublicHandler {
	return v1.NewPublicHandler(s.services.share, s.services.event, s.services.verify)
}

func (s *Server) initLiveHandler() *v1.LiveHandler {
	return v1.NewLiveHandler(s.services.event, s.services.share, s.Hub, s.services.user)
}

func (s *Server) initHealthHandler(db *gorm.DB) (*v1.HealthHandler, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB -> %w", err)
	}

	return v1.NewHealthHandler(sqlDB), nil
}

// Users exposes the account service to the command line.
func (s *Server) Users() *service.UserService {
	return s.services.user
}

// Reload applies the settings that may change while the server runs.
func (s *Server) Reload(conf *config.AppConfig) {
	s.loginLimiter.SetLimits(conf.RateLimit.Attempts, conf.RateLimit.Window, conf.RateLimit.Block)
	s.writeLimiter.SetLimits(conf.Public.Rate, conf.Public.Burst)
	s.services.share.SetTTL(conf.Public.ShareTTL)

	zap.L().Info("configuration reloaded",
		zap.Int("login_attempts", conf.RateLimit.Attempts),
		zap.Duration("share_ttl", conf.Public.ShareTTL),
	)
}

func (s *Server) MountMiddlewares() {
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.AccessLog(s.Metrics))
	s.Router.Use(middleware.SecurityHeaders())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(h handlers) {
	verifyJWT := middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT()
	pollHint := middleware.PollHint(s.Config.Live.PollInterval)

	auth := s.Router.Group(basePath)
	{
		auth.POST("/login", middleware.LoginRateLimit(s.loginLimiter, s.Metrics), h.auth.HandleLogin)
	}

	me := s.Router.Group(basePath, verifyJWT)
	{
		me.GET("/me", h.auth.HandleMe)
	}

	users := s.Router.Group(basePath, verifyJWT)
	{
		users.GET("/admin/users", h.user.HandleListUsers)
		users.POST("/admin/users", h.user.HandleCreateUser)
		users.PATCH("/admin/users/:userID", h.user.HandleUpdateUser)
	}

	stock := s.Router.Group(basePath, verifyJWT)
	{
		stock.GET("/stock", h.stock.HandleListRoots)
		stock.POST("/stock", h.stock.HandleCreateRoot)
		stock.POST("/stock/import", h.stock.HandleImportTemplate)
		stock.GET("/stock/expiring", h.stock.HandleExpiring)
		stock.GET("/stock/:nodeID/tree", h.stock.HandleGetTree)
		stock.POST("/stock/:nodeID", h.stock.HandleCreateChild)
		stock.PATCH("/stock/:nodeID", h.stock.HandleUpdateNode)
		stock.DELETE("/stock/:nodeID", h.stock.HandleDeleteNode)
		stock.POST("/stock/:nodeID/duplicate", h.stock.HandleDuplicateNode)
		stock.GET("/stock/:nodeID/expiries", h.stock.HandleListExpiries)
		stock.POST("/stock/:nodeID/expiries", h.stock.HandleAddExpiry)
		stock.DELETE("/stock/:nodeID/expiries/:expiryID", h.stock.HandleDeleteExpiry)
	}

	events := s.Router.Group(basePath, verifyJWT)
	{
		events.GET("/events", h.event.HandleListEvents)
		events.POST("/events", h.event.HandleCreateEvent)
		events.GET("/events/:eventID", h.event.HandleGetEvent)
		events.PATCH("/events/:eventID/status", h.event.HandleUpdateStatus)
		events.GET("/events/:eventID/status", pollHint, h.event.HandleGetStatus)
		events.GET("/events/:eventID/tree", h.event.HandleGetTree)
		events.GET("/events/:eventID/stats", h.event.HandleGetStats)
		events.GET("/events/:eventID/logs", h.event.HandleGetLogs)
		events.POST("/events/:eventID/share-link", h.event.HandleShareLink)
		events.POST("/events/:eventID/verify", h.verify.HandleVerify)
		events.POST("/events/:eventID/parent-status", h.verify.HandleParentStatus)
		events.GET("/events/:eventID/latest", h.verify.HandleLatest)
		events.GET("/events/:eventID/report.csv", h.report.HandleReportCSV)
		events.GET("/events/:eventID/report.pdf", h.report.HandleReportPDF)
		events.GET("/events/:eventID/logs.csv", h.report.HandleLogsCSV)
		events.GET("/events/:eventID/ws", h.live.HandleEventSocket)
	}

	periodic := s.Router.Group(basePath, verifyJWT)
	{
		periodic.GET("/periodic/roots", h.periodic.HandleRoots)
		periodic.GET("/periodic/:nodeID/tree", h.periodic.HandleTree)
		periodic.GET("/periodic/:nodeID/history", h.periodic.HandleHistory)
		periodic.POST("/periodic/:nodeID/verify", h.periodic.HandleVerify)
		periodic.POST("/periodic/:nodeID/reset", h.periodic.HandleReset)
		periodic.GET("/periodic/:nodeID/reassort-options", h.periodic.HandleReassortOptions)
		periodic.POST("/periodic/:nodeID/replace", h.periodic.HandleReplace)
	}

	reassort := s.Router.Group(basePath, verifyJWT)
	{
		reassort.GET("/reassort/items", h.reassort.HandleListItems)
		reassort.POST("/reassort/items", h.reassort.HandleCreateItem)
		reassort.PATCH("/reassort/items/:itemID", h.reassort.HandleUpdateItem)
		reassort.DELETE("/reassort/items/:itemID", h.reassort.HandleDeleteItem)
		reassort.POST("/reassort/items/:itemID/batches", h.reassort.HandleAddBatch)
		reassort.PATCH("/reassort/batches/:batchID", h.reassort.HandleUpdateBatch)
		reassort.DELETE("/reassort/batches/:batchID", h.reassort.HandleDeleteBatch)
	}

	public := s.Router.Group(basePath)
	{
		writeLimit := middleware.PublicWriteLimit(s.writeLimiter, "token")

		public.GET("/public/:token", h.public.HandlePublicEvent)
		public.GET("/public/:token/status", pollHint, h.public.HandlePublicStatus)
		public.POST("/public/:token/verify", writeLimit, h.public.HandlePublicVerify)
		public.POST("/public/:token/parent-status", writeLimit, h.public.HandlePublicParentStatus)
		public.GET("/public/:token/ws", h.live.HandlePublicSocket)
	}

	s.Router.GET("/healthz", h.health.HandleHealth)
	s.Router.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "PC prep API"
	docs.SwaggerInfo.Description = "Preparation and verification of civil protection kits."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
