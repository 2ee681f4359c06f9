package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/juju/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pcprep/pcprep-api/internal/api"
	"github.com/pcprep/pcprep-api/internal/config"
	"github.com/pcprep/pcprep-api/internal/db"
	"github.com/pcprep/pcprep-api/internal/logger"
	"github.com/pcprep/pcprep-api/internal/repository"
	"github.com/pcprep/pcprep-api/internal/repository/dao"
	"github.com/pcprep/pcprep-api/internal/service"
)

// Start serves the API until the listener fails. Changes to the config file
// are applied to the rate limits and the share link lifetime without a
// restart.
func Start(configPath string) error {
	var running atomic.Pointer[api.Server]
	conf, err := config.Watch(configPath, func(updated *config.AppConfig) {
		if s := running.Load(); s != nil {
			s.Reload(updated)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	postgresDB, err := bootstrap(conf)
	if err != nil {
		return err
	}

	if conf.Postgres.AutoMigrate {
		if err = dao.InitTables(postgresDB); err != nil {
			return fmt.Errorf("failed to migrate database -> %w", err)
		}
	}

	s, err := api.NewServer(conf, postgresDB, clock.WallClock)
	if err != nil {
		return fmt.Errorf("failed to initialize server -> %w", err)
	}
	running.Store(s)

	if err = ensureAdmin(context.Background(), conf, s.Users()); err != nil {
		return err
	}

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr))
	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}

// Migrate creates or updates the tables.
func Migrate(configPath string) error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	postgresDB, err := bootstrap(conf)
	if err != nil {
		return err
	}

	if err = dao.InitTables(postgresDB); err != nil {
		return fmt.Errorf("failed to migrate database -> %w", err)
	}
	zap.L().Info("database migrated")

	return nil
}

func bootstrap(conf *config.AppConfig) (*gorm.DB, error) {
	if err := logger.Init(conf.API.Environment); err != nil {
		return nil, fmt.Errorf("failed to initialize logger -> %w", err)
	}

	postgresDB, err := db.OpenPostgres(conf.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database -> %w", err)
	}

	return postgresDB, nil
}

type adminEnsurer interface {
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
}

func ensureAdmin(ctx context.Context, conf *config.AppConfig, users adminEnsurer) error {
	if conf.Admin.Password == "" {
		zap.L().Warn("no admin password configured, skipping admin seed")
		return nil
	}

	created, err := users.EnsureAdmin(ctx, conf.Admin.Username, conf.Admin.Password)
	if err != nil {
		return fmt.Errorf("failed to seed admin -> %w", err)
	}
	if created {
		zap.L().Info("admin account created", zap.String("username", conf.Admin.Username))
	}

	return nil
}

func newUserService(postgresDB *gorm.DB) *service.UserService {
	return service.NewUserService(
		repository.NewUserRepository(dao.NewUserDAO(postgresDB)),
		repository.NewAuditRepository(dao.NewAuditDAO(postgresDB)),
	)
}

func newStockService(postgresDB *gorm.DB) *service.StockService {
	return service.NewStockService(
		repository.NewStockRepository(dao.NewStockDAO(postgresDB)),
		repository.NewAuditRepository(dao.NewAuditDAO(postgresDB)),
		clock.WallClock,
	)
}
