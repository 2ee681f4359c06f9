package v1

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pcprep/pcprep-api/internal/api/handler/v1/request"
	"github.com/pcprep/pcprep-api/internal/api/handler/v1/response"
	"github.com/pcprep/pcprep-api/internal/domain"
)

type EventService interface {
	List(ctx context.Context, status domain.EventStatus) ([]domain.Event, error)
	Get(ctx context.Context, id uint) (domain.Event, error)
	Create(ctx context.Context, actor domain.User, title string, date time.Time, rootIDs []uint) (domain.Event, error)
	SetStatus(ctx context.Context, actor domain.User, id uint, status domain.EventStatus) (domain.Event, error)
	Tree(ctx context.Context, id uint) (domain.Event, domain.EventTree, error)
	Logs(ctx context.Context, id uint) ([]domain.AuditEntry, error)
	LogHistory(ctx context.Context, id uint) (domain.Event, []domain.AuditEntry, error)
}

type ShareLinkService interface {
	Issue(ctx context.Context, actor domain.User, eventID uint) (domain.ShareLink, error)
	Resolve(ctx context.Context, token string, forWrite bool) (domain.Event, error)
}

type EventHandler struct {
	svc       EventService
	share     ShareLinkService
	uSvc      UserGetter
	publicURL string
}

func NewEventHandler(svc EventService, share ShareLinkService, uSvc UserGetter, publicURL string) *EventHandler {
	return &EventHandler{
		svc:       svc,
		share:     share,
		uSvc:      uSvc,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

var (
	staffRoles      = rolesWhere(domain.Role.CanManageEvents)
	stockCheckRoles = rolesWhere(domain.Role.CanCheckStock)
)

// HandleListEvents godoc
// @Summary      List events
// @Tags         events
// @Produce      json
// @Param        status  query     string  false  "OPEN or CLOSED"
// @Success      200     {array}   domain.Event
// @Failure      400     {object}  response.Err
// @Router       /events [get]
// @Security BearerAuth
func (h *EventHandler) HandleListEvents(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc); !ok {
		return
	}

	status := domain.EventStatus(strings.ToUpper(ctx.Query("status")))
	events, err := h.svc.List(ctx.Request.Context(), status)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListEvents -> h.svc.List", err)
		return
	}

	ctx.JSON(http.StatusOK, events)
}

// HandleGetEvent godoc
// @Summary      Get an event
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event id"
// @Success      200      {object}  domain.Event
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID} [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetEvent(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc); !ok {
		return
	}

	eventID, ok := parseIDParam(ctx, "eventID")
	if !ok {
		return
	}

	event, err := h.svc.Get(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetEvent -> h.svc.Get", err)
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleCreateEvent godoc
// @Summary      Create an event over a selection of stock groups
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request  body      request.CreateEventRequest  true  "event"
// @Success      201      {object}  domain.Event
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /events [post]
// @Security BearerAuth
func (h *EventHandler) HandleCreateEvent(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, staffRoles...)
	if !ok {
		return
	}

	var req request.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.Create(ctx.Request.Context(), actor, req.Title, req.ParsedDate(), req.RootIDs)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleCreateEvent -> h.svc.Create", err)
		return
	}

	ctx.JSON(http.StatusCreated, event)
}

// HandleUpdateStatus godoc
// @Summary      Open or close an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                               true  "event id"
// @Param        request  body      request.UpdateEventStatusRequest  true  "status"
// @Success      200      {object}  domain.Event
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/status [patch]
// @Security BearerAuth
func (h *EventHandler) HandleUpdateStatus(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, staffRoles...)
	if !ok {
		return
	}

	eventID, ok := parseIDParam(ctx, "eventID")
	if !ok {
		return
	}

	var req request.UpdateEventStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.SetStatus(ctx.Request.Context(), actor, eventID, domain.EventStatus(req.Status))
	if err != nil {
		renderServiceErr(ctx, "v1.HandleUpdateStatus -> h.svc.SetStatus", err)
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleGetTree godoc
// @Summary      Aggregated verification tree of an event
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event id"
// @Success      200      {object}  response.EventTreeResponse
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/tree [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetTree(ctx *gin.Context) {
	event, tree, ok := h.loadTree(ctx, "v1.HandleGetTree")
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, response.EventTreeResponse{Event: event, Tree: tree})
}

// HandleGetStatus godoc
// @Summary      Poll payload: the aggregated tree and progress of an event
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event id"
// @Success      200      {object}  domain.EventTree
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/status [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetStatus(ctx *gin.Context) {
	_, tree, ok := h.loadTree(ctx, "v1.HandleGetStatus")
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, tree)
}

// HandleGetStats godoc
// @Summary      Verification counters of an event, overall and per root
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event id"
// @Success      200      {object}  domain.EventStats
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/stats [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetStats(ctx *gin.Context) {
	_, tree, ok := h.loadTree(ctx, "v1.HandleGetStats")
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, domain.ComputeStats(tree))
}

// HandleGetLogs godoc
// @Summary      Audit trail of an event
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event id"
// @Success      200      {array}   domain.AuditEntry
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/logs [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetLogs(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc); !ok {
		return
	}

	eventID, ok := parseIDParam(ctx, "eventID")
	if !ok {
		return
	}

	logs, err := h.svc.Logs(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetLogs -> h.svc.Logs", err)
		return
	}

	ctx.JSON(http.StatusOK, logs)
}

// HandleShareLink godoc
// @Summary      Get or create the public share link of an event
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event id"
// @Success      200      {object}  response.ShareLinkResponse
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/share-link [post]
// @Security BearerAuth
func (h *EventHandler) HandleShareLink(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, staffRoles...)
	if !ok {
		return
	}

	eventID, ok := parseIDParam(ctx, "eventID")
	if !ok {
		return
	}

	link, err := h.share.Issue(ctx.Request.Context(), actor, eventID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleShareLink -> h.share.Issue", err)
		return
	}

	ctx.JSON(http.StatusOK, response.ShareLinkResponse{
		Token:     link.Token,
		URL:       fmt.Sprintf("%s/api/v1/public/%s", h.publicURL, link.Token),
		ExpiresAt: link.ExpiresAt,
	})
}

func (h *EventHandler) loadTree(ctx *gin.Context, op string) (domain.Event, domain.EventTree, bool) {
	if _, ok := requireUser(ctx, h.uSvc); !ok {
		return domain.Event{}, domain.EventTree{}, false
	}

	eventID, ok := parseIDParam(ctx, "eventID")
	if !ok {
		return domain.Event{}, domain.EventTree{}, false
	}

	event, tree, err := h.svc.Tree(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, op+" -> h.svc.Tree", err)
		return domain.Event{}, domain.EventTree{}, false
	}

	return event, tree, true
}
