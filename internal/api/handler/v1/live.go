package v1

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pcprep/pcprep-api/internal/api/handler/v1/response"
	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/live"
)

type LiveHandler struct {
	events EventService
	share  ShareLinkService
	hub    *live.Hub
	uSvc   UserGetter
}

func NewLiveHandler(events EventService, share ShareLinkService, hub *live.Hub, uSvc UserGetter) *LiveHandler {
	return &LiveHandler{
		events: events,
		share:  share,
		hub:    hub,
		uSvc:   uSvc,
	}
}

// HandleEventSocket godoc
// @Summary      Live updates of an event over a websocket
// @Description  The first message is a snapshot of the tree. The token may be passed as access_token query parameter.
// @Tags         live
// @Param        eventID       path   int     true   "event id"
// @Param        access_token  query  string  false  "jwt"
// @Router       /events/{eventID}/ws [get]
// @Security BearerAuth
func (h *LiveHandler) HandleEventSocket(ctx *gin.Context) {
	user, ok := requireUser(ctx, h.uSvc)
	if !ok {
		return
	}

	eventID, ok := parseIDParam(ctx, "eventID")
	if !ok {
		return
	}

	h.serve(ctx, eventID, user.Username)
}

// HandlePublicSocket godoc
// @Summary      Live updates of a shared event over a websocket
// @Tags         public
// @Param        token  path  string  true  "share token"
// @Router       /public/{token}/ws [get]
func (h *LiveHandler) HandlePublicSocket(ctx *gin.Context) {
	event, err := h.share.Resolve(ctx.Request.Context(), ctx.Param("token"), false)
	if err != nil {
		renderServiceErr(ctx, "v1.HandlePublicSocket -> h.share.Resolve", err)
		return
	}

	name := strings.TrimSpace(ctx.Query("name"))
	if utf8.RuneCountInString(name) > live.MaxNameLength {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("name is longer than %d characters", live.MaxNameLength)))
		return
	}

	h.serve(ctx, event.ID, name)
}

func (h *LiveHandler) serve(ctx *gin.Context, eventID uint, actor string) {
	event, tree, err := h.events.Tree(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, "v1.serve -> h.events.Tree", err)
		return
	}

	conn, err := live.Upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		zap.L().Debug("live: upgrade failed", zap.Uint("event_id", eventID), zap.Error(err))
		ctx.Abort()
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			zap.L().Debug("live: close failed", zap.Error(err))
		}
	}()

	if actor != "" {
		h.hub.Touch(event.ID, actor)
	}

	h.hub.Serve(conn, event.ID, domain.LiveMessage{
		Type:    domain.LiveSnapshot,
		EventID: event.ID,
		Status:  string(event.Status),
		At:      tree.GeneratedAt,
		Tree:    &tree,
	})
}
