package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pcprep/pcprep-api/internal/api/handler/v1/request"
	"github.com/pcprep/pcprep-api/internal/api/handler/v1/response"
	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/service"
)

// PublicHandler serves the share-link surface. It never looks at a JWT: the
// token in the path is the only credential and it binds one event.
type PublicHandler struct {
	share  ShareLinkService
	events EventService
	verify VerificationService
}

func NewPublicHandler(share ShareLinkService, events EventService, verify VerificationService) *PublicHandler {
	return &PublicHandler{
		share:  share,
		events: events,
		verify: verify,
	}
}

// HandlePublicEvent godoc
// @Summary      Event and tree behind a share link
// @Tags         public
// @Produce      json
// @Param        token  path      string  true  "share token"
// @Success      200    {object}  response.EventTreeResponse
// @Failure      403    {object}  response.Err
// @Failure      404    {object}  response.Err
// @Router       /public/{token} [get]
func (h *PublicHandler) HandlePublicEvent(ctx *gin.Context) {
	event, tree, ok := h.load(ctx, "v1.HandlePublicEvent")
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, response.EventTreeResponse{Event: event, Tree: tree})
}

// HandlePublicStatus godoc
// @Summary      Poll payload of a shared event
// @Tags         public
// @Produce      json
// @Param        token  path      string  true  "share token"
// @Success      200    {object}  domain.EventTree
// @Failure      403    {object}  response.Err
// @Failure      404    {object}  response.Err
// @Router       /public/{token}/status [get]
func (h *PublicHandler) HandlePublicStatus(ctx *gin.Context) {
	_, tree, ok := h.load(ctx, "v1.HandlePublicStatus")
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, tree)
}

// HandlePublicVerify godoc
// @Summary      Record the state of an item through a share link
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        token    path      string                       true  "share token"
// @Param        request  body      request.PublicVerifyRequest  true  "verification"
// @Success      201      {object}  response.VerifyResponse
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      429      {object}  response.Err
// @Router       /public/{token}/verify [post]
func (h *PublicHandler) HandlePublicVerify(ctx *gin.Context) {
	var req request.PublicVerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.share.Resolve(ctx.Request.Context(), ctx.Param("token"), true)
	if err != nil {
		renderServiceErr(ctx, "v1.HandlePublicVerify -> h.share.Resolve", err)
		return
	}

	rec, tree, err := h.verify.Verify(ctx.Request.Context(), service.VerifyInput{
		EventID:      event.ID,
		NodeID:       req.NodeID,
		Status:       domain.VerificationStatus(req.Status),
		VerifierName: req.VerifierName,
		Quantity:     req.Quantity,
		Comment:      req.Comment,
		Source:       domain.SourcePublic,
	})
	if err != nil {
		renderServiceErr(ctx, "v1.HandlePublicVerify -> h.verify.Verify", err)
		return
	}

	ctx.JSON(http.StatusCreated, response.VerifyResponse{Verification: rec, Tree: tree})
}

// HandlePublicParentStatus godoc
// @Summary      Mark a kit as loaded or unloaded through a share link
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        token    path      string                             true  "share token"
// @Param        request  body      request.PublicParentStatusRequest  true  "load state"
// @Success      200      {object}  response.ParentStatusResponse
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      429      {object}  response.Err
// @Router       /public/{token}/parent-status [post]
func (h *PublicHandler) HandlePublicParentStatus(ctx *gin.Context) {
	var req request.PublicParentStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.share.Resolve(ctx.Request.Context(), ctx.Param("token"), true)
	if err != nil {
		renderServiceErr(ctx, "v1.HandlePublicParentStatus -> h.share.Resolve", err)
		return
	}

	state, tree, err := h.verify.SetParentStatus(ctx.Request.Context(), service.ParentStatusInput{
		EventID:     event.ID,
		NodeID:      req.NodeID,
		Loaded:      req.Loaded,
		VehicleName: req.VehicleName,
		By:          req.VerifierName,
		Source:      domain.SourcePublic,
	})
	if err != nil {
		renderServiceErr(ctx, "v1.HandlePublicParentStatus -> h.verify.SetParentStatus", err)
		return
	}

	ctx.JSON(http.StatusOK, response.ParentStatusResponse{State: state, Tree: tree})
}

func (h *PublicHandler) load(ctx *gin.Context, op string) (domain.Event, domain.EventTree, bool) {
	event, err := h.share.Resolve(ctx.Request.Context(), ctx.Param("token"), false)
	if err != nil {
		renderServiceErr(ctx, op+" -> h.share.Resolve", err)
		return domain.Event{}, domain.EventTree{}, false
	}

	event, tree, err := h.events.Tree(ctx.Request.Context(), event.ID)
	if err != nil {
		renderServiceErr(ctx, op+" -> h.events.Tree", err)
		return domain.Event{}, domain.EventTree{}, false
	}

	return event, tree, true
}
