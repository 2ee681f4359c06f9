package v1

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pcprep/pcprep-api/internal/api/handler/v1/request"
	"github.com/pcprep/pcprep-api/internal/api/handler/v1/response"
	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/service"
)

type VerificationService interface {
	Verify(ctx context.Context, in service.VerifyInput) (domain.Verification, domain.EventTree, error)
	SetParentStatus(ctx context.Context, in service.ParentStatusInput) (domain.ParentLoadState, domain.EventTree, error)
	Latest(ctx context.Context, eventID uint, limit int) ([]domain.RecentVerification, error)
}

type VerificationHandler struct {
	svc  VerificationService
	uSvc UserGetter
}

func NewVerificationHandler(svc VerificationService, uSvc UserGetter) *VerificationHandler {
	return &VerificationHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleVerify godoc
// @Summary      Record the state of an item
// @Tags         verification
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                    true  "event id"
// @Param        request  body      request.VerifyRequest  true  "verification"
// @Success      201      {object}  response.VerifyResponse
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Router       /events/{eventID}/verify [post]
// @Security BearerAuth
func (h *VerificationHandler) HandleVerify(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, staffRoles...)
	if !ok {
		return
	}

	eventID, ok := parseIDParam(ctx, "eventID")
	if !ok {
		return
	}

	var req request.VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	userID := actor.ID
	rec, tree, err := h.svc.Verify(ctx.Request.Context(), service.VerifyInput{
		EventID:      eventID,
		NodeID:       req.NodeID,
		Status:       domain.VerificationStatus(req.Status),
		VerifierName: actor.Username,
		Quantity:     req.Quantity,
		Comment:      req.Comment,
		Source:       domain.SourceStaff,
		UserID:       &userID,
	})
	if err != nil {
		renderServiceErr(ctx, "v1.HandleVerify -> h.svc.Verify", err)
		return
	}

	ctx.JSON(http.StatusCreated, response.VerifyResponse{Verification: rec, Tree: tree})
}

// HandleParentStatus godoc
// @Summary      Mark a kit as loaded or unloaded
// @Description  Loading requires every item below the group to be OK and a vehicle name.
// @Tags         verification
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                          true  "event id"
// @Param        request  body      request.ParentStatusRequest  true  "load state"
// @Success      200      {object}  response.ParentStatusResponse
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Router       /events/{eventID}/parent-status [post]
// @Security BearerAuth
func (h *VerificationHandler) HandleParentStatus(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, staffRoles...)
	if !ok {
		return
	}

	eventID, ok := parseIDParam(ctx, "eventID")
	if !ok {
		return
	}

	var req request.ParentStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	userID := actor.ID
	state, tree, err := h.svc.SetParentStatus(ctx.Request.Context(), service.ParentStatusInput{
		EventID:     eventID,
		NodeID:      req.NodeID,
		Loaded:      req.Loaded,
		VehicleName: req.VehicleName,
		By:          actor.Username,
		Source:      domain.SourceStaff,
		UserID:      &userID,
	})
	if err != nil {
		renderServiceErr(ctx, "v1.HandleParentStatus -> h.svc.SetParentStatus", err)
		return
	}

	ctx.JSON(http.StatusOK, response.ParentStatusResponse{State: state, Tree: tree})
}

// HandleLatest godoc
// @Summary      Most recent verifications of an event
// @Tags         verification
// @Produce      json
// @Param        eventID  path      int  true   "event id"
// @Param        limit    query     int  false  "number of entries (default 20)"
// @Success      200      {array}   domain.RecentVerification
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/latest [get]
// @Security BearerAuth
func (h *VerificationHandler) HandleLatest(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc); !ok {
		return
	}

	eventID, ok := parseIDParam(ctx, "eventID")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	recent, err := h.svc.Latest(ctx.Request.Context(), eventID, limit)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleLatest -> h.svc.Latest", err)
		return
	}

	ctx.JSON(http.StatusOK, recent)
}
