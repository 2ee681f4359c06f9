package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pcprep/pcprep-api/internal/api/handler/v1/request"
	"github.com/pcprep/pcprep-api/internal/api/handler/v1/response"
	"github.com/pcprep/pcprep-api/internal/domain"
)

type PeriodicService interface {
	Roots(ctx context.Context) ([]domain.PeriodicRootSummary, error)
	Tree(ctx context.Context, nodeID uint) (domain.PeriodicTree, error)
	History(ctx context.Context, rootID uint) ([]domain.PeriodicHistoryEntry, error)
	Verify(ctx context.Context, actor domain.User, nodeID uint, check domain.PeriodicCheck) (domain.PeriodicRecord, error)
	Reset(ctx context.Context, actor domain.User, rootID uint) (int, error)
	ReassortOptions(ctx context.Context, nodeID uint) ([]domain.ReassortOption, error)
	Replace(ctx context.Context, actor domain.User, nodeID uint, in domain.ReplaceInput) (domain.Replacement, error)
}

// PeriodicHandler serves the stock checks done between events.
type PeriodicHandler struct {
	svc  PeriodicService
	uSvc UserGetter
}

func NewPeriodicHandler(svc PeriodicService, uSvc UserGetter) *PeriodicHandler {
	return &PeriodicHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleRoots godoc
// @Summary      Stock roots with their periodic check progress
// @Tags         periodic
// @Produce      json
// @Success      200  {array}   domain.PeriodicRootSummary
// @Failure      403  {object}  response.Err
// @Router       /periodic/roots [get]
// @Security BearerAuth
func (h *PeriodicHandler) HandleRoots(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc, stockCheckRoles...); !ok {
		return
	}

	roots, err := h.svc.Roots(ctx.Request.Context())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleRoots -> h.svc.Roots", err)
		return
	}

	ctx.JSON(http.StatusOK, roots)
}

// HandleTree godoc
// @Summary      Periodic check tree of the stock root holding a node
// @Tags         periodic
// @Produce      json
// @Param        nodeID  path      int  true  "node id"
// @Success      200     {object}  domain.PeriodicTree
// @Failure      404     {object}  response.Err
// @Router       /periodic/{nodeID}/tree [get]
// @Security BearerAuth
func (h *PeriodicHandler) HandleTree(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc, stockCheckRoles...); !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	tree, err := h.svc.Tree(ctx.Request.Context(), nodeID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleTree -> h.svc.Tree", err)
		return
	}

	ctx.JSON(http.StatusOK, tree)
}

// HandleHistory godoc
// @Summary      Latest periodic checks under a stock node
// @Tags         periodic
// @Produce      json
// @Param        nodeID  path      int  true  "node id"
// @Success      200     {array}   domain.PeriodicHistoryEntry
// @Failure      404     {object}  response.Err
// @Router       /periodic/{nodeID}/history [get]
// @Security BearerAuth
func (h *PeriodicHandler) HandleHistory(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc, stockCheckRoles...); !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	history, err := h.svc.History(ctx.Request.Context(), nodeID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleHistory -> h.svc.History", err)
		return
	}

	ctx.JSON(http.StatusOK, history)
}

// HandleVerify godoc
// @Summary      Record the periodic check of an item
// @Tags         periodic
// @Accept       json
// @Produce      json
// @Param        nodeID   path      int                           true  "item id"
// @Param        request  body      request.PeriodicCheckRequest  true  "check"
// @Success      201      {object}  domain.PeriodicRecord
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Router       /periodic/{nodeID}/verify [post]
// @Security BearerAuth
func (h *PeriodicHandler) HandleVerify(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, stockCheckRoles...)
	if !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	var req request.PeriodicCheckRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	rec, err := h.svc.Verify(ctx.Request.Context(), actor, nodeID, req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "v1.HandlePeriodicVerify -> h.svc.Verify", err)
		return
	}

	ctx.JSON(http.StatusCreated, rec)
}

// HandleReset godoc
// @Summary      Put every item under a stock root back to TODO
// @Tags         periodic
// @Produce      json
// @Param        nodeID  path      int  true  "root id"
// @Success      200     {object}  response.ResetResponse
// @Failure      404     {object}  response.Err
// @Router       /periodic/{nodeID}/reset [post]
// @Security BearerAuth
func (h *PeriodicHandler) HandleReset(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, stockCheckRoles...)
	if !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	n, err := h.svc.Reset(ctx.Request.Context(), actor, nodeID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleReset -> h.svc.Reset", err)
		return
	}

	ctx.JSON(http.StatusOK, response.ResetResponse{Reset: n})
}

// HandleReassortOptions godoc
// @Summary      Restocking batches usable for an item
// @Tags         periodic
// @Produce      json
// @Param        nodeID  path      int  true  "item id"
// @Success      200     {array}   domain.ReassortOption
// @Failure      404     {object}  response.Err
// @Failure      409     {object}  response.Err
// @Router       /periodic/{nodeID}/reassort-options [get]
// @Security BearerAuth
func (h *PeriodicHandler) HandleReassortOptions(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc, stockCheckRoles...); !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	options, err := h.svc.ReassortOptions(ctx.Request.Context(), nodeID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleReassortOptions -> h.svc.ReassortOptions", err)
		return
	}

	ctx.JSON(http.StatusOK, options)
}

// HandleReplace godoc
// @Summary      Refill an item from a restocking batch
// @Tags         periodic
// @Accept       json
// @Produce      json
// @Param        nodeID   path      int                     true  "item id"
// @Param        request  body      request.ReplaceRequest  true  "replacement"
// @Success      200      {object}  domain.Replacement
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Router       /periodic/{nodeID}/replace [post]
// @Security BearerAuth
func (h *PeriodicHandler) HandleReplace(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, stockCheckRoles...)
	if !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	var req request.ReplaceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	in, err := req.ToInput()
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	out, err := h.svc.Replace(ctx.Request.Context(), actor, nodeID, in)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleReplace -> h.svc.Replace", err)
		return
	}

	ctx.JSON(http.StatusOK, out)
}
