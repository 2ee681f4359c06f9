package v1

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pcprep/pcprep-api/internal/api/handler/v1/request"
	"github.com/pcprep/pcprep-api/internal/api/handler/v1/response"
	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/seed"
)

const (
	defaultExpiringDays = 30
	maxTemplateSize     = 1 << 20
)

type StockService interface {
	ListRoots(ctx context.Context) ([]domain.StockNode, error)
	GetTree(ctx context.Context, id uint) (domain.StockNode, error)
	Create(ctx context.Context, actor domain.User, parentID *uint, node domain.StockNode) (domain.StockNode, error)
	Update(ctx context.Context, actor domain.User, id uint, patch domain.StockNodePatch) (domain.StockNode, error)
	Delete(ctx context.Context, actor domain.User, id uint) error
	Duplicate(ctx context.Context, actor domain.User, id uint) (domain.StockNode, error)
	Expiring(ctx context.Context, days int) ([]domain.ExpiringItem, error)
	ImportTemplate(ctx context.Context, actor domain.User, tpl seed.TemplateNode) (domain.StockNode, error)
	Expiries(ctx context.Context, nodeID uint) ([]domain.ItemExpiry, error)
	AddExpiry(ctx context.Context, actor domain.User, nodeID uint, lot domain.ItemExpiry) (domain.ItemExpiry, error)
	DeleteExpiry(ctx context.Context, actor domain.User, nodeID, expiryID uint) error
}

type StockHandler struct {
	svc  StockService
	uSvc UserGetter
}

func NewStockHandler(svc StockService, uSvc UserGetter) *StockHandler {
	return &StockHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleListRoots godoc
// @Summary      List top level stock nodes
// @Tags         stock
// @Produce      json
// @Success      200  {array}   domain.StockNode
// @Failure      401  {object}  response.Err
// @Router       /stock [get]
// @Security BearerAuth
func (h *StockHandler) HandleListRoots(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc); !ok {
		return
	}

	roots, err := h.svc.ListRoots(ctx.Request.Context())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListRoots -> h.svc.ListRoots", err)
		return
	}

	ctx.JSON(http.StatusOK, roots)
}

// HandleGetTree godoc
// @Summary      Nested subtree of a stock node
// @Tags         stock
// @Produce      json
// @Param        nodeID  path      int  true  "node id"
// @Success      200     {object}  domain.StockNode
// @Failure      404     {object}  response.Err
// @Router       /stock/{nodeID}/tree [get]
// @Security BearerAuth
func (h *StockHandler) HandleGetTree(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc); !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	tree, err := h.svc.GetTree(ctx.Request.Context(), nodeID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetTree -> h.svc.GetTree", err)
		return
	}

	ctx.JSON(http.StatusOK, tree)
}

// HandleCreateRoot godoc
// @Summary      Create a top level stock node
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        request  body      request.CreateNodeRequest  true  "node"
// @Success      201      {object}  domain.StockNode
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Router       /stock [post]
// @Security BearerAuth
func (h *StockHandler) HandleCreateRoot(ctx *gin.Context) {
	h.create(ctx, nil)
}

// HandleCreateChild godoc
// @Summary      Create a child of a stock group
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        nodeID   path      int                        true  "parent id"
// @Param        request  body      request.CreateNodeRequest  true  "node"
// @Success      201      {object}  domain.StockNode
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Router       /stock/{nodeID} [post]
// @Security BearerAuth
func (h *StockHandler) HandleCreateChild(ctx *gin.Context) {
	parentID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	h.create(ctx, &parentID)
}

func (h *StockHandler) create(ctx *gin.Context, parentID *uint) {
	actor, ok := requireUser(ctx, h.uSvc, domain.RoleAdmin)
	if !ok {
		return
	}

	var req request.CreateNodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	node, err := h.svc.Create(ctx.Request.Context(), actor, parentID, req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleCreateNode -> h.svc.Create", err)
		return
	}

	ctx.JSON(http.StatusCreated, node)
}

// HandleUpdateNode godoc
// @Summary      Rename, change quantity or expiry, or move a stock node
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        nodeID   path      int                        true  "node id"
// @Param        request  body      request.UpdateNodeRequest  true  "changes"
// @Success      200      {object}  domain.StockNode
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Router       /stock/{nodeID} [patch]
// @Security BearerAuth
func (h *StockHandler) HandleUpdateNode(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, domain.RoleAdmin)
	if !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	var req request.UpdateNodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	patch, err := req.ToPatch()
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	node, err := h.svc.Update(ctx.Request.Context(), actor, nodeID, patch)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleUpdateNode -> h.svc.Update", err)
		return
	}

	ctx.JSON(http.StatusOK, node)
}

// HandleDeleteNode godoc
// @Summary      Delete a stock node and its subtree
// @Tags         stock
// @Param        nodeID  path  int  true  "node id"
// @Success      204
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /stock/{nodeID} [delete]
// @Security BearerAuth
func (h *StockHandler) HandleDeleteNode(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, domain.RoleAdmin)
	if !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	if err := h.svc.Delete(ctx.Request.Context(), actor, nodeID); err != nil {
		renderServiceErr(ctx, "v1.HandleDeleteNode -> h.svc.Delete", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleDuplicateNode godoc
// @Summary      Deep copy a stock subtree next to the original
// @Tags         stock
// @Produce      json
// @Param        nodeID  path      int  true  "node id"
// @Success      201     {object}  domain.StockNode
// @Failure      404     {object}  response.Err
// @Router       /stock/{nodeID}/duplicate [post]
// @Security BearerAuth
func (h *StockHandler) HandleDuplicateNode(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, domain.RoleAdmin)
	if !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	node, err := h.svc.Duplicate(ctx.Request.Context(), actor, nodeID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleDuplicateNode -> h.svc.Duplicate", err)
		return
	}

	ctx.JSON(http.StatusCreated, node)
}

// HandleExpiring godoc
// @Summary      Items expiring within the given number of days
// @Tags         stock
// @Produce      json
// @Param        days  query     int  false  "horizon in days (default 30)"
// @Success      200   {array}   domain.ExpiringItem
// @Failure      400   {object}  response.Err
// @Router       /stock/expiring [get]
// @Security BearerAuth
func (h *StockHandler) HandleExpiring(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc); !ok {
		return
	}

	days := defaultExpiringDays
	if raw := ctx.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 3650 {
			response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid days: %q", raw)))
			return
		}
		days = n
	}

	items, err := h.svc.Expiring(ctx.Request.Context(), days)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleExpiring -> h.svc.Expiring", err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// HandleImportTemplate godoc
// @Summary      Import a YAML stock template as a new top level node
// @Tags         stock
// @Accept       application/x-yaml
// @Produce      json
// @Success      201  {object}  domain.StockNode
// @Failure      400  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Router       /stock/import [post]
// @Security BearerAuth
func (h *StockHandler) HandleImportTemplate(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, domain.RoleAdmin)
	if !ok {
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxTemplateSize)
	tpl, err := seed.Parse(ctx.Request.Body)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	node, err := h.svc.ImportTemplate(ctx.Request.Context(), actor, tpl)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleImportTemplate -> h.svc.ImportTemplate", err)
		return
	}

	ctx.JSON(http.StatusCreated, node)
}
