package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pcprep/pcprep-api/internal/api/handler/v1/request"
	"github.com/pcprep/pcprep-api/internal/api/handler/v1/response"
	"github.com/pcprep/pcprep-api/internal/domain"
)

type ReassortService interface {
	ListItems(ctx context.Context) ([]domain.ReassortItem, error)
	CreateItem(ctx context.Context, actor domain.User, item domain.ReassortItem) (domain.ReassortItem, error)
	UpdateItem(ctx context.Context, actor domain.User, id uint, patch domain.ReassortItemPatch) (domain.ReassortItem, error)
	DeleteItem(ctx context.Context, actor domain.User, id uint) error
	AddBatch(ctx context.Context, actor domain.User, itemID uint, batch domain.ReassortBatch) (domain.ReassortBatch, error)
	UpdateBatch(ctx context.Context, actor domain.User, id uint, patch domain.ReassortBatchPatch) (domain.ReassortBatch, error)
	DeleteBatch(ctx context.Context, actor domain.User, id uint) error
}

// ReassortHandler manages the restocking reserve.
type ReassortHandler struct {
	svc  ReassortService
	uSvc UserGetter
}

func NewReassortHandler(svc ReassortService, uSvc UserGetter) *ReassortHandler {
	return &ReassortHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleListItems godoc
// @Summary      Restocking articles with their batches
// @Tags         reassort
// @Produce      json
// @Success      200  {array}   domain.ReassortItem
// @Failure      403  {object}  response.Err
// @Router       /reassort/items [get]
// @Security BearerAuth
func (h *ReassortHandler) HandleListItems(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc, stockCheckRoles...); !ok {
		return
	}

	items, err := h.svc.ListItems(ctx.Request.Context())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListItems -> h.svc.ListItems", err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// HandleCreateItem godoc
// @Summary      Create a restocking article
// @Tags         reassort
// @Accept       json
// @Produce      json
// @Param        request  body      request.CreateReassortItemRequest  true  "article"
// @Success      201      {object}  domain.ReassortItem
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /reassort/items [post]
// @Security BearerAuth
func (h *ReassortHandler) HandleCreateItem(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, staffRoles...)
	if !ok {
		return
	}

	var req request.CreateReassortItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	item, err := h.svc.CreateItem(ctx.Request.Context(), actor, req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleCreateItem -> h.svc.CreateItem", err)
		return
	}

	ctx.JSON(http.StatusCreated, item)
}

// HandleUpdateItem godoc
// @Summary      Rename, annotate or retarget a restocking article
// @Tags         reassort
// @Accept       json
// @Produce      json
// @Param        itemID   path      int                                true  "article id"
// @Param        request  body      request.UpdateReassortItemRequest  true  "changes"
// @Success      200      {object}  domain.ReassortItem
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /reassort/items/{itemID} [patch]
// @Security BearerAuth
func (h *ReassortHandler) HandleUpdateItem(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, staffRoles...)
	if !ok {
		return
	}

	itemID, ok := parseIDParam(ctx, "itemID")
	if !ok {
		return
	}

	var req request.UpdateReassortItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	item, err := h.svc.UpdateItem(ctx.Request.Context(), actor, itemID, req.ToPatch())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleUpdateItem -> h.svc.UpdateItem", err)
		return
	}

	ctx.JSON(http.StatusOK, item)
}

// HandleDeleteItem godoc
// @Summary      Delete a restocking article and its batches
// @Tags         reassort
// @Param        itemID  path  int  true  "article id"
// @Success      204
// @Failure      404  {object}  response.Err
// @Router       /reassort/items/{itemID} [delete]
// @Security BearerAuth
func (h *ReassortHandler) HandleDeleteItem(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, staffRoles...)
	if !ok {
		return
	}

	itemID, ok := parseIDParam(ctx, "itemID")
	if !ok {
		return
	}

	if err := h.svc.DeleteItem(ctx.Request.Context(), actor, itemID); err != nil {
		renderServiceErr(ctx, "v1.HandleDeleteItem -> h.svc.DeleteItem", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleAddBatch godoc
// @Summary      Add a batch to a restocking article
// @Tags         reassort
// @Accept       json
// @Produce      json
// @Param        itemID   path      int                         true  "article id"
// @Param        request  body      request.CreateBatchRequest  true  "batch"
// @Success      201      {object}  domain.ReassortBatch
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /reassort/items/{itemID}/batches [post]
// @Security BearerAuth
func (h *ReassortHandler) HandleAddBatch(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, staffRoles...)
	if !ok {
		return
	}

	itemID, ok := parseIDParam(ctx, "itemID")
	if !ok {
		return
	}

	var req request.CreateBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	batch, err := h.svc.AddBatch(ctx.Request.Context(), actor, itemID, req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleAddBatch -> h.svc.AddBatch", err)
		return
	}

	ctx.JSON(http.StatusCreated, batch)
}

// HandleUpdateBatch godoc
// @Summary      Change the quantity, expiry or lot of a batch
// @Tags         reassort
// @Accept       json
// @Produce      json
// @Param        batchID  path      int                         true  "batch id"
// @Param        request  body      request.UpdateBatchRequest  true  "changes"
// @Success      200      {object}  domain.ReassortBatch
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /reassort/batches/{batchID} [patch]
// @Security BearerAuth
func (h *ReassortHandler) HandleUpdateBatch(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, staffRoles...)
	if !ok {
		return
	}

	batchID, ok := parseIDParam(ctx, "batchID")
	if !ok {
		return
	}

	var req request.UpdateBatchRequest
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

	batch, err := h.svc.UpdateBatch(ctx.Request.Context(), actor, batchID, patch)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleUpdateBatch -> h.svc.UpdateBatch", err)
		return
	}

	ctx.JSON(http.StatusOK, batch)
}

// HandleDeleteBatch godoc
// @Summary      Delete a restocking batch
// @Tags         reassort
// @Param        batchID  path  int  true  "batch id"
// @Success      204
// @Failure      404  {object}  response.Err
// @Router       /reassort/batches/{batchID} [delete]
// @Security BearerAuth
func (h *ReassortHandler) HandleDeleteBatch(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, staffRoles...)
	if !ok {
		return
	}

	batchID, ok := parseIDParam(ctx, "batchID")
	if !ok {
		return
	}

	if err := h.svc.DeleteBatch(ctx.Request.Context(), actor, batchID); err != nil {
		renderServiceErr(ctx, "v1.HandleDeleteBatch -> h.svc.DeleteBatch", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
