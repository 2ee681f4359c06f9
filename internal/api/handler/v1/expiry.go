package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pcprep/pcprep-api/internal/api/handler/v1/request"
	"github.com/pcprep/pcprep-api/internal/api/handler/v1/response"
	"github.com/pcprep/pcprep-api/internal/domain"
)

// HandleListExpiries godoc
// @Summary      Dated lots of a stock item
// @Tags         stock
// @Produce      json
// @Param        nodeID  path      int  true  "item id"
// @Success      200     {array}   domain.ItemExpiry
// @Failure      404     {object}  response.Err
// @Failure      409     {object}  response.Err
// @Router       /stock/{nodeID}/expiries [get]
// @Security BearerAuth
func (h *StockHandler) HandleListExpiries(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc); !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	lots, err := h.svc.Expiries(ctx.Request.Context(), nodeID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListExpiries -> h.svc.Expiries", err)
		return
	}

	ctx.JSON(http.StatusOK, lots)
}

// HandleAddExpiry godoc
// @Summary      Add a dated lot to a stock item
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        nodeID   path      int                       true  "item id"
// @Param        request  body      request.AddExpiryRequest  true  "lot"
// @Success      201      {object}  domain.ItemExpiry
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Router       /stock/{nodeID}/expiries [post]
// @Security BearerAuth
func (h *StockHandler) HandleAddExpiry(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, domain.RoleAdmin)
	if !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}

	var req request.AddExpiryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	lot, err := h.svc.AddExpiry(ctx.Request.Context(), actor, nodeID, req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleAddExpiry -> h.svc.AddExpiry", err)
		return
	}

	ctx.JSON(http.StatusCreated, lot)
}

// HandleDeleteExpiry godoc
// @Summary      Remove a dated lot from a stock item
// @Tags         stock
// @Param        nodeID    path  int  true  "item id"
// @Param        expiryID  path  int  true  "lot id"
// @Success      204
// @Failure      404  {object}  response.Err
// @Router       /stock/{nodeID}/expiries/{expiryID} [delete]
// @Security BearerAuth
func (h *StockHandler) HandleDeleteExpiry(ctx *gin.Context) {
	actor, ok := requireUser(ctx, h.uSvc, domain.RoleAdmin)
	if !ok {
		return
	}

	nodeID, ok := parseIDParam(ctx, "nodeID")
	if !ok {
		return
	}
	expiryID, ok := parseIDParam(ctx, "expiryID")
	if !ok {
		return
	}

	if err := h.svc.DeleteExpiry(ctx.Request.Context(), actor, nodeID, expiryID); err != nil {
		renderServiceErr(ctx, "v1.HandleDeleteExpiry -> h.svc.DeleteExpiry", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
