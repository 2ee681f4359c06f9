package v1

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pcprep/pcprep-api/internal/api/handler/v1/response"
	"github.com/pcprep/pcprep-api/internal/api/middleware"
	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/service"
)

var (
	errInactiveUser = errors.New("account is deactivated")
)

type UserGetter interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
}

// getUserFromContext loads the user behind the verified token. Deactivated
// accounts are treated like invalid tokens.
func getUserFromContext(ctx *gin.Context, uSvc UserGetter) (domain.User, *response.Err) {
	userID := ctx.GetUint(middleware.CtxUserID)
	if userID == 0 {
		return domain.User{}, response.ErrInvalidToken(errors.New("no user in token"))
	}

	user, err := uSvc.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return domain.User{}, response.ErrInvalidToken(err)
		}

		err = fmt.Errorf("getUserFromContext -> uSvc.GetUser -> %w", err)
		return domain.User{}, response.ErrInternalServerError(err)
	}
	if !user.Active {
		return domain.User{}, response.ErrInvalidToken(errInactiveUser)
	}

	return user, nil
}

// requireUser combines getUserFromContext with a role check. No roles means
// any authenticated user.
func requireUser(ctx *gin.Context, uSvc UserGetter, roles ...domain.Role) (domain.User, bool) {
	user, respErr := getUserFromContext(ctx, uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return domain.User{}, false
	}

	if len(roles) == 0 {
		return user, true
	}
	for _, r := range roles {
		if user.Role == r {
			return user, true
		}
	}

	response.RenderErr(ctx, response.ErrPermissionDenied(fmt.Errorf("user %v with role %s is not allowed", user.ID, user.Role)))
	return domain.User{}, false
}

func rolesWhere(allowed func(domain.Role) bool) []domain.Role {
	var roles []domain.Role
	for _, r := range domain.Roles {
		if allowed(r) {
			roles = append(roles, r)
		}
	}

	return roles
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid %s: %q", name, ctx.Param(name))))
		return 0, false
	}

	return uint(id), true
}

// renderServiceErr maps service errors to API errors. Unknown errors become a
// 500 annotated with op.
func renderServiceErr(ctx *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		response.RenderErr(ctx, response.ErrBadRequest(err))
	case errors.Is(err, service.ErrWrongCredentials):
		response.RenderErr(ctx, response.ErrWrongCredentials(err))
	case errors.Is(err, service.ErrPermissionDenied):
		response.RenderErr(ctx, response.ErrPermissionDenied(err))
	case errors.Is(err, service.ErrEventClosed):
		response.RenderErr(ctx, response.ErrEventClosed(err))
	case errors.Is(err, service.ErrShareLinkExpired):
		response.RenderErr(ctx, response.ErrShareLinkExpired(err))
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNodeNotFound),
		errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrShareLinkNotFound),
		errors.Is(err, service.ErrExpiryNotFound),
		errors.Is(err, service.ErrReassortNotFound),
		errors.Is(err, service.ErrBatchNotFound):
		response.RenderErr(ctx, response.ErrMissing(err))
	case errors.Is(err, service.ErrUsernameExists):
		response.RenderErr(ctx, response.ErrState(response.CodeConflict, err))
	case errors.Is(err, service.ErrNotAllChildrenVerified):
		response.RenderErr(ctx, response.ErrState(response.CodeNotAllChildrenVerified, err))
	case errors.Is(err, service.ErrParentHasNoItems):
		response.RenderErr(ctx, response.ErrState(response.CodeParentHasNoItems, err))
	case errors.Is(err, service.ErrNodeNotInEvent):
		response.RenderErr(ctx, response.ErrState(response.CodeNodeNotInEvent, err))
	case errors.Is(err, service.ErrNotAnItem):
		response.RenderErr(ctx, response.ErrState(response.CodeNotAnItem, err))
	case errors.Is(err, service.ErrBatchEmpty):
		response.RenderErr(ctx, response.ErrState(response.CodeBatchEmpty, err))
	case errors.Is(err, service.ErrInvalidTree):
		response.RenderErr(ctx, response.ErrState(response.CodeInvalidTree, err))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("%s -> %w", op, err)))
	}
}
