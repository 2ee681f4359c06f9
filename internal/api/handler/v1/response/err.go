package response

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Machine readable error codes returned in Err.Code.
const (
	CodeInvalidRequest         = "invalid_request"
	CodeWrongCredentials       = "wrong_credentials"
	CodeInvalidToken           = "invalid_token"
	CodePermissionDenied       = "permission_denied"
	CodeEventClosed            = "event_closed"
	CodeShareLinkExpired       = "share_link_expired"
	CodeNotFound               = "not_found"
	CodeNotAllChildrenVerified = "not_all_children_verified"
	CodeParentHasNoItems       = "parent_has_no_items"
	CodeNodeNotInEvent         = "node_not_in_event"
	CodeInvalidTree            = "invalid_tree"
	CodeConflict               = "conflict"
	CodeNotAnItem              = "not_an_item"
	CodeBatchEmpty             = "batch_empty"
	CodeTooManyAttempts        = "too_many_attempts"
	CodeInternalError          = "internal_error"
)

type Err struct {
	Err            error         `json:"-"`
	HTTPStatusCode int           `json:"-"`
	RetryAfter     time.Duration `json:"-"`

	StatusText string `json:"status_text"`
	Code       string `json:"code"`
	ErrorMsg   string `json:"error_msg,omitempty"`
}

func (e *Err) Error() string {
	return fmt.Sprintf("%d %s: %v", e.HTTPStatusCode, e.Code, e.Err)
}

func RenderErr(ctx *gin.Context, err *Err) {
	if err.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", requestid.Get(ctx)),
			zap.String("path", ctx.FullPath()),
			zap.Error(err.Err),
		)
	}

	if err.RetryAfter > 0 {
		seconds := int(math.Ceil(err.RetryAfter.Seconds()))
		ctx.Header("Retry-After", strconv.Itoa(seconds))
	}

	ctx.AbortWithStatusJSON(err.HTTPStatusCode, err)
}

func newErr(status int, code string, err error) *Err {
	e := &Err{
		Err:            err,
		HTTPStatusCode: status,
		StatusText:     http.StatusText(status),
		Code:           code,
	}
	if err != nil {
		e.ErrorMsg = err.Error()
	}

	return e
}

func ErrBadRequest(err error) *Err {
	return newErr(http.StatusBadRequest, CodeInvalidRequest, err)
}

func ErrWrongCredentials(err error) *Err {
	return newErr(http.StatusUnauthorized, CodeWrongCredentials, err)
}

func ErrInvalidToken(err error) *Err {
	return newErr(http.StatusUnauthorized, CodeInvalidToken, err)
}

func ErrPermissionDenied(err error) *Err {
	return newErr(http.StatusForbidden, CodePermissionDenied, err)
}

func ErrEventClosed(err error) *Err {
	return newErr(http.StatusForbidden, CodeEventClosed, err)
}

func ErrShareLinkExpired(err error) *Err {
	return newErr(http.StatusForbidden, CodeShareLinkExpired, err)
}

func ErrNotFound(resource, key string, value any) *Err {
	return newErr(http.StatusNotFound, CodeNotFound, fmt.Errorf("%s with %s %v not found", resource, key, value))
}

// ErrMissing wraps a not found error coming from a lower layer.
func ErrMissing(err error) *Err {
	return newErr(http.StatusNotFound, CodeNotFound, err)
}

// ErrState reports a request that conflicts with the current state, such as
// loading a group whose items are not all verified.
func ErrState(code string, err error) *Err {
	return newErr(http.StatusConflict, code, err)
}

func ErrTooManyAttempts(retryAfter time.Duration) *Err {
	e := newErr(http.StatusTooManyRequests, CodeTooManyAttempts, fmt.Errorf("too many attempts, retry later"))
	e.RetryAfter = retryAfter

	return e
}

func ErrInternalServerError(err error) *Err {
	e := newErr(http.StatusInternalServerError, CodeInternalError, err)
	e.ErrorMsg = ""

	return e
}
