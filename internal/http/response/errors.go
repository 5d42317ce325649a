package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/slotswap-backend/internal/domain/aggregates"
	"github.com/yungbote/slotswap-backend/internal/platform/apierr"
)

// StatusForCode maps an aggregate error code to its HTTP status.
func StatusForCode(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeUnauthorized:
		return http.StatusForbidden
	case domainagg.CodeSelfSwap, domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeInvalidState:
		return http.StatusConflict
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondServiceError renders err using the status carried by apierr or
// aggregate errors. Anything else is an opaque 500.
func RespondServiceError(c *gin.Context, err error) {
	if ae, ok := apierr.As(err); ok {
		RespondError(c, ae.Status, ae.Code, ae)
		return
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		status := StatusForCode(aggErr.Code)
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
			RespondError(c, status, string(domainagg.CodeInternal), errors.New("internal error"))
			return
		}
		msg := aggErr.Message
		if msg == "" {
			msg = string(aggErr.Code)
		}
		RespondError(c, status, string(aggErr.Code), errors.New(msg))
		return
	}
	_ = c.Error(err)
	RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal error"))
}
