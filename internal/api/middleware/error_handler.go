// Package middleware provides the HTTP middleware of the form builder API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
	"formbuilder.io/formbuilder/internal/pkg/logger"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Details     []string               `json:"details,omitempty"`
	FieldErrors []apperrors.FieldError `json:"field_errors,omitempty"`
	RequestID   string                 `json:"request_id,omitempty"`
}

// ErrorHandler is a Gin middleware that provides centralized error handling.
// It captures errors added via c.Error() and returns a consistent JSON response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		rid := GetRequestID(c.Request.Context())

		if appErr, ok := apperrors.IsAppError(err); ok && appErr.Kind != apperrors.KindInternal {
			logger.Warn("Request error",
				zap.String("code", appErr.Code),
				zap.String("kind", string(appErr.Kind)),
				zap.Int("status", appErr.HTTPStatus),
				zap.String("request_id", rid),
				zap.Error(appErr.Err),
			)
			c.JSON(appErr.HTTPStatus, ErrorBody{
				Code:        appErr.Code,
				Message:     appErr.Message,
				Details:     appErr.Details,
				FieldErrors: appErr.FieldErrors,
				RequestID:   rid,
			})
			return
		}

		// Internal details never leave the process.
		logger.Error("Unhandled request error", zap.Error(err), zap.String("request_id", rid))
		c.JSON(http.StatusInternalServerError, ErrorBody{
			Code:      apperrors.CodeInternalError,
			Message:   "operation failed",
			RequestID: rid,
		})
	}
}

// Abort writes err through the same JSON shape and stops the chain.
func Abort(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, ErrorBody{
		Code:      err.Code,
		Message:   err.Message,
		RequestID: GetRequestID(c.Request.Context()),
	})
}
