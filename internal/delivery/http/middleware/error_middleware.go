package middleware

import (
	"errors"
	"net/http"

	"pharmacy-guard-backend/internal/delivery/http/response"
	"pharmacy-guard-backend/pkg/apperror"
	"pharmacy-guard-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.Err != nil {
				logger.Log.Error("request failed", "status", appErr.Code, "path", c.FullPath(), "error", appErr.Err, "request_id", c.GetString("RequestID"))
			}
			response.Error(c, appErr.Code, appErr.Message, nil)
			return
		}

		// Never expose internal error details to clients.
		logger.Log.Error("internal server error", "path", c.FullPath(), "error", err, "request_id", c.GetString("RequestID"))
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
	}
}
