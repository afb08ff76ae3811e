package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"efaktur-validator/internal/shared/server/respond"
	"efaktur-validator/internal/shared/telemetry"
)

// Recovery recovers from panics and returns a standardized error response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				reqID := RequestIDFromContext(c)
				telemetry.Error("panic", map[string]any{
					"request_id": reqID,
					"error":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				})
				telemetry.CaptureException(fmt.Errorf("panic: %v", rec), map[string]string{"request_id": reqID})
				// respond.Error would report to Sentry a second time.
				c.AbortWithStatusJSON(http.StatusInternalServerError, respond.ErrorResponse{
					Error: respond.ErrorBody{Code: "internal_error", Message: "Unexpected server error"},
				})
			}
		}()
		c.Next()
	}
}
