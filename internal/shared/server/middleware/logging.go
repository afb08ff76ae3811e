package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"efaktur-validator/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		documentSHA, _ := c.Get("documentSha256")
		mediaType, _ := c.Get("mediaType")
		outcome, _ := c.Get("validationOutcome")

		telemetry.Info("request.complete", map[string]any{
			"request_id":         RequestIDFromContext(c),
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"status":             c.Writer.Status(),
			"duration_ms":        float64(latency.Microseconds()) / 1000.0,
			"document_sha256":    documentSHA,
			"media_type":         mediaType,
			"validation_outcome": outcome,
			"client_ip":          c.ClientIP(),
			"user_agent":         c.Request.UserAgent(),
		})
	}
}
