package respond

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"efaktur-validator/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if sha, ok := c.Get("documentSha256"); ok {
		fields["document_sha256"] = sha
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
		telemetry.CaptureException(fmt.Errorf("%s: %s", code, message), map[string]string{
			"code":       code,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("requestId"),
		})
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
