package respond

import (
	"github.com/gin-gonic/gin"

	"esign-backend/internal/shared/telemetry"
)

// ErrorBody is the owner-facing error object. Signing routes use their own envelope.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs the failure at a level matching status and aborts with an ErrorResponse.
func Error(c *gin.Context, status int, code, message string, details any) {
	reqID := c.GetString("requestId")
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"route":      c.FullPath(),
		"method":     c.Request.Method,
		"request_id": reqID,
	}
	for _, key := range []string{"userId", "documentId"} {
		if v := c.GetString(key); v != "" {
			fields[key] = v
		}
	}
	switch {
	case status >= 500:
		telemetry.Error("http.error", fields)
	case status == 404 || status == 401:
		telemetry.Info("http.error", fields)
	default:
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: reqID,
		Details:   details,
	}})
}
