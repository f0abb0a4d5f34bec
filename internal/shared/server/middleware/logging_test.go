package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"esign-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.POST("/api/v1/sign/:token", func(c *gin.Context) {
		c.Set("documentId", "doc-1")
		c.Set("recipientId", "rec-1")
		c.Set("statusTransition", "viewed->signed")
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sign/secret-token", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	required := []string{"request_id", "route", "document_id", "recipient_id", "duration_ms", "status", "status_transition"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["route"] != "/api/v1/sign/:token" {
		t.Fatalf("expected route template, got %v", payload["route"])
	}
	if strings.Contains(last, "secret-token") {
		t.Fatalf("log line leaked the signing token: %s", last)
	}
	if payload["status_transition"] != "viewed->signed" {
		t.Fatalf("unexpected status_transition: %v", payload["status_transition"])
	}
}
