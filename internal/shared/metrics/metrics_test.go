package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHandlerExposesSigningMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ObserveSubmission("success", 120*time.Millisecond)
	IncDocumentCompleted()
	IncNotification("signer", "sent")
	IncWorkerJob("delivered")

	r := gin.New()
	r.GET("/metrics", Handler())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{
		`esign_signing_submissions_total{outcome="success"}`,
		"esign_signing_submission_duration_seconds_bucket",
		"esign_documents_completed_total",
		`esign_notify_messages_total{kind="signer",status="sent"}`,
		`esign_worker_jobs_total{outcome="delivered"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
