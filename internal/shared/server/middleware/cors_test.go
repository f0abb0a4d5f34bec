package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins))
	r.POST("/api/v1/sign/:token", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return r
}

func corsRequest(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/sign/tok-123", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCORSPreflight(t *testing.T) {
	resp := corsRequest(corsRouter("http://localhost:5173"), http.MethodOptions, "http://localhost:5173")

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	h := resp.Header()
	if got := h.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected Allow-Origin %q", got)
	}
	if h.Get("Access-Control-Allow-Methods") == "" || h.Get("Access-Control-Allow-Headers") == "" {
		t.Fatalf("expected preflight method and header lists")
	}
	if got := h.Get("Access-Control-Max-Age"); got != "600" {
		t.Fatalf("expected Max-Age 600, got %q", got)
	}
}

func TestCORSSimpleRequestExposesHeaders(t *testing.T) {
	resp := corsRequest(corsRouter("http://localhost:5173"), http.MethodPost, "http://localhost:5173")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	h := resp.Header()
	if got := h.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected Allow-Origin %q", got)
	}
	if h.Get("Access-Control-Expose-Headers") == "" {
		t.Fatalf("expected exposed headers")
	}
	if h.Get("Access-Control-Allow-Methods") != "" {
		t.Fatalf("method list belongs to preflight responses only")
	}
}

func TestCORSSubdomainPattern(t *testing.T) {
	r := corsRouter("https://*.example.com", "http://localhost:3000/")

	for origin, allowed := range map[string]bool{
		"https://app.example.com":   true,
		"https://a.b.example.com":   true,
		"http://localhost:3000":     true,
		"https://example.com":       false,
		"http://app.example.com":    false,
		"https://evil-example.com":  false,
		"https://example.com.evil":  false,
		"https://evil.example.com.": false,
	} {
		got := corsRequest(r, http.MethodPost, origin).Header().Get("Access-Control-Allow-Origin")
		if allowed && got != origin {
			t.Fatalf("%s: expected to be allowed, got %q", origin, got)
		}
		if !allowed && got != "" {
			t.Fatalf("%s: expected to be rejected, got %q", origin, got)
		}
	}
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	resp := corsRequest(corsRouter("http://localhost:5173"), http.MethodPost, "https://evil.example.com")
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no Allow-Origin for unknown origin, got %q", got)
	}
	if resp.Header().Get("Vary") != "Origin" {
		t.Fatalf("expected Vary: Origin")
	}
}
