package signing

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSigningRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(f.svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHandlerSubmitSuccess(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "doc-h1", token('a'))
	r := newSigningRouter(f)

	resp := postJSON(r, "/api/v1/sign/"+token('a'), map[string]string{
		"signatureDataUrl": pngDataURL,
		"signerName":       "Ana",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body resultResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "/thank-you", body.Redirect)

	resp = postJSON(r, "/api/v1/sign/"+token('a'), map[string]string{
		"signatureDataUrl": pngDataURL,
		"signerName":       "Ana",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "This document has already been signed.", body.Message)
}

func TestHandlerInvalidTokenLooksTheSameEverywhere(t *testing.T) {
	f := newFixture(t)
	r := newSigningRouter(f)

	submit := postJSON(r, "/api/v1/sign/"+token('x'), map[string]string{"signatureDataUrl": pngDataURL})
	view := postJSON(r, "/api/v1/sign/"+token('x')+"/view", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sign/bad", nil)
	get := httptest.NewRecorder()
	r.ServeHTTP(get, req)

	for _, resp := range []*httptest.ResponseRecorder{submit, view, get} {
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.JSONEq(t, `{"success":false,"message":"This signing link is invalid or has expired."}`, resp.Body.String())
	}
}

func TestHandlerEmptySignature(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "doc-h2", token('a'))
	r := newSigningRouter(f)

	resp := postJSON(r, "/api/v1/sign/"+token('a'), map[string]string{"signatureDataUrl": "data:image/png;base64,"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Please draw your signature")
}

func TestHandlerViewAndMarkViewed(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "doc-h3", token('a'))
	r := newSigningRouter(f)

	resp := postJSON(r, "/api/v1/sign/"+token('a')+"/view", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true}`, resp.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sign/"+token('a'), nil)
	get := httptest.NewRecorder()
	r.ServeHTTP(get, req)
	require.Equal(t, http.StatusOK, get.Code)

	var view struct {
		Document struct {
			Title string `json:"title"`
			HTML  string `json:"html"`
		} `json:"document"`
		Recipient struct {
			Status string `json:"status"`
		} `json:"recipient"`
	}
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &view))
	assert.Equal(t, "Service Agreement", view.Document.Title)
	assert.Equal(t, "viewed", view.Recipient.Status)
	assert.NotContains(t, get.Body.String(), token('a'))
}
