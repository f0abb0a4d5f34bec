package pdfrender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// minimalPDF builds a one-page PDF with a correct cross-reference table.
func minimalPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>",
	}
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}

func TestRenderPDFSendsPrintOptions(t *testing.T) {
	var gotPath, gotToken string
	var gotBody renderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(minimalPDF())
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL + "/", Token: "secret"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := client.RenderPDF(context.Background(), "<p>hello</p>")
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF-") {
		t.Fatalf("expected pdf bytes")
	}
	if gotPath != "/pdf" || gotToken != "secret" {
		t.Fatalf("unexpected request path=%q token=%q", gotPath, gotToken)
	}
	if gotBody.HTML != "<p>hello</p>" {
		t.Fatalf("unexpected html %q", gotBody.HTML)
	}
	opts := gotBody.Options
	if opts.Format != "A4" || !opts.PrintBackground {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.Margin != (margin{Top: "20mm", Right: "20mm", Bottom: "20mm", Left: "20mm"}) {
		t.Fatalf("unexpected margin %+v", opts.Margin)
	}
}

func TestRenderPDFUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("quota exceeded"))
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.RenderPDF(context.Background(), "<p>x</p>")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusTooManyRequests || upstream.Body != "quota exceeded" {
		t.Fatalf("unexpected upstream error %+v", upstream)
	}
}

func TestRenderPDFRejectsNonPDFBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>login page</html>"))
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.RenderPDF(context.Background(), "<p>x</p>"); !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("expected ErrInvalidPDF, got %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(minimalPDF()); err != nil {
		t.Fatalf("expected minimal pdf to validate, got %v", err)
	}
	for _, data := range [][]byte{nil, []byte("hello"), []byte("%PDF-1.4\ngarbage")} {
		if err := Validate(data); !errors.Is(err, ErrInvalidPDF) {
			t.Fatalf("Validate(%q) expected ErrInvalidPDF, got %v", data, err)
		}
	}
}
