package main

// Render a sample signed document:
//   go run ./cmd/renderdemo -html-only
//   PDF_RENDERER_TOKEN=... go run ./cmd/renderdemo -out ./out/sample_signed.pdf

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"esign-backend/internal/pdfrender"
	"esign-backend/internal/shared/config"
	"esign-backend/internal/signing"
)

const sampleContent = `{"type":"doc","content":[
{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Service Agreement"}]},
{"type":"paragraph","content":[{"type":"text","text":"The provider agrees to deliver the services described below."}]},
{"type":"bulletList","content":[
 {"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","marks":[{"type":"bold"}],"text":"Term:"},{"type":"text","text":" 12 months"}]}]},
 {"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","marks":[{"type":"bold"}],"text":"Fee:"},{"type":"text","text":" paid monthly"}]}]}
]}]}`

// A 1x1 transparent PNG.
const sampleSignature = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func main() {
	cfg := config.Load()
	outPath := flag.String("out", "./out/sample_signed.pdf", "output path for the generated PDF")
	htmlOnly := flag.Bool("html-only", false, "write the HTML page next to -out and skip the PDF renderer")
	flag.Parse()

	loc, err := time.LoadLocation(cfg.SigningTimezone)
	if err != nil {
		fail("load timezone: %v", err)
	}
	var pdf signing.PDFRenderer
	if !*htmlOnly {
		client, err := pdfrender.New(pdfrender.Options{
			BaseURL: cfg.PDFRendererURL,
			Token:   cfg.PDFRendererToken,
			Timeout: time.Duration(cfg.PDFRenderTimeoutS) * time.Second,
		})
		if err != nil {
			fail("pdf renderer: %v", err)
		}
		pdf = client
	}
	renderer := signing.NewRenderer(pdf, loc)

	in := signing.RenderInput{
		DocumentID:    "00000000-0000-0000-0000-000000000001",
		RecipientID:   "00000000-0000-0000-0000-000000000002",
		DocumentTitle: "Sample Service Agreement",
		Content:       []byte(sampleContent),
		SignerName:    "Jordan Lee",
		SignerEmail:   "jordan.lee@example.com",
		SignatureURL:  sampleSignature,
		ClientIP:      "203.0.113.10",
		SignedAt:      time.Now(),
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		fail("create output dir: %v", err)
	}

	if *htmlOnly {
		page, err := renderer.HTML(in)
		if err != nil {
			fail("render html: %v", err)
		}
		htmlPath := strings.TrimSuffix(*outPath, filepath.Ext(*outPath)) + ".html"
		if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
			fail("write html: %v", err)
		}
		fmt.Printf("OK: wrote %s\n", htmlPath)
		return
	}

	data, err := renderer.Render(context.Background(), in)
	if err != nil {
		fail("render pdf: %v", err)
	}
	if err := pdfrender.Validate(data); err != nil {
		fail("render validation failed: %v", err)
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		fail("write pdf: %v", err)
	}
	fmt.Printf("OK: wrote %s (%d bytes)\n", *outPath, len(data))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
