package signing

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"strings"
	"time"

	"esign-backend/internal/pdfrender"
	"esign-backend/internal/richtext"
)

const timestampLayout = "02/01/2006 15:04:05"

// PDFRenderer converts a complete HTML page to PDF bytes.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// RenderInput is everything placed on the final document.
type RenderInput struct {
	DocumentID    string
	RecipientID   string
	DocumentTitle string
	Content       []byte
	SignerName    string
	SignerEmail   string
	SignatureURL  string
	ClientIP      string
	SignedAt      time.Time
}

// Renderer builds the signed document page and delegates PDF generation.
type Renderer struct {
	PDF      PDFRenderer
	Location *time.Location
}

// NewRenderer constructs a Renderer that formats timestamps in loc.
func NewRenderer(pdf PDFRenderer, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{PDF: pdf, Location: loc}
}

var finalDocumentTemplate = template.Must(template.New("final").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; }
  .container { max-width: 800px; margin: 40px auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px; }
  h1 { color: #222; border-bottom: 2px solid #eee; padding-bottom: 10px; }
  .document-content { margin-top: 20px; padding: 15px; background-color: #f9f9f9; border-radius: 5px; }
  .signature-section { margin-top: 40px; padding-top: 20px; border-top: 1px solid #ccc; }
  .signature-box { display: flex; align-items: center; justify-content: space-between; }
  .signature-img { max-width: 250px; max-height: 100px; }
  .audit-trail { font-size: 0.8em; color: #666; margin-top: 30px; }
  .footer { text-align: center; font-size: 0.75em; color: #aaa; margin-top: 40px; }
</style>
</head>
<body>
<div class="container">
  <h1>{{.Title}}</h1>
  <div class="document-content">{{.Body}}</div>
  <div class="signature-section">
    <h3>Electronic signature</h3>
    <div class="signature-box">
      <div>
        <p><strong>Signer:</strong> {{.SignerName}}</p>
        <p><strong>E-mail:</strong> {{.SignerEmail}}</p>
        <p><strong>Signed at ({{.Zone}}):</strong> {{.Timestamp}}</p>
      </div>
      <img src="{{.SignatureURL}}" alt="Signature" class="signature-img"/>
    </div>
  </div>
  <div class="audit-trail">
    <p><strong>Document ID:</strong> {{.DocumentID}}</p>
    <p><strong>Recipient ID:</strong> {{.RecipientID}}</p>
    <p><strong>Signer IP:</strong> {{.ClientIP}}</p>
    <p><strong>Timestamp:</strong> {{.Timestamp}}</p>
    <p><strong>Status:</strong> Digitally signed</p>
  </div>
</div>
<div class="footer">
  <p>Document generated and signed on the Pacto Seguro platform.</p>
</div>
</body>
</html>`))

type finalDocumentData struct {
	Title        string
	Body         template.HTML
	SignerName   string
	SignerEmail  string
	SignatureURL template.URL
	Zone         string
	Timestamp    string
	DocumentID   string
	RecipientID  string
	ClientIP     string
}

// HTML renders the final document page. Content is normalised first, so a
// missing or malformed body renders as an empty document.
func (r *Renderer) HTML(in RenderInput) (string, error) {
	if strings.TrimSpace(in.SignatureURL) == "" {
		return "", &PreconditionError{Field: "signature url"}
	}
	body := richtext.ToHTML(in.Content)
	if strings.TrimSpace(body) == "" {
		return "", &PreconditionError{Field: "document html"}
	}
	ip := strings.TrimSpace(in.ClientIP)
	if ip == "" {
		ip = "Not available"
	}
	signedAt := in.SignedAt.In(r.Location)
	data := finalDocumentData{
		Title:        in.DocumentTitle,
		Body:         template.HTML(body),
		SignerName:   in.SignerName,
		SignerEmail:  in.SignerEmail,
		SignatureURL: template.URL(in.SignatureURL),
		Zone:         r.Location.String(),
		Timestamp:    signedAt.Format(timestampLayout),
		DocumentID:   in.DocumentID,
		RecipientID:  in.RecipientID,
		ClientIP:     ip,
	}
	var buf bytes.Buffer
	if err := finalDocumentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render produces the signed PDF.
func (r *Renderer) Render(ctx context.Context, in RenderInput) ([]byte, error) {
	page, err := r.HTML(in)
	if err != nil {
		return nil, err
	}
	pdf, err := r.PDF.RenderPDF(ctx, page)
	if err != nil {
		var upstream *pdfrender.UpstreamError
		if errors.As(err, &upstream) {
			return nil, &RenderError{Status: upstream.Status, Body: upstream.Body, Err: err}
		}
		return nil, &RenderError{Err: err}
	}
	return pdf, nil
}
