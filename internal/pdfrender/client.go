package pdfrender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	maxPDFBytes   = 50 << 20
	maxErrorBytes = 4 << 10
)

// UpstreamError is returned when the renderer answers with a non-2xx status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("pdf renderer responded with status %d: %s", e.Status, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client converts HTML to PDF through a Browserless-compatible /pdf endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New constructs a renderer client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("PDF_RENDERER_URL is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, token: opts.Token, httpClient: httpClient}, nil
}

type margin struct {
	Top    string `json:"top"`
	Right  string `json:"right"`
	Bottom string `json:"bottom"`
	Left   string `json:"left"`
}

type printOptions struct {
	Format          string `json:"format"`
	PrintBackground bool   `json:"printBackground"`
	Margin          margin `json:"margin"`
}

type renderRequest struct {
	HTML    string       `json:"html"`
	Options printOptions `json:"options"`
}

// RenderPDF posts the HTML with A4 print options and returns the PDF bytes.
// A 2xx response whose body is not a readable PDF yields ErrInvalidPDF.
func (c *Client) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	payload, err := json.Marshal(renderRequest{
		HTML: html,
		Options: printOptions{
			Format:          "A4",
			PrintBackground: true,
			Margin:          margin{Top: "20mm", Right: "20mm", Bottom: "20mm", Left: "20mm"},
		},
	})
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/pdf"
	if c.token != "" {
		endpoint += "?token=" + url.QueryEscape(c.token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("pdf renderer timeout: %w", err)
		}
		return nil, fmt.Errorf("pdf renderer request: %w", redact(err, c.token))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes+1))
	if err != nil {
		return nil, fmt.Errorf("pdf renderer read: %w", err)
	}
	if len(data) > maxPDFBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrInvalidPDF, maxPDFBytes)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// redact strips the API token from transport errors, which embed the request URL.
func redact(err error, token string) error {
	if token == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(token), "REDACTED")
	msg = strings.ReplaceAll(msg, token, "REDACTED")
	return errors.New(msg)
}
