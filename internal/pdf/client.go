package pdf

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

//go:embed templates/pdf.css
var darkCSS string

//go:embed templates/lightpdf.css
var lightCSS string

//go:embed templates/pdf.js
var exportJS string

// Client talks to the external HTML-to-PDF conversion API. The converter is
// a collaborator we only reach through this one POST; nothing about its
// schema leaks out of this package.
type Client struct {
	APIURL     string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		APIURL:     apiURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type conversionRequest struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// StylesheetFor maps the requested style to an embedded stylesheet. Unknown
// styles fall back to dark, matching what the editor UI ships by default.
func StylesheetFor(style string) string {
	switch style {
	case "light":
		return lightCSS
	case "dark":
		return darkCSS
	default:
		return darkCSS
	}
}

// WrapDocument wraps rendered editor HTML into the standalone page the
// converter expects.
func WrapDocument(innerHTML string) string {
	return `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">` +
		`<title>StudyBuddyDownload</title></head><body><div>` +
		innerHTML + `</div></body></html>`
}

// Convert sends the wrapped document off for conversion and returns the PDF
// body stream. The caller owns closing it.
func (c *Client) Convert(ctx context.Context, html, css string) (io.ReadCloser, error) {
	payload, err := json.Marshal(conversionRequest{
		HTML: html,
		CSS:  css,
		JS:   exportJS,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	log.Printf("[pdf] POST %s", c.APIURL)
	start := time.Now()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	log.Printf("[pdf] response status=%d duration=%dms",
		resp.StatusCode, time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("converter returned %d: %s", resp.StatusCode, body)
	}

	return resp.Body, nil
}
