package markdown

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Two renderer policies: the safe one escapes raw HTML and runs the output
// through a UGC sanitizer (anything user-facing, including the live preview),
// the unsafe one keeps inline HTML for trusted authors exporting their own
// documents.
var (
	safe = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)

	unsafe = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	policy = bluemonday.UGCPolicy()
)

// Render converts GFM markdown to sanitized HTML.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := safe.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return policy.Sanitize(buf.String()), nil
}

// RenderTrusted converts GFM markdown to HTML, preserving raw inline HTML.
// Only for content authored by the requesting user themselves.
func RenderTrusted(src string) (string, error) {
	var buf bytes.Buffer
	if err := unsafe.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
