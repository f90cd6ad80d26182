// Package markdown renders post bodies to sanitized HTML.
package markdown

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	renderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// Render converts Markdown to HTML and sanitizes the result. Rendering
// failures fall back to the sanitized raw text rather than surfacing an
// error: a post body must always display.
func Render(source string) string {
	if source == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := renderer.Convert([]byte(source), &buf); err != nil {
		return sanitizer.Sanitize(source)
	}
	return sanitizer.Sanitize(buf.String())
}
