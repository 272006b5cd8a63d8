package markdown

import (
	"bytes"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	converter = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy    = bluemonday.UGCPolicy()
)

// ToSafeHTML renders model output as HTML with scripts, event handlers and
// unsafe URLs removed. Input that fails to render is returned escaped.
func ToSafeHTML(md string) string {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(md), &buf); err != nil {
		return "<p>" + html.EscapeString(md) + "</p>"
	}
	return policy.Sanitize(buf.String())
}
