// Package preview renders a finished post as a standalone HTML page for
// local proofreading.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

const page = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
<h1>%s</h1>
%s
</body>
</html>`

// Renderer converts Markdown to an HTML page.
type Renderer struct {
	md    goldmark.Markdown
	style string
}

// New returns a Renderer that inlines style into every page.
func New(style string) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(chromahtml.WithLineNumbers(false)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(
			gmhtml.WithXHTML(),
			// Console outputs are raw HTML produced by the post's own code.
			gmhtml.WithUnsafe(),
		),
	)
	return &Renderer{md: md, style: style}
}

// Render converts body, a post without its front matter, into a page
// titled title. Goldmark has no context support, so cancellation is
// observed around the conversion.
func (r *Renderer) Render(ctx context.Context, title, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(body), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		escaped := html.EscapeString(title)
		done <- result{html: injectCSS(fmt.Sprintf(page, escaped, escaped, buf.String()), r.style)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.html, res.err
	}
}

// injectCSS inserts a <style> block before </head>.
func injectCSS(doc, css string) string {
	if css == "" {
		return doc
	}
	block := "<style>" + strings.ReplaceAll(css, "</", `<\/`) + "</style>"
	if idx := strings.Index(doc, "</head>"); idx != -1 {
		return doc[:idx] + block + doc[idx:]
	}
	return block + doc
}
