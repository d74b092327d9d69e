// Package renderer converts markdown source to HTML.
//
// Rendering is a pure function of the input bytes: no I/O, no state carried
// between calls. The configured goldmark pipeline supports GitHub Flavored
// Markdown, typographic replacements, auto heading IDs, and fenced-code
// syntax highlighting via chroma. Raw HTML passes through unchanged — the
// input is a local file the user chose to preview, not untrusted content.
package renderer

import (
	"bytes"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/conneroisu/mdlive/internal/errors"
)

// MarkdownRenderer renders markdown documents to HTML.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

// NewMarkdownRenderer creates a renderer with the standard pipeline.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Typographer,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
					highlighting.WithFormatOptions(
						chromahtml.WithClasses(true),
					),
				),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
			),
		),
	}
}

// Render converts markdown source to HTML. A failure is scoped to this one
// attempt; callers keep serving the previously rendered output.
func (r *MarkdownRenderer) Render(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return "", errors.NewRenderError("markdown conversion failed", err)
	}

	return buf.String(), nil
}
