// Package markdown renders post bodies to HTML and exposes them as templ
// components.
package markdown

import (
	"bytes"
	"context"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// CodeStyle is the chroma style fenced code blocks are highlighted with.
const CodeStyle = "dracula"

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Footnote,
		extension.Typographer,
		highlighting.NewHighlighting(
			highlighting.WithStyle(CodeStyle),
			highlighting.WithFormatOptions(chromahtml.TabWidth(4)),
		),
		Callouts,
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithXHTML(),
	),
)

// Render converts src to HTML. Raw HTML blocks in src are omitted.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Component returns a templ.Component that renders src as HTML.
func Component(src string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := md.Convert([]byte(src), &buf); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// PlainText strips the markup from an HTML fragment and collapses runs of
// whitespace into single spaces.
func PlainText(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}
	// Code blocks read badly in summaries.
	doc.Find("pre").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// Excerpt returns at most n runes of the plain text of fragment, cut on a
// word boundary and suffixed with an ellipsis when truncated.
func Excerpt(fragment string, n int) (string, error) {
	text, err := PlainText(fragment)
	if err != nil {
		return "", err
	}
	return Truncate(text, n), nil
}

// Truncate shortens s to at most n runes, preferring to cut at a space.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := n
	for i := n; i > n/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + "…"
}
