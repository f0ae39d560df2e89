package views

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/a-h/templ"

	"github.com/folioblog/folio"
)

// writer accumulates the first error of a sequence of writes so component
// bodies read top to bottom.
type writer struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (w *writer) raw(parts ...string) {
	for _, s := range parts {
		if w.err != nil {
			return
		}
		_, w.err = io.WriteString(w.w, s)
	}
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) attr(name, val string) {
	w.raw(" ", name, `="`, templ.EscapeString(val), `"`)
}

func (w *writer) href(u string) {
	w.attr("href", string(templ.URL(u)))
}

func (w *writer) render(c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(w.ctx, w.w)
}

func component(fn func(w *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{ctx: ctx, w: out}
		fn(w)
		return w.err
	})
}

// PathEscape wraps url.PathEscape for use in templates.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// TagStyle returns the inline style of a tag badge, or "" for tags
// without configured colours.
func TagStyle(site folio.SiteConfig, tag string) string {
	s, ok := site.TagStyle(tag)
	if !ok {
		return ""
	}
	return "background:" + s.Background + ";color:" + s.Color
}

const wordsPerMinute = 200

// ReadingTime estimates the minutes needed to read a Markdown body.
func ReadingTime(content string) int {
	words := len(strings.FieldsFunc(content, func(r rune) bool {
		return unicode.IsSpace(r)
	}))
	m := (words + wordsPerMinute - 1) / wordsPerMinute
	if m < 1 {
		m = 1
	}
	return m
}

// CoverSizes is the sizes attribute used with cover srcsets.
const CoverSizes = "(max-width: 800px) 100vw, 800px"

// coverStyle paints the blurred placeholder behind a cover while the
// real image loads.
func coverStyle(c folio.Post) string {
	if c.CoverImage.Placeholder == "" {
		return ""
	}
	return "background-image:url(" + c.CoverImage.Placeholder + ")"
}

func itoa(n int) string { return strconv.Itoa(n) }
