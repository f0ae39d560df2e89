package markdown

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Callout variants. A blockquote whose first line is a marker such as
// "[!NOTE]" becomes a callout:
//
//	> [!NOTE]
//	> Channels are not queues.
//
// A recall callout keeps its first paragraph as the question and hides the
// rest behind a reveal button.
const (
	CalloutNote   = "note"
	CalloutInfo   = "info"
	CalloutRecall = "recall"
)

var calloutMarker = regexp.MustCompile(`^\[!(?i:(note|info|recall))\][ \t]*`)

// KindCallout is the node kind of a Callout.
var KindCallout = ast.NewNodeKind("Callout")

// KindReveal is the node kind of a Reveal.
var KindReveal = ast.NewNodeKind("Reveal")

// Callout is a highlighted aside built from a marked blockquote.
type Callout struct {
	ast.BaseBlock
	Variant string
}

// Kind implements ast.Node.
func (n *Callout) Kind() ast.NodeKind { return KindCallout }

// Dump implements ast.Node.
func (n *Callout) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Variant": n.Variant}, nil)
}

// Reveal holds the answer of a recall callout.
type Reveal struct {
	ast.BaseBlock
}

// Kind implements ast.Node.
func (n *Reveal) Kind() ast.NodeKind { return KindReveal }

// Dump implements ast.Node.
func (n *Reveal) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type calloutTransformer struct{}

func (calloutTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	var quotes []*ast.Blockquote
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if bq, ok := n.(*ast.Blockquote); ok && entering {
			quotes = append(quotes, bq)
		}
		return ast.WalkContinue, nil
	})
	for _, bq := range quotes {
		convertCallout(bq, source)
	}
}

func convertCallout(bq *ast.Blockquote, source []byte) {
	para, ok := bq.FirstChild().(*ast.Paragraph)
	if !ok || para.Lines().Len() == 0 {
		return
	}
	first := para.Lines().At(0)
	loc := calloutMarker.FindSubmatchIndex(first.Value(source))
	if loc == nil {
		return
	}
	variant := string(bytes.ToLower(first.Value(source)[loc[2]:loc[3]]))
	stripMarker(para, first.Start+loc[1])
	if para.ChildCount() == 0 {
		bq.RemoveChild(bq, para)
	}

	c := &Callout{Variant: variant}
	var answer *Reveal
	for child := bq.FirstChild(); child != nil; {
		next := child.NextSibling()
		bq.RemoveChild(bq, child)
		if variant == CalloutRecall && c.ChildCount() > 0 {
			if answer == nil {
				answer = &Reveal{}
			}
			answer.AppendChild(answer, child)
		} else {
			c.AppendChild(c, child)
		}
		child = next
	}
	if answer != nil {
		c.AppendChild(c, answer)
	}
	bq.Parent().ReplaceChild(bq.Parent(), bq, c)
}

// stripMarker drops the leading inline text that lies before end in the
// source.
func stripMarker(para *ast.Paragraph, end int) {
	for child := para.FirstChild(); child != nil; {
		t, ok := child.(*ast.Text)
		if !ok {
			return
		}
		next := child.NextSibling()
		switch {
		case t.Segment.Stop <= end:
			para.RemoveChild(para, child)
		case t.Segment.Start < end:
			t.Segment = t.Segment.WithStart(end)
			return
		default:
			return
		}
		child = next
	}
}

var calloutHeadings = map[string]string{
	CalloutRecall: `<p class="callout-title">Recall</p><p class="callout-lead">Try to answer the question below before revealing the answer.</p>`,
}

type calloutRenderer struct{}

func (r calloutRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindCallout, r.renderCallout)
	reg.Register(KindReveal, r.renderReveal)
}

func (calloutRenderer) renderCallout(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</aside>\n")
		return ast.WalkContinue, nil
	}
	c := n.(*Callout)
	_, _ = w.WriteString(`<aside class="callout callout-` + c.Variant + `" role="note">`)
	_, _ = w.WriteString(calloutHeadings[c.Variant])
	_ = w.WriteByte('\n')
	return ast.WalkContinue, nil
}

func (calloutRenderer) renderReveal(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("<details class=\"callout-answer\"><summary>Reveal</summary>\n")
	} else {
		_, _ = w.WriteString("</details>\n")
	}
	return ast.WalkContinue, nil
}

type calloutExtension struct{}

// Callouts turns marked blockquotes into note, info and recall asides.
var Callouts goldmark.Extender = calloutExtension{}

func (calloutExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(calloutTransformer{}, 500),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(calloutRenderer{}, 500),
	))
}
