package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHeadings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"# Heading 1", `<h1 id="heading-1">Heading 1</h1>`},
		{"## Heading 2", `<h2 id="heading-2">Heading 2</h2>`},
		{"### Heading 3", `<h3 id="heading-3">Heading 3</h3>`},
	}
	for _, tt := range tests {
		got, err := Render(tt.input)
		require.NoError(t, err)
		assert.Contains(t, got, tt.expected)
	}
}

func TestRenderInline(t *testing.T) {
	got, err := Render("text **bold** and *italic* with `code`")
	require.NoError(t, err)
	assert.Contains(t, got, "<strong>bold</strong>")
	assert.Contains(t, got, "<em>italic</em>")
	assert.Contains(t, got, "<code>code</code>")
}

func TestRenderCodeBlockWithLanguage(t *testing.T) {
	got, err := Render("```go\nfunc main() {\n\tfmt.Println(\"hello\")\n}\n```")
	require.NoError(t, err)
	assert.Contains(t, got, "<pre")
	assert.Contains(t, got, "background-color:")
	// Keywords and strings get their own coloured spans.
	assert.Regexp(t, `<span style="color:#[0-9a-f]{6}[^"]*">func</span>`, got)
	assert.Regexp(t, `<span style="color:#[0-9a-f]{6}[^"]*">&#34;hello&#34;</span>`, got)
	assert.NotContains(t, got, `class="language-go"`)
}

func TestRenderCodeBlockWithoutLanguage(t *testing.T) {
	got, err := Render("```\nplain <text>\n```")
	require.NoError(t, err)
	assert.Contains(t, got, "<pre")
	assert.Contains(t, got, "plain &lt;text&gt;")
}

func TestRenderTable(t *testing.T) {
	got, err := Render("| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, got, "<table>")
	assert.Contains(t, got, "<th>a</th>")
	assert.Contains(t, got, "<td>2</td>")
}

func TestRenderOmitsRawHTML(t *testing.T) {
	got, err := Render("<script>alert(1)</script>\n\nhello")
	require.NoError(t, err)
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "hello")
}

func TestRenderDropsUnsafeLinks(t *testing.T) {
	got, err := Render("[x](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, got, "javascript:")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Component("hello *world*").Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "<p>hello <em>world</em></p>")
}

func TestPlainText(t *testing.T) {
	got, err := PlainText("<h1>Title</h1>\n<p>Some   <strong>bold</strong>\ntext.</p><pre><code>skip me</code></pre>")
	require.NoError(t, err)
	assert.Equal(t, "Title Some bold text.", got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "hello world", Truncate("hello world", 0))
	assert.Equal(t, "hello…", Truncate("hello world again", 8))

	long := strings.Repeat("word ", 100)
	got := Truncate(long, 180)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 181)
}

func TestExcerpt(t *testing.T) {
	html, err := Render("# Title\n\nFirst paragraph of the post, which goes on for a while.")
	require.NoError(t, err)
	got, err := Excerpt(html, 20)
	require.NoError(t, err)
	assert.Equal(t, "Title First…", got)
}

func TestRenderCallouts(t *testing.T) {
	got, err := Render("> [!NOTE]\n> Channels are **not** queues.")
	require.NoError(t, err)
	assert.Contains(t, got, `<aside class="callout callout-note" role="note">`)
	assert.Contains(t, got, "<p>Channels are <strong>not</strong> queues.</p>")
	assert.NotContains(t, got, "[!NOTE]")
	assert.NotContains(t, got, "<blockquote>")

	got, err = Render("> [!info] Inline text after the marker.")
	require.NoError(t, err)
	assert.Contains(t, got, `<aside class="callout callout-info" role="note">`)
	assert.Contains(t, got, "<p>Inline text after the marker.</p>")

	got, err = Render("> plain quote")
	require.NoError(t, err)
	assert.Contains(t, got, "<blockquote>")
	assert.NotContains(t, got, "callout")
}

func TestRenderRecallHidesAnswer(t *testing.T) {
	got, err := Render("> [!RECALL]\n> What does a nil map read return?\n>\n> The zero value.\n>\n> Writes panic.")
	require.NoError(t, err)
	assert.Contains(t, got, `<aside class="callout callout-recall" role="note">`)
	assert.Contains(t, got, `<p class="callout-title">Recall</p>`)

	question := strings.Index(got, "What does a nil map read return?")
	reveal := strings.Index(got, `<details class="callout-answer"><summary>Reveal</summary>`)
	answer := strings.Index(got, "<p>The zero value.</p>")
	closing := strings.Index(got, "</details>")
	require.True(t, question >= 0 && reveal >= 0 && answer >= 0 && closing >= 0, got)
	assert.Less(t, question, reveal)
	assert.Less(t, reveal, answer)
	assert.Less(t, strings.Index(got, "<p>Writes panic.</p>"), closing)
}
