package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	title string
	tags  []string
}

func (d doc) SearchTitle() string  { return d.title }
func (d doc) SearchTags() []string { return d.tags }

var corpus = []doc{
	{title: "Intro to Hooks", tags: []string{"react", "javascript"}},
	{title: "Vue Basics", tags: []string{"vue"}},
	{title: "Debugging Node in VS Code", tags: []string{"vscode", "tooling"}},
	{title: "Testing Vue components", tags: []string{"vue", "test"}},
	{title: "Untagged thoughts"},
}

func titles(ds []doc) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.title
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{}},
		{"react", []string{"react"}},
		{"React, Vue", []string{"react", "vue"}},
		{"  tools ,, javascript  ", []string{"tools", "javascript"}},
		{", ,", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.query))
		})
	}
}

func TestFilterExamples(t *testing.T) {
	posts := corpus[:2]

	got := Filter(posts, "vue")
	require.Len(t, got, 1)
	assert.Equal(t, "Vue Basics", got[0].title)

	got = Filter(posts, "")
	assert.Equal(t, posts, got)
}

func TestFilterEmptyQueryIsIdentity(t *testing.T) {
	for _, q := range []string{"", " ", ",", " , ,  "} {
		assert.Equal(t, corpus, Filter(corpus, q), "query %q", q)
	}
}

func TestFilterNoMatch(t *testing.T) {
	assert.Empty(t, Filter(corpus, "haskell"))
	assert.Empty(t, Filter([]doc{}, "vue"))
}

func TestFilterSeparatorsAreEquivalent(t *testing.T) {
	a := Filter(corpus, "react, vue")
	b := Filter(corpus, "react vue")
	c := Filter(corpus, "react,vue")
	assert.Equal(t, titles(a), titles(b))
	assert.Equal(t, titles(a), titles(c))
	assert.Equal(t, []string{"Intro to Hooks", "Vue Basics", "Testing Vue components"}, titles(a))
}

func TestFilterCaseInsensitive(t *testing.T) {
	assert.Equal(t, titles(Filter(corpus, "react")), titles(Filter(corpus, "REACT")))
	assert.Equal(t, titles(Filter(corpus, "vue basics")), titles(Filter(corpus, "VUE Basics")))

	upperTags := []doc{{title: "x", tags: []string{"JavaScript"}}}
	assert.Len(t, Filter(upperTags, "script"), 1)
}

func TestFilterPreservesOrder(t *testing.T) {
	got := Filter(corpus, "vue")
	assert.Equal(t, []string{"Vue Basics", "Testing Vue components"}, titles(got))
}

func TestTitleMatchUsesWholeQuery(t *testing.T) {
	// "intro hooks" is not a substring of any title and no tag contains
	// either token.
	assert.Empty(t, Filter(corpus, "intro hooks"))
	// "intro to" hits the title; the "to" token also hits the "tooling" tag.
	assert.Equal(t,
		[]string{"Intro to Hooks", "Debugging Node in VS Code"},
		titles(Filter(corpus, "intro to")))
}

func TestTagSubstringMatch(t *testing.T) {
	// "tool" is a substring of the "tooling" tag.
	assert.Equal(t, []string{"Debugging Node in VS Code"}, titles(Filter(corpus, "tool")))
}

func TestUntaggedPostMatchesOnlyByTitle(t *testing.T) {
	assert.Equal(t, []string{"Untagged thoughts"}, titles(Filter(corpus, "thoughts")))
	assert.False(t, Matches(doc{}, "anything"))
	assert.True(t, Matches(doc{}, ""))
}

func TestParse(t *testing.T) {
	q := Parse("Go, Web")
	assert.False(t, q.Empty())
	assert.Equal(t, []string{"go", "web"}, q.Tokens())
	assert.True(t, Query{}.Empty())
}
