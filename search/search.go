// Package search implements the free-text post filter used by the articles
// page, the JSON search endpoint and the CLI.
//
// A query is lower-cased and split into tokens on runs of spaces or commas.
// A document matches when the query has no tokens, when its title contains
// the whole raw query, or when any of its tags contains any token.
package search

import (
	"regexp"
	"strings"
)

// Document is anything the filter can match against.
type Document interface {
	SearchTitle() string
	SearchTags() []string
}

var separators = regexp.MustCompile(`[ ,]+`)

// Tokenize lower-cases query and splits it on runs of spaces and commas,
// dropping empty tokens.
func Tokenize(query string) []string {
	parts := separators.Split(strings.ToLower(query), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// Query is a parsed search string. The zero value matches everything.
type Query struct {
	raw    string
	tokens []string
}

// Parse prepares q for repeated matching.
func Parse(q string) Query {
	return Query{raw: strings.ToLower(q), tokens: Tokenize(q)}
}

// Empty reports whether the query has no tokens and therefore matches all
// documents.
func (q Query) Empty() bool {
	return len(q.tokens) == 0
}

// Tokens returns the query tokens.
func (q Query) Tokens() []string {
	return q.tokens
}

// Match reports whether doc is selected by q.
func (q Query) Match(doc Document) bool {
	if q.Empty() {
		return true
	}
	if strings.Contains(strings.ToLower(doc.SearchTitle()), q.raw) {
		return true
	}
	for _, tag := range doc.SearchTags() {
		tag = strings.ToLower(tag)
		for _, tok := range q.tokens {
			if strings.Contains(tag, tok) {
				return true
			}
		}
	}
	return false
}

// Matches is shorthand for Parse(query).Match(doc).
func Matches(doc Document, query string) bool {
	return Parse(query).Match(doc)
}

// Filter returns the documents of docs matched by query, in input order.
// An empty query returns docs itself.
func Filter[T Document](docs []T, query string) []T {
	q := Parse(query)
	if q.Empty() {
		return docs
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		if q.Match(d) {
			out = append(out, d)
		}
	}
	return out
}
