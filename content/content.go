// Package content loads blog posts from Markdown files with YAML
// frontmatter and watches the content tree for changes.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/folioblog/folio/markdown"
)

// ErrNoTitle is returned for a content file whose frontmatter has no title.
var ErrNoTitle = errors.New("content: missing title")

// DefaultExcerptLength matches the summary length shown on post cards.
const DefaultExcerptLength = 180

// Frontmatter is the metadata block at the top of a content file.
type Frontmatter struct {
	Title       string   `yaml:"title"`
	Date        string   `yaml:"date"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Cover       string   `yaml:"cover"`
	Quick       bool     `yaml:"quick"`
	Draft       bool     `yaml:"draft"`
}

// Entry is one post read from disk.
type Entry struct {
	Frontmatter
	Slug    string
	Path    string // source file
	Excerpt string // description, or the start of the body
	Body    string // Markdown without frontmatter
	// CoverPath is the cover image resolved against the file's directory.
	CoverPath string
}

// SearchTitle implements search.Document.
func (e Entry) SearchTitle() string { return e.Title }

// SearchTags implements search.Document.
func (e Entry) SearchTags() []string { return e.Tags }

// Loader reads every Markdown file below Dir.
type Loader struct {
	Dir           string
	ExcerptLength int
}

// FileError reports a content file that could not be loaded.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }

// Load returns all entries ordered by date, newest first. Files that fail
// to parse are skipped and reported in the returned error slice; the
// remaining entries are still returned.
func (l Loader) Load() ([]Entry, []error, error) {
	if _, err := os.Stat(l.Dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var entries []Entry
	var problems []error
	seen := make(map[string]string)

	err := filepath.WalkDir(l.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		e, err := l.LoadFile(path)
		if err != nil {
			problems = append(problems, &FileError{Path: path, Err: err})
			return nil
		}
		if prev, dup := seen[e.Slug]; dup {
			problems = append(problems, &FileError{Path: path, Err: fmt.Errorf("duplicate slug %q (also %s)", e.Slug, prev)})
			return nil
		}
		seen[e.Slug] = path
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, problems, fmt.Errorf("walk %s: %w", l.Dir, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return entries[i].Slug < entries[j].Slug
	})
	return entries, problems, nil
}

// LoadFile parses a single content file.
func (l Loader) LoadFile(path string) (Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	fm, body, err := Split(raw)
	if err != nil {
		return Entry{}, err
	}
	if strings.TrimSpace(fm.Title) == "" {
		return Entry{}, ErrNoTitle
	}
	date, err := NormalizeDate(fm.Date)
	if err != nil {
		return Entry{}, err
	}
	fm.Date = date
	fm.Tags = normalizeTags(fm.Tags)

	e := Entry{
		Frontmatter: fm,
		Slug:        SlugFromPath(l.Dir, path),
		Path:        path,
		Body:        string(body),
		Excerpt:     strings.TrimSpace(fm.Description),
	}
	if fm.Cover != "" && !isRemote(fm.Cover) {
		e.CoverPath = filepath.Join(filepath.Dir(path), filepath.FromSlash(fm.Cover))
	}
	if e.Excerpt == "" {
		n := l.ExcerptLength
		if n == 0 {
			n = DefaultExcerptLength
		}
		html, err := markdown.Render(e.Body)
		if err != nil {
			return Entry{}, fmt.Errorf("render: %w", err)
		}
		if e.Excerpt, err = markdown.Excerpt(html, n); err != nil {
			return Entry{}, fmt.Errorf("excerpt: %w", err)
		}
	}
	return e, nil
}

var delim = []byte("---")

// Split separates a leading `---` YAML frontmatter block from the body.
// Content without frontmatter yields a zero Frontmatter.
func Split(raw []byte) (Frontmatter, []byte, error) {
	var fm Frontmatter
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(raw, delim) {
		return fm, raw, nil
	}
	rest := raw[len(delim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return fm, raw, nil
	}
	rest = rest[nl+1:]

	var head []byte
	for {
		nl = bytes.IndexByte(rest, '\n')
		var line []byte
		if nl < 0 {
			line = rest
		} else {
			line = rest[:nl]
		}
		if bytes.Equal(bytes.TrimRight(line, " \t\r"), delim) {
			if nl < 0 {
				rest = nil
			} else {
				rest = rest[nl+1:]
			}
			break
		}
		if nl < 0 {
			return fm, nil, errors.New("content: unterminated frontmatter")
		}
		head = append(head, rest[:nl+1]...)
		rest = rest[nl+1:]
	}

	if err := yaml.Unmarshal(head, &fm); err != nil {
		return fm, nil, fmt.Errorf("frontmatter: %w", err)
	}
	return fm, rest, nil
}

// NormalizeDate accepts YYYY-MM-DD or RFC 3339 and returns YYYY-MM-DD.
// An empty date is returned unchanged.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("content: invalid date %q", s)
}

// SlugFromPath derives a post slug from its location below root:
// "blog/hello-world/index.md" and "blog/hello-world.md" both give
// "hello-world".
func SlugFromPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	if base := filepath.Base(rel); strings.EqualFold(base, "index") {
		rel = filepath.ToSlash(filepath.Dir(rel))
	}
	return Slugify(filepath.Base(rel))
}

// Slugify converts s to a lower-case, hyphen-separated slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "/")
}
