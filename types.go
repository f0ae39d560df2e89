package folio

import "github.com/folioblog/folio/covers"

// Post sources. File posts are owned by the content directory and replaced
// on every sync; admin posts are authored in the dashboard.
const (
	SourceFile  = "file"
	SourceAdmin = "admin"
)

// Post is the core content type stored in SQLite and rendered by views.
type Post struct {
	Slug        string
	Title       string
	Date        string // 2006-01-02
	Tags        []string
	Description string
	Content     string // Markdown
	Cover       string // URL of a cover that is not processed locally
	CoverImage  covers.Cover
	Quick       bool // short post, shown with a "Quick read" badge
	Published   bool
	Source      string
	Link        string
}

// SearchTitle implements search.Document.
func (p Post) SearchTitle() string { return p.Title }

// SearchTags implements search.Document.
func (p Post) SearchTags() []string { return p.Tags }

// HasCover reports whether the post has any cover image.
func (p Post) HasCover() bool {
	return p.Cover != "" || len(p.CoverImage.Variants) > 0
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // absolute og:image URL
	JSONLD      string
}

// Image is an uploaded image stored under the static uploads directory.
type Image struct {
	Filename     string `db:"filename"`
	OriginalName string `db:"original_name"`
	Width        int    `db:"width"`
	Height       int    `db:"height"`
	Size         int    `db:"size"`
	UploadedAt   string `db:"uploaded_at"`
}

// Page is a standalone Markdown page such as About, served at "/<slug>/".
type Page struct {
	Slug        string
	Title       string
	Description string
	Content     string // Markdown
}
