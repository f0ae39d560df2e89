package folio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/folioblog/folio/covers"
)

// Store wraps a SQLite database and provides CRUD operations for posts and
// uploaded images.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during writes; the busy timeout makes writers
	// wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    date TEXT NOT NULL,
    tags TEXT NOT NULL,
    content TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);
`)
	if err != nil {
		return err
	}
	// Columns added after the first release.
	for _, col := range []string{
		`description TEXT NOT NULL DEFAULT ''`,
		`cover TEXT NOT NULL DEFAULT ''`,
		`cover_meta TEXT NOT NULL DEFAULT ''`,
		`quick INTEGER NOT NULL DEFAULT 0`,
		`source TEXT NOT NULL DEFAULT 'admin'`,
	} {
		if _, err := s.db.Exec(`ALTER TABLE posts ADD COLUMN ` + col); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
				continue
			}
			return err
		}
	}
	return nil
}

type postRow struct {
	Slug        string `db:"slug"`
	Title       string `db:"title"`
	Date        string `db:"date"`
	Tags        string `db:"tags"`
	Description string `db:"description"`
	Content     string `db:"content"`
	Cover       string `db:"cover"`
	CoverMeta   string `db:"cover_meta"`
	Quick       bool   `db:"quick"`
	Published   bool   `db:"published"`
	Source      string `db:"source"`
}

const postColumns = `slug, title, date, tags, description, content, cover, cover_meta, quick, published, source`

func (r postRow) post() Post {
	p := Post{
		Slug:        r.Slug,
		Title:       r.Title,
		Date:        r.Date,
		Tags:        ParseTags(r.Tags),
		Description: r.Description,
		Content:     r.Content,
		Cover:       r.Cover,
		Quick:       r.Quick,
		Published:   r.Published,
		Source:      r.Source,
		Link:        "/blog/" + r.Slug + "/",
	}
	if r.CoverMeta != "" {
		var c covers.Cover
		if json.Unmarshal([]byte(r.CoverMeta), &c) == nil {
			p.CoverImage = c
		}
	}
	return p
}

func rowFromPost(p Post) (postRow, error) {
	r := postRow{
		Slug:        p.Slug,
		Title:       p.Title,
		Date:        p.Date,
		Tags:        formatTags(p.Tags),
		Description: p.Description,
		Content:     p.Content,
		Cover:       p.Cover,
		Quick:       p.Quick,
		Published:   p.Published,
		Source:      p.Source,
	}
	if r.Source == "" {
		r.Source = SourceAdmin
	}
	if len(p.CoverImage.Variants) > 0 {
		b, err := json.Marshal(p.CoverImage)
		if err != nil {
			return r, err
		}
		r.CoverMeta = string(b)
	}
	return r, nil
}

func rowsToPosts(rows []postRow) []Post {
	posts := make([]Post, len(rows))
	for i, r := range rows {
		posts[i] = r.post()
	}
	return posts
}

// ListPosts returns all published posts ordered by date descending.
// If tag is non-empty, results are filtered to posts containing that tag.
func (s *Store) ListPosts(tag string) ([]Post, error) {
	var rows []postRow
	var err error
	if tag == "" {
		err = s.db.Select(&rows, `SELECT `+postColumns+` FROM posts WHERE published = 1 ORDER BY date DESC, slug`)
	} else {
		err = s.db.Select(&rows, `SELECT `+postColumns+` FROM posts WHERE published = 1 AND instr(tags, ',' || ? || ',') > 0 ORDER BY date DESC, slug`,
			normalizeTag(tag))
	}
	if err != nil {
		return nil, err
	}
	return rowsToPosts(rows), nil
}

// ListTags returns a sorted, deduplicated slice of all tags from published posts.
func (s *Store) ListTags() ([]string, error) {
	var all []string
	if err := s.db.Select(&all, `SELECT tags FROM posts WHERE published = 1`); err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, tags := range all {
		for _, t := range ParseTags(tags) {
			set[t] = struct{}{}
		}
	}
	result := make([]string, 0, len(set))
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

// GetPost returns a single published post by slug.
func (s *Store) GetPost(slug string) (Post, error) {
	var r postRow
	if err := s.db.Get(&r, `SELECT `+postColumns+` FROM posts WHERE slug = ? AND published = 1`, slug); err != nil {
		return Post{}, err
	}
	return r.post(), nil
}

// GetPostAny returns a post by slug regardless of published status (for admin).
func (s *Store) GetPostAny(slug string) (Post, error) {
	var r postRow
	if err := s.db.Get(&r, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug); err != nil {
		return Post{}, err
	}
	return r.post(), nil
}

// ListAllPosts returns every post (published and drafts) ordered by date descending.
func (s *Store) ListAllPosts() ([]Post, error) {
	var rows []postRow
	if err := s.db.Select(&rows, `SELECT `+postColumns+` FROM posts ORDER BY date DESC, slug`); err != nil {
		return nil, err
	}
	return rowsToPosts(rows), nil
}

const upsertPost = `INSERT OR REPLACE INTO posts (` + postColumns + `)
VALUES (:slug, :title, :date, :tags, :description, :content, :cover, :cover_meta, :quick, :published, :source)`

// SavePost upserts a post. Tags are normalized to lowercase.
func (s *Store) SavePost(p Post) error {
	r, err := rowFromPost(p)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExec(upsertPost, r)
	return err
}

// DeletePost removes a post by slug.
func (s *Store) DeletePost(slug string) error {
	_, err := s.db.Exec(`DELETE FROM posts WHERE slug = ?`, slug)
	return err
}

// SyncFilePosts replaces every file-sourced post with posts in a single
// transaction. A file post takes over an admin post with the same slug.
func (s *Store) SyncFilePosts(posts []Post) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM posts WHERE source = ?`, SourceFile); err != nil {
		return fmt.Errorf("clear file posts: %w", err)
	}
	for _, p := range posts {
		p.Source = SourceFile
		r, err := rowFromPost(p)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExec(upsertPost, r); err != nil {
			return fmt.Errorf("insert %s: %w", p.Slug, err)
		}
	}
	return tx.Commit()
}

// SaveImage records metadata for an uploaded image.
func (s *Store) SaveImage(img Image) error {
	_, err := s.db.NamedExec(`INSERT OR REPLACE INTO images (filename, original_name, width, height, size, uploaded_at)
VALUES (:filename, :original_name, :width, :height, :size, :uploaded_at)`, img)
	return err
}

// ListImages returns uploaded images, newest first.
func (s *Store) ListImages() ([]Image, error) {
	var images []Image
	err := s.db.Select(&images, `SELECT filename, original_name, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC, filename`)
	return images, err
}

// ImageExists reports whether an image with filename is recorded.
func (s *Store) ImageExists(filename string) (bool, error) {
	var n int
	err := s.db.Get(&n, `SELECT COUNT(*) FROM images WHERE filename = ?`, filename)
	return n > 0, err
}

// DeleteImage removes an image's metadata.
func (s *Store) DeleteImage(filename string) error {
	_, err := s.db.Exec(`DELETE FROM images WHERE filename = ?`, filename)
	return err
}

// ParseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// formatTags stores tags delimited on both ends so a single tag can be
// matched with instr(tags, ',tag,').
func formatTags(tags []string) string {
	normalized := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = normalizeTag(t); t != "" {
			normalized = append(normalized, t)
		}
	}
	if len(normalized) == 0 {
		return ""
	}
	return "," + strings.Join(normalized, ",") + ","
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
