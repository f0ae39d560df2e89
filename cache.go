package folio

import (
	"database/sql"
	"sync"
	"time"

	"github.com/folioblog/folio/search"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = sql.ErrNoRows

// snapshot is one immutable load of the published posts with lookup
// indexes. Readers share it without copying.
type snapshot struct {
	posts   []Post // newest first
	tags    []string
	bySlug  map[string]int
	byTag   map[string][]Post
	fetched time.Time
}

func newSnapshot(posts []Post, tags []string) *snapshot {
	s := &snapshot{
		posts:   posts,
		tags:    tags,
		bySlug:  make(map[string]int, len(posts)),
		byTag:   make(map[string][]Post),
		fetched: time.Now(),
	}
	if s.posts == nil {
		s.posts = []Post{}
	}
	for i, p := range s.posts {
		s.bySlug[p.Slug] = i
		seen := make(map[string]bool, len(p.Tags))
		for _, t := range p.Tags {
			t = normalizeTag(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			s.byTag[t] = append(s.byTag[t], p)
		}
	}
	return s
}

// PostCache keeps the published posts in memory for ttl, or until
// Invalidate is called after a write.
type PostCache struct {
	store *Store
	ttl   time.Duration

	mu   sync.RWMutex
	snap *snapshot
	// loadMu serializes reloads so a burst of requests after expiry
	// queries the store once.
	loadMu sync.Mutex
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

func (c *PostCache) current() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil || time.Since(c.snap.fetched) >= c.ttl {
		return nil
	}
	return c.snap
}

// Invalidate drops the cached posts so the next read reloads them.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

func (c *PostCache) get() (*snapshot, error) {
	if s := c.current(); s != nil {
		return s, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if s := c.current(); s != nil {
		return s, nil
	}

	posts, err := c.store.ListPosts("")
	if err != nil {
		return nil, err
	}
	tags, err := c.store.ListTags()
	if err != nil {
		return nil, err
	}
	s := newSnapshot(posts, tags)

	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
	return s, nil
}

// ListPosts returns published posts, optionally only those tagged tag.
func (c *PostCache) ListPosts(tag string) ([]Post, error) {
	s, err := c.get()
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return s.posts, nil
	}
	return s.byTag[normalizeTag(tag)], nil
}

// ListTags returns all unique tags from published posts.
func (c *PostCache) ListTags() ([]string, error) {
	s, err := c.get()
	if err != nil {
		return nil, err
	}
	return s.tags, nil
}

// GetPost returns a single published post by slug.
func (c *PostCache) GetPost(slug string) (Post, error) {
	s, err := c.get()
	if err != nil {
		return Post{}, err
	}
	i, ok := s.bySlug[slug]
	if !ok {
		return Post{}, ErrNotFound
	}
	return s.posts[i], nil
}

// Search returns the published posts whose title or tags match query, in
// the cached order. An empty query returns every post.
func (c *PostCache) Search(query string) ([]Post, error) {
	s, err := c.get()
	if err != nil {
		return nil, err
	}
	return search.Filter(s.posts, query), nil
}
