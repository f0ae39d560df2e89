package folio

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/folioblog/folio/content"
	"github.com/folioblog/folio/covers"
)

// SyncReport summarises one content directory sync.
type SyncReport struct {
	Posts    int
	Drafts   int
	Pages    int
	Problems []error // files that were skipped
	Took     time.Duration
}

type coverMemo struct {
	modTime time.Time
	cover   covers.Cover
}

// SyncContent loads the content directory, processes local covers and
// replaces the file-sourced posts in the store.
func (a *App) SyncContent(ctx context.Context) (SyncReport, error) {
	start := time.Now()
	loader := content.Loader{Dir: a.Config.ContentDir, ExcerptLength: a.Config.ExcerptLength}
	entries, problems, err := loader.Load()
	if err != nil {
		return SyncReport{}, err
	}
	for _, p := range problems {
		a.Log.Warn("skipping content file", zap.Error(p))
	}

	posts := make([]Post, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, e := range entries {
		posts[i] = postFromEntry(e)
		if e.CoverPath == "" {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := a.processCover(e.Slug, e.CoverPath)
			if err != nil {
				// A broken cover should not hide the post.
				a.Log.Warn("cover processing failed", zap.String("slug", e.Slug), zap.Error(err))
				return nil
			}
			posts[i].CoverImage = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SyncReport{}, err
	}

	if err := a.Store.SyncFilePosts(posts); err != nil {
		return SyncReport{}, err
	}
	a.Cache.Invalidate()

	pages, pageProblems, err := a.loadPages()
	if err != nil {
		return SyncReport{}, err
	}
	problems = append(problems, pageProblems...)

	report := SyncReport{Pages: pages, Problems: problems, Took: time.Since(start)}
	for _, p := range posts {
		if p.Published {
			report.Posts++
		} else {
			report.Drafts++
		}
	}
	a.Log.Info("content synced",
		zap.Int("posts", report.Posts),
		zap.Int("drafts", report.Drafts),
		zap.Int("pages", report.Pages),
		zap.Int("skipped", len(report.Problems)),
		zap.Duration("took", report.Took))
	return report, nil
}

// reservedSlugs are first path segments owned by built-in routes.
var reservedSlugs = map[string]bool{
	"admin": true, "api": true, "articles": true, "blog": true, "covers": true,
	"newsletter": true, "public": true, "tags": true,
}

// loadPages replaces the standalone pages with the published files of the
// pages directory and returns how many were loaded.
func (a *App) loadPages() (int, []error, error) {
	loader := content.Loader{Dir: a.Config.PagesDir, ExcerptLength: a.Config.ExcerptLength}
	entries, problems, err := loader.Load()
	if err != nil {
		return 0, nil, err
	}
	pages := make(map[string]Page, len(entries))
	for _, e := range entries {
		if e.Slug == "" || reservedSlugs[e.Slug] {
			problems = append(problems, &content.FileError{Path: e.Path, Err: fmt.Errorf("page slug %q is not available", e.Slug)})
			continue
		}
		if e.Draft {
			continue
		}
		pages[e.Slug] = Page{Slug: e.Slug, Title: e.Title, Description: e.Excerpt, Content: e.Body}
	}
	for _, p := range problems {
		a.Log.Warn("skipping page file", zap.Error(p))
	}

	a.pagesMu.Lock()
	a.pages = pages
	a.pagesMu.Unlock()
	return len(pages), problems, nil
}

func postFromEntry(e content.Entry) Post {
	p := Post{
		Slug:        e.Slug,
		Title:       e.Title,
		Date:        e.Date,
		Tags:        e.Tags,
		Description: e.Excerpt,
		Content:     e.Body,
		Quick:       e.Quick,
		Published:   !e.Draft,
		Source:      SourceFile,
		Link:        "/blog/" + e.Slug + "/",
	}
	if e.CoverPath == "" {
		p.Cover = e.Cover
	}
	if p.Date == "" {
		if fi, err := os.Stat(e.Path); err == nil {
			p.Date = fi.ModTime().UTC().Format("2006-01-02")
		}
	}
	return p
}

// processCover renders cover variants, skipping files that have not
// changed since the last sync.
func (a *App) processCover(slug, path string) (covers.Cover, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return covers.Cover{}, err
	}
	key := slug + "\x00" + path

	a.coverMu.Lock()
	m, ok := a.coverMemo[key]
	a.coverMu.Unlock()
	if ok && m.modTime.Equal(fi.ModTime()) {
		return m.cover, nil
	}

	c, err := a.Covers.Process(slug, path)
	if err != nil {
		return covers.Cover{}, err
	}
	a.coverMu.Lock()
	a.coverMemo[key] = coverMemo{modTime: fi.ModTime(), cover: c}
	a.coverMu.Unlock()
	return c, nil
}
