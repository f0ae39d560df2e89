// Package build exports a folio site to a directory of static files that
// any file server or CDN can host.
package build

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/dustin/go-humanize"
	"github.com/tdewolff/minify"
	"github.com/tdewolff/minify/css"
	"github.com/tdewolff/minify/html"
	"github.com/tdewolff/minify/js"
	"github.com/tdewolff/minify/xml"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/folioblog/folio"
)

// NotFoundPath is requested to render the 404 page.
const NotFoundPath = "/404-not-found/"

// Options controls an export.
type Options struct {
	OutDir     string
	NoCompress bool // skip the .br copies
	NoMinify   bool
	Workers    int // concurrent page renders; 0 means GOMAXPROCS
}

// Report summarizes a finished export.
type Report struct {
	Pages      int
	Assets     int
	Compressed int
	Bytes      int64
	Took       time.Duration
}

// Exporter renders an initialized App to static files.
type Exporter struct {
	app  *folio.App
	opts Options
	min  *minify.M
	log  *zap.Logger

	bytes atomic.Int64
}

// New returns an Exporter for app. The app must have been initialized and
// its content synced. Pages rendered from then on are marked static so
// their search runs in the browser.
func New(app *folio.App, opts Options) *Exporter {
	if opts.OutDir == "" {
		opts.OutDir = "dist"
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	app.Config.Static = true
	return &Exporter{
		app:  app,
		opts: opts,
		min:  newMinifier(),
		log:  app.Log.Named("build"),
	}
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add("text/html", &html.Minifier{KeepDocumentTags: true})
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`[/+]xml$`), xml.Minify)
	return m
}

// Routes lists every public page of the site: home, articles, one per
// post, one per tag, one per standalone page, then the search index, feed,
// sitemap and robots.txt.
func (e *Exporter) Routes() ([]string, error) {
	posts, err := e.app.Cache.ListPosts("")
	if err != nil {
		return nil, err
	}
	tags, err := e.app.Cache.ListTags()
	if err != nil {
		return nil, err
	}

	pages := e.app.Pages()

	routes := make([]string, 0, len(posts)+len(tags)+len(pages)+6)
	routes = append(routes, "/", "/articles/")
	for _, p := range posts {
		routes = append(routes, "/blog/"+url.PathEscape(p.Slug)+"/")
	}
	for _, t := range tags {
		routes = append(routes, folio.TagURL(t))
	}
	for _, p := range pages {
		routes = append(routes, "/"+url.PathEscape(p.Slug)+"/")
	}
	routes = append(routes, "/search.json", "/feed.xml", "/sitemap.xml", "/robots.txt")
	return routes, nil
}

// Export writes the site into OutDir.
func (e *Exporter) Export(ctx context.Context) (Report, error) {
	start := time.Now()
	var r Report

	out := e.opts.OutDir
	if err := os.MkdirAll(out, 0o755); err != nil {
		return r, fmt.Errorf("build: create output dir: %w", err)
	}

	routes, err := e.Routes()
	if err != nil {
		return r, fmt.Errorf("build: list routes: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, route := range routes {
		g.Go(func() error {
			return e.exportPage(gctx, route, http.StatusOK)
		})
	}
	g.Go(func() error {
		return e.exportPage(gctx, NotFoundPath, http.StatusNotFound)
	})
	if err := g.Wait(); err != nil {
		return r, err
	}
	r.Pages = len(routes) + 1

	n, err := e.copyAssets(out)
	if err != nil {
		return r, err
	}
	r.Assets = n

	if !e.opts.NoCompress {
		n, err := e.compressTree(ctx, out)
		if err != nil {
			return r, err
		}
		r.Compressed = n
	}

	r.Bytes = e.bytes.Load()
	r.Took = time.Since(start)
	e.log.Info("export finished",
		zap.String("out", out),
		zap.Int("pages", r.Pages),
		zap.Int("assets", r.Assets),
		zap.Int("compressed", r.Compressed),
		zap.String("size", humanize.Bytes(uint64(r.Bytes))),
		zap.Duration("took", r.Took),
	)
	return r, nil
}

// render serves route through the App's router without a network hop.
func (e *Exporter) render(ctx context.Context, route string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodGet, route, nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	e.app.Echo.ServeHTTP(rec, req)
	return rec, ctx.Err()
}

func (e *Exporter) exportPage(ctx context.Context, route string, want int) error {
	rec, err := e.render(ctx, route)
	if err != nil {
		return err
	}
	if rec.Code != want {
		return fmt.Errorf("build: GET %s: status %d, want %d", route, rec.Code, want)
	}

	body := rec.Body.Bytes()
	mediatype, _, _ := mime.ParseMediaType(rec.Header().Get("Content-Type"))
	if !e.opts.NoMinify && mediatype != "" {
		if b, err := e.min.Bytes(mediatype, body); err == nil {
			body = b
		} else if err != minify.ErrNotExist {
			e.log.Warn("minify failed, keeping original", zap.String("route", route), zap.Error(err))
		}
	}

	name := outputPath(route)
	if want == http.StatusNotFound {
		name = "404.html"
	}
	return e.writeFile(filepath.Join(e.opts.OutDir, name), body)
}

// outputPath maps a route to its file inside the output tree. Directory
// routes get an index.html.
func outputPath(route string) string {
	p, err := url.PathUnescape(route)
	if err != nil {
		p = route
	}
	if strings.HasSuffix(p, "/") {
		p = path.Join(p, "index.html")
	}
	return filepath.FromSlash(strings.TrimPrefix(path.Clean(p), "/"))
}

func (e *Exporter) writeFile(name string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(name, b, 0o644); err != nil {
		return err
	}
	e.bytes.Add(int64(len(b)))
	return nil
}

// copyAssets copies the framework assets, the user's static directory and
// the processed covers.
func (e *Exporter) copyAssets(out string) (int, error) {
	public := filepath.Join(out, "public")
	n := 0

	embedded, err := fs.Sub(folio.EmbeddedAssets, "embedded")
	if err != nil {
		return n, err
	}
	for _, name := range folio.EmbeddedAssetNames() {
		b, err := fs.ReadFile(embedded, name)
		if err != nil {
			return n, err
		}
		if !e.opts.NoMinify {
			mediatype, _, _ := mime.ParseMediaType(mime.TypeByExtension(filepath.Ext(name)))
			if m, err := e.min.Bytes(mediatype, b); err == nil {
				b = m
			}
		}
		if err := e.writeFile(filepath.Join(public, name), b); err != nil {
			return n, err
		}
		n++
	}

	static := e.app.Config.StaticDir
	if info, err := os.Stat(static); err == nil && info.IsDir() {
		c, err := e.copyDir(static, public)
		n += c
		if err != nil {
			return n, fmt.Errorf("build: copy static dir: %w", err)
		}
		// The favicon is also served from the site root.
		if _, err := os.Stat(filepath.Join(static, "favicon.svg")); err == nil {
			if err := e.copyFile(filepath.Join(static, "favicon.svg"), filepath.Join(out, "favicon.svg")); err != nil {
				return n, err
			}
			n++
		}
	}

	c, err := e.app.Covers.CopyTo(filepath.Join(out, strings.Trim(folio.CoversPrefix, "/")))
	n += c
	if err != nil {
		return n, fmt.Errorf("build: copy covers: %w", err)
	}
	return n, nil
}

func (e *Exporter) copyDir(src, dst string) (int, error) {
	n := 0
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if err := e.copyFile(p, target); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

func (e *Exporter) copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return err
	}
	e.bytes.Add(n)
	return out.Close()
}

var compressible = map[string]bool{
	".html": true,
	".css":  true,
	".js":   true,
	".xml":  true,
	".txt":  true,
	".svg":  true,
	".json": true,
}

// compressTree writes a brotli copy next to every text file under dir.
func (e *Exporter) compressTree(ctx context.Context, dir string) (int, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && compressible[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return compressFile(f)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("build: compress: %w", err)
	}
	return len(files), nil
}

func compressFile(name string) error {
	in, err := os.Open(name)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(name + ".br")
	if err != nil {
		return err
	}
	bw := brotli.NewWriterLevel(out, brotli.BestCompression)
	if _, err := io.Copy(bw, in); err != nil {
		out.Close()
		return err
	}
	if err := bw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
