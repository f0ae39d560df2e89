// Package folio is a personal blog engine built with Go, Echo, and templ.
// Posts come from Markdown files in a content directory and from the admin
// dashboard; both are served with live search, tags, RSS, a sitemap, a
// newsletter form, comments, and privacy-first analytics.
//
// Sites provide their templ components through ViewFuncs; the views
// package ships a default set.
package folio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/folioblog/folio/analytics"
	"github.com/folioblog/folio/content"
	"github.com/folioblog/folio/covers"
	"github.com/folioblog/folio/newsletter"
)

// HomeView is rendered at "/".
type HomeView struct {
	Site  SiteConfig
	Meta  PageMeta
	Posts []Post // latest posts
	Tags  []string
}

// ArticlesView is rendered at "/articles/".
type ArticlesView struct {
	Site  SiteConfig
	Meta  PageMeta
	Posts []Post // posts matching Query
	Total int    // number of published posts
	Query string
	Tags  []string
}

// TagView is rendered at "/tags/:tag/".
type TagView struct {
	Site  SiteConfig
	Meta  PageMeta
	Tag   string
	Posts []Post
}

// PostView is rendered at "/blog/:slug/".
type PostView struct {
	Site    SiteConfig
	Meta    PageMeta
	Post    Post
	Next    *Post // suggested next read
	Related []Post
}

// PageView is rendered at "/:page/" for files in the pages directory.
type PageView struct {
	Site SiteConfig
	Meta PageMeta
	Page Page
}

// AnalyticsView is rendered at "/admin/analytics/". Report is nil when
// analytics are disabled.
type AnalyticsView struct {
	Site    SiteConfig
	Report  *analytics.Report
	Periods []string
	CSRF    string
}

// ViewFuncs holds the templ components the App renders. This is the
// inversion-of-control point that lets sites own every template.
type ViewFuncs struct {
	Home             func(v HomeView) templ.Component
	Articles         func(v ArticlesView) templ.Component
	ArticleList      func(posts []Post, query string, site SiteConfig) templ.Component
	TagPage          func(v TagView) templ.Component
	Post             func(v PostView) templ.Component
	Page             func(v PageView) templ.Component
	NewsletterStatus func(ok bool, message string) templ.Component
	AdminLogin       func(showError bool, csrfToken string) templ.Component
	AdminDashboard   func(posts []Post, message string, csrfToken string) templ.Component
	AdminFormPartial func(post Post, csrfToken string) templ.Component
	AdminImages      func(images []Image, csrfToken string) templ.Component
	AdminAnalytics   func(v AnalyticsView) templ.Component
	NotFound         func(site SiteConfig) templ.Component
	ServerError      func(site SiteConfig) templ.Component
}

// App is the central folio application. It wires together the store,
// cache, content pipeline, handlers, middleware, and views.
type App struct {
	Config     SiteConfig
	Echo       *echo.Echo
	Store      *Store
	Cache      *PostCache
	Covers     *covers.Processor
	Newsletter *newsletter.Client
	Views      ViewFuncs
	Log        *zap.Logger

	loginLimiter     *LoginLimiter
	subscribeLimiter *LoginLimiter
	analyticsStore   *analytics.Store
	analytics        *analytics.Handler
	customRoutes     []func(*App)

	coverMu   sync.Mutex
	coverMemo map[string]coverMemo

	pagesMu sync.RWMutex
	pages   map[string]Page

	closeOnce sync.Once
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		Log:       zap.NewNop(),
		coverMemo: make(map[string]coverMemo),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Config.setDefaults()
	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	return a
}

// Init opens storage and mounts middleware and routes. Background work
// (limiter sweeps, analytics retention) stops when ctx is done.
func (a *App) Init(ctx context.Context) error {
	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("folio: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.Covers = covers.NewProcessor(a.Config.CacheDir)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.subscribeLimiter = NewLoginLimiter(3, 10*time.Minute)
	go a.loginLimiter.Run(ctx)
	go a.subscribeLimiter.Run(ctx)

	if a.Config.Newsletter.Enabled {
		a.Newsletter = newsletter.New(a.Config.Newsletter.Action)
	}

	if a.Config.AnalyticsEnabled {
		as, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("folio: init analytics: %w", err)
		}
		a.analyticsStore = as
		salt, err := as.Salt(ctx)
		if err != nil {
			return fmt.Errorf("folio: init analytics salt: %w", err)
		}
		a.analytics = analytics.NewHandler(as, salt, a.Log.Named("analytics"))
		go a.analytics.Limiter().Run(ctx)
		go as.RunCleanup(ctx, a.Config.AnalyticsRetention, 24*time.Hour, a.Log.Named("analytics"))
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start validates the admin settings, initializes the app, loads the
// content directory, watches it for changes and serves HTTP until ctx is
// done.
func (a *App) Start(ctx context.Context) error {
	if err := a.Config.Validate(); err != nil {
		return err
	}
	if err := a.Init(ctx); err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.SyncContent(ctx); err != nil {
		return err
	}

	for _, dir := range []string{a.Config.ContentDir, a.Config.PagesDir} {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		w, err := content.NewWatcher(dir, 0, func() {
			if _, err := a.SyncContent(ctx); err != nil {
				a.Log.Error("content reload failed", zap.Error(err))
			}
		}, a.Log.Named("watcher"))
		if err != nil {
			return fmt.Errorf("folio: watch %s: %w", dir, err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("folio: watch %s: %w", dir, err)
		}
		defer w.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("listening", zap.String("addr", a.Config.Addr), zap.String("url", a.Config.URL))
		errCh <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Log.Info("shutting down")
	return a.Echo.Shutdown(shutdownCtx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets are served under /public/ ahead of the user's
	// static directory.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(embeddedFS))))
	for _, name := range EmbeddedAssetNames() {
		e.GET("/public/"+name, embeddedHandler)
	}

	e.Static("/public", a.Config.StaticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET(CoversPrefix+":file", a.handleCover)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/articles/", a.handleArticles)
	e.GET("/tags/:tag/", a.handleTag)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/api/search", a.handleSearchAPI)
	e.GET("/search.json", a.handleSearchIndex)
	e.POST("/newsletter/subscribe/", a.handleSubscribe)

	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.GET("/admin/post/:slug/", a.handleAdminPost)
	e.POST("/admin/save/", a.handleAdminSave)
	e.DELETE("/admin/post/:slug/", a.handleAdminDelete)
	e.GET("/admin/images/", a.handleImageList)
	e.POST("/admin/images/upload/", a.handleImageUpload)
	e.DELETE("/admin/images/:filename/", a.handleImageDelete)

	if a.analytics != nil {
		a.analytics.RegisterRoutes(e, requireAdmin)
	}
	e.GET("/admin/analytics/", a.handleAdminAnalytics)

	// Fixed routes, custom ones included, take priority over page slugs.
	e.GET("/:page/", a.handlePage)
}

// Close releases the databases. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.Store != nil {
			errs = append(errs, a.Store.Close())
		}
		if a.analyticsStore != nil {
			errs = append(errs, a.analyticsStore.Close())
		}
	})
	return errors.Join(errs...)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Pages returns the loaded standalone pages ordered by slug.
func (a *App) Pages() []Page {
	a.pagesMu.RLock()
	defer a.pagesMu.RUnlock()
	pages := make([]Page, 0, len(a.pages))
	for _, p := range a.pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Slug < pages[j].Slug })
	return pages
}

// Page returns the standalone page with the given slug.
func (a *App) Page(slug string) (Page, bool) {
	a.pagesMu.RLock()
	defer a.pagesMu.RUnlock()
	p, ok := a.pages[slug]
	return p, ok
}
