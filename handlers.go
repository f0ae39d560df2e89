package folio

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/folioblog/folio/newsletter"
	"github.com/folioblog/folio/search"
)

// CoversPrefix is the URL path processed cover variants are served under.
const CoversPrefix = "/covers/"

const homePostCount = 5

func isPartial(c echo.Context, name string) bool {
	return c.QueryParam("partial") == name
}

func (a *App) pageMeta(title, description, url, ogType string) PageMeta {
	if title == "" {
		title = a.Config.Name
	} else {
		title = title + " | " + a.Config.Name
	}
	if description == "" {
		description = a.Config.Description
	}
	return PageMeta{
		Title:       title,
		Description: description,
		URL:         url,
		OGType:      ogType,
	}
}

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags()
	if err != nil {
		return err
	}
	latest := posts
	if len(latest) > homePostCount {
		latest = latest[:homePostCount]
	}
	meta := a.pageMeta("", "", BuildURL(a.Config.URL), "website")
	meta.JSONLD = WebsiteJSONLD(a.Config)
	return Render(c, a.Views.Home(HomeView{Site: a.Config, Meta: meta, Posts: latest, Tags: tags}))
}

func (a *App) handleArticles(c echo.Context) error {
	query := c.QueryParam("q")
	all, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	posts := search.Filter(all, query)
	if isPartial(c, "list") {
		return Render(c, a.Views.ArticleList(posts, query, a.Config))
	}
	tags, err := a.Cache.ListTags()
	if err != nil {
		return err
	}
	meta := a.pageMeta("All articles", "", BuildURL(a.Config.URL, "articles"), "website")
	return Render(c, a.Views.Articles(ArticlesView{
		Site:  a.Config,
		Meta:  meta,
		Posts: posts,
		Total: len(all),
		Query: query,
		Tags:  tags,
	}))
}

func (a *App) handleTag(c echo.Context) error {
	tag := normalizeTag(c.Param("tag"))
	posts, err := a.Cache.ListPosts(tag)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return echo.ErrNotFound
	}
	meta := a.pageMeta("Posts tagged "+tag, "", BuildURL(a.Config.URL, "tags", tag), "website")
	return Render(c, a.Views.TagPage(TagView{Site: a.Config, Meta: meta, Tag: tag, Posts: posts}))
}

func (a *App) handlePost(c echo.Context) error {
	post, err := a.Cache.GetPost(c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	v := PostView{
		Site:    a.Config,
		Meta:    a.pageMeta(post.Title, post.Description, BuildURL(a.Config.URL, "blog", post.Slug), "article"),
		Post:    post,
		Related: FilterRelatedPosts(post, posts),
	}
	v.Meta.Image = CoverURL(a.Config, post)
	v.Meta.JSONLD = BlogPostingJSONLD(post, a.Config)
	if next, ok := NextPost(post, posts); ok {
		v.Next = &next
	}
	if len(v.Related) > 3 {
		v.Related = v.Related[:3]
	}
	return Render(c, a.Views.Post(v))
}

// SearchResult is one post in the search API response.
type SearchResult struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
}

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Tokens  []string       `json:"tokens"`
	Total   int            `json:"total"`
	Elapsed float64        `json:"elapsed_ms"`
	Results []SearchResult `json:"results"`
}

func searchResults(posts []Post) []SearchResult {
	results := make([]SearchResult, len(posts))
	for i, p := range posts {
		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}
		results[i] = SearchResult{
			Slug:        p.Slug,
			Title:       p.Title,
			Date:        p.Date,
			Tags:        tags,
			Description: p.Description,
			URL:         p.Link,
		}
	}
	return results
}

func (a *App) handleSearchAPI(c echo.Context) error {
	query := c.QueryParam("q")
	start := time.Now()
	posts, err := a.Cache.Search(query)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	results := searchResults(posts)
	tokens := search.Tokenize(query)
	if tokens == nil {
		tokens = []string{}
	}
	return c.JSON(http.StatusOK, SearchResponse{
		Query:   query,
		Tokens:  tokens,
		Total:   len(results),
		Elapsed: float64(elapsed.Microseconds()) / 1000,
		Results: results,
	})
}

// handleSearchIndex serves every published post for searching in the
// browser. Exported sites have no server to answer /articles/?q=.
func (a *App) handleSearchIndex(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, searchResults(posts))
}

func (a *App) handlePage(c echo.Context) error {
	page, ok := a.Page(c.Param("page"))
	if !ok {
		return echo.ErrNotFound
	}
	meta := a.pageMeta(page.Title, page.Description, BuildURL(a.Config.URL, page.Slug), "website")
	return Render(c, a.Views.Page(PageView{Site: a.Config, Meta: meta, Page: page}))
}

func (a *App) handleSubscribe(c echo.Context) error {
	if a.Newsletter == nil {
		return echo.ErrNotFound
	}
	if !a.subscribeLimiter.Allow(c.RealIP()) {
		return RenderStatus(c, http.StatusTooManyRequests,
			a.Views.NewsletterStatus(false, "Too many attempts. Try again later."))
	}
	err := a.Newsletter.Subscribe(c.Request().Context(), c.FormValue("email"))
	switch {
	case err == nil:
		return Render(c, a.Views.NewsletterStatus(true, "Thanks! Check your inbox to confirm your subscription."))
	case errors.Is(err, newsletter.ErrInvalidEmail):
		return RenderStatus(c, http.StatusUnprocessableEntity,
			a.Views.NewsletterStatus(false, "Please enter a valid email address."))
	default:
		a.Log.Warn("newsletter subscribe failed", zap.Error(err))
		return RenderStatus(c, http.StatusBadGateway,
			a.Views.NewsletterStatus(false, "Subscription failed. Please try again later."))
	}
}

func (a *App) handleCover(c echo.Context) error {
	name := c.Param("file")
	b, err := a.Covers.Get(name)
	if err != nil {
		return echo.ErrNotFound
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Blob(http.StatusOK, "image/jpeg", b)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags()
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts, tags, a.Pages())
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/articles/")
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.Config.StaticDir, "favicon.svg"))
}

// handleRobots serves the site's robots.txt, or a default that points
// crawlers at the sitemap.
func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.Config.StaticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	var b strings.Builder
	b.WriteString("User-agent: *\nDisallow: /admin/\nDisallow: /api/\n\n")
	b.WriteString("Sitemap: " + strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error("server error",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
		_ = RenderStatus(c, code, a.Views.ServerError(a.Config))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
