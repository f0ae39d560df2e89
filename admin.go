package folio

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/folioblog/folio/analytics"
)

// postForm is the admin editor's form.
type postForm struct {
	Title       string `schema:"title"`
	Slug        string `schema:"slug"`
	Date        string `schema:"date"`
	Tags        string `schema:"tags"`
	Description string `schema:"description"`
	Cover       string `schema:"cover"`
	Content     string `schema:"content"`
	Quick       bool   `schema:"quick"`
	Published   bool   `schema:"published"`
}

var formDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

func (f postForm) post() (Post, string) {
	title := strings.TrimSpace(f.Title)
	slug := Slugify(f.Slug)
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return Post{}, "Slug is required. Add a title or slug."
	}
	date := strings.TrimSpace(f.Date)
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return Post{}, "Invalid date format. Use YYYY-MM-DD."
	}
	return Post{
		Slug:        slug,
		Title:       title,
		Date:        date,
		Tags:        FilterEmpty(strings.Split(f.Tags, ",")),
		Description: strings.TrimSpace(f.Description),
		Cover:       strings.TrimSpace(f.Cover),
		Content:     f.Content,
		Quick:       f.Quick,
		Published:   f.Published,
		Source:      SourceAdmin,
	}, ""
}

const fileManagedMsg = "This post is managed by a content file. Change the file instead."

// checkPassword compares against the bcrypt hash when one is configured.
func (a *App) checkPassword(pass string) bool {
	if a.Config.AdminPasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.Config.AdminPasswordHash), []byte(pass)) == nil
	}
	if a.Config.AdminPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1
}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminPost(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	post, err := a.Store.GetPostAny(c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	return Render(c, a.Views.AdminFormPartial(post, CsrfToken(c)))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	if a.checkPassword(c.FormValue("password")) {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func adminRedirect(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) handleAdminSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	form, err := c.FormParams()
	if err != nil {
		return err
	}
	var f postForm
	if err := formDecoder.Decode(&f, form); err != nil {
		return adminRedirect(c, "Invalid form: "+err.Error())
	}
	post, problem := f.post()
	if problem != "" {
		return adminRedirect(c, problem)
	}
	if existing, err := a.Store.GetPostAny(post.Slug); err == nil && existing.Source == SourceFile {
		return adminRedirect(c, fileManagedMsg)
	}
	if err := a.Store.SavePost(post); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "saved")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	slug := c.Param("slug")
	if existing, err := a.Store.GetPostAny(slug); err == nil && existing.Source == SourceFile {
		return c.String(http.StatusConflict, fileManagedMsg)
	}
	if err := a.Store.DeletePost(slug); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "deleted")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	posts, err := a.Store.ListAllPosts()
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(posts, msg, CsrfToken(c)))
}

func (a *App) handleAdminAnalytics(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	v := AnalyticsView{Site: a.Config, Periods: analytics.Periods, CSRF: CsrfToken(c)}
	if a.analytics != nil {
		r, err := a.analytics.Report(c.Request().Context(), c.QueryParam("period"))
		if err != nil {
			return err
		}
		v.Report = &r
	}
	return Render(c, a.Views.AdminAnalytics(v))
}
