package folio

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// browser keeps cookies between requests against the app.
type browser struct {
	t       *testing.T
	a       *App
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, a *App) *browser {
	return &browser{t: t, a: a, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.a.Echo.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) csrf() string {
	b.t.Helper()
	c, ok := b.cookies["_csrf"]
	if !ok {
		b.t.Fatal("no csrf cookie")
	}
	return c.Value
}

func (b *browser) login(password string) *httptest.ResponseRecorder {
	b.t.Helper()
	b.do(http.MethodGet, "/admin/", nil)
	return b.do(http.MethodPost, "/admin/login/", url.Values{
		"_csrf":    {b.csrf()},
		"password": {password},
	})
}

func TestAdminLoginFlow(t *testing.T) {
	a := newTestApp(t, nil)
	b := newBrowser(t, a)

	rec := b.do(http.MethodGet, "/admin/", nil)
	if !strings.HasPrefix(rec.Body.String(), "login error=false") {
		t.Fatalf("GET /admin/ = %q", rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("admin Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}

	rec = b.login("wrong")
	if rec.Code != http.StatusUnauthorized || !strings.HasPrefix(rec.Body.String(), "login error=true") {
		t.Fatalf("bad password = %d %q", rec.Code, rec.Body.String())
	}

	rec = b.login("correct horse")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("good password status = %d", rec.Code)
	}

	rec = b.do(http.MethodGet, "/admin/", nil)
	if !strings.HasPrefix(rec.Body.String(), "dashboard:wip,go-concurrency,css-grid,vue-testing") {
		t.Fatalf("dashboard = %q", rec.Body.String())
	}

	b.do(http.MethodPost, "/admin/logout/", url.Values{"_csrf": {b.csrf()}})
	rec = b.do(http.MethodGet, "/admin/", nil)
	if !strings.HasPrefix(rec.Body.String(), "login") {
		t.Errorf("after logout = %q", rec.Body.String())
	}
}

func TestAdminLoginRequiresCSRF(t *testing.T) {
	a := newTestApp(t, nil)
	b := newBrowser(t, a)
	rec := b.do(http.MethodPost, "/admin/login/", url.Values{"password": {"correct horse"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAdminLoginRateLimited(t *testing.T) {
	a := newTestApp(t, nil)
	b := newBrowser(t, a)
	for i := 0; i < 5; i++ {
		b.login("wrong")
	}
	rec := b.login("correct horse")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestAdminLoginBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	a := newTestApp(t, func(c *SiteConfig) {
		c.AdminPassword = ""
		c.AdminPasswordHash = string(hash)
	})
	b := newBrowser(t, a)
	if rec := b.login("s3cret"); rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
}

func TestAdminSave(t *testing.T) {
	a := newTestApp(t, nil)
	b := newBrowser(t, a)
	b.login("correct horse")

	rec := b.do(http.MethodPost, "/admin/save/", url.Values{
		"_csrf":       {b.csrf()},
		"title":       {"Hello World"},
		"date":        {"2025-01-02"},
		"tags":        {"Go, web, "},
		"description": {"First post"},
		"content":     {"# Hi"},
		"quick":       {"true"},
		"published":   {"true"},
	})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "msg=saved") {
		t.Fatalf("save = %d %q", rec.Code, rec.Body.String())
	}

	p, err := a.Store.GetPost("hello-world")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if !p.Quick || p.Description != "First post" || len(p.Tags) != 2 || p.Tags[0] != "go" {
		t.Errorf("saved post = %+v", p)
	}

	// The public pages see the new post right away.
	if rec := do(a, http.MethodGet, "/blog/hello-world/", nil); rec.Code != http.StatusOK {
		t.Errorf("GET new post status = %d", rec.Code)
	}
}

func TestAdminSaveValidation(t *testing.T) {
	a := newTestApp(t, nil)
	b := newBrowser(t, a)
	b.login("correct horse")

	rec := b.do(http.MethodPost, "/admin/save/", url.Values{
		"_csrf": {b.csrf()},
		"title": {"Dated"},
		"date":  {"yesterday"},
	})
	if rec.Code != http.StatusSeeOther || !strings.Contains(rec.Header().Get("Location"), "Invalid+date") {
		t.Errorf("bad date = %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = b.do(http.MethodPost, "/admin/save/", url.Values{"_csrf": {b.csrf()}, "title": {"!!!"}})
	if rec.Code != http.StatusSeeOther || !strings.Contains(rec.Header().Get("Location"), "Slug+is+required") {
		t.Errorf("empty slug = %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAdminSaveRefusesFilePosts(t *testing.T) {
	a := newTestApp(t, nil)
	if err := a.Store.SyncFilePosts([]Post{{Slug: "from-disk", Title: "From disk", Date: "2024-01-01", Published: true}}); err != nil {
		t.Fatalf("SyncFilePosts failed: %v", err)
	}
	b := newBrowser(t, a)
	b.login("correct horse")

	rec := b.do(http.MethodPost, "/admin/save/", url.Values{
		"_csrf":     {b.csrf()},
		"title":     {"Overwritten"},
		"slug":      {"from-disk"},
		"published": {"true"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}
	p, _ := a.Store.GetPost("from-disk")
	if p.Title != "From disk" {
		t.Errorf("file post overwritten: %q", p.Title)
	}
}

func TestAdminDelete(t *testing.T) {
	a := newTestApp(t, nil)
	b := newBrowser(t, a)

	rec := b.do(http.MethodDelete, "/admin/post/css-grid/", nil)
	if rec.Code == http.StatusOK {
		t.Fatal("unauthenticated delete succeeded")
	}

	b.login("correct horse")
	req := httptest.NewRequest(http.MethodDelete, "/admin/post/css-grid/", nil)
	req.Header.Set("X-CSRF-Token", b.csrf())
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "msg=deleted") {
		t.Fatalf("delete = %d %q", rec.Code, rec.Body.String())
	}
	if _, err := a.Store.GetPostAny("css-grid"); err == nil {
		t.Error("post still exists")
	}
}

func TestAdminDeleteRefusesFilePosts(t *testing.T) {
	a := newTestApp(t, nil)
	if err := a.Store.SyncFilePosts([]Post{{Slug: "from-disk", Title: "From disk", Date: "2024-01-01", Published: true}}); err != nil {
		t.Fatalf("SyncFilePosts failed: %v", err)
	}
	b := newBrowser(t, a)
	b.login("correct horse")

	req := httptest.NewRequest(http.MethodDelete, "/admin/post/from-disk/", nil)
	req.Header.Set("X-CSRF-Token", b.csrf())
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "managed by a content file") {
		t.Errorf("delete = %d %q, want 409", rec.Code, rec.Body.String())
	}
	if _, err := a.Store.GetPostAny("from-disk"); err != nil {
		t.Errorf("file post deleted: %v", err)
	}
}

func TestAdminAnalyticsDashboard(t *testing.T) {
	a := newTestApp(t, nil)
	b := newBrowser(t, a)
	if rec := b.do(http.MethodGet, "/admin/analytics/", nil); rec.Code != http.StatusSeeOther {
		t.Errorf("anonymous = %d, want 303", rec.Code)
	}
	b.login("correct horse")
	if rec := b.do(http.MethodGet, "/admin/analytics/", nil); rec.Body.String() != "analytics:off" {
		t.Errorf("disabled = %q", rec.Body.String())
	}

	dir := t.TempDir()
	a = newTestApp(t, func(c *SiteConfig) {
		c.AnalyticsEnabled = true
		c.AnalyticsDatabasePath = filepath.Join(dir, "analytics.db")
	})
	asJSON := func(r *http.Request) {
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	}
	if rec := do(a, http.MethodPost, "/api/analytics/collect", strings.NewReader(`{"path":"/blog/go-concurrency/"}`), asJSON); rec.Code != http.StatusNoContent {
		t.Fatalf("collect = %d", rec.Code)
	}
	do(a, http.MethodPost, "/api/analytics/goal", strings.NewReader(`{"name":"newsletter_signup"}`), asJSON)

	b = newBrowser(t, a)
	b.login("correct horse")
	rec := b.do(http.MethodGet, "/admin/analytics/?period=today", nil)
	if got := rec.Body.String(); got != "analytics:today views:1 goals:1" {
		t.Errorf("dashboard = %d %q", rec.Code, got)
	}
	rec = b.do(http.MethodGet, "/admin/analytics/", nil)
	if got := rec.Body.String(); !strings.HasPrefix(got, "analytics:week ") {
		t.Errorf("default period = %q", got)
	}
}
