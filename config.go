package folio

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/pelletier/go-toml"
	"go.uber.org/zap"
)

// Theme selects the colour scheme variant of the layout.
type Theme string

const (
	ThemeAuto  Theme = "auto"
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// TagStyle colours one tag badge.
type TagStyle struct {
	Name       string `toml:"name"`
	Background string `toml:"background"`
	Color      string `toml:"color"`
}

// Social holds profile handles linked from the header and Twitter cards.
type Social struct {
	Twitter string `toml:"twitter"`
	GitHub  string `toml:"github"`
	Email   string `toml:"email"` // shown as a contact box on standalone pages
}

// MenuItem is one header navigation link.
type MenuItem struct {
	Label string `toml:"label"`
	URL   string `toml:"url"`
}

// DefaultMenu is the header navigation used when the config names none.
var DefaultMenu = []MenuItem{
	{"Articles", "/articles/"},
	{"About", "/about/"},
}

// NewsletterConfig configures the signup form shown under posts.
type NewsletterConfig struct {
	Enabled bool   `toml:"enabled"`
	Action  string `toml:"action"` // embed-subscribe endpoint of the inbox service
	Heading string `toml:"heading"`
	Pitch   string `toml:"pitch"`
}

// CommentsConfig configures the utterances comment widget.
type CommentsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Repo      string `toml:"repo"`
	IssueTerm string `toml:"issueTerm"`
	Theme     string `toml:"theme"`
	Prompt    string `toml:"prompt"`
}

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name        string `toml:"name"`        // Site name (default "Blog")
	URL         string `toml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `toml:"description"` // Site description for RSS and meta tags
	Author      string `toml:"author"`      // Author name for JSON-LD
	Bio         string `toml:"bio"`         // Introduction shown on the home page
	Social      Social `toml:"social"`
	Theme       Theme  `toml:"theme"`

	Addr         string `toml:"addr"`         // Listen address (default ":3000")
	DatabasePath string `toml:"databasePath"` // SQLite path (default "data/blog.db")
	ContentDir   string `toml:"contentDir"`   // Markdown posts (default "content/blog")
	PagesDir     string `toml:"pagesDir"`     // Standalone pages such as About (default "content/pages")
	StaticDir    string `toml:"staticDir"`    // User static assets (default "public")
	CacheDir     string `toml:"cacheDir"`     // Processed covers (default "data/cache")

	AnalyticsEnabled      bool   `toml:"analytics"`
	AnalyticsDatabasePath string `toml:"analyticsDatabasePath"` // default "data/analytics.db"
	AnalyticsRetention    int    `toml:"analyticsRetentionDays"`

	AdminPassword     string `toml:"adminPassword"`
	AdminPasswordHash string `toml:"adminPasswordHash"` // bcrypt, preferred over AdminPassword
	SessionSecret     string `toml:"sessionSecret"`
	CookieSecure      bool   `toml:"cookieSecure"`

	CacheTTL      string            `toml:"cacheTTL"` // e.g. "5m"
	PostCacheTTL  time.Duration     `toml:"-"`
	MaxUploadSize datasize.ByteSize `toml:"maxUploadSize"` // default 10MB
	ExcerptLength int               `toml:"excerptLength"`

	Newsletter NewsletterConfig `toml:"newsletter"`
	Comments   CommentsConfig   `toml:"comments"`
	Tags       []TagStyle       `toml:"tags"`
	Menu       []MenuItem       `toml:"menu"`

	// Static is set while the site is exported to plain files. Pages then
	// search the exported index instead of asking the server.
	Static bool `toml:"-"`
}

// DefaultTagStyles are the badge colours used when the config names none.
var DefaultTagStyles = []TagStyle{
	{"discord", "#3957BF", "#FFF"},
	{"react", "#61DAFB", "#000"},
	{"javascript", "#F0DB4F", "#323330"},
	{"test", "#BD3030", "#F2E6E6"},
	{"tooling", "#21374B", "#E6ECF2"},
	{"css", "#A611A4", "#FFF"},
	{"html", "#C9350E", "#FFF"},
	{"vscode", "#0072CC", "#FFF"},
	{"vue", "#3DCC8C", "#35495E"},
	{"career", "#914E0F", "#F2ECE6"},
	{"personal", "#E6E6FF", "#3525E6"},
	{"performance", "#404040", "#E6E6E6"},
	{"design", "#C71E49", "#FFFAFB"},
	{"productivity", "#00CC88", "#F7FFFC"},
}

// TagStyle returns the configured colours for tag.
func (c SiteConfig) TagStyle(tag string) (TagStyle, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range c.Tags {
		if strings.ToLower(t.Name) == tag {
			return t, true
		}
	}
	return TagStyle{}, false
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	switch c.Theme {
	case ThemeLight, ThemeDark:
	default:
		c.Theme = ThemeAuto
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.ContentDir == "" {
		c.ContentDir = "content/blog"
	}
	if c.PagesDir == "" {
		c.PagesDir = "content/pages"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.CacheDir == "" {
		c.CacheDir = "data/cache"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.AnalyticsRetention <= 0 {
		c.AnalyticsRetention = 365
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = 10 * datasize.MB
	}
	if c.ExcerptLength <= 0 {
		c.ExcerptLength = 180
	}
	if c.Newsletter.Heading == "" {
		c.Newsletter.Heading = "Enjoyed this post?"
	}
	if c.Newsletter.Pitch == "" {
		c.Newsletter.Pitch = "Subscribe to the newsletter to get new posts in your inbox. No spam, unsubscribe at any time."
	}
	if c.Comments.IssueTerm == "" {
		c.Comments.IssueTerm = "pathname"
	}
	if c.Comments.Theme == "" {
		c.Comments.Theme = "preferred-color-scheme"
	}
	if c.Comments.Prompt == "" {
		c.Comments.Prompt = "Questions? Thoughts? Leave your comments below."
	}
	if len(c.Tags) == 0 {
		c.Tags = append([]TagStyle(nil), DefaultTagStyles...)
	}
	if len(c.Menu) == 0 {
		c.Menu = append([]MenuItem(nil), DefaultMenu...)
	}
}

// LoadConfig reads a TOML config file, applies environment overrides and
// fills in defaults. A missing file is not an error.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.CacheTTL != "" {
		d, err := time.ParseDuration(cfg.CacheTTL)
		if err != nil {
			return cfg, fmt.Errorf("cacheTTL: %w", err)
		}
		cfg.PostCacheTTL = d
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyEnv() {
	for key, dst := range map[string]*string{
		"SITE_NAME":            &c.Name,
		"SITE_URL":             &c.URL,
		"ADMIN_PASSWORD":       &c.AdminPassword,
		"ADMIN_PASSWORD_HASH":  &c.AdminPasswordHash,
		"ADMIN_SESSION_SECRET": &c.SessionSecret,
		"DATABASE_PATH":        &c.DatabasePath,
		"CONTENT_DIR":          &c.ContentDir,
		"ADDR":                 &c.Addr,
	} {
		*dst = EnvOr(key, *dst)
	}
	if v, err := strconv.ParseBool(os.Getenv("COOKIE_SECURE")); err == nil {
		c.CookieSecure = v
	}
}

// Validate checks the settings required to serve the admin surface.
func (c SiteConfig) Validate() error {
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		return errors.New("folio: adminPassword or adminPasswordHash is required")
	}
	if c.SessionSecret == "" {
		return errors.New("folio: sessionSecret is required")
	}
	if len(c.SessionSecret) < 16 {
		return errors.New("folio: sessionSecret must be at least 16 characters")
	}
	if c.Newsletter.Enabled && c.Newsletter.Action == "" {
		return errors.New("folio: newsletter.action is required when the newsletter is enabled")
	}
	if c.Comments.Enabled && c.Comments.Repo == "" {
		return errors.New("folio: comments.repo is required when comments are enabled")
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are mounted.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir overrides the directory for user-owned static assets.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithLogger sets the logger used by the App and its handlers.
func WithLogger(log *zap.Logger) Option {
	return func(a *App) {
		a.Log = log
	}
}
