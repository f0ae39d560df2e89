// Package analytics provides privacy-first page analytics and goal tracking.
package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	ua "github.com/mileusna/useragent"
)

// timeLayout is how timestamps are stored. It sorts lexically and is
// understood by SQLite's date functions.
const timeLayout = "2006-01-02 15:04:05"

// Visit represents a single page view.
type Visit struct {
	VisitorID   string
	SessionID   string
	IPHash      string
	Browser     string
	OS          string
	Device      string // Desktop, Mobile or Tablet
	Path        string
	Referrer    string
	ScreenSize  string // e.g. "1920x1080"
	Timestamp   time.Time
	DurationSec int
}

// BotVisit represents a single crawler page view.
type BotVisit struct {
	BotName   string
	IPHash    string
	UserAgent string
	Path      string
	Timestamp time.Time
}

// Goal is a conversion event, such as a newsletter signup. Value is an
// optional amount in cents.
type Goal struct {
	Name      string
	Path      string
	VisitorID string
	Value     int
	Timestamp time.Time
}

// Stats holds aggregated analytics data.
type Stats struct {
	Period         string            `json:"period"`
	UniqueVisitors int               `json:"unique_visitors"`
	TotalViews     int               `json:"total_views"`
	AvgDuration    int               `json:"avg_duration_sec"`
	TopPages       []PageStat        `json:"top_pages"`
	LatestPages    []LatestPageVisit `json:"latest_pages"`
	BrowserStats   []DimensionStat   `json:"browsers"`
	OSStats        []DimensionStat   `json:"os"`
	DeviceStats    []DimensionStat   `json:"devices"`
	ReferrerStats  []DimensionStat   `json:"referrers"`
	Goals          []GoalStat        `json:"goals"`
	DailyViews     []DailyView       `json:"daily_views"`
}

// BotStats holds aggregated bot analytics data.
type BotStats struct {
	Period      string          `json:"period"`
	TotalVisits int             `json:"total_visits"`
	TopBots     []DimensionStat `json:"top_bots"`
	TopPages    []PageStat      `json:"top_pages"`
	DailyVisits []DailyView     `json:"daily_visits"`
}

// PageStat represents page view statistics.
type PageStat struct {
	Path  string `json:"path" db:"path"`
	Views int    `json:"views" db:"views"`
}

// LatestPageVisit represents a single recent page visit.
type LatestPageVisit struct {
	Path      string `json:"path" db:"path"`
	Timestamp string `json:"timestamp" db:"timestamp"`
	Browser   string `json:"browser" db:"browser"`
}

// DimensionStat represents a dimension breakdown (browser, OS, etc.).
type DimensionStat struct {
	Name  string `json:"name" db:"name"`
	Count int    `json:"count" db:"count"`
}

// GoalStat is the number of completions and summed value of one goal.
type GoalStat struct {
	Name  string `json:"name" db:"name"`
	Count int    `json:"count" db:"count"`
	Value int    `json:"value" db:"value"`
}

// DailyView represents views per bucket (hour, day or month).
type DailyView struct {
	Date  string `json:"date" db:"date"`
	Views int    `json:"views" db:"views"`
}

func hash16(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// HashIP creates a salted hash of an IP address.
func HashIP(salt, ip string) string {
	return hash16(salt, ip)
}

// VisitorID creates a salted visitor ID from IP and User-Agent.
func VisitorID(salt, ip, userAgent string) string {
	return hash16(salt, ip, userAgent)
}

// SessionID derives a session identifier from a visitor and the UTC day.
func SessionID(visitorID string, now time.Time) string {
	return hash16(visitorID, now.UTC().Format("2006-01-02"))
}

// ParseUserAgent extracts browser, OS, and device class from a User-Agent.
func ParseUserAgent(s string) (browser, os, device string) {
	agent := ua.Parse(s)

	browser = agent.Name
	if browser == "" {
		browser = "Other"
	}
	os = agent.OS
	if os == "" {
		os = "Other"
	}
	switch {
	case agent.Tablet:
		device = "Tablet"
	case agent.Mobile:
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return browser, os, device
}

var botKeywords = []string{
	"bot", "crawler", "spider", "crawl", "slurp", "scrape",
	"facebookexternalhit", "yandex", "baidu",
}

// IsBot reports whether the User-Agent is likely a crawler.
func IsBot(s string) bool {
	if ua.Parse(s).Bot {
		return true
	}
	lower := strings.ToLower(s)
	for _, k := range botKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

var botNames = []struct{ pattern, name string }{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"duckduckbot", "DuckDuckBot"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedIn"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"mj12bot", "Majestic"},
	{"dotbot", "Moz"},
	{"slurp", "Yahoo Slurp"},
}

// ExtractBotName names the crawler behind a User-Agent.
func ExtractBotName(s string) string {
	lower := strings.ToLower(s)
	for _, b := range botNames {
		if strings.Contains(lower, b.pattern) {
			return b.name
		}
	}
	if agent := ua.Parse(s); agent.Bot && agent.Name != "" {
		return agent.Name
	}
	switch {
	case strings.Contains(lower, "crawler"):
		return "Generic Crawler"
	case strings.Contains(lower, "spider"):
		return "Generic Spider"
	case strings.Contains(lower, "bot"):
		return "Other Bot"
	}
	return "Unknown"
}

var searchEngines = []struct{ host, name string }{
	{"google.", "Google"},
	{"bing.", "Bing"},
	{"duckduckgo.", "DuckDuckGo"},
	{"yahoo.", "Yahoo"},
	{"github.", "GitHub"},
}

// CleanReferrer reduces a referrer URL to a display name or bare host.
func CleanReferrer(ref string) string {
	if ref == "" {
		return "Direct"
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "Other"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, se := range searchEngines {
		if strings.Contains(host, se.host) {
			return se.name
		}
	}
	return host
}
