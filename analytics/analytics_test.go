package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	chromeUA  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	googleBot = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestParseUserAgent(t *testing.T) {
	browser, os, device := ParseUserAgent(chromeUA)
	assert.Equal(t, "Chrome", browser)
	assert.Equal(t, "Windows", os)
	assert.Equal(t, "Desktop", device)

	_, os, device = ParseUserAgent(iphoneUA)
	assert.Equal(t, "iOS", os)
	assert.Equal(t, "Mobile", device)

	browser, os, _ = ParseUserAgent("")
	assert.Equal(t, "Other", browser)
	assert.Equal(t, "Other", os)
}

func TestIsBot(t *testing.T) {
	assert.True(t, IsBot(googleBot))
	assert.True(t, IsBot("AhrefsBot/7.0"))
	assert.True(t, IsBot("some-spider/1.0"))
	assert.False(t, IsBot(chromeUA))
	assert.False(t, IsBot(iphoneUA))
}

func TestExtractBotName(t *testing.T) {
	tests := []struct {
		ua, want string
	}{
		{googleBot, "Googlebot"},
		{"Mozilla/5.0 (compatible; bingbot/2.0)", "Bingbot"},
		{"Twitterbot/1.0", "Twitterbot"},
		{"Mozilla/5.0 (compatible; Yahoo! Slurp)", "Yahoo Slurp"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractBotName(tt.ua), tt.ua)
	}
}

func TestCleanReferrer(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "Direct"},
		{"https://www.google.com/search?q=go", "Google"},
		{"https://duckduckgo.com/", "DuckDuckGo"},
		{"https://github.com/folioblog", "GitHub"},
		{"https://www.example.org/a/b", "example.org"},
		{"not a url", "Other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanReferrer(tt.in), tt.in)
	}
}

func TestHashesAreSaltedAndStable(t *testing.T) {
	assert.Equal(t, HashIP("a", "203.0.113.1"), HashIP("a", "203.0.113.1"))
	assert.NotEqual(t, HashIP("a", "203.0.113.1"), HashIP("b", "203.0.113.1"))
	assert.Len(t, VisitorID("a", "203.0.113.1", chromeUA), 16)

	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, SessionID("v", day), SessionID("v", day.Add(5*time.Hour)))
	assert.NotEqual(t, SessionID("v", day), SessionID("v", day.AddDate(0, 0, 1)))
}

func TestKeyedLimiter(t *testing.T) {
	l := NewKeyedLimiter(2, time.Minute)
	assert.True(t, l.Allow("203.0.113.10"))
	assert.True(t, l.Allow("203.0.113.10"))
	assert.False(t, l.Allow("203.0.113.10"))
	assert.True(t, l.Allow("203.0.113.11"))
	assert.Equal(t, 2, l.Len())

	l.Sweep(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, l.Len())
}

func TestFillHourlyData(t *testing.T) {
	from := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	got := fillHourlyData([]DailyView{{Date: "23:00", Views: 4}}, from)
	assert.Len(t, got, 24)
	assert.Equal(t, DailyView{Date: "22:00", Views: 0}, got[0])
	assert.Equal(t, DailyView{Date: "23:00", Views: 4}, got[1])
	assert.Equal(t, "00:00", got[2].Date)
}

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, periodSpec{name: "today", days: 1, hourly: true}, parsePeriod("today"))
	assert.Equal(t, periodSpec{name: "year", days: 365, monthly: true}, parsePeriod("year"))
	assert.Equal(t, periodSpec{name: "week", days: 7}, parsePeriod("bogus"))
}
