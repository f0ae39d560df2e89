package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaltIsPersisted(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a, err := s.Salt(ctx)
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := s.Salt(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.GetSetting(context.Background(), "schema_version")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestGetStats(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	visits := []Visit{
		{VisitorID: "v1", SessionID: "s1", IPHash: "h1", Browser: "Chrome", OS: "Windows", Device: "Desktop", Path: "/", Referrer: "Google", Timestamp: base},
		{VisitorID: "v1", SessionID: "s1", IPHash: "h1", Browser: "Chrome", OS: "Windows", Device: "Desktop", Path: "/blog/a/", Referrer: "Direct", Timestamp: base.Add(time.Minute)},
		{VisitorID: "v2", SessionID: "s2", IPHash: "h2", Browser: "Safari", OS: "iOS", Device: "Mobile", Path: "/blog/a/", Referrer: "Direct", Timestamp: base.Add(2 * time.Minute)},
		{VisitorID: "v3", SessionID: "s3", IPHash: "h3", Browser: "Firefox", OS: "Linux", Device: "Desktop", Path: "/", Referrer: "Direct", Timestamp: base.AddDate(0, 0, -30)},
	}
	for i := range visits {
		require.NoError(t, s.SaveVisit(ctx, &visits[i]))
	}
	require.NoError(t, s.UpdateVisitDuration(ctx, "v1", "/blog/a/", 40))
	require.NoError(t, s.SaveGoal(ctx, &Goal{Name: "newsletter", Path: "/blog/a/", VisitorID: "v2", Timestamp: base}))
	require.NoError(t, s.SaveGoal(ctx, &Goal{Name: "newsletter", Path: "/", VisitorID: "v1", Value: 150, Timestamp: base}))

	from, to := base.AddDate(0, 0, -1), base.AddDate(0, 0, 1)
	stats, err := s.GetStats(ctx, from, to, false, false)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalViews)
	assert.Equal(t, 2, stats.UniqueVisitors)
	assert.Equal(t, 40, stats.AvgDuration)
	assert.Equal(t, []PageStat{{Path: "/blog/a/", Views: 2}, {Path: "/", Views: 1}}, stats.TopPages)
	assert.Equal(t, []DimensionStat{{Name: "Chrome", Count: 2}, {Name: "Safari", Count: 1}}, stats.BrowserStats)
	assert.Equal(t, []DimensionStat{{Name: "Direct", Count: 2}, {Name: "Google", Count: 1}}, stats.ReferrerStats)
	assert.Equal(t, []GoalStat{{Name: "newsletter", Count: 2, Value: 150}}, stats.Goals)
	assert.Equal(t, []DailyView{{Date: "2024-03-10", Views: 3}}, stats.DailyViews)
	require.Len(t, stats.LatestPages, 3)
	assert.Equal(t, "2024-03-10 12:02:00", stats.LatestPages[0].Timestamp)

	hourly, err := s.GetStats(ctx, from, to, true, false)
	require.NoError(t, err)
	assert.Equal(t, []DailyView{{Date: "12:00", Views: 3}}, hourly.DailyViews)
}

func TestGetStatsEmpty(t *testing.T) {
	s := setupTestStore(t)
	now := time.Now().UTC()
	stats, err := s.GetStats(context.Background(), now.Add(-time.Hour), now, false, false)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalViews)
	assert.NotNil(t, stats.TopPages)
	assert.Empty(t, stats.Goals)
}

func TestBotStatsAndCleanup(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SaveBotVisit(ctx, &BotVisit{BotName: "Googlebot", IPHash: "h", UserAgent: googleBot, Path: "/", Timestamp: now}))
	require.NoError(t, s.SaveBotVisit(ctx, &BotVisit{BotName: "Googlebot", IPHash: "h", UserAgent: googleBot, Path: "/feed.xml", Timestamp: now}))
	require.NoError(t, s.SaveBotVisit(ctx, &BotVisit{BotName: "Bingbot", IPHash: "h", UserAgent: "bingbot", Path: "/", Timestamp: now.AddDate(-2, 0, 0)}))

	stats, err := s.GetBotStats(ctx, now.AddDate(-3, 0, 0), now.Add(time.Hour), false, true)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalVisits)
	assert.Equal(t, DimensionStat{Name: "Googlebot", Count: 2}, stats.TopBots[0])

	require.NoError(t, s.CleanupOldVisits(ctx, 365))

	stats, err = s.GetBotStats(ctx, now.AddDate(-3, 0, 0), now.Add(time.Hour), false, true)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalVisits)
	assert.Len(t, stats.DailyVisits, 1)
}

func TestRealtimeVisitors(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SaveVisit(ctx, &Visit{VisitorID: "a", Path: "/", Timestamp: now.Add(-time.Minute)}))
	require.NoError(t, s.SaveVisit(ctx, &Visit{VisitorID: "b", Path: "/", Timestamp: now.Add(-time.Hour)}))

	n, err := s.RealtimeVisitors(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
