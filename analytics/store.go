package analytics

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

// Store provides database operations for analytics.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) the analytics database at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrations are applied in order; the applied count is kept in the
// schema_version setting.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS visits (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		visitor_id   TEXT NOT NULL,
		session_id   TEXT NOT NULL,
		ip_hash      TEXT NOT NULL,
		browser      TEXT NOT NULL,
		os           TEXT NOT NULL,
		device       TEXT NOT NULL,
		path         TEXT NOT NULL,
		referrer     TEXT NOT NULL DEFAULT '',
		screen_size  TEXT NOT NULL DEFAULT '',
		timestamp    TEXT NOT NULL,
		duration_sec INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS bot_visits (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		bot_name   TEXT NOT NULL,
		ip_hash    TEXT NOT NULL,
		user_agent TEXT NOT NULL,
		path       TEXT NOT NULL,
		timestamp  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
	CREATE INDEX IF NOT EXISTS idx_visits_visitor_id ON visits(visitor_id);
	CREATE INDEX IF NOT EXISTS idx_visits_path ON visits(path);
	CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);
	`,
	`
	CREATE TABLE IF NOT EXISTS goals (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		path       TEXT NOT NULL,
		visitor_id TEXT NOT NULL,
		value      INTEGER NOT NULL DEFAULT 0,
		timestamp  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_timestamp ON goals(timestamp);
	`,
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(migrations[0]); err != nil {
		return err
	}
	ctx := context.Background()
	verStr, err := s.GetSetting(ctx, "schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 1
	if verStr != "" {
		if version, err = strconv.Atoi(verStr); err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	for i := version; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return s.SetSetting(ctx, "schema_version", strconv.Itoa(len(migrations)))
}

// GetSetting returns a setting value, or "" if it is unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// Salt loads the per-installation hashing salt, generating and persisting
// one on first use.
func (s *Store) Salt(ctx context.Context) (string, error) {
	v, err := s.GetSetting(ctx, "hash_salt")
	if err != nil {
		return "", fmt.Errorf("read hash salt: %w", err)
	}
	if v != "" {
		return v, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	v = hex.EncodeToString(b)
	if err := s.SetSetting(ctx, "hash_salt", v); err != nil {
		return "", fmt.Errorf("store hash salt: %w", err)
	}
	return v, nil
}

// SaveVisit stores a page view.
func (s *Store) SaveVisit(ctx context.Context, v *Visit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visits (visitor_id, session_id, ip_hash, browser, os, device, path, referrer, screen_size, timestamp, duration_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.SessionID, v.IPHash, v.Browser, v.OS, v.Device, v.Path,
		v.Referrer, v.ScreenSize, v.Timestamp.UTC().Format(timeLayout), v.DurationSec)
	return err
}

// UpdateVisitDuration sets the duration of the most recent visit for a
// visitor and path.
func (s *Store) UpdateVisitDuration(ctx context.Context, visitorID, path string, durationSec int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE visits SET duration_sec = ?
		WHERE id = (SELECT id FROM visits WHERE visitor_id = ? AND path = ? ORDER BY timestamp DESC, id DESC LIMIT 1)`,
		durationSec, visitorID, path)
	return err
}

// SaveBotVisit stores a crawler page view.
func (s *Store) SaveBotVisit(ctx context.Context, bv *BotVisit) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, timestamp) VALUES (?, ?, ?, ?, ?)`,
		bv.BotName, bv.IPHash, bv.UserAgent, bv.Path, bv.Timestamp.UTC().Format(timeLayout))
	return err
}

// SaveGoal stores a goal completion.
func (s *Store) SaveGoal(ctx context.Context, g *Goal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (name, path, visitor_id, value, timestamp) VALUES (?, ?, ?, ?, ?)`,
		g.Name, g.Path, g.VisitorID, g.Value, g.Timestamp.UTC().Format(timeLayout))
	return err
}

// bucketFormat returns the strftime pattern for a series bucket.
func bucketFormat(hourly, monthly bool) string {
	switch {
	case hourly:
		return "%H:00"
	case monthly:
		return "%Y-%m"
	default:
		return "%Y-%m-%d"
	}
}

func period(from, to time.Time) string {
	return from.Format("2006-01-02") + " to " + to.Format("2006-01-02")
}

// GetStats aggregates visits in [from, to). The individual queries run
// concurrently.
func (s *Store) GetStats(ctx context.Context, from, to time.Time, hourly, monthly bool) (*Stats, error) {
	f, t := from.UTC().Format(timeLayout), to.UTC().Format(timeLayout)
	stats := &Stats{
		Period:        period(from, to),
		TopPages:      []PageStat{},
		LatestPages:   []LatestPageVisit{},
		BrowserStats:  []DimensionStat{},
		OSStats:       []DimensionStat{},
		DeviceStats:   []DimensionStat{},
		ReferrerStats: []DimensionStat{},
		Goals:         []GoalStat{},
		DailyViews:    []DailyView{},
	}

	g, ctx := errgroup.WithContext(ctx)
	const where = ` FROM visits WHERE timestamp >= ? AND timestamp < ?`

	g.Go(func() error {
		return wrap("count views", s.db.GetContext(ctx, &stats.TotalViews, `SELECT COUNT(*)`+where, f, t))
	})
	g.Go(func() error {
		return wrap("count unique visitors", s.db.GetContext(ctx, &stats.UniqueVisitors, `SELECT COUNT(DISTINCT visitor_id)`+where, f, t))
	})
	g.Go(func() error {
		var avg sql.NullFloat64
		if err := s.db.GetContext(ctx, &avg, `SELECT AVG(duration_sec)`+where+` AND duration_sec > 0`, f, t); err != nil {
			return wrap("avg duration", err)
		}
		if avg.Valid {
			stats.AvgDuration = int(avg.Float64)
		}
		return nil
	})
	g.Go(func() error {
		return wrap("top pages", s.db.SelectContext(ctx, &stats.TopPages,
			`SELECT path, COUNT(*) AS views`+where+` GROUP BY path ORDER BY views DESC, path LIMIT 10`, f, t))
	})
	g.Go(func() error {
		return wrap("latest pages", s.db.SelectContext(ctx, &stats.LatestPages,
			`SELECT path, timestamp, browser`+where+` ORDER BY timestamp DESC, id DESC LIMIT 10`, f, t))
	})
	for col, dst := range map[string]*[]DimensionStat{
		"browser":  &stats.BrowserStats,
		"os":       &stats.OSStats,
		"device":   &stats.DeviceStats,
		"referrer": &stats.ReferrerStats,
	} {
		g.Go(func() error {
			return wrap(col+" stats", s.db.SelectContext(ctx, dst,
				`SELECT `+col+` AS name, COUNT(*) AS count`+where+` GROUP BY name ORDER BY count DESC, name LIMIT 10`, f, t))
		})
	}
	g.Go(func() error {
		return wrap("goals", s.db.SelectContext(ctx, &stats.Goals,
			`SELECT name, COUNT(*) AS count, COALESCE(SUM(value), 0) AS value FROM goals
			 WHERE timestamp >= ? AND timestamp < ? GROUP BY name ORDER BY count DESC, name`, f, t))
	})
	g.Go(func() error {
		return wrap("views series", s.db.SelectContext(ctx, &stats.DailyViews,
			`SELECT strftime(?, timestamp) AS date, COUNT(*) AS views`+where+` GROUP BY date ORDER BY date`,
			bucketFormat(hourly, monthly), f, t))
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetBotStats aggregates crawler visits in [from, to).
func (s *Store) GetBotStats(ctx context.Context, from, to time.Time, hourly, monthly bool) (*BotStats, error) {
	f, t := from.UTC().Format(timeLayout), to.UTC().Format(timeLayout)
	stats := &BotStats{
		Period:      period(from, to),
		TopBots:     []DimensionStat{},
		TopPages:    []PageStat{},
		DailyVisits: []DailyView{},
	}
	const where = ` FROM bot_visits WHERE timestamp >= ? AND timestamp < ?`

	if err := s.db.GetContext(ctx, &stats.TotalVisits, `SELECT COUNT(*)`+where, f, t); err != nil {
		return nil, wrap("count bot visits", err)
	}
	if err := s.db.SelectContext(ctx, &stats.TopBots,
		`SELECT bot_name AS name, COUNT(*) AS count`+where+` GROUP BY name ORDER BY count DESC, name LIMIT 10`, f, t); err != nil {
		return nil, wrap("top bots", err)
	}
	if err := s.db.SelectContext(ctx, &stats.TopPages,
		`SELECT path, COUNT(*) AS views`+where+` GROUP BY path ORDER BY views DESC, path LIMIT 10`, f, t); err != nil {
		return nil, wrap("top bot pages", err)
	}
	if err := s.db.SelectContext(ctx, &stats.DailyVisits,
		`SELECT strftime(?, timestamp) AS date, COUNT(*) AS views`+where+` GROUP BY date ORDER BY date`,
		bucketFormat(hourly, monthly), f, t); err != nil {
		return nil, wrap("bot views", err)
	}
	return stats, nil
}

// RealtimeVisitors counts unique visitors in the last five minutes.
func (s *Store) RealtimeVisitors(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ?`,
		now.UTC().Add(-5*time.Minute).Format(timeLayout))
	return n, err
}

// CleanupOldVisits removes visits, bot visits and goals older than the
// retention period.
func (s *Store) CleanupOldVisits(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(timeLayout)
	for _, table := range []string{"visits", "bot_visits", "goals"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE timestamp < ?`, cutoff); err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
	}
	return nil
}

// RunCleanup deletes expired rows every interval until ctx is done.
func (s *Store) RunCleanup(ctx context.Context, retentionDays int, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.CleanupOldVisits(ctx, retentionDays); err != nil && ctx.Err() == nil {
				log.Warn("analytics cleanup failed", zap.Error(err))
			}
		}
	}
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}
