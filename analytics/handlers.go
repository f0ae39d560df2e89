package analytics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler handles analytics HTTP requests.
type Handler struct {
	store   *Store
	salt    string
	limiter *KeyedLimiter
	log     *zap.Logger
	now     func() time.Time
}

// NewHandler creates an analytics handler. Collection endpoints are limited
// to 60 requests per IP per minute.
func NewHandler(store *Store, salt string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		store:   store,
		salt:    salt,
		limiter: NewKeyedLimiter(60, time.Minute),
		log:     log,
		now:     time.Now,
	}
}

// Limiter exposes the collection rate limiter so the caller can sweep it.
func (h *Handler) Limiter() *KeyedLimiter {
	return h.limiter
}

// CollectRequest is the expected request body for the collect endpoint.
type CollectRequest struct {
	Path        string `json:"path"`
	Referrer    string `json:"referrer"`
	ScreenSize  string `json:"screen_size"`
	UserAgent   string `json:"user_agent"`
	DurationSec int    `json:"duration_sec"`
}

// GoalRequest is the expected request body for the goal endpoint.
type GoalRequest struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Value int    `json:"value"`
}

const (
	maxPathLen       = 2048
	maxReferrerLen   = 2048
	maxScreenSizeLen = 32
	maxUserAgentLen  = 512
	maxGoalNameLen   = 64
	maxDurationSec   = 86400
	maxGoalValue     = 100_000_000
)

func (r *CollectRequest) validate() error {
	switch {
	case len(r.Path) > maxPathLen:
		return fmt.Errorf("path exceeds maximum length of %d", maxPathLen)
	case len(r.Referrer) > maxReferrerLen:
		return fmt.Errorf("referrer exceeds maximum length of %d", maxReferrerLen)
	case len(r.ScreenSize) > maxScreenSizeLen:
		return fmt.Errorf("screen_size exceeds maximum length of %d", maxScreenSizeLen)
	case len(r.UserAgent) > maxUserAgentLen:
		return fmt.Errorf("user_agent exceeds maximum length of %d", maxUserAgentLen)
	case r.DurationSec < 0 || r.DurationSec > maxDurationSec:
		return fmt.Errorf("duration_sec out of range")
	}
	return nil
}

func (r *GoalRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	switch {
	case r.Name == "":
		return fmt.Errorf("name is required")
	case len(r.Name) > maxGoalNameLen:
		return fmt.Errorf("name exceeds maximum length of %d", maxGoalNameLen)
	case len(r.Path) > maxPathLen:
		return fmt.Errorf("path exceeds maximum length of %d", maxPathLen)
	case r.Value < 0 || r.Value > maxGoalValue:
		return fmt.Errorf("value out of range")
	}
	return nil
}

// Collect records a page view sent by the tracking script.
func (h *Handler) Collect(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}
	if err := req.validate(); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}

	ctx := c.Request().Context()
	ua := req.UserAgent
	if ua == "" {
		ua = c.Request().UserAgent()
	}
	ip := c.RealIP()
	now := h.now().UTC()

	if IsBot(ua) {
		err := h.store.SaveBotVisit(ctx, &BotVisit{
			BotName:   ExtractBotName(ua),
			IPHash:    HashIP(h.salt, ip),
			UserAgent: ua,
			Path:      req.Path,
			Timestamp: now,
		})
		if err != nil {
			h.log.Error("save bot visit", zap.Error(err))
		}
		return c.NoContent(http.StatusNoContent)
	}

	visitorID := VisitorID(h.salt, ip, ua)

	// A non-zero duration comes from the unload beacon of a view that was
	// already recorded.
	if req.DurationSec > 0 {
		if err := h.store.UpdateVisitDuration(ctx, visitorID, req.Path, req.DurationSec); err != nil {
			h.log.Error("update visit duration", zap.Error(err))
		}
		return c.NoContent(http.StatusNoContent)
	}

	browser, os, device := ParseUserAgent(ua)
	err := h.store.SaveVisit(ctx, &Visit{
		VisitorID:  visitorID,
		SessionID:  SessionID(visitorID, now),
		IPHash:     HashIP(h.salt, ip),
		Browser:    browser,
		OS:         os,
		Device:     device,
		Path:       req.Path,
		Referrer:   CleanReferrer(req.Referrer),
		ScreenSize: req.ScreenSize,
		Timestamp:  now,
	})
	if err != nil {
		h.log.Error("save visit", zap.Error(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// TrackGoal records a goal completion. Crawlers and DNT clients are ignored.
func (h *Handler) TrackGoal(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var req GoalRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}
	if err := req.validate(); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}

	ua := c.Request().UserAgent()
	if IsBot(ua) {
		return c.NoContent(http.StatusNoContent)
	}
	err := h.store.SaveGoal(c.Request().Context(), &Goal{
		Name:      req.Name,
		Path:      req.Path,
		VisitorID: VisitorID(h.salt, c.RealIP(), ua),
		Value:     req.Value,
		Timestamp: h.now().UTC(),
	})
	if err != nil {
		h.log.Error("save goal", zap.String("goal", req.Name), zap.Error(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// StatsResponse is the JSON response for the stats endpoint.
type StatsResponse struct {
	Stats      *Stats `json:"stats"`
	Realtime   int    `json:"realtime_visitors"`
	PeriodDays int    `json:"period_days"`
	Hourly     bool   `json:"hourly"`
	Monthly    bool   `json:"monthly"`
}

// GetStats returns analytics statistics as JSON.
func (h *Handler) GetStats(c echo.Context) error {
	p := parsePeriod(c.QueryParam("period"))
	now := h.now().UTC()
	from, to := calcTimeRange(now, p.days, p.hourly)
	ctx := c.Request().Context()

	stats, err := h.store.GetStats(ctx, from, to, p.hourly, p.monthly)
	if err != nil {
		h.log.Error("get stats", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if p.hourly {
		stats.DailyViews = fillHourlyData(stats.DailyViews, from)
	}
	realtime, err := h.store.RealtimeVisitors(ctx, now)
	if err != nil {
		h.log.Warn("realtime visitors", zap.Error(err))
	}

	return c.JSON(http.StatusOK, StatsResponse{
		Stats:      stats,
		Realtime:   realtime,
		PeriodDays: p.days,
		Hourly:     p.hourly,
		Monthly:    p.monthly,
	})
}

// BotStatsResponse is the JSON response for the bot stats endpoint.
type BotStatsResponse struct {
	Stats      *BotStats `json:"stats"`
	PeriodDays int       `json:"period_days"`
	Hourly     bool      `json:"hourly"`
	Monthly    bool      `json:"monthly"`
}

// GetBotStats returns crawler statistics as JSON.
func (h *Handler) GetBotStats(c echo.Context) error {
	p := parsePeriod(c.QueryParam("period"))
	from, to := calcTimeRange(h.now().UTC(), p.days, p.hourly)

	stats, err := h.store.GetBotStats(c.Request().Context(), from, to, p.hourly, p.monthly)
	if err != nil {
		h.log.Error("get bot stats", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if p.hourly {
		stats.DailyVisits = fillHourlyData(stats.DailyVisits, from)
	}
	return c.JSON(http.StatusOK, BotStatsResponse{
		Stats:      stats,
		PeriodDays: p.days,
		Hourly:     p.hourly,
		Monthly:    p.monthly,
	})
}

// Periods are the windows the dashboard offers, shortest first.
var Periods = []string{"today", "week", "month", "year"}

// Report is what the dashboard shows for one period.
type Report struct {
	Period   string
	Hourly   bool
	Monthly  bool
	Visitors *Stats
	Bots     *BotStats
	Realtime int
}

// Report gathers visitor and crawler statistics for the named period.
// Unknown names fall back to the last week.
func (h *Handler) Report(ctx context.Context, period string) (Report, error) {
	p := parsePeriod(period)
	now := h.now().UTC()
	from, to := calcTimeRange(now, p.days, p.hourly)
	r := Report{Period: p.name, Hourly: p.hourly, Monthly: p.monthly}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := h.store.GetStats(gctx, from, to, p.hourly, p.monthly)
		if err != nil {
			return err
		}
		if p.hourly {
			stats.DailyViews = fillHourlyData(stats.DailyViews, from)
		}
		r.Visitors = stats
		return nil
	})
	g.Go(func() error {
		bots, err := h.store.GetBotStats(gctx, from, to, p.hourly, p.monthly)
		if err != nil {
			return err
		}
		if p.hourly {
			bots.DailyVisits = fillHourlyData(bots.DailyVisits, from)
		}
		r.Bots = bots
		return nil
	})
	g.Go(func() error {
		n, err := h.store.RealtimeVisitors(gctx, now)
		if err != nil {
			h.log.Warn("realtime visitors", zap.Error(err))
			return nil
		}
		r.Realtime = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return r, nil
}

type periodSpec struct {
	name    string
	days    int
	hourly  bool
	monthly bool
}

func parsePeriod(name string) periodSpec {
	switch name {
	case "today":
		return periodSpec{name: name, days: 1, hourly: true}
	case "month":
		return periodSpec{name: name, days: 30}
	case "year":
		return periodSpec{name: name, days: 365, monthly: true}
	default:
		return periodSpec{name: "week", days: 7}
	}
}

// calcTimeRange returns the [from, to) window for a period ending at now.
func calcTimeRange(now time.Time, days int, hourly bool) (time.Time, time.Time) {
	if hourly {
		from := now.Truncate(time.Hour).Add(-23 * time.Hour)
		return from, now.Add(time.Second)
	}
	from := now.AddDate(0, 0, -days).Truncate(24 * time.Hour)
	to := now.Add(24 * time.Hour).Truncate(24 * time.Hour)
	return from, to
}

// fillHourlyData ensures all 24 hourly slots are present, filling gaps with zero.
func fillHourlyData(sparse []DailyView, from time.Time) []DailyView {
	byHour := make(map[string]int, len(sparse))
	for _, v := range sparse {
		byHour[v.Date] = v.Views
	}
	result := make([]DailyView, 24)
	for i := range result {
		label := fmt.Sprintf("%02d:00", from.Add(time.Duration(i)*time.Hour).Hour())
		result[i] = DailyView{Date: label, Views: byHour[label]}
	}
	return result
}

// RegisterRoutes mounts the public collection endpoints on e and the stats
// API under /admin/analytics behind auth.
func (h *Handler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.POST("/api/analytics/collect", h.Collect)
	e.POST("/api/analytics/goal", h.TrackGoal)

	admin := e.Group("/admin/analytics", auth)
	admin.GET("/api/stats", h.GetStats)
	admin.GET("/api/bot-stats", h.GetBotStats)
}
