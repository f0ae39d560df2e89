package folio

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter rate-limits attempts per IP address with a token bucket
// that refills max tokens per window.
type LoginLimiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket
	max     int
	window  time.Duration
}

type ipBucket struct {
	lim  *rate.Limiter
	last time.Time
}

// NewLoginLimiter creates a LoginLimiter that allows max attempts per window.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		buckets: make(map[string]*ipBucket),
		max:     max,
		window:  window,
	}
}

func (l *LoginLimiter) bucket(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(rate.Every(l.window/time.Duration(l.max)), l.max)}
		l.buckets[ip] = b
	}
	b.last = now
	return b.lim
}

// Allow checks the limit and records the attempt.
func (l *LoginLimiter) Allow(ip string) bool {
	return l.bucket(ip, time.Now()).Allow()
}

// Check returns true if the IP has attempts left. It does not record one;
// call Record on failure.
func (l *LoginLimiter) Check(ip string) bool {
	now := time.Now()
	return l.bucket(ip, now).TokensAt(now) >= 1
}

// Record registers a failed attempt for the given IP.
func (l *LoginLimiter) Record(ip string) {
	l.bucket(ip, time.Now()).Allow()
}

// sweep forgets IPs not seen for a whole window.
func (l *LoginLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.buckets {
		if now.Sub(b.last) > l.window {
			delete(l.buckets, ip)
		}
	}
}

// Run sweeps idle entries until ctx is done.
func (l *LoginLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.sweep(now)
		}
	}
}
