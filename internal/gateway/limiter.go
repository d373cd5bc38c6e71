package gateway

import (
	"sync"
	"time"
)

// Limiter counts requests per key in fixed windows. The first request from a
// key opens a window of the configured length; the window resets once it
// expires. Check and increment happen under one lock, so concurrent bursts
// cannot undercount.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	duration  time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// Decision is the outcome of one Allow call, enough to fill the
// RateLimit-* response headers.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// NewLimiter allows limit requests per key per duration.
func NewLimiter(limit int, duration time.Duration) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

// Allow counts one request for key. A rejected request still counts.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &window{expiresAt: now.Add(l.duration)}
		l.windows[key] = w
	}
	w.count++

	remaining := l.limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   w.count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		Reset:     w.expiresAt.Sub(now),
	}
}

// sweep drops expired windows at most once per window length. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.duration {
		return
	}
	l.lastSweep = now
	for key, w := range l.windows {
		if !now.Before(w.expiresAt) {
			delete(l.windows, key)
		}
	}
}
