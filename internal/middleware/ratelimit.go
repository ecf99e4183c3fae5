package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-key token bucket. The key is the user id, so
// clients cannot bypass throttling by opening more connections.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute events per key with a burst of the same
// size. A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	r := &RateLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Inf,
		burst:   1,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
	if perMinute > 0 {
		r.limit = rate.Limit(float64(perMinute) / 60)
		r.burst = perMinute
	}
	return r
}

// Allow reports whether one more event for key fits in its bucket.
func (r *RateLimiter) Allow(key string) bool {
	if r.limit == rate.Inf {
		return true
	}
	now := r.now()

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(r.limit, r.burst)}
		r.entries[key] = e
	}
	e.lastSeen = now
	r.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

// Evict drops keys idle for longer than the idle window and returns how
// many were removed.
func (r *RateLimiter) Evict() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, key)
			n++
		}
	}
	return n
}

// Run evicts idle keys every interval until ctx is done.
func (r *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.idle
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Evict()
		case <-ctx.Done():
			return
		}
	}
}

// RateLimit rejects requests over the per-key budget with 429. keyFn maps a
// request to its key; an empty key is never limited.
func RateLimit(r *RateLimiter, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if key := keyFn(req); key != "" && !r.Allow(key) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				http.Error(w, `{"error": "rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
