package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRateLimiterPerKey(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "keys have separate buckets")

	now = now.Add(31 * time.Second)
	assert.True(t, rl.Allow("a"), "one token refills after half a minute")
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0)
	for range 1000 {
		require.True(t, rl.Allow("a"))
	}
}

func TestRateLimiterEvictsIdleKeys(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(rl.idle + time.Second)
	rl.Allow("fresh")

	assert.Equal(t, 1, rl.Evict())
	assert.Contains(t, rl.entries, "fresh")
	assert.NotContains(t, rl.entries, "old")
}

func TestRateLimiterRunStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewRateLimiter(5).Run(ctx, time.Millisecond)
	}()
	cancel()
	<-done
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1)
	h := RateLimit(rl, func(r *http.Request) string { return r.Header.Get("X-User-ID") })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/events", nil)
		req.Header.Set("X-User-ID", user)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("u1"))
	assert.Equal(t, http.StatusTooManyRequests, call("u1"))
	assert.Equal(t, http.StatusNoContent, call("u2"))
	assert.Equal(t, http.StatusNoContent, call(""))
	assert.Equal(t, http.StatusNoContent, call(""))
}
