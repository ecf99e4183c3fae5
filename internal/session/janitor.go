package session

import (
	"context"
	"time"
)

// StartJanitor evicts sessions idle for longer than idleTTL, checking every
// interval. A non-positive idleTTL disables eviction. The returned channel
// is closed once the janitor has stopped.
func (m *MemoryStore) StartJanitor(ctx context.Context, idleTTL, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if idleTTL <= 0 {
		close(done)
		return done
	}
	if interval <= 0 {
		interval = min(idleTTL, 5*time.Minute)
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		m.logger.Info("Session janitor started", "interval", interval, "idle_ttl", idleTTL)

		for {
			select {
			case <-ticker.C:
				if n := m.EvictIdle(idleTTL); n > 0 {
					m.logger.Info("Session janitor evicted idle sessions", "count", n)
				}
			case <-ctx.Done():
				m.logger.Info("Session janitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

// EvictIdle removes sessions not updated within idleTTL whose user holds
// no lock, and returns how many were removed.
func (m *MemoryStore) EvictIdle(idleTTL time.Duration) int {
	cutoff := m.now().Add(-idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if _, busy := m.locks[id]; busy {
			continue
		}
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}
