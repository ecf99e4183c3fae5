// Package session keeps one conversation state per user.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/influencer-desk/internal/domain"
)

// ErrNotFound is returned by Load for an unknown user.
var ErrNotFound = errors.New("session not found")

// Store loads and saves sessions and serializes work per user.
type Store interface {
	Load(ctx context.Context, userID string) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	// WithLock runs fn while holding the user's lock. Calls for different
	// users run in parallel.
	WithLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error
}

// userLock is a cancellable mutex shared by the callers of one user id.
type userLock struct {
	ch   chan struct{}
	refs int
}

// MemoryStore is an in-process Store. Loaded and saved sessions are deep
// copies, so callers never share state with the map.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	locks    map[string]*userLock
	now      func() time.Time
	logger   *slog.Logger
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		locks:    make(map[string]*userLock),
		now:      time.Now,
		logger:   logger,
	}
}

// Load returns a copy of the user's session.
func (m *MemoryStore) Load(_ context.Context, userID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Save stores a copy of the session.
func (m *MemoryStore) Save(_ context.Context, s *domain.Session) error {
	if s == nil || s.UserID == "" {
		return errors.New("session: save requires a user id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.UserID] = s.Clone()
	return nil
}

// Delete drops a session.
func (m *MemoryStore) Delete(_ context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// WithLock serializes fn against other calls for the same user. Waiting
// for the lock is abandoned when ctx is done.
func (m *MemoryStore) WithLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	l := m.acquireRef(userID)
	defer m.releaseRef(userID, l)

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.ch }()

	return fn(ctx)
}

func (m *MemoryStore) acquireRef(userID string) *userLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{ch: make(chan struct{}, 1)}
		m.locks[userID] = l
	}
	l.refs++
	return l
}

func (m *MemoryStore) releaseRef(userID string, l *userLock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(m.locks, userID)
	}
}

var _ Store = (*MemoryStore)(nil)
