package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/ashureev/influencer-desk/internal/identity"
	"github.com/coder/websocket"
)

const wsWriteTimeout = 5 * time.Second

// chatFrame is one client frame on /ws/chat.
type chatFrame struct {
	Type string `json:"type,omitempty"`
	EventRequest
}

// chatReply is one server frame on /ws/chat.
type chatReply struct {
	Type  string       `json:"type"`
	View  *domain.View `json:"view,omitempty"`
	Error string       `json:"error,omitempty"`
}

// connRegistry keeps one chat connection per user.
type connRegistry struct {
	mu     sync.Mutex
	active map[string]*websocket.Conn
	logger *slog.Logger
}

func newConnRegistry(logger *slog.Logger) *connRegistry {
	return &connRegistry{active: make(map[string]*websocket.Conn), logger: logger}
}

// Register makes conn the user's connection, closing any older one.
func (m *connRegistry) Register(userID string, conn *websocket.Conn) {
	m.mu.Lock()
	existing, ok := m.active[userID]
	m.active[userID] = conn
	m.mu.Unlock()

	if ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}
	m.logger.Info("Chat socket registered", "user_id", userID)
}

// Unregister removes conn if it is still the user's connection.
func (m *connRegistry) Unregister(userID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.active[userID]; ok && current == conn {
		delete(m.active, userID)
		m.logger.Info("Chat socket unregistered", "user_id", userID)
	}
}

// Get returns the user's active connection.
func (m *connRegistry) Get(userID string) *websocket.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[userID]
}

// CloseAll closes every registered connection.
func (m *connRegistry) CloseAll() {
	m.mu.Lock()
	conns := m.active
	m.active = make(map[string]*websocket.Conn)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}()
	}
	wg.Wait()
}

// ServeChat upgrades GET /ws/chat and runs the event loop for one user.
func (h *Handler) ServeChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	ws.SetReadLimit(maxEventBodySize)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.sockets.Register(userID, ws)
	defer h.sockets.Unregister(userID, ws)

	h.chatLoop(r.Context(), ws, userID)
}

func (h *Handler) chatLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug("Chat socket closed", "user_id", userID)
			} else {
				h.logger.Warn("Chat socket read error", "error", err, "user_id", userID)
			}
			return
		}

		var frame chatFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.reply(ctx, ws, chatReply{Type: "error", Error: "invalid frame"})
			continue
		}
		if frame.Type == "ping" {
			h.reply(ctx, ws, chatReply{Type: "pong"})
			continue
		}
		if err := frame.validate(); err != nil {
			h.reply(ctx, ws, chatReply{Type: "error", Error: err.Error()})
			continue
		}
		if !h.limiter.Allow(userID) {
			h.reply(ctx, ws, chatReply{Type: "error", Error: "rate limit exceeded"})
			continue
		}

		view, err := h.ctrl.Handle(ctx, domain.Event{UserID: userID, Kind: frame.Kind, Payload: frame.Payload})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Error("Event handling failed", "user_id", userID, "error", err)
			h.reply(ctx, ws, chatReply{Type: "error", Error: "failed to handle event"})
			continue
		}
		h.reply(ctx, ws, chatReply{Type: "view", View: &view})
	}
}

func (h *Handler) reply(ctx context.Context, ws *websocket.Conn, msg chatReply) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("Failed to marshal chat reply", "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := ws.Write(writeCtx, websocket.MessageText, data); err != nil {
		h.logger.Debug("Chat socket write error", "error", err)
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.origins) == 0 || slices.Contains(h.origins, "*") {
		return true
	}
	if slices.Contains(h.origins, origin) {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.origins)
	return false
}
