// Package api provides the HTTP and WebSocket surfaces of the desk.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/ashureev/influencer-desk/internal/identity"
	"github.com/ashureev/influencer-desk/internal/middleware"
	"github.com/go-chi/chi/v5"
)

const maxEventBodySize = 16 << 10

// Controller is the conversation engine behind every transport.
type Controller interface {
	Handle(ctx context.Context, ev domain.Event) (domain.View, error)
	Snapshot(ctx context.Context, userID string) (*domain.Session, error)
}

// OptionSource lists the multi-select choices for a slot.
type OptionSource interface {
	Options(ctx context.Context, slot domain.Slot, limit int) ([]string, error)
}

// Handler serves the JSON API and the chat socket.
type Handler struct {
	ctrl    Controller
	options OptionSource
	limiter *middleware.RateLimiter
	sockets *connRegistry
	origins []string
	logger  *slog.Logger
}

// NewHandler creates a Handler. limiter may be nil to disable throttling.
func NewHandler(ctrl Controller, options OptionSource, limiter *middleware.RateLimiter, origins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = middleware.NewRateLimiter(0)
	}
	return &Handler{
		ctrl:    ctrl,
		options: options,
		limiter: limiter,
		sockets: newConnRegistry(logger),
		origins: origins,
		logger:  logger,
	}
}

// RegisterRoutes mounts the API on r. Identity middleware must run first.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimit(h.limiter, userKey)).Post("/events", h.HandleEvent)
		r.Get("/session", h.HandleSession)
		r.Get("/options/{slot}", h.HandleOptions)
	})
	r.Get("/ws/chat", h.ServeChat)
}

// Close drops every open chat socket.
func (h *Handler) Close() {
	h.sockets.CloseAll()
}

func userKey(r *http.Request) string {
	return identity.UserIDFromContext(r.Context())
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
