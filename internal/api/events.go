package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/ashureev/influencer-desk/internal/flow"
	"github.com/ashureev/influencer-desk/internal/identity"
	"github.com/ashureev/influencer-desk/internal/session"
	"github.com/go-chi/chi/v5"
)

// EventRequest is the body of POST /api/events and of chat socket frames.
type EventRequest struct {
	Kind    domain.EventKind `json:"kind"`
	Payload string           `json:"payload"`
}

func (req EventRequest) validate() error {
	switch req.Kind {
	case domain.EventText, domain.EventButton, domain.EventContact, domain.EventStart:
	default:
		return errors.New("kind must be one of text, button, contact, start")
	}
	if req.Kind != domain.EventStart && req.Payload == "" {
		return errors.New("payload is required")
	}
	return nil
}

// SessionView is the JSON snapshot served by GET /api/session.
type SessionView struct {
	UserID     string                       `json:"user_id"`
	Stage      domain.Stage                 `json:"stage"`
	Step       domain.Step                  `json:"step"`
	Fields     map[domain.Slot]domain.Value `json:"fields"`
	Flags      domain.Flags                 `json:"flags"`
	PendingAge *int                         `json:"pending_age,omitempty"`
	Drafts     map[domain.Slot][]string     `json:"drafts,omitempty"`
	Results    ResultsView                  `json:"results"`
	LastPrompt string                       `json:"last_prompt,omitempty"`
	History    []domain.HistoryEntry        `json:"history,omitempty"`
	UpdatedAt  time.Time                    `json:"updated_at"`
}

// ResultsView summarizes the stored search without the records themselves.
type ResultsView struct {
	Ready  bool     `json:"ready"`
	Count  int      `json:"count"`
	Page   int      `json:"page"`
	Picked []string `json:"picked,omitempty"`
}

func newSessionView(s *domain.Session, step domain.Step) SessionView {
	v := SessionView{
		UserID:     s.UserID,
		Stage:      s.Stage,
		Step:       step,
		Fields:     s.Fields(),
		Flags:      s.Flags(),
		Drafts:     s.Drafts,
		LastPrompt: s.LastPrompt,
		History:    s.History,
		UpdatedAt:  s.UpdatedAt,
		Results: ResultsView{
			Ready:  s.Results.Ready,
			Count:  len(s.Results.Records),
			Page:   s.Results.Page,
			Picked: s.Results.Picked,
		},
	}
	if n, ok := s.PendingAge(); ok {
		v.PendingAge = &n
	}
	return v
}

// HandleEvent handles POST /api/events.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req EventRequest
	if !decodeJSON(w, r, maxEventBodySize, &req) {
		return
	}
	if err := req.validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.ctrl.Handle(r.Context(), domain.Event{UserID: userID, Kind: req.Kind, Payload: req.Payload})
	if err != nil {
		h.writeHandleError(w, userID, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

func (h *Handler) writeHandleError(w http.ResponseWriter, userID string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.logger.Warn("Event abandoned", "user_id", userID, "error", err)
		Error(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}
	h.logger.Error("Event handling failed", "user_id", userID, "error", err)
	Error(w, http.StatusInternalServerError, "failed to handle event")
}

// HandleSession handles GET /api/session.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s, err := h.ctrl.Snapshot(r.Context(), userID)
	if errors.Is(err, session.ErrNotFound) {
		Error(w, http.StatusNotFound, "no session")
		return
	}
	if err != nil {
		h.logger.Error("Session snapshot failed", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	JSON(w, http.StatusOK, newSessionView(s, flow.CurrentStep(s)))
}

// HandleOptions handles GET /api/options/{slot}.
func (h *Handler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	slot, ok := domain.ParseSlot(chi.URLParam(r, "slot"))
	if !ok || slot.Kind() != domain.KindSet || slot == domain.SlotContentFormats {
		Error(w, http.StatusNotFound, "unknown option slot")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	opts, err := h.options.Options(r.Context(), slot, limit)
	if err != nil {
		h.logger.Error("Options unavailable", "slot", slot, "error", err)
		Error(w, http.StatusServiceUnavailable, "options unavailable")
		return
	}
	if opts == nil {
		opts = []string{}
	}
	JSON(w, http.StatusOK, map[string]any{"slot": slot, "options": opts})
}
