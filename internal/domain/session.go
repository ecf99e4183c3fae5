// Package domain contains core domain types for the influencer desk.
package domain

import (
	"maps"
	"slices"
	"time"
)

// Stage is the top-level phase of a conversation.
type Stage string

const (
	StageRegistration             Stage = "registration"
	StageFilterCollection         Stage = "filter_collection"
	StageAdvancedFilterCollection Stage = "advanced_filter_collection"
	StageResults                  Stage = "results"
)

// Flags holds the per-session booleans that influence step derivation.
type Flags struct {
	Greeted        bool `json:"greeted"`
	Saved          bool `json:"saved"`
	Paid           bool `json:"paid"`
	AdvancedChosen bool `json:"advanced_chosen"`
	AdvancedMode   bool `json:"advanced_mode"`
}

// HistoryEntry is one turn of the bounded conversation history.
type HistoryEntry struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// ResultState is the snapshot of an executed search and the user's picks.
type ResultState struct {
	Ready        bool     `json:"ready"`
	Records      []Record `json:"records,omitempty"`
	Page         int      `json:"page"`
	Picked       []string `json:"picked,omitempty"`
	ExportFormat string   `json:"export_format,omitempty"`
}

// Session holds the mutable conversation state for one user.
//
// Fields, flags and the pending age answer are unexported: they are the only
// inputs of step derivation and every mutation invalidates the cached step.
type Session struct {
	UserID     string            `json:"user_id"`
	Stage      Stage             `json:"stage"`
	LastPrompt string            `json:"last_prompt,omitempty"`
	Drafts     map[Slot][]string `json:"drafts,omitempty"`
	DraftPage  map[Slot]int      `json:"draft_page,omitempty"`
	History    []HistoryEntry    `json:"history,omitempty"`
	Results    ResultState       `json:"results"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	fields     Fields
	flags      Flags
	pendingAge *int
	step       Step
	stepValid  bool
}

// NewSession creates an empty registration-stage session.
func NewSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:    userID,
		Stage:     StageRegistration,
		Drafts:    make(map[Slot][]string),
		DraftPage: make(map[Slot]int),
		CreatedAt: now,
		UpdatedAt: now,
		fields:    make(Fields),
	}
}

// Field returns the stored value for a slot.
func (s *Session) Field(slot Slot) (Value, bool) {
	v, ok := s.fields[slot]
	if !ok || v.IsEmpty() {
		return Value{}, false
	}
	return v.Clone(), true
}

// HasField reports whether the slot holds a value or an explicit skip.
func (s *Session) HasField(slot Slot) bool {
	v, ok := s.fields[slot]
	return ok && !v.IsEmpty()
}

// SetField stores a value. Empty values are ignored.
func (s *Session) SetField(slot Slot, v Value) {
	if v.IsEmpty() {
		return
	}
	if s.fields == nil {
		s.fields = make(Fields)
	}
	s.fields[slot] = v.Clone()
	s.invalidate()
}

// ClearField removes a slot value.
func (s *Session) ClearField(slot Slot) {
	if _, ok := s.fields[slot]; !ok {
		return
	}
	delete(s.fields, slot)
	s.invalidate()
}

// Fields returns a copy of the slot map.
func (s *Session) Fields() Fields {
	return s.fields.Clone()
}

// Flags returns the current flag set.
func (s *Session) Flags() Flags {
	return s.flags
}

// UpdateFlags mutates the flags and invalidates the cached step.
func (s *Session) UpdateFlags(fn func(f *Flags)) {
	fn(&s.flags)
	s.invalidate()
}

// PendingAge returns the bare number awaiting disambiguation, if any.
func (s *Session) PendingAge() (int, bool) {
	if s.pendingAge == nil {
		return 0, false
	}
	return *s.pendingAge, true
}

// SetPendingAge enters the age disambiguation micro-step.
func (s *Session) SetPendingAge(n int) {
	s.pendingAge = &n
	s.invalidate()
}

// ClearPendingAge leaves the age disambiguation micro-step.
func (s *Session) ClearPendingAge() {
	if s.pendingAge == nil {
		return
	}
	s.pendingAge = nil
	s.invalidate()
}

// CachedStep returns the cached step if it is still valid.
func (s *Session) CachedStep() (Step, bool) {
	return s.step, s.stepValid
}

// CacheStep stores a freshly derived step.
func (s *Session) CacheStep(step Step) {
	s.step = step
	s.stepValid = true
}

func (s *Session) invalidate() {
	s.step = ""
	s.stepValid = false
}

// AppendHistory records a turn and prunes entries by age and count.
func (s *Session) AppendHistory(role, text string, at time.Time, maxEntries int, maxAge time.Duration) {
	s.History = append(s.History, HistoryEntry{Role: role, Text: text, At: at})
	if maxAge > 0 {
		cutoff := at.Add(-maxAge)
		s.History = slices.DeleteFunc(s.History, func(e HistoryEntry) bool {
			return e.At.Before(cutoff)
		})
	}
	if maxEntries > 0 && len(s.History) > maxEntries {
		s.History = slices.Clone(s.History[len(s.History)-maxEntries:])
	}
}

// TogglePicked adds or removes a handle from the picked set.
func (s *Session) TogglePicked(handle string) {
	if i := slices.Index(s.Results.Picked, handle); i >= 0 {
		s.Results.Picked = slices.Delete(s.Results.Picked, i, i+1)
		return
	}
	s.Results.Picked = append(s.Results.Picked, handle)
	slices.Sort(s.Results.Picked)
}

// Clone returns a deep copy safe to hand across goroutines.
func (s *Session) Clone() *Session {
	c := *s
	c.fields = s.fields.Clone()
	if s.pendingAge != nil {
		n := *s.pendingAge
		c.pendingAge = &n
	}
	c.Drafts = make(map[Slot][]string, len(s.Drafts))
	for k, v := range s.Drafts {
		c.Drafts[k] = slices.Clone(v)
	}
	c.DraftPage = maps.Clone(s.DraftPage)
	if c.DraftPage == nil {
		c.DraftPage = make(map[Slot]int)
	}
	c.History = slices.Clone(s.History)
	c.Results.Records = slices.Clone(s.Results.Records)
	c.Results.Picked = slices.Clone(s.Results.Picked)
	return &c
}
