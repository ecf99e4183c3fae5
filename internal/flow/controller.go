package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/influencer-desk/internal/access"
	"github.com/ashureev/influencer-desk/internal/catalog"
	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/ashureev/influencer-desk/internal/export"
	"github.com/ashureev/influencer-desk/internal/intent"
	"github.com/ashureev/influencer-desk/internal/session"
	"github.com/ashureev/influencer-desk/internal/slots"
	"github.com/ashureev/influencer-desk/internal/store"
	"github.com/google/uuid"
)

// PaymentMode selects whether results sit behind the mock paywall.
type PaymentMode string

const (
	// PaymentMock asks for a confirmation before showing results.
	PaymentMock PaymentMode = "mock"
	// PaymentMockFree shows results directly.
	PaymentMockFree PaymentMode = "mock_free"
)

// Config tunes the controller.
type Config struct {
	PageSize        int
	ResultsLimit    int
	CitiesLimit     int
	TopicsLimit     int
	OptionsPerPage  int
	MaxHistory      int
	HistoryTTL      time.Duration
	IntentTimeout   time.Duration
	PaymentMode     PaymentMode
	PaymentPrice    int
	PaymentCurrency string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PageSize:        5,
		ResultsLimit:    0,
		CitiesLimit:     25,
		TopicsLimit:     10,
		OptionsPerPage:  6,
		MaxHistory:      12,
		HistoryTTL:      24 * time.Hour,
		IntentTimeout:   3 * time.Second,
		PaymentMode:     PaymentMockFree,
		PaymentPrice:    5000,
		PaymentCurrency: "KZT",
	}
}

// RecordSource supplies the search snapshot and the multi-select options.
type RecordSource interface {
	Records(ctx context.Context) ([]domain.Record, error)
	Options(ctx context.Context, slot domain.Slot, limit int) ([]string, error)
}

// Deps are the collaborators of the controller.
type Deps struct {
	Sessions   session.Store
	Extractor  intent.Extractor // optional; the fallback is used when nil
	Profiles   store.ProfileWriter
	Selections store.SelectionWriter
	Records    RecordSource
	Exporters  *export.Registry
	Gate       *access.Gate
	Catalog    *catalog.Catalog
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

// Controller turns inbound events into views, one user at a time.
type Controller struct {
	cfg        Config
	sessions   session.Store
	extractor  intent.Extractor
	fallback   intent.Extractor
	profiles   store.ProfileWriter
	selections store.SelectionWriter
	records    RecordSource
	exporters  *export.Registry
	gate       *access.Gate
	cat        *catalog.Catalog
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// New wires a controller. Sessions, Profiles, Selections and Records are
// required.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Sessions == nil || deps.Profiles == nil || deps.Selections == nil || deps.Records == nil {
		return nil, errors.New("flow: sessions, profiles, selections and records are required")
	}
	c := &Controller{
		cfg:        cfg,
		sessions:   deps.Sessions,
		extractor:  deps.Extractor,
		fallback:   slots.FallbackExtractor{},
		profiles:   deps.Profiles,
		selections: deps.Selections,
		records:    deps.Records,
		exporters:  deps.Exporters,
		gate:       deps.Gate,
		cat:        deps.Catalog,
		logger:     deps.Logger,
		now:        deps.Now,
		newID:      deps.NewID,
	}
	if c.exporters == nil {
		c.exporters = export.NewRegistry(export.CSV{})
	}
	if c.gate == nil {
		c.gate = access.NewGate(access.ModeDev, nil, deps.Logger)
	}
	if c.cat == nil {
		c.cat = catalog.Default()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.cfg.PageSize <= 0 {
		c.cfg.PageSize = 5
	}
	if c.cfg.OptionsPerPage <= 0 {
		c.cfg.OptionsPerPage = 6
	}
	if c.cfg.PaymentMode == "" {
		c.cfg.PaymentMode = PaymentMockFree
	}
	return c, nil
}

// Handle processes one event under the user's lock and returns the view to
// render. Errors are limited to session storage and cancellation; domain
// failures are expressed in the view.
func (c *Controller) Handle(ctx context.Context, ev domain.Event) (domain.View, error) {
	ev.UserID = strings.TrimSpace(ev.UserID)
	if ev.UserID == "" {
		return domain.View{}, errors.New("flow: event without user id")
	}

	if ev.Kind == domain.EventStart {
		c.gate.Redeem(ev.UserID, ev.Payload)
	}
	if !c.gate.Allowed(ev.UserID) {
		c.logger.Info("Locked user event ignored", "user_id", ev.UserID, "kind", ev.Kind)
		return domain.View{Text: c.cat.Messages.Locked}, nil
	}

	var view domain.View
	err := c.sessions.WithLock(ctx, ev.UserID, func(ctx context.Context) error {
		now := c.now()
		s, err := c.sessions.Load(ctx, ev.UserID)
		if errors.Is(err, session.ErrNotFound) {
			s = domain.NewSession(ev.UserID, now)
		} else if err != nil {
			return fmt.Errorf("load session: %w", err)
		}

		if ev.Kind != domain.EventStart && ev.Payload != "" {
			s.AppendHistory("user", ev.Payload, now, c.cfg.MaxHistory, c.cfg.HistoryTTL)
		}

		view = c.turn(ctx, s, ev)

		s.LastPrompt = view.Text
		s.UpdatedAt = now
		s.AppendHistory("assistant", view.Text, now, c.cfg.MaxHistory, c.cfg.HistoryTTL)

		if err := c.sessions.Save(ctx, s); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.View{}, err
	}
	return view, nil
}

// Snapshot returns a copy of the user's session for inspection.
func (c *Controller) Snapshot(ctx context.Context, userID string) (*domain.Session, error) {
	return c.sessions.Load(ctx, userID)
}

// turn runs the merge, the single step recomputation and any terminal action.
func (c *Controller) turn(ctx context.Context, s *domain.Session, ev domain.Event) domain.View {
	var greeting string
	if !s.Flags().Greeted {
		s.UpdateFlags(func(f *domain.Flags) { f.Greeted = true })
		greeting = c.cat.Greeting
	}

	if ev.Kind == domain.EventButton && ev.Payload == actionRestart {
		c.restart(s)
		return c.finish(ctx, s, notice{text: c.cat.Messages.Restarted})
	}
	if ev.Kind == domain.EventStart {
		return c.finish(ctx, s, notice{text: greeting})
	}

	step := CurrentStep(s)
	if step == domain.StepDone && s.Results.Ready {
		if v, handled := c.resultsAction(ctx, s, ev); handled {
			return v
		}
	}
	n := c.apply(ctx, s, step, ev)
	n.text = joinText(greeting, n.text)
	return c.finish(ctx, s, n)
}

// notice carries per-turn messages that precede the next prompt.
type notice struct {
	text     string
	question string
}

// apply mutates the session for an event addressed to step.
func (c *Controller) apply(ctx context.Context, s *domain.Session, step domain.Step, ev domain.Event) notice {
	if step == domain.StepRegistrationDone && ev.Kind != domain.EventButton {
		return notice{}
	}
	if ev.Kind == domain.EventButton {
		target, rest, _ := strings.Cut(ev.Payload, ":")
		if domain.Step(target) != step {
			c.logger.Info("Stale step event", "user_id", s.UserID, "step", step, "payload", ev.Payload)
			return notice{text: c.cat.Messages.Stale}
		}
		return c.applyButton(ctx, s, step, rest)
	}

	text := strings.TrimSpace(ev.Payload)
	if ev.Kind == domain.EventText {
		switch step {
		case domain.StepAge, domain.StepAgeClarify:
			if n, ok := slots.BareAge(text); ok {
				s.SetPendingAge(n)
				return notice{}
			}
			if step == domain.StepAgeClarify {
				if choice, ok := c.clarifyChoiceFromText(text); ok {
					c.commitAgeChoice(s, choice)
					return notice{}
				}
				step = domain.StepAge
			}
		case domain.StepDecision:
			if adv, ok := slots.ParseDecision(text); ok {
				c.decide(s, adv)
				return notice{}
			}
		}
	}
	return c.merge(ctx, s, step, ev.Kind, text)
}

// merge runs the extractor (or the fallback) and applies its updates.
func (c *Controller) merge(ctx context.Context, s *domain.Session, step domain.Step, kind domain.EventKind, text string) notice {
	res := c.extract(ctx, s, step, kind, text)
	applied := slots.Merge(s, res.Updates)

	for _, slot := range applied {
		delete(s.Drafts, slot)
		delete(s.DraftPage, slot)
		if !slot.IsRegistration() && s.Results.Ready {
			s.Results = domain.ResultState{}
		}
	}
	if res.SuggestedNextStep != "" {
		c.logger.Debug("Extractor suggested next step", "user_id", s.UserID, "step", step, "suggested", res.SuggestedNextStep)
	}
	if res.IsQuestion && len(applied) == 0 {
		if answer, ok := c.cat.Answer(text, func(slot domain.Slot) string {
			v, _ := s.Field(slot)
			return v.Text
		}); ok {
			c.logger.Info("User question answered", "user_id", s.UserID, "step", step)
			return notice{text: answer, question: text}
		}
		c.logger.Info("User question", "user_id", s.UserID, "step", step)
		return notice{text: c.cat.Messages.QuestionAck, question: text}
	}
	return notice{}
}

// extract asks the remote extractor for free text within the intent
// timeout and falls back to the deterministic parser on any failure.
func (c *Controller) extract(ctx context.Context, s *domain.Session, step domain.Step, kind domain.EventKind, text string) intent.Result {
	req := intent.Request{Fields: s.Fields(), Stage: s.Stage, Step: step, Text: text, Kind: kind}

	if c.extractor != nil && kind == domain.EventText && text != "" {
		callCtx := ctx
		if c.cfg.IntentTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.cfg.IntentTimeout)
			defer cancel()
		}
		res, err := c.extractor.Extract(callCtx, req)
		if err == nil {
			return res
		}
		c.logger.Warn("Intent extractor failed, using fallback", "user_id", s.UserID, "step", step, "error", err)
	}

	res, err := c.fallback.Extract(ctx, req)
	if err != nil {
		c.logger.Warn("Fallback extractor failed", "user_id", s.UserID, "step", step, "error", err)
		return intent.Result{}
	}
	return res
}

// finish recomputes the step once, runs terminal actions and renders.
func (c *Controller) finish(ctx context.Context, s *domain.Session, n notice) domain.View {
	step := CurrentStep(s)

	if step == domain.StepRegistrationDone && !s.Flags().Saved {
		if err := c.persistProfile(ctx, s); err != nil {
			c.logger.Error("Profile persist failed", "user_id", s.UserID, "error", err)
			s.Stage = domain.StageRegistration
			return domain.View{
				Text:     joinText(n.text, c.cat.Messages.PersistFailed),
				Question: n.question,
				Stage:    s.Stage,
				Step:     step,
			}
		}
		s.UpdateFlags(func(f *domain.Flags) { f.Saved = true })
		n.text = joinText(n.text, c.cat.Prompt(domain.StepRegistrationDone))
		step = CurrentStep(s)
	}

	s.Stage = StageOf(step)

	var v domain.View
	switch {
	case step != domain.StepDone:
		v = c.renderPrompt(ctx, s, step)
	case !s.Results.Ready && c.search(ctx, s) != nil:
		v = domain.View{Text: c.cat.Messages.SearchUnavailable}
	default:
		v = c.renderResults(s)
	}
	v.Text = joinText(n.text, v.Text)
	v.Question = n.question
	v.Stage, v.Step = s.Stage, step
	return v
}

func (c *Controller) persistProfile(ctx context.Context, s *domain.Session) error {
	text := func(slot domain.Slot) string {
		v, _ := s.Field(slot)
		return v.Text
	}
	return c.profiles.AppendProfile(ctx, domain.Profile{
		UserID:    s.UserID,
		Name:      text(domain.SlotName),
		Company:   text(domain.SlotCompany),
		Industry:  text(domain.SlotIndustry),
		Position:  text(domain.SlotPosition),
		Phone:     text(domain.SlotPhone),
		CreatedAt: c.now(),
	})
}

// restart clears every slot and flag except the greeting and payment.
func (c *Controller) restart(s *domain.Session) {
	for slot := range s.Fields() {
		s.ClearField(slot)
	}
	s.ClearPendingAge()
	s.UpdateFlags(func(f *domain.Flags) {
		*f = domain.Flags{Greeted: f.Greeted, Paid: f.Paid}
	})
	s.Drafts = make(map[domain.Slot][]string)
	s.DraftPage = make(map[domain.Slot]int)
	s.Results = domain.ResultState{}
	s.Stage = domain.StageRegistration
	c.logger.Info("Session restarted", "user_id", s.UserID)
}

// newSearch clears the filter slots but keeps registration and payment.
func (c *Controller) newSearch(s *domain.Session) {
	for slot := range s.Fields() {
		if !slot.IsRegistration() {
			s.ClearField(slot)
		}
	}
	s.ClearPendingAge()
	s.UpdateFlags(func(f *domain.Flags) {
		f.AdvancedChosen = false
		f.AdvancedMode = false
	})
	s.Drafts = make(map[domain.Slot][]string)
	s.DraftPage = make(map[domain.Slot]int)
	s.Results = domain.ResultState{}
}

func (c *Controller) decide(s *domain.Session, advanced bool) {
	s.UpdateFlags(func(f *domain.Flags) {
		f.AdvancedChosen = true
		f.AdvancedMode = advanced
	})
}

func joinText(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
