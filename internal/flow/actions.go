package flow

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/ashureev/influencer-desk/internal/filter"
	"github.com/ashureev/influencer-desk/internal/slots"
)

// Button payloads are "<step>:<action>" except for the global actions below.
const (
	actionRestart = "restart"

	prefixResults = "res"
	prefixPay     = "pay"

	actionPick   = "pick"
	actionPage   = "page"
	actionDone   = "done"
	actionExport = "export"
	actionNew    = "new"

	payConfirm = "confirm"
	payCancel  = "cancel"

	skipValue = "skip"
)

// Age disambiguation choices.
const (
	ageExact   = "exact"
	ageAtMost  = "at_most"
	ageAtLeast = "at_least"
	ageRange   = "range"
)

func (c *Controller) applyButton(ctx context.Context, s *domain.Session, step domain.Step, rest string) notice {
	switch {
	case IsMultiSelect(step):
		return c.applyMultiSelect(ctx, s, step, rest)
	case step == domain.StepAgeClarify:
		if _, pending := s.PendingAge(); !pending {
			return notice{text: c.cat.Messages.Stale}
		}
		c.commitAgeChoice(s, rest)
		return notice{}
	case step == domain.StepDecision:
		switch rest {
		case "advanced":
			c.decide(s, true)
		case "basic":
			c.decide(s, false)
		default:
			return notice{text: c.cat.Messages.Stale}
		}
		return notice{}
	}
	return c.merge(ctx, s, step, domain.EventButton, rest)
}

// applyMultiSelect handles pick/page/done on a cities or topics step.
func (c *Controller) applyMultiSelect(ctx context.Context, s *domain.Session, step domain.Step, rest string) notice {
	slot := domain.Slot(step)
	action, arg, _ := strings.Cut(rest, ":")

	switch action {
	case actionPick:
		opts := c.options(ctx, slot)
		i, err := strconv.Atoi(arg)
		if err != nil || i < 0 || i >= len(opts) {
			return notice{text: c.cat.Messages.Stale}
		}
		draft := s.Drafts[slot]
		if j := slices.Index(draft, opts[i]); j >= 0 {
			draft = slices.Delete(draft, j, j+1)
		} else {
			draft = append(draft, opts[i])
		}
		if s.Drafts == nil {
			s.Drafts = make(map[domain.Slot][]string)
		}
		s.Drafts[slot] = draft
	case actionPage:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return notice{text: c.cat.Messages.Stale}
		}
		if s.DraftPage == nil {
			s.DraftPage = make(map[domain.Slot]int)
		}
		s.DraftPage[slot] = n
	case actionDone:
		draft := s.Drafts[slot]
		if len(draft) == 0 {
			return notice{text: c.cat.Messages.PickAtLeastOne}
		}
		slots.Merge(s, map[domain.Slot]domain.Value{slot: domain.SetValue(draft...)})
		if s.Results.Ready {
			s.Results = domain.ResultState{}
		}
		delete(s.Drafts, slot)
		delete(s.DraftPage, slot)
	default:
		return notice{text: c.cat.Messages.Stale}
	}
	return notice{}
}

// commitAgeChoice converts the pending bare age into a canonical range.
func (c *Controller) commitAgeChoice(s *domain.Session, choice string) {
	n, ok := s.PendingAge()
	if !ok {
		return
	}
	r, ok := ageChoiceRange(n, choice)
	if !ok {
		return
	}
	slots.Merge(s, map[domain.Slot]domain.Value{domain.SlotAge: domain.RangeValue(r)})
}

func ageChoiceRange(n int, choice string) (domain.Range, bool) {
	switch choice {
	case ageExact:
		return domain.Range{Min: domain.IntPtr(n), Max: domain.IntPtr(n)}, true
	case ageAtMost:
		return domain.Range{Max: domain.IntPtr(n)}, true
	case ageAtLeast:
		return domain.Range{Min: domain.IntPtr(n)}, true
	case ageRange:
		return domain.Range{Min: domain.IntPtr(max(n-4, 0)), Max: domain.IntPtr(n)}, true
	}
	return domain.Range{}, false
}

// clarifyChoiceFromText matches a typed answer against the option labels.
func (c *Controller) clarifyChoiceFromText(text string) (string, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, o := range c.cat.Options.AgeClarify {
		if text == strings.ToLower(o.Label) || text == o.Value {
			return o.Value, true
		}
	}
	return "", false
}

// search runs the filter engine over the snapshot and stores the ordered
// results on the session.
func (c *Controller) search(ctx context.Context, s *domain.Session) error {
	recs, err := c.records.Records(ctx)
	if err != nil {
		c.logger.Error("Record snapshot unavailable", "user_id", s.UserID, "error", err)
		return err
	}
	criteria := slots.CriteriaFromFields(s.Fields())
	found := filter.Apply(recs, criteria, c.cfg.ResultsLimit)

	s.Results = domain.ResultState{Ready: true, Records: found, Page: 1}
	c.logger.Info("Search completed", "user_id", s.UserID, "matches", len(found), "snapshot", len(recs))
	return nil
}

// resultsAction handles the results-stage buttons. It reports false for
// events that should go through the regular merge path.
func (c *Controller) resultsAction(ctx context.Context, s *domain.Session, ev domain.Event) (domain.View, bool) {
	if ev.Kind != domain.EventButton {
		return domain.View{}, false
	}
	prefix, rest, _ := strings.Cut(ev.Payload, ":")
	action, arg, _ := strings.Cut(rest, ":")

	done := func(v domain.View) (domain.View, bool) {
		s.Stage = domain.StageResults
		v.Stage, v.Step = s.Stage, domain.StepDone
		return v, true
	}

	switch prefix {
	case prefixPay:
		switch action {
		case payConfirm:
			s.UpdateFlags(func(f *domain.Flags) { f.Paid = true })
			c.logger.Info("Mock payment confirmed", "user_id", s.UserID)
			return done(c.renderResults(s))
		case payCancel:
			return done(domain.View{Text: c.cat.Messages.PayCancelled, Buttons: c.afterResultsButtons()})
		}
	case prefixResults:
		if c.paywalled(s) && action != actionNew {
			return done(c.renderPaywall())
		}
		switch action {
		case actionPage:
			n, err := strconv.Atoi(arg)
			if err != nil {
				break
			}
			s.Results.Page = filter.Paginate(s.Results.Records, n, c.cfg.PageSize).Page
			return done(c.renderResults(s))
		case actionPick:
			if !slices.ContainsFunc(s.Results.Records, func(r domain.Record) bool { return r.Handle == arg }) {
				break
			}
			s.TogglePicked(arg)
			return done(c.renderResults(s))
		case actionExport:
			return done(c.exportPicked(s, arg))
		case actionDone:
			return done(c.finalize(ctx, s))
		case actionNew:
			c.newSearch(s)
			return c.finish(ctx, s, notice{}), true
		}
	default:
		return domain.View{}, false
	}

	v := c.renderResults(s)
	v.Text = joinText(c.cat.Messages.Stale, v.Text)
	return done(v)
}

func (c *Controller) paywalled(s *domain.Session) bool {
	return c.cfg.PaymentMode == PaymentMock && !s.Flags().Paid
}

func (c *Controller) pickedRecords(s *domain.Session) []domain.Record {
	var out []domain.Record
	for _, r := range s.Results.Records {
		if slices.Contains(s.Results.Picked, r.Handle) {
			out = append(out, r)
		}
	}
	return out
}

func (c *Controller) exportPicked(s *domain.Session, format string) domain.View {
	picked := c.pickedRecords(s)
	if len(picked) == 0 {
		v := c.renderResults(s)
		v.Text = joinText(c.cat.Messages.PickBeforeFinalize, v.Text)
		return v
	}

	var formats []string
	if v, ok := s.Field(domain.SlotContentFormats); ok && v.Kind == domain.KindSet {
		formats = v.Items
	}
	doc, err := c.exporters.Export(format, picked, formats, c.now())
	if err != nil {
		c.logger.Warn("Export failed", "user_id", s.UserID, "format", format, "error", err)
		v := c.renderResults(s)
		v.Text = joinText(c.cat.Messages.Stale, v.Text)
		return v
	}
	s.Results.ExportFormat = format

	v := c.renderResults(s)
	v.Text = joinText(c.cat.Messages.ExportReady, v.Text)
	v.Document = &doc
	return v
}

// finalize appends the selection row for the picked handles.
func (c *Controller) finalize(ctx context.Context, s *domain.Session) domain.View {
	if len(s.Results.Picked) == 0 {
		v := c.renderResults(s)
		v.Text = joinText(c.cat.Messages.PickBeforeFinalize, v.Text)
		return v
	}

	sel := domain.Selection{
		ID:           c.newID(),
		UserID:       s.UserID,
		Handles:      slices.Clone(s.Results.Picked),
		ExportFormat: s.Results.ExportFormat,
		CreatedAt:    c.now(),
	}
	if err := c.selections.AppendSelection(ctx, sel); err != nil {
		c.logger.Error("Selection persist failed", "user_id", s.UserID, "error", err)
		v := c.renderResults(s)
		v.Text = joinText(c.cat.Messages.PersistFailed, v.Text)
		return v
	}
	c.logger.Info("Selection saved", "user_id", s.UserID, "selection_id", sel.ID, "count", len(sel.Handles))
	s.Results.Picked = nil
	return domain.View{Text: c.cat.Messages.Finalized, Buttons: c.afterResultsButtons()}
}
