package flow

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ashureev/influencer-desk/internal/catalog"
	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/ashureev/influencer-desk/internal/filter"
)

func button(label string, step domain.Step, value string) domain.Button {
	return domain.Button{Label: label, Value: string(step) + ":" + value}
}

// options loads the multi-select choices for a slot; a failed load yields
// none and the step falls back to free text.
func (c *Controller) options(ctx context.Context, slot domain.Slot) []string {
	limit := c.cfg.CitiesLimit
	if slot == domain.SlotTopics {
		limit = c.cfg.TopicsLimit
	}
	opts, err := c.records.Options(ctx, slot, limit)
	if err != nil {
		c.logger.Warn("Options unavailable", "slot", slot, "error", err)
		return nil
	}
	return opts
}

// renderPrompt builds the question view for a collecting step.
func (c *Controller) renderPrompt(ctx context.Context, s *domain.Session, step domain.Step) domain.View {
	v := domain.View{Text: c.cat.Prompt(step)}

	switch step {
	case domain.StepPhone:
		v.RequestContact = true
	case domain.StepCities, domain.StepTopics:
		v.Buttons = c.multiSelectButtons(ctx, s, step)
	case domain.StepAgeClarify:
		n, _ := s.PendingAge()
		v.Text = fmt.Sprintf(v.Text, n, n, n, n, max(n-4, 0), n)
		v.Buttons = c.ageClarifyButtons(n)
	case domain.StepAge, domain.StepFollowers, domain.StepContentFormats, domain.StepBudget:
		v.Buttons = [][]domain.Button{{button(c.cat.Labels.Skip, step, skipValue)}}
	case domain.StepLanguage:
		v.Buttons = c.enumButtons(step, c.cat.Options.Languages, true)
	case domain.StepMaritalStatus:
		v.Buttons = c.enumButtons(step, c.cat.Options.Marital, true)
	case domain.StepChildren:
		v.Buttons = c.enumButtons(step, c.cat.Options.Children, true)
	case domain.StepChildrenCount:
		v.Buttons = c.enumButtons(step, c.cat.Options.ChildrenCount, true)
	case domain.StepDecision:
		v.Buttons = c.enumButtons(step, c.cat.Options.Decision, false)
	}
	return v
}

func (c *Controller) enumButtons(step domain.Step, opts []catalog.Option, skippable bool) [][]domain.Button {
	var rows [][]domain.Button
	for _, o := range opts {
		rows = append(rows, []domain.Button{button(o.Label, step, o.Value)})
	}
	if skippable {
		rows = append(rows, []domain.Button{button(c.cat.Labels.Skip, step, skipValue)})
	}
	return rows
}

func (c *Controller) ageClarifyButtons(n int) [][]domain.Button {
	var rows [][]domain.Button
	for _, o := range c.cat.Options.AgeClarify {
		label := o.Label + " " + strconv.Itoa(n)
		if o.Value == ageRange {
			label = fmt.Sprintf("%s %d-%d", o.Label, max(n-4, 0), n)
		}
		rows = append(rows, []domain.Button{button(label, domain.StepAgeClarify, o.Value)})
	}
	return rows
}

// multiSelectButtons renders one page of options with the draft marked,
// then the navigation and done row.
func (c *Controller) multiSelectButtons(ctx context.Context, s *domain.Session, step domain.Step) [][]domain.Button {
	slot := domain.Slot(step)
	opts := c.options(ctx, slot)
	if len(opts) == 0 {
		return nil
	}
	draft := s.Drafts[slot]

	indexes := make([]int, len(opts))
	for i := range opts {
		indexes[i] = i
	}
	page := filter.Paginate(indexes, s.DraftPage[slot], c.cfg.OptionsPerPage)

	var rows [][]domain.Button
	for _, i := range page.Items {
		label := opts[i]
		if slices.Contains(draft, opts[i]) {
			label = "✓ " + label
		}
		rows = append(rows, []domain.Button{button(label, step, actionPick+":"+strconv.Itoa(i))})
	}

	var nav []domain.Button
	if page.Page > 1 {
		nav = append(nav, button(c.cat.Labels.Prev, step, actionPage+":"+strconv.Itoa(page.Page-1)))
	}
	if page.Page < page.TotalPages {
		nav = append(nav, button(c.cat.Labels.Next, step, actionPage+":"+strconv.Itoa(page.Page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []domain.Button{button(c.cat.Labels.Done, step, actionDone)})
	return rows
}

func (c *Controller) renderPaywall() domain.View {
	return domain.View{
		Text: fmt.Sprintf(c.cat.Messages.PayRequired, c.cfg.PaymentPrice, c.cfg.PaymentCurrency),
		Buttons: [][]domain.Button{{
			{Label: c.cat.Labels.Pay, Value: prefixPay + ":" + payConfirm},
			{Label: c.cat.Labels.Cancel, Value: prefixPay + ":" + payCancel},
		}},
	}
}

func (c *Controller) afterResultsButtons() [][]domain.Button {
	return [][]domain.Button{
		{{Label: c.cat.Labels.NewSearch, Value: prefixResults + ":" + actionNew}},
		{{Label: c.cat.Labels.Restart, Value: actionRestart}},
	}
}

// renderResults shows the current page of the stored result snapshot.
func (c *Controller) renderResults(s *domain.Session) domain.View {
	if c.paywalled(s) {
		return c.renderPaywall()
	}
	if len(s.Results.Records) == 0 {
		return domain.View{Text: c.cat.Messages.NoMatches, Buttons: c.afterResultsButtons()}
	}

	page := filter.Paginate(s.Results.Records, s.Results.Page, c.cfg.PageSize)
	s.Results.Page = page.Page

	var b strings.Builder
	fmt.Fprintf(&b, c.cat.Messages.ResultsHeader, page.Page, page.TotalPages)
	offset := (page.Page - 1) * c.cfg.PageSize

	var rows [][]domain.Button
	for i, r := range page.Items {
		picked := slices.Contains(s.Results.Picked, r.Handle)
		b.WriteString("\n")
		b.WriteString(formatRecord(offset+i+1, r, picked))

		mark := "☐ "
		if picked {
			mark = "✓ "
		}
		rows = append(rows, []domain.Button{{Label: mark + r.Handle, Value: prefixResults + ":" + actionPick + ":" + r.Handle}})
	}

	var nav []domain.Button
	if page.Page > 1 {
		nav = append(nav, domain.Button{Label: c.cat.Labels.Prev, Value: prefixResults + ":" + actionPage + ":" + strconv.Itoa(page.Page-1)})
	}
	if page.Page < page.TotalPages {
		nav = append(nav, domain.Button{Label: c.cat.Labels.Next, Value: prefixResults + ":" + actionPage + ":" + strconv.Itoa(page.Page+1)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	var exports []domain.Button
	for _, o := range c.cat.Options.ExportFormats {
		exports = append(exports, domain.Button{Label: o.Label, Value: prefixResults + ":" + actionExport + ":" + o.Value})
	}
	if len(exports) > 0 {
		rows = append(rows, exports)
	}
	rows = append(rows,
		[]domain.Button{{Label: c.cat.Labels.Finalize, Value: prefixResults + ":" + actionDone}},
		[]domain.Button{{Label: c.cat.Labels.NewSearch, Value: prefixResults + ":" + actionNew}},
	)

	return domain.View{Text: b.String(), Buttons: rows}
}

func formatRecord(n int, r domain.Record, picked bool) string {
	parts := []string{fmt.Sprintf("%d. %s", n, r.Name)}
	if r.Handle != "" {
		parts[0] += " (@" + strings.TrimPrefix(r.Handle, "@") + ")"
	}
	if r.City != "" {
		parts = append(parts, r.City)
	}
	if r.Followers != nil {
		parts = append(parts, strconv.Itoa(*r.Followers)+" followers")
	}
	if r.Price != nil {
		parts = append(parts, "from "+strconv.Itoa(*r.Price))
	}
	line := strings.Join(parts, " · ")
	if picked {
		line += " ✓"
	}
	return line
}
