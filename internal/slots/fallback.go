package slots

import (
	"context"
	"strings"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/ashureev/influencer-desk/internal/filter"
	"github.com/ashureev/influencer-desk/internal/intent"
)

// FallbackExtractor is the deterministic extractor used when the intent
// service is not configured, fails, or times out. It never returns an error.
type FallbackExtractor struct{}

var _ intent.Extractor = FallbackExtractor{}

// Extract parses the turn for the current step.
func (FallbackExtractor) Extract(_ context.Context, req intent.Request) (intent.Result, error) {
	slot := domain.Slot(req.Step)
	text := strings.TrimSpace(req.Text)

	switch req.Kind {
	case domain.EventContact:
		if phone := ExtractPhone(text); phone != "" {
			return update(domain.SlotPhone, domain.TextValue(phone)), nil
		}
		return intent.Result{}, nil
	case domain.EventButton:
		if v, ok := buttonValue(slot, text); ok {
			return update(slot, v), nil
		}
		return intent.Result{}, nil
	}

	if text == "" {
		return intent.Result{}, nil
	}
	if strings.Contains(text, "?") {
		return intent.Result{IsQuestion: true}, nil
	}
	if !Required(slot) && IsSkip(text) {
		return update(slot, domain.SkipValue()), nil
	}

	switch req.Step {
	case domain.StepName, domain.StepCompany, domain.StepIndustry, domain.StepPosition:
		return update(slot, domain.TextValue(text)), nil
	case domain.StepPhone:
		if phone := ExtractPhone(text); phone != "" {
			return update(slot, domain.TextValue(phone)), nil
		}
	case domain.StepCities, domain.StepTopics:
		return update(slot, domain.SetValue(SplitList(text)...)), nil
	case domain.StepAge:
		if r, ok := filter.ParseAgeRange(text); ok {
			return update(slot, domain.RangeValue(r)), nil
		}
		return update(slot, domain.SkipValue()), nil
	case domain.StepFollowers, domain.StepBudget:
		if r, ok := ParseAmountRange(text); ok {
			return update(slot, domain.RangeValue(r)), nil
		}
		return update(slot, domain.SkipValue()), nil
	case domain.StepContentFormats:
		formats := dedupe(SplitList(text), normalizeFormat)
		if len(formats) == 0 {
			return update(slot, domain.SkipValue()), nil
		}
		return update(slot, domain.SetValue(formats...)), nil
	case domain.StepMaritalStatus:
		if bucket := filter.MaritalBucket(text); bucket != "" {
			return update(slot, domain.TextValue(bucket)), nil
		}
	case domain.StepChildren:
		if yes, ok := ParseYesNo(text); ok {
			return update(slot, domain.BoolValue(yes)), nil
		}
	case domain.StepChildrenCount:
		if n, ok := ParseChildrenCount(text); ok {
			return update(slot, domain.TextValue(n)), nil
		}
	}
	return intent.Result{IsQuestion: true}, nil
}

// buttonValue maps a canonical button payload onto the slot's value kind.
func buttonValue(slot domain.Slot, payload string) (domain.Value, bool) {
	if payload == "" {
		return domain.Value{}, false
	}
	if IsSkip(payload) {
		if Required(slot) {
			return domain.Value{}, false
		}
		return domain.SkipValue(), true
	}
	switch slot.Kind() {
	case domain.KindText:
		return domain.TextValue(payload), true
	case domain.KindSet:
		return domain.SetValue(payload), true
	case domain.KindBool:
		if yes, ok := ParseYesNo(payload); ok {
			return domain.BoolValue(yes), true
		}
	case domain.KindRange:
		if r, ok := ParseAmountRange(payload); ok {
			return domain.RangeValue(r), true
		}
	}
	return domain.Value{}, false
}

func update(slot domain.Slot, v domain.Value) intent.Result {
	return intent.Result{Updates: map[domain.Slot]domain.Value{slot: v}}
}
