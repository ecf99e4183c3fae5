// Package flow implements the per-user conversation state machine.
package flow

import "github.com/ashureev/influencer-desk/internal/domain"

// stepSpec is one row of the canonical step order.
type stepSpec struct {
	Step     domain.Step
	Slot     domain.Slot
	Stage    domain.Stage
	Required bool
	Multi    bool
	// When gates the row; nil means always offered.
	When func(s *domain.Session) bool
}

func advanced(s *domain.Session) bool {
	return s.Flags().AdvancedMode
}

func hasChildren(s *domain.Session) bool {
	v, ok := s.Field(domain.SlotChildren)
	return advanced(s) && ok && v.Kind == domain.KindBool && v.Bool
}

// steps is the single ordered table consumed by NextStep.
var steps = []stepSpec{
	{Step: domain.StepName, Slot: domain.SlotName, Stage: domain.StageRegistration, Required: true},
	{Step: domain.StepCompany, Slot: domain.SlotCompany, Stage: domain.StageRegistration, Required: true},
	{Step: domain.StepIndustry, Slot: domain.SlotIndustry, Stage: domain.StageRegistration, Required: true},
	{Step: domain.StepPosition, Slot: domain.SlotPosition, Stage: domain.StageRegistration, Required: true},
	{Step: domain.StepPhone, Slot: domain.SlotPhone, Stage: domain.StageRegistration, Required: true},
	{Step: domain.StepRegistrationDone, Stage: domain.StageRegistration},

	{Step: domain.StepCities, Slot: domain.SlotCities, Stage: domain.StageFilterCollection, Required: true, Multi: true},
	{Step: domain.StepTopics, Slot: domain.SlotTopics, Stage: domain.StageFilterCollection, Required: true, Multi: true},
	{Step: domain.StepAge, Slot: domain.SlotAge, Stage: domain.StageFilterCollection},
	{Step: domain.StepLanguage, Slot: domain.SlotLanguage, Stage: domain.StageFilterCollection},
	{Step: domain.StepDecision, Stage: domain.StageFilterCollection},

	{Step: domain.StepMaritalStatus, Slot: domain.SlotMaritalStatus, Stage: domain.StageAdvancedFilterCollection, When: advanced},
	{Step: domain.StepChildren, Slot: domain.SlotChildren, Stage: domain.StageAdvancedFilterCollection, When: advanced},
	{Step: domain.StepChildrenCount, Slot: domain.SlotChildrenCount, Stage: domain.StageAdvancedFilterCollection, When: hasChildren},
	{Step: domain.StepFollowers, Slot: domain.SlotFollowers, Stage: domain.StageAdvancedFilterCollection, When: advanced},
	{Step: domain.StepContentFormats, Slot: domain.SlotContentFormats, Stage: domain.StageAdvancedFilterCollection, When: advanced},
	{Step: domain.StepBudget, Slot: domain.SlotBudget, Stage: domain.StageAdvancedFilterCollection, When: advanced},
}

// NextStep derives the step from the session's fields, flags and pending
// age answer. It has no side effects.
func NextStep(s *domain.Session) domain.Step {
	flags := s.Flags()
	for _, st := range steps {
		if st.When != nil && !st.When(s) {
			continue
		}
		switch st.Step {
		case domain.StepRegistrationDone:
			if !flags.Saved {
				return st.Step
			}
		case domain.StepAge:
			if _, pending := s.PendingAge(); pending {
				return domain.StepAgeClarify
			}
			if !s.HasField(st.Slot) {
				return st.Step
			}
		case domain.StepDecision:
			if !flags.AdvancedChosen {
				return st.Step
			}
		default:
			if !s.HasField(st.Slot) {
				return st.Step
			}
		}
	}
	return domain.StepDone
}

// CurrentStep returns the cached step, deriving and caching it when a
// mutation invalidated the cache.
func CurrentStep(s *domain.Session) domain.Step {
	if step, ok := s.CachedStep(); ok {
		return step
	}
	step := NextStep(s)
	s.CacheStep(step)
	return step
}

// StageOf maps a step to the stage it belongs to.
func StageOf(step domain.Step) domain.Stage {
	switch step {
	case domain.StepAgeClarify:
		return domain.StageFilterCollection
	case domain.StepDone:
		return domain.StageResults
	}
	for _, st := range steps {
		if st.Step == step {
			return st.Stage
		}
	}
	return domain.StageRegistration
}

func specOf(step domain.Step) (stepSpec, bool) {
	for _, st := range steps {
		if st.Step == step {
			return st, true
		}
	}
	return stepSpec{}, false
}

// IsMultiSelect reports whether a step collects a set through pick buttons.
func IsMultiSelect(step domain.Step) bool {
	st, ok := specOf(step)
	return ok && st.Multi
}
