package domain

import "slices"

// Slot is a named field in a session that a step fills.
type Slot string

const (
	SlotName     Slot = "name"
	SlotCompany  Slot = "company"
	SlotIndustry Slot = "industry"
	SlotPosition Slot = "position"
	SlotPhone    Slot = "phone"

	SlotCities         Slot = "cities"
	SlotTopics         Slot = "topics"
	SlotAge            Slot = "age"
	SlotGender         Slot = "gender"
	SlotLanguage       Slot = "language"
	SlotMaritalStatus  Slot = "marital_status"
	SlotChildren       Slot = "children"
	SlotChildrenCount  Slot = "children_count"
	SlotFollowers      Slot = "followers_range"
	SlotContentFormats Slot = "content_formats"
	SlotBudget         Slot = "budget"
)

// RegistrationSlots lists the profile slots in their strict asking order.
var RegistrationSlots = []Slot{SlotName, SlotCompany, SlotIndustry, SlotPosition, SlotPhone}

// IsRegistration reports whether the slot belongs to the profile.
func (s Slot) IsRegistration() bool {
	return slices.Contains(RegistrationSlots, s)
}

// Step is the single piece of information currently being solicited.
type Step string

const (
	StepName     = Step(SlotName)
	StepCompany  = Step(SlotCompany)
	StepIndustry = Step(SlotIndustry)
	StepPosition = Step(SlotPosition)
	StepPhone    = Step(SlotPhone)
	// StepRegistrationDone triggers the one-time profile persist.
	StepRegistrationDone Step = "registration_done"

	StepCities   = Step(SlotCities)
	StepTopics   = Step(SlotTopics)
	StepAge      = Step(SlotAge)
	StepLanguage = Step(SlotLanguage)
	// StepAgeClarify asks how a bare numeric age answer should be read.
	StepAgeClarify Step = "age_clarify"
	// StepDecision offers basic results or the advanced filters.
	StepDecision Step = "decision"

	StepMaritalStatus  = Step(SlotMaritalStatus)
	StepChildren       = Step(SlotChildren)
	StepChildrenCount  = Step(SlotChildrenCount)
	StepFollowers      = Step(SlotFollowers)
	StepContentFormats = Step(SlotContentFormats)
	StepBudget         = Step(SlotBudget)

	// StepDone means filter collection is complete and results can be shown.
	StepDone Step = "done"
)

// ValueKind tags the payload carried by a Value.
type ValueKind int

const (
	KindText ValueKind = iota + 1
	KindSet
	KindRange
	KindBool
	// KindSkip marks an optional step the user explicitly skipped.
	KindSkip
)

// Range is an inclusive numeric interval; nil bounds are open.
type Range struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// IsOpen reports whether both bounds are absent.
func (r Range) IsOpen() bool {
	return r.Min == nil && r.Max == nil
}

// Clone deep-copies the bounds.
func (r Range) Clone() Range {
	var c Range
	if r.Min != nil {
		c.Min = IntPtr(*r.Min)
	}
	if r.Max != nil {
		c.Max = IntPtr(*r.Max)
	}
	return c
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

// Value is the payload stored for a slot.
type Value struct {
	Kind  ValueKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Items []string  `json:"items,omitempty"`
	Range Range     `json:"range"`
	Bool  bool      `json:"bool,omitempty"`
}

// TextValue builds a text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// SetValue builds a multi-value set.
func SetValue(items ...string) Value { return Value{Kind: KindSet, Items: slices.Clone(items)} }

// RangeValue builds a numeric range value.
func RangeValue(r Range) Value { return Value{Kind: KindRange, Range: r.Clone()} }

// BoolValue builds a yes/no value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// SkipValue builds the explicit skip marker.
func SkipValue() Value { return Value{Kind: KindSkip} }

// IsEmpty reports whether the value carries nothing, not even a skip.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindText:
		return v.Text == ""
	case KindSet:
		return len(v.Items) == 0
	case KindRange:
		return v.Range.IsOpen()
	case KindBool, KindSkip:
		return false
	default:
		return true
	}
}

// Skipped reports whether the value is the skip marker.
func (v Value) Skipped() bool {
	return v.Kind == KindSkip
}

// Clone deep-copies slices and pointers.
func (v Value) Clone() Value {
	c := v
	c.Items = slices.Clone(v.Items)
	c.Range = v.Range.Clone()
	return c
}

// Fields maps slots to their values.
type Fields map[Slot]Value

// Clone deep-copies the map.
func (f Fields) Clone() Fields {
	c := make(Fields, len(f))
	for k, v := range f {
		c[k] = v.Clone()
	}
	return c
}

// Kind returns the payload kind a slot stores when it is not skipped.
func (s Slot) Kind() ValueKind {
	switch s {
	case SlotCities, SlotTopics, SlotContentFormats:
		return KindSet
	case SlotAge, SlotFollowers, SlotBudget:
		return KindRange
	case SlotChildren:
		return KindBool
	default:
		return KindText
	}
}

// KnownSlots lists every slot a session can hold.
var KnownSlots = []Slot{
	SlotName, SlotCompany, SlotIndustry, SlotPosition, SlotPhone,
	SlotCities, SlotTopics, SlotAge, SlotGender, SlotLanguage,
	SlotMaritalStatus, SlotChildren, SlotChildrenCount, SlotFollowers,
	SlotContentFormats, SlotBudget,
}

// ParseSlot maps a wire name to a known slot.
func ParseSlot(name string) (Slot, bool) {
	s := Slot(name)
	return s, slices.Contains(KnownSlots, s)
}
