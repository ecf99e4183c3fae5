// Package slots merges extracted values into a session and provides the
// deterministic fallback extractor.
package slots

import (
	"slices"
	"strings"

	"github.com/ashureev/influencer-desk/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Required reports whether a slot cannot be satisfied by a skip marker.
func Required(slot domain.Slot) bool {
	return slot.IsRegistration() || slot == domain.SlotCities || slot == domain.SlotTopics
}

// Merge applies updates to the session and returns the slots that changed.
// Registration slots are set only while empty; filter slots are replaced.
// Values that normalize to nothing are dropped.
func Merge(s *domain.Session, updates map[domain.Slot]domain.Value) []domain.Slot {
	var applied []domain.Slot
	for _, slot := range domain.KnownSlots {
		raw, ok := updates[slot]
		if !ok {
			continue
		}
		v, ok := Normalize(slot, raw)
		if !ok {
			continue
		}
		if slot.IsRegistration() && s.HasField(slot) {
			continue
		}

		s.SetField(slot, v)
		applied = append(applied, slot)

		switch slot {
		case domain.SlotAge:
			s.ClearPendingAge()
		case domain.SlotChildren:
			if v.Skipped() || !v.Bool {
				s.ClearField(domain.SlotChildrenCount)
			}
		}
	}
	return applied
}

// Normalize canonicalizes a value for its slot. It reports false when
// nothing usable remains.
func Normalize(slot domain.Slot, v domain.Value) (domain.Value, bool) {
	if v.Skipped() {
		return v, !Required(slot)
	}
	if v.Kind != slot.Kind() {
		return domain.Value{}, false
	}

	var out domain.Value
	switch slot {
	case domain.SlotName:
		out = domain.TextValue(capitalizeWords(collapseSpaces(v.Text)))
	case domain.SlotPhone:
		out = domain.TextValue(digitsOnly(v.Text))
	case domain.SlotCities, domain.SlotTopics:
		out = domain.SetValue(dedupe(v.Items, strings.TrimSpace)...)
	case domain.SlotContentFormats:
		out = domain.SetValue(dedupe(v.Items, normalizeFormat)...)
	case domain.SlotGender, domain.SlotMaritalStatus, domain.SlotChildrenCount:
		out = domain.TextValue(strings.ToLower(collapseSpaces(v.Text)))
	default:
		switch v.Kind {
		case domain.KindText:
			out = domain.TextValue(collapseSpaces(v.Text))
		case domain.KindRange:
			out = domain.RangeValue(orderRange(v.Range))
		default:
			out = v.Clone()
		}
	}
	if out.IsEmpty() {
		return domain.Value{}, false
	}
	return out, true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// capitalizeWords upper-cases the first letter of every word and keeps the
// rest as typed.
func capitalizeWords(s string) string {
	return cases.Title(language.Und, cases.NoLower).String(s)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// dedupe trims, drops empties and removes case-insensitive duplicates,
// keeping the first spelling.
func dedupe(items []string, clean func(string) string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = clean(it)
		key := strings.ToLower(it)
		if it == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

func orderRange(r domain.Range) domain.Range {
	r = r.Clone()
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

// ContentFormats are the integration formats a brand can ask for.
var ContentFormats = []string{"stories", "reels", "post"}

var formatSynonyms = map[string]string{
	"stories": "stories", "story": "stories", "сторис": "stories", "истории": "stories",
	"reels": "reels", "reel": "reels", "рилс": "reels", "рилсы": "reels",
	"post": "post", "posts": "post", "пост": "post", "посты": "post", "публикация": "post",
}

func normalizeFormat(s string) string {
	f, ok := formatSynonyms[strings.ToLower(strings.TrimSpace(s))]
	if !ok || !slices.Contains(ContentFormats, f) {
		return ""
	}
	return f
}
