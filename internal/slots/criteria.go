package slots

import (
	"strings"

	"github.com/ashureev/influencer-desk/internal/domain"
)

// CriteriaFromFields builds the search constraints from the filter slots.
// Skipped and empty slots leave their criterion absent.
func CriteriaFromFields(f domain.Fields) domain.CriteriaSet {
	var c domain.CriteriaSet

	get := func(slot domain.Slot) (domain.Value, bool) {
		v, ok := f[slot]
		if !ok || v.Skipped() || v.IsEmpty() {
			return domain.Value{}, false
		}
		return v, true
	}

	if v, ok := get(domain.SlotCities); ok {
		c.Cities = lowerAll(v.Items)
	}
	if v, ok := get(domain.SlotTopics); ok {
		c.Topics = lowerAll(v.Items)
	}
	if v, ok := get(domain.SlotAge); ok {
		r := v.Range.Clone()
		c.Age = &r
	}
	if v, ok := get(domain.SlotGender); ok {
		c.Gender = v.Text
	}
	if v, ok := get(domain.SlotLanguage); ok {
		c.Language = v.Text
	}
	if v, ok := get(domain.SlotMaritalStatus); ok {
		c.MaritalStatus = v.Text
	}
	if v, ok := get(domain.SlotChildren); ok {
		has := v.Bool
		c.HasChildren = &has
		if has {
			if n, ok := get(domain.SlotChildrenCount); ok {
				c.ChildrenCount = n.Text
			}
		}
	}
	if v, ok := get(domain.SlotFollowers); ok {
		r := v.Range.Clone()
		c.Followers = &r
	}
	if v, ok := get(domain.SlotBudget); ok && v.Range.Max != nil {
		c.BudgetMax = domain.IntPtr(*v.Range.Max)
	}
	return c
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.ToLower(strings.TrimSpace(it)); it != "" {
			out = append(out, it)
		}
	}
	return out
}
