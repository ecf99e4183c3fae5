// Package filter applies search criteria to influencer records and pages the result.
package filter

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ashureev/influencer-desk/internal/domain"
)

// Sentinels substituted for missing numeric cells so that a missing value
// never satisfies a lower or upper bound.
const (
	missingLow  = -1
	missingHigh = 1_000_000_000_000
)

type predicate func(r *domain.Record) bool

// Apply returns the records that satisfy every active criterion, ordered by
// most recent update then by followers. A positive limit caps the result
// after sorting.
func Apply(records []domain.Record, c domain.CriteriaSet, limit int) []domain.Record {
	preds := predicates(c)

	out := make([]domain.Record, 0, len(records))
	for i := range records {
		if matchAll(&records[i], preds) {
			out = append(out, records[i])
		}
	}

	slices.SortStableFunc(out, compareRecords)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func matchAll(r *domain.Record, preds []predicate) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}

func predicates(c domain.CriteriaSet) []predicate {
	var preds []predicate

	if cities := lowerSet(c.Cities); len(cities) > 0 {
		preds = append(preds, func(r *domain.Record) bool {
			_, ok := cities[normalize(r.City)]
			return ok
		})
	}
	if topics := lowerSet(c.Topics); len(topics) > 0 {
		preds = append(preds, func(r *domain.Record) bool {
			for _, t := range SplitTopics(r.Topics) {
				if _, ok := topics[t]; ok {
					return true
				}
			}
			return false
		})
	}
	if lang := normalize(c.Language); lang != "" {
		preds = append(preds, func(r *domain.Record) bool {
			return strings.Contains(normalize(r.Language), lang)
		})
	}
	if g := genderLetter(c.Gender); g != 0 {
		preds = append(preds, func(r *domain.Record) bool {
			return genderLetter(r.Gender) == g
		})
	}
	if want := normalize(c.MaritalStatus); want != "" {
		bucket := MaritalBucket(want)
		preds = append(preds, func(r *domain.Record) bool {
			if bucket == "" {
				return normalize(r.MaritalStatus) == want
			}
			return MaritalBucket(r.MaritalStatus) == bucket
		})
	}
	if c.HasChildren != nil {
		want := *c.HasChildren
		preds = append(preds, func(r *domain.Record) bool {
			return (childrenOf(r) > 0) == want
		})
	}
	if c.ChildrenCount != "" {
		if c.ChildrenCount == domain.ChildrenCountMore {
			preds = append(preds, func(r *domain.Record) bool {
				return childrenOf(r) > 4
			})
		} else if n, err := strconv.Atoi(c.ChildrenCount); err == nil {
			preds = append(preds, func(r *domain.Record) bool {
				return childrenOf(r) == n
			})
		}
	}
	if c.Age != nil && !c.Age.IsOpen() {
		want := c.Age.Clone()
		preds = append(preds, func(r *domain.Record) bool {
			return ageMatches(r.Age, want)
		})
	}
	if c.Followers != nil && !c.Followers.IsOpen() {
		want := c.Followers.Clone()
		preds = append(preds, func(r *domain.Record) bool {
			if want.Min != nil && valueOr(r.Followers, missingLow) < *want.Min {
				return false
			}
			if want.Max != nil && valueOr(r.Followers, missingHigh) > *want.Max {
				return false
			}
			return true
		})
	}
	if c.BudgetMax != nil {
		budget := *c.BudgetMax
		preds = append(preds, func(r *domain.Record) bool {
			return valueOr(r.Price, missingHigh) <= budget
		})
	}
	return preds
}

func ageMatches(cell string, want domain.Range) bool {
	cell = strings.TrimSpace(cell)
	if n, err := strconv.Atoi(cell); err == nil {
		if want.Min != nil && n < *want.Min {
			return false
		}
		if want.Max != nil && n > *want.Max {
			return false
		}
		return true
	}
	got, ok := ParseAgeRange(cell)
	if !ok {
		return false
	}
	return overlaps(got, want)
}

func overlaps(a, b domain.Range) bool {
	if a.Max != nil && b.Min != nil && *a.Max < *b.Min {
		return false
	}
	if a.Min != nil && b.Max != nil && *a.Min > *b.Max {
		return false
	}
	return true
}

func compareRecords(a, b domain.Record) int {
	switch {
	case a.UpdatedAt != nil && b.UpdatedAt != nil:
		if c := b.UpdatedAt.Compare(*a.UpdatedAt); c != 0 {
			return c
		}
	case a.UpdatedAt != nil:
		return -1
	case b.UpdatedAt != nil:
		return 1
	}
	switch {
	case a.Followers != nil && b.Followers != nil:
		return cmp.Compare(*b.Followers, *a.Followers)
	case a.Followers != nil:
		return -1
	case b.Followers != nil:
		return 1
	}
	return 0
}

// SplitTopics tokenizes a delimited topic cell into lowercase tokens.
func SplitTopics(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		return strings.ContainsRune(";,/|", r)
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = normalize(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var maritalBuckets = map[string][]string{
	"married":  {"married", "женат", "замужем"},
	"single":   {"single", "unmarried", "не женат", "не замужем", "холост", "холоста"},
	"divorced": {"divorced", "разведен", "разведена", "разведён"},
}

// MaritalBucket maps a marital status word to its bucket, or "" if unknown.
func MaritalBucket(s string) string {
	s = normalize(s)
	for bucket, words := range maritalBuckets {
		if slices.Contains(words, s) {
			return bucket
		}
	}
	return ""
}

// genderLetter returns the lowercase first letter with Cyrillic м/ж folded
// onto m/f.
func genderLetter(s string) rune {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s)
	r = unicode.ToLower(r)
	switch r {
	case 'м':
		return 'm'
	case 'ж':
		return 'f'
	}
	return r
}

func childrenOf(r *domain.Record) int {
	return valueOr(r.ChildrenCount, 0)
}

func valueOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it = normalize(it); it != "" {
			set[it] = struct{}{}
		}
	}
	return set
}
