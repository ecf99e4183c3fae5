package filter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ashureev/influencer-desk/internal/domain"
)

var (
	ageNoise      = strings.NewReplacer("лет", "", "года", "", "год", "", "years", "", "г.", "", "–", "-", "—", "-", " ", "")
	ageOpenUpper  = regexp.MustCompile(`^(\d+)\+$`)
	ageAtMost     = regexp.MustCompile(`^<=?(\d+)$`)
	ageAtLeast    = regexp.MustCompile(`^>=?(\d+)$`)
	ageBetween    = regexp.MustCompile(`^(\d+)-(\d+)$`)
	ageExact      = regexp.MustCompile(`^(\d+)$`)
	agePrefixWord = strings.NewReplacer("до", "<=", "от", ">=", "upto", "<=", "from", ">=")
)

// ParseAgeRange reads textual age expressions such as "25+", "<=30",
// "от 20", "18-24" or "27". Bounds of a dash range are ordered. Numbers that
// do not fit an int make the expression unparsable.
func ParseAgeRange(s string) (domain.Range, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return domain.Range{}, false
	}
	s = agePrefixWord.Replace(ageNoise.Replace(s))

	if m := ageOpenUpper.FindStringSubmatch(s); m != nil {
		return atLeast(m[1])
	}
	if m := ageAtMost.FindStringSubmatch(s); m != nil {
		n := atoi(m[1])
		return domain.Range{Max: n}, n != nil
	}
	if m := ageAtLeast.FindStringSubmatch(s); m != nil {
		return atLeast(m[1])
	}
	if m := ageBetween.FindStringSubmatch(s); m != nil {
		lo, hi := atoi(m[1]), atoi(m[2])
		if lo == nil || hi == nil {
			return domain.Range{}, false
		}
		if *lo > *hi {
			lo, hi = hi, lo
		}
		return domain.Range{Min: lo, Max: hi}, true
	}
	if m := ageExact.FindStringSubmatch(s); m != nil {
		n := atoi(m[1])
		if n == nil {
			return domain.Range{}, false
		}
		return domain.Range{Min: n, Max: domain.IntPtr(*n)}, true
	}
	return domain.Range{}, false
}

func atLeast(s string) (domain.Range, bool) {
	n := atoi(s)
	return domain.Range{Min: n}, n != nil
}

// atoi returns nil for text that is not an int, including overflow.
func atoi(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
