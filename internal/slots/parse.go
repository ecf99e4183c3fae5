package slots

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ashureev/influencer-desk/internal/domain"
)

var (
	amountNoise   = strings.NewReplacer(" ", "", "\u00a0", "", "–", "-", "—", "-", "тенге", "", "тг", "", "₸", "")
	amountSuffix  = strings.NewReplacer("тыс.", "000", "тыс", "000", "млн", "000000", "к", "000", "k", "000", "m", "000000")
	amountPrefix  = strings.NewReplacer("от", ">=", "from", ">=", "до", "<=", "upto", "<=")
	amountBetween = regexp.MustCompile(`^(\d+)-(\d+)$`)
	amountAtLeast = regexp.MustCompile(`^>=?(\d+)$|^(\d+)\+$`)
	amountAtMost  = regexp.MustCompile(`^<=?(\d+)$`)
	amountExact   = regexp.MustCompile(`^(\d+)$`)
	bareAge       = regexp.MustCompile(`^\s*(\d{1,2})\s*$`)
	phoneRun      = regexp.MustCompile(`\+?\d[\d\s\-()]*\d`)
	listSeparator = regexp.MustCompile(`[;,/|\n]+`)
)

// ParseAmountRange reads follower counts and budgets such as "10k-50k",
// "от 5000", "до 100к" or "25000". Amounts that overflow an int are
// unparsable.
func ParseAmountRange(s string) (domain.Range, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return domain.Range{}, false
	}
	s = amountSuffix.Replace(amountPrefix.Replace(amountNoise.Replace(s)))

	var r domain.Range
	if m := amountBetween.FindStringSubmatch(s); m != nil {
		r = domain.Range{Min: atoi(m[1]), Max: atoi(m[2])}
		if r.Min == nil || r.Max == nil {
			return domain.Range{}, false
		}
		return orderRange(r), true
	}
	if m := amountAtLeast.FindStringSubmatch(s); m != nil {
		r = domain.Range{Min: atoi(m[1] + m[2])}
		return r, r.Min != nil
	}
	if m := amountAtMost.FindStringSubmatch(s); m != nil {
		r = domain.Range{Max: atoi(m[1])}
		return r, r.Max != nil
	}
	if m := amountExact.FindStringSubmatch(s); m != nil {
		r = domain.Range{Min: atoi(m[1]), Max: atoi(m[1])}
		return r, r.Min != nil
	}
	return domain.Range{}, false
}

// BareAge returns the number when the text is a lone one or two digit age,
// which needs disambiguation before it can be stored.
func BareAge(s string) (int, bool) {
	m := bareAge.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// ExtractPhone returns the digits of the first phone-like run in s.
func ExtractPhone(s string) string {
	return digitsOnly(phoneRun.FindString(s))
}

// SplitList splits free text on list separators.
func SplitList(s string) []string {
	return listSeparator.Split(s, -1)
}

var skipWords = []string{"skip", "пропустить", "пропуск", "не важно", "неважно", "без разницы", "нет разницы", "any", "-"}

// IsSkip reports whether the text asks to skip an optional step.
func IsSkip(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, w := range skipWords {
		if s == w {
			return true
		}
	}
	return false
}

// ParseYesNo reads a yes/no answer.
func ParseYesNo(s string) (bool, bool) {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), ".!")) {
	case "yes", "y", "да", "есть", "иә":
		return true, true
	case "no", "n", "нет", "жоқ":
		return false, true
	}
	return false, false
}

// ParseChildrenCount reads "1".."4" or the more-than-four bucket.
func ParseChildrenCount(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == domain.ChildrenCountMore || strings.HasPrefix(s, "более") || strings.HasPrefix(s, "больше") || strings.HasPrefix(s, "more") || s == ">4" || s == "5+" {
		return domain.ChildrenCountMore, true
	}
	n, err := strconv.Atoi(s)
	switch {
	case err != nil || n < 1:
		return "", false
	case n > 4:
		return domain.ChildrenCountMore, true
	}
	return strconv.Itoa(n), true
}

// ParseDecision reads the basic/advanced choice from free text.
func ParseDecision(s string) (advanced bool, ok bool) {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "advanced"), strings.Contains(s, "расширен"), strings.Contains(s, "точн"), strings.Contains(s, "подробн"):
		return true, true
	case strings.Contains(s, "basic"), strings.Contains(s, "results"), strings.Contains(s, "результат"), strings.Contains(s, "показ"):
		return false, true
	}
	return false, false
}

func atoi(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
