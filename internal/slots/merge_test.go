package slots

import (
	"testing"
	"time"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession() *domain.Session {
	return domain.NewSession("u1", time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC))
}

func TestMergeRegistrationIsSetIfEmpty(t *testing.T) {
	t.Parallel()

	s := newSession()
	applied := Merge(s, map[domain.Slot]domain.Value{domain.SlotName: domain.TextValue("  almas   nurlanov ")})
	require.Equal(t, []domain.Slot{domain.SlotName}, applied)

	v, ok := s.Field(domain.SlotName)
	require.True(t, ok)
	assert.Equal(t, "Almas Nurlanov", v.Text)

	applied = Merge(s, map[domain.Slot]domain.Value{domain.SlotName: domain.TextValue("Other")})
	assert.Empty(t, applied)
	v, _ = s.Field(domain.SlotName)
	assert.Equal(t, "Almas Nurlanov", v.Text)
}

func TestMergeFilterSlotsOverwrite(t *testing.T) {
	t.Parallel()

	s := newSession()
	Merge(s, map[domain.Slot]domain.Value{domain.SlotCities: domain.SetValue("Almaty")})
	Merge(s, map[domain.Slot]domain.Value{domain.SlotCities: domain.SetValue(" Astana", "astana", "Shymkent ")})

	v, ok := s.Field(domain.SlotCities)
	require.True(t, ok)
	assert.Equal(t, []string{"Astana", "Shymkent"}, v.Items)
}

func TestMergeNormalizes(t *testing.T) {
	t.Parallel()

	s := newSession()
	Merge(s, map[domain.Slot]domain.Value{
		domain.SlotPhone:          domain.TextValue("+7 (701) 123-45-67"),
		domain.SlotAge:            domain.RangeValue(domain.Range{Min: domain.IntPtr(30), Max: domain.IntPtr(20)}),
		domain.SlotContentFormats: domain.SetValue("Reels", "сторис", "tiktok", "reel"),
	})

	phone, _ := s.Field(domain.SlotPhone)
	assert.Equal(t, "77011234567", phone.Text)

	age, _ := s.Field(domain.SlotAge)
	assert.Equal(t, 20, *age.Range.Min)
	assert.Equal(t, 30, *age.Range.Max)

	formats, _ := s.Field(domain.SlotContentFormats)
	assert.Equal(t, []string{"reels", "stories"}, formats.Items)
}

func TestMergeDropsMalformedValues(t *testing.T) {
	t.Parallel()

	s := newSession()
	applied := Merge(s, map[domain.Slot]domain.Value{
		domain.SlotPhone:  domain.TextValue("no digits"),
		domain.SlotCities: domain.SkipValue(),
		domain.SlotAge:    domain.TextValue("twenty"),
		domain.SlotTopics: domain.SetValue(" ", ""),
	})
	assert.Empty(t, applied)
	assert.Empty(t, s.Fields())
}

func TestMergeChildrenFalseClearsCount(t *testing.T) {
	t.Parallel()

	s := newSession()
	Merge(s, map[domain.Slot]domain.Value{
		domain.SlotChildren:      domain.BoolValue(true),
		domain.SlotChildrenCount: domain.TextValue("2"),
	})
	require.True(t, s.HasField(domain.SlotChildrenCount))

	Merge(s, map[domain.Slot]domain.Value{domain.SlotChildren: domain.BoolValue(false)})
	assert.False(t, s.HasField(domain.SlotChildrenCount))
}

func TestMergeAgeClearsPendingAge(t *testing.T) {
	t.Parallel()

	s := newSession()
	s.SetPendingAge(24)
	Merge(s, map[domain.Slot]domain.Value{domain.SlotAge: domain.RangeValue(domain.Range{Max: domain.IntPtr(24)})})

	_, pending := s.PendingAge()
	assert.False(t, pending)
}
