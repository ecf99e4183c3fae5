package slots

import (
	"context"
	"testing"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/ashureev/influencer-desk/internal/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackExtractor(t *testing.T) {
	t.Parallel()

	ip := domain.IntPtr
	tests := []struct {
		name     string
		req      intent.Request
		want     map[domain.Slot]domain.Value
		question bool
	}{
		{
			name: "name free text",
			req:  intent.Request{Step: domain.StepName, Kind: domain.EventText, Text: "Almas"},
			want: map[domain.Slot]domain.Value{domain.SlotName: domain.TextValue("Almas")},
		},
		{
			name:     "question on registration step",
			req:      intent.Request{Step: domain.StepCompany, Kind: domain.EventText, Text: "Why do you need this?"},
			question: true,
		},
		{
			name: "phone digits from text",
			req:  intent.Request{Step: domain.StepPhone, Kind: domain.EventText, Text: "+7 701 000 11 22"},
			want: map[domain.Slot]domain.Value{domain.SlotPhone: domain.TextValue("77010001122")},
		},
		{
			name: "contact payload",
			req:  intent.Request{Step: domain.StepCities, Kind: domain.EventContact, Text: "87010001122"},
			want: map[domain.Slot]domain.Value{domain.SlotPhone: domain.TextValue("87010001122")},
		},
		{
			name:     "phone without digits is a question",
			req:      intent.Request{Step: domain.StepPhone, Kind: domain.EventText, Text: "later"},
			question: true,
		},
		{
			name: "cities list",
			req:  intent.Request{Step: domain.StepCities, Kind: domain.EventText, Text: "Almaty, Astana"},
			want: map[domain.Slot]domain.Value{domain.SlotCities: domain.SetValue("Almaty", " Astana")},
		},
		{
			name: "age range text",
			req:  intent.Request{Step: domain.StepAge, Kind: domain.EventText, Text: "20-25"},
			want: map[domain.Slot]domain.Value{domain.SlotAge: domain.RangeValue(domain.Range{Min: ip(20), Max: ip(25)})},
		},
		{
			name: "unparsable age skips",
			req:  intent.Request{Step: domain.StepAge, Kind: domain.EventText, Text: "young people"},
			want: map[domain.Slot]domain.Value{domain.SlotAge: domain.SkipValue()},
		},
		{
			name: "overflowing age skips",
			req:  intent.Request{Step: domain.StepAge, Kind: domain.EventText, Text: "123456789012345678901234"},
			want: map[domain.Slot]domain.Value{domain.SlotAge: domain.SkipValue()},
		},
		{
			name: "overflowing followers skips",
			req:  intent.Request{Step: domain.StepFollowers, Kind: domain.EventText, Text: "10k-99999999999999999999"},
			want: map[domain.Slot]domain.Value{domain.SlotFollowers: domain.SkipValue()},
		},
		{
			name: "budget",
			req:  intent.Request{Step: domain.StepBudget, Kind: domain.EventText, Text: "до 80к"},
			want: map[domain.Slot]domain.Value{domain.SlotBudget: domain.RangeValue(domain.Range{Max: ip(80000)})},
		},
		{
			name: "skip word on optional step",
			req:  intent.Request{Step: domain.StepLanguage, Kind: domain.EventText, Text: "Пропустить"},
			want: map[domain.Slot]domain.Value{domain.SlotLanguage: domain.SkipValue()},
		},
		{
			name:     "free text on enumerated step is a question",
			req:      intent.Request{Step: domain.StepLanguage, Kind: domain.EventText, Text: "whatever works"},
			question: true,
		},
		{
			name: "button canonical value",
			req:  intent.Request{Step: domain.StepLanguage, Kind: domain.EventButton, Text: "русский"},
			want: map[domain.Slot]domain.Value{domain.SlotLanguage: domain.TextValue("русский")},
		},
		{
			name: "button yes on children",
			req:  intent.Request{Step: domain.StepChildren, Kind: domain.EventButton, Text: "yes"},
			want: map[domain.Slot]domain.Value{domain.SlotChildren: domain.BoolValue(true)},
		},
		{
			name: "button skip on children count",
			req:  intent.Request{Step: domain.StepChildrenCount, Kind: domain.EventButton, Text: "skip"},
			want: map[domain.Slot]domain.Value{domain.SlotChildrenCount: domain.SkipValue()},
		},
		{
			name: "marital bucket",
			req:  intent.Request{Step: domain.StepMaritalStatus, Kind: domain.EventText, Text: "Замужем"},
			want: map[domain.Slot]domain.Value{domain.SlotMaritalStatus: domain.TextValue("married")},
		},
		{
			name: "content formats",
			req:  intent.Request{Step: domain.StepContentFormats, Kind: domain.EventText, Text: "reels, stories"},
			want: map[domain.Slot]domain.Value{domain.SlotContentFormats: domain.SetValue("reels", "stories")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := FallbackExtractor{}.Extract(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.question, res.IsQuestion)
			if tt.want == nil {
				assert.Empty(t, res.Updates)
				return
			}
			assert.Equal(t, tt.want, res.Updates)
		})
	}
}

func TestCriteriaFromFields(t *testing.T) {
	t.Parallel()

	s := newSession()
	Merge(s, map[domain.Slot]domain.Value{
		domain.SlotCities:        domain.SetValue("Almaty", "Astana"),
		domain.SlotTopics:        domain.SetValue("Beauty"),
		domain.SlotLanguage:      domain.SkipValue(),
		domain.SlotChildren:      domain.BoolValue(true),
		domain.SlotChildrenCount: domain.TextValue("more"),
		domain.SlotBudget:        domain.RangeValue(domain.Range{Min: domain.IntPtr(50000), Max: domain.IntPtr(150000)}),
		domain.SlotFollowers:     domain.SkipValue(),
	})

	c := CriteriaFromFields(s.Fields())
	assert.Equal(t, []string{"almaty", "astana"}, c.Cities)
	assert.Equal(t, []string{"beauty"}, c.Topics)
	assert.Empty(t, c.Language)
	require.NotNil(t, c.HasChildren)
	assert.True(t, *c.HasChildren)
	assert.Equal(t, domain.ChildrenCountMore, c.ChildrenCount)
	require.NotNil(t, c.BudgetMax)
	assert.Equal(t, 150000, *c.BudgetMax)
	assert.Nil(t, c.Followers)
	assert.Nil(t, c.Age)
}
