package filter

import (
	"fmt"
	"testing"
	"time"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handles(records []domain.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Handle
	}
	return out
}

func at(day int) *time.Time {
	t := time.Date(2026, time.March, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func fixture() []domain.Record {
	return []domain.Record{
		{Handle: "aruzhan", City: "Almaty", Topics: "beauty; lifestyle", Language: "Казахский, Русский", Gender: "Ж", Age: "24", MaritalStatus: "замужем", ChildrenCount: domain.IntPtr(1), Followers: domain.IntPtr(120000), Price: domain.IntPtr(90000), UpdatedAt: at(10)},
		{Handle: "dias", City: "astana ", Topics: "Sport/Travel", Language: "Русский", Gender: "male", Age: "25-30", MaritalStatus: "не женат", Followers: domain.IntPtr(45000), Price: domain.IntPtr(40000), UpdatedAt: at(12)},
		{Handle: "madina", City: "Shymkent", Topics: "food|family", Language: "Казахский", Gender: "female", Age: "30+", MaritalStatus: "разведена", ChildrenCount: domain.IntPtr(5), Followers: nil, Price: nil, UpdatedAt: nil},
		{Handle: "timur", City: "Almaty", Topics: "tech, travel", Language: "English", Gender: "М", Age: "n/a", Followers: domain.IntPtr(300000), Price: domain.IntPtr(250000), UpdatedAt: at(12)},
	}
}

func TestApplyOrdering(t *testing.T) {
	t.Parallel()

	got := handles(Apply(fixture(), domain.CriteriaSet{}, 0))
	// Same updated_at for dias and timur: followers breaks the tie. Missing timestamp last.
	want := []string{"timur", "dias", "aruzhan", "madina"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	t.Parallel()

	c := domain.CriteriaSet{Topics: []string{"travel", "beauty"}}
	first := Apply(fixture(), c, 0)
	second := Apply(fixture(), c, 0)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("non-deterministic output (-first +second):\n%s", diff)
	}
}

func TestApplyLimitAfterSort(t *testing.T) {
	t.Parallel()

	got := handles(Apply(fixture(), domain.CriteriaSet{}, 2))
	assert.Equal(t, []string{"timur", "dias"}, got)
}

func TestApplyPredicates(t *testing.T) {
	t.Parallel()

	yes, no := true, false

	tests := []struct {
		name     string
		criteria domain.CriteriaSet
		want     []string
	}{
		{name: "cities case-insensitive", criteria: domain.CriteriaSet{Cities: []string{"almaty", "ASTANA"}}, want: []string{"timur", "dias", "aruzhan"}},
		{name: "topics intersection", criteria: domain.CriteriaSet{Topics: []string{"Travel"}}, want: []string{"timur", "dias"}},
		{name: "language substring", criteria: domain.CriteriaSet{Language: "казах"}, want: []string{"aruzhan", "madina"}},
		{name: "gender first letter across alphabets", criteria: domain.CriteriaSet{Gender: "female"}, want: []string{"aruzhan", "madina"}},
		{name: "marital bucket", criteria: domain.CriteriaSet{MaritalStatus: "married"}, want: []string{"aruzhan"}},
		{name: "marital bucket single", criteria: domain.CriteriaSet{MaritalStatus: "single"}, want: []string{"dias"}},
		{name: "has children", criteria: domain.CriteriaSet{HasChildren: &yes}, want: []string{"aruzhan", "madina"}},
		{name: "no children counts missing as zero", criteria: domain.CriteriaSet{HasChildren: &no}, want: []string{"timur", "dias"}},
		{name: "children more than four", criteria: domain.CriteriaSet{ChildrenCount: domain.ChildrenCountMore}, want: []string{"madina"}},
		{name: "children exact", criteria: domain.CriteriaSet{ChildrenCount: "1"}, want: []string{"aruzhan"}},
		{name: "age overlap and unparsable cell fails", criteria: domain.CriteriaSet{Age: &domain.Range{Min: domain.IntPtr(24), Max: domain.IntPtr(26)}}, want: []string{"dias", "aruzhan"}},
		{name: "age open upper cell", criteria: domain.CriteriaSet{Age: &domain.Range{Min: domain.IntPtr(40)}}, want: []string{"madina"}},
		{name: "followers range", criteria: domain.CriteriaSet{Followers: &domain.Range{Min: domain.IntPtr(50000), Max: domain.IntPtr(200000)}}, want: []string{"aruzhan"}},
		{name: "followers max excludes missing", criteria: domain.CriteriaSet{Followers: &domain.Range{Max: domain.IntPtr(200000)}}, want: []string{"dias", "aruzhan"}},
		{name: "budget excludes missing price", criteria: domain.CriteriaSet{BudgetMax: domain.IntPtr(100000)}, want: []string{"dias", "aruzhan"}},
		{name: "predicates are ANDed", criteria: domain.CriteriaSet{Cities: []string{"Almaty"}, Gender: "м"}, want: []string{"timur"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := handles(Apply(fixture(), tt.criteria, 0))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyOverflowingAgeCellFails(t *testing.T) {
	t.Parallel()

	records := []domain.Record{
		{Handle: "range", Age: "18-99999999999999999999"},
		{Handle: "exact", Age: "99999999999999999999"},
		{Handle: "open", Age: "99999999999999999999+"},
		{Handle: "ok", Age: "22"},
	}
	var got []domain.Record
	require.NotPanics(t, func() {
		got = Apply(records, domain.CriteriaSet{Age: &domain.Range{Min: domain.IntPtr(20)}}, 0)
	})
	assert.Equal(t, []string{"ok"}, handles(got))
}

func TestMissingFollowersNeverSatisfiesMinimum(t *testing.T) {
	t.Parallel()

	records := []domain.Record{
		{Handle: "empty"},
		{Handle: "big", Followers: domain.IntPtr(5000)},
	}
	got := Apply(records, domain.CriteriaSet{Followers: &domain.Range{Min: domain.IntPtr(1000)}}, 0)
	assert.Equal(t, []string{"big"}, handles(got))
}

func TestPaginateTwelveRecords(t *testing.T) {
	t.Parallel()

	records := make([]domain.Record, 12)
	for i := range records {
		records[i] = domain.Record{Handle: fmt.Sprintf("r%02d", i+1)}
	}
	ordered := Apply(records, domain.CriteriaSet{}, 0)

	first := Paginate(ordered, 1, 5)
	require.Equal(t, 3, first.TotalPages)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, []string{"r01", "r02", "r03", "r04", "r05"}, handles(first.Items))

	clamped := Paginate(ordered, 4, 5)
	assert.Equal(t, 3, clamped.Page)
	assert.Equal(t, []string{"r11", "r12"}, handles(clamped.Items))
}

func TestPaginateClamping(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name      string
		page      int
		size      int
		wantPage  int
		wantTotal int
		wantItems []int
	}{
		{name: "far past end", page: 999, size: 5, wantPage: 2, wantTotal: 2, wantItems: []int{6, 7}},
		{name: "zero clamps to first", page: 0, size: 5, wantPage: 1, wantTotal: 2, wantItems: []int{1, 2, 3, 4, 5}},
		{name: "negative clamps to first", page: -3, size: 3, wantPage: 1, wantTotal: 3, wantItems: []int{1, 2, 3}},
		{name: "non-positive size is one page", page: 2, size: 0, wantPage: 1, wantTotal: 1, wantItems: items},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := Paginate(items, tt.page, tt.size)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantTotal, p.TotalPages)
			assert.Equal(t, tt.wantItems, p.Items)
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	t.Parallel()

	p := Paginate([]domain.Record(nil), 3, 5)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Items)
}

func TestPaginateCopiesWindow(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3}
	p := Paginate(items, 1, 2)
	p.Items[0] = 99
	assert.Equal(t, 1, items[0])
}
