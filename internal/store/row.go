package store

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/influencer-desk/internal/domain"
)

// Columns of the influencers table, in storage order.
var Columns = []string{
	"name", "handle", "profile_url", "city", "topics", "language",
	"followers", "reach_stories", "reach_reels", "reach_post", "price",
	"updated_at", "gender", "age", "marital_status", "children_count",
}

// Row is one raw influencer row keyed by column. Cells are stored as text
// and coerced when read.
type Row map[string]string

// Record converts a raw row into the typed record. Numeric cells that do
// not parse become nil.
func (r Row) Record() domain.Record {
	return domain.Record{
		Name:          strings.TrimSpace(r["name"]),
		Handle:        strings.TrimSpace(r["handle"]),
		ProfileURL:    strings.TrimSpace(r["profile_url"]),
		City:          strings.TrimSpace(r["city"]),
		Topics:        strings.TrimSpace(r["topics"]),
		Language:      strings.TrimSpace(r["language"]),
		Followers:     ParseCount(r["followers"]),
		ReachStories:  ParseCount(r["reach_stories"]),
		ReachReels:    ParseCount(r["reach_reels"]),
		ReachPost:     ParseCount(r["reach_post"]),
		Price:         ParseCount(r["price"]),
		UpdatedAt:     ParseTimestamp(r["updated_at"]),
		Gender:        strings.TrimSpace(r["gender"]),
		Age:           strings.TrimSpace(r["age"]),
		MaritalStatus: strings.TrimSpace(r["marital_status"]),
		ChildrenCount: ParseCount(r["children_count"]),
	}
}

var countNoise = strings.NewReplacer(" ", "", "\u00a0", "", ",", "", "_", "")

// ParseCount coerces a numeric cell such as "12 500", "12,500" or "12500.0".
func ParseCount(cell string) *int {
	cell = countNoise.Replace(strings.TrimSpace(cell))
	if cell == "" {
		return nil
	}
	if n, err := strconv.Atoi(cell); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	n := int(math.Round(f))
	return &n
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
}

// ParseTimestamp coerces an updated_at cell; unknown formats become nil.
func ParseTimestamp(cell string) *time.Time {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
