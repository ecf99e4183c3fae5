// Package records serves a cached, read-only snapshot of the influencer table.
package records

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/ashureev/influencer-desk/internal/store"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const snapshotKey = "influencers"

// Snapshot loads the record table through a short-lived cache. Concurrent
// misses share one load. Returned slices are shared and must not be modified.
type Snapshot struct {
	source store.RecordSource
	cache  *expirable.LRU[string, []domain.Record]
	group  singleflight.Group
	logger *slog.Logger
}

// NewSnapshot caches loads from source for ttl. A non-positive ttl disables
// caching but still collapses concurrent loads.
func NewSnapshot(source store.RecordSource, ttl time.Duration, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Snapshot{source: source, logger: logger}
	if ttl > 0 {
		s.cache = expirable.NewLRU[string, []domain.Record](1, nil, ttl)
	}
	return s
}

// Records returns every record of the table.
func (s *Snapshot) Records(ctx context.Context) ([]domain.Record, error) {
	if s.cache != nil {
		if recs, ok := s.cache.Get(snapshotKey); ok {
			return recs, nil
		}
	}

	v, err, shared := s.group.Do(snapshotKey, func() (any, error) {
		start := time.Now()
		recs, err := s.source.ListRecords(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Add(snapshotKey, recs)
		}
		s.logger.Debug("Loaded record snapshot", "count", len(recs), "elapsed", time.Since(start))
		return recs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if shared {
		s.logger.Debug("Record snapshot load shared")
	}
	return v.([]domain.Record), nil
}

// Invalidate drops the cached snapshot.
func (s *Snapshot) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Cities returns the distinct city names, sorted case-insensitively.
// A positive limit truncates the list.
func (s *Snapshot) Cities(ctx context.Context, limit int) ([]string, error) {
	recs, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(recs))
	for _, r := range recs {
		values = append(values, r.City)
	}
	return distinct(values, limit), nil
}

// Topics returns the distinct topic tokens across all records, sorted
// case-insensitively. A positive limit truncates the list.
func (s *Snapshot) Topics(ctx context.Context, limit int) ([]string, error) {
	recs, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	var values []string
	for _, r := range recs {
		values = append(values, strings.FieldsFunc(r.Topics, func(c rune) bool {
			return strings.ContainsRune(";,/|", c)
		})...)
	}
	return distinct(values, limit), nil
}

// Options returns the choices offered for a multi-select slot.
func (s *Snapshot) Options(ctx context.Context, slot domain.Slot, limit int) ([]string, error) {
	switch slot {
	case domain.SlotCities:
		return s.Cities(ctx, limit)
	case domain.SlotTopics:
		return s.Topics(ctx, limit)
	}
	return nil, fmt.Errorf("no options for slot %q", slot)
}

// distinct trims, drops empties, dedupes case-insensitively keeping the
// first spelling, then sorts.
func distinct(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b string) int {
		return cmp.Or(cmp.Compare(strings.ToLower(a), strings.ToLower(b)), cmp.Compare(a, b))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
