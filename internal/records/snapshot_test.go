package records

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls   atomic.Int32
	records []domain.Record
	err     error
	delay   time.Duration
}

func (f *fakeSource) ListRecords(context.Context) ([]domain.Record, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.records, f.err
}

func sample() []domain.Record {
	return []domain.Record{
		{Handle: "a", City: "Almaty", Topics: "Beauty; lifestyle"},
		{Handle: "b", City: "astana", Topics: "travel|beauty"},
		{Handle: "c", City: " almaty ", Topics: "Food/Travel"},
		{Handle: "d", City: "", Topics: ""},
	}
}

func TestRecordsAreCached(t *testing.T) {
	t.Parallel()

	src := &fakeSource{records: sample()}
	snap := NewSnapshot(src, time.Minute, nil)

	for range 3 {
		recs, err := snap.Records(context.Background())
		require.NoError(t, err)
		assert.Len(t, recs, 4)
	}
	assert.Equal(t, int32(1), src.calls.Load())

	snap.Invalidate()
	_, err := snap.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestConcurrentMissesShareOneLoad(t *testing.T) {
	t.Parallel()

	src := &fakeSource{records: sample(), delay: 50 * time.Millisecond}
	snap := NewSnapshot(src, 0, nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := snap.Records(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Less(t, src.calls.Load(), int32(10))
}

func TestRecordsErrorIsNotCached(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: errors.New("disk gone")}
	snap := NewSnapshot(src, time.Minute, nil)

	_, err := snap.Records(context.Background())
	require.Error(t, err)

	src.err = nil
	src.records = sample()
	recs, err := snap.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 4)
}

func TestCitiesAndTopics(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot(&fakeSource{records: sample()}, time.Minute, nil)
	ctx := context.Background()

	cities, err := snap.Cities(ctx, 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"Almaty", "astana"}, cities)

	topics, err := snap.Topics(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Beauty", "Food", "lifestyle", "travel"}, topics)

	limited, err := snap.Options(ctx, domain.SlotTopics, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Beauty", "Food"}, limited)

	_, err = snap.Options(ctx, domain.SlotAge, 10)
	require.Error(t, err)
}
