package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/id"
	"weighbridge/internal/core/types"
	"weighbridge/internal/domain/documents/entry"
	infracache "weighbridge/internal/infrastructure/cache"
)

type stubSource struct {
	entries []*entry.Entry
	calls   int
	err     error
}

func (s *stubSource) FindAll(_ context.Context, _ entry.ListFilter) ([]*entry.Entry, error) {
	s.calls++
	return s.entries, s.err
}

func settled(material id.ID, exact int64, amount int64) *entry.Entry {
	e := entry.NewEntry(entry.TypePurchase, id.New(), id.New(), id.New(), types.Kg(exact+4000))
	e.MaterialID = &material
	e.ExitWeight = types.Ptr(types.Kg(4000))
	e.ExactWeight = types.Ptr(types.Kg(exact))
	e.TotalAmount = types.Kg(amount)
	no := false
	e.VarianceFlag = &no
	return e
}

func TestEntrySummary_GroupsAndStates(t *testing.T) {
	lime, coal := id.New(), id.New()

	open := entry.NewEntry(entry.TypePurchase, id.New(), id.New(), id.New(), types.Kg(9000))
	open.MaterialID = &lime

	flagged := settled(coal, 3000, 300)
	flagged.Flagged = true

	variance := settled(coal, 2000, 0)
	yes := true
	variance.VarianceFlag = &yes

	reviewed := settled(lime, 5000, 500)
	reviewed.IsReviewed = true

	deleted := settled(lime, 99999, 99999)
	deleted.IsActive = false

	src := &stubSource{entries: []*entry.Entry{
		settled(lime, 6000, 600), open, flagged, variance, reviewed, deleted,
	}}
	svc := NewService(src, nil, 0)

	got, err := svc.EntrySummary(context.Background(), SummaryFilter{})
	require.NoError(t, err)

	assert.Equal(t, 5, got.TotalCount)
	assert.Equal(t, StateCounts{Open: 1, Settled: 2, Reviewed: 1, Flagged: 1, Variance: 1}, got.States)
	// 6000 + 9000 (entry weight of the open one) + 3000 + 2000 + 5000
	assert.True(t, got.TotalWeight.Equal(types.Kg(25000)), "got %s", got.TotalWeight)
	assert.True(t, got.TotalAmount.Equal(types.Kg(1400)))
	require.Len(t, got.Groups, 2)
	for _, g := range got.Groups {
		switch *g.MaterialID {
		case lime:
			assert.Equal(t, 3, g.Count)
			assert.True(t, g.Weight.Equal(types.Kg(20000)))
		case coal:
			assert.Equal(t, 2, g.Count)
			assert.True(t, g.Weight.Equal(types.Kg(5000)))
		}
	}
}

func TestEntrySummary_RejectsInvertedRange(t *testing.T) {
	svc := NewService(&stubSource{}, nil, 0)
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.EntrySummary(context.Background(), SummaryFilter{DateFrom: &from, DateTo: &to})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestEntrySummary_CachedUntilInvalidated(t *testing.T) {
	src := &stubSource{entries: []*entry.Entry{settled(id.New(), 6000, 600)}}
	store := infracache.NewMemoryStore()
	svc := NewService(src, store, time.Minute)

	_, err := svc.EntrySummary(context.Background(), SummaryFilter{})
	require.NoError(t, err)
	_, err = svc.EntrySummary(context.Background(), SummaryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	require.NoError(t, store.DeleteByPattern(context.Background(), "wb:report:*"))
	_, err = svc.EntrySummary(context.Background(), SummaryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestEntrySummary_SourceError(t *testing.T) {
	svc := NewService(&stubSource{err: errors.New("db down")}, nil, 0)
	_, err := svc.EntrySummary(context.Background(), SummaryFilter{})
	assert.Error(t, err)
}
