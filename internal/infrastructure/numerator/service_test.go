package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighbridge/internal/core/apperror"
	corenumerator "weighbridge/internal/core/numerator"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64 // Simulates sys_sequences rows
	err    error
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return &mockRow{err: m.err}
	}
	if m.values == nil {
		m.values = make(map[string]int64)
	}
	key := args[0].(string)
	delta := args[1].(int64)
	m.values[key] += delta
	return &mockRow{val: m.values[key]}
}

var period = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	svc := New(NewPostgresStore(&mockQuerier{}))
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("ENTRY")

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "ENTRY-2026-00001", num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "ENTRY-2026-00002", num)
}

func TestGetNextNumber_ScopesAreIndependent(t *testing.T) {
	svc := New(NewMemoryStore())
	ctx := context.Background()

	_, err := svc.GetNextNumber(ctx, corenumerator.DefaultConfig("ENTRY"), nil, period)
	require.NoError(t, err)

	inv, err := svc.GetNextNumber(ctx, corenumerator.DefaultConfig("INV"), nil, period)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00001", inv)

	nextYear, err := svc.GetNextNumber(ctx, corenumerator.DefaultConfig("ENTRY"), nil, period.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "ENTRY-2027-00001", nextYear)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(NewPostgresStore(q))
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("ENTRY")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	for i := 1; i <= 12; i++ {
		num, err := svc.GetNextNumber(ctx, cfg, opts, period)
		require.NoError(t, err)
		assert.Equal(t, int64(i), corenumerator.ParseNumber(num))
	}

	// Two ranges of 10 were reserved.
	assert.Equal(t, int64(20), q.values["ENTRY-2026"])
}

func TestNextSequence_ConcurrentCallersGetDistinctValues(t *testing.T) {
	svc := New(NewMemoryStore())
	ctx := context.Background()

	const workers = 50
	results := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.NextSequence(ctx, "ENTRY-2026")
			if err == nil {
				results <- n
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for n := range results {
		assert.False(t, seen[n], "duplicate sequence %d", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers)
}

func TestNextSequence_StoreFailureIsAllocationFailure(t *testing.T) {
	svc := New(NewPostgresStore(&mockQuerier{err: errors.New("connection refused")}))

	_, err := svc.GetNextNumber(context.Background(), corenumerator.DefaultConfig("INV"), nil, period)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAllocationFailure))
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), corenumerator.ParseNumber("INV-2026-00042"))
	assert.Equal(t, int64(7), corenumerator.ParseNumber("ENTRY-00007"))
	assert.Equal(t, int64(-1), corenumerator.ParseNumber("garbage"))
}
