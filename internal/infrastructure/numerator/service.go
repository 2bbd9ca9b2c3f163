// Package numerator provides the sequence allocator behind document auto-numbering.
// This is the infrastructure layer - it implements core/numerator.Generator and Allocator.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"weighbridge/internal/core/apperror"
	corenumerator "weighbridge/internal/core/numerator"
)

// Store performs an atomic add-and-fetch on a per-scope counter.
// It returns the counter value after adding delta.
type Store interface {
	Increment(ctx context.Context, scopeKey string, delta int64) (int64, error)
}

type cachedRange struct {
	current int64
	max     int64
}

// Service provides document numbering on top of a counter Store.
type Service struct {
	store Store

	// cacheMu protects ranges map
	cacheMu sync.Mutex
	// ranges stores reserved blocks per scope for the Cached strategy
	ranges map[string]*cachedRange
}

// Ensure compile-time interface compliance.
var (
	_ corenumerator.Generator = (*Service)(nil)
	_ corenumerator.Allocator = (*Service)(nil)
)

// New creates a new numerator service over the given counter store.
func New(store Store) *Service {
	return &Service{
		store:  store,
		ranges: make(map[string]*cachedRange),
	}
}

// NextSequence atomically increments the scope counter and returns the new value.
func (s *Service) NextSequence(ctx context.Context, scopeKey string) (int64, error) {
	if s == nil || s.store == nil {
		return 0, apperror.NewAllocationFailure(scopeKey, fmt.Errorf("numerator service is not initialized"))
	}
	num, err := s.store.Increment(ctx, scopeKey, 1)
	if err != nil {
		return 0, apperror.NewAllocationFailure(scopeKey, err)
	}
	return num, nil
}

// GetNextNumber generates the next document number.
// Pattern: PREFIX-YEAR-XXXXX (e.g., ENTRY-2026-00001)
//
// Supports Strict (one increment per number) and Cached (reserved ranges) strategies.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	if opts == nil {
		opts = corenumerator.DefaultOptions()
	}

	scope := corenumerator.ScopeKey(cfg, period)

	var (
		num int64
		err error
	)
	switch opts.Strategy {
	case corenumerator.StrategyCached:
		num, err = s.getNextCached(ctx, scope, opts)
	default:
		num, err = s.NextSequence(ctx, scope)
	}
	if err != nil {
		return "", err
	}

	return corenumerator.Format(cfg, period, num), nil
}

// getNextCached hands out numbers from memory, reserving a new block when exhausted.
func (s *Service) getNextCached(ctx context.Context, scope string, opts *corenumerator.Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, exists := s.ranges[scope]
	if !exists {
		rng = &cachedRange{}
		s.ranges[scope] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}

		newMax, err := s.store.Increment(ctx, scope, size)
		if err != nil {
			return 0, apperror.NewAllocationFailure(scope, fmt.Errorf("reserve range: %w", err))
		}

		// The reserved block is (newMax-size, newMax].
		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// Reset drops any reserved ranges, e.g. after counters were set manually.
func (s *Service) Reset() {
	s.cacheMu.Lock()
	s.ranges = make(map[string]*cachedRange)
	s.cacheMu.Unlock()
}
