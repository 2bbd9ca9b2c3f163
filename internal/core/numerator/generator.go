package numerator

import (
	"context"
	"time"
)

// Allocator issues per-scope sequence values.
// NextSequence must be a single atomic increment-and-fetch, never read-then-write,
// so concurrent callers can never receive the same value.
type Allocator interface {
	NextSequence(ctx context.Context, scopeKey string) (int64, error)
}

// Generator generates formatted document numbers.
// This is the domain contract - implementations live in infrastructure layer.
type Generator interface {
	// GetNextNumber generates the next document number.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., INV-2026-00001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
}
