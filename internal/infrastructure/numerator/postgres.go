package numerator

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps counters in sys_sequences.
// The UPSERT ... RETURNING is a single statement, so concurrent callers are
// serialized by the row lock and never observe the same value.
type PostgresStore struct {
	querier Querier
}

// NewPostgresStore creates a counter store over querier. Passing a
// transaction-aware querier makes increments part of the caller's
// transaction, so a rolled-back document gives its number back.
func NewPostgresStore(querier Querier) *PostgresStore {
	return &PostgresStore{querier: querier}
}

// Increment implements Store.
func (p *PostgresStore) Increment(ctx context.Context, scopeKey string, delta int64) (int64, error) {
	var num int64
	err := p.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (scope_key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (scope_key) DO UPDATE SET current_val = sys_sequences.current_val + $2
		RETURNING current_val
	`, scopeKey, delta).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", scopeKey, err)
	}
	return num, nil
}
