package numerator

import (
	"context"
	"sync"
)

// MemoryStore is a process-local counter store for development and tests.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemoryStore creates an empty counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]int64)}
}

// Increment implements Store.
func (m *MemoryStore) Increment(_ context.Context, scopeKey string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scopeKey] += delta
	return m.values[scopeKey], nil
}
