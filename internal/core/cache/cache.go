// Package cache defines the key-value cache port used for read-through
// caching of entries, invoices and reports.
//
// Keys are only ever built with Key and Pattern so that every invalidation
// rule is expressed in terms of a Scope, never a hand-written string.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a byte-oriented cache with pattern invalidation.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeleteByPattern removes every key matching a glob pattern ("prefix:*").
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Scope groups keys invalidated together.
type Scope string

const (
	ScopeEntry       Scope = "entry"
	ScopeEntryList   Scope = "entry-list"
	ScopeInvoice     Scope = "invoice"
	ScopeInvoiceList Scope = "invoice-list"
	ScopeReport      Scope = "report"
)

// Namespace prefixes every key so several services can share one Redis.
const Namespace = "wb"

// Key builds a cache key inside scope.
func Key(scope Scope, parts ...string) string {
	var b strings.Builder
	b.WriteString(Namespace)
	b.WriteByte(':')
	b.WriteString(string(scope))
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// Pattern matches every key of scope.
func Pattern(scope Scope) string {
	return Key(scope, "*")
}

// KeyPattern matches every key of scope that starts with parts.
// Used to drop one entity's detail key together with any variants.
func KeyPattern(scope Scope, parts ...string) string {
	return Key(scope, parts...) + "*"
}
