package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	corecache "weighbridge/internal/core/cache"
)

// Metrics counts cache outcomes per scope.
type Metrics struct {
	requests      *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	errors        *prometheus.CounterVec
}

// NewMetrics registers the cache collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weighbridge_cache_requests_total",
			Help: "Cache lookups by scope and result (hit, miss).",
		}, []string{"scope", "result"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weighbridge_cache_invalidations_total",
			Help: "Pattern invalidations by scope.",
		}, []string{"scope"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weighbridge_cache_errors_total",
			Help: "Cache backend failures by operation.",
		}, []string{"op"}),
	}
	registerer.MustRegister(m.requests, m.invalidations, m.errors)
	return m
}

// InstrumentedStore decorates a Store with Prometheus counters.
type InstrumentedStore struct {
	next    corecache.Store
	metrics *Metrics
}

// Instrument wraps next.
func Instrument(next corecache.Store, metrics *Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, metrics: metrics}
}

// Get implements cache.Store.
func (s *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.next.Get(ctx, key)
	switch {
	case err == nil:
		s.metrics.requests.WithLabelValues(scopeOf(key), "hit").Inc()
	case errors.Is(err, corecache.ErrMiss):
		s.metrics.requests.WithLabelValues(scopeOf(key), "miss").Inc()
	default:
		s.metrics.errors.WithLabelValues("get").Inc()
	}
	return raw, err
}

// Set implements cache.Store.
func (s *InstrumentedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.next.Set(ctx, key, value, ttl)
	if err != nil {
		s.metrics.errors.WithLabelValues("set").Inc()
	}
	return err
}

// DeleteByPattern implements cache.Store.
func (s *InstrumentedStore) DeleteByPattern(ctx context.Context, pattern string) error {
	err := s.next.DeleteByPattern(ctx, pattern)
	if err != nil {
		s.metrics.errors.WithLabelValues("delete").Inc()
		return err
	}
	s.metrics.invalidations.WithLabelValues(scopeOf(pattern)).Inc()
	return nil
}

// scopeOf extracts the scope segment of "wb:<scope>:...".
func scopeOf(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 || parts[0] != corecache.Namespace {
		return "unknown"
	}
	return parts[1]
}

var _ corecache.Store = (*InstrumentedStore)(nil)
