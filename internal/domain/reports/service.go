package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/cache"
	"weighbridge/internal/core/id"
	"weighbridge/internal/domain"
	"weighbridge/internal/domain/documents/entry"
)

// Source provides the entries a report is computed from.
type Source interface {
	FindAll(ctx context.Context, filter entry.ListFilter) ([]*entry.Entry, error)
}

// Service provides report generation operations.
type Service struct {
	source   Source
	cache    cache.Store
	cacheTTL time.Duration
	now      func() time.Time
}

// NewService creates a new reports service. store may be nil.
func NewService(source Source, store cache.Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		source:   source,
		cache:    store,
		cacheTTL: ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EntrySummary aggregates active entries per entry type and material using
// each entry's best-known weight.
func (s *Service) EntrySummary(ctx context.Context, filter SummaryFilter) (*EntrySummary, error) {
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, apperror.NewValidation("dateFrom must be before dateTo")
	}

	key := cache.Key(cache.ScopeReport, "entry-summary", cache.Fingerprint(filter))
	return cache.ReadThrough(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) (*EntrySummary, error) {
		entries, err := s.source.FindAll(ctx, entry.ListFilter{
			ListFilter: domain.ListFilter{OrderBy: "date"},
			PlantID:    filter.PlantID,
			VendorID:   filter.VendorID,
			EntryType:  filter.EntryType,
			DateFrom:   filter.DateFrom,
			DateTo:     filter.DateTo,
		})
		if err != nil {
			return nil, fmt.Errorf("get entry summary: %w", err)
		}
		return s.summarize(filter, entries), nil
	})
}

type groupKey struct {
	entryType  entry.Type
	materialID id.ID
}

func (s *Service) summarize(filter SummaryFilter, entries []*entry.Entry) *EntrySummary {
	out := &EntrySummary{
		Filter:      filter,
		TotalWeight: decimal.Zero,
		TotalAmount: decimal.Zero,
		GeneratedAt: s.now(),
	}
	groups := make(map[groupKey]*GroupSummary)

	for _, e := range entries {
		if !e.IsActive {
			continue
		}

		switch e.State() {
		case entry.StateOpen:
			out.States.Open++
		case entry.StateSettled:
			out.States.Settled++
		case entry.StateReviewed:
			out.States.Reviewed++
		case entry.StateFlagged:
			out.States.Flagged++
		}
		if e.HasVariance() {
			out.States.Variance++
		}

		k := groupKey{entryType: e.EntryType}
		if e.MaterialID != nil {
			k.materialID = *e.MaterialID
		}
		g, ok := groups[k]
		if !ok {
			g = &GroupSummary{
				EntryType:      e.EntryType,
				MaterialID:     e.MaterialID,
				Weight:         decimal.Zero,
				MoistureWeight: decimal.Zero,
				DustWeight:     decimal.Zero,
				Amount:         decimal.Zero,
			}
			groups[k] = g
		}

		w := e.BestKnownWeight()
		g.Count++
		g.Weight = g.Weight.Add(w)
		if e.MoistureWeight != nil {
			g.MoistureWeight = g.MoistureWeight.Add(*e.MoistureWeight)
		}
		if e.DustWeight != nil {
			g.DustWeight = g.DustWeight.Add(*e.DustWeight)
		}
		g.Amount = g.Amount.Add(e.TotalAmount)

		out.TotalCount++
		out.TotalWeight = out.TotalWeight.Add(w)
		out.TotalAmount = out.TotalAmount.Add(e.TotalAmount)
	}

	out.Groups = make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		out.Groups = append(out.Groups, *g)
	}
	sort.Slice(out.Groups, func(i, j int) bool {
		a, b := out.Groups[i], out.Groups[j]
		if a.EntryType != b.EntryType {
			return a.EntryType < b.EntryType
		}
		return materialKey(a.MaterialID) < materialKey(b.MaterialID)
	})
	return out
}

func materialKey(m *id.ID) string {
	if m == nil {
		return ""
	}
	return m.String()
}
