// Package consistency keeps derived state in step with entry and invoice
// mutations: invoice totals are recomputed synchronously, then cached
// reads that could include the mutated record are invalidated.
package consistency

import (
	"context"
	"errors"

	"weighbridge/internal/core/cache"
	"weighbridge/internal/core/id"
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/domain/documents/invoice"
	"weighbridge/pkg/logger"
)

// Recomputer refreshes the totals of the invoices holding an entry.
type Recomputer interface {
	RecomputeTotalsForEntry(ctx context.Context, entryID id.ID) ([]id.ID, error)
}

// Coordinator runs after every committed entry or invoice write.
type Coordinator struct {
	store      cache.Store
	recomputer Recomputer
}

// NewCoordinator creates a coordinator. store may be nil when caching is off.
func NewCoordinator(store cache.Store, recomputer Recomputer) *Coordinator {
	return &Coordinator{store: store, recomputer: recomputer}
}

// Attach registers the coordinator on both services' after-hooks.
func Attach(c *Coordinator, entries *entry.Service, invoices *invoice.Service) {
	entries.Hooks().OnAfterChange(c.EntryChanged)
	invoices.Hooks().OnAfterChange(c.InvoiceChanged)
}

// EntryChanged recomputes the invoices that hold e, then drops e's detail
// key, every entry list, every report and each touched invoice.
//
// A recompute failure is returned after invalidation still runs; the entry
// write itself is already committed and is not undone. Cache faults are
// only logged.
func (c *Coordinator) EntryChanged(ctx context.Context, e *entry.Entry) error {
	var recomputeErr error
	touched, err := c.recomputer.RecomputeTotalsForEntry(ctx, e.ID)
	if err != nil {
		logger.Error(ctx, "invoice recompute after entry change failed",
			"entry_id", e.ID,
			"error", err)
		recomputeErr = err
	}

	patterns := []string{
		cache.KeyPattern(cache.ScopeEntry, e.ID.String()),
		cache.Pattern(cache.ScopeEntryList),
		cache.Pattern(cache.ScopeReport),
	}
	if len(touched) > 0 {
		patterns = append(patterns, cache.Pattern(cache.ScopeInvoiceList))
		for _, invoiceID := range touched {
			patterns = append(patterns, cache.KeyPattern(cache.ScopeInvoice, invoiceID.String()))
		}
	}

	c.invalidate(ctx, patterns)
	return recomputeErr
}

// InvoiceChanged drops inv's detail key, every invoice list, every entry
// list (invoiced status shows there) and every report.
func (c *Coordinator) InvoiceChanged(ctx context.Context, inv *invoice.Invoice) error {
	c.invalidate(ctx, []string{
		cache.KeyPattern(cache.ScopeInvoice, inv.ID.String()),
		cache.Pattern(cache.ScopeInvoiceList),
		cache.Pattern(cache.ScopeEntryList),
		cache.Pattern(cache.ScopeReport),
	})
	return nil
}

func (c *Coordinator) invalidate(ctx context.Context, patterns []string) {
	if c.store == nil {
		return
	}
	var errs []error
	for _, p := range patterns {
		if err := c.store.DeleteByPattern(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		logger.Warn(ctx, "cache invalidation incomplete",
			"failed", len(errs),
			"error", errors.Join(errs...))
	}
}
