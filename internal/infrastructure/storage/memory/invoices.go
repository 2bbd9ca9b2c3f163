package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/id"
	"weighbridge/internal/domain"
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/domain/documents/invoice"
)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct{ s *Store }

// Invoices returns the invoice repository.
func (s *Store) Invoices() *InvoiceRepo { return &InvoiceRepo{s} }

func (r *InvoiceRepo) Create(_ context.Context, inv *invoice.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.invoices[inv.ID]; exists {
		return apperror.NewDuplicate("invoice", "id", inv.ID.String())
	}
	r.s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *InvoiceRepo) GetByID(_ context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	return cloneInvoice(inv), nil
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return r.GetByID(ctx, invoiceID)
}

func (r *InvoiceRepo) List(_ context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	r.s.mu.RLock()
	all := make([]*invoice.Invoice, 0)
	for _, inv := range r.s.invoices {
		if filter.Matches(inv) {
			all = append(all, cloneInvoice(inv))
		}
	}
	r.s.mu.RUnlock()

	field, desc := parseOrder(filter.OrderBy)
	var less func(a, b *invoice.Invoice) bool
	switch field {
	case "date", "":
		less = func(a, b *invoice.Invoice) bool { return a.Date.Before(b.Date) }
	case "number":
		less = func(a, b *invoice.Invoice) bool { return a.Number < b.Number }
	case "total_amount":
		less = func(a, b *invoice.Invoice) bool { return a.TotalAmount.LessThan(b.TotalAmount) }
	default:
		return domain.ListResult[*invoice.Invoice]{}, apperror.NewValidation("invalid orderBy").WithDetail("orderBy", filter.OrderBy)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if desc {
			return less(all[j], all[i])
		}
		return less(all[i], all[j])
	})
	return paginate(all, filter.Limit, filter.Offset), nil
}

func (r *InvoiceRepo) Delete(_ context.Context, invoiceID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[invoiceID]
	if !ok {
		return apperror.NewNotFound("invoice", invoiceID.String())
	}
	cp := cloneInvoice(inv)
	cp.Deactivate()
	cp.Touch()
	r.s.invoices[invoiceID] = cp
	return nil
}

func (r *InvoiceRepo) UpdateTotals(_ context.Context, invoiceID id.ID, quantity, amount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[invoiceID]
	if !ok {
		return apperror.NewNotFound("invoice", invoiceID.String())
	}
	cp := cloneInvoice(inv)
	cp.TotalQuantity, cp.TotalAmount = quantity, amount
	cp.Touch()
	r.s.invoices[invoiceID] = cp
	return nil
}

func (r *InvoiceRepo) EligibleEntries(_ context.Context, c invoice.Criteria) ([]*entry.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entry.Entry, 0)
	for _, e := range r.s.entries {
		if _, claimed := r.s.claims[e.ID]; claimed {
			continue
		}
		if c.Eligible(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *InvoiceRepo) ClaimEntries(_ context.Context, invoiceID id.ID, entryIDs []id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[invoiceID]
	if !ok {
		return apperror.NewNotFound("invoice", invoiceID.String())
	}
	for _, entryID := range entryIDs {
		if holder, claimed := r.s.claims[entryID]; claimed && holder != invoiceID {
			return apperror.NewConcurrentModification("entry", entryID.String()).
				WithDetail("invoiceId", holder.String())
		}
	}
	cp := cloneInvoice(inv)
	for _, entryID := range entryIDs {
		r.s.claims[entryID] = invoiceID
		if !slices.Contains(cp.EntryIDs, entryID) {
			cp.EntryIDs = append(cp.EntryIDs, entryID)
		}
	}
	r.s.invoices[invoiceID] = cp
	return nil
}

// ReleaseEntries frees the claims; the invoice keeps listing its entries.
func (r *InvoiceRepo) ReleaseEntries(_ context.Context, invoiceID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for entryID, holder := range r.s.claims {
		if holder == invoiceID {
			delete(r.s.claims, entryID)
		}
	}
	return nil
}

func (r *InvoiceRepo) ActiveByEntry(_ context.Context, entryID id.ID) ([]*invoice.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	holder, ok := r.s.claims[entryID]
	if !ok {
		return nil, nil
	}
	inv, ok := r.s.invoices[holder]
	if !ok || !inv.IsActive {
		return nil, nil
	}
	return []*invoice.Invoice{cloneInvoice(inv)}, nil
}

func cloneInvoice(inv *invoice.Invoice) *invoice.Invoice {
	cp := *inv
	cp.EntryIDs = slices.Clone(inv.EntryIDs)
	return &cp
}

var _ invoice.Repository = (*InvoiceRepo)(nil)
