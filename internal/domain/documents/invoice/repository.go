package invoice

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge/internal/core/id"
	"weighbridge/internal/domain"
	"weighbridge/internal/domain/documents/entry"
)

// Repository defines persistence for invoices and their entry claims.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error)

	// Delete soft-deletes the invoice.
	Delete(ctx context.Context, invoiceID id.ID) error

	// UpdateTotals overwrites total quantity and amount only.
	UpdateTotals(ctx context.Context, invoiceID id.ID, quantity, amount decimal.Decimal) error

	// EligibleEntries returns entries matching c that no active invoice has claimed.
	EligibleEntries(ctx context.Context, c Criteria) ([]*entry.Entry, error)

	// ClaimEntries binds entries to the invoice. Claims are exclusive: if any
	// entry is already held by an active claim, nothing is claimed and
	// CONCURRENT_MODIFICATION is returned.
	ClaimEntries(ctx context.Context, invoiceID id.ID, entryIDs []id.ID) error

	// ReleaseEntries frees every claim of the invoice.
	ReleaseEntries(ctx context.Context, invoiceID id.ID) error

	// ActiveByEntry returns the active invoices holding a claim on the entry.
	ActiveByEntry(ctx context.Context, entryID id.ID) ([]*Invoice, error)
}

// ListFilter for filtering invoices.
type ListFilter struct {
	domain.ListFilter

	VendorID    *id.ID
	PlantID     *id.ID
	InvoiceType *entry.Type
	DateFrom    *time.Time
	DateTo      *time.Time
}

// Matches reports whether inv passes the filter (used by in-memory stores).
func (f ListFilter) Matches(inv *Invoice) bool {
	switch {
	case !f.IncludeDeleted && !inv.IsActive,
		f.VendorID != nil && inv.VendorID != *f.VendorID,
		f.PlantID != nil && inv.PlantID != *f.PlantID,
		f.InvoiceType != nil && inv.InvoiceType != *f.InvoiceType,
		f.DateFrom != nil && inv.Date.Before(*f.DateFrom),
		f.DateTo != nil && inv.Date.After(*f.DateTo):
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, inv.ID) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(inv.Number), strings.ToLower(f.Search)) {
		return false
	}
	return true
}
