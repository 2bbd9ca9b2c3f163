package entry

import (
	"context"
	"slices"
	"time"

	"weighbridge/internal/core/id"
	"weighbridge/internal/domain"
)

// Repository defines persistence for entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, entryID id.ID) (*Entry, error)
	GetByIDs(ctx context.Context, ids []id.ID) ([]*Entry, error)

	// GetForUpdate retrieves the entry with a row lock.
	GetForUpdate(ctx context.Context, entryID id.ID) (*Entry, error)

	// Update persists e with optimistic locking on Version.
	// Returns CONCURRENT_MODIFICATION when the stored version differs.
	Update(ctx context.Context, e *Entry) error

	// RecordExit persists the exit reading and its derived fields only if the
	// stored exit weight is still null. Returns INVARIANT_VIOLATION (409) otherwise.
	RecordExit(ctx context.Context, e *Entry) error

	// Delete soft-deletes the entry.
	Delete(ctx context.Context, entryID id.ID) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Entry], error)

	// FindAll returns every matching entry, ignoring pagination.
	FindAll(ctx context.Context, filter ListFilter) ([]*Entry, error)
}

// ListFilter for filtering entries.
type ListFilter struct {
	domain.ListFilter

	PlantID    *id.ID
	VendorID   *id.ID
	VehicleID  *id.ID
	MaterialID *id.ID
	EntryType  *Type
	DateFrom   *time.Time
	DateTo     *time.Time
	Flagged    *bool
	Reviewed   *bool
	Variance   *bool
}

// Matches reports whether e passes the filter. In-memory stores use it;
// SQL stores translate the same rules into WHERE clauses.
func (f ListFilter) Matches(e *Entry) bool {
	switch {
	case !f.IncludeDeleted && !e.IsActive,
		f.PlantID != nil && e.PlantID != *f.PlantID,
		f.VendorID != nil && e.VendorID != *f.VendorID,
		f.VehicleID != nil && e.VehicleID != *f.VehicleID,
		f.MaterialID != nil && (e.MaterialID == nil || *e.MaterialID != *f.MaterialID),
		f.EntryType != nil && e.EntryType != *f.EntryType,
		f.DateFrom != nil && e.Date.Before(*f.DateFrom),
		f.DateTo != nil && e.Date.After(*f.DateTo),
		f.Flagged != nil && e.Flagged != *f.Flagged,
		f.Reviewed != nil && e.IsReviewed != *f.Reviewed,
		f.Variance != nil && e.HasVariance() != *f.Variance:
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, e.ID) {
		return false
	}
	if f.Search != "" && !containsFold(e.Number, f.Search) {
		return false
	}
	return true
}
