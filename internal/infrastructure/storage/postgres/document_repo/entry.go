package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/domain"
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/infrastructure/storage/postgres"
)

const entriesTable = "doc_entries"

// EntryRepo implements entry.Repository.
type EntryRepo struct {
	*BaseDocumentRepo[*entry.Entry]
}

var _ entry.Repository = (*EntryRepo)(nil)

// NewEntryRepo creates a new entry repository.
func NewEntryRepo(txm *postgres.TxManager) *EntryRepo {
	return &EntryRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			entriesTable,
			"entry",
			postgres.ExtractDBColumns[entry.Entry](),
			func() *entry.Entry { return &entry.Entry{} },
		),
	}
}

// recordExitQuery is the versioned update guarded by a null exit weight,
// so of two racing writers exactly one matches a row.
func (r *EntryRepo) recordExitQuery(e *entry.Entry) (squirrel.UpdateBuilder, error) {
	return r.updateQuery(e, squirrel.Eq{"exit_weight": nil})
}

// RecordExit implements entry.Repository.
func (r *EntryRepo) RecordExit(ctx context.Context, e *entry.Entry) error {
	q, err := r.recordExitQuery(e)
	if err != nil {
		return err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build record exit: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("record exit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewAlreadyRecorded("exitWeight", e.ID.String())
	}

	e.Touch()
	return nil
}

// filterQuery translates entry.ListFilter into WHERE clauses.
func (r *EntryRepo) filterQuery(f entry.ListFilter) squirrel.SelectBuilder {
	q := applyCommon(r.baseSelect(), f.ListFilter)

	if f.PlantID != nil {
		q = q.Where(squirrel.Eq{"plant_id": *f.PlantID})
	}
	if f.VendorID != nil {
		q = q.Where(squirrel.Eq{"vendor_id": *f.VendorID})
	}
	if f.VehicleID != nil {
		q = q.Where(squirrel.Eq{"vehicle_id": *f.VehicleID})
	}
	if f.MaterialID != nil {
		q = q.Where(squirrel.Eq{"material_id": *f.MaterialID})
	}
	if f.EntryType != nil {
		q = q.Where(squirrel.Eq{"entry_type": string(*f.EntryType)})
	}
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *f.DateTo})
	}
	if f.Flagged != nil {
		q = q.Where(squirrel.Eq{"flagged": *f.Flagged})
	}
	if f.Reviewed != nil {
		q = q.Where(squirrel.Eq{"is_reviewed": *f.Reviewed})
	}
	if f.Variance != nil {
		if *f.Variance {
			q = q.Where("variance_flag IS TRUE")
		} else {
			q = q.Where("variance_flag IS NOT TRUE")
		}
	}
	return q
}

// List implements entry.Repository.
func (r *EntryRepo) List(ctx context.Context, filter entry.ListFilter) (domain.ListResult[*entry.Entry], error) {
	return r.list(ctx, r.filterQuery(filter), filter.ListFilter)
}

// FindAll implements entry.Repository.
func (r *EntryRepo) FindAll(ctx context.Context, filter entry.ListFilter) ([]*entry.Entry, error) {
	q, err := r.order(r.filterQuery(filter), filter.OrderBy)
	if err != nil {
		return nil, err
	}
	return r.selectAll(ctx, q)
}
