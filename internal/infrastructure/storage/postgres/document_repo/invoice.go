package document_repo

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/id"
	"weighbridge/internal/domain"
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/domain/documents/invoice"
	"weighbridge/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable       = "doc_invoices"
	invoiceEntriesTable = "invoice_entries"

	// liveClaim restricts invoice_entries to claims not yet released.
	liveClaim = "released_at IS NULL"
)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.Invoice]
	entries *EntryRepo
}

var _ invoice.Repository = (*InvoiceRepo)(nil)

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txm *postgres.TxManager, entries *EntryRepo) *InvoiceRepo {
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			invoicesTable,
			"invoice",
			postgres.ExtractDBColumns[invoice.Invoice](),
			func() *invoice.Invoice { return &invoice.Invoice{} },
		),
		entries: entries,
	}
}

// GetByID implements invoice.Repository.
func (r *InvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	inv, err := r.BaseDocumentRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return inv, r.loadEntryIDs(ctx, inv)
}

// GetForUpdate implements invoice.Repository.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	inv, err := r.BaseDocumentRepo.GetForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return inv, r.loadEntryIDs(ctx, inv)
}

func (r *InvoiceRepo) filterQuery(f invoice.ListFilter) squirrel.SelectBuilder {
	q := applyCommon(r.baseSelect(), f.ListFilter)

	if f.VendorID != nil {
		q = q.Where(squirrel.Eq{"vendor_id": *f.VendorID})
	}
	if f.PlantID != nil {
		q = q.Where(squirrel.Eq{"plant_id": *f.PlantID})
	}
	if f.InvoiceType != nil {
		q = q.Where(squirrel.Eq{"invoice_type": string(*f.InvoiceType)})
	}
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *f.DateTo})
	}
	return q
}

// List implements invoice.Repository.
func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	res, err := r.list(ctx, r.filterQuery(filter), filter.ListFilter)
	if err != nil {
		return res, err
	}
	return res, r.loadEntryIDs(ctx, res.Items...)
}

// UpdateTotals implements invoice.Repository.
func (r *InvoiceRepo) UpdateTotals(ctx context.Context, invoiceID id.ID, quantity, amount decimal.Decimal) error {
	sql, args, err := r.Builder().
		Update(r.tableName).
		Set("total_quantity", quantity).
		Set("total_amount", amount).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": invoiceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update totals: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update totals: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("invoice", invoiceID.String())
	}
	return nil
}

// eligibleQuery selects billable entries that no live claim holds.
func (r *InvoiceRepo) eligibleQuery(c invoice.Criteria) squirrel.SelectBuilder {
	return r.entries.baseSelect().
		Where(squirrel.Eq{
			"is_active":  true,
			"entry_type": string(c.EntryType),
			"vendor_id":  c.VendorID,
			"plant_id":   c.PlantID,
			"flagged":    false,
		}).
		Where(squirrel.GtOrEq{"date": c.StartDate}).
		Where(squirrel.LtOrEq{"date": c.EndDate}).
		Where("exit_weight IS NOT NULL").
		Where("variance_flag IS NOT TRUE").
		Where("NOT EXISTS (SELECT 1 FROM " + invoiceEntriesTable + " ie WHERE ie.entry_id = " +
			entriesTable + ".id AND ie." + liveClaim + ")").
		OrderBy("date ASC", "id ASC")
}

// EligibleEntries implements invoice.Repository.
func (r *InvoiceRepo) EligibleEntries(ctx context.Context, c invoice.Criteria) ([]*entry.Entry, error) {
	return r.entries.selectAll(ctx, r.eligibleQuery(c))
}

// claimQuery inserts one claim per entry. A conflict on the live-claim index
// means another invoice got there first; the row is skipped and the
// caller sees a short row count.
func (r *InvoiceRepo) claimQuery(invoiceID id.ID, entryIDs []id.ID) squirrel.InsertBuilder {
	q := r.Builder().
		Insert(invoiceEntriesTable).
		Columns("invoice_id", "entry_id")
	for _, entryID := range entryIDs {
		q = q.Values(invoiceID, entryID)
	}
	return q.Suffix("ON CONFLICT DO NOTHING")
}

// ClaimEntries implements invoice.Repository.
func (r *InvoiceRepo) ClaimEntries(ctx context.Context, invoiceID id.ID, entryIDs []id.ID) error {
	ids := slices.Clone(entryIDs)
	slices.SortFunc(ids, func(a, b id.ID) int { return bytes.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.claimQuery(invoiceID, ids).ToSql()
	if err != nil {
		return fmt.Errorf("build claim: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("claim entries: %w", err)
	}
	if claimed := result.RowsAffected(); claimed != int64(len(ids)) {
		return apperror.NewConcurrentModification("entry", invoiceID.String()).
			WithDetail("requested", len(ids)).
			WithDetail("claimed", claimed)
	}
	return nil
}

// ReleaseEntries implements invoice.Repository.
func (r *InvoiceRepo) ReleaseEntries(ctx context.Context, invoiceID id.ID) error {
	sql, args, err := r.Builder().
		Update(invoiceEntriesTable).
		Set("released_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		Where(liveClaim).
		ToSql()
	if err != nil {
		return fmt.Errorf("build release: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("release entries: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) activeByEntryQuery(entryID id.ID) squirrel.SelectBuilder {
	return r.baseSelect().
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.Expr("id IN (SELECT invoice_id FROM "+invoiceEntriesTable+
			" WHERE entry_id = ? AND "+liveClaim+")", entryID)).
		OrderBy("date ASC").
		Suffix("FOR UPDATE")
}

// ActiveByEntry implements invoice.Repository. The invoices are locked so a
// recompute cannot interleave with a delete.
func (r *InvoiceRepo) ActiveByEntry(ctx context.Context, entryID id.ID) ([]*invoice.Invoice, error) {
	items, err := r.selectAll(ctx, r.activeByEntryQuery(entryID))
	if err != nil {
		return nil, err
	}
	return items, r.loadEntryIDs(ctx, items...)
}

type claimRow struct {
	InvoiceID id.ID `db:"invoice_id"`
	EntryID   id.ID `db:"entry_id"`
}

// loadEntryIDs fills EntryIDs from every claim, live or released: a deleted
// invoice still lists the entries it once billed.
func (r *InvoiceRepo) loadEntryIDs(ctx context.Context, invoices ...*invoice.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	byID := make(map[id.ID]*invoice.Invoice, len(invoices))
	ids := make([]id.ID, 0, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
		ids = append(ids, inv.ID)
		inv.EntryIDs = []id.ID{}
	}

	sql, args, err := r.Builder().
		Select("invoice_id", "entry_id").
		From(invoiceEntriesTable).
		Where(squirrel.Eq{"invoice_id": ids}).
		OrderBy("claimed_at ASC", "entry_id ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build claim query: %w", err)
	}

	var rows []claimRow
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return fmt.Errorf("load invoice entries: %w", err)
	}
	for _, row := range rows {
		inv := byID[row.InvoiceID]
		inv.EntryIDs = append(inv.EntryIDs, row.EntryID)
	}
	return nil
}
