package document_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/id"
	"weighbridge/internal/core/types"
	"weighbridge/internal/domain"
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/domain/documents/invoice"
)

func newRepos() (*EntryRepo, *InvoiceRepo) {
	entries := NewEntryRepo(nil)
	return entries, NewInvoiceRepo(nil, entries)
}

func TestEntryRepo_RecordExitSQL(t *testing.T) {
	entries, _ := newRepos()
	e := entry.NewEntry(entry.TypePurchase, id.New(), id.New(), id.New(), types.Kg(10000))
	e.ExitWeight = types.Ptr(types.Kg(4000))

	q, err := entries.recordExitQuery(e)
	require.NoError(t, err)
	sql, _, err := q.ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "UPDATE doc_entries SET "))
	assert.Contains(t, sql, "version = version + 1")
	assert.Contains(t, sql, "updated_at = NOW()")
	assert.Contains(t, sql, "exit_weight = $")
	assert.NotContains(t, sql, "created_at = ")
	assert.NotContains(t, sql, " number = ")
	assert.Regexp(t, `WHERE id = \$\d+ AND version = \$\d+ AND exit_weight IS NULL$`, sql)
}

func TestEntryRepo_FilterSQL(t *testing.T) {
	entries, _ := newRepos()
	plantID := id.New()
	no := false

	sql, args, err := entries.filterQuery(entry.ListFilter{
		ListFilter: domain.ListFilter{Search: "ENTRY-2026"},
		PlantID:    &plantID,
		Variance:   &no,
	}).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(sql,
		"FROM doc_entries WHERE is_active = $1 AND number ILIKE $2 AND plant_id = $3 AND variance_flag IS NOT TRUE"), sql)
	require.Len(t, args, 3)
	assert.Equal(t, "%ENTRY-2026%", args[1])
}

func TestEntryRepo_OrderByIsWhitelisted(t *testing.T) {
	entries, _ := newRepos()

	clause, err := entries.parseOrderBy("-entry_weight")
	require.NoError(t, err)
	assert.Equal(t, "entry_weight DESC", clause)

	_, err = entries.parseOrderBy("date; DROP TABLE doc_entries")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestInvoiceRepo_EligibleSQL(t *testing.T) {
	_, invoices := newRepos()

	sql, args, err := invoices.eligibleQuery(invoice.Criteria{
		VendorID:  id.New(),
		PlantID:   id.New(),
		EntryType: entry.TypePurchase,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC),
	}).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(sql, "FROM doc_entries"+
		" WHERE entry_type = $1 AND flagged = $2 AND is_active = $3 AND plant_id = $4 AND vendor_id = $5"+
		" AND date >= $6 AND date <= $7"+
		" AND exit_weight IS NOT NULL AND variance_flag IS NOT TRUE"+
		" AND NOT EXISTS (SELECT 1 FROM invoice_entries ie WHERE ie.entry_id = doc_entries.id AND ie.released_at IS NULL)"+
		" ORDER BY date ASC, id ASC"), sql)
	assert.Len(t, args, 7)
	assert.Equal(t, "purchase", args[0])
}

func TestInvoiceRepo_ClaimSQL(t *testing.T) {
	_, invoices := newRepos()
	invoiceID := id.New()
	a, b := id.New(), id.New()

	sql, args, err := invoices.claimQuery(invoiceID, []id.ID{a, b}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO invoice_entries (invoice_id,entry_id) VALUES ($1,$2),($3,$4) ON CONFLICT DO NOTHING", sql)
	assert.Equal(t, []any{invoiceID, a, invoiceID, b}, args)
}

func TestInvoiceRepo_ActiveByEntrySQL(t *testing.T) {
	_, invoices := newRepos()

	sql, args, err := invoices.activeByEntryQuery(id.New()).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(sql, "FROM doc_invoices WHERE is_active = $1"+
		" AND id IN (SELECT invoice_id FROM invoice_entries WHERE entry_id = $2 AND released_at IS NULL)"+
		" ORDER BY date ASC FOR UPDATE"), sql)
	assert.Len(t, args, 2)
}
