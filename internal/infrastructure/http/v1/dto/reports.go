package dto

import (
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/domain/reports"
)

// EntrySummaryQuery are the query parameters of GET /reports/entry-summary.
type EntrySummaryQuery struct {
	PlantID   string `form:"plantId"`
	VendorID  string `form:"vendorId"`
	EntryType string `form:"entryType" binding:"omitempty,oneof=purchase sale"`
	DateFrom  string `form:"dateFrom"`
	DateTo    string `form:"dateTo"`
}

// ToFilter converts query to the report filter.
func (q *EntrySummaryQuery) ToFilter() (reports.SummaryFilter, error) {
	var f reports.SummaryFilter
	var err error

	if f.PlantID, err = ParseOptionalID("plantId", q.PlantID); err != nil {
		return f, err
	}
	if f.VendorID, err = ParseOptionalID("vendorId", q.VendorID); err != nil {
		return f, err
	}
	if f.DateFrom, err = ParseOptionalDate("dateFrom", q.DateFrom, false); err != nil {
		return f, err
	}
	if f.DateTo, err = ParseOptionalDate("dateTo", q.DateTo, true); err != nil {
		return f, err
	}
	if q.EntryType != "" {
		t := entry.Type(q.EntryType)
		f.EntryType = &t
	}
	return f, nil
}
