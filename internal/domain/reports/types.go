// Package reports provides aggregate views over weighbridge entries.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"weighbridge/internal/core/id"
	"weighbridge/internal/domain/documents/entry"
)

// SummaryFilter defines filter for the entry summary report.
type SummaryFilter struct {
	PlantID   *id.ID      `json:"plantId,omitempty"`
	VendorID  *id.ID      `json:"vendorId,omitempty"`
	EntryType *entry.Type `json:"entryType,omitempty"`
	DateFrom  *time.Time  `json:"dateFrom,omitempty"`
	DateTo    *time.Time  `json:"dateTo,omitempty"`
}

// GroupSummary aggregates the entries of one material and entry type.
// MaterialID is nil for sale entries.
type GroupSummary struct {
	EntryType      entry.Type      `json:"entryType"`
	MaterialID     *id.ID          `json:"materialId,omitempty"`
	Count          int             `json:"count"`
	Weight         decimal.Decimal `json:"weight"`
	MoistureWeight decimal.Decimal `json:"moistureWeight"`
	DustWeight     decimal.Decimal `json:"dustWeight"`
	Amount         decimal.Decimal `json:"amount"`
}

// StateCounts counts entries by lifecycle position.
type StateCounts struct {
	Open     int `json:"open"`
	Settled  int `json:"settled"`
	Reviewed int `json:"reviewed"`
	Flagged  int `json:"flagged"`
	Variance int `json:"variance"`
}

// EntrySummary is the entry summary report.
type EntrySummary struct {
	Filter      SummaryFilter   `json:"filter"`
	Groups      []GroupSummary  `json:"groups"`
	States      StateCounts     `json:"states"`
	TotalCount  int             `json:"totalCount"`
	TotalWeight decimal.Decimal `json:"totalWeight"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	GeneratedAt time.Time       `json:"generatedAt"`
}
