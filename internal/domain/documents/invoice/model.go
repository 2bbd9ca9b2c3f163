// Package invoice provides the vendor Invoice document: a billing aggregate
// over the settled entries of one vendor at one plant in a date range.
package invoice

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/entity"
	"weighbridge/internal/core/id"
	"weighbridge/internal/domain/documents/entry"
)

// MaterialRate is the billing rate for one material (per kg).
type MaterialRate struct {
	MaterialID id.ID           `json:"materialId"`
	Rate       decimal.Decimal `json:"rate"`
}

// PaletteRates are the billing rates for sale invoices. A nil rate excludes
// entries of that palette type.
type PaletteRates struct {
	Loose  *decimal.Decimal `json:"loose,omitempty"`
	Packed *decimal.Decimal `json:"packed,omitempty"`
}

// For returns the rate for palette type p, or nil.
func (r PaletteRates) For(p entry.PaletteType) *decimal.Decimal {
	switch p {
	case entry.PaletteLoose:
		return r.Loose
	case entry.PalettePacked:
		return r.Packed
	}
	return nil
}

// MaterialLine is one group of a purchase invoice.
type MaterialLine struct {
	MaterialID    id.ID           `json:"materialId"`
	EntryCount    int             `json:"entryCount"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	MoistureQty   decimal.Decimal `json:"moistureQty"`
	DustQty       decimal.Decimal `json:"dustQty"`
	FinalQuantity decimal.Decimal `json:"finalQuantity"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        decimal.Decimal `json:"amount"`
}

// PaletteBreakdown summarizes a sale invoice by loading type.
type PaletteBreakdown struct {
	LooseQuantity     decimal.Decimal `json:"looseQuantity"`
	LooseAmount       decimal.Decimal `json:"looseAmount"`
	PackedQuantity    decimal.Decimal `json:"packedQuantity"`
	PackedAmount      decimal.Decimal `json:"packedAmount"`
	TotalBags         int             `json:"totalBags"`
	WeightPerBag      decimal.Decimal `json:"weightPerBag"`
	TotalPackedWeight decimal.Decimal `json:"totalPackedWeight"`
}

// Invoice is a vendor bill. Number holds the invoice number, Date the issue date.
type Invoice struct {
	entity.Document

	InvoiceType entry.Type `db:"invoice_type" json:"invoiceType"`
	VendorID    id.ID      `db:"vendor_id" json:"vendorId"`
	PlantID     id.ID      `db:"plant_id" json:"plantId"`
	StartDate   time.Time  `db:"start_date" json:"startDate"`
	EndDate     time.Time  `db:"end_date" json:"endDate"`

	MaterialRates     []MaterialRate    `db:"material_rates" json:"materialRates,omitempty"`
	PaletteRates      *PaletteRates     `db:"palette_rates" json:"paletteRates,omitempty"`
	MaterialBreakdown []MaterialLine    `db:"material_breakdown" json:"materialBreakdown,omitempty"`
	PaletteBreakdown  *PaletteBreakdown `db:"palette_breakdown" json:"paletteBreakdown,omitempty"`

	TotalQuantity decimal.Decimal `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"totalAmount"`

	// EntryIDs are the claimed entries, stored in invoice_entries.
	EntryIDs []id.ID `db:"-" json:"entryIds"`
}

// CreateRequest is the input of invoice creation.
type CreateRequest struct {
	VendorID      id.ID
	PlantID       id.ID
	InvoiceType   entry.Type
	StartDate     time.Time
	EndDate       time.Time
	MaterialRates []MaterialRate
	PaletteRates  *PaletteRates
	Comment       string
}

// Validate checks the request shape; references are checked by the service.
func (r CreateRequest) Validate(ctx context.Context) error {
	if !r.InvoiceType.Valid() {
		return apperror.NewValidation("invoiceType must be purchase or sale").
			WithDetail("field", "invoiceType")
	}
	if id.IsNil(r.VendorID) || id.IsNil(r.PlantID) {
		return apperror.NewValidation("vendorId and plantId are required")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return apperror.NewValidation("startDate and endDate are required")
	}
	if r.EndDate.Before(r.StartDate) {
		return apperror.NewValidation("endDate must not be before startDate").
			WithDetail("field", "endDate")
	}

	switch r.InvoiceType {
	case entry.TypePurchase:
		if len(r.MaterialRates) == 0 {
			return apperror.NewValidation("purchase invoice requires materialRates").
				WithDetail("field", "materialRates")
		}
		seen := make(map[id.ID]struct{}, len(r.MaterialRates))
		for _, mr := range r.MaterialRates {
			if _, dup := seen[mr.MaterialID]; dup {
				return apperror.NewValidation("duplicate material in materialRates").
					WithDetail("materialId", mr.MaterialID.String())
			}
			seen[mr.MaterialID] = struct{}{}
			if mr.Rate.IsNegative() {
				return apperror.NewValidation("rate cannot be negative").
					WithDetail("materialId", mr.MaterialID.String())
			}
		}
	case entry.TypeSale:
		if r.PaletteRates == nil || (r.PaletteRates.Loose == nil && r.PaletteRates.Packed == nil) {
			return apperror.NewValidation("sale invoice requires paletteRates").
				WithDetail("field", "paletteRates")
		}
		for _, rate := range []*decimal.Decimal{r.PaletteRates.Loose, r.PaletteRates.Packed} {
			if rate != nil && rate.IsNegative() {
				return apperror.NewValidation("rate cannot be negative").
					WithDetail("field", "paletteRates")
			}
		}
	}
	return nil
}

// rateFor returns the purchase rate of a material, or nil.
func (inv *Invoice) rateFor(materialID *id.ID) *decimal.Decimal {
	if materialID == nil {
		return nil
	}
	for i := range inv.MaterialRates {
		if inv.MaterialRates[i].MaterialID == *materialID {
			return &inv.MaterialRates[i].Rate
		}
	}
	return nil
}

// Covers reports whether date falls inside the invoice range (inclusive).
func (inv *Invoice) Covers(date time.Time) bool {
	return !date.Before(inv.StartDate) && !date.After(inv.EndDate)
}
