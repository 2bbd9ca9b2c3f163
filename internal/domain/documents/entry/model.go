// Package entry provides the weighbridge Entry document: one vehicle
// crossing the weighbridge for a purchase or a sale.
package entry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/entity"
	"weighbridge/internal/core/id"
	"weighbridge/internal/core/types"
	"weighbridge/internal/domain/weighing"
)

// Type aliases the weighing direction so callers need only this package.
type Type = weighing.EntryType

const (
	TypePurchase = weighing.Purchase
	TypeSale     = weighing.Sale
)

// PaletteType describes how sold goods are loaded.
type PaletteType string

const (
	PaletteLoose  PaletteType = "loose"
	PalettePacked PaletteType = "packed"
)

// Valid reports whether p is a known palette type.
func (p PaletteType) Valid() bool {
	return p == PaletteLoose || p == PalettePacked
}

// State is the lifecycle position derived from the entry's fields.
type State string

const (
	StateOpen     State = "open"     // no exit weight yet
	StateSettled  State = "settled"  // exit weight recorded
	StateReviewed State = "reviewed" // terminal for edits
	StateFlagged  State = "flagged"  // blocks invoicing
)

// Entry is a weighbridge transaction.
// Number holds the entry number and Date the entry date.
type Entry struct {
	entity.Document

	EntryType  Type   `db:"entry_type" json:"entryType"`
	VendorID   id.ID  `db:"vendor_id" json:"vendorId"`
	VehicleID  id.ID  `db:"vehicle_id" json:"vehicleId"`
	PlantID    id.ID  `db:"plant_id" json:"plantId"`
	MaterialID *id.ID `db:"material_id" json:"materialId,omitempty"`

	// Weights (kg)
	EntryWeight    decimal.Decimal  `db:"entry_weight" json:"entryWeight"`
	ExitWeight     *decimal.Decimal `db:"exit_weight" json:"exitWeight"`
	ExpectedWeight *decimal.Decimal `db:"expected_weight" json:"expectedWeight"`
	ExactWeight    *decimal.Decimal `db:"exact_weight" json:"exactWeight"`
	FinalWeight    *decimal.Decimal `db:"final_weight" json:"finalWeight,omitempty"`
	Quantity       decimal.Decimal  `db:"quantity" json:"quantity"`
	ExitRecordedAt *time.Time       `db:"exit_recorded_at" json:"exitRecordedAt,omitempty"`

	// Quality (purchase only)
	Moisture       *decimal.Decimal `db:"moisture" json:"moisture,omitempty"`
	Dust           *decimal.Decimal `db:"dust" json:"dust,omitempty"`
	MoistureWeight *decimal.Decimal `db:"moisture_weight" json:"moistureWeight,omitempty"`
	DustWeight     *decimal.Decimal `db:"dust_weight" json:"dustWeight,omitempty"`

	// Palette (sale only)
	PaletteType  *PaletteType     `db:"palette_type" json:"paletteType,omitempty"`
	NoOfBags     *int             `db:"no_of_bags" json:"noOfBags,omitempty"`
	WeightPerBag *decimal.Decimal `db:"weight_per_bag" json:"weightPerBag,omitempty"`
	PackedWeight *decimal.Decimal `db:"packed_weight" json:"packedWeight,omitempty"`

	// Governance
	IsReviewed   bool       `db:"is_reviewed" json:"isReviewed"`
	ReviewedBy   *string    `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewNotes  string     `db:"review_notes" json:"reviewNotes,omitempty"`
	Flagged      bool       `db:"flagged" json:"flagged"`
	FlagReason   string     `db:"flag_reason" json:"flagReason,omitempty"`
	VarianceFlag *bool      `db:"variance_flag" json:"varianceFlag"`
	ManualWeight bool       `db:"manual_weight" json:"manualWeight"`

	// Informational pricing; the billing rate is supplied at invoice time
	Rate        decimal.Decimal `db:"rate" json:"rate"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`
}

// NewEntry creates an open entry dated now.
func NewEntry(entryType Type, vendorID, vehicleID, plantID id.ID, entryWeight decimal.Decimal) *Entry {
	return &Entry{
		Document:    entity.NewDocument(),
		EntryType:   entryType,
		VendorID:    vendorID,
		VehicleID:   vehicleID,
		PlantID:     plantID,
		EntryWeight: entryWeight,
		Quantity:    decimal.Zero,
		Rate:        decimal.Zero,
		TotalAmount: decimal.Zero,
	}
}

// State derives the lifecycle position. Flagged wins over reviewed
// because a flagged entry must be unflagged before it can be reviewed.
func (e *Entry) State() State {
	switch {
	case e.Flagged:
		return StateFlagged
	case e.IsReviewed:
		return StateReviewed
	case e.ExitWeight != nil:
		return StateSettled
	default:
		return StateOpen
	}
}

// HasExitWeight reports whether the exit reading has been recorded.
func (e *Entry) HasExitWeight() bool {
	return e.ExitWeight != nil
}

// HasVariance reports whether the variance flag is set to true.
func (e *Entry) HasVariance() bool {
	return e.VarianceFlag != nil && *e.VarianceFlag
}

// IsPacked reports whether this is a packed sale.
func (e *Entry) IsPacked() bool {
	return e.PaletteType != nil && *e.PaletteType == PalettePacked
}

// Palette returns the palette type, treating an unset one as loose.
func (e *Entry) Palette() PaletteType {
	if e.PaletteType == nil {
		return PaletteLoose
	}
	return *e.PaletteType
}

// BestKnownWeight is the single source of truth for "current weight"
// outside the lifecycle: reports and invoice recompute.
func (e *Entry) BestKnownWeight() decimal.Decimal {
	return weighing.BestKnown(weighing.Weights{
		Exact:    e.ExactWeight,
		Final:    e.FinalWeight,
		Exit:     e.ExitWeight,
		Entry:    types.Ptr(e.EntryWeight),
		Quantity: types.Ptr(e.Quantity),
		Expected: e.ExpectedWeight,
	})
}

// BilledWeight is final weight when a deduction applies, else exact weight.
func (e *Entry) BilledWeight() decimal.Decimal {
	if e.FinalWeight != nil {
		return *e.FinalWeight
	}
	return types.Deref(e.ExactWeight)
}

// Recalculate re-derives every computed field from the raw readings.
// tare may be nil when the vehicle has none yet.
func (e *Entry) Recalculate(tare *decimal.Decimal, tolerance decimal.Decimal) error {
	res, err := weighing.Reconcile(weighing.Input{
		Type:        e.EntryType,
		EntryWeight: e.EntryWeight,
		ExitWeight:  e.ExitWeight,
		TareWeight:  tare,
	}, tolerance)
	if err != nil {
		return err
	}

	e.ExpectedWeight = res.ExpectedWeight
	e.ExactWeight = res.ExactWeight
	e.VarianceFlag = res.VarianceFlag
	e.Quantity = res.Quantity

	e.MoistureWeight, e.DustWeight, e.FinalWeight = nil, nil, nil
	if e.EntryType == TypePurchase && e.ExactWeight != nil {
		if d, ok := weighing.Deduct(*e.ExactWeight, e.Moisture, e.Dust); ok {
			e.Moisture = types.Ptr(d.MoisturePct)
			e.Dust = types.Ptr(d.DustPct)
			e.MoistureWeight = types.Ptr(d.MoistureWeight)
			e.DustWeight = types.Ptr(d.DustWeight)
			e.FinalWeight = types.Ptr(d.FinalWeight)
			e.Quantity = d.FinalWeight
		}
	}

	e.PackedWeight = nil
	if e.IsPacked() && e.NoOfBags != nil && e.WeightPerBag != nil {
		e.PackedWeight = types.Ptr(e.WeightPerBag.Mul(decimal.NewFromInt(int64(*e.NoOfBags))))
	}

	e.TotalAmount = e.Quantity.Mul(e.Rate)
	return nil
}

// Validate implements entity.Validatable interface.
func (e *Entry) Validate(ctx context.Context) error {
	if err := e.Document.Validate(ctx); err != nil {
		return err
	}

	if !e.EntryType.Valid() {
		return apperror.NewValidation("entryType must be purchase or sale").
			WithDetail("field", "entryType").
			WithDetail("value", string(e.EntryType))
	}
	refs := []struct {
		field string
		ref   id.ID
	}{{"vendorId", e.VendorID}, {"vehicleId", e.VehicleID}, {"plantId", e.PlantID}}
	for _, r := range refs {
		if id.IsNil(r.ref) {
			return apperror.NewValidation(r.field+" is required").WithDetail("field", r.field)
		}
	}
	if !e.EntryWeight.IsPositive() {
		return apperror.NewValidation("entryWeight must be positive").
			WithDetail("field", "entryWeight")
	}
	if e.ExitWeight != nil && !e.ExitWeight.IsPositive() {
		return apperror.NewValidation("exitWeight must be positive").
			WithDetail("field", "exitWeight")
	}
	if e.Rate.IsNegative() {
		return apperror.NewValidation("rate cannot be negative").
			WithDetail("field", "rate")
	}

	switch e.EntryType {
	case TypePurchase:
		return e.validatePurchase()
	case TypeSale:
		return e.validateSale()
	}
	return nil
}

func (e *Entry) validatePurchase() error {
	if e.MaterialID == nil || id.IsNil(*e.MaterialID) {
		return apperror.NewInvalidRelationship("purchase entry requires a material").
			WithDetail("field", "materialId")
	}
	if e.PaletteType != nil || e.NoOfBags != nil || e.WeightPerBag != nil {
		return apperror.NewValidation("palette fields apply to sale entries only").
			WithDetail("field", "paletteType")
	}
	return nil
}

func (e *Entry) validateSale() error {
	if e.Moisture != nil || e.Dust != nil {
		return apperror.NewValidation("moisture and dust apply to purchase entries only").
			WithDetail("field", "moisture")
	}
	if e.PaletteType != nil && !e.PaletteType.Valid() {
		return apperror.NewValidation("paletteType must be loose or packed").
			WithDetail("field", "paletteType").
			WithDetail("value", string(*e.PaletteType))
	}
	if !e.IsPacked() {
		return nil
	}
	if e.NoOfBags == nil || *e.NoOfBags <= 0 || !types.IsPositive(e.WeightPerBag) {
		return apperror.NewInvariantViolation("packed sale requires noOfBags and weightPerBag").
			WithDetail("field", "noOfBags")
	}
	return nil
}
