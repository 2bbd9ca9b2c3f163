package entry

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge/internal/core/id"
	"weighbridge/internal/core/types"
)

// ExitReading is the payload of the one-time exit weighing.
// Palette and quality fields may be finalized here if not fixed at creation.
type ExitReading struct {
	ExitWeight   decimal.Decimal
	PaletteType  *PaletteType
	NoOfBags     *int
	WeightPerBag *decimal.Decimal
	Moisture     *decimal.Decimal
	Dust         *decimal.Decimal
}

// Patch is a partial update. Nil fields are left unchanged.
// The exit weight is deliberately absent: it is written once by RecordExitWeight.
type Patch struct {
	EntryDate    *time.Time
	EntryWeight  *decimal.Decimal
	MaterialID   *id.ID
	Moisture     *decimal.Decimal
	Dust         *decimal.Decimal
	PaletteType  *PaletteType
	NoOfBags     *int
	WeightPerBag *decimal.Decimal
	Rate         *decimal.Decimal
	Comment      *string
	VarianceFlag *bool
}

// ClearsVariance reports whether the patch explicitly sets varianceFlag=false.
func (p Patch) ClearsVariance() bool {
	return p.VarianceFlag != nil && !*p.VarianceFlag
}

// changesWeight reports whether the patch edits a weighed or billed quantity.
// Moisture and dust count: they move the final weight.
func (p Patch) changesWeight() bool {
	return p.EntryWeight != nil || p.WeightPerBag != nil || p.NoOfBags != nil ||
		p.Moisture != nil || p.Dust != nil
}

// apply copies the set fields onto e.
func (p Patch) apply(e *Entry) {
	if p.EntryDate != nil {
		e.Date = *p.EntryDate
	}
	if p.EntryWeight != nil {
		e.EntryWeight = *p.EntryWeight
	}
	if p.MaterialID != nil {
		e.MaterialID = p.MaterialID
	}
	if p.Moisture != nil {
		e.Moisture = types.Ptr(*p.Moisture)
	}
	if p.Dust != nil {
		e.Dust = types.Ptr(*p.Dust)
	}
	if p.PaletteType != nil {
		pt := *p.PaletteType
		e.PaletteType = &pt
	}
	if p.NoOfBags != nil {
		n := *p.NoOfBags
		e.NoOfBags = &n
	}
	if p.WeightPerBag != nil {
		e.WeightPerBag = types.Ptr(*p.WeightPerBag)
	}
	if p.Rate != nil {
		e.Rate = *p.Rate
	}
	if p.Comment != nil {
		e.Comment = *p.Comment
	}
}

// apply copies the optional exit-time fields onto e.
func (r ExitReading) apply(e *Entry) {
	e.ExitWeight = types.Ptr(r.ExitWeight)
	if r.PaletteType != nil {
		pt := *r.PaletteType
		e.PaletteType = &pt
	}
	if r.NoOfBags != nil {
		n := *r.NoOfBags
		e.NoOfBags = &n
	}
	if r.WeightPerBag != nil {
		e.WeightPerBag = types.Ptr(*r.WeightPerBag)
	}
	if r.Moisture != nil {
		e.Moisture = types.Ptr(*r.Moisture)
	}
	if r.Dust != nil {
		e.Dust = types.Ptr(*r.Dust)
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
