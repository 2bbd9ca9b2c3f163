package weighing

import (
	"github.com/shopspring/decimal"

	"weighbridge/internal/core/types"
)

// Deduction is the outcome of applying moisture and dust percentages.
type Deduction struct {
	MoisturePct    decimal.Decimal
	DustPct        decimal.Decimal
	MoistureWeight decimal.Decimal
	DustWeight     decimal.Decimal
	FinalWeight    decimal.Decimal
}

// Deduct applies quality deductions to exact weight. Percentages are clamped
// to [0,100] and a missing one counts as zero. ok is false when neither
// percentage was supplied, in which case nothing should be recorded.
func Deduct(exact decimal.Decimal, moisture, dust *decimal.Decimal) (d Deduction, ok bool) {
	if moisture == nil && dust == nil {
		return Deduction{}, false
	}

	d.MoisturePct = types.ClampPercent(types.Deref(moisture))
	d.DustPct = types.ClampPercent(types.Deref(dust))
	d.MoistureWeight = types.PercentOf(exact, d.MoisturePct)
	d.DustWeight = types.PercentOf(exact, d.DustPct)

	d.FinalWeight = exact.Sub(d.MoistureWeight.Add(d.DustWeight))
	if d.FinalWeight.IsNegative() {
		d.FinalWeight = decimal.Zero
	}
	return d, true
}
