package invoice

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge/internal/core/id"
	"weighbridge/internal/domain/documents/entry"
)

// Criteria selects the candidate entries of an invoice.
type Criteria struct {
	VendorID  id.ID
	PlantID   id.ID
	EntryType entry.Type
	StartDate time.Time
	EndDate   time.Time
}

// Eligible reports whether e may be billed under c, ignoring existing claims.
// An entry must be active, settled, unflagged and free of variance.
func (c Criteria) Eligible(e *entry.Entry) bool {
	return e.IsActive &&
		e.EntryType == c.EntryType &&
		e.VendorID == c.VendorID &&
		e.PlantID == c.PlantID &&
		!e.Date.Before(c.StartDate) &&
		!e.Date.After(c.EndDate) &&
		!e.Flagged &&
		!e.HasVariance() &&
		e.HasExitWeight()
}

// Aggregation is the outcome of grouping eligible entries under the given rates.
type Aggregation struct {
	Included          []*entry.Entry
	MaterialBreakdown []MaterialLine
	PaletteBreakdown  *PaletteBreakdown
	TotalQuantity     decimal.Decimal
	TotalAmount       decimal.Decimal
}

// EntryIDs returns the ids of the included entries.
func (a Aggregation) EntryIDs() []id.ID {
	ids := make([]id.ID, len(a.Included))
	for i, e := range a.Included {
		ids[i] = e.ID
	}
	return ids
}

// AggregatePurchase groups entries by material. Materials without a rate
// are left out of the invoice rather than failing it.
func AggregatePurchase(entries []*entry.Entry, rates []MaterialRate) Aggregation {
	rateOf := make(map[id.ID]decimal.Decimal, len(rates))
	for _, r := range rates {
		rateOf[r.MaterialID] = r.Rate
	}

	lines := make(map[id.ID]*MaterialLine)
	agg := Aggregation{TotalQuantity: decimal.Zero, TotalAmount: decimal.Zero}

	for _, e := range entries {
		if e.MaterialID == nil {
			continue
		}
		rate, ok := rateOf[*e.MaterialID]
		if !ok {
			continue
		}

		line, ok := lines[*e.MaterialID]
		if !ok {
			line = &MaterialLine{
				MaterialID:    *e.MaterialID,
				TotalQuantity: decimal.Zero,
				MoistureQty:   decimal.Zero,
				DustQty:       decimal.Zero,
				FinalQuantity: decimal.Zero,
				Rate:          rate,
			}
			lines[*e.MaterialID] = line
		}

		line.EntryCount++
		if e.ExactWeight != nil {
			line.TotalQuantity = line.TotalQuantity.Add(*e.ExactWeight)
		}
		if e.MoistureWeight != nil {
			line.MoistureQty = line.MoistureQty.Add(*e.MoistureWeight)
		}
		if e.DustWeight != nil {
			line.DustQty = line.DustQty.Add(*e.DustWeight)
		}
		line.FinalQuantity = line.FinalQuantity.Add(e.BilledWeight())
		agg.Included = append(agg.Included, e)
	}

	for _, line := range lines {
		line.Amount = line.FinalQuantity.Mul(line.Rate)
		agg.MaterialBreakdown = append(agg.MaterialBreakdown, *line)
		agg.TotalQuantity = agg.TotalQuantity.Add(line.FinalQuantity)
		agg.TotalAmount = agg.TotalAmount.Add(line.Amount)
	}
	sort.Slice(agg.MaterialBreakdown, func(i, j int) bool {
		return agg.MaterialBreakdown[i].MaterialID.String() < agg.MaterialBreakdown[j].MaterialID.String()
	})
	return agg
}

// AggregateSale bills loose and packed weight at their palette rates.
// Entries whose palette type has no rate are left out.
func AggregateSale(entries []*entry.Entry, rates PaletteRates) Aggregation {
	pb := &PaletteBreakdown{
		LooseQuantity:     decimal.Zero,
		LooseAmount:       decimal.Zero,
		PackedQuantity:    decimal.Zero,
		PackedAmount:      decimal.Zero,
		WeightPerBag:      decimal.Zero,
		TotalPackedWeight: decimal.Zero,
	}
	agg := Aggregation{TotalQuantity: decimal.Zero, TotalAmount: decimal.Zero, PaletteBreakdown: pb}
	bagWeightSum := decimal.Zero

	for _, e := range entries {
		palette := e.Palette()
		rate := rates.For(palette)
		if rate == nil {
			continue
		}

		weight := e.BilledWeight()
		amount := weight.Mul(*rate)
		agg.TotalQuantity = agg.TotalQuantity.Add(weight)
		agg.TotalAmount = agg.TotalAmount.Add(amount)
		agg.Included = append(agg.Included, e)

		if palette == entry.PaletteLoose {
			pb.LooseQuantity = pb.LooseQuantity.Add(weight)
			pb.LooseAmount = pb.LooseAmount.Add(amount)
			continue
		}

		pb.PackedQuantity = pb.PackedQuantity.Add(weight)
		pb.PackedAmount = pb.PackedAmount.Add(amount)
		if e.PackedWeight != nil {
			pb.TotalPackedWeight = pb.TotalPackedWeight.Add(*e.PackedWeight)
		}
		if e.NoOfBags != nil && e.WeightPerBag != nil {
			bags := decimal.NewFromInt(int64(*e.NoOfBags))
			pb.TotalBags += *e.NoOfBags
			bagWeightSum = bagWeightSum.Add(e.WeightPerBag.Mul(bags))
		}
	}

	if pb.TotalBags > 0 {
		pb.WeightPerBag = bagWeightSum.Div(decimal.NewFromInt(int64(pb.TotalBags)))
	}
	return agg
}

// Totals recomputes invoice-level quantity and amount from the current state
// of its entries. A deducted entry bills its final weight, as at creation;
// any other entry bills its best-known weight. Inactive entries and entries
// that no longer have a rate contribute nothing. Breakdowns are untouched.
func Totals(inv *Invoice, entries []*entry.Entry) (quantity, amount decimal.Decimal) {
	quantity, amount = decimal.Zero, decimal.Zero
	for _, e := range entries {
		if !e.IsActive {
			continue
		}

		var rate *decimal.Decimal
		switch inv.InvoiceType {
		case entry.TypePurchase:
			rate = inv.rateFor(e.MaterialID)
		case entry.TypeSale:
			if inv.PaletteRates != nil {
				rate = inv.PaletteRates.For(e.Palette())
			}
		}
		if rate == nil {
			continue
		}

		w := e.BestKnownWeight()
		if e.FinalWeight != nil {
			w = *e.FinalWeight
		}
		quantity = quantity.Add(w)
		amount = amount.Add(w.Mul(*rate))
	}
	return quantity, amount
}
