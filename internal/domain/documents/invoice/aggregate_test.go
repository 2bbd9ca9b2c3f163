package invoice

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighbridge/internal/core/id"
	"weighbridge/internal/core/types"
	"weighbridge/internal/domain/documents/entry"
)

func settledPurchase(material id.ID, exact int64, final *decimal.Decimal) *entry.Entry {
	e := entry.NewEntry(entry.TypePurchase, id.New(), id.New(), id.New(), types.Kg(exact+4000))
	e.MaterialID = &material
	e.ExitWeight = types.Ptr(types.Kg(4000))
	e.ExactWeight = types.Ptr(types.Kg(exact))
	e.FinalWeight = final
	return e
}

func settledSale(palette entry.PaletteType, exact int64, bags int, perBag int64) *entry.Entry {
	e := entry.NewEntry(entry.TypeSale, id.New(), id.New(), id.New(), types.Kg(4000))
	e.PaletteType = &palette
	e.ExitWeight = types.Ptr(types.Kg(4000 + exact))
	e.ExactWeight = types.Ptr(types.Kg(exact))
	if palette == entry.PalettePacked {
		e.NoOfBags = &bags
		e.WeightPerBag = types.Ptr(types.Kg(perBag))
		e.PackedWeight = types.Ptr(types.Kg(int64(bags) * perBag))
	}
	return e
}

func TestAggregatePurchase_ExcludesUnratedMaterials(t *testing.T) {
	a, b, c := id.New(), id.New(), id.New()
	entries := []*entry.Entry{
		settledPurchase(a, 6000, types.Ptr(types.Kg(5580))),
		settledPurchase(b, 5000, nil),
		settledPurchase(c, 7000, nil),
	}

	agg := AggregatePurchase(entries, []MaterialRate{
		{MaterialID: a, Rate: types.Kg(10)},
		{MaterialID: b, Rate: types.Kg(12)},
	})

	require.Len(t, agg.MaterialBreakdown, 2)
	assert.Len(t, agg.Included, 2)

	lines := map[id.ID]MaterialLine{}
	for _, l := range agg.MaterialBreakdown {
		lines[l.MaterialID] = l
	}
	assert.NotContains(t, lines, c)
	assert.True(t, lines[a].TotalQuantity.Equal(types.Kg(6000)))
	assert.True(t, lines[a].FinalQuantity.Equal(types.Kg(5580)))
	assert.True(t, lines[b].FinalQuantity.Equal(types.Kg(5000)))

	want := types.Kg(5580).Mul(types.Kg(10)).Add(types.Kg(5000).Mul(types.Kg(12)))
	assert.True(t, agg.TotalAmount.Equal(want), "got %s want %s", agg.TotalAmount, want)
	assert.True(t, agg.TotalQuantity.Equal(types.Kg(10580)))
}

func TestAggregatePurchase_GroupsSameMaterial(t *testing.T) {
	a := id.New()
	e1 := settledPurchase(a, 6000, types.Ptr(types.Kg(5580)))
	e1.MoistureWeight = types.Ptr(types.Kg(300))
	e1.DustWeight = types.Ptr(types.Kg(120))
	e2 := settledPurchase(a, 4000, nil)

	agg := AggregatePurchase([]*entry.Entry{e1, e2}, []MaterialRate{{MaterialID: a, Rate: types.Kg(2)}})

	require.Len(t, agg.MaterialBreakdown, 1)
	line := agg.MaterialBreakdown[0]
	assert.Equal(t, 2, line.EntryCount)
	assert.True(t, line.TotalQuantity.Equal(types.Kg(10000)))
	assert.True(t, line.MoistureQty.Equal(types.Kg(300)))
	assert.True(t, line.DustQty.Equal(types.Kg(120)))
	assert.True(t, line.FinalQuantity.Equal(types.Kg(9580)))
	assert.True(t, line.Amount.Equal(types.Kg(19160)))
}

func TestAggregateSale_PaletteWise(t *testing.T) {
	entries := []*entry.Entry{
		settledSale(entry.PaletteLoose, 8000, 0, 0),
		settledSale(entry.PalettePacked, 10000, 200, 50),
		settledSale(entry.PalettePacked, 2500, 100, 25),
	}

	agg := AggregateSale(entries, PaletteRates{Loose: types.Ptr(types.Kg(3)), Packed: types.Ptr(types.Kg(4))})

	assert.Len(t, agg.Included, 3)
	assert.True(t, agg.TotalQuantity.Equal(types.Kg(20500)))
	assert.True(t, agg.TotalAmount.Equal(types.Kg(8000*3+12500*4)))

	pb := agg.PaletteBreakdown
	require.NotNil(t, pb)
	assert.Equal(t, 300, pb.TotalBags)
	assert.True(t, pb.TotalPackedWeight.Equal(types.Kg(12500)))
	// (200*50 + 100*25) / 300
	assert.True(t, pb.WeightPerBag.Equal(types.MustDecimal("12500").Div(types.Kg(300))))
	assert.True(t, pb.LooseQuantity.Equal(types.Kg(8000)))
}

func TestAggregateSale_MissingRateExcludesPalette(t *testing.T) {
	entries := []*entry.Entry{
		settledSale(entry.PaletteLoose, 8000, 0, 0),
		settledSale(entry.PalettePacked, 10000, 200, 50),
	}

	agg := AggregateSale(entries, PaletteRates{Loose: types.Ptr(types.Kg(3))})

	assert.Len(t, agg.Included, 1)
	assert.True(t, agg.TotalQuantity.Equal(types.Kg(8000)))
	assert.Zero(t, agg.PaletteBreakdown.TotalBags)
}

func TestCriteria_Eligible(t *testing.T) {
	e := settledPurchase(id.New(), 6000, nil)
	e.Date = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := Criteria{
		VendorID:  e.VendorID,
		PlantID:   e.PlantID,
		EntryType: entry.TypePurchase,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC),
	}
	assert.True(t, c.Eligible(e))

	flagged := *e
	flagged.Flagged = true
	assert.False(t, c.Eligible(&flagged))

	variance := *e
	yes := true
	variance.VarianceFlag = &yes
	assert.False(t, c.Eligible(&variance))

	outside := *e
	outside.Date = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, c.Eligible(&outside))

	open := *e
	open.ExitWeight = nil
	assert.False(t, c.Eligible(&open))

	deleted := *e
	deleted.IsActive = false
	assert.False(t, c.Eligible(&deleted))
}

func TestTotals_MatchCreationAndAreIdempotent(t *testing.T) {
	a := id.New()
	e1 := settledPurchase(a, 6000, types.Ptr(types.Kg(5580)))
	e2 := settledPurchase(a, 4000, nil)
	rates := []MaterialRate{{MaterialID: a, Rate: types.Kg(10)}}
	inv := &Invoice{InvoiceType: entry.TypePurchase, MaterialRates: rates}

	created := AggregatePurchase([]*entry.Entry{e1, e2}, rates)
	q1, a1 := Totals(inv, []*entry.Entry{e1, e2})
	q2, a2 := Totals(inv, []*entry.Entry{e1, e2})

	// The deducted entry bills 5580, not its exact 6000.
	assert.True(t, q1.Equal(types.Kg(9580)))
	assert.True(t, a1.Equal(types.Kg(95800)))
	assert.True(t, q1.Equal(created.TotalQuantity))
	assert.True(t, a1.Equal(created.TotalAmount))
	assert.True(t, q1.Equal(q2))
	assert.True(t, a1.Equal(a2))

	e2.IsActive = false
	q3, _ := Totals(inv, []*entry.Entry{e1, e2})
	assert.True(t, q3.Equal(types.Kg(5580)))
}

func TestTotals_FallsBackToBestKnownWeight(t *testing.T) {
	a := id.New()
	pending := entry.NewEntry(entry.TypePurchase, id.New(), id.New(), id.New(), types.Kg(9000))
	pending.MaterialID = &a
	inv := &Invoice{InvoiceType: entry.TypePurchase, MaterialRates: []MaterialRate{{MaterialID: a, Rate: types.Kg(2)}}}

	q, amt := Totals(inv, []*entry.Entry{pending})
	assert.True(t, q.Equal(types.Kg(9000)))
	assert.True(t, amt.Equal(types.Kg(18000)))
}
