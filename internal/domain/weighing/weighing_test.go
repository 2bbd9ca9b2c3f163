package weighing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/types"
)

func kg(v int64) *decimal.Decimal { return types.Ptr(types.Kg(v)) }

func TestReconcile_Purchase(t *testing.T) {
	tests := []struct {
		name         string
		exit         int64
		wantExact    int64
		wantExpected int64
		wantVariance bool
	}{
		{"matches tare", 4000, 6000, 6000, false},
		{"within tolerance", 4050, 5950, 6000, false},
		{"beyond tolerance", 4300, 5700, 6000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Reconcile(Input{
				Type:        Purchase,
				EntryWeight: types.Kg(10000),
				ExitWeight:  kg(tt.exit),
				TareWeight:  kg(4000),
			}, DefaultTolerance)
			require.NoError(t, err)

			require.NotNil(t, res.ExactWeight)
			require.NotNil(t, res.ExpectedWeight)
			require.NotNil(t, res.VarianceFlag)
			assert.True(t, res.ExactWeight.Equal(types.Kg(tt.wantExact)))
			assert.True(t, res.ExpectedWeight.Equal(types.Kg(tt.wantExpected)))
			assert.Equal(t, tt.wantVariance, *res.VarianceFlag)
			assert.True(t, res.Quantity.Equal(*res.ExactWeight))
		})
	}
}

func TestReconcile_Sale(t *testing.T) {
	res, err := Reconcile(Input{
		Type:        Sale,
		EntryWeight: types.Kg(4000),
		ExitWeight:  kg(12000),
		TareWeight:  kg(4100),
	}, DefaultTolerance)
	require.NoError(t, err)

	assert.True(t, res.ExactWeight.Equal(types.Kg(8000)))
	assert.True(t, res.ExpectedWeight.Equal(types.Kg(7900)))
	require.NotNil(t, res.VarianceFlag)
	assert.True(t, *res.VarianceFlag)
}

func TestReconcile_RejectsNegativeWeight(t *testing.T) {
	_, err := Reconcile(Input{Type: Purchase, EntryWeight: types.Kg(5000), ExitWeight: kg(5001)}, DefaultTolerance)
	assert.True(t, apperror.IsInvariantViolation(err))

	_, err = Reconcile(Input{Type: Sale, EntryWeight: types.Kg(5000), ExitWeight: kg(4999)}, DefaultTolerance)
	assert.True(t, apperror.IsInvariantViolation(err))
}

func TestReconcile_VarianceUnknownWithoutBothSides(t *testing.T) {
	// No exit yet: expected is known for purchase, exact is not.
	res, err := Reconcile(Input{Type: Purchase, EntryWeight: types.Kg(10000), TareWeight: kg(4000)}, DefaultTolerance)
	require.NoError(t, err)
	assert.NotNil(t, res.ExpectedWeight)
	assert.Nil(t, res.ExactWeight)
	assert.Nil(t, res.VarianceFlag)
	assert.True(t, res.Quantity.IsZero())

	// No tare: exact is known, expected is not.
	res, err = Reconcile(Input{Type: Purchase, EntryWeight: types.Kg(10000), ExitWeight: kg(4000)}, DefaultTolerance)
	require.NoError(t, err)
	assert.Nil(t, res.ExpectedWeight)
	assert.Nil(t, res.VarianceFlag)
}

func TestTareToSeed(t *testing.T) {
	assert.Nil(t, TareToSeed(kg(4000), kg(4200)))
	assert.Nil(t, TareToSeed(nil, nil))

	seed := TareToSeed(nil, kg(4200))
	require.NotNil(t, seed)
	assert.True(t, seed.Equal(types.Kg(4200)))
}

func TestDeduct(t *testing.T) {
	d, ok := Deduct(types.Kg(6000), kg(5), kg(2))
	require.True(t, ok)
	assert.True(t, d.MoistureWeight.Equal(types.Kg(300)))
	assert.True(t, d.DustWeight.Equal(types.Kg(120)))
	assert.True(t, d.FinalWeight.Equal(types.Kg(5580)))
}

func TestDeduct_ClampsAndFloorsAtZero(t *testing.T) {
	d, ok := Deduct(types.Kg(1000), kg(150), kg(-10))
	require.True(t, ok)
	assert.True(t, d.MoisturePct.Equal(types.Kg(100)))
	assert.True(t, d.DustPct.IsZero())
	assert.True(t, d.FinalWeight.IsZero())

	d, ok = Deduct(types.Kg(1000), kg(60), kg(60))
	require.True(t, ok)
	assert.True(t, d.FinalWeight.IsZero())
}

func TestDeduct_NothingSupplied(t *testing.T) {
	_, ok := Deduct(types.Kg(6000), nil, nil)
	assert.False(t, ok)

	d, ok := Deduct(types.Kg(6000), nil, types.Ptr(types.MustDecimal("2.5")))
	require.True(t, ok)
	assert.True(t, d.MoistureWeight.IsZero())
	assert.True(t, d.FinalWeight.Equal(types.Kg(5850)))
}

func TestBestKnown(t *testing.T) {
	assert.True(t, BestKnown(Weights{}).IsZero())
	assert.True(t, BestKnown(Weights{Exact: kg(5700), Final: kg(5500), Entry: kg(10000)}).Equal(types.Kg(5700)))
	assert.True(t, BestKnown(Weights{Exact: kg(0), Final: kg(5500)}).Equal(types.Kg(5500)))
	assert.True(t, BestKnown(Weights{Entry: kg(10000), Expected: kg(6000)}).Equal(types.Kg(10000)))
	assert.True(t, BestKnown(Weights{Quantity: kg(0), Expected: kg(6000)}).Equal(types.Kg(6000)))
}
