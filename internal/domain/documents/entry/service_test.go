package entry_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighbridge/internal/core/apperror"
	appctx "weighbridge/internal/core/context"
	"weighbridge/internal/core/id"
	corenumerator "weighbridge/internal/core/numerator"
	"weighbridge/internal/core/types"
	"weighbridge/internal/domain/catalogs/material"
	"weighbridge/internal/domain/catalogs/plant"
	"weighbridge/internal/domain/catalogs/vehicle"
	"weighbridge/internal/domain/catalogs/vendor"
	"weighbridge/internal/domain/documents/entry"
	infranum "weighbridge/internal/infrastructure/numerator"
	"weighbridge/internal/infrastructure/storage/memory"
)

var entryDate = time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	svc      *entry.Service
	plant    *plant.Plant
	vendor   *vendor.Vendor
	truck    *vehicle.Vehicle // tare 4000
	newTruck *vehicle.Vehicle // tare unknown
	material *material.Material
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	f := &fixture{store: store}

	f.plant = plant.NewPlant("P1", "North plant")
	f.vendor = vendor.NewVendor("V1", "Acme Minerals", f.plant.ID)
	f.truck = vehicle.NewVehicle("KA-01-1234", "Tipper")
	f.truck.TareWeight = types.Ptr(types.Kg(4000))
	f.newTruck = vehicle.NewVehicle("KA-01-9999", "Trailer")
	f.material = material.NewMaterial("LIME", "Limestone")

	store.AddPlant(f.plant)
	store.AddVendor(f.vendor)
	store.AddVehicle(f.truck)
	store.AddVehicle(f.newTruck)
	store.AddMaterial(f.material)

	f.svc = entry.NewService(entry.ServiceConfig{
		Repo:      store.Entries(),
		Vehicles:  store.Vehicles(),
		Vendors:   store.Vendors(),
		Plants:    store.Plants(),
		Materials: store.Materials(),
		Numerator: infranum.New(infranum.NewMemoryStore()),
		TxManager: memory.NewTxManager(store),
	})
	return f
}

func userCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "operator-1"})
}

func (f *fixture) purchase(t *testing.T, truck *vehicle.Vehicle, entryWeight int64) *entry.Entry {
	t.Helper()
	e := entry.NewEntry(entry.TypePurchase, f.vendor.ID, truck.ID, f.plant.ID, types.Kg(entryWeight))
	e.Date = entryDate
	e.MaterialID = &f.material.ID
	require.NoError(t, f.svc.Create(userCtx(), e))
	return e
}

func (f *fixture) settle(t *testing.T, e *entry.Entry, exitWeight int64) *entry.Entry {
	t.Helper()
	got, err := f.svc.RecordExitWeight(userCtx(), e.ID, entry.ExitReading{ExitWeight: types.Kg(exitWeight)})
	require.NoError(t, err)
	return got
}

func TestCreate_OpenEntry(t *testing.T) {
	f := newFixture(t)

	e := f.purchase(t, f.truck, 10000)

	assert.Equal(t, "ENTRY-2026-00001", e.Number)
	assert.Equal(t, "operator-1", e.CreatedBy)
	assert.Equal(t, entry.StateOpen, e.State())
	assert.Nil(t, e.ExitWeight)
	assert.Nil(t, e.VarianceFlag)
	assert.True(t, e.Quantity.IsZero())

	second := f.purchase(t, f.truck, 9000)
	assert.Equal(t, "ENTRY-2026-00002", second.Number)
}

func TestCreate_RejectsBadRelationships(t *testing.T) {
	f := newFixture(t)
	otherPlant := plant.NewPlant("P2", "South plant")
	f.store.AddPlant(otherPlant)

	t.Run("vendor not linked to plant", func(t *testing.T) {
		e := entry.NewEntry(entry.TypePurchase, f.vendor.ID, f.truck.ID, otherPlant.ID, types.Kg(10000))
		e.MaterialID = &f.material.ID
		err := f.svc.Create(userCtx(), e)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidRelationship))
	})

	t.Run("purchase without material", func(t *testing.T) {
		e := entry.NewEntry(entry.TypePurchase, f.vendor.ID, f.truck.ID, f.plant.ID, types.Kg(10000))
		err := f.svc.Create(userCtx(), e)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidRelationship))
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		e := entry.NewEntry(entry.TypePurchase, f.vendor.ID, id.New(), f.plant.ID, types.Kg(10000))
		e.MaterialID = &f.material.ID
		err := f.svc.Create(userCtx(), e)
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("packed sale without bag fields", func(t *testing.T) {
		e := entry.NewEntry(entry.TypeSale, f.vendor.ID, f.truck.ID, f.plant.ID, types.Kg(4000))
		packed := entry.PalettePacked
		e.PaletteType = &packed
		err := f.svc.Create(userCtx(), e)
		assert.True(t, apperror.IsInvariantViolation(err))
	})
}

func TestRecordExitWeight_SingleWrite(t *testing.T) {
	f := newFixture(t)
	e := f.purchase(t, f.truck, 10000)

	f.settle(t, e, 4000)

	_, err := f.svc.RecordExitWeight(userCtx(), e.ID, entry.ExitReading{ExitWeight: types.Kg(4500)})
	require.Error(t, err)
	assert.True(t, apperror.IsInvariantViolation(err))
	assert.Equal(t, http.StatusConflict, apperror.GetHTTPStatus(err))

	stored, err := f.svc.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ExitWeight)
	assert.True(t, stored.ExitWeight.Equal(types.Kg(4000)))
}

func TestRecordExitWeight_ConcurrentCallsOneWins(t *testing.T) {
	f := newFixture(t)
	e := f.purchase(t, f.truck, 10000)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(exit int64) {
			defer wg.Done()
			_, err := f.svc.RecordExitWeight(userCtx(), e.ID, entry.ExitReading{ExitWeight: types.Kg(exit)})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(4000 + int64(i))
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestRecordExitWeight_PurchaseVariance(t *testing.T) {
	f := newFixture(t)

	matching := f.settle(t, f.purchase(t, f.truck, 10000), 4000)
	assert.True(t, matching.ExpectedWeight.Equal(types.Kg(6000)))
	assert.True(t, matching.ExactWeight.Equal(types.Kg(6000)))
	require.NotNil(t, matching.VarianceFlag)
	assert.False(t, *matching.VarianceFlag)
	assert.True(t, matching.Quantity.Equal(types.Kg(6000)))
	assert.Equal(t, entry.StateSettled, matching.State())

	off := f.settle(t, f.purchase(t, f.truck, 10000), 4300)
	assert.True(t, off.ExactWeight.Equal(types.Kg(5700)))
	assert.True(t, off.ExpectedWeight.Equal(types.Kg(6000)))
	require.NotNil(t, off.VarianceFlag)
	assert.True(t, *off.VarianceFlag)
}

func TestRecordExitWeight_LearnsTare(t *testing.T) {
	f := newFixture(t)
	e := f.purchase(t, f.newTruck, 10000)

	got := f.settle(t, e, 4200)

	veh, err := f.store.Vehicles().GetByID(context.Background(), f.newTruck.ID)
	require.NoError(t, err)
	require.NotNil(t, veh.TareWeight)
	assert.True(t, veh.TareWeight.Equal(types.Kg(4200)))

	require.NotNil(t, got.VarianceFlag)
	assert.False(t, *got.VarianceFlag)

	// The learned tare is reused, not overwritten.
	next := f.settle(t, f.purchase(t, f.newTruck, 10000), 4500)
	assert.True(t, next.ExpectedWeight.Equal(types.Kg(5800)))
	assert.True(t, *next.VarianceFlag)
}

func TestRecordExitWeight_QualityDeduction(t *testing.T) {
	f := newFixture(t)
	e := f.purchase(t, f.truck, 10000)

	got, err := f.svc.RecordExitWeight(userCtx(), e.ID, entry.ExitReading{
		ExitWeight: types.Kg(4000),
		Moisture:   types.Ptr(types.Kg(5)),
		Dust:       types.Ptr(types.Kg(2)),
	})
	require.NoError(t, err)

	assert.True(t, got.MoistureWeight.Equal(types.Kg(300)))
	assert.True(t, got.DustWeight.Equal(types.Kg(120)))
	assert.True(t, got.FinalWeight.Equal(types.Kg(5580)))
	assert.True(t, got.Quantity.Equal(types.Kg(5580)))
}

func TestRecordExitWeight_SaleFinalizesPalette(t *testing.T) {
	f := newFixture(t)
	e := entry.NewEntry(entry.TypeSale, f.vendor.ID, f.truck.ID, f.plant.ID, types.Kg(4000))
	e.Date = entryDate
	e.Rate = types.Kg(2)
	require.NoError(t, f.svc.Create(userCtx(), e))

	packed := entry.PalettePacked
	bags := 200
	got, err := f.svc.RecordExitWeight(userCtx(), e.ID, entry.ExitReading{
		ExitWeight:   types.Kg(14000),
		PaletteType:  &packed,
		NoOfBags:     &bags,
		WeightPerBag: types.Ptr(types.Kg(50)),
	})
	require.NoError(t, err)

	assert.True(t, got.ExactWeight.Equal(types.Kg(10000)))
	assert.True(t, got.PackedWeight.Equal(types.Kg(10000)))
	assert.True(t, got.TotalAmount.Equal(types.Kg(20000)))
}

func TestUpdate_EditGating(t *testing.T) {
	f := newFixture(t)
	clean := f.settle(t, f.purchase(t, f.truck, 10000), 4000)

	// varianceFlag=false: a generic edit is rejected.
	_, err := f.svc.Update(userCtx(), clean.ID, entry.Patch{Rate: types.Ptr(types.Kg(12))})
	assert.True(t, apperror.IsInvariantViolation(err))

	// The same entry accepts an edit that explicitly clears the flag.
	cleared := false
	got, err := f.svc.Update(userCtx(), clean.ID, entry.Patch{VarianceFlag: &cleared, Rate: types.Ptr(types.Kg(12))})
	require.NoError(t, err)
	assert.False(t, *got.VarianceFlag)
	assert.False(t, got.ManualWeight)
	assert.True(t, got.TotalAmount.Equal(types.Kg(72000)))

	// varianceFlag=true: edits are a remediation path.
	flagged := f.settle(t, f.purchase(t, f.truck, 10000), 4300)
	got, err = f.svc.Update(userCtx(), flagged.ID, entry.Patch{EntryWeight: types.Ptr(types.Kg(10300))})
	require.NoError(t, err)
	assert.True(t, got.ManualWeight)
	assert.True(t, got.ExactWeight.Equal(types.Kg(6000)))
	assert.True(t, got.ExpectedWeight.Equal(types.Kg(6300)))
}

func TestUpdate_ExplicitVarianceFlagWins(t *testing.T) {
	f := newFixture(t)
	e := f.settle(t, f.purchase(t, f.truck, 10000), 4300)

	cleared := false
	got, err := f.svc.Update(userCtx(), e.ID, entry.Patch{
		VarianceFlag: &cleared,
		EntryWeight:  types.Ptr(types.Kg(10400)),
	})
	require.NoError(t, err)
	require.NotNil(t, got.VarianceFlag)
	assert.False(t, *got.VarianceFlag)
}

func TestUpdate_QualityEditMarksManualWeight(t *testing.T) {
	f := newFixture(t)
	e := f.settle(t, f.purchase(t, f.truck, 10000), 4000)
	require.False(t, e.ManualWeight)

	cleared := false
	got, err := f.svc.Update(userCtx(), e.ID, entry.Patch{
		VarianceFlag: &cleared,
		Moisture:     types.Ptr(types.Kg(5)),
		Dust:         types.Ptr(types.Kg(2)),
	})
	require.NoError(t, err)
	assert.True(t, got.ManualWeight)
	require.NotNil(t, got.FinalWeight)
	assert.True(t, got.FinalWeight.Equal(types.Kg(5580)))
}

func TestReviewAndFlag(t *testing.T) {
	f := newFixture(t)
	e := f.settle(t, f.purchase(t, f.truck, 10000), 4300)

	_, err := f.svc.Flag(userCtx(), e.ID, true, "seal broken")
	require.NoError(t, err)

	_, err = f.svc.Review(userCtx(), e.ID, true, "")
	assert.True(t, apperror.IsInvariantViolation(err), "flagged entry cannot be reviewed")

	got, err := f.svc.Flag(userCtx(), e.ID, false, "")
	require.NoError(t, err)
	assert.Empty(t, got.FlagReason)

	got, err = f.svc.Review(userCtx(), e.ID, true, "checked against slip")
	require.NoError(t, err)
	assert.Equal(t, entry.StateReviewed, got.State())
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, "operator-1", *got.ReviewedBy)
	assert.NotNil(t, got.ReviewedAt)

	// Reviewed entries are immutable to general edits, even with variance raised.
	_, err = f.svc.Update(userCtx(), e.ID, entry.Patch{EntryWeight: types.Ptr(types.Kg(10300))})
	assert.True(t, apperror.IsInvariantViolation(err))

	got, err = f.svc.Review(userCtx(), e.ID, false, "")
	require.NoError(t, err)
	assert.Nil(t, got.ReviewedBy)
	assert.Nil(t, got.ReviewedAt)
}

func TestReview_RequiresExitWeight(t *testing.T) {
	f := newFixture(t)
	e := f.purchase(t, f.truck, 10000)

	_, err := f.svc.Review(userCtx(), e.ID, true, "")
	assert.True(t, apperror.IsInvariantViolation(err))
}

func TestDelete_IsSoft(t *testing.T) {
	f := newFixture(t)
	e := f.purchase(t, f.truck, 10000)

	require.NoError(t, f.svc.Delete(userCtx(), e.ID))

	stored, err := f.store.Entries().GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	_, err = f.svc.RecordExitWeight(userCtx(), e.ID, entry.ExitReading{ExitWeight: types.Kg(4000)})
	assert.Error(t, err)

	list, err := f.svc.List(context.Background(), entry.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestHooks_AfterUpdateRunsAfterExit(t *testing.T) {
	f := newFixture(t)
	e := f.purchase(t, f.truck, 10000)

	var seen []decimal.Decimal
	f.svc.Hooks().OnAfterUpdate(func(_ context.Context, changed *entry.Entry) error {
		seen = append(seen, types.Deref(changed.ExitWeight))
		return nil
	})

	f.settle(t, e, 4000)
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Equal(types.Kg(4000)))
}

func TestCreate_AllocationFailureIsNotPersisted(t *testing.T) {
	f := newFixture(t)
	store := f.store
	gen := &corenumerator.MockGenerator{
		GetNextNumberFunc: func(_ context.Context, cfg corenumerator.Config, _ *corenumerator.Options, _ time.Time) (string, error) {
			return "", apperror.NewAllocationFailure(cfg.Prefix, assert.AnError)
		},
	}
	svc := entry.NewService(entry.ServiceConfig{
		Repo:      store.Entries(),
		Vehicles:  store.Vehicles(),
		Vendors:   store.Vendors(),
		Plants:    store.Plants(),
		Materials: store.Materials(),
		Numerator: gen,
		TxManager: memory.NewTxManager(store),
	})

	e := entry.NewEntry(entry.TypePurchase, f.vendor.ID, f.truck.ID, f.plant.ID, types.Kg(10000))
	e.MaterialID = &f.material.ID
	err := svc.Create(userCtx(), e)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAllocationFailure))
	assert.Equal(t, http.StatusServiceUnavailable, apperror.GetHTTPStatus(err))

	all, err := store.Entries().FindAll(context.Background(), entry.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreate_CallerNumberIsKept(t *testing.T) {
	f := newFixture(t)
	strategy := corenumerator.StrategyCached
	calls := 0
	svc := entry.NewService(entry.ServiceConfig{
		Repo:      f.store.Entries(),
		Vehicles:  f.store.Vehicles(),
		Vendors:   f.store.Vendors(),
		Plants:    f.store.Plants(),
		Materials: f.store.Materials(),
		Numerator: &corenumerator.MockGenerator{
			GetNextNumberFunc: func(_ context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
				calls++
				assert.Equal(t, corenumerator.StrategyCached, opts.Strategy)
				return corenumerator.Format(cfg, period, 7), nil
			},
		},
		TxManager:         memory.NewTxManager(f.store),
		NumeratorStrategy: &strategy,
	})

	manual := entry.NewEntry(entry.TypePurchase, f.vendor.ID, f.truck.ID, f.plant.ID, types.Kg(10000))
	manual.MaterialID = &f.material.ID
	manual.Number = "MANUAL-1"
	require.NoError(t, svc.Create(userCtx(), manual))
	assert.Equal(t, "MANUAL-1", manual.Number)
	assert.Zero(t, calls)

	auto := entry.NewEntry(entry.TypePurchase, f.vendor.ID, f.truck.ID, f.plant.ID, types.Kg(10000))
	auto.Date = entryDate
	auto.MaterialID = &f.material.ID
	require.NoError(t, svc.Create(userCtx(), auto))
	assert.Equal(t, "ENTRY-2026-00007", auto.Number)
	assert.Equal(t, 1, calls)
}
