// Package weighing holds the pure weight arithmetic of a weighbridge transaction:
// reconciliation against tare, quality deductions and best-known weight selection.
package weighing

import (
	"github.com/shopspring/decimal"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/types"
)

// EntryType is the direction of a weighbridge transaction.
type EntryType string

const (
	// Purchase: vehicle arrives loaded and leaves empty.
	Purchase EntryType = "purchase"
	// Sale: vehicle arrives empty and leaves loaded.
	Sale EntryType = "sale"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	return t == Purchase || t == Sale
}

// DefaultTolerance is the allowed gap between exact and expected weight, in kg.
var DefaultTolerance = types.Kg(50)

// Input is everything reconciliation depends on.
type Input struct {
	Type        EntryType
	EntryWeight decimal.Decimal
	ExitWeight  *decimal.Decimal
	TareWeight  *decimal.Decimal
}

// Result holds the derived weights. Nil fields were not computable.
type Result struct {
	ExpectedWeight *decimal.Decimal
	ExactWeight    *decimal.Decimal
	VarianceFlag   *bool
	Quantity       decimal.Decimal
}

// Reconcile derives expected and exact weight and the variance flag.
//
// Purchase: expected = entry - tare, exact = entry - exit.
// Sale:     expected = exit - tare,  exact = exit - entry.
//
// A reading that would make exact weight negative is rejected.
func Reconcile(in Input, tolerance decimal.Decimal) (Result, error) {
	var res Result

	switch in.Type {
	case Purchase:
		if in.TareWeight != nil {
			res.ExpectedWeight = types.Ptr(in.EntryWeight.Sub(*in.TareWeight))
		}
		if in.ExitWeight != nil {
			if in.ExitWeight.GreaterThan(in.EntryWeight) {
				return Result{}, negativeWeight(in)
			}
			res.ExactWeight = types.Ptr(in.EntryWeight.Sub(*in.ExitWeight))
		}
	case Sale:
		if in.ExitWeight != nil {
			if in.EntryWeight.GreaterThan(*in.ExitWeight) {
				return Result{}, negativeWeight(in)
			}
			res.ExactWeight = types.Ptr(in.ExitWeight.Sub(in.EntryWeight))
			if in.TareWeight != nil {
				res.ExpectedWeight = types.Ptr(in.ExitWeight.Sub(*in.TareWeight))
			}
		}
	default:
		return Result{}, apperror.NewValidation("unknown entry type").
			WithDetail("entryType", string(in.Type))
	}

	res.VarianceFlag = Variance(res.ExactWeight, res.ExpectedWeight, tolerance)
	res.Quantity = types.Deref(res.ExactWeight)
	return res, nil
}

// Variance reports |exact - expected| > tolerance, or nil when either side is unknown.
func Variance(exact, expected *decimal.Decimal, tolerance decimal.Decimal) *bool {
	if exact == nil || expected == nil {
		return nil
	}
	flag := exact.Sub(*expected).Abs().GreaterThan(tolerance)
	return &flag
}

// TareToSeed returns the tare to learn for a vehicle that has none yet.
// The first recorded exit weight becomes the tare, whatever the entry type.
func TareToSeed(vehicleTare, exitWeight *decimal.Decimal) *decimal.Decimal {
	if vehicleTare != nil || exitWeight == nil {
		return nil
	}
	return types.Ptr(*exitWeight)
}

func negativeWeight(in Input) error {
	return apperror.NewInvariantViolation("computed weight would be negative").
		WithDetail("entryType", string(in.Type)).
		WithDetail("entryWeight", in.EntryWeight.String()).
		WithDetail("exitWeight", types.Deref(in.ExitWeight).String())
}
