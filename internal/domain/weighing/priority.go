package weighing

import "github.com/shopspring/decimal"

// Weights is the set of weight fields a transaction may carry at any stage.
type Weights struct {
	Exact    *decimal.Decimal
	Final    *decimal.Decimal
	Exit     *decimal.Decimal
	Entry    *decimal.Decimal
	Quantity *decimal.Decimal
	Expected *decimal.Decimal
}

// BestKnown returns the first positive weight in the order
// exact, final, exit, entry, quantity, expected; zero when none is positive.
func BestKnown(w Weights) decimal.Decimal {
	for _, v := range []*decimal.Decimal{w.Exact, w.Final, w.Exit, w.Entry, w.Quantity, w.Expected} {
		if v != nil && v.IsPositive() {
			return *v
		}
	}
	return decimal.Zero
}
