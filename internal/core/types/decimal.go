// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Weight is a weighbridge reading in kilograms.
// Uses decimal.Decimal so that percentage deductions stay exact.
type Weight = decimal.Decimal

// Money represents a monetary value with full precision.
type Money = decimal.Decimal

var hundred = decimal.NewFromInt(100)

// Kg builds a Weight from a whole number of kilograms.
func Kg(v int64) Weight {
	return decimal.NewFromInt(v)
}

// MustDecimal creates a decimal from a string, panics on error.
// Use only for constants and tests.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Ptr returns a pointer to a copy of d.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// Deref returns the pointed value or zero for nil.
func Deref(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}

// IsPositive reports whether p is set and strictly greater than zero.
func IsPositive(p *decimal.Decimal) bool {
	return p != nil && p.IsPositive()
}

// Clamp bounds d to [lo, hi].
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// ClampPercent bounds a percentage to [0, 100].
func ClampPercent(pct decimal.Decimal) decimal.Decimal {
	return Clamp(pct, decimal.Zero, hundred)
}

// PercentOf returns base * pct / 100.
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}

// Equal compares two optional decimals; nil equals only nil.
func Equal(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
