package invoice

import "weighbridge/internal/core/numerator"

const (
	// NumberPrefix yields invoice numbers like INV-2026-00001.
	NumberPrefix = "INV"

	// DefaultNumeratorStrategy: invoices are primary accounting documents.
	DefaultNumeratorStrategy = numerator.StrategyStrict

	// maxClaimAttempts bounds reselection after losing a claim race.
	maxClaimAttempts = 3
)
