package entry

import "weighbridge/internal/core/numerator"

const (
	// NumberPrefix yields entry numbers like ENTRY-2026-00001.
	NumberPrefix = "ENTRY"

	// DefaultNumeratorStrategy: entry numbers are audited, so no gaps.
	DefaultNumeratorStrategy = numerator.StrategyStrict
)
