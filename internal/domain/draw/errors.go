package draw

import "errors"

// Sentinel kinds for draw errors. A malformed distribution surfaces as
// catalog.ErrInvalidDistribution from validation.
var (
	ErrEmptyPool = errors.New("empty item pool for rarity tier")
)
