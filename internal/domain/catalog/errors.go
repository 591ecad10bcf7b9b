package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrInvalidDistribution = errors.New("invalid rarity distribution")
	ErrCaseNotFound        = errors.New("case not found")
)
