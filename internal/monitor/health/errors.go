package health

import "errors"

// Sentinel kinds for aggregation errors.
var (
	ErrUnknownWindow = errors.New("unknown aggregation window")
)
