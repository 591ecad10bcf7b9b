package service

import "errors"

// Sentinel kinds for service wiring and lifecycle errors.
var (
	ErrMissingDependency = errors.New("missing dependency")
	ErrNotStarted        = errors.New("service not started")
)
