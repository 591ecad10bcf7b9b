package fairness

import (
	"github.com/okian/spindle/pkg/logger"
)

// Option applies a configuration option to the Auditor.
type Option func(*Auditor)

// WithClock sets the time source, for deterministic windows in tests.
func WithClock(now Clock) Option {
	return func(a *Auditor) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets a custom logger for the auditor.
func WithLogger(l logger.Logger) Option {
	return func(a *Auditor) {
		if l != nil {
			a.logger = l
		}
	}
}
