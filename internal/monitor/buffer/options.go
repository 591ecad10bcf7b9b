package buffer

import (
	"time"

	"github.com/okian/spindle/pkg/logger"
)

// Option applies a configuration option to the Buffer.
type Option func(*Buffer)

// WithCapacity sets the record count that triggers a flush.
func WithCapacity(capacity int) Option {
	return func(b *Buffer) {
		if capacity > 0 {
			b.capacity = capacity
		}
	}
}

// WithFlushInterval sets the periodic flush interval.
func WithFlushInterval(interval time.Duration) Option {
	return func(b *Buffer) {
		if interval > 0 {
			b.interval = interval
		}
	}
}

// WithLogger sets a custom logger for the buffer.
func WithLogger(l logger.Logger) Option {
	return func(b *Buffer) {
		if l != nil {
			b.logger = l
		}
	}
}
