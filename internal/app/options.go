package service

import (
	"time"

	"github.com/okian/spindle/internal/adapters/broadcast"
	"github.com/okian/spindle/internal/adapters/repository"
	"github.com/okian/spindle/internal/domain/catalog"
	"github.com/okian/spindle/internal/domain/draw"
	"github.com/okian/spindle/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCatalog sets the catalog reader. Required.
func WithCatalog(reader catalog.Reader) Option {
	return func(s *Service) {
		s.catalog = reader
	}
}

// WithStore sets the metric store. Required.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithEmitter sets the draw event emitter. Defaults to log-only.
func WithEmitter(emitter broadcast.Emitter) Option {
	return func(s *Service) {
		s.emitter = emitter
	}
}

// WithRandomSource sets the selector's random source; used by simulations
// and tests for reproducible draws.
func WithRandomSource(rng draw.RandomSource) Option {
	return func(s *Service) {
		s.rng = rng
	}
}

// WithBufferCapacity sets the record count that triggers a metric flush.
func WithBufferCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.bufferCapacity = capacity
		}
	}
}

// WithFlushInterval sets the periodic metric flush interval.
func WithFlushInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.flushInterval = interval
		}
	}
}

// WithAnnounceTier sets the minimum rarity tier worth broadcasting.
func WithAnnounceTier(tier catalog.Tier) Option {
	return func(s *Service) {
		if tier.Valid() {
			s.announceTier = tier
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
