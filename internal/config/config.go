// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BufferCapacity is the record count that triggers a metric flush.
	BufferCapacity int `koanf:"buffer_capacity"`

	// FlushIntervalMS is the periodic metric flush interval in milliseconds.
	FlushIntervalMS int `koanf:"flush_interval_ms"`

	// DatabaseURL selects the Postgres metric store and catalog. Empty runs
	// on the in-memory implementations.
	DatabaseURL string `koanf:"database_url"`

	// RedisAddr selects the Redis broadcast emitter. Empty logs events only.
	RedisAddr string `koanf:"redis_addr"`

	// BroadcastChannel is the pub/sub channel for draw announcements.
	BroadcastChannel string `koanf:"broadcast_channel"`

	// AnnounceTier is the minimum rarity tier worth announcing.
	AnnounceTier string `koanf:"announce_tier"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and currently
// unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		BufferCapacity:   100,
		FlushIntervalMS:  30_000,
		BroadcastChannel: "spindle.drops",
		AnnounceTier:     "rare",
	}
}
