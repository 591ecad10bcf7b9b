package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultChannel = "spindle.drops"

// RedisEmitter publishes draw events as JSON on a Redis pub/sub channel.
type RedisEmitter struct {
	client  *redis.Client
	channel string
}

// RedisOption applies a configuration option to the RedisEmitter.
type RedisOption func(*RedisEmitter)

// WithChannel sets the pub/sub channel name.
func WithChannel(channel string) RedisOption {
	return func(e *RedisEmitter) {
		if channel != "" {
			e.channel = channel
		}
	}
}

// NewRedisEmitter connects a client for the given address.
func NewRedisEmitter(ctx context.Context, addr string, opts ...RedisOption) (*RedisEmitter, error) {
	e := &RedisEmitter{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: defaultChannel,
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.client.Ping(ctx).Err(); err != nil {
		_ = e.client.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", addr, err)
	}
	return e, nil
}

// Publish sends the event on the configured channel.
func (e *RedisEmitter) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode draw event: %w", err)
	}
	if err := e.client.Publish(ctx, e.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish draw event: %w", err)
	}
	return nil
}

// Close releases the Redis client.
func (e *RedisEmitter) Close() error {
	return e.client.Close()
}
