// Package cache defines the invalidation signal emitted after
// state-changing registrations, and a Redis-backed implementation for
// external cache layers to consume.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"
)

// Channel is the Redis pub/sub channel invalidation tags are published on.
const Channel = "cache:invalidate"

// Invalidator signals an external caching layer that state behind the
// given tags has changed.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

// RedisInvalidator publishes invalidation tags to a Redis channel.
type RedisInvalidator struct {
	client rueidis.Client
}

// NewRedisInvalidator constructs a RedisInvalidator.
func NewRedisInvalidator(client rueidis.Client) *RedisInvalidator {
	return &RedisInvalidator{client: client}
}

// Invalidate publishes each tag as one message. Consumers decide what
// to drop for a given tag.
func (i *RedisInvalidator) Invalidate(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		cmd := i.client.B().Publish().Channel(Channel).Message(tag).Build()
		if err := i.client.Do(ctx, cmd).Error(); err != nil {
			return fmt.Errorf("publish invalidation %q: %w", tag, err)
		}
	}
	return nil
}

// Noop discards all invalidation signals. Used in tests and in
// deployments without a cache layer.
type Noop struct{}

// Invalidate implements Invalidator.
func (Noop) Invalidate(context.Context, ...string) error { return nil }
