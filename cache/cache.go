// Package cache provides the counting/cache capability consumed by the rate
// limiter and the readiness probe. Backends must be safe for concurrent use.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the backend could not be reached. Consumers that
// are defense-in-depth layers (the rate limiter) treat any error as a
// fail-open signal rather than blocking requests.
var ErrUnavailable = errors.New("cache backend unavailable")

// Cache is a remote counter/value store with read-increment-expire
// semantics. No secret material may ever be written through it.
type Cache interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key with the given TTL (0 = no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Increment atomically adds one to the integer at key, creating it at 1.
	Increment(ctx context.Context, key string) (int64, error)
	// Expire sets the TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining lifetime of key, 0 if absent or persistent.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Delete removes key.
	Delete(ctx context.Context, key string) error
	// Ping checks backend health.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
