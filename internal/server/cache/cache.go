// Package cache defines the key/value store used for analysis result
// caching and rate-limit counters. The cache is an optimization, never a
// source of truth: callers treat every failure as a miss.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL'd key/value store with an atomic windowed counter.
type Cache interface {
	// Get returns the value for key or common.ErrorNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Incr atomically increments the counter at key and returns the new
	// count. The first increment arms the window expiry; the counter and
	// its window die together.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	// TTL returns the remaining lifetime of key, or 0 if the key has no
	// expiry or does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
