// Package cache defines the byte-oriented cache contract used by the
// engine's cache-aside layer, with Redis and in-memory backends.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired. Every other
// error means the backend misbehaved; callers treat both as "go to the
// store", but only the latter is worth a metric.
var ErrMiss = errors.New("cache miss")

// Store is a TTL'd key-value cache. Implementations must be safe for
// concurrent use. Values are opaque bytes; callers own the encoding.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
