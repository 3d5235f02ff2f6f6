package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotFound indicates a missing or expired key.
	ErrNotFound = errors.New("cache: entry not found")

	// ErrClosed indicates an operation on a closed cache.
	ErrClosed = errors.New("cache: closed")
)

// Cache is a key-value cache with per-entry TTL.
type Cache[V any] interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (V, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases background resources.
	Close() error
}

// Loader computes a value on a cache miss. The returned TTL governs how
// long the computed value is cached.
type Loader[V any] func(ctx context.Context) (V, time.Duration, error)

var loadGroup singleflight.Group

// GetOrLoad returns the cached value for key, calling load on a miss.
// Concurrent misses for the same key are collapsed into a single load
// call. Load errors are returned uncached; caching the loaded value is
// best-effort.
func GetOrLoad[V any](ctx context.Context, c Cache[V], key string, load Loader[V]) (V, error) {
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}

	type loaded struct {
		val V
		ttl time.Duration
	}

	v, err, _ := loadGroup.Do(key, func() (any, error) {
		val, ttl, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return loaded{val: val, ttl: ttl}, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	l := v.(loaded)
	_ = c.Set(ctx, key, l.val, l.ttl)
	return l.val, nil
}
