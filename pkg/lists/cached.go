package lists

import (
	"context"
	"errors"
	"time"

	"github.com/davisshaver/audiencesync/pkg/cache"
)

const knownIDsKey = "__known_ids"

// Cached wraps a Source with a TTL cache so hot list resolution stays off
// the backing store. Negative lookups are cached too: an unknown public ID
// hammered by a misconfigured signup form should not hammer the database.
type Cached struct {
	source Source
	byID   cache.Cache[*List]
	known  cache.Cache[[]string]
	ttl    time.Duration
}

// NewCached creates a caching wrapper around source. The two caches may
// share a Redis client; they must use distinct prefixes.
func NewCached(source Source, byID cache.Cache[*List], known cache.Cache[[]string], ttl time.Duration) *Cached {
	return &Cached{
		source: source,
		byID:   byID,
		known:  known,
		ttl:    ttl,
	}
}

// Resolve implements Source. A cached nil marks a known-missing ID.
func (c *Cached) Resolve(ctx context.Context, publicID string) (*List, error) {
	if publicID == "" {
		return nil, ErrEmptyPublicID
	}

	l, err := cache.GetOrLoad(ctx, c.byID, publicID, func(ctx context.Context) (*List, time.Duration, error) {
		l, err := c.source.Resolve(ctx, publicID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, c.ttl, nil
			}
			return nil, 0, err
		}
		return l, c.ttl, nil
	})
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrNotFound
	}
	return l, nil
}

// KnownIDs implements Source.
func (c *Cached) KnownIDs(ctx context.Context) ([]string, error) {
	return cache.GetOrLoad(ctx, c.known, knownIDsKey, func(ctx context.Context) ([]string, time.Duration, error) {
		ids, err := c.source.KnownIDs(ctx)
		return ids, c.ttl, err
	})
}

// Invalidate drops the cached entry for a public ID and the known-IDs set.
// Call after Store.Save.
func (c *Cached) Invalidate(ctx context.Context, publicID string) error {
	if err := c.byID.Delete(ctx, publicID); err != nil {
		return err
	}
	return c.known.Delete(ctx, knownIDsKey)
}
