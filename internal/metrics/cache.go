package metrics

import (
	"context"
	"time"

	"github.com/go-authgate/passport-local/internal/cache"
)

// userCounter is the store query behind the users gauge.
type userCounter interface {
	CountUsers(ctx context.Context, authSource string) (int64, error)
}

// CacheWrapper provides a read-through cache for gauge data so several
// instances sharing a Redis cache do not each hit the database.
type CacheWrapper struct {
	store userCounter
	cache cache.Cache[int64]
}

// NewCacheWrapper creates a new cache wrapper for metrics.
func NewCacheWrapper(store userCounter, c cache.Cache[int64]) *CacheWrapper {
	return &CacheWrapper{
		store: store,
		cache: c,
	}
}

// GetUsersCount retrieves the number of users with the given auth source.
func (m *CacheWrapper) GetUsersCount(
	ctx context.Context,
	authSource string,
	ttl time.Duration,
) (int64, error) {
	return cache.GetWithFetch(
		ctx,
		m.cache,
		"users:"+authSource,
		ttl,
		func(ctx context.Context, _ string) (int64, error) {
			return m.store.CountUsers(ctx, authSource)
		},
	)
}
