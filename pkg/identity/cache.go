package identity

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/scouttools/basecamp/pkg/observability"
)

// RequestScopedResolver memoizes group lookups for the lifetime of a single
// request, so the dozen read endpoints that resolve roles do not each pay a
// directory round trip. One instance is created per request; it is safe for
// concurrent use within that request.
type RequestScopedResolver struct {
	inner GroupResolver

	mu     sync.Mutex
	groups map[string]GroupSet
}

// NewRequestScopedResolver wraps inner with a per-request memo.
func NewRequestScopedResolver(inner GroupResolver) *RequestScopedResolver {
	return &RequestScopedResolver{
		inner:  inner,
		groups: make(map[string]GroupSet),
	}
}

// GroupsOf returns the memoized group set for the user, fetching it once.
// Failed lookups are not memoized, so a retry within the request hits the
// directory again.
func (r *RequestScopedResolver) GroupsOf(ctx context.Context, token string, userID string) (GroupSet, error) {
	r.mu.Lock()
	if set, ok := r.groups[userID]; ok {
		r.mu.Unlock()
		return set, nil
	}
	r.mu.Unlock()

	set, err := r.inner.GroupsOf(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.groups[userID] = set
	r.mu.Unlock()
	return set, nil
}

// RedisGroupCache caches resolved group sets in redis with a short TTL. It is
// a performance layer only: any cache failure falls through to the inner
// resolver, and authorization errors are never cached.
type RedisGroupCache struct {
	inner   GroupResolver
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewRedisGroupCache wraps inner with a redis-backed cache.
func NewRedisGroupCache(inner GroupResolver, client *redis.Client, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *RedisGroupCache {
	return &RedisGroupCache{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func groupCacheKey(userID string) string {
	return "basecamp:groups:" + userID
}

// GroupsOf returns the cached group set when fresh, otherwise resolves and
// stores it.
func (c *RedisGroupCache) GroupsOf(ctx context.Context, token string, userID string) (GroupSet, error) {
	key := groupCacheKey(userID)

	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var ids []string
		if err := json.Unmarshal(payload, &ids); err == nil {
			if c.metrics != nil {
				c.metrics.GroupCacheHitsTotal.Inc()
			}
			return NewGroupSet(ids...), nil
		}
	}
	if c.metrics != nil {
		c.metrics.GroupCacheMissesTotal.Inc()
	}

	set, err := c.inner.GroupsOf(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	if payload, err := json.Marshal(ids); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil && c.logger != nil {
			c.logger.WithError(err).Warn("failed to cache group set")
		}
	}
	return set, nil
}

// Invalidate drops the cached group set for a user, e.g. after an
// administrator changes their directory membership.
func (c *RedisGroupCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, groupCacheKey(userID)).Err()
}

// CachedDirectory caches well-known group lookups in an in-process expiring
// LRU. Leadership resolution asks for the same one or two groups on every
// summary request; those names change essentially never.
type CachedDirectory struct {
	inner Directory
	cache *expirable.LRU[string, *Group]
}

// NewCachedDirectory wraps inner with an LRU of the given size and TTL.
func NewCachedDirectory(inner Directory, size int, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		inner: inner,
		cache: expirable.NewLRU[string, *Group](size, nil, ttl),
	}
}

// GroupByName returns the cached group when present. Only successful lookups
// are cached: ErrGroupNotFound stays uncached so an administrator creating
// the group takes effect immediately.
func (d *CachedDirectory) GroupByName(ctx context.Context, name string) (*Group, error) {
	if group, ok := d.cache.Get(name); ok {
		return group, nil
	}

	group, err := d.inner.GroupByName(ctx, name)
	if err != nil {
		return nil, err
	}
	d.cache.Add(name, group)
	return group, nil
}
