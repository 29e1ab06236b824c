package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupSet(t *testing.T) {
	set := NewGroupSet("a", "b")

	assert.True(t, set.Contains("a"))
	assert.True(t, set.Contains("b"))
	assert.False(t, set.Contains("c"))
	assert.False(t, set.Contains(""), "empty id never matches")
}

func TestRequestScopedResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("second lookup is memoized", func(t *testing.T) {
		fake := NewFakeResolver()
		fake.Groups["u1"] = []string{"g1", "g2"}
		resolver := NewRequestScopedResolver(fake)

		first, err := resolver.GroupsOf(ctx, "tok", "u1")
		require.NoError(t, err)
		second, err := resolver.GroupsOf(ctx, "tok", "u1")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, fake.Calls["u1"])
	})

	t.Run("distinct users are fetched separately", func(t *testing.T) {
		fake := NewFakeResolver()
		fake.Groups["u1"] = []string{"g1"}
		fake.Groups["u2"] = []string{"g2"}
		resolver := NewRequestScopedResolver(fake)

		_, err := resolver.GroupsOf(ctx, "tok", "u1")
		require.NoError(t, err)
		_, err = resolver.GroupsOf(ctx, "tok", "u2")
		require.NoError(t, err)

		assert.Equal(t, 1, fake.Calls["u1"])
		assert.Equal(t, 1, fake.Calls["u2"])
	})

	t.Run("errors are not memoized", func(t *testing.T) {
		fake := NewFakeResolver()
		fake.Err = ErrNotAuthorized
		resolver := NewRequestScopedResolver(fake)

		_, err := resolver.GroupsOf(ctx, "tok", "u1")
		assert.ErrorIs(t, err, ErrNotAuthorized)

		fake.Err = nil
		fake.Groups["u1"] = []string{"g1"}
		set, err := resolver.GroupsOf(ctx, "tok", "u1")
		require.NoError(t, err)
		assert.True(t, set.Contains("g1"))
		assert.Equal(t, 2, fake.Calls["u1"])
	})
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	server := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: server.Addr()})
}

func TestRedisGroupCache(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips the directory", func(t *testing.T) {
		fake := NewFakeResolver()
		fake.Groups["u1"] = []string{"g1"}
		cache := NewRedisGroupCache(fake, newTestRedis(t), time.Minute, nil, nil)

		set, err := cache.GroupsOf(ctx, "tok", "u1")
		require.NoError(t, err)
		assert.True(t, set.Contains("g1"))

		set, err = cache.GroupsOf(ctx, "tok", "u1")
		require.NoError(t, err)
		assert.True(t, set.Contains("g1"))
		assert.Equal(t, 1, fake.Calls["u1"])
	})

	t.Run("resolver errors pass through uncached", func(t *testing.T) {
		fake := NewFakeResolver()
		fake.Err = ErrNotAuthorized
		cache := NewRedisGroupCache(fake, newTestRedis(t), time.Minute, nil, nil)

		_, err := cache.GroupsOf(ctx, "tok", "u1")
		assert.ErrorIs(t, err, ErrNotAuthorized)

		_, err = cache.GroupsOf(ctx, "tok", "u1")
		assert.ErrorIs(t, err, ErrNotAuthorized)
		assert.Equal(t, 2, fake.Calls["u1"])
	})

	t.Run("invalidate forces a fresh lookup", func(t *testing.T) {
		fake := NewFakeResolver()
		fake.Groups["u1"] = []string{"g1"}
		cache := NewRedisGroupCache(fake, newTestRedis(t), time.Minute, nil, nil)

		_, err := cache.GroupsOf(ctx, "tok", "u1")
		require.NoError(t, err)
		require.NoError(t, cache.Invalidate(ctx, "u1"))

		fake.Groups["u1"] = []string{"g1", "g2"}
		set, err := cache.GroupsOf(ctx, "tok", "u1")
		require.NoError(t, err)
		assert.True(t, set.Contains("g2"))
		assert.Equal(t, 2, fake.Calls["u1"])
	})

	t.Run("redis outage falls through to the directory", func(t *testing.T) {
		fake := NewFakeResolver()
		fake.Groups["u1"] = []string{"g1"}
		server := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: server.Addr()})
		cache := NewRedisGroupCache(fake, client, time.Minute, nil, nil)
		server.Close()

		set, err := cache.GroupsOf(ctx, "tok", "u1")
		require.NoError(t, err)
		assert.True(t, set.Contains("g1"))
	})
}

func TestCachedDirectory(t *testing.T) {
	ctx := context.Background()

	t.Run("found groups are cached", func(t *testing.T) {
		fake := NewFakeDirectory()
		fake.AddGroup(&Group{ID: "id-bf", Name: GroupBundesfuehrungen})
		dir := NewCachedDirectory(fake, 16, time.Minute)

		group, err := dir.GroupByName(ctx, GroupBundesfuehrungen)
		require.NoError(t, err)
		assert.Equal(t, "id-bf", group.ID)

		_, err = dir.GroupByName(ctx, GroupBundesfuehrungen)
		require.NoError(t, err)
		assert.Equal(t, 1, fake.Calls[GroupBundesfuehrungen])
	})

	t.Run("not-found is never cached", func(t *testing.T) {
		fake := NewFakeDirectory()
		dir := NewCachedDirectory(fake, 16, time.Minute)

		_, err := dir.GroupByName(ctx, GroupRingfuehrungen)
		assert.ErrorIs(t, err, ErrGroupNotFound)

		fake.AddGroup(&Group{ID: "id-rf", Name: GroupRingfuehrungen})
		group, err := dir.GroupByName(ctx, GroupRingfuehrungen)
		require.NoError(t, err)
		assert.Equal(t, "id-rf", group.ID)
	})

	t.Run("directory outage propagates", func(t *testing.T) {
		fake := NewFakeDirectory()
		fake.Err = errors.New("connection refused")
		dir := NewCachedDirectory(fake, 16, time.Minute)

		_, err := dir.GroupByName(ctx, GroupBundesfuehrungen)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrGroupNotFound)
	})
}
