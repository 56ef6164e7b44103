package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/tembichat/internal/cache"
	"github.com/oggyb/tembichat/internal/config"
)

func newCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestLikeCount_MissSetHitInvalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	_, ok, err := c.GetLikeCount(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.UpdateLikeCount(ctx, "u1", 7))
	assert.Equal(t, cache.LikeCountTTL, mr.TTL(c.KeyForLikeCount("u1")))

	n, ok, err := c.GetLikeCount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	require.NoError(t, c.InvalidateLikeCount(ctx, "u1"))
	assert.False(t, mr.Exists(c.KeyForLikeCount("u1")))
}

func TestLikeCount_GarbageIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	require.NoError(t, mr.Set(c.KeyForLikeCount("u2"), "not-a-number"))

	_, ok, err := c.GetLikeCount(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	sub := c.Client.Subscribe(ctx, "events")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	n, err := c.Publish(ctx, "events", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Payload)
}
