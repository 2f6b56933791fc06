package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedSearch struct {
	Query   string   `json:"query"`
	Results []string `json:"results"`
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c := NewRedisCache(RedisOptions{Addr: mr.Addr(), Prefix: "test:"})
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var out cachedSearch
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrCacheMiss)

	in := cachedSearch{Query: "google ads", Results: []string{"a", "b"}}
	require.NoError(t, c.Set(ctx, "k", in, 0))
	require.NoError(t, c.Get(ctx, "k", &out))
	assert.Equal(t, in, out)

	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, DefaultTTL, mr.TTL("test:k"))

	require.NoError(t, c.Set(ctx, "short", in, time.Minute))
	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "short", &out), ErrCacheMiss)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrCacheMiss)
}

func TestRedisCache_DecodeError(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("test:bad", "not json"))

	var out cachedSearch
	err := c.Get(context.Background(), "bad", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Counter(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	n, err := c.Counter(ctx, "quota")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = c.Incr(ctx, "quota", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Hour, mr.TTL("test:quota"))

	n, err = c.Incr(ctx, "quota", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = c.Counter(ctx, "quota")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.NoError(t, c.Ping(ctx))
}
