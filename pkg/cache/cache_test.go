package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value int `json:"value"`
}

func newTestCache(t *testing.T) (*JSONCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewJSONCache(client, "stats", time.Minute), mr
}

func TestFetchCachesLoaderResult(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return payload{Value: 42}, nil
	}

	var first, second payload
	require.NoError(t, c.Fetch(ctx, c.Key("a", "b"), &first, loader))
	require.NoError(t, c.Fetch(ctx, c.Key("a", "b"), &second, loader))

	assert.Equal(t, 42, first.Value)
	assert.Equal(t, 42, second.Value)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("stats:a:b"))

	require.NoError(t, c.Invalidate(ctx, "a"))
	assert.False(t, mr.Exists("stats:a:b"))
}

func TestFetchWithoutRedis(t *testing.T) {
	var c *JSONCache
	var out payload
	require.NoError(t, c.Fetch(context.Background(), "k", &out, func(context.Context) (interface{}, error) {
		return payload{Value: 7}, nil
	}))
	assert.Equal(t, 7, out.Value)
}

func TestFetchPropagatesLoaderError(t *testing.T) {
	c, _ := newTestCache(t)
	boom := errors.New("boom")
	var out payload
	err := c.Fetch(context.Background(), c.Key("x"), &out, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}
