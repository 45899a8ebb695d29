package llm

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, next LLMClient) (*CachedClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCachedClient(next, rdb, time.Minute), mr
}

func TestCachedClientReusesDeterministicReplies(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient("one", "two")
	cache, mr := newTestCache(t, mock)

	req := jsonRequest("find dune")
	req.Temperature = Float64(0)

	first, err := cache.CreateChatCompletion(ctx, req)
	require.NoError(t, err)
	second, err := cache.CreateChatCompletion(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "one", first.Content())
	assert.Equal(t, "one", second.Content())
	assert.Len(t, mock.Requests(), 1)
	assert.Len(t, mr.Keys(), 1)

	mr.FastForward(2 * time.Minute)
	third, err := cache.CreateChatCompletion(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "two", third.Content())
}

func TestCachedClientSkipsNonZeroTemperature(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient("one", "two")
	cache, mr := newTestCache(t, mock)

	req := jsonRequest("find dune")
	req.Temperature = Float64(0.7)

	first, err := cache.CreateChatCompletion(ctx, req)
	require.NoError(t, err)
	second, err := cache.CreateChatCompletion(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "one", first.Content())
	assert.Equal(t, "two", second.Content())
	assert.Empty(t, mr.Keys())
}

func TestCachedClientFallsThroughWhenRedisIsDown(t *testing.T) {
	mock := NewMockClient("one")
	cache, mr := newTestCache(t, mock)
	mr.Close()

	req := jsonRequest("find dune")
	req.Temperature = Float64(0)
	resp, err := cache.CreateChatCompletion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "one", resp.Content())
}
