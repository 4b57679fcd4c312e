package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*HistoryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewHistoryCache(client, nil), mr
}

func TestHistoryCache_SaveAndLoad(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	history := []TranscriptMessage{
		{ID: "m1", Role: "user", Content: "hello", Timestamp: time.Now().UTC().Truncate(time.Second)},
		{ID: "m2", Role: "assistant", Content: "Sawubona! How can I help?"},
	}
	require.NoError(t, cache.Save(ctx, "sess-1", history))

	loaded, err := cache.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "hello", loaded[0].Content)
	assert.Equal(t, "assistant", loaded[1].Role)
}

func TestHistoryCache_LoadMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	loaded, err := cache.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestHistoryCache_Drop(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, "sess-1", []TranscriptMessage{{Role: "user", Content: "hi"}}))
	require.NoError(t, cache.Drop(ctx, "sess-1"))

	loaded, err := cache.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestHistoryCache_TTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, "sess-1", []TranscriptMessage{{Role: "user", Content: "hi"}}))
	mr.FastForward(historyTTL + time.Minute)

	loaded, err := cache.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestNewHistoryCache_NilClientPanics(t *testing.T) {
	assert.Panics(t, func() { NewHistoryCache(nil, nil) })
}
