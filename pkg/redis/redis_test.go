package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/forecaster/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFromRedis(rdb), mr
}

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewClient_Enabled(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: true,
			Host:    mr.Host(),
			Port:    mr.Port(),
		},
	}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.True(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")
	limit := EngineRateLimit(5)

	allowed, remaining, err := limiter.Allow(context.Background(), limit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, limit.Limit, remaining)
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client, "test")
	limit := RateLimitConfig{Key: "engine", Limit: 3, Window: time.Minute}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, remaining, err := limiter.Allow(ctx, limit)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, remaining, err := limiter.Allow(ctx, limit)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client, "test")
	limit := RateLimitConfig{Key: "engine", Limit: 1, Window: time.Minute}

	require.NoError(t, limiter.Wait(context.Background(), limit))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(ctx, limit), context.DeadlineExceeded)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")

	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(context.Background(), "key", "v", time.Minute))
}

func TestCache_RoundTrip(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, "forecaster")
	ctx := context.Background()

	type prepared struct {
		PredictionLength int       `json:"prediction_length"`
		Quantiles        []float64 `json:"quantiles"`
	}

	key := PreparedKey("abc123")
	require.NoError(t, cache.Set(ctx, key, prepared{PredictionLength: 24, Quantiles: []float64{0.1, 0.5}}, TTLMedium))
	assert.True(t, mr.Exists("forecaster:cache:forecast:prepared:abc123"))

	var got prepared
	found, err := cache.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 24, got.PredictionLength)
	assert.Equal(t, []float64{0.1, 0.5}, got.Quantiles)

	mr.FastForward(TTLMedium + time.Second)
	found, err = cache.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, key, got, TTLMedium))
	require.NoError(t, cache.Delete(ctx, key))
	found, err = cache.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "forecast:prepared:deadbeef", PreparedKey("deadbeef"))
	assert.Equal(t, "engine:info:http://engine:8000", EngineInfoKey("http://engine:8000"))
}
