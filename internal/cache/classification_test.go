package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type cachedVerdict struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

func newTestCache(t *testing.T) (*ClassificationCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	wrapper := &Redis{Client: redis.NewClient(&redis.Options{Addr: server.Addr()})}
	t.Cleanup(wrapper.Close)
	return NewClassificationCache(wrapper, time.Minute, zap.NewNop()), server
}

func TestClassificationCacheRoundTrip(t *testing.T) {
	cc, _ := newTestCache(t)
	ctx := context.Background()

	cc.Set(ctx, "the vpn is down", cachedVerdict{Category: "IT", Confidence: 0.9})

	var out cachedVerdict
	require.True(t, cc.Get(ctx, "the vpn is down", &out))
	assert.Equal(t, "IT", out.Category)
	assert.Equal(t, 0.9, out.Confidence)
}

func TestClassificationCacheMissOnAbsentKey(t *testing.T) {
	cc, _ := newTestCache(t)

	var out cachedVerdict
	assert.False(t, cc.Get(context.Background(), "never stored", &out))
}

func TestClassificationCacheKeysByExactText(t *testing.T) {
	cc, _ := newTestCache(t)
	ctx := context.Background()

	cc.Set(ctx, "the vpn is down", cachedVerdict{Category: "IT"})

	var out cachedVerdict
	assert.False(t, cc.Get(ctx, "The VPN is down", &out), "digest keying is case sensitive")
}

func TestClassificationCacheEntryExpires(t *testing.T) {
	cc, server := newTestCache(t)
	ctx := context.Background()

	cc.Set(ctx, "printer jam", cachedVerdict{Category: "IT"})
	server.FastForward(2 * time.Minute)

	var out cachedVerdict
	assert.False(t, cc.Get(ctx, "printer jam", &out))
}

func TestClassificationCacheCorruptEntryIsMiss(t *testing.T) {
	cc, server := newTestCache(t)
	ctx := context.Background()

	cc.Set(ctx, "broken door lock", cachedVerdict{Category: "Facilities"})
	keys := server.Keys()
	require.Len(t, keys, 1)
	require.NoError(t, server.Set(keys[0], "not json"))

	var out cachedVerdict
	assert.False(t, cc.Get(ctx, "broken door lock", &out))
}

func TestClassificationCacheNilWrapperAlwaysMisses(t *testing.T) {
	cc := NewClassificationCache(nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	cc.Set(ctx, "anything", cachedVerdict{Category: "IT"})

	var out cachedVerdict
	assert.False(t, cc.Get(ctx, "anything", &out))
}
