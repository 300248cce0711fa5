package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/regimewatch/internal/candle"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := New()
	ctx := context.Background()
	series := candle.CandleSeries{Symbol: "/ESH26", Freq: candle.OneMinute}

	_, ok := c.Get(ctx, "missing")
	require.False(t, ok)

	c.Set(ctx, "key", series, time.Minute)
	got, ok := c.Get(ctx, "key")
	require.True(t, ok)
	assert.Equal(t, series, got)
}

func TestMemoryCache_ExpiresAfterTTL(t *testing.T) {
	c := New()
	ctx := context.Background()
	series := candle.CandleSeries{Symbol: "/NQM26"}

	c.Set(ctx, "key", series, time.Nanosecond)
	time.Sleep(time.Millisecond)

	_, ok := c.Get(ctx, "key")
	assert.False(t, ok)
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	c := New()
	ctx := context.Background()
	series := candle.CandleSeries{Symbol: "/ESH26"}

	c.Set(ctx, "key", series, 0)
	time.Sleep(time.Millisecond)

	_, ok := c.Get(ctx, "key")
	assert.True(t, ok)
}

func TestKey_IncludesSymbolFreqAndLookback(t *testing.T) {
	k1 := Key("/ESH26", candle.OneMinute, 10)
	k2 := Key("/ESH26", candle.FiveMinute, 10)
	k3 := Key("/NQM26", candle.OneMinute, 10)

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestNewAuto_EmptyAddrFallsBackToMemory(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	c := NewAuto("")
	_, ok := c.(*memory)
	assert.True(t, ok)
}
