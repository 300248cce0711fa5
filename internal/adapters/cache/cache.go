// Package cache caches fetched CandleSeries so repeated classification runs
// within a TTL window don't re-hit the quote vendor. Generalized from
// data/cache/cache.go's []byte blob Cache (memory + optional Redis behind
// NewAuto/REDIS_ADDR) to a typed candle-series cache with JSON encoding.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sawpanic/regimewatch/internal/candle"
)

// Cache stores a CandleSeries by key for up to ttl.
type Cache interface {
	Get(ctx context.Context, key string) (candle.CandleSeries, bool)
	Set(ctx context.Context, key string, series candle.CandleSeries, ttl time.Duration)
}

// Key builds the cache key for one symbol/frequency/lookback combination.
func Key(symbol candle.Symbol, freq candle.Frequency, lookbackDays int) string {
	return fmt.Sprintf("%s:%s:%dd", symbol, freq, lookbackDays)
}

type memory struct {
	mu sync.Mutex
	m  map[string]entry
}

type entry struct {
	series candle.CandleSeries
	exp    time.Time
}

// New returns an in-process memory cache.
func New() Cache { return &memory{m: make(map[string]entry)} }

func (c *memory) Get(_ context.Context, key string) (candle.CandleSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		return candle.CandleSeries{}, false
	}
	return e.series, true
}

func (c *memory) Set(_ context.Context, key string, series candle.CandleSeries, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{series: series}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
}

// redisCache stores the JSON encoding of a CandleSeries in Redis.
type redisCache struct{ r *redis.Client }

// NewAuto returns a Redis-backed cache for addr, or for the REDIS_ADDR
// environment variable when addr is empty; with neither set it returns an
// in-process memory cache, mirroring NewAuto/REDIS_ADDR in data/cache/cache.go.
func NewAuto(addr string) Cache {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		return &redisCache{r: redis.NewClient(&redis.Options{Addr: addr})}
	}
	return New()
}

func (c *redisCache) Get(ctx context.Context, key string) (candle.CandleSeries, bool) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	raw, err := c.r.Get(ctx, key).Bytes()
	if err != nil {
		return candle.CandleSeries{}, false
	}
	var series candle.CandleSeries
	if err := json.Unmarshal(raw, &series); err != nil {
		return candle.CandleSeries{}, false
	}
	return series, true
}

func (c *redisCache) Set(ctx context.Context, key string, series candle.CandleSeries, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	raw, err := json.Marshal(series)
	if err != nil {
		return
	}
	_ = c.r.Set(ctx, key, raw, ttl).Err()
}
