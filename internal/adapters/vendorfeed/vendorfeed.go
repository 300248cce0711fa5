// Package vendorfeed implements ports.CandleSource against an HTTP quote
// vendor, guarded by a cache, a per-host rate limiter, and a circuit
// breaker. Grounded on internal/providers/guards/guard.go's cache → rate
// limit → circuit breaker ordering, rewritten against sony/gobreaker
// instead of the teacher's hand-rolled CircuitBreaker, and
// internal/net/ratelimit/limiter.go's per-host token bucket.
//
// OAuth token acquisition and on-disk credential encryption are explicitly
// out of scope (spec.md §1); TokenSource exists so a caller can supply
// bearer credentials without this package taking on that concern.
package vendorfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	adaptercache "github.com/sawpanic/regimewatch/internal/adapters/cache"
	"github.com/sawpanic/regimewatch/internal/candle"
)

// TokenSource supplies a bearer token for the vendor request. Left
// unimplemented here; see DESIGN.md for why OAuth acquisition stays outside
// the core and this adapter.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Source is a guarded ports.CandleSource.
type Source struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	cache      adaptercache.Cache
	cacheTTL   time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// Config configures a Source.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	CacheTTL       time.Duration
}

// New builds a guarded vendor CandleSource. tokens and c may be nil;
// a nil cache falls back to an in-process memory cache.
func New(cfg Config, tokens TokenSource, c adaptercache.Cache) *Source {
	if c == nil {
		c = adaptercache.New()
	}
	settings := gobreaker.Settings{
		Name:        "vendorfeed",
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: tripOnConsecutiveOrRateFailures,
	}
	return &Source{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.BaseURL,
		tokens:     tokens,
		cache:      c,
		cacheTTL:   cfg.CacheTTL,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

func tripOnConsecutiveOrRateFailures(counts gobreaker.Counts) bool {
	if counts.ConsecutiveFailures >= 3 {
		return true
	}
	if counts.Requests < 20 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
}

// Fetch implements ports.CandleSource.
func (s *Source) Fetch(ctx context.Context, symbol candle.Symbol, freq candle.Frequency, lookbackDays int) (candle.CandleSeries, error) {
	key := adaptercache.Key(symbol, freq, lookbackDays)
	if series, ok := s.cache.Get(ctx, key); ok {
		return series, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return candle.CandleSeries{}, fmt.Errorf("vendorfeed: rate limit wait: %w", err)
	}

	result, err := s.breaker.Execute(func() (any, error) {
		return s.fetchFromVendor(ctx, symbol, freq, lookbackDays)
	})
	if err != nil {
		return candle.CandleSeries{}, fmt.Errorf("vendorfeed: fetch %s %s: %w", symbol, freq, err)
	}

	series := result.(candle.CandleSeries)
	s.cache.Set(ctx, key, series, s.cacheTTL)
	return series, nil
}

func (s *Source) fetchFromVendor(ctx context.Context, symbol candle.Symbol, freq candle.Frequency, lookbackDays int) (candle.CandleSeries, error) {
	url := fmt.Sprintf("%s/candles?symbol=%s&freq=%s&lookback_days=%d", s.baseURL, symbol, freq, lookbackDays)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return candle.CandleSeries{}, err
	}
	if s.tokens != nil {
		token, err := s.tokens.Token(ctx)
		if err != nil {
			return candle.CandleSeries{}, fmt.Errorf("vendorfeed: acquire token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return candle.CandleSeries{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return candle.CandleSeries{}, fmt.Errorf("vendor returned status %d: %s", resp.StatusCode, body)
	}

	var series candle.CandleSeries
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		return candle.CandleSeries{}, fmt.Errorf("decode vendor response: %w", err)
	}
	return series, nil
}
