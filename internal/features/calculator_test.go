package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/regimewatch/internal/calibration"
	"github.com/sawpanic/regimewatch/internal/candle"
)

// chicagoOpen returns 08:30 CT on a fixed weekday, used as the anchor for
// building regular-session fixtures.
func chicagoOpen(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return time.Date(2026, 7, 29, 8, 30, 0, 0, loc)
}

// buildOneMinuteBars builds n 1-minute bars starting at open, with closes
// driven by closeFn(i) and a small fixed range around each close.
func buildOneMinuteBars(start time.Time, n int, closeFn func(i int) float64, volume int64) []candle.Candle {
	bars := make([]candle.Candle, n)
	prevClose := closeFn(0)
	for i := 0; i < n; i++ {
		c := closeFn(i)
		high := c + 0.5
		low := c - 0.5
		if prevClose > high {
			high = prevClose
		}
		if prevClose < low {
			low = prevClose
		}
		bars[i] = candle.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      prevClose,
			High:      high,
			Low:       low,
			Close:     c,
			Volume:    volume,
		}
		prevClose = c
	}
	return bars
}

func buildFiveMinuteBars(start time.Time, n int, closeFn func(i int) float64, volume int64) []candle.Candle {
	bars := make([]candle.Candle, n)
	prevClose := closeFn(0)
	for i := 0; i < n; i++ {
		c := closeFn(i)
		high := c + 1.0
		low := c - 1.0
		if prevClose > high {
			high = prevClose
		}
		if prevClose < low {
			low = prevClose
		}
		bars[i] = candle.Candle{
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Open:      prevClose,
			High:      high,
			Low:       low,
			Close:     c,
			Volume:    volume,
		}
		prevClose = c
	}
	return bars
}

func oscillating(base, amplitude float64) func(i int) float64 {
	return func(i int) float64 {
		if i%2 == 0 {
			return base + amplitude
		}
		return base - amplitude
	}
}

func rising(base, step float64) func(i int) float64 {
	return func(i int) float64 {
		return base + step*float64(i)
	}
}

func TestCompute_InsufficientOneMinuteBars(t *testing.T) {
	open := chicagoOpen(t)
	oneMin := candle.CandleSeries{Freq: candle.OneMinute, Candles: buildOneMinuteBars(open, 30, oscillating(5800, 2), 500)}
	fiveMin := candle.CandleSeries{Freq: candle.FiveMinute, Candles: buildFiveMinuteBars(open, 20, oscillating(5800, 3), 2000)}

	_, err := Compute(oneMin, fiveMin, calibration.ES, open.Add(30*time.Minute))
	require.Error(t, err)
	var insufficient *candle.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "1m", insufficient.Series)
}

func TestCompute_InsufficientFiveMinuteBars(t *testing.T) {
	open := chicagoOpen(t)
	oneMin := candle.CandleSeries{Freq: candle.OneMinute, Candles: buildOneMinuteBars(open, 60, oscillating(5800, 2), 500)}
	fiveMin := candle.CandleSeries{Freq: candle.FiveMinute, Candles: buildFiveMinuteBars(open, 19, oscillating(5800, 3), 2000)}

	_, err := Compute(oneMin, fiveMin, calibration.ES, open.Add(60*time.Minute))
	require.Error(t, err)
	var insufficient *candle.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "5m", insufficient.Series)
}

func TestCompute_BoundaryExactlyEnoughBarsSucceeds(t *testing.T) {
	open := chicagoOpen(t)
	oneMin := candle.CandleSeries{Freq: candle.OneMinute, Candles: buildOneMinuteBars(open, 60, oscillating(5800, 2), 500)}
	fiveMin := candle.CandleSeries{Freq: candle.FiveMinute, Candles: buildFiveMinuteBars(open, 20, oscillating(5800, 3), 2000)}

	now := open.Add(59 * time.Minute)
	_, err := Compute(oneMin, fiveMin, calibration.ES, now)
	require.NoError(t, err)
}

func TestCompute_OscillatingSeries_BalancedShape(t *testing.T) {
	open := chicagoOpen(t)
	now := open.Add(59 * time.Minute)

	oneMin := candle.CandleSeries{Freq: candle.OneMinute, Candles: buildOneMinuteBars(open, 60, oscillating(5800, 2), 500)}
	fiveMin := candle.CandleSeries{Freq: candle.FiveMinute, Candles: buildFiveMinuteBars(open, 24, oscillating(5800, 2), 2000)}

	feat, err := Compute(oneMin, fiveMin, calibration.ES, now)
	require.NoError(t, err)

	require.True(t, feat.BarOverlapRatio.Valid)
	assert.Greater(t, feat.BarOverlapRatio.Value, 0.5)

	require.True(t, feat.DirectionalEff.Valid)
	assert.Less(t, feat.DirectionalEff.Value, 0.3)
}

func TestCompute_RisingSeries_TrendShape(t *testing.T) {
	open := chicagoOpen(t)
	now := open.Add(59 * time.Minute)

	oneMin := candle.CandleSeries{Freq: candle.OneMinute, Candles: buildOneMinuteBars(open, 60, rising(20000, 3), 800)}
	fiveMin := candle.CandleSeries{Freq: candle.FiveMinute, Candles: buildFiveMinuteBars(open, 24, rising(20000, 15), 4000)}

	feat, err := Compute(oneMin, fiveMin, calibration.NQ, now)
	require.NoError(t, err)

	require.True(t, feat.DirectionalEff.Valid)
	assert.InDelta(t, 1.0, feat.DirectionalEff.Value, 1e-6)

	require.True(t, feat.VWAP.Valid)
	require.True(t, feat.PriceVsVWAP.Valid)
	assert.Greater(t, feat.PriceVsVWAP.Value, 0.0)
}

func TestCompute_OpeningRangePositionAfterWindow(t *testing.T) {
	open := chicagoOpen(t)
	now := open.Add(2 * time.Hour)

	oneMin := candle.CandleSeries{Freq: candle.OneMinute, Candles: buildOneMinuteBars(open, 150, oscillating(5800, 2), 500)}
	fiveMin := candle.CandleSeries{Freq: candle.FiveMinute, Candles: buildFiveMinuteBars(open, 30, oscillating(5800, 2), 2000)}

	feat, err := Compute(oneMin, fiveMin, calibration.ES, now)
	require.NoError(t, err)
	assert.True(t, feat.OpeningRangePos.Valid)
}

func TestCompute_VolumeAcceleration(t *testing.T) {
	open := chicagoOpen(t)
	now := open.Add(59 * time.Minute)

	bars := buildOneMinuteBars(open, 60, oscillating(5800, 2), 500)
	// Double volume for the last 10 bars to create positive acceleration.
	for i := 50; i < 60; i++ {
		bars[i].Volume = 1000
	}
	oneMin := candle.CandleSeries{Freq: candle.OneMinute, Candles: bars}
	fiveMin := candle.CandleSeries{Freq: candle.FiveMinute, Candles: buildFiveMinuteBars(open, 24, oscillating(5800, 2), 2000)}

	feat, err := Compute(oneMin, fiveMin, calibration.ES, now)
	require.NoError(t, err)
	require.True(t, feat.VolumeAcceleration.Valid)
	assert.InDelta(t, 1.0, feat.VolumeAcceleration.Value, 1e-6)
}
