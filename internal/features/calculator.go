package features

import (
	"time"

	"github.com/sawpanic/regimewatch/internal/calibration"
	"github.com/sawpanic/regimewatch/internal/candle"
	"github.com/sawpanic/regimewatch/internal/session"
)

const (
	minOneMinuteBars  = 60
	minFiveMinuteBars = 20
)

// Compute derives the full Features vector for instant now from a pair of
// 1-minute and 5-minute series. It returns *candle.InsufficientDataError
// before any feature math runs if either series is too short, per spec.md
// §4.3's Step 0 guard.
func Compute(oneMin, fiveMin candle.CandleSeries, cal calibration.Calibration, now time.Time) (Features, error) {
	if oneMin.Len() < minOneMinuteBars {
		return Features{}, &candle.InsufficientDataError{Series: "1m", Observed: oneMin.Len(), Required: minOneMinuteBars}
	}
	if fiveMin.Len() < minFiveMinuteBars {
		return Features{}, &candle.InsufficientDataError{Series: "5m", Observed: fiveMin.Len(), Required: minFiveMinuteBars}
	}

	last1m, _ := oneMin.Last()
	currentPrice := last1m.Close

	var f Features

	sessionBars := sessionToDateBars(oneMin.Candles, now)
	vwap, vwapOK := computeVWAP(sessionBars)
	if vwapOK {
		f.VWAP = some(vwap)
		if vwap != 0 {
			f.PriceVsVWAP = some((currentPrice - vwap) / vwap)
		}
	}

	if slope, ok := computeVWAPSlope(sessionBars, currentPrice); ok {
		f.VWAPSlope = some(slope)
	}

	atrs := atrSeries(fiveMin.Candles)
	var currentATR float64
	haveATR := len(atrs) >= 1
	if haveATR {
		currentATR = atrs[len(atrs)-1]
		f.ATR14_5m = some(currentATR)
	}
	if len(atrs) >= 11 {
		prior := atrs[len(atrs)-11]
		if prior != 0 {
			f.ATRSlope = some((currentATR - prior) / prior)
		}
	}
	if len(atrs) >= 3 {
		hist := atrs[:len(atrs)-1]
		if z, ok := zscore(currentATR, hist); ok {
			f.ATRZScore = some(z)
		}
	}

	fiveCloses := closes(fiveMin.Tail(101))
	shortReturns := logReturns(lastN(fiveCloses, 21))
	longReturns := logReturns(fiveCloses)
	var rvShort, rvLong float64
	haveShort, haveLong := false, false
	if len(shortReturns) >= 20 {
		rvShort = stddev(shortReturns)
		f.RealizedVolShort = some(rvShort)
		haveShort = true
	}
	if len(longReturns) >= 40 {
		rvLong = stddev(longReturns)
		f.RealizedVolLong = some(rvLong)
		haveLong = true
	}
	if haveShort && haveLong && rvLong != 0 {
		f.RVRatio = some(rvShort / rvLong)
	}

	if ratio, ok := barOverlapRatio(fiveMin.Tail(25)); ok {
		f.BarOverlapRatio = some(ratio)
	}

	window60 := oneMin.Tail(60)
	net, totalTravel, effOK := directionalEfficiency(window60)
	if effOK {
		f.DirectionalEff = some(net / totalTravel)
	}
	if effOK && haveATR {
		if depth, ok := avgPullbackDepth(window60, 0.1*currentATR, totalTravel); ok {
			f.AvgPullbackDepth = some(depth)
		}
	}

	if len(sessionBars) > 0 {
		high, low := sessionBars[0].High, sessionBars[0].Low
		for _, c := range sessionBars[1:] {
			if c.High > high {
				high = c.High
			}
			if c.Low < low {
				low = c.Low
			}
		}
		rng := high - low
		f.SessionRange = some(rng)

		hist := priorSessionRanges(oneMin.Candles, now)
		if z, ok := zscore(rng, hist); ok {
			f.SessionRangeZScore = some(z)
		}
	}

	if orBars := openingRangeBars(oneMin.Candles, now); len(orBars) > 0 {
		high, low := orBars[0].High, orBars[0].Low
		for _, c := range orBars[1:] {
			if c.High > high {
				high = c.High
			}
			if c.Low < low {
				low = c.Low
			}
		}
		if span := high - low; span > 0 {
			pos := (currentPrice - low) / span
			if pos < 0 {
				pos = 0
			}
			if pos > 1 {
				pos = 1
			}
			f.OpeningRangePos = some(pos)
		}
	}

	minutesSinceOpen := session.MinutesSinceOpen(now)
	if minutesSinceOpen >= 0 && session.IsRegularSession(now) {
		expected := cal.ExpectedVolumeAt(minutesSinceOpen)
		if expected > 0 {
			f.VolumeVsExpected = some(float64(sumVolume(sessionBars)) / expected)
		}
	}

	if last20 := oneMin.Tail(20); len(last20) == 20 {
		prior10 := sumVolume(last20[:10])
		last10 := sumVolume(last20[10:])
		if prior10 > 0 {
			f.VolumeAcceleration = some(float64(last10)/float64(prior10) - 1)
		}
	}

	if rpv, ok := rangePerVolume(fiveMin.Tail(12)); ok {
		f.RangePerVolume = some(rpv)
	}

	return f, nil
}

// computeVWAP is the session-to-date volume-weighted average price over the
// supplied regular-session 1-minute bars.
func computeVWAP(bars []candle.Candle) (float64, bool) {
	var sumPV, sumV float64
	for _, c := range bars {
		v := float64(c.Volume)
		sumPV += c.TypicalPrice() * v
		sumV += v
	}
	if sumV == 0 {
		return 0, false
	}
	return sumPV / sumV, true
}

// computeVWAPSlope regresses the session-to-date VWAP trajectory over the
// last 30 1-minute bars and normalizes the resulting per-minute slope by the
// current price, yielding a dimensionless rate of VWAP drift.
func computeVWAPSlope(bars []candle.Candle, currentPrice float64) (float64, bool) {
	if len(bars) < 30 || currentPrice == 0 {
		return 0, false
	}
	trajectory := make([]float64, 0, len(bars))
	var sumPV, sumV float64
	for _, c := range bars {
		v := float64(c.Volume)
		sumPV += c.TypicalPrice() * v
		sumV += v
		if sumV == 0 {
			continue
		}
		trajectory = append(trajectory, sumPV/sumV)
	}
	if len(trajectory) < 30 {
		return 0, false
	}
	tail := trajectory[len(trajectory)-30:]
	slope, ok := linregSlope(tail)
	if !ok {
		return 0, false
	}
	return slope / currentPrice, true
}

// rangePerVolume is the mean (high-low)/volume over bars, excluding
// zero-volume bars.
func rangePerVolume(bars []candle.Candle) (float64, bool) {
	var sum float64
	var n int
	for _, c := range bars {
		if c.Volume == 0 {
			continue
		}
		sum += (c.High - c.Low) / float64(c.Volume)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func lastN(xs []float64, n int) []float64 {
	if n >= len(xs) {
		return xs
	}
	return xs[len(xs)-n:]
}
