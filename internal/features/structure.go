package features

import (
	"math"

	"github.com/sawpanic/regimewatch/internal/candle"
)

// barOverlapRatio averages the overlap/union of each consecutive pair of
// [low,high] ranges over the given bars. Requires at least 2 bars.
func barOverlapRatio(bars []candle.Candle) (float64, bool) {
	if len(bars) < 2 {
		return 0, false
	}
	var sum float64
	var n int
	for i := 1; i < len(bars); i++ {
		a, b := bars[i-1], bars[i]
		overlapLow := math.Max(a.Low, b.Low)
		overlapHigh := math.Min(a.High, b.High)
		overlap := math.Max(0, overlapHigh-overlapLow)

		unionLow := math.Min(a.Low, b.Low)
		unionHigh := math.Max(a.High, b.High)
		union := unionHigh - unionLow

		if union <= 0 {
			continue
		}
		sum += overlap / union
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// directionalEfficiency is the net move over the window divided by the sum
// of absolute bar-to-bar moves: 1.0 is a straight line, near 0 is chop.
func directionalEfficiency(bars []candle.Candle) (net, totalTravel float64, ok bool) {
	if len(bars) < 2 {
		return 0, 0, false
	}
	net = bars[len(bars)-1].Close - bars[0].Close
	for i := 1; i < len(bars); i++ {
		totalTravel += math.Abs(bars[i].Close - bars[i-1].Close)
	}
	if totalTravel == 0 {
		return 0, 0, false
	}
	return net, totalTravel, true
}

// avgPullbackDepth finds local extrema in bars whose reversal exceeds
// extremaThreshold (a fraction of ATR) and averages how deep, as a fraction
// of totalTravel, each pullback between consecutive extrema retraces.
func avgPullbackDepth(bars []candle.Candle, extremaThreshold, totalTravel float64) (float64, bool) {
	if len(bars) < 3 || totalTravel <= 0 {
		return 0, false
	}

	var extremaCloses []float64
	for i := 1; i < len(bars)-1; i++ {
		prev, cur, next := bars[i-1].Close, bars[i].Close, bars[i+1].Close
		isPeak := cur > prev+extremaThreshold && cur > next+extremaThreshold
		isTrough := cur < prev-extremaThreshold && cur < next-extremaThreshold
		if isPeak || isTrough {
			extremaCloses = append(extremaCloses, cur)
		}
	}
	if len(extremaCloses) < 2 {
		return 0, false
	}

	var sum float64
	for i := 1; i < len(extremaCloses); i++ {
		sum += math.Abs(extremaCloses[i]-extremaCloses[i-1]) / totalTravel
	}
	return sum / float64(len(extremaCloses)-1), true
}
