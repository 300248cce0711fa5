package features

import "github.com/sawpanic/regimewatch/internal/candle"

const atrPeriod = 14

// atrSeries returns Wilder-smoothed ATR(14) for every bar once at least
// atrPeriod+1 bars are available, generalizing the teacher's CalculateATR
// (internal/domain/indicators/technical.go) from a single trailing value to
// a full series so slope and z-score can be taken against it. Index i of
// the returned slice is the ATR as of bars[i+atrPeriod].
func atrSeries(bars []candle.Candle) []float64 {
	if len(bars) < atrPeriod+1 {
		return nil
	}

	trueRanges := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trueRanges[i-1] = trueRange(bars[i].High, bars[i].Low, bars[i-1].Close)
	}
	if len(trueRanges) < atrPeriod {
		return nil
	}

	atr := 0.0
	for i := 0; i < atrPeriod; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(atrPeriod)

	series := make([]float64, 0, len(trueRanges)-atrPeriod+1)
	series = append(series, atr)

	alpha := 1.0 / float64(atrPeriod)
	for i := atrPeriod; i < len(trueRanges); i++ {
		atr = atr*(1-alpha) + trueRanges[i]*alpha
		series = append(series, atr)
	}
	return series
}
