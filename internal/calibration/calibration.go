// Package calibration holds the immutable per-instrument numeric thresholds
// the regime classifier and feature calculator read. ES and NQ ship as
// compiled-in defaults and can be overridden from a YAML file at startup.
package calibration

import (
	"fmt"

	"github.com/sawpanic/regimewatch/internal/candle"
)

// VolumeCurvePoint is one control point of the expected-volume-at-time-of-day
// curve: MinutesSinceOpen -> expected cumulative session volume as a
// fraction of full-session volume.
type VolumeCurvePoint struct {
	MinutesSinceOpen int
	ExpectedFraction float64
}

// TrendQualityExtreme bundles the combined efficiency+atr_zscore threshold
// spec.md §4.4 calls "trend_quality_extreme".
type TrendQualityExtreme struct {
	Efficiency float64
	ATRZScore  float64
}

// Calibration enumerates every numeric threshold the classifier needs for
// one instrument. Values are illustrative of the shape spec.md §4.4
// describes; see DESIGN.md for the Open Question decision on exact values.
type Calibration struct {
	Instrument candle.Instrument

	BalanceOverlapThreshold    float64
	ImbalanceEfficiencyThresh  float64
	VWAPSlopeStrong            float64
	ATRExpandingSlope          float64
	ATRCompressingSlope        float64
	ATRExtremeZScore           float64
	RVRatioExpanding           float64
	ParticipationHeavy         float64
	ParticipationThin          float64
	TrendQualityClean          float64
	TrendQualityExtreme        TrendQualityExtreme

	ExpectedVolumeCurve []VolumeCurvePoint

	// FullSessionVolume is the instrument's typical full regular-session
	// cumulative volume, used to turn ExpectedVolumeCurve fractions into an
	// absolute expected-volume-at-time value.
	FullSessionVolume float64
}

// ExpectedVolumeAt interpolates the piecewise-linear curve at the given
// minutes-since-open, returning an absolute expected cumulative volume.
// Before the first control point or after the last, the curve clamps to the
// nearest endpoint.
func (c Calibration) ExpectedVolumeAt(minutesSinceOpen int) float64 {
	pts := c.ExpectedVolumeCurve
	if len(pts) == 0 {
		return 0
	}
	if minutesSinceOpen <= pts[0].MinutesSinceOpen {
		return pts[0].ExpectedFraction * c.FullSessionVolume
	}
	last := pts[len(pts)-1]
	if minutesSinceOpen >= last.MinutesSinceOpen {
		return last.ExpectedFraction * c.FullSessionVolume
	}
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		if minutesSinceOpen >= a.MinutesSinceOpen && minutesSinceOpen <= b.MinutesSinceOpen {
			span := float64(b.MinutesSinceOpen - a.MinutesSinceOpen)
			if span <= 0 {
				return a.ExpectedFraction * c.FullSessionVolume
			}
			t := float64(minutesSinceOpen-a.MinutesSinceOpen) / span
			frac := a.ExpectedFraction + t*(b.ExpectedFraction-a.ExpectedFraction)
			return frac * c.FullSessionVolume
		}
	}
	return last.ExpectedFraction * c.FullSessionVolume
}

// defaultCurve is the placeholder 5-point shape documented in DESIGN.md
// (Open Question 2): session open, +30m, midday, 30m before close, close.
var defaultCurve = []VolumeCurvePoint{
	{MinutesSinceOpen: 0, ExpectedFraction: 0.0},
	{MinutesSinceOpen: 30, ExpectedFraction: 0.25},
	{MinutesSinceOpen: 240, ExpectedFraction: 0.55},
	{MinutesSinceOpen: 420, ExpectedFraction: 0.85},
	{MinutesSinceOpen: 450, ExpectedFraction: 1.0},
}

// ES is the compiled-in default calibration for the E-mini S&P 500 future.
var ES = Calibration{
	Instrument:                candle.ES,
	BalanceOverlapThreshold:   0.55,
	ImbalanceEfficiencyThresh: 0.45,
	VWAPSlopeStrong:           1.5e-5,
	ATRExpandingSlope:         0.10,
	ATRCompressingSlope:       -0.10,
	ATRExtremeZScore:          2.0,
	RVRatioExpanding:          1.2,
	ParticipationHeavy:        1.3,
	ParticipationThin:         0.7,
	TrendQualityClean:         0.60,
	TrendQualityExtreme:       TrendQualityExtreme{Efficiency: 0.80, ATRZScore: 1.5},
	ExpectedVolumeCurve:       defaultCurve,
	FullSessionVolume:         1_500_000,
}

// NQ is the compiled-in default calibration for the E-mini Nasdaq-100 future.
var NQ = Calibration{
	Instrument:                candle.NQ,
	BalanceOverlapThreshold:   0.60,
	ImbalanceEfficiencyThresh: 0.55,
	VWAPSlopeStrong:           2.2e-5,
	ATRExpandingSlope:         0.10,
	ATRCompressingSlope:       -0.10,
	ATRExtremeZScore:          2.0,
	RVRatioExpanding:          1.3,
	ParticipationHeavy:        1.3,
	ParticipationThin:         0.7,
	TrendQualityClean:         0.70,
	TrendQualityExtreme:       TrendQualityExtreme{Efficiency: 0.85, ATRZScore: 1.5},
	ExpectedVolumeCurve:       defaultCurve,
	FullSessionVolume:         2_200_000,
}

// For returns the compiled-in default Calibration for an instrument.
func For(instrument candle.Instrument) (Calibration, error) {
	switch instrument {
	case candle.ES:
		return ES, nil
	case candle.NQ:
		return NQ, nil
	default:
		return Calibration{}, &candle.InvalidInstrumentError{Root: string(instrument)}
	}
}

// Registry holds the runtime-resolved Calibration per instrument, after any
// YAML overrides have been applied by LoadFromFile.
type Registry struct {
	byInstrument map[candle.Instrument]Calibration
}

// NewRegistry builds a Registry seeded with the compiled-in ES/NQ defaults.
func NewRegistry() *Registry {
	return &Registry{
		byInstrument: map[candle.Instrument]Calibration{
			candle.ES: ES,
			candle.NQ: NQ,
		},
	}
}

// Get returns the Calibration for instrument, or an error if unknown.
func (r *Registry) Get(instrument candle.Instrument) (Calibration, error) {
	cal, ok := r.byInstrument[instrument]
	if !ok {
		return Calibration{}, &candle.InvalidInstrumentError{Root: string(instrument)}
	}
	return cal, nil
}

// Set installs (or overrides) the Calibration for an instrument.
func (r *Registry) Set(instrument candle.Instrument, cal Calibration) {
	r.byInstrument[instrument] = cal
}

func (c Calibration) String() string {
	return fmt.Sprintf("calibration(%s)", c.Instrument)
}
