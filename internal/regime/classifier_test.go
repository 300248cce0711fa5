package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/regimewatch/internal/calibration"
	"github.com/sawpanic/regimewatch/internal/candle"
	"github.com/sawpanic/regimewatch/internal/features"
	"github.com/sawpanic/regimewatch/internal/session"
)

func ptr(s string) *string { return &s }

// S1 — Balanced ES, lunch: high overlap, tight price-to-VWAP, low efficiency,
// rv_ratio < 1.
func TestClassify_S1_BalancedLunch(t *testing.T) {
	feat := features.Features{
		BarOverlapRatio: features.Metric{Value: 0.70, Valid: true},
		PriceVsVWAP:     features.Metric{Value: 0.0005, Valid: true},
		DirectionalEff:  features.Metric{Value: 0.10, Valid: true},
		RVRatio:         features.Metric{Value: 0.85, Valid: true},
		VWAPSlope:       features.Metric{Value: 1e-6, Valid: true},
		ATRSlope:        features.Metric{Value: -0.02, Valid: true},
		SessionRangeZScore: features.Metric{Value: 0.1, Valid: true},
	}
	report := Classify(candle.ES, feat, calibration.ES, session.Lunch, false, time.Now())

	assert.Equal(t, Balanced, report.PrimaryRegime)
	assert.Equal(t, "normal", *report.SecondaryTag)
	assert.Equal(t, VolNormal, report.VolatilityState)
	assert.GreaterOrEqual(t, report.Confidence, 65)
}

// S2 — Clean Trend NQ, mid_morning: monotonically rising closes, low
// overlap, ATR rising.
func TestClassify_S2_CleanTrendNQ(t *testing.T) {
	feat := features.Features{
		BarOverlapRatio: features.Metric{Value: 0.25, Valid: true},
		PriceVsVWAP:     features.Metric{Value: 0.01, Valid: true},
		DirectionalEff:  features.Metric{Value: 0.95, Valid: true},
		RVRatio:         features.Metric{Value: 1.1, Valid: true},
		VWAPSlope:       features.Metric{Value: 3e-5, Valid: true},
		ATRSlope:        features.Metric{Value: 0.15, Valid: true},
		ATRZScore:       features.Metric{Value: 1.0, Valid: true},
	}
	report := Classify(candle.NQ, feat, calibration.NQ, session.MidMorning, false, time.Now())

	assert.Equal(t, Trend, report.PrimaryRegime)
	assert.Equal(t, "clean", *report.SecondaryTag)
	assert.Equal(t, BalanceImbalanced, report.BalanceState)
	assert.Equal(t, TrendClean, report.TrendQuality)
	assert.GreaterOrEqual(t, report.Confidence, 75)
}

// S3 — Transition ES, opening_range: mixed signals, nothing decisively wins.
func TestClassify_S3_TransitionOpeningRange(t *testing.T) {
	feat := features.Features{
		BarOverlapRatio: features.Metric{Value: 0.50, Valid: true},
		PriceVsVWAP:     features.Metric{Value: 0.005, Valid: true},
		DirectionalEff:  features.Metric{Value: 0.50, Valid: true},
		RVRatio:         features.Metric{Value: 1.6, Valid: true},
		VWAPSlope:       features.Metric{Value: 1e-6, Valid: true},
		ATRSlope:        features.Metric{Value: 0.02, Valid: true},
	}
	report := Classify(candle.ES, feat, calibration.ES, session.OpeningRange, false, time.Now())

	assert.Equal(t, Transition, report.PrimaryRegime)
	assert.Nil(t, report.SecondaryTag)
	assert.Equal(t, NoiseHigh, report.NoiseLevel)
	assert.LessOrEqual(t, report.Confidence, 65)
}

// S4 — Event-Distorted NQ: EventWindow active overrides everything.
func TestClassify_S4_EventDistorted(t *testing.T) {
	feat := features.Features{
		BarOverlapRatio: features.Metric{Value: 0.80, Valid: true},
		DirectionalEff:  features.Metric{Value: 0.95, Valid: true},
	}
	report := Classify(candle.NQ, feat, calibration.NQ, session.MidAfternoon, true, time.Now())

	assert.Equal(t, EventDistorted, report.PrimaryRegime)
	assert.GreaterOrEqual(t, report.Confidence, 30)
	assert.LessOrEqual(t, report.Confidence, 60)
	assert.NotEmpty(t, report.VolatilityState)
	assert.NotEmpty(t, report.ParticipationState)
}

// S6 — Liquidation subtype: extreme efficiency + extreme ATR z-score.
func TestClassify_S6_Liquidation(t *testing.T) {
	feat := features.Features{
		BarOverlapRatio: features.Metric{Value: 0.20, Valid: true},
		PriceVsVWAP:     features.Metric{Value: 0.02, Valid: true},
		DirectionalEff:  features.Metric{Value: 0.90, Valid: true},
		RVRatio:         features.Metric{Value: 1.8, Valid: true},
		VWAPSlope:       features.Metric{Value: 5e-5, Valid: true},
		ATRSlope:        features.Metric{Value: 0.25, Valid: true},
		ATRZScore:       features.Metric{Value: 2.5, Valid: true},
	}
	report := Classify(candle.ES, feat, calibration.ES, session.PowerHour, false, time.Now())

	assert.Equal(t, Trend, report.PrimaryRegime)
	assert.Equal(t, "liquidation", *report.SecondaryTag)
	assert.Contains(t, []VolatilityState{VolExpanding, VolExtreme}, report.VolatilityState)
}

func TestClassify_ConfidenceAlwaysInRange(t *testing.T) {
	allCombos := []features.Features{
		{},
		{BarOverlapRatio: features.Metric{Valid: true, Value: 0.9}},
		{DirectionalEff: features.Metric{Valid: true, Value: -0.99}},
	}
	for _, feat := range allCombos {
		report := Classify(candle.ES, feat, calibration.ES, session.MidMorning, false, time.Now())
		assert.GreaterOrEqual(t, report.Confidence, 0)
		assert.LessOrEqual(t, report.Confidence, 100)
	}
}

func TestClassify_BalancedImpliesBalanceStateAndTrendQuality(t *testing.T) {
	feat := features.Features{
		BarOverlapRatio: features.Metric{Value: 0.70, Valid: true},
		PriceVsVWAP:     features.Metric{Value: 0.0005, Valid: true},
		DirectionalEff:  features.Metric{Value: 0.10, Valid: true},
		RVRatio:         features.Metric{Value: 0.85, Valid: true},
	}
	report := Classify(candle.ES, feat, calibration.ES, session.Lunch, false, time.Now())

	if report.PrimaryRegime == Balanced {
		assert.Equal(t, BalanceBalanced, report.BalanceState)
		assert.Contains(t, []TrendQuality{TrendNone, TrendWeak}, report.TrendQuality)
	}
}

func TestClassify_TrendImpliesBalanceStateAndTrendQuality(t *testing.T) {
	feat := features.Features{
		BarOverlapRatio: features.Metric{Value: 0.25, Valid: true},
		DirectionalEff:  features.Metric{Value: 0.95, Valid: true},
		VWAPSlope:       features.Metric{Value: 3e-5, Valid: true},
		ATRSlope:        features.Metric{Value: 0.15, Valid: true},
	}
	report := Classify(candle.NQ, feat, calibration.NQ, session.MidMorning, false, time.Now())

	if report.PrimaryRegime == Trend {
		assert.Equal(t, BalanceImbalanced, report.BalanceState)
		assert.Contains(t, []TrendQuality{TrendWeak, TrendClean, TrendExtreme}, report.TrendQuality)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	feat := features.Features{
		BarOverlapRatio: features.Metric{Value: 0.45, Valid: true},
		DirectionalEff:  features.Metric{Value: 0.4, Valid: true},
		RVRatio:         features.Metric{Value: 1.1, Valid: true},
	}
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	r1 := Classify(candle.ES, feat, calibration.ES, session.MidAfternoon, false, now)
	r2 := Classify(candle.ES, feat, calibration.ES, session.MidAfternoon, false, now)
	assert.Equal(t, r1, r2)
}

// Regression: a 60-bar window with zero net/total travel leaves
// DirectionalEff invalid even though VWAPSlope/BarOverlapRatio/ATRSlope
// alone push the classifier to Trend; trend_quality must still land on a
// non-none value per spec.md §8 property 4.
func TestClassify_TrendWithMissingDirectionalEff_NeverTrendNone(t *testing.T) {
	feat := features.Features{
		VWAPSlope:       features.Metric{Value: 3e-5, Valid: true},
		BarOverlapRatio: features.Metric{Value: 0.20, Valid: true},
		ATRSlope:        features.Metric{Value: 0.15, Valid: true},
		// DirectionalEff intentionally left Valid:false (zero value).
	}
	report := Classify(candle.ES, feat, calibration.ES, session.MidMorning, false, time.Now())

	require.Equal(t, Trend, report.PrimaryRegime)
	assert.NotEqual(t, TrendNone, report.TrendQuality)
	assert.Contains(t, []TrendQuality{TrendWeak, TrendClean, TrendExtreme}, report.TrendQuality)
}

func TestReliabilityNote_KnownAndUnknownCombos(t *testing.T) {
	assert.Equal(t, "Continuation signals favored; fading less reliable.", reliabilityNote(Trend, ptr("clean")))
	assert.Equal(t, "No reliability guidance available for this combination.", reliabilityNote(Balanced, ptr("nonexistent")))
	assert.NotEmpty(t, reliabilityNote(Transition, nil))
	assert.NotEmpty(t, reliabilityNote(EventDistorted, nil))
}
