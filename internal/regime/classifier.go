package regime

import (
	"math"
	"time"

	"github.com/sawpanic/regimewatch/internal/calibration"
	"github.com/sawpanic/regimewatch/internal/candle"
	"github.com/sawpanic/regimewatch/internal/features"
	"github.com/sawpanic/regimewatch/internal/session"
)

// Classify turns a Features vector into a RegimeReport. It never returns an
// error: InsufficientData is raised earlier, by the Feature Calculator, and
// every numeric degeneracy here resolves to a missing-feature treatment
// rather than a failure.
func Classify(
	instrument candle.Instrument,
	feat features.Features,
	cal calibration.Calibration,
	phase session.Phase,
	eventWindow bool,
	now time.Time,
) RegimeReport {
	if eventWindow {
		return classifyEventDistorted(instrument, feat, cal, phase, now)
	}

	balanceScore, imbalanceScore := scoreBalance(feat, cal)
	primary := primaryRegime(balanceScore, imbalanceScore)
	secondary := secondaryTag(primary, feat, cal)

	volState := volatilityState(feat, cal)
	partState := participationState(feat, cal)
	balState := balanceState(primary)
	trendQ := trendQuality(primary, feat, cal)
	noise := noiseLevel(feat)

	confidence := computeConfidence(balanceScore, imbalanceScore, primary, feat, volState, partState)

	return RegimeReport{
		Instrument:               instrument,
		Timestamp:                now.UTC(),
		PrimaryRegime:            primary,
		SecondaryTag:             secondary,
		Confidence:               confidence,
		VolatilityState:          volState,
		ParticipationState:       partState,
		BalanceState:             balState,
		TrendQuality:             trendQ,
		NoiseLevel:               noise,
		SessionPhase:             string(phase),
		OrderFlowReliabilityNote: reliabilityNote(primary, secondary),
	}
}

func classifyEventDistorted(instrument candle.Instrument, feat features.Features, cal calibration.Calibration, phase session.Phase, now time.Time) RegimeReport {
	confidence := 50
	for _, m := range topContributors(feat) {
		if !m.Valid {
			confidence -= 10
		}
	}
	if confidence < 30 {
		confidence = 30
	}
	if confidence > 60 {
		confidence = 60
	}

	// Descriptive state tags are still computed against the instrument's
	// calibration, exactly as on the non-event path.
	return RegimeReport{
		Instrument:               instrument,
		Timestamp:                now.UTC(),
		PrimaryRegime:            EventDistorted,
		SecondaryTag:             nil,
		Confidence:               confidence,
		VolatilityState:          volatilityState(feat, cal),
		ParticipationState:       participationState(feat, cal),
		BalanceState:             BalanceTransitioning,
		TrendQuality:             trendQuality(EventDistorted, feat, cal),
		NoiseLevel:               noiseLevel(feat),
		SessionPhase:             string(phase),
		OrderFlowReliabilityNote: reliabilityNote(EventDistorted, nil),
	}
}

// topContributors are the distinct features the balance/imbalance scoring
// and noise-level steps read; a missing one among these degrades confidence.
func topContributors(feat features.Features) []features.Metric {
	return []features.Metric{
		feat.BarOverlapRatio,
		feat.PriceVsVWAP,
		feat.DirectionalEff,
		feat.RVRatio,
		feat.VWAPSlope,
		feat.ATRSlope,
	}
}

func scoreBalance(feat features.Features, cal calibration.Calibration) (balance, imbalance int) {
	if feat.BarOverlapRatio.Valid && feat.BarOverlapRatio.Value >= cal.BalanceOverlapThreshold {
		balance++
	}
	if feat.PriceVsVWAP.Valid && math.Abs(feat.PriceVsVWAP.Value) <= 0.002 {
		balance++
	}
	if feat.DirectionalEff.Valid && math.Abs(feat.DirectionalEff.Value) <= 0.30 {
		balance++
	}
	if feat.RVRatio.Valid && feat.RVRatio.Value < 1.0 {
		balance++
	}

	if feat.DirectionalEff.Valid && math.Abs(feat.DirectionalEff.Value) >= cal.ImbalanceEfficiencyThresh {
		imbalance++
	}
	if feat.VWAPSlope.Valid && math.Abs(feat.VWAPSlope.Value) >= cal.VWAPSlopeStrong {
		imbalance++
	}
	if feat.BarOverlapRatio.Valid && feat.BarOverlapRatio.Value < 0.40 {
		imbalance++
	}
	if feat.ATRSlope.Valid && feat.ATRSlope.Value >= cal.ATRExpandingSlope {
		imbalance++
	}
	return balance, imbalance
}

func primaryRegime(balance, imbalance int) PrimaryRegime {
	switch {
	case imbalance-balance >= 2:
		return Trend
	case balance-imbalance >= 2:
		return Balanced
	default:
		return Transition
	}
}

func secondaryTag(primary PrimaryRegime, feat features.Features, cal calibration.Calibration) *string {
	switch primary {
	case Balanced:
		if feat.SessionRangeZScore.Valid && feat.SessionRangeZScore.Value <= -1.0 {
			return strPtr("tight")
		}
		if feat.VWAPSlope.Valid && math.Abs(feat.VWAPSlope.Value) >= cal.VWAPSlopeStrong*0.5 {
			return strPtr("migrating")
		}
		return strPtr("normal")
	case Trend:
		eff, effOK := absValid(feat.DirectionalEff)
		z, zOK := valid(feat.ATRZScore)
		if effOK && zOK && eff >= cal.TrendQualityExtreme.Efficiency && z >= cal.TrendQualityExtreme.ATRZScore {
			return strPtr("liquidation")
		}
		if effOK && eff >= cal.TrendQualityClean {
			return strPtr("clean")
		}
		return strPtr("grinding")
	default:
		return nil
	}
}

func volatilityState(feat features.Features, cal calibration.Calibration) VolatilityState {
	if feat.ATRZScore.Valid && feat.ATRZScore.Value >= cal.ATRExtremeZScore {
		return VolExtreme
	}
	if feat.ATRSlope.Valid && feat.ATRSlope.Value >= cal.ATRExpandingSlope &&
		feat.RVRatio.Valid && feat.RVRatio.Value >= cal.RVRatioExpanding {
		return VolExpanding
	}
	if feat.ATRSlope.Valid && feat.ATRSlope.Value <= cal.ATRCompressingSlope &&
		feat.RVRatio.Valid && feat.RVRatio.Value < 1.0 {
		return VolCompressing
	}
	return VolNormal
}

func participationState(feat features.Features, cal calibration.Calibration) ParticipationState {
	if !feat.VolumeVsExpected.Valid {
		return ParticipationNormal
	}
	switch {
	case feat.VolumeVsExpected.Value >= cal.ParticipationHeavy:
		return ParticipationHeavy
	case feat.VolumeVsExpected.Value <= cal.ParticipationThin:
		return ParticipationThin
	default:
		return ParticipationNormal
	}
}

func balanceState(primary PrimaryRegime) BalanceState {
	switch primary {
	case Trend:
		return BalanceImbalanced
	case Balanced:
		return BalanceBalanced
	default:
		return BalanceTransitioning
	}
}

func trendQuality(primary PrimaryRegime, feat features.Features, cal calibration.Calibration) TrendQuality {
	if primary == Balanced {
		return TrendNone
	}
	eff, effOK := absValid(feat.DirectionalEff)
	if !effOK {
		// Directional efficiency is unavailable but primary != Balanced, so
		// trend_quality must still come back non-none; fall back to weak.
		return TrendWeak
	}
	z, zOK := valid(feat.ATRZScore)
	if zOK && eff >= cal.TrendQualityExtreme.Efficiency && z >= cal.TrendQualityExtreme.ATRZScore {
		return TrendExtreme
	}
	if eff >= cal.TrendQualityClean {
		return TrendClean
	}
	return TrendWeak
}

func noiseLevel(feat features.Features) NoiseLevel {
	overlapLow := feat.BarOverlapRatio.Valid && feat.BarOverlapRatio.Value < 0.40
	overlapHigh := feat.BarOverlapRatio.Valid && feat.BarOverlapRatio.Value > 0.65
	atrSlopePositive := feat.ATRSlope.Valid && feat.ATRSlope.Value > 0
	rvDeviation := feat.RVRatio.Valid && math.Abs(feat.RVRatio.Value-1.0) > 0.5

	if overlapLow && atrSlopePositive {
		return NoiseLow
	}
	if overlapHigh || rvDeviation {
		return NoiseHigh
	}
	return NoiseMedium
}

func computeConfidence(
	balance, imbalance int,
	primary PrimaryRegime,
	feat features.Features,
	volState VolatilityState,
	partState ParticipationState,
) int {
	confidence := 50

	diff := imbalance - balance
	if diff < 0 {
		diff = -diff
	}
	if primary != Transition {
		excess := diff - 2
		if excess > 3 {
			excess = 3
		}
		if excess > 0 {
			confidence += excess * 10
		}
	}

	missing := 0
	for _, m := range topContributors(feat) {
		if !m.Valid {
			missing++
		}
	}
	if missing > 3 {
		missing = 3
	}
	confidence -= missing * 10

	if primary == Transition {
		confidence -= 15
	}
	if volState == VolNormal && partState == ParticipationNormal {
		confidence += 5
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return confidence
}

func valid(m features.Metric) (float64, bool) { return m.Value, m.Valid }

func absValid(m features.Metric) (float64, bool) {
	if !m.Valid {
		return 0, false
	}
	return math.Abs(m.Value), true
}
