package calibration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/regimewatch/internal/candle"
)

// fileConfig mirrors the Calibration fields a deployment is expected to
// tune; it is intentionally a subset (the volume curve, full-session volume,
// trend_quality_extreme pair and instrument root are not overridable) — see internal/config/regime/weights.go in the
// teacher for the same load-then-validate shape.
type fileConfig struct {
	Instruments map[string]instrumentOverride `yaml:"instruments"`
}

type instrumentOverride struct {
	BalanceOverlapThreshold   *float64 `yaml:"balance_overlap_threshold"`
	ImbalanceEfficiencyThresh *float64 `yaml:"imbalance_efficiency_threshold"`
	VWAPSlopeStrong           *float64 `yaml:"vwap_slope_strong"`
	ATRExpandingSlope         *float64 `yaml:"atr_expanding_slope"`
	ATRCompressingSlope       *float64 `yaml:"atr_compressing_slope"`
	ATRExtremeZScore          *float64 `yaml:"atr_extreme_zscore"`
	RVRatioExpanding          *float64 `yaml:"rv_ratio_expanding"`
	ParticipationHeavy        *float64 `yaml:"participation_heavy"`
	ParticipationThin         *float64 `yaml:"participation_thin"`
	TrendQualityClean         *float64 `yaml:"trend_quality_clean"`
}

// LoadFromFile reads a YAML override file and applies it on top of the
// registry's compiled-in defaults. Unknown instrument keys are rejected;
// fields omitted from the file keep their compiled-in value.
func (r *Registry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("calibration: failed to read %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("calibration: failed to parse YAML %s: %w", path, err)
	}

	for key, override := range cfg.Instruments {
		instrument := candle.Instrument(key)
		base, ok := r.byInstrument[instrument]
		if !ok {
			return fmt.Errorf("calibration: unknown instrument in override file: %q", key)
		}
		applied := applyOverride(base, override)
		if err := Validate(applied); err != nil {
			return fmt.Errorf("calibration: invalid override for %s: %w", key, err)
		}
		r.byInstrument[instrument] = applied
	}
	return nil
}

func applyOverride(base Calibration, o instrumentOverride) Calibration {
	if o.BalanceOverlapThreshold != nil {
		base.BalanceOverlapThreshold = *o.BalanceOverlapThreshold
	}
	if o.ImbalanceEfficiencyThresh != nil {
		base.ImbalanceEfficiencyThresh = *o.ImbalanceEfficiencyThresh
	}
	if o.VWAPSlopeStrong != nil {
		base.VWAPSlopeStrong = *o.VWAPSlopeStrong
	}
	if o.ATRExpandingSlope != nil {
		base.ATRExpandingSlope = *o.ATRExpandingSlope
	}
	if o.ATRCompressingSlope != nil {
		base.ATRCompressingSlope = *o.ATRCompressingSlope
	}
	if o.ATRExtremeZScore != nil {
		base.ATRExtremeZScore = *o.ATRExtremeZScore
	}
	if o.RVRatioExpanding != nil {
		base.RVRatioExpanding = *o.RVRatioExpanding
	}
	if o.ParticipationHeavy != nil {
		base.ParticipationHeavy = *o.ParticipationHeavy
	}
	if o.ParticipationThin != nil {
		base.ParticipationThin = *o.ParticipationThin
	}
	if o.TrendQualityClean != nil {
		base.TrendQualityClean = *o.TrendQualityClean
	}
	return base
}

// Validate sanity-checks a Calibration's threshold relationships.
func Validate(c Calibration) error {
	if c.ParticipationThin >= c.ParticipationHeavy {
		return fmt.Errorf("participation_thin (%.3f) must be below participation_heavy (%.3f)",
			c.ParticipationThin, c.ParticipationHeavy)
	}
	if c.ATRCompressingSlope >= c.ATRExpandingSlope {
		return fmt.Errorf("atr_compressing_slope (%.3f) must be below atr_expanding_slope (%.3f)",
			c.ATRCompressingSlope, c.ATRExpandingSlope)
	}
	if c.BalanceOverlapThreshold <= 0 || c.BalanceOverlapThreshold > 1 {
		return fmt.Errorf("balance_overlap_threshold %.3f outside (0,1]", c.BalanceOverlapThreshold)
	}
	if c.ImbalanceEfficiencyThresh <= 0 || c.ImbalanceEfficiencyThresh > 1 {
		return fmt.Errorf("imbalance_efficiency_threshold %.3f outside (0,1]", c.ImbalanceEfficiencyThresh)
	}
	return nil
}
