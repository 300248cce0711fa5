package features

// Features is the full deterministic feature vector spec.md §4.3 describes.
// Every field may be Valid:false when its underlying window lacks enough
// history; the classifier treats an invalid Metric as non-contributing to
// its score rather than as an error.
type Features struct {
	VWAP               Metric
	VWAPSlope          Metric
	PriceVsVWAP        Metric
	ATR14_5m           Metric
	ATRSlope           Metric
	RealizedVolShort   Metric
	RealizedVolLong    Metric
	RVRatio            Metric
	BarOverlapRatio    Metric
	DirectionalEff     Metric
	AvgPullbackDepth   Metric
	SessionRange       Metric
	SessionRangeZScore Metric
	OpeningRangePos    Metric
	VolumeVsExpected   Metric
	VolumeAcceleration Metric
	RangePerVolume     Metric
	ATRZScore          Metric
}
