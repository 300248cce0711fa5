package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/regimewatch/internal/candle"
)

func TestFor_KnownInstruments(t *testing.T) {
	es, err := For(candle.ES)
	require.NoError(t, err)
	assert.Equal(t, candle.ES, es.Instrument)

	nq, err := For(candle.NQ)
	require.NoError(t, err)
	assert.Equal(t, candle.NQ, nq.Instrument)

	assert.NotEqual(t, es.VWAPSlopeStrong, nq.VWAPSlopeStrong)
}

func TestFor_UnknownInstrument(t *testing.T) {
	_, err := For(candle.Instrument("CL"))
	require.Error(t, err)
	var invalid *candle.InvalidInstrumentError
	require.ErrorAs(t, err, &invalid)
}

func TestExpectedVolumeAt_Interpolates(t *testing.T) {
	cal := ES
	// Midpoint of the 0->30 minute segment (0.0 -> 0.25 fraction).
	v := cal.ExpectedVolumeAt(15)
	expected := 0.125 * cal.FullSessionVolume
	assert.InDelta(t, expected, v, 1e-6)
}

func TestExpectedVolumeAt_ClampsBeforeFirstPoint(t *testing.T) {
	cal := ES
	v := cal.ExpectedVolumeAt(-100)
	assert.InDelta(t, 0, v, 1e-9)
}

func TestExpectedVolumeAt_ClampsAfterLastPoint(t *testing.T) {
	cal := ES
	v := cal.ExpectedVolumeAt(10000)
	assert.InDelta(t, cal.FullSessionVolume, v, 1e-6)
}

func TestRegistry_GetSetAndOverride(t *testing.T) {
	reg := NewRegistry()

	es, err := reg.Get(candle.ES)
	require.NoError(t, err)
	assert.Equal(t, ES.BalanceOverlapThreshold, es.BalanceOverlapThreshold)

	modified := es
	modified.BalanceOverlapThreshold = 0.99
	reg.Set(candle.ES, modified)

	got, err := reg.Get(candle.ES)
	require.NoError(t, err)
	assert.Equal(t, 0.99, got.BalanceOverlapThreshold)
}

func TestRegistry_Get_UnknownInstrument(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get(candle.Instrument("CL"))
	require.Error(t, err)
}
