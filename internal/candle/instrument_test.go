package candle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrument_Validate(t *testing.T) {
	require.NoError(t, ES.Validate())
	require.NoError(t, NQ.Validate())

	err := Instrument("CL").Validate()
	require.Error(t, err)
	var invalid *InvalidInstrumentError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "CL", invalid.Root)
}

func TestSymbol_String(t *testing.T) {
	s := Symbol("/ESH25")
	assert.Equal(t, "/ESH25", s.String())
}
