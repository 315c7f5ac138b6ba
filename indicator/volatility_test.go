package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slowtrader/types"
)

func TestBollingerFlatSeriesCollapses(t *testing.T) {
	bb := NewBollingerBands(20, 2.0)
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	res := bb.Calculate(closesOnly(closes...))
	require.True(t, res.Defined())
	assert.Equal(t, 100.0, res.Values["upper"])
	assert.Equal(t, 100.0, res.Values["middle"])
	assert.Equal(t, 100.0, res.Values["lower"])
}

func TestBollingerBandsValues(t *testing.T) {
	bb := NewBollingerBands(20, 2.0)
	s := closesOnly(rangeCloses(1, 1, 20)...)
	upper, middle, lower := bb.Bands(s)

	sd := math.Sqrt(35) // sample stddev of 1..20
	assert.InDelta(t, 10.5, middle, 1e-9)
	assert.InDelta(t, 10.5+2*sd, upper, 1e-9)
	assert.InDelta(t, 10.5-2*sd, lower, 1e-9)
}

func TestBollingerSignalAtLowerBand(t *testing.T) {
	bb := NewBollingerBands(10, 2.0)
	// Stable range then a sharp drop through the lower band.
	closes := append(rangeCloses(100, 0, 9), 80)
	res := bb.Signal(closesOnly(closes...))
	assert.Equal(t, types.SignalBuy, res.Signal)
	assert.Less(t, res.Values["percent_b"], 0.0)
}

func TestBollingerSignalInsideBands(t *testing.T) {
	bb := NewBollingerBands(10, 2.0)
	closes := []float64{100, 101, 99, 100, 102, 98, 100, 101, 99, 100}
	res := bb.Signal(closesOnly(closes...))
	assert.Equal(t, types.SignalHold, res.Signal)
	assert.Greater(t, res.Values["percent_b"], 0.0)
	assert.Less(t, res.Values["percent_b"], 1.0)
}

func TestATRConstantRange(t *testing.T) {
	atr := NewATR(14)
	res := atr.Calculate(candles(rangeCloses(100, 0, 15), 1))
	require.True(t, res.Defined())
	assert.Equal(t, 2.0, res.Value)
}

func TestATRInsufficientData(t *testing.T) {
	atr := NewATR(14)
	res := atr.Calculate(candles(rangeCloses(100, 0, 14), 1))
	assert.False(t, res.Defined())
}

func TestHistVolatilityFlatIsZero(t *testing.T) {
	hv := NewHistVolatility(20)
	res := hv.Calculate(closesOnly(rangeCloses(100, 0, 21)...))
	require.True(t, res.Defined())
	assert.Equal(t, 0.0, res.Value)
}

func TestHistVolatilityPositiveWhenMoving(t *testing.T) {
	hv := NewHistVolatility(20)
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + 5*float64(i%2)
	}
	res := hv.Calculate(closesOnly(closes...))
	require.True(t, res.Defined())
	assert.Greater(t, res.Value, 0.0)
}
