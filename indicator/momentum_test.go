package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slowtrader/types"
)

func TestRSIAllGainsReadsHundred(t *testing.T) {
	rsi := NewRSI(14, 70, 30)
	res := rsi.Calculate(closesOnly(rangeCloses(1, 1, 16)...))
	require.True(t, res.Defined())
	assert.Equal(t, 100.0, res.Value)
}

func TestRSIAllLossesReadsZero(t *testing.T) {
	rsi := NewRSI(14, 70, 30)
	res := rsi.Calculate(closesOnly(rangeCloses(100, -1, 16)...))
	require.True(t, res.Defined())
	assert.Equal(t, 0.0, res.Value)
}

func TestRSIBounds(t *testing.T) {
	rsi := NewRSI(14, 70, 30)
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%5) - float64(i%3)
	}
	vals := rsi.Series(closesOnly(closes...))
	for i := 14; i < len(vals); i++ {
		assert.GreaterOrEqual(t, vals[i], 0.0)
		assert.LessOrEqual(t, vals[i], 100.0)
	}
}

func TestRSIOversoldFiresBuy(t *testing.T) {
	rsi := NewRSI(14, 70, 30)
	res := rsi.Signal(closesOnly(rangeCloses(100, -1, 16)...))
	assert.Equal(t, types.SignalBuy, res.Signal)
	assert.Equal(t, 1.0, res.Strength)
}

func TestRSIOverboughtFiresSell(t *testing.T) {
	rsi := NewRSI(14, 70, 30)
	res := rsi.Signal(closesOnly(rangeCloses(1, 1, 16)...))
	assert.Equal(t, types.SignalSell, res.Signal)
	assert.Equal(t, 1.0, res.Strength)
}

func TestRSIInsufficientData(t *testing.T) {
	rsi := NewRSI(14, 70, 30)
	res := rsi.Calculate(closesOnly(rangeCloses(1, 1, 14)...))
	assert.False(t, res.Defined())
	assert.Equal(t, types.SignalHold, res.Signal)
}

func TestMACDFlatSeriesIsZero(t *testing.T) {
	macd := NewMACD(12, 26, 9)
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	res := macd.Calculate(closesOnly(closes...))
	require.True(t, res.Defined())
	assert.Equal(t, 0.0, res.Values["macd"])
	assert.Equal(t, 0.0, res.Values["signal"])
	assert.Equal(t, 0.0, res.Values["histogram"])
}

func TestMACDCrossoverFiresOnTurn(t *testing.T) {
	macd := NewMACD(12, 26, 9)
	closes := rangeCloses(100, -1, 30)
	closes = append(closes, rangeCloses(72, 2, 15)...)
	s := closesOnly(closes...)

	buys, sells := 0, 0
	for n := 36; n <= len(s); n++ {
		res := macd.Signal(s[:n])
		switch res.Signal {
		case types.SignalBuy:
			buys++
		case types.SignalSell:
			sells++
		}
	}
	assert.GreaterOrEqual(t, buys, 1, "rally should produce a bullish crossover")
	assert.Zero(t, sells)
}

func TestMACDInsufficientData(t *testing.T) {
	macd := NewMACD(12, 26, 9)
	res := macd.Calculate(closesOnly(rangeCloses(1, 1, 20)...))
	assert.False(t, res.Defined())
}

func TestStochasticRange(t *testing.T) {
	st := NewStochastic(14, 3, 80, 20)
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%7) - float64(i%4)
	}
	k, d := st.Series(candles(closes, 1))
	for i := 16; i < len(k); i++ {
		assert.GreaterOrEqual(t, k[i], 0.0)
		assert.LessOrEqual(t, k[i], 100.0)
		assert.GreaterOrEqual(t, d[i], 0.0)
		assert.LessOrEqual(t, d[i], 100.0)
	}
}

func TestStochasticInsufficientData(t *testing.T) {
	st := NewStochastic(14, 3, 80, 20)
	res := st.Calculate(candles(rangeCloses(1, 1, 10), 1))
	assert.False(t, res.Defined())
}
