package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slowtrader/types"
)

func TestADXFlatSeriesHolds(t *testing.T) {
	adx := NewADX(14)
	res := adx.Signal(candles(rangeCloses(100, 0, 30), 1))
	require.True(t, res.Defined())
	assert.Equal(t, types.SignalHold, res.Signal)
	assert.Less(t, res.Values["adx"], adxStrongTrend)
}

func TestADXStrongTrendDirectional(t *testing.T) {
	adx := NewADX(14)
	// Relentless one-way move saturates the directional index.
	res := adx.Calculate(candles(rangeCloses(100, 2, 40), 1))
	require.True(t, res.Defined())
	assert.Greater(t, res.Values["adx"], adxStrongTrend)
	assert.Greater(t, res.Values["plus_di"], res.Values["minus_di"])
}

func TestADXInsufficientData(t *testing.T) {
	adx := NewADX(14)
	res := adx.Calculate(candles(rangeCloses(100, 1, 20), 1))
	assert.False(t, res.Defined())
}

func TestTrendGaugeStrongUptrend(t *testing.T) {
	g := NewTrendGauge(10, 20, 50)
	s := closesOnly(rangeCloses(1, 1, 60)...)
	assert.Equal(t, TrendStrongUp, g.Trend(s))

	res := g.Signal(s)
	assert.Equal(t, types.SignalBuy, res.Signal)
	assert.Greater(t, res.Strength, 0.0)
}

func TestTrendGaugeStrongDowntrend(t *testing.T) {
	g := NewTrendGauge(10, 20, 50)
	s := closesOnly(rangeCloses(120, -1, 60)...)
	assert.Equal(t, TrendStrongDown, g.Trend(s))
	assert.Equal(t, types.SignalSell, g.Signal(s).Signal)
}

func TestTrendGaugeShortSeriesNeutral(t *testing.T) {
	g := NewTrendGauge(10, 20, 50)
	s := closesOnly(rangeCloses(1, 1, 30)...)
	assert.Equal(t, TrendNeutral, g.Trend(s))
}

func TestSuperTrendDirectionTracksPrice(t *testing.T) {
	st := NewSuperTrend(3, 1.0)
	up := candles(rangeCloses(100, 5, 15), 1)
	res := st.Calculate(up)
	require.True(t, res.Defined())
	assert.Equal(t, 1.0, res.Values["direction"])

	down := candles(rangeCloses(200, -5, 15), 1)
	res = st.Calculate(down)
	assert.Equal(t, -1.0, res.Values["direction"])
}

func TestSuperTrendFlipFiresBuy(t *testing.T) {
	st := NewSuperTrend(3, 1.0)
	closes := rangeCloses(100, -2, 10)
	closes = append(closes, rangeCloses(84, 6, 8)...)
	s := candles(closes, 1)

	buys := 0
	for n := st.Period + 2; n <= len(s); n++ {
		if st.Signal(s[:n]).Signal == types.SignalBuy {
			buys++
		}
	}
	assert.GreaterOrEqual(t, buys, 1)
}
