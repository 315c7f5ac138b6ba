package indicator

import (
	"fmt"
	"math"

	"slowtrader/types"
)

// BollingerBands is a rolling mean with bands k standard deviations out.
type BollingerBands struct {
	Period int
	StdDev float64
}

func NewBollingerBands(period int, stdDev float64) BollingerBands {
	if period <= 0 {
		period = 20
	}
	if stdDev == 0 {
		stdDev = 2.0
	}
	return BollingerBands{Period: period, StdDev: stdDev}
}

func (b BollingerBands) Name() string {
	return fmt.Sprintf("BB_%d_%g", b.Period, b.StdDev)
}

// Bands returns the upper, middle and lower band at the last bar.
func (b BollingerBands) Bands(s types.Series) (upper, middle, lower float64) {
	closes := s.Closes()
	i := len(closes) - 1
	middle = smaAt(closes, b.Period, i)
	sd := stddevAt(closes, b.Period, i)
	upper = middle + sd*b.StdDev
	lower = middle - sd*b.StdDev
	return upper, middle, lower
}

func (b BollingerBands) Calculate(s types.Series) Result {
	if len(s) < b.Period {
		return undefinedValues(b.Name(), "upper", "middle", "lower")
	}
	upper, middle, lower := b.Bands(s)
	return Result{
		Name:   b.Name(),
		Value:  math.NaN(),
		Values: map[string]float64{"upper": upper, "middle": middle, "lower": lower},
		Signal: types.SignalHold,
	}
}

// Signal fires buy at or through the lower band and sell at or through
// the upper band. The result also carries %B: the price position within
// the band (0 at lower, 1 at upper).
func (b BollingerBands) Signal(s types.Series) Result {
	if len(s) < b.Period {
		return undefinedValues(b.Name(), "upper", "middle", "lower", "percent_b")
	}
	upper, middle, lower := b.Bands(s)
	price := s.LastClose()

	percentB := 0.5
	if bw := upper - lower; bw > 0 {
		percentB = (price - lower) / bw
	}
	res := Result{
		Name:  b.Name(),
		Value: math.NaN(),
		Values: map[string]float64{
			"upper":     upper,
			"middle":    middle,
			"lower":     lower,
			"percent_b": percentB,
		},
		Signal: types.SignalHold,
	}
	switch {
	case price <= lower:
		res.Signal = types.SignalBuy
		res.Strength = math.Min((lower-price)/lower+0.5, 1.0)
	case price >= upper:
		res.Signal = types.SignalSell
		res.Strength = math.Min((price-upper)/upper+0.5, 1.0)
	}
	return res
}

// ATR is Wilder's average true range. It carries no direction; strength
// encodes normalized volatility for stop sizing elsewhere.
type ATR struct {
	Period int
}

func NewATR(period int) ATR {
	if period <= 0 {
		period = 14
	}
	return ATR{Period: period}
}

func (a ATR) Name() string { return fmt.Sprintf("ATR_%d", a.Period) }

// Series returns the smoothed true range per bar.
func (a ATR) Series(s types.Series) []float64 {
	return wilderSeries(trueRanges(s), a.Period)
}

func (a ATR) Calculate(s types.Series) Result {
	if len(s) < a.Period+1 {
		return undefined(a.Name())
	}
	vals := a.Series(s)
	return Result{Name: a.Name(), Value: vals[len(vals)-1], Signal: types.SignalHold}
}

func (a ATR) Signal(s types.Series) Result {
	if len(s) < a.Period+1 {
		return undefined(a.Name())
	}
	atr := a.Series(s)[len(s)-1]
	res := Result{Name: a.Name(), Value: atr, Signal: types.SignalHold}
	if price := s.LastClose(); price > 0 {
		atrPct := atr / price * 100
		res.Strength = math.Min(atrPct/5, 1.0)
	}
	return res
}

// HistVolatility is annualized close-to-close volatility in percent.
type HistVolatility struct {
	Period int
}

func NewHistVolatility(period int) HistVolatility {
	if period <= 0 {
		period = 20
	}
	return HistVolatility{Period: period}
}

func (h HistVolatility) Name() string { return fmt.Sprintf("Volatility_%d", h.Period) }

func (h HistVolatility) Calculate(s types.Series) Result {
	if len(s) < h.Period+1 {
		return undefined(h.Name())
	}
	closes := s.Closes()
	n := len(closes)
	returns := make([]float64, n)
	returns[0] = math.NaN()
	for i := 1; i < n; i++ {
		returns[i] = math.Log(closes[i] / closes[i-1])
	}
	sd := stddevAt(returns[1:], h.Period, n-2)
	vol := sd * math.Sqrt(252) * 100
	return Result{Name: h.Name(), Value: vol, Signal: types.SignalHold}
}

// Signal reports the volatility level; it is informational, never
// directional.
func (h HistVolatility) Signal(s types.Series) Result {
	res := h.Calculate(s)
	if res.Defined() {
		res.Strength = math.Min(res.Value/50, 1.0)
	}
	return res
}
