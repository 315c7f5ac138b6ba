package indicator

import (
	"fmt"
	"math"

	"slowtrader/types"
)

// SMA is the simple moving average over closes.
type SMA struct {
	Period int
}

func NewSMA(period int) SMA {
	if period <= 0 {
		period = 20
	}
	return SMA{Period: period}
}

func (m SMA) Name() string { return fmt.Sprintf("SMA_%d", m.Period) }

// Series returns the full rolling-mean series, NaN until the window
// fills.
func (m SMA) Series(s types.Series) []float64 {
	closes := s.Closes()
	out := make([]float64, len(closes))
	sum := 0.0
	for i, v := range closes {
		sum += v
		if i >= m.Period {
			sum -= closes[i-m.Period]
		}
		if i+1 >= m.Period {
			out[i] = sum / float64(m.Period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

func (m SMA) Calculate(s types.Series) Result {
	if len(s) < m.Period {
		return undefined(m.Name())
	}
	vals := m.Series(s)
	return Result{Name: m.Name(), Value: vals[len(vals)-1], Signal: types.SignalHold}
}

// Signal compares the last price with the average: above is bullish,
// below is bearish, strength scaled so a 10% deviation saturates at 1.
func (m SMA) Signal(s types.Series) Result {
	if len(s) < m.Period {
		return undefined(m.Name())
	}
	avg := m.Series(s)[len(s)-1]
	price := s.LastClose()
	return maSignal(m.Name(), price, avg)
}

// EMA is the exponentially weighted moving average over closes.
type EMA struct {
	Period int
}

func NewEMA(period int) EMA {
	if period <= 0 {
		period = 20
	}
	return EMA{Period: period}
}

func (m EMA) Name() string { return fmt.Sprintf("EMA_%d", m.Period) }

// Series returns the full EMA series seeded at the first close.
func (m EMA) Series(s types.Series) []float64 {
	return emaSeries(s.Closes(), m.Period)
}

func (m EMA) Calculate(s types.Series) Result {
	if len(s) < m.Period {
		return undefined(m.Name())
	}
	vals := m.Series(s)
	return Result{Name: m.Name(), Value: vals[len(vals)-1], Signal: types.SignalHold}
}

func (m EMA) Signal(s types.Series) Result {
	if len(s) < m.Period {
		return undefined(m.Name())
	}
	avg := m.Series(s)[len(s)-1]
	price := s.LastClose()
	return maSignal(m.Name(), price, avg)
}

func maSignal(name string, price, avg float64) Result {
	res := Result{Name: name, Value: avg, Signal: types.SignalHold}
	if avg == 0 {
		return res
	}
	switch {
	case price > avg:
		res.Signal = types.SignalBuy
		res.Strength = clamp01(math.Min((price-avg)/avg, 0.1) * 10)
	case price < avg:
		res.Signal = types.SignalSell
		res.Strength = clamp01(math.Min((avg-price)/avg, 0.1) * 10)
	}
	return res
}

// MAType selects the moving-average flavor used by composite detectors.
type MAType string

const (
	MATypeSMA MAType = "sma"
	MATypeEMA MAType = "ema"
)

// movingAverage is the common surface of SMA and EMA that composite
// indicators and strategies need.
type movingAverage interface {
	Series(types.Series) []float64
}

func newMovingAverage(t MAType, period int) movingAverage {
	if t == MATypeSMA {
		return NewSMA(period)
	}
	return NewEMA(period)
}

// Crossover detects a fast moving average crossing a slow one.
type Crossover struct {
	FastPeriod int
	SlowPeriod int
	Type       MAType

	fast movingAverage
	slow movingAverage
}

func NewCrossover(fast, slow int, maType MAType) Crossover {
	if fast <= 0 {
		fast = 10
	}
	if slow <= 0 {
		slow = 20
	}
	if maType == "" {
		maType = MATypeEMA
	}
	return Crossover{
		FastPeriod: fast,
		SlowPeriod: slow,
		Type:       maType,
		fast:       newMovingAverage(maType, fast),
		slow:       newMovingAverage(maType, slow),
	}
}

func (c Crossover) Name() string {
	return fmt.Sprintf("MA_Crossover_%d_%d", c.FastPeriod, c.SlowPeriod)
}

func (c Crossover) MinPeriods() int {
	if c.FastPeriod > c.SlowPeriod {
		return c.FastPeriod + 1
	}
	return c.SlowPeriod + 1
}

// Detect fires buy on a golden cross (fast crossing above slow) and sell
// on a death cross, with strength proportional to the gap relative to
// the slow average.
func (c Crossover) Detect(s types.Series) Result {
	if len(s) < c.MinPeriods() {
		return undefinedValues(c.Name(), "fast", "slow")
	}
	fast := c.fast.Series(s)
	slow := c.slow.Series(s)
	n := len(s)
	fastCurr, fastPrev := fast[n-1], fast[n-2]
	slowCurr, slowPrev := slow[n-1], slow[n-2]

	res := Result{
		Name:   c.Name(),
		Value:  math.NaN(),
		Values: map[string]float64{"fast": fastCurr, "slow": slowCurr},
		Signal: types.SignalHold,
	}
	if math.IsNaN(fastPrev) || math.IsNaN(slowPrev) || slowCurr == 0 {
		return res
	}
	switch {
	case fastPrev <= slowPrev && fastCurr > slowCurr:
		res.Signal = types.SignalBuy
		res.Strength = math.Min(math.Abs(fastCurr-slowCurr)/slowCurr*100, 1.0)
	case fastPrev >= slowPrev && fastCurr < slowCurr:
		res.Signal = types.SignalSell
		res.Strength = math.Min(math.Abs(slowCurr-fastCurr)/slowCurr*100, 1.0)
	}
	return res
}
