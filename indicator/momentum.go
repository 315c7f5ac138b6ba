package indicator

import (
	"fmt"
	"math"

	"slowtrader/types"
)

// RSI is Wilder's relative strength index mapped to 0-100.
type RSI struct {
	Period     int
	Overbought float64
	Oversold   float64
}

func NewRSI(period int, overbought, oversold float64) RSI {
	if period <= 0 {
		period = 14
	}
	if overbought == 0 {
		overbought = 70
	}
	if oversold == 0 {
		oversold = 30
	}
	return RSI{Period: period, Overbought: overbought, Oversold: oversold}
}

func (r RSI) Name() string { return fmt.Sprintf("RSI_%d", r.Period) }

// Series computes the RSI per bar: the first average gain/loss is the
// simple mean over the seed window, every later bar uses Wilder's
// smoothing. NaN until the seed window fills.
func (r RSI) Series(s types.Series) []float64 {
	closes := s.Closes()
	n := len(closes)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if n < r.Period+1 {
		return out
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < r.Period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(r.Period)
	avgLoss /= float64(r.Period)

	p := float64(r.Period)
	for i := r.Period; i < n; i++ {
		avgGain = (avgGain*(p-1) + gains[i]) / p
		avgLoss = (avgLoss*(p-1) + losses[i]) / p
		rs := avgGain / avgLoss // +Inf when losses vanish => RSI 100
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

func (r RSI) Calculate(s types.Series) Result {
	if len(s) < r.Period+1 {
		return undefined(r.Name())
	}
	vals := r.Series(s)
	return Result{Name: r.Name(), Value: vals[len(vals)-1], Signal: types.SignalHold}
}

// Signal fires buy at or below the oversold threshold and sell at or
// above the overbought threshold, strength proportional to how far
// beyond the threshold the reading is.
func (r RSI) Signal(s types.Series) Result {
	if len(s) < r.Period+1 {
		return undefined(r.Name())
	}
	rsi := r.Series(s)[len(s)-1]
	res := Result{Name: r.Name(), Value: rsi, Signal: types.SignalHold}
	switch {
	case rsi <= r.Oversold:
		res.Signal = types.SignalBuy
		res.Strength = clamp01((r.Oversold - rsi) / r.Oversold)
	case rsi >= r.Overbought:
		res.Signal = types.SignalSell
		res.Strength = clamp01((rsi - r.Overbought) / (100 - r.Overbought))
	}
	return res
}

// MACD is the moving average convergence divergence oscillator.
type MACD struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

func NewMACD(fast, slow, signal int) MACD {
	if fast <= 0 {
		fast = 12
	}
	if slow <= 0 {
		slow = 26
	}
	if signal <= 0 {
		signal = 9
	}
	return MACD{FastPeriod: fast, SlowPeriod: slow, SignalPeriod: signal}
}

func (m MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.FastPeriod, m.SlowPeriod, m.SignalPeriod)
}

// Series returns the macd line, signal line, and histogram per bar.
func (m MACD) Series(s types.Series) (macd, signal, histogram []float64) {
	closes := s.Closes()
	fast := emaSeries(closes, m.FastPeriod)
	slow := emaSeries(closes, m.SlowPeriod)
	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = fast[i] - slow[i]
	}
	signal = emaSeries(macd, m.SignalPeriod)
	histogram = make([]float64, len(closes))
	for i := range closes {
		histogram[i] = macd[i] - signal[i]
	}
	return macd, signal, histogram
}

func (m MACD) Calculate(s types.Series) Result {
	if len(s) < m.SlowPeriod+m.SignalPeriod {
		return undefinedValues(m.Name(), "macd", "signal", "histogram")
	}
	macd, signal, hist := m.Series(s)
	n := len(s)
	return Result{
		Name:  m.Name(),
		Value: math.NaN(),
		Values: map[string]float64{
			"macd":      macd[n-1],
			"signal":    signal[n-1],
			"histogram": hist[n-1],
		},
		Signal: types.SignalHold,
	}
}

// Signal fires on the macd line crossing its signal line, with strength
// proportional to the relative gap (0.5 when the signal line sits at
// exactly zero).
func (m MACD) Signal(s types.Series) Result {
	if len(s) < m.SlowPeriod+m.SignalPeriod+1 {
		return undefinedValues(m.Name(), "macd", "signal", "histogram")
	}
	macd, signal, hist := m.Series(s)
	n := len(s)
	macdCurr, macdPrev := macd[n-1], macd[n-2]
	sigCurr, sigPrev := signal[n-1], signal[n-2]

	res := Result{
		Name:  m.Name(),
		Value: math.NaN(),
		Values: map[string]float64{
			"macd":      macdCurr,
			"signal":    sigCurr,
			"histogram": hist[n-1],
		},
		Signal: types.SignalHold,
	}
	switch {
	case macdPrev <= sigPrev && macdCurr > sigCurr:
		res.Signal = types.SignalBuy
		res.Strength = crossoverStrength(macdCurr, sigCurr)
	case macdPrev >= sigPrev && macdCurr < sigCurr:
		res.Signal = types.SignalSell
		res.Strength = crossoverStrength(macdCurr, sigCurr)
	}
	return res
}

func crossoverStrength(line, signal float64) float64 {
	if signal == 0 {
		return 0.5
	}
	return math.Min(math.Abs(line-signal)/math.Abs(signal), 1.0)
}

// Stochastic is the %K/%D stochastic oscillator.
type Stochastic struct {
	KPeriod    int
	DPeriod    int
	Overbought float64
	Oversold   float64
}

func NewStochastic(kPeriod, dPeriod int, overbought, oversold float64) Stochastic {
	if kPeriod <= 0 {
		kPeriod = 14
	}
	if dPeriod <= 0 {
		dPeriod = 3
	}
	if overbought == 0 {
		overbought = 80
	}
	if oversold == 0 {
		oversold = 20
	}
	return Stochastic{KPeriod: kPeriod, DPeriod: dPeriod, Overbought: overbought, Oversold: oversold}
}

func (st Stochastic) Name() string {
	return fmt.Sprintf("Stochastic_%d_%d", st.KPeriod, st.DPeriod)
}

// Series returns %K and its %D smoothing per bar.
func (st Stochastic) Series(s types.Series) (k, d []float64) {
	n := len(s)
	k = make([]float64, n)
	for i := range k {
		k[i] = math.NaN()
	}
	for i := st.KPeriod - 1; i < n; i++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for j := i - st.KPeriod + 1; j <= i; j++ {
			lo = math.Min(lo, s[j].Low)
			hi = math.Max(hi, s[j].High)
		}
		if hi == lo {
			k[i] = math.NaN()
			continue
		}
		k[i] = 100 * (s[i].Close - lo) / (hi - lo)
	}
	d = make([]float64, n)
	for i := range d {
		d[i] = smaAt(k, st.DPeriod, i)
	}
	return k, d
}

func (st Stochastic) Calculate(s types.Series) Result {
	if len(s) < st.KPeriod+st.DPeriod {
		return undefinedValues(st.Name(), "k", "d")
	}
	k, d := st.Series(s)
	n := len(s)
	return Result{
		Name:   st.Name(),
		Value:  math.NaN(),
		Values: map[string]float64{"k": k[n-1], "d": d[n-1]},
		Signal: types.SignalHold,
	}
}

// Signal fires only on a %K/%D crossover inside an extreme zone.
func (st Stochastic) Signal(s types.Series) Result {
	if len(s) < st.KPeriod+st.DPeriod+1 {
		return undefinedValues(st.Name(), "k", "d")
	}
	k, d := st.Series(s)
	n := len(s)
	kCurr, kPrev := k[n-1], k[n-2]
	dCurr, dPrev := d[n-1], d[n-2]

	res := Result{
		Name:   st.Name(),
		Value:  math.NaN(),
		Values: map[string]float64{"k": kCurr, "d": dCurr},
		Signal: types.SignalHold,
	}
	switch {
	case kPrev <= dPrev && kCurr > dCurr && kCurr < st.Oversold:
		res.Signal = types.SignalBuy
		res.Strength = clamp01((st.Oversold - kCurr) / st.Oversold)
	case kPrev >= dPrev && kCurr < dCurr && kCurr > st.Overbought:
		res.Signal = types.SignalSell
		res.Strength = clamp01((kCurr - st.Overbought) / (100 - st.Overbought))
	}
	return res
}
