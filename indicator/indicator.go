// Package indicator implements the technical indicator library. Every
// indicator is a small struct whose Calculate and Signal methods are pure
// functions over a candle series; no state survives between calls.
//
// Insufficient history is never an error: indicators return an undefined
// Result (NaN value, Hold signal) and callers fall back to Hold uniformly.
package indicator

import (
	"math"

	"slowtrader/types"
)

// Result is the output of one indicator evaluation. Scalar indicators
// populate Value and leave Values nil; multi-valued indicators (MACD,
// Bollinger, ADX...) populate Values and leave Value NaN.
type Result struct {
	Name     string
	Value    float64
	Values   map[string]float64
	Signal   types.Signal
	Strength float64 // 0..1
}

// Defined reports whether the indicator had enough history to produce a
// value.
func (r Result) Defined() bool {
	if r.Values != nil {
		for _, v := range r.Values {
			if math.IsNaN(v) {
				return false
			}
		}
		return true
	}
	return !math.IsNaN(r.Value)
}

func undefined(name string) Result {
	return Result{Name: name, Value: math.NaN(), Signal: types.SignalHold}
}

func undefinedValues(name string, keys ...string) Result {
	vals := make(map[string]float64, len(keys))
	for _, k := range keys {
		vals[k] = math.NaN()
	}
	return Result{Name: name, Value: math.NaN(), Values: vals, Signal: types.SignalHold}
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

// emaSeries computes the exponential moving average over vals with the
// standard span smoothing (alpha = 2/(period+1)), seeded at the first
// sample.
func emaSeries(vals []float64, period int) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = alpha*vals[i] + (1-alpha)*out[i-1]
	}
	return out
}

// smaAt returns the simple mean of the period samples ending at (and
// including) index i, or NaN when the window is incomplete.
func smaAt(vals []float64, period, i int) float64 {
	if i+1 < period {
		return math.NaN()
	}
	sum := 0.0
	for j := i - period + 1; j <= i; j++ {
		sum += vals[j]
	}
	return sum / float64(period)
}

// stddevAt returns the sample standard deviation of the period samples
// ending at index i (matching a rolling std with n-1 normalization).
func stddevAt(vals []float64, period, i int) float64 {
	if i+1 < period || period < 2 {
		return math.NaN()
	}
	mean := smaAt(vals, period, i)
	sum := 0.0
	for j := i - period + 1; j <= i; j++ {
		d := vals[j] - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(period-1))
}

// trueRanges computes the true range per bar. The first bar has no prior
// close, so its range is simply high-low.
func trueRanges(s types.Series) []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		tr := c.High - c.Low
		if i > 0 {
			prev := s[i-1].Close
			tr = math.Max(tr, math.Abs(c.High-prev))
			tr = math.Max(tr, math.Abs(c.Low-prev))
		}
		out[i] = tr
	}
	return out
}

// wilderSeries applies Wilder smoothing (alpha = 1/period) seeded at the
// first sample.
func wilderSeries(vals []float64, period int) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	alpha := 1.0 / float64(period)
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = out[i-1] + alpha*(vals[i]-out[i-1])
	}
	return out
}
