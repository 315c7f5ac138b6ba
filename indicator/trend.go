package indicator

import (
	"fmt"
	"math"

	"slowtrader/types"
)

// adxStrongTrend is the ADX floor below which DI crossovers are ignored.
const adxStrongTrend = 25.0

// ADX is the average directional index with its +DI/-DI components.
type ADX struct {
	Period int
}

func NewADX(period int) ADX {
	if period <= 0 {
		period = 14
	}
	return ADX{Period: period}
}

func (a ADX) Name() string { return fmt.Sprintf("ADX_%d", a.Period) }

func (a ADX) MinPeriods() int { return a.Period * 2 }

// Series returns the adx, +DI and -DI series, all Wilder-smoothed.
func (a ADX) Series(s types.Series) (adx, plusDI, minusDI []float64) {
	n := len(s)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := s[i].High - s[i-1].High
		down := s[i-1].Low - s[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	atr := wilderSeries(trueRanges(s), a.Period)
	plusSmooth := wilderSeries(plusDM, a.Period)
	minusSmooth := wilderSeries(minusDM, a.Period)

	plusDI = make([]float64, n)
	minusDI = make([]float64, n)
	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if atr[i] != 0 {
			plusDI[i] = 100 * plusSmooth[i] / atr[i]
			minusDI[i] = 100 * minusSmooth[i] / atr[i]
		}
		if sum := plusDI[i] + minusDI[i]; sum != 0 {
			dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
		}
	}
	adx = wilderSeries(dx, a.Period)
	return adx, plusDI, minusDI
}

func (a ADX) Calculate(s types.Series) Result {
	if len(s) < a.MinPeriods() {
		return undefinedValues(a.Name(), "adx", "plus_di", "minus_di")
	}
	adx, plusDI, minusDI := a.Series(s)
	n := len(s)
	return Result{
		Name:  a.Name(),
		Value: math.NaN(),
		Values: map[string]float64{
			"adx":      adx[n-1],
			"plus_di":  plusDI[n-1],
			"minus_di": minusDI[n-1],
		},
		Signal: types.SignalHold,
	}
}

// Signal fires only when the trend is strong (ADX >= 25) and the DI
// lines cross; strength grows with ADX, saturating at 50.
func (a ADX) Signal(s types.Series) Result {
	if len(s) < a.MinPeriods()+1 {
		return undefinedValues(a.Name(), "adx", "plus_di", "minus_di")
	}
	adx, plusDI, minusDI := a.Series(s)
	n := len(s)
	adxCurr := adx[n-1]
	pCurr, pPrev := plusDI[n-1], plusDI[n-2]
	mCurr, mPrev := minusDI[n-1], minusDI[n-2]

	res := Result{
		Name:  a.Name(),
		Value: math.NaN(),
		Values: map[string]float64{
			"adx":      adxCurr,
			"plus_di":  pCurr,
			"minus_di": mCurr,
		},
		Signal: types.SignalHold,
	}
	if adxCurr < adxStrongTrend {
		return res
	}
	switch {
	case pPrev <= mPrev && pCurr > mCurr:
		res.Signal = types.SignalBuy
		res.Strength = math.Min(adxCurr/50, 1.0)
	case mPrev <= pPrev && mCurr > pCurr:
		res.Signal = types.SignalSell
		res.Strength = math.Min(adxCurr/50, 1.0)
	}
	return res
}

// Trend labels produced by TrendGauge.
const (
	TrendStrongUp   = "strong_uptrend"
	TrendUp         = "uptrend"
	TrendNeutral    = "neutral"
	TrendDown       = "downtrend"
	TrendStrongDown = "strong_downtrend"
)

// TrendGauge classifies the trend from the alignment of three EMAs.
type TrendGauge struct {
	ShortPeriod  int
	MediumPeriod int
	LongPeriod   int
}

func NewTrendGauge(short, medium, long int) TrendGauge {
	if short <= 0 {
		short = 10
	}
	if medium <= 0 {
		medium = 20
	}
	if long <= 0 {
		long = 50
	}
	return TrendGauge{ShortPeriod: short, MediumPeriod: medium, LongPeriod: long}
}

func (t TrendGauge) Name() string { return "TrendGauge" }

// Trend returns the label for the current EMA alignment.
func (t TrendGauge) Trend(s types.Series) string {
	if len(s) < t.LongPeriod {
		return TrendNeutral
	}
	price, short, medium, long := t.levels(s)
	switch {
	case price > short && short > medium && medium > long:
		return TrendStrongUp
	case price > medium && short > long:
		return TrendUp
	case price < short && short < medium && medium < long:
		return TrendStrongDown
	case price < medium && short < long:
		return TrendDown
	}
	return TrendNeutral
}

func (t TrendGauge) levels(s types.Series) (price, short, medium, long float64) {
	closes := s.Closes()
	n := len(closes)
	price = closes[n-1]
	short = emaSeries(closes, t.ShortPeriod)[n-1]
	medium = emaSeries(closes, t.MediumPeriod)[n-1]
	long = emaSeries(closes, t.LongPeriod)[n-1]
	return price, short, medium, long
}

func (t TrendGauge) Calculate(s types.Series) Result {
	if len(s) < t.LongPeriod {
		return undefinedValues(t.Name(), "short_ema", "medium_ema", "long_ema")
	}
	price, short, medium, long := t.levels(s)
	return Result{
		Name:  t.Name(),
		Value: math.NaN(),
		Values: map[string]float64{
			"short_ema":  short,
			"medium_ema": medium,
			"long_ema":   long,
			"price":      price,
		},
		Signal:   types.SignalHold,
		Strength: t.strength(price, short, medium, long),
	}
}

// Signal fires only on strong alignment in either direction.
func (t TrendGauge) Signal(s types.Series) Result {
	res := t.Calculate(s)
	switch t.Trend(s) {
	case TrendStrongUp:
		res.Signal = types.SignalBuy
	case TrendStrongDown:
		res.Signal = types.SignalSell
	}
	return res
}

func (t TrendGauge) strength(price, short, medium, long float64) float64 {
	if long == 0 {
		return 0
	}
	shortSep := math.Abs(short-long) / long
	mediumSep := math.Abs(medium-long) / long
	priceSep := math.Abs(price-long) / long
	avg := (shortSep + mediumSep + priceSep) / 3
	// 5% average separation saturates the gauge.
	return math.Min(avg/0.05, 1.0)
}

// SuperTrend is the ATR-band trend follower; its signal fires on a band
// flip.
type SuperTrend struct {
	Period     int
	Multiplier float64
}

func NewSuperTrend(period int, multiplier float64) SuperTrend {
	if period <= 0 {
		period = 10
	}
	if multiplier == 0 {
		multiplier = 3.0
	}
	return SuperTrend{Period: period, Multiplier: multiplier}
}

func (st SuperTrend) Name() string {
	return fmt.Sprintf("SuperTrend_%d_%g", st.Period, st.Multiplier)
}

// Series returns the supertrend level and direction (+1 up, -1 down) per
// bar, defined from index Period onward.
func (st SuperTrend) Series(s types.Series) (line []float64, direction []int) {
	n := len(s)
	line = make([]float64, n)
	direction = make([]int, n)
	for i := range line {
		line[i] = math.NaN()
	}
	if n <= st.Period {
		return line, direction
	}
	atr := wilderSeries(trueRanges(s), st.Period)

	upper := func(i int) float64 {
		return (s[i].High+s[i].Low)/2 + st.Multiplier*atr[i]
	}
	lower := func(i int) float64 {
		return (s[i].High+s[i].Low)/2 - st.Multiplier*atr[i]
	}

	line[st.Period] = upper(st.Period)
	direction[st.Period] = -1
	for i := st.Period + 1; i < n; i++ {
		if s[i-1].Close <= line[i-1] {
			line[i] = math.Min(upper(i), line[i-1])
		} else {
			line[i] = math.Max(lower(i), line[i-1])
		}
		if s[i].Close > line[i] {
			direction[i] = 1
		} else {
			direction[i] = -1
		}
	}
	return line, direction
}

func (st SuperTrend) Calculate(s types.Series) Result {
	if len(s) < st.Period+1 {
		return undefinedValues(st.Name(), "supertrend", "direction")
	}
	line, dir := st.Series(s)
	n := len(s)
	return Result{
		Name:  st.Name(),
		Value: math.NaN(),
		Values: map[string]float64{
			"supertrend": line[n-1],
			"direction":  float64(dir[n-1]),
		},
		Signal: types.SignalHold,
	}
}

func (st SuperTrend) Signal(s types.Series) Result {
	if len(s) < st.Period+2 {
		return undefinedValues(st.Name(), "supertrend", "direction")
	}
	line, dir := st.Series(s)
	n := len(s)
	res := Result{
		Name:  st.Name(),
		Value: math.NaN(),
		Values: map[string]float64{
			"supertrend": line[n-1],
			"direction":  float64(dir[n-1]),
		},
		Signal:   types.SignalHold,
		Strength: 0.5,
	}
	switch {
	case dir[n-2] == -1 && dir[n-1] == 1:
		res.Signal = types.SignalBuy
		res.Strength = 0.8
	case dir[n-2] == 1 && dir[n-1] == -1:
		res.Signal = types.SignalSell
		res.Strength = 0.8
	}
	return res
}
