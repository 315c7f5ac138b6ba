package strategy

import (
	"fmt"
	"math"

	"slowtrader/indicator"
	"slowtrader/types"
)

// TrendFollowing only trades confirmed strong trends: ADX above the
// threshold, EMAs aligned, DI dominance in the trend direction and
// price beyond the short EMA.
type TrendFollowing struct {
	adxThreshold float64
	shortEMA     indicator.EMA
	longEMA      indicator.EMA
	adx          indicator.ADX
	atr          indicator.ATR
}

// TrendFollowingParams are the tunables of TrendFollowing; zero values
// fall back to the defaults.
type TrendFollowingParams struct {
	ShortEMA     int
	LongEMA      int
	ADXPeriod    int
	ADXThreshold float64
	ATRPeriod    int
}

func NewTrendFollowing(p TrendFollowingParams) *TrendFollowing {
	if p.ShortEMA <= 0 {
		p.ShortEMA = 10
	}
	if p.LongEMA <= 0 {
		p.LongEMA = 50
	}
	if p.ADXThreshold == 0 {
		p.ADXThreshold = 25
	}
	return &TrendFollowing{
		adxThreshold: p.ADXThreshold,
		shortEMA:     indicator.NewEMA(p.ShortEMA),
		longEMA:      indicator.NewEMA(p.LongEMA),
		adx:          indicator.NewADX(p.ADXPeriod),
		atr:          indicator.NewATR(p.ATRPeriod),
	}
}

func (t *TrendFollowing) Name() string { return "trend_following" }

func (t *TrendFollowing) MinPeriods() int {
	min := t.longEMA.Period
	if v := t.adx.Period * 2; v > min {
		min = v
	}
	if v := t.atr.Period; v > min {
		min = v
	}
	return min + 2
}

func (t *TrendFollowing) Analyze(s types.Series, symbol string) types.TradeSignal {
	if len(s) < t.MinPeriods() {
		return insufficient(symbol, t.Name())
	}

	n := len(s)
	price := s.LastClose()
	short := t.shortEMA.Series(s)[n-1]
	long := t.longEMA.Series(s)[n-1]
	adxRes := t.adx.Calculate(s)
	atrRes := t.atr.Calculate(s)

	adx := adxRes.Values["adx"]
	plusDI := adxRes.Values["plus_di"]
	minusDI := adxRes.Values["minus_di"]

	indicators := map[string]float64{
		"short_ema": short,
		"long_ema":  long,
		"adx":       adx,
		"plus_di":   plusDI,
		"minus_di":  minusDI,
		"atr":       atrRes.Value,
		"price":     price,
	}

	if adx < t.adxThreshold {
		return hold(symbol, t.Name(),
			fmt.Sprintf("Weak trend (ADX: %.1f < %.0f)", adx, t.adxThreshold),
			price, indicators)
	}

	strength := math.Min(adx/50, 1.0)
	switch {
	case short > long && plusDI > minusDI && price > short:
		return types.TradeSignal{
			Signal:     types.SignalBuy,
			Symbol:     symbol,
			Strategy:   t.Name(),
			Strength:   strength,
			Price:      price,
			Reason:     fmt.Sprintf("Strong uptrend confirmed (ADX: %.1f)", adx),
			Indicators: indicators,
		}
	case short < long && minusDI > plusDI && price < short:
		return types.TradeSignal{
			Signal:     types.SignalSell,
			Symbol:     symbol,
			Strategy:   t.Name(),
			Strength:   strength,
			Price:      price,
			Reason:     fmt.Sprintf("Strong downtrend confirmed (ADX: %.1f)", adx),
			Indicators: indicators,
		}
	}
	return hold(symbol, t.Name(), "Trend not confirmed", price, indicators)
}
