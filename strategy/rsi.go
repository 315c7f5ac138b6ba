package strategy

import (
	"fmt"
	"math"

	"slowtrader/indicator"
	"slowtrader/types"
)

// RSIStrategy trades the overbought/oversold thresholds of the RSI.
type RSIStrategy struct {
	period     int
	overbought float64
	oversold   float64
	rsi        indicator.RSI
}

func NewRSIStrategy(period int, overbought, oversold float64) *RSIStrategy {
	rsi := indicator.NewRSI(period, overbought, oversold)
	return &RSIStrategy{
		period:     rsi.Period,
		overbought: rsi.Overbought,
		oversold:   rsi.Oversold,
		rsi:        rsi,
	}
}

func (r *RSIStrategy) Name() string { return "rsi" }

func (r *RSIStrategy) MinPeriods() int { return r.period + 2 }

func (r *RSIStrategy) Analyze(s types.Series, symbol string) types.TradeSignal {
	if len(s) < r.MinPeriods() {
		return insufficient(symbol, r.Name())
	}

	result := r.rsi.Signal(s)
	price := s.LastClose()
	indicators := map[string]float64{
		"rsi":        result.Value,
		"overbought": r.overbought,
		"oversold":   r.oversold,
		"price":      price,
	}

	switch result.Signal {
	case types.SignalBuy:
		return types.TradeSignal{
			Signal:     types.SignalBuy,
			Symbol:     symbol,
			Strategy:   r.Name(),
			Strength:   result.Strength,
			Price:      price,
			Reason:     fmt.Sprintf("RSI oversold at %.1f", result.Value),
			Indicators: indicators,
		}
	case types.SignalSell:
		return types.TradeSignal{
			Signal:     types.SignalSell,
			Symbol:     symbol,
			Strategy:   r.Name(),
			Strength:   result.Strength,
			Price:      price,
			Reason:     fmt.Sprintf("RSI overbought at %.1f", result.Value),
			Indicators: indicators,
		}
	}
	return hold(symbol, r.Name(), fmt.Sprintf("RSI neutral at %.1f", result.Value), price, indicators)
}

// RSIDivergence fires when price revisits an extreme of its lookback
// window while the RSI fails to confirm it.
type RSIDivergence struct {
	period   int
	lookback int
	rsi      indicator.RSI
}

func NewRSIDivergence(period, lookback int) *RSIDivergence {
	if lookback <= 0 {
		lookback = 10
	}
	rsi := indicator.NewRSI(period, 0, 0)
	return &RSIDivergence{period: rsi.Period, lookback: lookback, rsi: rsi}
}

func (r *RSIDivergence) Name() string { return "rsi_divergence" }

func (r *RSIDivergence) MinPeriods() int { return r.period + r.lookback + 2 }

func (r *RSIDivergence) Analyze(s types.Series, symbol string) types.TradeSignal {
	if len(s) < r.MinPeriods() {
		return insufficient(symbol, r.Name())
	}

	rsiSeries := r.rsi.Series(s)
	closes := s.Closes()
	n := len(closes)

	windowClose := closes[n-r.lookback:]
	windowRSI := rsiSeries[n-r.lookback:]

	price := closes[n-1]
	currRSI := rsiSeries[n-1]
	indicators := map[string]float64{
		"rsi":      currRSI,
		"price":    price,
		"lookback": float64(r.lookback),
	}

	minClose, maxClose := minMax(windowClose)
	minRSI, maxRSI := minMax(windowRSI)

	// Price within 2% of its window low while RSI sits >=5% above its
	// own low: bullish divergence.
	if price <= minClose*1.02 && currRSI > minRSI*1.05 {
		return types.TradeSignal{
			Signal:     types.SignalBuy,
			Symbol:     symbol,
			Strategy:   r.Name(),
			Strength:   0.7,
			Price:      price,
			Reason:     "Bullish RSI divergence detected",
			Indicators: indicators,
		}
	}
	if price >= maxClose*0.98 && currRSI < maxRSI*0.95 {
		return types.TradeSignal{
			Signal:     types.SignalSell,
			Symbol:     symbol,
			Strategy:   r.Name(),
			Strength:   0.7,
			Price:      price,
			Reason:     "Bearish RSI divergence detected",
			Indicators: indicators,
		}
	}
	return hold(symbol, r.Name(), "No RSI divergence detected", price, indicators)
}

func minMax(vals []float64) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
