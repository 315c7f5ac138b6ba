package strategy

import (
	"fmt"
	"math"

	"slowtrader/indicator"
	"slowtrader/types"
)

// MACDStrategy trades signal-line crossovers of the MACD.
type MACDStrategy struct {
	macd indicator.MACD
}

func NewMACDStrategy(fast, slow, signal int) *MACDStrategy {
	return &MACDStrategy{macd: indicator.NewMACD(fast, slow, signal)}
}

func (m *MACDStrategy) Name() string { return "macd" }

func (m *MACDStrategy) MinPeriods() int {
	return m.macd.SlowPeriod + m.macd.SignalPeriod + 2
}

func (m *MACDStrategy) Analyze(s types.Series, symbol string) types.TradeSignal {
	if len(s) < m.MinPeriods() {
		return insufficient(symbol, m.Name())
	}

	result := m.macd.Signal(s)
	price := s.LastClose()
	indicators := map[string]float64{
		"macd":      result.Values["macd"],
		"signal":    result.Values["signal"],
		"histogram": result.Values["histogram"],
		"price":     price,
	}

	switch result.Signal {
	case types.SignalBuy:
		return types.TradeSignal{
			Signal:     types.SignalBuy,
			Symbol:     symbol,
			Strategy:   m.Name(),
			Strength:   result.Strength,
			Price:      price,
			Reason:     "MACD crossed above signal line",
			Indicators: indicators,
		}
	case types.SignalSell:
		return types.TradeSignal{
			Signal:     types.SignalSell,
			Symbol:     symbol,
			Strategy:   m.Name(),
			Strength:   result.Strength,
			Price:      price,
			Reason:     "MACD crossed below signal line",
			Indicators: indicators,
		}
	}

	trend := "neutral"
	switch {
	case indicators["macd"] > 0:
		trend = "bullish"
	case indicators["macd"] < 0:
		trend = "bearish"
	}
	return hold(symbol, m.Name(), fmt.Sprintf("No MACD crossover, trend is %s", trend), price, indicators)
}

// MACDHistogram trades zero-crossings of the MACD histogram, reading
// momentum direction between crossings.
type MACDHistogram struct {
	macd indicator.MACD
}

func NewMACDHistogram(fast, slow, signal int) *MACDHistogram {
	return &MACDHistogram{macd: indicator.NewMACD(fast, slow, signal)}
}

func (m *MACDHistogram) Name() string { return "macd_histogram" }

func (m *MACDHistogram) MinPeriods() int {
	return m.macd.SlowPeriod + m.macd.SignalPeriod + 3
}

func (m *MACDHistogram) Analyze(s types.Series, symbol string) types.TradeSignal {
	if len(s) < m.MinPeriods() {
		return insufficient(symbol, m.Name())
	}

	macd, signal, hist := m.macd.Series(s)
	n := len(s)
	price := s.LastClose()
	histCurr, histPrev := hist[n-1], hist[n-2]
	indicators := map[string]float64{
		"macd":           macd[n-1],
		"signal":         signal[n-1],
		"histogram":      histCurr,
		"prev_histogram": histPrev,
		"price":          price,
	}

	strength := 0.5
	if histPrev != 0 {
		strength = math.Min(math.Abs(histCurr)/math.Abs(histPrev), 1.0)
	}

	switch {
	case histPrev <= 0 && histCurr > 0:
		return types.TradeSignal{
			Signal:     types.SignalBuy,
			Symbol:     symbol,
			Strategy:   m.Name(),
			Strength:   strength,
			Price:      price,
			Reason:     "MACD histogram turned positive",
			Indicators: indicators,
		}
	case histPrev >= 0 && histCurr < 0:
		return types.TradeSignal{
			Signal:     types.SignalSell,
			Symbol:     symbol,
			Strategy:   m.Name(),
			Strength:   strength,
			Price:      price,
			Reason:     "MACD histogram turned negative",
			Indicators: indicators,
		}
	case histCurr > histPrev && histCurr > 0:
		return hold(symbol, m.Name(), "Bullish momentum building", price, indicators)
	case histCurr < histPrev && histCurr < 0:
		return hold(symbol, m.Name(), "Bearish momentum building", price, indicators)
	}
	return hold(symbol, m.Name(), "No significant histogram change", price, indicators)
}
