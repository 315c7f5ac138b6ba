package strategy

import (
	"fmt"
	"math"

	"slowtrader/indicator"
	"slowtrader/types"
)

// MACrossover trades golden/death crosses of a fast and slow moving
// average.
type MACrossover struct {
	fastPeriod int
	slowPeriod int
	detector   indicator.Crossover
}

func NewMACrossover(fastPeriod, slowPeriod int, maType indicator.MAType) *MACrossover {
	det := indicator.NewCrossover(fastPeriod, slowPeriod, maType)
	return &MACrossover{
		fastPeriod: det.FastPeriod,
		slowPeriod: det.SlowPeriod,
		detector:   det,
	}
}

func (m *MACrossover) Name() string { return "ma_crossover" }

func (m *MACrossover) MinPeriods() int {
	if m.fastPeriod > m.slowPeriod {
		return m.fastPeriod + 2
	}
	return m.slowPeriod + 2
}

func (m *MACrossover) Analyze(s types.Series, symbol string) types.TradeSignal {
	if len(s) < m.MinPeriods() {
		return insufficient(symbol, m.Name())
	}

	result := m.detector.Detect(s)
	price := s.LastClose()
	fast := result.Values["fast"]
	slow := result.Values["slow"]
	indicators := map[string]float64{"fast_ma": fast, "slow_ma": slow, "price": price}

	switch result.Signal {
	case types.SignalBuy:
		return types.TradeSignal{
			Signal:     types.SignalBuy,
			Symbol:     symbol,
			Strategy:   m.Name(),
			Strength:   result.Strength,
			Price:      price,
			Reason:     "Golden cross: fast MA crossed above slow MA",
			Indicators: indicators,
		}
	case types.SignalSell:
		return types.TradeSignal{
			Signal:     types.SignalSell,
			Symbol:     symbol,
			Strategy:   m.Name(),
			Strength:   result.Strength,
			Price:      price,
			Reason:     "Death cross: fast MA crossed below slow MA",
			Indicators: indicators,
		}
	}

	trend := "neutral"
	if !math.IsNaN(fast) && !math.IsNaN(slow) {
		if fast > slow {
			trend = "bullish"
		} else {
			trend = "bearish"
		}
	}
	return hold(symbol, m.Name(), fmt.Sprintf("No crossover, trend is %s", trend), price, indicators)
}

// TripleMA requires a strict price > short > medium > long alignment (or
// its mirror) before firing.
type TripleMA struct {
	shortPeriod  int
	mediumPeriod int
	longPeriod   int
	short        indicator.EMA
	medium       indicator.EMA
	long         indicator.EMA
	shortSMA     indicator.SMA
	mediumSMA    indicator.SMA
	longSMA      indicator.SMA
	useSMA       bool
}

func NewTripleMA(shortPeriod, mediumPeriod, longPeriod int, maType indicator.MAType) *TripleMA {
	if shortPeriod <= 0 {
		shortPeriod = 5
	}
	if mediumPeriod <= 0 {
		mediumPeriod = 10
	}
	if longPeriod <= 0 {
		longPeriod = 20
	}
	return &TripleMA{
		shortPeriod:  shortPeriod,
		mediumPeriod: mediumPeriod,
		longPeriod:   longPeriod,
		short:        indicator.NewEMA(shortPeriod),
		medium:       indicator.NewEMA(mediumPeriod),
		long:         indicator.NewEMA(longPeriod),
		shortSMA:     indicator.NewSMA(shortPeriod),
		mediumSMA:    indicator.NewSMA(mediumPeriod),
		longSMA:      indicator.NewSMA(longPeriod),
		useSMA:       maType == indicator.MATypeSMA,
	}
}

func (t *TripleMA) Name() string { return "triple_ma" }

func (t *TripleMA) MinPeriods() int { return t.longPeriod + 2 }

func (t *TripleMA) Analyze(s types.Series, symbol string) types.TradeSignal {
	if len(s) < t.MinPeriods() {
		return insufficient(symbol, t.Name())
	}

	n := len(s)
	var short, medium, long float64
	if t.useSMA {
		short = t.shortSMA.Series(s)[n-1]
		medium = t.mediumSMA.Series(s)[n-1]
		long = t.longSMA.Series(s)[n-1]
	} else {
		short = t.short.Series(s)[n-1]
		medium = t.medium.Series(s)[n-1]
		long = t.long.Series(s)[n-1]
	}
	price := s.LastClose()
	indicators := map[string]float64{
		"short_ma":  short,
		"medium_ma": medium,
		"long_ma":   long,
		"price":     price,
	}

	switch {
	case short > medium && medium > long && price > short:
		strength := math.Min((short-long)/long*10, 1.0)
		return types.TradeSignal{
			Signal:     types.SignalBuy,
			Symbol:     symbol,
			Strategy:   t.Name(),
			Strength:   strength,
			Price:      price,
			Reason:     "Bullish alignment: price > short > medium > long",
			Indicators: indicators,
		}
	case short < medium && medium < long && price < short:
		strength := math.Min((long-short)/long*10, 1.0)
		return types.TradeSignal{
			Signal:     types.SignalSell,
			Symbol:     symbol,
			Strategy:   t.Name(),
			Strength:   strength,
			Price:      price,
			Reason:     "Bearish alignment: price < short < medium < long",
			Indicators: indicators,
		}
	}
	return hold(symbol, t.Name(), "MAs not aligned", price, indicators)
}
