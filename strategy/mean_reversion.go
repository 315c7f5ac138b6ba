package strategy

import (
	"fmt"
	"math"

	"slowtrader/indicator"
	"slowtrader/types"
)

// MeanReversion fades moves that push price through a Bollinger band
// while the RSI confirms the extreme. The stop sits just beyond the
// band, the target at the middle band.
type MeanReversion struct {
	rsiExtreme float64 // distance from 50 considered extreme
	bb         indicator.BollingerBands
	rsi        indicator.RSI
}

// MeanReversionParams are the tunables of MeanReversion; zero values
// fall back to the defaults.
type MeanReversionParams struct {
	BBPeriod   int
	BBStdDev   float64
	RSIPeriod  int
	RSIExtreme float64
}

func NewMeanReversion(p MeanReversionParams) *MeanReversion {
	if p.RSIExtreme == 0 {
		p.RSIExtreme = 20
	}
	return &MeanReversion{
		rsiExtreme: p.RSIExtreme,
		bb:         indicator.NewBollingerBands(p.BBPeriod, p.BBStdDev),
		rsi:        indicator.NewRSI(p.RSIPeriod, 0, 0),
	}
}

func (m *MeanReversion) Name() string { return "mean_reversion" }

func (m *MeanReversion) MinPeriods() int {
	min := m.bb.Period
	if v := m.rsi.Period + 1; v > min {
		min = v
	}
	return min + 2
}

func (m *MeanReversion) Analyze(s types.Series, symbol string) types.TradeSignal {
	if len(s) < m.MinPeriods() {
		return insufficient(symbol, m.Name())
	}

	price := s.LastClose()
	bbRes := m.bb.Calculate(s)
	rsiRes := m.rsi.Calculate(s)

	upper := bbRes.Values["upper"]
	middle := bbRes.Values["middle"]
	lower := bbRes.Values["lower"]
	rsi := rsiRes.Value

	indicators := map[string]float64{
		"bb_upper":  upper,
		"bb_middle": middle,
		"bb_lower":  lower,
		"rsi":       rsi,
		"price":     price,
	}

	switch {
	case price <= lower && rsi < 50-m.rsiExtreme:
		strength := math.Min((lower-price)/lower*10+0.3, 1.0)
		return types.TradeSignal{
			Signal:     types.SignalBuy,
			Symbol:     symbol,
			Strategy:   m.Name(),
			Strength:   strength,
			Price:      price,
			StopLoss:   lower * 0.98, // just beyond the band
			TakeProfit: middle,
			Reason:     fmt.Sprintf("Mean reversion buy: price at lower BB, RSI %.1f", rsi),
			Indicators: indicators,
		}
	case price >= upper && rsi > 50+m.rsiExtreme:
		strength := math.Min((price-upper)/upper*10+0.3, 1.0)
		return types.TradeSignal{
			Signal:     types.SignalSell,
			Symbol:     symbol,
			Strategy:   m.Name(),
			Strength:   strength,
			Price:      price,
			StopLoss:   upper * 1.02,
			TakeProfit: middle,
			Reason:     fmt.Sprintf("Mean reversion sell: price at upper BB, RSI %.1f", rsi),
			Indicators: indicators,
		}
	}
	return hold(symbol, m.Name(), "Price within normal range", price, indicators)
}
