package strategy

import (
	"fmt"
	"strings"

	"slowtrader/indicator"
	"slowtrader/types"
)

// Combined polls EMA, RSI and MACD sub-signals and fires only when a
// quorum of them agree. Strength is confirmations out of three.
type Combined struct {
	quorum int
	ema    indicator.EMA
	rsi    indicator.RSI
	macd   indicator.MACD
}

// CombinedParams are the tunables of the Combined strategy; zero values
// fall back to the defaults.
type CombinedParams struct {
	EMAPeriod     int
	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	Quorum        int
}

func NewCombined(p CombinedParams) *Combined {
	if p.Quorum <= 0 {
		p.Quorum = 2
	}
	return &Combined{
		quorum: p.Quorum,
		ema:    indicator.NewEMA(p.EMAPeriod),
		rsi:    indicator.NewRSI(p.RSIPeriod, p.RSIOverbought, p.RSIOversold),
		macd:   indicator.NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal),
	}
}

func (c *Combined) Name() string { return "combined" }

func (c *Combined) MinPeriods() int {
	min := c.ema.Period
	if v := c.rsi.Period + 1; v > min {
		min = v
	}
	if v := c.macd.SlowPeriod + c.macd.SignalPeriod; v > min {
		min = v
	}
	return min + 2
}

func (c *Combined) Analyze(s types.Series, symbol string) types.TradeSignal {
	if len(s) < c.MinPeriods() {
		return insufficient(symbol, c.Name())
	}

	price := s.LastClose()
	emaRes := c.ema.Signal(s)
	rsiRes := c.rsi.Signal(s)
	macdRes := c.macd.Signal(s)

	var buys, sells int
	var reasons []string

	switch emaRes.Signal {
	case types.SignalBuy:
		buys++
		reasons = append(reasons, "EMA bullish")
	case types.SignalSell:
		sells++
		reasons = append(reasons, "EMA bearish")
	}
	switch rsiRes.Signal {
	case types.SignalBuy:
		buys++
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f)", rsiRes.Value))
	case types.SignalSell:
		sells++
		reasons = append(reasons, fmt.Sprintf("RSI overbought (%.1f)", rsiRes.Value))
	}
	switch macdRes.Signal {
	case types.SignalBuy:
		buys++
		reasons = append(reasons, "MACD bullish crossover")
	case types.SignalSell:
		sells++
		reasons = append(reasons, "MACD bearish crossover")
	}

	indicators := map[string]float64{
		"ema":                emaRes.Value,
		"rsi":                rsiRes.Value,
		"macd":               macdRes.Values["macd"],
		"macd_signal":        macdRes.Values["signal"],
		"macd_histogram":     macdRes.Values["histogram"],
		"price":              price,
		"buy_confirmations":  float64(buys),
		"sell_confirmations": float64(sells),
	}

	switch {
	case buys >= c.quorum:
		return types.TradeSignal{
			Signal:     types.SignalBuy,
			Symbol:     symbol,
			Strategy:   c.Name(),
			Strength:   float64(buys) / 3,
			Price:      price,
			Reason:     "Buy confirmed: " + strings.Join(reasons, ", "),
			Indicators: indicators,
		}
	case sells >= c.quorum:
		return types.TradeSignal{
			Signal:     types.SignalSell,
			Symbol:     symbol,
			Strategy:   c.Name(),
			Strength:   float64(sells) / 3,
			Price:      price,
			Reason:     "Sell confirmed: " + strings.Join(reasons, ", "),
			Indicators: indicators,
		}
	}
	return hold(symbol, c.Name(),
		fmt.Sprintf("Insufficient confirmations (buy: %d, sell: %d)", buys, sells),
		price, indicators)
}
