// Package strategy turns indicator output into directional trade
// signals. Each strategy is stateless apart from its configuration;
// Analyze is a pure function over the supplied series.
package strategy

import (
	"slowtrader/types"
)

// Strategy is the fixed surface every evaluator implements.
type Strategy interface {
	// Name identifies the strategy in signals and logs.
	Name() string

	// MinPeriods is the shortest series Analyze can work with.
	MinPeriods() int

	// Analyze produces exactly one signal for the symbol. It returns
	// Hold (never an error) when the series is too short or nothing
	// fires.
	Analyze(s types.Series, symbol string) types.TradeSignal
}

// hold builds the non-actionable signal every strategy falls back to.
func hold(symbol, strategy, reason string, price float64, indicators map[string]float64) types.TradeSignal {
	return types.TradeSignal{
		Signal:     types.SignalHold,
		Symbol:     symbol,
		Strategy:   strategy,
		Price:      price,
		Reason:     reason,
		Indicators: indicators,
	}
}

// insufficient is the uniform response to a series shorter than
// MinPeriods.
func insufficient(symbol, strategy string) types.TradeSignal {
	return hold(symbol, strategy, "Insufficient data", 0, nil)
}

// param reads a named parameter with a default, the way strategy
// constructors consume config params.
func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}
