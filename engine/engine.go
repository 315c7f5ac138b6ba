// Package engine drives the evaluation pipeline: fetch candles, fan
// out to the strategies, aggregate consensus, hand actionable signals
// to the executor. One pass per poll tick, symbols in a fixed order.
package engine

import (
	"context"
	"fmt"

	"slowtrader/exchange"
	"slowtrader/executor"
	"slowtrader/logger"
	"slowtrader/metrics"
	"slowtrader/strategy"
	"slowtrader/types"
)

// Evaluation is the read-only result of evaluating one symbol.
type Evaluation struct {
	Symbol    string
	Consensus types.TradeSignal
	Signals   []types.TradeSignal
	Err       error // set when market data could not be fetched
}

// Engine owns one pass of the trading loop. It never mutates position
// or risk state itself; all side effects go through the executor.
type Engine struct {
	exch        exchange.Exchange
	strategies  *strategy.Manager
	exec        *executor.Manager
	log         logger.Logger
	timeframe   string
	candleLimit int
}

func New(exch exchange.Exchange, strategies *strategy.Manager, exec *executor.Manager, log logger.Logger, timeframe string, candleLimit int) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		exch:        exch,
		strategies:  strategies,
		exec:        exec,
		log:         log,
		timeframe:   timeframe,
		candleLimit: candleLimit,
	}
}

// Evaluate runs the strategy set over every symbol and returns the
// per-symbol consensus without executing anything. A symbol whose data
// fetch fails carries the error in its Evaluation; the rest of the
// batch is unaffected.
func (e *Engine) Evaluate(ctx context.Context, symbols []string) []Evaluation {
	out := make([]Evaluation, 0, len(symbols))
	for _, symbol := range symbols {
		ev := Evaluation{Symbol: symbol}
		series, err := e.exch.OHLCV(ctx, symbol, e.timeframe, e.candleLimit)
		if err != nil {
			ev.Err = fmt.Errorf("ohlcv %s: %w", symbol, err)
			out = append(out, ev)
			continue
		}
		ev.Signals = e.strategies.Signals(series, symbol)
		ev.Consensus = strategy.Consensus(ev.Signals, symbol, series.LastClose())
		out = append(out, ev)
	}
	return out
}

// RunPass is one full tick in fixed order: evaluate every symbol,
// execute the actionable consensus signals against the supplied
// portfolio value, then reconcile open positions. Errors on a single
// symbol are logged and skipped. The caller supplies the portfolio
// value so one snapshot prices the whole pass.
func (e *Engine) RunPass(ctx context.Context, symbols []string, portfolioValue float64) []types.Order {
	metrics.PortfolioValue.Set(portfolioValue)

	var executed []types.Order
	for _, ev := range e.Evaluate(ctx, symbols) {
		if ev.Err != nil {
			e.log.Warn("symbol evaluation failed",
				logger.String("symbol", ev.Symbol), logger.Err(ev.Err))
			continue
		}
		sig := ev.Consensus
		e.log.Info("consensus",
			logger.String("symbol", ev.Symbol),
			logger.String("signal", string(sig.Signal)),
			logger.Float64("strength", sig.Strength),
			logger.String("reason", sig.Reason))
		if !sig.Signal.IsActionable() {
			continue
		}
		order, err := e.exec.ExecuteSignal(ctx, sig, portfolioValue)
		if err != nil {
			e.log.Error("signal execution failed",
				logger.String("symbol", ev.Symbol), logger.Err(err))
			continue
		}
		if order != nil {
			executed = append(executed, *order)
		}
	}

	e.exec.CheckPositions(ctx)
	return executed
}
