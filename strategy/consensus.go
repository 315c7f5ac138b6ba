package strategy

import (
	"fmt"
	"strings"

	"slowtrader/logger"
	"slowtrader/metrics"
	"slowtrader/types"
)

// ConsensusStrategy is the strategy id carried by aggregated signals.
const ConsensusStrategy = "consensus"

// Manager holds the enabled strategy set for fan-out evaluation and
// consensus aggregation.
type Manager struct {
	strategies []Strategy
	log        logger.Logger
}

func NewManager(log logger.Logger, strategies ...Strategy) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{strategies: strategies, log: log}
}

// Strategies returns the managed set in evaluation order.
func (m *Manager) Strategies() []Strategy {
	return m.strategies
}

// Signals evaluates every strategy against the series and returns one
// signal per strategy, in registration order.
func (m *Manager) Signals(s types.Series, symbol string) []types.TradeSignal {
	out := make([]types.TradeSignal, 0, len(m.strategies))
	for _, strat := range m.strategies {
		sig := strat.Analyze(s, symbol)
		metrics.SignalsEvaluated.WithLabelValues(sig.Strategy, string(sig.Signal)).Inc()
		out = append(out, sig)
	}
	return out
}

// Consensus evaluates all strategies and reconciles their signals into
// one verdict for the symbol.
func (m *Manager) Consensus(s types.Series, symbol string) types.TradeSignal {
	return Consensus(m.Signals(s, symbol), symbol, s.LastClose())
}

// Consensus reconciles per-strategy signals into a single verdict:
// majority vote between buys and sells, counting only signals with
// positive strength. A tie, or no votes at all, yields Hold. The
// aggregate strength is the mean strength of the winning side, and the
// reason concatenates the contributing strategies' reasons.
func Consensus(signals []types.TradeSignal, symbol string, price float64) types.TradeSignal {
	var buy, sell []types.TradeSignal
	for _, sig := range signals {
		if sig.Strength <= 0 {
			continue
		}
		switch sig.Signal {
		case types.SignalBuy:
			buy = append(buy, sig)
		case types.SignalSell:
			sell = append(sell, sig)
		}
	}

	var winner types.Signal
	var votes []types.TradeSignal
	switch {
	case len(buy) > len(sell):
		winner, votes = types.SignalBuy, buy
	case len(sell) > len(buy):
		winner, votes = types.SignalSell, sell
	default:
		return types.TradeSignal{
			Signal:   types.SignalHold,
			Symbol:   symbol,
			Strategy: ConsensusStrategy,
			Price:    price,
			Reason:   fmt.Sprintf("No consensus (buy: %d, sell: %d)", len(buy), len(sell)),
		}
	}

	var strength float64
	reasons := make([]string, 0, len(votes))
	var stopLoss, takeProfit float64
	for _, v := range votes {
		strength += v.Strength
		reasons = append(reasons, fmt.Sprintf("%s: %s", v.Strategy, v.Reason))
		// Carry the tightest explicit bracket levels the voters set.
		if v.StopLoss != 0 && stopLoss == 0 {
			stopLoss = v.StopLoss
		}
		if v.TakeProfit != 0 && takeProfit == 0 {
			takeProfit = v.TakeProfit
		}
	}
	strength /= float64(len(votes))

	return types.TradeSignal{
		Signal:     winner,
		Symbol:     symbol,
		Strategy:   ConsensusStrategy,
		Strength:   strength,
		Price:      price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Reason:     strings.Join(reasons, "; "),
	}
}
