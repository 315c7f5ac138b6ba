package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"slowtrader/types"
)

func buySig(strategy string, strength float64) types.TradeSignal {
	return types.TradeSignal{
		Signal:   types.SignalBuy,
		Strategy: strategy,
		Strength: strength,
		Reason:   "bullish setup",
	}
}

func sellSig(strategy string, strength float64) types.TradeSignal {
	return types.TradeSignal{
		Signal:   types.SignalSell,
		Strategy: strategy,
		Strength: strength,
		Reason:   "bearish setup",
	}
}

func TestConsensusMajorityBuy(t *testing.T) {
	signals := []types.TradeSignal{
		buySig("ma_crossover", 0.8),
		buySig("rsi", 0.6),
		sellSig("macd", 0.9),
	}
	out := Consensus(signals, "BTC/USDT", 100)
	assert.Equal(t, types.SignalBuy, out.Signal)
	assert.Equal(t, ConsensusStrategy, out.Strategy)
	assert.Equal(t, "BTC/USDT", out.Symbol)
	assert.Equal(t, 100.0, out.Price)
	assert.InDelta(t, 0.7, out.Strength, 1e-9)
	assert.Equal(t, "ma_crossover: bullish setup; rsi: bullish setup", out.Reason)
}

func TestConsensusTieHolds(t *testing.T) {
	signals := []types.TradeSignal{
		buySig("ma_crossover", 0.8),
		sellSig("macd", 0.9),
	}
	out := Consensus(signals, "BTC/USDT", 100)
	assert.Equal(t, types.SignalHold, out.Signal)
	assert.Equal(t, "No consensus (buy: 1, sell: 1)", out.Reason)
	assert.Zero(t, out.Strength)
}

func TestConsensusIgnoresZeroStrengthVotes(t *testing.T) {
	signals := []types.TradeSignal{
		buySig("ma_crossover", 0),
		sellSig("macd", 0.9),
	}
	out := Consensus(signals, "BTC/USDT", 100)
	assert.Equal(t, types.SignalSell, out.Signal)
	assert.Equal(t, 0.9, out.Strength)
}

func TestConsensusNoVotesHolds(t *testing.T) {
	signals := []types.TradeSignal{
		{Signal: types.SignalHold, Strategy: "rsi"},
		{Signal: types.SignalHold, Strategy: "macd"},
	}
	out := Consensus(signals, "BTC/USDT", 100)
	assert.Equal(t, types.SignalHold, out.Signal)
	assert.Equal(t, "No consensus (buy: 0, sell: 0)", out.Reason)
}

func TestConsensusCarriesBracketLevels(t *testing.T) {
	withBrackets := buySig("mean_reversion", 0.6)
	withBrackets.StopLoss = 95
	withBrackets.TakeProfit = 110
	signals := []types.TradeSignal{buySig("rsi", 0.8), withBrackets}

	out := Consensus(signals, "BTC/USDT", 100)
	assert.Equal(t, types.SignalBuy, out.Signal)
	assert.Equal(t, 95.0, out.StopLoss)
	assert.Equal(t, 110.0, out.TakeProfit)
}

type stubStrategy struct {
	name string
	sig  types.TradeSignal
}

func (s stubStrategy) Name() string    { return s.name }
func (s stubStrategy) MinPeriods() int { return 1 }

func (s stubStrategy) Analyze(_ types.Series, symbol string) types.TradeSignal {
	sig := s.sig
	sig.Symbol = symbol
	sig.Strategy = s.name
	return sig
}

func TestManagerSignalsPreserveOrder(t *testing.T) {
	m := NewManager(nil,
		stubStrategy{name: "a", sig: buySig("a", 0.5)},
		stubStrategy{name: "b", sig: sellSig("b", 0.5)},
	)
	signals := m.Signals(mkSeries(100), "BTC/USDT")
	assert.Len(t, signals, 2)
	assert.Equal(t, "a", signals[0].Strategy)
	assert.Equal(t, "b", signals[1].Strategy)
}

func TestManagerConsensus(t *testing.T) {
	m := NewManager(nil,
		stubStrategy{name: "a", sig: buySig("a", 0.4)},
		stubStrategy{name: "b", sig: buySig("b", 0.8)},
		stubStrategy{name: "c", sig: sellSig("c", 1.0)},
	)
	out := m.Consensus(mkSeries(100, 101), "BTC/USDT")
	assert.Equal(t, types.SignalBuy, out.Signal)
	assert.InDelta(t, 0.6, out.Strength, 1e-9)
	assert.Equal(t, 101.0, out.Price)
}
