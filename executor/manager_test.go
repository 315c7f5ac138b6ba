package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slowtrader/exchange"
	"slowtrader/risk"
	"slowtrader/testutils"
	"slowtrader/types"
)

func newTestManager(t *testing.T) (*Manager, *testutils.MockExchange, *risk.Manager) {
	t.Helper()
	mock := testutils.NewMockExchange()
	mock.Prices["BTC/USDT"] = 100
	riskMgr := risk.NewManager(risk.DefaultLimits(), nil)
	return NewManager(mock, riskMgr, nil, false), mock, riskMgr
}

func newDryRunManager(t *testing.T) (*Manager, *testutils.MockExchange, *risk.Manager) {
	t.Helper()
	mock := testutils.NewMockExchange()
	mock.Prices["BTC/USDT"] = 100
	riskMgr := risk.NewManager(risk.DefaultLimits(), nil)
	return NewManager(mock, riskMgr, nil, true), mock, riskMgr
}

func buySignal(symbol string) types.TradeSignal {
	return types.TradeSignal{
		Signal:   types.SignalBuy,
		Symbol:   symbol,
		Strategy: "consensus",
		Strength: 1,
		Price:    100,
		Reason:   "test entry",
	}
}

// livePosition mirrors what the exchange reports for an open position.
func livePosition(symbol string, side types.OrderSide, qty, entry float64) types.Position {
	return types.Position{Symbol: symbol, Side: side, Quantity: qty, EntryPrice: entry}
}

func TestExecuteSignalOpensPositionWithBrackets(t *testing.T) {
	mgr, mock, riskMgr := newTestManager(t)

	order, err := mgr.ExecuteSignal(context.Background(), buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, types.OrderStatusFilled, order.Status)

	// entry, stop, take-profit
	require.Len(t, mock.Placed, 3)
	assert.Equal(t, types.OrderTypeMarket, mock.Placed[0].Type)
	assert.Equal(t, types.OrderSideBuy, mock.Placed[0].Side)
	assert.Equal(t, 10.0, mock.Placed[0].Quantity)

	assert.Equal(t, types.OrderTypeStopLoss, mock.Placed[1].Type)
	assert.Equal(t, types.OrderSideSell, mock.Placed[1].Side)
	assert.Equal(t, 98.0, mock.Placed[1].StopPrice)

	assert.Equal(t, types.OrderTypeLimit, mock.Placed[2].Type)
	assert.Equal(t, 105.0, mock.Placed[2].Price)

	positions := mgr.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, "BTC/USDT", positions[0].Symbol)
	assert.Equal(t, 100.0, positions[0].EntryPrice)

	history := riskMgr.History()
	require.Len(t, history, 1)
	assert.Equal(t, 0.0, history[0].ExitPrice)
}

func TestExecuteSignalUsesATRBrackets(t *testing.T) {
	mgr, mock, _ := newTestManager(t)
	sig := buySignal("BTC/USDT")
	sig.Indicators = map[string]float64{"atr": 5}

	_, err := mgr.ExecuteSignal(context.Background(), sig, 10000)
	require.NoError(t, err)
	require.Len(t, mock.Placed, 3)
	assert.Equal(t, 90.0, mock.Placed[1].StopPrice) // entry - 2*ATR
	assert.Equal(t, 120.0, mock.Placed[2].Price)    // 2*ATR * reward:risk
}

func TestExecuteSignalHoldIsNoop(t *testing.T) {
	mgr, mock, _ := newTestManager(t)
	sig := buySignal("BTC/USDT")
	sig.Signal = types.SignalHold

	order, err := mgr.ExecuteSignal(context.Background(), sig, 10000)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Empty(t, mock.Placed)
}

func TestExecuteSignalSkipsDuplicatePosition(t *testing.T) {
	mgr, mock, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)
	placed := len(mock.Placed)

	order, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Len(t, mock.Placed, placed)
}

func TestExecuteSignalBlockedByRiskGate(t *testing.T) {
	mgr, mock, _ := newTestManager(t)
	mock.Prices["ETH/USDT"] = 50
	ctx := context.Background()

	_, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)
	placed := len(mock.Placed)

	// The trade frequency limit blocks an immediate second entry.
	order, err := mgr.ExecuteSignal(ctx, buySignal("ETH/USDT"), 10000)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Len(t, mock.Placed, placed)
	assert.Len(t, mgr.Positions(), 1)
}

func TestExecuteSignalDryRunSimulatesFill(t *testing.T) {
	mgr, mock, riskMgr := newDryRunManager(t)

	order, err := mgr.ExecuteSignal(context.Background(), buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, types.OrderStatusFilled, order.Status)
	assert.Equal(t, 100.0, order.FilledPrice)
	assert.Equal(t, 10.0, order.FilledQty)

	// Nothing reaches the exchange, but the position and the entry
	// trade are tracked like a real fill.
	assert.Empty(t, mock.Placed)
	positions := mgr.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, 98.0, positions[0].StopLoss)
	assert.Equal(t, 105.0, positions[0].TakeProfit)
	assert.Len(t, riskMgr.History(), 1)
}

func TestDryRunClosePositionRealizesPnL(t *testing.T) {
	mgr, mock, riskMgr := newDryRunManager(t)
	ctx := context.Background()

	_, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)

	mock.Prices["BTC/USDT"] = 110
	order, err := mgr.ClosePosition(ctx, "BTC/USDT", "")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, 110.0, order.FilledPrice)

	assert.Empty(t, mock.Placed)
	assert.Empty(t, mgr.Positions())
	assert.Equal(t, 100.0, riskMgr.DailyPnL()) // (110-100) * 10
	require.Len(t, riskMgr.History(), 2)
}

func TestDryRunCheckPositionsTriggersStop(t *testing.T) {
	mgr, mock, riskMgr := newDryRunManager(t)
	ctx := context.Background()

	_, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)

	// Price trades through the stop level.
	mock.Prices["BTC/USDT"] = 97
	mgr.CheckPositions(ctx)
	assert.Empty(t, mgr.Positions())

	history := riskMgr.History()
	require.Len(t, history, 2)
	assert.Equal(t, 98.0, history[1].ExitPrice)
	assert.InDelta(t, -20.0, riskMgr.DailyPnL(), 1e-9)

	mgr.CheckPositions(ctx)
	assert.Len(t, riskMgr.History(), 2)
}

func TestClosePositionRecordsTradeAndCancelsBrackets(t *testing.T) {
	mgr, mock, riskMgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)

	mock.Prices["BTC/USDT"] = 110
	mock.Live = []types.Position{livePosition("BTC/USDT", types.OrderSideBuy, 10, 100)}
	order, err := mgr.ClosePosition(ctx, "BTC/USDT", "")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, types.OrderSideSell, order.Side)

	assert.Empty(t, mgr.Positions())
	assert.Len(t, mock.Cancelled, 2)
	assert.Equal(t, 100.0, riskMgr.DailyPnL()) // (110-100) * 10
	require.Len(t, riskMgr.History(), 2)
}

func TestClosePositionSizesToLiveQuantity(t *testing.T) {
	mgr, mock, riskMgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)

	// The stop partially filled: 10 managed, 6 still live. The close
	// must flatten the live quantity, not the stale managed one.
	mock.Prices["BTC/USDT"] = 110
	mock.Live = []types.Position{livePosition("BTC/USDT", types.OrderSideBuy, 6, 100)}
	order, err := mgr.ClosePosition(ctx, "BTC/USDT", "")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, 6.0, order.Quantity)
	assert.Equal(t, 6.0, mock.Placed[len(mock.Placed)-1].Quantity)

	history := riskMgr.History()
	require.Len(t, history, 2)
	assert.Equal(t, 6.0, history[1].Quantity)
	assert.Equal(t, 60.0, riskMgr.DailyPnL()) // (110-100) * 6
	assert.Empty(t, mgr.Positions())
}

func TestClosePositionNoLivePositionIsNoop(t *testing.T) {
	mgr, mock, riskMgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)
	placed := len(mock.Placed)

	// The exchange reports flat; nothing to sell.
	mock.Live = nil
	order, err := mgr.ClosePosition(ctx, "BTC/USDT", "")
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Len(t, mock.Placed, placed)
	assert.Len(t, riskMgr.History(), 1) // entry only
}

func TestClosePositionFlattensUnmanagedLivePosition(t *testing.T) {
	mgr, mock, riskMgr := newTestManager(t)
	ctx := context.Background()

	// A position exists on the exchange that the manager never opened.
	mock.Prices["BTC/USDT"] = 110
	mock.Live = []types.Position{livePosition("BTC/USDT", types.OrderSideBuy, 4, 100)}

	order, err := mgr.ClosePosition(ctx, "BTC/USDT", "")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, 4.0, order.Quantity)

	history := riskMgr.History()
	require.Len(t, history, 1)
	assert.Equal(t, 110.0, history[0].ExitPrice)
	assert.Equal(t, 40.0, riskMgr.DailyPnL()) // (110-100) * 4
}

func TestClosePositionSideMismatchSkips(t *testing.T) {
	mgr, mock, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)
	placed := len(mock.Placed)

	mock.Live = []types.Position{livePosition("BTC/USDT", types.OrderSideBuy, 10, 100)}
	order, err := mgr.ClosePosition(ctx, "BTC/USDT", types.OrderSideSell)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Len(t, mock.Placed, placed)
	assert.Len(t, mgr.Positions(), 1)
}

func TestClosePositionWithoutPositionIsNoop(t *testing.T) {
	mgr, mock, _ := newTestManager(t)
	order, err := mgr.ClosePosition(context.Background(), "BTC/USDT", "")
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Empty(t, mock.Placed)
}

func TestCheckPositionsRecordsBracketFillOnce(t *testing.T) {
	mgr, mock, riskMgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)
	pos := mgr.Positions()[0]

	// Position still live on the exchange: nothing to reconcile.
	mock.Live = []types.Position{livePosition("BTC/USDT", types.OrderSideBuy, pos.Quantity, 100)}
	mgr.CheckPositions(ctx)
	assert.Len(t, mgr.Positions(), 1)

	// The stop fills and the position disappears.
	mock.MarkFilled(pos.StopOrderID, 98)
	mock.Live = nil
	mgr.CheckPositions(ctx)
	assert.Empty(t, mgr.Positions())

	history := riskMgr.History()
	require.Len(t, history, 2) // entry + one exit, never two
	assert.Equal(t, 98.0, history[1].ExitPrice)
	assert.InDelta(t, -20.0, riskMgr.DailyPnL(), 1e-9)

	// A second pass must not double-book anything.
	mgr.CheckPositions(ctx)
	assert.Len(t, riskMgr.History(), 2)
}

func TestCheckPositionsPollsBracketsWhenFetchFails(t *testing.T) {
	mgr, mock, riskMgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)
	pos := mgr.Positions()[0]

	// Positions endpoint is down, but the stop fill is still visible
	// through the order endpoint and must be booked now.
	mock.MarkFilled(pos.StopOrderID, 98)
	mock.PositionsErr = &exchange.ConnectivityError{Op: "positions", Err: assert.AnError}
	mgr.CheckPositions(ctx)

	history := riskMgr.History()
	require.Len(t, history, 2)
	assert.Equal(t, 98.0, history[1].ExitPrice)
	// Liveness unknown, so the entry stays managed until a snapshot
	// confirms it is gone.
	assert.Len(t, mgr.Positions(), 1)

	mock.PositionsErr = nil
	mock.Live = nil
	mgr.CheckPositions(ctx)
	assert.Empty(t, mgr.Positions())
	assert.Len(t, riskMgr.History(), 2)
}

func TestPositionsSummary(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	assert.Equal(t, "no open positions", mgr.PositionsSummary())

	_, err := mgr.ExecuteSignal(context.Background(), buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)
	summary := mgr.PositionsSummary()
	assert.Contains(t, summary, "BTC/USDT buy")
	assert.Contains(t, summary, "sl 98.0000")
}

func TestCheckPositionsDropsVanishedPosition(t *testing.T) {
	mgr, mock, riskMgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.ExecuteSignal(ctx, buySignal("BTC/USDT"), 10000)
	require.NoError(t, err)

	mock.Live = nil
	mgr.CheckPositions(ctx)
	assert.Empty(t, mgr.Positions())
	assert.Len(t, riskMgr.History(), 1) // entry only
	assert.Len(t, mock.Cancelled, 2)
}
