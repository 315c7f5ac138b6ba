// Package executor turns actionable signals into orders and owns the
// lifecycle of the resulting positions: entry, protective brackets,
// exit reconciliation. It is the only writer of managed position
// state.
package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"slowtrader/exchange"
	"slowtrader/logger"
	"slowtrader/metrics"
	"slowtrader/risk"
	"slowtrader/types"
)

// ManagedPosition is the executor's record of one open position and
// its protective orders. One per symbol.
type ManagedPosition struct {
	Symbol            string
	Side              types.OrderSide
	Quantity          float64
	EntryPrice        float64
	StopLoss          float64
	TakeProfit        float64
	EntryOrderID      string
	StopOrderID       string
	TakeProfitOrderID string
	OpenedAt          time.Time

	// exitRecorded guards against booking the same exit twice when
	// reconciliation sees a filled bracket on consecutive passes.
	exitRecorded bool
}

// Manager executes signals against the exchange under the risk gate.
// Not safe for concurrent use; the evaluation loop is its only caller.
type Manager struct {
	exch   exchange.Exchange
	risk   *risk.Manager
	log    logger.Logger
	dryRun bool

	positions map[string]*ManagedPosition
}

func NewManager(exch exchange.Exchange, riskMgr *risk.Manager, log logger.Logger, dryRun bool) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		exch:      exch,
		risk:      riskMgr,
		log:       log,
		dryRun:    dryRun,
		positions: make(map[string]*ManagedPosition),
	}
}

// Positions returns copies of the managed positions, sorted by symbol.
func (m *Manager) Positions() []ManagedPosition {
	out := make([]ManagedPosition, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// PositionsSummary renders the managed positions as one line per
// position for status reporting.
func (m *Manager) PositionsSummary() string {
	if len(m.positions) == 0 {
		return "no open positions"
	}
	var b strings.Builder
	for i, p := range m.Positions() {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s %s %.8f @ %.4f (sl %.4f, tp %.4f)",
			p.Symbol, p.Side, p.Quantity, p.EntryPrice, p.StopLoss, p.TakeProfit)
	}
	return b.String()
}

// ExecuteSignal runs one actionable signal through the full entry
// path: risk gate, sizing, market entry, protective brackets. It
// returns the entry order when one was placed; a nil order with nil
// error means the signal was legitimately not traded (hold, blocked,
// duplicate position, zero size, rejection). In dry-run mode the fill
// is simulated at the ticker price and tracked like a real position.
func (m *Manager) ExecuteSignal(ctx context.Context, sig types.TradeSignal, portfolioValue float64) (*types.Order, error) {
	if !sig.Signal.IsActionable() {
		return nil, nil
	}

	switch sig.Signal {
	case types.SignalCloseLong:
		return m.ClosePosition(ctx, sig.Symbol, types.OrderSideBuy)
	case types.SignalCloseShort:
		return m.ClosePosition(ctx, sig.Symbol, types.OrderSideSell)
	}

	if _, open := m.positions[sig.Symbol]; open {
		m.log.Info("skipping signal, position already open",
			logger.String("symbol", sig.Symbol))
		return nil, nil
	}

	if ok, reason := m.risk.CanTrade(portfolioValue, len(m.positions)); !ok {
		m.log.Info("signal blocked by risk gate",
			logger.String("symbol", sig.Symbol),
			logger.String("reason", reason))
		return nil, nil
	}

	ticker, err := m.exch.Ticker(ctx, sig.Symbol)
	if err != nil {
		return nil, fmt.Errorf("ticker %s: %w", sig.Symbol, err)
	}

	qty := m.risk.PositionSize(sig, portfolioValue, ticker.Last)
	if qty <= 0 {
		m.log.Warn("position size rounded to zero",
			logger.String("symbol", sig.Symbol),
			logger.Float64("price", ticker.Last))
		return nil, nil
	}

	side := types.OrderSideBuy
	if sig.Signal == types.SignalSell {
		side = types.OrderSideSell
	}

	if m.dryRun {
		return m.simulateEntry(sig, side, qty, ticker.Last), nil
	}

	entry, err := m.exch.PlaceOrder(ctx, exchange.OrderRequest{
		Symbol:   sig.Symbol,
		Side:     side,
		Type:     types.OrderTypeMarket,
		Quantity: qty,
	})
	if err != nil {
		return nil, fmt.Errorf("place entry order %s: %w", sig.Symbol, err)
	}
	if entry.Status == types.OrderStatusRejected {
		m.log.Warn("entry order rejected",
			logger.String("symbol", sig.Symbol),
			logger.String("reason", entry.RejectReason))
		return nil, nil
	}
	metrics.OrdersSubmitted.WithLabelValues(string(side), string(types.OrderTypeMarket)).Inc()

	fillPrice := entry.FilledPrice
	if fillPrice == 0 {
		fillPrice = ticker.Last
	}
	stop, takeProfit := m.bracketLevels(sig, side, fillPrice)

	pos := &ManagedPosition{
		Symbol:       sig.Symbol,
		Side:         side,
		Quantity:     entry.FilledQty,
		EntryPrice:   fillPrice,
		StopLoss:     stop,
		TakeProfit:   takeProfit,
		EntryOrderID: entry.ID,
		OpenedAt:     entry.UpdatedAt,
	}
	m.placeBrackets(ctx, pos)

	m.risk.RecordTrade(sig.Symbol, side, pos.Quantity, fillPrice, 0)
	m.positions[sig.Symbol] = pos
	metrics.PositionsOpen.Set(float64(len(m.positions)))

	m.log.Info("position opened",
		logger.String("symbol", sig.Symbol),
		logger.String("side", string(side)),
		logger.Float64("quantity", pos.Quantity),
		logger.Float64("entry_price", fillPrice),
		logger.Float64("stop_loss", stop),
		logger.Float64("take_profit", takeProfit),
		logger.String("reason", sig.Reason))
	return &entry, nil
}

// bracketLevels resolves the protective levels: signal-supplied prices
// win, otherwise the risk manager derives them from the fill price.
func (m *Manager) bracketLevels(sig types.TradeSignal, side types.OrderSide, fillPrice float64) (stop, takeProfit float64) {
	atr := sig.Indicators["atr"]
	stop = sig.StopLoss
	if stop == 0 {
		stop = m.risk.StopLoss(fillPrice, side, atr)
	}
	takeProfit = sig.TakeProfit
	if takeProfit == 0 {
		takeProfit = m.risk.TakeProfit(fillPrice, side, atr)
	}
	return stop, takeProfit
}

// simulateEntry books a dry-run fill at the ticker price without
// touching the exchange, so dry-run sessions still accumulate
// positions, trade history and stats.
func (m *Manager) simulateEntry(sig types.TradeSignal, side types.OrderSide, qty, price float64) *types.Order {
	stop, takeProfit := m.bracketLevels(sig, side, price)
	now := time.Now()
	order := types.Order{
		ID:          fmt.Sprintf("sim-%d", now.UnixNano()),
		Symbol:      sig.Symbol,
		Side:        side,
		Type:        types.OrderTypeMarket,
		Quantity:    qty,
		Status:      types.OrderStatusFilled,
		FilledQty:   qty,
		FilledPrice: price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.positions[sig.Symbol] = &ManagedPosition{
		Symbol:       sig.Symbol,
		Side:         side,
		Quantity:     qty,
		EntryPrice:   price,
		StopLoss:     stop,
		TakeProfit:   takeProfit,
		EntryOrderID: order.ID,
		OpenedAt:     now,
	}
	m.risk.RecordTrade(sig.Symbol, side, qty, price, 0)
	metrics.PositionsOpen.Set(float64(len(m.positions)))

	m.log.Info("dry run, simulated fill",
		logger.String("symbol", sig.Symbol),
		logger.String("side", string(side)),
		logger.Float64("quantity", qty),
		logger.Float64("entry_price", price),
		logger.Float64("stop_loss", stop),
		logger.Float64("take_profit", takeProfit),
		logger.String("reason", sig.Reason))
	return &order
}

// placeBrackets submits the protective stop and take-profit orders.
// Failures are logged, not fatal; the position stays managed and the
// close path still works without brackets.
func (m *Manager) placeBrackets(ctx context.Context, pos *ManagedPosition) {
	exitSide := pos.Side.Opposite()

	stop, err := m.exch.PlaceOrder(ctx, exchange.OrderRequest{
		Symbol:    pos.Symbol,
		Side:      exitSide,
		Type:      types.OrderTypeStopLoss,
		Quantity:  pos.Quantity,
		StopPrice: pos.StopLoss,
	})
	if err != nil {
		m.log.Warn("stop order failed",
			logger.String("symbol", pos.Symbol), logger.Err(err))
	} else if stop.Status == types.OrderStatusRejected {
		m.log.Warn("stop order rejected",
			logger.String("symbol", pos.Symbol),
			logger.String("reason", stop.RejectReason))
	} else {
		pos.StopOrderID = stop.ID
		metrics.OrdersSubmitted.WithLabelValues(string(exitSide), string(types.OrderTypeStopLoss)).Inc()
	}

	tp, err := m.exch.PlaceOrder(ctx, exchange.OrderRequest{
		Symbol:   pos.Symbol,
		Side:     exitSide,
		Type:     types.OrderTypeLimit,
		Quantity: pos.Quantity,
		Price:    pos.TakeProfit,
	})
	if err != nil {
		m.log.Warn("take-profit order failed",
			logger.String("symbol", pos.Symbol), logger.Err(err))
	} else if tp.Status == types.OrderStatusRejected {
		m.log.Warn("take-profit order rejected",
			logger.String("symbol", pos.Symbol),
			logger.String("reason", tp.RejectReason))
	} else {
		pos.TakeProfitOrderID = tp.ID
		metrics.OrdersSubmitted.WithLabelValues(string(exitSide), string(types.OrderTypeLimit)).Inc()
	}
}

// ClosePosition flattens the live position for a symbol with an
// opposing market order sized to the live quantity, records the
// realized trade and cancels any remaining brackets. No live position
// is a no-op. The managed record only supplies the bracket ids: a
// partially filled bracket can never cause an oversized close, and a
// position opened outside the manager still gets flattened.
// expectedSide guards routed close signals; pass "" to close
// regardless of side.
func (m *Manager) ClosePosition(ctx context.Context, symbol string, expectedSide types.OrderSide) (*types.Order, error) {
	managed := m.positions[symbol]
	if m.dryRun {
		return m.simulateClose(ctx, symbol, managed, expectedSide)
	}

	live, err := m.livePosition(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if live == nil {
		if managed != nil {
			m.log.Warn("no live position to close",
				logger.String("symbol", symbol))
		}
		return nil, nil
	}
	if expectedSide != "" && live.Side != expectedSide {
		m.log.Warn("close signal side mismatch",
			logger.String("symbol", symbol),
			logger.String("position_side", string(live.Side)),
			logger.String("requested_side", string(expectedSide)))
		return nil, nil
	}

	order, err := m.exch.PlaceOrder(ctx, exchange.OrderRequest{
		Symbol:   symbol,
		Side:     live.Side.Opposite(),
		Type:     types.OrderTypeMarket,
		Quantity: live.Quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("close %s: %w", symbol, err)
	}
	if order.Status == types.OrderStatusRejected {
		return nil, fmt.Errorf("close %s: order rejected: %s", symbol, order.RejectReason)
	}
	metrics.OrdersSubmitted.WithLabelValues(string(order.Side), string(types.OrderTypeMarket)).Inc()

	if managed == nil || !managed.exitRecorded {
		m.risk.RecordTrade(symbol, live.Side, live.Quantity, live.EntryPrice, order.FilledPrice)
	}
	if managed != nil {
		managed.exitRecorded = true
		m.cancelBrackets(ctx, managed)
		delete(m.positions, symbol)
	}
	metrics.PositionsOpen.Set(float64(len(m.positions)))

	m.log.Info("position closed",
		logger.String("symbol", symbol),
		logger.Float64("quantity", live.Quantity),
		logger.Float64("exit_price", order.FilledPrice),
		logger.Float64("pnl", risk.PnL(live.EntryPrice, order.FilledPrice, live.Quantity, live.Side)))
	return &order, nil
}

// livePosition fetches the exchange's position for one symbol; nil
// means flat.
func (m *Manager) livePosition(ctx context.Context, symbol string) (*types.Position, error) {
	live, err := m.exch.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	for i := range live {
		if live[i].Symbol == symbol {
			return &live[i], nil
		}
	}
	return nil, nil
}

// simulateClose exits a dry-run position at the current ticker price.
// Dry-run positions never exist on the exchange, so the managed record
// is authoritative here.
func (m *Manager) simulateClose(ctx context.Context, symbol string, pos *ManagedPosition, expectedSide types.OrderSide) (*types.Order, error) {
	if pos == nil {
		return nil, nil
	}
	if expectedSide != "" && pos.Side != expectedSide {
		m.log.Warn("close signal side mismatch",
			logger.String("symbol", symbol),
			logger.String("position_side", string(pos.Side)),
			logger.String("requested_side", string(expectedSide)))
		return nil, nil
	}
	ticker, err := m.exch.Ticker(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("ticker %s: %w", symbol, err)
	}

	now := time.Now()
	order := types.Order{
		ID:          fmt.Sprintf("sim-%d", now.UnixNano()),
		Symbol:      symbol,
		Side:        pos.Side.Opposite(),
		Type:        types.OrderTypeMarket,
		Quantity:    pos.Quantity,
		Status:      types.OrderStatusFilled,
		FilledQty:   pos.Quantity,
		FilledPrice: ticker.Last,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !pos.exitRecorded {
		m.risk.RecordTrade(symbol, pos.Side, pos.Quantity, pos.EntryPrice, ticker.Last)
		pos.exitRecorded = true
	}
	delete(m.positions, symbol)
	metrics.PositionsOpen.Set(float64(len(m.positions)))

	m.log.Info("dry run, simulated close",
		logger.String("symbol", symbol),
		logger.Float64("exit_price", ticker.Last),
		logger.Float64("pnl", risk.PnL(pos.EntryPrice, ticker.Last, pos.Quantity, pos.Side)))
	return &order, nil
}

func (m *Manager) cancelBrackets(ctx context.Context, pos *ManagedPosition) {
	for _, id := range []string{pos.StopOrderID, pos.TakeProfitOrderID} {
		if id == "" {
			continue
		}
		if err := m.exch.CancelOrder(ctx, id); err != nil {
			m.log.Warn("bracket cancel failed",
				logger.String("symbol", pos.Symbol),
				logger.String("order_id", id),
				logger.Err(err))
		}
	}
}

// CheckPositions reconciles managed state against the exchange. A
// filled bracket books the exit exactly once and retires the entry; a
// position that vanished without a bracket fill is dropped with its
// remaining brackets cancelled. Failures are isolated per symbol so
// one bad symbol cannot stall the rest; if the batched position fetch
// itself fails, bracket polling still runs and only the vanish check
// waits for the next pass.
func (m *Manager) CheckPositions(ctx context.Context) {
	if m.dryRun {
		m.checkSimulated(ctx)
		metrics.PositionsOpen.Set(float64(len(m.positions)))
		return
	}

	live, err := m.exch.Positions(ctx)
	liveKnown := err == nil
	if err != nil {
		m.log.Warn("position fetch failed, checking brackets only",
			logger.Err(err))
	}
	liveBySymbol := make(map[string]types.Position, len(live))
	for _, p := range live {
		liveBySymbol[p.Symbol] = p
	}

	for symbol, pos := range m.positions {
		m.checkPosition(ctx, symbol, pos, liveBySymbol, liveKnown)
	}
	metrics.PositionsOpen.Set(float64(len(m.positions)))
}

func (m *Manager) checkPosition(ctx context.Context, symbol string, pos *ManagedPosition, live map[string]types.Position, liveKnown bool) {
	for _, id := range []string{pos.StopOrderID, pos.TakeProfitOrderID} {
		if id == "" || pos.exitRecorded {
			continue
		}
		order, err := m.exch.Order(ctx, id)
		if err != nil {
			m.log.Warn("bracket status check failed",
				logger.String("symbol", symbol),
				logger.String("order_id", id),
				logger.Err(err))
			continue
		}
		if order.Status == types.OrderStatusFilled {
			m.risk.RecordTrade(symbol, pos.Side, pos.Quantity, pos.EntryPrice, order.FilledPrice)
			pos.exitRecorded = true
			m.log.Info("bracket filled",
				logger.String("symbol", symbol),
				logger.String("type", string(order.Type)),
				logger.Float64("exit_price", order.FilledPrice),
				logger.Float64("pnl", risk.PnL(pos.EntryPrice, order.FilledPrice, pos.Quantity, pos.Side)))
		}
	}

	// Without a trusted live snapshot the entry stays managed and the
	// vanish check retries next pass; exitRecorded keeps the exit
	// single-booked across passes.
	if !liveKnown {
		return
	}
	if _, stillOpen := live[symbol]; stillOpen {
		return
	}
	if !pos.exitRecorded {
		m.log.Warn("position vanished without a recorded exit",
			logger.String("symbol", symbol))
	}
	m.cancelBrackets(ctx, pos)
	delete(m.positions, symbol)
}

// checkSimulated plays the bracket levels against the current price
// for dry-run positions, since no protective orders rest on the
// exchange.
func (m *Manager) checkSimulated(ctx context.Context) {
	for symbol, pos := range m.positions {
		ticker, err := m.exch.Ticker(ctx, symbol)
		if err != nil {
			m.log.Warn("ticker fetch failed",
				logger.String("symbol", symbol), logger.Err(err))
			continue
		}
		price := ticker.Last

		var exit float64
		if pos.Side == types.OrderSideBuy {
			switch {
			case pos.StopLoss > 0 && price <= pos.StopLoss:
				exit = pos.StopLoss
			case pos.TakeProfit > 0 && price >= pos.TakeProfit:
				exit = pos.TakeProfit
			}
		} else {
			switch {
			case pos.StopLoss > 0 && price >= pos.StopLoss:
				exit = pos.StopLoss
			case pos.TakeProfit > 0 && price <= pos.TakeProfit:
				exit = pos.TakeProfit
			}
		}
		if exit == 0 {
			continue
		}

		if !pos.exitRecorded {
			m.risk.RecordTrade(symbol, pos.Side, pos.Quantity, pos.EntryPrice, exit)
			pos.exitRecorded = true
		}
		delete(m.positions, symbol)
		m.log.Info("dry run, simulated bracket exit",
			logger.String("symbol", symbol),
			logger.Float64("exit_price", exit),
			logger.Float64("pnl", risk.PnL(pos.EntryPrice, exit, pos.Quantity, pos.Side)))
	}
}
