// Package testutils provides the fakes shared across package tests: a
// scriptable exchange and a recording logger.
package testutils

import (
	"context"
	"fmt"

	"slowtrader/exchange"
	"slowtrader/logger"
	"slowtrader/types"
)

// MockExchange is a scriptable exchange.Exchange. Populate the public
// fields to stage responses; set Err to make every call fail, e.g.
// with a ConnectivityError.
type MockExchange struct {
	Prices map[string]float64
	Series map[string]types.Series
	Value  float64
	Live   []types.Position

	// Orders holds orders queryable by id; PlaceOrder adds to it.
	Orders map[string]types.Order

	// Placed records every PlaceOrder request in call order.
	Placed []exchange.OrderRequest

	// Cancelled records every CancelOrder id.
	Cancelled []string

	// PlaceStatus is the status given to placed orders; defaults to
	// filled at the staged price.
	PlaceStatus types.OrderStatus

	// Err, when set, is returned by every method.
	Err error

	// PositionsErr, when set, fails only the Positions call.
	PositionsErr error

	nextID int
}

var _ exchange.Exchange = (*MockExchange)(nil)

func NewMockExchange() *MockExchange {
	return &MockExchange{
		Prices: make(map[string]float64),
		Series: make(map[string]types.Series),
		Orders: make(map[string]types.Order),
	}
}

func (m *MockExchange) Name() string { return "mock" }

func (m *MockExchange) Ticker(_ context.Context, symbol string) (types.Ticker, error) {
	if m.Err != nil {
		return types.Ticker{}, m.Err
	}
	price, ok := m.Prices[symbol]
	if !ok {
		return types.Ticker{}, exchange.ErrUnknownSymbol
	}
	return types.Ticker{Symbol: symbol, Bid: price, Ask: price, Last: price}, nil
}

func (m *MockExchange) OHLCV(_ context.Context, symbol, _ string, limit int) (types.Series, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.Series[symbol]
	if !ok {
		return nil, exchange.ErrUnknownSymbol
	}
	if limit > 0 && len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s, nil
}

func (m *MockExchange) PortfolioValue(_ context.Context) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Value, nil
}

func (m *MockExchange) Positions(_ context.Context) ([]types.Position, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.PositionsErr != nil {
		return nil, m.PositionsErr
	}
	return m.Live, nil
}

func (m *MockExchange) PlaceOrder(_ context.Context, req exchange.OrderRequest) (types.Order, error) {
	if m.Err != nil {
		return types.Order{}, m.Err
	}
	m.Placed = append(m.Placed, req)
	m.nextID++

	status := m.PlaceStatus
	if status == "" {
		status = types.OrderStatusFilled
		if req.Type != types.OrderTypeMarket {
			status = types.OrderStatusOpen
		}
	}
	order := types.Order{
		ID:        fmt.Sprintf("order-%d", m.nextID),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Price:     req.Price,
		StopPrice: req.StopPrice,
		Status:    status,
	}
	if status == types.OrderStatusFilled {
		order.FilledQty = req.Quantity
		order.FilledPrice = m.Prices[req.Symbol]
	}
	m.Orders[order.ID] = order
	return order, nil
}

func (m *MockExchange) CancelOrder(_ context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	order, ok := m.Orders[id]
	if !ok {
		return exchange.ErrOrderNotFound
	}
	order.Status = types.OrderStatusCancelled
	m.Orders[id] = order
	m.Cancelled = append(m.Cancelled, id)
	return nil
}

func (m *MockExchange) Order(_ context.Context, id string) (types.Order, error) {
	if m.Err != nil {
		return types.Order{}, m.Err
	}
	order, ok := m.Orders[id]
	if !ok {
		return types.Order{}, exchange.ErrOrderNotFound
	}
	return order, nil
}

func (m *MockExchange) OpenOrders(_ context.Context, symbol string) ([]types.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []types.Order
	for _, o := range m.Orders {
		if o.Status != types.OrderStatusOpen {
			continue
		}
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// MarkFilled flips an order to filled at the given price, the way a
// bracket fill would appear on the next poll.
func (m *MockExchange) MarkFilled(id string, price float64) {
	order := m.Orders[id]
	order.Status = types.OrderStatusFilled
	order.FilledQty = order.Quantity
	order.FilledPrice = price
	m.Orders[id] = order
}

// LogEntry is one captured log call.
type LogEntry struct {
	Level  string
	Msg    string
	Fields []logger.Field
}

// MockLogger records log calls for assertions.
type MockLogger struct {
	Entries []LogEntry
}

var _ logger.Logger = (*MockLogger)(nil)

func (l *MockLogger) Info(msg string, fields ...logger.Field) {
	l.Entries = append(l.Entries, LogEntry{Level: "info", Msg: msg, Fields: fields})
}

func (l *MockLogger) Warn(msg string, fields ...logger.Field) {
	l.Entries = append(l.Entries, LogEntry{Level: "warn", Msg: msg, Fields: fields})
}

func (l *MockLogger) Error(msg string, fields ...logger.Field) {
	l.Entries = append(l.Entries, LogEntry{Level: "error", Msg: msg, Fields: fields})
}

// Contains reports whether any entry's message equals msg.
func (l *MockLogger) Contains(msg string) bool {
	for _, e := range l.Entries {
		if e.Msg == msg {
			return true
		}
	}
	return false
}
