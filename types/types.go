// Package types holds the value types shared across the trading core:
// candles, signals, orders and positions. Everything here is a plain
// struct or string enum; none of it carries behavior beyond small
// accessors.
package types

import "time"

// Signal is the directional verdict of a strategy or indicator.
type Signal string

const (
	SignalBuy        Signal = "buy"
	SignalSell       Signal = "sell"
	SignalHold       Signal = "hold"
	SignalCloseLong  Signal = "close_long"
	SignalCloseShort Signal = "close_short"
)

// IsActionable reports whether the signal should reach the order layer.
// Hold never does.
func (s Signal) IsActionable() bool {
	switch s {
	case SignalBuy, SignalSell, SignalCloseLong, SignalCloseShort:
		return true
	}
	return false
}

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Series is an ordered run of candles with strictly increasing
// timestamps. It is handed to the core immutable for one evaluation;
// the caller keeps ownership.
type Series []Candle

// Closes returns the close prices of the series in order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// LastClose returns the most recent close, or 0 for an empty series.
func (s Series) LastClose() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}

// TradeSignal is the immutable output of a strategy evaluation (and of
// the consensus aggregator). StopLoss/TakeProfit of 0 mean "not set";
// prices are strictly positive everywhere in the core.
type TradeSignal struct {
	Signal     Signal
	Symbol     string
	Strategy   string
	Strength   float64 // 0..1
	Price      float64 // reference price at evaluation time
	StopLoss   float64
	TakeProfit float64
	Reason     string
	Indicators map[string]float64 // snapshot for reporting
}

// OrderSide distinguishes buys from sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Opposite returns the closing side for a position opened on this side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType enumerates the order kinds the capability surface accepts.
type OrderType string

const (
	OrderTypeMarket   OrderType = "market"
	OrderTypeLimit    OrderType = "limit"
	OrderTypeStopLoss OrderType = "stop_loss"
)

// OrderStatus is the exchange-reported lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Order is produced and consumed via the exchange capability.
type Order struct {
	ID           string
	Symbol       string
	Side         OrderSide
	Type         OrderType
	Quantity     float64
	Price        float64 // limit price; 0 for market orders
	StopPrice    float64
	Status       OrderStatus
	FilledQty    float64
	FilledPrice  float64
	RejectReason string
	Fee          float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Position is a live exchange-reported position.
type Position struct {
	Symbol        string
	Side          OrderSide
	Quantity      float64
	EntryPrice    float64
	CurrentPrice  float64
	UnrealizedPnL float64
	RealizedPnL   float64
	CreatedAt     time.Time
}

// Ticker is the current top-of-book snapshot for a symbol.
type Ticker struct {
	Symbol string
	Bid    float64
	Ask    float64
	Last   float64
	Volume float64
}
