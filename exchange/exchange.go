// Package exchange defines the capability surface the trading core
// consumes and the paper implementation used for dry runs. Live
// connectors implement the same interface.
package exchange

import (
	"context"
	"errors"
	"fmt"

	"slowtrader/types"
)

var (
	// ErrOrderNotFound is returned when an order id is unknown.
	ErrOrderNotFound = errors.New("order not found")

	// ErrUnknownSymbol is returned when no market data exists for a
	// symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// OrderRequest is the input to PlaceOrder. Price is the limit price
// (ignored for market orders), StopPrice the trigger for stop orders.
type OrderRequest struct {
	Symbol    string
	Side      types.OrderSide
	Type      types.OrderType
	Quantity  float64
	Price     float64
	StopPrice float64
}

// Exchange is the full capability surface. All calls take a context;
// connectors are expected to honor cancellation on network paths.
//
// PlaceOrder returns a rejected order (not an error) when the request
// is well-formed but cannot be honored, e.g. insufficient balance.
// Errors are reserved for transport and protocol failures.
type Exchange interface {
	Name() string

	Ticker(ctx context.Context, symbol string) (types.Ticker, error)
	OHLCV(ctx context.Context, symbol, timeframe string, limit int) (types.Series, error)

	PortfolioValue(ctx context.Context) (float64, error)
	Positions(ctx context.Context) ([]types.Position, error)

	PlaceOrder(ctx context.Context, req OrderRequest) (types.Order, error)
	CancelOrder(ctx context.Context, id string) error
	Order(ctx context.Context, id string) (types.Order, error)
	OpenOrders(ctx context.Context, symbol string) ([]types.Order, error)
}

// ConnectivityError wraps a transport failure so callers can
// distinguish "the exchange is unreachable" from a domain error and
// keep state untouched for the next poll.
type ConnectivityError struct {
	Op  string // the operation that failed
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("exchange connectivity: %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// IsConnectivity reports whether err is (or wraps) a ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}
