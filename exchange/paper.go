package exchange

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"slowtrader/logger"
	"slowtrader/types"
)

const (
	defaultFeeRate = 0.001 // 0.1% taker fee
	paperSpread    = 0.0005
)

var _ Exchange = (*Paper)(nil)

// balance tracks one currency. Total and available diverge only while
// funds are reserved by resting orders.
type balance struct {
	total     decimal.Decimal
	available decimal.Decimal
}

// Paper is an in-memory exchange for dry runs. Balances are kept as
// decimals so fee arithmetic is exact; the float surface is converted
// at the boundary. It fills market orders instantly at the current
// price (plus slippage), rests limit and stop orders, and matches them
// whenever the price is updated.
//
// Paper is not safe for concurrent use; the core drives it from a
// single goroutine.
type Paper struct {
	log      logger.Logger
	quote    string
	feeRate  decimal.Decimal
	slippage decimal.Decimal
	now      func() time.Time
	rng      *rand.Rand

	balances  map[string]*balance
	prices    map[string]float64
	series    map[string]types.Series
	orders    map[string]*types.Order
	positions map[string]*types.Position
}

// NewPaper creates a paper exchange funded with an initial quote
// currency balance.
func NewPaper(quoteCurrency string, initialBalance float64, log logger.Logger) *Paper {
	if log == nil {
		log = logger.NewNop()
	}
	p := &Paper{
		log:       log,
		quote:     quoteCurrency,
		feeRate:   decimal.NewFromFloat(defaultFeeRate),
		slippage:  decimal.Zero,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		balances:  make(map[string]*balance),
		prices:    make(map[string]float64),
		series:    make(map[string]types.Series),
		orders:    make(map[string]*types.Order),
		positions: make(map[string]*types.Position),
	}
	amt := decimal.NewFromFloat(initialBalance)
	p.balances[quoteCurrency] = &balance{total: amt, available: amt}
	return p
}

func (p *Paper) Name() string { return "paper" }

// SetFeeRate overrides the default taker fee.
func (p *Paper) SetFeeRate(rate float64) {
	p.feeRate = decimal.NewFromFloat(rate)
}

// SetSlippage sets the fractional price penalty applied to market
// fills. Zero by default so fills are deterministic in tests.
func (p *Paper) SetSlippage(s float64) {
	p.slippage = decimal.NewFromFloat(s)
}

// SetPrice updates the mark price for a symbol and matches any resting
// orders against it.
func (p *Paper) SetPrice(symbol string, price float64) {
	p.prices[symbol] = price
	p.matchOpenOrders(symbol, price)
}

// SetSeries installs a candle series for a symbol and marks the price
// at its last close.
func (p *Paper) SetSeries(symbol string, s types.Series) {
	p.series[symbol] = s
	if len(s) > 0 {
		p.SetPrice(symbol, s[len(s)-1].Close)
	}
}

// GenerateSeries seeds a symbol with a random-walk series of n candles
// ending now. Useful for demos where no historical data is wired in.
func (p *Paper) GenerateSeries(symbol string, start float64, n int, interval time.Duration) {
	s := make(types.Series, 0, n)
	price := start
	ts := p.now().Add(-time.Duration(n) * interval)
	for i := 0; i < n; i++ {
		drift := price * (p.rng.Float64() - 0.5) * 0.02
		open := price
		closePx := price + drift
		high := math.Max(open, closePx) * (1 + p.rng.Float64()*0.005)
		low := math.Min(open, closePx) * (1 - p.rng.Float64()*0.005)
		s = append(s, types.Candle{
			Timestamp: ts,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePx,
			Volume:    100 + p.rng.Float64()*900,
		})
		price = closePx
		ts = ts.Add(interval)
	}
	p.SetSeries(symbol, s)
}

// Balance returns the total and available amount of a currency.
func (p *Paper) Balance(currency string) (total, available float64) {
	b, ok := p.balances[currency]
	if !ok {
		return 0, 0
	}
	t, _ := b.total.Float64()
	a, _ := b.available.Float64()
	return t, a
}

func (p *Paper) Ticker(_ context.Context, symbol string) (types.Ticker, error) {
	price, ok := p.prices[symbol]
	if !ok {
		return types.Ticker{}, fmt.Errorf("ticker %s: %w", symbol, ErrUnknownSymbol)
	}
	return types.Ticker{
		Symbol: symbol,
		Bid:    price * (1 - paperSpread),
		Ask:    price * (1 + paperSpread),
		Last:   price,
	}, nil
}

func (p *Paper) OHLCV(_ context.Context, symbol, _ string, limit int) (types.Series, error) {
	s, ok := p.series[symbol]
	if !ok {
		return nil, fmt.Errorf("ohlcv %s: %w", symbol, ErrUnknownSymbol)
	}
	if limit > 0 && len(s) > limit {
		s = s[len(s)-limit:]
	}
	out := make(types.Series, len(s))
	copy(out, s)
	return out, nil
}

// PortfolioValue marks every balance to the current price and sums in
// the quote currency.
func (p *Paper) PortfolioValue(_ context.Context) (float64, error) {
	total := decimal.Zero
	for cur, b := range p.balances {
		if cur == p.quote {
			total = total.Add(b.total)
			continue
		}
		price, ok := p.prices[cur+"/"+p.quote]
		if !ok {
			continue
		}
		total = total.Add(b.total.Mul(decimal.NewFromFloat(price)))
	}
	v, _ := total.Float64()
	return v, nil
}

func (p *Paper) Positions(_ context.Context) ([]types.Position, error) {
	out := make([]types.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		cp := *pos
		if price, ok := p.prices[pos.Symbol]; ok {
			cp.CurrentPrice = price
			if pos.Side == types.OrderSideBuy {
				cp.UnrealizedPnL = (price - pos.EntryPrice) * pos.Quantity
			} else {
				cp.UnrealizedPnL = (pos.EntryPrice - price) * pos.Quantity
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

func (p *Paper) PlaceOrder(_ context.Context, req OrderRequest) (types.Order, error) {
	if req.Quantity <= 0 {
		return types.Order{}, fmt.Errorf("place order %s: quantity must be positive", req.Symbol)
	}
	if _, ok := p.prices[req.Symbol]; !ok {
		return types.Order{}, fmt.Errorf("place order %s: %w", req.Symbol, ErrUnknownSymbol)
	}

	order := types.Order{
		ID:        uuid.NewString(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Price:     req.Price,
		StopPrice: req.StopPrice,
		Status:    types.OrderStatusPending,
		CreatedAt: p.now(),
		UpdatedAt: p.now(),
	}

	switch req.Type {
	case types.OrderTypeMarket:
		p.fill(&order, p.fillPrice(req.Symbol, req.Side))
	case types.OrderTypeLimit, types.OrderTypeStopLoss:
		order.Status = types.OrderStatusOpen
	default:
		return types.Order{}, fmt.Errorf("place order %s: unsupported type %q", req.Symbol, req.Type)
	}

	p.orders[order.ID] = &order
	if order.Status != types.OrderStatusRejected {
		p.log.Info("order accepted",
			logger.String("id", order.ID),
			logger.String("symbol", order.Symbol),
			logger.String("side", string(order.Side)),
			logger.String("type", string(order.Type)),
			logger.Float64("quantity", order.Quantity),
			logger.String("status", string(order.Status)))
	}
	return order, nil
}

func (p *Paper) CancelOrder(_ context.Context, id string) error {
	order, ok := p.orders[id]
	if !ok {
		return fmt.Errorf("cancel %s: %w", id, ErrOrderNotFound)
	}
	if order.Status != types.OrderStatusOpen && order.Status != types.OrderStatusPending {
		return fmt.Errorf("cancel %s: order is %s", id, order.Status)
	}
	order.Status = types.OrderStatusCancelled
	order.UpdatedAt = p.now()
	return nil
}

func (p *Paper) Order(_ context.Context, id string) (types.Order, error) {
	order, ok := p.orders[id]
	if !ok {
		return types.Order{}, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
	}
	return *order, nil
}

func (p *Paper) OpenOrders(_ context.Context, symbol string) ([]types.Order, error) {
	var out []types.Order
	for _, o := range p.orders {
		if o.Status != types.OrderStatusOpen {
			continue
		}
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

// fillPrice applies directional slippage to the mark price.
func (p *Paper) fillPrice(symbol string, side types.OrderSide) float64 {
	price := decimal.NewFromFloat(p.prices[symbol])
	if side == types.OrderSideBuy {
		price = price.Mul(decimal.NewFromInt(1).Add(p.slippage))
	} else {
		price = price.Mul(decimal.NewFromInt(1).Sub(p.slippage))
	}
	v, _ := price.Float64()
	return v
}

// fill settles an order against the balances. On insufficient funds it
// rejects the order instead of failing the call.
func (p *Paper) fill(order *types.Order, price float64) {
	base, quote, err := splitSymbol(order.Symbol)
	if err != nil {
		order.Status = types.OrderStatusRejected
		order.RejectReason = err.Error()
		return
	}

	qty := decimal.NewFromFloat(order.Quantity)
	px := decimal.NewFromFloat(price)
	cost := qty.Mul(px)
	fee := cost.Mul(p.feeRate)

	if order.Side == types.OrderSideBuy {
		qb := p.balance(quote)
		needed := cost.Add(fee)
		if qb.available.LessThan(needed) {
			order.Status = types.OrderStatusRejected
			order.RejectReason = "insufficient balance"
			return
		}
		qb.total = qb.total.Sub(needed)
		qb.available = qb.available.Sub(needed)
		bb := p.balance(base)
		bb.total = bb.total.Add(qty)
		bb.available = bb.available.Add(qty)
	} else {
		bb := p.balance(base)
		if bb.available.LessThan(qty) {
			order.Status = types.OrderStatusRejected
			order.RejectReason = "insufficient balance"
			return
		}
		bb.total = bb.total.Sub(qty)
		bb.available = bb.available.Sub(qty)
		qb := p.balance(quote)
		proceeds := cost.Sub(fee)
		qb.total = qb.total.Add(proceeds)
		qb.available = qb.available.Add(proceeds)
	}

	order.Status = types.OrderStatusFilled
	order.FilledQty = order.Quantity
	order.FilledPrice = price
	order.Fee, _ = fee.Float64()
	order.UpdatedAt = p.now()
	p.applyToPosition(order, price)
}

// applyToPosition maintains the position ledger: same-side fills
// average the entry, opposite fills reduce the position and realize
// PnL, a fully reduced position is removed.
func (p *Paper) applyToPosition(order *types.Order, price float64) {
	pos, ok := p.positions[order.Symbol]
	if !ok {
		p.positions[order.Symbol] = &types.Position{
			Symbol:     order.Symbol,
			Side:       order.Side,
			Quantity:   order.Quantity,
			EntryPrice: price,
			CreatedAt:  p.now(),
		}
		return
	}

	if pos.Side == order.Side {
		total := pos.Quantity + order.Quantity
		pos.EntryPrice = (pos.EntryPrice*pos.Quantity + price*order.Quantity) / total
		pos.Quantity = total
		return
	}

	closed := math.Min(pos.Quantity, order.Quantity)
	if pos.Side == types.OrderSideBuy {
		pos.RealizedPnL += (price - pos.EntryPrice) * closed
	} else {
		pos.RealizedPnL += (pos.EntryPrice - price) * closed
	}
	pos.Quantity -= closed
	if pos.Quantity <= 1e-12 {
		delete(p.positions, order.Symbol)
		return
	}
}

// matchOpenOrders fills resting orders whose trigger the new price
// crossed.
func (p *Paper) matchOpenOrders(symbol string, price float64) {
	for _, o := range p.orders {
		if o.Symbol != symbol || o.Status != types.OrderStatusOpen {
			continue
		}
		switch o.Type {
		case types.OrderTypeLimit:
			if o.Side == types.OrderSideBuy && price <= o.Price {
				p.fill(o, o.Price)
			} else if o.Side == types.OrderSideSell && price >= o.Price {
				p.fill(o, o.Price)
			}
		case types.OrderTypeStopLoss:
			if o.Side == types.OrderSideSell && price <= o.StopPrice {
				p.fill(o, price)
			} else if o.Side == types.OrderSideBuy && price >= o.StopPrice {
				p.fill(o, price)
			}
		}
	}
}

func (p *Paper) balance(currency string) *balance {
	b, ok := p.balances[currency]
	if !ok {
		b = &balance{}
		p.balances[currency] = b
	}
	return b
}

// splitSymbol parses "BASE/QUOTE".
func splitSymbol(symbol string) (base, quote string, err error) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed symbol %q", symbol)
	}
	return parts[0], parts[1], nil
}
