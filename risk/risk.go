// Package risk gates trading and does the bookkeeping behind the gate:
// drawdown against the portfolio high-water mark, daily loss and trade
// caps, position sizing, and the append-only trade history. All state
// is owned here and mutated only through RecordTrade plus the daily
// reset inside CanTrade.
package risk

import (
	"math"
	"time"

	"slowtrader/config"
	"slowtrader/logger"
	"slowtrader/metrics"
	"slowtrader/types"
)

// fixedRiskPerTrade is the fraction of the portfolio risked between
// entry and stop on every trade.
const fixedRiskPerTrade = 0.01

// quantityPrecision is the decimal precision quantities are floored to.
const quantityPrecision = 8

// defaultRewardRisk is the take-profit distance as a multiple of the
// stop distance when sizing from volatility.
const defaultRewardRisk = 2.0

// Limits are the read-only risk parameters for a session.
type Limits struct {
	MaxPositionSize  float64 // fraction of portfolio per position
	MaxDailyLoss     float64 // fraction of peak value
	MaxDrawdown      float64 // fraction drop from peak value
	StopLossPct      float64
	TakeProfitPct    float64
	MaxOpenPositions int
	MinTradeInterval time.Duration
	MaxTradesPerDay  int
}

// DefaultLimits mirrors the paper-trading defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSize:  0.1,
		MaxDailyLoss:     0.05,
		MaxDrawdown:      0.15,
		StopLossPct:      0.02,
		TakeProfitPct:    0.05,
		MaxOpenPositions: 5,
		MinTradeInterval: 30 * time.Minute,
		MaxTradesPerDay:  10,
	}
}

// LimitsFromConfig converts the config section into Limits.
func LimitsFromConfig(cfg config.RiskConfig) Limits {
	return Limits{
		MaxPositionSize:  cfg.MaxPositionSize,
		MaxDailyLoss:     cfg.MaxDailyLoss,
		MaxDrawdown:      cfg.MaxDrawdown,
		StopLossPct:      cfg.StopLossPct,
		TakeProfitPct:    cfg.TakeProfitPct,
		MaxOpenPositions: cfg.MaxOpenPositions,
		MinTradeInterval: time.Duration(cfg.MinTradeIntervalMinutes) * time.Minute,
		MaxTradesPerDay:  cfg.MaxTradesPerDay,
	}
}

// TradeRecord is one entry of the append-only trade history. ExitPrice
// is 0 for entry-only records.
type TradeRecord struct {
	Symbol     string
	Side       types.OrderSide
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Timestamp  time.Time
}

// Stats summarizes the session for reporting.
type Stats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalPnL      float64
	DailyPnL      float64
	DailyTrades   int
	PeakPortfolio float64
}

// Manager enforces the limits and tracks trading state. It is owned by
// the single evaluation goroutine; no locking under that contract.
type Manager struct {
	limits Limits
	log    logger.Logger
	now    func() time.Time

	dailyPnL      float64
	dailyTrades   int
	lastTradeTime time.Time
	currentDay    time.Time // truncated to the calendar day
	peak          float64
	history       []TradeRecord
}

func NewManager(limits Limits, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	now := time.Now
	return &Manager{
		limits:     limits,
		log:        log,
		now:        now,
		currentDay: day(now()),
	}
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// resetDaily zeroes the daily counters when the calendar day rolls
// over. Called on every gate evaluation so a mid-pass rollover is
// picked up before the counters are read.
func (m *Manager) resetDaily() {
	today := day(m.now())
	if !today.Equal(m.currentDay) {
		m.dailyPnL = 0
		m.dailyTrades = 0
		m.currentDay = today
		metrics.DailyPnL.Set(0)
		m.log.Info("daily risk counters reset")
	}
}

// updatePeak raises the high-water mark; it never lowers it.
func (m *Manager) updatePeak(value float64) {
	if value > m.peak {
		m.peak = value
	}
}

// CanTrade evaluates every gating rule in order and returns the first
// failing reason. As side effects it rolls the daily counters on a new
// calendar day and raises the portfolio peak.
func (m *Manager) CanTrade(portfolioValue float64, openPositions int) (bool, string) {
	m.resetDaily()
	m.updatePeak(portfolioValue)

	if m.peak > 0 {
		drawdown := (m.peak - portfolioValue) / m.peak
		if drawdown > m.limits.MaxDrawdown {
			return m.blocked("Drawdown limit exceeded",
				logger.Float64("drawdown", drawdown),
				logger.Float64("limit", m.limits.MaxDrawdown))
		}
	}
	if m.dailyPnL < -m.limits.MaxDailyLoss*m.peak {
		return m.blocked("Daily loss limit exceeded",
			logger.Float64("daily_pnl", m.dailyPnL))
	}
	if !m.lastTradeTime.IsZero() && m.now().Sub(m.lastTradeTime) < m.limits.MinTradeInterval {
		return m.blocked("Trade frequency limit",
			logger.Float64("elapsed_min", m.now().Sub(m.lastTradeTime).Minutes()))
	}
	if m.dailyTrades >= m.limits.MaxTradesPerDay {
		return m.blocked("Daily trade count exceeded",
			logger.Int("daily_trades", m.dailyTrades))
	}
	if openPositions >= m.limits.MaxOpenPositions {
		return m.blocked("Max positions reached",
			logger.Int("open_positions", openPositions))
	}
	return true, "OK"
}

func (m *Manager) blocked(reason string, fields ...logger.Field) (bool, string) {
	metrics.TradesBlocked.WithLabelValues(reason).Inc()
	m.log.Warn("trade blocked", append([]logger.Field{logger.String("reason", reason)}, fields...)...)
	return false, reason
}

// PositionSize derives the quantity for a signal: risk a fixed 1% of
// the portfolio between entry and stop, cap at the max position
// fraction, scale by signal strength (weak signals still get half
// size), and floor to the quantity precision so capital is never
// over-committed by rounding.
func (m *Manager) PositionSize(sig types.TradeSignal, portfolioValue, price float64) float64 {
	stop := sig.StopLoss
	if stop == 0 {
		if sig.Signal == types.SignalBuy {
			stop = price * (1 - m.limits.StopLossPct)
		} else {
			stop = price * (1 + m.limits.StopLossPct)
		}
	}
	size := sizeByRisk(portfolioValue, fixedRiskPerTrade, price, stop, m.limits.MaxPositionSize)
	size *= math.Max(sig.Strength, 0.5)
	return RoundQuantity(size, quantityPrecision)
}

// StopLoss places the stop a fixed percentage from entry, or two ATRs
// away when a volatility estimate is supplied.
func (m *Manager) StopLoss(entry float64, side types.OrderSide, atr float64) float64 {
	dist := entry * m.limits.StopLossPct
	if atr > 0 {
		dist = 2 * atr
	}
	if side == types.OrderSideBuy {
		return entry - dist
	}
	return entry + dist
}

// TakeProfit mirrors StopLoss: percentage-based by default, stop
// distance times the reward:risk ratio when an ATR is supplied.
func (m *Manager) TakeProfit(entry float64, side types.OrderSide, atr float64) float64 {
	dist := entry * m.limits.TakeProfitPct
	if atr > 0 {
		dist = 2 * atr * defaultRewardRisk
	}
	if side == types.OrderSideBuy {
		return entry + dist
	}
	return entry - dist
}

// RecordTrade appends to the history, stamps the trade time and bumps
// the daily counter. Daily PnL moves only when an exit price is
// supplied (exit == 0 means entry-only). This is the sole mutator of
// risk state.
func (m *Manager) RecordTrade(symbol string, side types.OrderSide, quantity, entry, exit float64) {
	pnl := 0.0
	if exit > 0 {
		pnl = PnL(entry, exit, quantity, side)
		m.dailyPnL += pnl
		metrics.DailyPnL.Set(m.dailyPnL)
	}
	m.history = append(m.history, TradeRecord{
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		EntryPrice: entry,
		ExitPrice:  exit,
		PnL:        pnl,
		Timestamp:  m.now(),
	})
	m.dailyTrades++
	m.lastTradeTime = m.now()

	fields := []logger.Field{
		logger.String("symbol", symbol),
		logger.String("side", string(side)),
		logger.Float64("quantity", quantity),
		logger.Float64("entry_price", entry),
	}
	if exit > 0 {
		fields = append(fields, logger.Float64("exit_price", exit), logger.Float64("pnl", pnl))
	}
	m.log.Info("trade recorded", fields...)
}

// DailyPnL returns today's realized PnL.
func (m *Manager) DailyPnL() float64 { return m.dailyPnL }

// DailyTrades returns the number of trades recorded today.
func (m *Manager) DailyTrades() int { return m.dailyTrades }

// Peak returns the portfolio high-water mark.
func (m *Manager) Peak() float64 { return m.peak }

// History returns a copy of the trade history.
func (m *Manager) History() []TradeRecord {
	out := make([]TradeRecord, len(m.history))
	copy(out, m.history)
	return out
}

// Stats summarizes the recorded trades.
func (m *Manager) Stats() Stats {
	s := Stats{
		TotalTrades:   len(m.history),
		DailyPnL:      m.dailyPnL,
		DailyTrades:   m.dailyTrades,
		PeakPortfolio: m.peak,
	}
	for _, t := range m.history {
		s.TotalPnL += t.PnL
		if t.PnL > 0 {
			s.WinningTrades++
		}
	}
	s.LosingTrades = s.TotalTrades - s.WinningTrades
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)
	}
	return s
}

// sizeByRisk converts a per-trade risk budget into a quantity, capped
// at the maximum position fraction of the portfolio.
func sizeByRisk(portfolioValue, riskPerTrade, entry, stop, maxPositionPct float64) float64 {
	if entry <= 0 || stop <= 0 {
		return 0
	}
	riskPerUnit := math.Abs(entry - stop)
	if riskPerUnit == 0 {
		return 0
	}
	size := portfolioValue * riskPerTrade / riskPerUnit
	maxSize := portfolioValue * maxPositionPct / entry
	return math.Min(size, maxSize)
}

// RoundQuantity floors a quantity to the given decimal precision.
// Flooring, never rounding, so a computed size cannot exceed its risk
// budget.
func RoundQuantity(q float64, precision int) float64 {
	factor := math.Pow(10, float64(precision))
	return math.Floor(q*factor) / factor
}

// PnL is the realized profit for a closed trade.
func PnL(entry, exit, quantity float64, side types.OrderSide) float64 {
	if side == types.OrderSideBuy {
		return (exit - entry) * quantity
	}
	return (entry - exit) * quantity
}
