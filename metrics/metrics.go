package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SignalsEvaluated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slowtrader_signals_evaluated_total",
			Help: "Strategy signals produced, by strategy and direction.",
		},
		[]string{"strategy", "signal"},
	)

	TradesBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slowtrader_trades_blocked_total",
			Help: "Trades rejected by the risk manager, by reason.",
		},
		[]string{"reason"},
	)

	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slowtrader_orders_submitted_total",
			Help: "Orders submitted to the exchange, by side and type.",
		},
		[]string{"side", "type"},
	)

	PositionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "slowtrader_positions_open",
			Help: "Managed positions currently tracked.",
		},
	)

	PortfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "slowtrader_portfolio_value",
			Help: "Portfolio value as of the last pass.",
		},
	)

	DailyPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "slowtrader_daily_pnl",
			Help: "Realized PnL accumulated today.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsEvaluated,
		TradesBlocked,
		OrdersSubmitted,
		PositionsOpen,
		PortfolioValue,
		DailyPnL,
	)
}
