// Command slowtrader runs the trading loop against the paper exchange:
// load config, seed market data, evaluate the strategy set on a timer
// and route consensus signals through the risk gate to the executor.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"slowtrader/config"
	"slowtrader/engine"
	"slowtrader/exchange"
	"slowtrader/executor"
	"slowtrader/logger"
	"slowtrader/risk"
	"slowtrader/strategy"
)

const initialPaperBalance = 10000

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("fatal", logger.Err(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func run(cfg *config.Config, log logger.Logger) error {
	quote := cfg.Pairs[0].QuoteCurrency
	if quote == "" {
		quote = "USDT"
	}
	paper := exchange.NewPaper(quote, initialPaperBalance, log)

	symbols := make([]string, 0, len(cfg.Pairs))
	for _, pair := range cfg.Pairs {
		paper.GenerateSeries(pair.Symbol, 100, cfg.CandleLimit, timeframeDuration(cfg.Timeframe))
		symbols = append(symbols, pair.Symbol)
	}

	strategies, err := strategy.ManagerFromConfig(cfg.Strategies, log)
	if err != nil {
		return err
	}
	riskMgr := risk.NewManager(risk.LimitsFromConfig(cfg.Risk), log)
	exec := executor.NewManager(paper, riskMgr, log, cfg.DryRun)
	eng := engine.New(paper, strategies, exec, log, cfg.Timeframe, cfg.CandleLimit)

	if cfg.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				log.Warn("metrics server stopped", logger.Err(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	names := make([]string, 0, len(strategies.Strategies()))
	for _, s := range strategies.Strategies() {
		names = append(names, s.Name())
	}
	log.Info("trading loop starting",
		logger.String("exchange", paper.Name()),
		logger.Int("symbols", len(symbols)),
		logger.Int("strategies", len(names)),
		logger.Bool("dry_run", cfg.DryRun),
		logger.Int("check_interval_minutes", cfg.CheckIntervalMinutes))

	interval := time.Duration(cfg.CheckIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runPass(ctx, eng, paper, cfg, symbols, log)
	for {
		select {
		case <-ctx.Done():
			stats := riskMgr.Stats()
			log.Info("session summary",
				logger.Int("total_trades", stats.TotalTrades),
				logger.Int("winning_trades", stats.WinningTrades),
				logger.Float64("win_rate", stats.WinRate),
				logger.Float64("total_pnl", stats.TotalPnL),
				logger.Float64("peak_portfolio", stats.PeakPortfolio))
			log.Info("positions at shutdown",
				logger.String("summary", exec.PositionsSummary()))
			return nil
		case <-ticker.C:
			runPass(ctx, eng, paper, cfg, symbols, log)
		}
	}
}

func runPass(ctx context.Context, eng *engine.Engine, exch exchange.Exchange, cfg *config.Config, symbols []string, log logger.Logger) {
	if !withinTradingWindow(cfg, time.Now()) {
		log.Info("outside trading window, skipping pass")
		return
	}
	value, err := exch.PortfolioValue(ctx)
	if err != nil {
		if exchange.IsConnectivity(err) {
			log.Warn("exchange unreachable, pass skipped", logger.Err(err))
			return
		}
		log.Error("portfolio value fetch failed", logger.Err(err))
		return
	}
	orders := eng.RunPass(ctx, symbols, value)
	if len(orders) > 0 {
		log.Info("pass complete", logger.Int("orders_executed", len(orders)))
	}
}

// withinTradingWindow checks the configured hours and days. Days use
// Monday as 0.
func withinTradingWindow(cfg *config.Config, now time.Time) bool {
	hour := now.Hour()
	if hour < cfg.TradingHoursStart || hour >= cfg.TradingHoursEnd {
		return false
	}
	day := (int(now.Weekday()) + 6) % 7
	for _, d := range cfg.TradingDays {
		if d == day {
			return true
		}
	}
	return false
}

func timeframeDuration(tf string) time.Duration {
	switch tf {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}
