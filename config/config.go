// Package config defines the typed configuration the rest of the system
// consumes. Loading goes through viper (yaml file plus SLOWTRADER_*
// environment overrides); the core packages only ever see the structs.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ExchangeConfig selects and authenticates the exchange connector.
type ExchangeConfig struct {
	Name      string `mapstructure:"name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Testnet   bool   `mapstructure:"testnet"`
}

// StrategyConfig enables one strategy with its parameters. Params keys
// are strategy-specific (periods, thresholds); unknown keys are ignored.
type StrategyConfig struct {
	Name    string             `mapstructure:"name"`
	Enabled bool               `mapstructure:"enabled"`
	MAType  string             `mapstructure:"ma_type"`
	Params  map[string]float64 `mapstructure:"params"`
}

// RiskConfig mirrors risk.Limits; see that package for the semantics.
type RiskConfig struct {
	MaxPositionSize         float64 `mapstructure:"max_position_size"`
	MaxDailyLoss            float64 `mapstructure:"max_daily_loss"`
	MaxDrawdown             float64 `mapstructure:"max_drawdown"`
	StopLossPct             float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct           float64 `mapstructure:"take_profit_pct"`
	MaxOpenPositions        int     `mapstructure:"max_open_positions"`
	MinTradeIntervalMinutes int     `mapstructure:"min_trade_interval_minutes"`
	MaxTradesPerDay         int     `mapstructure:"max_trades_per_day"`
}

// PairConfig describes one tradable symbol.
type PairConfig struct {
	Symbol            string `mapstructure:"symbol"`
	BaseCurrency      string `mapstructure:"base_currency"`
	QuoteCurrency     string `mapstructure:"quote_currency"`
	QuantityPrecision int    `mapstructure:"quantity_precision"`
}

// Config is the root of the configuration tree.
type Config struct {
	Exchange   ExchangeConfig   `mapstructure:"exchange"`
	Strategies []StrategyConfig `mapstructure:"strategies"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Pairs      []PairConfig     `mapstructure:"pairs"`

	// Scheduling for the outer poll loop.
	CheckIntervalMinutes int   `mapstructure:"check_interval_minutes"`
	TradingHoursStart    int   `mapstructure:"trading_hours_start"`
	TradingHoursEnd      int   `mapstructure:"trading_hours_end"`
	TradingDays          []int `mapstructure:"trading_days"` // 0=Monday

	Timeframe   string `mapstructure:"timeframe"`
	CandleLimit int    `mapstructure:"candle_limit"`
	DryRun      bool   `mapstructure:"dry_run"`
	LogLevel    string `mapstructure:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Default returns a configuration suitable for paper trading out of the
// box.
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{Name: "paper", Testnet: true},
		Strategies: []StrategyConfig{
			{Name: "ma_crossover", Enabled: true},
			{Name: "rsi", Enabled: true},
			{Name: "macd", Enabled: true},
		},
		Risk: RiskConfig{
			MaxPositionSize:         0.1,
			MaxDailyLoss:            0.05,
			MaxDrawdown:             0.15,
			StopLossPct:             0.02,
			TakeProfitPct:           0.05,
			MaxOpenPositions:        5,
			MinTradeIntervalMinutes: 30,
			MaxTradesPerDay:         10,
		},
		Pairs:                []PairConfig{{Symbol: "BTC/USDT", BaseCurrency: "BTC", QuoteCurrency: "USDT", QuantityPrecision: 8}},
		CheckIntervalMinutes: 15,
		TradingHoursStart:    0,
		TradingHoursEnd:      24,
		TradingDays:          []int{0, 1, 2, 3, 4, 5, 6},
		Timeframe:            "1h",
		CandleLimit:          200,
		DryRun:               true,
		LogLevel:             "info",
		MetricsAddr:          ":9090",
	}
}

// Load reads a yaml config file, applies SLOWTRADER_* environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SLOWTRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the numeric fields for sensible bounds and returns
// the first violation.
func (c *Config) Validate() error {
	if len(c.Pairs) == 0 {
		return errors.New("at least one trading pair is required")
	}
	for _, p := range c.Pairs {
		if p.Symbol == "" {
			return errors.New("pair symbol cannot be empty")
		}
	}
	enabled := 0
	for _, s := range c.Strategies {
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return errors.New("at least one strategy must be enabled")
	}
	r := c.Risk
	if r.MaxPositionSize <= 0 || r.MaxPositionSize > 1 {
		return fmt.Errorf("risk.max_position_size (%f) must be >0 and <=1", r.MaxPositionSize)
	}
	if r.MaxDailyLoss <= 0 || r.MaxDailyLoss > 1 {
		return fmt.Errorf("risk.max_daily_loss (%f) must be >0 and <=1", r.MaxDailyLoss)
	}
	if r.MaxDrawdown <= 0 || r.MaxDrawdown > 1 {
		return fmt.Errorf("risk.max_drawdown (%f) must be >0 and <=1", r.MaxDrawdown)
	}
	if r.StopLossPct <= 0 || r.StopLossPct > 0.5 {
		return fmt.Errorf("risk.stop_loss_pct (%f) must be >0 and <=0.5", r.StopLossPct)
	}
	if r.TakeProfitPct <= 0 || r.TakeProfitPct > 5 {
		return fmt.Errorf("risk.take_profit_pct (%f) out of realistic range", r.TakeProfitPct)
	}
	if r.MaxOpenPositions <= 0 {
		return errors.New("risk.max_open_positions must be positive")
	}
	if r.MinTradeIntervalMinutes < 0 {
		return errors.New("risk.min_trade_interval_minutes cannot be negative")
	}
	if r.MaxTradesPerDay <= 0 {
		return errors.New("risk.max_trades_per_day must be positive")
	}
	if c.CheckIntervalMinutes <= 0 {
		return errors.New("check_interval_minutes must be positive")
	}
	if c.TradingHoursStart < 0 || c.TradingHoursStart > 23 {
		return fmt.Errorf("trading_hours_start (%d) must be in [0,23]", c.TradingHoursStart)
	}
	if c.TradingHoursEnd <= c.TradingHoursStart || c.TradingHoursEnd > 24 {
		return fmt.Errorf("trading_hours_end (%d) must be in (start,24]", c.TradingHoursEnd)
	}
	if c.CandleLimit <= 0 {
		return errors.New("candle_limit must be positive")
	}
	return nil
}
