package strategy

import (
	"fmt"

	"slowtrader/config"
	"slowtrader/indicator"
	"slowtrader/logger"
)

// FromConfig builds a strategy from its config entry. The variant set
// is closed; unknown names are an error so a typo in the config fails
// at startup instead of silently dropping a strategy.
func FromConfig(cfg config.StrategyConfig) (Strategy, error) {
	p := cfg.Params
	maType := indicator.MAType(cfg.MAType)
	switch cfg.Name {
	case "ma_crossover":
		return NewMACrossover(
			int(param(p, "fast_period", 10)),
			int(param(p, "slow_period", 20)),
			maType,
		), nil
	case "triple_ma":
		return NewTripleMA(
			int(param(p, "short_period", 5)),
			int(param(p, "medium_period", 10)),
			int(param(p, "long_period", 20)),
			maType,
		), nil
	case "rsi":
		return NewRSIStrategy(
			int(param(p, "period", 14)),
			param(p, "overbought", 70),
			param(p, "oversold", 30),
		), nil
	case "rsi_divergence":
		return NewRSIDivergence(
			int(param(p, "period", 14)),
			int(param(p, "lookback", 10)),
		), nil
	case "macd":
		return NewMACDStrategy(
			int(param(p, "fast_period", 12)),
			int(param(p, "slow_period", 26)),
			int(param(p, "signal_period", 9)),
		), nil
	case "macd_histogram":
		return NewMACDHistogram(
			int(param(p, "fast_period", 12)),
			int(param(p, "slow_period", 26)),
			int(param(p, "signal_period", 9)),
		), nil
	case "combined":
		return NewCombined(CombinedParams{
			EMAPeriod:     int(param(p, "ema_period", 20)),
			RSIPeriod:     int(param(p, "rsi_period", 14)),
			RSIOverbought: param(p, "rsi_overbought", 70),
			RSIOversold:   param(p, "rsi_oversold", 30),
			MACDFast:      int(param(p, "macd_fast", 12)),
			MACDSlow:      int(param(p, "macd_slow", 26)),
			MACDSignal:    int(param(p, "macd_signal", 9)),
			Quorum:        int(param(p, "min_confirmations", 2)),
		}), nil
	case "trend_following":
		return NewTrendFollowing(TrendFollowingParams{
			ShortEMA:     int(param(p, "short_ema", 10)),
			LongEMA:      int(param(p, "long_ema", 50)),
			ADXPeriod:    int(param(p, "adx_period", 14)),
			ADXThreshold: param(p, "adx_threshold", 25),
			ATRPeriod:    int(param(p, "atr_period", 14)),
		}), nil
	case "mean_reversion":
		return NewMeanReversion(MeanReversionParams{
			BBPeriod:   int(param(p, "bb_period", 20)),
			BBStdDev:   param(p, "bb_std", 2.0),
			RSIPeriod:  int(param(p, "rsi_period", 14)),
			RSIExtreme: param(p, "rsi_extreme", 20),
		}), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", cfg.Name)
}

// ManagerFromConfig assembles a Manager from all enabled entries.
func ManagerFromConfig(cfgs []config.StrategyConfig, log logger.Logger) (*Manager, error) {
	var strategies []Strategy
	for _, sc := range cfgs {
		if !sc.Enabled {
			continue
		}
		strat, err := FromConfig(sc)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, strat)
	}
	return NewManager(log, strategies...), nil
}
