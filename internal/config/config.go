package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// WeightsConfig holds the non-negative factor weights for scoring.
type WeightsConfig struct {
	Trend     float64 `yaml:"trend"`
	Momentum  float64 `yaml:"momentum"`
	Stability float64 `yaml:"stability"`
	Volume    float64 `yaml:"volume"`
}

// StrategyConfig controls the ranking engine.
type StrategyConfig struct {
	Weights              WeightsConfig `yaml:"weights"`
	EnabledModes         []string      `yaml:"enabled_modes"`
	MaxSymbolsPerRun     int           `yaml:"max_symbols_per_run"`
	ProgressEvery        int           `yaml:"progress_every"`
	FailedSymbolExamples int           `yaml:"failed_symbol_examples"`
}

// MarketFilterConfig controls index regime detection.
type MarketFilterConfig struct {
	Enabled      bool   `yaml:"enabled"`
	IndexSymbol  string `yaml:"index_symbol"`
	LookbackDays int    `yaml:"lookback_days"`
	BlockOnBear  bool   `yaml:"block_on_bear"`
}

// WeakMarketConfig tightens risk caps when the market is not bullish.
type WeakMarketConfig struct {
	Enabled              bool    `yaml:"enabled"`
	MaxVol20Std          float64 `yaml:"max_vol20_std"`
	RequireMom20Positive bool    `yaml:"require_mom20_positive"`
}

// RiskFilterConfig gates candidates on per-symbol risk rules.
type RiskFilterConfig struct {
	Enabled             bool             `yaml:"enabled"`
	MinPrice            float64          `yaml:"min_price"`
	MaxPrice            float64          `yaml:"max_price"`
	RSIUpper            float64          `yaml:"rsi_upper"`
	MaxVol20Std         float64          `yaml:"max_vol20_std"`
	MinVolRatio520      float64          `yaml:"min_vol_ratio_5_20"`
	RequireTurnoverData bool             `yaml:"require_turnover_data"`
	MinTurnoverRate     float64          `yaml:"min_turnover_rate"`
	WeakMarket          WeakMarketConfig `yaml:"weak_market"`
}

// RiskTargetsConfig derives stop-loss / take-profit prices.
type RiskTargetsConfig struct {
	Method            string  `yaml:"method"` // "atr" or "percent"
	StopLossPct       float64 `yaml:"stop_loss_pct"`
	TakeProfitPct     float64 `yaml:"take_profit_pct"`
	StopLossATRMult   float64 `yaml:"stop_loss_atr_mult"`
	TakeProfitATRMult float64 `yaml:"take_profit_atr_mult"`
	PriceRoundTick    float64 `yaml:"price_round_tick"`
}

// ExecutionCostConfig models round-trip trading friction in backtests.
type ExecutionCostConfig struct {
	Enabled              bool    `yaml:"enabled"`
	CommissionRate       float64 `yaml:"commission_rate"`
	StampDutySellRate    float64 `yaml:"stamp_duty_sell_rate"`
	SlippageBps          float64 `yaml:"slippage_bps"`
	MinCommissionPerSide float64 `yaml:"min_commission_per_side"`
}

// DataFreshnessConfig controls the pre-flight probe that verifies the
// data source already has bars for the signal date.
type DataFreshnessConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ProbeSymbol       string `yaml:"probe_symbol"`
	ProbeLookbackDays int    `yaml:"probe_lookback_days"`
	StopOnStale       bool   `yaml:"stop_on_stale"`
}

// FiltersConfig controls board and status exclusion in the universe.
type FiltersConfig struct {
	ExcludeStarBoard bool `yaml:"exclude_star_board"`
	ExcludeBJBoard   bool `yaml:"exclude_bj_board"`
	ExcludeGEMBoard  bool `yaml:"exclude_gem_board"`
	ExcludeST        bool `yaml:"exclude_st"`
}

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		RequestTimeoutSec float64 `yaml:"request_timeout_sec"`
		HistRetries       int     `yaml:"hist_retries"`
		CacheEnabled      bool    `yaml:"cache_enabled"`
		CachePath         string  `yaml:"cache_path"`
	} `yaml:"data_source"`
	Strategy      StrategyConfig      `yaml:"strategy"`
	MarketFilter  MarketFilterConfig  `yaml:"market_filter"`
	RiskFilter    RiskFilterConfig    `yaml:"risk_filter"`
	RiskTargets   RiskTargetsConfig   `yaml:"risk_targets"`
	ExecutionCost ExecutionCostConfig `yaml:"execution_cost"`
	DataFreshness DataFreshnessConfig `yaml:"data_freshness"`
	Universe      struct {
		Limit int `yaml:"limit"`
	} `yaml:"universe"`
	Filters  FiltersConfig `yaml:"filters"`
	Backtest struct {
		VerboseErrors    bool `yaml:"verbose_errors"`
		MaxErrorExamples int  `yaml:"max_error_examples"`
	} `yaml:"backtest"`
	Reporting struct {
		Enabled           bool   `yaml:"enabled"`
		RecommendationCSV string `yaml:"recommendation_csv"`
		RecommendationMD  string `yaml:"recommendation_md"`
		RecommendationTXT string `yaml:"recommendation_txt"`
		SQLitePath        string `yaml:"sqlite_path"`
	} `yaml:"reporting"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RecommendCron string `yaml:"recommend_cron"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// Default returns the configuration with every documented default set.
// Load unmarshals the YAML file over this value, so absent options
// keep their defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.DataSource.RequestTimeoutSec = 6.0
	cfg.DataSource.HistRetries = 3
	cfg.DataSource.CacheEnabled = true
	cfg.DataSource.CachePath = "data/market_cache.db"

	cfg.Strategy.Weights = WeightsConfig{Trend: 0.35, Momentum: 0.35, Stability: 0.15, Volume: 0.15}
	cfg.Strategy.EnabledModes = []string{"normal", "relaxed", "force"}
	cfg.Strategy.ProgressEvery = 10
	cfg.Strategy.FailedSymbolExamples = 20

	cfg.MarketFilter = MarketFilterConfig{
		Enabled:      true,
		IndexSymbol:  "000300",
		LookbackDays: 120,
		BlockOnBear:  true,
	}
	cfg.RiskFilter = RiskFilterConfig{
		Enabled:        true,
		MinPrice:       2.0,
		MaxPrice:       200.0,
		RSIUpper:       85.0,
		MaxVol20Std:    0.07,
		MinVolRatio520: 0.6,
		WeakMarket: WeakMarketConfig{
			Enabled:     true,
			MaxVol20Std: 0.05,
		},
	}
	cfg.RiskTargets = RiskTargetsConfig{
		Method:            "atr",
		StopLossPct:       0.03,
		TakeProfitPct:     0.06,
		StopLossATRMult:   1.5,
		TakeProfitATRMult: 3.0,
		PriceRoundTick:    0.01,
	}
	cfg.ExecutionCost = ExecutionCostConfig{
		Enabled:           true,
		CommissionRate:    0.0002,
		StampDutySellRate: 0.0005,
		SlippageBps:       5.0,
	}
	cfg.DataFreshness = DataFreshnessConfig{
		Enabled:           true,
		ProbeSymbol:       "000001",
		ProbeLookbackDays: 10,
		StopOnStale:       true,
	}
	cfg.Filters = FiltersConfig{
		ExcludeStarBoard: true,
		ExcludeBJBoard:   true,
		ExcludeGEMBoard:  true,
		ExcludeST:        true,
	}
	cfg.Backtest.VerboseErrors = true
	cfg.Backtest.MaxErrorExamples = 20

	cfg.Reporting.Enabled = true
	cfg.Reporting.RecommendationCSV = "reports/recommendations.csv"
	cfg.Reporting.RecommendationMD = "reports/recommendations.md"
	cfg.Reporting.RecommendationTXT = "reports/recommendations.txt"
	cfg.Reporting.SQLitePath = "data/recommendations.db"

	cfg.Schedule.RecommendCron = "0 30 16 * * 1-5"
	return cfg
}

// Load reads config from a YAML file, then applies environment
// variable overrides. A missing file keeps defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		cfg.DataSource.CachePath = v
	}
	if v := os.Getenv("UNIVERSE_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Universe.Limit = limit
		}
	}
	if v := os.Getenv("CRON_RECOMMEND"); v != "" {
		cfg.Schedule.RecommendCron = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option combinations that would break a run.
func (c *Config) Validate() error {
	for _, m := range c.Strategy.EnabledModes {
		switch m {
		case "normal", "relaxed", "force":
		default:
			return fmt.Errorf("strategy.enabled_modes: unsupported mode %q", m)
		}
	}
	if c.RiskTargets.Method != "atr" && c.RiskTargets.Method != "percent" {
		return fmt.Errorf("risk_targets.method must be %q or %q, got %q", "atr", "percent", c.RiskTargets.Method)
	}
	if c.RiskFilter.MinPrice > c.RiskFilter.MaxPrice {
		return fmt.Errorf("risk_filter: min_price %.2f exceeds max_price %.2f", c.RiskFilter.MinPrice, c.RiskFilter.MaxPrice)
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id are required when telegram.enabled")
	}
	return nil
}
