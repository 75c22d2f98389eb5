package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"StockPicker/internal/config"
	"StockPicker/internal/datasource"
	"StockPicker/internal/engine"
	"StockPicker/internal/errmsg"
	"StockPicker/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagOutput  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "picker",
	Short: "A股每日选股工具",
	Long: `StockPicker 每日从A股全市场拉取日线行情，按趋势/动量/稳定性/量能
打分，在正常、放宽、强制三档阈值间逐级回退，每个交易日产出至多一条推荐。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if flagVerbose {
			level = zerolog.DebugLevel
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			Level(level).With().Timestamp().Logger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "configs/config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "table", "输出格式: table 或 json")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "输出调试日志")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Friendly(err))
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	return cfg, nil
}

// openSource wires the Eastmoney client, wrapped in the SQLite cache
// when enabled. The returned cleanup is safe to call unconditionally.
func openSource(cfg *config.Config) (datasource.MarketDataSource, func(), error) {
	timeout := time.Duration(cfg.DataSource.RequestTimeoutSec * float64(time.Second))
	client := datasource.NewEastmoneyClient(timeout, cfg.DataSource.HistRetries, cfg.Proxy)
	if !cfg.DataSource.CacheEnabled {
		return client, func() {}, nil
	}
	cached, err := datasource.NewCachedSource(cfg.DataSource.CachePath, client)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.DataSource.CachePath).Msg("cache unavailable, going direct")
		return client, func() {}, nil
	}
	return cached, func() { _ = cached.Close() }, nil
}

func newRecommender(cfg *config.Config, ds datasource.MarketDataSource) *engine.Recommender {
	return engine.New(ds, cfg, engine.NewNameCache())
}

// parseDay parses a --date style flag, defaulting to today when empty.
func parseDay(value string) (time.Time, error) {
	if value == "" {
		return model.DayOf(time.Now()), nil
	}
	d, err := model.ParseDay(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式无效（应为 YYYY-MM-DD）: %q", value)
	}
	return d, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
