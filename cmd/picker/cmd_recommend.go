package main

import (
	"fmt"
	"strings"

	"StockPicker/internal/config"
	"StockPicker/internal/engine"
	"StockPicker/internal/model"
	"StockPicker/internal/notifier"
	"StockPicker/internal/recorder"
	"StockPicker/internal/report"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var recommendDate string

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "基于 T-1 信号日产出当日推荐",
	RunE:  runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().StringVar(&recommendDate, "date", "", "目标交易日 YYYY-MM-DD（默认今天）")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	target, err := parseDay(recommendDate)
	if err != nil {
		return err
	}
	ds, cleanup, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	rec := newRecommender(cfg, ds)
	result, meta, err := rec.Recommend(cmd.Context(), target)
	if err != nil {
		return err
	}

	if flagOutput == "json" {
		if err := printJSON(recommendPayload(result, meta)); err != nil {
			return err
		}
	} else {
		fmt.Print(formatRecommendText(result, meta))
	}

	persistRecommendation(cfg, result)
	if cfg.Telegram.Enabled {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err := tn.SendWithRetry(cmd.Context(), notifier.FormatRecommendation(result), 3); err != nil {
			log.Error().Err(err).Msg("telegram send failed")
		}
	}
	return nil
}

func recommendPayload(result model.RecommendationResult, meta engine.RunMeta) map[string]any {
	return map[string]any{
		"trade_date":   model.FormatDay(result.TradeDate),
		"signal_date":  model.FormatDay(meta.SignalDate),
		"market_state": meta.MarketState.Label,
		"result":       result,
	}
}

func formatRecommendText(result model.RecommendationResult, meta engine.RunMeta) string {
	var b strings.Builder
	fmt.Fprintf(&b, "每日选股 | %s（信号日 %s）\n", model.FormatDay(result.TradeDate), model.FormatDay(meta.SignalDate))
	fmt.Fprintf(&b, "市场状态: %s（%s）\n\n", meta.MarketState.Label, meta.MarketReason)
	fmt.Fprintf(&b, "推荐: %s %s（%s模式）\n", result.Symbol, result.Name, result.ThresholdMode.Chinese())
	fmt.Fprintf(&b, "总分: %.2f（趋势 %.1f | 动量 %.1f | 稳定 %.1f | 量能 %.1f）\n",
		result.ScoreTotal, result.ScoreBreakdown.Trend, result.ScoreBreakdown.Momentum,
		result.ScoreBreakdown.Stability, result.ScoreBreakdown.Volume)
	m := result.KeyMetrics
	fmt.Fprintf(&b, "收盘价: %.2f | 止损: %.2f | 止盈: %.2f | 建议持股: %d 天\n\n",
		m.Close, m.StopLossPrice, m.TakeProfitPrice, int(m.SuggestedHoldingDays))
	for i, r := range result.Reason {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return b.String()
}

// persistRecommendation appends the pick to the CSV/Markdown/text
// reports and the SQLite history. Failures are logged, not fatal.
func persistRecommendation(cfg *config.Config, result model.RecommendationResult) {
	if cfg.Reporting.Enabled {
		if path, err := report.AppendCSV(result, cfg.Reporting.RecommendationCSV); err != nil {
			log.Error().Err(err).Msg("append csv report")
		} else {
			log.Info().Str("path", path).Msg("csv report updated")
		}
		if _, err := report.WriteMarkdown(result, cfg.Reporting.RecommendationMD, cfg.Reporting.RecommendationCSV); err != nil {
			log.Error().Err(err).Msg("write markdown report")
		}
		if _, err := report.WriteText(result, cfg.Reporting.RecommendationTXT, cfg.Reporting.RecommendationCSV); err != nil {
			log.Error().Err(err).Msg("write text report")
		}
	}
	rc := openRecorder(cfg)
	defer rc.Close()
	if err := rc.RecordRecommendation(result); err != nil {
		log.Error().Err(err).Msg("record recommendation")
	}
}

func openRecorder(cfg *config.Config) recorder.Recorder {
	if !cfg.Reporting.Enabled || cfg.Reporting.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Reporting.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("sqlite recorder unavailable, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}
