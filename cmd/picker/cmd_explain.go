package main

import (
	"fmt"
	"strings"
	"time"

	"StockPicker/internal/model"

	"github.com/spf13/cobra"
)

var (
	explainSymbol string
	explainDate   string
	explainMode   string
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "解释单只股票在指定模式下的得分或落选原因",
	RunE:  runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
	explainCmd.Flags().StringVar(&explainSymbol, "symbol", "", "六位股票代码")
	explainCmd.Flags().StringVar(&explainDate, "date", "", "目标交易日 YYYY-MM-DD（默认今天）")
	explainCmd.Flags().StringVar(&explainMode, "mode", string(model.ModeNormal), "阈值模式: normal/relaxed/force")
	_ = explainCmd.MarkFlagRequired("symbol")
}

func runExplain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	target, err := parseDay(explainDate)
	if err != nil {
		return err
	}
	mode := model.Mode(explainMode)
	if !mode.Known() {
		return fmt.Errorf("不支持的阈值模式: %q", explainMode)
	}
	ds, cleanup, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	score, err := newRecommender(cfg, ds).Explain(cmd.Context(), explainSymbol, target, mode)
	if err != nil {
		return err
	}

	if flagOutput == "json" {
		return printJSON(map[string]any{
			"trade_date": model.FormatDay(target),
			"mode":       mode,
			"candidate":  score,
		})
	}
	fmt.Print(formatExplainText(score, mode, target))
	return nil
}

func formatExplainText(score model.CandidateScore, mode model.Mode, target time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s | %s | %s模式\n", score.Symbol, score.Name, model.FormatDay(target), mode.Chinese())
	fmt.Fprintf(&b, "总分: %.2f（趋势 %.1f | 动量 %.1f | 稳定 %.1f | 量能 %.1f）\n",
		score.ScoreTotal, score.ScoreBreakdown.Trend, score.ScoreBreakdown.Momentum,
		score.ScoreBreakdown.Stability, score.ScoreBreakdown.Volume)
	m := score.KeyMetrics
	fmt.Fprintf(&b, "收盘 %.2f | MA20 %.2f | MA60 %.2f | RSI14 %.1f | ATR14 %.3f\n",
		m.Close, m.MA20, m.MA60, m.RSI14, m.ATR14)
	fmt.Fprintf(&b, "止损 %.2f | 止盈 %.2f | 建议持股 %d 天\n\n",
		m.StopLossPrice, m.TakeProfitPrice, int(m.SuggestedHoldingDays))
	for i, r := range score.Reason {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return b.String()
}
