package main

import (
	"fmt"
	"sort"
	"strings"

	"StockPicker/internal/backtest"
	"StockPicker/internal/model"

	"github.com/spf13/cobra"
)

var (
	backtestStart string
	backtestEnd   string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "在历史区间内回放选股并统计成本后收益",
	RunE:  runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().StringVar(&backtestStart, "start", "", "起始日期 YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestEnd, "end", "", "结束日期 YYYY-MM-DD")
	_ = backtestCmd.MarkFlagRequired("start")
	_ = backtestCmd.MarkFlagRequired("end")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	start, err := parseDay(backtestStart)
	if err != nil {
		return err
	}
	end, err := parseDay(backtestEnd)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("结束日期早于起始日期: %s > %s", backtestStart, backtestEnd)
	}
	ds, cleanup, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := backtest.NewRunner(newRecommender(cfg, ds), ds, cfg)
	summary, err := runner.Run(cmd.Context(), start, end)
	if err != nil {
		return err
	}
	if flagOutput == "json" {
		return printJSON(summary)
	}
	fmt.Print(formatSummaryText(summary))
	return nil
}

func formatSummaryText(s backtest.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "回测区间: %s\n", s.Period)
	fmt.Fprintf(&b, "尝试天数: %d | 成交: %d | 跳过: %d（无候选 %d / 数据异常 %d）\n",
		s.AttemptedDays, s.TotalTrades, s.SkippedDays, s.NoCandidateDays, s.DataErrorDays)
	fmt.Fprintf(&b, "胜率(1日): 毛 %.1f%% / 净 %.1f%%\n", s.WinRateGross1d*100, s.WinRateNet1d*100)
	fmt.Fprintf(&b, "平均收益(1日): 毛 %+.4f / 净 %+.4f\n", s.AvgReturn1dGross, s.AvgReturn1dNet)
	fmt.Fprintf(&b, "平均收益(5日): 毛 %+.4f / 净 %+.4f\n", s.AvgReturn5dGross, s.AvgReturn5dNet)
	fmt.Fprintf(&b, "最大回撤(近似): %.4f\n", s.MaxDrawdownProxy)

	if len(s.ModeCounts) > 0 {
		b.WriteString("\n模式分布:\n")
		for _, mode := range model.AllModes {
			if n, ok := s.ModeCounts[mode]; ok {
				fmt.Fprintf(&b, "  %s: %d\n", mode.Chinese(), n)
			}
		}
	}
	if len(s.ErrorCounts) > 0 {
		kinds := make([]string, 0, len(s.ErrorCounts))
		for k := range s.ErrorCounts {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		b.WriteString("\n跳过原因:\n")
		for _, k := range kinds {
			fmt.Fprintf(&b, "  %s: %d\n", k, s.ErrorCounts[k])
		}
	}
	for _, ex := range s.ErrorExamples {
		fmt.Fprintf(&b, "  示例 %s: %s\n", ex.TradeDate, ex.Message)
	}
	if len(s.Records) > 0 {
		b.WriteString("\n交易明细:\n")
		for _, r := range s.Records {
			fmt.Fprintf(&b, "  %s %s %s（%s）1日 %s | 5日 %s\n",
				model.FormatDay(r.TradeDate), r.Symbol, r.Name, r.ThresholdMode.Chinese(),
				formatMetricPct(r.Ret1dNet), formatMetricPct(r.Ret5dNet))
		}
	}
	return b.String()
}

func formatMetricPct(m model.Metric) string {
	if !m.Valid {
		return "--"
	}
	return fmt.Sprintf("%+.2f%%", m.Value*100)
}
