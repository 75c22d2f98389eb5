package main

import (
	"fmt"
	"strings"

	"StockPicker/internal/model"

	"github.com/spf13/cobra"
)

var (
	klineSymbol string
	klineStart  string
	klineEnd    string
)

var klineCmd = &cobra.Command{
	Use:   "check-kline",
	Short: "拉取单只股票的日线并打印，用于核对数据",
	RunE:  runCheckKline,
}

func init() {
	rootCmd.AddCommand(klineCmd)
	klineCmd.Flags().StringVar(&klineSymbol, "symbol", "", "六位股票代码")
	klineCmd.Flags().StringVar(&klineStart, "start", "", "起始日期 YYYY-MM-DD")
	klineCmd.Flags().StringVar(&klineEnd, "end", "", "结束日期 YYYY-MM-DD（默认今天）")
	_ = klineCmd.MarkFlagRequired("symbol")
	_ = klineCmd.MarkFlagRequired("start")
}

func runCheckKline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	start, err := parseDay(klineStart)
	if err != nil {
		return err
	}
	end, err := parseDay(klineEnd)
	if err != nil {
		return err
	}
	ds, cleanup, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	bars, err := ds.GetDailyBars(cmd.Context(), klineSymbol, start, end)
	if err != nil {
		return err
	}
	if flagOutput == "json" {
		return printJSON(map[string]any{"symbol": klineSymbol, "rows": len(bars), "bars": bars})
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %d 条日线\n", klineSymbol, len(bars))
	b.WriteString("日期        开盘    最高    最低    收盘      成交量   换手率\n")
	for _, bar := range bars {
		fmt.Fprintf(&b, "%s %7.2f %7.2f %7.2f %7.2f %11.0f %8s\n",
			model.FormatDay(bar.TradeDate), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
			formatTurnover(bar.TurnoverRate))
	}
	fmt.Print(b.String())
	return nil
}

func formatTurnover(m model.Metric) string {
	if !m.Valid {
		return "--"
	}
	return fmt.Sprintf("%.2f%%", m.Value)
}
