package notifier

import (
	"fmt"
	"html"
	"strings"

	"StockPicker/internal/model"
)

// FormatRecommendation formats a finished recommendation into a
// Telegram HTML message. Stock-sourced strings are escaped.
func FormatRecommendation(rec model.RecommendationResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>每日选股</b> | %s\n\n", model.FormatDay(rec.TradeDate)))
	b.WriteString(fmt.Sprintf("推荐: <b>%s %s</b>（%s模式）\n", rec.Symbol, html.EscapeString(rec.Name), rec.ThresholdMode.Chinese()))
	b.WriteString(fmt.Sprintf("总分: %.2f\n\n", rec.ScoreTotal))

	b.WriteString("📈 <b>分项评分:</b>\n")
	b.WriteString(fmt.Sprintf("  趋势 %.1f | 动量 %.1f | 稳定 %.1f | 量能 %.1f\n\n",
		rec.ScoreBreakdown.Trend, rec.ScoreBreakdown.Momentum,
		rec.ScoreBreakdown.Stability, rec.ScoreBreakdown.Volume))

	m := rec.KeyMetrics
	b.WriteString(fmt.Sprintf("收盘价: %.2f\n", m.Close))
	b.WriteString(fmt.Sprintf("止损价: %.2f | 止盈价: %.2f\n", m.StopLossPrice, m.TakeProfitPrice))
	b.WriteString(fmt.Sprintf("建议持股: %d 天\n\n", int(m.SuggestedHoldingDays)))

	for i, r := range rec.Reason {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, html.EscapeString(r)))
	}
	return b.String()
}
