package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"StockPicker/internal/model"
)

func TestFormatRecommendation(t *testing.T) {
	rec := model.RecommendationResult{
		TradeDate: model.Day(2026, 2, 26),
		CandidateScore: model.CandidateScore{
			Symbol:     "600519",
			Name:       "贵州茅台",
			ScoreTotal: 72.5,
			ScoreBreakdown: model.ScoreBreakdown{
				Trend: 80.1, Momentum: 70.2, Stability: 65.3, Volume: 60.4,
			},
			KeyMetrics: model.KeyMetrics{
				Close:                1500.12,
				StopLossPrice:        1455.12,
				TakeProfitPrice:      1590.37,
				SuggestedHoldingDays: 3,
			},
			Reason: []string{"趋势分 80.1，收盘价高于MA20且中期均线结构较稳。"},
		},
		ThresholdMode: model.ModeRelaxed,
	}

	msg := FormatRecommendation(rec)
	assert.Contains(t, msg, "2026-02-26")
	assert.Contains(t, msg, "600519 贵州茅台")
	assert.Contains(t, msg, "放宽模式")
	assert.Contains(t, msg, "总分: 72.50")
	assert.Contains(t, msg, "止损价: 1455.12")
	assert.Contains(t, msg, "止盈价: 1590.37")
	assert.Contains(t, msg, "建议持股: 3 天")
	assert.Contains(t, msg, "1. 趋势分")
}

func TestFormatRecommendationEscapesHTML(t *testing.T) {
	rec := model.RecommendationResult{
		TradeDate: model.Day(2026, 2, 26),
		CandidateScore: model.CandidateScore{
			Symbol: "600001",
			Name:   "A<B>公司",
			Reason: []string{"动量分 70.0，5日量比 < 1.2 & 波动可控。"},
		},
		ThresholdMode: model.ModeNormal,
	}

	msg := FormatRecommendation(rec)
	assert.Contains(t, msg, "A&lt;B&gt;公司")
	assert.Contains(t, msg, "&lt; 1.2 &amp; 波动可控")
	assert.NotContains(t, msg, "A<B>公司")
	// Intentional markup survives untouched.
	assert.Contains(t, msg, "<b>每日选股</b>")
}
