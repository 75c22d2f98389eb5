package strategy

import (
	"fmt"

	"StockPicker/internal/config"
	"StockPicker/internal/model"
)

// ThresholdRule is the hard gate a feature row must clear before it is
// scored. Each mode maps to a fixed rule.
type ThresholdRule struct {
	MinRSI             float64
	MaxRSI             float64
	RequireMAAlignment bool
	MinMom20           float64
}

// ThresholdFromMode maps a threshold tier to its rule.
func ThresholdFromMode(mode model.Mode) (ThresholdRule, error) {
	switch mode {
	case model.ModeNormal:
		return ThresholdRule{MinRSI: 35, MaxRSI: 75, RequireMAAlignment: true, MinMom20: 0.0}, nil
	case model.ModeRelaxed:
		return ThresholdRule{MinRSI: 30, MaxRSI: 80, RequireMAAlignment: false, MinMom20: -0.01}, nil
	case model.ModeForce:
		return ThresholdRule{MinRSI: 0, MaxRSI: 100, RequireMAAlignment: false, MinMom20: -1.0}, nil
	}
	return ThresholdRule{}, fmt.Errorf("unsupported mode: %s", mode)
}

// PassesThreshold applies the rule to one row. Rows without a defined
// MA20/MA60 never pass: there is not enough history to call a trend.
func PassesThreshold(row model.FeatureRow, rule ThresholdRule) bool {
	if !row.MA20.Valid || !row.MA60.Valid {
		return false
	}
	if row.Close <= row.MA20.Value {
		return false
	}
	if rule.RequireMAAlignment && row.MA20.Value <= row.MA60.Value {
		return false
	}
	if row.Mom20.Or(0) <= rule.MinMom20 {
		return false
	}
	rsi := row.RSI14.Or(0)
	if rsi < rule.MinRSI || rsi > rule.MaxRSI {
		return false
	}
	return true
}

// clip01 rescales v from [lo,hi] onto [0,1], clamping outside values.
func clip01(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0.0
	}
	out := (v - lo) / (hi - lo)
	if out < 0 {
		return 0.0
	}
	if out > 1 {
		return 1.0
	}
	return out
}

// ComputeScore turns one feature row into the weighted 0-100 total and
// its four sub-scores. Missing metrics are substituted with neutral
// defaults first, so scoring itself never fails; only the threshold and
// risk gates reject on missing data.
func ComputeScore(row model.FeatureRow, weights config.WeightsConfig) (float64, model.ScoreBreakdown) {
	close := row.Close
	ma20 := row.MA20.Or(close)
	ma60 := row.MA60.Or(ma20)
	mom5 := row.Mom5.Or(0)
	mom20 := row.Mom20.Or(0)
	vol20Std := row.Vol20Std.Or(0.03)
	ma20Slope5 := row.MA20Slope5.Or(0)
	volRatio := row.VolRatio520.Or(1.0)
	volZScore := row.VolumeZScore20.Or(0)

	trend := (clip01(close/ma20-1.0, -0.03, 0.08)*0.4 +
		clip01(ma20/ma60-1.0, -0.03, 0.08)*0.4 +
		clip01(ma20Slope5, -0.02, 0.04)*0.2) * 100
	momentum := (clip01(mom5, -0.08, 0.12)*0.5 + clip01(mom20, -0.15, 0.25)*0.5) * 100
	stability := (1.0 - clip01(vol20Std, 0.01, 0.08)) * 100
	volume := (clip01(volRatio, 0.8, 2.0)*0.6 + clip01(volZScore, -0.5, 2.5)*0.4) * 100

	breakdown := model.ScoreBreakdown{
		Trend:     trend,
		Momentum:  momentum,
		Stability: stability,
		Volume:    volume,
	}

	// Non-positive weights drop out of the denominator entirely.
	wTrend := max0(weights.Trend)
	wMomentum := max0(weights.Momentum)
	wStability := max0(weights.Stability)
	wVolume := max0(weights.Volume)
	weightSum := wTrend + wMomentum + wStability + wVolume
	if weightSum == 0 {
		weightSum = 1.0
	}
	total := (trend*wTrend + momentum*wMomentum + stability*wStability + volume*wVolume) / weightSum
	return total, breakdown
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// BuildReason renders the human-readable recommendation rationale.
// Relaxed and force tiers append a note explaining the fallback.
func BuildReason(breakdown model.ScoreBreakdown, mode model.Mode) []string {
	reasons := []string{
		fmt.Sprintf("趋势分 %.1f，收盘价高于MA20且中期均线结构较稳。", breakdown.Trend),
		fmt.Sprintf("动量分 %.1f，5日/20日动量维持正向。", breakdown.Momentum),
		fmt.Sprintf("波动稳定分 %.1f，近20日波动处于可接受范围。", breakdown.Stability),
		fmt.Sprintf("量能分 %.1f，成交量相对均量结构较健康。", breakdown.Volume),
	}
	switch mode {
	case model.ModeRelaxed:
		reasons = append(reasons, "今日候选较少，已启用放宽阈值模式。")
	case model.ModeForce:
		reasons = append(reasons, "常规与放宽筛选均无结果，已启用强制推荐兜底。")
	}
	return reasons
}
