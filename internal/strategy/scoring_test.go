package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPicker/internal/config"
	"StockPicker/internal/model"
)

func defaultWeights() config.WeightsConfig {
	return config.WeightsConfig{Trend: 0.35, Momentum: 0.35, Stability: 0.15, Volume: 0.15}
}

// healthyRow is a fully-populated row that clears the normal threshold.
func healthyRow() model.FeatureRow {
	return model.FeatureRow{
		Close:          12.0,
		MA20:           model.MetricOf(11.5),
		MA60:           model.MetricOf(11.0),
		Mom5:           model.MetricOf(0.03),
		Mom20:          model.MetricOf(0.08),
		RSI14:          model.MetricOf(55),
		Vol20Std:       model.MetricOf(0.02),
		MA20Slope5:     model.MetricOf(0.01),
		VolRatio520:    model.MetricOf(1.2),
		VolumeZScore20: model.MetricOf(0.8),
		ATR14:          model.MetricOf(0.3),
		TurnoverRate:   model.MetricOf(2.1),
	}
}

func TestThresholdFromMode(t *testing.T) {
	normal, err := ThresholdFromMode(model.ModeNormal)
	require.NoError(t, err)
	assert.Equal(t, ThresholdRule{MinRSI: 35, MaxRSI: 75, RequireMAAlignment: true, MinMom20: 0.0}, normal)

	relaxed, err := ThresholdFromMode(model.ModeRelaxed)
	require.NoError(t, err)
	assert.Equal(t, ThresholdRule{MinRSI: 30, MaxRSI: 80, MinMom20: -0.01}, relaxed)

	force, err := ThresholdFromMode(model.ModeForce)
	require.NoError(t, err)
	assert.Equal(t, ThresholdRule{MinRSI: 0, MaxRSI: 100, MinMom20: -1.0}, force)

	_, err = ThresholdFromMode(model.Mode("bogus"))
	assert.ErrorContains(t, err, "unsupported mode")
}

func TestPassesThreshold(t *testing.T) {
	normal, _ := ThresholdFromMode(model.ModeNormal)
	relaxed, _ := ThresholdFromMode(model.ModeRelaxed)

	tests := []struct {
		name   string
		mutate func(*model.FeatureRow)
		rule   ThresholdRule
		want   bool
	}{
		{"healthy normal", func(r *model.FeatureRow) {}, normal, true},
		{"missing ma20", func(r *model.FeatureRow) { r.MA20 = model.Metric{} }, normal, false},
		{"missing ma60", func(r *model.FeatureRow) { r.MA60 = model.Metric{} }, normal, false},
		{"close below ma20", func(r *model.FeatureRow) { r.Close = 11.0 }, normal, false},
		{"ma not aligned", func(r *model.FeatureRow) { r.MA60 = model.MetricOf(11.8) }, normal, false},
		{"ma not aligned passes relaxed", func(r *model.FeatureRow) { r.MA60 = model.MetricOf(11.8) }, relaxed, true},
		{"flat momentum fails normal", func(r *model.FeatureRow) { r.Mom20 = model.MetricOf(0) }, normal, false},
		{"small drawdown passes relaxed", func(r *model.FeatureRow) { r.Mom20 = model.MetricOf(-0.005) }, relaxed, true},
		{"rsi too hot", func(r *model.FeatureRow) { r.RSI14 = model.MetricOf(76) }, normal, false},
		{"rsi 76 passes relaxed", func(r *model.FeatureRow) { r.RSI14 = model.MetricOf(76) }, relaxed, true},
		{"rsi too cold", func(r *model.FeatureRow) { r.RSI14 = model.MetricOf(30) }, normal, false},
		// Missing RSI substitutes 0 and lands below the floor.
		{"missing rsi", func(r *model.FeatureRow) { r.RSI14 = model.Metric{} }, normal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := healthyRow()
			tt.mutate(&row)
			assert.Equal(t, tt.want, PassesThreshold(row, tt.rule))
		})
	}
}

func TestClip01(t *testing.T) {
	assert.Equal(t, 0.0, clip01(-1, 0, 1))
	assert.Equal(t, 1.0, clip01(2, 0, 1))
	assert.InDelta(t, 0.5, clip01(0.5, 0, 1), 1e-12)
	assert.InDelta(t, 0.5, clip01(0.025, -0.03, 0.08), 1e-12)
	// Degenerate range clamps to zero rather than dividing by zero.
	assert.Equal(t, 0.0, clip01(5, 1, 1))
}

func TestComputeScoreBounds(t *testing.T) {
	rows := []model.FeatureRow{
		healthyRow(),
		{Close: 5.0}, // everything missing
		{
			Close: 3.0,
			MA20:  model.MetricOf(9.0), MA60: model.MetricOf(12.0),
			Mom5: model.MetricOf(-0.5), Mom20: model.MetricOf(-0.8),
			Vol20Std: model.MetricOf(0.5), VolRatio520: model.MetricOf(0.1),
		},
		{
			Close: 50.0,
			MA20:  model.MetricOf(40.0), MA60: model.MetricOf(30.0),
			Mom5: model.MetricOf(0.5), Mom20: model.MetricOf(0.9),
			Vol20Std: model.MetricOf(0.001), VolRatio520: model.MetricOf(5.0),
			VolumeZScore20: model.MetricOf(10.0), MA20Slope5: model.MetricOf(0.2),
		},
	}
	for _, row := range rows {
		total, breakdown := ComputeScore(row, defaultWeights())
		assert.GreaterOrEqual(t, total, 0.0)
		assert.LessOrEqual(t, total, 100.0)
		for _, sub := range []float64{breakdown.Trend, breakdown.Momentum, breakdown.Stability, breakdown.Volume} {
			assert.GreaterOrEqual(t, sub, 0.0)
			assert.LessOrEqual(t, sub, 100.0)
		}
	}
}

func TestComputeScoreMissingMetricsNeverFails(t *testing.T) {
	total, breakdown := ComputeScore(model.FeatureRow{Close: 10}, defaultWeights())
	// MA defaults collapse to the close, so trend ratios are flat.
	wantTrend := (clip01(0, -0.03, 0.08)*0.8 + clip01(0, -0.02, 0.04)*0.2) * 100
	assert.InDelta(t, wantTrend, breakdown.Trend, 1e-9)
	assert.GreaterOrEqual(t, total, 0.0)
}

func TestComputeScoreWeightHandling(t *testing.T) {
	row := healthyRow()

	// Only trend weighted: total equals the trend sub-score.
	total, breakdown := ComputeScore(row, config.WeightsConfig{Trend: 2.0})
	assert.InDelta(t, breakdown.Trend, total, 1e-9)

	// Negative weights drop out instead of inverting the factor.
	total2, breakdown2 := ComputeScore(row, config.WeightsConfig{Trend: 1.0, Momentum: -5.0})
	assert.InDelta(t, breakdown2.Trend, total2, 1e-9)

	// All-zero weights fall back to a unit denominator.
	total3, _ := ComputeScore(row, config.WeightsConfig{})
	assert.Equal(t, 0.0, total3)
}

func TestBuildReason(t *testing.T) {
	b := model.ScoreBreakdown{Trend: 80, Momentum: 70, Stability: 60, Volume: 50}

	normal := BuildReason(b, model.ModeNormal)
	assert.Len(t, normal, 4)

	relaxed := BuildReason(b, model.ModeRelaxed)
	require.Len(t, relaxed, 5)
	assert.Contains(t, relaxed[4], "放宽")

	force := BuildReason(b, model.ModeForce)
	require.Len(t, force, 5)
	assert.Contains(t, force[4], "强制")
}
