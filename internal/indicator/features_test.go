package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPicker/internal/model"
)

func barsFromCloses(closes []float64) []model.DailyBar {
	bars := make([]model.DailyBar, len(closes))
	day := model.Day(2026, 1, 5)
	for i, c := range closes {
		bars[i] = model.DailyBar{
			TradeDate: day.AddDate(0, 0, i),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1_000_000,
		}
	}
	return bars
}

func TestComputeEmptyInput(t *testing.T) {
	assert.Nil(t, Compute(nil))
	assert.Nil(t, Compute([]model.DailyBar{}))
}

func TestComputeWindowDefinedness(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 10 + 0.01*float64(i)
	}
	rows := Compute(barsFromCloses(closes))
	require.Len(t, rows, 60)

	// Before the window fills, the metric stays missing.
	assert.False(t, rows[0].Ret1d.Valid)
	assert.True(t, rows[1].Ret1d.Valid)
	assert.False(t, rows[18].MA20.Valid)
	assert.True(t, rows[19].MA20.Valid)
	assert.False(t, rows[58].MA60.Valid)
	assert.True(t, rows[59].MA60.Valid)
	assert.False(t, rows[4].Mom5.Valid)
	assert.True(t, rows[5].Mom5.Valid)
	assert.False(t, rows[19].Mom20.Valid)
	assert.True(t, rows[20].Mom20.Valid)
	assert.False(t, rows[12].RSI14.Valid)
	assert.True(t, rows[13].RSI14.Valid)
	assert.False(t, rows[12].ATR14.Valid)
	assert.True(t, rows[13].ATR14.Valid)
	// Vol20Std rolls over daily returns, whose first value is missing.
	assert.False(t, rows[19].Vol20Std.Valid)
	assert.True(t, rows[20].Vol20Std.Valid)
	// MA20 slope needs the MA defined five bars back as well.
	assert.False(t, rows[23].MA20Slope5.Valid)
	assert.True(t, rows[24].MA20Slope5.Valid)
}

func TestComputeSortsByDate(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11, 12, 13, 14, 15})
	shuffled := []model.DailyBar{bars[3], bars[0], bars[5], bars[1], bars[4], bars[2]}
	rows := Compute(shuffled)
	require.Len(t, rows, 6)
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i-1].TradeDate.Before(rows[i].TradeDate))
	}
	assert.InDelta(t, 11.0/10.0-1.0, rows[1].Ret1d.Value, 1e-12)
}

func TestRollingMeanKnownValues(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	rows := Compute(barsFromCloses(closes))
	// Mean of 1..20 is 10.5; of 6..25 is 15.5.
	assert.InDelta(t, 10.5, rows[19].MA20.Value, 1e-9)
	assert.InDelta(t, 15.5, rows[24].MA20.Value, 1e-9)
}

func TestMomentumKnownValues(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 10 * (1 + 0.01*float64(i))
	}
	rows := Compute(barsFromCloses(closes))
	i := 25
	wantMom5 := closes[i]/closes[i-5] - 1
	wantMom20 := closes[i]/closes[i-20] - 1
	assert.InDelta(t, wantMom5, rows[i].Mom5.Value, 1e-12)
	assert.InDelta(t, wantMom20, rows[i].Mom20.Value, 1e-12)
}

func TestRSIAllGainsIs100(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 10 + float64(i)
	}
	rows := Compute(barsFromCloses(closes))
	require.True(t, rows[19].RSI14.Valid)
	assert.Equal(t, 100.0, rows[19].RSI14.Value)
}

func TestRSIBalancedAlternationIs50(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 10
		if i%2 == 1 {
			closes[i] = 11
		}
	}
	rows := Compute(barsFromCloses(closes))
	// Index 14 covers seven +1 and seven -1 day changes.
	require.True(t, rows[14].RSI14.Valid)
	assert.InDelta(t, 50.0, rows[14].RSI14.Value, 1e-9)
}

func TestATRFlatRange(t *testing.T) {
	day := model.Day(2026, 1, 5)
	bars := make([]model.DailyBar, 14)
	for i := range bars {
		bars[i] = model.DailyBar{
			TradeDate: day.AddDate(0, 0, i),
			Open:      10, High: 10.5, Low: 9.5, Close: 10,
			Volume: 1_000_000,
		}
	}
	rows := Compute(bars)
	require.True(t, rows[13].ATR14.Valid)
	assert.InDelta(t, 1.0, rows[13].ATR14.Value, 1e-12)
}

func TestTrueRangeFirstBarFallsBackToRange(t *testing.T) {
	day := model.Day(2026, 1, 5)
	bars := []model.DailyBar{
		{TradeDate: day, High: 12, Low: 10, Close: 11},
		// Gap up: |high-prevClose| dominates high-low.
		{TradeDate: day.AddDate(0, 0, 1), High: 15, Low: 14.5, Close: 14.8},
	}
	tr := trueRange(bars)
	assert.InDelta(t, 2.0, tr[0], 1e-12)
	assert.InDelta(t, 4.0, tr[1], 1e-12)
}

func TestVolumeRatioConstantVolume(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 10
	}
	rows := Compute(barsFromCloses(closes))
	require.True(t, rows[19].VolRatio520.Valid)
	assert.InDelta(t, 1.0, rows[19].VolRatio520.Value, 1e-12)
}

func TestSampleStdUsesBesselCorrection(t *testing.T) {
	vals := make([]float64, 20)
	for i := range vals {
		vals[i] = float64(i % 2) // alternating 0,1
	}
	out := rollingStd(vals, 20)
	// Sample variance of ten 0s and ten 1s is (20*0.25)/19.
	assert.InDelta(t, 0.51298917604257706, out[19], 1e-9)
}

func TestComputePreservesTurnover(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11})
	bars[1].TurnoverRate = model.MetricOf(2.4)
	rows := Compute(bars)
	assert.False(t, rows[0].TurnoverRate.Valid)
	assert.Equal(t, 2.4, rows[1].TurnoverRate.Value)
}
