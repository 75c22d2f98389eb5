package indicator

import (
	"math"
	"sort"

	"StockPicker/internal/model"
)

// Window sizes for the feature table. All windows are trailing.
const (
	maShortWindow = 20
	maLongWindow  = 60
	momShortLag   = 5
	momLongLag    = 20
	rsiWindow     = 14
	volStdWindow  = 20
	slopeLag      = 5
	volMAShort    = 5
	volMALong     = 20
	atrWindow     = 14
)

// Compute derives the full indicator table from one symbol's daily
// bars. Input order does not matter; rows come back sorted by trade
// date. Indicators stay missing until enough history exists. An empty
// input yields an empty table.
func Compute(bars []model.DailyBar) []model.FeatureRow {
	if len(bars) == 0 {
		return nil
	}
	sorted := make([]model.DailyBar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TradeDate.Before(sorted[j].TradeDate) })

	n := len(sorted)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	rows := make([]model.FeatureRow, n)
	for i, b := range sorted {
		closes[i] = b.Close
		volumes[i] = b.Volume
		rows[i] = model.FeatureRow{
			TradeDate:    b.TradeDate,
			Open:         b.Open,
			High:         b.High,
			Low:          b.Low,
			Close:        b.Close,
			Volume:       b.Volume,
			TurnoverRate: b.TurnoverRate,
		}
	}

	ma20 := rollingMean(closes, maShortWindow)
	ma60 := rollingMean(closes, maLongWindow)
	volMA5 := rollingMean(volumes, volMAShort)
	volMA20 := rollingMean(volumes, volMALong)
	volStd20 := rollingStd(volumes, volMALong)

	ret1d := make([]float64, n)
	ret1d[0] = math.NaN()
	for i := 1; i < n; i++ {
		ret1d[i] = pctChange(closes[i], closes[i-1])
	}
	retStd20 := rollingStd(ret1d, volStdWindow)

	tr := trueRange(sorted)
	atr14 := rollingMean(tr, atrWindow)

	rsi14 := rollingRSI(closes, rsiWindow)

	for i := range rows {
		rows[i].Ret1d = model.MetricOf(ret1d[i])
		rows[i].MA20 = model.MetricOf(ma20[i])
		rows[i].MA60 = model.MetricOf(ma60[i])
		if i >= momShortLag {
			rows[i].Mom5 = model.MetricOf(pctChange(closes[i], closes[i-momShortLag]))
		}
		if i >= momLongLag {
			rows[i].Mom20 = model.MetricOf(pctChange(closes[i], closes[i-momLongLag]))
		}
		rows[i].RSI14 = model.MetricOf(rsi14[i])
		rows[i].Vol20Std = model.MetricOf(retStd20[i])
		if i >= slopeLag && !math.IsNaN(ma20[i]) && !math.IsNaN(ma20[i-slopeLag]) {
			rows[i].MA20Slope5 = model.MetricOf(pctChange(ma20[i], ma20[i-slopeLag]))
		}
		if !math.IsNaN(volMA5[i]) && !math.IsNaN(volMA20[i]) && volMA20[i] != 0 {
			rows[i].VolRatio520 = model.MetricOf(volMA5[i] / volMA20[i])
		}
		if !math.IsNaN(volMA20[i]) && !math.IsNaN(volStd20[i]) && volStd20[i] != 0 {
			rows[i].VolumeZScore20 = model.MetricOf((volumes[i] - volMA20[i]) / volStd20[i])
		}
		rows[i].ATR14 = model.MetricOf(atr14[i])
	}
	return rows
}

func pctChange(cur, prev float64) float64 {
	if prev == 0 {
		return math.NaN()
	}
	return cur/prev - 1.0
}

// rollingMean returns the trailing simple moving average; positions
// with fewer than window values (NaN included) are NaN.
func rollingMean(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(vals[j]) {
				ok = false
				break
			}
			sum += vals[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// rollingStd is the trailing sample standard deviation (ddof=1).
func rollingStd(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		out[i] = math.NaN()
		if i+1 < window || window < 2 {
			continue
		}
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(vals[j]) {
				ok = false
				break
			}
			sum += vals[j]
		}
		if !ok {
			continue
		}
		mean := sum / float64(window)
		ss := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := vals[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

// rollingRSI computes the simple rolling-mean variant of RSI: day
// changes split into gains and losses, each averaged over the trailing
// window. A zero loss average means straight gains and maps to 100.
func rollingRSI(closes []float64, window int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gains[i] = diff
		} else {
			losses[i] = -diff
		}
	}
	for i := range out {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		var gainSum, lossSum float64
		for j := i - window + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		gainAvg := gainSum / float64(window)
		lossAvg := lossSum / float64(window)
		if lossAvg == 0 {
			out[i] = 100.0
			continue
		}
		rs := gainAvg / lossAvg
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out
}

// trueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// The first bar has no previous close and falls back to high-low.
func trueRange(bars []model.DailyBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			if v := math.Abs(b.High - prev); v > tr {
				tr = v
			}
			if v := math.Abs(b.Low - prev); v > tr {
				tr = v
			}
		}
		out[i] = tr
	}
	return out
}
