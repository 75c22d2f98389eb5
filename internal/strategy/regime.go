package strategy

import (
	"sort"
	"time"

	"StockPicker/internal/config"
	"StockPicker/internal/model"
)

// DetectMarketState classifies the index regime as of signalDate.
// Closes after the signal date are ignored, then only the trailing
// lookbackDays points are kept. The rolling definitions match the
// per-symbol indicator engine.
func DetectMarketState(indexCloses map[time.Time]float64, signalDate time.Time, lookbackDays int) model.MarketState {
	if lookbackDays <= 0 {
		lookbackDays = 120
	}
	type point struct {
		date  time.Time
		close float64
	}
	pts := make([]point, 0, len(indexCloses))
	for d, c := range indexCloses {
		if !d.After(signalDate) {
			pts = append(pts, point{date: d, close: c})
		}
	}
	if len(pts) == 0 {
		return model.UnknownMarket()
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].date.Before(pts[j].date) })
	if len(pts) > lookbackDays {
		pts = pts[len(pts)-lookbackDays:]
	}

	series := make([]float64, len(pts))
	for i, p := range pts {
		series[i] = p.close
	}
	n := len(series)
	close := series[n-1]
	ma20 := close
	if n >= 20 {
		ma20 = tailMean(series, 20)
	}
	ma60 := ma20
	if n >= 60 {
		ma60 = tailMean(series, 60)
	}
	mom20 := 0.0
	if n >= 21 && series[n-21] != 0 {
		mom20 = series[n-1]/series[n-21] - 1.0
	}

	label := model.MarketNeutral
	switch {
	case close > ma20 && ma20 > ma60 && mom20 > 0:
		label = model.MarketBull
	case close < ma20 && mom20 < 0:
		label = model.MarketBear
	}
	return model.MarketState{Label: label, Close: close, MA20: ma20, MA60: ma60, Mom20: mom20}
}

func tailMean(series []float64, window int) float64 {
	sum := 0.0
	for i := len(series) - window; i < len(series); i++ {
		sum += series[i]
	}
	return sum / float64(window)
}

// PassesRiskFilter applies the regime-aware risk gate to one row.
// Force mode is the guaranteed fallback path and bypasses every rule.
func PassesRiskFilter(row model.FeatureRow, market model.MarketState, mode model.Mode, rcfg config.RiskFilterConfig, mcfg config.MarketFilterConfig) bool {
	if !rcfg.Enabled || mode == model.ModeForce {
		return true
	}
	if mcfg.Enabled && market.Label == model.MarketBear && mcfg.BlockOnBear {
		return false
	}
	if !row.RSI14.Valid || !row.Vol20Std.Valid || !row.VolRatio520.Valid || !row.Mom20.Valid {
		return false
	}
	if row.Close < rcfg.MinPrice || row.Close > rcfg.MaxPrice {
		return false
	}
	if row.RSI14.Value > rcfg.RSIUpper {
		return false
	}
	if row.Vol20Std.Value > rcfg.MaxVol20Std {
		return false
	}
	if row.VolRatio520.Value < rcfg.MinVolRatio520 {
		return false
	}
	if rcfg.RequireTurnoverData && row.TurnoverRate.Or(0) <= rcfg.MinTurnoverRate {
		return false
	}

	if (market.Label == model.MarketBear || market.Label == model.MarketNeutral) && rcfg.WeakMarket.Enabled {
		if row.Vol20Std.Value > rcfg.WeakMarket.MaxVol20Std {
			return false
		}
		if rcfg.WeakMarket.RequireMom20Positive && row.Mom20.Value <= 0 {
			return false
		}
	}
	return true
}
