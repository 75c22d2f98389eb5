package strategy

import "StockPicker/internal/model"

// SuggestHoldingDays proposes a holding period from trend strength and
// volatility, shortened when the overall market is weak.
func SuggestHoldingDays(row model.FeatureRow, market model.MarketState) int {
	mom20 := row.Mom20.Or(0)
	vol20 := row.Vol20Std.Or(0.05)
	rsi14 := row.RSI14.Or(50)

	var days int
	switch {
	case mom20 >= 0.10 && vol20 <= 0.03 && rsi14 <= 70:
		days = 5
	case mom20 >= 0.04 && vol20 <= 0.05 && rsi14 <= 78:
		days = 3
	default:
		days = 2
	}

	switch market.Label {
	case model.MarketBear:
		if days > 1 {
			days = 1
		}
	case model.MarketNeutral:
		if days > 3 {
			days = 3
		}
	}
	if days < 1 {
		days = 1
	}
	return days
}
