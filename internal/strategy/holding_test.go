package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"StockPicker/internal/model"
)

func TestSuggestHoldingDays(t *testing.T) {
	bull := model.MarketState{Label: model.MarketBull}
	bear := model.MarketState{Label: model.MarketBear}
	neutral := model.MarketState{Label: model.MarketNeutral}
	unknown := model.UnknownMarket()

	row := func(mom20, vol20, rsi float64) model.FeatureRow {
		return model.FeatureRow{
			Mom20:    model.MetricOf(mom20),
			Vol20Std: model.MetricOf(vol20),
			RSI14:    model.MetricOf(rsi),
		}
	}

	tests := []struct {
		name   string
		row    model.FeatureRow
		market model.MarketState
		want   int
	}{
		{"strong calm trend", row(0.12, 0.02, 60), bull, 5},
		{"moderate trend", row(0.05, 0.04, 65), bull, 3},
		{"weak trend", row(0.01, 0.06, 65), bull, 2},
		{"overheated rsi caps tier", row(0.12, 0.02, 80), bull, 2},
		{"bear caps at one day", row(0.12, 0.02, 60), bear, 1},
		{"neutral caps at three days", row(0.12, 0.02, 60), neutral, 3},
		{"unknown market keeps tier", row(0.12, 0.02, 60), unknown, 5},
		{"missing metrics fall through", model.FeatureRow{}, bull, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestHoldingDays(tt.row, tt.market))
		})
	}
}
