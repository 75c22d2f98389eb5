package datasource

import (
	"context"
	"time"

	"StockPicker/internal/model"
)

// MockSource returns controllable fixed data for development and
// tests. BarCalls records every GetDailyBars invocation so tests can
// assert how often the ranking engine scanned.
type MockSource struct {
	Stocks      []model.StockInfo
	TradeDates  []time.Time
	Bars        map[string][]model.DailyBar
	IndexCloses map[string]map[time.Time]float64
	BarErrs     map[string]error

	StockListErr  error
	TradeDatesErr error

	BarCalls []string
}

func (m *MockSource) GetStockList(_ context.Context) ([]model.StockInfo, error) {
	if m.StockListErr != nil {
		return nil, m.StockListErr
	}
	return m.Stocks, nil
}

func (m *MockSource) GetTradeDates(_ context.Context, start, end time.Time) ([]time.Time, error) {
	if m.TradeDatesErr != nil {
		return nil, m.TradeDatesErr
	}
	var out []time.Time
	for _, d := range m.TradeDates {
		if !d.Before(start) && !d.After(end) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MockSource) GetDailyBars(_ context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	m.BarCalls = append(m.BarCalls, symbol)
	if err, ok := m.BarErrs[symbol]; ok {
		return nil, err
	}
	var out []model.DailyBar
	for _, b := range m.Bars[symbol] {
		if !b.TradeDate.Before(start) && !b.TradeDate.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockSource) GetIndexCloses(_ context.Context, symbol string, start, end time.Time) (map[time.Time]float64, error) {
	out := make(map[time.Time]float64)
	for d, v := range m.IndexCloses[symbol] {
		if !d.Before(start) && !d.After(end) {
			out[d] = v
		}
	}
	return out, nil
}

// GenerateDriftBars builds count synthetic bars ending near the last of
// dates, drifting by dailyDrift per bar from basePrice. Useful for
// fixtures that need a clean trend.
func GenerateDriftBars(basePrice, dailyDrift float64, dates []time.Time) []model.DailyBar {
	bars := make([]model.DailyBar, len(dates))
	price := basePrice
	for i, d := range dates {
		price *= 1 + dailyDrift
		bars[i] = model.DailyBar{
			TradeDate:    d,
			Open:         price * 0.999,
			High:         price * 1.005,
			Low:          price * 0.995,
			Close:        price,
			Volume:       1_000_000 * (1 + 0.001*float64(i%7)),
			TurnoverRate: model.MetricOf(1.5),
		}
	}
	return bars
}
