package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPicker/internal/config"
	"StockPicker/internal/datasource"
	"StockPicker/internal/model"
)

// tradeDates returns n consecutive calendar days ending 2026-02-25.
func tradeDates(n int) []time.Time {
	end := model.Day(2026, 2, 25)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = end.AddDate(0, 0, i-n+1)
	}
	return out
}

// zigzagBars alternates an up day and a down day so the series trends
// without saturating RSI the way a pure drift would.
func zigzagBars(base, upPct, downPct float64, dates []time.Time) []model.DailyBar {
	bars := make([]model.DailyBar, len(dates))
	price := base
	for i, d := range dates {
		if i%2 == 0 {
			price *= 1 + upPct
		} else {
			price *= 1 - downPct
		}
		bars[i] = model.DailyBar{
			TradeDate:    d,
			Open:         price * 0.999,
			High:         price * 1.004,
			Low:          price * 0.996,
			Close:        price,
			Volume:       2_000_000,
			TurnoverRate: model.MetricOf(1.8),
		}
	}
	return bars
}

func risingIndex(dates []time.Time) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(dates))
	v := 3000.0
	for _, d := range dates {
		v *= 1.002
		out[d] = v
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.DataFreshness.Enabled = false
	return cfg
}

func newTestSource(dates []time.Time) *datasource.MockSource {
	return &datasource.MockSource{
		Stocks: []model.StockInfo{
			{Symbol: "600001", Name: "趋势股"},
			{Symbol: "600002", Name: "下跌股"},
		},
		TradeDates: dates,
		Bars: map[string][]model.DailyBar{
			"600001": zigzagBars(10, 0.010, 0.005, dates),
			"600002": zigzagBars(20, 0.005, 0.010, dates),
		},
		IndexCloses: map[string]map[time.Time]float64{
			"000300": risingIndex(dates),
		},
	}
}

func TestResolveSignalDate(t *testing.T) {
	dates := tradeDates(10)
	ds := &datasource.MockSource{TradeDates: dates}
	rec := New(ds, testConfig(), NewNameCache())
	ctx := context.Background()

	// Target on a trade date resolves to the previous one.
	got, err := rec.ResolveSignalDate(ctx, dates[9])
	require.NoError(t, err)
	assert.Equal(t, dates[8], got)

	// Target past the calendar resolves to the latest trade date.
	got, err = rec.ResolveSignalDate(ctx, dates[9].AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, dates[9], got)

	// Too few dates in the lookback window.
	_, err = rec.ResolveSignalDate(ctx, dates[0])
	assert.ErrorIs(t, err, ErrInsufficientDates)
}

func TestRecommendPicksTrendingStock(t *testing.T) {
	dates := tradeDates(120)
	ds := newTestSource(dates)
	rec := New(ds, testConfig(), NewNameCache())

	result, meta, err := rec.Recommend(context.Background(), dates[119])
	require.NoError(t, err)
	assert.Equal(t, "600001", result.Symbol)
	assert.Equal(t, "趋势股", result.Name)
	assert.Equal(t, model.ModeNormal, result.ThresholdMode)
	assert.Equal(t, dates[119], result.TradeDate)
	assert.GreaterOrEqual(t, result.ScoreTotal, 0.0)
	assert.LessOrEqual(t, result.ScoreTotal, 100.0)
	assert.Greater(t, result.KeyMetrics.TakeProfitPrice, result.KeyMetrics.Close)
	assert.Less(t, result.KeyMetrics.StopLossPrice, result.KeyMetrics.Close)
	assert.NotEmpty(t, result.Reason)

	assert.Equal(t, dates[118], meta.SignalDate)
	assert.Equal(t, model.ModeNormal, meta.FinalMode)
	assert.Equal(t, model.MarketBull, meta.MarketState.Label)
	assert.Equal(t, 2, meta.StocksTotal)
}

func TestRecommendShortCircuitsAfterNormalHit(t *testing.T) {
	dates := tradeDates(120)
	ds := newTestSource(dates)
	rec := New(ds, testConfig(), NewNameCache())

	_, meta, err := rec.Recommend(context.Background(), dates[119])
	require.NoError(t, err)

	// Normal mode found a candidate, so relaxed/force never ran.
	assert.Equal(t, 1, meta.ScoredCount(model.ModeNormal))
	assert.Equal(t, -1, meta.ScoredCount(model.ModeRelaxed))
	assert.Equal(t, -1, meta.ScoredCount(model.ModeForce))
	// One kline fetch per symbol, single pass.
	assert.Len(t, ds.BarCalls, 2)
}

func TestRecommendForceFallbackOnShortHistory(t *testing.T) {
	// 40 bars: below the normal floor of 70 but above the force floor.
	dates := tradeDates(40)
	ds := &datasource.MockSource{
		Stocks:     []model.StockInfo{{Symbol: "600002", Name: "下跌股"}},
		TradeDates: dates,
		Bars: map[string][]model.DailyBar{
			"600002": zigzagBars(20, 0.005, 0.010, dates),
		},
		IndexCloses: map[string]map[time.Time]float64{"000300": risingIndex(dates)},
	}
	rec := New(ds, testConfig(), NewNameCache())

	result, meta, err := rec.Recommend(context.Background(), dates[39])
	require.NoError(t, err)
	assert.Equal(t, model.ModeForce, result.ThresholdMode)
	assert.Equal(t, 1, meta.StatsByMode[model.ModeNormal].InsufficientBars)
	assert.Equal(t, 1, meta.StatsByMode[model.ModeRelaxed].InsufficientBars)
	assert.Equal(t, 1, meta.StatsByMode[model.ModeForce].Scored)
	// Force mode appends the fallback note.
	assert.Contains(t, result.Reason[len(result.Reason)-1], "强制")
}

func TestRecommendNoCandidateWhenFallbackDisabled(t *testing.T) {
	dates := tradeDates(120)
	ds := newTestSource(dates)
	cfg := testConfig()
	cfg.Strategy.EnabledModes = []string{"normal"}
	// Price band nobody clears.
	cfg.RiskFilter.MinPrice = 1000

	rec := New(ds, cfg, NewNameCache())
	_, meta, err := rec.Recommend(context.Background(), dates[119])
	assert.ErrorIs(t, err, ErrNoCandidate)
	assert.Equal(t, []model.Mode{model.ModeNormal}, meta.EnabledModes)
}

func TestRecommendStopsOnStaleData(t *testing.T) {
	dates := tradeDates(120)
	ds := newTestSource(dates)
	// Probe symbol's bars end two days before the signal date.
	ds.Bars["000001"] = zigzagBars(10, 0.01, 0.005, dates[:117])
	cfg := testConfig()
	cfg.DataFreshness.Enabled = true

	rec := New(ds, cfg, NewNameCache())
	_, _, err := rec.Recommend(context.Background(), dates[119])
	assert.ErrorIs(t, err, ErrStaleData)
}

func TestRecommendDegradesToUnknownMarket(t *testing.T) {
	dates := tradeDates(120)
	ds := newTestSource(dates)
	ds.IndexCloses = nil

	rec := New(ds, testConfig(), NewNameCache())
	result, meta, err := rec.Recommend(context.Background(), dates[119])
	require.NoError(t, err)
	assert.Equal(t, model.MarketUnknown, meta.MarketState.Label)
	assert.NotEmpty(t, result.Symbol)
}

func TestExplain(t *testing.T) {
	dates := tradeDates(120)
	ds := newTestSource(dates)
	rec := New(ds, testConfig(), NewNameCache())
	ctx := context.Background()

	score, err := rec.Explain(ctx, "600001", dates[119], model.ModeNormal)
	require.NoError(t, err)
	assert.Equal(t, "趋势股", score.Name)
	assert.Greater(t, score.ScoreTotal, 0.0)

	// The declining stock fails the normal threshold.
	_, err = rec.Explain(ctx, "600002", dates[119], model.ModeNormal)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "threshold", rejected.Gate)

	// Force mode bypasses the threshold gate, matching the ranking pass.
	_, err = rec.Explain(ctx, "600002", dates[119], model.ModeForce)
	assert.NoError(t, err)

	_, err = rec.Explain(ctx, "999999", dates[119], model.ModeNormal)
	assert.ErrorIs(t, err, ErrNoBars)

	_, err = rec.Explain(ctx, "600001", dates[119], model.Mode("bogus"))
	assert.ErrorContains(t, err, "unsupported mode")
}

func TestExplainRiskRejection(t *testing.T) {
	dates := tradeDates(120)
	ds := newTestSource(dates)
	cfg := testConfig()
	cfg.RiskFilter.MinPrice = 1000

	rec := New(ds, cfg, NewNameCache())
	_, err := rec.Explain(context.Background(), "600001", dates[119], model.ModeNormal)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "risk", rejected.Gate)
}

func TestNameCache(t *testing.T) {
	ds := &datasource.MockSource{
		Stocks: []model.StockInfo{{Symbol: "600001", Name: "趋势股"}},
	}
	cache := NewNameCache()
	ctx := context.Background()
	assert.Equal(t, "趋势股", cache.Resolve(ctx, ds, "600001"))
	assert.Equal(t, "999999", cache.Resolve(ctx, ds, "999999"))

	primed := NewNameCache()
	primed.Prime([]model.StockInfo{{Symbol: "000001", Name: "平安银行"}})
	assert.Equal(t, "平安银行", primed.Resolve(ctx, ds, "000001"))
}
