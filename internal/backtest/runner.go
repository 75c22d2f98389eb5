package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"StockPicker/internal/config"
	"StockPicker/internal/datasource"
	"StockPicker/internal/engine"
	"StockPicker/internal/errmsg"
	"StockPicker/internal/model"
)

// Forward-return horizons in trading-day steps. The final horizon
// bars are excluded from the replay so returns stay computable.
const (
	horizonShort = 1
	horizonLong  = 5
)

const minTradeDates = 8

// ErrInsufficientDates means the range holds too few trading days to
// backtest at all.
var ErrInsufficientDates = errors.New("not enough trade dates for backtest")

// ErrorExample is one bounded sample of a skipped day.
type ErrorExample struct {
	TradeDate string `json:"trade_date"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// Summary aggregates a full backtest run. Skipped days are split into
// genuine data errors and legitimate no-candidate outcomes.
type Summary struct {
	Period           string                 `json:"period"`
	AttemptedDays    int                    `json:"attempted_days"`
	TotalTrades      int                    `json:"total_trades"`
	SkippedDays      int                    `json:"skipped_days"`
	NoCandidateDays  int                    `json:"no_candidate_days"`
	DataErrorDays    int                    `json:"data_error_days"`
	WinRateGross1d   float64                `json:"win_rate_gross_1d"`
	WinRateNet1d     float64                `json:"win_rate_net_1d"`
	AvgReturn1dGross float64                `json:"avg_return_1d_gross"`
	AvgReturn5dGross float64                `json:"avg_return_5d_gross"`
	AvgReturn1dNet   float64                `json:"avg_return_1d_net"`
	AvgReturn5dNet   float64                `json:"avg_return_5d_net"`
	MaxDrawdownProxy float64                `json:"max_drawdown_proxy"`
	ModeCounts       map[model.Mode]int     `json:"threshold_mode_counts"`
	ErrorCounts      map[string]int         `json:"error_counts"`
	ErrorExamples    []ErrorExample         `json:"error_examples"`
	Records          []model.BacktestRecord `json:"-"`
}

// Runner replays the recommendation pipeline across a date range and
// scores it under a round-trip cost model.
type Runner struct {
	rec  *engine.Recommender
	ds   datasource.MarketDataSource
	cost config.ExecutionCostConfig

	verboseErrors    bool
	maxErrorExamples int
}

// NewRunner builds a Runner sharing the recommender's data source.
func NewRunner(rec *engine.Recommender, ds datasource.MarketDataSource, cfg *config.Config) *Runner {
	return &Runner{
		rec:              rec,
		ds:               ds,
		cost:             cfg.ExecutionCost,
		verboseErrors:    cfg.Backtest.VerboseErrors,
		maxErrorExamples: cfg.Backtest.MaxErrorExamples,
	}
}

// Run replays every trade date in [start, end] except the final
// horizonLong days. Per-day failures are tallied and the replay
// continues; only a missing calendar aborts.
func (r *Runner) Run(ctx context.Context, start, end time.Time) (Summary, error) {
	tradeDates, err := r.ds.GetTradeDates(ctx, start, end)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrInsufficientDates, err)
	}
	if len(tradeDates) < minTradeDates {
		return Summary{}, ErrInsufficientDates
	}
	attempted := tradeDates[:len(tradeDates)-horizonLong]
	lastDate := tradeDates[len(tradeDates)-1]

	var records []model.BacktestRecord
	errorCounts := map[string]int{}
	var errorExamples []ErrorExample
	modeCounts := map[model.Mode]int{}
	noCandidateDays := 0

	for _, dt := range attempted {
		rec, meta, err := r.rec.Recommend(ctx, dt)
		if err != nil {
			kind := errmsg.Classify(err)
			errorCounts[kind]++
			if errors.Is(err, engine.ErrNoCandidate) {
				noCandidateDays++
			}
			if len(errorExamples) < r.maxErrorExamples {
				errorExamples = append(errorExamples, ErrorExample{
					TradeDate: model.FormatDay(dt),
					ErrorType: kind,
					Message:   errmsg.Friendly(err),
				})
			}
			if r.verboseErrors {
				log.Warn().
					Str("target", model.FormatDay(dt)).
					Str("error_type", kind).
					Msg(errmsg.Friendly(err))
			}
			continue
		}
		if r.verboseErrors {
			log.Info().
				Str("target", model.FormatDay(dt)).
				Str("signal", model.FormatDay(meta.SignalDate)).
				Int("normal_scored", meta.ScoredCount(model.ModeNormal)).
				Int("relaxed_scored", meta.ScoredCount(model.ModeRelaxed)).
				Int("force_scored", meta.ScoredCount(model.ModeForce)).
				Str("final_mode", string(meta.FinalMode)).
				Msg("backtest day")
		}
		modeCounts[rec.ThresholdMode]++

		bars, err := r.ds.GetDailyBars(ctx, rec.Symbol, dt, lastDate)
		if err != nil {
			bars = nil
		}
		closeByDate := make(map[time.Time]float64, len(bars))
		for _, b := range bars {
			closeByDate[b.TradeDate] = b.Close
		}
		ret1dGross := forwardReturn(closeByDate, dt, tradeDates, horizonShort)
		ret5dGross := forwardReturn(closeByDate, dt, tradeDates, horizonLong)
		records = append(records, model.BacktestRecord{
			TradeDate:     dt,
			Symbol:        rec.Symbol,
			Name:          rec.Name,
			ThresholdMode: rec.ThresholdMode,
			Ret1dGross:    ret1dGross,
			Ret5dGross:    ret5dGross,
			Ret1dNet:      r.applyRoundTripCost(ret1dGross),
			Ret5dNet:      r.applyRoundTripCost(ret5dGross),
		})
	}
	return r.summarize(records, start, end, len(attempted), noCandidateDays, errorCounts, errorExamples, modeCounts), nil
}

// applyRoundTripCost converts a gross return to a net return by
// simulating buy-then-sell friction: slippage on both sides, a buy
// commission, and a sell commission plus stamp duty. A gross return at
// or below -100% is a total loss and clamps to exactly -1 rather than
// flowing through the fee formula.
func (r *Runner) applyRoundTripCost(gross model.Metric) model.Metric {
	if !gross.Valid {
		return model.Metric{}
	}
	if !r.cost.Enabled {
		return gross
	}
	grossFactor := 1.0 + gross.Value
	if grossFactor <= 0 {
		return model.MetricOf(-1.0)
	}
	slip := r.cost.SlippageBps / 10000.0
	buyFee := r.cost.CommissionRate
	if r.cost.MinCommissionPerSide > buyFee {
		buyFee = r.cost.MinCommissionPerSide
	}
	sellFee := r.cost.CommissionRate + r.cost.StampDutySellRate
	if r.cost.MinCommissionPerSide > sellFee {
		sellFee = r.cost.MinCommissionPerSide
	}
	netFactor := grossFactor * (1.0 - slip) * (1.0 - sellFee) / ((1.0 + slip) * (1.0 + buyFee))
	return model.MetricOf(netFactor - 1.0)
}

// forwardReturn computes close[t+step]/close[t]-1 along the trade-date
// sequence. Missing either close, a non-positive entry close, or a
// step landing past the range all yield a missing value.
func forwardReturn(closeByDate map[time.Time]float64, dt time.Time, tradeDates []time.Time, step int) model.Metric {
	idx := -1
	for i, d := range tradeDates {
		if d.Equal(dt) {
			idx = i
			break
		}
	}
	if idx < 0 || idx+step >= len(tradeDates) {
		return model.Metric{}
	}
	entry, okEntry := closeByDate[dt]
	exit, okExit := closeByDate[tradeDates[idx+step]]
	if !okEntry || !okExit || entry <= 0 {
		return model.Metric{}
	}
	return model.MetricOf(exit/entry - 1.0)
}

func (r *Runner) summarize(records []model.BacktestRecord, start, end time.Time, attemptedDays, noCandidateDays int, errorCounts map[string]int, errorExamples []ErrorExample, modeCounts map[model.Mode]int) Summary {
	var oneGross, fiveGross, oneNet, fiveNet []float64
	for _, rec := range records {
		if rec.Ret1dGross.Valid {
			oneGross = append(oneGross, rec.Ret1dGross.Value)
		}
		if rec.Ret5dGross.Valid {
			fiveGross = append(fiveGross, rec.Ret5dGross.Value)
		}
		if rec.Ret1dNet.Valid {
			oneNet = append(oneNet, rec.Ret1dNet.Value)
		}
		if rec.Ret5dNet.Valid {
			fiveNet = append(fiveNet, rec.Ret5dNet.Value)
		}
	}

	// Compound 1-day net returns into an equity curve, then take the
	// largest peak-to-trough decline as the drawdown proxy.
	equity := 1.0
	peak := 1.0
	maxDD := 0.0
	for _, v := range oneNet {
		equity *= 1 + v
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}

	skipped := attemptedDays - len(records)
	if skipped < 0 {
		skipped = 0
	}
	return Summary{
		Period:           fmt.Sprintf("%s -> %s", model.FormatDay(start), model.FormatDay(end)),
		AttemptedDays:    attemptedDays,
		TotalTrades:      len(records),
		SkippedDays:      skipped,
		NoCandidateDays:  noCandidateDays,
		DataErrorDays:    skipped - noCandidateDays,
		WinRateGross1d:   winRate(oneGross),
		WinRateNet1d:     winRate(oneNet),
		AvgReturn1dGross: mean(oneGross),
		AvgReturn5dGross: mean(fiveGross),
		AvgReturn1dNet:   mean(oneNet),
		AvgReturn5dNet:   mean(fiveNet),
		MaxDrawdownProxy: maxDD,
		ModeCounts:       modeCounts,
		ErrorCounts:      errorCounts,
		ErrorExamples:    errorExamples,
		Records:          records,
	}
}

func winRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, v := range returns {
		if v > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
