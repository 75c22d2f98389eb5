package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"StockPicker/internal/config"
	"StockPicker/internal/datasource"
	"StockPicker/internal/indicator"
	"StockPicker/internal/model"
	"StockPicker/internal/strategy"
	"StockPicker/internal/universe"
)

// Minimum bar counts before a symbol is scoreable. Force mode accepts
// a much shorter history since it is the guaranteed fallback.
const (
	minBarsNormal = 70
	minBarsForce  = 30
)

// How far back to look when resolving the signal date and when
// fetching per-symbol history (calendar days, not trade days).
const (
	signalLookbackDays = 30
	barsLookbackDays   = 220
)

// FailedSymbol is one bounded example of a per-symbol fetch failure.
type FailedSymbol struct {
	Symbol string
	Reason string
}

// ModeStats aggregates why symbols dropped out of one mode pass.
type ModeStats struct {
	Scanned             int
	KlineSuccess        int
	KlineFailed         int
	KlineFailedExamples []FailedSymbol
	NoBars              int
	NoBarsSymbols       []string
	InsufficientBars    int
	EmptyTable          int
	ThresholdReject     int
	RiskReject          int
	MarketReject        int
	Scored              int
}

// RunMeta is the per-run metadata snapshot, returned alongside the
// recommendation instead of being stashed on the engine.
type RunMeta struct {
	TargetDate    time.Time
	SignalDate    time.Time
	FinalMode     model.Mode
	EnabledModes  []model.Mode
	StatsByMode   map[model.Mode]ModeStats
	MarketState   model.MarketState
	MarketReason  string
	StocksTotal   int
	FilteredTotal int
}

// ScoredCount returns how many symbols a mode scored, or -1 when the
// mode was never attempted.
func (m RunMeta) ScoredCount(mode model.Mode) int {
	stats, ok := m.StatsByMode[mode]
	if !ok {
		return -1
	}
	return stats.Scored
}

// Recommender ranks the filtered universe and picks one symbol per
// trading day, walking the enabled threshold tiers in order.
type Recommender struct {
	ds    datasource.MarketDataSource
	cfg   *config.Config
	names *NameCache
}

// New builds a Recommender. The name cache is passed in so callers
// control its lifetime and tests can pre-seed it.
func New(ds datasource.MarketDataSource, cfg *config.Config, names *NameCache) *Recommender {
	return &Recommender{ds: ds, cfg: cfg, names: names}
}

// ResolveSignalDate finds the T-1 signal date for a target day: the
// trade date immediately before the target when the target itself is
// a trade date, otherwise the latest trade date at or before it.
func (r *Recommender) ResolveSignalDate(ctx context.Context, targetDate time.Time) (time.Time, error) {
	start := targetDate.AddDate(0, 0, -signalLookbackDays)
	dates, err := r.ds.GetTradeDates(ctx, start, targetDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInsufficientDates, err)
	}
	if len(dates) < 2 {
		return time.Time{}, ErrInsufficientDates
	}
	last := dates[len(dates)-1]
	if last.Equal(targetDate) {
		return dates[len(dates)-2], nil
	}
	return last, nil
}

// Recommend runs the full pipeline for one target day and returns the
// top candidate plus run metadata.
func (r *Recommender) Recommend(ctx context.Context, targetDate time.Time) (model.RecommendationResult, RunMeta, error) {
	t0 := time.Now()
	meta := RunMeta{TargetDate: targetDate, StatsByMode: map[model.Mode]ModeStats{}}

	signalDate, err := r.ResolveSignalDate(ctx, targetDate)
	if err != nil {
		return model.RecommendationResult{}, meta, err
	}
	meta.SignalDate = signalDate

	if ok, msg := r.checkDataFreshness(ctx, signalDate); !ok {
		log.Warn().Str("signal_date", model.FormatDay(signalDate)).Msg(msg)
		if r.cfg.DataFreshness.StopOnStale {
			return model.RecommendationResult{}, meta, fmt.Errorf("%w: %s", ErrStaleData, msg)
		}
	}

	market, marketReason := r.resolveMarketState(ctx, signalDate)
	meta.MarketState = market
	meta.MarketReason = marketReason

	stocks, err := r.ds.GetStockList(ctx)
	if err != nil {
		return model.RecommendationResult{}, meta, fmt.Errorf("fetch stock universe: %w", err)
	}
	meta.StocksTotal = len(stocks)
	r.names.Prime(stocks)

	scanUniverse := universe.Filter(stocks, r.cfg.Filters, r.cfg.Universe.Limit)
	meta.FilteredTotal = len(scanUniverse)
	if max := r.cfg.Strategy.MaxSymbolsPerRun; max > 0 && len(scanUniverse) > max {
		scanUniverse = scanUniverse[:max]
	}

	enabledModes := r.enabledModes()
	meta.EnabledModes = enabledModes
	log.Info().
		Str("signal_date", model.FormatDay(signalDate)).
		Int("stocks_total", meta.StocksTotal).
		Int("filtered", meta.FilteredTotal).
		Int("scanning", len(scanUniverse)).
		Str("market", string(market.Label)).
		Float64("market_mom20", market.Mom20).
		Str("market_reason", marketReason).
		Msg("ranking universe")

	var candidates []model.CandidateScore
	finalMode := enabledModes[0]
	for _, m := range enabledModes {
		var stats ModeStats
		candidates, stats = r.rankCandidates(ctx, scanUniverse, signalDate, m, market)
		meta.StatsByMode[m] = stats
		finalMode = m
		r.logModeStats(m, stats)
		if len(candidates) > 0 {
			break
		}
	}
	if len(candidates) == 0 {
		return model.RecommendationResult{}, meta, fmt.Errorf("%w: %s", ErrNoCandidate, modesString(enabledModes))
	}
	meta.FinalMode = finalMode

	top := candidates[0]
	log.Info().
		Dur("elapsed", time.Since(t0)).
		Int("candidates", len(candidates)).
		Str("final_mode", string(finalMode)).
		Str("symbol", top.Symbol).
		Float64("score", top.ScoreTotal).
		Msg("recommendation complete")
	return model.RecommendationResult{
		TradeDate:      targetDate,
		CandidateScore: top,
		ThresholdMode:  finalMode,
	}, meta, nil
}

// Explain scores a single symbol for one target day and mode. Unlike
// Recommend there is no fallback: a threshold or risk rejection is
// returned as an error.
func (r *Recommender) Explain(ctx context.Context, symbol string, targetDate time.Time, mode model.Mode) (model.CandidateScore, error) {
	rule, err := strategy.ThresholdFromMode(mode)
	if err != nil {
		return model.CandidateScore{}, err
	}
	signalDate, err := r.ResolveSignalDate(ctx, targetDate)
	if err != nil {
		return model.CandidateScore{}, err
	}
	market, _ := r.resolveMarketState(ctx, signalDate)
	bars, err := r.fetchRecentBars(ctx, symbol, signalDate)
	if err != nil {
		return model.CandidateScore{}, fmt.Errorf("%w for %s: %v", ErrNoBars, symbol, err)
	}
	rows := indicator.Compute(bars)
	if len(rows) == 0 {
		return model.CandidateScore{}, fmt.Errorf("%w for %s", ErrNoBars, symbol)
	}
	latest := rows[len(rows)-1]
	if mode != model.ModeForce && !strategy.PassesThreshold(latest, rule) {
		return model.CandidateScore{}, &RejectedError{Symbol: symbol, Mode: mode, Gate: "threshold"}
	}
	if !strategy.PassesRiskFilter(latest, market, mode, r.cfg.RiskFilter, r.cfg.MarketFilter) {
		return model.CandidateScore{}, &RejectedError{Symbol: symbol, Mode: mode, Gate: "risk"}
	}
	total, breakdown := strategy.ComputeScore(latest, r.cfg.Strategy.Weights)
	return model.CandidateScore{
		Symbol:         symbol,
		Name:           r.names.Resolve(ctx, r.ds, symbol),
		ScoreTotal:     total,
		ScoreBreakdown: breakdown,
		KeyMetrics:     r.buildMetrics(latest, market),
		Reason:         strategy.BuildReason(breakdown, mode),
	}, nil
}

// rankCandidates runs one mode pass over the universe: fetch bars,
// compute indicators, gate, score. Failures skip the symbol and are
// tallied; they never abort the pass.
func (r *Recommender) rankCandidates(ctx context.Context, stocks []model.StockInfo, signalDate time.Time, mode model.Mode, market model.MarketState) ([]model.CandidateScore, ModeStats) {
	stats := ModeStats{Scanned: len(stocks)}
	rule, err := strategy.ThresholdFromMode(mode)
	if err != nil {
		// Enabled modes are validated at startup; an unknown mode here
		// yields zero candidates rather than a crash mid-scan.
		return nil, stats
	}
	exampleCap := r.cfg.Strategy.FailedSymbolExamples
	minBars := minBarsNormal
	if mode == model.ModeForce {
		minBars = minBarsForce
	}

	var out []model.CandidateScore
	progressEvery := r.cfg.Strategy.ProgressEvery
	for idx, stock := range stocks {
		if progressEvery > 0 && ((idx+1)%progressEvery == 0 || idx+1 == len(stocks)) {
			log.Debug().
				Str("mode", string(mode)).
				Int("scanned", idx+1).
				Int("total", len(stocks)).
				Int("candidates", len(out)).
				Msg("scan progress")
		}
		bars, err := r.fetchRecentBars(ctx, stock.Symbol, signalDate)
		if err != nil {
			stats.KlineFailed++
			if len(stats.KlineFailedExamples) < exampleCap {
				stats.KlineFailedExamples = append(stats.KlineFailedExamples, FailedSymbol{Symbol: stock.Symbol, Reason: err.Error()})
			}
			continue
		}
		if len(bars) == 0 {
			stats.NoBars++
			if len(stats.NoBarsSymbols) < exampleCap {
				stats.NoBarsSymbols = append(stats.NoBarsSymbols, stock.Symbol)
			}
			continue
		}
		stats.KlineSuccess++
		if len(bars) < minBars {
			stats.InsufficientBars++
			continue
		}
		rows := indicator.Compute(bars)
		if len(rows) == 0 {
			stats.EmptyTable++
			continue
		}
		latest := rows[len(rows)-1]
		if mode != model.ModeForce && !strategy.PassesThreshold(latest, rule) {
			stats.ThresholdReject++
			continue
		}
		if !strategy.PassesRiskFilter(latest, market, mode, r.cfg.RiskFilter, r.cfg.MarketFilter) {
			if mode != model.ModeForce && r.cfg.MarketFilter.Enabled && market.Label == model.MarketBear {
				stats.MarketReject++
			} else {
				stats.RiskReject++
			}
			continue
		}
		total, breakdown := strategy.ComputeScore(latest, r.cfg.Strategy.Weights)
		out = append(out, model.CandidateScore{
			Symbol:         stock.Symbol,
			Name:           stock.Name,
			ScoreTotal:     total,
			ScoreBreakdown: breakdown,
			KeyMetrics:     r.buildMetrics(latest, market),
			Reason:         strategy.BuildReason(breakdown, mode),
		})
		stats.Scored++
	}
	// Stable sort keeps universe order as the tie-break.
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScoreTotal > out[j].ScoreTotal })
	return out, stats
}

// checkDataFreshness probes one symbol's recent bars and verifies the
// latest bar is not older than the signal date.
func (r *Recommender) checkDataFreshness(ctx context.Context, signalDate time.Time) (bool, string) {
	fcfg := r.cfg.DataFreshness
	if !fcfg.Enabled {
		return true, "disabled"
	}
	lookback := fcfg.ProbeLookbackDays
	if lookback < 3 {
		lookback = 3
	}
	start := signalDate.AddDate(0, 0, -lookback)
	bars, err := r.ds.GetDailyBars(ctx, fcfg.ProbeSymbol, start, signalDate)
	if err != nil {
		return false, fmt.Sprintf("freshness probe %s failed: %v", fcfg.ProbeSymbol, err)
	}
	if len(bars) == 0 {
		return false, fmt.Sprintf("freshness probe %s returned no bars, data source may lag", fcfg.ProbeSymbol)
	}
	last := bars[0].TradeDate
	for _, b := range bars {
		if b.TradeDate.After(last) {
			last = b.TradeDate
		}
	}
	if last.Before(signalDate) {
		return false, fmt.Sprintf("signal date %s not yet published, probe %s latest bar is %s",
			model.FormatDay(signalDate), fcfg.ProbeSymbol, model.FormatDay(last))
	}
	return true, "ok"
}

// resolveMarketState classifies the index regime; any failure degrades
// to the unknown state so the run can still proceed.
func (r *Recommender) resolveMarketState(ctx context.Context, signalDate time.Time) (model.MarketState, string) {
	mcfg := r.cfg.MarketFilter
	if !mcfg.Enabled {
		return model.UnknownMarket(), "market_filter_disabled"
	}
	lookback := mcfg.LookbackDays
	if lookback <= 0 {
		lookback = 120
	}
	fetchDays := lookback * 2
	if fetchDays < 180 {
		fetchDays = 180
	}
	start := signalDate.AddDate(0, 0, -fetchDays)
	closes, err := r.ds.GetIndexCloses(ctx, mcfg.IndexSymbol, start, signalDate)
	if err != nil {
		return model.UnknownMarket(), fmt.Sprintf("index_error:%v", err)
	}
	if len(closes) == 0 {
		return model.UnknownMarket(), "index_closes_empty"
	}
	return strategy.DetectMarketState(closes, signalDate, lookback), "ok"
}

func (r *Recommender) fetchRecentBars(ctx context.Context, symbol string, signalDate time.Time) ([]model.DailyBar, error) {
	start := signalDate.AddDate(0, 0, -barsLookbackDays)
	bars, err := r.ds.GetDailyBars(ctx, symbol, start, signalDate)
	if err != nil {
		return nil, err
	}
	out := bars[:0:0]
	for _, b := range bars {
		if !b.TradeDate.After(signalDate) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *Recommender) buildMetrics(row model.FeatureRow, market model.MarketState) model.KeyMetrics {
	atr14 := row.ATR14.Or(0)
	stop, take := strategy.ComputeStopTakePrices(row.Close, atr14, r.cfg.RiskTargets)
	return model.KeyMetrics{
		Close:                row.Close,
		MA20:                 row.MA20.Or(0),
		MA60:                 row.MA60.Or(0),
		Mom5:                 row.Mom5.Or(0),
		Mom20:                row.Mom20.Or(0),
		RSI14:                row.RSI14.Or(0),
		ATR14:                atr14,
		StopLossPrice:        stop,
		TakeProfitPrice:      take,
		SuggestedHoldingDays: float64(strategy.SuggestHoldingDays(row, market)),
		VolRatio520:          row.VolRatio520.Or(0),
		VolumeZScore20:       row.VolumeZScore20.Or(0),
		TurnoverRate:         row.TurnoverRate.Or(0),
		Vol20Std:             row.Vol20Std.Or(0),
	}
}

// enabledModes returns the configured fallback order, deduplicated.
// Config validation already rejected unknown names.
func (r *Recommender) enabledModes() []model.Mode {
	var out []model.Mode
	seen := map[model.Mode]bool{}
	for _, s := range r.cfg.Strategy.EnabledModes {
		m := model.Mode(s)
		if m.Known() && !seen[m] {
			out = append(out, m)
			seen[m] = true
		}
	}
	if len(out) == 0 {
		return model.AllModes
	}
	return out
}

func (r *Recommender) logModeStats(mode model.Mode, stats ModeStats) {
	evt := log.Info().
		Str("mode", string(mode)).
		Int("scanned", stats.Scanned).
		Int("kline_success", stats.KlineSuccess).
		Int("kline_failed", stats.KlineFailed).
		Int("no_bars", stats.NoBars).
		Int("insufficient_bars", stats.InsufficientBars).
		Int("empty_table", stats.EmptyTable).
		Int("threshold_reject", stats.ThresholdReject).
		Int("risk_reject", stats.RiskReject).
		Int("market_reject", stats.MarketReject).
		Int("scored", stats.Scored)
	if n := len(stats.KlineFailedExamples); n > 0 {
		first := stats.KlineFailedExamples[0]
		evt = evt.Str("first_kline_failure", first.Symbol+": "+first.Reason)
	}
	evt.Msg("mode statistics")
}

func modesString(modes []model.Mode) string {
	s := ""
	for i, m := range modes {
		if i > 0 {
			s += ","
		}
		s += string(m)
	}
	return s
}
