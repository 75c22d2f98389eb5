package datasource

import (
	"context"
	"errors"
	"time"

	"StockPicker/internal/model"
)

// ErrNoData marks a data-source call that failed or came back empty.
// The ranking engine treats it as a per-symbol skip, the backtest as a
// per-day skip; only the freshness pre-flight and the initial universe
// fetch escalate it.
var ErrNoData = errors.New("no data available")

// MarketDataSource provides the four read contracts the core consumes.
// Implementations own retries and caching; the core never retries.
type MarketDataSource interface {
	// GetStockList returns the full tradeable universe.
	GetStockList(ctx context.Context) ([]model.StockInfo, error)
	// GetTradeDates returns the ordered trading days in [start, end].
	GetTradeDates(ctx context.Context, start, end time.Time) ([]time.Time, error)
	// GetDailyBars returns one symbol's daily bars in [start, end],
	// ordered by trade date.
	GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error)
	// GetIndexCloses returns an index's closes keyed by trade date.
	GetIndexCloses(ctx context.Context, symbol string, start, end time.Time) (map[time.Time]float64, error)
}
