package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"StockPicker/internal/model"
)

// How long a cached stock list stays fresh.
const stockListTTL = 24 * time.Hour

// CachedSource is a cache-aside MarketDataSource backed by SQLite.
// Range queries whose coverage is fully cached are served locally;
// everything else hits the upstream source and is merged back.
//
// Coverage is tracked as a single [min,max] span per symbol. The
// ranking engine always asks for trailing windows ending at the
// signal date, so the span stays contiguous in practice.
type CachedSource struct {
	db       *sql.DB
	upstream MarketDataSource
	mu       sync.Mutex
}

// NewCachedSource opens (or creates) the cache database and runs
// migrations.
func NewCachedSource(dbPath string, upstream MarketDataSource) (*CachedSource, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	c := &CachedSource{db: db, upstream: upstream}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	log.Info().Str("path", dbPath).Msg("market cache opened")
	return c, nil
}

func (c *CachedSource) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_bars (
			symbol        TEXT NOT NULL,
			trade_date    TEXT NOT NULL,
			open          REAL,
			high          REAL,
			low           REAL,
			close         REAL,
			volume        REAL,
			turnover_rate REAL,
			PRIMARY KEY (symbol, trade_date)
		)`,
		`CREATE TABLE IF NOT EXISTS bar_coverage (
			symbol   TEXT PRIMARY KEY,
			min_date TEXT NOT NULL,
			max_date TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS index_closes (
			symbol     TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			close      REAL,
			PRIMARY KEY (symbol, trade_date)
		)`,
		`CREATE TABLE IF NOT EXISTS index_coverage (
			symbol   TEXT PRIMARY KEY,
			min_date TEXT NOT NULL,
			max_date TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trade_dates (
			trade_date TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS stock_list (
			symbol    TEXT PRIMARY KEY,
			name      TEXT,
			is_st     INTEGER,
			is_paused INTEGER,
			market    TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT
		)`,
	}
	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (c *CachedSource) Close() error {
	return c.db.Close()
}

// GetStockList serves the cached universe while it is within TTL,
// refreshing from upstream otherwise. A failed refresh falls back to
// stale cache contents when any exist.
func (c *CachedSource) GetStockList(ctx context.Context) ([]model.StockInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fetchedAt, ok := c.metaTime("stock_list_fetched_at"); ok && time.Since(fetchedAt) < stockListTTL {
		if stocks, err := c.readStockList(); err == nil && len(stocks) > 0 {
			log.Debug().Int("count", len(stocks)).Msg("stock list served from cache")
			return stocks, nil
		}
	}
	stocks, err := c.upstream.GetStockList(ctx)
	if err != nil {
		if stale, readErr := c.readStockList(); readErr == nil && len(stale) > 0 {
			log.Warn().Err(err).Msg("stock list refresh failed, using stale cache")
			return stale, nil
		}
		return nil, err
	}
	c.writeStockList(stocks)
	return stocks, nil
}

// GetTradeDates caches the trade calendar as a covered date span.
func (c *CachedSource) GetTradeDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	minDate, okMin := c.metaTime("calendar_min")
	maxDate, okMax := c.metaTime("calendar_max")
	if okMin && okMax && !minDate.After(start) && !maxDate.Before(end) {
		return c.readTradeDates(start, end)
	}
	dates, err := c.upstream.GetTradeDates(ctx, start, end)
	if err != nil {
		return nil, err
	}
	tx, txErr := c.db.Begin()
	if txErr == nil {
		for _, d := range dates {
			tx.Exec(`INSERT OR IGNORE INTO trade_dates(trade_date) VALUES(?)`, model.FormatDay(d))
		}
		tx.Commit()
		c.widenMeta("calendar_min", "calendar_max", start, end)
	}
	return dates, nil
}

// GetDailyBars serves bars locally when the cached coverage spans the
// request, merging upstream rows back otherwise.
func (c *CachedSource) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.covered("bar_coverage", symbol, start, end) {
		bars, err := c.readBars(symbol, start, end)
		if err == nil {
			return bars, nil
		}
	}
	bars, err := c.upstream.GetDailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		c.writeBars(symbol, bars, start, end)
	}
	return bars, nil
}

// GetIndexCloses mirrors GetDailyBars for index series.
func (c *CachedSource) GetIndexCloses(ctx context.Context, symbol string, start, end time.Time) (map[time.Time]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.covered("index_coverage", symbol, start, end) {
		closes, err := c.readIndexCloses(symbol, start, end)
		if err == nil {
			log.Debug().Str("symbol", symbol).Msg("index closes served from cache")
			return closes, nil
		}
	}
	closes, err := c.upstream.GetIndexCloses(ctx, symbol, start, end)
	if err != nil {
		// Stale coverage is better than nothing for regime detection.
		if stale, readErr := c.readIndexCloses(symbol, start, end); readErr == nil && len(stale) > 0 {
			log.Warn().Err(err).Str("symbol", symbol).Msg("index refresh failed, using stale cache")
			return stale, nil
		}
		return nil, err
	}
	if len(closes) > 0 {
		tx, txErr := c.db.Begin()
		if txErr == nil {
			for d, v := range closes {
				tx.Exec(`INSERT OR REPLACE INTO index_closes(symbol, trade_date, close) VALUES(?,?,?)`,
					symbol, model.FormatDay(d), v)
			}
			tx.Commit()
			c.widenCoverage("index_coverage", symbol, start, end)
		}
	}
	return closes, nil
}

func (c *CachedSource) covered(table, symbol string, start, end time.Time) bool {
	var minStr, maxStr string
	err := c.db.QueryRow(
		fmt.Sprintf(`SELECT min_date, max_date FROM %s WHERE symbol = ?`, table), symbol,
	).Scan(&minStr, &maxStr)
	if err != nil {
		return false
	}
	minDate, err1 := model.ParseDay(minStr)
	maxDate, err2 := model.ParseDay(maxStr)
	if err1 != nil || err2 != nil {
		return false
	}
	return !minDate.After(start) && !maxDate.Before(end)
}

func (c *CachedSource) widenCoverage(table, symbol string, start, end time.Time) {
	var minStr, maxStr string
	err := c.db.QueryRow(
		fmt.Sprintf(`SELECT min_date, max_date FROM %s WHERE symbol = ?`, table), symbol,
	).Scan(&minStr, &maxStr)
	if err == nil {
		if old, e := model.ParseDay(minStr); e == nil && old.Before(start) {
			start = old
		}
		if old, e := model.ParseDay(maxStr); e == nil && old.After(end) {
			end = old
		}
	}
	c.db.Exec(
		fmt.Sprintf(`INSERT OR REPLACE INTO %s(symbol, min_date, max_date) VALUES(?,?,?)`, table),
		symbol, model.FormatDay(start), model.FormatDay(end),
	)
}

func (c *CachedSource) widenMeta(minKey, maxKey string, start, end time.Time) {
	if old, ok := c.metaTime(minKey); ok && old.Before(start) {
		start = old
	}
	if old, ok := c.metaTime(maxKey); ok && old.After(end) {
		end = old
	}
	c.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES(?,?)`, minKey, model.FormatDay(start))
	c.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES(?,?)`, maxKey, model.FormatDay(end))
}

func (c *CachedSource) metaTime(key string) (time.Time, bool) {
	var value string
	if err := c.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value); err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, true
	}
	d, err := model.ParseDay(value)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func (c *CachedSource) readTradeDates(start, end time.Time) ([]time.Time, error) {
	rows, err := c.db.Query(
		`SELECT trade_date FROM trade_dates WHERE trade_date >= ? AND trade_date <= ? ORDER BY trade_date`,
		model.FormatDay(start), model.FormatDay(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		d, err := model.ParseDay(s)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *CachedSource) readBars(symbol string, start, end time.Time) ([]model.DailyBar, error) {
	rows, err := c.db.Query(
		`SELECT trade_date, open, high, low, close, volume, turnover_rate
		 FROM daily_bars WHERE symbol = ? AND trade_date >= ? AND trade_date <= ?
		 ORDER BY trade_date`,
		symbol, model.FormatDay(start), model.FormatDay(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DailyBar
	for rows.Next() {
		var dateStr string
		var bar model.DailyBar
		var turnover sql.NullFloat64
		if err := rows.Scan(&dateStr, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &turnover); err != nil {
			return nil, err
		}
		d, err := model.ParseDay(dateStr)
		if err != nil {
			continue
		}
		bar.TradeDate = d
		if turnover.Valid {
			bar.TurnoverRate = model.MetricOf(turnover.Float64)
		}
		out = append(out, bar)
	}
	return out, rows.Err()
}

func (c *CachedSource) writeBars(symbol string, bars []model.DailyBar, start, end time.Time) {
	tx, err := c.db.Begin()
	if err != nil {
		return
	}
	for _, b := range bars {
		var turnover interface{}
		if b.TurnoverRate.Valid {
			turnover = b.TurnoverRate.Value
		}
		tx.Exec(
			`INSERT OR REPLACE INTO daily_bars(symbol, trade_date, open, high, low, close, volume, turnover_rate)
			 VALUES(?,?,?,?,?,?,?,?)`,
			symbol, model.FormatDay(b.TradeDate), b.Open, b.High, b.Low, b.Close, b.Volume, turnover,
		)
	}
	if err := tx.Commit(); err != nil {
		return
	}
	c.widenCoverage("bar_coverage", symbol, start, end)
}

func (c *CachedSource) readIndexCloses(symbol string, start, end time.Time) (map[time.Time]float64, error) {
	rows, err := c.db.Query(
		`SELECT trade_date, close FROM index_closes
		 WHERE symbol = ? AND trade_date >= ? AND trade_date <= ?`,
		symbol, model.FormatDay(start), model.FormatDay(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[time.Time]float64)
	for rows.Next() {
		var dateStr string
		var v float64
		if err := rows.Scan(&dateStr, &v); err != nil {
			return nil, err
		}
		d, err := model.ParseDay(dateStr)
		if err != nil {
			continue
		}
		out[d] = v
	}
	return out, rows.Err()
}

func (c *CachedSource) readStockList() ([]model.StockInfo, error) {
	rows, err := c.db.Query(`SELECT symbol, name, is_st, is_paused, market FROM stock_list ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StockInfo
	for rows.Next() {
		var s model.StockInfo
		var isST, isPaused int
		if err := rows.Scan(&s.Symbol, &s.Name, &isST, &isPaused, &s.Market); err != nil {
			return nil, err
		}
		s.IsST = isST != 0
		s.IsPaused = isPaused != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *CachedSource) writeStockList(stocks []model.StockInfo) {
	tx, err := c.db.Begin()
	if err != nil {
		return
	}
	tx.Exec(`DELETE FROM stock_list`)
	for _, s := range stocks {
		tx.Exec(
			`INSERT OR REPLACE INTO stock_list(symbol, name, is_st, is_paused, market) VALUES(?,?,?,?,?)`,
			s.Symbol, s.Name, boolToInt(s.IsST), boolToInt(s.IsPaused), s.Market,
		)
	}
	if err := tx.Commit(); err != nil {
		return
	}
	c.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES(?,?)`,
		"stock_list_fetched_at", time.Now().UTC().Format(time.RFC3339))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
