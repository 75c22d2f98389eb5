package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"StockPicker/internal/model"
)

// SQLiteRecorder persists recommendation history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs
// migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so analysis tools can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recommendations (
			id                     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_time               TEXT NOT NULL,
			trade_date             TEXT NOT NULL,
			symbol                 TEXT NOT NULL,
			name                   TEXT,
			threshold_mode         TEXT,
			score_total            REAL,
			score_trend            REAL,
			score_momentum         REAL,
			score_stability        REAL,
			score_volume           REAL,
			close                  REAL,
			stop_loss_price        REAL,
			take_profit_price      REAL,
			suggested_holding_days INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_trade_date ON recommendations(trade_date)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordRecommendation appends one recommendation row.
func (r *SQLiteRecorder) RecordRecommendation(rec model.RecommendationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO recommendations (
			run_time, trade_date, symbol, name, threshold_mode,
			score_total, score_trend, score_momentum, score_stability, score_volume,
			close, stop_loss_price, take_profit_price, suggested_holding_days
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Format("2006-01-02 15:04:05"),
		model.FormatDay(rec.TradeDate),
		rec.Symbol,
		rec.Name,
		string(rec.ThresholdMode),
		rec.ScoreTotal,
		rec.ScoreBreakdown.Trend,
		rec.ScoreBreakdown.Momentum,
		rec.ScoreBreakdown.Stability,
		rec.ScoreBreakdown.Volume,
		rec.KeyMetrics.Close,
		rec.KeyMetrics.StopLossPrice,
		rec.KeyMetrics.TakeProfitPrice,
		int(rec.KeyMetrics.SuggestedHoldingDays),
	)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
