package recorder

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"StockPicker/internal/model"
)

func TestSQLiteRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recs.db")
	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r.Close()

	rec := model.RecommendationResult{
		TradeDate: model.Day(2026, 2, 26),
		CandidateScore: model.CandidateScore{
			Symbol:         "600519",
			Name:           "贵州茅台",
			ScoreTotal:     72.5,
			ScoreBreakdown: model.ScoreBreakdown{Trend: 80, Momentum: 70, Stability: 65, Volume: 60},
			KeyMetrics: model.KeyMetrics{
				Close:                1500.12,
				StopLossPrice:        1455.12,
				TakeProfitPrice:      1590.37,
				SuggestedHoldingDays: 3,
			},
		},
		ThresholdMode: model.ModeNormal,
	}
	require.NoError(t, r.RecordRecommendation(rec))
	require.NoError(t, r.RecordRecommendation(rec))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM recommendations`).Scan(&count))
	assert.Equal(t, 2, count)

	var symbol, mode, tradeDate string
	var score float64
	var holding int
	require.NoError(t, db.QueryRow(
		`SELECT symbol, threshold_mode, trade_date, score_total, suggested_holding_days
		 FROM recommendations ORDER BY id LIMIT 1`,
	).Scan(&symbol, &mode, &tradeDate, &score, &holding))
	assert.Equal(t, "600519", symbol)
	assert.Equal(t, "normal", mode)
	assert.Equal(t, "2026-02-26", tradeDate)
	assert.Equal(t, 72.5, score)
	assert.Equal(t, 3, holding)
}

func TestNoopRecorder(t *testing.T) {
	n := NewNoopRecorder()
	assert.NoError(t, n.RecordRecommendation(model.RecommendationResult{}))
	assert.NoError(t, n.Close())
}
