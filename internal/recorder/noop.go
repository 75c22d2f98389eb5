package recorder

import "StockPicker/internal/model"

// NoopRecorder discards everything. Used when persistence is disabled
// or the database cannot be opened.
type NoopRecorder struct{}

// NewNoopRecorder returns a recorder that does nothing.
func NewNoopRecorder() *NoopRecorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) RecordRecommendation(model.RecommendationResult) error { return nil }

func (n *NoopRecorder) Close() error { return nil }
