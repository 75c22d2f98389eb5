package recorder

import "StockPicker/internal/model"

// Recorder persists finished recommendations for later analysis. The
// core only appends rows; it has no dependency on the storage format.
type Recorder interface {
	RecordRecommendation(rec model.RecommendationResult) error
	Close() error
}
