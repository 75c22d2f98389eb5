package engine

import (
	"errors"
	"fmt"

	"StockPicker/internal/model"
)

// Run-level errors. Per-symbol failures inside a ranking pass never
// surface as errors; they are aggregated into ModeStats instead.
var (
	// ErrNoCandidate means no enabled mode produced a passing symbol.
	ErrNoCandidate = errors.New("no candidate found in enabled modes")
	// ErrInsufficientDates means the signal date could not be resolved.
	ErrInsufficientDates = errors.New("not enough trade dates to resolve T-1 signal date")
	// ErrStaleData means the freshness probe found no bars for the
	// signal date and the run is configured to stop.
	ErrStaleData = errors.New("data source not updated for signal date")
	// ErrNoBars means a single-symbol lookup returned nothing.
	ErrNoBars = errors.New("no bars found")
)

// RejectedError reports why an Explain call failed its gate. Explain
// has no fallback tier, so a rejection is a real error there.
type RejectedError struct {
	Symbol string
	Mode   model.Mode
	Gate   string // "threshold" or "risk"
}

func (e *RejectedError) Error() string {
	if e.Gate == "risk" {
		return fmt.Sprintf("%s does not pass risk filter in %s mode", e.Symbol, e.Mode)
	}
	return fmt.Sprintf("%s does not pass %s threshold", e.Symbol, e.Mode)
}
