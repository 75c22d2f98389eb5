package model

import "time"

// DailyBar represents one daily candlestick for a single symbol.
// Bars are ordered by TradeDate with no duplicates per symbol.
type DailyBar struct {
	TradeDate    time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	TurnoverRate Metric
}

// StockInfo identifies a tradeable A-share instrument.
type StockInfo struct {
	Symbol      string
	Name        string
	ListingDate time.Time // zero when unknown
	IsST        bool
	IsPaused    bool
	Market      string
}

// Day builds a date-only time value. All trade dates in the system are
// normalized this way so they compare with Equal/Before/After.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates an arbitrary timestamp to its date-only form.
func DayOf(t time.Time) time.Time {
	return Day(t.Year(), t.Month(), t.Day())
}

// ParseDay parses a YYYY-MM-DD date string.
func ParseDay(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// FormatDay renders a date as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format("2006-01-02")
}
