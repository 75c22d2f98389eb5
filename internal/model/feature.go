package model

import "time"

// FeatureRow is one row of the derived indicator table: the raw bar
// fields plus every trailing-window indicator for that trade date.
// Indicators that need more history than the row has are left invalid.
type FeatureRow struct {
	TradeDate    time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	TurnoverRate Metric

	Ret1d          Metric
	MA20           Metric
	MA60           Metric
	Mom5           Metric
	Mom20          Metric
	RSI14          Metric
	Vol20Std       Metric
	MA20Slope5     Metric
	VolRatio520    Metric
	VolumeZScore20 Metric
	ATR14          Metric
}
