package model

import "math"

// Metric is an optional indicator value. The zero value is "missing":
// a field requiring more history than available stays invalid, and
// gate checks test Valid explicitly instead of relying on NaN
// propagation.
type Metric struct {
	Value float64
	Valid bool
}

// MetricOf wraps a computed value. NaN and Inf inputs collapse to the
// missing state so a bad division never leaks into comparisons.
func MetricOf(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Metric{}
	}
	return Metric{Value: v, Valid: true}
}

// Or returns the value, or def when the metric is missing. This is the
// substitution-default step used by scoring.
func (m Metric) Or(def float64) float64 {
	if !m.Valid {
		return def
	}
	return m.Value
}
