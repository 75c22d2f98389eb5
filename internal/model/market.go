package model

// MarketLabel classifies the overall index regime.
type MarketLabel string

const (
	MarketBull    MarketLabel = "bull"
	MarketBear    MarketLabel = "bear"
	MarketNeutral MarketLabel = "neutral"
	MarketUnknown MarketLabel = "unknown"
)

// MarketState is a snapshot of the index regime as of a signal date.
type MarketState struct {
	Label MarketLabel
	Close float64
	MA20  float64
	MA60  float64
	Mom20 float64
}

// UnknownMarket is the all-zero state used when no index data exists.
func UnknownMarket() MarketState {
	return MarketState{Label: MarketUnknown}
}
