package strategy

import (
	"math"

	"StockPicker/internal/config"
)

// ComputeStopTakePrices derives stop-loss and take-profit prices from
// the close and a volatility measure. The atr method substitutes a
// synthetic 2% range when ATR is unavailable, so it always produces
// usable targets. Prices are floored to the configured tick.
func ComputeStopTakePrices(close, atr14 float64, cfg config.RiskTargetsConfig) (stop, take float64) {
	if close <= 0 {
		return 0, 0
	}
	if cfg.Method == "percent" {
		stop = close * (1.0 - max0(cfg.StopLossPct))
		take = close * (1.0 + max0(cfg.TakeProfitPct))
	} else {
		atr := atr14
		if atr <= 0 {
			atr = close * 0.02
		}
		stop = close - max0(cfg.StopLossATRMult)*atr
		take = close + max0(cfg.TakeProfitATRMult)*atr
	}
	return roundToTick(stop, cfg.PriceRoundTick), roundToTick(take, cfg.PriceRoundTick)
}

// roundToTick floors v to a multiple of tick. The epsilon keeps values
// that are exactly on a tick from dropping a whole step to float noise.
func roundToTick(v, tick float64) float64 {
	if tick <= 0 {
		return v
	}
	return math.Floor(v/tick+1e-9) * tick
}
