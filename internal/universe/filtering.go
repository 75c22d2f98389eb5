package universe

import (
	"strings"

	"StockPicker/internal/config"
	"StockPicker/internal/model"
)

// Filter drops excluded boards, ST names and paused instruments, then
// applies the optional universe size cap. Input order is preserved,
// which also fixes the tie-break order of the ranking engine.
func Filter(stocks []model.StockInfo, filters config.FiltersConfig, limit int) []model.StockInfo {
	out := make([]model.StockInfo, 0, len(stocks))
	for _, s := range stocks {
		if filters.ExcludeST && s.IsST {
			continue
		}
		if s.IsPaused {
			continue
		}
		if excludedBoard(s.Symbol, filters) {
			continue
		}
		out = append(out, s)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Board membership in the A-share market is encoded in the symbol
// prefix: 688 STAR, 300 ChiNext, 4/8 Beijing exchange.
func excludedBoard(symbol string, filters config.FiltersConfig) bool {
	if filters.ExcludeStarBoard && strings.HasPrefix(symbol, "688") {
		return true
	}
	if filters.ExcludeGEMBoard && strings.HasPrefix(symbol, "300") {
		return true
	}
	if filters.ExcludeBJBoard && (strings.HasPrefix(symbol, "4") || strings.HasPrefix(symbol, "8")) {
		return true
	}
	return false
}
