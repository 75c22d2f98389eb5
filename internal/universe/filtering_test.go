package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"StockPicker/internal/config"
	"StockPicker/internal/model"
)

func sampleStocks() []model.StockInfo {
	return []model.StockInfo{
		{Symbol: "000001", Name: "平安银行"},
		{Symbol: "600519", Name: "贵州茅台"},
		{Symbol: "688001", Name: "华兴源创"},
		{Symbol: "300750", Name: "宁德时代"},
		{Symbol: "430047", Name: "诺思兰德"},
		{Symbol: "831010", Name: "凯添燃气"},
		{Symbol: "000002", Name: "ST万科", IsST: true},
		{Symbol: "000003", Name: "停牌股", IsPaused: true},
	}
}

func allFilters() config.FiltersConfig {
	return config.FiltersConfig{
		ExcludeStarBoard: true,
		ExcludeBJBoard:   true,
		ExcludeGEMBoard:  true,
		ExcludeST:        true,
	}
}

func symbols(stocks []model.StockInfo) []string {
	out := make([]string, len(stocks))
	for i, s := range stocks {
		out[i] = s.Symbol
	}
	return out
}

func TestFilterExcludesBoardsAndST(t *testing.T) {
	got := Filter(sampleStocks(), allFilters(), 0)
	assert.Equal(t, []string{"000001", "600519"}, symbols(got))
}

func TestFilterIncludeToggles(t *testing.T) {
	filters := config.FiltersConfig{} // nothing excluded
	got := Filter(sampleStocks(), filters, 0)
	// Paused instruments always drop; everything else stays.
	assert.Equal(t, []string{"000001", "600519", "688001", "300750", "430047", "831010", "000002"}, symbols(got))
}

func TestFilterSTToggle(t *testing.T) {
	filters := allFilters()
	filters.ExcludeST = false
	got := Filter(sampleStocks(), filters, 0)
	assert.Contains(t, symbols(got), "000002")

	filters.ExcludeST = true
	got = Filter(sampleStocks(), filters, 0)
	assert.NotContains(t, symbols(got), "000002")
}

func TestFilterLimitKeepsOrder(t *testing.T) {
	got := Filter(sampleStocks(), allFilters(), 1)
	assert.Equal(t, []string{"000001"}, symbols(got))
}
