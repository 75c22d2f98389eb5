package engine

import (
	"context"

	"StockPicker/internal/datasource"
	"StockPicker/internal/model"
)

// NameCache memoizes the symbol-to-name mapping built from the stock
// list. A failed build degrades to returning the raw symbol so a
// diagnostics call never dies on a listing outage.
type NameCache struct {
	names  map[string]string
	loaded bool
}

// NewNameCache returns an empty cache; the first Resolve fills it.
func NewNameCache() *NameCache {
	return &NameCache{}
}

// Resolve returns the display name for symbol, or the symbol itself
// when unknown.
func (c *NameCache) Resolve(ctx context.Context, ds datasource.MarketDataSource, symbol string) string {
	if !c.loaded {
		c.names = map[string]string{}
		c.loaded = true
		stocks, err := ds.GetStockList(ctx)
		if err == nil {
			for _, s := range stocks {
				c.names[s.Symbol] = s.Name
			}
		}
	}
	if name, ok := c.names[symbol]; ok && name != "" {
		return name
	}
	return symbol
}

// Prime seeds the cache from an already-fetched universe, saving the
// ranking path a second stock list call.
func (c *NameCache) Prime(stocks []model.StockInfo) {
	if c.names == nil {
		c.names = map[string]string{}
	}
	for _, s := range stocks {
		c.names[s.Symbol] = s.Name
	}
	c.loaded = true
}
