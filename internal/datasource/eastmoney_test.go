package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPicker/internal/model"
)

func TestStockSecID(t *testing.T) {
	assert.Equal(t, "1.600519", stockSecID("600519"))
	assert.Equal(t, "1.688001", stockSecID("688001"))
	assert.Equal(t, "0.000001", stockSecID("000001"))
	assert.Equal(t, "0.300750", stockSecID("300750"))
}

func TestIndexSecID(t *testing.T) {
	assert.Equal(t, "1.000300", indexSecID("000300"))
	assert.Equal(t, "1.000001", indexSecID("000001"))
	assert.Equal(t, "0.399006", indexSecID("399006"))
}

func TestTencentSymbol(t *testing.T) {
	assert.Equal(t, "sh600519", tencentSymbol("600519"))
	assert.Equal(t, "sz000001", tencentSymbol("000001"))
}

func TestGuessMarket(t *testing.T) {
	assert.Equal(t, "STAR", guessMarket("688001"))
	assert.Equal(t, "GEM", guessMarket("300750"))
	assert.Equal(t, "SH", guessMarket("600519"))
	assert.Equal(t, "BJ", guessMarket("430047"))
	assert.Equal(t, "BJ", guessMarket("831010"))
	assert.Equal(t, "SZ", guessMarket("000001"))
}

func TestParseEMKLine(t *testing.T) {
	bar, ok := parseEMKLine("2026-02-25,10.00,10.50,10.80,9.90,123456,1296288.0,9.0,5.0,0.50,2.34")
	require.True(t, ok)
	assert.Equal(t, model.Day(2026, 2, 25), bar.TradeDate)
	assert.Equal(t, 10.00, bar.Open)
	assert.Equal(t, 10.50, bar.Close)
	assert.Equal(t, 10.80, bar.High)
	assert.Equal(t, 9.90, bar.Low)
	assert.Equal(t, 123456.0, bar.Volume)
	require.True(t, bar.TurnoverRate.Valid)
	assert.Equal(t, 2.34, bar.TurnoverRate.Value)
}

func TestParseEMKLineShortLineKeepsTurnoverMissing(t *testing.T) {
	bar, ok := parseEMKLine("2026-02-25,10.00,10.50,10.80,9.90,123456")
	require.True(t, ok)
	assert.False(t, bar.TurnoverRate.Valid)
}

func TestParseEMKLineRejectsMalformed(t *testing.T) {
	_, ok := parseEMKLine("garbage")
	assert.False(t, ok)
	_, ok = parseEMKLine("2026-02-25,x,10.50,10.80,9.90,123456")
	assert.False(t, ok)
	_, ok = parseEMKLine("20260225,10.00,10.50,10.80,9.90,123456")
	assert.False(t, ok)
}
