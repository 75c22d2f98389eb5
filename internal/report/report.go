// Package report appends finished recommendations to flat files: a
// CSV of record, plus a Markdown table and an aligned text table
// regenerated from the CSV on every append.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"StockPicker/internal/model"
)

var columns = []string{
	"run_time", "trade_date", "symbol", "name", "threshold_mode",
	"score_total", "close", "stop_loss_price", "take_profit_price", "suggested_holding_days",
}

var headersCN = map[string]string{
	"run_time":               "运行时间",
	"trade_date":             "交易日",
	"symbol":                 "代码",
	"name":                   "名称",
	"threshold_mode":         "模式",
	"score_total":            "总分",
	"close":                  "收盘价",
	"stop_loss_price":        "止损价",
	"take_profit_price":      "止盈价",
	"suggested_holding_days": "建议持股天数",
}

func buildRow(rec model.RecommendationResult) []string {
	return []string{
		time.Now().Format("2006-01-02 15:04:05"),
		model.FormatDay(rec.TradeDate),
		rec.Symbol,
		rec.Name,
		string(rec.ThresholdMode),
		fmt.Sprintf("%.2f", rec.ScoreTotal),
		fmt.Sprintf("%.4f", rec.KeyMetrics.Close),
		fmt.Sprintf("%.4f", rec.KeyMetrics.StopLossPrice),
		fmt.Sprintf("%.4f", rec.KeyMetrics.TakeProfitPrice),
		fmt.Sprintf("%d", int(rec.KeyMetrics.SuggestedHoldingDays)),
	}
}

// AppendCSV appends one recommendation row, writing the header when the
// file is new. Returns the path written.
func AppendCSV(rec model.RecommendationResult, path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open report csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(columns); err != nil {
			return "", err
		}
	}
	if err := w.Write(buildRow(rec)); err != nil {
		return "", err
	}
	w.Flush()
	return path, w.Error()
}

// WriteMarkdown regenerates the full Markdown table from the CSV.
func WriteMarkdown(rec model.RecommendationResult, mdPath, csvPath string) (string, error) {
	rows, err := readRows(rec, csvPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(mdPath), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Daily Recommendations\n\n")
	b.WriteString("字段说明(中文): 运行时间 | 交易日 | 股票代码 | 股票名称 | 筛选模式 | 总分 | 收盘价 | 止损价 | 止盈价 | 建议持股天数\n")
	b.WriteString("Field Mapping(English): " + strings.Join(columns, " | ") + "\n\n")
	b.WriteString("| ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(headersCN[c])
	}
	b.WriteString(" |\n")
	b.WriteString("|---|---|---|---|---|---:|---:|---:|---:|---:|\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i, v := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(strings.ReplaceAll(v, "|", "\\|"))
		}
		b.WriteString(" |\n")
	}
	if err := os.WriteFile(mdPath, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return mdPath, nil
}

// WriteText regenerates the aligned text table from the CSV. Column
// widths count CJK characters as two cells so the table lines up in a
// terminal.
func WriteText(rec model.RecommendationResult, txtPath, csvPath string) (string, error) {
	rows, err := readRows(rec, csvPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(txtPath), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = displayWidth(headersCN[c])
	}
	for _, row := range rows {
		for i, v := range row {
			if i < len(widths) && displayWidth(v) > widths[i] {
				widths[i] = displayWidth(v)
			}
		}
	}

	fmtRow := func(vals []string) string {
		parts := make([]string, len(columns))
		for i := range columns {
			v := ""
			if i < len(vals) {
				v = vals[i]
			}
			parts[i] = v + strings.Repeat(" ", widths[i]-displayWidth(v))
		}
		return strings.Join(parts, " | ")
	}

	var b strings.Builder
	b.WriteString("Daily Recommendations\n")
	b.WriteString("字段说明(中文): 运行时间 | 交易日 | 股票代码 | 股票名称 | 筛选模式 | 总分 | 收盘价 | 止损价 | 止盈价 | 建议持股天数\n")
	b.WriteString("Field Mapping(English): " + strings.Join(columns, " | ") + "\n\n")
	headerVals := make([]string, len(columns))
	for i, c := range columns {
		headerVals[i] = headersCN[c]
	}
	b.WriteString(fmtRow(headerVals) + "\n")
	seps := make([]string, len(columns))
	for i := range columns {
		seps[i] = strings.Repeat("-", widths[i])
	}
	b.WriteString(strings.Join(seps, "-+-") + "\n")
	for _, row := range rows {
		b.WriteString(fmtRow(row) + "\n")
	}
	if err := os.WriteFile(txtPath, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return txtPath, nil
}

// readRows loads prior rows from the CSV; an unreadable file degrades
// to just the current recommendation.
func readRows(rec model.RecommendationResult, csvPath string) ([][]string, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return [][]string{buildRow(rec)}, nil
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil || len(all) < 2 {
		return [][]string{buildRow(rec)}, nil
	}
	return all[1:], nil
}

// displayWidth counts east-Asian wide runes as two terminal cells.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if isWide(r) {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func isWide(r rune) bool {
	switch {
	case r >= 0x1100 && r <= 0x115F, // Hangul Jamo
		r >= 0x2E80 && r <= 0xA4CF, // CJK radicals through Yi
		r >= 0xAC00 && r <= 0xD7A3, // Hangul syllables
		r >= 0xF900 && r <= 0xFAFF, // CJK compatibility ideographs
		r >= 0xFE30 && r <= 0xFE4F, // CJK compatibility forms
		r >= 0xFF00 && r <= 0xFF60, // fullwidth forms
		r >= 0xFFE0 && r <= 0xFFE6:
		return true
	}
	return false
}
