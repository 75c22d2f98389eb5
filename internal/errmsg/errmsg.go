// Package errmsg maps internal errors to the error taxonomy and to
// the Chinese messages shown to end users. Translation is presentation
// only; callers branch on the error values themselves, never on these
// strings.
package errmsg

import (
	"errors"
	"strings"

	"StockPicker/internal/datasource"
	"StockPicker/internal/engine"
)

// Error kind names used in backtest statistics and JSON output.
const (
	KindInsufficientHistory = "InsufficientHistory"
	KindNoCandidate         = "NoCandidate"
	KindThresholdRejected   = "ThresholdRejected"
	KindRiskRejected        = "RiskRejected"
	KindDataUnavailable     = "DataUnavailable"
	KindStaleData           = "StaleData"
	KindUnknown             = "Unknown"
)

// Classify buckets an error into its taxonomy kind.
func Classify(err error) string {
	var rejected *engine.RejectedError
	switch {
	case errors.Is(err, engine.ErrInsufficientDates):
		return KindInsufficientHistory
	case errors.Is(err, engine.ErrNoCandidate):
		return KindNoCandidate
	case errors.Is(err, engine.ErrStaleData):
		return KindStaleData
	case errors.As(err, &rejected):
		if rejected.Gate == "risk" {
			return KindRiskRejected
		}
		return KindThresholdRejected
	case errors.Is(err, engine.ErrNoBars), errors.Is(err, datasource.ErrNoData):
		return KindDataUnavailable
	}
	return KindUnknown
}

// Friendly renders a human-readable Chinese message for err.
func Friendly(err error) string {
	if err == nil {
		return ""
	}
	var rejected *engine.RejectedError
	switch {
	case errors.Is(err, engine.ErrInsufficientDates):
		return "目标日期附近交易日不足，无法确定信号日(T-1)。请扩大日期范围后重试。"
	case errors.Is(err, engine.ErrNoCandidate):
		return "当前启用模式下无候选，已按配置停止返回结果。建议检查数据源连通性和过滤条件。"
	case errors.Is(err, engine.ErrStaleData):
		return "数据未更新，已停止执行。请等待数据源落地后重试，或关闭 data_freshness.stop_on_stale。"
	case errors.As(err, &rejected):
		if rejected.Gate == "risk" {
			return "该股票未通过风险过滤规则，请更换标的或使用更宽松模式重试。"
		}
		return "该股票未通过当前模式的选股阈值筛选。可尝试使用 --mode relaxed 或 --mode force。"
	case errors.Is(err, engine.ErrNoBars):
		return "未查询到该股票在目标日期附近的K线数据，请检查股票代码和日期。"
	case errors.Is(err, datasource.ErrNoData):
		return "数据源未返回数据（EM/TX 两个来源都不可用），请稍后重试或先运行 doctor。"
	}

	msg := err.Error()
	if strings.Contains(msg, "not enough trade dates for backtest") {
		return "回测区间内交易日不足，至少需要 8 个交易日。请扩大 --start/--end 区间后重试。"
	}
	if strings.Contains(msg, "unsupported mode") {
		return "模式参数不支持，请使用 normal、relaxed 或 force。"
	}
	if strings.Contains(msg, "cannot parse") && strings.Contains(msg, "2006-01-02") {
		return "日期格式错误，请使用 YYYY-MM-DD，例如 2026-02-26。"
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no such host"):
		return "域名解析失败，请检查网络/DNS。"
	case strings.Contains(lower, "connection refused"):
		return "连接被拒绝，请检查目标服务是否可访问。"
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline exceeded"):
		return "请求超时，请稍后重试或检查网络。"
	case strings.Contains(lower, "rate limited"):
		return "请求被限流，请降低频率或稍后重试。"
	case strings.Contains(lower, "tls"), strings.Contains(lower, "certificate"):
		return "SSL 连接失败，请检查本机证书或网络中间代理。"
	}
	return msg
}
