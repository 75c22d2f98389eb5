package errmsg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"StockPicker/internal/datasource"
	"StockPicker/internal/engine"
	"StockPicker/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"insufficient dates", engine.ErrInsufficientDates, KindInsufficientHistory},
		{"wrapped insufficient dates", fmt.Errorf("context: %w", engine.ErrInsufficientDates), KindInsufficientHistory},
		{"no candidate", fmt.Errorf("%w: normal,relaxed", engine.ErrNoCandidate), KindNoCandidate},
		{"stale data", fmt.Errorf("%w: probe lag", engine.ErrStaleData), KindStaleData},
		{"threshold rejection", &engine.RejectedError{Symbol: "600001", Mode: model.ModeNormal, Gate: "threshold"}, KindThresholdRejected},
		{"risk rejection", &engine.RejectedError{Symbol: "600001", Mode: model.ModeNormal, Gate: "risk"}, KindRiskRejected},
		{"no bars", fmt.Errorf("%w for 600001", engine.ErrNoBars), KindDataUnavailable},
		{"source empty", datasource.ErrNoData, KindDataUnavailable},
		{"anything else", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestFriendlyKnownErrors(t *testing.T) {
	assert.Contains(t, Friendly(engine.ErrNoCandidate), "无候选")
	assert.Contains(t, Friendly(engine.ErrInsufficientDates), "交易日不足")
	assert.Contains(t, Friendly(engine.ErrStaleData), "数据未更新")
	assert.Contains(t, Friendly(engine.ErrNoBars), "K线")
	assert.Contains(t, Friendly(datasource.ErrNoData), "数据源未返回数据")
	assert.Contains(t, Friendly(&engine.RejectedError{Gate: "threshold"}), "阈值")
	assert.Contains(t, Friendly(&engine.RejectedError{Gate: "risk"}), "风险过滤")
	assert.Empty(t, Friendly(nil))
}

func TestFriendlyPatternFallbacks(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"not enough trade dates for backtest: x", "回测区间内交易日不足"},
		{"unsupported mode: bogus", "模式参数不支持"},
		{`parsing time "20260226" as "2006-01-02": cannot parse "0226" as "-"`, "日期格式错误"},
		{"dial tcp: lookup push2his.eastmoney.com: no such host", "域名解析失败"},
		{"dial tcp 1.2.3.4:443: connect: connection refused", "连接被拒绝"},
		{"context deadline exceeded", "请求超时"},
		{"rate limited by server", "限流"},
		{"tls: handshake failure", "SSL 连接失败"},
	}
	for _, tt := range tests {
		assert.Contains(t, Friendly(errors.New(tt.in)), tt.want)
	}
}

func TestFriendlyUnknownPassesThrough(t *testing.T) {
	assert.Equal(t, "some odd failure", Friendly(errors.New("some odd failure")))
}
