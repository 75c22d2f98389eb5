package model

import "time"

// ScoreBreakdown holds the four sub-scores, each on a 0-100 scale.
type ScoreBreakdown struct {
	Trend     float64 `json:"trend"`
	Momentum  float64 `json:"momentum"`
	Stability float64 `json:"stability"`
	Volume    float64 `json:"volume"`
}

// KeyMetrics are the indicator values and derived risk targets the
// recommendation reports alongside the score.
type KeyMetrics struct {
	Close                float64 `json:"close"`
	MA20                 float64 `json:"ma20"`
	MA60                 float64 `json:"ma60"`
	Mom5                 float64 `json:"mom5"`
	Mom20                float64 `json:"mom20"`
	RSI14                float64 `json:"rsi14"`
	ATR14                float64 `json:"atr14"`
	StopLossPrice        float64 `json:"stop_loss_price"`
	TakeProfitPrice      float64 `json:"take_profit_price"`
	SuggestedHoldingDays float64 `json:"suggested_holding_days"`
	VolRatio520          float64 `json:"vol_ratio_5_20"`
	VolumeZScore20       float64 `json:"volume_zscore20"`
	TurnoverRate         float64 `json:"turnover_rate"`
	Vol20Std             float64 `json:"vol20_std"`
}

// CandidateScore is the scored output for one symbol on one signal
// date. Produced fresh per (symbol, date, mode); never mutated.
type CandidateScore struct {
	Symbol         string         `json:"symbol"`
	Name           string         `json:"name"`
	ScoreTotal     float64        `json:"score_total"`
	ScoreBreakdown ScoreBreakdown `json:"score_breakdown"`
	KeyMetrics     KeyMetrics     `json:"key_metrics"`
	Reason         []string       `json:"reason"`
}

// RecommendationResult is the single pick for one target trading day.
type RecommendationResult struct {
	TradeDate time.Time `json:"-"`
	CandidateScore
	ThresholdMode Mode `json:"threshold_mode"`
}

// BacktestRecord captures one replayed trading day that produced a
// recommendation, with gross and cost-adjusted forward returns.
type BacktestRecord struct {
	TradeDate     time.Time
	Symbol        string
	Name          string
	ThresholdMode Mode
	Ret1dGross    Metric
	Ret5dGross    Metric
	Ret1dNet      Metric
	Ret5dNet      Metric
}
