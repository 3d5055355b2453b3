package jsonl

import (
	"live-strategy-monitor/internal/core/model"
)

// SignalRecord 一轮评估产生的信号批次（signals.jsonl）
type SignalRecord struct {
	// ID 记录标识（UUID）
	ID string `json:"id"`
	// TsUnixMs 评估时间（毫秒）
	TsUnixMs int64 `json:"ts_unix_ms"`
	// Seq 轮询序号
	Seq uint64 `json:"seq"`

	MatchID  string `json:"match_id"`
	League   string `json:"league"`
	HomeName string `json:"home_name"`
	AwayName string `json:"away_name"`
	Minute   int    `json:"minute"`

	Metrics model.Metrics          `json:"metrics"`
	Results []model.StrategyResult `json:"results"`
}

// AlertRecord 一条告警的投递记录（alerts.jsonl）
type AlertRecord struct {
	// ID 告警标识（UUID）
	ID string `json:"id"`
	// TsUnixMs 投递时间（毫秒）
	TsUnixMs int64 `json:"ts_unix_ms"`
	// DedupKey 去重键
	DedupKey string `json:"dedup_key"`
	// Channel 投递渠道: telegram / log
	Channel string `json:"channel"`
	// Delivered 是否投递成功
	Delivered bool `json:"delivered"`
	// Error 投递失败原因
	Error string `json:"error,omitempty"`

	MatchID  string `json:"match_id"`
	League   string `json:"league"`
	HomeName string `json:"home_name"`
	AwayName string `json:"away_name"`
	Minute   int    `json:"minute"`

	Result model.StrategyResult `json:"result"`
}
