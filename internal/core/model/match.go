package model

import "time"

// 比赛状态（上游数据源的状态码）
const (
	StatusNotStarted = "NS"
	StatusFirstHalf  = "1st"
	StatusHalfTime   = "HT"
	StatusSecondHalf = "2nd"
	StatusFinished   = "FT"
)

// LiveMatch 比赛列表中的一场比赛（比分板级别信息）
type LiveMatch struct {
	// ID 比赛标识（上游 fixture id）
	ID string `json:"id"`
	// League 联赛名称
	League string `json:"league"`
	// Country 国家/地区
	Country string `json:"country"`
	// Status 比赛状态: NS / 1st / HT / 2nd / FT
	Status string `json:"status"`
	// Minute 比赛分钟
	Minute int `json:"minute"`
	// HomeName 主队名称
	HomeName string `json:"home_name"`
	// AwayName 客队名称
	AwayName string `json:"away_name"`
	// HomeScore 主队比分
	HomeScore int `json:"home_score"`
	// AwayScore 客队比分
	AwayScore int `json:"away_score"`
}

// MatchState 比赛的最新评估状态
type MatchState struct {
	// Match 比赛基础信息
	Match LiveMatch `json:"match"`
	// Snapshot 最新统计快照
	Snapshot Snapshot `json:"snapshot"`
	// Metrics 快照派生指标
	Metrics Metrics `json:"metrics"`
	// Results 最新一轮评估产生的信号
	Results []StrategyResult `json:"results"`
	// Seq 产生该状态的轮询序号
	Seq uint64 `json:"seq"`
	// UpdatedAt 更新时间
	UpdatedAt time.Time `json:"updated_at"`
}
