// Package model 定义监控器中使用的核心数据结构。
package model

import "math"

// Side 比赛一方: home 或 away
type Side string

const (
	// SideHome 主队
	SideHome Side = "home"
	// SideAway 客队
	SideAway Side = "away"
)

// Other 返回对手一方
func (s Side) Other() Side {
	if s == SideHome {
		return SideAway
	}
	return SideHome
}

// Snapshot 单场比赛在某一轮询时刻的归一化统计快照
// 每个轮询周期为每场比赛新建一份，引擎只读不写。
// 所有计数均为本场累计值；缺失字段由归一化层置 0。
type Snapshot struct {
	// ElapsedMinutes 比赛已进行分钟数，<=0 时不产生任何信号
	ElapsedMinutes int `json:"elapsed_minutes"`

	// HomeScore 主队进球
	HomeScore int `json:"home_score"`
	// AwayScore 客队进球
	AwayScore int `json:"away_score"`

	// HomeDangerousAttacks 主队危险进攻次数
	HomeDangerousAttacks int `json:"home_dangerous_attacks"`
	// AwayDangerousAttacks 客队危险进攻次数
	AwayDangerousAttacks int `json:"away_dangerous_attacks"`

	// HomeShotsOnTarget 主队射正
	HomeShotsOnTarget int `json:"home_shots_on_target"`
	// AwayShotsOnTarget 客队射正
	AwayShotsOnTarget int `json:"away_shots_on_target"`
	// HomeShotsOffTarget 主队射偏
	HomeShotsOffTarget int `json:"home_shots_off_target"`
	// AwayShotsOffTarget 客队射偏
	AwayShotsOffTarget int `json:"away_shots_off_target"`

	// HomeCorners 主队角球
	HomeCorners int `json:"home_corners"`
	// AwayCorners 客队角球
	AwayCorners int `json:"away_corners"`

	// HomeLabel 主队展示名称，仅用于渲染信号描述
	HomeLabel string `json:"home_label"`
	// AwayLabel 客队展示名称
	AwayLabel string `json:"away_label"`
}

// Score 获取一方进球
func (s Snapshot) Score(side Side) int {
	if side == SideHome {
		return s.HomeScore
	}
	return s.AwayScore
}

// DangerousAttacks 获取一方危险进攻次数
func (s Snapshot) DangerousAttacks(side Side) int {
	if side == SideHome {
		return s.HomeDangerousAttacks
	}
	return s.AwayDangerousAttacks
}

// Corners 获取一方角球数
func (s Snapshot) Corners(side Side) int {
	if side == SideHome {
		return s.HomeCorners
	}
	return s.AwayCorners
}

// Shots 获取一方射门总数（射正 + 射偏）
func (s Snapshot) Shots(side Side) int {
	if side == SideHome {
		return s.HomeShotsOnTarget + s.HomeShotsOffTarget
	}
	return s.AwayShotsOnTarget + s.AwayShotsOffTarget
}

// Label 获取一方展示名称
func (s Snapshot) Label(side Side) string {
	if side == SideHome {
		return s.HomeLabel
	}
	return s.AwayLabel
}

// AttackRate 一方每分钟危险进攻次数（APPM）
// 调用方需保证 ElapsedMinutes > 0；否则返回 0。
func (s Snapshot) AttackRate(side Side) float64 {
	if s.ElapsedMinutes <= 0 {
		return 0
	}
	return float64(s.DangerousAttacks(side)) / float64(s.ElapsedMinutes)
}

// TotalAttackRate 双方 APPM 之和
func (s Snapshot) TotalAttackRate() float64 {
	return s.AttackRate(SideHome) + s.AttackRate(SideAway)
}

// VolumeIndex 一方压力量指数（CG）= 角球 + 射正 + 射偏
func (s Snapshot) VolumeIndex(side Side) int {
	return s.Corners(side) + s.Shots(side)
}

// TotalVolumeIndex 双方 CG 之和
func (s Snapshot) TotalVolumeIndex() int {
	return s.VolumeIndex(SideHome) + s.VolumeIndex(SideAway)
}

// TotalGoals 总进球
func (s Snapshot) TotalGoals() int {
	return s.HomeScore + s.AwayScore
}

// TotalCorners 总角球
func (s Snapshot) TotalCorners() int {
	return s.HomeCorners + s.AwayCorners
}

// Metrics 快照派生指标（只用于展示与调试，不参与存储）
type Metrics struct {
	// ElapsedMinutes 已进行分钟数
	ElapsedMinutes int `json:"elapsed_minutes"`
	// AttackRateHome 主队 APPM（保留两位小数）
	AttackRateHome float64 `json:"appm_home"`
	// AttackRateAway 客队 APPM
	AttackRateAway float64 `json:"appm_away"`
	// AttackRateTotal 双方 APPM 之和
	AttackRateTotal float64 `json:"appm_total"`
	// VolumeHome 主队 CG
	VolumeHome int `json:"cg_home"`
	// VolumeAway 客队 CG
	VolumeAway int `json:"cg_away"`
	// VolumeTotal 双方 CG 之和
	VolumeTotal int `json:"cg_total"`
	// HomeScore 主队进球
	HomeScore int `json:"score_home"`
	// AwayScore 客队进球
	AwayScore int `json:"score_away"`
}

// Metrics 计算派生指标
func (s Snapshot) Metrics() Metrics {
	return Metrics{
		ElapsedMinutes:  s.ElapsedMinutes,
		AttackRateHome:  round2(s.AttackRate(SideHome)),
		AttackRateAway:  round2(s.AttackRate(SideAway)),
		AttackRateTotal: round2(s.TotalAttackRate()),
		VolumeHome:      s.VolumeIndex(SideHome),
		VolumeAway:      s.VolumeIndex(SideAway),
		VolumeTotal:     s.TotalVolumeIndex(),
		HomeScore:       s.HomeScore,
		AwayScore:       s.AwayScore,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
