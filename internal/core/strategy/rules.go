// Package strategy 实现滚球策略信号引擎。
// 16 条规则以声明式表格描述，由 Evaluate 按固定顺序逐条求值；
// 引擎纯函数、无状态、无 I/O，可被多个 goroutine 并发调用。
package strategy

import (
	"fmt"

	"live-strategy-monitor/internal/config"
	"live-strategy-monitor/internal/core/model"
)

// 时间窗边界（分钟）
const (
	// firstHalfEnd 上半场窗口上限
	firstHalfEnd = 43
	// secondHalfStart 下半场窗口下限（44-49 为中场空窗）
	secondHalfStart = 50
	// secondHalfEnd 下半场窗口上限
	secondHalfEnd = 85
)

// 合计规则在配置 CG 基础上的固定增量。
// 上半场合计进球规则为 10+7=17，与单边规则的 10 不对称，保持原样。
const (
	combinedFirstHalfGoalVolumeBump = 7
	combinedSecondHalfVolumeBump    = 5
)

// Threshold 单条规则实际使用的阈值
type Threshold struct {
	// AttackRate 最小 APPM
	AttackRate float64 `json:"attack_rate"`
	// Volume 最小 CG
	Volume int `json:"volume"`
}

// Rule 规则描述符
type Rule struct {
	// ID 规则标识
	ID string
	// Phase 所属时间窗
	Phase model.Phase
	// Category 信号类别
	Category model.Category
	// Side 单边规则的施压方；合计规则为空
	Side model.Side
	// MaxMinute 规则自身的分钟上限（与时间窗取交集）
	MaxMinute int
	// Threshold 从配置解析本规则的阈值
	Threshold func(cfg config.StrategyConfig) Threshold
	// When 命中条件（时间窗与开关之外的部分）
	When func(s model.Snapshot, th Threshold) bool
	// Title 标题模板
	Title func(s model.Snapshot) string
	// Description 描述模板
	Description func(s model.Snapshot) string
}

// InWindow 判断分钟数是否落在规则的时间窗内
func (r Rule) InWindow(elapsed int) bool {
	if elapsed <= 0 || elapsed > r.MaxMinute {
		return false
	}
	switch r.Phase {
	case model.PhaseHT:
		return elapsed <= firstHalfEnd
	case model.PhaseFT:
		return elapsed >= secondHalfStart && elapsed <= secondHalfEnd
	}
	return false
}

// Enabled 判断规则所属类别是否被开关打开
func (r Rule) Enabled(cfg config.StrategyConfig) bool {
	switch r.Category {
	case model.CategoryGoals:
		return cfg.EnableGoalSignals
	case model.CategoryCorners:
		return cfg.EnableCornerSignals
	case model.CategoryBothTeamsToScore:
		return cfg.EnableBothToScoreSignals
	}
	return false
}

// Rules 返回规则表的副本（声明顺序即输出顺序）
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

func firstHalf(cfg config.StrategyConfig) Threshold {
	return Threshold{AttackRate: cfg.FirstHalfMinAttackRate, Volume: cfg.FirstHalfMinVolume}
}

func secondHalf(cfg config.StrategyConfig) Threshold {
	return Threshold{AttackRate: cfg.SecondHalfMinAttackRate, Volume: cfg.SecondHalfMinVolume}
}

func firstHalfCombinedGoal(cfg config.StrategyConfig) Threshold {
	return Threshold{AttackRate: cfg.FirstHalfMinAttackRate, Volume: cfg.FirstHalfMinVolume + combinedFirstHalfGoalVolumeBump}
}

func secondHalfCombined(cfg config.StrategyConfig) Threshold {
	return Threshold{AttackRate: cfg.SecondHalfMinAttackRate, Volume: cfg.SecondHalfMinVolume + combinedSecondHalfVolumeBump}
}

// pressing 单边 APPM 与 CG 同时达标
func pressing(s model.Snapshot, side model.Side, th Threshold) bool {
	return s.AttackRate(side) >= th.AttackRate && s.VolumeIndex(side) >= th.Volume
}

// combinedPressing 合计 APPM 与 CG 同时达标
func combinedPressing(s model.Snapshot, th Threshold) bool {
	return s.TotalAttackRate() >= th.AttackRate && s.TotalVolumeIndex() >= th.Volume
}

// notLeading 一方未领先（落后或打平）
func notLeading(s model.Snapshot, side model.Side) bool {
	return s.Score(side) <= s.Score(side.Other())
}

// scorelessBehind 一方零进球且对手已进球
func scorelessBehind(s model.Snapshot, side model.Side) bool {
	return s.Score(side) == 0 && s.Score(side.Other()) >= 1
}

// outShooting 一方射门总数严格多于对手
func outShooting(s model.Snapshot, side model.Side) bool {
	return s.Shots(side) > s.Shots(side.Other())
}

func sideTag(side model.Side) string {
	if side == model.SideHome {
		return "Home"
	}
	return "Away"
}

func goalSideRule(id string, phase model.Phase, side model.Side, th func(config.StrategyConfig) Threshold, describe string) Rule {
	return Rule{
		ID:        id,
		Phase:     phase,
		Category:  model.CategoryGoals,
		Side:      side,
		MaxMinute: maxMinute(phase, 39),
		Threshold: th,
		When: func(s model.Snapshot, t Threshold) bool {
			return pressing(s, side, t) && notLeading(s, side)
		},
		Title: func(s model.Snapshot) string {
			return fmt.Sprintf("Over %d.5 goals (%s) - %s", s.Score(side), phase, sideTag(side))
		},
		Description: func(s model.Snapshot) string {
			return fmt.Sprintf(describe, s.Label(side))
		},
	}
}

func bttsSideRule(id string, phase model.Phase, side model.Side, th func(config.StrategyConfig) Threshold, describe string) Rule {
	return Rule{
		ID:        id,
		Phase:     phase,
		Category:  model.CategoryBothTeamsToScore,
		Side:      side,
		MaxMinute: maxMinute(phase, 39),
		Threshold: th,
		When: func(s model.Snapshot, t Threshold) bool {
			return pressing(s, side, t) && scorelessBehind(s, side)
		},
		Title: func(s model.Snapshot) string {
			return fmt.Sprintf("Both teams to score - YES (%s)", phase)
		},
		Description: func(s model.Snapshot) string {
			return fmt.Sprintf(describe, s.Label(side))
		},
	}
}

func cornerSideRule(id string, phase model.Phase, side model.Side, th func(config.StrategyConfig) Threshold, describe string) Rule {
	return Rule{
		ID:        id,
		Phase:     phase,
		Category:  model.CategoryCorners,
		Side:      side,
		MaxMinute: maxMinute(phase, 37),
		Threshold: th,
		When: func(s model.Snapshot, t Threshold) bool {
			return pressing(s, side, t) && notLeading(s, side) && outShooting(s, side)
		},
		Title: func(s model.Snapshot) string {
			return fmt.Sprintf("Over %d.5 corners (%s) - %s", s.Corners(side), phase, sideTag(side))
		},
		Description: func(s model.Snapshot) string {
			return fmt.Sprintf(describe, s.Label(side))
		},
	}
}

// maxMinute 上半场使用规则自身上限，下半场统一为 85
func maxMinute(phase model.Phase, firstHalfCap int) int {
	if phase == model.PhaseHT {
		return firstHalfCap
	}
	return secondHalfEnd
}

func constText(text string) func(model.Snapshot) string {
	return func(model.Snapshot) string { return text }
}

// rules 规则表，顺序固定
var rules = []Rule{
	goalSideRule("goal_ht_home", model.PhaseHT, model.SideHome, firstHalf, "%s pressing hard in the first half."),
	goalSideRule("goal_ht_away", model.PhaseHT, model.SideAway, firstHalf, "%s pressing hard in the first half."),

	bttsSideRule("btts_ht_home", model.PhaseHT, model.SideHome, firstHalf, "%s pressing to equalise before half-time."),
	bttsSideRule("btts_ht_away", model.PhaseHT, model.SideAway, firstHalf, "%s pressing to equalise before half-time."),

	bttsSideRule("btts_ft_home", model.PhaseFT, model.SideHome, secondHalf, "%s applying heavy pressure to find the equaliser."),
	bttsSideRule("btts_ft_away", model.PhaseFT, model.SideAway, secondHalf, "%s applying heavy pressure to find the equaliser."),

	goalSideRule("goal_ft_home", model.PhaseFT, model.SideHome, secondHalf, "%s chasing a goal in the second half."),
	goalSideRule("goal_ft_away", model.PhaseFT, model.SideAway, secondHalf, "%s chasing a goal in the second half."),

	{
		ID:        "goal_ht_combined",
		Phase:     model.PhaseHT,
		Category:  model.CategoryGoals,
		MaxMinute: 39,
		Threshold: firstHalfCombinedGoal,
		When: func(s model.Snapshot, t Threshold) bool {
			return combinedPressing(s, t) && s.TotalGoals() == 0
		},
		Title:       constText("Over 0.5 goals (HT)"),
		Description: constText("Very lively match, strong chance of a first-half goal."),
	},
	{
		ID:        "goal_ft_combined",
		Phase:     model.PhaseFT,
		Category:  model.CategoryGoals,
		MaxMinute: 85,
		Threshold: secondHalfCombined,
		When: func(s model.Snapshot, t Threshold) bool {
			return combinedPressing(s, t) && s.TotalGoals() <= 2
		},
		Title: func(s model.Snapshot) string {
			return fmt.Sprintf("Over %d.5 goals (FT)", s.TotalGoals())
		},
		Description: constText("Open game late on, trending towards more goals."),
	},

	{
		ID:        "corners_ht_combined",
		Phase:     model.PhaseHT,
		Category:  model.CategoryCorners,
		MaxMinute: 41,
		Threshold: firstHalf,
		When:      combinedPressing,
		Title: func(s model.Snapshot) string {
			return fmt.Sprintf("Over %d.5 corners (HT)", s.TotalCorners())
		},
		Description: constText("Intense match, corner likely before half-time."),
	},
	{
		ID:        "corners_ft_combined",
		Phase:     model.PhaseFT,
		Category:  model.CategoryCorners,
		MaxMinute: 87,
		Threshold: secondHalfCombined,
		When:      combinedPressing,
		Title: func(s model.Snapshot) string {
			return fmt.Sprintf("Over %d.5 corners (FT)", s.TotalCorners())
		},
		Description: constText("Late pressure, corners likely."),
	},

	cornerSideRule("corners_ht_home", model.PhaseHT, model.SideHome, firstHalf, "%s pressing and out-shooting the opponent."),
	cornerSideRule("corners_ht_away", model.PhaseHT, model.SideAway, firstHalf, "%s pressing and out-shooting the opponent."),
	cornerSideRule("corners_ft_home", model.PhaseFT, model.SideHome, secondHalf, "%s blitz in the second half."),
	cornerSideRule("corners_ft_away", model.PhaseFT, model.SideAway, secondHalf, "%s blitz in the second half."),
}
