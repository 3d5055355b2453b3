package model

// Category 信号类别
type Category string

const (
	// CategoryGoals 进球盘口
	CategoryGoals Category = "GOALS"
	// CategoryCorners 角球盘口
	CategoryCorners Category = "CORNERS"
	// CategoryBothTeamsToScore 双方进球（BTTS）
	CategoryBothTeamsToScore Category = "BOTH_TEAMS_TO_SCORE"
)

// Phase 规则时间窗
type Phase string

const (
	// PhaseHT 上半场窗口
	PhaseHT Phase = "HT"
	// PhaseFT 下半场窗口
	PhaseFT Phase = "FT"
)

// StrategyResult 一条规则命中产生的投注机会信号
// 只有结构相等语义，没有独立身份。
type StrategyResult struct {
	// Rule 规则标识，如 goal_ht_home
	Rule string `json:"rule"`
	// Phase 规则所属时间窗
	Phase Phase `json:"phase"`
	// Category 信号类别
	Category Category `json:"category"`
	// Title 简短标题，可能嵌入实时盘口线（如当前进球数 + 0.5）
	Title string `json:"title"`
	// Description 可读的命中理由
	Description string `json:"description"`
}
