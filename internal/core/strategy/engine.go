package strategy

import (
	"live-strategy-monitor/internal/config"
	"live-strategy-monitor/internal/core/model"
)

// Evaluate 对一份快照按给定配置求值全部规则
// 参数 s: 比赛统计快照
// 参数 cfg: 策略配置（阈值与类别开关）
// 返回: 命中信号，按规则声明顺序排列；无命中时返回非 nil 的空切片
func Evaluate(s model.Snapshot, cfg config.StrategyConfig) []model.StrategyResult {
	results := []model.StrategyResult{}
	if s.ElapsedMinutes <= 0 {
		return results
	}
	for i := range rules {
		r := &rules[i]
		if !r.Enabled(cfg) || !r.InWindow(s.ElapsedMinutes) {
			continue
		}
		if !r.When(s, r.Threshold(cfg)) {
			continue
		}
		results = append(results, model.StrategyResult{
			Rule:        r.ID,
			Phase:       r.Phase,
			Category:    r.Category,
			Title:       r.Title(s),
			Description: r.Description(s),
		})
	}
	return results
}

// RuleTrace 单条规则的求值轨迹，供调参排查使用
type RuleTrace struct {
	Rule      string         `json:"rule"`
	Phase     model.Phase    `json:"phase"`
	Category  model.Category `json:"category"`
	Side      model.Side     `json:"side,omitempty"`
	Enabled   bool           `json:"enabled"`
	InWindow  bool           `json:"in_window"`
	Threshold Threshold      `json:"threshold"`
	// AttackRate 规则实际比较的 APPM（单边或合计）
	AttackRate float64 `json:"attack_rate"`
	// Volume 规则实际比较的 CG（单边或合计）
	Volume  int  `json:"volume"`
	Matched bool `json:"matched"`
}

// Explain 返回每条规则的求值轨迹，Matched 与 Evaluate 的输出一致
func Explain(s model.Snapshot, cfg config.StrategyConfig) []RuleTrace {
	traces := make([]RuleTrace, 0, len(rules))
	for i := range rules {
		r := &rules[i]
		tr := RuleTrace{
			Rule:      r.ID,
			Phase:     r.Phase,
			Category:  r.Category,
			Side:      r.Side,
			Enabled:   r.Enabled(cfg),
			InWindow:  s.ElapsedMinutes > 0 && r.InWindow(s.ElapsedMinutes),
			Threshold: r.Threshold(cfg),
		}
		if r.Side == "" {
			tr.AttackRate = s.TotalAttackRate()
			tr.Volume = s.TotalVolumeIndex()
		} else {
			tr.AttackRate = s.AttackRate(r.Side)
			tr.Volume = s.VolumeIndex(r.Side)
		}
		tr.Matched = tr.Enabled && tr.InWindow && r.When(s, tr.Threshold)
		traces = append(traces, tr)
	}
	return traces
}

// Engine 绑定可热更新配置的信号引擎
// 每次求值只读取一次配置，保证单次结果与单一配置版本对应。
type Engine struct {
	holder *Holder
}

// NewEngine 创建信号引擎
// 参数 holder: 策略配置容器
func NewEngine(holder *Holder) *Engine {
	return &Engine{holder: holder}
}

// Evaluate 使用当前配置评估快照
func (e *Engine) Evaluate(s model.Snapshot) []model.StrategyResult {
	return Evaluate(s, e.holder.Load())
}

// Explain 使用当前配置返回求值轨迹
func (e *Engine) Explain(s model.Snapshot) []RuleTrace {
	return Explain(s, e.holder.Load())
}

// Config 返回当前配置
func (e *Engine) Config() config.StrategyConfig {
	return e.holder.Load()
}

// Holder 返回配置容器
func (e *Engine) Holder() *Holder {
	return e.holder
}
