package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"live-strategy-monitor/internal/config"
)

var (
	// ErrUnknownPreset 预设名称不存在
	ErrUnknownPreset = errors.New("unknown strategy preset")
	// ErrInvalidConfig 策略配置非法
	ErrInvalidConfig = errors.New("invalid strategy config")
)

// Preset 命名的策略预设
type Preset struct {
	Key         string                `json:"key"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Config      config.StrategyConfig `json:"config"`
}

var presets = map[string]Preset{
	"bot_default": {
		Key:         "bot_default",
		Name:        "Bot default",
		Description: "Balanced thresholds used by the alert bot.",
		Config:      config.DefaultStrategy(),
	},
	"super_pressure": {
		Key:         "super_pressure",
		Name:        "Super pressure",
		Description: "Only fire on very intense attacking spells.",
		Config: config.StrategyConfig{
			FirstHalfMinAttackRate:   1.5,
			FirstHalfMinVolume:       8,
			SecondHalfMinAttackRate:  1.3,
			SecondHalfMinVolume:      12,
			EnableGoalSignals:        true,
			EnableCornerSignals:      true,
			EnableBothToScoreSignals: true,
		},
	},
	"volume_game": {
		Key:         "volume_game",
		Name:        "Volume game",
		Description: "Lower attack rate, high shot and corner volume. Corners only.",
		Config: config.StrategyConfig{
			FirstHalfMinAttackRate:   0.8,
			FirstHalfMinVolume:       15,
			SecondHalfMinAttackRate:  0.8,
			SecondHalfMinVolume:      20,
			EnableGoalSignals:        false,
			EnableCornerSignals:      true,
			EnableBothToScoreSignals: false,
		},
	},
	"conservative": {
		Key:         "conservative",
		Name:        "Conservative",
		Description: "Relaxed attack rate with standard volume.",
		Config: config.StrategyConfig{
			FirstHalfMinAttackRate:   1.0,
			FirstHalfMinVolume:       10,
			SecondHalfMinAttackRate:  1.0,
			SecondHalfMinVolume:      15,
			EnableGoalSignals:        true,
			EnableCornerSignals:      true,
			EnableBothToScoreSignals: true,
		},
	},
}

// DefaultConfig 返回默认策略配置
func DefaultConfig() config.StrategyConfig {
	return config.DefaultStrategy()
}

// LoadPreset 按名称加载预设配置
// 参数 name: 预设键（大小写不敏感）
// 返回: 预设配置；名称不存在时返回 ErrUnknownPreset
func LoadPreset(name string) (config.StrategyConfig, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return config.StrategyConfig{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p.Config, nil
}

// Presets 返回全部预设，按键排序
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ApplyPreset 将预设整体写入容器
func (h *Holder) ApplyPreset(name string) (config.StrategyConfig, error) {
	cfg, err := LoadPreset(name)
	if err != nil {
		return config.StrategyConfig{}, err
	}
	if err := h.Replace(cfg); err != nil {
		return config.StrategyConfig{}, err
	}
	return cfg, nil
}

// Reset 将容器恢复为默认配置
func (h *Holder) Reset() config.StrategyConfig {
	cfg := DefaultConfig()
	h.cur.Store(&cfg)
	h.version.Add(1)
	return cfg
}

func validate(cfg config.StrategyConfig) error {
	if errs := config.ValidateStrategy(cfg); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Reset 返回默认配置，等价于 DefaultConfig
func Reset() config.StrategyConfig {
	return DefaultConfig()
}
