package strategy

import (
	"sync/atomic"

	"live-strategy-monitor/internal/config"
)

// Holder 策略配置容器
// 读取无锁；写入整体替换，读者总是看到某个完整版本。
type Holder struct {
	cur     atomic.Pointer[config.StrategyConfig]
	version atomic.Uint64
}

// NewHolder 创建配置容器
// 参数 initial: 初始配置
func NewHolder(initial config.StrategyConfig) *Holder {
	h := &Holder{}
	h.cur.Store(&initial)
	return h
}

// Load 返回当前配置的副本
func (h *Holder) Load() config.StrategyConfig {
	return *h.cur.Load()
}

// Version 返回配置版本号，每次成功替换递增
func (h *Holder) Version() uint64 {
	return h.version.Load()
}

// Replace 整体替换配置
// 返回: 配置包含负数阈值时返回 ErrInvalidConfig
func (h *Holder) Replace(cfg config.StrategyConfig) error {
	if err := validate(cfg); err != nil {
		return err
	}
	h.cur.Store(&cfg)
	h.version.Add(1)
	return nil
}

// Update 在当前配置基础上修改并替换
// 并发更新时以 CAS 重试，不会丢失任何一次修改。
func (h *Holder) Update(fn func(cfg *config.StrategyConfig)) (config.StrategyConfig, error) {
	for {
		old := h.cur.Load()
		next := *old
		fn(&next)
		if err := validate(next); err != nil {
			return *old, err
		}
		if h.cur.CompareAndSwap(old, &next) {
			h.version.Add(1)
			return next, nil
		}
	}
}
