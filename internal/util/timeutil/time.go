// Package timeutil 提供可替换的时钟与时间戳转换。
// 去重窗口、轮询指标等需要"当前时间"的组件通过 Clock 注入，测试中使用 ManualClock。
package timeutil

import (
	"sync"
	"time"
)

// Clock 时钟接口
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

// Now 返回当前时间
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ManualClock 手动推进的时钟（并发安全）
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock 创建手动时钟
// 参数 start: 初始时间
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now 返回当前时间
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 推进时钟
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set 设置当前时间
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// UnixMs 返回毫秒时间戳
func UnixMs(t time.Time) int64 {
	return t.UnixMilli()
}

// MsToDuration 将毫秒数转换为 time.Duration
func MsToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
