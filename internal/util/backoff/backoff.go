// Package backoff 实现上游请求失败后的指数退避重试。
// 默认基础间隔 500ms，最大间隔 5s，抖动 ±20%。
package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Backoff 指数退避计算器
// 非并发安全，每个重试循环使用独立实例。
type Backoff struct {
	// base 基础等待时间
	base time.Duration
	// max 最大等待时间
	max time.Duration
	// jitter 抖动比例（0-1），例如 0.2 表示 ±20%
	jitter float64
	// attempt 当前重试次数
	attempt int
}

// New 创建新的退避计算器
// 参数 base: 基础等待时间
// 参数 max: 最大等待时间
// 参数 jitter: 抖动比例
func New(base, max time.Duration, jitter float64) *Backoff {
	return &Backoff{
		base:   base,
		max:    max,
		jitter: jitter,
	}
}

// NewDefault 创建默认配置的退避计算器
func NewDefault() *Backoff {
	return New(500*time.Millisecond, 5*time.Second, 0.2)
}

// Next 获取下次重试的等待时间
// base * 2^attempt，封顶 max 后再应用抖动
func (b *Backoff) Next() time.Duration {
	delay := b.max
	if b.attempt < 32 {
		if d := b.base << uint(b.attempt); d > 0 && d < b.max {
			delay = d
		}
	}

	if b.jitter > 0 {
		jitterFactor := 1.0 + (rand.Float64()*2-1)*b.jitter
		delay = time.Duration(float64(delay) * jitterFactor)
	}

	b.attempt++
	return delay
}

// Reset 重置重试次数
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt 获取当前重试次数
func (b *Backoff) Attempt() int {
	return b.attempt
}

// Retry 执行 fn，失败时按退避间隔重试
// 参数 ctx: 上下文，取消或超时后立即停止并返回最后一次错误
// 参数 b: 退避计算器
// 参数 maxRetries: 最大重试次数（不含首次执行）
// 参数 fn: 待执行的操作
// 返回: 最后一次执行的错误；成功时为 nil
func Retry(ctx context.Context, b *Backoff, maxRetries int, fn func(ctx context.Context) error) error {
	var err error
	for i := 0; ; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i >= maxRetries || ctx.Err() != nil {
			return err
		}

		timer := time.NewTimer(b.Next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
