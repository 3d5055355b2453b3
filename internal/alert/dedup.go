// Package alert 将新产生的策略信号去重后推送到告警渠道。
package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"

	"live-strategy-monitor/internal/core/model"
	"live-strategy-monitor/internal/util/timeutil"
)

// Deduper 告警去重器
type Deduper interface {
	// Seen 原子地检查并标记 key
	// 返回: key 在 ttl 窗口内已出现过时为 true；否则标记 key 并返回 false
	Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget 清除 key 的标记，投递失败后下一轮可以重试
	Forget(ctx context.Context, key string) error
}

// Key 生成去重键: matchID|category|title，小写且去除空白
func Key(matchID string, category model.Category, title string) string {
	raw := fmt.Sprintf("%s|%s|%s", matchID, category, title)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// sweepEvery 每多少次 Seen 清理一次过期 key
const sweepEvery = 256

// MemoryDeduper 进程内去重器
type MemoryDeduper struct {
	clock timeutil.Clock

	mu     sync.Mutex
	expiry map[string]time.Time
	calls  int
}

// NewMemoryDeduper 创建进程内去重器
// 参数 clock: 时钟，nil 时使用系统时钟
func NewMemoryDeduper(clock timeutil.Clock) *MemoryDeduper {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &MemoryDeduper{
		clock:  clock,
		expiry: make(map[string]time.Time),
	}
}

// Seen 实现 Deduper
func (d *MemoryDeduper) Seen(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	if d.calls%sweepEvery == 0 {
		for k, exp := range d.expiry {
			if !now.Before(exp) {
				delete(d.expiry, k)
			}
		}
	}

	if exp, ok := d.expiry[key]; ok && now.Before(exp) {
		return true, nil
	}
	d.expiry[key] = now.Add(ttl)
	return false, nil
}

// Forget 实现 Deduper
func (d *MemoryDeduper) Forget(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.expiry, key)
	return nil
}

// Len 返回当前记录的 key 数量（含未清理的过期 key）
func (d *MemoryDeduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.expiry)
}

// RedisDeduper 基于 Redis SET NX 的去重器，多实例共享冷却窗口
type RedisDeduper struct {
	client *redis.Client
	prefix string
}

// NewRedisDeduper 创建 Redis 去重器
// 参数 client: Redis 客户端
// 参数 prefix: key 前缀
func NewRedisDeduper(client *redis.Client, prefix string) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: prefix}
}

// Seen 实现 Deduper
func (d *RedisDeduper) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+key, time.Now().UnixMilli(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis 去重失败: %w", err)
	}
	return !ok, nil
}

// Forget 实现 Deduper
func (d *RedisDeduper) Forget(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, d.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis 清除去重标记失败: %w", err)
	}
	return nil
}

// Ping 检查 Redis 连通性
func (d *RedisDeduper) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}
