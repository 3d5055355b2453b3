package alert

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"live-strategy-monitor/internal/core/model"
	"live-strategy-monitor/internal/output/jsonl"
	"live-strategy-monitor/internal/util/timeutil"
)

// RecordWriter 告警记录输出，*jsonl.Writer 满足该接口
type RecordWriter interface {
	Write(v any) error
}

// DispatcherStats 告警计数
type DispatcherStats struct {
	Sent       int64 `json:"sent"`
	Suppressed int64 `json:"suppressed"`
	Failed     int64 `json:"failed"`
	DedupError int64 `json:"dedup_error"`
}

// Dispatcher 告警分发器
// 同一 (比赛, 类别, 标题) 在冷却窗口内只推送一次；投递失败的信号不占用冷却窗口。
type Dispatcher struct {
	dedup    Deduper
	notifier Notifier
	cooldown time.Duration
	records  RecordWriter
	clock    timeutil.Clock
	logger   *zap.Logger

	sent       atomic.Int64
	suppressed atomic.Int64
	failed     atomic.Int64
	dedupErr   atomic.Int64
}

// NewDispatcher 创建告警分发器
// 参数 dedup: 去重器
// 参数 notifier: 告警渠道
// 参数 cooldown: 冷却窗口
// 参数 records: 告警记录输出，可为 nil
func NewDispatcher(dedup Deduper, notifier Notifier, cooldown time.Duration, records RecordWriter, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		dedup:    dedup,
		notifier: notifier,
		cooldown: cooldown,
		records:  records,
		clock:    timeutil.SystemClock{},
		logger:   logger,
	}
}

// WithClock 替换时钟（测试使用）
func (d *Dispatcher) WithClock(c timeutil.Clock) *Dispatcher {
	d.clock = c
	return d
}

// Dispatch 推送一轮评估中未在冷却窗口内出现过的信号
// 参数 ctx: 上下文
// 参数 match: 比赛信息
// 参数 snapshot: 产生信号的快照
// 参数 results: 本轮信号
// 返回: 实际推送的数量
func (d *Dispatcher) Dispatch(ctx context.Context, match model.LiveMatch, snapshot model.Snapshot, results []model.StrategyResult) int {
	sent := 0
	for _, r := range results {
		key := Key(match.ID, r.Category, r.Title)

		seen, err := d.dedup.Seen(ctx, key, d.cooldown)
		if err != nil {
			// 去重不可用时不推送
			d.dedupErr.Add(1)
			d.logger.Warn("告警去重失败", zap.String("key", key), zap.Error(err))
			continue
		}
		if seen {
			d.suppressed.Add(1)
			continue
		}

		a := Alert{Match: match, Snapshot: snapshot, Result: r}
		nerr := d.notifier.Notify(ctx, a)
		if nerr != nil {
			d.failed.Add(1)
			d.logger.Warn("告警推送失败",
				zap.String("channel", d.notifier.Name()),
				zap.String("key", key),
				zap.Error(nerr),
			)
			if ferr := d.dedup.Forget(ctx, key); ferr != nil {
				d.logger.Warn("清除去重标记失败", zap.String("key", key), zap.Error(ferr))
			}
		} else {
			d.sent.Add(1)
			sent++
		}
		d.record(key, a, nerr)
	}
	return sent
}

func (d *Dispatcher) record(key string, a Alert, err error) {
	if d.records == nil {
		return
	}
	rec := jsonl.AlertRecord{
		ID:        uuid.NewString(),
		TsUnixMs:  timeutil.UnixMs(d.clock.Now()),
		DedupKey:  key,
		Channel:   d.notifier.Name(),
		Delivered: err == nil,
		MatchID:   a.Match.ID,
		League:    a.Match.League,
		HomeName:  a.Match.HomeName,
		AwayName:  a.Match.AwayName,
		Minute:    a.Snapshot.ElapsedMinutes,
		Result:    a.Result,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if werr := d.records.Write(rec); werr != nil {
		d.logger.Warn("写入告警记录失败", zap.Error(werr))
	}
}

// Stats 返回告警计数
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Sent:       d.sent.Load(),
		Suppressed: d.suppressed.Load(),
		Failed:     d.failed.Load(),
		DedupError: d.dedupErr.Load(),
	}
}
