package alert

import (
	"context"

	"go.uber.org/zap"

	"live-strategy-monitor/internal/core/model"
)

// Alert 一条待推送的告警
type Alert struct {
	Match    model.LiveMatch
	Snapshot model.Snapshot
	Result   model.StrategyResult
}

// Notifier 告警渠道
type Notifier interface {
	// Name 渠道名称
	Name() string
	// Notify 推送告警；异步渠道在入队后即返回
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier 将告警写入日志，Telegram 未启用时使用
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志渠道
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Name 实现 Notifier
func (n *LogNotifier) Name() string { return "log" }

// Notify 实现 Notifier
func (n *LogNotifier) Notify(_ context.Context, a Alert) error {
	n.logger.Info("策略告警",
		zap.String("match_id", a.Match.ID),
		zap.String("league", a.Match.League),
		zap.String("home", a.Match.HomeName),
		zap.String("away", a.Match.AwayName),
		zap.Int("minute", a.Snapshot.ElapsedMinutes),
		zap.String("rule", a.Result.Rule),
		zap.String("category", string(a.Result.Category)),
		zap.String("title", a.Result.Title),
	)
	return nil
}
