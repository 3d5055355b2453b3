// Package main 是滚球策略监控器的入口点。
// 监控器轮询比分数据源，对进行中的比赛逐场计算攻势指标并评估 16 条策略规则，
// 命中信号经去重后推送到 Telegram，同时写入 JSONL 并通过 websocket 广播。
//
// 重要：本系统只产生提示信号，不做任何下注。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"live-strategy-monitor/internal/alert"
	"live-strategy-monitor/internal/api"
	"live-strategy-monitor/internal/config"
	"live-strategy-monitor/internal/core/model"
	"live-strategy-monitor/internal/core/store"
	"live-strategy-monitor/internal/core/strategy"
	"live-strategy-monitor/internal/feed"
	"live-strategy-monitor/internal/output/jsonl"
	"live-strategy-monitor/internal/poller"
	"live-strategy-monitor/internal/stats/latency"
	"live-strategy-monitor/internal/util/timeutil"
)

const userAgent = "live-strategy-monitor/1.0"

type metricsSnapshot struct {
	// TsUnixMs 指标采集时间（毫秒）
	TsUnixMs int64 `json:"ts_unix_ms"`
	// Poller 轮询计数
	Poller poller.Metrics `json:"poller"`
	// Latency 各端点请求耗时
	Latency []latency.LatencyStats `json:"latency"`
	// Alerts 告警计数
	Alerts alert.DispatcherStats `json:"alerts"`
	// Hub websocket 推送统计
	Hub api.HubStats `json:"hub"`
	// StrategyVersion 当前策略配置版本
	StrategyVersion uint64 `json:"strategy_version"`
	// Writers 输出文件统计
	Writers []jsonl.Stats `json:"writers,omitempty"`
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App.LogLevel)
	defer logger.Sync()

	initial := cfg.Strategy
	if cfg.StrategyPreset != "" {
		initial, err = strategy.LoadPreset(cfg.StrategyPreset)
		if err != nil {
			logger.Error("加载策略预设失败", zap.String("preset", cfg.StrategyPreset), zap.Error(err))
			os.Exit(1)
		}
	}
	holder := strategy.NewHolder(initial)
	engine := strategy.NewEngine(holder)
	logger.Info("策略配置已加载", zap.String("preset", cfg.StrategyPreset), zap.Any("strategy", initial))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	var signalsWriter, alertsWriter, metricsWriter *jsonl.Writer
	if cfg.Output.SignalsEnabled {
		signalsWriter = mustWriter(logger, cfg.Output, "signals.jsonl")
	}
	if cfg.Output.AlertsEnabled {
		alertsWriter = mustWriter(logger, cfg.Output, "alerts.jsonl")
	}
	if cfg.Output.MetricsEnabled {
		metricsWriter = mustWriter(logger, cfg.Output, "metrics.jsonl")
	}

	matchStore := store.New()
	latTracker := latency.NewTracker(1000)
	fetcher := feed.NewHTTPFetcher(cfg.Feed.BaseURL, cfg.Feed.Timeout(), userAgent)
	hub := api.NewHub(logger.Named("hub"))

	sinks := []poller.Sink{hub}
	if signalsWriter != nil {
		sinks = append(sinks, signalRecorder(signalsWriter, logger))
	}

	var (
		dispatcher *alert.Dispatcher
		telegram   *alert.TelegramNotifier
		rdb        *redis.Client
	)
	if cfg.Alert.Enabled {
		dedup, client, err := newDeduper(ctx, cfg.Alert)
		if err != nil {
			logger.Error("初始化告警去重失败", zap.Error(err))
			os.Exit(1)
		}
		rdb = client

		alertLogger := logger.Named("alert")
		var notifier alert.Notifier = alert.NewLogNotifier(alertLogger)
		if cfg.Alert.Telegram.Enabled {
			bot, err := alert.NewBot(cfg.Alert.Telegram.Token)
			if err != nil {
				logger.Error("初始化 Telegram 失败", zap.Error(err))
				os.Exit(1)
			}
			telegram = alert.NewTelegramNotifier(bot, cfg.Alert.Telegram.ChatID,
				time.Duration(cfg.Alert.Telegram.SendIntervalMs)*time.Millisecond,
				cfg.Alert.Telegram.QueueSize, alertLogger)
			notifier = telegram
		}

		var records alert.RecordWriter
		if alertsWriter != nil {
			records = alertsWriter
		}
		dispatcher = alert.NewDispatcher(dedup, notifier, cfg.Alert.Cooldown(), records, alertLogger)
		sinks = append(sinks, poller.SinkFunc(func(ctx context.Context, st model.MatchState) {
			dispatcher.Dispatch(ctx, st.Match, st.Snapshot, st.Results)
		}))
		logger.Info("告警已启用",
			zap.String("dedup", cfg.Alert.Dedup),
			zap.String("notifier", notifier.Name()),
			zap.Duration("cooldown", cfg.Alert.Cooldown()),
		)
	}

	p := poller.New(cfg.Feed, fetcher, engine, matchStore, latTracker, logger.Named("poller"), sinks...)

	var srv *http.Server
	if cfg.HTTP.Enabled {
		apiLogger := logger.Named("api")
		handler := &api.Handler{Store: matchStore, Engine: engine, Logger: apiLogger}
		srv = api.NewServer(cfg.HTTP, api.NewRouter(cfg.HTTP.Mode, apiLogger, handler, hub))
		go func() {
			logger.Info("HTTP 服务已启动", zap.String("addr", cfg.HTTP.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP 服务异常退出", zap.Error(err))
				cancel()
			}
		}()
	}

	if err := p.Start(ctx); err != nil {
		logger.Error("启动轮询失败", zap.Error(err))
		os.Exit(1)
	}

	collect := func() metricsSnapshot {
		snap := metricsSnapshot{
			TsUnixMs:        timeutil.UnixMs(time.Now()),
			Poller:          p.Metrics(),
			Latency:         p.Latency(),
			Hub:             hub.Stats(),
			StrategyVersion: holder.Version(),
		}
		if dispatcher != nil {
			snap.Alerts = dispatcher.Stats()
		}
		for _, w := range []*jsonl.Writer{signalsWriter, alertsWriter} {
			if w != nil {
				snap.Writers = append(snap.Writers, w.Stats())
			}
		}
		return snap
	}

	runMetrics(ctx, metricsWriter, cfg.Output.MetricsIntervalMs, collect)

	p.Stop()

	// 输出最后一条 metrics 快照（便于离线复盘）
	if metricsWriter != nil {
		_ = metricsWriter.Write(collect())
		_ = metricsWriter.Flush()
	}

	// 优雅关闭（10s 超时）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Close()
		if srv != nil {
			_ = srv.Shutdown(shutdownCtx)
		}
		if telegram != nil {
			if err := telegram.Close(shutdownCtx); err != nil {
				logger.Warn("Telegram 队列未发送完", zap.Error(err), zap.Int("pending", telegram.QueueLen()))
			}
		}
		if rdb != nil {
			_ = rdb.Close()
		}
		for _, w := range []*jsonl.Writer{signalsWriter, alertsWriter, metricsWriter} {
			if w != nil {
				_ = w.Close()
			}
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("关闭超时，强制退出")
	case <-done:
		logger.Info("关闭完成")
	}
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func mustWriter(logger *zap.Logger, out config.OutputConfig, name string) *jsonl.Writer {
	w, err := jsonl.NewWriter(filepath.Join(out.Dir, name), out.BufferSize)
	if err != nil {
		logger.Error("创建 writer 失败", zap.String("file", name), zap.Error(err))
		os.Exit(1)
	}
	return w
}

// newDeduper 按配置创建去重器；redis 模式额外返回客户端以便关闭
func newDeduper(ctx context.Context, cfg config.AlertConfig) (alert.Deduper, *redis.Client, error) {
	if cfg.Dedup != "redis" {
		return alert.NewMemoryDeduper(timeutil.SystemClock{}), nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	d := alert.NewRedisDeduper(client, cfg.Redis.KeyPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := d.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("连接 redis 失败: %w", err)
	}
	return d, client, nil
}

// signalRecorder 有命中信号的评估批次写入 signals.jsonl
func signalRecorder(w *jsonl.Writer, logger *zap.Logger) poller.Sink {
	return poller.SinkFunc(func(_ context.Context, st model.MatchState) {
		if len(st.Results) == 0 {
			return
		}
		rec := jsonl.SignalRecord{
			ID:       uuid.NewString(),
			TsUnixMs: timeutil.UnixMs(st.UpdatedAt),
			Seq:      st.Seq,
			MatchID:  st.Match.ID,
			League:   st.Match.League,
			HomeName: st.Match.HomeName,
			AwayName: st.Match.AwayName,
			Minute:   st.Snapshot.ElapsedMinutes,
			Metrics:  st.Metrics,
			Results:  st.Results,
		}
		if err := w.TryWrite(rec); err != nil {
			logger.Warn("写入信号记录失败", zap.String("match_id", st.Match.ID), zap.Error(err))
		}
	})
}

// runMetrics 定期输出指标，ctx 取消后返回
func runMetrics(ctx context.Context, w *jsonl.Writer, intervalMs int, collect func() metricsSnapshot) {
	if intervalMs <= 0 {
		intervalMs = 60000
	}
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w == nil {
				continue
			}
			_ = w.Write(collect())
			_ = w.Flush()
		}
	}
}
