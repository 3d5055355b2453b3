// Package poller 按固定间隔轮询上游比分数据，评估策略并分发结果。
// 比赛列表与比赛详情是两个独立的定时任务；每轮取一个单调递增的序号，
// 状态缓存据此丢弃慢周期的过期写入。
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"live-strategy-monitor/internal/config"
	"live-strategy-monitor/internal/core/model"
	"live-strategy-monitor/internal/core/store"
	"live-strategy-monitor/internal/feed"
	"live-strategy-monitor/internal/stats/latency"
	"live-strategy-monitor/internal/util/backoff"
	"live-strategy-monitor/internal/util/timeutil"
)

// detailConcurrency 单轮详情请求的并发上限
const detailConcurrency = 8

// Evaluator 策略求值，*strategy.Engine 满足该接口
type Evaluator interface {
	Evaluate(s model.Snapshot) []model.StrategyResult
}

// Sink 评估结果的下游（告警、JSONL、推送）
type Sink interface {
	OnEvaluated(ctx context.Context, st model.MatchState)
}

// SinkFunc 函数适配器
type SinkFunc func(ctx context.Context, st model.MatchState)

// OnEvaluated 实现 Sink
func (f SinkFunc) OnEvaluated(ctx context.Context, st model.MatchState) { f(ctx, st) }

// Metrics 轮询计数
type Metrics struct {
	ListCycles     int64  `json:"list_cycles"`
	ListFailures   int64  `json:"list_failures"`
	DetailCycles   int64  `json:"detail_cycles"`
	DetailFetches  int64  `json:"detail_fetches"`
	DetailFailures int64  `json:"detail_failures"`
	Timeouts       int64  `json:"timeouts"`
	StaleDiscards  int64  `json:"stale_discards"`
	Evaluations    int64  `json:"evaluations"`
	Signals        int64  `json:"signals"`
	TrackedMatches int    `json:"tracked_matches"`
	LastSeq        uint64 `json:"last_seq"`
}

// Poller 轮询调度器
type Poller struct {
	cfg     config.FeedConfig
	fetcher feed.Fetcher
	engine  Evaluator
	store   *store.Store
	sinks   []Sink
	latency *latency.Tracker
	clock   timeutil.Clock
	logger  *zap.Logger

	cron *cron.Cron
	seq  atomic.Uint64

	listCycles     atomic.Int64
	listFailures   atomic.Int64
	detailCycles   atomic.Int64
	detailFetches  atomic.Int64
	detailFailures atomic.Int64
	timeouts       atomic.Int64
	staleDiscards  atomic.Int64
	evaluations    atomic.Int64
	signals        atomic.Int64

	newBackoff func() *backoff.Backoff
}

// New 创建轮询调度器
// 参数 cfg: 数据源配置
// 参数 fetcher: 上游数据获取器
// 参数 engine: 策略求值
// 参数 st: 状态缓存
// 参数 tracker: 请求耗时统计，可为 nil
// 参数 sinks: 评估结果下游
func New(cfg config.FeedConfig, fetcher feed.Fetcher, engine Evaluator, st *store.Store, tracker *latency.Tracker, logger *zap.Logger, sinks ...Sink) *Poller {
	if tracker == nil {
		tracker = latency.NewTracker(1000)
	}
	return &Poller{
		cfg:        cfg,
		fetcher:    fetcher,
		engine:     engine,
		store:      st,
		sinks:      sinks,
		latency:    tracker,
		clock:      timeutil.SystemClock{},
		logger:     logger,
		cron:       cron.New(cron.WithSeconds()),
		newBackoff: backoff.NewDefault,
	}
}

// WithClock 替换时钟（测试使用）
func (p *Poller) WithClock(c timeutil.Clock) *Poller {
	p.clock = c
	return p
}

// WithBackoff 替换退避策略（测试使用）
func (p *Poller) WithBackoff(fn func() *backoff.Backoff) *Poller {
	p.newBackoff = fn
	return p
}

// Start 注册定时任务并立即执行一轮列表与详情轮询
// 参数 ctx: 任务上下文，取消后进行中的请求随之中止
func (p *Poller) Start(ctx context.Context) error {
	listSpec := fmt.Sprintf("@every %dms", p.cfg.ListIntervalMs)
	detailSpec := fmt.Sprintf("@every %dms", p.cfg.DetailIntervalMs)

	if _, err := p.cron.AddFunc(listSpec, func() { _ = p.PollList(ctx) }); err != nil {
		return fmt.Errorf("注册列表轮询任务失败: %w", err)
	}
	if _, err := p.cron.AddFunc(detailSpec, func() { p.PollDetails(ctx) }); err != nil {
		return fmt.Errorf("注册详情轮询任务失败: %w", err)
	}

	go func() {
		if err := p.PollList(ctx); err == nil {
			p.PollDetails(ctx)
		}
	}()

	p.cron.Start()
	p.logger.Info("轮询已启动",
		zap.String("list_interval", listSpec),
		zap.String("detail_interval", detailSpec),
	)
	return nil
}

// Stop 停止调度并等待进行中的任务结束
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
	p.logger.Info("轮询已停止")
}

// PollList 执行一轮比赛列表轮询
// 失败时保留上一份列表
func (p *Poller) PollList(ctx context.Context) error {
	p.listCycles.Add(1)
	seq := p.seq.Add(1)

	cctx, cancel := context.WithTimeout(ctx, p.cfg.CycleTimeout())
	defer cancel()

	var matches []model.LiveMatch
	err := backoff.Retry(cctx, p.newBackoff(), p.cfg.MaxRetries, func(ctx context.Context) error {
		start := p.clock.Now()
		var ferr error
		matches, ferr = p.fetcher.FetchLiveScores(ctx)
		p.latency.Observe(latency.EndpointLiveScores, p.clock.Now().Sub(start), ferr)
		return ferr
	})
	if err != nil {
		p.listFailures.Add(1)
		if isTimeout(err) {
			p.timeouts.Add(1)
		}
		p.logger.Warn("获取比赛列表失败，保留上一份列表", zap.Uint64("seq", seq), zap.Error(err))
		return err
	}

	live := make([]model.LiveMatch, 0, len(matches))
	for _, m := range matches {
		if !p.cfg.IsLive(m.Status) {
			continue
		}
		if len(live) >= p.cfg.MaxTrackedMatches {
			break
		}
		live = append(live, m)
	}

	if !p.store.ReplaceMatches(seq, live) {
		p.staleDiscards.Add(1)
		return nil
	}
	p.logger.Debug("比赛列表已更新", zap.Uint64("seq", seq), zap.Int("total", len(matches)), zap.Int("live", len(live)))
	return nil
}

// PollDetails 执行一轮比赛详情轮询
// 返回: 本轮成功评估的比赛数
func (p *Poller) PollDetails(ctx context.Context) int {
	p.detailCycles.Add(1)
	seq := p.seq.Add(1)

	matches := p.store.Matches()
	if len(matches) == 0 {
		return 0
	}

	cctx, cancel := context.WithTimeout(ctx, p.cfg.CycleTimeout())
	defer cancel()

	var evaluated atomic.Int64
	g, gctx := errgroup.WithContext(cctx)
	g.SetLimit(detailConcurrency)
	for _, m := range matches {
		g.Go(func() error {
			if p.pollMatch(gctx, seq, m) {
				evaluated.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(evaluated.Load())
}

// pollMatch 获取一场比赛详情并评估
// 请求失败或超时时不评估
func (p *Poller) pollMatch(ctx context.Context, seq uint64, listed model.LiveMatch) bool {
	var (
		snap   model.Snapshot
		detail model.LiveMatch
	)
	err := backoff.Retry(ctx, p.newBackoff(), p.cfg.MaxRetries, func(ctx context.Context) error {
		p.detailFetches.Add(1)
		start := p.clock.Now()
		var ferr error
		snap, detail, ferr = p.fetcher.FetchFixture(ctx, listed.ID)
		p.latency.Observe(latency.EndpointFixture, p.clock.Now().Sub(start), ferr)
		return ferr
	})
	if err != nil {
		p.detailFailures.Add(1)
		if isTimeout(err) {
			p.timeouts.Add(1)
		}
		p.logger.Warn("获取比赛详情失败，跳过本轮评估",
			zap.String("match_id", listed.ID),
			zap.Uint64("seq", seq),
			zap.Error(err),
		)
		return false
	}

	match := mergeMatch(listed, detail)
	results := p.engine.Evaluate(snap)
	p.evaluations.Add(1)
	p.signals.Add(int64(len(results)))

	st := model.MatchState{
		Match:     match,
		Snapshot:  snap,
		Metrics:   snap.Metrics(),
		Results:   results,
		Seq:       seq,
		UpdatedAt: p.clock.Now(),
	}
	if !p.store.Update(st) {
		p.staleDiscards.Add(1)
		p.logger.Debug("丢弃过期评估结果", zap.String("match_id", match.ID), zap.Uint64("seq", seq))
		return false
	}

	for _, s := range p.sinks {
		s.OnEvaluated(ctx, st)
	}
	return true
}

// mergeMatch 详情中的实时字段覆盖列表信息，联赛信息以列表为准
func mergeMatch(listed, detail model.LiveMatch) model.LiveMatch {
	out := listed
	if detail.Status != "" {
		out.Status = detail.Status
	}
	if detail.Minute > 0 {
		out.Minute = detail.Minute
	}
	if detail.HomeName != "" {
		out.HomeName = detail.HomeName
	}
	if detail.AwayName != "" {
		out.AwayName = detail.AwayName
	}
	out.HomeScore = detail.HomeScore
	out.AwayScore = detail.AwayScore
	return out
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// Metrics 返回轮询计数
func (p *Poller) Metrics() Metrics {
	return Metrics{
		ListCycles:     p.listCycles.Load(),
		ListFailures:   p.listFailures.Load(),
		DetailCycles:   p.detailCycles.Load(),
		DetailFetches:  p.detailFetches.Load(),
		DetailFailures: p.detailFailures.Load(),
		Timeouts:       p.timeouts.Load(),
		StaleDiscards:  p.staleDiscards.Load(),
		Evaluations:    p.evaluations.Load(),
		Signals:        p.signals.Load(),
		TrackedMatches: p.store.Len(),
		LastSeq:        p.seq.Load(),
	}
}

// Latency 返回请求耗时统计
func (p *Poller) Latency() []latency.LatencyStats {
	return p.latency.All()
}
