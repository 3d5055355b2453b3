// Package poller 轮询调度测试
package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"live-strategy-monitor/internal/config"
	"live-strategy-monitor/internal/core/model"
	"live-strategy-monitor/internal/core/store"
	"live-strategy-monitor/internal/core/strategy"
	"live-strategy-monitor/internal/util/backoff"
)

type fakeFetcher struct {
	mu        sync.Mutex
	list      []model.LiveMatch
	listErr   error
	snapshots map[string]model.Snapshot
	failures  map[string]int // 前 N 次请求失败
	slow      map[string]time.Duration
	calls     map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		snapshots: make(map[string]model.Snapshot),
		failures:  make(map[string]int),
		slow:      make(map[string]time.Duration),
		calls:     make(map[string]int),
	}
}

func (f *fakeFetcher) FetchLiveScores(ctx context.Context) ([]model.LiveMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.LiveMatch, len(f.list))
	copy(out, f.list)
	return out, nil
}

func (f *fakeFetcher) FetchFixture(ctx context.Context, id string) (model.Snapshot, model.LiveMatch, error) {
	f.mu.Lock()
	f.calls[id]++
	delay := f.slow[id]
	fail := f.failures[id] >= f.calls[id]
	snap := f.snapshots[id]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return model.Snapshot{}, model.LiveMatch{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if fail {
		return model.Snapshot{}, model.LiveMatch{}, errors.New("upstream 502")
	}
	return snap, model.LiveMatch{ID: id, Status: model.StatusFirstHalf, Minute: snap.ElapsedMinutes, HomeScore: snap.HomeScore, AwayScore: snap.AwayScore}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	states []model.MatchState
}

func (r *recordingSink) OnEvaluated(_ context.Context, st model.MatchState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *recordingSink) byID(id string) (model.MatchState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.states {
		if st.Match.ID == id {
			return st, true
		}
	}
	return model.MatchState{}, false
}

func (r *recordingSink) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		BaseURL:           "http://feed.test",
		TimeoutMs:         1000,
		CycleTimeoutMs:    300,
		ListIntervalMs:    1000,
		DetailIntervalMs:  1000,
		MaxRetries:        1,
		MaxTrackedMatches: 2,
		LiveStatuses:      []string{"1st", "HT", "2nd"},
	}
}

var pressing = model.Snapshot{
	ElapsedMinutes:       35,
	HomeDangerousAttacks: 49,
	HomeCorners:          4,
	HomeShotsOnTarget:    4,
	HomeShotsOffTarget:   3,
}

func newTestPoller(f *fakeFetcher, sinks ...Sink) (*Poller, *store.Store) {
	st := store.New()
	engine := strategy.NewEngine(strategy.NewHolder(strategy.DefaultConfig()))
	p := New(testFeedConfig(), f, engine, st, nil, zap.NewNop(), sinks...).
		WithBackoff(func() *backoff.Backoff { return backoff.New(time.Millisecond, time.Millisecond, 0) })
	return p, st
}

func TestPollList_FiltersLiveAndCaps(t *testing.T) {
	f := newFakeFetcher()
	f.list = []model.LiveMatch{
		{ID: "1", Status: "NS"},
		{ID: "2", Status: "1st"},
		{ID: "3", Status: "FT"},
		{ID: "4", Status: "2nd"},
		{ID: "5", Status: "HT"},
	}
	p, st := newTestPoller(f)

	if err := p.PollList(context.Background()); err != nil {
		t.Fatalf("PollList: %v", err)
	}
	got := st.Matches()
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "4" {
		t.Fatalf("Matches = %+v, want [2 4]", got)
	}
}

func TestPollList_FailureKeepsLastKnownGood(t *testing.T) {
	f := newFakeFetcher()
	f.list = []model.LiveMatch{{ID: "2", Status: "1st"}}
	p, st := newTestPoller(f)
	_ = p.PollList(context.Background())

	f.mu.Lock()
	f.listErr = errors.New("boom")
	f.mu.Unlock()

	if err := p.PollList(context.Background()); err == nil {
		t.Fatal("应返回错误")
	}
	if st.Len() != 1 {
		t.Errorf("失败后应保留上一份列表, Len = %d", st.Len())
	}
	if m := p.Metrics(); m.ListFailures != 1 || m.ListCycles != 2 {
		t.Errorf("Metrics = %+v", m)
	}
}

func TestPollDetails_EvaluatesAndDispatches(t *testing.T) {
	f := newFakeFetcher()
	f.list = []model.LiveMatch{{ID: "10", Status: "1st", League: "Premier League"}}
	f.snapshots["10"] = pressing
	sink := &recordingSink{}
	p, st := newTestPoller(f, sink)

	_ = p.PollList(context.Background())
	if n := p.PollDetails(context.Background()); n != 1 {
		t.Fatalf("evaluated = %d, want 1", n)
	}

	got, ok := sink.byID("10")
	if !ok {
		t.Fatal("sink 未收到评估结果")
	}
	if len(got.Results) != 3 {
		t.Errorf("Results = %+v, want 3", got.Results)
	}
	if got.Match.League != "Premier League" {
		t.Errorf("联赛信息应来自列表: %+v", got.Match)
	}
	if got.Metrics.AttackRateHome != 1.4 {
		t.Errorf("AttackRateHome = %v, want 1.4", got.Metrics.AttackRateHome)
	}
	stored, ok := st.Get("10")
	if !ok || stored.Seq != got.Seq {
		t.Errorf("store 状态 = %+v", stored)
	}
}

func TestPollDetails_RetriesThenSucceeds(t *testing.T) {
	f := newFakeFetcher()
	f.list = []model.LiveMatch{{ID: "11", Status: "2nd"}}
	f.snapshots["11"] = pressing
	f.failures["11"] = 1
	sink := &recordingSink{}
	p, _ := newTestPoller(f, sink)

	_ = p.PollList(context.Background())
	if n := p.PollDetails(context.Background()); n != 1 {
		t.Fatalf("evaluated = %d, want 1", n)
	}
	if m := p.Metrics(); m.DetailFetches != 2 || m.DetailFailures != 0 {
		t.Errorf("Metrics = %+v", m)
	}
}

func TestPollDetails_FailureSkipsEvaluation(t *testing.T) {
	f := newFakeFetcher()
	f.list = []model.LiveMatch{{ID: "12", Status: "1st"}, {ID: "13", Status: "1st"}}
	f.snapshots["12"] = pressing
	f.snapshots["13"] = pressing
	f.failures["12"] = 5
	f.slow["13"] = 2 * time.Second
	sink := &recordingSink{}
	p, st := newTestPoller(f, sink)

	_ = p.PollList(context.Background())
	start := time.Now()
	if n := p.PollDetails(context.Background()); n != 0 {
		t.Fatalf("evaluated = %d, want 0", n)
	}
	if time.Since(start) > time.Second {
		t.Error("单轮应在超时后结束")
	}
	if sink.len() != 0 {
		t.Error("失败或超时的比赛不应评估")
	}
	if _, ok := st.Get("12"); ok {
		t.Error("失败的比赛不应写入状态")
	}
	m := p.Metrics()
	if m.DetailFailures != 2 || m.Timeouts != 1 || m.Evaluations != 0 {
		t.Errorf("Metrics = %+v", m)
	}
}

func TestPollDetails_StaleWriteDiscarded(t *testing.T) {
	f := newFakeFetcher()
	f.list = []model.LiveMatch{{ID: "14", Status: "1st"}}
	f.snapshots["14"] = pressing
	sink := &recordingSink{}
	p, st := newTestPoller(f, sink)
	_ = p.PollList(context.Background())

	// 一个更新的周期已经写入
	st.Update(model.MatchState{Match: model.LiveMatch{ID: "14"}, Seq: 1 << 40})

	if n := p.PollDetails(context.Background()); n != 0 {
		t.Fatalf("evaluated = %d, want 0", n)
	}
	if sink.len() != 0 {
		t.Error("过期结果不应分发")
	}
	if p.Metrics().StaleDiscards != 1 {
		t.Errorf("StaleDiscards = %d, want 1", p.Metrics().StaleDiscards)
	}
}

func TestPoller_StartRunsFirstCycle(t *testing.T) {
	f := newFakeFetcher()
	f.list = []model.LiveMatch{{ID: "20", Status: "1st"}}
	f.snapshots["20"] = pressing
	sink := &recordingSink{}
	p, _ := newTestPoller(f, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sink.len() > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("启动后应立即执行首轮轮询")
}

func TestPoller_SeqMonotonic(t *testing.T) {
	f := newFakeFetcher()
	f.list = []model.LiveMatch{{ID: "30", Status: "1st"}}
	f.snapshots["30"] = pressing
	sink := &recordingSink{}
	p, _ := newTestPoller(f, sink)
	_ = p.PollList(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.PollDetails(context.Background())
		}()
	}
	wg.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	seen := make(map[uint64]bool)
	for _, st := range sink.states {
		if seen[st.Seq] {
			t.Fatalf("序号重复: %d", st.Seq)
		}
		seen[st.Seq] = true
	}
	if p.Metrics().LastSeq != 6 {
		t.Errorf("LastSeq = %d, want 6", p.Metrics().LastSeq)
	}
}
