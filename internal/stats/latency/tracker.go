// Package latency 统计上游请求耗时。
// 每个端点（比赛列表、比赛详情）维护独立的滚动窗口。
package latency

import (
	"sort"
	"sync"
	"time"
)

// 端点名称
const (
	EndpointLiveScores = "livescores"
	EndpointFixture    = "fixture"
)

// LatencyStats 请求耗时统计快照（滚动窗口）
// 单位：毫秒。
type LatencyStats struct {
	// Endpoint 端点名称
	Endpoint string `json:"endpoint"`
	// Count 样本总数（累计）
	Count int64 `json:"count"`
	// Failures 失败请求数（累计），失败请求不计入分位数
	Failures int64 `json:"failures"`

	P50Ms float64 `json:"p50_ms"`
	P90Ms float64 `json:"p90_ms"`
	P99Ms float64 `json:"p99_ms"`
}

type rollingWindow struct {
	size  int
	buf   []int64
	pos   int
	count int64
	fails int64
	full  bool

	mu sync.Mutex
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{size: size, buf: make([]int64, 0, size)}
}

func (w *rollingWindow) add(v int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.count++
	if w.size <= 0 {
		return
	}

	if !w.full {
		w.buf = append(w.buf, v)
		if len(w.buf) == w.size {
			w.full = true
			w.pos = 0
		}
		return
	}

	w.buf[w.pos] = v
	w.pos++
	if w.pos >= w.size {
		w.pos = 0
	}
}

func (w *rollingWindow) fail() {
	w.mu.Lock()
	w.fails++
	w.mu.Unlock()
}

func (w *rollingWindow) snapshotQuantiles(qs ...float64) (count, fails int64, values []int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	count, fails = w.count, w.fails
	values = make([]int64, len(qs))
	if len(w.buf) == 0 {
		return count, fails, values
	}

	tmp := make([]int64, len(w.buf))
	copy(tmp, w.buf)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })

	n := len(tmp)
	for i, q := range qs {
		switch {
		case q <= 0:
			values[i] = tmp[0]
		case q >= 1:
			values[i] = tmp[n-1]
		default:
			values[i] = tmp[int(float64(n-1)*q)]
		}
	}
	return count, fails, values
}

// Tracker 请求耗时追踪器（并发安全）
type Tracker struct {
	size int

	mu      sync.RWMutex
	windows map[string]*rollingWindow
}

// NewTracker 创建耗时追踪器
// 参数 windowSize: 每个端点的滚动窗口大小
func NewTracker(windowSize int) *Tracker {
	return &Tracker{
		size:    windowSize,
		windows: make(map[string]*rollingWindow),
	}
}

func (t *Tracker) window(endpoint string) *rollingWindow {
	t.mu.RLock()
	w, ok := t.windows[endpoint]
	t.mu.RUnlock()
	if ok {
		return w
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok = t.windows[endpoint]; !ok {
		w = newRollingWindow(t.size)
		t.windows[endpoint] = w
	}
	return w
}

// Observe 记录一次请求
// 参数 endpoint: 端点名称
// 参数 d: 请求耗时
// 参数 err: 请求错误；非 nil 时只计入失败数
func (t *Tracker) Observe(endpoint string, d time.Duration, err error) {
	w := t.window(endpoint)
	if err != nil {
		w.fail()
		return
	}
	w.add(d.Nanoseconds())
}

// Stats 获取指定端点的统计快照
func (t *Tracker) Stats(endpoint string) LatencyStats {
	t.mu.RLock()
	w, ok := t.windows[endpoint]
	t.mu.RUnlock()
	if !ok {
		return LatencyStats{Endpoint: endpoint}
	}

	count, fails, qs := w.snapshotQuantiles(0.50, 0.90, 0.99)
	return LatencyStats{
		Endpoint: endpoint,
		Count:    count,
		Failures: fails,
		P50Ms:    float64(qs[0]) / 1_000_000.0,
		P90Ms:    float64(qs[1]) / 1_000_000.0,
		P99Ms:    float64(qs[2]) / 1_000_000.0,
	}
}

// All 获取全部端点的统计快照，按端点名称排序
func (t *Tracker) All() []LatencyStats {
	t.mu.RLock()
	names := make([]string, 0, len(t.windows))
	for name := range t.windows {
		names = append(names, name)
	}
	t.mu.RUnlock()
	sort.Strings(names)

	out := make([]LatencyStats, 0, len(names))
	for _, name := range names {
		out = append(out, t.Stats(name))
	}
	return out
}
