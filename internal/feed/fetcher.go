package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"live-strategy-monitor/internal/core/model"
)

// ErrStatus 上游返回非 2xx 状态码
var ErrStatus = errors.New("unexpected http status")

// Fetcher 比分数据获取器接口
type Fetcher interface {
	// FetchLiveScores 获取比赛列表
	FetchLiveScores(ctx context.Context) ([]model.LiveMatch, error)
	// FetchFixture 获取单场比赛统计
	FetchFixture(ctx context.Context, id string) (model.Snapshot, model.LiveMatch, error)
}

// HTTPFetcher HTTP 比分数据获取器
type HTTPFetcher struct {
	// baseURL 上游 API 根地址，如 https://host/api
	baseURL string
	// client HTTP 客户端
	client *http.Client
	// userAgent 请求标识
	userAgent string
}

// NewHTTPFetcher 创建 HTTP 比分数据获取器
// 参数 baseURL: 上游 API 根地址
// 参数 timeout: 单次请求超时
// 参数 userAgent: User-Agent 请求头
func NewHTTPFetcher(baseURL string, timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// FetchLiveScores 获取比赛列表
// 参数 ctx: 上下文，用于取消请求
// 返回: 全部比赛（未按状态过滤）
func (f *HTTPFetcher) FetchLiveScores(ctx context.Context) ([]model.LiveMatch, error) {
	body, err := f.doRequest(ctx, f.baseURL+"/livescores")
	if err != nil {
		return nil, fmt.Errorf("请求比赛列表失败: %w", err)
	}

	var resp LiveScoresResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析比赛列表失败: %w", err)
	}
	return FlattenLiveScores(&resp), nil
}

// FetchFixture 获取单场比赛统计
// 参数 ctx: 上下文
// 参数 id: 比赛 ID
// 返回: 统计快照与比分板信息
func (f *HTTPFetcher) FetchFixture(ctx context.Context, id string) (model.Snapshot, model.LiveMatch, error) {
	body, err := f.doRequest(ctx, f.baseURL+"/fixture/"+url.PathEscape(id))
	if err != nil {
		return model.Snapshot{}, model.LiveMatch{}, fmt.Errorf("请求比赛 %s 详情失败: %w", id, err)
	}

	var resp FixtureResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Snapshot{}, model.LiveMatch{}, fmt.Errorf("解析比赛 %s 详情失败: %w", id, err)
	}

	match := ToLiveMatch(&resp.Data)
	if match.ID == "" {
		match.ID = id
	}
	return ToSnapshot(&resp.Data), match, nil
}

// doRequest 执行 HTTP GET 请求
// 参数 ctx: 上下文
// 参数 url: 请求地址
// 返回: 响应体字节数组
func (f *HTTPFetcher) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	return body, nil
}
