package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"live-strategy-monitor/internal/core/model"
	"live-strategy-monitor/internal/util/timeutil"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	// clientBuffer 单个连接的待发送消息上限，写满后丢弃新消息
	clientBuffer = 64
)

// SignalEvent 推送给订阅者的一批新信号
type SignalEvent struct {
	Type     string                 `json:"type"`
	TsUnixMs int64                  `json:"ts_unix_ms"`
	Seq      uint64                 `json:"seq"`
	Match    model.LiveMatch        `json:"match"`
	Metrics  model.Metrics          `json:"metrics"`
	Results  []model.StrategyResult `json:"results"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// HubStats 推送统计
type HubStats struct {
	Clients   int   `json:"clients"`
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
}

// Hub websocket 信号广播
// 每个连接一个写协程；gorilla/websocket 不允许并发写，所有写入都在该协程内完成。
type Hub struct {
	upgrader websocket.Upgrader
	clock    timeutil.Clock
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool

	published atomic.Int64
	dropped   atomic.Int64
}

// NewHub 创建广播中心
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clock:   timeutil.SystemClock{},
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Register 注册 websocket 路由
func (h *Hub) Register(r *gin.Engine) {
	r.GET("/ws/signals", h.serveWS)
}

// OnEvaluated 有命中信号时广播；实现 poller.Sink
func (h *Hub) OnEvaluated(_ context.Context, st model.MatchState) {
	if len(st.Results) == 0 {
		return
	}
	data, err := json.Marshal(SignalEvent{
		Type:     "signals",
		TsUnixMs: timeutil.UnixMs(h.clock.Now()),
		Seq:      st.Seq,
		Match:    st.Match,
		Metrics:  st.Metrics,
		Results:  st.Results,
	})
	if err != nil {
		h.logger.Warn("序列化推送消息失败", zap.Error(err))
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	h.published.Add(1)
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) serveWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket 升级失败", zap.Error(err))
		return
	}

	cl := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("信号订阅者接入", zap.String("remote", c.Request.RemoteAddr), zap.Int("clients", n))

	go h.writeLoop(cl)
	h.readLoop(cl)
}

// readLoop 只处理控制帧；读失败即视为断开
func (h *Hub) readLoop(cl *wsClient) {
	defer h.remove(cl)

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(cl *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(cl *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		cl.close()
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("信号订阅者断开", zap.Int("clients", n))
}

// Stats 返回推送统计
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	return HubStats{Clients: n, Published: h.published.Load(), Dropped: h.dropped.Load()}
}

// Close 关闭全部连接，之后的广播被忽略
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		cl.close()
	}
}
