// Package api 提供比赛状态查询、策略调参与信号推送的 HTTP 接口。
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live-strategy-monitor/internal/config"
	"live-strategy-monitor/internal/core/model"
	"live-strategy-monitor/internal/core/store"
	"live-strategy-monitor/internal/core/strategy"
)

// Handler 比赛与策略接口
type Handler struct {
	Store  *store.Store
	Engine *strategy.Engine
	Logger *zap.Logger
}

// Register 注册路由
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)

	v1 := r.Group("/api/v1")
	v1.GET("/matches", h.listMatches)
	v1.GET("/matches/:id", h.getMatch)
	v1.GET("/matches/:id/explain", h.explainMatch)

	v1.GET("/strategy/config", h.getConfig)
	v1.PUT("/strategy/config", h.putConfig)
	v1.GET("/strategy/presets", h.listPresets)
	v1.POST("/strategy/presets/:name", h.applyPreset)
	v1.POST("/strategy/reset", h.reset)

	v1.POST("/evaluate", h.evaluate)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "tracked_matches": h.Store.Len()})
}

// matchSummary 列表项
type matchSummary struct {
	model.LiveMatch
	Signals int    `json:"signals"`
	Seq     uint64 `json:"seq,omitempty"`
}

func (h *Handler) listMatches(c *gin.Context) {
	matches := h.Store.Matches()
	onlySignals := strings.EqualFold(c.Query("signals"), "true")

	items := make([]matchSummary, 0, len(matches))
	for _, m := range matches {
		item := matchSummary{LiveMatch: m}
		if st, ok := h.Store.Get(m.ID); ok {
			item.Signals = len(st.Results)
			item.Seq = st.Seq
		}
		if onlySignals && item.Signals == 0 {
			continue
		}
		items = append(items, item)
	}
	Ok(c, items, map[string]any{"total": len(items)})
}

func (h *Handler) getMatch(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	st, ok := h.Store.Get(id)
	if !ok {
		if m, listed := h.Store.Match(id); listed {
			// 已在列表中但尚未完成首次评估
			Ok(c, model.MatchState{Match: m, Results: []model.StrategyResult{}}, nil)
			return
		}
		Error(c, http.StatusNotFound, "match not found", nil)
		return
	}
	Ok(c, st, nil)
}

// explainResponse 规则求值轨迹
type explainResponse struct {
	Match   model.LiveMatch       `json:"match"`
	Config  config.StrategyConfig `json:"config"`
	Metrics model.Metrics         `json:"metrics"`
	Rules   []strategy.RuleTrace  `json:"rules"`
}

func (h *Handler) explainMatch(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	st, ok := h.Store.Get(id)
	if !ok {
		Error(c, http.StatusNotFound, "match not found", nil)
		return
	}
	cfg := h.Engine.Config()
	Ok(c, explainResponse{
		Match:   st.Match,
		Config:  cfg,
		Metrics: st.Snapshot.Metrics(),
		Rules:   strategy.Explain(st.Snapshot, cfg),
	}, nil)
}

func (h *Handler) getConfig(c *gin.Context) {
	holder := h.Engine.Holder()
	Ok(c, holder.Load(), map[string]any{"version": holder.Version()})
}

func (h *Handler) putConfig(c *gin.Context) {
	var cfg config.StrategyConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}
	holder := h.Engine.Holder()
	if err := holder.Replace(cfg); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	h.Logger.Info("策略配置已更新", zap.Any("config", cfg), zap.Uint64("version", holder.Version()))
	Ok(c, cfg, map[string]any{"version": holder.Version()})
}

func (h *Handler) listPresets(c *gin.Context) {
	Ok(c, strategy.Presets(), nil)
}

func (h *Handler) applyPreset(c *gin.Context) {
	name := c.Param("name")
	holder := h.Engine.Holder()
	cfg, err := holder.ApplyPreset(name)
	if err != nil {
		if errors.Is(err, strategy.ErrUnknownPreset) {
			Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	h.Logger.Info("已应用策略预设", zap.String("preset", name), zap.Uint64("version", holder.Version()))
	Ok(c, cfg, map[string]any{"version": holder.Version()})
}

func (h *Handler) reset(c *gin.Context) {
	holder := h.Engine.Holder()
	cfg := holder.Reset()
	h.Logger.Info("策略配置已恢复默认", zap.Uint64("version", holder.Version()))
	Ok(c, cfg, map[string]any{"version": holder.Version()})
}

// evaluateRequest 临时求值请求；Config 为空时使用当前配置
type evaluateRequest struct {
	Snapshot model.Snapshot         `json:"snapshot"`
	Config   *config.StrategyConfig `json:"config"`
	Explain  bool                   `json:"explain"`
}

type evaluateResponse struct {
	Results []model.StrategyResult `json:"results"`
	Metrics model.Metrics          `json:"metrics"`
	Rules   []strategy.RuleTrace   `json:"rules,omitempty"`
}

func (h *Handler) evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}
	cfg := h.Engine.Config()
	if req.Config != nil {
		if errs := config.ValidateStrategy(*req.Config); len(errs) > 0 {
			Error(c, http.StatusBadRequest, strings.Join(errs, "; "), nil)
			return
		}
		cfg = *req.Config
	}

	resp := evaluateResponse{
		Results: strategy.Evaluate(req.Snapshot, cfg),
		Metrics: req.Snapshot.Metrics(),
	}
	if req.Explain {
		resp.Rules = strategy.Explain(req.Snapshot, cfg)
	}
	Ok(c, resp, nil)
}
