package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live-strategy-monitor/internal/config"
)

// Registrar 可注册路由的组件
type Registrar interface {
	Register(r *gin.Engine)
}

// NewRouter 创建 gin 引擎并注册全部组件
// 参数 mode: debug 或 release
func NewRouter(mode string, logger *zap.Logger, parts ...Registrar) *gin.Engine {
	if strings.EqualFold(mode, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(accessLog(logger))
	for _, p := range parts {
		p.Register(engine)
	}
	return engine
}

// NewServer 创建 HTTP 服务
func NewServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/healthz" {
			return
		}
		logger.Debug("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("cost", time.Since(start)),
		)
	}
}
