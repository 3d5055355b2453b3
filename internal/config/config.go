// Package config 负责加载和验证 YAML 配置文件。
// 提供监控器所需的所有配置项，包括数据源、策略阈值、告警投递、HTTP 与输出设置。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config 应用配置根结构
// 包含所有子模块的配置项
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Feed 上游比分/统计数据源配置
	Feed FeedConfig `yaml:"feed"`
	// Strategy 策略阈值配置（启动时加载，运行时可整体替换）
	Strategy StrategyConfig `yaml:"strategy"`
	// StrategyPreset 启动时使用的命名预设；非空时整体覆盖 Strategy
	StrategyPreset string `yaml:"strategy_preset"`
	// Alert 告警去重与投递配置
	Alert AlertConfig `yaml:"alert"`
	// HTTP HTTP 接口配置
	HTTP HTTPConfig `yaml:"http"`
	// Output 输出配置
	Output OutputConfig `yaml:"output"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// FeedConfig 数据源配置
type FeedConfig struct {
	// BaseURL 数据源 API 根地址，如 https://example.com/api
	BaseURL string `yaml:"base_url"`
	// TimeoutMs 单次 HTTP 请求超时（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
	// CycleTimeoutMs 单轮拉取（含重试）总超时（毫秒），超时则本轮不评估
	CycleTimeoutMs int `yaml:"cycle_timeout_ms"`
	// ListIntervalMs 比赛列表轮询间隔（毫秒）
	ListIntervalMs int `yaml:"list_interval_ms"`
	// DetailIntervalMs 比赛详情轮询间隔（毫秒）
	DetailIntervalMs int `yaml:"detail_interval_ms"`
	// MaxRetries 单场详情拉取失败时的最大重试次数
	MaxRetries int `yaml:"max_retries"`
	// MaxTrackedMatches 同时跟踪详情的最大比赛数
	MaxTrackedMatches int `yaml:"max_tracked_matches"`
	// LiveStatuses 视为进行中的状态码
	LiveStatuses []string `yaml:"live_statuses"`
}

// StrategyConfig 策略阈值配置
// 四个数值阈值加三个类别开关；预设切换时整体替换，不做合并。
type StrategyConfig struct {
	// FirstHalfMinAttackRate 上半场最小 APPM
	FirstHalfMinAttackRate float64 `yaml:"first_half_min_attack_rate" json:"first_half_min_attack_rate"`
	// FirstHalfMinVolume 上半场最小 CG
	FirstHalfMinVolume int `yaml:"first_half_min_volume" json:"first_half_min_volume"`
	// SecondHalfMinAttackRate 下半场最小 APPM
	SecondHalfMinAttackRate float64 `yaml:"second_half_min_attack_rate" json:"second_half_min_attack_rate"`
	// SecondHalfMinVolume 下半场单边规则最小 CG（合计规则在此基础上 +5）
	SecondHalfMinVolume int `yaml:"second_half_min_volume" json:"second_half_min_volume"`
	// EnableGoalSignals 是否启用进球类信号
	EnableGoalSignals bool `yaml:"enable_goal_signals" json:"enable_goal_signals"`
	// EnableCornerSignals 是否启用角球类信号
	EnableCornerSignals bool `yaml:"enable_corner_signals" json:"enable_corner_signals"`
	// EnableBothToScoreSignals 是否启用双方进球类信号
	EnableBothToScoreSignals bool `yaml:"enable_both_to_score_signals" json:"enable_both_to_score_signals"`
}

// AlertConfig 告警配置
type AlertConfig struct {
	// Enabled 是否启用告警投递
	Enabled bool `yaml:"enabled"`
	// CooldownMs 同一 (比赛, 类别, 标题) 的重复抑制窗口（毫秒）
	CooldownMs int64 `yaml:"cooldown_ms"`
	// Dedup 去重存储: memory 或 redis
	Dedup string `yaml:"dedup"`
	// Telegram Telegram 投递配置
	Telegram TelegramConfig `yaml:"telegram"`
	// Redis Redis 去重存储配置
	Redis RedisConfig `yaml:"redis"`
}

// TelegramConfig Telegram 投递配置
type TelegramConfig struct {
	// Enabled 是否通过 Telegram 投递（关闭时仅写日志）
	Enabled bool `yaml:"enabled"`
	// Token Bot Token，可由环境变量 MONITOR_TELEGRAM_TOKEN 覆盖
	Token string `yaml:"token" env:"MONITOR_TELEGRAM_TOKEN"`
	// ChatID 目标会话 ID，可由环境变量 MONITOR_TELEGRAM_CHAT_ID 覆盖
	ChatID int64 `yaml:"chat_id" env:"MONITOR_TELEGRAM_CHAT_ID"`
	// SendIntervalMs 两条消息之间的最小间隔（毫秒），避免 429
	SendIntervalMs int `yaml:"send_interval_ms"`
	// QueueSize 发送队列长度
	QueueSize int `yaml:"queue_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// Addr 地址，如 127.0.0.1:6379
	Addr string `yaml:"addr"`
	// Password 密码，可由环境变量 MONITOR_REDIS_PASSWORD 覆盖
	Password string `yaml:"password" env:"MONITOR_REDIS_PASSWORD"`
	// DB 库编号
	DB int `yaml:"db"`
	// KeyPrefix 去重键前缀
	KeyPrefix string `yaml:"key_prefix"`
}

// HTTPConfig HTTP 接口配置
type HTTPConfig struct {
	// Enabled 是否启动 HTTP 接口
	Enabled bool `yaml:"enabled"`
	// Addr 监听地址
	Addr string `yaml:"addr"`
	// Mode gin 运行模式: debug 或 release
	Mode string `yaml:"mode"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// SignalsEnabled 是否输出信号文件
	SignalsEnabled bool `yaml:"signals_enabled"`
	// AlertsEnabled 是否输出告警文件
	AlertsEnabled bool `yaml:"alerts_enabled"`
	// MetricsEnabled 是否输出指标文件
	MetricsEnabled bool `yaml:"metrics_enabled"`
	// MetricsIntervalMs 指标输出间隔（毫秒）
	MetricsIntervalMs int `yaml:"metrics_interval_ms"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 内容，应用默认值与环境变量覆盖后验证
func Parse(data []byte) (*Config, error) {
	cfg := Config{Strategy: DefaultStrategy()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.setDefaults()

	// 敏感字段允许由环境变量覆盖
	if err := env.Parse(&cfg.Alert.Telegram); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}
	if err := env.Parse(&cfg.Alert.Redis); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// DefaultStrategy 返回硬编码的默认策略阈值
// 上半场 1.3 / 10，下半场 1.1 / 15，三个开关全部打开。
func DefaultStrategy() StrategyConfig {
	return StrategyConfig{
		FirstHalfMinAttackRate:   1.3,
		FirstHalfMinVolume:       10,
		SecondHalfMinAttackRate:  1.1,
		SecondHalfMinVolume:      15,
		EnableGoalSignals:        true,
		EnableCornerSignals:      true,
		EnableBothToScoreSignals: true,
	}
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "live-strategy-monitor"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	if c.Feed.TimeoutMs == 0 {
		c.Feed.TimeoutMs = 10000 // 10 秒
	}
	if c.Feed.CycleTimeoutMs == 0 {
		c.Feed.CycleTimeoutMs = 30000 // 30 秒
	}
	if c.Feed.ListIntervalMs == 0 {
		c.Feed.ListIntervalMs = 30000
	}
	if c.Feed.DetailIntervalMs == 0 {
		c.Feed.DetailIntervalMs = 20000
	}
	if c.Feed.MaxRetries == 0 {
		c.Feed.MaxRetries = 2
	}
	if c.Feed.MaxTrackedMatches == 0 {
		c.Feed.MaxTrackedMatches = 50
	}
	if len(c.Feed.LiveStatuses) == 0 {
		c.Feed.LiveStatuses = []string{"1st", "HT", "2nd"}
	}

	if c.Alert.CooldownMs == 0 {
		c.Alert.CooldownMs = int64(2 * time.Hour / time.Millisecond)
	}
	if c.Alert.Dedup == "" {
		c.Alert.Dedup = "memory"
	}
	if c.Alert.Telegram.SendIntervalMs == 0 {
		c.Alert.Telegram.SendIntervalMs = 2000
	}
	if c.Alert.Telegram.QueueSize == 0 {
		c.Alert.Telegram.QueueSize = 100
	}
	if c.Alert.Redis.KeyPrefix == "" {
		c.Alert.Redis.KeyPrefix = "lsm:alert:"
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.Mode == "" {
		c.HTTP.Mode = "release"
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.MetricsIntervalMs == 0 {
		c.Output.MetricsIntervalMs = 60000
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	if c.Feed.BaseURL == "" {
		errs = append(errs, "feed.base_url: 数据源地址不能为空")
	} else if !strings.HasPrefix(c.Feed.BaseURL, "http://") && !strings.HasPrefix(c.Feed.BaseURL, "https://") {
		errs = append(errs, fmt.Sprintf("feed.base_url: 必须以 http:// 或 https:// 开头，当前值: %s", c.Feed.BaseURL))
	}
	if c.Feed.TimeoutMs <= 0 {
		errs = append(errs, "feed.timeout_ms: 请求超时必须为正数")
	}
	if c.Feed.CycleTimeoutMs < c.Feed.TimeoutMs {
		errs = append(errs, "feed.cycle_timeout_ms: 单轮超时不能小于单次请求超时")
	}
	if c.Feed.ListIntervalMs < 1000 {
		errs = append(errs, "feed.list_interval_ms: 轮询间隔不能小于 1000 毫秒")
	}
	if c.Feed.DetailIntervalMs < 1000 {
		errs = append(errs, "feed.detail_interval_ms: 轮询间隔不能小于 1000 毫秒")
	}
	if c.Feed.MaxRetries < 0 {
		errs = append(errs, "feed.max_retries: 重试次数不能为负数")
	}
	if c.Feed.MaxTrackedMatches <= 0 {
		errs = append(errs, "feed.max_tracked_matches: 必须为正数")
	}

	for _, e := range ValidateStrategy(c.Strategy) {
		errs = append(errs, "strategy."+e)
	}

	if c.Alert.CooldownMs < 0 {
		errs = append(errs, "alert.cooldown_ms: 冷却时间不能为负数")
	}
	switch c.Alert.Dedup {
	case "memory":
	case "redis":
		if c.Alert.Redis.Addr == "" {
			errs = append(errs, "alert.redis.addr: 使用 redis 去重时地址不能为空")
		}
	default:
		errs = append(errs, fmt.Sprintf("alert.dedup: 无效的去重存储 '%s'，有效值: memory, redis", c.Alert.Dedup))
	}
	if c.Alert.Enabled && c.Alert.Telegram.Enabled {
		if c.Alert.Telegram.Token == "" {
			errs = append(errs, "alert.telegram.token: 启用 Telegram 时 token 不能为空")
		}
		if c.Alert.Telegram.ChatID == 0 {
			errs = append(errs, "alert.telegram.chat_id: 启用 Telegram 时 chat_id 不能为空")
		}
	}

	if c.HTTP.Mode != "debug" && c.HTTP.Mode != "release" {
		errs = append(errs, fmt.Sprintf("http.mode: 无效的运行模式 '%s'，有效值: debug, release", c.HTTP.Mode))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ValidateStrategy 验证策略阈值
// 返回: 问题列表（字段名: 描述），为空表示合法
func ValidateStrategy(s StrategyConfig) []string {
	var errs []string
	if s.FirstHalfMinAttackRate < 0 {
		errs = append(errs, "first_half_min_attack_rate: 不能为负数")
	}
	if s.FirstHalfMinVolume < 0 {
		errs = append(errs, "first_half_min_volume: 不能为负数")
	}
	if s.SecondHalfMinAttackRate < 0 {
		errs = append(errs, "second_half_min_attack_rate: 不能为负数")
	}
	if s.SecondHalfMinVolume < 0 {
		errs = append(errs, "second_half_min_volume: 不能为负数")
	}
	return errs
}

// Cooldown 告警冷却窗口
func (a *AlertConfig) Cooldown() time.Duration {
	return time.Duration(a.CooldownMs) * time.Millisecond
}

// Timeout 单次请求超时
func (f *FeedConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutMs) * time.Millisecond
}

// CycleTimeout 单轮拉取总超时
func (f *FeedConfig) CycleTimeout() time.Duration {
	return time.Duration(f.CycleTimeoutMs) * time.Millisecond
}

// IsLive 判断状态码是否属于进行中
func (f *FeedConfig) IsLive(status string) bool {
	for _, s := range f.LiveStatuses {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}
