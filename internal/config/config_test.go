// Package config 配置模块测试
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConfigValidation_StrategyThresholds 测试策略阈值验证
// 属性: 任一阈值为负数应验证失败，非负应通过
func TestConfigValidation_StrategyThresholds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("上半场 APPM 为负数应验证失败", prop.ForAll(
		func(rate float64) bool {
			cfg := createValidConfig()
			cfg.Strategy.FirstHalfMinAttackRate = rate
			return cfg.Validate() != nil
		},
		gen.Float64Range(-1000, -0.0001),
	))

	properties.Property("下半场 CG 为负数应验证失败", prop.ForAll(
		func(volume int) bool {
			cfg := createValidConfig()
			cfg.Strategy.SecondHalfMinVolume = volume
			return cfg.Validate() != nil
		},
		gen.IntRange(-1000, -1),
	))

	properties.Property("非负阈值应通过验证", prop.ForAll(
		func(htRate float64, htVol int, ftRate float64, ftVol int) bool {
			cfg := createValidConfig()
			cfg.Strategy = StrategyConfig{
				FirstHalfMinAttackRate:  htRate,
				FirstHalfMinVolume:      htVol,
				SecondHalfMinAttackRate: ftRate,
				SecondHalfMinVolume:     ftVol,
			}
			return cfg.Validate() == nil
		},
		gen.Float64Range(0, 10),
		gen.IntRange(0, 100),
		gen.Float64Range(0, 10),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_FeedIntervals 测试轮询间隔验证
func TestConfigValidation_FeedIntervals(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("轮询间隔小于 1 秒应验证失败", prop.ForAll(
		func(interval int) bool {
			cfg := createValidConfig()
			cfg.Feed.DetailIntervalMs = interval
			return cfg.Validate() != nil
		},
		gen.IntRange(-1000, 999),
	))

	properties.Property("单轮超时小于请求超时应验证失败", prop.ForAll(
		func(timeout int) bool {
			cfg := createValidConfig()
			cfg.Feed.TimeoutMs = timeout
			cfg.Feed.CycleTimeoutMs = timeout - 1
			return cfg.Validate() != nil
		},
		gen.IntRange(1, 100000),
	))

	properties.TestingRun(t)
}

func TestConfigValidation_ValidConfig(t *testing.T) {
	cfg := createValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("有效配置不应验证失败: %v", err)
	}
}

func TestConfigValidation_CollectsAllErrors(t *testing.T) {
	cfg := createValidConfig()
	cfg.Feed.BaseURL = ""
	cfg.App.LogLevel = "verbose"
	cfg.Alert.Dedup = "etcd"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("应返回验证错误")
	}
	msg := err.Error()
	for _, field := range []string{"feed.base_url", "app.log_level", "alert.dedup"} {
		if !strings.Contains(msg, field) {
			t.Errorf("错误信息缺少 %s: %s", field, msg)
		}
	}
}

func TestConfigValidation_TelegramRequiresCredentials(t *testing.T) {
	cfg := createValidConfig()
	cfg.Alert.Enabled = true
	cfg.Alert.Telegram.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("启用 Telegram 但缺少凭据应验证失败")
	}
	if !strings.Contains(err.Error(), "alert.telegram.token") || !strings.Contains(err.Error(), "alert.telegram.chat_id") {
		t.Errorf("错误信息不完整: %v", err)
	}
}

func TestConfigValidation_RedisRequiresAddr(t *testing.T) {
	cfg := createValidConfig()
	cfg.Alert.Dedup = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("redis 去重缺少地址应验证失败")
	}
	cfg.Alert.Redis.Addr = "127.0.0.1:6379"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("补齐地址后应通过: %v", err)
	}
}

// createValidConfig 创建一个有效的配置用于测试
func createValidConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "test",
			LogLevel: "info",
		},
		Feed: FeedConfig{
			BaseURL:           "https://feed.example.com/api",
			TimeoutMs:         10000,
			CycleTimeoutMs:    30000,
			ListIntervalMs:    30000,
			DetailIntervalMs:  20000,
			MaxRetries:        2,
			MaxTrackedMatches: 50,
			LiveStatuses:      []string{"1st", "HT", "2nd"},
		},
		Strategy: DefaultStrategy(),
		Alert: AlertConfig{
			CooldownMs: 7200000,
			Dedup:      "memory",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
			Mode: "release",
		},
		Output: OutputConfig{
			Dir:               "./output",
			MetricsIntervalMs: 60000,
			BufferSize:        1000,
		},
	}
}

// TestLoad_ValidFile 测试从有效文件加载配置
func TestLoad_ValidFile(t *testing.T) {
	content := `
app:
  name: test-monitor
  log_level: debug

feed:
  base_url: https://feed.example.com/api
  detail_interval_ms: 15000

strategy:
  first_half_min_attack_rate: 1.5
  enable_corner_signals: false

alert:
  enabled: true
  dedup: memory

output:
  dir: ./out
  signals_enabled: true
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.App.Name != "test-monitor" {
		t.Errorf("App.Name = %s, want test-monitor", cfg.App.Name)
	}
	if cfg.Feed.DetailIntervalMs != 15000 {
		t.Errorf("Feed.DetailIntervalMs = %d, want 15000", cfg.Feed.DetailIntervalMs)
	}
	if cfg.Feed.ListIntervalMs != 30000 {
		t.Errorf("Feed.ListIntervalMs = %d, want 30000 (默认值)", cfg.Feed.ListIntervalMs)
	}
	if cfg.Strategy.FirstHalfMinAttackRate != 1.5 {
		t.Errorf("Strategy.FirstHalfMinAttackRate = %f, want 1.5", cfg.Strategy.FirstHalfMinAttackRate)
	}
	// 未出现在文件中的策略字段保留默认值
	if cfg.Strategy.SecondHalfMinVolume != 15 {
		t.Errorf("Strategy.SecondHalfMinVolume = %d, want 15", cfg.Strategy.SecondHalfMinVolume)
	}
	if !cfg.Strategy.EnableGoalSignals {
		t.Error("Strategy.EnableGoalSignals 应保留默认值 true")
	}
	if cfg.Strategy.EnableCornerSignals {
		t.Error("Strategy.EnableCornerSignals 应被文件覆盖为 false")
	}
	if cfg.Alert.Cooldown() != 2*time.Hour {
		t.Errorf("Alert.Cooldown() = %v, want 2h", cfg.Alert.Cooldown())
	}
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("MONITOR_TELEGRAM_TOKEN", "env-token")
	t.Setenv("MONITOR_TELEGRAM_CHAT_ID", "-100123")

	content := `
feed:
  base_url: https://feed.example.com/api
alert:
  enabled: true
  telegram:
    enabled: true
    token: file-token
`
	cfg, err := Parse([]byte(content))
	if err != nil {
		t.Fatalf("解析配置失败: %v", err)
	}
	if cfg.Alert.Telegram.Token != "env-token" {
		t.Errorf("Token = %s, want env-token", cfg.Alert.Telegram.Token)
	}
	if cfg.Alert.Telegram.ChatID != -100123 {
		t.Errorf("ChatID = %d, want -100123", cfg.Alert.Telegram.ChatID)
	}
}

// TestLoad_InvalidFile 测试加载无效文件
func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("加载不存在的文件应返回错误")
	}
}

// TestLoad_InvalidYAML 测试加载无效 YAML
func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(tmpFile, []byte("invalid: yaml: content:"), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	_, err := Load(tmpFile)
	if err == nil {
		t.Error("加载无效 YAML 应返回错误")
	}
}

func TestFeedConfig_IsLive(t *testing.T) {
	f := FeedConfig{LiveStatuses: []string{"1st", "HT", "2nd"}}
	cases := map[string]bool{"1st": true, "ht": true, "2nd": true, "FT": false, "NS": false, "": false}
	for status, want := range cases {
		if got := f.IsLive(status); got != want {
			t.Errorf("IsLive(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestLoad_BundledConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.yaml"))
	if err != nil {
		t.Fatalf("仓库自带配置应能通过验证: %v", err)
	}
	if cfg.Strategy != DefaultStrategy() {
		t.Errorf("Strategy = %+v, want defaults", cfg.Strategy)
	}
	if cfg.Alert.Telegram.Enabled {
		t.Error("自带配置不应默认启用 Telegram")
	}
}
