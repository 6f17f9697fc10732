// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 验证服务器默认值
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)

	// 验证 AI 默认值
	assert.Equal(t, "live-fallback", cfg.AI.Mode)
	assert.Equal(t, "openrouter/sherlock-think-alpha", cfg.AI.FocusGroupModel)
	assert.Equal(t, 5, cfg.AI.Parallelism)

	// 验证循环默认值
	assert.Equal(t, 8.0, cfg.Cycle.DefaultTargetRating)
	assert.Equal(t, 3, cfg.Cycle.DefaultMaxCycles)
	assert.True(t, cfg.Cycle.SeedPersonas)

	// 验证 Database 默认值
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "contentcycle.db", cfg.Database.Name)

	// 验证 Log 默认值
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "live-fallback", cfg.AI.Mode)
}

func TestLoader_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  http_port: 9000
ai:
  mode: mock
  parallelism: 3
cycle:
  default_target_rating: 9.5
  default_max_cycles: 5
database:
  driver: postgres
  host: db.internal
  port: 5433
  user: cycle
  name: cycle
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "mock", cfg.AI.Mode)
	assert.Equal(t, 3, cfg.AI.Parallelism)
	assert.Equal(t, 9.5, cfg.Cycle.DefaultTargetRating)
	assert.Equal(t, 5, cfg.Cycle.DefaultMaxCycles)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)

	// 文件未覆盖的字段保持默认值
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoader_AuthAndPricingFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  cors_allowed_origins:
    - https://app.example.com
ai:
  mode: mock
  pricing:
    openai/gpt-4o-mini:
      input: 0.0002
      completion: 0.0008
  pricing_fallback_per_token: 0.000001
auth:
  enabled: true
  api_keys:
    - key-one
    - key-two
  allow_query_key: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, ModelPrice{Input: 0.0002, Completion: 0.0008}, cfg.AI.Pricing["openai/gpt-4o-mini"])
	assert.Equal(t, 0.000001, cfg.AI.PricingFallbackPerToken)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Auth.APIKeys)
	assert.True(t, cfg.Auth.AllowQueryKey)
	require.NoError(t, cfg.Validate())
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("CONTENTCYCLE_SERVER_HTTP_PORT", "9999")
	t.Setenv("CONTENTCYCLE_AI_MODE", "mock")
	t.Setenv("CONTENTCYCLE_AI_TIMEOUT", "45s")
	t.Setenv("CONTENTCYCLE_CYCLE_SEED_PERSONAS", "false")
	t.Setenv("CONTENTCYCLE_LOG_OUTPUT_PATHS", "stdout, /var/log/cycle.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "mock", cfg.AI.Mode)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.False(t, cfg.Cycle.SeedPersonas)
	assert.Equal(t, []string{"stdout", "/var/log/cycle.log"}, cfg.Log.OutputPaths)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o600))

	t.Setenv("CONTENTCYCLE_SERVER_HTTP_PORT", "9100")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.HTTPPort)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("CYCLE_SERVER_HTTP_PORT", "7070")

	cfg, err := NewLoader().WithEnvPrefix("CYCLE").Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.HTTPPort)
}

func TestLoader_Validator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			return assert.AnError
		}).
		Load()
	assert.Error(t, err)
}

// --- Validate 测试 ---

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AI.Mode = "mock"
	assert.NoError(t, cfg.Validate())

	bad := DefaultConfig()
	bad.Server.HTTPPort = -1
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.AI.Mode = "turbo"
	assert.Error(t, bad.Validate())

	// live 模式缺 API Key
	bad = DefaultConfig()
	bad.AI.Mode = "live"
	bad.AI.APIKey = ""
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.AI.Mode = "mock"
	bad.Cycle.DefaultTargetRating = 11
	assert.Error(t, bad.Validate())

	// 启用认证但未配置 Key
	bad = DefaultConfig()
	bad.AI.Mode = "mock"
	bad.Auth.Enabled = true
	assert.Error(t, bad.Validate())
}

// --- DSN 测试 ---

func TestDatabaseDSN(t *testing.T) {
	pg := DatabaseConfig{
		Driver: "postgres", Host: "h", Port: 5432,
		User: "u", Password: "p", Name: "db", SSLMode: "disable",
	}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=db sslmode=disable", pg.DSN())

	sq := DatabaseConfig{Driver: "sqlite", Name: "cycle.db"}
	assert.Equal(t, "cycle.db", sq.DSN())

	empty := DatabaseConfig{Driver: "oracle"}
	assert.Empty(t, empty.DSN())
}
