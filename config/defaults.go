// =============================================================================
// 📦 ContentCycle 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Database:  DefaultDatabaseConfig(),
		AI:        DefaultAIConfig(),
		Cycle:     DefaultCycleConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Auth:      DefaultAuthConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "contentcycle",
		Password:        "",
		Name:            "contentcycle.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultAIConfig 返回默认 AI 推理配置
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Mode:            "live-fallback",
		APIKey:          "",
		BaseURL:         "",
		FocusGroupModel: "openrouter/sherlock-think-alpha",
		EditorModel:     "openrouter/sherlock-think-alpha",
		Referer:         "https://github.com/BaSui01/contentcycle",
		AppTitle:        "ContentCycle",
		Timeout:         2 * time.Minute,
		Parallelism:     5,
	}
}

// DefaultCycleConfig 返回默认循环参数
func DefaultCycleConfig() CycleConfig {
	return CycleConfig{
		DefaultTargetRating: 8.0,
		DefaultMaxCycles:    3,
		DefaultConvergence:  0.8,
		SeedPersonas:        true,
	}
}

// DefaultRateLimitConfig 返回默认限流配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled: true,
		RPS:     50,
		Burst:   100,
	}
}

// DefaultAuthConfig 返回默认认证配置（默认关闭，内网部署无需 Key）
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Enabled:       false,
		AllowQueryKey: false,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "contentcycle",
		Path:      "/metrics",
	}
}
