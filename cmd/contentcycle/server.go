package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/contentcycle/api/handlers"
	"github.com/BaSui01/contentcycle/config"
	"github.com/BaSui01/contentcycle/inference"
	"github.com/BaSui01/contentcycle/internal/database"
	"github.com/BaSui01/contentcycle/internal/metrics"
	"github.com/BaSui01/contentcycle/internal/server"
	"github.com/BaSui01/contentcycle/llm"
	"github.com/BaSui01/contentcycle/orchestrator"
	"github.com/BaSui01/contentcycle/providers"
	"github.com/BaSui01/contentcycle/providers/openrouter"
	"github.com/BaSui01/contentcycle/service"
	"github.com/BaSui01/contentcycle/store"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 ContentCycle 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 基础设施
	dbManager   *database.Manager
	httpManager *server.Manager
	collector   *metrics.Collector
	registry    *prometheus.Registry

	// 领域服务
	svc  *service.Service
	orch *orchestrator.Orchestrator

	// Handlers
	healthHandler  *handlers.HealthHandler
	contentHandler *handlers.ContentHandler
	personaHandler *handlers.PersonaHandler

	// 后台任务生命周期管理（rate limiter 清理、连接数采样）
	bgCancel context.CancelFunc
}

// NewServer 创建并装配服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	// 1. 数据库
	db, err := database.Open(database.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN(),
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s.dbManager = db

	st := newStore(db, logger)
	if err := st.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	// 2. 指标
	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.collector = metrics.NewCollector(cfg.Metrics.Namespace, s.registry, logger)
	}

	// 3. 推理客户端
	client, provider := buildInferenceClient(cfg.AI, logger)

	// 4. 领域服务与编排器
	s.svc = service.New(st, client, cfg.AI.Parallelism, logger)
	s.svc.SetMetrics(s.collector)
	s.orch = orchestrator.New(s.svc, logger)

	if cfg.Cycle.SeedPersonas {
		if _, err := s.svc.SeedPersonas(context.Background()); err != nil {
			return nil, fmt.Errorf("persona seeding failed: %w", err)
		}
	}

	// 5. Handlers
	s.healthHandler = handlers.NewHealthHandler(logger)
	s.healthHandler.RegisterCheck(handlers.NewDatabaseHealthCheck("database", db.Ping))
	if provider != nil {
		s.healthHandler.RegisterCheck(handlers.NewProviderHealthCheck("openrouter", provider))
	}
	s.contentHandler = handlers.NewContentHandler(s.svc, s.orch, s.collector, logger)
	s.personaHandler = handlers.NewPersonaHandler(s.svc, logger)

	return s, nil
}

// txMaxRetries 事务重试上限，覆盖 Postgres 死锁与序列化冲突。
const txMaxRetries = 3

// newStore 创建 Store 并把事务路由到连接管理器的重试路径。
func newStore(db *database.Manager, logger *zap.Logger) *store.Store {
	return store.New(db.DB(), logger).WithTxRunner(func(ctx context.Context, fn func(tx *gorm.DB) error) error {
		return db.WithTransactionRetry(ctx, txMaxRetries, fn)
	})
}

// buildInferenceClient 按配置的模式装配推理客户端。
// mock 模式不创建上游 Provider，返回的 provider 为 nil。
func buildInferenceClient(cfg config.AIConfig, logger *zap.Logger) (inference.Client, llm.Provider) {
	if cfg.Mode == "mock" {
		logger.Info("AI mode: mock, no upstream provider")
		return inference.NewMockClient(), nil
	}

	table := llm.DefaultPriceTable()
	for model, p := range cfg.Pricing {
		table.Models[model] = llm.ModelPrice{Input: p.Input, Completion: p.Completion}
	}
	if cfg.PricingFallbackPerToken > 0 {
		table = table.WithFallback(cfg.PricingFallbackPerToken)
	}

	provider := openrouter.New(providers.OpenRouterConfig{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.FocusGroupModel,
		Referer:  cfg.Referer,
		AppTitle: cfg.AppTitle,
		Timeout:  cfg.Timeout,
	}, logger)

	live := inference.NewLiveClient(provider, cfg.FocusGroupModel, cfg.EditorModel,
		table, logger)

	if cfg.Mode == "live" {
		logger.Info("AI mode: live", zap.String("model", cfg.FocusGroupModel))
		return live, provider
	}

	logger.Info("AI mode: live-fallback", zap.String("model", cfg.FocusGroupModel))
	return inference.NewFallbackClient(live, inference.NewMockClient(), logger), provider
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动 HTTP 服务器
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// 内容迭代 API
	// ========================================
	mux.HandleFunc("POST /v1/content", s.contentHandler.HandleCreateContent)
	mux.HandleFunc("GET /v1/content", s.contentHandler.HandleListContent)
	mux.HandleFunc("GET /v1/content/{id}", s.contentHandler.HandleGetContent)
	mux.HandleFunc("DELETE /v1/content/{id}", s.contentHandler.HandleDeleteContent)
	mux.HandleFunc("GET /v1/content/{id}/history", s.contentHandler.HandleHistory)
	mux.HandleFunc("GET /v1/content/{id}/export", s.contentHandler.HandleExport)
	mux.HandleFunc("POST /v1/content/{id}/focus-group", s.contentHandler.HandleRunFocusGroup)
	mux.HandleFunc("POST /v1/content/{id}/editor", s.contentHandler.HandleRunEditor)
	mux.HandleFunc("POST /v1/content/{id}/review", s.contentHandler.HandleSubmitReview)
	mux.HandleFunc("POST /v1/content/{id}/orchestrate", s.contentHandler.HandleOrchestrate)

	// ========================================
	// 画像管理 API
	// ========================================
	mux.HandleFunc("GET /v1/personas", s.personaHandler.HandleListPersonas)
	mux.HandleFunc("POST /v1/personas", s.personaHandler.HandleCreatePersona)
	mux.HandleFunc("GET /v1/personas/{id}", s.personaHandler.HandleGetPersona)
	mux.HandleFunc("PUT /v1/personas/{id}", s.personaHandler.HandleUpdatePersona)
	mux.HandleFunc("DELETE /v1/personas/{id}", s.personaHandler.HandleDeletePersona)

	// ========================================
	// Prometheus 指标
	// ========================================
	if s.registry != nil {
		mux.Handle(s.cfg.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	// ========================================
	// 构建中间件链
	// ========================================
	bgCtx, bgCancel := context.WithCancel(context.Background())
	s.bgCancel = bgCancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RequestLogger(s.logger),
	}
	if s.collector != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.collector))
		go s.sampleDBStats(bgCtx)
	}
	if s.cfg.RateLimit.Enabled {
		middlewares = append(middlewares,
			RateLimiter(bgCtx, s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst, s.logger))
	}
	if s.cfg.Auth.Enabled {
		skipPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", s.cfg.Metrics.Path}
		middlewares = append(middlewares,
			APIKeyAuth(s.cfg.Auth.APIKeys, skipPaths, s.cfg.Auth.AllowQueryKey, s.logger))
	}
	handler := Chain(mux, middlewares...)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                      // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// sampleDBStats 周期性上报数据库连接池状态。
func (s *Server) sampleDBStats(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.dbManager.Stats()
			s.collector.RecordDBConnections(s.cfg.Database.Driver, stats.OpenConnections, stats.Idle)
		}
	}
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 1. 停止后台 goroutine
	if s.bgCancel != nil {
		s.bgCancel()
	}

	// 2. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭数据库
	if s.dbManager != nil {
		if err := s.dbManager.Close(); err != nil {
			s.logger.Error("Database shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
