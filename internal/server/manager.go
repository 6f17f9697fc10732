package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Config HTTP 服务器参数。
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// Manager 封装 http.Server 的启动与关闭。
// Start 之后由 WaitForShutdown 把控进程存活：
// 收到 SIGINT/SIGTERM 或服务意外退出时触发优雅关闭。
type Manager struct {
	server *http.Server
	config Config
	logger *zap.Logger
	errCh  chan error

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

// NewManager 创建服务器管理器。
func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		server: &http.Server{
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    cfg.IdleTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		config: cfg,
		logger: logger.With(zap.String("component", "http_server")),
		errCh:  make(chan error, 1),
	}
}

// Start 绑定监听地址并在后台开始服务，立即返回。
// Addr 配置为 ":0" 时实际端口通过 Addr() 获取。
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("server is closed")
	}
	if m.listener != nil {
		return fmt.Errorf("server already started on %s", m.listener.Addr())
	}

	ln, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.config.Addr, err)
	}
	m.listener = ln
	m.logger.Info("HTTP 服务启动", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("HTTP 服务异常退出", zap.Error(err))
			select {
			case m.errCh <- err:
			default:
			}
		}
	}()
	return nil
}

// Shutdown 在配置的超时内优雅关闭，重复调用是空操作。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.listener = nil
	m.logger.Info("HTTP 服务关闭中")

	shutdownCtx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
	defer cancel()

	if err := m.server.Shutdown(shutdownCtx); err != nil {
		m.logger.Error("HTTP 服务关闭失败", zap.Error(err))
		return err
	}
	m.logger.Info("HTTP 服务已停止")
	return nil
}

// WaitForShutdown 阻塞至收到终止信号或服务异常退出，然后关闭服务器。
func (m *Manager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		m.logger.Info("收到终止信号", zap.String("signal", sig.String()))
	case err := <-m.errCh:
		if err != nil {
			m.logger.Error("服务异常退出，触发关闭", zap.Error(err))
		}
	}

	if err := m.Shutdown(context.Background()); err != nil {
		m.logger.Error("关闭出错", zap.Error(err))
	}
}

// Addr 返回实际监听地址，未启动时返回配置地址。
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.config.Addr
}

// IsRunning 返回服务器是否尚未关闭。
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}
