package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/BaSui01/quizflow/config"
	"go.uber.org/zap"
)

// ErrServerClosed Shutdown 之后不能再次 Start
var ErrServerClosed = errors.New("server is closed")

// Config 单个监听端口的参数
type Config struct {
	Name            string        `yaml:"name" json:"name"` // 日志中区分 api / metrics
	Addr            string        `yaml:"addr" json:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"` // 需覆盖一次完整的生成重试循环
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" json:"max_header_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Name:            "api",
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    3 * time.Minute,
		IdleTimeout:     2 * time.Minute,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 15 * time.Second,
	}
}

// ConfigFromServer 端口取 port，超时取 sc 中的非零值
func ConfigFromServer(name string, sc config.ServerConfig, port int) Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Addr = ":" + strconv.Itoa(port)
	for dst, v := range map[*time.Duration]time.Duration{
		&cfg.ReadTimeout:     sc.ReadTimeout,
		&cfg.WriteTimeout:    sc.WriteTimeout,
		&cfg.ShutdownTimeout: sc.ShutdownTimeout,
	} {
		if v > 0 {
			*dst = v
		}
	}
	return cfg
}

// Manager 一个 http.Server 的启动、运行与优雅关闭
type Manager struct {
	srv    *http.Server
	cfg    Config
	logger *zap.Logger
	errs   chan error

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		srv: &http.Server{
			Addr:           cfg.Addr,
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    cfg.IdleTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		cfg:    cfg,
		logger: logger.With(zap.String("component", "http_server"), zap.String("server", cfg.Name)),
		errs:   make(chan error, 1),
	}
}

// Start 监听成功后立即返回，Serve 在后台运行，异常经 Errors 送出
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return ErrServerClosed
	case m.listener != nil:
		return fmt.Errorf("%s server already started", m.cfg.Name)
	}

	ln, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.cfg.Addr, err)
	}
	m.listener = ln
	m.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	go func() {
		err := m.srv.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		m.logger.Error("serve failed", zap.Error(err))
		select {
		case m.errs <- err:
		default:
		}
	}()
	return nil
}

// Run 阻塞到 ctx 结束或 Serve 异常，两种情况都会关闭服务器
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return m.Shutdown(context.WithoutCancel(ctx))
	case err := <-m.errs:
		_ = m.Shutdown(context.WithoutCancel(ctx))
		return fmt.Errorf("%s server exited: %w", m.cfg.Name, err)
	}
}

// Shutdown 在 ShutdownTimeout 内等待在途请求，重复调用为空操作
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		m.logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	m.logger.Info("stopped")
	return nil
}

func (m *Manager) Errors() <-chan error { return m.errs }

// ListenAddr 实际监听地址，未启动时为空
func (m *Manager) ListenAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}
