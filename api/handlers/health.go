package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// readyTimeout 所有就绪检查共享的超时
const readyTimeout = 5 * time.Second

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthCheck 就绪检查的一个依赖项
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus /health 与 /ready 的响应体
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult Status 为 pass 或 fail
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthHandler 存活、就绪与版本探针
type HealthHandler struct {
	logger  *zap.Logger
	version string

	mu     sync.RWMutex
	checks []HealthCheck
}

func NewHealthHandler(version string, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger:  logger.With(zap.String("component", "health")),
		version: version,
	}
}

func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	h.checks = append(h.checks, check)
	h.mu.Unlock()
}

func (h *HealthHandler) Register(mux *http.ServeMux) {
	for _, p := range []string{"/health", "/healthz"} {
		mux.HandleFunc("GET "+p, h.HandleHealth)
	}
	for _, p := range []string{"/ready", "/readyz"} {
		mux.HandleFunc("GET "+p, h.HandleReady)
	}
	mux.HandleFunc("GET /version", h.HandleVersion)
}

// HandleHealth 存活探针，不触达任何依赖
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{Status: statusHealthy, Timestamp: time.Now(), Version: h.version})
}

// HandleReady 并发执行全部检查，任一失败返回 503
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	results := h.runChecks(r.Context(), checks)

	status := HealthStatus{Status: statusHealthy, Timestamp: time.Now(), Version: h.version, Checks: results}
	code := http.StatusOK
	for _, res := range results {
		if res.Status != "pass" {
			status.Status, code = statusUnhealthy, http.StatusServiceUnavailable
			break
		}
	}
	WriteJSON(w, code, status)
}

func (h *HealthHandler) runChecks(parent context.Context, checks []HealthCheck) map[string]CheckResult {
	ctx, cancel := context.WithTimeout(parent, readyTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(checks))
		g       errgroup.Group
	)
	for _, c := range checks {
		g.Go(func() error {
			start := time.Now()
			err := c.Check(ctx)
			res := CheckResult{Status: "pass", Latency: time.Since(start).String()}
			if err != nil {
				res.Status, res.Message = "fail", err.Error()
				h.logger.Warn("readiness check failed", zap.String("check", c.Name()), zap.Error(err))
			}
			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (h *HealthHandler) HandleVersion(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, map[string]string{"version": h.version})
}

// PingCheck 把 Ping 方法（数据库、Redis）适配为 HealthCheck
type PingCheck struct {
	name string
	ping func(ctx context.Context) error
}

func NewPingCheck(name string, ping func(ctx context.Context) error) *PingCheck {
	return &PingCheck{name: name, ping: ping}
}

func (c *PingCheck) Name() string { return c.name }

func (c *PingCheck) Check(ctx context.Context) error { return c.ping(ctx) }
