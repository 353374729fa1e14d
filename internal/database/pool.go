package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/quizflow/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrPoolClosed Close 之后的任何操作
var ErrPoolClosed = errors.New("pool is closed")

const (
	pingTimeout   = 5 * time.Second
	retryBaseWait = 100 * time.Millisecond
)

// StatsRecorder 接收连接池状态，由 metrics.Collector 实现
type StatsRecorder interface {
	RecordDBConnections(database string, open, idle int)
	RecordDBQuery(database, operation string, duration time.Duration)
}

// PoolConfig 连接池参数
type PoolConfig struct {
	Name                string        `yaml:"name" json:"name"` // 指标标签
	MaxIdleConns        int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	MaxOpenConns        int           `yaml:"max_open_conns" json:"max_open_conns"` // 0 不限制
	ConnMaxLifetime     time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime     time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"` // 0 不探活
}

// PoolConfigFromDatabase 以 config.DatabaseConfig 中的非零值覆盖默认参数
func PoolConfigFromDatabase(dc config.DatabaseConfig) PoolConfig {
	cfg := PoolConfig{
		Name:                dc.Driver,
		MaxIdleConns:        5,
		MaxOpenConns:        25,
		ConnMaxLifetime:     5 * time.Minute,
		ConnMaxIdleTime:     5 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
	}
	overridePositive(&cfg.MaxOpenConns, dc.MaxOpenConns)
	overridePositive(&cfg.MaxIdleConns, dc.MaxIdleConns)
	overridePositive(&cfg.ConnMaxLifetime, dc.ConnMaxLifetime)
	return cfg
}

func overridePositive[T int | time.Duration](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

func (c PoolConfig) Validate() error {
	switch {
	case c.MaxOpenConns < 0 || c.MaxIdleConns < 0:
		return errors.New("connection limits must not be negative")
	case c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns:
		return fmt.Errorf("max_idle_conns (%d) exceeds max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

func (c PoolConfig) apply(db *sql.DB) {
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetConnMaxLifetime(c.ConnMaxLifetime)
	db.SetConnMaxIdleTime(c.ConnMaxIdleTime)
}

// PoolOption 可选配置
type PoolOption func(*PoolManager)

// WithStatsRecorder 上报连接数与事务耗时
func WithStatsRecorder(r StatsRecorder) PoolOption {
	return func(pm *PoolManager) { pm.recorder = r }
}

// PoolManager 持有 gorm 句柄与底层连接池，为仓储提供带重试的事务
type PoolManager struct {
	db       *gorm.DB
	sqlDB    *sql.DB
	config   PoolConfig
	logger   *zap.Logger
	recorder StatsRecorder

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewPoolManager 应用连接池参数；HealthCheckInterval > 0 时启动后台探活
func NewPoolManager(db *gorm.DB, cfg PoolConfig, logger *zap.Logger, opts ...PoolOption) (*PoolManager, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	cfg.apply(sqlDB)

	if logger == nil {
		logger = zap.NewNop()
	}
	pm := &PoolManager{
		db:     db,
		sqlDB:  sqlDB,
		config: cfg,
		logger: logger.With(zap.String("component", "db_pool"), zap.String("database", cfg.Name)),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(pm)
	}

	if cfg.HealthCheckInterval > 0 {
		go pm.watch(cfg.HealthCheckInterval)
	}
	pm.logger.Info("database pool ready",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))
	return pm, nil
}

func (pm *PoolManager) DB() *gorm.DB {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.db
}

// Ping 实现 handlers.HealthCheck 所需的探活
func (pm *PoolManager) Ping(ctx context.Context) error {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if pm.closed {
		return ErrPoolClosed
	}
	return pm.sqlDB.PingContext(ctx)
}

func (pm *PoolManager) Stats() sql.DBStats {
	return pm.sqlDB.Stats()
}

// Close 可重复调用
func (pm *PoolManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil
	}
	pm.closed = true
	close(pm.done)
	pm.logger.Info("database pool closed")
	return pm.sqlDB.Close()
}

func (pm *PoolManager) watch(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-pm.done:
			return
		case <-ticker.C:
			pm.checkOnce()
		}
	}
}

// checkOnce 探活成功才上报连接数
func (pm *PoolManager) checkOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	err := pm.Ping(ctx)
	switch {
	case errors.Is(err, ErrPoolClosed):
		return
	case err != nil:
		pm.logger.Error("database ping failed", zap.Error(err))
		return
	}

	stats := pm.Stats()
	if pm.recorder != nil {
		pm.recorder.RecordDBConnections(pm.config.Name, stats.OpenConnections, stats.Idle)
	}
	pm.logger.Debug("database ping ok",
		zap.Int("open", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle))
}

// TransactionFunc 事务回调，返回错误即回滚
type TransactionFunc func(tx *gorm.DB) error

func (pm *PoolManager) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	pm.mu.RLock()
	closed, db := pm.closed, pm.db
	pm.mu.RUnlock()
	if closed {
		return ErrPoolClosed
	}

	start := time.Now()
	err := db.WithContext(ctx).Transaction(fn)
	if pm.recorder != nil {
		pm.recorder.RecordDBQuery(pm.config.Name, "transaction", time.Since(start))
	}
	return err
}

// WithTransactionRetry 瞬时错误（死锁、序列化冲突、断连、SQLITE_BUSY）按 100ms 起翻倍退避，最多 attempts 次
func (pm *PoolManager) WithTransactionRetry(ctx context.Context, attempts int, fn TransactionFunc) error {
	attempts = max(attempts, 1)
	wait := retryBaseWait

	var err error
	for i := 1; i <= attempts; i++ {
		if err = pm.WithTransaction(ctx, fn); err == nil || !isRetryableError(err) {
			return err
		}
		if i == attempts {
			break
		}
		pm.logger.Warn("transient transaction error",
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", attempts, err)
}

// transientMarkers 驱动错误文本中表示可重试的片段（小写）
var transientMarkers = []string{
	"deadlock",
	"serialization failure",
	"could not serialize",
	"40001",
	"connection reset",
	"connection refused",
	"broken pipe",
	"bad connection",
	"lock timeout",
	"lock wait timeout",
	"database is locked",
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
