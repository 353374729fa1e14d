package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/BaSui01/quizflow/config"
	"github.com/BaSui01/quizflow/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrCacheMiss 键不存在或已过期
	ErrCacheMiss = errors.New("cache miss")
	// ErrClosed Close 之后的任何操作
	ErrClosed = errors.New("cache manager is closed")
)

const pingTimeout = 5 * time.Second

// Config Redis 连接与键空间配置
type Config struct {
	Addr                string        `yaml:"addr" json:"addr"`
	Password            string        `yaml:"password" json:"password"`
	DB                  int           `yaml:"db" json:"db"`
	KeyPrefix           string        `yaml:"key_prefix" json:"key_prefix"`
	DefaultTTL          time.Duration `yaml:"default_ttl" json:"default_ttl"`
	MaxRetries          int           `yaml:"max_retries" json:"max_retries"`
	PoolSize            int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConns        int           `yaml:"min_idle_conns" json:"min_idle_conns"`
	TLS                 bool          `yaml:"tls" json:"tls"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"` // 0 不探活
}

// DefaultConfig 本地 Redis，题目缓存 10 分钟
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		KeyPrefix:           "quizflow:",
		DefaultTTL:          10 * time.Minute,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// FromRedisConfig 零值字段保留默认值
func FromRedisConfig(rc config.RedisConfig) Config {
	cfg := DefaultConfig()
	cfg.Addr, cfg.Password, cfg.DB, cfg.TLS = rc.Addr, rc.Password, rc.DB, rc.TLS
	if rc.PoolSize > 0 {
		cfg.PoolSize = rc.PoolSize
	}
	if rc.MinIdleConns > 0 {
		cfg.MinIdleConns = rc.MinIdleConns
	}
	if rc.TTL > 0 {
		cfg.DefaultTTL = rc.TTL
	}
	return cfg
}

func (c Config) redisOptions() *redis.Options {
	opts := &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		MaxRetries:   c.MaxRetries,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
	if c.TLS {
		opts.TLSConfig = tlsutil.RedisTLSConfig(hostOf(c.Addr))
	}
	return opts
}

// Manager 带键前缀的 Redis 读写封装
type Manager struct {
	client *redis.Client
	config Config
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewManager 连接失败时返回错误，不会留下后台 goroutine
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	client := redis.NewClient(cfg.redisOptions())

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	m := &Manager{
		client: client,
		config: cfg,
		logger: logger.With(zap.String("component", "cache")),
		done:   make(chan struct{}),
	}
	if cfg.HealthCheckInterval > 0 {
		go m.watch(cfg.HealthCheckInterval)
	}
	m.logger.Info("redis cache connected",
		zap.String("addr", cfg.Addr),
		zap.Bool("tls", cfg.TLS))
	return m, nil
}

// do 在读锁下执行，已关闭时返回 ErrClosed
func (m *Manager) do(fn func(*redis.Client) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return fn(m.client)
}

// Get 未命中返回 ErrCacheMiss
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := m.do(func(c *redis.Client) error {
		var err error
		val, err = c.Get(ctx, m.config.KeyPrefix+key).Result()
		return err
	})
	switch {
	case err == nil:
		return val, nil
	case errors.Is(err, redis.Nil):
		return "", ErrCacheMiss
	case errors.Is(err, ErrClosed):
		return "", err
	}
	m.logger.Warn("redis GET failed", zap.String("key", key), zap.Error(err))
	return "", fmt.Errorf("cache get %q: %w", key, err)
}

// Set ttl 为 0 时使用 DefaultTTL
func (m *Manager) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}
	err := m.do(func(c *redis.Client) error {
		return c.Set(ctx, m.config.KeyPrefix+key, value, ttl).Err()
	})
	if err != nil && !errors.Is(err, ErrClosed) {
		m.logger.Warn("redis SET failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return err
}

func (m *Manager) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("decode cached %q: %w", key, err)
	}
	return nil
}

func (m *Manager) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q for cache: %w", key, err)
	}
	return m.Set(ctx, key, string(data), ttl)
}

// Delete 不存在的键忽略
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	return m.do(func(c *redis.Client) error {
		if len(keys) == 0 {
			return nil
		}
		full := make([]string, 0, len(keys))
		for _, k := range keys {
			full = append(full, m.config.KeyPrefix+k)
		}
		if err := c.Del(ctx, full...).Err(); err != nil {
			m.logger.Warn("redis DEL failed", zap.Strings("keys", keys), zap.Error(err))
			return fmt.Errorf("cache delete: %w", err)
		}
		return nil
	})
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.do(func(c *redis.Client) error { return c.Ping(ctx).Err() })
}

// Close 可重复调用
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.logger.Info("redis cache closed")
	return m.client.Close()
}

func (m *Manager) watch(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err := m.Ping(ctx)
		cancel()
		if errors.Is(err, ErrClosed) {
			return
		}
		if err != nil {
			m.logger.Error("redis ping failed", zap.Error(err))
		}
	}
}

func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// hostOf 取 TLS SNI 主机名
func hostOf(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
