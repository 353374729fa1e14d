package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/quizflow/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := Config{
		Addr:       mr.Addr(),
		KeyPrefix:  "test:",
		DefaultTTL: time.Minute,
	}

	manager, err := NewManager(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	return mr, manager
}

func TestManager_SetAndGet(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "key", "value", time.Minute))

	value, err := manager.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	// 键带有前缀
	assert.True(t, mr.Exists("test:key"))
	assert.False(t, mr.Exists("key"))
}

func TestManager_GetMiss(t *testing.T) {
	_, manager := setupTestRedis(t)

	value, err := manager.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.True(t, IsCacheMiss(err))
	assert.Empty(t, value)
}

func TestManager_DefaultTTL(t *testing.T) {
	mr, manager := setupTestRedis(t)

	require.NoError(t, manager.Set(context.Background(), "k", "v", 0))
	assert.Equal(t, time.Minute, mr.TTL("test:k"))
}

func TestManager_TTLExpiry(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "ttl", "value", 100*time.Millisecond))
	_, err := manager.Get(ctx, "ttl")
	require.NoError(t, err)

	mr.FastForward(200 * time.Millisecond)

	_, err = manager.Get(ctx, "ttl")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManager_Delete(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "a", "1", 0))
	require.NoError(t, manager.Set(ctx, "b", "2", 0))
	require.NoError(t, manager.Delete(ctx, "a", "b"))
	require.NoError(t, manager.Delete(ctx))

	_, err := manager.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = manager.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManager_JSON(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	type question struct {
		ID     string   `json:"id"`
		Answer string   `json:"answer"`
		Opts   []string `json:"opts"`
	}
	in := question{ID: "q1", Answer: "Paris", Opts: []string{"Paris", "Rome"}}

	require.NoError(t, manager.SetJSON(ctx, "q1", in, 0))

	var out question
	require.NoError(t, manager.GetJSON(ctx, "q1", &out))
	assert.Equal(t, in, out)

	var missing question
	assert.ErrorIs(t, manager.GetJSON(ctx, "nope", &missing), ErrCacheMiss)
}

func TestManager_JSONErrors(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	assert.Error(t, manager.SetJSON(ctx, "bad", make(chan int), 0))

	require.NoError(t, manager.Set(ctx, "not-json", "not a json", 0))
	var out map[string]any
	err := manager.GetJSON(ctx, "not-json", &out)
	require.Error(t, err)
	assert.False(t, IsCacheMiss(err))
}

func TestManager_Closed(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	_, err := manager.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, manager.Set(ctx, "k", "v", 0), ErrClosed)
	assert.ErrorIs(t, manager.Delete(ctx, "k"), ErrClosed)
	assert.ErrorIs(t, manager.Ping(ctx), ErrClosed)
}

func TestManager_Ping(t *testing.T) {
	_, manager := setupTestRedis(t)
	assert.NoError(t, manager.Ping(context.Background()))
}

func TestNewManager_ConnectionFailed(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	manager, err := NewManager(Config{Addr: addr}, zap.NewNop())
	assert.Nil(t, manager)
	assert.Error(t, err)
}

func TestNewManager_HealthCheckLoopStops(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := Config{Addr: mr.Addr(), HealthCheckInterval: 10 * time.Millisecond}
	manager, err := NewManager(cfg, zap.NewNop())
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, manager.Close())
}

func TestFromRedisConfig(t *testing.T) {
	rc := config.DefaultRedisConfig()
	rc.Addr = "cache.internal:6380"
	rc.DB = 2
	rc.TTL = 30 * time.Second
	rc.TLS = true

	cfg := FromRedisConfig(rc)
	assert.Equal(t, "cache.internal:6380", cfg.Addr)
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, 30*time.Second, cfg.DefaultTTL)
	assert.True(t, cfg.TLS)
	assert.Equal(t, "quizflow:", cfg.KeyPrefix)

	// 零值保留默认
	cfg = FromRedisConfig(config.RedisConfig{Addr: "x:1"})
	assert.Equal(t, 10*time.Minute, cfg.DefaultTTL)
	assert.Equal(t, 10, cfg.PoolSize)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "redis.example.com", hostOf("redis.example.com:6379"))
	assert.Equal(t, "::1", hostOf("[::1]:6379"))
	assert.Equal(t, "bare", hostOf("bare"))
}

func TestManager_ConcurrentOperations(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("concurrent-%d", id)
			assert.NoError(t, manager.Set(ctx, key, "value", time.Minute))
			value, err := manager.Get(ctx, key)
			assert.NoError(t, err)
			assert.Equal(t, "value", value)
		}(i)
	}
	wg.Wait()
}
