package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BaSui01/quizflow/api/handlers"
	"github.com/BaSui01/quizflow/config"
	"github.com/BaSui01/quizflow/internal/cache"
	"github.com/BaSui01/quizflow/internal/database"
	"github.com/BaSui01/quizflow/internal/metrics"
	"github.com/BaSui01/quizflow/internal/migration"
	"github.com/BaSui01/quizflow/internal/server"
	"github.com/BaSui01/quizflow/internal/telemetry"
	"github.com/BaSui01/quizflow/quiz"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// publicPaths 不经过 JWT 鉴权的路径
var publicPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version"}

// =============================================================================
// 🖥️ 服务启动
// =============================================================================

// serve 组装依赖并运行 API 与 Metrics 两个服务器，直到收到退出信号
func serve(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector("quizflow", logger)

	// 1. 数据库
	if cfg.Database.AutoMigrate {
		v, err := migration.UpFromConfig(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("database migrated", zap.Uint("version", v))
	}
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	pool, err := database.NewPoolManager(db, database.PoolConfigFromDatabase(cfg.Database), logger,
		database.WithStatsRecorder(collector))
	if err != nil {
		return err
	}
	defer pool.Close()

	// 2. 存储与缓存
	var store quiz.Store = quiz.NewGormRepository(pool)
	health := handlers.NewHealthHandler(version(), logger)
	health.RegisterCheck(handlers.NewPingCheck("database", pool.Ping))

	if cfg.Redis.Enabled {
		cm, err := cache.NewManager(cache.FromRedisConfig(cfg.Redis), logger)
		if err != nil {
			logger.Warn("redis unavailable, question cache disabled", zap.Error(err))
		} else {
			defer cm.Close()
			store = quiz.NewCachedStore(store, cm, cfg.Redis.TTL, collector, logger)
			health.RegisterCheck(handlers.NewPingCheck("redis", cm.Ping))
		}
	}

	// 3. LLM 与结构化生成
	provider, err := newProvider(cfg.LLM, collector, logger)
	if err != nil {
		return err
	}
	gen, err := newGenerator(provider, cfg.LLM, collector, logger)
	if err != nil {
		return err
	}
	svc := quiz.NewService(store, gen,
		quiz.WithLogger(logger),
		quiz.WithRecorder(collector),
		quiz.WithVerbose(cfg.LLM.Verbose),
	)

	// 4. HTTP
	mux := http.NewServeMux()
	health.Register(mux)
	handlers.NewQuizHandler(svc, logger).Register(mux)

	rateCtx, cancelRate := context.WithCancel(ctx)
	defer cancelRate()

	middlewares := []Middleware{
		Recovery(logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(logger),
		OTelTracing(),
		MetricsMiddleware(collector),
		RateLimiter(rateCtx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		CORS(cfg.Server.CORSAllowedOrigins),
	}
	if cfg.JWT.Enabled {
		middlewares = append(middlewares, JWTAuth(cfg.JWT, publicPaths, logger))
	}

	api := server.NewManager(Chain(mux, middlewares...),
		server.ConfigFromServer("api", cfg.Server, cfg.Server.HTTPPort), logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.Handler())
	metricsServer := server.NewManager(metricsMux,
		server.ConfigFromServer("metrics", cfg.Server, cfg.Server.MetricsPort), logger)

	logger.Info("QuizFlow ready",
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.Int("metrics_port", cfg.Server.MetricsPort),
		zap.String("llm_provider", provider.Name()),
		zap.Bool("cache", cfg.Redis.Enabled),
		zap.Bool("jwt", cfg.JWT.Enabled),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.Run(gctx) })
	g.Go(func() error { return metricsServer.Run(gctx) })
	return g.Wait()
}
