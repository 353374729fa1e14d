package main

import (
	"fmt"

	"github.com/BaSui01/quizflow/config"
	"github.com/BaSui01/quizflow/llm"
	llmfactory "github.com/BaSui01/quizflow/llm/factory"
	"github.com/BaSui01/quizflow/llm/tokenizer"
	"github.com/BaSui01/quizflow/structured"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// newProvider 按配置创建 Provider 并挂载日志、超时、panic 恢复与指标中间件
func newProvider(cfg config.LLMConfig, recorder llm.RequestRecorder, logger *zap.Logger) (llm.Provider, error) {
	provider, err := llmfactory.NewProviderFromConfig(cfg.Provider, llmfactory.ProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Provider, err)
	}

	middlewares := []llm.Middleware{
		llm.RecoveryMiddleware(func(v any) {
			logger.Error("llm provider panic", zap.Any("panic", v))
		}),
		llm.LoggingMiddleware(logger),
	}
	if recorder != nil {
		middlewares = append(middlewares, llm.MetricsMiddleware(provider.Name(), recorder))
	}
	middlewares = append(middlewares, llm.TimeoutMiddleware(cfg.Timeout))
	return llm.Wrap(provider, middlewares...), nil
}

// newGenerator 创建结构化生成器，recorder 为 nil 时不记录指标
func newGenerator(provider llm.Provider, cfg config.LLMConfig, recorder structured.Recorder, logger *zap.Logger) (*structured.Generator, error) {
	opts := []structured.Option{
		structured.WithLogger(logger),
		structured.WithTracer(otel.Tracer("quizflow/structured")),
		structured.WithDefaults(structured.Defaults{
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
			MaxAttempts: cfg.MaxAttempts,
		}),
	}
	if recorder != nil {
		opts = append(opts, structured.WithRecorder(recorder))
	}
	if cfg.CountTokens {
		opts = append(opts, structured.WithTokenizer(tokenizer.ForModel))
	}
	return structured.NewGenerator(provider, opts...)
}
