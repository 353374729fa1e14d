package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Handler 一次 Completion 调用
type Handler func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

// Middleware 包装 Handler
type Middleware func(next Handler) Handler

// Chain 第一个中间件在最外层
type Chain []Middleware

func (c Chain) Then(h Handler) Handler {
	for i := len(c) - 1; i >= 0; i-- {
		h = c[i](h)
	}
	return h
}

// Wrap 让 Completion 经过中间件链，HealthCheck 与 Name 原样委托
func Wrap(p Provider, middlewares ...Middleware) Provider {
	if len(middlewares) == 0 {
		return p
	}
	return &wrappedProvider{Provider: p, handler: Chain(middlewares).Then(p.Completion)}
}

type wrappedProvider struct {
	Provider
	handler Handler
}

func (w *wrappedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return w.handler(ctx, req)
}

// PanicError Provider 实现中恢复的 panic
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("provider panic: %v", e.Value) }

// RecoveryMiddleware 把 panic 转为 *PanicError，onPanic 可为 nil
func RecoveryMiddleware(onPanic func(any)) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *ChatRequest) (resp *ChatResponse, err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if onPanic != nil {
					onPanic(r)
				}
				resp, err = nil, &PanicError{Value: r}
			}()
			return next(ctx, req)
		}
	}
}

// LoggingMiddleware 成功记 debug，失败记 warn
func LoggingMiddleware(logger *zap.Logger) Middleware {
	logger = logger.With(zap.String("component", "llm_middleware"))
	return func(next Handler) Handler {
		return func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			fields := []zap.Field{zap.String("model", req.Model), zap.Duration("duration", time.Since(start))}
			if err != nil {
				logger.Warn("llm request failed", append(fields, zap.String("trace_id", req.TraceID), zap.Error(err))...)
				return resp, err
			}
			logger.Debug("llm request completed", append(fields,
				zap.Int("messages", len(req.Messages)),
				zap.Int("total_tokens", resp.Usage.TotalTokens))...)
			return resp, nil
		}
	}
}

// TimeoutMiddleware timeout <= 0 时不设截止时间
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next Handler) Handler {
		if timeout <= 0 {
			return next
		}
		return func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// RequestRecorder 接收每次调用的耗时与 token 用量，由 metrics.Collector 实现
type RequestRecorder interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int)
}

// MetricsMiddleware status 取 success、llm.Error 的错误码、canceled 或 error
func MetricsMiddleware(provider string, recorder RequestRecorder) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			var usage ChatUsage
			if resp != nil {
				usage = resp.Usage
			}
			recorder.RecordLLMRequest(provider, req.Model, requestStatus(err), time.Since(start), usage.PromptTokens, usage.CompletionTokens)
			return resp, err
		}
	}
}

func requestStatus(err error) string {
	var llmErr *Error
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &llmErr):
		return string(llmErr.Code)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}
