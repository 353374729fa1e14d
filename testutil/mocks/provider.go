// Package mocks 提供 llm.Provider 的测试替身。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/quizflow/llm"
)

// ScriptStep 第 N 次调用返回的内容或错误
type ScriptStep struct {
	Content string
	Err     error
}

// Call 一次 Completion 调用的请求与结果
type Call struct {
	Request  *llm.ChatRequest
	Response *llm.ChatResponse
	Error    error
}

// CompletionFunc 完全接管 Completion
type CompletionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

// MockProvider 按脚本回放模型输出并记录每次请求。
// 脚本用尽后重复最后一步；未设置脚本时返回固定文本。
type MockProvider struct {
	mu     sync.Mutex
	script []ScriptStep
	delay  time.Duration
	fn     CompletionFunc
	calls  []Call
}

func NewMockProvider() *MockProvider {
	return &MockProvider{script: []ScriptStep{{Content: "Mock response"}}}
}

// NewSuccessProvider 每次都返回 content
func NewSuccessProvider(content string) *MockProvider {
	return NewMockProvider().WithScript(ScriptStep{Content: content})
}

// NewScriptedProvider 依次返回 contents
func NewScriptedProvider(contents ...string) *MockProvider {
	steps := make([]ScriptStep, 0, len(contents))
	for _, c := range contents {
		steps = append(steps, ScriptStep{Content: c})
	}
	return NewMockProvider().WithScript(steps...)
}

func (m *MockProvider) WithScript(steps ...ScriptStep) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(steps) > 0 {
		m.script = append([]ScriptStep(nil), steps...)
	}
	return m
}

// WithDelay 每次调用前等待 d，期间响应 ctx 取消
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

func (m *MockProvider) WithCompletionFunc(fn CompletionFunc) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	return m
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true, Latency: 10 * time.Millisecond}, nil
}

func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	n := len(m.calls)
	m.calls = append(m.calls, Call{Request: req})
	step := m.script[min(n, len(m.script)-1)]
	delay, fn := m.delay, m.fn
	m.mu.Unlock()

	resp, err := m.respond(ctx, req, step, delay, fn)

	m.mu.Lock()
	m.calls[n].Response, m.calls[n].Error = resp, err
	m.mu.Unlock()
	return resp, err
}

func (m *MockProvider) respond(ctx context.Context, req *llm.ChatRequest, step ScriptStep, delay time.Duration, fn CompletionFunc) (*llm.ChatResponse, error) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if fn != nil {
		return fn(ctx, req)
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return &llm.ChatResponse{
		ID:       "mock-response-id",
		Provider: "mock",
		Model:    req.Model,
		Choices: []llm.ChatChoice{{
			FinishReason: "stop",
			Message:      llm.Message{Role: llm.RoleAssistant, Content: step.Content},
		}},
		Usage:     llm.ChatUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		CreatedAt: time.Now(),
	}, nil
}

func (m *MockProvider) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// GetLastCall 尚无调用时返回 nil
func (m *MockProvider) GetLastCall() *Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	c := m.calls[len(m.calls)-1]
	return &c
}

// SystemPrompts 每次请求的 system 消息，按调用顺序
func (m *MockProvider) SystemPrompts() []string { return m.contents(llm.RoleSystem) }

// UserPrompts 每次请求的 user 消息，按调用顺序
func (m *MockProvider) UserPrompts() []string { return m.contents(llm.RoleUser) }

func (m *MockProvider) contents(role llm.Role) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		for _, msg := range c.Request.Messages {
			if msg.Role == role {
				out = append(out, msg.Content)
				break
			}
		}
	}
	return out
}
