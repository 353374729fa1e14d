// =============================================================================
// QuizFlow OpenAI 兼容 Provider
// =============================================================================
// 所有 chat-completions 风格后端共用的请求链路。openai 与各预设
// （DeepSeek、Qwen、Kimi、Groq、Mistral）只提供名称、地址、模型与额外 header。
// =============================================================================

package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/quizflow/internal/tlsutil"
	"github.com/BaSui01/quizflow/llm"
	"github.com/BaSui01/quizflow/llm/providers"
	"go.uber.org/zap"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultEndpointPath   = "/v1/chat/completions"
	defaultModelsEndpoint = "/v1/models"
)

// Config OpenAI 兼容后端的配置
type Config struct {
	ProviderName string
	APIKey       string
	BaseURL      string

	// 模型选择顺序：请求 > DefaultModel > FallbackModel
	DefaultModel  string
	FallbackModel string

	// Timeout 默认 30s
	Timeout time.Duration

	// EndpointPath 默认 /v1/chat/completions
	EndpointPath string
	// ModelsEndpoint 供 HealthCheck 使用，默认 /v1/models
	ModelsEndpoint string

	// ExtraHeaders 在 Bearer 鉴权之外附加到每个请求
	ExtraHeaders map[string]string

	// RequestHook 在序列化前修改请求体
	RequestHook func(req *llm.ChatRequest, body *providers.OpenAICompatRequest)
}

// Provider OpenAI 兼容 Provider
type Provider struct {
	Cfg    Config
	Client *http.Client
	Logger *zap.Logger
}

// New 填充默认值并创建 Provider，logger 可为 nil
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = defaultEndpointPath
	}
	if cfg.ModelsEndpoint == "" {
		cfg.ModelsEndpoint = defaultModelsEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		Cfg:    cfg,
		Client: tlsutil.SecureHTTPClient(cfg.Timeout),
		Logger: logger.With(zap.String("component", "provider"), zap.String("provider", cfg.ProviderName)),
	}
}

func (p *Provider) Name() string { return p.Cfg.ProviderName }

func (p *Provider) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	url := strings.TrimRight(p.Cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(req, p.Cfg.APIKey)
	for k, v := range p.Cfg.ExtraHeaders {
		req.Header.Set(k, v)
	}
	return req, nil
}

// transportError 把网络层错误映射为可重试的上游错误
func (p *Provider) transportError(err error) *llm.Error {
	code := llm.ErrUpstreamError
	if errors.Is(err, context.DeadlineExceeded) {
		code = llm.ErrUpstreamTimeout
	}
	return &llm.Error{
		Code: code, Message: err.Error(),
		HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
	}
}

// HealthCheck 请求模型列表端点，非 200 视为不健康
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	req, err := p.newRequest(ctx, http.MethodGet, p.Cfg.ModelsEndpoint, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.Client.Do(req)
	status := &llm.HealthStatus{Latency: time.Since(start)}
	if err != nil {
		return status, err
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("%s health check failed: status=%d msg=%s",
			p.Name(), resp.StatusCode, providers.ReadErrorMessage(resp.Body))
	}
	status.Healthy = true
	return status, nil
}

// Completion 发起一次非流式补全
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, &llm.Error{
			Code: llm.ErrInvalidRequest, Message: "request has no messages",
			HTTPStatus: http.StatusBadRequest, Provider: p.Name(),
		}
	}

	body := providers.OpenAICompatRequest{
		Model:       providers.ChooseModel(req, p.Cfg.DefaultModel, p.Cfg.FallbackModel),
		Messages:    providers.ConvertMessagesToOpenAI(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	if p.Cfg.RequestHook != nil {
		p.Cfg.RequestHook(req, &body)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := p.newRequest(ctx, http.MethodPost, p.Cfg.EndpointPath, payload)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, p.transportError(err)
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, providers.MapHTTPError(resp.StatusCode, providers.ReadErrorMessage(resp.Body), p.Name())
	}

	var decoded providers.OpenAICompatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, p.transportError(fmt.Errorf("decode response: %w", err))
	}

	result := providers.ToLLMChatResponse(decoded, p.Name())
	p.Logger.Debug("completion finished",
		zap.String("model", body.Model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("total_tokens", result.Usage.TotalTokens))
	return result, nil
}
