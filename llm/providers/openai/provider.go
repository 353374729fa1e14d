package openai

import (
	"github.com/BaSui01/quizflow/llm/providers"
	"github.com/BaSui01/quizflow/llm/providers/openaicompat"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.openai.com"
	fallbackModel  = "gpt-3.5-turbo"
)

// OpenAIProvider OpenAI 官方接口，只在兼容链路上补充 Organization header
type OpenAIProvider struct {
	*openaicompat.Provider
}

// NewOpenAIProvider 创建 OpenAI Provider，未指定模型时使用 gpt-3.5-turbo
func NewOpenAIProvider(cfg providers.OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	var headers map[string]string
	if cfg.Organization != "" {
		headers = map[string]string{"OpenAI-Organization": cfg.Organization}
	}

	return &OpenAIProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:  "openai",
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			DefaultModel:  cfg.Model,
			FallbackModel: fallbackModel,
			Timeout:       cfg.Timeout,
			ExtraHeaders:  headers,
		}, logger),
	}
}
