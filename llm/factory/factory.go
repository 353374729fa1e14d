// Package factory creates LLM Provider instances by name. It maps string
// names to the openai provider, the built-in OpenAI-compatible presets, or a
// generic OpenAI-compatible backend when a base_url is supplied.
package factory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/quizflow/llm"
	"github.com/BaSui01/quizflow/llm/providers"
	"github.com/BaSui01/quizflow/llm/providers/openai"
	"github.com/BaSui01/quizflow/llm/providers/openaicompat"
	"go.uber.org/zap"
)

// ProviderConfig is the generic configuration accepted by the factory function.
// It uses a flat structure with an Extra map for provider-specific fields.
type ProviderConfig struct {
	APIKey  string         `json:"api_key" yaml:"api_key"`
	BaseURL string         `json:"base_url" yaml:"base_url"`
	Model   string         `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Extra   map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func (c ProviderConfig) extraString(key string) string {
	if c.Extra == nil {
		return ""
	}
	v, _ := c.Extra[key].(string)
	return v
}

// NewProviderFromConfig creates a Provider instance based on the provider name
// and a generic ProviderConfig.
//
// Supported names: openai plus every key of providers.CompatPresets. Any
// other name is treated as a generic OpenAI-compatible backend and requires
// base_url.
func NewProviderFromConfig(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	name = strings.ToLower(strings.TrimSpace(name))

	if name == "openai" {
		return openai.NewOpenAIProvider(providers.OpenAIConfig{
			BaseProviderConfig: providers.BaseProviderConfig{
				APIKey:  cfg.APIKey,
				BaseURL: cfg.BaseURL,
				Model:   cfg.Model,
				Timeout: cfg.Timeout,
			},
			Organization: cfg.extraString("organization"),
		}, logger), nil
	}

	oc := openaicompat.Config{
		ProviderName: name,
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		DefaultModel: cfg.Model,
		Timeout:      cfg.Timeout,
		EndpointPath: cfg.extraString("endpoint_path"),
	}

	if preset, ok := providers.CompatPresets[name]; ok {
		if oc.BaseURL == "" {
			oc.BaseURL = preset.BaseURL
		}
		if oc.EndpointPath == "" {
			oc.EndpointPath = preset.EndpointPath
		}
		oc.FallbackModel = preset.FallbackModel
		return openaicompat.New(oc, logger), nil
	}

	// 通用 OpenAI 兼容提供商：任意名称 + base_url 即可接入（Ollama、vLLM、OpenRouter 等）
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("unknown provider %q: built-in provider not found, and base_url is required for generic OpenAI-compatible provider", name)
	}
	logger.Info("creating generic OpenAI-compatible provider",
		zap.String("provider", name),
		zap.String("base_url", cfg.BaseURL))
	return openaicompat.New(oc, logger), nil
}

// SupportedProviders returns the list of built-in provider names.
func SupportedProviders() []string {
	names := []string{"openai"}
	presets := make([]string, 0, len(providers.CompatPresets))
	for name := range providers.CompatPresets {
		presets = append(presets, name)
	}
	sort.Strings(presets)
	return append(names, presets...)
}
