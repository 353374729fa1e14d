package providers

import "time"

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// OpenAIConfig OpenAI Provider 配置
type OpenAIConfig struct {
	BaseProviderConfig `yaml:",inline"`
	Organization       string `json:"organization,omitempty" yaml:"organization,omitempty"`
}

// CompatPreset 描述内置 OpenAI 兼容服务商的默认 BaseURL、兜底模型与端点路径。
type CompatPreset struct {
	BaseURL       string
	FallbackModel string
	EndpointPath  string
}

// CompatPresets 列出无需额外代码即可接入的 OpenAI 兼容服务商。
var CompatPresets = map[string]CompatPreset{
	"deepseek": {BaseURL: "https://api.deepseek.com", FallbackModel: "deepseek-chat", EndpointPath: "/chat/completions"},
	"qwen":     {BaseURL: "https://dashscope.aliyuncs.com/compatible-mode", FallbackModel: "qwen-plus", EndpointPath: "/v1/chat/completions"},
	"kimi":     {BaseURL: "https://api.moonshot.cn", FallbackModel: "moonshot-v1-8k", EndpointPath: "/v1/chat/completions"},
	"groq":     {BaseURL: "https://api.groq.com/openai", FallbackModel: "llama-3.1-8b-instant", EndpointPath: "/v1/chat/completions"},
	"mistral":  {BaseURL: "https://api.mistral.ai", FallbackModel: "mistral-small-latest", EndpointPath: "/v1/chat/completions"},
}
