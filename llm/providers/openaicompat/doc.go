// Package openaicompat provides a shared base implementation for every
// OpenAI-compatible chat completions backend.
//
// OpenAI, DeepSeek, Qwen, Kimi, Groq and Mistral share the same request and
// response format. Instead of duplicating HTTP handling, message conversion
// and error mapping per backend, they use openaicompat.Provider and only
// override what differs:
//
//   - Provider name and default model
//   - Base URL and endpoint path
//   - Custom headers (if any)
//   - Request hooks for provider-specific fields
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName:  "deepseek",
//	    APIKey:        cfg.APIKey,
//	    BaseURL:       "https://api.deepseek.com",
//	    EndpointPath:  "/chat/completions",
//	    FallbackModel: "deepseek-chat",
//	}, logger)
package openaicompat
