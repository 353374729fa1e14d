package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/quizflow/llm"
	"github.com/BaSui01/quizflow/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// New() constructor
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		logger       *zap.Logger
		wantEndpoint string
		wantModels   string
	}{
		{
			name:         "all defaults applied",
			cfg:          Config{ProviderName: "test"},
			wantEndpoint: "/v1/chat/completions",
			wantModels:   "/v1/models",
		},
		{
			name: "custom endpoint paths preserved",
			cfg: Config{
				ProviderName:   "custom",
				EndpointPath:   "/api/chat",
				ModelsEndpoint: "/api/models",
			},
			logger:       zap.NewNop(),
			wantEndpoint: "/api/chat",
			wantModels:   "/api/models",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg, tt.logger)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantEndpoint, p.Cfg.EndpointPath)
			assert.Equal(t, tt.wantModels, p.Cfg.ModelsEndpoint)
			assert.Equal(t, tt.cfg.ProviderName, p.Name())
			assert.NotNil(t, p.Client)
			assert.NotNil(t, p.Logger)
		})
	}
}

func TestNew_Timeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, New(Config{ProviderName: "t"}, nil).Client.Timeout)
	assert.Equal(t, 10*time.Second, New(Config{ProviderName: "t", Timeout: 10 * time.Second}, nil).Client.Timeout)
}

func TestNewRequest_Headers(t *testing.T) {
	p := New(Config{
		ProviderName: "test",
		APIKey:       "key",
		BaseURL:      "http://upstream.local/",
		ExtraHeaders: map[string]string{"X-Custom": "v"},
	}, nil)

	req, err := p.newRequest(context.Background(), http.MethodGet, "/v1/models", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://upstream.local/v1/models", req.URL.String())
	assert.Equal(t, "Bearer key", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "v", req.Header.Get("X-Custom"))
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func TestProvider_Completion_Success(t *testing.T) {
	var captured providers.OpenAICompatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
			ID:    "resp-1",
			Model: captured.Model,
			Choices: []providers.OpenAICompatChoice{{
				Index: 0, FinishReason: "stop",
				Message: providers.OpenAICompatMessage{Role: "assistant", Content: `{"question":"q"}`},
			}},
			Usage:   &providers.OpenAICompatUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
			Created: 1700000000,
		})
	}))
	defer server.Close()

	p := New(Config{
		ProviderName:  "test",
		APIKey:        "test-key",
		BaseURL:       server.URL,
		FallbackModel: "gpt-3.5-turbo",
	}, zap.NewNop())

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages:    llm.SystemUserMessages("sys", "usr"),
		Temperature: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, float32(1), captured.Temperature)

	content, err := llm.FirstContent(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"question":"q"}`, content)
	assert.Equal(t, "test", resp.Provider)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
	assert.Equal(t, time.Unix(1700000000, 0), resp.CreatedAt)
}

func TestProvider_Completion_ZeroTemperatureOmitted(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{Model: "m"})
	}))
	defer server.Close()

	p := New(Config{ProviderName: "test", BaseURL: server.URL, DefaultModel: "m"}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: llm.SystemUserMessages("s", "u")})
	require.NoError(t, err)
	_, present := raw["temperature"]
	assert.False(t, present)
}

func TestProvider_Completion_HTTPError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  llm.ErrorCode
		wantRetry bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, llm.ErrUnauthorized, false},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow"}}`, llm.ErrRateLimited, true},
		{"server error", http.StatusInternalServerError, "boom", llm.ErrUpstreamError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := New(Config{ProviderName: "test", BaseURL: server.URL}, nil)
			_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: llm.SystemUserMessages("s", "u")})
			require.Error(t, err)

			var llmErr *llm.Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.wantCode, llmErr.Code)
			assert.Equal(t, tt.wantRetry, llmErr.Retryable)
			assert.Equal(t, "test", llmErr.Provider)
		})
	}
}

func TestProvider_Completion_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	p := New(Config{ProviderName: "test", BaseURL: server.URL}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: llm.SystemUserMessages("s", "u")})

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUpstreamError, llmErr.Code)
}

func TestProvider_Completion_NoMessages(t *testing.T) {
	p := New(Config{ProviderName: "test"}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{})

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrInvalidRequest, llmErr.Code)
}

func TestProvider_Completion_RequestHook(t *testing.T) {
	var captured providers.OpenAICompatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{Model: captured.Model})
	}))
	defer server.Close()

	p := New(Config{
		ProviderName: "test",
		BaseURL:      server.URL,
		DefaultModel: "base",
		RequestHook: func(req *llm.ChatRequest, body *providers.OpenAICompatRequest) {
			body.Model = "hooked"
		},
	}, nil)

	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: llm.SystemUserMessages("s", "u")})
	require.NoError(t, err)
	assert.Equal(t, "hooked", captured.Model)
}

func TestProvider_Completion_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Config{ProviderName: "test", BaseURL: server.URL}, nil)
	_, err := p.Completion(ctx, &llm.ChatRequest{Messages: llm.SystemUserMessages("s", "u")})
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// HealthCheck
// ---------------------------------------------------------------------------

func TestProvider_HealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer healthy.Close()

	status, err := New(Config{ProviderName: "ok", BaseURL: healthy.URL}, nil).HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	status, err = New(Config{ProviderName: "bad", BaseURL: broken.URL}, nil).HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
}
