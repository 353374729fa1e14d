package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/quizflow/llm"
	"github.com/BaSui01/quizflow/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider(providers.OpenAIConfig{}, nil)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, defaultBaseURL, p.Cfg.BaseURL)
	assert.Equal(t, fallbackModel, p.Cfg.FallbackModel)
}

func TestOpenAIProvider_OrganizationHeader(t *testing.T) {
	var gotOrg, gotAuth, gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrg = r.Header.Get("OpenAI-Organization")
		gotAuth = r.Header.Get("Authorization")
		var body providers.OpenAICompatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
			Model: body.Model,
			Choices: []providers.OpenAICompatChoice{{
				Message: providers.OpenAICompatMessage{Role: "assistant", Content: "ok"},
			}},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider(providers.OpenAIConfig{
		BaseProviderConfig: providers.BaseProviderConfig{APIKey: "sk-test", BaseURL: server.URL},
		Organization:       "org-42",
	}, zap.NewNop())

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: llm.SystemUserMessages("s", "u")})
	require.NoError(t, err)
	assert.Equal(t, "org-42", gotOrg)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-3.5-turbo", gotModel)

	content, err := llm.FirstContent(resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
}

func TestOpenAIProvider_NoOrganizationHeader(t *testing.T) {
	var present bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["Openai-Organization"]
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{})
	}))
	defer server.Close()

	p := NewOpenAIProvider(providers.OpenAIConfig{
		BaseProviderConfig: providers.BaseProviderConfig{BaseURL: server.URL, Model: "gpt-4o-mini"},
	}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: llm.SystemUserMessages("s", "u")})
	require.NoError(t, err)
	assert.False(t, present)
}
