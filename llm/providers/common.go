package providers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/quizflow/llm"
	"github.com/tidwall/gjson"
)

// statusCodes HTTP 状态码到错误码与可重试性的映射，529 为部分服务商的过载状态
var statusCodes = map[int]struct {
	code      llm.ErrorCode
	retryable bool
}{
	http.StatusUnauthorized:       {llm.ErrUnauthorized, false},
	http.StatusForbidden:          {llm.ErrForbidden, false},
	http.StatusTooManyRequests:    {llm.ErrRateLimited, true},
	http.StatusRequestTimeout:     {llm.ErrUpstreamTimeout, true},
	http.StatusGatewayTimeout:     {llm.ErrUpstreamTimeout, true},
	http.StatusBadGateway:         {llm.ErrUpstreamError, true},
	http.StatusServiceUnavailable: {llm.ErrUpstreamError, true},
	529:                           {llm.ErrModelOverloaded, true},
}

// quotaHints 400 响应中出现这些词时视为额度不足
var quotaHints = []string{"quota", "credit", "limit"}

// MapHTTPError 将上游 HTTP 状态映射为 llm.Error
func MapHTTPError(status int, msg string, provider string) *llm.Error {
	e := &llm.Error{Message: msg, HTTPStatus: status, Provider: provider}
	if m, ok := statusCodes[status]; ok {
		e.Code, e.Retryable = m.code, m.retryable
		return e
	}
	if status == http.StatusBadRequest {
		e.Code = llm.ErrInvalidRequest
		lower := strings.ToLower(msg)
		for _, hint := range quotaHints {
			if strings.Contains(lower, hint) {
				e.Code = llm.ErrQuotaExceeded
				break
			}
		}
		return e
	}
	e.Code = llm.ErrUpstreamError
	e.Retryable = status >= http.StatusInternalServerError
	return e
}

// ReadErrorMessage 提取错误响应中的消息，兼容
// {"error":{"message","type"}}、{"error":"..."} 与 {"message":"..."}，
// 都不匹配时返回原始文本
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}
	if !gjson.ValidBytes(data) {
		return string(data)
	}

	errField := gjson.GetBytes(data, "error")
	if errField.Type == gjson.String && errField.Str != "" {
		return errField.Str
	}
	if msg := errField.Get("message").String(); msg != "" {
		if typ := errField.Get("type").String(); typ != "" {
			return msg + " (type: " + typ + ")"
		}
		return msg
	}
	if msg := gjson.GetBytes(data, "message").String(); msg != "" {
		return msg
	}
	return string(data)
}

// OpenAI 兼容 API 的请求与响应结构，OpenAI、DeepSeek、Qwen、Kimi、Groq 等共用。

type OpenAICompatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Name    string `json:"name,omitempty"`
}

type OpenAICompatRequest struct {
	Model       string                `json:"model"`
	Messages    []OpenAICompatMessage `json:"messages"`
	MaxTokens   int                   `json:"max_tokens,omitempty"`
	Temperature float32               `json:"temperature,omitempty"`
	TopP        float32               `json:"top_p,omitempty"`
	Stop        []string              `json:"stop,omitempty"`
}

type OpenAICompatChoice struct {
	Index        int                 `json:"index"`
	FinishReason string              `json:"finish_reason"`
	Message      OpenAICompatMessage `json:"message"`
}

type OpenAICompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type OpenAICompatResponse struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Choices []OpenAICompatChoice `json:"choices"`
	Usage   *OpenAICompatUsage   `json:"usage,omitempty"`
	Created int64                `json:"created,omitempty"`
}

// ConvertMessagesToOpenAI 转换为 OpenAI 消息格式
func ConvertMessagesToOpenAI(msgs []llm.Message) []OpenAICompatMessage {
	out := make([]OpenAICompatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = OpenAICompatMessage{Role: string(m.Role), Content: m.Content, Name: m.Name}
	}
	return out
}

// ToLLMChatResponse 转换为 llm.ChatResponse，候选消息的角色统一为 assistant
func ToLLMChatResponse(oa OpenAICompatResponse, provider string) *llm.ChatResponse {
	resp := &llm.ChatResponse{
		ID:       oa.ID,
		Provider: provider,
		Model:    oa.Model,
		Choices:  make([]llm.ChatChoice, len(oa.Choices)),
	}
	for i, c := range oa.Choices {
		resp.Choices[i] = llm.ChatChoice{
			Index:        c.Index,
			FinishReason: c.FinishReason,
			Message:      llm.Message{Role: llm.RoleAssistant, Content: c.Message.Content, Name: c.Message.Name},
		}
	}
	if u := oa.Usage; u != nil {
		resp.Usage = llm.ChatUsage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	if oa.Created != 0 {
		resp.CreatedAt = time.Unix(oa.Created, 0)
	}
	return resp
}

// ChooseModel 按 请求 > 默认 > 兜底 选择模型
func ChooseModel(req *llm.ChatRequest, defaultModel, fallbackModel string) string {
	switch {
	case req != nil && req.Model != "":
		return req.Model
	case defaultModel != "":
		return defaultModel
	}
	return fallbackModel
}

// BearerTokenHeaders 设置 Bearer 鉴权与 JSON Content-Type
func BearerTokenHeaders(r *http.Request, apiKey string) {
	r.Header.Set("Authorization", "Bearer "+apiKey)
	r.Header.Set("Content-Type", "application/json")
}

// SafeCloseBody 关闭响应体并忽略错误
func SafeCloseBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
