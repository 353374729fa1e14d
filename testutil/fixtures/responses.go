// Package fixtures 提供 ChatResponse 与典型的模型原始输出，供结构化抽取与出题测试使用。
package fixtures

import (
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/quizflow/llm"
)

// =============================================================================
// 🎯 ChatResponse 工厂
// =============================================================================

// SimpleResponse 单个候选、finish_reason 为 stop 的响应
func SimpleResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		ID:        "resp-001",
		Provider:  "mock",
		Model:     "gpt-3.5-turbo",
		Choices:   []llm.ChatChoice{{FinishReason: "stop", Message: llm.Message{Role: llm.RoleAssistant, Content: content}}},
		Usage:     llm.ChatUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		CreatedAt: time.Now(),
	}
}

// EmptyChoicesResponse 返回没有候选项的响应
func EmptyChoicesResponse() *llm.ChatResponse {
	resp := SimpleResponse("")
	resp.Choices = nil
	return resp
}

// =============================================================================
// 🧩 模型原始输出
// =============================================================================

// OpenEndedOutput 返回一道开放题的单引号风格输出
func OpenEndedOutput(question, answer string) string {
	return fmt.Sprintf("{'question': '%s', 'answer': '%s'}", question, answer)
}

// OpenEndedBatch 返回 n 道开放题组成的 JSON 列表
func OpenEndedBatch(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"question": "question %d", "answer": "answer %d"}`, i+1, i+1)
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// MCQBatch 返回 n 道选择题组成的 JSON 列表
func MCQBatch(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"question": "question %d", "answer": "right %d", "option1": "wrong a%d", "option2": "wrong b%d", "option3": "wrong c%d"}`,
			i+1, i+1, i+1, i+1, i+1)
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// CategoryOutput 返回分类输出
func CategoryOutput(category string) string {
	return fmt.Sprintf(`{"category": "%s"}`, category)
}

// MalformedOutput 返回无法解析的输出
func MalformedOutput() string {
	return "Sure! Here is your quiz: question one..."
}
