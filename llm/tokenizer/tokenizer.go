package tokenizer

import (
	"strings"
)

// Tokenizer 是统一的 token 计数接口.
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// CountMessages 返回消息列表的总 token 数，包括每条消息的角色与分隔开销。
	CountMessages(messages []Message) (int, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

// Message 是一个轻量级消息结构，避免与 llm 包的循环依赖。
type Message struct {
	Role    string
	Content string
}

// ForModel 返回适合该模型的分词器：OpenAI 家族使用 tiktoken，
// 其余模型使用字符估算器。tiktoken 编码表加载失败时同样回退到估算器。
func ForModel(model string) Tokenizer {
	if _, ok := lookupEncoding(model); ok || strings.HasPrefix(model, "gpt-") {
		return &fallbackTokenizer{
			primary:  NewTiktokenTokenizer(model),
			fallback: NewEstimatorTokenizer(model, 0),
		}
	}
	return NewEstimatorTokenizer(model, 0)
}

// fallbackTokenizer 优先使用 primary，出错时改用 fallback.
type fallbackTokenizer struct {
	primary  Tokenizer
	fallback Tokenizer
}

func (f *fallbackTokenizer) CountTokens(text string) (int, error) {
	if n, err := f.primary.CountTokens(text); err == nil {
		return n, nil
	}
	return f.fallback.CountTokens(text)
}

func (f *fallbackTokenizer) CountMessages(messages []Message) (int, error) {
	if n, err := f.primary.CountMessages(messages); err == nil {
		return n, nil
	}
	return f.fallback.CountMessages(messages)
}

func (f *fallbackTokenizer) MaxTokens() int { return f.primary.MaxTokens() }

func (f *fallbackTokenizer) Name() string { return f.primary.Name() }
