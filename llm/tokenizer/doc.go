// Package tokenizer 估算提示词 token 数：OpenAI 模型用 tiktoken 精确计数，
// 其他模型按字符类别估算。
package tokenizer
