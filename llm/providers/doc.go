/*
# 概述

包 providers 提供跨模型服务商的通用适配能力，是具体 Provider 实现的
公共基础层。openaicompat 与 openai 子包依赖本包完成请求/响应转换与
错误映射。

# 核心类型

  - BaseProviderConfig — 所有 Provider 共享的基础配置（APIKey、BaseURL、Model、Timeout）
  - OpenAICompat* 系列 — OpenAI 兼容 API 的通用请求/响应结构体
  - CompatPresets — 内置兼容服务商（deepseek、qwen、kimi、groq、mistral）

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - ReadErrorMessage — 解析上游错误响应体
  - ConvertMessagesToOpenAI — 统一消息格式转换
  - ToLLMChatResponse — OpenAI 兼容响应到 llm.ChatResponse 的转换
  - ChooseModel — 按优先级选择模型（请求 > 默认 > 兜底）
*/
package providers
