/*
# 概述

包 openai 提供 OpenAI 模型的 Provider 适配实现。该包在 openaicompat
基础上扩展，默认指向 https://api.openai.com，兜底模型为 gpt-3.5-turbo。

# 核心结构体

  - OpenAIProvider — 嵌入 openaicompat.Provider，补充 Organization header

# 支持能力

  - Chat Completions（/v1/chat/completions，委托 openaicompat）
  - 健康检查（/v1/models）
  - Organization header 支持
*/
package openai
