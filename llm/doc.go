/*
包 llm 提供统一的大语言模型接入层：Provider 抽象、请求/响应模型与错误语义。

# 概述

本包屏蔽不同模型服务商在接口、鉴权和错误语义上的差异，对上层的
结构化抽取引擎暴露一致的请求与响应模型。引擎只关心"给定 system 与
user 两条消息，返回一段文本"，具体 HTTP 细节由 providers 子包负责。

# 核心接口

  - [Provider]：提供 Completion / HealthCheck / Name

# 核心类型

  - [ChatRequest] / [ChatResponse] / [Message]：统一请求响应模型
  - [Error] / [ErrorCode]：带 HTTP 状态与可重试标记的上游错误

# 辅助函数

  - [FirstChoice] / [FirstContent]：安全读取第一个候选
  - [SystemUserMessages]：构造 system + user 两条消息
*/
package llm
