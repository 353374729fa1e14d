// Copyright (c) QuizFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 QuizFlow 服务端程序入口。

# 概述

cmd/quizflow 是 QuizFlow 的可执行入口，提供 HTTP API 服务、数据库迁移、
一次性结构化生成、健康检查和版本查询等子命令。程序支持 YAML 配置文件与
环境变量加载、结构化日志（zap）、Prometheus 指标和 OpenTelemetry 追踪。

# 核心类型

  - Middleware        — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - generateOptions   — generate 子命令参数，单个输入为单条模式，多个为批量模式

# 主要能力

  - 子命令：serve、migrate、generate、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    OTelTracing、MetricsMiddleware、RateLimiter（用户或 IP）、CORS、JWTAuth
  - 启动时自动迁移，Redis 可用时为题目读取加缓存
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号触发 context 取消，errgroup 等待 API 与 Metrics 两个服务器退出
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
