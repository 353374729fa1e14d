/*
Package handlers 提供 QuizFlow HTTP API 的请求处理器实现。

# 概述

所有 Handler 遵循标准 net/http 接口，通过 Register 挂载到
http.ServeMux（Go 1.22 方法与路径参数路由）。

# 核心类型

  - QuizHandler    — 出题、查询、结束游戏、判题、主题分类与词云数据
  - HealthHandler  — /health、/ready、/version
  - Response       — 统一 JSON 响应结构（success + data + error + timestamp + request_id）
  - ResponseWriter — 包装 http.ResponseWriter 以捕获状态码与响应大小
  - HealthCheck    — 可插拔健康检查接口，PingCheck 为通用实现

# 错误映射

WriteServiceError 将业务错误转换为 types.Error：不存在 → 404，
参数错误 → 400，GENERATION_EXHAUSTED → 502，其余 → 500。
*/
package handlers
