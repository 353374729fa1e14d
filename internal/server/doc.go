// 版权所有 2024 QuizFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
阻塞式 Run 与优雅关闭。

# 概述

Manager 封装 net/http.Server，统一管理监听、服务、关闭与错误传播。
quizflow serve 为 API 端口与 metrics 端口各创建一个 Manager，
放入 errgroup 中运行，收到信号后由 ctx 取消触发优雅关闭。

# 核心类型

  - Manager：提供 Start/Run/Shutdown/Errors 等生命周期方法。
  - Config：监听地址、读写超时、空闲超时、最大请求头与关闭超时，
    可由 ConfigFromServer 从 config.ServerConfig 构造。
*/
package server
