// Package telemetry 负责 OpenTelemetry SDK 的初始化与关闭。
//
// 启用时通过 OTLP gRPC 导出 trace 与 metric，结构化生成的每次尝试
// 都会产生一个 span；禁用时不创建导出器，也不连接任何外部服务。
package telemetry
