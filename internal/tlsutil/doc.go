// Package tlsutil 集中维护 TLS 配置（TLS 1.2 起，仅 AEAD 套件），
// 供模型服务 HTTP 客户端与 Redis 连接共用。
package tlsutil
