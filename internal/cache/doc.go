// 版权所有 2024 QuizFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存管理能力，用于缓存已生成的题目，
减少答题校验时的数据库读取。

# 概述

本包封装 go-redis 客户端，为上层业务提供统一的缓存读写接口。
Manager 负责连接生命周期管理，包括初始化、健康检查与优雅关闭。
支持可选 TLS 加密连接（tlsutil.RedisTLSConfig）。

# 核心类型

  - Manager：缓存管理器，提供 Get/Set/Delete/Ping 基础操作，
    以及 GetJSON/SetJSON 便捷序列化方法。所有键自动加上 KeyPrefix。
  - Config：缓存配置，可由 config.RedisConfig 通过 FromRedisConfig 构造。

# 错误语义

  - ErrCacheMiss：键不存在或已过期，调用方应回源读取。
  - ErrClosed：Close 之后的任何操作。
*/
package cache
