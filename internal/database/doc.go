// 版权所有 2024 QuizFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接与连接池管理，支持 SQLite、
PostgreSQL 与 MySQL，附带健康检查、指标上报与事务重试。

# 概述

Open 根据 config.DatabaseConfig 选择方言（glebarez/sqlite 纯 Go 驱动、
gorm postgres、gorm mysql），并把 GORM 的慢查询与错误日志接入 zap。
PoolManager 封装 database/sql 连接池参数，后台定时探活并通过
StatsRecorder 上报连接数。

# 核心类型

  - PoolManager：连接池管理器，提供 DB()、Ping()、Stats()、Close()。
  - PoolConfig：连接池配置，可由 PoolConfigFromDatabase 构造。
  - StatsRecorder：连接数与事务耗时的指标接收器。
  - TransactionFunc：事务回调函数类型。

# 事务

WithTransaction 执行单次事务；WithTransactionRetry 在死锁、序列化
失败、连接中断或 SQLITE_BUSY 时指数退避重试。
*/
package database
