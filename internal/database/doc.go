// 版权所有 2024 ContentCycle Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接管理，支持 PostgreSQL 与 SQLite
两种驱动、连接池调优与事务重试。

# 概述

本包通过 Open 按配置打开 GORM 连接并应用连接池参数，
通过 Manager 统一管理连接生命周期与探活。

# 核心类型

  - Options：连接配置，包含驱动、DSN 与连接池参数。
  - Manager：连接管理器，提供 DB()、Ping()、Stats()、Close()。

# 主要能力

  - 双驱动：postgres（生产）与 sqlite（本地与测试）。
  - 连接池调优：MaxIdleConns/MaxOpenConns/ConnMaxLifetime。
  - 事务管理：WithTransactionRetry 支持指数退避重试
    （死锁、序列化失败等场景）。
*/
package database
