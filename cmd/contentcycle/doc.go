// Copyright (c) ContentCycle Authors.
// Licensed under the MIT License.

/*
Package main 提供 ContentCycle 服务端程序入口。

# 概述

cmd/contentcycle 是内容迭代打磨服务的可执行入口，提供 HTTP API 服务、
画像种子写入、健康检查和版本查询等子命令。程序支持 YAML 配置文件加载、
结构化日志（zap）与 Prometheus 指标采集。

# 核心类型

  - Server           — 主服务器，装配数据库、推理客户端、领域服务与路由
  - Middleware        — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter    — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、seed（写入内置画像或 --file 指定的 YAML 画像）、
    version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、CORS、RequestLogger、
    MetricsMiddleware、RateLimiter（基于 IP）、APIKeyAuth（可选）
  - 推理模式：live、mock、live-fallback（上游失败时降级到模拟评审）
  - 优雅关闭：信号监听 → 停止后台任务 → 关闭 HTTP → 关闭数据库
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
