// Copyright (c) ContentCycle Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 ContentCycle HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 ContentCycle 所有 HTTP 端点的请求处理逻辑，
包括内容迭代、焦点小组评估、编辑修订、画像管理、健康检查以及
统一的响应/错误处理。所有 Handler 均遵循标准 net/http 接口，
通过 Swagger 注解生成 API 文档。

# 核心类型

  - ContentHandler   — 内容 CRUD、焦点小组、编辑修订、评审与自治编排
  - PersonaHandler   — 评审画像 CRUD（内置种子画像不可删除）
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口（数据库、上游模型供应商）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteCreated / WriteError / WriteFromError
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 循环操作：focus-group、editor、review、orchestrate 全流程端点
  - 迭代记录导出：history 查询与 export 下载（JSON，CSV 暂未实现）
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
