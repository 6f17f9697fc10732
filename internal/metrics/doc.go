// 版权所有 2024 ContentCycle Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP、迭代循环、推理调用与数据库四大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标。指标注册到
调用方注入的 Registerer 上，按 namespace 隔离，测试可使用独立的
Registry 避免重复注册。Collector 为 nil 时所有记录方法安全空转，
便于在禁用指标的部署中直接传递 nil。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - HTTP 指标：请求总数与耗时，按 method/path/status 分组，
    路径经归一化避免高基数 label。
  - 循环指标：内容创建数、焦点小组/编辑运行数、编排结论计数、
    轮次评分分布。
  - 推理指标：评估结果计数、Token 用量（prompt/completion）、
    调用成本累计。
  - 数据库指标：活跃/空闲连接数 Gauge。
*/
package metrics
