// Package types 定义 contentcycle 全局共享的基础类型：
// 统一错误结构、循环状态、画像类型、情感与 AI 模式枚举。
//
// 该包不依赖任何其他 contentcycle 包，处于依赖图的最底层。
package types
