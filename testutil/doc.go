// Copyright 2026 ContentCycle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 ContentCycle 测试的共享工具。

# 子包

  - testutil/mocks: Mock 实现，包括 MockInferenceClient
    （inference.Client 的脚本化模拟），支持按画像脚本化评分、
    喜恶条目、修订脚本与错误注入。

# 使用示例

	client := mocks.NewMockInferenceClient()
	client.ScriptRating("persona-1", 8, 9)
	client.FailPersona("persona-2", errors.New("boom"))
*/
package testutil
