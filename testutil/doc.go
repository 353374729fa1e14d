// Copyright 2026 QuizFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 QuizFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试与基准测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。所有测试应优先使用此包
中的工具函数和 Mock 实现。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertMessagesEqual 按角色与内容比较消息，
    AssertJSONEqual 比较任意值（如 structured.Record）的 JSON 形式
  - 数据工具: MustJSON

# 子包

  - testutil/mocks: MockProvider（llm.Provider），按脚本回放输出、
    注入延迟与错误，并记录每次调用的请求
  - testutil/fixtures: 测试数据工厂，提供 ChatResponse 与
    典型的模型原始输出（开放题、选择题、分类、非法输出）

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewScriptedProvider("not json", fixtures.OpenEndedBatch(3))
	records, err := generator.Run(ctx, req)
	require.NoError(t, err)
	testutil.AssertJSONEqual(t, `[{"question": "q", "answer": "a"}]`, records)
*/
package testutil
