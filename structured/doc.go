/*
# 概述

包 structured 把自由文本 LLM 变成可靠的结构化数据源。

调用方声明一个有序的输出 Schema，Generator 把 Schema 渲染进 system
提示词，调用模型，对输出做引号归一化、JSON 解析与字段校验，并在失败时
把上一次的输出与错误消息写回提示词重试，直到得到合法记录或重试次数耗尽。

# 主要类型

  - Schema / Field — 有序输出契约；字段分为自由文本、分类（候选集合）与嵌套三种
  - Record — 保持键顺序的输出记录
  - Generator — 修复重试循环，Run 返回记录，RunWithAttempts 额外返回尝试明细
  - Request — 单次调用参数：system 提示词、输入、是否批量、默认分类、仅取值模式
  - AttemptError / ErrorKind — 单次尝试的失败分类：
    malformed_output、missing_field、shape_mismatch、generation_failure

# 处理流程

	ComposePrompt → Provider.Completion → NormalizeQuotes → ParseOutput → Coerce

每个阶段都可单独调用与测试。分类字段的纠正顺序为：列表取首元素、
不在候选集合中时替换为默认分类、截断第一个冒号之后的文本。

# 典型用法

	schema := structured.NewSchema().
		Free("question", "question").
		Free("answer", "answer with max length of 15 words")

	gen, _ := structured.NewGenerator(provider, structured.WithLogger(logger))
	records, err := gen.Run(ctx, structured.BatchInput(system, inputs, schema))
	if err != nil { // 请求非法或 ctx 取消 }
	if len(records) == 0 { // 重试耗尽 }

# 并发

Generator 在调用之间不保存状态，可被多个 goroutine 共享；
单次 Run 内部严格串行，模型调用次数不超过 MaxAttempts。
*/
package structured
