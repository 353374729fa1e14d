// Package config 提供 QuizFlow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，环境变量名为
// QUIZFLOW_<SECTION>_<FIELD>，例如 QUIZFLOW_LLM_MAX_ATTEMPTS。
// 加载后由调用方执行 Validate。
package config
