package structured

import "strings"

// 提示词片段。文本与模型约定的格式说明保持逐字一致。
const (
	formatPrefix      = "\nYou are to output the following in json format: "
	formatSuffix      = ". \nDo not put quotation marks or escape character \\ in the output fields."
	enumeratedHint    = "\nIf output field is a list, classify output into the best element of the list."
	placeholderHint   = "\nAny text enclosed by < and > indicates you must generate content to replace it. Example input: Go to <location>, Example output: Go to the garden\nAny output key containing < and > indicates you must generate the key name to replace it. Example input: {'<location>': 'description of location'}, Example output: {school: a place for education}"
	batchHint         = "\nGenerate a list of json, one json for each input element."
	errorResultPrefix = "\n\nResult: "
	errorMessageLabel = "\n\nError message: "
	errorNamePrefix   = "Error: "
)

// PromptOptions 控制格式说明的组成。
type PromptOptions struct {
	// Batched 为 true 时要求模型为每个输入元素生成一个 JSON。
	Batched bool
	// ErrorContext 是上一次失败尝试的纠错上下文，原样追加在末尾。
	ErrorContext string
}

// ComposePrompt 生成追加在调用方 system 提示词之后的格式说明。
// 纯函数：只依赖 Schema 与 opts。
func ComposePrompt(schema *Schema, opts PromptOptions) string {
	var sb strings.Builder
	sb.WriteString(formatPrefix)
	sb.WriteString(schema.String())
	sb.WriteString(formatSuffix)

	if schema.HasEnumerated() {
		sb.WriteString(enumeratedHint)
	}
	if schema.HasPlaceholders() {
		sb.WriteString(placeholderHint)
	}
	if opts.Batched {
		sb.WriteString(batchHint)
	}
	sb.WriteString(opts.ErrorContext)
	return sb.String()
}

// ErrorContext 渲染一次失败尝试的纠错上下文：归一化后的输出与错误消息，
// 消息以 "Error: " 开头。
func ErrorContext(output string, err error) string {
	if err == nil {
		return ""
	}
	return errorResultPrefix + output + errorMessageLabel + errorNamePrefix + err.Error()
}
