package structured

import (
	"errors"
	"fmt"
)

// ErrorKind 对单次尝试的失败原因分类。
type ErrorKind string

const (
	// KindMalformedOutput 归一化后的文本不是合法 JSON。
	KindMalformedOutput ErrorKind = "malformed_output"
	// KindMissingField 某个非动态字段缺失。
	KindMissingField ErrorKind = "missing_field"
	// KindShapeMismatch 批量模式下顶层不是数组、元素数量不符，或元素不是对象。
	KindShapeMismatch ErrorKind = "shape_mismatch"
	// KindGenerationFailure 模型调用失败或没有返回内容。
	KindGenerationFailure ErrorKind = "generation_failure"
)

// AttemptError 描述一次尝试失败的原因。Error() 只返回消息本身，
// 该文本会原样写入下一次尝试的纠错上下文。
type AttemptError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *AttemptError) Error() string { return e.Message }

func (e *AttemptError) Unwrap() error { return e.Cause }

func newAttemptError(kind ErrorKind, cause error, format string, args ...any) *AttemptError {
	return &AttemptError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf 返回错误链中 AttemptError 的分类，非 AttemptError 返回空串。
func KindOf(err error) ErrorKind {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// 调用方错误，与模型输出无关，不会被重试吸收。
var (
	ErrNilSchema   = errors.New("structured: schema is required")
	ErrNoInput     = errors.New("structured: at least one input is required")
	ErrSingleInput = errors.New("structured: non-batched request takes exactly one input")
	ErrNilProvider = errors.New("structured: provider cannot be nil")
)

func asAttemptError(err error) *AttemptError {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae
	}
	return newAttemptError(KindMalformedOutput, err, "%s", err.Error())
}
