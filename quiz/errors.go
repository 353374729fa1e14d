package quiz

import "errors"

var (
	// ErrQuestionNotFound 题目不存在
	ErrQuestionNotFound = errors.New("question not found")
	// ErrGameNotFound 游戏不存在
	ErrGameNotFound = errors.New("game not found")
	// ErrInvalidGameType 未知的游戏类型
	ErrInvalidGameType = errors.New("invalid game type")
	// ErrInvalidAmount 题目数量超出范围
	ErrInvalidAmount = errors.New("amount must be between 1 and 10")
	// ErrEmptyTopic 主题为空
	ErrEmptyTopic = errors.New("topic must not be empty")
	// ErrGenerationExhausted 重试预算耗尽仍未生成合法题目
	ErrGenerationExhausted = errors.New("question generation exhausted")
)
