package tokenizer

import (
	"unicode"
)

const (
	defaultMaxTokens = 4096

	// 经验值：表意文字约 1.5 字符/token，其余约 4 字符/token
	denseCharsPerToken  = 1.5
	sparseCharsPerToken = 4.0

	// 每条消息的角色与分隔开销，以及整段对话的收尾开销
	perMessageOverhead = 4
	replyOverhead      = 3
)

// denseScripts 按表意文字估算的字符集
var denseScripts = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
}

// EstimatorTokenizer 按字符类别估算 token 数，用于没有精确编码表的模型
type EstimatorTokenizer struct {
	model     string
	maxTokens int
}

// NewEstimatorTokenizer maxTokens <= 0 时使用 4096
func NewEstimatorTokenizer(model string, maxTokens int) *EstimatorTokenizer {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &EstimatorTokenizer{model: model, maxTokens: maxTokens}
}

// CountTokens 非空文本至少计 1 个 token
func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	var dense, sparse int
	for _, r := range text {
		if isDense(r) {
			dense++
		} else {
			sparse++
		}
	}
	return max(1, int(float64(dense)/denseCharsPerToken+float64(sparse)/sparseCharsPerToken)), nil
}

func (e *EstimatorTokenizer) CountMessages(messages []Message) (int, error) {
	total := replyOverhead
	for _, msg := range messages {
		n, err := e.CountTokens(msg.Content)
		if err != nil {
			return 0, err
		}
		total += n + perMessageOverhead
	}
	return total, nil
}

func (e *EstimatorTokenizer) MaxTokens() int { return e.maxTokens }

func (e *EstimatorTokenizer) Name() string { return "estimator[" + e.model + "]" }

// isDense 表意文字、全角符号与 CJK 标点按高密度计
func isDense(r rune) bool {
	if r < unicode.MaxASCII {
		return false
	}
	if (r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFFEF) {
		return true
	}
	return unicode.In(r, denseScripts...)
}
