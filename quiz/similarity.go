package quiz

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Normalize 转小写并去除首尾空白
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchExact 单选题判定：规范化后相等
func MatchExact(answer, input string) bool {
	return Normalize(answer) == Normalize(input)
}

// Similarity 开放题评分：round(100 * (maxLen - distance) / maxLen)，
// 长度按 rune 计算，两者皆空时为 100。
func Similarity(answer, input string) int {
	a, b := Normalize(answer), Normalize(input)
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round(float64(maxLen-dist) / float64(maxLen) * 100))
}
