package structured

import (
	"regexp"
	"strings"
)

// quoteBetweenWords 匹配夹在两个单词字符之间的双引号。
var quoteBetweenWords = regexp.MustCompile(`(\w)"(\w)`)

// NormalizeQuotes 修复模型输出中的引号，使其更可能被解析为 JSON。
//
// 先把所有单引号替换成双引号，再把夹在两个单词字符之间的双引号还原为
// 撇号（don't、it's）。这是启发式处理：原本有意写在单词旁边的双引号也会
// 被改成撇号，结果仍可能无法解析。
func NormalizeQuotes(text string) string {
	text = strings.ReplaceAll(text, "'", `"`)
	return quoteBetweenWords.ReplaceAllString(text, "$1'$2")
}
