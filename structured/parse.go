package structured

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// ParseOutput 把归一化后的文本解析为保持键顺序的值。
//
// 合法性与错误信息来自 encoding/json，遍历使用 gjson 以保留对象键顺序。
// 对象解析为 Record，数组为 []any，数字为 json.Number。
func ParseOutput(text string) (any, error) {
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, newAttemptError(KindMalformedOutput, err, "%s", err.Error())
	}
	return fromResult(gjson.Parse(text)), nil
}

func fromResult(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.String:
		return r.Str
	}

	if r.IsArray() {
		items := make([]any, 0)
		r.ForEach(func(_, value gjson.Result) bool {
			items = append(items, fromResult(value))
			return true
		})
		return items
	}

	var rec Record
	r.ForEach(func(key, value gjson.Result) bool {
		rec.Set(key.Str, fromResult(value))
		return true
	})
	return rec
}
