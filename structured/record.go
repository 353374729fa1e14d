package structured

import (
	"bytes"
	"encoding/json"
	"strings"
)

// RecordField 是 Record 中的一个键值对。
type RecordField struct {
	Key   string
	Value any
}

// Record 是保持键顺序的 JSON 对象。
//
// 值的取值范围与解析结果一致：string、json.Number、bool、nil、
// []any 以及嵌套的 Record。
type Record struct {
	fields []RecordField
}

// NewRecord 按给定顺序构造 Record，重复键保留首次位置、最后的值。
func NewRecord(fields ...RecordField) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set 写入键值。已存在的键原地替换。
func (r *Record) Set(key string, value any) {
	for i := range r.fields {
		if r.fields[i].Key == key {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, RecordField{Key: key, Value: value})
}

// Get 读取键对应的值。
func (r Record) Get(key string) (any, bool) {
	for _, f := range r.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Has 报告键是否存在（值可以为 null）。
func (r Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Text 返回键对应值的文本形式，缺失时返回空串。
func (r Record) Text(key string) string {
	v, _ := r.Get(key)
	return valueText(v)
}

func (r Record) Len() int { return len(r.fields) }

// Keys 按顺序返回所有键。
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Values 按顺序返回所有值。
func (r Record) Values() []any {
	values := make([]any, len(r.fields))
	for i, f := range r.fields {
		values[i] = f.Value
	}
	return values
}

// Fields 按顺序返回键值对副本。
func (r Record) Fields() []RecordField {
	cp := make([]RecordField, len(r.fields))
	copy(cp, r.fields)
	return cp
}

// Clone 返回一份顶层副本；嵌套值共享。
func (r Record) Clone() Record {
	return Record{fields: r.Fields()}
}

// Map 转成普通 map，丢失顺序信息。
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		if nested, ok := f.Value.(Record); ok {
			m[f.Key] = nested.Map()
			continue
		}
		m[f.Key] = f.Value
	}
	return m
}

// MarshalJSON 按键顺序输出 JSON 对象，本身不转义 HTML 字符；
// 经 json.Marshal 调用时外层仍会转义，需要原样输出时用 SetEscapeHTML(false) 的 Encoder。
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, f.Key)
		buf.WriteByte(':')
		raw, err := encodeCompact(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeCompact 编码为紧凑 JSON，不转义 HTML 字符。
func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// valueText 把任意解析值转成文本：字符串原样返回，null 为空串，
// 其余值使用紧凑 JSON 文本。
func valueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		raw, err := encodeCompact(v)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(raw))
	}
}
