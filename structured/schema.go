package structured

import (
	"bytes"
	"encoding/json"
	"regexp"
)

// FieldKind 字段描述符的种类，在构造时确定。
type FieldKind int

const (
	// FieldFree 值为不受约束的文本，描述文字只用于提示词。
	FieldFree FieldKind = iota
	// FieldEnumerated 值必须归入给定的候选集合。
	FieldEnumerated
	// FieldNested 嵌套 Schema，原样写入提示词，不做下层校验。
	FieldNested
)

func (k FieldKind) String() string {
	switch k {
	case FieldFree:
		return "free"
	case FieldEnumerated:
		return "enumerated"
	case FieldNested:
		return "nested"
	default:
		return "unknown"
	}
}

// placeholderPattern 匹配尖括号占位符，例如 <location>。
var placeholderPattern = regexp.MustCompile(`<.*?>`)

// IsDynamicKey 判断字段名是否由模型生成（名称中含 <...>）。
func IsDynamicKey(name string) bool {
	return placeholderPattern.MatchString(name)
}

// Field 是单个输出字段的描述符。
type Field struct {
	kind    FieldKind
	text    string
	choices []string
	nested  *Schema
}

// Free 声明一个自由文本字段，description 会出现在提示词中。
func Free(description string) Field {
	return Field{kind: FieldFree, text: description}
}

// Enumerated 声明一个分类字段，输出会被归入 choices 之一。
func Enumerated(choices ...string) Field {
	cp := make([]string, len(choices))
	copy(cp, choices)
	return Field{kind: FieldEnumerated, choices: cp}
}

// Nested 声明一个嵌套对象字段。
func Nested(schema *Schema) Field {
	if schema == nil {
		schema = NewSchema()
	}
	return Field{kind: FieldNested, nested: schema}
}

func (f Field) Kind() FieldKind { return f.kind }

// Description 返回自由文本字段的描述。
func (f Field) Description() string { return f.text }

// Choices 返回分类字段的候选值副本。
func (f Field) Choices() []string {
	cp := make([]string, len(f.choices))
	copy(cp, f.choices)
	return cp
}

// Schema 返回嵌套字段的子 Schema，其他种类返回 nil。
func (f Field) Schema() *Schema { return f.nested }

func (f Field) allows(value string) bool {
	for _, c := range f.choices {
		if c == value {
			return true
		}
	}
	return false
}

func (f Field) hasPlaceholder() bool {
	switch f.kind {
	case FieldFree:
		return placeholderPattern.MatchString(f.text)
	case FieldEnumerated:
		for _, c := range f.choices {
			if placeholderPattern.MatchString(c) {
				return true
			}
		}
	case FieldNested:
		return f.nested.HasPlaceholders()
	}
	return false
}

// SchemaField 是 Schema 中的一个具名字段。
type SchemaField struct {
	Name  string
	Field Field
}

// Schema 是有序的输出契约。字段顺序即插入顺序，
// 在提示词渲染和遍历中保持不变。
type Schema struct {
	fields []SchemaField
	index  map[string]int
}

// NewSchema 创建空 Schema。
func NewSchema() *Schema {
	return &Schema{index: make(map[string]int)}
}

// Add 追加字段并返回 Schema 以便链式调用。
// 重复的名称覆盖原描述符但保留原位置。
func (s *Schema) Add(name string, field Field) *Schema {
	if i, ok := s.index[name]; ok {
		s.fields[i].Field = field
		return s
	}
	s.index[name] = len(s.fields)
	s.fields = append(s.fields, SchemaField{Name: name, Field: field})
	return s
}

// Free / Enum / Object 是 Add 的便捷写法。
func (s *Schema) Free(name, description string) *Schema {
	return s.Add(name, Free(description))
}

func (s *Schema) Enum(name string, choices ...string) *Schema {
	return s.Add(name, Enumerated(choices...))
}

func (s *Schema) Object(name string, nested *Schema) *Schema {
	return s.Add(name, Nested(nested))
}

// Fields 按插入顺序返回字段列表副本。
func (s *Schema) Fields() []SchemaField {
	cp := make([]SchemaField, len(s.fields))
	copy(cp, s.fields)
	return cp
}

// Field 按名称查找字段。
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i].Field, true
}

func (s *Schema) Len() int { return len(s.fields) }

// HasEnumerated 报告 Schema（含嵌套）中是否存在分类字段。
func (s *Schema) HasEnumerated() bool {
	for _, f := range s.fields {
		if f.Field.kind == FieldEnumerated {
			return true
		}
		if f.Field.kind == FieldNested && f.Field.nested.HasEnumerated() {
			return true
		}
	}
	return false
}

// HasPlaceholders 报告字段名、描述或候选值（含嵌套）中是否出现 <...> 占位符。
func (s *Schema) HasPlaceholders() bool {
	for _, f := range s.fields {
		if IsDynamicKey(f.Name) || f.Field.hasPlaceholder() {
			return true
		}
	}
	return false
}

// String 返回紧凑 JSON 渲染，不转义 <、>、&，用于提示词。
func (s *Schema) String() string {
	var buf bytes.Buffer
	s.render(&buf)
	return buf.String()
}

// MarshalJSON 按字段顺序输出 JSON 对象。
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	s.render(&buf)
	return buf.Bytes(), nil
}

func (s *Schema) render(buf *bytes.Buffer) {
	buf.WriteByte('{')
	for i, f := range s.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(buf, f.Name)
		buf.WriteByte(':')
		switch f.Field.kind {
		case FieldFree:
			writeJSONString(buf, f.Field.text)
		case FieldEnumerated:
			buf.WriteByte('[')
			for j, c := range f.Field.choices {
				if j > 0 {
					buf.WriteByte(',')
				}
				writeJSONString(buf, c)
			}
			buf.WriteByte(']')
		case FieldNested:
			f.Field.nested.render(buf)
		}
	}
	buf.WriteByte('}')
}

// writeJSONString 写入 JSON 字符串字面量，保留 HTML 字符原样。
func writeJSONString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encoder 总会追加换行
	buf.Truncate(buf.Len() - 1)
}
