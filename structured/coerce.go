package structured

import "strings"

// CoerceOptions 控制校验与纠正行为。
type CoerceOptions struct {
	// DefaultCategory 非空时，不在候选集合中的分类值被替换为它。
	DefaultCategory string
	// Batched 为 true 时顶层必须是数组。
	Batched bool
	// ExpectedCount 批量模式下期望的元素数量，0 表示不检查。
	ExpectedCount int
	// ValueOnly 为 true 时每个元素被重塑为 {question, answer}。
	ValueOnly bool
}

// Coerce 校验解析结果并按 Schema 纠正。
//
// 批量模式返回全部元素；非批量模式把顶层值包装为单元素列表，只返回第一个。
// 返回的错误总是 *AttemptError。输入值不会被修改。
func Coerce(parsed any, schema *Schema, opts CoerceOptions) ([]Record, error) {
	var elements []any
	if opts.Batched {
		list, ok := parsed.([]any)
		if !ok {
			return nil, newAttemptError(KindShapeMismatch, nil, "Output format not in a list of json")
		}
		if opts.ExpectedCount > 0 && len(list) != opts.ExpectedCount {
			return nil, newAttemptError(KindShapeMismatch, nil,
				"Output list has %d json elements, expected %d (one for each input element)", len(list), opts.ExpectedCount)
		}
		elements = list
	} else {
		elements = []any{parsed}
	}

	out := make([]Record, 0, len(elements))
	for i, el := range elements {
		rec, ok := el.(Record)
		if !ok {
			return nil, newAttemptError(KindShapeMismatch, nil, "Output element %d is not a json object", i)
		}
		coerced, err := CoerceRecord(rec, schema, opts.DefaultCategory)
		if err != nil {
			return nil, err
		}
		if opts.ValueOnly {
			coerced = ValueOnly(coerced)
		}
		out = append(out, coerced)
		if !opts.Batched {
			break
		}
	}
	return out, nil
}

// CoerceRecord 检查单个元素的字段并纠正分类字段。
//
// 动态字段（名称含 <...>）跳过；其余字段缺失即失败。
// 分类字段依次执行：列表取首元素；不在候选集合中且有默认分类时替换为默认；
// 含冒号的文本只保留第一个冒号之前的部分。多次调用结果不变。
func CoerceRecord(rec Record, schema *Schema, defaultCategory string) (Record, error) {
	out := rec.Clone()
	for _, sf := range schema.fields {
		if IsDynamicKey(sf.Name) {
			continue
		}
		value, ok := out.Get(sf.Name)
		if !ok {
			return Record{}, newAttemptError(KindMissingField, nil, "%s not in json output", sf.Name)
		}
		if sf.Field.kind != FieldEnumerated {
			continue
		}
		out.Set(sf.Name, coerceChoice(value, sf.Field, defaultCategory))
	}
	return out, nil
}

func coerceChoice(value any, field Field, defaultCategory string) any {
	value = firstOfList(value)

	text, isText := value.(string)
	if (!isText || !field.allows(text)) && defaultCategory != "" {
		value = defaultCategory
		text, isText = defaultCategory, true
	}

	if isText {
		if i := strings.Index(text, ":"); i >= 0 {
			value = text[:i]
		}
	}
	return value
}

// firstOfList 展开列表直到得到非列表值，空列表视为空文本。
func firstOfList(value any) any {
	for {
		list, ok := value.([]any)
		if !ok {
			return value
		}
		if len(list) == 0 {
			return ""
		}
		value = list[0]
	}
}

// ValueOnly 按原始键顺序取前两个值，重塑为 {question, answer}。
// 缺失的值为空串，多余字段丢弃。
func ValueOnly(rec Record) Record {
	values := rec.Values()
	pick := func(i int) string {
		if i < len(values) {
			return valueText(values[i])
		}
		return ""
	}
	return NewRecord(
		RecordField{Key: "question", Value: pick(0)},
		RecordField{Key: "answer", Value: pick(1)},
	)
}
