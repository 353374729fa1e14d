package structured

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidSchema 表示 Schema 文档格式不正确。
var ErrInvalidSchema = errors.New("invalid schema")

// ParseSchema 从 JSON 对象构造 Schema，字段顺序与文档一致：
// 字符串为自由字段，字符串数组为分类字段，对象为嵌套 Schema。
func ParseSchema(data []byte) (*Schema, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidSchema)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidSchema)
	}
	return schemaFromResult(root, "")
}

func schemaFromResult(obj gjson.Result, path string) (*Schema, error) {
	s := NewSchema()
	var err error
	obj.ForEach(func(key, value gjson.Result) bool {
		name := path + key.Str
		switch {
		case value.Type == gjson.String:
			s.Free(key.Str, value.Str)
		case value.IsArray():
			choices := make([]string, 0)
			value.ForEach(func(_, c gjson.Result) bool {
				if c.Type != gjson.String {
					err = fmt.Errorf("%w: %s choices must be strings", ErrInvalidSchema, name)
					return false
				}
				choices = append(choices, c.Str)
				return true
			})
			if err == nil && len(choices) == 0 {
				err = fmt.Errorf("%w: %s has no choices", ErrInvalidSchema, name)
			}
			if err == nil {
				s.Enum(key.Str, choices...)
			}
		case value.IsObject():
			var nested *Schema
			nested, err = schemaFromResult(value, name+".")
			if err == nil {
				s.Object(key.Str, nested)
			}
		default:
			err = fmt.Errorf("%w: %s must be a string, array or object", ErrInvalidSchema, name)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
