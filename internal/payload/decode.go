package payload

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON 输入不是合法 JSON
var ErrInvalidJSON = errors.New("invalid json")

// Decode 解析 JSON 文本为 Value，对象保持键顺序
func Decode(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Null(), ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// DecodeString 解析 JSON 字符串
func DecodeString(s string) (Value, error) {
	if !gjson.Valid(s) {
		return Null(), ErrInvalidJSON
	}
	return fromResult(gjson.Parse(s)), nil
}

// MustDecode 解析 JSON，失败时 panic（仅用于测试与常量）
func MustDecode(s string) Value {
	v, err := DecodeString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null()
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Number(r.Raw)
	case gjson.String:
		return String(r.Str)
	case gjson.JSON:
		if r.IsArray() {
			items := []Value{}
			r.ForEach(func(_, item gjson.Result) bool {
				items = append(items, fromResult(item))
				return true
			})
			return List(items...)
		}
		obj := NewObject()
		r.ForEach(func(key, item gjson.Result) bool {
			obj.Set(key.String(), fromResult(item))
			return true
		})
		return Obj(obj)
	}
	return Null()
}
