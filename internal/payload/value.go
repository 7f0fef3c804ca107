package payload

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind 取值类型
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

// String 返回类型名称（用于日志与错误信息）
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value 抽取服务返回的任意 JSON 值（String | List | Object 等变体）
// 数字保留原始字面量，金额不会因 float 往返而失真。
type Value struct {
	kind Kind
	b    bool
	s    string
	list []Value
	obj  *Object
}

// Null 空值
func Null() Value { return Value{kind: KindNull} }

// Bool 布尔值
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String 字符串值
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number 数字值，literal 为 JSON 数字字面量
func Number(literal string) Value { return Value{kind: KindNumber, s: literal} }

// Decimal 由 decimal 构造数字值
func Decimal(d decimal.Decimal) Value { return Number(d.String()) }

// List 列表值
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Obj 对象值
func Obj(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind 返回值类型
func (v Value) Kind() Kind { return v.kind }

// IsNull 是否为空值
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsScalar 是否为标量（字符串/数字/布尔）
func (v Value) IsScalar() bool {
	return v.kind == KindString || v.kind == KindNumber || v.kind == KindBool
}

// Str 返回字符串内容（仅字符串类型）
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Items 返回列表元素（仅列表类型）
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// Object 返回对象（仅对象类型）
func (v Value) Object() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// Text 文本表示：字符串原样、数字字面量、布尔 true/false、空值为空串，容器为 JSON
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString, KindNumber:
		return v.s
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// Decimal 将数字或数字字符串（允许千分位逗号、$ 前缀）转为 decimal
func (v Value) Decimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		d, err := decimal.NewFromString(v.s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case KindString:
		s := strings.TrimSpace(v.s)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// Truthy 按"非空即真"的口径判断
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		d, err := decimal.NewFromString(v.s)
		return err != nil || !d.IsZero()
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.list) > 0
	case KindObject:
		return v.obj.Len() > 0
	}
	return false
}

// Equal 深比较
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindString, KindNumber:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.obj.Equal(other.obj)
	}
	return false
}

// MarshalJSON 实现 json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return []byte(v.s), nil
	case KindString:
		return json.Marshal(v.s)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindObject:
		return v.obj.MarshalJSON()
	}
	return []byte("null"), nil
}

// UnmarshalJSON 实现 json.Unmarshaler（保留对象键顺序）
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Decode(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
