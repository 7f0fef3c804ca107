package payload

import (
	"bytes"
	"encoding/json"
)

// Object 保持键顺序的 JSON 对象
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject 创建空对象
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Len 键数量
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys 按原始顺序返回键
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Has 是否包含键（值为 null 也算包含）
func (o *Object) Has(key string) bool {
	if o == nil {
		return false
	}
	_, ok := o.vals[key]
	return ok
}

// Get 获取键值
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Null(), false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Value 获取键值，缺失时返回 null
func (o *Object) Value(key string) Value {
	v, _ := o.Get(key)
	return v
}

// Object 获取子对象
func (o *Object) Object(key string) (*Object, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	return v.Object()
}

// Items 获取子列表
func (o *Object) Items(key string) ([]Value, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	return v.Items()
}

// Set 设置键值；新键追加到末尾，已有键保持原位置
func (o *Object) Set(key string, v Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete 删除键
func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Update 用 other 的键值覆盖当前对象
func (o *Object) Update(other *Object) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		o.Set(k, other.vals[k])
	}
}

// Range 按顺序遍历，fn 返回 false 时停止
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// Clone 浅拷贝（值本身不可变，浅拷贝即可）
func (o *Object) Clone() *Object {
	out := NewObject()
	if o == nil {
		return out
	}
	out.keys = append(out.keys, o.keys...)
	for k, v := range o.vals {
		out.vals[k] = v
	}
	return out
}

// Equal 深比较（键顺序不参与比较）
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for _, k := range o.Keys() {
		ov, ok := other.Get(k)
		if !ok || !o.vals[k].Equal(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON 按键顺序输出
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := o.vals[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
