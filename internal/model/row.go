package model

import (
	"bytes"
	"encoding/json"
	"sort"

	"entrysummary/internal/payload"
)

// Layer 行构建过程中的一层局部映射（列名 -> 值）
type Layer map[string]payload.Value

// Set 设置列值
func (l Layer) Set(column string, v payload.Value) {
	l[column] = v
}

// SetIfAbsent 列未设置时才写入，返回是否写入
func (l Layer) SetIfAbsent(column string, v payload.Value) bool {
	if _, ok := l[column]; ok {
		return false
	}
	l[column] = v
	return true
}

// Has 列是否已设置
func (l Layer) Has(column string) bool {
	_, ok := l[column]
	return ok
}

// OutputRow 一条 HTS 分类对应的导出行，创建后不可修改
type OutputRow struct {
	cells map[string]payload.Value
}

// MergeLayers 按顺序合并各层，后面的层覆盖前面的层
func MergeLayers(layers ...Layer) OutputRow {
	size := 0
	for _, l := range layers {
		size += len(l)
	}
	cells := make(map[string]payload.Value, size)
	for _, l := range layers {
		for k, v := range l {
			cells[k] = v
		}
	}
	return OutputRow{cells: cells}
}

// Get 获取列值
func (r OutputRow) Get(column string) (payload.Value, bool) {
	v, ok := r.cells[column]
	return v, ok
}

// Has 列是否有值
func (r OutputRow) Has(column string) bool {
	_, ok := r.cells[column]
	return ok
}

// Text 列文本值，缺失为空串
func (r OutputRow) Text(column string) string {
	v, ok := r.cells[column]
	if !ok {
		return ""
	}
	return v.Text()
}

// Len 已填充列数
func (r OutputRow) Len() int { return len(r.cells) }

// Columns 已填充的列名：先按 schema 顺序，其余（参考列）按字母序
func (r OutputRow) Columns(schema Schema) []string {
	out := make([]string, 0, len(r.cells))
	var extra []string
	for _, c := range schema.columns {
		if _, ok := r.cells[c]; ok {
			out = append(out, c)
		}
	}
	for c := range r.cells {
		if !schema.Has(c) {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Values 按 schema 顺序返回全部列值，缺失列为 null
func (r OutputRow) Values(schema Schema) []payload.Value {
	out := make([]payload.Value, len(schema.columns))
	for i, c := range schema.columns {
		if v, ok := r.cells[c]; ok {
			out[i] = v
		} else {
			out[i] = payload.Null()
		}
	}
	return out
}

// Record 按 schema 输出完整记录，缺失列填空串
func (r OutputRow) Record(schema Schema) *payload.Object {
	obj := payload.NewObject()
	for _, c := range schema.columns {
		v, ok := r.cells[c]
		if !ok || v.IsNull() {
			v = payload.String("")
		}
		obj.Set(c, v)
	}
	return obj
}

// MarshalJSON 输出已填充列（schema 顺序）
func (r OutputRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns(DefaultSchema()) {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := r.cells[c].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
