package model

import "entrysummary/internal/payload"

const (
	// KeyEntrySummary 规范结构根键
	KeyEntrySummary = "entry_summary"
	// KeyLineItems 明细行键
	KeyLineItems = "line_items"
)

// CanonicalEntry 各种返回形态统一后的中间结构：表头字段 + 明细行
type CanonicalEntry struct {
	Header    *payload.Object
	LineItems []payload.Value
}

// NewCanonicalEntry 创建空的规范结构（LineItems 永不为 nil）
func NewCanonicalEntry() *CanonicalEntry {
	return &CanonicalEntry{
		Header:    payload.NewObject(),
		LineItems: []payload.Value{},
	}
}

// EntryFromSummary 由 entry_summary 对象构建规范结构
func EntryFromSummary(summary *payload.Object) *CanonicalEntry {
	entry := NewCanonicalEntry()
	summary.Range(func(key string, v payload.Value) bool {
		if key == KeyLineItems {
			if items, ok := v.Items(); ok {
				entry.LineItems = append(entry.LineItems, items...)
			}
			return true
		}
		entry.Header.Set(key, v)
		return true
	})
	return entry
}

// Value 还原为 {entry_summary: {..., line_items: [...]}}
func (e *CanonicalEntry) Value() payload.Value {
	summary := e.Header.Clone()
	summary.Set(KeyLineItems, payload.List(append([]payload.Value(nil), e.LineItems...)...))
	root := payload.NewObject()
	root.Set(KeyEntrySummary, payload.Obj(summary))
	return payload.Obj(root)
}

// ItemObjects 返回对象类型的明细行（非对象元素被忽略）
func (e *CanonicalEntry) ItemObjects() []*payload.Object {
	out := make([]*payload.Object, 0, len(e.LineItems))
	for _, it := range e.LineItems {
		if obj, ok := it.Object(); ok {
			out = append(out, obj)
		}
	}
	return out
}
