package parser

import (
	"fmt"

	"entrysummary/internal/model"
	"entrysummary/internal/payload"
)

// Expander 将规范结构展开为导出行（每个 HTS 分类一行）
// 无状态，可在多个 goroutine 中并发使用。
type Expander struct {
	schema model.Schema
	filter ItemFilter
	mapper *FieldMapper
}

// Option 展开器选项
type Option func(*Expander)

// WithSchema 指定导出列（影响地址列合成）
func WithSchema(schema model.Schema) Option {
	return func(e *Expander) { e.schema = schema }
}

// WithItemFilter 替换明细过滤规则
func WithItemFilter(filter ItemFilter) Option {
	return func(e *Expander) {
		if filter != nil {
			e.filter = filter
		}
	}
}

// NewExpander 创建展开器
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		schema: model.DefaultSchema(),
		filter: DefaultItemFilter,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.mapper = NewFieldMapper(e.schema)
	return e
}

// Schema 导出列
func (e *Expander) Schema() model.Schema {
	return e.schema
}

// Expand 展开为导出行，不会失败；缺失字段只会让对应列为空
func (e *Expander) Expand(entry *model.CanonicalEntry) []model.OutputRow {
	rows, _ := e.ExpandWithReport(entry)
	return rows
}

// HeaderTemplate 表头模板层（所有行共享）
func (e *Expander) HeaderTemplate(entry *model.CanonicalEntry) (model.Layer, string) {
	header := e.mapper.MapHeader(entry.Header)
	var fallback string
	if num, ok := fallbackInvoiceNumber(entry.LineItems); ok {
		if header.SetIfAbsent(model.ColInvoiceNo, payload.String(num)) {
			fallback = num
		}
	}
	return header, fallback
}

// ExpandWithReport 同 Expand，并返回过滤与展开统计
func (e *Expander) ExpandWithReport(entry *model.CanonicalEntry) ([]model.OutputRow, ExpandReport) {
	report := ExpandReport{}
	rows := []model.OutputRow{}
	if entry == nil {
		return rows, report
	}

	header, fallback := e.HeaderTemplate(entry)
	report.FallbackInvoiceNumber = fallback

	items := e.filterItems(entry.LineItems, &report)

	var current payload.Value
	seen := false
	for idx, item := range items {
		if v, ok := lineNumberOf(item); ok {
			current, seen = v, true
		}
		itemNo := payload.String(fmt.Sprintf("%03d", idx+1))
		if seen {
			itemNo = current
		}

		base := model.Layer{model.ColItemNumber: itemNo}
		line := e.mapper.MapLineItem(item)
		rows = append(rows, e.expandItem(item, header, base, line)...)
	}

	report.Rows = len(rows)
	return rows, report
}

func (e *Expander) expandItem(item *payload.Object, header, base, line model.Layer) []model.OutputRow {
	if primary, ok := item.Object("primary_hts"); ok && primary.Len() > 0 {
		rows := []model.OutputRow{
			model.MergeLayers(header, base, line,
				e.mapper.MapClassification(primary),
				e.mapper.PrimaryOverrides(primary)),
		}
		extra, _ := primary.Items("additional_hts_codes")
		for _, it := range extra {
			hts, ok := it.Object()
			if !ok {
				continue
			}
			rows = append(rows, model.MergeLayers(header, base, line, e.mapper.MapClassification(hts)))
		}
		return rows
	}

	if list, ok := item.Items("hts_classifications"); ok && len(list) > 0 {
		rows := make([]model.OutputRow, 0, len(list))
		for _, it := range list {
			hts, ok := it.Object()
			if !ok {
				continue
			}
			rows = append(rows, model.MergeLayers(header, base, line, e.mapper.MapClassification(hts)))
		}
		// 分类列表中没有对象时按单行输出
		if len(rows) > 0 {
			return rows
		}
	}

	return []model.OutputRow{model.MergeLayers(header, base, line)}
}

func (e *Expander) filterItems(items []payload.Value, report *ExpandReport) []*payload.Object {
	report.ItemsIn = len(items)
	kept := make([]*payload.Object, 0, len(items))
	for _, it := range items {
		item, ok := it.Object()
		if !ok {
			report.NonObjectSkipped++
			continue
		}
		if IsInvoiceHeader(item) {
			report.InvoiceHeadersSkipped++
			continue
		}
		if !e.filter(item) {
			report.NoiseSkipped++
			continue
		}
		kept = append(kept, item)
	}
	report.ItemsKept = len(kept)
	return kept
}
