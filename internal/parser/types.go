package parser

import (
	"errors"
	"fmt"

	"entrysummary/internal/payload"
)

// ErrInvalidPayload 抽取结果无法解析（ParseError 与 UnsupportedShapeError 均匹配）
var ErrInvalidPayload = errors.New("invalid extraction payload")

// ParseError 字符串形态的返回值在去转义后仍不是合法 JSON
type ParseError struct {
	Snippet string // 原始文本开头，便于排查
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON payload: %v (starts with %q)", e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() []error {
	return []error{e.Err, ErrInvalidPayload}
}

// UnsupportedShapeError 解包后既不是对象也不是列表
type UnsupportedShapeError struct {
	Kind payload.Kind
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("unsupported payload shape: %s", e.Kind)
}

func (e *UnsupportedShapeError) Unwrap() error {
	return ErrInvalidPayload
}

// Shape 识别出的返回形态
type Shape string

const (
	ShapeCanonical     Shape = "canonical"      // 已含 entry_summary
	ShapePages         Shape = "pages"          // 分页列表
	ShapeItems         Shape = "items"          // 顶层 items/line_items 数组
	ShapeDict          Shape = "dict"           // 表头/明细分散在约定键下
	ShapeDictHeuristic Shape = "dict_heuristic" // 通过首元素特征识别明细数组
)

// ShapeReport 形态识别结果
type ShapeReport struct {
	Shape     Shape    `json:"shape"`
	Wrappers  []string `json:"wrappers,omitempty"`  // 依次解开的包装键
	Unescaped bool     `json:"unescaped,omitempty"` // 是否经过去转义
	ItemsKey  string   `json:"itemsKey,omitempty"`  // 明细数组所在键
	Pages     int      `json:"pages,omitempty"`
	LineItems int      `json:"lineItems"`
}

// ExpandReport 展开统计
type ExpandReport struct {
	ItemsIn               int    `json:"itemsIn"`
	ItemsKept             int    `json:"itemsKept"`
	InvoiceHeadersSkipped int    `json:"invoiceHeadersSkipped"`
	NoiseSkipped          int    `json:"noiseSkipped"`
	NonObjectSkipped      int    `json:"nonObjectSkipped"`
	Rows                  int    `json:"rows"`
	FallbackInvoiceNumber string `json:"fallbackInvoiceNumber,omitempty"`
}
