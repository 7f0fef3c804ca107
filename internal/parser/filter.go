package parser

import (
	"regexp"
	"strings"

	"entrysummary/internal/payload"
)

var invoiceNumberRe = regexp.MustCompile(`(?i)commercial invoice #?:?\s*(\d[\d-]*)`)

// ItemFilter 判断一条（非发票抬头的）明细是否作为商品行保留
type ItemFilter func(item *payload.Object) bool

// NoiseFilter 丢弃既无货值、又无 HTS 编码、也没有 primary_hts 对象的汇总/噪声行
// keepNumeric 为 true 时，行号为纯数字的行无条件保留。
func NoiseFilter(keepNumeric bool) ItemFilter {
	return func(item *payload.Object) bool {
		if hasEnteredValue(item) || hasHTSCode(item) {
			return true
		}
		if _, ok := item.Object("primary_hts"); ok {
			return true
		}
		return keepNumeric && isNumericLineNumber(item)
	}
}

// DefaultItemFilter 默认过滤规则（保留纯数字行号）
var DefaultItemFilter = NoiseFilter(true)

// KeepAll 不过滤
func KeepAll(*payload.Object) bool { return true }

func hasEnteredValue(item *payload.Object) bool {
	if v, ok := item.Get("entered_value"); ok && !v.IsNull() {
		return true
	}
	if primary, ok := item.Object("primary_hts"); ok {
		if v, ok := primary.Get("entered_value"); ok && !v.IsNull() {
			return true
		}
	}
	return false
}

func hasHTSCode(item *payload.Object) bool {
	if _, ok := firstTruthy(item, itemHTSKeys...); ok {
		return true
	}
	if primary, ok := item.Object("primary_hts"); ok {
		_, ok := firstTruthy(primary, primaryHTSKeys...)
		return ok
	}
	return false
}

// lineNumberOf 明细行号（line_number / line_no / line_item_number 中首个非空值）
func lineNumberOf(item *payload.Object) (payload.Value, bool) {
	return firstTruthy(item, lineNumberKeys...)
}

func isNumericLineNumber(item *payload.Object) bool {
	v, ok := lineNumberOf(item)
	if !ok {
		return false
	}
	switch v.Kind() {
	case payload.KindString, payload.KindNumber:
		return IsDigits(v.Text())
	}
	return false
}

// IsInvoiceHeader 发票抬头行：行号以 INV 开头，或描述含 "Commercial Invoice #:"
func IsInvoiceHeader(item *payload.Object) bool {
	for _, key := range lineNumberKeys {
		if s, ok := item.Value(key).Str(); ok && strings.HasPrefix(strings.ToUpper(strings.TrimSpace(s)), "INV") {
			return true
		}
	}
	for _, key := range descriptionKeys {
		if s, ok := item.Value(key).Str(); ok && ContainsFold(s, "Commercial Invoice #:") {
			return true
		}
	}
	return false
}

// InvoiceNumberFrom 从发票抬头描述中提取发票号（如 "Commercial Invoice #: 20250810-2"）
func InvoiceNumberFrom(description string) (string, bool) {
	m := invoiceNumberRe.FindStringSubmatch(description)
	if m == nil {
		return "", false
	}
	num := strings.TrimRight(m[1], "-")
	return num, num != ""
}

// fallbackInvoiceNumber 扫描原始明细中的发票抬头行，取第一个能提取出的发票号
func fallbackInvoiceNumber(items []payload.Value) (string, bool) {
	for _, it := range items {
		item, ok := it.Object()
		if !ok || !IsInvoiceHeader(item) {
			continue
		}
		for _, key := range descriptionKeys {
			s, ok := item.Value(key).Str()
			if !ok {
				continue
			}
			if num, ok := InvoiceNumberFrom(s); ok {
				return num, true
			}
		}
	}
	return "", false
}
