package parser

import (
	"strings"

	"github.com/tidwall/gjson"

	"entrysummary/internal/model"
	"entrysummary/internal/payload"
)

// 最多解包两层（如 {"output": "{\"result\": {...}}"}）
const maxUnwrapPasses = 2

var (
	wrapperKeys     = []string{"pages", "output", "result", "data"}
	wrappedItemKeys = []string{"items", "line_items"}
	headerKeys      = []string{"header_information", "header", "entry_header", "summary_info"}
	dictItemKeys    = []string{"line_items", "items", "merchandise_details", "merchandise", "entries"}
	lineItemMarkers = []string{"line_number", "primary_hts", "line_no"}

	// dict 形态下不作为表头字段复制的容器键
	dictExcludedKeys = map[string]bool{
		"line_items":          true,
		"items":               true,
		"merchandise_details": true,
		"merchandise":         true,
		"entries":             true,
		"pages":               true,
	}
)

// NormalizeJSON 解析原始字节并统一为规范结构
// 非法 JSON 文本按字符串形态处理（可能是被转义过一次的 JSON）。
func NormalizeJSON(data []byte) (*model.CanonicalEntry, ShapeReport, error) {
	raw, err := payload.Decode(data)
	if err != nil {
		raw = payload.String(string(data))
	}
	return NormalizeShapeWithReport(raw)
}

// NormalizeShape 将任意形态的抽取结果统一为规范结构
func NormalizeShape(raw payload.Value) (*model.CanonicalEntry, error) {
	entry, _, err := NormalizeShapeWithReport(raw)
	return entry, err
}

// NormalizeShapeWithReport 同 NormalizeShape，并返回形态识别结果
func NormalizeShapeWithReport(raw payload.Value) (*model.CanonicalEntry, ShapeReport, error) {
	report := ShapeReport{}

	v, err := decodeText(raw, &report)
	if err != nil {
		return nil, report, err
	}

	for pass := 0; pass < maxUnwrapPasses; pass++ {
		obj, ok := v.Object()
		if !ok || obj.Has(model.KeyEntrySummary) {
			break
		}
		key, inner, ok := unwrap(obj, pass)
		if !ok {
			break
		}
		report.Wrappers = append(report.Wrappers, key)
		if v, err = decodeText(inner, &report); err != nil {
			return nil, report, err
		}
	}

	var entry *model.CanonicalEntry
	switch v.Kind() {
	case payload.KindObject:
		obj, _ := v.Object()
		if summary, ok := obj.Get(model.KeyEntrySummary); ok {
			report.Shape = ShapeCanonical
			entry = canonicalFrom(summary)
		} else {
			entry = fromDict(obj, &report)
		}
	case payload.KindList:
		pages, _ := v.Items()
		entry = fromPages(pages, &report)
	default:
		return nil, report, &UnsupportedShapeError{Kind: v.Kind()}
	}

	report.LineItems = len(entry.LineItems)
	return entry, report, nil
}

// decodeText 字符串形态：先直接解析，失败再去掉一层引号转义后解析
func decodeText(v payload.Value, report *ShapeReport) (payload.Value, error) {
	s, ok := v.Str()
	if !ok {
		return v, nil
	}

	parsed, err := payload.DecodeString(s)
	if err != nil {
		unescaped, ok := unescapeQuoted(s)
		if !ok {
			return payload.Null(), &ParseError{Snippet: snippet(s), Err: err}
		}
		if parsed, err = payload.DecodeString(unescaped); err != nil {
			return payload.Null(), &ParseError{Snippet: snippet(s), Err: err}
		}
		report.Unescaped = true
	}

	// 双重编码：解析结果仍是字符串
	if inner, ok := parsed.Str(); ok {
		again, err := payload.DecodeString(inner)
		if err != nil {
			return payload.Null(), &ParseError{Snippet: snippet(inner), Err: err}
		}
		parsed = again
	}
	return parsed, nil
}

func unescapeQuoted(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || !strings.HasPrefix(s, `"`) || !strings.HasSuffix(s, `"`) {
		return "", false
	}
	s = s[1 : len(s)-1]
	s = strings.NewReplacer(`\n`, "\n", `\"`, `"`, `\/`, "/").Replace(s)
	return s, true
}

func snippet(s string) string {
	const snippetLen = 80
	if len(s) <= snippetLen {
		return s
	}
	return s[:snippetLen]
}

// unwrap 查找包装键；第二轮起只解开容器或合法 JSON 文本，且对象本身不含明细数组
func unwrap(obj *payload.Object, pass int) (string, payload.Value, bool) {
	if pass > 0 {
		for _, k := range wrappedItemKeys {
			if _, ok := obj.Items(k); ok {
				return "", payload.Null(), false
			}
		}
	}
	for _, key := range wrapperKeys {
		v, ok := obj.Get(key)
		if !ok {
			continue
		}
		if pass > 0 {
			switch v.Kind() {
			case payload.KindObject, payload.KindList:
			case payload.KindString:
				// 状态类标量字段（如 "result":"ok"、"data":"1"）不是包装
				if !isJSONText(v) {
					continue
				}
			default:
				continue
			}
		}
		return key, v, true
	}
	return "", payload.Null(), false
}

// isJSONText 字符串本身或去掉一层转义后是 JSON 对象或数组（可再被编码一次）
func isJSONText(v payload.Value) bool {
	s, _ := v.Str()
	if isJSONContainer(s, 1) {
		return true
	}
	unescaped, ok := unescapeQuoted(s)
	return ok && isJSONContainer(unescaped, 1)
}

func isJSONContainer(s string, depth int) bool {
	if !gjson.Valid(s) {
		return false
	}
	r := gjson.Parse(s)
	if r.IsObject() || r.IsArray() {
		return true
	}
	return depth > 0 && r.Type == gjson.String && isJSONContainer(r.Str, depth-1)
}

func canonicalFrom(summary payload.Value) *model.CanonicalEntry {
	obj, ok := summary.Object()
	if !ok {
		return model.NewCanonicalEntry()
	}
	return model.EntryFromSummary(obj)
}

// fromDict 对象形态：顶层明细数组直接包装，否则按约定键查找表头与明细
func fromDict(obj *payload.Object, report *ShapeReport) *model.CanonicalEntry {
	entry := model.NewCanonicalEntry()

	for _, key := range wrappedItemKeys {
		items, ok := obj.Items(key)
		if !ok {
			continue
		}
		report.Shape = ShapeItems
		report.ItemsKey = key
		entry.LineItems = append(entry.LineItems, items...)
		obj.Range(func(k string, v payload.Value) bool {
			if v.Kind() != payload.KindList {
				entry.Header.Set(k, v)
			}
			return true
		})
		return entry
	}

	report.Shape = ShapeDict
	for _, key := range headerKeys {
		if !obj.Has(key) {
			continue
		}
		if header, ok := obj.Object(key); ok {
			entry.Header.Update(header)
		}
		break
	}

	found := false
	for _, key := range dictItemKeys {
		if items, ok := obj.Items(key); ok {
			entry.LineItems = append(entry.LineItems, items...)
			report.ItemsKey = key
			found = true
			break
		}
	}
	if !found {
		obj.Range(func(k string, v payload.Value) bool {
			items, ok := v.Items()
			if !ok || !looksLikeLineItems(items) {
				return true
			}
			entry.LineItems = append(entry.LineItems, items...)
			report.Shape = ShapeDictHeuristic
			report.ItemsKey = k
			return false
		})
	}

	obj.Range(func(k string, v payload.Value) bool {
		if !dictExcludedKeys[k] && v.Kind() != payload.KindList {
			entry.Header.Set(k, v)
		}
		return true
	})
	return entry
}

func looksLikeLineItems(items []payload.Value) bool {
	if len(items) == 0 {
		return false
	}
	first, ok := items[0].Object()
	if !ok {
		return false
	}
	for _, marker := range lineItemMarkers {
		if first.Has(marker) {
			return true
		}
	}
	return false
}
