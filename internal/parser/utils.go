package parser

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"entrysummary/internal/payload"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeText 规范化抽取文本：NFKC（全角符号转半角）、压缩空白
func NormalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ContainsFold 忽略大小写的包含判断
func ContainsFold(text, substr string) bool {
	return strings.Contains(strings.ToUpper(text), strings.ToUpper(substr))
}

// IsDigits 非空且全部为数字
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// hasDigit 是否包含数字
func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// firstPresent 返回第一个存在的键（值可为 null）
func firstPresent(obj *payload.Object, keys ...string) (payload.Value, string, bool) {
	for _, k := range keys {
		if v, ok := obj.Get(k); ok {
			return v, k, true
		}
	}
	return payload.Null(), "", false
}

// firstTruthy 返回第一个"非空"的标量值
func firstTruthy(obj *payload.Object, keys ...string) (payload.Value, bool) {
	for _, k := range keys {
		v, ok := obj.Get(k)
		if ok && v.IsScalar() && v.Truthy() {
			return v, true
		}
	}
	return payload.Null(), false
}

// textOf 取第一个存在键的文本
func textOf(obj *payload.Object, keys ...string) string {
	for _, k := range keys {
		v, ok := obj.Get(k)
		if ok && v.IsScalar() {
			return v.Text()
		}
	}
	return ""
}
