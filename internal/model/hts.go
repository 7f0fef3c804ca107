package model

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"entrysummary/internal/payload"
)

// RateFree 免税税率字面量
const RateFree = "FREE"

// FeeCode 以分类行形式出现的费用编码
type FeeCode string

const (
	FeeCodeMPF    FeeCode = "499"
	FeeCodeHMF    FeeCode = "501"
	FeeCodeCotton FeeCode = "056"
	FeeCodeOther  FeeCode = "110"
)

// LookupFeeCode 判断编码是否为费用编码
func LookupFeeCode(code string) (FeeCode, bool) {
	switch FeeCode(strings.TrimSpace(code)) {
	case FeeCodeMPF:
		return FeeCodeMPF, true
	case FeeCodeHMF:
		return FeeCodeHMF, true
	case FeeCodeCotton:
		return FeeCodeCotton, true
	case FeeCodeOther:
		return FeeCodeOther, true
	}
	return "", false
}

// Quantity 数量 {value, unit}
type Quantity struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// Fee MPF/HMF 费用（无 HTS 编码）
type Fee struct {
	Description string          `json:"description,omitempty"`
	Rate        string          `json:"rate,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// HTSClassification 一条税则分类的类型化视图
type HTSClassification struct {
	Code          string              `json:"hts_code"`
	Description   string              `json:"description,omitempty"`
	Rate          string              `json:"rate,omitempty"`
	EnteredValue  decimal.Decimal     `json:"entered_value"`
	DutiableValue decimal.Decimal     `json:"dutiable_value"`
	DutyAmount    decimal.Decimal     `json:"duty_amount"`
	Quantity      *Quantity           `json:"quantity,omitempty"`
	GrossWeight   *Quantity           `json:"gross_weight,omitempty"`
	MPF           *Fee                `json:"mpf,omitempty"`
	HMF           *Fee                `json:"hmf,omitempty"`
	Additional    []HTSClassification `json:"additional_hts_codes,omitempty"`
}

// IsFree 税率是否为 FREE
func (h HTSClassification) IsFree() bool {
	return strings.EqualFold(strings.TrimSpace(h.Rate), RateFree)
}

// IsChapter99 是否为 99 章附加税号
func (h HTSClassification) IsChapter99() bool {
	return strings.HasPrefix(DigitsOnly(h.Code), "99")
}

// DigitsOnly 只保留数字字符
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// QuantityFrom 读取 {value, unit} 对象
func QuantityFrom(v payload.Value) (*Quantity, bool) {
	obj, ok := v.Object()
	if !ok {
		return nil, false
	}
	return &Quantity{
		Value: obj.Value("value").Text(),
		Unit:  obj.Value("unit").Text(),
	}, true
}

// FeeFrom 读取费用对象
func FeeFrom(v payload.Value) (*Fee, bool) {
	obj, ok := v.Object()
	if !ok {
		return nil, false
	}
	fee := &Fee{
		Description: obj.Value("description").Text(),
		Rate:        obj.Value("rate").Text(),
	}
	if d, ok := obj.Value("amount").Decimal(); ok {
		fee.Amount = d
	}
	return fee, true
}

// ClassificationFrom 读取 primary_hts / additional_hts_codes 元素的类型化视图
func ClassificationFrom(v payload.Value) (HTSClassification, bool) {
	obj, ok := v.Object()
	if !ok {
		return HTSClassification{}, false
	}
	h := HTSClassification{
		Code:        obj.Value("hts_code").Text(),
		Description: obj.Value("description").Text(),
		Rate:        obj.Value("rate").Text(),
	}
	h.EnteredValue, _ = obj.Value("entered_value").Decimal()
	h.DutiableValue, _ = obj.Value("dutiable_value").Decimal()
	if !h.IsFree() {
		h.DutyAmount, _ = obj.Value("duty_amount").Decimal()
	}
	if q, ok := QuantityFrom(obj.Value("quantity")); ok {
		h.Quantity = q
	}
	if q, ok := QuantityFrom(obj.Value("gross_weight")); ok {
		h.GrossWeight = q
	}
	if fees, ok := obj.Object("fees"); ok {
		if f, ok := FeeFrom(fees.Value("mpf")); ok {
			h.MPF = f
		}
		if f, ok := FeeFrom(fees.Value("hmf")); ok {
			h.HMF = f
		}
	}
	if extra, ok := obj.Items("additional_hts_codes"); ok {
		for _, it := range extra {
			if a, ok := ClassificationFrom(it); ok {
				h.Additional = append(h.Additional, a)
			}
		}
	}
	return h, true
}
