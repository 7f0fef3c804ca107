package parser

import (
	"strings"

	"entrysummary/internal/model"
	"entrysummary/internal/payload"
)

// FieldMapper 字段映射器：把表头、明细行、税则分类上的来源字段映射为导出列
type FieldMapper struct {
	schema model.Schema
}

// NewFieldMapper 创建字段映射器
func NewFieldMapper(schema model.Schema) *FieldMapper {
	return &FieldMapper{schema: schema}
}

// MapHeader 映射表头字段
// 命中的值若是含 name 的对象，取 name；对象带 address 时拼接地址写入同名 Address 列（仅当该列存在）。
func (m *FieldMapper) MapHeader(header *payload.Object) model.Layer {
	layer := model.Layer{}
	for _, a := range HeaderAliases {
		for _, src := range a.Sources {
			v, ok := header.Get(src)
			if !ok || v.IsNull() {
				continue
			}
			if obj, isObj := v.Object(); isObj {
				if !obj.Has("name") {
					continue
				}
				layer.Set(a.Column, obj.Value("name"))
				m.mapAddress(layer, a.Column, obj)
				break
			}
			if !v.IsScalar() {
				continue
			}
			layer.Set(a.Column, v)
			break
		}
	}
	return layer
}

func (m *FieldMapper) mapAddress(layer model.Layer, nameColumn string, obj *payload.Object) {
	if !obj.Has("address") {
		return
	}
	column := strings.ReplaceAll(nameColumn, "Name", "Address")
	if column == nameColumn || !m.schema.Has(column) {
		return
	}
	parts := make([]string, 0, len(addressKeys))
	for _, k := range addressKeys {
		if s := obj.Value(k).Text(); s != "" {
			parts = append(parts, s)
		}
	}
	layer.Set(column, payload.String(strings.Join(parts, ", ")))
}

// MapLineItem 映射明细行标量字段（含千分位逗号清理、数量对象拆分、嵌套与平铺 MPF）
func (m *FieldMapper) MapLineItem(item *payload.Object) model.Layer {
	layer := model.Layer{}
	for _, a := range LineAliases {
		v, _, ok := Lookup(item, a.Sources...)
		if !ok {
			continue
		}
		layer.Set(a.Column, stripThousands(FreeRule(a.Key, v)))
	}
	unpackQuantities(layer, item)
	nested := mapNestedFees(layer, item)
	mapFlatMPF(layer, item, nested)
	return layer
}

// MapClassification 映射一条税则分类
func (m *FieldMapper) MapClassification(hts *payload.Object) model.Layer {
	layer := model.Layer{}
	for _, a := range ClassificationAliases {
		v, _, ok := Lookup(hts, a.Sources...)
		if !ok {
			continue
		}
		layer.Set(a.Column, FreeRule(a.Key, v))
	}

	// FREE 税率未给出税额时视为 0
	if rate, ok := layer[model.ColHTSRate]; ok && isFree(rate) {
		layer.SetIfAbsent(model.ColDutyAndTaxes, zeroAmount())
	}

	unpackQuantities(layer, hts)
	mapNestedFees(layer, hts)

	// 该分类本身就是 MPF 费用行
	if strings.Contains(textOf(hts, "description", "hts_description"), "Merchandise Processing Fee") {
		if rate, ok := layer[model.ColMPFRate]; ok {
			layer.Set(model.ColHTSRate, rate)
		}
	}
	return layer
}

// PrimaryOverrides primary_hts 自身的货值、税率、税额覆盖行级映射
func (m *FieldMapper) PrimaryOverrides(primary *payload.Object) model.Layer {
	layer := model.Layer{}
	overrides := []struct {
		key    string
		column string
	}{
		{"entered_value", model.ColEnteredValue},
		{"rate", model.ColHTSRate},
		{"duty_amount", model.ColDutyAndTaxes},
	}
	for _, o := range overrides {
		v, ok := primary.Get(o.key)
		if !ok || v.IsNull() || !v.IsScalar() {
			continue
		}
		layer.Set(o.column, FreeRule(o.key, v))
	}
	return layer
}

func isFree(v payload.Value) bool {
	s, ok := v.Str()
	return ok && strings.EqualFold(strings.TrimSpace(s), model.RateFree)
}

// stripThousands 含数字的字符串去掉千分位逗号
func stripThousands(v payload.Value) payload.Value {
	s, ok := v.Str()
	if !ok || !hasDigit(s) || !strings.Contains(s, ",") {
		return v
	}
	return payload.String(strings.ReplaceAll(s, ",", ""))
}

// unpackQuantities 数量对象拆为 Pack Qty/Type 列
// quantity 与 net_quantity 写 Pack 2（net_quantity 后写覆盖）；gross_weight 写 Pack 1，缺单位默认 KG；
// 无 gross_weight 时 quantity_2 写 Pack 1。
func unpackQuantities(layer model.Layer, src *payload.Object) {
	if q, ok := src.Object("quantity"); ok {
		setQuantity(layer, model.ColPackQty2, model.ColPackType2, q, "")
	}

	if gw, ok := src.Get("gross_weight"); ok {
		if q, isObj := gw.Object(); isObj {
			setQuantity(layer, model.ColPackQty1, model.ColPackType1, q, "KG")
		} else if gw.IsScalar() {
			layer.SetIfAbsent(model.ColPackQty1, gw)
		}
	} else if q, ok := src.Object("quantity_2"); ok {
		setQuantity(layer, model.ColPackQty1, model.ColPackType1, q, "")
	}

	if q, ok := src.Object("net_quantity"); ok {
		setQuantity(layer, model.ColPackQty2, model.ColPackType2, q, "")
	}
}

func setQuantity(layer model.Layer, qtyCol, unitCol string, q *payload.Object, defaultUnit string) {
	value := q.Value("value")
	if value.IsNull() {
		value = payload.String("")
	}
	unit := q.Value("unit")
	if unit.IsNull() || unit.Text() == "" {
		unit = payload.String(defaultUnit)
	}
	layer.Set(qtyCol, value)
	layer.Set(unitCol, unit)
}

// feeObject 读取嵌套费用对象：先看 name，再看 fees.name
func feeObject(src *payload.Object, name string) (*payload.Object, bool) {
	if obj, ok := src.Object(name); ok {
		return obj, true
	}
	if fees, ok := src.Object("fees"); ok {
		return fees.Object(name)
	}
	return nil, false
}

// mapNestedFees 映射嵌套 MPF/HMF，返回由此写入的列
func mapNestedFees(layer model.Layer, src *payload.Object) map[string]bool {
	written := map[string]bool{}
	set := func(column string, v payload.Value) {
		layer.Set(column, v)
		written[column] = true
	}
	setIfAbsent := func(column string, v payload.Value) {
		if layer.SetIfAbsent(column, v) {
			written[column] = true
		}
	}

	if mpf, ok := feeObject(src, "mpf"); ok {
		if amount, _, ok := Lookup(mpf, mpfAmountKeys...); ok {
			set(model.ColMPFFee, amount)
			setIfAbsent(model.ColDutyAndTaxes, amount)
		}
		if rate, _, ok := Lookup(mpf, mpfRateKeys...); ok {
			set(model.ColMPFRate, rate)
			setIfAbsent(model.ColHTSRate, rate)
		}
		if code, _, ok := Lookup(mpf, mpfCodeKeys...); ok {
			set(mpfCodeColumn(code), code)
		}
	}

	if hmf, ok := feeObject(src, "hmf"); ok {
		if amount, _, ok := Lookup(hmf, hmfAmountKeys...); ok {
			set(model.ColHMFFee, amount)
		}
		if rate, _, ok := Lookup(hmf, hmfRateKeys...); ok {
			set(model.ColHMFRate, rate)
		}
	}
	return written
}

// mapFlatMPF 明细行上平铺的 MPF 字段，不覆盖嵌套映射已写入的列
func mapFlatMPF(layer model.Layer, item *payload.Object, nested map[string]bool) {
	set := func(column string, v payload.Value) {
		if !nested[column] {
			layer.Set(column, v)
		}
	}

	if amount, ok := firstTruthy(item, flatMPFAmountKeys...); ok {
		set(model.ColMPFFee, amount)
		layer.SetIfAbsent(model.ColDutyAndTaxes, amount)
	}
	if rate, ok := firstTruthy(item, flatMPFRateKeys...); ok {
		set(model.ColMPFRate, rate)
		layer.SetIfAbsent(model.ColHTSRate, rate)
	}
	if code, ok := firstTruthy(item, flatMPFCodeKeys...); ok {
		set(mpfCodeColumn(code), code)
	}
}

// mpfCodeColumn 10 位及以上的编码写入 HTS 编码列，否则（如 499）写入参考列
func mpfCodeColumn(code payload.Value) string {
	if len(model.DigitsOnly(code.Text())) >= 10 {
		return model.ColHTSCode
	}
	return model.ColMPFCodeRef
}
