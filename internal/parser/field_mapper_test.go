package parser

import (
	"testing"

	"entrysummary/internal/model"
	"entrysummary/internal/payload"
)

func mustObject(t *testing.T, raw string) *payload.Object {
	t.Helper()

	obj, ok := payload.MustDecode(raw).Object()
	if !ok {
		t.Fatalf("not an object: %s", raw)
	}
	return obj
}

func TestLookup_SkipsNullAndContainers(t *testing.T) {
	t.Parallel()

	obj := mustObject(t, `{"a":null,"b":{"x":1},"c":[1],"d":"hit","e":"later"}`)
	v, key, ok := Lookup(obj, "missing", "a", "b", "c", "d", "e")
	if !ok || key != "d" || v.Text() != "hit" {
		t.Fatalf("lookup want d=hit got %s=%q ok=%v", key, v.Text(), ok)
	}
	if _, _, ok := Lookup(obj, "a", "b"); ok {
		t.Fatalf("lookup should miss when only null/containers present")
	}
}

func TestFreeRule(t *testing.T) {
	t.Parallel()

	if got := FreeRule("hts_rate", payload.String("Free")); got.Text() != "FREE" {
		t.Fatalf("rate want=FREE got=%q", got.Text())
	}
	if got := FreeRule("duty_and_taxes", payload.String("FREE")); got.Kind() != payload.KindNumber || got.Text() != "0.00" {
		t.Fatalf("duty want=number 0.00 got=%s %q", got.Kind(), got.Text())
	}
	if got := FreeRule("cotton_fee_amount", payload.String("free")); got.Text() != "0.00" {
		t.Fatalf("amount want=0.00 got=%q", got.Text())
	}
	if got := FreeRule("hts_description", payload.String("FREE")); got.Text() != "FREE" {
		t.Fatalf("other keys unchanged, got %q", got.Text())
	}
	if got := FreeRule("hts_rate", payload.String("5.8%")); got.Text() != "5.8%" {
		t.Fatalf("non-FREE value changed: %q", got.Text())
	}
}

func TestAliasTables_ColumnsInSchema(t *testing.T) {
	t.Parallel()

	schema := model.DefaultSchema()
	for name, table := range map[string]AliasTable{
		"header":         HeaderAliases,
		"line":           LineAliases,
		"classification": ClassificationAliases,
	} {
		seen := map[string]bool{}
		for _, a := range table {
			if !schema.Has(a.Column) {
				t.Fatalf("%s alias %s maps to unknown column %q", name, a.Key, a.Column)
			}
			if seen[a.Key] {
				t.Fatalf("%s alias key %s duplicated", name, a.Key)
			}
			seen[a.Key] = true
			if len(a.Sources) == 0 {
				t.Fatalf("%s alias %s has no sources", name, a.Key)
			}
		}
	}
	if len(HeaderAliases) < 40 {
		t.Fatalf("header alias table too small: %d", len(HeaderAliases))
	}
}

func TestMapClassification_NestedMPF(t *testing.T) {
	t.Parallel()

	m := NewFieldMapper(model.DefaultSchema())

	layer := m.MapClassification(mustObject(t, `{"mpf":{"mpf_amount":"61.85","mpf_hts_rate":"0.3464%","mpf_hts_code":"499"}}`))
	if layer[model.ColMPFFee].Text() != "61.85" || layer[model.ColDutyAndTaxes].Text() != "61.85" {
		t.Fatalf("mpf amount not mapped: %v", layer)
	}
	if layer[model.ColMPFRate].Text() != "0.3464%" || layer[model.ColHTSRate].Text() != "0.3464%" {
		t.Fatalf("mpf rate not mapped: %v", layer)
	}
	if layer.Has(model.ColHTSCode) || layer[model.ColMPFCodeRef].Text() != "499" {
		t.Fatalf("short mpf code should go to reference column: %v", layer)
	}

	layer = m.MapClassification(mustObject(t, `{"hts_code":"6910.10.0030","rate":"5.8%","duty_amount":"10","fees":{"mpf":{"amount":"2","hts_code":"9999.99.9999"},"hmf":{"rate":"0.125%","amount":"1.5"}}}`))
	if layer[model.ColDutyAndTaxes].Text() != "10" || layer[model.ColHTSRate].Text() != "5.8%" {
		t.Fatalf("mpf must not override mapped duty/rate: %v", layer)
	}
	if layer[model.ColHTSCode].Text() != "9999.99.9999" {
		t.Fatalf("10-digit mpf code should replace HTS code, got %q", layer[model.ColHTSCode].Text())
	}
	if layer[model.ColHMFRate].Text() != "0.125%" || layer[model.ColHMFFee].Text() != "1.5" {
		t.Fatalf("hmf not mapped: %v", layer)
	}
}

func TestMapLineItem_FlatMPFDoesNotOverrideNested(t *testing.T) {
	t.Parallel()

	m := NewFieldMapper(model.DefaultSchema())
	layer := m.MapLineItem(mustObject(t, `{
		"mpf":{"mpf_amount":"61.85"},
		"merchandise_processing_fee":"99.99",
		"mpf_rate":"0.3464%",
		"mpf_hts_code":"499"
	}`))

	if got := layer[model.ColMPFFee].Text(); got != "61.85" {
		t.Fatalf("nested MPF fee should win, got %q", got)
	}
	if got := layer[model.ColMPFRate].Text(); got != "0.3464%" {
		t.Fatalf("flat MPF rate want=0.3464%% got %q", got)
	}
	if got := layer[model.ColHTSRate].Text(); got != "0.3464%" {
		t.Fatalf("flat MPF rate should fill unset HTS rate, got %q", got)
	}
	if got := layer[model.ColMPFCodeRef].Text(); got != "499" {
		t.Fatalf("flat MPF code want reference 499, got %q", got)
	}
}

func TestMapLineItem_QuantityVariants(t *testing.T) {
	t.Parallel()

	m := NewFieldMapper(model.DefaultSchema())

	layer := m.MapLineItem(mustObject(t, `{"gross_weight":"1,200","weight_unit":"LB"}`))
	if layer[model.ColPackQty1].Text() != "1200" {
		t.Fatalf("scalar gross weight should be kept as qty, got %q", layer[model.ColPackQty1].Text())
	}
	if layer[model.ColPackType1].Text() != "LB" {
		t.Fatalf("weight unit alias lost, got %q", layer[model.ColPackType1].Text())
	}

	layer = m.MapLineItem(mustObject(t, `{"quantity_2":{"value":"3","unit":"CTN"},"gross_weight":null}`))
	if layer.Has(model.ColPackQty1) && layer[model.ColPackQty1].Text() == "3" {
		t.Fatalf("quantity_2 must not fill Pack 1 when gross_weight key is present")
	}

	layer = m.MapLineItem(mustObject(t, `{"quantity_2":{"value":"3","unit":"CTN"},"gross_weight":{"value":"10","unit":null}}`))
	if layer[model.ColPackQty1].Text() != "10" || layer[model.ColPackType1].Text() != "KG" {
		t.Fatalf("gross weight with null unit: %v", layer)
	}

	layer = m.MapLineItem(mustObject(t, `{"quantity_2":{"value":"3","unit":"CTN"}}`))
	if layer[model.ColPackQty1].Text() != "3" || layer[model.ColPackType1].Text() != "CTN" {
		t.Fatalf("quantity_2 should fill Pack 1: %v", layer)
	}
}

func TestPrimaryOverrides(t *testing.T) {
	t.Parallel()

	m := NewFieldMapper(model.DefaultSchema())
	layer := m.PrimaryOverrides(mustObject(t, `{"entered_value":"500","rate":"FREE","duty_amount":null,"quantity":{"value":"1"}}`))
	if layer[model.ColEnteredValue].Text() != "500" || layer[model.ColHTSRate].Text() != "FREE" {
		t.Fatalf("unexpected overrides: %v", layer)
	}
	if layer.Has(model.ColDutyAndTaxes) {
		t.Fatalf("null duty must not override")
	}
	if layer.Has(model.ColPackQty2) {
		t.Fatalf("quantity belongs to the classification layer")
	}
}
