package parser

import (
	"fmt"
	"strings"
	"testing"

	"entrysummary/internal/model"
	"entrysummary/internal/payload"
)

func mustEntry(t *testing.T, raw string) *model.CanonicalEntry {
	t.Helper()

	entry, err := NormalizeShape(payload.MustDecode(raw))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return entry
}

func cell(t *testing.T, row model.OutputRow, column string) string {
	t.Helper()

	v, ok := row.Get(column)
	if !ok {
		t.Fatalf("column %q missing", column)
	}
	return v.Text()
}

func TestExpand_EndToEndScenario(t *testing.T) {
	t.Parallel()

	entry := mustEntry(t, `{"entry_summary":{"line_items":[{
		"line_number":"001",
		"primary_hts":{
			"hts_code":"6910.10.0030",
			"rate":"5.80%",
			"duty_amount":1035.65,
			"additional_hts_codes":[{"hts_code":"9903.01.24","rate":"20.00%","duty_amount":3571.20}],
			"fees":{"mpf":{"amount":61.85}}
		}
	}]}}`)

	rows := NewExpander().Expand(entry)
	if len(rows) != 2 {
		t.Fatalf("rows want=2 got=%d", len(rows))
	}

	want := []map[string]string{
		{model.ColHTSCode: "6910.10.0030", model.ColHTSRate: "5.80%", model.ColDutyAndTaxes: "1035.65", model.ColItemNumber: "001"},
		{model.ColHTSCode: "9903.01.24", model.ColHTSRate: "20.00%", model.ColDutyAndTaxes: "3571.20", model.ColItemNumber: "001"},
	}
	for i, w := range want {
		for col, v := range w {
			if got := cell(t, rows[i], col); got != v {
				t.Fatalf("row %d %s want=%q got=%q", i+1, col, v, got)
			}
		}
	}
	if got := cell(t, rows[0], model.ColMPFFee); got != "61.85" {
		t.Fatalf("primary MPF fee want=61.85 got=%q", got)
	}
	if rows[1].Has(model.ColMPFFee) {
		t.Fatalf("additional row must not inherit primary fees")
	}
}

func TestExpand_Multiplicity(t *testing.T) {
	t.Parallel()

	for n := 0; n <= 5; n++ {
		extra := make([]string, n)
		for i := range extra {
			extra[i] = fmt.Sprintf(`{"hts_code":"9903.88.%04d","rate":"25%%"}`, i)
		}
		raw := fmt.Sprintf(`{"entry_summary":{"line_items":[{"line_number":"001","primary_hts":{"hts_code":"8471.30.0100","additional_hts_codes":[%s]}}]}}`,
			strings.Join(extra, ","))

		rows := NewExpander().Expand(mustEntry(t, raw))
		if len(rows) != n+1 {
			t.Fatalf("n=%d rows want=%d got=%d", n, n+1, len(rows))
		}
	}
}

func TestExpand_AdditionalDoesNotInheritPrimary(t *testing.T) {
	t.Parallel()

	entry := mustEntry(t, `{"entry_summary":{"line_items":[{
		"line_number":"002",
		"description":"CERAMIC MUGS",
		"primary_hts":{
			"hts_code":"6912.00.4810",
			"entered_value":"17856",
			"quantity":{"value":"4800","unit":"NO"},
			"additional_hts_codes":[{"hts_code":"9903.01.25"}]
		}
	}]}}`)

	rows := NewExpander().Expand(entry)
	if len(rows) != 2 {
		t.Fatalf("rows want=2 got=%d", len(rows))
	}
	if cell(t, rows[0], model.ColEnteredValue) != "17856" || cell(t, rows[0], model.ColPackQty2) != "4800" {
		t.Fatalf("primary row missing value/quantity")
	}
	if rows[1].Has(model.ColEnteredValue) || rows[1].Has(model.ColPackQty2) || rows[1].Has(model.ColHTSRate) {
		t.Fatalf("additional row inherited primary fields")
	}
	// 行级标量两行共享
	if cell(t, rows[1], model.ColHTSDescription) != "CERAMIC MUGS" {
		t.Fatalf("additional row lost line scalars")
	}
}

func TestExpand_FreeRate(t *testing.T) {
	t.Parallel()

	entry := mustEntry(t, `{"entry_summary":{"line_items":[
		{"line_number":"001","primary_hts":{"hts_code":"8517.62.0090","rate":"FREE","duty_amount":"FREE"}},
		{"line_number":"002","primary_hts":{"hts_code":"8517.62.0090","rate":"free"}},
		{"line_number":"003","hts_code":"8517.62.0090","rate":"FREE","duty":"FREE"}
	]}}`)

	rows := NewExpander().Expand(entry)
	if len(rows) != 3 {
		t.Fatalf("rows want=3 got=%d", len(rows))
	}
	for i, row := range rows {
		if got := cell(t, row, model.ColHTSRate); got != model.RateFree {
			t.Fatalf("row %d rate want=FREE got=%q", i+1, got)
		}
		v, _ := row.Get(model.ColDutyAndTaxes)
		if v.Kind() != payload.KindNumber {
			t.Fatalf("row %d duty should be numeric, got %s", i+1, v.Kind())
		}
		d, ok := v.Decimal()
		if !ok || !d.IsZero() {
			t.Fatalf("row %d duty want=0 got=%q", i+1, v.Text())
		}
	}
}

func TestExpand_QuantityUnpacking(t *testing.T) {
	t.Parallel()

	entry := mustEntry(t, `{"entry_summary":{"line_items":[
		{"line_number":"001","primary_hts":{"hts_code":"6910.10.0030","gross_weight":{"value":"22100","unit":"KG"}}},
		{"line_number":"002","primary_hts":{"hts_code":"6910.10.0030","gross_weight":{"value":"500"}}},
		{"line_number":"003","primary_hts":{"hts_code":"6910.10.0030",
			"quantity":{"value":"10","unit":"DOZ"},"net_quantity":{"value":"120","unit":"NO"}}}
	]}}`)

	rows := NewExpander().Expand(entry)
	if len(rows) != 3 {
		t.Fatalf("rows want=3 got=%d", len(rows))
	}
	if cell(t, rows[0], model.ColPackQty1) != "22100" || cell(t, rows[0], model.ColPackType1) != "KG" {
		t.Fatalf("gross weight not unpacked: %q %q", rows[0].Text(model.ColPackQty1), rows[0].Text(model.ColPackType1))
	}
	if cell(t, rows[1], model.ColPackQty1) != "500" || cell(t, rows[1], model.ColPackType1) != "KG" {
		t.Fatalf("missing unit should default to KG, got %q", rows[1].Text(model.ColPackType1))
	}
	if cell(t, rows[2], model.ColPackQty2) != "120" || cell(t, rows[2], model.ColPackType2) != "NO" {
		t.Fatalf("net_quantity should override quantity: %q %q", rows[2].Text(model.ColPackQty2), rows[2].Text(model.ColPackType2))
	}
}

func TestExpand_InvoiceHeaderFiltering(t *testing.T) {
	t.Parallel()

	entry := mustEntry(t, `{"entry_summary":{"line_items":[
		{"line_no":"INV#1","description_of_merchandise":"Invoice header"},
		{"line_no":"","description":"Commercial Invoice #: 20250810-2"},
		{"line_number":"001","primary_hts":{"hts_code":"6910.10.0030","entered_value":"100"}}
	]}}`)

	rows, report := NewExpander().ExpandWithReport(entry)
	if len(rows) != 1 {
		t.Fatalf("rows want=1 got=%d", len(rows))
	}
	if report.InvoiceHeadersSkipped != 2 {
		t.Fatalf("invoice headers skipped want=2 got=%d", report.InvoiceHeadersSkipped)
	}
	if got := cell(t, rows[0], model.ColInvoiceNo); got != "20250810-2" {
		t.Fatalf("fallback invoice want=20250810-2 got=%q", got)
	}
	if report.FallbackInvoiceNumber != "20250810-2" {
		t.Fatalf("report fallback want=20250810-2 got=%q", report.FallbackInvoiceNumber)
	}
}

func TestExpand_FallbackInvoiceDoesNotOverrideMapped(t *testing.T) {
	t.Parallel()

	entry := mustEntry(t, `{"entry_summary":{"invoice_no":"ignored-header-key","line_items":[
		{"line_no":"INV#1","description":"COMMERCIAL INVOICE #: 555"},
		{"line_number":"001","invoice_number":"A-77","hts_code":"6910.10.0030"}
	]}}`)

	rows := NewExpander().Expand(entry)
	if len(rows) != 1 {
		t.Fatalf("rows want=1 got=%d", len(rows))
	}
	// 明细自身的发票号覆盖表头回填值
	if got := cell(t, rows[0], model.ColInvoiceNo); got != "A-77" {
		t.Fatalf("invoice want=A-77 got=%q", got)
	}
}

func TestExpand_NoiseFilter(t *testing.T) {
	t.Parallel()

	raw := `{"entry_summary":{"line_items":[
		{"line_number":"001","hts_code":"6910.10.0030"},
		{"description":"TOTAL"},
		{"line_no":"7","description":"numeric line without value"},
		{"line_no":"A1","description":"noise"},
		"not an object"
	]}}`

	rows, report := NewExpander().ExpandWithReport(mustEntry(t, raw))
	if len(rows) != 2 {
		t.Fatalf("default filter rows want=2 got=%d", len(rows))
	}
	if report.NoiseSkipped != 2 || report.NonObjectSkipped != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	strict := NewExpander(WithItemFilter(NoiseFilter(false)))
	if rows := strict.Expand(mustEntry(t, raw)); len(rows) != 1 {
		t.Fatalf("strict filter rows want=1 got=%d", len(rows))
	}

	all := NewExpander(WithItemFilter(KeepAll))
	if rows := all.Expand(mustEntry(t, raw)); len(rows) != 4 {
		t.Fatalf("keep-all rows want=4 got=%d", len(rows))
	}
}

func TestExpand_LineNumberCarryForward(t *testing.T) {
	t.Parallel()

	entry := mustEntry(t, `{"entry_summary":{"line_items":[
		{"hts_code":"1111.11.1111"},
		{"line_no":"005","hts_code":"2222.22.2222"},
		{"hts_code":"3333.33.3333"},
		{"line_item_number":"009","hts_code":"4444.44.4444"}
	]}}`)

	rows := NewExpander().Expand(entry)
	want := []string{"001", "005", "005", "009"}
	if len(rows) != len(want) {
		t.Fatalf("rows want=%d got=%d", len(want), len(rows))
	}
	for i, w := range want {
		if got := cell(t, rows[i], model.ColItemNumber); got != w {
			t.Fatalf("row %d item number want=%s got=%s", i+1, w, got)
		}
	}
}

func TestExpand_HTSClassificationsArray(t *testing.T) {
	t.Parallel()

	entry := mustEntry(t, `{"items":[{
		"line_no":"1",
		"part_number":"P-100",
		"hts_classifications":[
			{"hts_code":"7323.93.0080","rate":"2%","entered_value":"1,000"},
			{"hts_code":"9903.88.15","rate":"7.5%"},
			{"hts_code":"499","description":"Merchandise Processing Fee","mpf_rate":"0.3464%"}
		]
	}]}`)

	rows := NewExpander().Expand(entry)
	if len(rows) != 3 {
		t.Fatalf("rows want=3 got=%d", len(rows))
	}
	for i, row := range rows {
		if cell(t, row, model.ColPartNumber) != "P-100" {
			t.Fatalf("row %d lost part number", i+1)
		}
	}
	if cell(t, rows[0], model.ColEnteredValue) != "1,000" {
		t.Fatalf("classification values keep their commas, got %q", rows[0].Text(model.ColEnteredValue))
	}
	if cell(t, rows[2], model.ColHTSRate) != "0.3464%" {
		t.Fatalf("MPF line should carry its rate as HTS rate, got %q", rows[2].Text(model.ColHTSRate))
	}
}

func TestExpand_HTSClassificationsWithoutObjects(t *testing.T) {
	t.Parallel()

	entry := mustEntry(t, `{"items":[{
		"line_no":"1",
		"part_number":"P-9",
		"hts_classifications":["6910.10.0030", null]
	}]}`)

	rows, report := NewExpander().ExpandWithReport(entry)
	if len(rows) != 1 || report.Rows != 1 {
		t.Fatalf("item without classification objects should yield one row, got %d", len(rows))
	}
	if cell(t, rows[0], model.ColPartNumber) != "P-9" || cell(t, rows[0], model.ColItemNumber) != "1" {
		t.Fatalf("line fields lost: %v", rows[0])
	}
}

func TestExpand_PlainItemAndCommaStripping(t *testing.T) {
	t.Parallel()

	entry := mustEntry(t, `{"line_items":[{
		"line_no":"1",
		"htsus_no":"6910.10.0030",
		"entered_value":"17,856",
		"duty_rate":"5.8%",
		"duty":"1,035.65",
		"country_of_origin":"CN",
		"charge_type":"C"
	}]}`)

	rows := NewExpander().Expand(entry)
	if len(rows) != 1 {
		t.Fatalf("rows want=1 got=%d", len(rows))
	}
	row := rows[0]
	checks := map[string]string{
		model.ColHTSCode:      "6910.10.0030",
		model.ColEnteredValue: "17856",
		model.ColHTSRate:      "5.8%",
		model.ColDutyAndTaxes: "1035.65",
		model.ColItemCountry:  "CN",
		model.ColItemCharges:  "C",
		model.ColItemNumber:   "1",
	}
	for col, want := range checks {
		if got := cell(t, row, col); got != want {
			t.Fatalf("%s want=%q got=%q", col, want, got)
		}
	}
}

func TestExpand_HeaderTemplate(t *testing.T) {
	t.Parallel()

	schema := model.NewSchema(append(append([]string{}, model.Columns...), "25. CS Consignee Address"))
	entry := mustEntry(t, `{"entry_summary":{
		"filer_code_entry_no":"KX-0711086-1",
		"entry_number":"should-not-win",
		"port_code":"2704",
		"ultimate_consignee_name":{"name":"ACME INC","address":"1 Main St","city":"Carson","state":"CA","zip":"90745"},
		"importer_of_record_name":{"name":"ACME IMPORTS"},
		"broker_filer_information":{"name":"KlearNow Corp"},
		"line_items":[{"line_number":"001","hts_code":"6910.10.0030"}]
	}}`)

	rows := NewExpander(WithSchema(schema)).Expand(entry)
	if len(rows) != 1 {
		t.Fatalf("rows want=1 got=%d", len(rows))
	}
	row := rows[0]
	checks := map[string]string{
		model.ColEntryNumber:       "KX-0711086-1",
		model.ColPortOfEntry:       "2704",
		model.ColConsigneeName:     "ACME INC",
		"25. CS Consignee Address": "1 Main St, Carson, CA, 90745",
		model.ColImporterName:      "ACME IMPORTS",
		model.ColBrokerName:        "KlearNow Corp",
	}
	for col, want := range checks {
		if got := cell(t, row, col); got != want {
			t.Fatalf("%s want=%q got=%q", col, want, got)
		}
	}

	// 默认列中没有地址列，不合成
	rows = NewExpander().Expand(entry)
	if rows[0].Has("25. CS Consignee Address") {
		t.Fatalf("address column synthesized without schema support")
	}
}

func TestExpand_ColumnCompleteness(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`{"entry_summary":{"line_items":[]}}`,
		`{"entry_summary":{"line_items":[{"line_number":"001"}]}}`,
		`{"items":[{"line_no":"1","hts_code":"6910.10.0030","mpf":{"mpf_hts_code":"499"}}]}`,
	}
	schema := model.DefaultSchema()
	for _, in := range inputs {
		rows := NewExpander().Expand(mustEntry(t, in))
		for _, row := range rows {
			rec := row.Record(schema)
			keys := rec.Keys()
			if len(keys) != model.ColumnCount {
				t.Fatalf("record columns want=%d got=%d", model.ColumnCount, len(keys))
			}
			for i, k := range keys {
				if k != model.Columns[i] {
					t.Fatalf("column %d want=%q got=%q", i, model.Columns[i], k)
				}
			}
			if rec.Has(model.ColMPFCodeRef) {
				t.Fatalf("reference column leaked into record")
			}
		}
	}
}

func TestExpand_NilAndEmpty(t *testing.T) {
	t.Parallel()

	e := NewExpander()
	if rows := e.Expand(nil); rows == nil || len(rows) != 0 {
		t.Fatalf("nil entry should yield empty rows")
	}
	if rows := e.Expand(model.NewCanonicalEntry()); len(rows) != 0 {
		t.Fatalf("empty entry should yield no rows, got %d", len(rows))
	}
}
