package audit

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"entrysummary/internal/model"
)

// Status 校验结论
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// 默认 MPF 法定下限/上限（美元）
var (
	DefaultMPFMinimum = decimal.RequireFromString("32.71")
	DefaultMPFMaximum = decimal.RequireFromString("634.62")
)

// CriticalColumns 每行都应有值的列
var CriticalColumns = []string{model.ColEntryNumber, model.ColHTSCode, model.ColItemNumber}

// numericColumns 有值时必须能解析为数字的列
var numericColumns = []string{
	model.ColSuretyNumber,
	model.ColItemNumber,
	model.ColEnteredValue,
	model.ColAdValoremDuty,
	model.ColMPFFee,
	model.ColHMFFee,
	model.ColDutyAndTaxes,
	model.ColTotalEnteredValue,
	model.ColTotalsDuty,
	model.ColMPFAmount,
}

// Stats 统计信息
type Stats struct {
	TotalColumns    int  `json:"totalColumns"`
	ExpectedColumns int  `json:"expectedColumns"`
	TotalRows       int  `json:"totalRows"`
	ColumnMatch     bool `json:"columnMatch"`
}

// Check 一项金额核对
type Check struct {
	Name     string `json:"name"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

// Report 校验报告，不影响导出
type Report struct {
	Status         Status         `json:"status"`
	Warnings       []string       `json:"warnings"`
	Errors         []string       `json:"errors"`
	Stats          Stats          `json:"stats"`
	MissingColumns []string       `json:"missingColumns,omitempty"`
	ExtraColumns   []string       `json:"extraColumns,omitempty"`
	CriticalEmpty  map[string]int `json:"criticalEmpty,omitempty"`
	Checks         []Check        `json:"checks,omitempty"`
}

// Options 校验选项
type Options struct {
	Schema     model.Schema
	MPFMinimum decimal.Decimal
	MPFMaximum decimal.Decimal
	// Tolerance 汇总核对允许的差额
	Tolerance decimal.Decimal
}

// DefaultOptions 默认选项
func DefaultOptions() Options {
	return Options{
		Schema:     model.DefaultSchema(),
		MPFMinimum: DefaultMPFMinimum,
		MPFMaximum: DefaultMPFMaximum,
		Tolerance:  decimal.RequireFromString("0.05"),
	}
}

// OptionsWithBounds 使用配置中的 MPF 上下限（空串沿用默认值）
func OptionsWithBounds(minimum, maximum string) (Options, error) {
	opts := DefaultOptions()
	if s := strings.TrimSpace(minimum); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return opts, fmt.Errorf("invalid mpf minimum %q: %w", minimum, err)
		}
		opts.MPFMinimum = d
	}
	if s := strings.TrimSpace(maximum); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return opts, fmt.Errorf("invalid mpf maximum %q: %w", maximum, err)
		}
		opts.MPFMaximum = d
	}
	return opts, nil
}

// Validate 校验导出行（以及可选的规范结构）
func Validate(entry *model.CanonicalEntry, rows []model.OutputRow, opts Options) *Report {
	if opts.Schema.Len() == 0 {
		opts.Schema = model.DefaultSchema()
	}
	r := &Report{
		Status:        StatusSuccess,
		Warnings:      []string{},
		Errors:        []string{},
		CriticalEmpty: map[string]int{},
	}

	r.checkColumns(opts.Schema)
	r.Stats.TotalRows = len(rows)
	if len(rows) == 0 {
		r.Errors = append(r.Errors, "no data rows produced")
	}

	for _, col := range CriticalColumns {
		if !opts.Schema.Has(col) {
			continue
		}
		empty := 0
		for _, row := range rows {
			if strings.TrimSpace(row.Text(col)) == "" {
				empty++
			}
		}
		if empty > 0 {
			r.CriticalEmpty[col] = empty
			r.Warnings = append(r.Warnings, fmt.Sprintf("critical field %q has %d empty values", col, empty))
		}
	}

	for _, col := range numericColumns {
		bad := 0
		for _, row := range rows {
			v, ok := row.Get(col)
			if !ok || v.Text() == "" {
				continue
			}
			if _, ok := v.Decimal(); !ok {
				bad++
			}
		}
		if bad > 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%d values in %q are not numeric", bad, col))
		}
	}

	if len(rows) > 0 {
		r.checkTotals(entry, rows, opts)
	}

	switch {
	case len(r.Errors) > 0:
		r.Status = StatusError
	case len(r.Warnings) > 0:
		r.Status = StatusWarning
	}
	return r
}

func (r *Report) checkColumns(schema model.Schema) {
	r.Stats.TotalColumns = schema.Len()
	r.Stats.ExpectedColumns = model.ColumnCount

	expected := model.DefaultSchema()
	for _, c := range model.Columns {
		if !schema.Has(c) {
			r.MissingColumns = append(r.MissingColumns, c)
		}
	}
	for _, c := range schema.Columns() {
		if !expected.Has(c) {
			r.ExtraColumns = append(r.ExtraColumns, c)
		}
	}
	if n := len(r.MissingColumns); n > 0 {
		r.Warnings = append(r.Warnings, "missing columns: "+strings.Join(firstN(r.MissingColumns, 5), ", "))
		if n > 5 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("... and %d more missing columns", n-5))
		}
	}
	if len(r.ExtraColumns) > 0 {
		r.Warnings = append(r.Warnings, "extra columns found: "+strings.Join(firstN(r.ExtraColumns, 5), ", "))
	}
	r.Stats.ColumnMatch = len(r.MissingColumns) == 0 && len(r.ExtraColumns) == 0
}

// checkTotals 表头汇总金额与明细合计核对
func (r *Report) checkTotals(entry *model.CanonicalEntry, rows []model.OutputRow, opts Options) {
	header := rows[0]

	if declared, ok := amount(header, model.ColTotalsDuty); ok {
		sum := decimal.Zero
		for _, row := range rows {
			if isFeeRow(row) {
				continue
			}
			if d, ok := amount(row, model.ColDutyAndTaxes); ok {
				sum = sum.Add(d)
			}
		}
		r.addCheck("duty_total", declared, sum, opts.Tolerance,
			"line duty total %s differs from declared total duty %s")
	}

	mpf, hasMPF := amount(header, model.ColMPFAmount)
	if hasMPF {
		sum := decimal.Zero
		seen := false
		for _, row := range rows {
			if d, ok := amount(row, model.ColMPFFee); ok {
				sum = sum.Add(d)
				seen = true
			}
		}
		if seen {
			r.addCheck("mpf_total", mpf, sum, opts.Tolerance,
				"line MPF total %s differs from declared MPF amount %s")
		}
		if mpf.IsPositive() && (mpf.LessThan(opts.MPFMinimum) || mpf.GreaterThan(opts.MPFMaximum)) {
			r.Checks = append(r.Checks, Check{
				Name:     "mpf_bounds",
				Expected: opts.MPFMinimum.StringFixed(2) + "-" + opts.MPFMaximum.StringFixed(2),
				Actual:   mpf.StringFixed(2),
			})
			r.Warnings = append(r.Warnings, fmt.Sprintf("MPF amount %s outside %s-%s",
				mpf.StringFixed(2), opts.MPFMinimum.StringFixed(2), opts.MPFMaximum.StringFixed(2)))
		}
	}

	if entry != nil {
		if declared, ok := amount(header, model.ColTotalEnteredValue); ok {
			sum, seen := enteredValueTotal(entry)
			if seen {
				r.addCheck("entered_value_total", declared, sum, decimal.NewFromInt(1),
					"classified entered value %s differs from declared total %s")
			}
		}
	}
}

func (r *Report) addCheck(name string, declared, actual, tolerance decimal.Decimal, format string) {
	passed := declared.Sub(actual).Abs().LessThanOrEqual(tolerance)
	r.Checks = append(r.Checks, Check{
		Name:     name,
		Expected: declared.StringFixed(2),
		Actual:   actual.StringFixed(2),
		Passed:   passed,
	})
	if !passed {
		r.Warnings = append(r.Warnings, fmt.Sprintf(format, actual.StringFixed(2), declared.StringFixed(2)))
	}
}

// enteredValueTotal 各明细 primary_hts 的申报货值合计（99 章附加税号不计货值）
func enteredValueTotal(entry *model.CanonicalEntry) (decimal.Decimal, bool) {
	sum := decimal.Zero
	seen := false
	for _, item := range entry.ItemObjects() {
		primary, ok := item.Get("primary_hts")
		if !ok {
			continue
		}
		h, ok := model.ClassificationFrom(primary)
		if !ok || h.IsChapter99() {
			continue
		}
		sum = sum.Add(h.EnteredValue)
		seen = true
	}
	return sum, seen
}

// isFeeRow MPF/HMF 费用行不计入关税合计
func isFeeRow(row model.OutputRow) bool {
	if code, ok := row.Get(model.ColMPFCodeRef); ok {
		if _, fee := model.LookupFeeCode(code.Text()); fee {
			return true
		}
	}
	if _, fee := model.LookupFeeCode(row.Text(model.ColHTSCode)); fee {
		return true
	}
	duty, okDuty := row.Get(model.ColDutyAndTaxes)
	mpf, okMPF := row.Get(model.ColMPFFee)
	return okDuty && okMPF && duty.Equal(mpf)
}

func amount(row model.OutputRow, column string) (decimal.Decimal, bool) {
	v, ok := row.Get(column)
	if !ok || v.IsNull() || v.Text() == "" {
		return decimal.Zero, false
	}
	return v.Decimal()
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
