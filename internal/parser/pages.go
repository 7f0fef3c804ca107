package parser

import (
	"strings"

	"entrysummary/internal/model"
	"entrysummary/internal/payload"
)

// fromPages 分页形态：第 1 页提供表头、汇总、报关行与申报人信息及首批明细，其余页只提供明细
func fromPages(pages []payload.Value, report *ShapeReport) *model.CanonicalEntry {
	entry := model.NewCanonicalEntry()
	report.Shape = ShapePages
	report.Pages = len(pages)

	for _, p := range pages {
		page, ok := p.Object()
		if !ok {
			continue
		}
		content := page
		if c, ok := page.Object("content"); ok {
			content = c
		}

		if isFirstPage(page) {
			mergeFirstPage(entry, content)
			continue
		}

		v, _, _ := firstPresent(content, "items", "line_items", "merchandise_details")
		if items, ok := v.Items(); ok {
			entry.LineItems = append(entry.LineItems, items...)
		}
	}
	return entry
}

func isFirstPage(page *payload.Object) bool {
	v, _, ok := firstPresent(page, "page_number", "page")
	if !ok {
		return false
	}
	switch v.Kind() {
	case payload.KindNumber:
		d, ok := v.Decimal()
		return ok && d.IntPart() == 1 && d.IsInteger()
	case payload.KindString:
		s, _ := v.Str()
		return s == "1"
	}
	return false
}

func mergeFirstPage(entry *model.CanonicalEntry, content *payload.Object) {
	header := entry.Header

	if v, _, ok := firstPresent(content, "header_information", "header"); ok {
		if info, ok := v.Object(); ok {
			header.Update(info)
		}
	}

	if summary, ok := content.Object("summary"); ok && summary.Len() > 0 {
		if totals, ok := summary.Object("totals"); ok {
			header.Update(totals)
		}
		if v, ok := summary.Get("total_entered_value"); ok {
			header.Set("total_entered_value", v)
		}
		if fees, ok := summary.Items("other_fee_summary"); ok {
			for _, f := range fees {
				fee, ok := f.Object()
				if !ok {
					continue
				}
				if strings.Contains(textOf(fee, "description"), "Merchandise Process") {
					header.Set("mpf_amount", fee.Value("amount"))
				}
			}
		}
	}

	if v, _, ok := firstPresent(content, "broker_filer_information", "broker"); ok && v.Truthy() {
		if broker, ok := v.Object(); ok {
			header.Set("broker_name", broker.Value("name"))
			header.Set("broker_code", broker.Value("broker_importer_file_no"))
		}
	}

	if v, _, ok := firstPresent(content, "declaration_information", "declarant"); ok && v.Truthy() {
		if decl, ok := v.Object(); ok {
			header.Set("declarant_name", decl.Value("declarant_name"))
		}
	}

	if v, _, ok := firstPresent(content, "merchandise_details", "line_items"); ok {
		if items, ok := v.Items(); ok {
			entry.LineItems = append(entry.LineItems, items...)
		}
	}
}
