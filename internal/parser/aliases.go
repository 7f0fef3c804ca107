package parser

import (
	"strings"

	"entrysummary/internal/model"
	"entrysummary/internal/payload"
)

// Alias 规范字段：按优先级排列的来源字段名，首个存在且非 null 的标量胜出
type Alias struct {
	Key     string // 规范键名，FREE 归一化按键名判断
	Column  string
	Sources []string
}

// AliasTable 规范字段表，按顺序映射
type AliasTable []Alias

// Columns 表中涉及的导出列
func (t AliasTable) Columns() []string {
	out := make([]string, 0, len(t))
	for _, a := range t {
		out = append(out, a.Column)
	}
	return out
}

// Lookup 按别名顺序查找：跳过缺失、null 以及对象/列表值
func Lookup(obj *payload.Object, sources ...string) (payload.Value, string, bool) {
	for _, src := range sources {
		v, ok := obj.Get(src)
		if !ok || !v.IsScalar() {
			continue
		}
		return v, src, true
	}
	return payload.Null(), "", false
}

// FreeRule 字面量 FREE 的归一化：税率键保留 FREE，税额/金额键转为数值 0.00
func FreeRule(key string, v payload.Value) payload.Value {
	s, ok := v.Str()
	if !ok || !strings.EqualFold(strings.TrimSpace(s), model.RateFree) {
		return v
	}
	switch {
	case strings.Contains(key, "rate"):
		return payload.String(model.RateFree)
	case strings.Contains(key, "duty"), strings.Contains(key, "amount"):
		return zeroAmount()
	}
	return v
}

func zeroAmount() payload.Value {
	return payload.Number("0.00")
}

// HeaderAliases 表头字段（entry_summary 顶层）
var HeaderAliases = AliasTable{
	{"shipment_id", model.ColShipmentID, []string{"shipment_id", "shipment_number"}},
	{"entry_number", model.ColEntryNumber, []string{"filer_code_entry_no", "filer_code_entry_number", "entry_number", "entry_no"}},
	{"entry_type", model.ColEntryType, []string{"entry_type", "type"}},
	{"summary_date", model.ColSummaryDate, []string{"summary_date", "filing_date"}},
	{"surety_number", model.ColSuretyNumber, []string{"surety_number", "surety_no"}},
	{"bond_type", model.ColBondType, []string{"bond_type"}},
	{"port_of_entry", model.ColPortOfEntry, []string{"port_code", "port_of_entry", "entry_port"}},
	{"entry_date", model.ColEntryDate, []string{"entry_date"}},
	{"transport_name", model.ColTransportName, []string{"transport_name"}},
	{"carrier_name", model.ColCarrierName, []string{"importing_carrier", "carrier_name", "carrier"}},
	{"scac_code", model.ColSCACCode, []string{"scac_code", "scac"}},
	{"voyage_number", model.ColVoyageNumber, []string{"voyage_number", "voyage_no", "voyage"}},
	{"mode_of_transport", model.ColModeOfTransport, []string{"mode_of_transport", "transport_mode"}},
	{"country_of_origin", model.ColCountryOfOrigin, []string{"country_of_origin", "origin_country"}},
	{"import_date", model.ColImportDate, []string{"import_date"}},
	{"master_bol_number", model.ColMasterBOLNumber, []string{"bl_awb_no", "bl_awb_number", "b_l_or_awb_no", "master_bol", "bol_awb_no"}},
	{"manufacturer_id_header", model.ColHeaderMfrID, []string{"manufacturer_id"}},
	{"export_country", model.ColExportCountry, []string{"exporting_country", "export_country"}},
	{"export_date", model.ColExportDate, []string{"export_date"}},
	{"it_number", model.ColITNumber, []string{"it_number", "it_no"}},
	{"it_date", model.ColITDate, []string{"it_date"}},
	{"missing_docs", model.ColMissingDocs, []string{"missing_docs", "missing_documents"}},
	{"port_of_lading", model.ColPortOfLading, []string{"port_of_lading", "lading_port", "foreign_port_of_lading"}},
	{"port_of_unlading", model.ColPortOfUnlading, []string{"us_port_of_unlading", "port_of_unlading", "unlading_port"}},
	{"location_firms_code", model.ColLocationFirmsCode, []string{"location_of_goods", "location_of_goods_go_number", "location_code", "firms_code"}},
	{"consignee_id", model.ColConsigneeID, []string{"consignee_no", "consignee_number", "consignee_id"}},
	{"importer_id", model.ColImporterID, []string{"importer_no", "importer_number", "importer_id"}},
	{"ref_number", model.ColRefNumber, []string{"ref_number", "reference_number"}},
	{"consignee_name", model.ColConsigneeName, []string{"ultimate_consignee_name", "ultimate_consignee_name_address", "consignee_name"}},
	{"importer_name", model.ColImporterName, []string{"importer_of_record_name", "importer_of_record_name_address", "importer_name"}},
	{"total_entered_value", model.ColTotalEnteredValue, []string{"total_entered_value", "entered_value_usd", "total_value"}},
	{"totals_duty", model.ColTotalsDuty, []string{"duty", "total_duty"}},
	{"totals_tax", model.ColTotalsTax, []string{"tax", "total_tax"}},
	{"mpf_amount", model.ColMPFAmount, []string{"mpf_amount", "mpf", "merchandise_processing_fee_total"}},
	{"cotton_amount", model.ColCottonAmount, []string{"cotton_amount", "cotton_fee"}},
	{"total_other_fees", model.ColTotalOtherFees, []string{"other", "other_fees", "total_other_fees"}},
	{"duty_grand_total", model.ColDutyGrandTotal, []string{"total", "grand_total"}},
	{"declarant_name", model.ColDeclarantName, []string{"declarant_name"}},
	{"broker_name", model.ColBrokerName, []string{"broker_filer_information", "broker_name"}},
	{"broker_code", model.ColBrokerCode, []string{"broker_importer_file_no", "broker_importer_file_number", "broker_code"}},
	{"hmf_rate_header", model.ColHeaderHMFRate, []string{"hmf_rate", "harbor_maintenance_fee_rate"}},
	{"hmf_fee_header", model.ColHeaderHMFFee, []string{"hmf_fee", "hmf", "harbor_maintenance_fee"}},
}

// LineAliases 明细行标量字段
var LineAliases = AliasTable{
	{"hts_code", model.ColHTSCode, []string{"htsus_no", "hts_code", "hts", "hs_code", "hts_us_no", "hts_code_a"}},
	{"hts_description", model.ColHTSDescription, []string{"description", "hts_description", "item_description", "desc", "description_of_merchandise", "product_description"}},
	{"part_number", model.ColPartNumber, []string{"part_number", "part_no", "item_no", "party_number", "item_number", "p_n"}},
	{"invoice_no", model.ColInvoiceNo, []string{"invoice_number", "invoice_no"}},
	{"po_number", model.ColPONumber, []string{"po_number", "po_no", "purchase_order"}},
	{"manufacturer_id", model.ColManufacturerID, []string{"manufacturer_id", "mfg_id"}},
	{"entered_value", model.ColEnteredValue, []string{"entered_value", "value", "entered_val", "amount", "entered_value_a"}},
	{"pack_qty_1", model.ColPackQty1, []string{"gross_weight", "weight", "wt", "qty1", "grossweight_a"}},
	{"pack_type_1", model.ColPackType1, []string{"weight_unit", "wt_unit", "unit1", "net_quantity_in_htsus_units"}},
	{"pack_qty_2", model.ColPackQty2, []string{"quantity", "qty", "qty2"}},
	{"pack_type_2", model.ColPackType2, []string{"qty_unit", "unit", "unit2"}},
	{"relationship", model.ColRelationship, []string{"relationship", "rel", "related"}},
	{"item_charges", model.ColItemCharges, []string{"charges", "charge_code", "chgs", "chgs_b", "charge_type"}},
	{"hts_rate", model.ColHTSRate, []string{"htsus_rate", "hts_rate", "duty_rate", "rate", "hts_us_rate", "hts_us_a_rate"}},
	{"duty_and_taxes", model.ColDutyAndTaxes, []string{"duty_and_ir_tax", "duty_and_tax", "total_duty", "duty", "duty_amount", "duty_and_ir_tax_dollars", "duty_and_ir_tax_cents"}},
	{"item_country_of_origin", model.ColItemCountry, []string{"country_of_origin", "origin_country"}},
	{"item_export_country", model.ColItemExportCountry, []string{"export_country", "exporting_country"}},
	{"invoice_amount", model.ColInvoiceAmount, []string{"invoice_amount", "invoice_value"}},
	{"recon_value", model.ColReconValue, []string{"recon_value", "reconciliation_value"}},
	{"textile_category", model.ColTextileCategory, []string{"textile_category", "textile_cat"}},
	{"mpf_rate", model.ColMPFRate, []string{"mpf_rate", "merchandise_processing_fee_rate"}},
	{"mpf_fee", model.ColMPFFee, []string{"mpf_fee", "mpf", "merchandise_processing_fee_tax", "merchandise_processing_fee"}},
	{"free_trade", model.ColFreeTrade, []string{"free_trade", "free_trade_agreement", "fta", "spi", "spi_code"}},
	{"bol_number", model.ColBOLNumber, []string{"bol_number", "bol_no", "bill_of_lading", "b_l_no"}},
	{"items_description", model.ColItemsDescription, []string{"items_description", "merchandise_description", "item_desc"}},
	{"total_pack_qty", model.ColTotalPackQty, []string{"total_pack_qty", "total_quantity", "total_qty"}},
	{"total_pack_type", model.ColTotalPackType, []string{"total_pack_type", "total_pack_unit", "total_unit"}},
	{"value_addition", model.ColValueAddition, []string{"value_addition", "value_addition_amount", "added_value"}},
	{"total_invoice_amount", model.ColTotalInvoiceAmt, []string{"total_invoice_amount", "total_invoice_value", "invoice_total"}},
	{"first_sale", model.ColFirstSale, []string{"first_sale", "first_sale_price"}},
	{"cotton_fee_rate", model.ColCottonFeeRate, []string{"cotton_fee_rate", "cotton_rate"}},
	{"cotton_fee_amount", model.ColCottonFeeAmount, []string{"cotton_fee_amount", "cotton_fee", "cotton"}},
	{"specific_rate", model.ColSpecificRate, []string{"specific_rate", "specific_duty_rate"}},
	{"specific_duty", model.ColSpecificDuty, []string{"specific_duty", "specific_duty_amount"}},
}

// ClassificationAliases 税则分类（primary_hts / additional_hts_codes / hts_classifications 元素）
var ClassificationAliases = AliasTable{
	{"hts_code", model.ColHTSCode, []string{"htsus_no", "hts_code", "hts", "hs_code"}},
	{"hts_description", model.ColHTSDescription, []string{"description", "hts_description"}},
	{"hts_rate", model.ColHTSRate, []string{"htsus_rate", "hts_rate", "duty_rate", "rate"}},
	{"ad_valorem_duty", model.ColAdValoremDuty, []string{"ad_valorem_duty", "duty"}},
	{"duty_and_taxes", model.ColDutyAndTaxes, []string{"duty_and_ir_tax", "duty_and_tax", "total_duty", "duty", "duty_amount"}},
	{"entered_value", model.ColEnteredValue, []string{"entered_value", "value", "entered_val", "amount"}},
	{"cotton_fee_rate", model.ColCottonFeeRate, []string{"cotton_fee_rate", "cotton_rate"}},
	{"cotton_fee_amount", model.ColCottonFeeAmount, []string{"cotton_fee", "cotton", "cotton_fee_amount"}},
	{"mpf_fee", model.ColMPFFee, []string{"mpf_fee", "mpf"}},
	{"mpf_rate", model.ColMPFRate, []string{"mpf_rate", "merchandise_processing_fee_rate"}},
	{"hmf_fee", model.ColHMFFee, []string{"hmf_fee", "hmf"}},
	{"hmf_rate", model.ColHMFRate, []string{"hmf_rate", "harbor_maintenance_fee_rate"}},
	{"specific_rate", model.ColSpecificRate, []string{"specific_rate", "specific_duty_rate"}},
	{"specific_duty", model.ColSpecificDuty, []string{"specific_duty", "specific_duty_amount"}},
}

// 嵌套费用对象（mpf / fees.mpf、hmf / fees.hmf）内的字段名
var (
	mpfAmountKeys = []string{"mpf_amount", "amount"}
	mpfRateKeys   = []string{"mpf_hts_rate", "mpf_rate", "rate"}
	mpfCodeKeys   = []string{"mpf_hts_code", "hts_code"}
	hmfAmountKeys = []string{"hmf_amount", "amount"}
	hmfRateKeys   = []string{"hmf_rate", "rate"}
)

// 明细行上平铺的 MPF 字段
var (
	flatMPFAmountKeys = []string{"mpf_amount", "mpf", "merchandise_processing_fee", "merchandise_processing_fee_tax"}
	flatMPFRateKeys   = []string{"mpf_rate", "merchandise_processing_fee_rate"}
	flatMPFCodeKeys   = []string{"mpf_hts_code", "mpf_hts", "merchandise_processing_fee_hts"}
)

var (
	lineNumberKeys  = []string{"line_number", "line_no", "line_item_number"}
	descriptionKeys = []string{"description_of_merchandise", "description"}
	itemHTSKeys     = []string{"htsus_no", "a_htsus_no", "hts_code", "hts_us_no"}
	primaryHTSKeys  = []string{"hts_code", "htsus_no"}
	addressKeys     = []string{"address", "city", "state", "zip"}
)
