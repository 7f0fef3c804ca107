package model

// 7501 导出表的 80 个固定列（CS 汇总 / CM 商品 / CD 关税），列名与顺序为下游消费方的兼容契约，不可改动。
const (
	ColShipmentID        = "CS Shipment ID"
	ColEntryNumber       = "1. CS Entry Number"
	ColEntryType         = "2. CS Entry Type"
	ColSummaryDate       = "3. CS Summary Date"
	ColSuretyNumber      = "4. CS Surety Number"
	ColBondType          = "5. CS Bond Type"
	ColPortOfEntry       = "6. CS Port Of Entry"
	ColEntryDate         = "7. CS Entry Date"
	ColTransportName     = "8. CS Transport Name"
	ColCarrierName       = "8. CS Carrier Name"
	ColSCACCode          = "8. CS SCAC Code"
	ColVoyageNumber      = "8. CS Voyage Number"
	ColModeOfTransport   = "9. CS Mode Of Transport"
	ColCountryOfOrigin   = "10. CS Country Of Origin"
	ColImportDate        = "11. CS Import Date"
	ColMasterBOLNumber   = "12. CS Master BOL Number"
	ColHeaderMfrID       = "13. CS Manufacturer ID"
	ColExportCountry     = "14. CS Export Country"
	ColExportDate        = "15. CS Export Date"
	ColITNumber          = "16. CS IT Number"
	ColITDate            = "17. CS IT Date"
	ColMissingDocs       = "18. CS Missing Docs"
	ColPortOfLading      = "19. CS Port Of Lading"
	ColPortOfUnlading    = "20. CS Port Of Unlading"
	ColLocationFirmsCode = "21. CS Location Firms Code"
	ColConsigneeID       = "22. CS Consignee ID"
	ColImporterID        = "23. CS Importer ID"
	ColRefNumber         = "24. CS Ref Number"
	ColConsigneeName     = "25. CS Consignee Name"
	ColImporterName      = "26. CS Importer Name"

	ColItemNumber        = "27. CM Item Number"
	ColItemCountry       = "27. CM Country Of Origin"
	ColItemExportCountry = "27. CM Export Country Code"
	ColFreeTrade         = "27. CM Free Trade"
	ColBOLNumber         = "28. CS BOL Number"
	ColItemsDescription  = "28. CS Items Description"
	ColInvoiceNo         = "28. CM Invoice No"
	ColPONumber          = "28. CM PO Number"
	ColManufacturerID    = "28. CM Manufacturer ID"
	ColReconValue        = "28. CM Recon Value"
	ColTextileCategory   = "28. CM Textile Category"
	ColTotalPackQty      = "28. CM Total Pack Qty"
	ColTotalPackType     = "28. CM Total Pack Type"
	ColPartNumber        = "28. CM Part Number"
	ColInvoiceAmount     = "28. CM Invoice Amount"
	ColValueAddition     = "28. CM Value Addition Amount"
	ColTotalInvoiceAmt   = "28. CM Total Invoice Amount"

	ColHTSCode        = "29. CD HTS US Code"
	ColHTSDescription = "29. CD HTS Description"

	ColPackType2 = "31. CM Item Pack Type 2"
	ColPackQty2  = "31. CM Item Pack Qty 2"
	ColPackType1 = "31. CM Item Pack Type 1"
	ColPackQty1  = "31. CM Item Pack Qty 1"

	ColRelationship  = "32. CM Relationship"
	ColItemCharges   = "32. CM Item Charges"
	ColEnteredValue  = "32. CM Item Entered Value"
	ColFirstSale     = "32. CM First Sale"
	ColHeaderHMFRate = "33. CS HMF Rate"
	ColHeaderHMFFee  = "33. CS HMF Fee"

	ColHTSRate         = "33. CD HTS US Rate"
	ColAdValoremDuty   = "34. CD Ad Valorem Duty"
	ColCottonFeeRate   = "33. CD Cotton Fee Rate"
	ColCottonFeeAmount = "34. CD Cotton Fee Amount"
	ColMPFRate         = "33. CD MPF Rate"
	ColMPFFee          = "34. CD MPF Fee"
	ColHMFRate         = "33. CD HMF Rate"
	ColHMFFee          = "34. CD HMF Fee"
	ColSpecificRate    = "33. CD Specific Rate"
	ColSpecificDuty    = "34. CD Specific Duty"
	ColDutyAndTaxes    = "34. CD Duty And Taxes"

	ColTotalEnteredValue = "35. CS Total Entered Value"
	ColTotalsDuty        = "37. CS Totals Duty"
	ColTotalsTax         = "38. CS Totals Tax"
	ColMPFAmount         = "39. CS MPF Amount"
	ColCottonAmount      = "39. CS Cotton Amount"
	ColTotalOtherFees    = "39. CS Total Other Fees"
	ColDutyGrandTotal    = "40. CS Duty Grand Total"
	ColDeclarantName     = "41. CS Declarant Name"
	ColBrokerName        = "42. CS Broker Name"
	ColBrokerCode        = "43. CS Broker Code"
)

// ColMPFCodeRef MPF 行携带的非 10 位编码（如 499），仅作参考，不导出
const ColMPFCodeRef = "29. CD HTS US Code (MPF)"

// Columns 导出列顺序
var Columns = []string{
	ColShipmentID, ColEntryNumber, ColEntryType, ColSummaryDate,
	ColSuretyNumber, ColBondType, ColPortOfEntry, ColEntryDate,
	ColTransportName, ColCarrierName, ColSCACCode, ColVoyageNumber,
	ColModeOfTransport, ColCountryOfOrigin, ColImportDate,
	ColMasterBOLNumber, ColHeaderMfrID, ColExportCountry,
	ColExportDate, ColITNumber, ColITDate, ColMissingDocs,
	ColPortOfLading, ColPortOfUnlading, ColLocationFirmsCode,
	ColConsigneeID, ColImporterID, ColRefNumber,
	ColConsigneeName, ColImporterName, ColItemNumber,
	ColItemCountry, ColItemExportCountry, ColFreeTrade,
	ColBOLNumber, ColItemsDescription, ColInvoiceNo, ColPONumber,
	ColManufacturerID, ColReconValue, ColTextileCategory,
	ColTotalPackQty, ColTotalPackType, ColPartNumber,
	ColInvoiceAmount, ColValueAddition, ColTotalInvoiceAmt,
	ColHTSCode, ColHTSDescription, ColPackType2,
	ColPackQty2, ColPackType1, ColPackQty1,
	ColRelationship, ColItemCharges, ColEnteredValue,
	ColFirstSale, ColHeaderHMFRate, ColHeaderHMFFee, ColHTSRate,
	ColAdValoremDuty, ColCottonFeeRate, ColCottonFeeAmount,
	ColMPFRate, ColMPFFee, ColHMFRate, ColHMFFee,
	ColSpecificRate, ColSpecificDuty, ColDutyAndTaxes,
	ColTotalEnteredValue, ColTotalsDuty, ColTotalsTax,
	ColMPFAmount, ColCottonAmount, ColTotalOtherFees,
	ColDutyGrandTotal, ColDeclarantName, ColBrokerName,
	ColBrokerCode,
}

// ColumnCount 固定列数
const ColumnCount = 80

// Schema 列集合，按顺序保存并支持快速查询
type Schema struct {
	columns []string
	index   map[string]int
}

// NewSchema 创建列集合
func NewSchema(columns []string) Schema {
	s := Schema{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		s.index[c] = i
	}
	return s
}

// DefaultSchema 默认 80 列
func DefaultSchema() Schema {
	return NewSchema(Columns)
}

// Columns 列名（按顺序）
func (s Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Len 列数
func (s Schema) Len() int { return len(s.columns) }

// Has 是否包含列
func (s Schema) Has(column string) bool {
	_, ok := s.index[column]
	return ok
}

// Index 列序号，不存在返回 -1
func (s Schema) Index(column string) int {
	if i, ok := s.index[column]; ok {
		return i
	}
	return -1
}
