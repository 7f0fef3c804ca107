package exporter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"entrysummary/internal/model"
	"entrysummary/internal/payload"
)

// ErrNoRows 没有可导出的行
var ErrNoRows = errors.New("no rows to export")

// DefaultSheetName 默认工作表名
const DefaultSheetName = "Entry Summary"

// Options 导出选项
type Options struct {
	SheetName string
	Schema    model.Schema
	Progress  func(ProgressEvent)
}

func (o Options) withDefaults() Options {
	if o.SheetName == "" {
		o.SheetName = DefaultSheetName
	}
	if o.Schema.Len() == 0 {
		o.Schema = model.DefaultSchema()
	}
	return o
}

// Build 生成工作簿：首行为列名，其后每个 OutputRow 一行，缺失单元格写空串
func Build(rows []model.OutputRow, opts Options) (*excelize.File, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	opts = opts.withDefaults()
	columns := opts.Schema.Columns()

	reportProgress(opts.Progress, 5, StageHeader)

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", opts.SheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("设置工作表名失败: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(opts.SheetName, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("写入表头失败: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("创建表头样式失败: %w", err)
	}
	if err := f.SetRowStyle(opts.SheetName, 1, 1, headerStyle); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("设置表头样式失败: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		values := cellValues(row, opts.Schema)
		if err := f.SetSheetRow(opts.SheetName, cell, &values); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("写入第 %d 行失败: %w", i+2, err)
		}
		if (i+1)%200 == 0 {
			reportProgress(opts.Progress, 10+80*(i+1)/len(rows), StageRows)
		}
	}

	last, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	_ = f.SetColWidth(opts.SheetName, "A", last, 22)
	_ = f.SetPanes(opts.SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	reportProgress(opts.Progress, 95, StageRows)
	f.SetActiveSheet(0)
	return f, nil
}

func cellValues(row model.OutputRow, schema model.Schema) []interface{} {
	values := row.Values(schema)
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v.Text()
	}
	return out
}

// WriteExcel 导出为 xlsx 写入 w
func WriteExcel(w io.Writer, rows []model.OutputRow, opts Options) error {
	f, err := Build(rows, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写出工作簿失败: %w", err)
	}
	reportProgress(opts.Progress, 100, StageDone)
	return nil
}

// ExcelBytes 导出为 xlsx 字节
func ExcelBytes(rows []model.OutputRow, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteExcel(&buf, rows, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveExcel 导出为 xlsx 文件，父目录不存在时创建
func SaveExcel(path string, rows []model.OutputRow, opts Options) error {
	f, err := Build(rows, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存 %s 失败: %w", path, err)
	}
	reportProgress(opts.Progress, 100, StageDone)
	return nil
}

// WriteJSON 以 JSON 数组输出，每行是按列顺序排列的完整对象
func WriteJSON(w io.Writer, rows []model.OutputRow, schema model.Schema) error {
	if schema.Len() == 0 {
		schema = model.DefaultSchema()
	}
	items := make([]payload.Value, 0, len(rows))
	for _, row := range rows {
		items = append(items, payload.Obj(row.Record(schema)))
	}
	data, err := payload.List(items...).MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
