package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/dataflow/internal/core"
)

// defaultSheet is the sheet excelize creates in a new workbook.
const defaultSheet = "Sheet1"

// EncodeSpreadsheet writes records to a single-sheet workbook.
//
// The header row holds the export labels of every exported field in schema
// order and is bold. Each record becomes one row in input order: numbers are
// numeric cells, dates are text in opts.DateLayout, absent values are empty.
func EncodeSpreadsheet(records []core.Record, schema *core.Schema, opts Options) ([]byte, error) {
	if len(records) == 0 {
		return nil, core.ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := schema.Export.SheetName
	if sheet == "" {
		sheet = defaultSheet
	}
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}

	refs := schema.ExportRefs()
	header := make([]interface{}, len(refs))
	for i, ref := range refs {
		header[i] = schema.Field(ref).HeaderLabel()
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	layout := opts.dateLayout()
	row := make([]interface{}, len(refs))
	for i, r := range records {
		for j, ref := range refs {
			row[j] = spreadsheetCell(r.Get(ref), layout)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// spreadsheetCell converts a value to the type excelize stores natively.
func spreadsheetCell(v core.Value, dateLayout string) interface{} {
	if !v.Valid() {
		return nil
	}
	if n, ok := v.Number(); ok {
		return n
	}
	return formatCell(v, dateLayout)
}
