package exports

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"batchledger/infrastructure/ledger"
)

// WriteXLSX renders rows into a single-sheet workbook.
func WriteXLSX(rows []ledger.ExportRow) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, 0, len(Header))
	for _, h := range Header {
		header = append(header, h)
	}
	if err := xl.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := xl.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := xl.SetCellStyle(SheetName, "A1", "F1", bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, r := range rows {
		record := []any{
			r.BatchNumber,
			r.SKUCode,
			r.SKUName,
			r.Quantity,
			r.CreatedAt.Format(dateLayout),
			r.CreatedAt.Format(timeLayout),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(SheetName, cell, &record); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := xl.SetColWidth(SheetName, "A", "C", 22); err != nil {
		return nil, err
	}
	if err := xl.SetColWidth(SheetName, "D", "F", 14); err != nil {
		return nil, err
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
