package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
)

// SheetName is the only worksheet of an exported workbook.
const SheetName = "Transactions"

// EncodeXLSX renders records as a single-sheet workbook. Missing fields are
// empty cells; finite amounts are numeric cells and string amounts are kept
// as text.
func EncodeXLSX(records []models.TransactionRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "D1", bold); err != nil {
		return nil, fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "D", 20); err != nil {
		return nil, fmt.Errorf("sizing columns: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		row := []interface{}{
			r.TransactionID.String(),
			r.Date.String(),
			r.Description.String(),
			amountCell(r.Amount),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialising workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func amountCell(a models.Amount) interface{} {
	if a.Finite() {
		v, _ := a.Float()
		return v
	}
	if a.Present() && !a.IsNumber() {
		return a.Raw()
	}
	return ""
}
