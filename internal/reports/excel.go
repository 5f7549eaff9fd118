package reports

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelSheetName is the single sheet emitted by the spreadsheet export.
const ExcelSheetName = "Expenses"

// WriteExcel emits a single-sheet workbook: row 1 is the bolded header, each
// following row is one record. Every cell is written as a string, amounts
// included; the output deliberately drops numeric typing.
func WriteExcel(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExcelSheetName); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for col, name := range Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(ExcelSheetName, cell, name); err != nil {
			return err
		}
		if err := f.SetCellStyle(ExcelSheetName, cell, cell, bold); err != nil {
			return err
		}
	}

	for i, row := range rows {
		values := []string{
			formatAmount(row.Amount),
			row.Description,
			row.Category,
			formatDate(row.Date),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(ExcelSheetName, cell, value); err != nil {
				return err
			}
		}
	}

	_, err = f.WriteTo(w)
	return err
}
