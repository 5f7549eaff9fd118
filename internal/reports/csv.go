package reports

import (
	"encoding/csv"
	"io"
)

// WriteCSV emits the header line followed by one line per row, fields in
// Columns order. Field quoting follows RFC 4180 via encoding/csv; content
// never fails the export, only writer I/O errors do.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			formatAmount(row.Amount),
			row.Description,
			row.Category,
			formatDate(row.Date),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
