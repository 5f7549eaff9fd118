// Package reports turns a user's full record set into the summary and the
// downloadable report formats (CSV, spreadsheet, PDF). Exporters share one
// input contract and receive rows already ordered the way the store returned
// them.
package reports

import (
	"strconv"
	"time"
)

// Row is the exporter input contract: one record, flattened. Income exports
// would carry the source label in Category; only expenses are exported today.
type Row struct {
	Amount      float64
	Description string
	Category    string
	Date        time.Time
}

// Columns is the fixed export column order.
var Columns = []string{"Amount", "Description", "Category", "Date"}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
