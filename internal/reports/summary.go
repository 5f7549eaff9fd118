package reports

// SummarizeByCategory groups rows by their category label and sums the
// amounts per label. Rows are expected to be pre-filtered to the aggregation
// window; labels with no rows are simply absent. An empty input yields an
// empty, non-nil map.
func SummarizeByCategory(rows []Row) map[string]float64 {
	totals := make(map[string]float64)
	for _, row := range rows {
		totals[row.Category] += row.Amount
	}
	return totals
}
