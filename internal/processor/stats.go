package processor

// ColumnStats summarizes one column of the processed data. Min, Max and Avg
// are nil when the column has no numeric values.
type ColumnStats struct {
	Column  string   `json:"column"`
	Count   int      `json:"count"`
	Unique  int      `json:"unique"`
	Numeric bool     `json:"numeric"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Avg     *float64 `json:"avg"`
}

// ColumnStats counts the non-empty cells of column and, over the cells that
// are numeric, reports min, max and average.
func (p *Processor) ColumnStats(column string) ColumnStats {
	stats := ColumnStats{Column: column}
	seen := make(map[string]struct{})
	var numeric []float64

	for _, row := range p.processedData {
		v := row.Get(column)
		if v.IsNull() || (v.Kind() == KindString && v.String() == "") {
			continue
		}
		stats.Count++
		seen[v.key()] = struct{}{}
		if f, ok := v.Numeric(); ok {
			numeric = append(numeric, f)
		}
	}
	stats.Unique = len(seen)

	if len(numeric) == 0 {
		return stats
	}
	stats.Numeric = true
	lo, hi := numeric[0], numeric[0]
	for _, f := range numeric[1:] {
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
	}
	avg := sum(numeric) / float64(len(numeric))
	stats.Min, stats.Max, stats.Avg = &lo, &hi, &avg
	return stats
}
