package processor

import "math"

// groupRecords partitions rows by the string form of column and emits one
// row per group, in order of first appearance. Null and absent keys form
// their own group whose key stays null.
func groupRecords(rows []Record, column string, aggs Aggregations) []Record {
	type group struct {
		key  Value
		rows []Record
	}

	index := make(map[string]*group)
	var order []*group
	for _, row := range rows {
		cell := row.Get(column)
		k := "\x00null"
		key := Null()
		if !cell.IsNull() {
			k = cell.String()
			key = String(k)
		}
		g, ok := index[k]
		if !ok {
			g = &group{key: key}
			index[k] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, row)
	}

	out := make([]Record, 0, len(order))
	for _, g := range order {
		result := Record{column: g.key}
		for aggCol, fn := range aggs {
			if v, ok := aggregate(g.rows, aggCol, fn); ok {
				result[aggCol] = v
			}
		}
		out = append(out, result)
	}
	return out
}

// aggregate computes fn over the numeric cells of column. Count counts rows
// regardless of their content. Unknown functions produce no value.
func aggregate(rows []Record, column string, fn AggFunc) (Value, bool) {
	if fn == AggCount {
		return Number(float64(len(rows))), true
	}

	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if f := row.Get(column).Float(); !math.IsNaN(f) {
			values = append(values, f)
		}
	}

	switch fn {
	case AggSum:
		return Number(sum(values)), true
	case AggAvg:
		if len(values) == 0 {
			return Null(), true
		}
		return Number(sum(values) / float64(len(values))), true
	case AggMin:
		if len(values) == 0 {
			return Null(), true
		}
		m := values[0]
		for _, v := range values[1:] {
			m = math.Min(m, v)
		}
		return Number(m), true
	case AggMax:
		if len(values) == 0 {
			return Null(), true
		}
		m := values[0]
		for _, v := range values[1:] {
			m = math.Max(m, v)
		}
		return Number(m), true
	}
	return Value{}, false
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func cloneAggregations(a Aggregations) Aggregations {
	if a == nil {
		return Aggregations{}
	}
	out := make(Aggregations, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
