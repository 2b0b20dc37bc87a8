package processor

import (
	"sort"
	"strings"
)

// sortRecords orders rows in place by column. Two cells compare numerically
// when both are numeric, otherwise by their string forms.
func sortRecords(rows []Record, column string, order SortOrder) {
	desc := order == SortDesc
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareCells(rows[i].Get(column), rows[j].Get(column))
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareCells(a, b Value) int {
	if x, ok := a.Numeric(); ok {
		if y, ok := b.Numeric(); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(a.String(), b.String())
}
