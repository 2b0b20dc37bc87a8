package processor

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Record is one row: column name to cell value. An absent key and a null
// value are distinct only for SelectColumns, which omits absent keys.
type Record map[string]Value

// Get returns the cell for column, null when absent.
func (r Record) Get(column string) Value {
	return r[column]
}

// Has reports whether the record carries the column at all.
func (r Record) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Clone returns an independent copy. Values are immutable so a shallow map
// copy is a deep copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the record's column names sorted by name.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromMaps converts decoded JSON objects (or any map of scalars) to records.
func FromMaps(rows []map[string]any) ([]Record, error) {
	out := make([]Record, len(rows))
	for i, row := range rows {
		if row == nil {
			return nil, fmt.Errorf("row %d: %w", i, ErrNilRecord)
		}
		rec := make(Record, len(row))
		for k, x := range row {
			v, err := FromInterface(x)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, k, err)
			}
			rec[k] = v
		}
		out[i] = rec
	}
	return out, nil
}

// DecodeRecords parses a JSON array of flat objects.
func DecodeRecords(data []byte) ([]Record, error) {
	var rows []Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	for i, row := range rows {
		if row == nil {
			return nil, fmt.Errorf("row %d: %w", i, ErrNilRecord)
		}
	}
	return rows, nil
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
