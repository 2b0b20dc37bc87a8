package processor

import (
	"strings"
	"time"
)

// ColumnType is the inferred classification of a column.
type ColumnType string

const (
	TypeNumber ColumnType = "number"
	TypeDate   ColumnType = "date"
	TypeText   ColumnType = "text"
)

// typeSampleSize bounds how many leading rows inference looks at.
const typeSampleSize = 10

// Column describes one field of the current schema.
type Column struct {
	Name       string     `json:"name" yaml:"name"`
	Type       ColumnType `json:"type" yaml:"type"`
	Visible    bool       `json:"visible" yaml:"visible"`
	Calculated bool       `json:"calculated" yaml:"calculated"`
}

// dateLayouts are tried in order when classifying date columns.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"2006-01",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.ANSIC,
}

// ParseDate reports whether s looks like a date in one of the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// classify applies the number, then date, then text rule to a sample.
func classify(sample []Value) ColumnType {
	if len(sample) == 0 {
		return TypeText
	}

	allNumeric := true
	for _, v := range sample {
		if _, ok := v.Numeric(); !ok {
			allNumeric = false
			break
		}
	}
	if allNumeric {
		return TypeNumber
	}

	for _, v := range sample {
		if v.Kind() != KindString {
			return TypeText
		}
		if _, ok := ParseDate(v.String()); !ok {
			return TypeText
		}
	}
	return TypeDate
}

func sampleColumn(rows []Record, column string) []Value {
	if len(rows) > typeSampleSize {
		rows = rows[:typeSampleSize]
	}
	sample := make([]Value, 0, len(rows))
	for _, row := range rows {
		v, ok := row[column]
		if !ok || v.IsNull() {
			continue
		}
		sample = append(sample, v)
	}
	return sample
}

func cloneColumns(in []Column) []Column {
	if in == nil {
		return []Column{}
	}
	out := make([]Column, len(in))
	copy(out, in)
	return out
}

func findColumn(cols []Column, name string) int {
	for i, c := range cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}
