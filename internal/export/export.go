// Package export renders processed records as CSV or XLSX and reads XLSX
// workbooks back into records.
//
// Writers take the visible columns of a session in schema order, so the
// file matches what the user sees. Null cells are written empty.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/datamapper/internal/processor"
)

// Content types for HTTP responses.
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteCSV writes a header row of column names followed by one line per
// record.
func WriteCSV(w io.Writer, columns []processor.Column, records []processor.Record) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	line := make([]string, len(columns))
	for _, rec := range records {
		for i, c := range columns {
			line[i] = rec.Get(c.Name).String()
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook: a bold header row, then one row
// per record. Numbers are stored as numeric cells so spreadsheets can sum
// them; everything else is text.
func WriteXLSX(w io.Writer, sheet string, columns []processor.Column, records []processor.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet = SheetName(sheet)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open sheet writer: %w", err)
	}
	if len(columns) > 0 {
		if err := sw.SetColWidth(1, len(columns), 15); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: c.Name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]any, len(columns))
	for r, rec := range records {
		for i, c := range columns {
			row[i] = excelValue(rec.Get(c.Name))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func excelValue(v processor.Value) any {
	switch v.Kind() {
	case processor.KindNull:
		return nil
	case processor.KindNumber:
		return v.Interface()
	case processor.KindBool:
		if v.Truthy() {
			return "TRUE"
		}
		return "FALSE"
	}
	return v.String()
}

// SheetName makes name usable as a worksheet name: at most 31 characters,
// none of : \ / ? * [ ] and no leading or trailing apostrophe.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.Trim(strings.TrimSpace(name), "'"))
	if name == "" {
		return "Sheet1"
	}
	if r := []rune(name); len(r) > 31 {
		name = strings.TrimRight(string(r[:31]), "'")
	}
	return name
}

// ReadXLSX loads one worksheet as records. The first non-empty row names
// the fields; every cell is loaded as a string, like a CSV upload. An empty
// sheet name reads the first sheet.
func ReadXLSX(r io.Reader, sheet string) ([]processor.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var header []string
	records := []processor.Record{}
	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isBlank(cells) {
			continue
		}
		if header == nil {
			header = headerNames(cells)
			continue
		}
		rec := make(processor.Record, len(header))
		for i, name := range header {
			if i < len(cells) {
				rec[name] = processor.String(cells[i])
			} else {
				rec[name] = processor.Null()
			}
		}
		records = append(records, rec)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if header == nil {
		return nil, fmt.Errorf("read sheet %q: empty file", sheet)
	}
	return records, nil
}

func headerNames(cells []string) []string {
	names := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, c := range cells {
		name := strings.TrimSpace(c)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = name + "_" + strconv.Itoa(n+1)
		}
		seen[name]++
		names[i] = name
	}
	return names
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
