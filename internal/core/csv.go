package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/datamapper/internal/processor"
)

var (
	// ErrEmptyFile is returned when a CSV upload has no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrInvalidCSV wraps parse failures of uploaded CSV data.
	ErrInvalidCSV = errors.New("invalid csv")
)

// CSVResult is a parsed CSV upload.
type CSVResult struct {
	Header    []string
	Records   []processor.Record
	Truncated bool
}

// ReadCSV parses r into records keyed by the header row. Blank rows are
// skipped, short rows get null for the missing cells and extra cells are
// dropped. Cells stay strings; type inference happens in the processor.
// At most maxRows data rows are read when maxRows is positive.
func ReadCSV(r io.Reader, maxRows int) (*CSVResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var header []string
	result := &CSVResult{Records: []processor.Record{}}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, ErrFileTooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if isEmptyRow(row) {
			continue
		}

		if header == nil {
			header = makeHeader(row)
			continue
		}

		if maxRows > 0 && len(result.Records) >= maxRows {
			result.Truncated = true
			break
		}

		rec := make(processor.Record, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = processor.String(row[i])
			} else {
				rec[name] = processor.Null()
			}
		}
		result.Records = append(result.Records, rec)
	}

	if header == nil {
		return nil, ErrEmptyFile
	}
	result.Header = header
	return result, nil
}

// makeHeader cleans header cells and makes the names unique. Blank headers
// become column_N (1-based); repeats get a numeric suffix.
func makeHeader(row []string) []string {
	header := make([]string, len(row))
	seen := make(map[string]int, len(row))
	for i, cell := range row {
		name := CleanHeader(cell)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = name + "_" + strconv.Itoa(n+1)
		}
		seen[name]++
		header[i] = name
	}
	return header
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
