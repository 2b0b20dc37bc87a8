package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// CSV Parsing Benchmarks
// ============================================================================

// BenchmarkReadCSV benchmarks parsing an upload into records.
func BenchmarkReadCSV(b *testing.B) {
	data := generateTestCSV(100)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ReadCSV(bytes.NewReader(data), 0); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReadCSV_Large benchmarks parsing a larger upload.
func BenchmarkReadCSV_Large(b *testing.B) {
	data := generateTestCSV(5000)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ReadCSV(bytes.NewReader(data), 0); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReadCSV_Wrapped measures the cost of the BOM, UTF-8 and size
// limit readers on top of parsing.
func BenchmarkReadCSV_Wrapped(b *testing.B) {
	data := append([]byte("\xEF\xBB\xBF"), generateTestCSV(1000)...)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r := WrapCSVReader(bytes.NewReader(data), int64(len(data))+1)
		if _, err := ReadCSV(r, 0); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReadCSV_MaxRows checks that truncated reads stop early.
func BenchmarkReadCSV_MaxRows(b *testing.B) {
	data := generateTestCSV(5000)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		res, err := ReadCSV(bytes.NewReader(data), 100)
		if err != nil {
			b.Fatal(err)
		}
		if !res.Truncated {
			b.Fatal("expected truncated result")
		}
	}
}

// ============================================================================
// Header Benchmarks
// ============================================================================

// BenchmarkCleanHeader benchmarks header normalization.
func BenchmarkCleanHeader(b *testing.B) {
	headers := []string{
		"amount",
		"  Region  ",
		"\uFEFFid",
		"Customer Name",
		strings.Repeat("wide_column_", 8),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, h := range headers {
			CleanHeader(h)
		}
	}
}

// BenchmarkToPgText benchmarks text conversion for saved config columns.
func BenchmarkToPgText(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ToPgText("monthly_sales")
		ToPgText("")
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

// generateTestCSV generates CSV data with the specified number of rows.
func generateTestCSV(rows int) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"id", "customer", "region", "date", "amount", "status"})
	for i := 0; i < rows; i++ {
		w.Write([]string{
			fmt.Sprint(1000 + i),
			"Acme Corp",
			[]string{"east", "west", "north"}[i%3],
			"2024-01-15",
			fmt.Sprintf("%d.%02d", i*7, i%100),
			"active",
		})
	}
	w.Flush()

	return buf.Bytes()
}
