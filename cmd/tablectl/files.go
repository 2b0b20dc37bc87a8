package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/JonMunkholm/datamapper/internal/core"
	"github.com/JonMunkholm/datamapper/internal/export"
	"github.com/JonMunkholm/datamapper/internal/processor"
)

const zstdExt = ".zst"

// fileExt returns the lower-cased extension of path, looking through a
// trailing .zst: "rows.csv.zst" gives ".csv".
func fileExt(path string) string {
	p := strings.ToLower(path)
	p = strings.TrimSuffix(p, zstdExt)
	return filepath.Ext(p)
}

// datasetName derives a query name from a data file: "sales.csv.zst" gives
// "sales".
func datasetName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, zstdExt)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// readCloser closes a decompressing reader and the file under it.
type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error { return closeAll(r.closers) }

// openInput opens path for reading, decompressing .zst files.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), zstdExt) {
		return f, nil
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open zstd stream %s: %w", path, err)
	}
	return &readCloser{
		Reader:  dec,
		closers: []func() error{func() error { dec.Close(); return nil }, f.Close},
	}, nil
}

// writeCloser flushes a compressing writer before closing the file.
type writeCloser struct {
	io.Writer
	closers []func() error
}

func (w *writeCloser) Close() error { return closeAll(w.closers) }

// closeAll runs every closer in order and returns the first error.
func closeAll(closers []func() error) error {
	var first error
	for _, c := range closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// createOutput creates path for writing, compressing .zst files.
func createOutput(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), zstdExt) {
		return f, nil
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open zstd stream %s: %w", path, err)
	}
	return &writeCloser{Writer: enc, closers: []func() error{enc.Close, f.Close}}, nil
}

// loadRecords reads a JSON, CSV or XLSX data file.
func loadRecords(path, sheet string) ([]processor.Record, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	switch ext := fileExt(path); ext {
	case ".json":
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, err
		}
		return processor.DecodeRecords(data)
	case ".csv":
		result, err := core.ReadCSV(core.WrapCSVReader(in, 0), 0)
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		return result.Records, nil
	case ".xlsx":
		return export.ReadXLSX(in, sheet)
	default:
		return nil, fmt.Errorf("unsupported data file %q: use .json, .csv or .xlsx", ext)
	}
}

// loadConfig reads a JSON or YAML processor config.
func loadConfig(path string) (processor.Config, error) {
	in, err := openInput(path)
	if err != nil {
		return processor.Config{}, err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return processor.Config{}, err
	}
	switch fileExt(path) {
	case ".yaml", ".yml":
		return processor.ParseConfigYAML(data)
	default:
		return processor.ParseConfig(data)
	}
}

// outputFormat picks the output format from the flag, else the output
// file's extension, else JSON.
func outputFormat(flag, out string) (string, error) {
	format := strings.ToLower(flag)
	if format == "" && out != "" {
		format = strings.TrimPrefix(fileExt(out), ".")
	}
	switch format {
	case "", "json":
		return "json", nil
	case "csv", "xlsx":
		return format, nil
	default:
		return "", fmt.Errorf("unsupported output format %q: use json, csv or xlsx", format)
	}
}

// writeData renders the visible columns of records in format.
func writeData(w io.Writer, format, name string, columns []processor.Column, records []processor.Record) error {
	switch format {
	case "csv":
		return export.WriteCSV(w, columns, records)
	case "xlsx":
		return export.WriteXLSX(w, name, columns, records)
	}

	rows := make([]processor.Record, len(records))
	for i, rec := range records {
		row := make(processor.Record, len(columns))
		for _, c := range columns {
			row[c.Name] = rec.Get(c.Name)
		}
		rows[i] = row
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
