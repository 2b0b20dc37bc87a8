// Package processor implements the tabular transformation engine behind the
// dashboard data mapper.
//
// A Processor owns three views that are kept consistent with each other:
// the original records, the processed records and the column schema. Every
// mutation is appended to an operation log, and the processed records are
// always the result of folding that log over the original records. Undo and
// config import rebuild state by replaying the log from the original data.
//
// The processor is not safe for concurrent use; callers serialize access.
package processor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrNilData is returned by New when no record slice is given.
	ErrNilData = errors.New("processor: data is nil")

	// ErrNilRecord is returned when a record in the input is a nil map.
	ErrNilRecord = errors.New("processor: record is nil")
)

// Processor holds one query result and the transformations applied to it.
type Processor struct {
	queryName string

	originalData    []Record
	processedData   []Record
	columns         []Column
	originalColumns []Column
	operations      []Operation

	logger *slog.Logger
	now    func() time.Time

	// stamp, when set, timestamps the next logged operation (replay).
	stamp time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the clock used for operation timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// New copies data into independent original and processed datasets and
// infers the schema from the leading rows.
func New(data []Record, queryName string, opts ...Option) (*Processor, error) {
	if data == nil {
		return nil, ErrNilData
	}
	for i, r := range data {
		if r == nil {
			return nil, fmt.Errorf("row %d: %w", i, ErrNilRecord)
		}
	}

	p := &Processor{
		queryName:     queryName,
		originalData:  cloneRecords(data),
		processedData: cloneRecords(data),
		operations:    []Operation{},
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.columns = p.detectColumns()
	p.originalColumns = cloneColumns(p.columns)
	return p, nil
}

// QueryName returns the name of the query the data came from.
func (p *Processor) QueryName() string { return p.queryName }

// Data returns the processed records. The slice is a read view.
func (p *Processor) Data() []Record { return p.processedData }

// OriginalData returns the records as loaded. The slice is a read view.
func (p *Processor) OriginalData() []Record { return p.originalData }

// Columns returns a copy of the current schema.
func (p *Processor) Columns() []Column { return cloneColumns(p.columns) }

// OriginalColumns returns a copy of the schema inferred at construction.
func (p *Processor) OriginalColumns() []Column { return cloneColumns(p.originalColumns) }

// Operations returns a copy of the operation log.
func (p *Processor) Operations() []Operation {
	out := make([]Operation, len(p.operations))
	copy(out, p.operations)
	return out
}

// detectColumns builds the schema from the first original record.
func (p *Processor) detectColumns() []Column {
	if len(p.originalData) == 0 {
		return []Column{}
	}
	keys := p.originalData[0].Keys()
	cols := make([]Column, len(keys))
	for i, k := range keys {
		cols[i] = Column{Name: k, Type: p.DetectColumnType(k), Visible: true}
	}
	return cols
}

// updateColumns adds descriptors for fields present in the processed data
// but unknown to the schema. Such fields are marked calculated.
func (p *Processor) updateColumns() {
	if len(p.processedData) == 0 {
		return
	}
	for _, k := range p.processedData[0].Keys() {
		if findColumn(p.columns, k) >= 0 {
			continue
		}
		p.logger.Debug("detected new column", "query", p.queryName, "column", k)
		p.columns = append(p.columns, Column{
			Name:       k,
			Type:       p.DetectColumnType(k),
			Visible:    true,
			Calculated: true,
		})
	}
}

// DetectColumnType classifies a column from a sample of the processed data,
// or of the original data when nothing is left after processing.
func (p *Processor) DetectColumnType(column string) ColumnType {
	source := p.processedData
	if len(source) == 0 {
		source = p.originalData
	}
	return classify(sampleColumn(source, column))
}

// record appends op to the log and picks up fields the operation introduced.
func (p *Processor) record(op Operation) {
	if p.stamp.IsZero() {
		op.Timestamp = p.now().UTC()
	} else {
		op.Timestamp = p.stamp
	}
	p.operations = append(p.operations, op)
	p.updateColumns()
}

// ApplyFilter keeps the rows matching the predicate. A logged filter with the
// same column and operator is replaced rather than stacked: it is dropped
// from the log and the remaining log is replayed before the new filter runs.
func (p *Processor) ApplyFilter(column string, op FilterOperator, value Value) *Processor {
	for i, existing := range p.operations {
		if existing.Type == OpFilter && existing.Column == column && existing.Operator == op {
			remaining := p.Operations()
			remaining = append(remaining[:i], remaining[i+1:]...)
			stamp := p.stamp
			p.replay(remaining)
			p.stamp = stamp
			break
		}
	}

	pred := filterPredicate(op, value)
	kept := p.processedData[:0:0]
	for _, row := range p.processedData {
		if pred(row.Get(column)) {
			kept = append(kept, row)
		}
	}
	p.processedData = kept

	p.record(FilterOp(column, op, value))
	return p
}

// Sort orders the processed rows by column. Equal keys keep their order.
func (p *Processor) Sort(column string, order SortOrder) *Processor {
	order = orDefault(order)
	sortRecords(p.processedData, column, order)
	p.record(SortOp(column, order))
	return p
}

// GroupBy collapses the processed rows into one row per distinct value of
// column, aggregating the given columns. The schema narrows to the group
// column followed by the aggregated columns.
func (p *Processor) GroupBy(column string, aggs Aggregations) *Processor {
	p.processedData = groupRecords(p.processedData, column, aggs)

	names := append([]string{column}, aggs.Columns()...)
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		if findColumn(cols, name) >= 0 {
			continue
		}
		cols = append(cols, Column{Name: name, Type: p.DetectColumnType(name), Visible: true})
	}
	p.columns = cols

	p.record(GroupByOp(column, cloneAggregations(aggs)))
	return p
}

// SelectColumns projects every row onto the listed columns. Fields missing
// from a row stay missing. Descriptors are kept: selected ones move to the
// front in the listed order, unselected ones are hidden.
func (p *Processor) SelectColumns(columns []string) *Processor {
	for i, row := range p.processedData {
		out := make(Record, len(columns))
		for _, c := range columns {
			if v, ok := row[c]; ok {
				out[c] = v
			}
		}
		p.processedData[i] = out
	}

	selected := make(map[string]bool, len(columns))
	ordered := make([]Column, 0, len(p.columns))
	for _, c := range columns {
		if selected[c] {
			continue
		}
		selected[c] = true
		if i := findColumn(p.columns, c); i >= 0 {
			col := p.columns[i]
			col.Visible = true
			ordered = append(ordered, col)
		}
	}
	for _, col := range p.columns {
		if !selected[col.Name] {
			col.Visible = false
			ordered = append(ordered, col)
		}
	}
	p.columns = ordered

	p.record(SelectOp(append([]string(nil), columns...)...))
	return p
}

// Limit keeps the first count rows. A negative count drops that many rows
// from the end.
func (p *Processor) Limit(count int) *Processor {
	n := len(p.processedData)
	end := count
	if end < 0 {
		end = n + count
		if end < 0 {
			end = 0
		}
	}
	if end > n {
		end = n
	}
	p.processedData = p.processedData[:end]
	p.record(LimitOp(count))
	return p
}

// Calculate evaluates formula on every row and stores the result in column.
// Rows where evaluation fails get null; the operation always completes.
func (p *Processor) Calculate(column, formula string) *Processor {
	cache := newFormulaCache(formula)
	failed := 0
	for i, row := range p.processedData {
		out := row.Clone()
		if v, err := cache.eval(row); err != nil {
			out[column] = Null()
			failed++
		} else {
			out[column] = Number(v)
		}
		p.processedData[i] = out
	}
	if failed > 0 {
		p.logger.Debug("formula produced null cells",
			"query", p.queryName, "column", column, "formula", formula, "rows", failed)
	}

	if i := findColumn(p.columns, column); i >= 0 {
		p.columns[i].Type = TypeNumber
		p.columns[i].Calculated = true
	} else {
		p.columns = append(p.columns, Column{
			Name:       column,
			Type:       TypeNumber,
			Visible:    true,
			Calculated: true,
		})
	}

	p.record(CalculateOp(column, formula))
	return p
}

// Apply dispatches op to its method. Unknown operation types are ignored.
func (p *Processor) Apply(op Operation) *Processor {
	switch op.Type {
	case OpFilter:
		p.ApplyFilter(op.Column, op.Operator, op.Value)
	case OpSort:
		p.Sort(op.Column, op.Order)
	case OpGroupBy:
		p.GroupBy(op.Column, op.Aggregations)
	case OpSelect:
		p.SelectColumns(op.Columns)
	case OpLimit:
		p.Limit(op.Count)
	case OpCalculate:
		p.Calculate(op.Column, op.Formula)
	default:
		p.logger.Debug("ignoring unsupported operation", "query", p.queryName, "type", op.Type)
	}
	return p
}

// Reset restores the original data and schema and clears the log.
func (p *Processor) Reset() *Processor {
	p.logger.Debug("reset",
		"query", p.queryName,
		"operations", len(p.operations),
		"columns", len(p.columns),
	)
	p.processedData = cloneRecords(p.originalData)
	p.operations = []Operation{}
	p.columns = cloneColumns(p.originalColumns)
	return p
}

// Undo drops the last operation and replays the rest from the original data.
// Undo on an empty log is a no-op.
func (p *Processor) Undo() *Processor {
	if len(p.operations) == 0 {
		return p
	}
	remaining := p.Operations()[:len(p.operations)-1]
	p.logger.Debug("undo", "query", p.queryName, "replaying", len(remaining))
	p.replay(remaining)
	return p
}

// ImportConfig resets and replays the config's operations in order.
func (p *Processor) ImportConfig(cfg Config) *Processor {
	ops := make([]Operation, len(cfg.Operations))
	copy(ops, cfg.Operations)
	p.replay(ops)
	return p
}

// replay rebuilds state from the original data, keeping each operation's
// original timestamp.
func (p *Processor) replay(ops []Operation) {
	p.Reset()
	for _, op := range ops {
		p.stamp = op.Timestamp
		p.Apply(op)
	}
	p.stamp = time.Time{}
}

// ExportConfig snapshots the query name, counts, schema and operation log.
func (p *Processor) ExportConfig() Config {
	return Config{
		QueryName:      p.queryName,
		OriginalCount:  len(p.originalData),
		ProcessedCount: len(p.processedData),
		Columns:        p.Columns(),
		Operations:     p.Operations(),
		Timestamp:      p.now().UTC(),
	}
}
