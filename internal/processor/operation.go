package processor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OperationType tags an entry of the operation log.
type OperationType string

const (
	OpFilter    OperationType = "filter"
	OpSort      OperationType = "sort"
	OpGroupBy   OperationType = "group_by"
	OpSelect    OperationType = "select"
	OpLimit     OperationType = "limit"
	OpCalculate OperationType = "calculate"
)

// Known reports whether the processor can replay this operation type.
func (t OperationType) Known() bool {
	switch t {
	case OpFilter, OpSort, OpGroupBy, OpSelect, OpLimit, OpCalculate:
		return true
	}
	return false
}

// FilterOperator is a row predicate used by ApplyFilter.
type FilterOperator string

const (
	FilterEquals       FilterOperator = "equals"
	FilterNotEquals    FilterOperator = "not_equals"
	FilterContains     FilterOperator = "contains"
	FilterNotContains  FilterOperator = "not_contains"
	FilterStartsWith   FilterOperator = "starts_with"
	FilterEndsWith     FilterOperator = "ends_with"
	FilterGreaterThan  FilterOperator = "greater_than"
	FilterLessThan     FilterOperator = "less_than"
	FilterGreaterEqual FilterOperator = "greater_equal"
	FilterLessEqual    FilterOperator = "less_equal"
	FilterIsEmpty      FilterOperator = "is_empty"
	FilterIsNotEmpty   FilterOperator = "is_not_empty"
)

// FilterOperators lists every supported operator in display order.
var FilterOperators = []FilterOperator{
	FilterEquals, FilterNotEquals,
	FilterContains, FilterNotContains, FilterStartsWith, FilterEndsWith,
	FilterGreaterThan, FilterLessThan, FilterGreaterEqual, FilterLessEqual,
	FilterIsEmpty, FilterIsNotEmpty,
}

// Valid reports whether the operator is supported.
func (o FilterOperator) Valid() bool {
	for _, op := range FilterOperators {
		if op == o {
			return true
		}
	}
	return false
}

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// AggFunc is an aggregate applied per group by GroupBy.
type AggFunc string

const (
	AggSum   AggFunc = "sum"
	AggAvg   AggFunc = "avg"
	AggCount AggFunc = "count"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
)

// Valid reports whether the aggregate function is supported.
func (f AggFunc) Valid() bool {
	switch f {
	case AggSum, AggAvg, AggCount, AggMin, AggMax:
		return true
	}
	return false
}

// Aggregations maps an aggregated column to its function.
type Aggregations map[string]AggFunc

// Columns returns the aggregated column names in name order.
func (a Aggregations) Columns() []string {
	cols := make([]string, 0, len(a))
	for c := range a {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Operation is one logged transformation. Only the fields belonging to Type
// are meaningful.
type Operation struct {
	Type         OperationType
	Column       string
	Operator     FilterOperator
	Value        Value
	Order        SortOrder
	Aggregations Aggregations
	Columns      []string
	Count        int
	Formula      string
	Timestamp    time.Time
}

// Constructors for building operations outside the processor, e.g. for
// Validate or for a replay script.

func FilterOp(column string, op FilterOperator, value Value) Operation {
	return Operation{Type: OpFilter, Column: column, Operator: op, Value: value}
}

func SortOp(column string, order SortOrder) Operation {
	return Operation{Type: OpSort, Column: column, Order: order}
}

func GroupByOp(column string, aggs Aggregations) Operation {
	return Operation{Type: OpGroupBy, Column: column, Aggregations: aggs}
}

func SelectOp(columns ...string) Operation {
	return Operation{Type: OpSelect, Columns: columns}
}

func LimitOp(count int) Operation {
	return Operation{Type: OpLimit, Count: count}
}

func CalculateOp(column, formula string) Operation {
	return Operation{Type: OpCalculate, Column: column, Formula: formula}
}

// Describe renders a one-line summary for history listings.
func (op Operation) Describe() string {
	switch op.Type {
	case OpFilter:
		if op.Operator == FilterIsEmpty || op.Operator == FilterIsNotEmpty {
			return fmt.Sprintf("filter %s %s", op.Column, op.Operator)
		}
		return fmt.Sprintf("filter %s %s %q", op.Column, op.Operator, op.Value.String())
	case OpSort:
		return fmt.Sprintf("sort %s %s", op.Column, orDefault(op.Order))
	case OpGroupBy:
		parts := make([]string, 0, len(op.Aggregations))
		for _, c := range op.Aggregations.Columns() {
			parts = append(parts, fmt.Sprintf("%s(%s)", op.Aggregations[c], c))
		}
		return fmt.Sprintf("group by %s: %s", op.Column, strings.Join(parts, ", "))
	case OpSelect:
		return "select " + strings.Join(op.Columns, ", ")
	case OpLimit:
		return fmt.Sprintf("limit %d", op.Count)
	case OpCalculate:
		return fmt.Sprintf("calculate %s = %s", op.Column, op.Formula)
	}
	return fmt.Sprintf("unsupported operation %q", op.Type)
}

func orDefault(o SortOrder) SortOrder {
	if o == "" {
		return SortAsc
	}
	return o
}

// Wire shapes, one per type, so each operation serializes only its fields.

type filterWire struct {
	Type      OperationType  `json:"type" yaml:"type"`
	Column    string         `json:"column" yaml:"column"`
	Operator  FilterOperator `json:"operator" yaml:"operator"`
	Value     Value          `json:"value" yaml:"value"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
}

type sortWire struct {
	Type      OperationType `json:"type" yaml:"type"`
	Column    string        `json:"column" yaml:"column"`
	Order     SortOrder     `json:"order" yaml:"order"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
}

type groupByWire struct {
	Type         OperationType `json:"type" yaml:"type"`
	Column       string        `json:"column" yaml:"column"`
	Aggregations Aggregations  `json:"aggregations" yaml:"aggregations"`
	Timestamp    time.Time     `json:"timestamp" yaml:"timestamp"`
}

type selectWire struct {
	Type      OperationType `json:"type" yaml:"type"`
	Columns   []string      `json:"columns" yaml:"columns"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
}

type limitWire struct {
	Type      OperationType `json:"type" yaml:"type"`
	Count     int           `json:"count" yaml:"count"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
}

type calculateWire struct {
	Type      OperationType `json:"type" yaml:"type"`
	Column    string        `json:"column" yaml:"column"`
	Formula   string        `json:"formula" yaml:"formula"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
}

type unknownWire struct {
	Type      OperationType `json:"type" yaml:"type"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
}

// operationIn accepts every field of every shape.
type operationIn struct {
	Type         OperationType  `json:"type" yaml:"type"`
	Column       string         `json:"column" yaml:"column"`
	Operator     FilterOperator `json:"operator" yaml:"operator"`
	Value        Value          `json:"value" yaml:"value"`
	Order        SortOrder      `json:"order" yaml:"order"`
	Aggregations Aggregations   `json:"aggregations" yaml:"aggregations"`
	Columns      []string       `json:"columns" yaml:"columns"`
	Count        int            `json:"count" yaml:"count"`
	Formula      string         `json:"formula" yaml:"formula"`
	Timestamp    time.Time      `json:"timestamp" yaml:"timestamp"`
}

func (op Operation) wire() any {
	switch op.Type {
	case OpFilter:
		return filterWire{op.Type, op.Column, op.Operator, op.Value, op.Timestamp}
	case OpSort:
		return sortWire{op.Type, op.Column, orDefault(op.Order), op.Timestamp}
	case OpGroupBy:
		aggs := op.Aggregations
		if aggs == nil {
			aggs = Aggregations{}
		}
		return groupByWire{op.Type, op.Column, aggs, op.Timestamp}
	case OpSelect:
		cols := op.Columns
		if cols == nil {
			cols = []string{}
		}
		return selectWire{op.Type, cols, op.Timestamp}
	case OpLimit:
		return limitWire{op.Type, op.Count, op.Timestamp}
	case OpCalculate:
		return calculateWire{op.Type, op.Column, op.Formula, op.Timestamp}
	}
	return unknownWire{op.Type, op.Timestamp}
}

func (op *Operation) fromWire(in operationIn) {
	*op = Operation{
		Type:         in.Type,
		Column:       in.Column,
		Operator:     in.Operator,
		Value:        in.Value,
		Order:        in.Order,
		Aggregations: in.Aggregations,
		Columns:      in.Columns,
		Count:        in.Count,
		Formula:      in.Formula,
		Timestamp:    in.Timestamp,
	}
}

// MarshalJSON emits the type-specific wire shape.
func (op Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(op.wire())
}

// UnmarshalJSON reads any operation shape. Unknown types are kept so the
// caller can decide to ignore them.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var in operationIn
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	op.fromWire(in)
	return nil
}

// MarshalYAML emits the type-specific wire shape.
func (op Operation) MarshalYAML() (any, error) {
	return op.wire(), nil
}

// UnmarshalYAML reads any operation shape.
func (op *Operation) UnmarshalYAML(node *yaml.Node) error {
	var in operationIn
	if err := node.Decode(&in); err != nil {
		return err
	}
	op.fromWire(in)
	return nil
}
