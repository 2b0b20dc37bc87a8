package processor

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError lists every problem found in an operation.
type ValidationError struct {
	Op       OperationType
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s operation: %s", e.Op, strings.Join(e.Problems, "; "))
}

// Validate checks op against the current schema without applying it.
// Apply methods stay permissive; this is an opt-in pre-check.
func (p *Processor) Validate(op Operation) error {
	var problems []string
	known := make(map[string]bool, len(p.columns))
	names := make([]string, 0, len(p.columns))
	for _, c := range p.columns {
		known[c.Name] = true
		names = append(names, c.Name)
	}
	requireColumn := func(role, name string) {
		if name == "" {
			problems = append(problems, role+" is required")
			return
		}
		if !known[name] {
			problems = append(problems, fmt.Sprintf("column not found: %s", name))
		}
	}

	switch op.Type {
	case OpFilter:
		requireColumn("column", op.Column)
		if !op.Operator.Valid() {
			problems = append(problems, fmt.Sprintf("unknown filter operator %q", op.Operator))
		}
	case OpSort:
		requireColumn("column", op.Column)
		if op.Order != "" && op.Order != SortAsc && op.Order != SortDesc {
			problems = append(problems, fmt.Sprintf("unknown sort order %q", op.Order))
		}
	case OpGroupBy:
		requireColumn("column", op.Column)
		if len(op.Aggregations) == 0 {
			problems = append(problems, "at least one aggregation is required")
		}
		for _, c := range op.Aggregations.Columns() {
			requireColumn("aggregation column", c)
			if fn := op.Aggregations[c]; !fn.Valid() {
				problems = append(problems, fmt.Sprintf("unknown aggregate function %q for %s", fn, c))
			}
		}
	case OpSelect:
		if len(op.Columns) == 0 {
			problems = append(problems, "at least one column is required")
		}
		for _, c := range op.Columns {
			requireColumn("column", c)
		}
	case OpLimit:
		if op.Count < 0 {
			problems = append(problems, fmt.Sprintf("count must be non-negative, got %d", op.Count))
		}
	case OpCalculate:
		if op.Column == "" {
			problems = append(problems, "column is required")
		}
		if strings.TrimSpace(op.Formula) == "" {
			problems = append(problems, "formula is required")
		} else if _, err := CompileFormula(op.Formula, names); err != nil {
			problems = append(problems, err.Error())
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported operation type %q", op.Type))
	}

	if len(problems) > 0 {
		return &ValidationError{Op: op.Type, Problems: problems}
	}
	return nil
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
