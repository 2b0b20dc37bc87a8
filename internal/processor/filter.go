package processor

import "strings"

type predicate func(cell Value) bool

// filterPredicate builds the row test for op. String operators compare
// lowercased string forms; ordering operators compare lenient floats, so a
// non-numeric side never matches. Unknown operators keep every row.
func filterPredicate(op FilterOperator, value Value) predicate {
	needle := strings.ToLower(value.String())
	bound := value.Float()

	switch op {
	case FilterEquals:
		return func(cell Value) bool { return cell.LooseEqual(value) }
	case FilterNotEquals:
		return func(cell Value) bool { return !cell.LooseEqual(value) }
	case FilterContains:
		return func(cell Value) bool { return strings.Contains(lower(cell), needle) }
	case FilterNotContains:
		return func(cell Value) bool { return !strings.Contains(lower(cell), needle) }
	case FilterStartsWith:
		return func(cell Value) bool { return strings.HasPrefix(lower(cell), needle) }
	case FilterEndsWith:
		return func(cell Value) bool { return strings.HasSuffix(lower(cell), needle) }
	case FilterGreaterThan:
		return func(cell Value) bool { return cell.Float() > bound }
	case FilterLessThan:
		return func(cell Value) bool { return cell.Float() < bound }
	case FilterGreaterEqual:
		return func(cell Value) bool { return cell.Float() >= bound }
	case FilterLessEqual:
		return func(cell Value) bool { return cell.Float() <= bound }
	case FilterIsEmpty:
		return func(cell Value) bool { return !cell.Truthy() }
	case FilterIsNotEmpty:
		return func(cell Value) bool { return cell.Truthy() }
	}
	return func(Value) bool { return true }
}

func lower(v Value) string { return strings.ToLower(v.String()) }
