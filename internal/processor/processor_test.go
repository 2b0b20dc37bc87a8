package processor

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func mustRecords(t *testing.T, rows ...map[string]any) []Record {
	t.Helper()
	recs, err := FromMaps(rows)
	if err != nil {
		t.Fatalf("FromMaps() error = %v", err)
	}
	return recs
}

func mustNew(t *testing.T, data []Record) *Processor {
	t.Helper()
	p, err := New(data, "sales", WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func scenarioData(t *testing.T) []Record {
	return mustRecords(t,
		map[string]any{"id": 1, "cat": "x", "amt": 10},
		map[string]any{"id": 2, "cat": "y", "amt": 5},
		map[string]any{"id": 3, "cat": "x", "amt": 7},
	)
}

// column returns the plain values of one column of the processed data.
func column(p *Processor, name string) []any {
	out := make([]any, len(p.Data()))
	for i, r := range p.Data() {
		out[i] = r.Get(name).Interface()
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, "q"); !errors.Is(err, ErrNilData) {
		t.Errorf("New(nil) error = %v, want ErrNilData", err)
	}
	if _, err := New([]Record{{"a": Number(1)}, nil}, "q"); !errors.Is(err, ErrNilRecord) {
		t.Errorf("New(nil record) error = %v, want ErrNilRecord", err)
	}

	p, err := New([]Record{}, "empty")
	if err != nil {
		t.Fatalf("New(empty) error = %v", err)
	}
	if got := len(p.Columns()); got != 0 {
		t.Errorf("empty dataset columns = %d, want 0", got)
	}
}

func TestNew_CopiesInput(t *testing.T) {
	data := scenarioData(t)
	p := mustNew(t, data)

	data[0]["amt"] = Number(999)
	if got := p.Data()[0].Get("amt").Interface(); got != 10.0 {
		t.Errorf("processed amt after caller mutation = %v, want 10", got)
	}

	p.Calculate("double", "amt * 2")
	if p.OriginalData()[0].Has("double") {
		t.Error("original data gained calculated column")
	}
}

func TestScenario(t *testing.T) {
	p := mustNew(t, scenarioData(t))

	p.ApplyFilter("amt", FilterGreaterThan, String("6"))
	if got, want := column(p, "id"), []any{1.0, 3.0}; !reflect.DeepEqual(got, want) {
		t.Fatalf("after filter ids = %v, want %v", got, want)
	}

	p.Sort("amt", SortDesc)
	if got, want := column(p, "id"), []any{1.0, 3.0}; !reflect.DeepEqual(got, want) {
		t.Fatalf("after sort ids = %v, want %v", got, want)
	}

	p.GroupBy("cat", Aggregations{"amt": AggSum})
	data := p.Data()
	if len(data) != 1 {
		t.Fatalf("after group rows = %d, want 1", len(data))
	}
	if got := data[0].Get("cat").Interface(); got != "x" {
		t.Errorf("cat = %v, want x", got)
	}
	if got := data[0].Get("amt").Interface(); got != 17.0 {
		t.Errorf("amt = %v, want 17", got)
	}

	cfg := p.ExportConfig()
	if got := len(cfg.Operations); got != 3 {
		t.Errorf("exported operations = %d, want 3", got)
	}
	if cfg.OriginalCount != 3 || cfg.ProcessedCount != 1 {
		t.Errorf("counts = %d/%d, want 3/1", cfg.OriginalCount, cfg.ProcessedCount)
	}
	if cfg.QueryName != "sales" {
		t.Errorf("QueryName = %q, want sales", cfg.QueryName)
	}
}

func TestReset_RestoresOriginal(t *testing.T) {
	data := scenarioData(t)
	p := mustNew(t, data)
	originalCols := p.Columns()

	p.ApplyFilter("cat", FilterEquals, String("x")).
		Calculate("tax", "amt * 0.2").
		SelectColumns([]string{"id", "tax"}).
		GroupBy("id", Aggregations{"tax": AggMax}).
		Limit(1)

	p.Reset()

	if !reflect.DeepEqual(p.Data(), data) {
		t.Errorf("Data after reset = %v, want %v", p.Data(), data)
	}
	if !reflect.DeepEqual(p.Columns(), originalCols) {
		t.Errorf("Columns after reset = %v, want %v", p.Columns(), originalCols)
	}
	if got := len(p.Operations()); got != 0 {
		t.Errorf("operations after reset = %d, want 0", got)
	}
}

func TestUndo_MatchesReplay(t *testing.T) {
	ops := []Operation{
		FilterOp("amt", FilterGreaterEqual, String("5")),
		CalculateOp("net", "amt - id"),
		SortOp("net", SortDesc),
		GroupByOp("cat", Aggregations{"net": AggSum, "id": AggCount}),
	}

	for n := 1; n <= len(ops); n++ {
		p := mustNew(t, scenarioData(t))
		for _, op := range ops[:n] {
			p.Apply(op)
		}
		p.Undo()

		want := mustNew(t, scenarioData(t))
		for _, op := range ops[:n-1] {
			want.Apply(op)
		}

		if !reflect.DeepEqual(p.Data(), want.Data()) {
			t.Errorf("undo after %d ops: data = %v, want %v", n, p.Data(), want.Data())
		}
		if !reflect.DeepEqual(p.Columns(), want.Columns()) {
			t.Errorf("undo after %d ops: columns = %v, want %v", n, p.Columns(), want.Columns())
		}
		if got, wantN := len(p.Operations()), n-1; got != wantN {
			t.Errorf("undo after %d ops: operations = %d, want %d", n, got, wantN)
		}
	}
}

func TestUndo_EmptyLogIsNoop(t *testing.T) {
	data := scenarioData(t)
	p := mustNew(t, data)
	if p.Undo() != p {
		t.Error("Undo() did not return the receiver")
	}
	if !reflect.DeepEqual(p.Data(), data) {
		t.Errorf("Data after empty undo = %v, want %v", p.Data(), data)
	}
}

func TestUndo_KeepsTimestamps(t *testing.T) {
	clock := fixedNow
	p, err := New(scenarioData(t), "sales", WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatal(err)
	}
	p.Sort("amt", SortAsc)
	clock = clock.Add(time.Hour)
	p.Limit(2)
	clock = clock.Add(time.Hour)
	p.Undo()

	ops := p.Operations()
	if len(ops) != 1 {
		t.Fatalf("operations = %d, want 1", len(ops))
	}
	if !ops[0].Timestamp.Equal(fixedNow) {
		t.Errorf("replayed timestamp = %v, want %v", ops[0].Timestamp, fixedNow)
	}
}

func TestImportConfig_RoundTrip(t *testing.T) {
	p := mustNew(t, scenarioData(t))
	p.ApplyFilter("cat", FilterNotEquals, String("y")).
		Calculate("gross", "amt * (1 + 0.25)").
		Sort("gross", SortDesc).
		Limit(5)

	raw, err := p.ExportConfig().EncodeJSON()
	if err != nil {
		t.Fatalf("EncodeJSON() error = %v", err)
	}
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	fresh := mustNew(t, scenarioData(t))
	fresh.ImportConfig(cfg)

	if !reflect.DeepEqual(fresh.Data(), p.Data()) {
		t.Errorf("imported data = %v, want %v", fresh.Data(), p.Data())
	}
	if !reflect.DeepEqual(fresh.Columns(), p.Columns()) {
		t.Errorf("imported columns = %v, want %v", fresh.Columns(), p.Columns())
	}
	if got, want := len(fresh.Operations()), 4; got != want {
		t.Errorf("imported operations = %d, want %d", got, want)
	}
}

func TestImportConfig_IgnoresUnknownTypes(t *testing.T) {
	raw := []byte(`{
		"query_name": "sales",
		"operations": [
			{"type": "pivot", "column": "cat", "timestamp": "2024-01-01T00:00:00.000Z"},
			{"type": "limit", "count": 2, "timestamp": "2024-01-01T00:00:01.000Z"}
		]
	}`)
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	p := mustNew(t, scenarioData(t))
	p.ImportConfig(cfg)

	if got := len(p.Data()); got != 2 {
		t.Errorf("rows = %d, want 2", got)
	}
	ops := p.Operations()
	if len(ops) != 1 || ops[0].Type != OpLimit {
		t.Errorf("operations = %v, want single limit", ops)
	}
}

func TestApplyFilter_ReplacesSameColumnAndOperator(t *testing.T) {
	p := mustNew(t, scenarioData(t))
	p.ApplyFilter("amt", FilterGreaterThan, String("8"))
	p.ApplyFilter("amt", FilterGreaterThan, String("6"))

	var filters []Operation
	for _, op := range p.Operations() {
		if op.Type == OpFilter {
			filters = append(filters, op)
		}
	}
	if len(filters) != 1 {
		t.Fatalf("filter operations = %d, want 1", len(filters))
	}
	if got := filters[0].Value.String(); got != "6" {
		t.Errorf("filter value = %q, want 6", got)
	}

	want := mustNew(t, scenarioData(t)).ApplyFilter("amt", FilterGreaterThan, String("6"))
	if !reflect.DeepEqual(p.Data(), want.Data()) {
		t.Errorf("rows = %v, want %v", p.Data(), want.Data())
	}
}

func TestApplyFilter_DifferentOperatorsStack(t *testing.T) {
	p := mustNew(t, scenarioData(t))
	p.ApplyFilter("amt", FilterGreaterThan, String("4"))
	p.ApplyFilter("amt", FilterLessThan, String("8"))

	if got := len(p.Operations()); got != 2 {
		t.Errorf("operations = %d, want 2", got)
	}
	if got, want := column(p, "id"), []any{2.0, 3.0}; !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestApplyFilter_Operators(t *testing.T) {
	data := func() []Record {
		return mustRecords(t,
			map[string]any{"id": 1, "name": "Alpha", "qty": "10", "note": ""},
			map[string]any{"id": 2, "name": "beta", "qty": 3, "note": "rush"},
			map[string]any{"id": 3, "name": "Gamma Ray", "qty": "n/a", "note": nil},
			map[string]any{"id": 4, "name": "alphabet", "qty": 0, "note": "x"},
		)
	}

	tests := []struct {
		name   string
		column string
		op     FilterOperator
		value  Value
		want   []any
	}{
		{"equals loose number vs string", "qty", FilterEquals, String("10"), []any{1.0}},
		{"equals number", "qty", FilterEquals, Number(3), []any{2.0}},
		{"not equals", "qty", FilterNotEquals, String("10"), []any{2.0, 3.0, 4.0}},
		{"contains case insensitive", "name", FilterContains, String("ALPHA"), []any{1.0, 4.0}},
		{"not contains", "name", FilterNotContains, String("a"), []any{}},
		{"starts with", "name", FilterStartsWith, String("gam"), []any{3.0}},
		{"ends with", "name", FilterEndsWith, String("BET"), []any{4.0}},
		{"greater than skips non numeric", "qty", FilterGreaterThan, String("2"), []any{1.0, 2.0}},
		{"less than", "qty", FilterLessThan, String("5"), []any{2.0, 4.0}},
		{"greater equal", "qty", FilterGreaterEqual, Number(3), []any{1.0, 2.0}},
		{"less equal", "qty", FilterLessEqual, Number(0), []any{4.0}},
		{"non numeric bound matches nothing", "qty", FilterGreaterThan, String("abc"), []any{}},
		{"is empty", "note", FilterIsEmpty, Null(), []any{1.0, 3.0}},
		{"is not empty", "note", FilterIsNotEmpty, Null(), []any{2.0, 4.0}},
		{"zero counts as empty", "qty", FilterIsEmpty, Null(), []any{4.0}},
		{"unknown operator keeps rows", "qty", FilterOperator("between"), Null(), []any{1.0, 2.0, 3.0, 4.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustNew(t, data())
			p.ApplyFilter(tt.column, tt.op, tt.value)
			if got := column(p, "id"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissingColumn_IsPermissive(t *testing.T) {
	p := mustNew(t, scenarioData(t))

	p.ApplyFilter("missing", FilterEquals, String("x"))
	if got := len(p.Data()); got != 0 {
		t.Errorf("equals on missing column rows = %d, want 0", got)
	}

	p.Reset().ApplyFilter("missing", FilterNotEquals, String("x"))
	if got := len(p.Data()); got != 3 {
		t.Errorf("not_equals on missing column rows = %d, want 3", got)
	}

	p.Reset().Sort("missing", SortAsc)
	if got, want := column(p, "id"), []any{1.0, 2.0, 3.0}; !reflect.DeepEqual(got, want) {
		t.Errorf("sort on missing column ids = %v, want %v", got, want)
	}

	p.Reset().GroupBy("cat", Aggregations{"missing": AggSum})
	for _, r := range p.Data() {
		if got := r.Get("missing").Interface(); got != 0.0 {
			t.Errorf("sum of missing column = %v, want 0", got)
		}
	}
}

func TestSort(t *testing.T) {
	p := mustNew(t, mustRecords(t,
		map[string]any{"k": "10", "s": "pear"},
		map[string]any{"k": "9", "s": "apple"},
		map[string]any{"k": 100, "s": "fig"},
		map[string]any{"k": "9", "s": "banana"},
	))

	p.Sort("k", "")
	if got, want := column(p, "s"), []any{"apple", "banana", "pear", "fig"}; !reflect.DeepEqual(got, want) {
		t.Errorf("numeric asc = %v, want %v", got, want)
	}
	if got := p.Operations()[0].Order; got != SortAsc {
		t.Errorf("default order = %q, want asc", got)
	}

	p.Sort("s", SortDesc)
	if got, want := column(p, "s"), []any{"pear", "fig", "banana", "apple"}; !reflect.DeepEqual(got, want) {
		t.Errorf("string desc = %v, want %v", got, want)
	}

	if got := len(p.Operations()); got != 2 {
		t.Errorf("sort operations = %d, want 2 (sorts accumulate)", got)
	}
}

func TestGroupBy_Aggregates(t *testing.T) {
	p := mustNew(t, mustRecords(t,
		map[string]any{"category": "A", "amount": 1},
		map[string]any{"category": "B", "amount": "10"},
		map[string]any{"category": "A", "amount": "2.5"},
		map[string]any{"category": "A", "amount": "n/a"},
		map[string]any{"category": "B", "amount": 4},
	))

	tests := []struct {
		fn    AggFunc
		wantA any
		wantB any
	}{
		{AggSum, 3.5, 14.0},
		{AggAvg, 1.75, 7.0},
		{AggCount, 3.0, 2.0},
		{AggMin, 1.0, 4.0},
		{AggMax, 2.5, 10.0},
	}

	for _, tt := range tests {
		t.Run(string(tt.fn), func(t *testing.T) {
			p.Reset().GroupBy("category", Aggregations{"amount": tt.fn})
			data := p.Data()
			if len(data) != 2 {
				t.Fatalf("groups = %d, want 2", len(data))
			}
			if got := data[0].Get("category").Interface(); got != "A" {
				t.Errorf("first group = %v, want A", got)
			}
			if got := data[0].Get("amount").Interface(); got != tt.wantA {
				t.Errorf("A amount = %v, want %v", got, tt.wantA)
			}
			if got := data[1].Get("amount").Interface(); got != tt.wantB {
				t.Errorf("B amount = %v, want %v", got, tt.wantB)
			}
		})
	}
}

func TestGroupBy_NarrowsSchema(t *testing.T) {
	p := mustNew(t, mustRecords(t,
		map[string]any{"region": "N", "units": 2, "price": 3, "sku": "a"},
		map[string]any{"region": "S", "units": 5, "price": 1, "sku": "b"},
	))
	p.Calculate("revenue", "units * price")
	p.GroupBy("region", Aggregations{"units": AggSum, "revenue": AggSum})

	cols := p.Columns()
	var names []string
	for _, c := range cols {
		names = append(names, c.Name)
		if c.Calculated {
			t.Errorf("column %s calculated = true, want false after group by", c.Name)
		}
	}
	if want := []string{"region", "revenue", "units"}; !reflect.DeepEqual(names, want) {
		t.Errorf("columns = %v, want %v", names, want)
	}
}

func TestGroupBy_EmptyNumericValues(t *testing.T) {
	p := mustNew(t, mustRecords(t,
		map[string]any{"g": "a", "v": "none"},
	))
	p.GroupBy("g", Aggregations{"v": AggAvg})
	if got := p.Data()[0].Get("v"); !got.IsNull() {
		t.Errorf("avg of no numbers = %v, want null", got.Interface())
	}
}

func TestSelectColumns(t *testing.T) {
	p := mustNew(t, mustRecords(t,
		map[string]any{"a": 1, "b": 2, "c": 3},
		map[string]any{"a": 4, "b": 5, "c": 6},
	))
	p.SelectColumns([]string{"c", "a", "zzz"})

	for _, r := range p.Data() {
		if got, want := r.Keys(), []string{"a", "c"}; !reflect.DeepEqual(got, want) {
			t.Errorf("keys = %v, want %v", got, want)
		}
	}

	visible := map[string]bool{}
	for _, c := range p.Columns() {
		visible[c.Name] = c.Visible
	}
	if want := map[string]bool{"a": true, "b": false, "c": true}; !reflect.DeepEqual(visible, want) {
		t.Errorf("visibility = %v, want %v", visible, want)
	}
}

func TestSelectColumns_KeepsListedOrder(t *testing.T) {
	p := mustNew(t, mustRecords(t,
		map[string]any{"a": 1, "b": 2, "c": 3, "d": 4},
	))
	p.SelectColumns([]string{"d", "b", "d", "zzz"})

	names := func(cols []Column) []string {
		out := make([]string, len(cols))
		for i, c := range cols {
			out[i] = c.Name
		}
		return out
	}
	if got, want := names(p.VisibleColumns()), []string{"d", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("visible columns = %v, want %v", got, want)
	}
	if got, want := names(p.Columns()), []string{"d", "b", "a", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}

	// Undo restores the source order.
	p.Undo()
	if got, want := names(p.Columns()), []string{"a", "b", "c", "d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("columns after undo = %v, want %v", got, want)
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{0, 0},
		{2, 2},
		{3, 3},
		{10, 3},
		{-1, 2},
		{-10, 0},
	}
	for _, tt := range tests {
		p := mustNew(t, scenarioData(t))
		p.Limit(tt.count)
		if got := len(p.Data()); got != tt.want {
			t.Errorf("Limit(%d) rows = %d, want %d", tt.count, got, tt.want)
		}
	}

	p := mustNew(t, scenarioData(t)).Limit(10)
	if !reflect.DeepEqual(p.Data(), scenarioData(t)) {
		t.Errorf("Limit beyond length changed rows: %v", p.Data())
	}
}

func TestCalculate(t *testing.T) {
	p := mustNew(t, mustRecords(t,
		map[string]any{"a": 2, "b": 3},
		map[string]any{"a": "abc", "b": 3},
		map[string]any{"a": "4", "b": "1"},
	))
	p.Calculate("c", "a + b * 2")

	got := column(p, "c")
	want := []any{8.0, nil, 6.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("c = %v, want %v", got, want)
	}

	i := findColumn(p.Columns(), "c")
	if i < 0 {
		t.Fatal("calculated column missing from schema")
	}
	if col := p.Columns()[i]; col.Type != TypeNumber || !col.Calculated || !col.Visible {
		t.Errorf("column = %+v, want number/calculated/visible", col)
	}
}

func TestCalculate_LongestFieldFirst(t *testing.T) {
	p := mustNew(t, mustRecords(t,
		map[string]any{"price": 2, "price_total": 10},
	))
	p.Calculate("diff", "price_total - price")
	if got := p.Data()[0].Get("diff").Interface(); got != 8.0 {
		t.Errorf("diff = %v, want 8", got)
	}
}

func TestCalculate_OverwritesExistingColumn(t *testing.T) {
	p := mustNew(t, mustRecords(t,
		map[string]any{"a": 2, "label": "x"},
	))
	p.Calculate("label", "a * 10")

	if got := p.Data()[0].Get("label").Interface(); got != 20.0 {
		t.Errorf("label = %v, want 20", got)
	}
	count := 0
	for _, c := range p.Columns() {
		if c.Name == "label" {
			count++
			if !c.Calculated || c.Type != TypeNumber {
				t.Errorf("label column = %+v, want calculated number", c)
			}
		}
	}
	if count != 1 {
		t.Errorf("label descriptors = %d, want 1", count)
	}
}

func TestCalculate_DivisionByZeroIsNull(t *testing.T) {
	p := mustNew(t, mustRecords(t, map[string]any{"a": 1, "b": 0}))
	p.Calculate("r", "a / b")
	if got := p.Data()[0].Get("r"); !got.IsNull() {
		t.Errorf("a / 0 = %v, want null", got.Interface())
	}
}

func TestDetectColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   ColumnType
	}{
		{"numeric strings", []any{"1", "2", "3"}, TypeNumber},
		{"numbers", []any{1, 2.5, -3}, TypeNumber},
		{"mixed", []any{"1", "abc"}, TypeText},
		{"dates", []any{"2024-01-01", "2024-02-15"}, TypeDate},
		{"timestamps", []any{"2024-01-01T10:00:00Z", "2024-01-02 11:30:00"}, TypeDate},
		{"nulls only", []any{nil, nil}, TypeText},
		{"nulls ignored", []any{nil, "4", nil}, TypeNumber},
		{"empty string is not a number", []any{"1", ""}, TypeText},
		{"booleans", []any{true, false}, TypeText},
		{"nan is not a number", []any{"NaN"}, TypeText},
		{"nan among numbers", []any{"1", "nan", "3"}, TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([]map[string]any, len(tt.values))
			for i, v := range tt.values {
				rows[i] = map[string]any{"v": v}
			}
			p := mustNew(t, mustRecords(t, rows...))
			if got := p.DetectColumnType("v"); got != tt.want {
				t.Errorf("DetectColumnType = %q, want %q", got, tt.want)
			}
			if got := p.Columns()[0].Type; got != tt.want {
				t.Errorf("schema type = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectColumnType_SamplesLeadingRows(t *testing.T) {
	rows := make([]map[string]any, 0, 12)
	for i := 0; i < 10; i++ {
		rows = append(rows, map[string]any{"v": i})
	}
	rows = append(rows, map[string]any{"v": "not a number"})

	p := mustNew(t, mustRecords(t, rows...))
	if got := p.DetectColumnType("v"); got != TypeNumber {
		t.Errorf("DetectColumnType = %q, want number (row 11 is outside the sample)", got)
	}
}

func TestColumnStats(t *testing.T) {
	p := mustNew(t, mustRecords(t,
		map[string]any{"v": 4},
		map[string]any{"v": "4"},
		map[string]any{"v": "x"},
		map[string]any{"v": ""},
		map[string]any{"v": nil},
		map[string]any{"v": 10},
	))
	stats := p.ColumnStats("v")

	if stats.Count != 4 {
		t.Errorf("Count = %d, want 4", stats.Count)
	}
	if stats.Unique != 4 {
		t.Errorf("Unique = %d, want 4", stats.Unique)
	}
	if !stats.Numeric {
		t.Fatal("Numeric = false, want true")
	}
	if *stats.Min != 4 || *stats.Max != 10 || *stats.Avg != 6 {
		t.Errorf("min/max/avg = %v/%v/%v, want 4/10/6", *stats.Min, *stats.Max, *stats.Avg)
	}

	text := p.ColumnStats("missing")
	if text.Count != 0 || text.Numeric || text.Min != nil {
		t.Errorf("stats of missing column = %+v, want zero", text)
	}
}

func TestColumnStats_NaNStringIsText(t *testing.T) {
	p := mustNew(t, mustRecords(t,
		map[string]any{"v": "NaN"},
		map[string]any{"v": "2"},
	))
	stats := p.ColumnStats("v")

	if stats.Count != 2 {
		t.Errorf("Count = %d, want 2", stats.Count)
	}
	if !stats.Numeric || *stats.Min != 2 || *stats.Max != 2 || *stats.Avg != 2 {
		t.Errorf("stats = %+v, want numeric 2/2/2 from the single number", stats)
	}
	if _, err := json.Marshal(stats); err != nil {
		t.Errorf("json.Marshal(stats) error = %v", err)
	}

	only := mustNew(t, mustRecords(t, map[string]any{"v": "nan"})).ColumnStats("v")
	if only.Numeric || only.Min != nil {
		t.Errorf("stats of nan column = %+v, want non-numeric", only)
	}
}

func TestPage(t *testing.T) {
	rows := make([]map[string]any, 7)
	for i := range rows {
		rows[i] = map[string]any{"n": i}
	}
	p := mustNew(t, mustRecords(t, rows...))

	tests := []struct {
		page, size   int
		wantPage     int
		wantRows     int
		wantFirst    any
		wantTotalPgs int
	}{
		{1, 3, 1, 3, 0.0, 3},
		{3, 3, 3, 1, 6.0, 3},
		{9, 3, 3, 1, 6.0, 3},
		{0, 5, 1, 5, 0.0, 2},
		{1, 7, 1, 7, 0.0, 1},
		{2, 100, 1, 7, 0.0, 1},
		{1, math.MaxInt, 1, 7, 0.0, 1},
		{math.MaxInt, math.MaxInt, 1, 7, 0.0, 1},
		{math.MaxInt, 2, 4, 1, 6.0, 4},
	}
	for _, tt := range tests {
		pg := p.Page(tt.page, tt.size)
		if pg.Page != tt.wantPage || len(pg.Rows) != tt.wantRows || pg.TotalPages != tt.wantTotalPgs {
			t.Errorf("Page(%d,%d) = page %d rows %d pages %d, want %d/%d/%d",
				tt.page, tt.size, pg.Page, len(pg.Rows), pg.TotalPages, tt.wantPage, tt.wantRows, tt.wantTotalPgs)
			continue
		}
		if got := pg.Rows[0].Get("n").Interface(); got != tt.wantFirst {
			t.Errorf("Page(%d,%d) first = %v, want %v", tt.page, tt.size, got, tt.wantFirst)
		}
		if pg.TotalRows != 7 {
			t.Errorf("TotalRows = %d, want 7", pg.TotalRows)
		}
	}

	empty := mustNew(t, []Record{}).Page(1, 10)
	if empty.TotalPages != 1 || len(empty.Rows) != 0 {
		t.Errorf("empty page = %+v, want one empty page", empty)
	}
}

func TestSetColumnVisible(t *testing.T) {
	p := mustNew(t, scenarioData(t))
	if !p.SetColumnVisible("cat", false) {
		t.Fatal("SetColumnVisible(cat) = false, want true")
	}
	if p.SetColumnVisible("nope", false) {
		t.Error("SetColumnVisible(nope) = true, want false")
	}
	for _, c := range p.VisibleColumns() {
		if c.Name == "cat" {
			t.Error("hidden column listed as visible")
		}
	}
	if got := len(p.Operations()); got != 0 {
		t.Errorf("visibility toggle logged %d operations, want 0", got)
	}
}

func TestValidate(t *testing.T) {
	p := mustNew(t, scenarioData(t))

	tests := []struct {
		name    string
		op      Operation
		wantErr bool
	}{
		{"valid filter", FilterOp("amt", FilterEquals, String("1")), false},
		{"missing column", FilterOp("nope", FilterEquals, String("1")), true},
		{"bad operator", FilterOp("amt", "like", String("1")), true},
		{"bad order", SortOp("amt", "sideways"), true},
		{"valid group", GroupByOp("cat", Aggregations{"amt": AggAvg}), false},
		{"bad aggregate", GroupByOp("cat", Aggregations{"amt": "median"}), true},
		{"empty select", SelectOp(), true},
		{"negative limit", LimitOp(-1), true},
		{"valid formula", CalculateOp("x", "amt * (id + 1)"), false},
		{"unknown name in formula", CalculateOp("x", "amt * qty"), true},
		{"unbalanced formula", CalculateOp("x", "(amt + 1"), true},
		{"code in formula", CalculateOp("x", "alert(1)"), true},
		{"unknown type", Operation{Type: "pivot"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Validate(tt.op)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("Validate() error type = %T, want *ValidationError", err)
			}
		})
	}

	if got := len(p.Operations()); got != 0 {
		t.Errorf("Validate logged %d operations, want 0", got)
	}
}

func TestApply_ReturnsReceiverForChaining(t *testing.T) {
	p := mustNew(t, scenarioData(t))
	if p.Apply(LimitOp(1)) != p || p.Sort("id", SortAsc) != p || p.Reset() != p {
		t.Error("mutators must return the receiver")
	}
}
