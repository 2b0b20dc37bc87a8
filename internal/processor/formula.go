package processor

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Formulas are arithmetic over numeric literals and field references:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | primary
//	primary = number | field | "(" expr ")"
//
// Field names are matched as whole words, longest name first, so a field
// "price" never matches inside "price_total". Nothing else is evaluated.

var (
	// ErrFormulaSyntax is returned when a formula does not parse.
	ErrFormulaSyntax = errors.New("invalid formula")

	// ErrNotNumeric is returned when a referenced field has no numeric value.
	ErrNotNumeric = errors.New("field is not numeric")

	// ErrNonFinite is returned when the result is NaN or infinite.
	ErrNonFinite = errors.New("formula result is not finite")
)

type tokenKind uint8

const (
	tokNumber tokenKind = iota
	tokField
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	num  float64
	text string
	pos  int
}

// Formula is a compiled expression bound to a set of field names.
type Formula struct {
	source string
	root   node
	fields []string
}

// Fields returns the field names the formula references, in order of first use.
func (f *Formula) Fields() []string { return f.fields }

// String returns the source text.
func (f *Formula) String() string { return f.source }

// CompileFormula parses formula, resolving identifiers against fields.
func CompileFormula(formula string, fields []string) (*Formula, error) {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			names = append(names, f)
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	toks, err := tokenize(formula, names)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, src: formula}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.toks) {
		t := p.toks[p.pos]
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrFormulaSyntax, t.text, t.pos)
	}

	f := &Formula{source: formula, root: root}
	seen := make(map[string]bool)
	for _, t := range toks {
		if t.kind == tokField && !seen[t.text] {
			seen[t.text] = true
			f.fields = append(f.fields, t.text)
		}
	}
	return f, nil
}

// Eval evaluates the formula against one record.
func (f *Formula) Eval(row Record) (float64, error) {
	v, err := f.root.eval(row)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFinite
	}
	return v, nil
}

func tokenize(src string, fields []string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i++
			continue
		}

		if name, ok := matchField(src, i, fields); ok {
			toks = append(toks, token{kind: tokField, text: name, pos: i})
			i += len(name)
			continue
		}

		switch {
		case isDigit(c) || c == '.':
			j := scanNumber(src, i)
			text := src[i:j]
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q at %d", ErrFormulaSyntax, text, i)
			}
			toks = append(toks, token{kind: tokNumber, num: n, text: text, pos: i})
			i = j
		case c == '+' || c == '-' || c == '*' || c == '/':
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		default:
			j := i + 1
			for j < len(src) && isWordByte(src[j]) && isWordByte(c) {
				j++
			}
			return nil, fmt.Errorf("%w: unknown name %q at %d", ErrFormulaSyntax, src[i:j], i)
		}
	}
	return toks, nil
}

// matchField finds the longest field name starting at i on word boundaries.
func matchField(src string, i int, fields []string) (string, bool) {
	for _, name := range fields {
		if !strings.HasPrefix(src[i:], name) {
			continue
		}
		end := i + len(name)
		if isBoundary(src, i) && isBoundary(src, end) {
			return name, true
		}
	}
	return "", false
}

// isBoundary reports a word boundary between src[i-1] and src[i].
func isBoundary(src string, i int) bool {
	before := i > 0 && isWordByte(src[i-1])
	after := i < len(src) && isWordByte(src[i])
	return before != after
}

func isWordByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func scanNumber(src string, i int) int {
	j := i
	for j < len(src) && (isDigit(src[j]) || src[j] == '.') {
		j++
	}
	if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
		k := j + 1
		if k < len(src) && (src[k] == '+' || src[k] == '-') {
			k++
		}
		if k < len(src) && isDigit(src[k]) {
			for k < len(src) && isDigit(src[k]) {
				k++
			}
			j = k
		}
	}
	return j
}

type parser struct {
	toks []token
	pos  int
	src  string
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: t.text[0], left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: t.text[0], left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	t, ok := p.peek()
	if ok && t.kind == tokOp && (t.text == "+" || t.text == "-") {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{neg: t.text == "-", operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: unexpected end of formula", ErrFormulaSyntax)
	}
	p.pos++
	switch t.kind {
	case tokNumber:
		return numberNode(t.num), nil
	case tokField:
		return fieldNode(t.text), nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return nil, fmt.Errorf("%w: missing ) for ( at %d", ErrFormulaSyntax, t.pos)
		}
		p.pos++
		return inner, nil
	}
	return nil, fmt.Errorf("%w: unexpected %q at %d", ErrFormulaSyntax, t.text, t.pos)
}

type node interface {
	eval(row Record) (float64, error)
}

type numberNode float64

func (n numberNode) eval(Record) (float64, error) { return float64(n), nil }

type fieldNode string

func (n fieldNode) eval(row Record) (float64, error) {
	f := row.Get(string(n)).Float()
	if math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %s", ErrNotNumeric, string(n))
	}
	return f, nil
}

type unaryNode struct {
	neg     bool
	operand node
}

func (n unaryNode) eval(row Record) (float64, error) {
	v, err := n.operand.eval(row)
	if err != nil {
		return 0, err
	}
	if n.neg {
		return -v, nil
	}
	return v, nil
}

type binaryNode struct {
	op          byte
	left, right node
}

func (n binaryNode) eval(row Record) (float64, error) {
	l, err := n.left.eval(row)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(row)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		return l / r, nil
	}
	return 0, fmt.Errorf("%w: operator %q", ErrFormulaSyntax, n.op)
}

// formulaCache compiles a formula once per distinct record shape.
type formulaCache struct {
	formula  string
	compiled map[string]compiledFormula
}

type compiledFormula struct {
	f   *Formula
	err error
}

func newFormulaCache(formula string) *formulaCache {
	return &formulaCache{formula: formula, compiled: make(map[string]compiledFormula)}
}

func (c *formulaCache) eval(row Record) (float64, error) {
	keys := row.Keys()
	sig := strings.Join(keys, "\x00")
	cf, ok := c.compiled[sig]
	if !ok {
		f, err := CompileFormula(c.formula, keys)
		cf = compiledFormula{f: f, err: err}
		c.compiled[sig] = cf
	}
	if cf.err != nil {
		return 0, cf.err
	}
	return cf.f.Eval(row)
}
