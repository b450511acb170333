package predicate

import (
	"cmp"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	dberrors "github.com/Bilodev/Pydeas/internal/errors"
)

// Op is a comparison operator.
type Op string

// Supported comparison operators.
const (
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
)

// Matcher reports whether a row, laid out as the columns it was bound to, matches.
type Matcher func(row []string) bool

// Expr is a parsed row predicate.
type Expr struct {
	src  string
	root node
}

// env resolves column references while evaluating one row.
type env struct {
	row   []string
	index map[string]int
}

func (e env) lookup(name string) string {
	return e.row[e.index[name]]
}

// node is a boolean expression tree node.
type node interface {
	eval(e env) bool
	walk(fn func(operand))
	String() string
}

// operand is a comparison side: a literal or a column reference.
type operand interface {
	value(e env) string
	String() string
}

type literal struct {
	text   string
	quoted bool
}

func (l literal) value(env) string { return l.text }

func (l literal) String() string {
	if l.quoted {
		return strconv.Quote(l.text)
	}
	return l.text
}

type columnRef struct {
	name string
}

func (c columnRef) value(e env) string { return e.lookup(c.name) }

var plainIdent = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

func (c columnRef) String() string {
	if plainIdent.MatchString(c.name) && !isKeyword(c.name) {
		return c.name
	}
	return "`" + c.name + "`"
}

type comparison struct {
	op          Op
	left, right operand
}

// eval reports whether the comparison holds. An empty value is missing
// data: it is only equal to another empty value and never ordered.
func (c *comparison) eval(e env) bool {
	a, b := c.left.value(e), c.right.value(e)
	if (a == "" || b == "") && c.op != OpEqual && c.op != OpNotEqual {
		return false
	}
	r := compare(a, b)
	switch c.op {
	case OpEqual:
		return r == 0
	case OpNotEqual:
		return r != 0
	case OpLess:
		return r < 0
	case OpLessEqual:
		return r <= 0
	case OpGreater:
		return r > 0
	case OpGreaterEqual:
		return r >= 0
	default:
		return false
	}
}

func (c *comparison) walk(fn func(operand)) {
	fn(c.left)
	fn(c.right)
}

func (c *comparison) String() string {
	return c.left.String() + " " + string(c.op) + " " + c.right.String()
}

type andNode struct {
	left, right node
}

func (n *andNode) eval(e env) bool { return n.left.eval(e) && n.right.eval(e) }

func (n *andNode) walk(fn func(operand)) {
	n.left.walk(fn)
	n.right.walk(fn)
}

func (n *andNode) String() string { return "(" + n.left.String() + " and " + n.right.String() + ")" }

type orNode struct {
	left, right node
}

func (n *orNode) eval(e env) bool { return n.left.eval(e) || n.right.eval(e) }

func (n *orNode) walk(fn func(operand)) {
	n.left.walk(fn)
	n.right.walk(fn)
}

func (n *orNode) String() string { return "(" + n.left.String() + " or " + n.right.String() + ")" }

type notNode struct {
	inner node
}

func (n *notNode) eval(e env) bool { return !n.inner.eval(e) }

func (n *notNode) walk(fn func(operand)) { n.inner.walk(fn) }

func (n *notNode) String() string { return "not " + n.inner.String() }

// decimal is the plain number syntax of cell values. It excludes the
// underscores, hex forms and inf/nan spellings strconv would also accept.
var decimal = regexp.MustCompile(`^[-+]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][-+]?\d{1,3})?$`)

// compare orders two cell values. Both sides are compared as numbers when
// both are decimal numbers, otherwise as text. Integers that fit int64
// compare exactly; other numbers compare as exact rationals.
func compare(a, b string) int {
	if x, err := strconv.ParseInt(a, 10, 64); err == nil {
		if y, err := strconv.ParseInt(b, 10, 64); err == nil {
			return cmp.Compare(x, y)
		}
	}
	if x, ok := parseNumber(a); ok {
		if y, ok := parseNumber(b); ok {
			return x.Cmp(y)
		}
	}
	return cmp.Compare(a, b)
}

func parseNumber(s string) (*big.Rat, bool) {
	if !decimal.MatchString(s) {
		return nil, false
	}
	return new(big.Rat).SetString(s)
}

func isKeyword(s string) bool {
	switch s {
	case "and", "or", "not":
		return true
	}
	return false
}

// Parse parses a predicate expression.
func Parse(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, dberrors.New(dberrors.CodeInvalidExpression, "empty expression")
	}
	g, err := exprParser.ParseString("", src)
	if err != nil {
		return nil, dberrors.InvalidExpression(src, err)
	}
	root, err := lowerOr(g)
	if err != nil {
		return nil, dberrors.InvalidExpression(src, err)
	}
	return &Expr{src: src, root: root}, nil
}

// Compile parses src and binds it to columns.
func Compile(src string, columns []string) (Matcher, error) {
	e, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return e.Bind(columns)
}

// Source returns the expression as written.
func (e *Expr) Source() string {
	return e.src
}

// String returns the canonical, fully parenthesized form of the expression.
func (e *Expr) String() string {
	return e.root.String()
}

// Columns returns the referenced column names in order of first appearance.
func (e *Expr) Columns() []string {
	var names []string
	seen := map[string]bool{}
	e.root.walk(func(o operand) {
		if c, ok := o.(columnRef); ok && !seen[c.name] {
			seen[c.name] = true
			names = append(names, c.name)
		}
	})
	return names
}

// Bind resolves column references against a schema.
func (e *Expr) Bind(columns []string) (Matcher, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}
	for _, name := range e.Columns() {
		if _, ok := index[name]; !ok {
			return nil, dberrors.ColumnNotFound(name).WithDetail("expression", e.src)
		}
	}
	root := e.root
	return func(row []string) bool {
		return root.eval(env{row: row, index: index})
	}, nil
}

func lowerOr(g *orGrammar) (node, error) {
	n, err := lowerAnd(g.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range g.Right {
		right, err := lowerAnd(r)
		if err != nil {
			return nil, err
		}
		n = &orNode{left: n, right: right}
	}
	return n, nil
}

func lowerAnd(g *andGrammar) (node, error) {
	n, err := lowerNot(g.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range g.Right {
		right, err := lowerNot(r)
		if err != nil {
			return nil, err
		}
		n = &andNode{left: n, right: right}
	}
	return n, nil
}

func lowerNot(g *notGrammar) (node, error) {
	switch {
	case g.Not != nil:
		inner, err := lowerNot(g.Not)
		if err != nil {
			return nil, err
		}
		return &notNode{inner: inner}, nil
	case g.Group != nil:
		return lowerOr(g.Group)
	default:
		left, err := lowerOperand(g.Cmp.Left)
		if err != nil {
			return nil, err
		}
		right, err := lowerOperand(g.Cmp.Right)
		if err != nil {
			return nil, err
		}
		return &comparison{op: Op(g.Cmp.Op), left: left, right: right}, nil
	}
}

func lowerOperand(g *operandGrammar) (operand, error) {
	switch {
	case g.Quoted != nil:
		name := strings.Trim(*g.Quoted, "`")
		if name == "" {
			return nil, dberrors.New(dberrors.CodeInvalidExpression, "empty quoted column name")
		}
		return columnRef{name: name}, nil
	case g.Column != nil:
		return columnRef{name: *g.Column}, nil
	case g.String != nil:
		s, err := unquote(*g.String)
		if err != nil {
			return nil, err
		}
		return literal{text: s, quoted: true}, nil
	default:
		return literal{text: *g.Number}, nil
	}
}

// unquote decodes a single or double quoted string literal with Go escapes.
func unquote(s string) (string, error) {
	quote := s[0]
	s = s[1 : len(s)-1]
	var b strings.Builder
	for s != "" {
		r, _, tail, err := strconv.UnquoteChar(s, quote)
		if err != nil {
			return "", err
		}
		b.WriteRune(r)
		s = tail
	}
	return b.String(), nil
}
