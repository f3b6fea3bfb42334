package pep508

import (
	"fmt"
	"strings"
)

// Marker is a parsed environment marker expression, e.g.
// `python_version >= "3.8" and sys_platform != "win32"`.
type Marker struct {
	expr node
	raw  string
}

// String returns the original marker text.
func (m *Marker) String() string { return m.raw }

// Eval evaluates the marker against the given environment snapshot.
// A reference to a variable the grammar does not define yields an
// [UndefinedError]; callers decide whether that is fatal or a skip.
func (m *Marker) Eval(env *Environment) (bool, error) {
	return m.expr.eval(env)
}

// UndefinedError reports a marker referencing a variable that is not part
// of the PEP 508 environment.
type UndefinedError struct {
	Name string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined environment marker variable: %s", e.Name)
}

// ParseMarker parses a marker expression.
func ParseMarker(s string) (*Marker, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, fmt.Errorf("marker %q: unexpected %q", s, p.peek().val)
	}
	return &Marker{expr: expr, raw: strings.TrimSpace(s)}, nil
}

// =============================================================================
// AST
// =============================================================================

type node interface {
	eval(env *Environment) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(env *Environment) (bool, error) {
	l, err := n.left.eval(env)
	if err != nil {
		return false, err
	}
	if l {
		return true, nil
	}
	return n.right.eval(env)
}

type andNode struct{ left, right node }

func (n andNode) eval(env *Environment) (bool, error) {
	l, err := n.left.eval(env)
	if err != nil {
		return false, err
	}
	if !l {
		return false, nil
	}
	return n.right.eval(env)
}

// operand is one side of a comparison: either a variable reference or a
// quoted literal.
type operand struct {
	variable bool
	val      string
}

func (o operand) resolve(env *Environment) (string, error) {
	if !o.variable {
		return o.val, nil
	}
	name := canonicalVariable(o.val)
	v, ok := env.Lookup(name)
	if !ok {
		return "", &UndefinedError{Name: o.val}
	}
	return v, nil
}

// canonicalVariable maps the deprecated dotted variable spellings
// (os.name, sys.platform, ...) onto their PEP 508 names.
func canonicalVariable(name string) string {
	switch name {
	case "os.name":
		return "os_name"
	case "sys.platform":
		return "sys_platform"
	case "platform.machine":
		return "platform_machine"
	case "platform.python_implementation", "python_implementation":
		return "platform_python_implementation"
	case "platform.version":
		return "platform_version"
	}
	return name
}

type cmpNode struct {
	left  operand
	op    string
	right operand
}

func (n cmpNode) eval(env *Environment) (bool, error) {
	lhs, err := n.left.resolve(env)
	if err != nil {
		return false, err
	}
	rhs, err := n.right.resolve(env)
	if err != nil {
		return false, err
	}
	return compareValues(lhs, n.op, rhs)
}

// compareValues applies a marker operator. Ordered operators try PEP 440
// version ordering first and fall back to plain string comparison when
// either side is not a version, matching Python packaging behavior.
func compareValues(lhs, op, rhs string) (bool, error) {
	switch op {
	case "in":
		return strings.Contains(rhs, lhs), nil
	case "not in":
		return !strings.Contains(rhs, lhs), nil
	case "===":
		return lhs == rhs, nil
	case "~=":
		if ok, valid := compatibleRelease(lhs, rhs); valid {
			return ok, nil
		}
		return false, fmt.Errorf("invalid version in ~= comparison: %q ~= %q", lhs, rhs)
	}

	if c, ok := compareVersionStrings(lhs, rhs); ok {
		return cmpResult(op, c)
	}
	return cmpResult(op, strings.Compare(lhs, rhs))
}

func cmpResult(op string, c int) (bool, error) {
	switch op {
	case "==":
		return c == 0, nil
	case "!=":
		return c != 0, nil
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown marker operator %q", op)
}

// =============================================================================
// Parser
// =============================================================================

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return token{kind: tokEOF}
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) eof() bool { return p.peek().kind == tokEOF }

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().val == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().val == "and" {
		p.next()
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAtom() (node, error) {
	if p.peek().kind == tokLParen {
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("marker: missing closing parenthesis")
		}
		p.next()
		return expr, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	return cmpNode{left: left, op: op, right: right}, nil
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return operand{val: t.val}, nil
	case tokIdent:
		return operand{variable: true, val: t.val}, nil
	}
	return operand{}, fmt.Errorf("marker: expected variable or string, got %q", t.val)
}

func (p *parser) parseOperator() (string, error) {
	t := p.next()
	switch t.kind {
	case tokOp:
		return t.val, nil
	case tokIdent:
		switch t.val {
		case "in":
			return "in", nil
		case "not":
			if p.peek().kind == tokIdent && p.peek().val == "in" {
				p.next()
				return "not in", nil
			}
		}
	}
	return "", fmt.Errorf("marker: expected operator, got %q", t.val)
}

// =============================================================================
// Tokenizer
// =============================================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	val  string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, val: "("})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, val: ")"})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("marker: unterminated string at offset %d", i)
			}
			toks = append(toks, token{kind: tokString, val: s[i+1 : i+1+end]})
			i += end + 2
		case isOpByte(c):
			j := i
			for j < len(s) && isOpByte(s[j]) {
				j++
			}
			op := s[i:j]
			switch op {
			case "==", "!=", "<", "<=", ">", ">=", "~=", "===":
			default:
				return nil, fmt.Errorf("marker: invalid operator %q", op)
			}
			toks = append(toks, token{kind: tokOp, val: op})
			i = j
		case isIdentByte(c):
			j := i
			for j < len(s) && (isIdentByte(s[j]) || s[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, val: s[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("marker: unexpected character %q", c)
		}
	}
	return toks, nil
}

func isOpByte(c byte) bool {
	return c == '=' || c == '!' || c == '<' || c == '>' || c == '~'
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
