// Package calc appends derived columns to extracted records: running and
// windowed aggregates, percentages, arithmetic expressions over row values,
// and the processing date.
package calc

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// exprNode is one node of a parsed arithmetic expression. Identifiers
// resolve against the row being evaluated; a null input makes the whole
// expression null for that row.
type exprNode interface {
	eval(env exprEnv) (float64, bool, error)
}

// exprEnv resolves an identifier to its numeric value. The bool reports
// whether the value is present (null propagates); an error means the
// identifier is unknown or not numeric.
type exprEnv func(name string) (float64, bool, error)

type numberNode float64

func (n numberNode) eval(exprEnv) (float64, bool, error) {
	return float64(n), true, nil
}

type identNode string

func (n identNode) eval(env exprEnv) (float64, bool, error) {
	return env(string(n))
}

type unaryNode struct {
	operand exprNode
}

func (n unaryNode) eval(env exprEnv) (float64, bool, error) {
	v, ok, err := n.operand.eval(env)
	if err != nil || !ok {
		return 0, ok, err
	}

	return -v, true, nil
}

type binaryNode struct {
	op          byte
	left, right exprNode
}

func (n binaryNode) eval(env exprEnv) (float64, bool, error) {
	l, ok, err := n.left.eval(env)
	if err != nil || !ok {
		return 0, ok, err
	}

	r, ok, err := n.right.eval(env)
	if err != nil || !ok {
		return 0, ok, err
	}

	switch n.op {
	case '+':
		return l + r, true, nil
	case '-':
		return l - r, true, nil
	case '*':
		return l * r, true, nil
	case '/':
		if r == 0 {
			return 0, false, fmt.Errorf("division by zero")
		}

		return l / r, true, nil
	case '%':
		if r == 0 {
			return 0, false, fmt.Errorf("division by zero")
		}

		l -= r * float64(int64(l/r))
		return l, true, nil
	}

	return 0, false, fmt.Errorf("unknown operator %q", n.op)
}

// parseExpr parses an arithmetic expression over numeric literals and
// column identifiers. Supported: + - * / %, parentheses, unary minus, and
// backtick-quoted identifiers for names with spaces.
func parseExpr(src string) (exprNode, error) {
	p := &exprParser{src: src}

	node, err := p.parseSum()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos:], p.pos)
	}

	return node, nil
}

// Identifiers returns the names referenced by an expression, best effort:
// a malformed expression yields nil and fails properly during Apply.
func Identifiers(expr string) []string {
	node, err := parseExpr(expr)
	if err != nil {
		return nil
	}

	var names []string
	collectIdents(node, &names)

	return names
}

func collectIdents(node exprNode, names *[]string) {
	switch n := node.(type) {
	case identNode:
		*names = append(*names, string(n))
	case unaryNode:
		collectIdents(n.operand, names)
	case binaryNode:
		collectIdents(n.left, names)
		collectIdents(n.right, names)
	}
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}

	return p.src[p.pos]
}

func (p *exprParser) parseSum() (exprNode, error) {
	node, err := p.parseProduct()
	if err != nil {
		return nil, err
	}

	for {
		p.skipSpace()

		op := p.peek()
		if op != '+' && op != '-' {
			return node, nil
		}

		p.pos++

		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}

		node = binaryNode{op: op, left: node, right: right}
	}
}

func (p *exprParser) parseProduct() (exprNode, error) {
	node, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		p.skipSpace()

		op := p.peek()
		if op != '*' && op != '/' && op != '%' {
			return node, nil
		}

		p.pos++

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		node = binaryNode{op: op, left: node, right: right}
	}
}

func (p *exprParser) parseUnary() (exprNode, error) {
	p.skipSpace()

	if p.peek() == '-' {
		p.pos++

		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return unaryNode{operand: operand}, nil
	}

	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (exprNode, error) {
	p.skipSpace()

	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("unexpected end of expression")
	}

	switch ch := p.peek(); {
	case ch == '(':
		p.pos++

		node, err := p.parseSum()
		if err != nil {
			return nil, err
		}

		p.skipSpace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("missing closing parenthesis at offset %d", p.pos)
		}

		p.pos++
		return node, nil

	case ch == '`':
		end := strings.IndexByte(p.src[p.pos+1:], '`')
		if end < 0 {
			return nil, fmt.Errorf("unterminated quoted identifier at offset %d", p.pos)
		}

		name := p.src[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return identNode(name), nil

	case ch >= '0' && ch <= '9' || ch == '.':
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}

		v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q at offset %d", p.src[start:p.pos], start)
		}

		return numberNode(v), nil
	}

	// Identifiers are scanned rune by rune so non-ASCII column names work
	// unquoted.
	if r, _ := utf8.DecodeRuneInString(p.src[p.pos:]); isIdentStart(r) {
		start := p.pos

		for p.pos < len(p.src) {
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			if !isIdentPart(r) {
				break
			}

			p.pos += size
		}

		return identNode(p.src[start:p.pos]), nil
	}

	return nil, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos], p.pos)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
