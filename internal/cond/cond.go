// Package cond evaluates the restricted condition expression language
// attached to effects and reactive rules.
//
// Only arithmetic, comparison, and/or/not, parentheses, literals, and
// dotted names resolved against a fixed context are accepted. Anything
// else (calls, subscripts, assignment, ...) fails parsing with ErrUnsafe;
// callers treat an unsafe or failed condition as false and log it.
package cond

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrUnsafe marks a rejected construct.
var ErrUnsafe = errors.New("unsafe condition construct")

// Context is the restricted variable schema the expression sees, e.g.
// {target: {hp: {current: 5}, guard: 1}, scene: {round: 3}}.
type Context map[string]interface{}

// Eval parses and evaluates an expression against the context.
// The result is coerced to a boolean: numbers are true when non-zero,
// strings when non-empty.
func Eval(expr string, ctx Context) (bool, error) {
	p := &parser{src: expr}
	p.next()
	v, err := p.parseOr(ctx)
	if err != nil {
		return false, err
	}
	if p.tok.kind != tokEOF {
		return false, fmt.Errorf("%w: trailing input %q", ErrUnsafe, p.tok.text)
	}
	return truthy(v), nil
}

// ---- lexer ----

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokString
	tokName
	tokOp // operators and punctuation
)

type token struct {
	kind tokKind
	text string
}

type parser struct {
	src string
	pos int
	tok token
}

func (p *parser) next() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF}
		return
	}
	c := p.src[p.pos]
	switch {
	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
			p.pos++
		}
		p.tok = token{kind: tokNumber, text: p.src[start:p.pos]}
	case c == '"' || c == '\'':
		quote := c
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != quote {
			p.pos++
		}
		if p.pos >= len(p.src) {
			p.tok = token{kind: tokOp, text: "<unterminated>"}
			return
		}
		p.tok = token{kind: tokString, text: p.src[start:p.pos]}
		p.pos++
	case isNameStart(c):
		start := p.pos
		for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
			p.pos++
		}
		p.tok = token{kind: tokName, text: p.src[start:p.pos]}
	default:
		// Two-char operators first.
		if p.pos+1 < len(p.src) {
			two := p.src[p.pos : p.pos+2]
			switch two {
			case "==", "!=", "<=", ">=":
				p.pos += 2
				p.tok = token{kind: tokOp, text: two}
				return
			}
		}
		p.pos++
		p.tok = token{kind: tokOp, text: string(c)}
	}
}

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isNameStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isNameChar(c byte) bool  { return isNameStart(c) || isDigit(c) || c == '.' }

// ---- recursive descent ----

func (p *parser) parseOr(ctx Context) (interface{}, error) {
	left, err := p.parseAnd(ctx)
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokName && p.tok.text == "or" {
		p.next()
		right, err := p.parseAnd(ctx)
		if err != nil {
			return nil, err
		}
		left = truthy(left) || truthy(right)
	}
	return left, nil
}

func (p *parser) parseAnd(ctx Context) (interface{}, error) {
	left, err := p.parseNot(ctx)
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokName && p.tok.text == "and" {
		p.next()
		right, err := p.parseNot(ctx)
		if err != nil {
			return nil, err
		}
		left = truthy(left) && truthy(right)
	}
	return left, nil
}

func (p *parser) parseNot(ctx Context) (interface{}, error) {
	if p.tok.kind == tokName && p.tok.text == "not" {
		p.next()
		v, err := p.parseNot(ctx)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}
	return p.parseCompare(ctx)
}

func (p *parser) parseCompare(ctx Context) (interface{}, error) {
	left, err := p.parseAdd(ctx)
	if err != nil {
		return nil, err
	}
	if p.tok.kind == tokOp {
		op := p.tok.text
		switch op {
		case "==", "!=", "<", "<=", ">", ">=":
			p.next()
			right, err := p.parseAdd(ctx)
			if err != nil {
				return nil, err
			}
			return compare(op, left, right)
		}
	}
	return left, nil
}

func (p *parser) parseAdd(ctx Context) (interface{}, error) {
	left, err := p.parseMul(ctx)
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := p.tok.text
		p.next()
		right, err := p.parseMul(ctx)
		if err != nil {
			return nil, err
		}
		l, r, err := bothNumbers(left, right)
		if err != nil {
			return nil, err
		}
		if op == "+" {
			left = l + r
		} else {
			left = l - r
		}
	}
	return left, nil
}

func (p *parser) parseMul(ctx Context) (interface{}, error) {
	left, err := p.parseUnary(ctx)
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "*" || p.tok.text == "/") {
		op := p.tok.text
		p.next()
		right, err := p.parseUnary(ctx)
		if err != nil {
			return nil, err
		}
		l, r, err := bothNumbers(left, right)
		if err != nil {
			return nil, err
		}
		if op == "*" {
			left = l * r
		} else {
			if r == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			left = l / r
		}
	}
	return left, nil
}

func (p *parser) parseUnary(ctx Context) (interface{}, error) {
	if p.tok.kind == tokOp && p.tok.text == "-" {
		p.next()
		v, err := p.parseUnary(ctx)
		if err != nil {
			return nil, err
		}
		n, ok := asNumber(v)
		if !ok {
			return nil, fmt.Errorf("unary minus on non-number")
		}
		return -n, nil
	}
	return p.parsePrimary(ctx)
}

func (p *parser) parsePrimary(ctx Context) (interface{}, error) {
	switch p.tok.kind {
	case tokNumber:
		n, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", p.tok.text)
		}
		p.next()
		return n, nil
	case tokString:
		s := p.tok.text
		p.next()
		return s, nil
	case tokName:
		name := p.tok.text
		p.next()
		switch name {
		case "true", "True":
			return true, nil
		case "false", "False":
			return false, nil
		case "none", "None", "null":
			return nil, nil
		}
		// Calls and subscripts are not in the allowed node set.
		if p.tok.kind == tokOp && (p.tok.text == "(" || p.tok.text == "[") {
			return nil, fmt.Errorf("%w: %q after name %q", ErrUnsafe, p.tok.text, name)
		}
		return resolveName(name, ctx)
	case tokOp:
		if p.tok.text == "(" {
			p.next()
			v, err := p.parseOr(ctx)
			if err != nil {
				return nil, err
			}
			if p.tok.kind != tokOp || p.tok.text != ")" {
				return nil, fmt.Errorf("missing closing paren")
			}
			p.next()
			return v, nil
		}
		return nil, fmt.Errorf("%w: operator %q", ErrUnsafe, p.tok.text)
	default:
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrUnsafe)
	}
}

// resolveName walks a dotted path through the context.
func resolveName(name string, ctx Context) (interface{}, error) {
	parts := strings.Split(name, ".")
	var cur interface{} = map[string]interface{}(ctx)
	for _, part := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("cannot resolve %q: %q is not a record", name, part)
		}
		v, ok := m[part]
		if !ok {
			return nil, fmt.Errorf("unknown name %q (at %q)", name, part)
		}
		cur = v
	}
	return cur, nil
}

// ---- value helpers ----

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func asNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func bothNumbers(a, b interface{}) (float64, float64, error) {
	l, ok := asNumber(a)
	if !ok {
		return 0, 0, fmt.Errorf("arithmetic on non-number %v", a)
	}
	r, ok := asNumber(b)
	if !ok {
		return 0, 0, fmt.Errorf("arithmetic on non-number %v", b)
	}
	return l, r, nil
}

func compare(op string, a, b interface{}) (interface{}, error) {
	// Numeric comparison when both sides are numbers; string equality
	// otherwise for == and !=.
	la, aNum := asNumber(a)
	lb, bNum := asNumber(b)
	if aNum && bNum {
		switch op {
		case "==":
			return la == lb, nil
		case "!=":
			return la != lb, nil
		case "<":
			return la < lb, nil
		case "<=":
			return la <= lb, nil
		case ">":
			return la > lb, nil
		case ">=":
			return la >= lb, nil
		}
	}
	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if aStr && bStr {
		switch op {
		case "==":
			return sa == sb, nil
		case "!=":
			return sa != sb, nil
		case "<":
			return sa < sb, nil
		case "<=":
			return sa <= sb, nil
		case ">":
			return sa > sb, nil
		case ">=":
			return sa >= sb, nil
		}
	}
	switch op {
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	}
	return nil, fmt.Errorf("cannot compare %T %s %T", a, op, b)
}
