// Package formula parses the arithmetic formulas of formula steps.
//
// Grammar:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/" | "%") unary }
//	unary   = "-" unary | primary
//	primary = number | 'text' | identifier | "[" column name "]" | "(" expr ")"
package formula

import (
	"fmt"
	"unicode"

	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/valuecast"
)

// Parse parses a formula into its syntax tree.
func Parse(expr string) (Node, error) {
	p := &parser{src: []rune(expr)}

	p.skipWhitespace()

	if p.eof() {
		return nil, fmt.Errorf("%w: empty formula", pipequery.ErrInvalidFormula)
	}

	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()

	if !p.eof() {
		return nil, p.errorf("unexpected character '%c'", p.peek())
	}

	return n, nil
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()

		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}

		p.pos++

		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}

		left = p.binary(op, left, right)
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()

		op := p.peek()
		if op != '*' && op != '/' && op != '%' {
			return left, nil
		}

		p.pos++

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = p.binary(op, left, right)
	}
}

func (p *parser) parseUnary() (Node, error) {
	p.skipWhitespace()

	if p.peek() != '-' {
		return p.parsePrimary()
	}

	start := p.pos
	p.pos++

	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	// fold negative literals
	if num, ok := operand.(*Number); ok {
		switch v := num.Value.(type) {
		case int64:
			return &Number{Value: -v, Position: p.span(start, num.Position)}, nil
		case float64:
			return &Number{Value: -v, Position: p.span(start, num.Position)}, nil
		}
	}

	return &Unary{Operator: '-', Operand: operand, Position: p.span(start, operand.Pos())}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	p.skipWhitespace()

	start := p.pos
	r := p.peek()

	switch {
	case p.eof():
		return nil, p.errorf("unexpected end of formula")
	case r == '(':
		p.pos++

		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		p.skipWhitespace()

		if !p.match(')') {
			return nil, p.errorf("expected ')'")
		}

		return inner, nil
	case r == '\'':
		return p.parseString()
	case r == '[':
		p.pos++

		nameStart := p.pos
		for !p.eof() && p.peek() != ']' {
			p.pos++
		}

		if p.eof() {
			return nil, p.errorf("expected ']' to close column name")
		}

		name := string(p.src[nameStart:p.pos])
		p.pos++

		if name == "" {
			return nil, p.errorf("empty column name")
		}

		return &Column{Name: name, Position: p.makePosition(start, p.pos)}, nil
	case unicode.IsDigit(r) || r == '.':
		return p.parseNumber()
	case isIdentStart(r):
		p.pos++
		for isIdentPart(p.peek()) {
			p.pos++
		}

		return &Column{Name: string(p.src[start:p.pos]), Position: p.makePosition(start, p.pos)}, nil
	default:
		return nil, p.errorf("unexpected character '%c'", r)
	}
}

func (p *parser) parseString() (Node, error) {
	start := p.pos
	p.pos++

	var text []rune

	for {
		if p.eof() {
			return nil, fmt.Errorf("%w: unterminated string at position %d", pipequery.ErrInvalidFormula, start+1)
		}

		r := p.peek()
		p.pos++

		if r == '\\' && !p.eof() {
			text = append(text, p.peek())
			p.pos++

			continue
		}

		if r == '\'' {
			break
		}

		text = append(text, r)
	}

	return &String{Value: string(text), Position: p.makePosition(start, p.pos)}, nil
}

func (p *parser) parseNumber() (Node, error) {
	start := p.pos
	dot := false

	for {
		r := p.peek()
		if r == '.' && !dot {
			dot = true
			p.pos++

			continue
		}

		if !unicode.IsDigit(r) {
			break
		}

		p.pos++
	}

	text := string(p.src[start:p.pos])

	value, err := valuecast.ToNumber(text)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid number '%s' at position %d", pipequery.ErrInvalidFormula, text, start+1)
	}

	if dot {
		if i, ok := value.(int64); ok {
			value = float64(i)
		}
	}

	return &Number{Value: value, Position: p.makePosition(start, p.pos)}, nil
}

func (p *parser) binary(op rune, left, right Node) Node {
	return &Binary{Operator: op, Left: left, Right: right, Position: p.span(left.Pos().Offset, right.Pos())}
}

func (p *parser) skipWhitespace() {
	for unicode.IsSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) match(r rune) bool {
	if p.peek() != r {
		return false
	}

	p.pos++

	return true
}

func (p *parser) peek() rune {
	if p.pos >= len(p.src) {
		return 0
	}

	return p.src[p.pos]
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at position %d", pipequery.ErrInvalidFormula, fmt.Sprintf(format, args...), p.pos+1)
}

func (p *parser) span(start int, end Position) Position {
	return p.makePosition(start, end.Offset+end.Length)
}

func (p *parser) makePosition(start, end int) Position {
	return Position{Offset: start, Column: start + 1, Length: end - start}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
