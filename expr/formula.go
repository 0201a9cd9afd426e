package expr

import (
	"fmt"
	"strconv"
	"unicode"
)

// FieldResolver returns the numeric value of a [field] operand. Missing or
// non-numeric fields resolve to 0.
type FieldResolver func(name string) float64

type formulaTokenKind int

const (
	ftokNumber formulaTokenKind = iota
	ftokField
	ftokPlus
	ftokMinus
	ftokStar
	ftokSlash
	ftokLParen
	ftokRParen
)

type formulaToken struct {
	kind  formulaTokenKind
	value float64
	field string
}

// EvalFormula evaluates a restricted arithmetic expression supporting
// + - * /, unary minus, parentheses, numeric literals and [field] operands.
// Division by zero is an error.
func EvalFormula(formula string, resolve FieldResolver) (float64, error) {
	tokens, err := lexFormula(formula)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, fmt.Errorf("empty formula")
	}
	p := &formulaParser{tokens: tokens, resolve: resolve}
	result, err := p.parseSum()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.tokens) {
		return 0, fmt.Errorf("unexpected token at position %d", p.pos)
	}
	return result, nil
}

func lexFormula(formula string) ([]formulaToken, error) {
	var tokens []formulaToken
	runes := []rune(formula)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '+':
			tokens = append(tokens, formulaToken{kind: ftokPlus})
			i++
		case r == '-':
			tokens = append(tokens, formulaToken{kind: ftokMinus})
			i++
		case r == '*':
			tokens = append(tokens, formulaToken{kind: ftokStar})
			i++
		case r == '/':
			tokens = append(tokens, formulaToken{kind: ftokSlash})
			i++
		case r == '(':
			tokens = append(tokens, formulaToken{kind: ftokLParen})
			i++
		case r == ')':
			tokens = append(tokens, formulaToken{kind: ftokRParen})
			i++
		case r == '[':
			j := i + 1
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated field reference")
			}
			tokens = append(tokens, formulaToken{kind: ftokField, field: string(runes[i+1 : j])})
			i = j + 1
		case unicode.IsDigit(r) || r == '.':
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			val, err := strconv.ParseFloat(string(runes[i:j]), 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", string(runes[i:j]))
			}
			tokens = append(tokens, formulaToken{kind: ftokNumber, value: val})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	return tokens, nil
}

type formulaParser struct {
	tokens  []formulaToken
	pos     int
	resolve FieldResolver
}

func (p *formulaParser) peek() (formulaToken, bool) {
	if p.pos >= len(p.tokens) {
		return formulaToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *formulaParser) parseSum() (float64, error) {
	left, err := p.parseProduct()
	if err != nil {
		return 0, err
	}
	for {
		tok, ok := p.peek()
		if !ok || (tok.kind != ftokPlus && tok.kind != ftokMinus) {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return 0, err
		}
		if tok.kind == ftokPlus {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *formulaParser) parseProduct() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		tok, ok := p.peek()
		if !ok || (tok.kind != ftokStar && tok.kind != ftokSlash) {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if tok.kind == ftokStar {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		}
	}
}

func (p *formulaParser) parseUnary() (float64, error) {
	tok, ok := p.peek()
	if ok && tok.kind == ftokMinus {
		p.pos++
		val, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -val, nil
	}
	return p.parseAtom()
}

func (p *formulaParser) parseAtom() (float64, error) {
	tok, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of formula")
	}
	switch tok.kind {
	case ftokNumber:
		p.pos++
		return tok.value, nil
	case ftokField:
		p.pos++
		if p.resolve == nil {
			return 0, nil
		}
		return p.resolve(tok.field), nil
	case ftokLParen:
		p.pos++
		val, err := p.parseSum()
		if err != nil {
			return 0, err
		}
		next, ok := p.peek()
		if !ok || next.kind != ftokRParen {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return val, nil
	default:
		return 0, fmt.Errorf("unexpected token at position %d", p.pos)
	}
}
