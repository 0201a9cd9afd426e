// Package expr provides small recursive-descent evaluators for the two
// expression forms rules may carry: boolean combinators over positional
// condition outcomes and restricted arithmetic formulas. Both operate over a
// closed grammar; no general-purpose interpreter is ever invoked on
// user-supplied strings.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type boolTokenKind int

const (
	tokOperand boolTokenKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type boolToken struct {
	kind boolTokenKind
	// operand index, 1-based
	index int
}

// EvalBool evaluates a boolean combinator expression such as
// "1 AND (2 OR NOT 3)" where positional operands refer to entries of
// operands (1-based). Precedence: NOT > AND > OR.
func EvalBool(expression string, operands []bool) (bool, error) {
	tokens, err := lexBool(expression)
	if err != nil {
		return false, err
	}
	if len(tokens) == 0 {
		return false, fmt.Errorf("empty expression")
	}
	p := &boolParser{tokens: tokens, operands: operands}
	result, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.tokens) {
		return false, fmt.Errorf("unexpected token at position %d", p.pos)
	}
	return result, nil
}

func lexBool(expression string) ([]boolToken, error) {
	var tokens []boolToken
	i := 0
	runes := []rune(expression)
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, boolToken{kind: tokLParen})
			i++
		case r == ')':
			tokens = append(tokens, boolToken{kind: tokRParen})
			i++
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			idx, err := strconv.Atoi(string(runes[i:j]))
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, boolToken{kind: tokOperand, index: idx})
			i = j
		case unicode.IsLetter(r):
			j := i
			for j < len(runes) && unicode.IsLetter(runes[j]) {
				j++
			}
			word := strings.ToUpper(string(runes[i:j]))
			switch word {
			case "AND":
				tokens = append(tokens, boolToken{kind: tokAnd})
			case "OR":
				tokens = append(tokens, boolToken{kind: tokOr})
			case "NOT":
				tokens = append(tokens, boolToken{kind: tokNot})
			default:
				return nil, fmt.Errorf("unknown keyword %q", word)
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	return tokens, nil
}

type boolParser struct {
	tokens   []boolToken
	pos      int
	operands []bool
}

func (p *boolParser) peek() (boolToken, bool) {
	if p.pos >= len(p.tokens) {
		return boolToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *boolParser) parseOr() (bool, error) {
	left, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOr {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		left = left || right
	}
}

func (p *boolParser) parseAnd() (bool, error) {
	left, err := p.parseNot()
	if err != nil {
		return false, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokAnd {
			return left, nil
		}
		p.pos++
		right, err := p.parseNot()
		if err != nil {
			return false, err
		}
		left = left && right
	}
}

func (p *boolParser) parseNot() (bool, error) {
	tok, ok := p.peek()
	if ok && tok.kind == tokNot {
		p.pos++
		val, err := p.parseNot()
		if err != nil {
			return false, err
		}
		return !val, nil
	}
	return p.parsePrimary()
}

func (p *boolParser) parsePrimary() (bool, error) {
	tok, ok := p.peek()
	if !ok {
		return false, fmt.Errorf("unexpected end of expression")
	}
	switch tok.kind {
	case tokOperand:
		p.pos++
		if tok.index < 1 || tok.index > len(p.operands) {
			return false, fmt.Errorf("condition reference %d out of range", tok.index)
		}
		return p.operands[tok.index-1], nil
	case tokLParen:
		p.pos++
		val, err := p.parseOr()
		if err != nil {
			return false, err
		}
		next, ok := p.peek()
		if !ok || next.kind != tokRParen {
			return false, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return val, nil
	default:
		return false, fmt.Errorf("unexpected token at position %d", p.pos)
	}
}
