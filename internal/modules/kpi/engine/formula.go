package engine

import (
	"fmt"
	"math"
	"strconv"
	"unicode"

	"github.com/rs/zerolog/log"
)

// Evaluate computes an arithmetic expression over the supplied scope. The
// grammar is deliberately restricted: + - * /, unary minus, parentheses,
// numeric literals and scope identifiers. Identifiers resolve strictly
// against scope; anything else is a parse error. This replaces free-form
// expression evaluation so user-authored formulas cannot reach code.
func Evaluate(expression string, scope map[string]float64) (float64, error) {
	p := &exprParser{input: []rune(expression), scope: scope}
	value, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("expression produced a non-finite result")
	}
	return value, nil
}

// EvaluateOrZero evaluates a formula and degrades to 0 on any failure,
// logging the failure as a warning. A broken formula must never take a
// dashboard render down with it.
func EvaluateOrZero(expression string, scope map[string]float64) float64 {
	value, err := Evaluate(expression, scope)
	if err != nil {
		log.Warn().Err(err).Str("expression", expression).Msg("formula evaluation failed, defaulting to 0")
		return 0
	}
	return value
}

type exprParser struct {
	input []rune
	pos   int
	scope map[string]float64
}

// expression := term (('+' | '-') term)*
func (p *exprParser) parseExpression() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value -= rhs
		default:
			return value, nil
		}
	}
}

// term := factor (('*' | '/') factor)*
func (p *exprParser) parseTerm() (float64, error) {
	value, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			value *= rhs
		case '/':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			value /= rhs
		default:
			return value, nil
		}
	}
}

// factor := '-' factor | '(' expression ')' | number | identifier
func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpaces()
	switch r := p.peek(); {
	case r == '-':
		p.pos++
		value, err := p.parseFactor()
		return -value, err
	case r == '(':
		p.pos++
		value, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		p.pos++
		return value, nil
	case unicode.IsDigit(r) || r == '.':
		return p.parseNumber()
	case unicode.IsLetter(r) || r == '_':
		return p.parseIdentifier()
	case r == 0:
		return 0, fmt.Errorf("unexpected end of expression")
	default:
		return 0, fmt.Errorf("unexpected character %q at position %d", r, p.pos)
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	literal := string(p.input[start:p.pos])
	value, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric literal %q", literal)
	}
	return value, nil
}

func (p *exprParser) parseIdentifier() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		r := p.input[p.pos]
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		p.pos++
	}
	name := string(p.input[start:p.pos])
	value, ok := p.scope[name]
	if !ok {
		return 0, fmt.Errorf("unknown identifier %q", name)
	}
	return value, nil
}

func (p *exprParser) peek() rune {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}
