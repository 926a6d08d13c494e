package expr

import (
	"go.trai.ch/zerr"
)

// ErrParse is the base error for all parse failures.
var ErrParse = zerr.New("parse error")

// Parser builds an expression tree from a token stream.
//
// Grammar, lowest to highest precedence:
//
//	expression -> or
//	or         -> and ( "or" and )*
//	and        -> equality ( "and" equality )*
//	equality   -> comparison ( ( "!=" | "==" ) comparison )*
//	comparison -> term ( ( ">" | ">=" | "<" | "<=" ) term )*
//	term       -> factor ( ( "-" | "+" ) factor )*
//	factor     -> unary ( ( "/" | "*" ) unary )*
//	unary      -> ( "!" | "not" | "-" ) unary | access
//	access     -> primary ( "." IDENTIFIER )*
//	primary    -> NUMBER | STRING | "true" | "false" | "null"
//	            | IDENTIFIER | "(" expression ")"
type Parser struct {
	tokens  []Token
	current int
}

// NewParser creates a Parser over the given tokens. The token slice must end
// with an EOF token, as produced by Scanner.ScanTokens.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses a source string in one call: scan, parse, and require that
// the whole input was consumed.
func Parse(source string) (Expr, error) {
	var scanErr error
	scanner := NewScanner(source, func(line int, msg string) {
		if scanErr == nil {
			scanErr = zerr.With(zerr.Wrap(ErrParse, msg), "line", line)
		}
	})
	tokens, ok := scanner.ScanTokens()
	if !ok {
		return nil, scanErr
	}
	return NewParser(tokens).Parse()
}

// Parse parses a single expression and requires EOF to follow it.
func (p *Parser) Parse() (Expr, error) {
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !p.isAtEnd() {
		return nil, p.errorAt(p.peek(), "Expect end of expression.")
	}
	return e, nil
}

func (p *Parser) expression() (Expr, error) {
	return p.or()
}

func (p *Parser) or() (Expr, error) {
	e, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.match(Or) {
		op := p.previous()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		e = &LogicalExpr{Left: e, Operator: op, Right: right}
	}
	return e, nil
}

func (p *Parser) and() (Expr, error) {
	e, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.match(And) {
		op := p.previous()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		e = &LogicalExpr{Left: e, Operator: op, Right: right}
	}
	return e, nil
}

func (p *Parser) equality() (Expr, error) {
	return p.binaryLevel(p.comparison, BangEqual, EqualEqual)
}

func (p *Parser) comparison() (Expr, error) {
	return p.binaryLevel(p.term, Greater, GreaterEqual, Less, LessEqual)
}

func (p *Parser) term() (Expr, error) {
	return p.binaryLevel(p.factor, Minus, Plus)
}

func (p *Parser) factor() (Expr, error) {
	return p.binaryLevel(p.unary, Slash, Star)
}

// binaryLevel parses one left-associative binary precedence level.
func (p *Parser) binaryLevel(operand func() (Expr, error), types ...TokenType) (Expr, error) {
	e, err := operand()
	if err != nil {
		return nil, err
	}
	for p.match(types...) {
		op := p.previous()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		e = &BinaryExpr{Left: e, Operator: op, Right: right}
	}
	return e, nil
}

func (p *Parser) unary() (Expr, error) {
	if p.match(Bang, Not, Minus) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Operator: op, Right: right}, nil
	}
	return p.access()
}

func (p *Parser) access() (Expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.match(Dot) {
		name, err := p.consume(Identifier, "Expect property name after '.'.")
		if err != nil {
			return nil, err
		}
		e = &GetExpr{Object: e, Name: name}
	}
	return e, nil
}

func (p *Parser) primary() (Expr, error) {
	switch {
	case p.match(False):
		return &LiteralExpr{Value: false}, nil
	case p.match(True):
		return &LiteralExpr{Value: true}, nil
	case p.match(Null):
		return &LiteralExpr{Value: nil}, nil
	case p.match(Number, String):
		return &LiteralExpr{Value: p.previous().Literal}, nil
	case p.match(Identifier):
		return &VariableExpr{Name: p.previous()}, nil
	case p.match(LeftParen):
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(RightParen, "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return &GroupingExpr{Expression: e}, nil
	default:
		return nil, p.errorAt(p.peek(), "Expect expression.")
	}
}

// match consumes the next token if it has one of the given types.
func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.current++
			return true
		}
	}
	return false
}

// consume requires the next token to have the given type and consumes it.
func (p *Parser) consume(t TokenType, msg string) (Token, error) {
	if p.check(t) {
		p.current++
		return p.previous(), nil
	}
	return Token{}, p.errorAt(p.peek(), msg)
}

func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() Token {
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == EOF
}

func (p *Parser) errorAt(tok Token, msg string) error {
	err := zerr.With(zerr.Wrap(ErrParse, msg), "line", tok.Line)
	if tok.Type == EOF {
		return zerr.With(err, "at", "end")
	}
	return zerr.With(err, "at", tok.Lexeme)
}
