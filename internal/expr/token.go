// Package expr implements the condition expression language used by step
// `if:` clauses and the `kiln expr` tool: a scanner, a recursive descent
// parser, an AST printer, and a tree-walk evaluator.
package expr

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	// Single-character tokens.
	LeftParen TokenType = iota
	RightParen
	Comma
	Dot
	Minus
	Plus
	Slash
	Star

	// One or two character tokens.
	Bang
	BangEqual
	Equal
	EqualEqual
	Greater
	GreaterEqual
	Less
	LessEqual

	// Literals.
	Identifier
	String
	Number

	// Keywords.
	And
	Or
	Not
	True
	False
	Null

	EOF
)

var tokenNames = map[TokenType]string{
	LeftParen:    "LeftParen",
	RightParen:   "RightParen",
	Comma:        "Comma",
	Dot:          "Dot",
	Minus:        "Minus",
	Plus:         "Plus",
	Slash:        "Slash",
	Star:         "Star",
	Bang:         "Bang",
	BangEqual:    "BangEqual",
	Equal:        "Equal",
	EqualEqual:   "EqualEqual",
	Greater:      "Greater",
	GreaterEqual: "GreaterEqual",
	Less:         "Less",
	LessEqual:    "LessEqual",
	Identifier:   "Identifier",
	String:       "String",
	Number:       "Number",
	And:          "And",
	Or:           "Or",
	Not:          "Not",
	True:         "True",
	False:        "False",
	Null:         "Null",
	EOF:          "EOF",
}

// String returns the name of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single scanned lexeme.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int

	// Literal holds the decoded value for String (string) and Number
	// (float64) tokens, and is nil otherwise.
	Literal any
}

// String renders the token for diagnostics and the `kiln expr --tokens` output.
func (t Token) String() string {
	if t.Literal != nil {
		return fmt.Sprintf("%s %q %v", t.Type, t.Lexeme, t.Literal)
	}
	return fmt.Sprintf("%s %q", t.Type, t.Lexeme)
}
