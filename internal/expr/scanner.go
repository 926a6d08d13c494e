package expr

import (
	"fmt"
	"strconv"
)

// ErrorFunc is notified for each error encountered while scanning, with the
// line the error occurred on.
type ErrorFunc func(line int, msg string)

var keywords = map[string]TokenType{
	"and":   And,
	"or":    Or,
	"not":   Not,
	"true":  True,
	"false": False,
	"null":  Null,
}

// Scanner converts an expression source string into a token stream.
type Scanner struct {
	source []byte
	tokens []Token

	// hadError is set if any error is encountered while scanning.
	hadError bool

	// errCB is an optional ErrorFunc notified for each error.
	errCB ErrorFunc

	// start is the offset in source of the first character of the lexeme
	// currently being considered, current the offset of the current one.
	start   int
	current int

	// line is the line number of the current lexeme.
	line int
}

// NewScanner creates a Scanner over source. onError may be nil.
func NewScanner(source string, onError ErrorFunc) *Scanner {
	return &Scanner{
		source: []byte(source),
		errCB:  onError,
		line:   1,
	}
}

// ScanTokens scans the whole source and returns the tokens, always ending
// with an EOF token. The boolean is true only if every character was
// consumed without error.
func (s *Scanner) ScanTokens() ([]Token, bool) {
	for !s.isAtEnd() {
		// We are at the beginning of the next lexeme.
		s.start = s.current
		s.scanToken()
	}
	s.tokens = append(s.tokens, Token{Type: EOF, Line: s.line})
	return s.tokens, !s.hadError
}

// HadError reports whether any error was encountered while scanning.
func (s *Scanner) HadError() bool {
	return s.hadError
}

// scanToken scans a single token.
func (s *Scanner) scanToken() {
	ch := s.advance()
	switch ch {
	case '(':
		s.addToken(LeftParen, nil)
	case ')':
		s.addToken(RightParen, nil)
	case ',':
		s.addToken(Comma, nil)
	case '.':
		s.addToken(Dot, nil)
	case '-':
		s.addToken(Minus, nil)
	case '+':
		s.addToken(Plus, nil)
	case '*':
		s.addToken(Star, nil)
	case '!':
		s.addMatched('=', BangEqual, Bang)
	case '=':
		s.addMatched('=', EqualEqual, Equal)
	case '<':
		s.addMatched('=', LessEqual, Less)
	case '>':
		s.addMatched('=', GreaterEqual, Greater)
	case '/':
		if s.advanceIf('/') {
			// Comments continue until end of line.
			s.consumeLine()
		} else {
			s.addToken(Slash, nil)
		}
	case '\n':
		s.line++
	case '"':
		s.string()
	default:
		switch {
		case isDigit(ch):
			s.number()
		case isAlpha(ch):
			s.identifier()
		case isWhitespace(ch):
			// Ignore whitespace.
		default:
			s.reportError(fmt.Sprintf("Unexpected character '%c'.", ch))
		}
	}
}

// addMatched consumes a trailing expected character and emits twoChar when it
// is present, oneChar otherwise.
func (s *Scanner) addMatched(expected byte, twoChar, oneChar TokenType) {
	if s.advanceIf(expected) {
		s.addToken(twoChar, nil)
	} else {
		s.addToken(oneChar, nil)
	}
}

// string consumes a string literal, producing a String token. Strings may
// span lines.
func (s *Scanner) string() {
	for s.peek() != '"' && !s.isAtEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}

	if s.isAtEnd() {
		s.reportError("Unterminated string.")
		return
	}

	// Closing '"'.
	s.advance()

	// Trim surrounding quotes.
	value := string(s.source[s.start+1 : s.current-1])
	s.addToken(String, value)
}

// number consumes a number literal, producing a Number token.
func (s *Scanner) number() {
	for isDigit(s.peek()) {
		s.advance()
	}

	// Possibly a decimal number.
	if s.peek() == '.' && isDigit(s.peekNext()) {
		// Consume the '.'
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}

	value, err := strconv.ParseFloat(string(s.source[s.start:s.current]), 64)
	if err != nil {
		s.reportError(fmt.Sprintf("Invalid number %q.", s.source[s.start:s.current]))
		return
	}
	s.addToken(Number, value)
}

// identifier consumes an identifier. If it matches a reserved keyword a
// token for that keyword is produced instead.
func (s *Scanner) identifier() {
	for isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := string(s.source[s.start:s.current])
	if tokType, ok := keywords[text]; ok {
		s.addToken(tokType, nil)
		return
	}
	s.addToken(Identifier, nil)
}

// consumeLine consumes characters until a newline or end of source.
func (s *Scanner) consumeLine() {
	for s.peek() != '\n' && !s.isAtEnd() {
		s.advance()
	}
}

// addToken creates a token from the current lexeme.
func (s *Scanner) addToken(tokType TokenType, literal any) {
	s.tokens = append(s.tokens, Token{
		Type:    tokType,
		Lexeme:  string(s.source[s.start:s.current]),
		Line:    s.line,
		Literal: literal,
	})
}

// advance consumes the next character in the source and returns it.
func (s *Scanner) advance() byte {
	s.current++
	return s.source[s.current-1]
}

// advanceIf consumes the next character only if it matches expected.
func (s *Scanner) advanceIf(expected byte) bool {
	if s.isAtEnd() {
		return false
	}
	if s.source[s.current] != expected {
		return false
	}
	s.current++
	return true
}

// peek returns the next character without consuming it.
func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.source[s.current]
}

// peekNext returns the character after the next one without consuming it.
func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

// reportError notifies the registered ErrorFunc and sets the hadError flag.
func (s *Scanner) reportError(msg string) {
	s.hadError = true
	if s.errCB != nil {
		s.errCB(s.line, msg)
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isAlphaNumeric(ch byte) bool {
	return isDigit(ch) || isAlpha(ch)
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}
