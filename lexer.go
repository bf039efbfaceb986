// lexer.go: scans chat script source into tokens.
//
// The scanner works on raw bytes with a single current offset. All valid
// script source is ASCII; any non-ASCII byte outside a string literal is a
// lex error. Errors are fail-fast: the first offending character aborts the
// scan with a *LexError carrying the exact source location.
package scripting

import (
	"fmt"
	"unicode/utf8"
)

var keywords = map[string]TokenType{
	"STORE":   STORE,
	"PARAMS":  PARAMS,
	"PRINT":   PRINT,
	"LET":     LET,
	"true":    BOOL_LITERAL,
	"false":   BOOL_LITERAL,
	"and":     AND,
	"or":      OR,
	"not":     NOT,
	"for":     FOR,
	"as":      AS,
	"if":      IF,
	"yeet":    YEET,
	"collect": COLLECT,
	"with":    WITH,
	"string":  STRING_TYPE,
	"number":  NUMBER_TYPE,
	"bool":    BOOL_TYPE,
	"list":    LIST_TYPE,
}

var singleCharTokens = map[byte]TokenType{
	',': COMMA,
	';': SEMICOLON,
	':': COLON,
	'+': PLUS,
	'-': MINUS,
	'*': ASTERISK,
	'/': SLASH,
	'%': PERCENT,
	'$': DOLLAR,
	'#': HASH,
	'?': QUESTION_MARK,
	'(': LEFT_PARENTHESIS,
	')': RIGHT_PARENTHESIS,
	'[': LEFT_SQUARE_BRACKET,
	']': RIGHT_SQUARE_BRACKET,
}

// escapeCharacters maps the escapable characters inside string literals to
// their replacements.
var escapeCharacters = map[byte]byte{
	'n':  '\n',
	'\'': '\'',
	'\\': '\\',
}

// LexError is an error in the lexical structure of the source.
type LexError struct {
	Msg            string
	SourceLocation SourceLocation
}

func (e *LexError) Error() string {
	pos := e.SourceLocation.Range().Start
	return fmt.Sprintf("LEXICAL ERROR at %d:%d: %s", pos.Line, pos.Column, e.Msg)
}

// Lexer scans a source string into tokens.
type Lexer struct {
	source string
	cur    int
}

// NewLexer creates a lexer for the given source.
func NewLexer(source string) *Lexer {
	return &Lexer{source: source}
}

// Tokenize scans the whole source. The returned slice always ends with an
// END_OF_INPUT token.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		l.skipWhitespace()
		if l.isAtEnd() {
			break
		}
		tok, err := l.scanToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	tokens = append(tokens, Token{Type: END_OF_INPUT, SourceLocation: l.hereLocation()})
	return tokens, nil
}

func (l *Lexer) scanToken() (Token, error) {
	c := l.current()
	switch {
	case c == '=':
		l.cur++
		if l.current() == '=' {
			l.cur++
			return l.makeToken(EQUALS_EQUALS, l.cur-2), nil
		}
		return l.makeToken(EQUALS, l.cur-1), nil
	case c == '!':
		l.cur++
		if l.current() == '=' {
			l.cur++
			return l.makeToken(EXCLAMATION_MARK_EQUALS, l.cur-2), nil
		}
		return l.makeToken(EXCLAMATION_MARK, l.cur-1), nil
	case c == '<':
		l.cur++
		if l.current() == '=' {
			l.cur++
			return l.makeToken(LESS_THAN_EQUALS, l.cur-2), nil
		}
		return l.makeToken(LESS_THAN, l.cur-1), nil
	case c == '>':
		l.cur++
		if l.current() == '=' {
			l.cur++
			return l.makeToken(GREATER_THAN_EQUALS, l.cur-2), nil
		}
		return l.makeToken(GREATER_THAN, l.cur-1), nil
	case c == '.':
		return l.scanRangeOperator()
	case isDigit(c):
		return l.scanNumber()
	case c == '\'':
		return l.scanString()
	case isIdentifierStart(c):
		return l.scanIdentifier(), nil
	default:
		if tt, ok := singleCharTokens[c]; ok {
			l.cur++
			return l.makeToken(tt, l.cur-1), nil
		}
		if c >= utf8.RuneSelf {
			r, _ := utf8.DecodeRuneInString(l.source[l.cur:])
			return Token{}, l.errHere(fmt.Sprintf("Invalid character '%c'.", r))
		}
		return Token{}, l.errHere(fmt.Sprintf("Unexpected character '%c'.", c))
	}
}

// scanRangeOperator scans "..=" or "..<". A lone '.' is never valid outside
// a number literal.
func (l *Lexer) scanRangeOperator() (Token, error) {
	start := l.cur
	l.cur++
	if l.current() != '.' {
		l.cur = start
		return Token{}, l.errHere("Unexpected character '.'.")
	}
	l.cur++
	switch l.current() {
	case '=':
		l.cur++
		return l.makeToken(RANGE_INCLUSIVE, start), nil
	case '<':
		l.cur++
		return l.makeToken(RANGE_EXCLUSIVE, start), nil
	default:
		return Token{}, l.errHere("Unexpected character '.'.")
	}
}

// scanNumber scans digits with an optional fractional part. The first dot of
// a range operator directly after a number ("1..=5") is left for the range
// scanner: a dot only starts a fraction when a digit follows it.
func (l *Lexer) scanNumber() (Token, error) {
	start := l.cur
	for isDigit(l.current()) {
		l.cur++
	}
	if l.current() == '.' && l.peekNext() != '.' {
		l.cur++
		if !isDigit(l.current()) {
			return Token{}, l.errHere("Invalid number format.")
		}
		for isDigit(l.current()) {
			l.cur++
		}
	}
	return l.makeToken(NUMBER_LITERAL, start), nil
}

func (l *Lexer) scanString() (Token, error) {
	start := l.cur
	l.cur++ // opening quote
	for {
		if l.isAtEnd() {
			return Token{}, l.errHere("Unterminated string literal.")
		}
		c := l.current()
		if c == '\\' {
			l.cur++
			if _, ok := escapeCharacters[l.current()]; !ok {
				return Token{}, l.errHere(fmt.Sprintf("Invalid escape sequence '\\%c'.", l.current()))
			}
			l.cur++
			continue
		}
		if c == '\'' {
			break
		}
		l.cur++
	}
	l.cur++ // closing quote
	return l.makeToken(STRING_LITERAL, start), nil
}

func (l *Lexer) scanIdentifier() Token {
	start := l.cur
	l.cur++
	for isIdentifierContinuation(l.current()) {
		l.cur++
	}
	lexeme := l.source[start:l.cur]
	if tt, ok := keywords[lexeme]; ok {
		return l.makeToken(tt, start)
	}
	return l.makeToken(IDENTIFIER, start)
}

func (l *Lexer) makeToken(tt TokenType, startOffset int) Token {
	return Token{
		Type: tt,
		SourceLocation: SourceLocation{
			Source: l.source,
			Offset: startOffset,
			Length: l.cur - startOffset,
		},
	}
}

func (l *Lexer) hereLocation() SourceLocation {
	return SourceLocation{Source: l.source, Offset: l.cur, Length: 1}
}

func (l *Lexer) errHere(msg string) error {
	return &LexError{Msg: msg, SourceLocation: l.hereLocation()}
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		switch l.source[l.cur] {
		case ' ', '\t', '\r', '\n':
			l.cur++
		default:
			return
		}
	}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.source) }

func (l *Lexer) current() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.cur]
}

func (l *Lexer) peekNext() byte {
	if l.cur+1 >= len(l.source) {
		return 0
	}
	return l.source[l.cur+1]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentifierStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isIdentifierContinuation(b byte) bool {
	return isIdentifierStart(b) || isDigit(b)
}

// unescapeStringLexeme turns a quoted string lexeme (as scanned by the lexer)
// into its value. The lexer has already validated the escapes.
func unescapeStringLexeme(lexeme string) string {
	inner := lexeme[1 : len(lexeme)-1]
	out := make([]byte, 0, len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			if replacement, ok := escapeCharacters[inner[i+1]]; ok {
				out = append(out, replacement)
				i++
				continue
			}
		}
		out = append(out, inner[i])
	}
	return string(out)
}
