// token.go: token kinds and source locations for the chat script language.
package scripting

import "strings"

// TokenType enumerates every lexeme class the lexer can produce.
type TokenType int

const (
	COMMA TokenType = iota
	SEMICOLON
	COLON
	EQUALS
	EQUALS_EQUALS
	EXCLAMATION_MARK
	EXCLAMATION_MARK_EQUALS
	LESS_THAN
	LESS_THAN_EQUALS
	GREATER_THAN
	GREATER_THAN_EQUALS
	PLUS
	MINUS
	ASTERISK
	SLASH
	PERCENT
	DOLLAR
	HASH
	QUESTION_MARK
	LEFT_PARENTHESIS
	RIGHT_PARENTHESIS
	LEFT_SQUARE_BRACKET
	RIGHT_SQUARE_BRACKET
	RANGE_INCLUSIVE // ..=
	RANGE_EXCLUSIVE // ..<

	STORE
	PARAMS
	PRINT
	LET

	AND
	OR
	NOT

	FOR
	AS
	IF
	YEET
	COLLECT
	WITH

	STRING_TYPE
	NUMBER_TYPE
	BOOL_TYPE
	LIST_TYPE

	IDENTIFIER
	STRING_LITERAL
	NUMBER_LITERAL
	BOOL_LITERAL

	END_OF_INPUT
)

var tokenTypeNames = map[TokenType]string{
	COMMA:                   "','",
	SEMICOLON:               "';'",
	COLON:                   "':'",
	EQUALS:                  "'='",
	EQUALS_EQUALS:           "'=='",
	EXCLAMATION_MARK:        "'!'",
	EXCLAMATION_MARK_EQUALS: "'!='",
	LESS_THAN:               "'<'",
	LESS_THAN_EQUALS:        "'<='",
	GREATER_THAN:            "'>'",
	GREATER_THAN_EQUALS:     "'>='",
	PLUS:                    "'+'",
	MINUS:                   "'-'",
	ASTERISK:                "'*'",
	SLASH:                   "'/'",
	PERCENT:                 "'%'",
	DOLLAR:                  "'$'",
	HASH:                    "'#'",
	QUESTION_MARK:           "'?'",
	LEFT_PARENTHESIS:        "'('",
	RIGHT_PARENTHESIS:       "')'",
	LEFT_SQUARE_BRACKET:     "'['",
	RIGHT_SQUARE_BRACKET:    "']'",
	RANGE_INCLUSIVE:         "'..='",
	RANGE_EXCLUSIVE:         "'..<'",
	STORE:                   "'STORE'",
	PARAMS:                  "'PARAMS'",
	PRINT:                   "'PRINT'",
	LET:                     "'LET'",
	AND:                     "'and'",
	OR:                      "'or'",
	NOT:                     "'not'",
	FOR:                     "'for'",
	AS:                      "'as'",
	IF:                      "'if'",
	YEET:                    "'yeet'",
	COLLECT:                 "'collect'",
	WITH:                    "'with'",
	STRING_TYPE:             "'string'",
	NUMBER_TYPE:             "'number'",
	BOOL_TYPE:               "'bool'",
	LIST_TYPE:               "'list'",
	IDENTIFIER:              "identifier",
	STRING_LITERAL:          "string literal",
	NUMBER_LITERAL:          "number literal",
	BOOL_LITERAL:            "bool literal",
	END_OF_INPUT:            "end of input",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return "unknown token"
}

// Position is a 1-based line/column pair.
type Position struct {
	Line   int
	Column int
}

// Range spans a token within the source, end exclusive.
type Range struct {
	Start Position
	End   Position
}

// SourceLocation pins a token to its source text by offset and length.
// Line/column coordinates are derived lazily via Range.
type SourceLocation struct {
	Source string
	Offset int
	Length int
}

// Lexeme returns the slice of the source the location covers.
func (l SourceLocation) Lexeme() string {
	if l.Offset >= len(l.Source) {
		return ""
	}
	end := l.Offset + l.Length
	if end > len(l.Source) {
		end = len(l.Source)
	}
	return l.Source[l.Offset:end]
}

// Range converts the byte offset into 1-based line/column coordinates.
func (l SourceLocation) Range() Range {
	lines := splitLinesKeepEnds(l.Source)
	currentOffset := 0
	var start, end Position
	for i, line := range lines {
		lineLength := len(line)
		if currentOffset+lineLength > l.Offset && start.Line == 0 {
			start = Position{Line: i + 1, Column: l.Offset - currentOffset + 1}
		}
		if currentOffset+lineLength >= l.Offset+l.Length {
			end = Position{Line: i + 1, Column: l.Offset + l.Length - currentOffset + 1}
			break
		}
		currentOffset += lineLength
	}
	// Offsets at or past the end of the source (end-of-input markers) point
	// just past the last line.
	if start.Line == 0 {
		last := len(lines)
		start = Position{Line: last, Column: len(lines[last-1]) + 1}
	}
	if end.Line == 0 {
		end = Position{Line: start.Line, Column: start.Column + 1}
	}
	return Range{Start: start, End: end}
}

// splitLinesKeepEnds splits src after every newline, keeping the newline
// attached to its line.
func splitLinesKeepEnds(src string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			lines = append(lines, src[start:i+1])
			start = i + 1
		}
	}
	if start < len(src) || len(lines) == 0 {
		lines = append(lines, src[start:])
	}
	return lines
}

// Token is a single lexeme with its location in the source.
type Token struct {
	Type           TokenType
	SourceLocation SourceLocation
}

// Lexeme returns the raw source text of the token.
func (t Token) Lexeme() string { return t.SourceLocation.Lexeme() }

func (t Token) describe() string {
	switch t.Type {
	case END_OF_INPUT:
		return "end of input"
	default:
		lexeme := t.Lexeme()
		if strings.TrimSpace(lexeme) == "" {
			return t.Type.String()
		}
		return "'" + lexeme + "'"
	}
}
