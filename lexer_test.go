// lexer_test.go
package scripting

import (
	"reflect"
	"strings"
	"testing"
)

func toks(t *testing.T, src string) []Token {
	t.Helper()
	tokens, err := NewLexer(src).Tokenize()
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	return tokens
}

func typesWithoutEOF(tokens []Token) []TokenType {
	if len(tokens) == 0 {
		return nil
	}
	end := len(tokens)
	if tokens[end-1].Type == END_OF_INPUT {
		end--
	}
	out := make([]TokenType, 0, end)
	for i := 0; i < end; i++ {
		out = append(out, tokens[i].Type)
	}
	return out
}

func wantTypes(t *testing.T, src string, want []TokenType) []Token {
	t.Helper()
	got := toks(t, src)
	gotTypes := typesWithoutEOF(got)
	if !reflect.DeepEqual(gotTypes, want) {
		t.Fatalf("\nsource:\n%s\nwant types:\n%v\ngot types:\n%v\n", src, want, gotTypes)
	}
	return got
}

func wantLexError(t *testing.T, src string, msgPart string) {
	t.Helper()
	_, err := NewLexer(src).Tokenize()
	if err == nil {
		t.Fatalf("expected lex error for %q, got none", src)
	}
	lexErr, ok := err.(*LexError)
	if !ok {
		t.Fatalf("expected *LexError, got %T: %v", err, err)
	}
	if !strings.Contains(lexErr.Msg, msgPart) {
		t.Fatalf("error %q does not contain %q", lexErr.Msg, msgPart)
	}
}

func Test_Lexer_CounterScript(t *testing.T) {
	src := `STORE counter = 0;
counter = counter + 1;
PRINT counter;`
	want := []TokenType{
		STORE, IDENTIFIER, EQUALS, NUMBER_LITERAL, SEMICOLON,
		IDENTIFIER, EQUALS, IDENTIFIER, PLUS, NUMBER_LITERAL, SEMICOLON,
		PRINT, IDENTIFIER, SEMICOLON,
	}
	wantTypes(t, src, want)
}

func Test_Lexer_Params_And_Let(t *testing.T) {
	src := `PARAMS first, second;
LET greeting: string = 'hello';
PRINT greeting + ' ' + first + ' ' + second;`
	want := []TokenType{
		PARAMS, IDENTIFIER, COMMA, IDENTIFIER, SEMICOLON,
		LET, IDENTIFIER, COLON, STRING_TYPE, EQUALS, STRING_LITERAL, SEMICOLON,
		PRINT, IDENTIFIER, PLUS, STRING_LITERAL, PLUS, IDENTIFIER,
		PLUS, STRING_LITERAL, PLUS, IDENTIFIER, SEMICOLON,
	}
	wantTypes(t, src, want)
}

func Test_Lexer_Operators(t *testing.T) {
	src := `PRINT 1 == 2 != 3 < 4 <= 5 > 6 >= 7;`
	want := []TokenType{
		PRINT,
		NUMBER_LITERAL, EQUALS_EQUALS,
		NUMBER_LITERAL, EXCLAMATION_MARK_EQUALS,
		NUMBER_LITERAL, LESS_THAN,
		NUMBER_LITERAL, LESS_THAN_EQUALS,
		NUMBER_LITERAL, GREATER_THAN,
		NUMBER_LITERAL, GREATER_THAN_EQUALS,
		NUMBER_LITERAL, SEMICOLON,
	}
	wantTypes(t, src, want)
}

func Test_Lexer_RangeOperators(t *testing.T) {
	wantTypes(t, `PRINT 1..=5;`, []TokenType{
		PRINT, NUMBER_LITERAL, RANGE_INCLUSIVE, NUMBER_LITERAL, SEMICOLON,
	})
	wantTypes(t, `PRINT 1..<5;`, []TokenType{
		PRINT, NUMBER_LITERAL, RANGE_EXCLUSIVE, NUMBER_LITERAL, SEMICOLON,
	})
}

func Test_Lexer_RangeAfterFractionalNumber(t *testing.T) {
	// "1.5" consumes the dot as a fraction; "1..=" leaves both dots for the
	// range operator.
	got := wantTypes(t, `PRINT 1.5;`, []TokenType{PRINT, NUMBER_LITERAL, SEMICOLON})
	if got[1].Lexeme() != "1.5" {
		t.Fatalf("want lexeme 1.5, got %q", got[1].Lexeme())
	}
}

func Test_Lexer_Keywords(t *testing.T) {
	src := `for as if yeet collect with and or not string number bool list true false`
	want := []TokenType{
		FOR, AS, IF, YEET, COLLECT, WITH, AND, OR, NOT,
		STRING_TYPE, NUMBER_TYPE, BOOL_TYPE, LIST_TYPE,
		BOOL_LITERAL, BOOL_LITERAL,
	}
	wantTypes(t, src, want)
}

func Test_Lexer_ConversionOperators(t *testing.T) {
	wantTypes(t, `PRINT $'42' + #true;`, []TokenType{
		PRINT, DOLLAR, STRING_LITERAL, PLUS, HASH, BOOL_LITERAL, SEMICOLON,
	})
	wantTypes(t, `PRINT ?'true';`, []TokenType{
		PRINT, QUESTION_MARK, STRING_LITERAL, SEMICOLON,
	})
	wantTypes(t, `PRINT !'PRINT 1;';`, []TokenType{
		PRINT, EXCLAMATION_MARK, STRING_LITERAL, SEMICOLON,
	})
}

func Test_Lexer_StringEscapes(t *testing.T) {
	got := wantTypes(t, `PRINT 'a\nb\'c\\d';`, []TokenType{PRINT, STRING_LITERAL, SEMICOLON})
	if want := `'a\nb\'c\\d'`; got[1].Lexeme() != want {
		t.Fatalf("want lexeme %q, got %q", want, got[1].Lexeme())
	}
	if want := "a\nb'c\\d"; unescapeStringLexeme(got[1].Lexeme()) != want {
		t.Fatalf("want value %q, got %q", want, unescapeStringLexeme(got[1].Lexeme()))
	}
}

func Test_Lexer_TrailingWhitespace(t *testing.T) {
	wantTypes(t, "PRINT 1;   \n\t ", []TokenType{PRINT, NUMBER_LITERAL, SEMICOLON})
}

func Test_Lexer_Errors(t *testing.T) {
	wantLexError(t, `PRINT 'unterminated`, "Unterminated string literal.")
	wantLexError(t, `PRINT 'bad\q';`, `Invalid escape sequence '\q'.`)
	wantLexError(t, `PRINT 3.;`, "Invalid number format.")
	wantLexError(t, `PRINT 1..5;`, "Unexpected character '.'.")
	wantLexError(t, `PRINT a.b;`, "Unexpected character '.'.")
	wantLexError(t, `PRINT 1 @ 2;`, "Unexpected character '@'.")
	wantLexError(t, `PRINT ä;`, "Invalid character 'ä'.")
}

func Test_Lexer_ErrorLocation(t *testing.T) {
	_, err := NewLexer("PRINT 1;\nPRINT @;").Tokenize()
	lexErr, ok := err.(*LexError)
	if !ok {
		t.Fatalf("expected *LexError, got %T", err)
	}
	pos := lexErr.SourceLocation.Range().Start
	if pos.Line != 2 || pos.Column != 7 {
		t.Fatalf("want 2:7, got %d:%d", pos.Line, pos.Column)
	}
}

func Test_Lexer_AlwaysEndsWithEndOfInput(t *testing.T) {
	for _, src := range []string{"", "   ", "PRINT 1;"} {
		tokens := toks(t, src)
		if len(tokens) == 0 || tokens[len(tokens)-1].Type != END_OF_INPUT {
			t.Fatalf("source %q: token stream does not end with end of input", src)
		}
	}
}
