// errors_test.go
package scripting

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapErrorWithSource_ParseError(t *testing.T) {
	src := "PRINT 1;\nPRINT x;\nPRINT 2;"
	tokens := toks(t, src)
	_, err := NewParser("test", tokens, NewBuiltins()).Parse()
	if err == nil {
		t.Fatal("expected parse error")
	}

	wrapped := WrapErrorWithSource(err, src)
	msg := wrapped.Error()
	for _, part := range []string{
		"PARSE ERROR at 2:7:",
		"   1 | PRINT 1;",
		"   2 | PRINT x;",
		"     |       ^",
		"   3 | PRINT 2;",
	} {
		if !strings.Contains(msg, part) {
			t.Fatalf("rendered error missing %q:\n%s", part, msg)
		}
	}
}

func TestWrapErrorWithSource_LexError(t *testing.T) {
	src := "PRINT @;"
	_, err := NewLexer(src).Tokenize()
	if err == nil {
		t.Fatal("expected lex error")
	}

	msg := WrapErrorWithSource(err, src).Error()
	if !strings.Contains(msg, "LEXICAL ERROR at 1:7:") {
		t.Fatalf("unexpected header:\n%s", msg)
	}
	if !strings.Contains(msg, "Unexpected character '@'.") {
		t.Fatalf("message not carried over:\n%s", msg)
	}
}

func TestWrapErrorWithSource_RuntimeError(t *testing.T) {
	err := &RuntimeError{Msg: "Division by zero"}
	msg := WrapErrorWithSource(err, "PRINT 1 / 0;").Error()
	if msg != "RUNTIME ERROR: Division by zero" {
		t.Fatalf("unexpected rendering: %q", msg)
	}

	msg = WrapErrorWithName(err, "calc", "PRINT 1 / 0;").Error()
	if msg != "RUNTIME ERROR in calc: Division by zero" {
		t.Fatalf("unexpected rendering: %q", msg)
	}
}

func TestWrapErrorWithSource_OtherErrorsUntouched(t *testing.T) {
	err := errors.New("boring")
	if got := WrapErrorWithSource(err, "src"); got != err {
		t.Fatalf("foreign error was rewritten: %v", got)
	}
}

func TestWrapErrorWithName_IncludesName(t *testing.T) {
	src := "PRINT x;"
	tokens := toks(t, src)
	_, err := NewParser("greet", tokens, NewBuiltins()).Parse()
	msg := WrapErrorWithName(err, "greet", src).Error()
	if !strings.Contains(msg, "PARSE ERROR in greet at 1:7:") {
		t.Fatalf("unexpected header:\n%s", msg)
	}
}
