// parser_test.go
package scripting

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *Script {
	t.Helper()
	tokens := toks(t, src)
	script, err := NewParser("test", tokens, NewBuiltins()).Parse()
	if err != nil {
		t.Fatalf("parse error for %q: %v", src, err)
	}
	return script
}

func wantParseError(t *testing.T, src string, kind ParseErrorKind, msgPart string) {
	t.Helper()
	tokens := toks(t, src)
	_, err := NewParser("test", tokens, NewBuiltins()).Parse()
	if err == nil {
		t.Fatalf("expected parse error for %q, got none", src)
	}
	parseErr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError for %q, got %T: %v", src, err, err)
	}
	if parseErr.Kind != kind {
		t.Fatalf("source %q: want error kind %d, got %d (%s)", src, kind, parseErr.Kind, parseErr.Msg)
	}
	if !strings.Contains(parseErr.Msg, msgPart) {
		t.Fatalf("source %q: error %q does not contain %q", src, parseErr.Msg, msgPart)
	}
}

func wantDeduceError(t *testing.T, src string) {
	t.Helper()
	tokens := toks(t, src)
	_, err := NewParser("test", tokens, NewBuiltins()).Parse()
	if err == nil {
		t.Fatalf("expected error for %q, got none", src)
	}
	if _, ok := err.(*RuntimeError); !ok {
		t.Fatalf("expected *RuntimeError for %q, got %T: %v", src, err, err)
	}
	if !strings.Contains(err.Error(), "Unable to deduce type of empty list literal.") {
		t.Fatalf("source %q: unexpected error %q", src, err)
	}
}

func Test_Parser_CounterScript(t *testing.T) {
	script := mustParse(t, `STORE counter = 0;
counter = counter + 1;
PRINT counter;`)
	if len(script.Stores) != 1 || script.Stores[0].Name != "counter" {
		t.Fatalf("unexpected stores: %+v", script.Stores)
	}
	if !script.Stores[0].DataType().Equals(NumberType()) {
		t.Fatalf("counter store should be a number, got %s", script.Stores[0].DataType())
	}
	if len(script.Statements) != 2 {
		t.Fatalf("want 2 statements, got %d", len(script.Statements))
	}
}

func Test_Parser_Parameters(t *testing.T) {
	script := mustParse(t, `PARAMS a, b, c; PRINT a + b + c;`)
	if len(script.Parameters) != 3 {
		t.Fatalf("want 3 parameters, got %d", len(script.Parameters))
	}
	// Trailing comma before the semicolon is allowed.
	script = mustParse(t, `PARAMS a, b,; PRINT a;`)
	if len(script.Parameters) != 2 {
		t.Fatalf("want 2 parameters, got %d", len(script.Parameters))
	}
}

func Test_Parser_StaticTypes(t *testing.T) {
	script := mustParse(t, `PRINT true ? 'yes' : 'no';`)
	print := script.Statements[0].(*PrintStatement)
	if !print.Argument.StaticType().Equals(StringType()) {
		t.Fatalf("ternary should be a string, got %s", print.Argument.StaticType())
	}

	script = mustParse(t, `PRINT 1..=5;`)
	print = script.Statements[0].(*PrintStatement)
	if !print.Argument.StaticType().Equals(ListType(NumberType())) {
		t.Fatalf("range should be list<number>, got %s", print.Argument.StaticType())
	}

	script = mustParse(t, `PRINT for 'abc' as c yeet c;`)
	print = script.Statements[0].(*PrintStatement)
	if !print.Argument.StaticType().Equals(ListType(StringType())) {
		t.Fatalf("comprehension over string should be list<string>, got %s", print.Argument.StaticType())
	}
}

func Test_Parser_RangePrecedence(t *testing.T) {
	// Additive binds tighter than the range operator.
	script := mustParse(t, `PRINT 1 + 1..=2 * 3;`)
	print := script.Statements[0].(*PrintStatement)
	rangeOp, ok := print.Argument.(*BinaryOperation)
	if !ok || rangeOp.Operator != OpRangeInclusive {
		t.Fatalf("want range at the top, got %T", print.Argument)
	}
	if left, ok := rangeOp.Left.(*BinaryOperation); !ok || left.Operator != OpAdd {
		t.Fatalf("want addition on the left of the range")
	}
	if right, ok := rangeOp.Right.(*BinaryOperation); !ok || right.Operator != OpMultiply {
		t.Fatalf("want multiplication on the right of the range")
	}
}

func Test_Parser_EmptyListReification(t *testing.T) {
	script := mustParse(t, `LET a: list<number> = []; PRINT a;`)
	definition := script.Statements[0].(*VariableDefinitionStatement)
	literal, ok := definition.InitialValue.(*ListLiteral)
	if !ok {
		t.Fatalf("empty list should be reified to a typed literal, got %T", definition.InitialValue)
	}
	if !literal.ElementType.Equals(NumberType()) || len(literal.Elements) != 0 {
		t.Fatalf("unexpected reified literal: %+v", literal)
	}

	// Nested empty lists reify recursively.
	mustParse(t, `LET a: list<list<string>> = [[], []]; PRINT a;`)

	// A sibling element pins the type of an empty element.
	script = mustParse(t, `PRINT [[1], []];`)
	print := script.Statements[0].(*PrintStatement)
	if !print.Argument.StaticType().Equals(ListType(ListType(NumberType()))) {
		t.Fatalf("want list<list<number>>, got %s", print.Argument.StaticType())
	}
}

func Test_Parser_SortForms(t *testing.T) {
	script := mustParse(t, `PRINT 'sort'([3, 1, 2]);`)
	print := script.Statements[0].(*PrintStatement)
	sortExpr, ok := print.Argument.(*SortExpression)
	if !ok || sortExpr.Compare != nil {
		t.Fatalf("want default sort, got %T", print.Argument)
	}

	script = mustParse(t, `PRINT 'sort'(['b', 'a']; l, r yeet l < r);`)
	print = script.Statements[0].(*PrintStatement)
	sortExpr, ok = print.Argument.(*SortExpression)
	if !ok || sortExpr.Compare == nil {
		t.Fatalf("want comparator sort, got %T", print.Argument)
	}
	if sortExpr.LeftName != "l" || sortExpr.RightName != "r" {
		t.Fatalf("unexpected comparator binders: %q, %q", sortExpr.LeftName, sortExpr.RightName)
	}
}

func Test_Parser_SplitJoinForms(t *testing.T) {
	script := mustParse(t, `PRINT 'split'('a b c');`)
	if _, ok := script.Statements[0].(*PrintStatement).Argument.(*SplitExpression); !ok {
		t.Fatalf("want split expression")
	}
	script = mustParse(t, `PRINT 'join'(['a', 'b'], '-');`)
	if _, ok := script.Statements[0].(*PrintStatement).Argument.(*JoinExpression); !ok {
		t.Fatalf("want join expression")
	}
	// join accepts an empty list literal, fixed to list<string>.
	mustParse(t, `PRINT 'join'([]);`)
}

func Test_Parser_ExpectedToken(t *testing.T) {
	wantParseError(t, `PRINT 1`, ErrExpectedToken, "got end of input")
	wantParseError(t, `STORE = 1; PRINT 1;`, ErrExpectedToken, "Expected store name")
	wantParseError(t, ``, ErrExpectedToken, "at least one statement")
}

func Test_Parser_Redefinitions(t *testing.T) {
	wantParseError(t, `STORE a = 1; STORE a = 2; PRINT 1;`,
		ErrStoreRedefinition, "Store 'a' is already defined.")
	wantParseError(t, `LET a = 1; LET a = 2; PRINT a;`,
		ErrVariableRedefinition, "Variable 'a' is already defined.")
	wantParseError(t, `PARAMS a, a; PRINT a;`,
		ErrDuplicateParameterName, "Parameter 'a' is already defined.")
}

func Test_Parser_Shadowing(t *testing.T) {
	wantParseError(t, `STORE a = 1; PARAMS a; PRINT a;`,
		ErrParameterShadowsStore, "Parameter 'a' shadows store with the same name.")
	wantParseError(t, `STORE a = 1; LET a = 2; PRINT a;`,
		ErrVariableShadowsStore, "Variable 'a' shadows store with the same name.")
	wantParseError(t, `PARAMS a; LET a = 2; PRINT a;`,
		ErrVariableShadowsParameter, "Variable 'a' shadows parameter with the same name.")
	wantParseError(t, `LET a = 1; PRINT for [1] as a yeet a;`,
		ErrVariableRedefinition, "Variable 'a' is already defined.")
}

func Test_Parser_UnknownVariable(t *testing.T) {
	wantParseError(t, `PRINT x;`, ErrUnknownVariable, "Variable 'x' is not defined.")
	wantParseError(t, `x = 1;`, ErrUnknownVariable, "Variable 'x' is not defined.")
	// Comprehension binders go out of scope after the expression.
	wantParseError(t, `LET a = for [1] as x yeet x; PRINT x;`,
		ErrUnknownVariable, "Variable 'x' is not defined.")
}

func Test_Parser_TypeErrors(t *testing.T) {
	wantParseError(t, `LET a: number = 'x'; PRINT a;`,
		ErrInitializationType, "Cannot initialize variable 'a' of type 'number' with value of type 'string'.")
	wantParseError(t, `LET a = 1; a = 'x'; PRINT a;`,
		ErrAssignmentType, "Cannot assign value of type 'string' to target of type 'number'.")
	wantParseError(t, `PRINT 1 ? 2 : 3;`,
		ErrTernaryConditionType, "Ternary operator condition must be of type 'bool', got 'number'.")
	wantParseError(t, `PRINT true ? 1 : 'x';`,
		ErrTernaryBranchType, "Ternary operator branches must have the same type, got 'number' and 'string'.")
	wantParseError(t, `PRINT 1 + 'x';`,
		ErrInvalidOperandType, "Binary operator '+' is not supported for 'number' and 'string' operands.")
	wantParseError(t, `PRINT -true;`,
		ErrInvalidOperandType, "Unary operator '-' is not supported for 'bool' operands.")
	wantParseError(t, `PRINT [1] == [1];`,
		ErrInvalidOperandType, "Binary operator '==' is not supported")
	wantParseError(t, `PRINT 1[0];`,
		ErrSubscriptType, "Cannot subscript value of type 'number' with index of type 'number'.")
	wantParseError(t, `PRINT 5(1);`,
		ErrNotCallable, "Value of type 'number' is not callable.")
}

func Test_Parser_EmptyListErrors(t *testing.T) {
	wantParseError(t, `LET a = []; PRINT a;`,
		ErrEmptyListWithoutAnnotation, "Empty list literal requires an explicit type annotation.")
	wantParseError(t, `LET a = 1; a = []; PRINT a;`,
		ErrEmptyListAssignedToNonList, "Cannot assign an empty list literal to target of type 'number'.")
	wantParseError(t, `LET a: list<number> = [[], []]; PRINT a;`,
		ErrExpectedEmptyListLiteral, "Expected an empty list literal, got a list literal with 2 element(s).")
	wantParseError(t, `PRINT [1, 'x'];`,
		ErrListElementTypeMismatch, "List element type mismatch: expected 'number', got 'string'.")
	wantParseError(t, `PRINT [1, []];`,
		ErrListElementTypeMismatch, "List element type mismatch")
	wantDeduceError(t, `PRINT [];`)
	wantDeduceError(t, `STORE a = []; PRINT 1;`)
}

func Test_Parser_ComprehensionErrors(t *testing.T) {
	wantParseError(t, `PRINT for 1 as x yeet x;`,
		ErrTypeNotIterable, "Value of type 'number' is not iterable.")
	wantParseError(t, `PRINT for [1] as x yeet for [2] as y yeet y;`,
		ErrNestedComprehension, "Nested list comprehensions must be enclosed in parentheses.")
	wantParseError(t, `PRINT for [1] as x if 1 yeet x;`,
		ErrComprehensionConditionType, "List comprehension condition must be of type 'bool', got 'number'.")
	// Parenthesized nesting is fine.
	mustParse(t, `PRINT for [1] as x yeet (for [2] as y yeet y);`)
}

func Test_Parser_CollectErrors(t *testing.T) {
	wantParseError(t, `PRINT collect [1, 2] as acc, x with 'a';`,
		ErrCollectType, "Collect expression type error: expected 'number', got 'string'.")
	wantParseError(t, `PRINT collect 1 as acc, x with x;`,
		ErrTypeNotIterable, "Value of type 'number' is not iterable.")
	wantParseError(t, `PRINT collect [1] as a, a with a;`,
		ErrVariableRedefinition, "Variable 'a' is already defined.")
}

func Test_Parser_CombinatorErrors(t *testing.T) {
	wantParseError(t, `PRINT 'split'(1);`,
		ErrCombinatorArgument, "'split' requires a 'string' operand, got 'number'.")
	wantParseError(t, `PRINT 'split'('a', 'b', 'c');`,
		ErrCombinatorArgument, "'split' expects 1 or 2 arguments, got 3.")
	wantParseError(t, `PRINT 'join'([1]);`,
		ErrCombinatorArgument, "'join' requires a 'list<string>' operand, got 'list<number>'.")
	wantParseError(t, `PRINT 'sort'(1);`,
		ErrCombinatorArgument, "'sort' requires a list operand, got 'number'.")
	wantParseError(t, `PRINT 'sort'(['a']);`,
		ErrCombinatorArgument, "'sort' without a comparator requires a 'list<number>' operand, got 'list<string>'.")
	wantParseError(t, `PRINT 'sort'([1]; l, r yeet l + r);`,
		ErrCombinatorArgument, "'sort' comparator must be of type 'bool', got 'number'.")
}

func Test_Parser_StoreInitializerScope(t *testing.T) {
	// Earlier stores are visible in later initializers.
	mustParse(t, `STORE a = 1; STORE b = a + 1; PRINT b;`)
	// Parameters are not visible in store initializers.
	wantParseError(t, `STORE a = p; PARAMS p; PRINT a;`,
		ErrUnknownVariable, "Variable 'p' is not defined.")
}

func Test_Parser_ErrorPosition(t *testing.T) {
	tokens := toks(t, "PRINT 1;\nPRINT x;")
	_, err := NewParser("test", tokens, NewBuiltins()).Parse()
	parseErr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if parseErr.Line != 2 {
		t.Fatalf("want line 2, got %d", parseErr.Line)
	}
}
