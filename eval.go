// eval.go: the evaluator.
//
// Execution walks the typed AST with a single exhaustive type switch per
// statement/expression. The parser has already established all static types,
// so the evaluator trusts node types where the parser guarantees them and
// re-checks only the properties that genuinely depend on runtime values
// (integral indices, zero divisors, store presence, and so on).
//
// Store semantics are read-once/write-once: all store values are read before
// the first statement runs (missing keys are seeded from the declarations'
// initial-value expressions) and the entire final map is written back exactly
// once, only after every statement succeeded with the context still live. A
// failed or cancelled execution writes nothing.
package scripting

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ScriptCaller resolves a dynamic script call. It is invoked with rendered
// string arguments and returns the called script's output.
type ScriptCaller func(ctx context.Context, scriptName string, arguments ...string) (string, error)

// DefaultMaxCallDepth bounds recursive script calls when no explicit limit
// is configured.
const DefaultMaxCallDepth = 64

// RuntimeError is an error raised while executing a script.
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string { return e.Msg }

func rtErrf(format string, args ...any) error {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}

// Recursive script calls cross the host boundary (each call is a fresh
// Execute), so the accumulated call depth travels in the context.
type callDepthKey struct{}

func callDepth(ctx context.Context) int {
	if depth, ok := ctx.Value(callDepthKey{}).(int); ok {
		return depth
	}
	return 0
}

func withCallDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, callDepthKey{}, depth)
}

type execContext struct {
	ctx        context.Context
	scriptName string
	stores     map[StoreKey]Value
	parameters map[string]Value
	variables  map[string]Value
	callScript ScriptCaller
	builtins   *Builtins
	maxDepth   int
}

// Execute runs the script against the given persistent store. It returns the
// concatenated PRINT output and whether any PRINT executed at all ("no
// output" is distinct from empty output).
func (s *Script) Execute(
	ctx context.Context,
	store PersistentStore,
	arguments []string,
	callScript ScriptCaller,
) (string, bool, error) {
	return s.executeWithDepthLimit(ctx, store, arguments, callScript, DefaultMaxCallDepth)
}

func (s *Script) executeWithDepthLimit(
	ctx context.Context,
	store PersistentStore,
	arguments []string,
	callScript ScriptCaller,
	maxDepth int,
) (string, bool, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCallDepth
	}
	if depth := callDepth(ctx); depth >= maxDepth {
		return "", false, rtErrf(
			"Script call depth exceeded the maximum of %d (recursion too deep).", maxDepth)
	}
	if len(arguments) != len(s.Parameters) {
		return "", false, rtErrf("Script '%s' expects %d argument(s), got %d.",
			s.Name, len(s.Parameters), len(arguments))
	}

	keys := make(map[StoreKey]struct{}, len(s.Stores))
	for _, declaration := range s.Stores {
		keys[StoreKey{ScriptName: s.Name, StoreName: declaration.Name}] = struct{}{}
	}
	stores := make(map[StoreKey]Value, len(keys))
	if len(keys) > 0 {
		read, err := store.ReadValues(ctx, keys)
		if err != nil {
			return "", false, err
		}
		for key, value := range read {
			stores[key] = value
		}
	}

	ec := &execContext{
		ctx:        ctx,
		scriptName: s.Name,
		stores:     stores,
		parameters: make(map[string]Value, len(s.Parameters)),
		variables:  make(map[string]Value),
		callScript: callScript,
		builtins:   s.builtins,
		maxDepth:   maxDepth,
	}

	// Keys the adapter did not have yet are seeded from the declarations'
	// initial values; earlier stores are visible to later initializers.
	for _, declaration := range s.Stores {
		key := StoreKey{ScriptName: s.Name, StoreName: declaration.Name}
		if _, ok := stores[key]; ok {
			continue
		}
		value, err := ec.eval(declaration.Value)
		if err != nil {
			return "", false, err
		}
		stores[key] = value
	}
	for i, parameter := range s.Parameters {
		ec.parameters[parameter.Name] = StringValue(arguments[i])
	}

	output, printed, err := ec.runStatements(s.Statements)
	if err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if len(s.Stores) > 0 {
		if err := store.StoreValues(ctx, stores); err != nil {
			return "", false, err
		}
	}
	return output, printed, nil
}

func (ec *execContext) runStatements(statements []Statement) (string, bool, error) {
	var output strings.Builder
	printed := false
	for _, statement := range statements {
		if err := ec.ctx.Err(); err != nil {
			return "", false, err
		}
		switch st := statement.(type) {
		case *PrintStatement:
			value, err := ec.eval(st.Argument)
			if err != nil {
				return "", false, err
			}
			output.WriteString(value.ToString())
			printed = true
		case *AssignmentStatement:
			if err := ec.assign(st); err != nil {
				return "", false, err
			}
		case *VariableDefinitionStatement:
			value, err := ec.eval(st.InitialValue)
			if err != nil {
				return "", false, err
			}
			ec.variables[st.Name] = value
		default:
			return "", false, rtErrf("unsupported statement kind %T", statement)
		}
	}
	return output.String(), printed, nil
}

func (ec *execContext) assign(st *AssignmentStatement) error {
	value, err := ec.eval(st.Value)
	if err != nil {
		return err
	}
	switch target := st.Target.(type) {
	case *StoreIdentifier:
		key := StoreKey{ScriptName: ec.scriptName, StoreName: target.Name}
		if _, ok := ec.stores[key]; !ok {
			return rtErrf("Store '%s' not found.", target.Name)
		}
		ec.stores[key] = value
	case *ParameterIdentifier:
		if _, ok := ec.parameters[target.Name]; !ok {
			return rtErrf("Parameter '%s' not defined.", target.Name)
		}
		ec.parameters[target.Name] = value
	case *VariableIdentifier:
		if _, ok := ec.variables[target.Name]; !ok {
			return rtErrf("Variable '%s' not defined.", target.Name)
		}
		ec.variables[target.Name] = value
	default:
		return rtErrf("unsupported assignment target %T", st.Target)
	}
	return nil
}

func (ec *execContext) eval(expression Expression) (Value, error) {
	switch e := expression.(type) {
	case *StringLiteral:
		return StringValue(e.Value), nil
	case *NumberLiteral:
		return NumberValue(e.Value), nil
	case *BoolLiteral:
		return BoolValue(e.Value), nil
	case *StoreIdentifier:
		key := StoreKey{ScriptName: ec.scriptName, StoreName: e.Name}
		value, ok := ec.stores[key]
		if !ok {
			return Value{}, rtErrf("Store '%s' not found.", e.Name)
		}
		return value, nil
	case *ParameterIdentifier:
		value, ok := ec.parameters[e.Name]
		if !ok {
			return Value{}, rtErrf("Parameter '%s' not defined.", e.Name)
		}
		return value, nil
	case *VariableIdentifier:
		value, ok := ec.variables[e.Name]
		if !ok {
			return Value{}, rtErrf("Variable '%s' not defined.", e.Name)
		}
		return value, nil
	case *UnaryOperation:
		return ec.evalUnary(e)
	case *BinaryOperation:
		return ec.evalBinary(e)
	case *TernaryOperation:
		condition, err := ec.eval(e.Condition)
		if err != nil {
			return Value{}, err
		}
		if condition.Tag != VBool {
			return Value{}, rtErrf("Ternary condition must be a boolean, got %s", condition.Type())
		}
		if condition.Bool {
			return ec.eval(e.TrueBranch)
		}
		return ec.eval(e.FalseBranch)
	case *CallOperation:
		return ec.evalCall(e)
	case *EmptyListLiteral:
		return Value{}, rtErrf("Unable to deduce type of empty list literal.")
	case *ListLiteral:
		elements := make([]Value, 0, len(e.Elements))
		for _, element := range e.Elements {
			value, err := ec.eval(element)
			if err != nil {
				return Value{}, err
			}
			elements = append(elements, value)
		}
		return ListValue(e.ElementType, elements), nil
	case *SubscriptOperation:
		return ec.evalSubscript(e)
	case *ListComprehension:
		return ec.evalComprehension(e)
	case *FoldExpression:
		return ec.evalFold(e)
	case *SortExpression:
		return ec.evalSort(e)
	case *SplitExpression:
		return ec.evalSplit(e)
	case *JoinExpression:
		return ec.evalJoin(e)
	default:
		return Value{}, rtErrf("unsupported expression kind %T", expression)
	}
}

func (ec *execContext) evalUnary(e *UnaryOperation) (Value, error) {
	operand, err := ec.eval(e.Operand)
	if err != nil {
		return Value{}, err
	}
	switch e.Operator {
	case OpPlus:
		if operand.Tag == VNumber {
			return operand, nil
		}
	case OpNegate:
		if operand.Tag == VNumber {
			return NumberValue(-operand.Num), nil
		}
	case OpNot:
		if operand.Tag == VBool {
			return BoolValue(!operand.Bool), nil
		}
	case OpToNumber:
		switch operand.Tag {
		case VNumber:
			return operand, nil
		case VBool:
			if operand.Bool {
				return NumberValue(1), nil
			}
			return NumberValue(0), nil
		case VString:
			return parseStringAsNumber(operand.Str)
		}
	case OpToString:
		return StringValue(operand.ToString()), nil
	case OpToBool:
		switch operand.Tag {
		case VBool:
			return operand, nil
		case VNumber:
			return BoolValue(operand.Num != 0), nil
		case VString:
			switch operand.Str {
			case "true":
				return BoolValue(true), nil
			case "false":
				return BoolValue(false), nil
			default:
				return Value{}, rtErrf("String '%s' cannot be converted to boolean", operand.Str)
			}
		}
	case OpEvaluate:
		if operand.Tag == VString {
			return ec.evalInline(operand.Str)
		}
	}
	return Value{}, rtErrf("Unary operator %s is not supported for %s operands",
		e.Operator, operand.Type())
}

// parseStringAsNumber applies the `$` conversion: the string is re-lexed
// with the language's own lexer and must be exactly a number literal with an
// optional sign.
func parseStringAsNumber(s string) (Value, error) {
	tokens, err := NewLexer(s).Tokenize()
	if err != nil {
		return Value{}, rtErrf("Failed to lex string '%s' for number conversion: %v", s, err)
	}
	invalid := func() (Value, error) {
		return Value{}, rtErrf("String '%s' does not represent a valid number", s)
	}
	if len(tokens) < 2 {
		return invalid()
	}
	switch {
	case tokens[0].Type == NUMBER_LITERAL && tokens[1].Type == END_OF_INPUT:
		return numberTokenValue(tokens[0], 1)
	case tokens[0].Type == PLUS && tokens[1].Type == NUMBER_LITERAL &&
		len(tokens) == 3 && tokens[2].Type == END_OF_INPUT:
		return numberTokenValue(tokens[1], 1)
	case tokens[0].Type == MINUS && tokens[1].Type == NUMBER_LITERAL &&
		len(tokens) == 3 && tokens[2].Type == END_OF_INPUT:
		return numberTokenValue(tokens[1], -1)
	default:
		return invalid()
	}
}

func numberTokenValue(token Token, sign float64) (Value, error) {
	number, err := strconv.ParseFloat(token.Lexeme(), 64)
	if err != nil {
		return Value{}, rtErrf("String '%s' does not represent a valid number", token.Lexeme())
	}
	return NumberValue(sign * number), nil
}

// evalInline implements `!`: the operand string is parsed as a standalone
// script (stores and parameters are forbidden inside) and executed against an
// always-empty store. Producing no output is an error.
func (ec *execContext) evalInline(source string) (Value, error) {
	tokens, err := NewLexer(source).Tokenize()
	if err != nil {
		return Value{}, rtErrf("Failed to parse code for evaluation: %v", err)
	}
	script, err := NewParser("", tokens, ec.builtins).Parse()
	if err != nil {
		return Value{}, rtErrf("Failed to parse code for evaluation: %v", err)
	}
	if len(script.Stores) > 0 {
		return Value{}, rtErrf("Stores inside evaluated code are not supported")
	}
	if len(script.Parameters) > 0 {
		return Value{}, rtErrf("Parameters inside evaluated code are not supported")
	}
	nested := &execContext{
		ctx:        withCallDepth(ec.ctx, callDepth(ec.ctx)+1),
		scriptName: script.Name,
		stores:     make(map[StoreKey]Value),
		parameters: make(map[string]Value),
		variables:  make(map[string]Value),
		callScript: ec.callScript,
		builtins:   ec.builtins,
		maxDepth:   ec.maxDepth,
	}
	if callDepth(nested.ctx) >= ec.maxDepth {
		return Value{}, rtErrf(
			"Script call depth exceeded the maximum of %d (recursion too deep).", ec.maxDepth)
	}
	output, printed, err := nested.runStatements(script.Statements)
	if err != nil {
		return Value{}, err
	}
	if !printed {
		return Value{}, rtErrf("Evaluated script did not produce any output")
	}
	return StringValue(output), nil
}

func (ec *execContext) evalBinary(e *BinaryOperation) (Value, error) {
	left, err := ec.eval(e.Left)
	if err != nil {
		return Value{}, err
	}
	// Logical operators short-circuit.
	if left.Tag == VBool {
		switch e.Operator {
		case OpAnd:
			if !left.Bool {
				return BoolValue(false), nil
			}
			return ec.eval(e.Right)
		case OpOr:
			if left.Bool {
				return BoolValue(true), nil
			}
			return ec.eval(e.Right)
		}
	}
	right, err := ec.eval(e.Right)
	if err != nil {
		return Value{}, err
	}

	bothNumbers := left.Tag == VNumber && right.Tag == VNumber
	bothStrings := left.Tag == VString && right.Tag == VString
	switch e.Operator {
	case OpEquals:
		if left.Tag == right.Tag && left.Tag != VList {
			return BoolValue(left.Equals(right)), nil
		}
	case OpNotEquals:
		if left.Tag == right.Tag && left.Tag != VList {
			return BoolValue(!left.Equals(right)), nil
		}
	case OpLessThan:
		if bothNumbers {
			return BoolValue(left.Num < right.Num), nil
		}
		if bothStrings {
			return BoolValue(left.Str < right.Str), nil
		}
	case OpLessThanOrEqual:
		if bothNumbers {
			return BoolValue(left.Num <= right.Num), nil
		}
		if bothStrings {
			return BoolValue(left.Str <= right.Str), nil
		}
	case OpGreaterThan:
		if bothNumbers {
			return BoolValue(left.Num > right.Num), nil
		}
		if bothStrings {
			return BoolValue(left.Str > right.Str), nil
		}
	case OpGreaterThanOrEqual:
		if bothNumbers {
			return BoolValue(left.Num >= right.Num), nil
		}
		if bothStrings {
			return BoolValue(left.Str >= right.Str), nil
		}
	case OpAdd:
		if bothNumbers {
			return NumberValue(left.Num + right.Num), nil
		}
		if bothStrings {
			return StringValue(left.Str + right.Str), nil
		}
		if left.Tag == VList && right.Tag == VList {
			if !left.Elem.Equals(right.Elem) {
				return Value{}, rtErrf("Cannot concatenate lists of different element types: '%s' and '%s'",
					left.Elem, right.Elem)
			}
			elements := make([]Value, 0, len(left.List)+len(right.List))
			elements = append(elements, left.List...)
			elements = append(elements, right.List...)
			return ListValue(left.Elem, elements), nil
		}
	case OpSubtract:
		if bothNumbers {
			return NumberValue(left.Num - right.Num), nil
		}
	case OpMultiply:
		if bothNumbers {
			return NumberValue(left.Num * right.Num), nil
		}
	case OpDivide:
		if bothNumbers {
			if right.Num == 0 {
				return Value{}, rtErrf("Division by zero")
			}
			return NumberValue(left.Num / right.Num), nil
		}
	case OpModulo:
		if bothNumbers {
			if right.Num == 0 {
				return Value{}, rtErrf("Modulo by zero")
			}
			return NumberValue(flooredMod(left.Num, right.Num)), nil
		}
	case OpRangeInclusive, OpRangeExclusive:
		if bothNumbers {
			return makeRange(e.Operator, left.Num, right.Num)
		}
	}
	return Value{}, rtErrf("Operator %s is not supported for the given operand types '%s' and '%s'",
		e.Operator, left.Type(), right.Type())
}

// flooredMod is modulo with the result taking the sign of the divisor.
func flooredMod(a, b float64) float64 {
	result := math.Mod(a, b)
	if result != 0 && (result < 0) != (b < 0) {
		result += b
	}
	return result
}

// makeRange builds the list for `a..=b` / `a..<b`. Both endpoints must be
// integral; descending ranges step -1.
func makeRange(operator BinaryOperator, start, end float64) (Value, error) {
	if !isIntegral(start) {
		return Value{}, rtErrf("Range operator %s requires integer operands, got non-integer start value %s",
			operator, formatNumber(start))
	}
	if !isIntegral(end) {
		return Value{}, rtErrf("Range operator %s requires integer operands, got non-integer end value %s",
			operator, formatNumber(end))
	}
	startInt, endInt := int64(start), int64(end)
	var elements []Value
	step := int64(1)
	if startInt > endInt {
		step = -1
	}
	last := endInt
	if operator == OpRangeExclusive {
		last -= step
	}
	for i := startInt; ; i += step {
		if step > 0 && i > last || step < 0 && i < last {
			break
		}
		elements = append(elements, NumberValue(float64(i)))
	}
	return ListValue(NumberType(), elements), nil
}

func (ec *execContext) evalCall(e *CallOperation) (Value, error) {
	callee, err := ec.eval(e.Callee)
	if err != nil {
		return Value{}, err
	}
	if callee.Tag != VString {
		return Value{}, rtErrf("Callee must be a string, got %s.", callee.Type())
	}
	name := callee.Str

	if builtin, ok := ec.builtins.lookup(name); ok {
		output, err := ec.callBuiltin(name, builtin, e.Arguments)
		if err != nil {
			return Value{}, err
		}
		return StringValue(output), nil
	}

	if ec.callScript == nil {
		return Value{}, rtErrf("Unknown script or builtin '%s'.", name)
	}
	depth := callDepth(ec.ctx) + 1
	if depth >= ec.maxDepth {
		return Value{}, rtErrf(
			"Script call depth exceeded the maximum of %d (recursion too deep).", ec.maxDepth)
	}
	arguments := make([]string, 0, len(e.Arguments))
	for _, argument := range e.Arguments {
		value, err := ec.eval(argument)
		if err != nil {
			return Value{}, err
		}
		arguments = append(arguments, value.ToString())
	}
	result, err := ec.callScript(withCallDepth(ec.ctx, depth), name, arguments...)
	if err != nil {
		return Value{}, err
	}
	return StringValue(result), nil
}

func (ec *execContext) evalSubscript(e *SubscriptOperation) (Value, error) {
	operand, err := ec.eval(e.Operand)
	if err != nil {
		return Value{}, err
	}
	index, err := ec.eval(e.Index)
	if err != nil {
		return Value{}, err
	}
	if index.Tag != VNumber {
		return Value{}, rtErrf("Subscript operation not supported for operand type '%s' and index type '%s'",
			operand.Type(), index.Type())
	}
	switch operand.Tag {
	case VString:
		if !isIntegral(index.Num) {
			return Value{}, rtErrf("String index must be an integer, got non-integer %s", formatNumber(index.Num))
		}
		runes := []rune(operand.Str)
		i := int(index.Num)
		if i < 0 || i >= len(runes) {
			return Value{}, rtErrf("String index %d out of range for string of length %d", i, len(runes))
		}
		return StringValue(string(runes[i])), nil
	case VList:
		if !isIntegral(index.Num) {
			return Value{}, rtErrf("List index must be an integer, got non-integer %s", formatNumber(index.Num))
		}
		i := int(index.Num)
		if i < 0 || i >= len(operand.List) {
			return Value{}, rtErrf("List index %d out of range for list of length %d", i, len(operand.List))
		}
		return operand.List[i], nil
	default:
		return Value{}, rtErrf("Subscript operation not supported for operand type '%s' and index type '%s'",
			operand.Type(), index.Type())
	}
}

// iterate yields the items of a string (1-character strings) or a list.
func iterate(value Value) ([]Value, error) {
	switch value.Tag {
	case VString:
		items := make([]Value, 0, len(value.Str))
		for _, r := range value.Str {
			items = append(items, StringValue(string(r)))
		}
		return items, nil
	case VList:
		return value.List, nil
	default:
		return nil, rtErrf("Value of type '%s' is not iterable.", value.Type())
	}
}

func (ec *execContext) evalComprehension(e *ListComprehension) (Value, error) {
	iterable, err := ec.eval(e.Iterable)
	if err != nil {
		return Value{}, err
	}
	items, err := iterate(iterable)
	if err != nil {
		return Value{}, err
	}
	var elements []Value
	for _, item := range items {
		ec.variables[e.ElementName] = item
		if e.Condition != nil {
			condition, err := ec.eval(e.Condition)
			if err != nil {
				return Value{}, err
			}
			if condition.Tag != VBool || !condition.Bool {
				continue
			}
		}
		element, err := ec.eval(e.Body)
		if err != nil {
			return Value{}, err
		}
		elements = append(elements, element)
	}
	delete(ec.variables, e.ElementName)
	return ListValue(e.Body.StaticType(), elements), nil
}

func (ec *execContext) evalFold(e *FoldExpression) (Value, error) {
	iterable, err := ec.eval(e.Iterable)
	if err != nil {
		return Value{}, err
	}
	var accumulator Value
	var items []Value
	switch iterable.Tag {
	case VString:
		// String folds seed with the empty string and consume every
		// character.
		accumulator = StringValue("")
		items, _ = iterate(iterable)
	case VList:
		// List folds seed with the first element; there is no neutral
		// element for an arbitrary element type.
		if len(iterable.List) == 0 {
			return Value{}, rtErrf("Fold expression iterable must not be empty.")
		}
		accumulator = iterable.List[0]
		items = iterable.List[1:]
	default:
		return Value{}, rtErrf("Fold expression iterable must be a string or a list, got %s",
			iterable.Type())
	}
	for _, item := range items {
		ec.variables[e.AccumulatorName] = accumulator
		ec.variables[e.ElementName] = item
		accumulator, err = ec.eval(e.Body)
		if err != nil {
			return Value{}, err
		}
	}
	delete(ec.variables, e.AccumulatorName)
	delete(ec.variables, e.ElementName)
	return accumulator, nil
}

func (ec *execContext) evalSort(e *SortExpression) (Value, error) {
	operand, err := ec.eval(e.Operand)
	if err != nil {
		return Value{}, err
	}
	if operand.Tag != VList {
		return Value{}, rtErrf("sort() requires a list, got '%s'", operand.Type())
	}
	if len(operand.List) <= 1 {
		return operand, nil
	}

	var compare func(left, right Value) (int, error)
	if e.Compare == nil {
		compare = func(left, right Value) (int, error) {
			if left.Tag != VNumber || right.Tag != VNumber {
				return 0, rtErrf("Default sort requires numeric values")
			}
			switch {
			case left.Num < right.Num:
				return -1, nil
			case left.Num > right.Num:
				return 1, nil
			default:
				return 0, nil
			}
		}
	} else {
		// The comparator answers "does left come before right"; asking it
		// both ways distinguishes less-than, greater-than, and equal.
		evalCompare := func(left, right Value) (bool, error) {
			ec.variables[e.LeftName] = left
			ec.variables[e.RightName] = right
			result, err := ec.eval(e.Compare)
			if err != nil {
				return false, err
			}
			if result.Tag != VBool {
				return false, rtErrf("sort() comparison expression must return a bool, got '%s'",
					result.Type())
			}
			return result.Bool, nil
		}
		compare = func(left, right Value) (int, error) {
			before, err := evalCompare(left, right)
			if err != nil {
				return 0, err
			}
			if before {
				return -1, nil
			}
			after, err := evalCompare(right, left)
			if err != nil {
				return 0, err
			}
			if after {
				return 1, nil
			}
			return 0, nil
		}
	}

	sorted, err := mergeSort(operand.List, compare)
	if e.Compare != nil {
		delete(ec.variables, e.LeftName)
		delete(ec.variables, e.RightName)
	}
	if err != nil {
		return Value{}, err
	}
	return ListValue(operand.Elem, sorted), nil
}

// mergeSort is a stable sort over the three-way comparison.
func mergeSort(elements []Value, compare func(left, right Value) (int, error)) ([]Value, error) {
	if len(elements) <= 1 {
		return elements, nil
	}
	mid := len(elements) / 2
	left, err := mergeSort(elements[:mid], compare)
	if err != nil {
		return nil, err
	}
	right, err := mergeSort(elements[mid:], compare)
	if err != nil {
		return nil, err
	}
	result := make([]Value, 0, len(elements))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		order, err := compare(left[i], right[j])
		if err != nil {
			return nil, err
		}
		if order <= 0 {
			result = append(result, left[i])
			i++
		} else {
			result = append(result, right[j])
			j++
		}
	}
	result = append(result, left[i:]...)
	result = append(result, right[j:]...)
	return result, nil
}

func (ec *execContext) evalSplit(e *SplitExpression) (Value, error) {
	operand, err := ec.eval(e.Operand)
	if err != nil {
		return Value{}, err
	}
	if operand.Tag != VString {
		return Value{}, rtErrf("split() requires a string as first argument, got '%s'", operand.Type())
	}
	separator := " "
	if e.Separator != nil {
		separatorValue, err := ec.eval(e.Separator)
		if err != nil {
			return Value{}, err
		}
		if separatorValue.Tag != VString {
			return Value{}, rtErrf("split() requires a string as delimiter argument, got '%s'",
				separatorValue.Type())
		}
		separator = separatorValue.Str
	}
	parts := strings.Split(operand.Str, separator)
	elements := make([]Value, 0, len(parts))
	for _, part := range parts {
		elements = append(elements, StringValue(part))
	}
	return ListValue(StringType(), elements), nil
}

func (ec *execContext) evalJoin(e *JoinExpression) (Value, error) {
	operand, err := ec.eval(e.Operand)
	if err != nil {
		return Value{}, err
	}
	if operand.Tag != VList {
		return Value{}, rtErrf("join() requires a list as first argument, got '%s'", operand.Type())
	}
	parts := make([]string, 0, len(operand.List))
	for _, element := range operand.List {
		if element.Tag != VString {
			return Value{}, rtErrf("join() requires a list of strings, got list containing '%s'",
				element.Type())
		}
		parts = append(parts, element.Str)
	}
	separator := ""
	if e.Separator != nil {
		separatorValue, err := ec.eval(e.Separator)
		if err != nil {
			return Value{}, err
		}
		if separatorValue.Tag != VString {
			return Value{}, rtErrf("join() requires a string as delimiter argument, got '%s'",
				separatorValue.Type())
		}
		separator = separatorValue.Str
	}
	return StringValue(strings.Join(parts, separator)), nil
}

// staticTypeOf is the runtime entry to an expression's static type, turning
// the untyped-empty-list panic into the corresponding runtime error. Used by
// the `type` builtin, which reports the static type of its argument.
func staticTypeOf(e Expression) (DataType, error) {
	if _, ok := e.(*EmptyListLiteral); ok {
		return DataType{}, rtErrf("Unable to deduce type of empty list literal.")
	}
	return e.StaticType(), nil
}
