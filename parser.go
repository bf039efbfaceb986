// parser.go: single-pass Pratt parser and type checker.
//
// Parsing and type checking happen in one pass: every expression node is
// constructed with its static type already computed and verified, and the
// parse context tracks stores, parameters, and the variables defined so far,
// so use-before-definition and shadowing are caught while parsing. There is
// no separate semantic analysis phase.
//
// Empty list literals (`[]`, `[[], []]`) are the one construct with no type
// of their own. The parser carries them as *EmptyListLiteral placeholders and
// reifies them into typed *ListLiteral nodes wherever the context determines
// the type (annotated definitions, assignments, sibling list elements). Where
// no context exists, requesting their type raises the "cannot deduce" error.
package scripting

import (
	"fmt"
	"strconv"
)

// Precedence levels, lowest binds loosest.
type Precedence int

const (
	precUnknown Precedence = iota
	precTernary
	precOr
	precAnd
	precEquality
	precComparison
	precRange
	precSum
	precProduct
	precUnary
	precCall
)

// ParseErrorKind discriminates the static violations the parser detects.
type ParseErrorKind int

const (
	ErrExpectedToken ParseErrorKind = iota
	ErrStoreRedefinition
	ErrVariableRedefinition
	ErrDuplicateParameterName
	ErrParameterShadowsStore
	ErrVariableShadowsStore
	ErrVariableShadowsParameter
	ErrUnknownVariable
	ErrInitializationType
	ErrAssignmentType
	ErrTernaryConditionType
	ErrTernaryBranchType
	ErrInvalidOperandType
	ErrSubscriptType
	ErrNotCallable
	ErrEmptyListWithoutAnnotation
	ErrEmptyListAssignedToNonList
	ErrExpectedEmptyListLiteral
	ErrListElementTypeMismatch
	ErrTypeNotIterable
	ErrNestedComprehension
	ErrComprehensionConditionType
	ErrCollectType
	ErrCombinatorArgument
)

// ParseError is a static error. Line and Col are 1-based and point at the
// token the parser was looking at when the violation was detected.
type ParseError struct {
	Kind ParseErrorKind
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string { return e.Msg }

type binaryOperatorsByTokenType = map[TokenType]BinaryOperator

var binaryOperatorForToken = binaryOperatorsByTokenType{
	PLUS:                    OpAdd,
	MINUS:                   OpSubtract,
	ASTERISK:                OpMultiply,
	SLASH:                   OpDivide,
	PERCENT:                 OpModulo,
	EQUALS_EQUALS:           OpEquals,
	EXCLAMATION_MARK_EQUALS: OpNotEquals,
	LESS_THAN:               OpLessThan,
	LESS_THAN_EQUALS:        OpLessThanOrEqual,
	GREATER_THAN:            OpGreaterThan,
	GREATER_THAN_EQUALS:     OpGreaterThanOrEqual,
	AND:                     OpAnd,
	OR:                      OpOr,
	RANGE_INCLUSIVE:         OpRangeInclusive,
	RANGE_EXCLUSIVE:         OpRangeExclusive,
}

var unaryOperatorForToken = map[TokenType]UnaryOperator{
	PLUS:             OpPlus,
	MINUS:            OpNegate,
	NOT:              OpNot,
	DOLLAR:           OpToNumber,
	EXCLAMATION_MARK: OpEvaluate,
	QUESTION_MARK:    OpToBool,
	HASH:             OpToString,
}

type prefixParser func(*Parser, *parseContext) Expression
type infixParser func(*Parser, Expression, *parseContext) Expression

type tableEntry struct {
	prefix          prefixParser
	infix           infixParser
	infixPrecedence Precedence
}

// parserTable is populated in init to break the initialization cycle between
// the table and the parse functions it points at.
var parserTable map[TokenType]tableEntry

func init() {
	parserTable = map[TokenType]tableEntry{
		DOLLAR:                  {prefix: (*Parser).unaryOperation, infixPrecedence: precUnary},
		EXCLAMATION_MARK:        {prefix: (*Parser).unaryOperation, infixPrecedence: precUnary},
		HASH:                    {prefix: (*Parser).unaryOperation, infixPrecedence: precUnary},
		NOT:                     {prefix: (*Parser).unaryOperation, infixPrecedence: precUnary},
		PLUS:                    {prefix: (*Parser).unaryOperation, infix: (*Parser).binaryExpression, infixPrecedence: precSum},
		MINUS:                   {prefix: (*Parser).unaryOperation, infix: (*Parser).binaryExpression, infixPrecedence: precSum},
		ASTERISK:                {infix: (*Parser).binaryExpression, infixPrecedence: precProduct},
		SLASH:                   {infix: (*Parser).binaryExpression, infixPrecedence: precProduct},
		PERCENT:                 {infix: (*Parser).binaryExpression, infixPrecedence: precProduct},
		EQUALS_EQUALS:           {infix: (*Parser).binaryExpression, infixPrecedence: precEquality},
		EXCLAMATION_MARK_EQUALS: {infix: (*Parser).binaryExpression, infixPrecedence: precEquality},
		LESS_THAN:               {infix: (*Parser).binaryExpression, infixPrecedence: precComparison},
		LESS_THAN_EQUALS:        {infix: (*Parser).binaryExpression, infixPrecedence: precComparison},
		GREATER_THAN:            {infix: (*Parser).binaryExpression, infixPrecedence: precComparison},
		GREATER_THAN_EQUALS:     {infix: (*Parser).binaryExpression, infixPrecedence: precComparison},
		RANGE_INCLUSIVE:         {infix: (*Parser).binaryExpression, infixPrecedence: precRange},
		RANGE_EXCLUSIVE:         {infix: (*Parser).binaryExpression, infixPrecedence: precRange},
		AND:                     {infix: (*Parser).binaryExpression, infixPrecedence: precAnd},
		OR:                      {infix: (*Parser).binaryExpression, infixPrecedence: precOr},
		QUESTION_MARK:           {prefix: (*Parser).unaryOperation, infix: (*Parser).ternaryExpression, infixPrecedence: precTernary},
		LEFT_PARENTHESIS:        {prefix: (*Parser).groupedExpression, infix: (*Parser).callOperation, infixPrecedence: precCall},
		LEFT_SQUARE_BRACKET:     {prefix: (*Parser).listLiteral, infix: (*Parser).subscriptOperation, infixPrecedence: precCall},
		IDENTIFIER:              {prefix: (*Parser).identifier},
		STRING_LITERAL:          {prefix: (*Parser).stringLiteral},
		NUMBER_LITERAL:          {prefix: (*Parser).numberLiteral},
		BOOL_LITERAL:            {prefix: (*Parser).boolLiteral},
		FOR:                     {prefix: (*Parser).listComprehension},
		COLLECT:                 {prefix: (*Parser).collectExpression},
	}
}

// variableDefinition is a parse-time record of a defined variable (including
// comprehension, fold, and sort binders while in scope).
type variableDefinition struct {
	name string
	typ  DataType
}

// parseContext is the flow-sensitive symbol table: what is visible at the
// point currently being parsed.
type parseContext struct {
	stores     []Store
	parameters []Parameter
	variables  []variableDefinition
}

func (c *parseContext) findStore(name string) *Store {
	for i := range c.stores {
		if c.stores[i].Name == name {
			return &c.stores[i]
		}
	}
	return nil
}

func (c *parseContext) hasParameter(name string) bool {
	for _, p := range c.parameters {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (c *parseContext) findVariable(name string) *variableDefinition {
	for i := range c.variables {
		if c.variables[i].name == name {
			return &c.variables[i]
		}
	}
	return nil
}

func (c *parseContext) pushBinder(name string, typ DataType) {
	c.variables = append(c.variables, variableDefinition{name: name, typ: typ})
}

func (c *parseContext) popBinder() {
	c.variables = c.variables[:len(c.variables)-1]
}

// Parser turns a token stream into a type-checked Script.
type Parser struct {
	scriptName string
	tokens     []Token
	builtins   *Builtins
	cur        int
}

// NewParser creates a parser over the given tokens. The builtin registry is
// retained on the resulting Script for runtime dispatch.
func NewParser(scriptName string, tokens []Token, builtins *Builtins) *Parser {
	return &Parser{scriptName: scriptName, tokens: tokens, builtins: builtins}
}

type parserPanic struct{ err error }

// Parse parses and type-checks the whole token stream.
func (p *Parser) Parse() (script *Script, err error) {
	defer func() {
		if r := recover(); r != nil {
			pp, ok := r.(parserPanic)
			if !ok {
				panic(r)
			}
			script, err = nil, pp.err
		}
	}()
	stores := p.parseStores()
	parameters := p.parseParameters(stores)
	statements := p.parseStatements(stores, parameters)
	return &Script{
		Name:       p.scriptName,
		Stores:     stores,
		Parameters: parameters,
		Statements: statements,
		builtins:   p.builtins,
	}, nil
}

func (p *Parser) fail(kind ParseErrorKind, format string, args ...any) {
	p.failAt(p.current(), kind, format, args...)
}

// failAt pins the error to a specific token, for violations detected after
// the offending token was already consumed.
func (p *Parser) failAt(token Token, kind ParseErrorKind, format string, args ...any) {
	pos := token.SourceLocation.Range().Start
	panic(parserPanic{&ParseError{
		Kind: kind,
		Line: pos.Line,
		Col:  pos.Column,
		Msg:  fmt.Sprintf(format, args...),
	}})
}

func (p *Parser) failRuntime(format string, args ...any) {
	panic(parserPanic{&RuntimeError{Msg: fmt.Sprintf(format, args...)}})
}

// mustType returns the static type of an expression, raising the "cannot
// deduce" error for untyped empty list literals.
func (p *Parser) mustType(e Expression) DataType {
	if _, ok := e.(*EmptyListLiteral); ok {
		p.failRuntime("Unable to deduce type of empty list literal.")
	}
	return e.StaticType()
}

// ----- declarations and statements -----

func (p *Parser) parseStores() []Store {
	var stores []Store
	for p.match(STORE) {
		stores = append(stores, p.parseStore(stores))
	}
	return stores
}

func (p *Parser) parseStore(stores []Store) Store {
	nameToken := p.expect(IDENTIFIER, "store name")
	name := nameToken.Lexeme()
	for _, store := range stores {
		if store.Name == name {
			p.failAt(nameToken, ErrStoreRedefinition, "Store '%s' is already defined.", name)
		}
	}
	p.expect(EQUALS, "'=' after store name")
	// Earlier stores are visible in the initializer; parameters and
	// variables are not.
	value := p.expression(&parseContext{stores: stores}, precUnknown)
	if _, ok := value.(*EmptyListLiteral); ok {
		p.failRuntime("Unable to deduce type of empty list literal.")
	}
	p.expect(SEMICOLON, "';' after store declaration")
	return Store{Name: name, Value: value}
}

func (p *Parser) parseParameters(stores []Store) []Parameter {
	if !p.match(PARAMS) {
		return nil
	}
	var parameters []Parameter
	for {
		nameToken := p.expect(IDENTIFIER, "parameter name")
		name := nameToken.Lexeme()
		for _, store := range stores {
			if store.Name == name {
				p.failAt(nameToken, ErrParameterShadowsStore, "Parameter '%s' shadows store with the same name.", name)
			}
		}
		for _, parameter := range parameters {
			if parameter.Name == name {
				p.failAt(nameToken, ErrDuplicateParameterName, "Parameter '%s' is already defined.", name)
			}
		}
		parameters = append(parameters, Parameter{Name: name})
		// A trailing comma before the semicolon is allowed.
		if !p.match(COMMA) || p.current().Type == SEMICOLON {
			break
		}
	}
	p.expect(SEMICOLON, "';' after parameter list")
	return parameters
}

func (p *Parser) parseStatements(stores []Store, parameters []Parameter) []Statement {
	ctx := &parseContext{stores: stores, parameters: parameters}
	var statements []Statement
	for !p.isAtEnd() {
		statements = append(statements, p.parseStatement(ctx))
	}
	if len(statements) == 0 {
		p.expectedTokenError("at least one statement")
	}
	return statements
}

func (p *Parser) parseStatement(ctx *parseContext) Statement {
	var statement Statement
	switch p.current().Type {
	case PRINT:
		statement = p.printStatement(ctx)
	case IDENTIFIER:
		statement = p.assignment(ctx)
	case LET:
		statement = p.variableDefinition(ctx)
	default:
		p.expectedTokenError("statement")
	}
	p.expect(SEMICOLON, "';' after statement")
	return statement
}

func (p *Parser) printStatement(ctx *parseContext) Statement {
	p.expect(PRINT, "'PRINT' keyword")
	argument := p.expression(ctx, precUnknown)
	p.mustType(argument)
	return &PrintStatement{Argument: argument}
}

func (p *Parser) assignment(ctx *parseContext) Statement {
	nameToken := p.expect(IDENTIFIER, "assignment target")
	name := nameToken.Lexeme()

	var target Expression
	if store := ctx.findStore(name); store != nil {
		target = &StoreIdentifier{Name: name, Type: store.DataType()}
	} else if ctx.hasParameter(name) {
		target = &ParameterIdentifier{Name: name}
	} else if variable := ctx.findVariable(name); variable != nil {
		target = &VariableIdentifier{Name: name, Type: variable.typ}
	} else {
		p.failAt(nameToken, ErrUnknownVariable, "Variable '%s' is not defined.", name)
	}

	p.expect(EQUALS, "'=' in assignment")
	rvalue := p.expression(ctx, precUnknown)

	targetType := target.StaticType()
	if empty, ok := rvalue.(*EmptyListLiteral); ok {
		if !targetType.IsList() {
			p.fail(ErrEmptyListAssignedToNonList,
				"Cannot assign an empty list literal to target of type '%s'.", targetType)
		}
		return &AssignmentStatement{Target: target, Value: p.reifyEmptyList(empty, targetType)}
	}
	rvalueType := rvalue.StaticType()
	if !targetType.Equals(rvalueType) {
		p.fail(ErrAssignmentType,
			"Cannot assign value of type '%s' to target of type '%s'.", rvalueType, targetType)
	}
	return &AssignmentStatement{Target: target, Value: rvalue}
}

func (p *Parser) variableDefinition(ctx *parseContext) Statement {
	p.expect(LET, "'LET' keyword")
	nameToken := p.expect(IDENTIFIER, "variable name")
	name := nameToken.Lexeme()
	if ctx.findStore(name) != nil {
		p.failAt(nameToken, ErrVariableShadowsStore, "Variable '%s' shadows store with the same name.", name)
	}
	if ctx.hasParameter(name) {
		p.failAt(nameToken, ErrVariableShadowsParameter, "Variable '%s' shadows parameter with the same name.", name)
	}
	if ctx.findVariable(name) != nil {
		p.failAt(nameToken, ErrVariableRedefinition, "Variable '%s' is already defined.", name)
	}

	var annotatedType *DataType
	if p.match(COLON) {
		t := p.parseDataType()
		annotatedType = &t
	}
	p.expect(EQUALS, "'=' in variable definition")
	initialValue := p.expression(ctx, precUnknown)

	// Empty list literals require an explicit annotation to pin their type.
	if empty, ok := initialValue.(*EmptyListLiteral); ok {
		if annotatedType == nil {
			p.fail(ErrEmptyListWithoutAnnotation, "Empty list literal requires an explicit type annotation.")
		}
		if !annotatedType.IsList() {
			p.fail(ErrInitializationType,
				"Variable '%s' expected to be initialized with value of type '%s'.", name, *annotatedType)
		}
		definition := &VariableDefinitionStatement{
			Name:         name,
			Type:         *annotatedType,
			InitialValue: p.reifyEmptyList(empty, *annotatedType),
		}
		ctx.pushBinder(name, *annotatedType)
		return definition
	}

	initialValueType := initialValue.StaticType()
	if annotatedType != nil && !annotatedType.Equals(initialValueType) {
		p.fail(ErrInitializationType,
			"Cannot initialize variable '%s' of type '%s' with value of type '%s'.",
			name, *annotatedType, initialValueType)
	}
	ctx.pushBinder(name, initialValueType)
	return &VariableDefinitionStatement{
		Name:         name,
		Type:         initialValueType,
		InitialValue: initialValue,
	}
}

func (p *Parser) parseDataType() DataType {
	switch p.current().Type {
	case STRING_TYPE:
		p.advance()
		return StringType()
	case NUMBER_TYPE:
		p.advance()
		return NumberType()
	case BOOL_TYPE:
		p.advance()
		return BoolType()
	case LIST_TYPE:
		p.advance()
		p.expect(LESS_THAN, "'<' in list type")
		elementType := p.parseDataType()
		p.expect(GREATER_THAN, "'>' in list type")
		return ListType(elementType)
	default:
		p.expectedTokenError("data type")
		return DataType{}
	}
}

// ----- expressions -----

func (p *Parser) expression(ctx *parseContext, precedence Precedence) Expression {
	entry := parserTable[p.current().Type]
	if entry.prefix == nil {
		p.expectedTokenError("expression")
	}
	left := entry.prefix(p, ctx)
	for {
		entry = parserTable[p.current().Type]
		if entry.infix == nil || entry.infixPrecedence <= precedence {
			return left
		}
		left = entry.infix(p, left, ctx)
	}
}

func (p *Parser) identifier(ctx *parseContext) Expression {
	nameToken := p.expect(IDENTIFIER, "identifier")
	name := nameToken.Lexeme()
	if store := ctx.findStore(name); store != nil {
		return &StoreIdentifier{Name: name, Type: store.DataType()}
	}
	if ctx.hasParameter(name) {
		return &ParameterIdentifier{Name: name}
	}
	if variable := ctx.findVariable(name); variable != nil {
		return &VariableIdentifier{Name: name, Type: variable.typ}
	}
	p.failAt(nameToken, ErrUnknownVariable, "Variable '%s' is not defined.", name)
	return nil
}

func (p *Parser) numberLiteral(_ *parseContext) Expression {
	numberToken := p.expect(NUMBER_LITERAL, "number literal")
	value, err := strconv.ParseFloat(numberToken.Lexeme(), 64)
	if err != nil {
		p.expectedTokenError("number literal")
	}
	return &NumberLiteral{Value: value}
}

func (p *Parser) stringLiteral(_ *parseContext) Expression {
	stringToken := p.expect(STRING_LITERAL, "string literal")
	return &StringLiteral{Value: unescapeStringLexeme(stringToken.Lexeme())}
}

func (p *Parser) boolLiteral(_ *parseContext) Expression {
	boolToken := p.expect(BOOL_LITERAL, "boolean literal")
	return &BoolLiteral{Value: boolToken.Lexeme() == "true"}
}

func (p *Parser) unaryOperation(ctx *parseContext) Expression {
	operator, ok := unaryOperatorForToken[p.current().Type]
	if !ok {
		p.expectedTokenError("unary operator")
	}
	p.advance()
	operand := p.expression(ctx, precUnary)
	operandType := p.mustType(operand)
	resultType := p.unaryResultType(operator, operandType)
	return &UnaryOperation{Operator: operator, Operand: operand, Type: resultType}
}

func (p *Parser) unaryResultType(operator UnaryOperator, operandType DataType) DataType {
	switch operator {
	case OpPlus, OpNegate:
		if operandType.Kind == KindNumber {
			return NumberType()
		}
	case OpNot:
		if operandType.Kind == KindBool {
			return BoolType()
		}
	case OpToNumber:
		if !operandType.IsList() {
			return NumberType()
		}
	case OpToString:
		return StringType()
	case OpToBool:
		if !operandType.IsList() {
			return BoolType()
		}
	case OpEvaluate:
		if operandType.Kind == KindString {
			return StringType()
		}
	}
	p.fail(ErrInvalidOperandType,
		"Unary operator '%s' is not supported for '%s' operands.", operator, operandType)
	return DataType{}
}

func (p *Parser) groupedExpression(ctx *parseContext) Expression {
	p.expect(LEFT_PARENTHESIS, "'('")
	expression := p.expression(ctx, precUnknown)
	p.expect(RIGHT_PARENTHESIS, "')' after grouped expression")
	return expression
}

func (p *Parser) binaryExpression(left Expression, ctx *parseContext) Expression {
	operator, ok := binaryOperatorForToken[p.current().Type]
	if !ok {
		p.expectedTokenError("binary operator")
	}
	precedence := parserTable[p.current().Type].infixPrecedence
	p.advance()
	right := p.expression(ctx, precedence)
	leftType := p.mustType(left)
	rightType := p.mustType(right)
	resultType := p.binaryResultType(operator, leftType, rightType)
	return &BinaryOperation{Left: left, Operator: operator, Right: right, Type: resultType}
}

func (p *Parser) binaryResultType(operator BinaryOperator, left, right DataType) DataType {
	bothNumbers := left.Kind == KindNumber && right.Kind == KindNumber
	bothStrings := left.Kind == KindString && right.Kind == KindString
	switch operator {
	case OpAdd:
		if bothNumbers {
			return NumberType()
		}
		if bothStrings {
			return StringType()
		}
		if left.IsList() && right.IsList() && left.Equals(right) {
			return left
		}
	case OpSubtract, OpMultiply, OpDivide, OpModulo:
		if bothNumbers {
			return NumberType()
		}
	case OpEquals, OpNotEquals:
		if !left.IsList() && !right.IsList() && left.Equals(right) {
			return BoolType()
		}
	case OpLessThan, OpLessThanOrEqual, OpGreaterThan, OpGreaterThanOrEqual:
		if bothNumbers || bothStrings {
			return BoolType()
		}
	case OpAnd, OpOr:
		if left.Kind == KindBool && right.Kind == KindBool {
			return BoolType()
		}
	case OpRangeInclusive, OpRangeExclusive:
		if bothNumbers {
			return ListType(NumberType())
		}
	}
	p.fail(ErrInvalidOperandType,
		"Binary operator '%s' is not supported for '%s' and '%s' operands.", operator, left, right)
	return DataType{}
}

func (p *Parser) ternaryExpression(left Expression, ctx *parseContext) Expression {
	conditionType := p.mustType(left)
	if conditionType.Kind != KindBool {
		p.fail(ErrTernaryConditionType,
			"Ternary operator condition must be of type 'bool', got '%s'.", conditionType)
	}
	p.expect(QUESTION_MARK, "'?' in ternary expression")
	trueBranch := p.expression(ctx, precTernary)
	p.expect(COLON, "':' in ternary expression")
	falseBranch := p.expression(ctx, precTernary)

	trueType := p.mustType(trueBranch)
	falseType := p.mustType(falseBranch)
	if !trueType.Equals(falseType) {
		p.fail(ErrTernaryBranchType,
			"Ternary operator branches must have the same type, got '%s' and '%s'.", trueType, falseType)
	}
	return &TernaryOperation{
		Condition:   left,
		TrueBranch:  trueBranch,
		FalseBranch: falseBranch,
		Type:        trueType,
	}
}

func (p *Parser) callOperation(left Expression, ctx *parseContext) Expression {
	p.expect(LEFT_PARENTHESIS, "'(' in function call")

	// The list/string combinators are grammar-level forms behind call
	// syntax: a string-literal callee naming one of them is parsed and
	// checked statically instead of dispatched at runtime.
	if literal, ok := left.(*StringLiteral); ok && literal.Value == "sort" {
		return p.sortExpression(ctx)
	}

	var arguments []Expression
	for {
		if p.match(RIGHT_PARENTHESIS) {
			break
		}
		arguments = append(arguments, p.expression(ctx, precUnknown))
		if !p.match(COMMA) {
			p.expect(RIGHT_PARENTHESIS, "')' after function call arguments")
			break
		}
	}

	if literal, ok := left.(*StringLiteral); ok {
		switch literal.Value {
		case "split":
			return p.splitExpression(arguments)
		case "join":
			return p.joinExpression(arguments)
		}
	}

	calleeType := p.mustType(left)
	if calleeType.Kind != KindString {
		p.fail(ErrNotCallable, "Value of type '%s' is not callable.", calleeType)
	}
	return &CallOperation{Callee: left, Arguments: arguments}
}

func (p *Parser) splitExpression(arguments []Expression) Expression {
	if len(arguments) < 1 || len(arguments) > 2 {
		p.fail(ErrCombinatorArgument, "'split' expects 1 or 2 arguments, got %d.", len(arguments))
	}
	operandType := p.mustType(arguments[0])
	if operandType.Kind != KindString {
		p.fail(ErrCombinatorArgument, "'split' requires a 'string' operand, got '%s'.", operandType)
	}
	var separator Expression
	if len(arguments) == 2 {
		separatorType := p.mustType(arguments[1])
		if separatorType.Kind != KindString {
			p.fail(ErrCombinatorArgument, "'split' separator must be of type 'string', got '%s'.", separatorType)
		}
		separator = arguments[1]
	}
	return &SplitExpression{Operand: arguments[0], Separator: separator}
}

func (p *Parser) joinExpression(arguments []Expression) Expression {
	if len(arguments) < 1 || len(arguments) > 2 {
		p.fail(ErrCombinatorArgument, "'join' expects 1 or 2 arguments, got %d.", len(arguments))
	}
	operand := arguments[0]
	if empty, ok := operand.(*EmptyListLiteral); ok {
		operand = p.reifyEmptyList(empty, ListType(StringType()))
	}
	operandType := operand.StaticType()
	if !operandType.Equals(ListType(StringType())) {
		p.fail(ErrCombinatorArgument, "'join' requires a 'list<string>' operand, got '%s'.", operandType)
	}
	var separator Expression
	if len(arguments) == 2 {
		separatorType := p.mustType(arguments[1])
		if separatorType.Kind != KindString {
			p.fail(ErrCombinatorArgument, "'join' separator must be of type 'string', got '%s'.", separatorType)
		}
		separator = arguments[1]
	}
	return &JoinExpression{Operand: operand, Separator: separator}
}

// sortExpression parses `sort(list)` or `sort(list; a, b yeet cmp)`. The
// opening parenthesis has already been consumed.
func (p *Parser) sortExpression(ctx *parseContext) Expression {
	operand := p.expression(ctx, precUnknown)
	operandType := p.mustType(operand)
	if !operandType.IsList() {
		p.fail(ErrCombinatorArgument, "'sort' requires a list operand, got '%s'.", operandType)
	}
	elementType := operandType.ElemType()

	if !p.match(SEMICOLON) {
		p.expect(RIGHT_PARENTHESIS, "')' after sort operand")
		if elementType.Kind != KindNumber {
			p.fail(ErrCombinatorArgument,
				"'sort' without a comparator requires a 'list<number>' operand, got '%s'.", operandType)
		}
		return &SortExpression{Operand: operand, Type: operandType}
	}

	leftToken := p.expect(IDENTIFIER, "comparator parameter name")
	leftName := leftToken.Lexeme()
	p.ensureNotShadowed(leftToken, ctx)
	p.expect(COMMA, "',' between comparator parameters")
	rightToken := p.expect(IDENTIFIER, "comparator parameter name")
	rightName := rightToken.Lexeme()
	p.ensureNotShadowed(rightToken, ctx)
	if rightName == leftName {
		p.failAt(rightToken, ErrVariableRedefinition, "Variable '%s' is already defined.", rightName)
	}
	p.expect(YEET, "'yeet' in sort comparator")

	ctx.pushBinder(leftName, elementType)
	ctx.pushBinder(rightName, elementType)
	compare := p.expression(ctx, precUnknown)
	ctx.popBinder()
	ctx.popBinder()

	compareType := p.mustType(compare)
	if compareType.Kind != KindBool {
		p.fail(ErrCombinatorArgument, "'sort' comparator must be of type 'bool', got '%s'.", compareType)
	}
	p.expect(RIGHT_PARENTHESIS, "')' after sort comparator")
	return &SortExpression{
		Operand:   operand,
		LeftName:  leftName,
		RightName: rightName,
		Compare:   compare,
		Type:      operandType,
	}
}

func (p *Parser) listLiteral(ctx *parseContext) Expression {
	p.expect(LEFT_SQUARE_BRACKET, "'[' in list literal")
	var elements []Expression
	for {
		if p.match(RIGHT_SQUARE_BRACKET) {
			break
		}
		elements = append(elements, p.expression(ctx, precUnknown))
		if !p.match(COMMA) {
			p.expect(RIGHT_SQUARE_BRACKET, "']' after list literal elements")
			break
		}
	}

	if len(elements) == 0 {
		return &EmptyListLiteral{}
	}

	// Empty list literals among the elements do not participate in type
	// inference; at least one typed element must pin the element type down.
	var inferredType *DataType
	allEmpty := true
	for _, element := range elements {
		if _, ok := element.(*EmptyListLiteral); ok {
			continue
		}
		allEmpty = false
		elementType := element.StaticType()
		if inferredType == nil {
			t := elementType
			inferredType = &t
		} else if !inferredType.Equals(elementType) {
			p.fail(ErrListElementTypeMismatch,
				"List element type mismatch: expected '%s', got '%s'.", *inferredType, elementType)
		}
	}

	if allEmpty {
		nested := make([]*EmptyListLiteral, len(elements))
		for i, element := range elements {
			nested[i] = element.(*EmptyListLiteral)
		}
		return &EmptyListLiteral{Nested: nested}
	}

	hasEmpty := false
	for _, element := range elements {
		if _, ok := element.(*EmptyListLiteral); ok {
			hasEmpty = true
			break
		}
	}
	if hasEmpty && !inferredType.IsList() {
		p.fail(ErrListElementTypeMismatch,
			"List element type mismatch: expected '%s', got '%s'.", ListType(*inferredType), *inferredType)
	}

	reified := make([]Expression, 0, len(elements))
	for _, element := range elements {
		if empty, ok := element.(*EmptyListLiteral); ok {
			reified = append(reified, p.reifyEmptyList(empty, *inferredType))
		} else {
			reified = append(reified, element)
		}
	}
	return &ListLiteral{Elements: reified, ElementType: *inferredType}
}

func (p *Parser) subscriptOperation(left Expression, ctx *parseContext) Expression {
	p.expect(LEFT_SQUARE_BRACKET, "'[' in subscript operation")
	index := p.expression(ctx, precUnknown)
	p.expect(RIGHT_SQUARE_BRACKET, "']' after subscript index")
	operandType := p.mustType(left)
	indexType := p.mustType(index)
	if indexType.Kind == KindNumber {
		switch {
		case operandType.Kind == KindString:
			return &SubscriptOperation{Operand: left, Index: index, Type: StringType()}
		case operandType.IsList():
			return &SubscriptOperation{Operand: left, Index: index, Type: operandType.ElemType()}
		}
	}
	p.fail(ErrSubscriptType,
		"Cannot subscript value of type '%s' with index of type '%s'.", operandType, indexType)
	return nil
}

func (p *Parser) listComprehension(ctx *parseContext) Expression {
	p.expect(FOR, "'for' in list comprehension")
	iterable := p.expression(ctx, precUnknown)
	iterableType := p.mustType(iterable)
	var elementType DataType
	switch {
	case iterableType.Kind == KindString:
		elementType = StringType()
	case iterableType.IsList():
		elementType = iterableType.ElemType()
	default:
		p.fail(ErrTypeNotIterable, "Value of type '%s' is not iterable.", iterableType)
	}

	p.expect(AS, "'as' in list comprehension")
	nameToken := p.expect(IDENTIFIER, "loop variable name")
	name := nameToken.Lexeme()
	p.ensureNotShadowed(nameToken, ctx)
	ctx.pushBinder(name, elementType)

	var condition Expression
	if p.match(IF) {
		condition = p.expression(ctx, precUnknown)
		conditionType := p.mustType(condition)
		if conditionType.Kind != KindBool {
			p.fail(ErrComprehensionConditionType,
				"List comprehension condition must be of type 'bool', got '%s'.", conditionType)
		}
	}
	p.expect(YEET, "'yeet' in list comprehension")
	if p.current().Type == FOR {
		// Nested comprehensions read badly without explicit grouping.
		p.fail(ErrNestedComprehension, "Nested list comprehensions must be enclosed in parentheses.")
	}
	body := p.expression(ctx, precUnknown)
	p.mustType(body)
	ctx.popBinder()
	return &ListComprehension{
		Iterable:    iterable,
		ElementName: name,
		Condition:   condition,
		Body:        body,
	}
}

func (p *Parser) collectExpression(ctx *parseContext) Expression {
	p.expect(COLLECT, "'collect' in collect expression")
	iterable := p.expression(ctx, precUnknown)
	iterableType := p.mustType(iterable)
	var elementType DataType
	switch {
	case iterableType.Kind == KindString:
		elementType = StringType()
	case iterableType.IsList():
		elementType = iterableType.ElemType()
	default:
		p.fail(ErrTypeNotIterable, "Value of type '%s' is not iterable.", iterableType)
	}

	p.expect(AS, "'as' in collect expression")
	accumulatorToken := p.expect(IDENTIFIER, "accumulator identifier")
	accumulatorName := accumulatorToken.Lexeme()
	p.ensureNotShadowed(accumulatorToken, ctx)
	p.expect(COMMA, "',' in collect expression")
	elementToken := p.expect(IDENTIFIER, "element identifier")
	elementName := elementToken.Lexeme()
	p.ensureNotShadowed(elementToken, ctx)
	if elementName == accumulatorName {
		p.failAt(elementToken, ErrVariableRedefinition, "Variable '%s' is already defined.", elementName)
	}

	ctx.pushBinder(accumulatorName, elementType)
	ctx.pushBinder(elementName, elementType)
	p.expect(WITH, "'with' in collect expression")
	body := p.expression(ctx, precUnknown)
	ctx.popBinder()
	ctx.popBinder()

	bodyType := p.mustType(body)
	if !bodyType.Equals(elementType) {
		p.fail(ErrCollectType,
			"Collect expression type error: expected '%s', got '%s'.", elementType, bodyType)
	}
	return &FoldExpression{
		Iterable:        iterable,
		AccumulatorName: accumulatorName,
		ElementName:     elementName,
		Body:            body,
		Type:            elementType,
	}
}

func (p *Parser) ensureNotShadowed(nameToken Token, ctx *parseContext) {
	name := nameToken.Lexeme()
	if ctx.findStore(name) != nil {
		p.failAt(nameToken, ErrVariableShadowsStore, "Variable '%s' shadows store with the same name.", name)
	}
	if ctx.hasParameter(name) {
		p.failAt(nameToken, ErrVariableShadowsParameter, "Variable '%s' shadows parameter with the same name.", name)
	}
	if ctx.findVariable(name) != nil {
		p.failAt(nameToken, ErrVariableRedefinition, "Variable '%s' is already defined.", name)
	}
}

// reifyEmptyList turns an untyped (possibly nested) empty list literal into
// a typed list literal of the given type.
func (p *Parser) reifyEmptyList(literal *EmptyListLiteral, listType DataType) *ListLiteral {
	elementType := listType.ElemType()
	if elementType.IsList() {
		elements := make([]Expression, 0, len(literal.Nested))
		for _, nested := range literal.Nested {
			elements = append(elements, p.reifyEmptyList(nested, elementType))
		}
		return &ListLiteral{Elements: elements, ElementType: elementType}
	}
	if len(literal.Nested) > 0 {
		p.fail(ErrExpectedEmptyListLiteral,
			"Expected an empty list literal, got a list literal with %d element(s).", len(literal.Nested))
	}
	return &ListLiteral{ElementType: elementType}
}

// ----- token cursor -----

func (p *Parser) isAtEnd() bool {
	return p.cur >= len(p.tokens) || p.tokens[p.cur].Type == END_OF_INPUT
}

func (p *Parser) current() Token {
	if p.isAtEnd() {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.cur]
}

func (p *Parser) advance() Token {
	result := p.current()
	if !p.isAtEnd() {
		p.cur++
	}
	return result
}

func (p *Parser) match(tokenType TokenType) bool {
	if p.isAtEnd() || p.current().Type != tokenType {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokenType TokenType, description string) Token {
	if p.isAtEnd() || p.current().Type != tokenType {
		p.expectedTokenError(description)
	}
	return p.advance()
}

func (p *Parser) expectedTokenError(description string) {
	token := p.current()
	pos := token.SourceLocation.Range().Start
	panic(parserPanic{&ParseError{
		Kind: ErrExpectedToken,
		Line: pos.Line,
		Col:  pos.Column,
		Msg: fmt.Sprintf("Expected %s at line %d, column %d, got %s.",
			description, pos.Line, pos.Column, token.describe()),
	}})
}
