// ast.go: the typed syntax tree.
//
// Statements and expressions are closed sums: one struct per node kind, with
// the evaluator and all analyses switching exhaustively over the concrete
// types. Every expression node carries the static type the parser computed
// for it, so StaticType() is a field read, never a re-derivation.
package scripting

// Store is a persistent slot declared with STORE. Its static type is the
// type of the declaration's initial-value expression.
type Store struct {
	Name  string
	Value Expression
}

func (s Store) DataType() DataType { return s.Value.StaticType() }

// Parameter is a positional script parameter declared with PARAMS.
// Parameters are always strings.
type Parameter struct {
	Name string
}

// Script is a fully parsed and type-checked script, ready to execute.
type Script struct {
	Name       string
	Stores     []Store
	Parameters []Parameter
	Statements []Statement

	builtins *Builtins
}

// Statement is the closed sum of statement kinds.
type Statement interface{ stmt() }

type PrintStatement struct {
	Argument Expression
}

type AssignmentStatement struct {
	// Target is a *StoreIdentifier, *ParameterIdentifier, or
	// *VariableIdentifier; the parser rejects anything else.
	Target Expression
	Value  Expression
}

type VariableDefinitionStatement struct {
	Name         string
	Type         DataType
	InitialValue Expression
}

func (*PrintStatement) stmt()              {}
func (*AssignmentStatement) stmt()         {}
func (*VariableDefinitionStatement) stmt() {}

// Expression is the closed sum of expression kinds.
type Expression interface {
	expr()
	StaticType() DataType
}

type StringLiteral struct {
	Value string
}

type NumberLiteral struct {
	Value float64
}

type BoolLiteral struct {
	Value bool
}

type StoreIdentifier struct {
	Name string
	Type DataType
}

type ParameterIdentifier struct {
	Name string
}

type VariableIdentifier struct {
	Name string
	Type DataType
}

// UnaryOperator enumerates prefix operators.
type UnaryOperator int

const (
	OpPlus UnaryOperator = iota
	OpNegate
	OpNot
	OpToNumber // $
	OpToString // #
	OpToBool   // ?
	OpEvaluate // !
)

func (op UnaryOperator) String() string {
	switch op {
	case OpPlus:
		return "+"
	case OpNegate:
		return "-"
	case OpNot:
		return "not"
	case OpToNumber:
		return "$"
	case OpToString:
		return "#"
	case OpToBool:
		return "?"
	case OpEvaluate:
		return "!"
	default:
		return "?op?"
	}
}

type UnaryOperation struct {
	Operator UnaryOperator
	Operand  Expression
	Type     DataType
}

// BinaryOperator enumerates infix operators.
type BinaryOperator int

const (
	OpAdd BinaryOperator = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpEquals
	OpNotEquals
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpAnd
	OpOr
	OpRangeInclusive
	OpRangeExclusive
)

func (op BinaryOperator) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpModulo:
		return "%"
	case OpEquals:
		return "=="
	case OpNotEquals:
		return "!="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpRangeInclusive:
		return "..="
	case OpRangeExclusive:
		return "..<"
	default:
		return "?op?"
	}
}

type BinaryOperation struct {
	Left     Expression
	Operator BinaryOperator
	Right    Expression
	Type     DataType
}

type TernaryOperation struct {
	Condition   Expression
	TrueBranch  Expression
	FalseBranch Expression
	Type        DataType
}

// CallOperation is a dynamic call: the callee evaluates to a name which is
// looked up first among the builtins, then dispatched to the host's script
// caller. Calls always produce strings.
type CallOperation struct {
	Callee    Expression
	Arguments []Expression
}

// EmptyListLiteral is `[]` (possibly nesting only further empty lists, like
// `[[], []]`). It has no type of its own: the parser replaces it with a
// typed ListLiteral wherever the context pins the type down, and errors
// where it cannot.
type EmptyListLiteral struct {
	Nested []*EmptyListLiteral
}

type ListLiteral struct {
	Elements    []Expression
	ElementType DataType
}

type SubscriptOperation struct {
	Operand Expression
	Index   Expression
	Type    DataType
}

// ListComprehension is `for iterable as name [if cond] yeet body`.
type ListComprehension struct {
	Iterable    Expression
	ElementName string
	Condition   Expression // nil when absent
	Body        Expression
}

// FoldExpression is `collect iterable as acc, elem with body`.
type FoldExpression struct {
	Iterable        Expression
	AccumulatorName string
	ElementName     string
	Body            Expression
	Type            DataType
}

// SplitExpression is the statically checked `split(s[, sep])` form.
type SplitExpression struct {
	Operand   Expression
	Separator Expression // nil: split on single spaces
}

// JoinExpression is the statically checked `join(l[, sep])` form.
type JoinExpression struct {
	Operand   Expression
	Separator Expression // nil: join without separator
}

// SortExpression is `sort(list)` or `sort(list; a, b yeet cmp)`. A nil
// Compare means the default ascending number order.
type SortExpression struct {
	Operand   Expression
	LeftName  string
	RightName string
	Compare   Expression
	Type      DataType
}

func (*StringLiteral) expr()       {}
func (*NumberLiteral) expr()       {}
func (*BoolLiteral) expr()         {}
func (*StoreIdentifier) expr()     {}
func (*ParameterIdentifier) expr() {}
func (*VariableIdentifier) expr()  {}
func (*UnaryOperation) expr()      {}
func (*BinaryOperation) expr()     {}
func (*TernaryOperation) expr()    {}
func (*CallOperation) expr()       {}
func (*EmptyListLiteral) expr()    {}
func (*ListLiteral) expr()         {}
func (*SubscriptOperation) expr()  {}
func (*ListComprehension) expr()   {}
func (*FoldExpression) expr()      {}
func (*SortExpression) expr()      {}
func (*SplitExpression) expr()     {}
func (*JoinExpression) expr()      {}

func (*StringLiteral) StaticType() DataType       { return StringType() }
func (*NumberLiteral) StaticType() DataType       { return NumberType() }
func (*BoolLiteral) StaticType() DataType         { return BoolType() }
func (e *StoreIdentifier) StaticType() DataType   { return e.Type }
func (*ParameterIdentifier) StaticType() DataType { return StringType() }
func (e *VariableIdentifier) StaticType() DataType {
	return e.Type
}
func (e *UnaryOperation) StaticType() DataType   { return e.Type }
func (e *BinaryOperation) StaticType() DataType  { return e.Type }
func (e *TernaryOperation) StaticType() DataType { return e.Type }
func (*CallOperation) StaticType() DataType      { return StringType() }

func (*EmptyListLiteral) StaticType() DataType {
	panic("static type requested for an untyped empty list literal")
}

func (e *ListLiteral) StaticType() DataType        { return ListType(e.ElementType) }
func (e *SubscriptOperation) StaticType() DataType { return e.Type }
func (e *ListComprehension) StaticType() DataType {
	return ListType(e.Body.StaticType())
}
func (e *FoldExpression) StaticType() DataType { return e.Type }
func (e *SortExpression) StaticType() DataType { return e.Type }
func (*SplitExpression) StaticType() DataType  { return ListType(StringType()) }
func (*JoinExpression) StaticType() DataType   { return StringType() }
