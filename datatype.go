// datatype.go: the static type universe of the language.
package scripting

// TypeKind discriminates the DataType sum.
type TypeKind int

const (
	KindNumber TypeKind = iota
	KindString
	KindBool
	KindList
)

// DataType is one of number, string, bool, or list<T>. List element types
// nest arbitrarily deep. The zero value is number.
type DataType struct {
	Kind TypeKind
	Elem *DataType // set iff Kind == KindList
}

func NumberType() DataType { return DataType{Kind: KindNumber} }
func StringType() DataType { return DataType{Kind: KindString} }
func BoolType() DataType   { return DataType{Kind: KindBool} }

func ListType(elem DataType) DataType {
	return DataType{Kind: KindList, Elem: &elem}
}

// IsList reports whether the type is a list of any element type.
func (t DataType) IsList() bool { return t.Kind == KindList }

// ElemType returns the element type of a list. Calling it on a non-list is a
// programming error.
func (t DataType) ElemType() DataType {
	if t.Kind != KindList || t.Elem == nil {
		panic("ElemType called on non-list data type")
	}
	return *t.Elem
}

// Equals is structural equality. Lists are invariant in their element type.
func (t DataType) Equals(other DataType) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind == KindList {
		return t.ElemType().Equals(other.ElemType())
	}
	return true
}

func (t DataType) String() string {
	switch t.Kind {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindList:
		return "list<" + t.ElemType().String() + ">"
	default:
		return "unknown"
	}
}
