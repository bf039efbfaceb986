// value.go: the runtime value union and its rendering rules.
package scripting

import (
	"math"
	"strconv"
	"strings"
)

// ValueTag discriminates the Value union.
type ValueTag int

const (
	VNumber ValueTag = iota
	VString
	VBool
	VList
)

// Value is a runtime value. Exactly one payload field is meaningful,
// selected by Tag. List values additionally carry their element type so that
// empty lists stay typed.
type Value struct {
	Tag  ValueTag
	Num  float64
	Str  string
	Bool bool
	Elem DataType // element type, set iff Tag == VList
	List []Value
}

func NumberValue(n float64) Value { return Value{Tag: VNumber, Num: n} }
func StringValue(s string) Value  { return Value{Tag: VString, Str: s} }
func BoolValue(b bool) Value      { return Value{Tag: VBool, Bool: b} }

func ListValue(elem DataType, items []Value) Value {
	return Value{Tag: VList, Elem: elem, List: items}
}

// Type returns the value's runtime data type.
func (v Value) Type() DataType {
	switch v.Tag {
	case VNumber:
		return NumberType()
	case VString:
		return StringType()
	case VBool:
		return BoolType()
	case VList:
		return ListType(v.Elem)
	default:
		panic("invalid value tag")
	}
}

// ToString renders the value the way PRINT does. Strings render without
// quotes, bools as true/false, lists as "[a, b]".
func (v Value) ToString() string {
	switch v.Tag {
	case VNumber:
		return formatNumber(v.Num)
	case VString:
		return v.Str
	case VBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case VList:
		var b strings.Builder
		b.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(item.ToString())
		}
		b.WriteByte(']')
		return b.String()
	default:
		panic("invalid value tag")
	}
}

// Equals is deep structural equality. Values of different types are never
// equal.
func (v Value) Equals(other Value) bool {
	if v.Tag != other.Tag {
		return false
	}
	switch v.Tag {
	case VNumber:
		return v.Num == other.Num
	case VString:
		return v.Str == other.Str
	case VBool:
		return v.Bool == other.Bool
	case VList:
		if !v.Elem.Equals(other.Elem) || len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equals(other.List[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// isIntegral reports whether f is a whole number (and finite).
func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}

// formatNumber renders a number: integral values without a decimal point,
// everything else with the shortest decimal representation that round-trips.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
