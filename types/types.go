// Package types defines EZ's type system: a small closed sum of types,
// their byte sizes under the flat memory model, and the result-type
// tables the code generator consults for every binary/unary operator and
// conversion.
package types

import "fmt"

// Tag discriminates a Type's variant.
type Tag int

const (
	Number Tag = iota
	Boolean
	Char
	None
	Ref
	Pointer
	Struct
	Function
	Array
)

// PointerSize is the design constant `P` from the spec: the fixed byte
// width of a Ref or Pointer value regardless of its pointee's size.
const PointerSize = 2

// Field is one member of a Struct type, in declaration order.
type Field struct {
	Name string
	Type Type
}

// Param is one parameter of a Function type.
type Param struct {
	Name string
	Type Type
}

// Type is EZ's type sum. Only the fields relevant to Tag are populated;
// the zero value of the irrelevant fields is never read.
type Type struct {
	Tag Tag

	// Ref, Pointer, Array element type.
	Elem *Type

	// Struct
	StructName string
	Fields     []Field

	// Function
	Params []Param
	Result *Type

	// Array
	Len int
}

func Num() Type  { return Type{Tag: Number} }
func Bool() Type { return Type{Tag: Boolean} }
func Ch() Type   { return Type{Tag: Char} }
func Unit() Type { return Type{Tag: None} }

func MakeRef(elem Type) Type     { return Type{Tag: Ref, Elem: &elem} }
func MakePointer(elem Type) Type { return Type{Tag: Pointer, Elem: &elem} }
func MakeArray(elem Type, n int) Type {
	return Type{Tag: Array, Elem: &elem, Len: n}
}
func MakeStruct(name string, fields []Field) Type {
	return Type{Tag: Struct, StructName: name, Fields: fields}
}
func MakeFunction(params []Param, result Type) Type {
	return Type{Tag: Function, Params: params, Result: &result}
}

// Size returns the type's byte footprint under the flat memory model.
func (t Type) Size() int {
	switch t.Tag {
	case Number, Boolean, Char:
		return 1
	case None:
		return 0
	case Ref, Pointer:
		return PointerSize
	case Struct:
		total := 0
		for _, f := range t.Fields {
			total += f.Type.Size()
		}
		return total
	case Array:
		return t.Len * t.Elem.Size()
	case Function:
		return 0
	default:
		return 0
	}
}

// Equal reports structural equality between two types.
func (t Type) Equal(other Type) bool {
	if t.Tag != other.Tag {
		return false
	}
	switch t.Tag {
	case Number, Boolean, Char, None:
		return true
	case Ref, Pointer:
		return t.Elem.Equal(*other.Elem)
	case Array:
		return t.Len == other.Len && t.Elem.Equal(*other.Elem)
	case Struct:
		if t.StructName != other.StructName || len(t.Fields) != len(other.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != other.Fields[i].Name || !t.Fields[i].Type.Equal(other.Fields[i].Type) {
				return false
			}
		}
		return true
	case Function:
		if len(t.Params) != len(other.Params) || !t.Result.Equal(*other.Result) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Type.Equal(other.Params[i].Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	switch t.Tag {
	case Number:
		return "int"
	case Boolean:
		return "bool"
	case Char:
		return "char"
	case None:
		return "none"
	case Ref:
		return "&" + t.Elem.String()
	case Pointer:
		return "*" + t.Elem.String()
	case Array:
		return fmt.Sprintf("[%s; %d]", t.Elem.String(), t.Len)
	case Struct:
		return t.StructName
	case Function:
		return "function"
	default:
		return "?"
	}
}

// FieldOffset returns the byte offset of field name within a Struct type,
// computed by concatenating field sizes in declaration order with no
// padding, and the field's type. ok is false if name is not a member.
func (t Type) FieldOffset(name string) (offset int, fieldType Type, ok bool) {
	off := 0
	for _, f := range t.Fields {
		if f.Name == name {
			return off, f.Type, true
		}
		off += f.Type.Size()
	}
	return 0, Type{}, false
}

// CanConvert reports whether a literal or runtime value of type from may
// be converted (`as`) to type to. EZ allows conversions among the three
// scalar types, Ref->Pointer widening of the same pointee, and conversion
// of any type to an identical type; all other pairs are illegal.
func CanConvert(from, to Type) bool {
	scalar := func(t Type) bool {
		return t.Tag == Number || t.Tag == Boolean || t.Tag == Char
	}
	if scalar(from) && scalar(to) {
		return true
	}
	if from.Tag == Ref && to.Tag == Pointer {
		return from.Elem.Equal(*to.Elem)
	}
	return from.Equal(to)
}

// BinaryResult computes the result type of applying a binary operator
// (identified by name, e.g. "+", "==", "&&") to operands of type left and
// right, or reports ok=false when the operator is undefined for that pair.
func BinaryResult(op string, left, right Type) (result Type, ok bool) {
	scalar := func(t Type) bool {
		return t.Tag == Number || t.Tag == Char
	}

	switch op {
	case "+", "-", "*", "/", "%", "**", "&", "|", "^", "<<", ">>":
		if scalar(left) && left.Equal(right) {
			return left, true
		}
		// pointer arithmetic: Pointer/Array +/- Number.
		if (op == "+" || op == "-") && (left.Tag == Pointer || left.Tag == Array) && right.Tag == Number {
			if left.Tag == Array {
				return MakePointer(*left.Elem), true
			}
			return left, true
		}
		return Type{}, false
	case "==", "!=", "<", ">", "<=", ">=":
		if left.Equal(right) && (scalar(left) || left.Tag == Boolean || left.Tag == Pointer) {
			return Bool(), true
		}
		return Type{}, false
	case "&&", "||", "!&|":
		if left.Tag == Boolean && right.Tag == Boolean {
			return Bool(), true
		}
		return Type{}, false
	default:
		return Type{}, false
	}
}

// UnaryResult computes the result type of applying a prefix unary
// operator to an operand of type t.
func UnaryResult(op string, t Type) (result Type, ok bool) {
	switch op {
	case "-":
		if t.Tag == Number {
			return t, true
		}
	case "~":
		if t.Tag == Number || t.Tag == Char {
			return t, true
		}
	case "!":
		if t.Tag == Boolean {
			return t, true
		}
	case "++", "--":
		if t.Tag == Number || t.Tag == Char {
			return t, true
		}
	case "&":
		return MakeRef(t), true
	case "*":
		if t.Tag == Ref || t.Tag == Pointer {
			return *t.Elem, true
		}
	}
	return Type{}, false
}
