// Package value defines the compile-time representation of an IR operand:
// either a literal constant known at compile time, or a reference to a
// byte offset in the codegen memory plan tagged with the type stored
// there.
package value

import (
	"fmt"

	"ezc/types"
)

// Tag discriminates a Value's variant.
type Tag int

const (
	Num Tag = iota
	Bool
	Char
	Index
	Ref
	Pointer
	None
)

// Value is the compile-time operand representation threaded through
// codegen and the optimizer.
type Value struct {
	Tag Tag

	// Num, Bool, Char literal payloads.
	NumVal  int8
	BoolVal bool
	CharVal byte

	// Index, Ref, Pointer payload: byte offset plus the type stored there.
	Offset int
	Type   types.Type
}

func MakeNum(n int8) Value   { return Value{Tag: Num, NumVal: n} }
func MakeBool(b bool) Value  { return Value{Tag: Bool, BoolVal: b} }
func MakeChar(c byte) Value  { return Value{Tag: Char, CharVal: c} }
func MakeNone() Value        { return Value{Tag: None} }

func MakeIndex(offset int, t types.Type) Value   { return Value{Tag: Index, Offset: offset, Type: t} }
func MakeRef(offset int, t types.Type) Value     { return Value{Tag: Ref, Offset: offset, Type: t} }
func MakePointer(offset int, t types.Type) Value { return Value{Tag: Pointer, Offset: offset, Type: t} }

// IsLiteral reports whether v is a compile-time-known constant (Num, Bool,
// or Char), as opposed to a reference into the memory plan.
func (v Value) IsLiteral() bool {
	return v.Tag == Num || v.Tag == Bool || v.Tag == Char
}

// TypeOf returns v's EZ type.
func (v Value) TypeOf() types.Type {
	switch v.Tag {
	case Num:
		return types.Num()
	case Bool:
		return types.Bool()
	case Char:
		return types.Ch()
	case None:
		return types.Unit()
	case Index, Ref, Pointer:
		return v.Type
	default:
		return types.Unit()
	}
}

func (v Value) String() string {
	switch v.Tag {
	case Num:
		return fmt.Sprintf("Num(%d)", v.NumVal)
	case Bool:
		return fmt.Sprintf("Bool(%t)", v.BoolVal)
	case Char:
		return fmt.Sprintf("Char(%d)", v.CharVal)
	case Index:
		return fmt.Sprintf("Index(%d, %s)", v.Offset, v.Type)
	case Ref:
		return fmt.Sprintf("Ref(%d, %s)", v.Offset, v.Type)
	case Pointer:
		return fmt.Sprintf("Pointer(%d, %s)", v.Offset, v.Type)
	case None:
		return "None"
	default:
		return "?"
	}
}

// Converted applies the literal conversion table (§4.5 of the language
// spec) to a compile-time-known v, producing a value of type to. It is
// only ever called when v.IsLiteral(); runtime values are reinterpreted
// by codegen directly without calling into this table.
//
// The table is intentionally asymmetric: Number->Char offsets by 128,
// but Bool->Char does not. This matches the upstream language's constant
// folding and is preserved rather than "fixed".
func Converted(v Value, to types.Type) Value {
	switch to.Tag {
	case types.Boolean:
		switch v.Tag {
		case Num:
			return MakeBool(v.NumVal != 0)
		case Char:
			return MakeBool(v.CharVal != 0)
		case Bool:
			return v
		}
	case types.Char:
		switch v.Tag {
		case Num:
			return MakeChar(byte((int(v.NumVal) + 128) % 256))
		case Bool:
			if v.BoolVal {
				return MakeChar(1)
			}
			return MakeChar(0)
		case Char:
			return v
		}
	case types.Number:
		switch v.Tag {
		case Char:
			return MakeNum(int8(int(v.CharVal) - 128))
		case Bool:
			if v.BoolVal {
				return MakeNum(1)
			}
			return MakeNum(0)
		case Num:
			return v
		}
	}
	return v
}
