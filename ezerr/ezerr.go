// Package ezerr defines the single error taxonomy shared by every stage of
// the EZ compiler pipeline. Every stage fails fast: the first diagnostic
// raised by any stage aborts the whole compilation, and no stage attempts
// to recover or continue past it.
package ezerr

import "fmt"

// Kind classifies a compile-time failure. This is the exact taxonomy the
// pipeline emits outward to its caller.
type Kind int

const (
	InvalidLiteral Kind = iota
	NumberTooLarge
	SyntaxError
	UndefinedFunction
	UndefinedStruct
	UndefinedVariable
	InvalidReturn
	TypeError
	IndexOutOfBounds
	FileNotFound
	Redefinition
	RecursionError
	PreprocessorError
)

var kindNames = map[Kind]string{
	InvalidLiteral:     "InvalidLiteral",
	NumberTooLarge:     "NumberTooLarge",
	SyntaxError:        "SyntaxError",
	UndefinedFunction:  "UndefinedFunction",
	UndefinedStruct:    "UndefinedStruct",
	UndefinedVariable:  "UndefinedVariable",
	InvalidReturn:      "InvalidReturn",
	TypeError:          "TypeError",
	IndexOutOfBounds:   "IndexOutOfBounds",
	FileNotFound:       "FileNotFound",
	Redefinition:       "Redefinition",
	RecursionError:     "RecursionError",
	PreprocessorError:  "PreprocessorError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UnknownError"
}

// Position is the subset of token.Position an error needs to report a
// location; it is duplicated here (rather than importing package token)
// so that ezerr has no dependency on the rest of the pipeline and every
// other package can depend on it instead.
type Position struct {
	File      string
	LineStart int
	LineEnd   int
	ColStart  int
	ColEnd    int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.LineStart, p.ColStart)
}

// Error is the single diagnostic type produced by every pipeline stage.
type Error struct {
	Kind    Kind
	Pos     Position
	Detail  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Detail)
}

// New constructs an *Error, formatting Detail with fmt.Sprintf semantics.
func New(kind Kind, pos Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Detail: fmt.Sprintf(format, args...)}
}
