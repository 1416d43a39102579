// Package check implements the keyword-placement pass: after parsing, it
// walks the AST and rejects any `return` statement that is not
// transitively contained in a function body.
//
// Grounded on spec §4.3's recursion contract: recursing into a subtree
// returns the position of a `return` it found (or nil), except recursion
// into a FuncDef's body always reports nil upward — a return inside a
// function is where it belongs, and must not bubble past the function
// that contains it.
package check

import (
	"ezc/ast"
	"ezc/ezerr"
	"ezc/token"
)

// Returns walks program (the top-level list of statements) and reports
// an InvalidReturn error for the first `return` found outside any
// function body.
func Returns(program []ast.Node) error {
	v := &returnChecker{}
	for _, n := range program {
		if pos := n.Accept(v); pos != nil {
			return ezerr.New(ezerr.InvalidReturn, toEzerrPos(pos.(token.Position)), "`return` outside of a function body")
		}
	}
	return nil
}

// returnChecker implements ast.Visitor. Each method returns a token.Position
// (as any) marking a `return` that was found and has not yet been
// absorbed by an enclosing FuncDef, or nil.
type returnChecker struct{}

func toEzerrPos(p token.Position) ezerr.Position {
	return ezerr.Position{File: p.File, LineStart: p.LineStart, LineEnd: p.LineEnd, ColStart: p.ColStart, ColEnd: p.ColEnd}
}

func firstNonNil(v *returnChecker, nodes ...ast.Node) any {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if pos := n.Accept(v); pos != nil {
			return pos
		}
	}
	return nil
}

func (v *returnChecker) VisitNumberLiteral(*ast.NumberLiteral) any { return nil }
func (v *returnChecker) VisitBoolLiteral(*ast.BoolLiteral) any     { return nil }
func (v *returnChecker) VisitCharLiteral(*ast.CharLiteral) any     { return nil }
func (v *returnChecker) VisitStringLiteral(*ast.StringLiteral) any { return nil }

func (v *returnChecker) VisitArrayLiteral(n *ast.ArrayLiteral) any {
	return firstNonNil(v, n.Elements...)
}

func (v *returnChecker) VisitVarAccess(*ast.VarAccess) any { return nil }

func (v *returnChecker) VisitVarDecl(n *ast.VarDecl) any     { return firstNonNil(v, n.RHS) }
func (v *returnChecker) VisitVarReassign(n *ast.VarReassign) any { return firstNonNil(v, n.RHS) }

func (v *returnChecker) VisitBinary(n *ast.Binary) any { return firstNonNil(v, n.Left, n.Right) }
func (v *returnChecker) VisitUnary(n *ast.Unary) any   { return firstNonNil(v, n.Operand) }
func (v *returnChecker) VisitConvert(n *ast.Convert) any { return firstNonNil(v, n.Operand) }

func (v *returnChecker) VisitIf(n *ast.If) any {
	if pos := firstNonNil(v, n.Cond, n.Then); pos != nil {
		return pos
	}
	if n.Else != nil {
		return n.Else.Accept(v)
	}
	return nil
}

func (v *returnChecker) VisitTernary(n *ast.Ternary) any {
	return firstNonNil(v, n.Cond, n.Then, n.Else)
}

func (v *returnChecker) VisitWhile(n *ast.While) any { return firstNonNil(v, n.Cond, n.Body) }

func (v *returnChecker) VisitFor(n *ast.For) any {
	return firstNonNil(v, n.Init, n.Cond, n.Step, n.Body)
}

func (v *returnChecker) VisitBlock(n *ast.Block) any { return firstNonNil(v, n.Statements...) }

// VisitFuncDef always returns nil upward: a `return` found inside this
// function's body belongs to it and must not propagate past it.
func (v *returnChecker) VisitFuncDef(n *ast.FuncDef) any {
	n.Body.Accept(v)
	return nil
}

func (v *returnChecker) VisitCall(n *ast.Call) any { return firstNonNil(v, n.Args...) }

func (v *returnChecker) VisitReturn(n *ast.Return) any {
	pos := n.Pos
	return pos
}

func (v *returnChecker) VisitPrint(n *ast.Print) any { return firstNonNil(v, n.Values...) }
func (v *returnChecker) VisitAscii(n *ast.Ascii) any { return firstNonNil(v, n.Values...) }
func (v *returnChecker) VisitInput(*ast.Input) any   { return nil }

func (v *returnChecker) VisitRefExpr(n *ast.RefExpr) any     { return firstNonNil(v, n.Operand) }
func (v *returnChecker) VisitDerefExpr(n *ast.DerefExpr) any { return firstNonNil(v, n.Operand) }

func (v *returnChecker) VisitIndex(n *ast.Index) any { return firstNonNil(v, n.Array, n.Idx) }
func (v *returnChecker) VisitIndexAssign(n *ast.IndexAssign) any {
	return firstNonNil(v, n.Array, n.Idx, n.RHS)
}
func (v *returnChecker) VisitDerefAssign(n *ast.DerefAssign) any {
	return firstNonNil(v, n.Pointer, n.RHS)
}

func (v *returnChecker) VisitStructDef(*ast.StructDef) any { return nil }

func (v *returnChecker) VisitStructConstructor(n *ast.StructConstructor) any {
	for _, name := range n.FieldOrder {
		if pos := n.FieldVals[name].Accept(v); pos != nil {
			return pos
		}
	}
	return nil
}

func (v *returnChecker) VisitAttrAccess(n *ast.AttrAccess) any { return firstNonNil(v, n.Base) }

func (v *returnChecker) VisitStaticVar(n *ast.StaticVar) any { return firstNonNil(v, n.RHS) }

// VisitExpanded should never be reached: the inline pass runs after this
// check in the pipeline order. Treated as an ordinary block for safety.
func (v *returnChecker) VisitExpanded(n *ast.Expanded) any { return firstNonNil(v, n.Statements...) }
