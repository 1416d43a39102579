package ast_test

import (
	"testing"

	"ezc/ast"
	"ezc/token"
	"ezc/types"
)

func TestPositionAccessorsReturnTheStoredPosition(t *testing.T) {
	pos := token.Position{File: "t.ez", LineStart: 3, ColStart: 7}
	n := &ast.VarAccess{Name: "x", Pos: pos}
	if n.Position() != pos {
		t.Fatalf("got %+v, want %+v", n.Position(), pos)
	}
}

// countingVisitor implements ast.Visitor, counting how many times each
// concrete node type is visited. ArrayLiteral, VarDecl, Binary, If and
// Block also visit their children; every other method only counts itself.
type countingVisitor struct {
	counts map[string]int
}

func newCountingVisitor() *countingVisitor {
	return &countingVisitor{counts: map[string]int{}}
}

func (c *countingVisitor) VisitNumberLiteral(n *ast.NumberLiteral) any {
	c.counts["NumberLiteral"]++
	return nil
}
func (c *countingVisitor) VisitBoolLiteral(n *ast.BoolLiteral) any {
	c.counts["BoolLiteral"]++
	return nil
}
func (c *countingVisitor) VisitCharLiteral(n *ast.CharLiteral) any {
	c.counts["CharLiteral"]++
	return nil
}
func (c *countingVisitor) VisitStringLiteral(n *ast.StringLiteral) any {
	c.counts["StringLiteral"]++
	return nil
}
func (c *countingVisitor) VisitArrayLiteral(n *ast.ArrayLiteral) any {
	c.counts["ArrayLiteral"]++
	for _, e := range n.Elements {
		e.Accept(c)
	}
	return nil
}
func (c *countingVisitor) VisitVarAccess(n *ast.VarAccess) any {
	c.counts["VarAccess"]++
	return nil
}
func (c *countingVisitor) VisitVarDecl(n *ast.VarDecl) any {
	c.counts["VarDecl"]++
	if n.RHS != nil {
		n.RHS.Accept(c)
	}
	return nil
}
func (c *countingVisitor) VisitVarReassign(n *ast.VarReassign) any {
	c.counts["VarReassign"]++
	return nil
}
func (c *countingVisitor) VisitBinary(n *ast.Binary) any {
	c.counts["Binary"]++
	n.Left.Accept(c)
	n.Right.Accept(c)
	return nil
}
func (c *countingVisitor) VisitUnary(n *ast.Unary) any { c.counts["Unary"]++; return nil }
func (c *countingVisitor) VisitConvert(n *ast.Convert) any {
	c.counts["Convert"]++
	return nil
}
func (c *countingVisitor) VisitIf(n *ast.If) any {
	c.counts["If"]++
	n.Cond.Accept(c)
	n.Then.Accept(c)
	if n.Else != nil {
		n.Else.Accept(c)
	}
	return nil
}
func (c *countingVisitor) VisitTernary(n *ast.Ternary) any { c.counts["Ternary"]++; return nil }
func (c *countingVisitor) VisitWhile(n *ast.While) any     { c.counts["While"]++; return nil }
func (c *countingVisitor) VisitFor(n *ast.For) any         { c.counts["For"]++; return nil }
func (c *countingVisitor) VisitBlock(n *ast.Block) any {
	c.counts["Block"]++
	for _, s := range n.Statements {
		s.Accept(c)
	}
	return nil
}
func (c *countingVisitor) VisitFuncDef(n *ast.FuncDef) any { c.counts["FuncDef"]++; return nil }
func (c *countingVisitor) VisitCall(n *ast.Call) any       { c.counts["Call"]++; return nil }
func (c *countingVisitor) VisitReturn(n *ast.Return) any   { c.counts["Return"]++; return nil }
func (c *countingVisitor) VisitPrint(n *ast.Print) any     { c.counts["Print"]++; return nil }
func (c *countingVisitor) VisitAscii(n *ast.Ascii) any     { c.counts["Ascii"]++; return nil }
func (c *countingVisitor) VisitInput(n *ast.Input) any     { c.counts["Input"]++; return nil }
func (c *countingVisitor) VisitRefExpr(n *ast.RefExpr) any { c.counts["RefExpr"]++; return nil }
func (c *countingVisitor) VisitDerefExpr(n *ast.DerefExpr) any {
	c.counts["DerefExpr"]++
	return nil
}
func (c *countingVisitor) VisitIndex(n *ast.Index) any { c.counts["Index"]++; return nil }
func (c *countingVisitor) VisitIndexAssign(n *ast.IndexAssign) any {
	c.counts["IndexAssign"]++
	return nil
}
func (c *countingVisitor) VisitDerefAssign(n *ast.DerefAssign) any {
	c.counts["DerefAssign"]++
	return nil
}
func (c *countingVisitor) VisitStructDef(n *ast.StructDef) any {
	c.counts["StructDef"]++
	return nil
}
func (c *countingVisitor) VisitStructConstructor(n *ast.StructConstructor) any {
	c.counts["StructConstructor"]++
	return nil
}
func (c *countingVisitor) VisitAttrAccess(n *ast.AttrAccess) any {
	c.counts["AttrAccess"]++
	return nil
}
func (c *countingVisitor) VisitStaticVar(n *ast.StaticVar) any {
	c.counts["StaticVar"]++
	return nil
}
func (c *countingVisitor) VisitExpanded(n *ast.Expanded) any {
	c.counts["Expanded"]++
	return nil
}

func TestAcceptDispatchesToTheMatchingVisitMethod(t *testing.T) {
	cases := []struct {
		name string
		node ast.Node
	}{
		{"NumberLiteral", &ast.NumberLiteral{Value: 1}},
		{"BoolLiteral", &ast.BoolLiteral{Value: true}},
		{"CharLiteral", &ast.CharLiteral{Value: 'a'}},
		{"StringLiteral", &ast.StringLiteral{Value: "hi"}},
		{"VarAccess", &ast.VarAccess{Name: "x"}},
		{"VarReassign", &ast.VarReassign{Name: "x", RHS: &ast.NumberLiteral{Value: 1}}},
		{"Unary", &ast.Unary{Op: token.SUB, Operand: &ast.NumberLiteral{Value: 1}}},
		{"Convert", &ast.Convert{Operand: &ast.NumberLiteral{Value: 1}, Target: types.Ch()}},
		{"Ternary", &ast.Ternary{Cond: &ast.BoolLiteral{Value: true}, Then: &ast.NumberLiteral{Value: 1}, Else: &ast.NumberLiteral{Value: 2}}},
		{"While", &ast.While{Cond: &ast.BoolLiteral{Value: true}, Body: &ast.Block{}}},
		{"For", &ast.For{Cond: &ast.BoolLiteral{Value: true}, Body: &ast.Block{}}},
		{"FuncDef", &ast.FuncDef{Name: "f", Body: &ast.Block{}}},
		{"Call", &ast.Call{Name: "f"}},
		{"Return", &ast.Return{}},
		{"Input", &ast.Input{}},
		{"RefExpr", &ast.RefExpr{Operand: &ast.VarAccess{Name: "x"}}},
		{"DerefExpr", &ast.DerefExpr{Operand: &ast.VarAccess{Name: "x"}}},
		{"Index", &ast.Index{Array: &ast.VarAccess{Name: "a"}, Idx: &ast.NumberLiteral{Value: 0}}},
		{"IndexAssign", &ast.IndexAssign{Array: &ast.VarAccess{Name: "a"}, Idx: &ast.NumberLiteral{Value: 0}, RHS: &ast.NumberLiteral{Value: 1}}},
		{"DerefAssign", &ast.DerefAssign{Pointer: &ast.VarAccess{Name: "p"}, RHS: &ast.NumberLiteral{Value: 1}}},
		{"StructDef", &ast.StructDef{Name: "S"}},
		{"StructConstructor", &ast.StructConstructor{StructName: "S"}},
		{"AttrAccess", &ast.AttrAccess{Base: &ast.VarAccess{Name: "s"}, Field: "x"}},
		{"StaticVar", &ast.StaticVar{Name: "x", RHS: &ast.NumberLiteral{Value: 1}}},
		{"Expanded", &ast.Expanded{}},
	}
	for _, c := range cases {
		v := newCountingVisitor()
		c.node.Accept(v)
		if v.counts[c.name] != 1 {
			t.Errorf("Accept on %s did not dispatch to Visit%s", c.name, c.name)
		}
	}
}

func TestAcceptRecursesIntoChildrenForCompositeNodes(t *testing.T) {
	block := &ast.Block{Statements: []ast.Node{
		&ast.VarDecl{Name: "x", Type: types.Num(), RHS: &ast.NumberLiteral{Value: 1}},
	}}
	ifNode := &ast.If{
		Cond: &ast.BoolLiteral{Value: true},
		Then: block,
		Else: &ast.Block{Statements: []ast.Node{&ast.VarAccess{Name: "y"}}},
	}
	v := newCountingVisitor()
	ifNode.Accept(v)

	if v.counts["If"] != 1 || v.counts["Block"] != 2 || v.counts["VarDecl"] != 1 ||
		v.counts["NumberLiteral"] != 1 || v.counts["VarAccess"] != 1 || v.counts["BoolLiteral"] != 1 {
		t.Errorf("expected If to recurse into cond/then/else, got counts %v", v.counts)
	}
}

func TestArrayLiteralAcceptVisitsEachElement(t *testing.T) {
	arr := &ast.ArrayLiteral{Elements: []ast.Node{
		&ast.NumberLiteral{Value: 1},
		&ast.NumberLiteral{Value: 2},
		&ast.NumberLiteral{Value: 3},
	}}
	v := newCountingVisitor()
	arr.Accept(v)
	if v.counts["ArrayLiteral"] != 1 || v.counts["NumberLiteral"] != 3 {
		t.Errorf("expected 1 ArrayLiteral visit and 3 NumberLiteral visits, got %v", v.counts)
	}
}
