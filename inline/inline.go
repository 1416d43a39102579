// Package inline implements spec.md §4.4's inline expansion pass: every
// `inline`-flagged function definition is removed from the AST, and
// every call site that targets one is replaced with an `ast.Expanded`
// block carrying the callee's parameter bindings followed by its body.
//
// Grounded on spec.md §4.4's three-step algorithm directly; there is no
// teacher equivalent (informatter-nilan has no functions, let alone
// inline ones). The substitution itself is a full ast.Visitor
// implementation, in the same style as check's returnChecker, but
// rebuilding nodes instead of only inspecting them.
package inline

import (
	"ezc/ast"
	"ezc/ezerr"
	"ezc/token"
)

// Expand removes every inline FuncDef from program and replaces every
// call site (anywhere in the remaining AST, including inside other
// functions' bodies) that targets one with its Expanded form. Mutually
// recursive or self-recursive inline functions are rejected with
// RecursionError, per spec.md §9's inline-recursion note.
func Expand(program []ast.Node) ([]ast.Node, error) {
	e := &expander{
		funcs: make(map[string]*ast.FuncDef),
		state: make(map[string]int),
	}
	for _, n := range program {
		if fn, ok := n.(*ast.FuncDef); ok && fn.Inline {
			e.funcs[fn.Name] = fn
		}
	}

	// Step 1: recursively expand every inline function's own body first,
	// so an inline function that calls another inline function carries
	// that callee already expanded by the time anyone calls it.
	for name := range e.funcs {
		if err := e.ensureExpanded(name); err != nil {
			return nil, err
		}
	}

	// Steps 2+3: drop the original inline definitions, and rewrite every
	// remaining call site against the now fully self-expanded funcs map.
	out := make([]ast.Node, 0, len(program))
	for _, n := range program {
		if fn, ok := n.(*ast.FuncDef); ok && fn.Inline {
			continue
		}
		rewritten, err := e.rewrite(n)
		if err != nil {
			return nil, err
		}
		out = append(out, rewritten)
	}
	return out, nil
}

const (
	unvisited = 0
	visiting  = 1
	expanded  = 2
)

type expander struct {
	funcs map[string]*ast.FuncDef
	state map[string]int
}

// ensureExpanded rewrites fn.Body in place so it contains no more calls
// to inline functions, recursing into any inline callee first. A name
// seen while still `visiting` is a cycle in the inline call graph.
func (e *expander) ensureExpanded(name string) error {
	switch e.state[name] {
	case expanded:
		return nil
	case visiting:
		fn := e.funcs[name]
		return ezerr.New(ezerr.RecursionError, toEzerrPos(fn.Pos), "inline function `%s` recursively calls an inline function", name)
	}
	e.state[name] = visiting
	fn := e.funcs[name]
	body, err := e.rewrite(fn.Body)
	if err != nil {
		return err
	}
	fn.Body = body.(*ast.Block)
	e.state[name] = expanded
	return nil
}

// rewriteResult lets Visit* methods, which must return `any`, carry an
// error back through Accept without a panic/recover detour.
type rewriteResult struct {
	node ast.Node
	err  error
}

func ok(n ast.Node) any  { return rewriteResult{node: n} }
func fail(err error) any { return rewriteResult{err: err} }

// rewrite dispatches n through the ast.Visitor machinery, returning a
// structurally new node with every nested Call to a collected inline
// function replaced by its Expanded form.
func (e *expander) rewrite(n ast.Node) (ast.Node, error) {
	if n == nil {
		return nil, nil
	}
	res := n.Accept(e).(rewriteResult)
	return res.node, res.err
}

func toEzerrPos(p token.Position) ezerr.Position {
	return ezerr.Position{File: p.File, LineStart: p.LineStart, LineEnd: p.LineEnd, ColStart: p.ColStart, ColEnd: p.ColEnd}
}

func (e *expander) VisitNumberLiteral(n *ast.NumberLiteral) any { return ok(n) }
func (e *expander) VisitBoolLiteral(n *ast.BoolLiteral) any     { return ok(n) }
func (e *expander) VisitCharLiteral(n *ast.CharLiteral) any     { return ok(n) }
func (e *expander) VisitStringLiteral(n *ast.StringLiteral) any { return ok(n) }

func (e *expander) VisitArrayLiteral(n *ast.ArrayLiteral) any {
	elems := make([]ast.Node, len(n.Elements))
	for i, el := range n.Elements {
		rewritten, err := e.rewrite(el)
		if err != nil {
			return fail(err)
		}
		elems[i] = rewritten
	}
	return ok(&ast.ArrayLiteral{Elements: elems, Pos: n.Pos})
}

func (e *expander) VisitVarAccess(n *ast.VarAccess) any { return ok(n) }

func (e *expander) VisitVarDecl(n *ast.VarDecl) any {
	rhs, err := e.rewrite(n.RHS)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.VarDecl{Name: n.Name, Type: n.Type, RHS: rhs, Pos: n.Pos})
}

func (e *expander) VisitVarReassign(n *ast.VarReassign) any {
	rhs, err := e.rewrite(n.RHS)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.VarReassign{Name: n.Name, RHS: rhs, Pos: n.Pos})
}

func (e *expander) VisitBinary(n *ast.Binary) any {
	left, err := e.rewrite(n.Left)
	if err != nil {
		return fail(err)
	}
	right, err := e.rewrite(n.Right)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.Binary{Op: n.Op, Left: left, Right: right, Pos: n.Pos})
}

func (e *expander) VisitUnary(n *ast.Unary) any {
	operand, err := e.rewrite(n.Operand)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.Unary{Op: n.Op, Operand: operand, Pos: n.Pos})
}

func (e *expander) VisitConvert(n *ast.Convert) any {
	operand, err := e.rewrite(n.Operand)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.Convert{Operand: operand, Target: n.Target, Pos: n.Pos})
}

func (e *expander) VisitIf(n *ast.If) any {
	cond, err := e.rewrite(n.Cond)
	if err != nil {
		return fail(err)
	}
	then, err := e.rewrite(n.Then)
	if err != nil {
		return fail(err)
	}
	var els *ast.Block
	if n.Else != nil {
		rewritten, err := e.rewrite(n.Else)
		if err != nil {
			return fail(err)
		}
		els = rewritten.(*ast.Block)
	}
	return ok(&ast.If{Cond: cond, Then: then.(*ast.Block), Else: els, Pos: n.Pos})
}

func (e *expander) VisitTernary(n *ast.Ternary) any {
	cond, err := e.rewrite(n.Cond)
	if err != nil {
		return fail(err)
	}
	then, err := e.rewrite(n.Then)
	if err != nil {
		return fail(err)
	}
	els, err := e.rewrite(n.Else)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.Ternary{Cond: cond, Then: then, Else: els, Pos: n.Pos})
}

func (e *expander) VisitWhile(n *ast.While) any {
	cond, err := e.rewrite(n.Cond)
	if err != nil {
		return fail(err)
	}
	body, err := e.rewrite(n.Body)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.While{Cond: cond, Body: body.(*ast.Block), Pos: n.Pos})
}

func (e *expander) VisitFor(n *ast.For) any {
	init, err := e.rewrite(n.Init)
	if err != nil {
		return fail(err)
	}
	cond, err := e.rewrite(n.Cond)
	if err != nil {
		return fail(err)
	}
	step, err := e.rewrite(n.Step)
	if err != nil {
		return fail(err)
	}
	body, err := e.rewrite(n.Body)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.For{Init: init, Cond: cond, Step: step, Body: body.(*ast.Block), Pos: n.Pos})
}

func (e *expander) VisitBlock(n *ast.Block) any {
	stmts := make([]ast.Node, len(n.Statements))
	for i, s := range n.Statements {
		rewritten, err := e.rewrite(s)
		if err != nil {
			return fail(err)
		}
		stmts[i] = rewritten
	}
	return ok(&ast.Block{Statements: stmts, Pos: n.Pos})
}

// VisitFuncDef is only ever invoked on a non-inline function during the
// final program traversal: inline definitions are filtered out of the
// program before rewrite() is called on anything, and ensureExpanded
// rewrites an inline function's own Body directly rather than through
// a VisitFuncDef call.
func (e *expander) VisitFuncDef(n *ast.FuncDef) any {
	body, err := e.rewrite(n.Body)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.FuncDef{Name: n.Name, Params: n.Params, Result: n.Result, Body: body.(*ast.Block), Inline: n.Inline, Pos: n.Pos})
}

func (e *expander) VisitCall(n *ast.Call) any {
	args := make([]ast.Node, len(n.Args))
	for i, a := range n.Args {
		rewritten, err := e.rewrite(a)
		if err != nil {
			return fail(err)
		}
		args[i] = rewritten
	}

	fn, isInline := e.funcs[n.Name]
	if !isInline {
		return ok(&ast.Call{Name: n.Name, Args: args, Pos: n.Pos})
	}
	if err := e.ensureExpanded(n.Name); err != nil {
		return fail(err)
	}
	if len(args) != len(fn.Params) {
		return fail(ezerr.New(ezerr.TypeError, toEzerrPos(n.Pos), "inline function `%s` expects %d argument(s), got %d", n.Name, len(fn.Params), len(args)))
	}

	statements := make([]ast.Node, 0, len(fn.Params)+len(fn.Body.Statements))
	for i, param := range fn.Params {
		statements = append(statements, &ast.VarDecl{Name: param.Name, Type: param.Type, RHS: args[i], Pos: n.Pos})
	}
	statements = append(statements, fn.Body.Statements...)
	return ok(&ast.Expanded{Statements: statements, ReturnType: fn.Result, Pos: n.Pos})
}

func (e *expander) VisitReturn(n *ast.Return) any {
	if n.Value == nil {
		return ok(n)
	}
	val, err := e.rewrite(n.Value)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.Return{Value: val, Pos: n.Pos})
}

func (e *expander) VisitPrint(n *ast.Print) any {
	values, err := e.rewriteAll(n.Values)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.Print{Values: values, Pos: n.Pos})
}

func (e *expander) VisitAscii(n *ast.Ascii) any {
	values, err := e.rewriteAll(n.Values)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.Ascii{Values: values, Pos: n.Pos})
}

func (e *expander) VisitInput(n *ast.Input) any { return ok(n) }

func (e *expander) VisitRefExpr(n *ast.RefExpr) any {
	operand, err := e.rewrite(n.Operand)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.RefExpr{Operand: operand, Pos: n.Pos})
}

func (e *expander) VisitDerefExpr(n *ast.DerefExpr) any {
	operand, err := e.rewrite(n.Operand)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.DerefExpr{Operand: operand, Pos: n.Pos})
}

func (e *expander) VisitIndex(n *ast.Index) any {
	arr, err := e.rewrite(n.Array)
	if err != nil {
		return fail(err)
	}
	idx, err := e.rewrite(n.Idx)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.Index{Array: arr, Idx: idx, Pos: n.Pos})
}

func (e *expander) VisitIndexAssign(n *ast.IndexAssign) any {
	arr, err := e.rewrite(n.Array)
	if err != nil {
		return fail(err)
	}
	idx, err := e.rewrite(n.Idx)
	if err != nil {
		return fail(err)
	}
	rhs, err := e.rewrite(n.RHS)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.IndexAssign{Array: arr, Idx: idx, RHS: rhs, Pos: n.Pos})
}

func (e *expander) VisitDerefAssign(n *ast.DerefAssign) any {
	ptr, err := e.rewrite(n.Pointer)
	if err != nil {
		return fail(err)
	}
	rhs, err := e.rewrite(n.RHS)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.DerefAssign{Pointer: ptr, RHS: rhs, Pos: n.Pos})
}

func (e *expander) VisitStructDef(n *ast.StructDef) any { return ok(n) }

func (e *expander) VisitStructConstructor(n *ast.StructConstructor) any {
	fieldVals := make(map[string]ast.Node, len(n.FieldVals))
	for _, name := range n.FieldOrder {
		rewritten, err := e.rewrite(n.FieldVals[name])
		if err != nil {
			return fail(err)
		}
		fieldVals[name] = rewritten
	}
	return ok(&ast.StructConstructor{StructName: n.StructName, FieldVals: fieldVals, FieldOrder: n.FieldOrder, Pos: n.Pos})
}

func (e *expander) VisitAttrAccess(n *ast.AttrAccess) any {
	base, err := e.rewrite(n.Base)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.AttrAccess{Base: base, Field: n.Field, Pos: n.Pos})
}

func (e *expander) VisitStaticVar(n *ast.StaticVar) any {
	rhs, err := e.rewrite(n.RHS)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.StaticVar{Name: n.Name, Type: n.Type, RHS: rhs, Pos: n.Pos})
}

// VisitExpanded only runs if Expand is applied twice in a row (spec.md
// §8's inline-idempotence property): its Statements are rewritten like
// any other statement list, but since a prior Expand already replaced
// every inline call, this is normally a no-op copy.
func (e *expander) VisitExpanded(n *ast.Expanded) any {
	stmts, err := e.rewriteAll(n.Statements)
	if err != nil {
		return fail(err)
	}
	return ok(&ast.Expanded{Statements: stmts, ReturnType: n.ReturnType, Pos: n.Pos})
}

func (e *expander) rewriteAll(nodes []ast.Node) ([]ast.Node, error) {
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		rewritten, err := e.rewrite(n)
		if err != nil {
			return nil, err
		}
		out[i] = rewritten
	}
	return out, nil
}
