// Package codegen lowers an AST (after inline expansion) to the ir
// package's three-address instruction stream, performing type checking
// and memory-offset assignment as it goes. This is the heaviest of the
// CORE passes: a single traversal threading the memory plan, the
// variable environment, the static-variable table, and the
// Expanded-block return-destination stack through every node.
//
// Grounded on the upstream language's ir_code.rs `CodeGenerator`; the
// representative per-node contracts in spec §4.5 are implemented as
// eval (expression-valued nodes, returning a value.Value) and exec
// (statement-valued nodes, returning only an error).
package codegen

import (
	"fmt"

	"ezc/ast"
	"ezc/ezerr"
	"ezc/ir"
	"ezc/memory"
	"ezc/scope"
	"ezc/token"
	"ezc/types"
	"ezc/value"
)

// Stack is a small generic LIFO, used for the Expanded-block return
// destination stack (`ret` in spec §4.5). Adapted from the teacher's
// vm.Stack, generalized with Go 1.22 generics instead of a slice of any.
type Stack[T any] struct {
	items []T
}

func (s *Stack[T]) Push(v T) { s.items = append(s.items, v) }

func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, true
}

func (s *Stack[T]) Peek() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Stack[T]) IsEmpty() bool { return len(s.items) == 0 }

type destination struct {
	offset int
	size   int
}

// Generator carries all codegen state across one Generate call.
type Generator struct {
	plan *memory.Plan
	env  *scope.Environment

	statics map[string]value.Value
	ret     Stack[destination]

	instructions []ir.Instruction

	structs map[string]types.Type
	funcs   map[string]*ast.FuncDef

	high int // high-water mark across all blocks, since Restore lowers the cursor
}

// allocate reserves n bytes in the memory plan and tracks the all-time
// high-water mark, which Restore (used at every block exit) would
// otherwise erase.
func (g *Generator) allocate(n int) int {
	offset := g.plan.Allocate(n)
	if c := g.plan.Cursor(); c > g.high {
		g.high = c
	}
	return offset
}

// New constructs a Generator. structs and funcs are the declared struct
// and (non-inline) function tables collected during an earlier pass over
// the top-level declarations.
func New(structs map[string]types.Type, funcs map[string]*ast.FuncDef) *Generator {
	return &Generator{
		plan:    &memory.Plan{},
		env:     scope.NewEnvironment(nil),
		statics: make(map[string]value.Value),
		structs: structs,
		funcs:   funcs,
	}
}

// Generate lowers a whole program (top-level statement list, after
// inlining) into an ir.Program. Static variable declarations are lowered
// first, in declaration order, before the main walk — this matches the
// upstream generator's "statics.into_iter().map(make_static)" pass. Every
// non-inline ast.FuncDef reachable from the program is then compiled
// separately into its own Function entry, since a Call instruction only
// carries a callee name and needs somewhere to find that body; inline
// functions never reach this stage; the inline pass has already replaced
// their call sites with Expanded blocks (§4.4).
func (g *Generator) Generate(program []ast.Node) (*ir.Program, error) {
	var statics []*ast.StaticVar
	collectStatics(program, &statics)
	for _, sv := range statics {
		if err := g.makeStatic(sv); err != nil {
			return nil, err
		}
	}

	for _, n := range program {
		if _, ok := n.(*ast.StaticVar); ok {
			continue
		}
		if err := g.exec(n); err != nil {
			return nil, err
		}
	}

	out := &ir.Program{Instructions: g.instructions, MemoryHigh: g.high, Functions: make(map[string]*ir.Function)}
	for name, fn := range g.funcs {
		if fn.Inline {
			continue
		}
		compiled, err := g.generateFunction(fn)
		if err != nil {
			return nil, err
		}
		out.Functions[name] = compiled
	}
	return out, nil
}

// generateFunction compiles one non-inline function body on its own
// Generator, sharing the struct/function tables but starting from an
// empty memory plan and environment with each parameter bound to the
// first len(Params) allocated slots, in declaration order.
func (g *Generator) generateFunction(fn *ast.FuncDef) (*ir.Function, error) {
	sub := New(g.structs, g.funcs)
	sub.statics = g.statics // statics are lowered once, up front, and shared by every function body
	params := make([]value.Value, len(fn.Params))
	for i, p := range fn.Params {
		offset := sub.allocate(p.Type.Size())
		v := value.MakeIndex(offset, p.Type)
		sub.env.Bind(p.Name, v)
		params[i] = v
	}
	sub.ret.Push(destination{offset: sub.allocate(fn.Result.Size()), size: fn.Result.Size()})
	if err := sub.exec(fn.Body); err != nil {
		return nil, err
	}
	return &ir.Function{Params: params, Instructions: sub.instructions, MemoryHigh: sub.high}, nil
}

// collectStatics finds every ast.StaticVar anywhere in the program,
// including inside function and control-flow bodies, since a static
// declared inside a function is still lowered exactly once up front.
func collectStatics(nodes []ast.Node, out *[]*ast.StaticVar) {
	for _, n := range nodes {
		switch node := n.(type) {
		case *ast.StaticVar:
			*out = append(*out, node)
		case *ast.FuncDef:
			collectStatics(node.Body.Statements, out)
		case *ast.Block:
			collectStatics(node.Statements, out)
		case *ast.If:
			collectStatics(node.Then.Statements, out)
			if node.Else != nil {
				collectStatics(node.Else.Statements, out)
			}
		case *ast.While:
			collectStatics(node.Body.Statements, out)
		case *ast.For:
			collectStatics(node.Body.Statements, out)
		case *ast.Expanded:
			collectStatics(node.Statements, out)
		}
	}
}

func (g *Generator) makeStatic(sv *ast.StaticVar) error {
	v, err := g.eval(sv.RHS)
	if err != nil {
		return err
	}
	offset := g.allocate(sv.Type.Size())
	g.emit(ir.Copy, destination{offset, sv.Type.Size()}, v, value.Value{}, value.Value{})
	g.statics[sv.Name] = value.MakeIndex(offset, sv.Type)
	return nil
}

func (g *Generator) emit(op ir.Op, dst destination, a, b, c value.Value) {
	g.instructions = append(g.instructions, ir.Instruction{
		Op: op,
		Dst: ir.Destination{
			HasDest: dst.size > 0 || op == ir.If || op == ir.While,
			Offset:  dst.offset,
			Size:    dst.size,
			Cursor:  g.plan.Cursor(),
		},
		A: a, B: b, C: c,
	})
}

func (g *Generator) emitNoDest(op ir.Op, a, b, c value.Value) {
	g.instructions = append(g.instructions, ir.Instruction{
		Op:  op,
		Dst: ir.Destination{Cursor: g.plan.Cursor()},
		A:   a, B: b, C: c,
	})
}

func errTypef(pos token.Position, format string, args ...any) error {
	return ezerr.New(ezerr.TypeError, toEzerrPos(pos), format, args...)
}

func toEzerrPos(p token.Position) ezerr.Position {
	return ezerr.Position{File: p.File, LineStart: p.LineStart, LineEnd: p.LineEnd, ColStart: p.ColStart, ColEnd: p.ColEnd}
}

// --- expression evaluation ---

func (g *Generator) eval(n ast.Node) (value.Value, error) {
	switch node := n.(type) {
	case *ast.NumberLiteral:
		return value.MakeNum(node.Value), nil
	case *ast.BoolLiteral:
		return value.MakeBool(node.Value), nil
	case *ast.CharLiteral:
		return value.MakeChar(node.Value), nil
	case *ast.StringLiteral:
		return g.evalString(node)
	case *ast.ArrayLiteral:
		return g.evalArrayLiteral(node)
	case *ast.VarAccess:
		v, ok := g.env.Get(node.Name)
		if !ok {
			return value.Value{}, ezerr.New(ezerr.UndefinedVariable, toEzerrPos(node.Pos), "undefined variable `%s`", node.Name)
		}
		return v, nil
	case *ast.Binary:
		return g.evalBinary(node)
	case *ast.Unary:
		return g.evalUnary(node)
	case *ast.Convert:
		return g.evalConvert(node)
	case *ast.Ternary:
		return g.evalTernary(node)
	case *ast.RefExpr:
		return g.evalRef(node)
	case *ast.DerefExpr:
		return g.evalDeref(node)
	case *ast.Index:
		return g.evalIndex(node)
	case *ast.AttrAccess:
		return g.evalAttrAccess(node)
	case *ast.StructConstructor:
		return g.evalStructConstructor(node)
	case *ast.Call:
		return g.evalCall(node)
	case *ast.Input:
		offset := g.allocate(types.Num().Size())
		g.emit(ir.Input, destination{offset, types.Num().Size()}, value.Value{}, value.Value{}, value.Value{})
		return value.MakeIndex(offset, types.Num()), nil
	case *ast.Expanded:
		return g.evalExpanded(node)
	default:
		return value.Value{}, fmt.Errorf("codegen: node %T has no expression value", n)
	}
}

func (g *Generator) evalBinary(n *ast.Binary) (value.Value, error) {
	left, err := g.eval(n.Left)
	if err != nil {
		return value.Value{}, err
	}
	right, err := g.eval(n.Right)
	if err != nil {
		return value.Value{}, err
	}

	op := n.Op
	// >= and > are desugared at emission time: >= as Lt+LNot, > as Le+LNot.
	if op == token.GE || op == token.GT {
		inner := token.LT
		if op == token.GT {
			inner = token.LE
		}
		cmp, ok := types.BinaryResult(string(inner), left.TypeOf(), right.TypeOf())
		if !ok {
			return value.Value{}, errTypef(n.Pos, "cannot %s %s to %s", op.OperationName(), left.TypeOf(), right.TypeOf())
		}
		tmp := g.allocate(cmp.Size())
		cmpOp := ir.Lt
		if op == token.GT {
			cmpOp = ir.Le
		}
		g.emit(cmpOp, destination{tmp, cmp.Size()}, left, right, value.Value{})
		final := g.allocate(cmp.Size())
		g.emit(ir.LNot, destination{final, cmp.Size()}, value.MakeIndex(tmp, cmp), value.Value{}, value.Value{})
		return value.MakeIndex(final, cmp), nil
	}

	result, ok := types.BinaryResult(string(op), left.TypeOf(), right.TypeOf())
	if !ok {
		return value.Value{}, errTypef(n.Pos, "cannot %s %s to %s", op.OperationName(), left.TypeOf(), right.TypeOf())
	}
	instOp, ok := binaryOp[op]
	if !ok {
		return value.Value{}, errTypef(n.Pos, "unsupported binary operator %s", op)
	}
	offset := g.allocate(result.Size())
	g.emit(instOp, destination{offset, result.Size()}, left, right, value.Value{})
	return value.MakeIndex(offset, result), nil
}

var binaryOp = map[token.TokenType]ir.Op{
	token.ADD: ir.Add, token.SUB: ir.Sub, token.MUL: ir.Mul, token.DIV: ir.Div,
	token.MOD: ir.Mod, token.POW: ir.Pow, token.SHL: ir.Shl, token.SHR: ir.Shr,
	token.BAND: ir.BAnd, token.BOR: ir.BOr, token.BXOR: ir.BXor,
	token.EQ: ir.Eq, token.NEQ: ir.Neq, token.LT: ir.Lt, token.LE: ir.Le,
	token.LAND: ir.LAnd, token.LOR: ir.LOr, token.LXOR: ir.LXor,
}

func (g *Generator) evalUnary(n *ast.Unary) (value.Value, error) {
	if n.Op == token.BAND {
		return g.evalRef(&ast.RefExpr{Operand: n.Operand, Pos: n.Pos})
	}
	if n.Op == token.MUL {
		return g.evalDeref(&ast.DerefExpr{Operand: n.Operand, Pos: n.Pos})
	}

	operand, err := g.eval(n.Operand)
	if err != nil {
		return value.Value{}, err
	}
	result, ok := types.UnaryResult(string(n.Op), operand.TypeOf())
	if !ok {
		return value.Value{}, errTypef(n.Pos, "cannot %s %s", n.Op.OperationName(), operand.TypeOf())
	}
	instOp, ok := unaryOp[n.Op]
	if !ok {
		return value.Value{}, errTypef(n.Pos, "unsupported unary operator %s", n.Op)
	}
	offset := g.allocate(result.Size())
	g.emit(instOp, destination{offset, result.Size()}, operand, value.Value{}, value.Value{})
	return value.MakeIndex(offset, result), nil
}

var unaryOp = map[token.TokenType]ir.Op{
	token.SUB: ir.Neg, token.BNOT: ir.BNot, token.LNOT: ir.LNot,
	token.INC: ir.Inc, token.DEC: ir.Dec,
}

func (g *Generator) evalConvert(n *ast.Convert) (value.Value, error) {
	v, err := g.eval(n.Operand)
	if err != nil {
		return value.Value{}, err
	}
	if !types.CanConvert(v.TypeOf(), n.Target) {
		return value.Value{}, errTypef(n.Pos, "cannot convert %s to %s", v.TypeOf(), n.Target)
	}
	if v.IsLiteral() {
		return value.Converted(v, n.Target), nil
	}
	// runtime values are reinterpreted in place: no instruction emitted.
	switch v.Tag {
	case value.Index:
		return value.MakeIndex(v.Offset, n.Target), nil
	case value.Ref:
		return value.MakeRef(v.Offset, n.Target), nil
	case value.Pointer:
		return value.MakePointer(v.Offset, n.Target), nil
	default:
		return v, nil
	}
}

func (g *Generator) evalTernary(n *ast.Ternary) (value.Value, error) {
	cond, err := g.eval(n.Cond)
	if err != nil {
		return value.Value{}, err
	}
	if cond.TypeOf().Tag != types.Boolean {
		return value.Value{}, errTypef(n.Pos, "ternary condition must be bool, got %s", cond.TypeOf())
	}
	thenVal, err := g.eval(n.Then)
	if err != nil {
		return value.Value{}, err
	}
	elseVal, err := g.eval(n.Else)
	if err != nil {
		return value.Value{}, err
	}
	if !thenVal.TypeOf().Equal(elseVal.TypeOf()) {
		return value.Value{}, errTypef(n.Pos, "ternary branches have mismatched types %s and %s", thenVal.TypeOf(), elseVal.TypeOf())
	}
	result := thenVal.TypeOf()
	offset := g.allocate(result.Size())
	g.emit(ir.TernaryIf, destination{offset, result.Size()}, cond, thenVal, elseVal)
	return value.MakeIndex(offset, result), nil
}

func (g *Generator) evalRef(n *ast.RefExpr) (value.Value, error) {
	v, err := g.eval(n.Operand)
	if err != nil {
		return value.Value{}, err
	}
	if v.Tag != value.Index && v.Tag != value.Ref && v.Tag != value.Pointer {
		return value.Value{}, errTypef(n.Pos, "cannot take the address of a literal")
	}
	return value.MakeRef(v.Offset, v.TypeOf()), nil
}

func (g *Generator) evalDeref(n *ast.DerefExpr) (value.Value, error) {
	operand, err := g.eval(n.Operand)
	if err != nil {
		return value.Value{}, err
	}
	switch operand.TypeOf().Tag {
	case types.Pointer:
		pointee := *operand.TypeOf().Elem
		offset := g.allocate(pointee.Size())
		g.emit(ir.Deref, destination{offset, pointee.Size()}, operand, value.Value{}, value.Value{})
		return value.MakeIndex(offset, pointee), nil
	case types.Ref:
		pointee := *operand.TypeOf().Elem
		offset := g.allocate(pointee.Size())
		g.emit(ir.DerefRef, destination{offset, pointee.Size()}, operand, value.Value{}, value.Value{})
		return value.MakeIndex(offset, pointee), nil
	default:
		return value.Value{}, errTypef(n.Pos, "cannot dereference a value of type %s", operand.TypeOf())
	}
}

// evalIndex implements `arr[idx]`: arr+idx is materialized into a
// pointer slot, then dereferenced. Index must be Number.
func (g *Generator) evalIndex(n *ast.Index) (value.Value, error) {
	arr, err := g.eval(n.Array)
	if err != nil {
		return value.Value{}, err
	}
	idx, err := g.eval(n.Idx)
	if err != nil {
		return value.Value{}, err
	}
	if idx.TypeOf().Tag != types.Number {
		return value.Value{}, errTypef(n.Pos, "array index must be int, got %s", idx.TypeOf())
	}
	elem, err := g.elemType(arr.TypeOf(), n.Pos)
	if err != nil {
		return value.Value{}, err
	}
	ptrOffset := g.allocate(types.PointerSize)
	g.emit(ir.Add, destination{ptrOffset, types.PointerSize}, arr, idx, value.Value{})
	ptr := value.MakePointer(ptrOffset, elem)
	valOffset := g.allocate(elem.Size())
	g.emit(ir.Deref, destination{valOffset, elem.Size()}, ptr, value.Value{}, value.Value{})
	return value.MakeIndex(valOffset, elem), nil
}

func (g *Generator) elemType(t types.Type, pos token.Position) (types.Type, error) {
	switch t.Tag {
	case types.Array, types.Pointer:
		return *t.Elem, nil
	default:
		return types.Type{}, errTypef(pos, "cannot index a value of type %s", t)
	}
}

func (g *Generator) evalAttrAccess(n *ast.AttrAccess) (value.Value, error) {
	base, err := g.eval(n.Base)
	if err != nil {
		return value.Value{}, err
	}
	baseType := base.TypeOf()
	if baseType.Tag != types.Struct {
		return value.Value{}, errTypef(n.Pos, "cannot access field `%s` of non-struct type %s", n.Field, baseType)
	}
	fieldOffset, fieldType, ok := baseType.FieldOffset(n.Field)
	if !ok {
		return value.Value{}, errTypef(n.Pos, "struct %s has no field `%s`", baseType.StructName, n.Field)
	}
	// pure offset arithmetic, no instruction emitted, mirroring Ref/Pointer
	// conversions.
	switch base.Tag {
	case value.Index:
		return value.MakeIndex(base.Offset+fieldOffset, fieldType), nil
	case value.Ref:
		return value.MakeRef(base.Offset+fieldOffset, fieldType), nil
	case value.Pointer:
		return value.MakePointer(base.Offset+fieldOffset, fieldType), nil
	default:
		return value.Value{}, errTypef(n.Pos, "cannot access a field of a literal value")
	}
}

func (g *Generator) evalStructConstructor(n *ast.StructConstructor) (value.Value, error) {
	st, ok := g.structs[n.StructName]
	if !ok {
		return value.Value{}, ezerr.New(ezerr.UndefinedStruct, toEzerrPos(n.Pos), "undefined struct `%s`", n.StructName)
	}
	base := g.allocate(st.Size())
	for _, field := range st.Fields {
		rhsNode, ok := n.FieldVals[field.Name]
		if !ok {
			return value.Value{}, errTypef(n.Pos, "missing field `%s` in construction of %s", field.Name, n.StructName)
		}
		v, err := g.eval(rhsNode)
		if err != nil {
			return value.Value{}, err
		}
		if !v.TypeOf().Equal(field.Type) {
			return value.Value{}, errTypef(n.Pos, "field `%s` expects %s, got %s", field.Name, field.Type, v.TypeOf())
		}
		off, _, _ := st.FieldOffset(field.Name)
		g.emit(ir.Copy, destination{base + off, field.Type.Size()}, v, value.Value{}, value.Value{})
	}
	return value.MakeIndex(base, st), nil
}

func (g *Generator) evalString(n *ast.StringLiteral) (value.Value, error) {
	base := g.allocate(len(n.Value) + 1)
	for i, c := range []byte(n.Value) {
		g.emit(ir.Copy, destination{base + i, 1}, value.MakeChar(c), value.Value{}, value.Value{})
	}
	g.emit(ir.Copy, destination{base + len(n.Value), 1}, value.MakeChar(0), value.Value{}, value.Value{})
	return value.MakePointer(base, types.Ch()), nil
}

// evalArrayLiteral has no declared element type to work from (the parser
// cannot infer one without a type-checking pass of its own), so unlike
// the spec's "allocate N*size(T) then copy" ordering, it evaluates the
// first element to learn T, validates the rest against it, and only then
// allocates the contiguous block.
func (g *Generator) evalArrayLiteral(n *ast.ArrayLiteral) (value.Value, error) {
	if len(n.Elements) == 0 {
		return value.Value{}, errTypef(n.Pos, "cannot infer the element type of an empty array literal")
	}
	values := make([]value.Value, len(n.Elements))
	first, err := g.eval(n.Elements[0])
	if err != nil {
		return value.Value{}, err
	}
	elemType := first.TypeOf()
	values[0] = first
	for i := 1; i < len(n.Elements); i++ {
		v, err := g.eval(n.Elements[i])
		if err != nil {
			return value.Value{}, err
		}
		if !v.TypeOf().Equal(elemType) {
			return value.Value{}, errTypef(n.Pos, "array element %d expects %s, got %s", i, elemType, v.TypeOf())
		}
		values[i] = v
	}
	elemSize := elemType.Size()
	base := g.allocate(len(values) * elemSize)
	for i, v := range values {
		g.emit(ir.Copy, destination{base + i*elemSize, elemSize}, v, value.Value{}, value.Value{})
	}
	return value.MakePointer(base, elemType), nil
}

func (g *Generator) evalCall(n *ast.Call) (value.Value, error) {
	fn, ok := g.funcs[n.Name]
	if !ok {
		return value.Value{}, ezerr.New(ezerr.UndefinedFunction, toEzerrPos(n.Pos), "undefined function `%s`", n.Name)
	}
	if len(n.Args) != len(fn.Params) {
		return value.Value{}, errTypef(n.Pos, "function `%s` expects %d arguments, got %d", n.Name, len(fn.Params), len(n.Args))
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := g.eval(a)
		if err != nil {
			return value.Value{}, err
		}
		if !v.TypeOf().Equal(fn.Params[i].Type) {
			return value.Value{}, errTypef(n.Pos, "argument %d of `%s` expects %s, got %s", i, n.Name, fn.Params[i].Type, v.TypeOf())
		}
		args[i] = v
	}
	offset := g.allocate(fn.Result.Size())
	g.instructions = append(g.instructions, ir.Instruction{
		Op:       ir.Call,
		Dst:      ir.Destination{HasDest: fn.Result.Size() > 0, Offset: offset, Size: fn.Result.Size(), Cursor: g.plan.Cursor()},
		FuncName: n.Name,
		Args:     args,
	})
	return value.MakeIndex(offset, fn.Result), nil
}

// evalExpanded lowers an inlined call: allocate the return slot, push it
// on the ret stack, evaluate the block's statements in a fresh
// environment seeded from the current one, pop ret. The block's value is
// the return slot.
func (g *Generator) evalExpanded(n *ast.Expanded) (value.Value, error) {
	offset := g.allocate(n.ReturnType.Size())
	g.ret.Push(destination{offset, n.ReturnType.Size()})

	parent := g.env
	g.env = scope.NewEnvironment(parent)
	for _, stmt := range n.Statements {
		if err := g.exec(stmt); err != nil {
			g.env = parent
			g.ret.Pop()
			return value.Value{}, err
		}
	}
	g.env = parent
	g.ret.Pop()
	return value.MakeIndex(offset, n.ReturnType), nil
}

// --- statement execution ---

func (g *Generator) exec(n ast.Node) error {
	switch node := n.(type) {
	case *ast.VarDecl:
		return g.execVarDecl(node)
	case *ast.VarReassign:
		return g.execVarReassign(node)
	case *ast.Block:
		return g.execBlock(node)
	case *ast.If:
		return g.execIf(node)
	case *ast.While:
		return g.execWhile(node)
	case *ast.For:
		return g.execFor(node)
	case *ast.Return:
		return g.execReturn(node)
	case *ast.Print:
		return g.execIO(ir.Print, node.Values)
	case *ast.Ascii:
		return g.execIO(ir.Ascii, node.Values)
	case *ast.IndexAssign:
		return g.execIndexAssign(node)
	case *ast.DerefAssign:
		return g.execDerefAssign(node)
	case *ast.StaticVar:
		v, ok := g.statics[node.Name]
		if !ok {
			return ezerr.New(ezerr.UndefinedVariable, toEzerrPos(node.Pos), "undefined static `%s`", node.Name)
		}
		g.env.Bind(node.Name, v)
		return nil
	case *ast.FuncDef, *ast.StructDef:
		// declarations themselves emit nothing; their signatures were
		// already collected before codegen ran.
		return nil
	default:
		// any node valid as an expression but encountered in statement
		// position (e.g. a bare call for side effects) must yield None.
		v, err := g.eval(n)
		if err != nil {
			return err
		}
		if v.TypeOf().Tag != types.None {
			return errTypef(n.Position(), "statement must yield none, got %s", v.TypeOf())
		}
		return nil
	}
}

func (g *Generator) execVarDecl(n *ast.VarDecl) error {
	before := g.plan.Cursor()
	rhs, err := g.eval(n.RHS)
	if err != nil {
		return err
	}
	if !rhs.TypeOf().Equal(n.Type) {
		return errTypef(n.Pos, "variable `%s` declared as %s, initializer is %s", n.Name, n.Type, rhs.TypeOf())
	}
	if n.Type.Tag == types.Ref {
		g.env.Bind(n.Name, rhs)
		return nil
	}
	// an initializer whose result was just written to a fresh slot becomes
	// the variable's storage directly; anything else is copied.
	if rhs.Tag == value.Index && rhs.Offset >= before {
		g.env.Bind(n.Name, rhs)
		return nil
	}
	offset := g.allocate(n.Type.Size())
	g.emit(ir.Copy, destination{offset, n.Type.Size()}, rhs, value.Value{}, value.Value{})
	g.env.Bind(n.Name, value.MakeIndex(offset, n.Type))
	return nil
}

func (g *Generator) execVarReassign(n *ast.VarReassign) error {
	existing, ok := g.env.Get(n.Name)
	if !ok {
		return ezerr.New(ezerr.UndefinedVariable, toEzerrPos(n.Pos), "undefined variable `%s`", n.Name)
	}
	rhs, err := g.eval(n.RHS)
	if err != nil {
		return err
	}
	if !rhs.TypeOf().Equal(existing.TypeOf()) {
		return errTypef(n.Pos, "cannot assign %s to variable `%s` of type %s", rhs.TypeOf(), n.Name, existing.TypeOf())
	}
	g.emit(ir.Copy, destination{existing.Offset, existing.TypeOf().Size()}, rhs, value.Value{}, value.Value{})
	return nil
}

// execBlock enters a fresh environment and snapshots the memory plan; the
// environment is discarded and the snapshot restored on exit. The parent's cursor is restored to what it was on
// entry (spec §4.5's "memory cursor clone is local to that block").
func (g *Generator) execBlock(n *ast.Block) error {
	parentEnv := g.env
	g.env = scope.NewEnvironment(parentEnv)
	snapshot := g.plan.Snapshot()

	for _, stmt := range n.Statements {
		if err := g.exec(stmt); err != nil {
			g.env = parentEnv
			return err
		}
	}

	g.env = parentEnv
	g.plan.Restore(snapshot)
	return nil
}

func (g *Generator) execIf(n *ast.If) error {
	cond, err := g.eval(n.Cond)
	if err != nil {
		return err
	}
	if cond.TypeOf().Tag != types.Boolean {
		return errTypef(n.Pos, "if condition must be bool, got %s", cond.TypeOf())
	}
	markerOffset := g.allocate(2)
	hasElse := n.Else != nil
	g.instructions = append(g.instructions, ir.Instruction{
		Op:      ir.If,
		Dst:     ir.Destination{HasDest: true, Offset: markerOffset, Size: 2, Cursor: g.plan.Cursor()},
		A:       cond,
		HasElse: hasElse,
	})
	if err := g.execBlock(n.Then); err != nil {
		return err
	}
	if hasElse {
		g.instructions = append(g.instructions, ir.Instruction{
			Op:  ir.Else,
			Dst: ir.Destination{HasDest: true, Offset: markerOffset, Size: 2, Cursor: g.plan.Cursor()},
		})
		if err := g.execBlock(n.Else); err != nil {
			return err
		}
	}
	g.instructions = append(g.instructions, ir.Instruction{
		Op:      ir.EndIf,
		Dst:     ir.Destination{HasDest: true, Offset: markerOffset, Size: 2, Cursor: g.plan.Cursor()},
		HasElse: hasElse,
	})
	return nil
}

// execWhile evaluates cond once up front, materializing it into storage
// when it started out as a literal so later re-evaluations can overwrite
// the same slot, per spec §4.5.
func (g *Generator) execWhile(n *ast.While) error {
	cond, err := g.eval(n.Cond)
	if err != nil {
		return err
	}
	if cond.TypeOf().Tag != types.Boolean {
		return errTypef(n.Pos, "while condition must be bool, got %s", cond.TypeOf())
	}
	materialized := cond
	wasLiteral := cond.IsLiteral()
	if wasLiteral {
		offset := g.allocate(types.Bool().Size())
		g.emit(ir.Copy, destination{offset, types.Bool().Size()}, cond, value.Value{}, value.Value{})
		materialized = value.MakeIndex(offset, types.Bool())
	}

	g.emitNoDest(ir.While, materialized, value.Value{}, value.Value{})
	if err := g.execBlock(n.Body); err != nil {
		return err
	}

	if !wasLiteral {
		recomputed, err := g.eval(n.Cond)
		if err != nil {
			return err
		}
		g.emit(ir.Copy, destination{materialized.Offset, materialized.TypeOf().Size()}, recomputed, value.Value{}, value.Value{})
	}
	g.emitNoDest(ir.EndWhile, materialized, value.Value{}, value.Value{})
	return nil
}

// execFor desugars to init; While(cond) { body; step; recompute-cond }
// EndWhile(cond), per spec §4.5.
func (g *Generator) execFor(n *ast.For) error {
	parentEnv := g.env
	g.env = scope.NewEnvironment(parentEnv)
	snapshot := g.plan.Snapshot()
	defer func() {
		g.env = parentEnv
		g.plan.Restore(snapshot)
	}()

	if err := g.exec(n.Init); err != nil {
		return err
	}
	cond, err := g.eval(n.Cond)
	if err != nil {
		return err
	}
	if cond.TypeOf().Tag != types.Boolean {
		return errTypef(n.Pos, "for condition must be bool, got %s", cond.TypeOf())
	}
	condOffset := g.allocate(types.Bool().Size())
	g.emit(ir.Copy, destination{condOffset, types.Bool().Size()}, cond, value.Value{}, value.Value{})
	condVal := value.MakeIndex(condOffset, types.Bool())

	g.emitNoDest(ir.While, condVal, value.Value{}, value.Value{})
	if err := g.execBlock(n.Body); err != nil {
		return err
	}
	if err := g.exec(n.Step); err != nil {
		return err
	}
	recomputed, err := g.eval(n.Cond)
	if err != nil {
		return err
	}
	g.emit(ir.Copy, destination{condOffset, types.Bool().Size()}, recomputed, value.Value{}, value.Value{})
	g.emitNoDest(ir.EndWhile, condVal, value.Value{}, value.Value{})
	return nil
}

func (g *Generator) execReturn(n *ast.Return) error {
	dst, ok := g.ret.Peek()
	if !ok {
		return ezerr.New(ezerr.InvalidReturn, toEzerrPos(n.Pos), "`return` outside of any enclosing call")
	}
	if n.Value == nil {
		return nil
	}
	v, err := g.eval(n.Value)
	if err != nil {
		return err
	}
	g.emit(ir.Copy, destination{dst.offset, dst.size}, v, value.Value{}, value.Value{})
	return nil
}

func (g *Generator) execIO(op ir.Op, values []ast.Node) error {
	for _, expr := range values {
		v, err := g.eval(expr)
		if err != nil {
			return err
		}
		g.emitNoDest(op, v, value.Value{}, value.Value{})
	}
	return nil
}

func (g *Generator) execIndexAssign(n *ast.IndexAssign) error {
	arr, err := g.eval(n.Array)
	if err != nil {
		return err
	}
	idx, err := g.eval(n.Idx)
	if err != nil {
		return err
	}
	if idx.TypeOf().Tag != types.Number {
		return errTypef(n.Pos, "array index must be int, got %s", idx.TypeOf())
	}
	elem, err := g.elemType(arr.TypeOf(), n.Pos)
	if err != nil {
		return err
	}
	rhs, err := g.eval(n.RHS)
	if err != nil {
		return err
	}
	if !rhs.TypeOf().Equal(elem) {
		return errTypef(n.Pos, "cannot assign %s into array of %s", rhs.TypeOf(), elem)
	}
	ptrOffset := g.allocate(types.PointerSize)
	g.emit(ir.Add, destination{ptrOffset, types.PointerSize}, arr, idx, value.Value{})
	ptr := value.MakePointer(ptrOffset, elem)
	g.emitNoDest(ir.DerefAssign, ptr, rhs, value.Value{})
	return nil
}

func (g *Generator) execDerefAssign(n *ast.DerefAssign) error {
	ptr, err := g.eval(n.Pointer)
	if err != nil {
		return err
	}
	rhs, err := g.eval(n.RHS)
	if err != nil {
		return err
	}
	switch ptr.TypeOf().Tag {
	case types.Pointer:
		if !rhs.TypeOf().Equal(*ptr.TypeOf().Elem) {
			return errTypef(n.Pos, "cannot assign %s through a pointer to %s", rhs.TypeOf(), *ptr.TypeOf().Elem)
		}
		g.emitNoDest(ir.DerefAssign, ptr, rhs, value.Value{})
	case types.Ref:
		if !rhs.TypeOf().Equal(*ptr.TypeOf().Elem) {
			return errTypef(n.Pos, "cannot assign %s through a reference to %s", rhs.TypeOf(), *ptr.TypeOf().Elem)
		}
		g.emitNoDest(ir.DerefAssignRef, ptr, rhs, value.Value{})
	default:
		return errTypef(n.Pos, "cannot assign through a value of type %s", ptr.TypeOf())
	}
	return nil
}
