// Package optimizer implements the single-pass peephole optimizer
// described in spec §4.6. It walks an instruction stream once, carrying
// a map from destination offset to the last known Value written there,
// and rewrites a handful of arithmetic shapes (identity elimination,
// annihilation, squaring, negation) plus generic operand substitution
// for everything else.
//
// Grounded on original_source/src/core/ir_optimizer.rs, the more
// complete of the two retrieved Rust references (the other,
// original_source/src/ir_optimizer.rs, additionally shows an `If`
// constant-folding rule that was written and then commented out —
// evidence the upstream authors considered and rejected it, which is
// why this port treats If/While and their markers as pure passthrough
// rather than inventing condition folding). Both files dispatch most
// of their non-special-cased operators through a `check!` macro whose
// definition is not present anywhere in the retrieved sources; its
// behavior is reconstructed here as plain Go helper functions from the
// match arms that call it, not translated line-for-line.
package optimizer

import (
	"ezc/ir"
	"ezc/value"
)

// Optimize rewrites prog.Instructions and every non-inline function's
// own instruction stream in place. Each stream carries its own `vars`
// map: a function's body never sees the caller's propagated values,
// matching its independent memory plan (DESIGN.md's "ir" entry).
func Optimize(prog *ir.Program) {
	prog.Instructions = optimizeStream(prog.Instructions)
	for _, fn := range prog.Functions {
		fn.Instructions = optimizeStream(fn.Instructions)
	}
}

func optimizeStream(in []ir.Instruction) []ir.Instruction {
	vars := make(map[int]value.Value)
	out := make([]ir.Instruction, len(in))
	for i, inst := range in {
		out[i] = optimizeOne(inst, vars)
	}
	return out
}

func optimizeOne(inst ir.Instruction, vars map[int]value.Value) ir.Instruction {
	switch inst.Op {
	case ir.If, ir.While, ir.EndIf, ir.EndWhile, ir.Else, ir.Input:
		// forwarded unchanged; they reset nothing in vars.
		return inst
	case ir.Call:
		return optimizeCall(inst, vars)
	case ir.TernaryIf:
		return optimizeTernary(inst, vars)
	case ir.Copy:
		return optimizeCopy(inst, vars)
	case ir.Mul:
		return optimizeMul(inst, vars)
	case ir.Add, ir.Sub:
		return optimizeAddSub(inst, vars)
	case ir.Div:
		return optimizeDiv(inst, vars)
	default:
		if isUnaryShaped(inst.Op) {
			return optimizeUnaryGeneric(inst, vars)
		}
		return optimizeBinaryGeneric(inst, vars)
	}
}

func isUnaryShaped(op ir.Op) bool {
	switch op {
	case ir.Neg, ir.Inc, ir.Dec, ir.BNot, ir.LNot, ir.Deref, ir.DerefRef, ir.Print, ir.Ascii:
		return true
	}
	return false
}

// substitute replaces an Index operand with its tracked value, but
// only when that tracked value is not itself an Index: chasing through
// an alias could read a slot that's since been overwritten, so the
// chain stops at the first non-literal hop per spec §4.6.
func substitute(v value.Value, vars map[int]value.Value) value.Value {
	if v.Tag != value.Index {
		return v
	}
	known, ok := vars[v.Offset]
	if !ok || known.Tag == value.Index {
		return v
	}
	return known
}

func sameOperand(a, b value.Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case value.Num:
		return a.NumVal == b.NumVal
	case value.Bool:
		return a.BoolVal == b.BoolVal
	case value.Char:
		return a.CharVal == b.CharVal
	case value.Index, value.Ref, value.Pointer:
		return a.Offset == b.Offset
	default:
		return true
	}
}

func isZero(v value.Value) bool { return v.Tag == value.Num && v.NumVal == 0 }
func isOne(v value.Value) bool  { return v.Tag == value.Num && v.NumVal == 1 }
func isNegOne(v value.Value) bool {
	return v.Tag == value.Num && v.NumVal == -1
}

// clearDst drops any stale tracked value for inst's destination: once
// an instruction writes a result the optimizer can't fold, the old
// entry (if any, from a prior write to the same offset) no longer
// describes what's there.
func clearDst(inst ir.Instruction, vars map[int]value.Value) {
	if inst.Dst.HasDest {
		delete(vars, inst.Dst.Offset)
	}
}

func collapseToCopy(dst ir.Destination, operand value.Value, vars map[int]value.Value) ir.Instruction {
	if dst.HasDest {
		vars[dst.Offset] = operand
	}
	return ir.Instruction{Op: ir.Copy, Dst: dst, A: operand}
}

func optimizeCopy(inst ir.Instruction, vars map[int]value.Value) ir.Instruction {
	inst.A = substitute(inst.A, vars)
	if inst.Dst.HasDest {
		vars[inst.Dst.Offset] = inst.A
	}
	return inst
}

// optimizeAddSub implements the identity-elimination rule for + and -:
// `x + 0`, `0 + x`, and `x - 0` all collapse to the surviving operand.
//
// The zero check is made against the RAW, unsubstituted operand: per
// original_source/src/core/ir_optimizer.rs, these shapes only fire when a
// literal 0 is written directly at the call site (`x + 0`), not when an
// operand merely propagates to 0 through an earlier Copy (`int y = 0; int
// z = x + y;` is left as a generic Add, substituted but not collapsed).
// Only the operand that survives the rule is substituted.
func optimizeAddSub(inst ir.Instruction, vars map[int]value.Value) ir.Instruction {
	if inst.Op == ir.Add {
		if isZero(inst.B) {
			return collapseToCopy(inst.Dst, substitute(inst.A, vars), vars)
		}
		if isZero(inst.A) {
			return collapseToCopy(inst.Dst, substitute(inst.B, vars), vars)
		}
	} else if isZero(inst.B) {
		return collapseToCopy(inst.Dst, substitute(inst.A, vars), vars)
	}
	inst.A = substitute(inst.A, vars)
	inst.B = substitute(inst.B, vars)
	clearDst(inst, vars)
	return inst
}

// optimizeDiv implements `x / 1` → `x`, checked against the raw divisor
// operand for the same reason as optimizeAddSub.
func optimizeDiv(inst ir.Instruction, vars map[int]value.Value) ir.Instruction {
	if isOne(inst.B) {
		return collapseToCopy(inst.Dst, substitute(inst.A, vars), vars)
	}
	inst.A = substitute(inst.A, vars)
	inst.B = substitute(inst.B, vars)
	clearDst(inst, vars)
	return inst
}

// optimizeMul implements annihilation (`x * 0` → `0`), identity
// elimination (`x * 1` → `x`), negation (`x * -1` → `Neg(x)`), and
// squaring (`x * x` → `Pow(x, 2)`), in that priority order, falling
// back to generic substitution. Every check is made against the raw,
// unsubstituted operands (see optimizeAddSub); only the operand that
// survives a matched rule is substituted.
func optimizeMul(inst ir.Instruction, vars map[int]value.Value) ir.Instruction {
	switch {
	case isZero(inst.A) || isZero(inst.B):
		return collapseToCopy(inst.Dst, value.MakeNum(0), vars)
	case isOne(inst.B):
		return collapseToCopy(inst.Dst, substitute(inst.A, vars), vars)
	case isOne(inst.A):
		return collapseToCopy(inst.Dst, substitute(inst.B, vars), vars)
	case isNegOne(inst.B):
		out := ir.Instruction{Op: ir.Neg, Dst: inst.Dst, A: substitute(inst.A, vars)}
		clearDst(out, vars)
		return out
	case isNegOne(inst.A):
		out := ir.Instruction{Op: ir.Neg, Dst: inst.Dst, A: substitute(inst.B, vars)}
		clearDst(out, vars)
		return out
	case sameOperand(inst.A, inst.B):
		out := ir.Instruction{Op: ir.Pow, Dst: inst.Dst, A: substitute(inst.A, vars), B: value.MakeNum(2)}
		clearDst(out, vars)
		return out
	}
	inst.A = substitute(inst.A, vars)
	inst.B = substitute(inst.B, vars)
	clearDst(inst, vars)
	return inst
}

// optimizeBinaryGeneric is the fallback for every binary op with no
// special-cased identity: Mod, Pow, Shl, Shr, BAnd, BOr, BXor, LAnd,
// LOr, LXor, Eq, Neq, Lt, Le, DerefAssign, DerefAssignRef. It
// substitutes both operands and forgets any stale destination value,
// mirroring the original's `check!(BINARY2 ...)` dispatch.
func optimizeBinaryGeneric(inst ir.Instruction, vars map[int]value.Value) ir.Instruction {
	inst.A = substitute(inst.A, vars)
	inst.B = substitute(inst.B, vars)
	clearDst(inst, vars)
	return inst
}

// optimizeUnaryGeneric mirrors the original's `check!(2 ...)` dispatch
// for single-operand ops: Neg, Inc, Dec, BNot, LNot, Deref, DerefRef,
// Print, Ascii.
func optimizeUnaryGeneric(inst ir.Instruction, vars map[int]value.Value) ir.Instruction {
	inst.A = substitute(inst.A, vars)
	clearDst(inst, vars)
	return inst
}

// optimizeTernary substitutes cond/then/else independently, but only
// when a proper subset of the three resolved to literals: if none or
// all three did, the instruction is forwarded exactly as received.
// This unusual rule comes straight from the original's TernaryIf arm.
func optimizeTernary(inst ir.Instruction, vars map[int]value.Value) ir.Instruction {
	cond := substitute(inst.A, vars)
	then := substitute(inst.B, vars)
	els := substitute(inst.C, vars)
	resolved := 0
	if cond.IsLiteral() {
		resolved++
	}
	if then.IsLiteral() {
		resolved++
	}
	if els.IsLiteral() {
		resolved++
	}
	if resolved == 0 || resolved == 3 {
		clearDst(inst, vars)
		return inst
	}
	inst.A, inst.B, inst.C = cond, then, els
	clearDst(inst, vars)
	return inst
}

// optimizeCall substitutes each argument independently; the call's
// return value is never compile-time known, so nothing is recorded.
func optimizeCall(inst ir.Instruction, vars map[int]value.Value) ir.Instruction {
	if len(inst.Args) > 0 {
		args := make([]value.Value, len(inst.Args))
		for i, a := range inst.Args {
			args[i] = substitute(a, vars)
		}
		inst.Args = args
	}
	clearDst(inst, vars)
	return inst
}
