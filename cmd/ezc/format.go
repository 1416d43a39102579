package main

import (
	"fmt"
	"sort"
	"strings"

	"ezc/ir"
	"ezc/value"
)

// formatProgram renders an ir.Program the way `emit-ir` and `repl` show
// it: the memory high-water mark, then one line per instruction in
// source-evaluation order, then every non-inline function's own
// stream indented underneath its name. This is a debugging aid, not a
// wire format — no back-end in this module ever reads it back.
func formatProgram(prog *ir.Program) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; memory high-water mark: %d\n", prog.MemoryHigh)
	formatStream(&b, prog.Instructions, "")

	if len(prog.Functions) == 0 {
		return b.String()
	}

	names := make([]string, 0, len(prog.Functions))
	for name := range prog.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn := prog.Functions[name]
		fmt.Fprintf(&b, "\nfunc %s: ; high-water mark %d\n", name, fn.MemoryHigh)
		formatStream(&b, fn.Instructions, "  ")
	}
	return b.String()
}

func formatStream(b *strings.Builder, instructions []ir.Instruction, indent string) {
	for i, inst := range instructions {
		fmt.Fprintf(b, "%s%3d: %s\n", indent, i, formatInstruction(inst))
	}
}

func formatInstruction(inst ir.Instruction) string {
	dst := "-"
	if inst.Dst.HasDest {
		dst = fmt.Sprintf("[%d:+%d]", inst.Dst.Offset, inst.Dst.Size)
	}

	switch inst.Op {
	case ir.Call:
		return fmt.Sprintf("%s <- Call %s(%s)", dst, inst.FuncName, formatArgs(inst.Args))
	case ir.TernaryIf:
		return fmt.Sprintf("%s <- TernaryIf %s, %s, %s", dst, inst.A, inst.B, inst.C)
	case ir.If:
		return fmt.Sprintf("%s <- If %s (hasElse=%t)", dst, inst.A, inst.HasElse)
	case ir.Else:
		return fmt.Sprintf("%s <- Else", dst)
	case ir.EndIf:
		return fmt.Sprintf("%s <- EndIf (hasElse=%t)", dst, inst.HasElse)
	case ir.While, ir.EndWhile:
		return fmt.Sprintf("%s <- %s %s", dst, inst.Op, inst.A)
	case ir.Input:
		return fmt.Sprintf("%s <- Input", dst)
	default:
		if opIsUnary(inst.Op) {
			return fmt.Sprintf("%s <- %s %s", dst, inst.Op, inst.A)
		}
		return fmt.Sprintf("%s <- %s %s, %s", dst, inst.Op, inst.A, inst.B)
	}
}

func opIsUnary(op ir.Op) bool {
	switch op {
	case ir.Neg, ir.Inc, ir.Dec, ir.BNot, ir.LNot, ir.Deref, ir.DerefRef, ir.Print, ir.Ascii, ir.Copy:
		return true
	}
	return false
}

func formatArgs(args []value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
