package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"ezc/compiler"
)

// emitIRCmd compiles a source file and dumps the resulting instruction
// list and memory plan as text, one instruction per line.
type emitIRCmd struct{}

func (*emitIRCmd) Name() string { return "emit-ir" }
func (*emitIRCmd) Synopsis() string {
	return "Compile an EZ source file and dump its instruction list"
}
func (*emitIRCmd) Usage() string {
	return `emit-ir <file>:
  Compile EZ source and print the instruction stream and memory plan.
`
}
func (r *emitIRCmd) SetFlags(f *flag.FlagSet) {}

func (r *emitIRCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	filename := args[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	prog, err := compiler.Compile(string(data), filename, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Print(formatProgram(prog))
	return subcommands.ExitSuccess
}
