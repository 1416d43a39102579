package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"ezc/compiler"
)

// replCmd reads one line at a time, compiles it as a standalone
// program through the full pipeline, and prints the resulting
// instructions. Adapted from the teacher's cmd_repl.go loop, swapping
// its bufio.Scanner for readline's history and line editing.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive EZ compile-and-print session" }
func (*replCmd) Usage() string {
	return `repl:
  Compile one line at a time, printing its instructions.
`
}
func (r *replCmd) SetFlags(f *flag.FlagSet) {}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("\n\nWelcome to ezc!")
	rl, err := readline.New(">>> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to start REPL: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()
	runRepl(rl)
	return subcommands.ExitSuccess
}

func runRepl(rl *readline.Instance) {
	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if line == "exit" {
			return
		}
		if line == "" {
			continue
		}

		prog, err := compiler.Compile(line, "<repl>", nil)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Print(formatProgram(prog))
	}
}
