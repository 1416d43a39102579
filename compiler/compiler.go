// Package compiler wires the six CORE stages into a single entry point:
// lex, preprocess, parse (scope-resolved), check return placement,
// expand inline calls, generate IR, and run the peephole optimizer.
//
// Grounded on the upstream language's top-level driver
// (informatter-nilan/main.go and cmd_run.go's lex-then-parse-then-X
// sequencing), extended with the CORE-only stages spec §2 adds between
// parsing and interpretation.
package compiler

import (
	"ezc/ast"
	"ezc/check"
	"ezc/codegen"
	"ezc/inline"
	"ezc/ir"
	"ezc/lexer"
	"ezc/optimizer"
	"ezc/parser"
	"ezc/preprocessor"
	"ezc/types"
)

// ReadFile abstracts filesystem access for the preprocessor's `use`
// directive, so callers can inject an in-memory filesystem in tests.
type ReadFile = preprocessor.ReadFile

// Compile runs the full pipeline over one source file's contents and
// returns the optimized ir.Program. filename is attached to every token
// for error positions; read is passed through to the preprocessor (nil
// means "read from disk").
func Compile(source, filename string, read ReadFile) (*ir.Program, error) {
	tokens, err := lexer.New(filename, source).Scan()
	if err != nil {
		return nil, err
	}

	tokens, err = preprocessor.Process(tokens, read)
	if err != nil {
		return nil, err
	}

	program, err := parser.Parse(tokens)
	if err != nil {
		return nil, err
	}

	if err := check.Returns(program); err != nil {
		return nil, err
	}

	program, err = inline.Expand(program)
	if err != nil {
		return nil, err
	}

	structs, funcs := collectDecls(program)
	prog, err := codegen.New(structs, funcs).Generate(program)
	if err != nil {
		return nil, err
	}

	optimizer.Optimize(prog)
	return prog, nil
}

// collectDecls builds the struct-type and non-inline-function tables
// codegen.New needs, from the top-level declarations of an
// already-inlined program. Inline functions never reach here: the
// inline pass has already dropped their definitions and replaced their
// call sites with Expanded blocks.
func collectDecls(program []ast.Node) (map[string]types.Type, map[string]*ast.FuncDef) {
	structs := make(map[string]types.Type)
	funcs := make(map[string]*ast.FuncDef)
	for _, n := range program {
		switch node := n.(type) {
		case *ast.StructDef:
			structs[node.Name] = types.MakeStruct(node.Name, node.Fields)
		case *ast.FuncDef:
			funcs[node.Name] = node
		}
	}
	return structs, funcs
}
