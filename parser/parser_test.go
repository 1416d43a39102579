package parser

import (
	"testing"

	"ezc/ast"
	"ezc/token"
)

func p() token.Position { return token.Position{File: "t.ez", LineStart: 1, LineEnd: 1} }

func tk(tt token.TokenType, lexeme string) token.Token {
	return token.Token{TokenType: tt, Lexeme: lexeme, Pos: p()}
}

func kw(lexeme string) token.Token {
	return token.Token{TokenType: token.KEYWORD, Lexeme: lexeme, Pos: p()}
}

func ident(name string) token.Token {
	return token.Token{TokenType: token.IDENTIFIER, Lexeme: name, Pos: p()}
}

func intLit(v int8) token.Token {
	return token.Token{TokenType: token.INT, Literal: v, Lexeme: "", Pos: p()}
}

func eof() token.Token { return token.Token{TokenType: token.EOF, Pos: p()} }

func TestParseSimpleVarDecl(t *testing.T) {
	// int x = 4;
	toks := []token.Token{
		kw("int"), ident("x"), tk(token.ASSIGN, "="), intLit(4), tk(token.EOL, ";"), eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(nodes))
	}
	decl, ok := nodes[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("got %T, want *ast.VarDecl", nodes[0])
	}
	if decl.Name != "x" {
		t.Errorf("got name %q, want x", decl.Name)
	}
	lit, ok := decl.RHS.(*ast.NumberLiteral)
	if !ok || lit.Value != 4 {
		t.Errorf("got RHS %+v, want NumberLiteral(4)", decl.RHS)
	}
}

func TestParseAdditiveMultiplicativePrecedence(t *testing.T) {
	// int y = 1 + 2 * 3;
	toks := []token.Token{
		kw("int"), ident("y"), tk(token.ASSIGN, "="),
		intLit(1), tk(token.ADD, "+"), intLit(2), tk(token.MUL, "*"), intLit(3),
		tk(token.EOL, ";"), eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	decl := nodes[0].(*ast.VarDecl)
	bin, ok := decl.RHS.(*ast.Binary)
	if !ok || bin.Op != token.ADD {
		t.Fatalf("got RHS %+v, want top-level ADD", decl.RHS)
	}
	right, ok := bin.Right.(*ast.Binary)
	if !ok || right.Op != token.MUL {
		t.Fatalf("got right operand %+v, want nested MUL", bin.Right)
	}
}

func TestParsePowerIsRightAssociative(t *testing.T) {
	// int z = 2 ** 3 ** 2;
	toks := []token.Token{
		kw("int"), ident("z"), tk(token.ASSIGN, "="),
		intLit(2), tk(token.POW, "**"), intLit(3), tk(token.POW, "**"), intLit(2),
		tk(token.EOL, ";"), eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	decl := nodes[0].(*ast.VarDecl)
	top, ok := decl.RHS.(*ast.Binary)
	if !ok || top.Op != token.POW {
		t.Fatalf("got RHS %+v, want top-level POW", decl.RHS)
	}
	if _, ok := top.Left.(*ast.NumberLiteral); !ok {
		t.Errorf("expected left operand to be the literal 2, got %+v", top.Left)
	}
	if _, ok := top.Right.(*ast.Binary); !ok {
		t.Errorf("expected right operand to itself be 3 ** 2, got %+v", top.Right)
	}
}

func TestParseUndefinedVariableIsError(t *testing.T) {
	// int y = x;
	toks := []token.Token{
		kw("int"), ident("y"), tk(token.ASSIGN, "="), ident("x"), tk(token.EOL, ";"), eof(),
	}
	if _, err := Parse(toks); err == nil {
		t.Fatalf("expected an undefined-variable error")
	}
}

func TestParseAugmentedAssignmentDesugars(t *testing.T) {
	// int x = 1; x += 2;
	toks := []token.Token{
		kw("int"), ident("x"), tk(token.ASSIGN, "="), intLit(1), tk(token.EOL, ";"),
		ident("x"), tk(token.ADD_ASSIGN, "+="), intLit(2), tk(token.EOL, ";"),
		eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
	reassign, ok := nodes[1].(*ast.VarReassign)
	if !ok {
		t.Fatalf("got %T, want *ast.VarReassign", nodes[1])
	}
	bin, ok := reassign.RHS.(*ast.Binary)
	if !ok || bin.Op != token.ADD {
		t.Fatalf("got RHS %+v, want desugared ADD of x and 2", reassign.RHS)
	}
	if access, ok := bin.Left.(*ast.VarAccess); !ok || access.Name != "x" {
		t.Errorf("got left operand %+v, want VarAccess(x)", bin.Left)
	}
}

func TestParseIfElse(t *testing.T) {
	// if (true) { ezout 1; } else { ezout 2; }
	toks := []token.Token{
		kw("if"), tk(token.LPAREN, "("), kw("true"), tk(token.RPAREN, ")"),
		tk(token.LCURLY, "{"), kw("ezout"), intLit(1), tk(token.EOL, ";"), tk(token.RCURLY, "}"),
		kw("else"),
		tk(token.LCURLY, "{"), kw("ezout"), intLit(2), tk(token.EOL, ";"), tk(token.RCURLY, "}"),
		eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	ifNode, ok := nodes[0].(*ast.If)
	if !ok {
		t.Fatalf("got %T, want *ast.If", nodes[0])
	}
	if ifNode.Else == nil {
		t.Fatalf("expected an else branch")
	}
	if len(ifNode.Then.Statements) != 1 || len(ifNode.Else.Statements) != 1 {
		t.Errorf("expected one statement per branch, got then=%d else=%d",
			len(ifNode.Then.Statements), len(ifNode.Else.Statements))
	}
}

func TestParseWhileLoop(t *testing.T) {
	// while (true) { ezout 1; }
	toks := []token.Token{
		kw("while"), tk(token.LPAREN, "("), kw("true"), tk(token.RPAREN, ")"),
		tk(token.LCURLY, "{"), kw("ezout"), intLit(1), tk(token.EOL, ";"), tk(token.RCURLY, "}"),
		eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if _, ok := nodes[0].(*ast.While); !ok {
		t.Fatalf("got %T, want *ast.While", nodes[0])
	}
}

func TestParseFuncDefWithParamsAndReturn(t *testing.T) {
	// ez add(a: int, b: int) -> int { return a + b; }
	toks := []token.Token{
		kw("ez"), ident("add"), tk(token.LPAREN, "("),
		ident("a"), tk(token.COLON, ":"), kw("int"), tk(token.COMMA, ","),
		ident("b"), tk(token.COLON, ":"), kw("int"),
		tk(token.RPAREN, ")"), tk(token.ARROW, "->"), kw("int"),
		tk(token.LCURLY, "{"),
		kw("return"), ident("a"), tk(token.ADD, "+"), ident("b"), tk(token.EOL, ";"),
		tk(token.RCURLY, "}"),
		eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	fn, ok := nodes[0].(*ast.FuncDef)
	if !ok {
		t.Fatalf("got %T, want *ast.FuncDef", nodes[0])
	}
	if fn.Name != "add" || len(fn.Params) != 2 || fn.Inline {
		t.Errorf("got %+v, want non-inline add(a,b)", fn)
	}
	if len(fn.Body.Statements) != 1 {
		t.Fatalf("got %d body statements, want 1", len(fn.Body.Statements))
	}
	if _, ok := fn.Body.Statements[0].(*ast.Return); !ok {
		t.Errorf("got %T, want *ast.Return", fn.Body.Statements[0])
	}
}

func TestParseInlineFuncDef(t *testing.T) {
	// inline ez twice(a: int) -> int { return a * 2; }
	toks := []token.Token{
		kw("inline"), kw("ez"), ident("twice"), tk(token.LPAREN, "("),
		ident("a"), tk(token.COLON, ":"), kw("int"),
		tk(token.RPAREN, ")"), tk(token.ARROW, "->"), kw("int"),
		tk(token.LCURLY, "{"),
		kw("return"), ident("a"), tk(token.MUL, "*"), intLit(2), tk(token.EOL, ";"),
		tk(token.RCURLY, "}"),
		eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	fn, ok := nodes[0].(*ast.FuncDef)
	if !ok || !fn.Inline {
		t.Fatalf("got %+v, want an inline FuncDef", nodes[0])
	}
}

func TestParseCallExpression(t *testing.T) {
	// ez add(a: int) -> int { return a; } int x = add(3);
	toks := []token.Token{
		kw("ez"), ident("add"), tk(token.LPAREN, "("),
		ident("a"), tk(token.COLON, ":"), kw("int"),
		tk(token.RPAREN, ")"), tk(token.ARROW, "->"), kw("int"),
		tk(token.LCURLY, "{"), kw("return"), ident("a"), tk(token.EOL, ";"), tk(token.RCURLY, "}"),
		kw("int"), ident("x"), tk(token.ASSIGN, "="),
		ident("add"), tk(token.LPAREN, "("), intLit(3), tk(token.RPAREN, ")"),
		tk(token.EOL, ";"),
		eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
	decl := nodes[1].(*ast.VarDecl)
	call, ok := decl.RHS.(*ast.Call)
	if !ok || call.Name != "add" || len(call.Args) != 1 {
		t.Fatalf("got RHS %+v, want a call to add with one arg", decl.RHS)
	}
}

func TestParseUndefinedFunctionCallIsError(t *testing.T) {
	// int x = missing(1);
	toks := []token.Token{
		kw("int"), ident("x"), tk(token.ASSIGN, "="),
		ident("missing"), tk(token.LPAREN, "("), intLit(1), tk(token.RPAREN, ")"),
		tk(token.EOL, ";"), eof(),
	}
	if _, err := Parse(toks); err == nil {
		t.Fatalf("expected an undefined-function error")
	}
}

func TestParseArrayLiteralAndIndex(t *testing.T) {
	// int x = [1, 2, 3][0];
	toks := []token.Token{
		kw("int"), ident("x"), tk(token.ASSIGN, "="),
		tk(token.LSQUARE, "["), intLit(1), tk(token.COMMA, ","), intLit(2), tk(token.COMMA, ","), intLit(3), tk(token.RSQUARE, "]"),
		tk(token.LSQUARE, "["), intLit(0), tk(token.RSQUARE, "]"),
		tk(token.EOL, ";"), eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	decl := nodes[0].(*ast.VarDecl)
	idx, ok := decl.RHS.(*ast.Index)
	if !ok {
		t.Fatalf("got RHS %T, want *ast.Index", decl.RHS)
	}
	if _, ok := idx.Array.(*ast.ArrayLiteral); !ok {
		t.Errorf("got array operand %T, want *ast.ArrayLiteral", idx.Array)
	}
}

func TestParseStructDefAndConstructor(t *testing.T) {
	// struct Point { x: int, y: int } Point p = Point { x: 1, y: 2 };
	toks := []token.Token{
		kw("struct"), ident("Point"), tk(token.LCURLY, "{"),
		ident("x"), tk(token.COLON, ":"), kw("int"), tk(token.COMMA, ","),
		ident("y"), tk(token.COLON, ":"), kw("int"),
		tk(token.RCURLY, "}"),
		kw("let"), ident("Point"), ident("p"), tk(token.ASSIGN, "="),
		ident("Point"), tk(token.LCURLY, "{"),
		ident("x"), tk(token.COLON, ":"), intLit(1), tk(token.COMMA, ","),
		ident("y"), tk(token.COLON, ":"), intLit(2),
		tk(token.RCURLY, "}"),
		tk(token.EOL, ";"), eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if _, ok := nodes[0].(*ast.StructDef); !ok {
		t.Fatalf("got %T, want *ast.StructDef", nodes[0])
	}
	decl, ok := nodes[1].(*ast.VarDecl)
	if !ok {
		t.Fatalf("got %T, want *ast.VarDecl", nodes[1])
	}
	ctor, ok := decl.RHS.(*ast.StructConstructor)
	if !ok || ctor.StructName != "Point" || len(ctor.FieldOrder) != 2 {
		t.Fatalf("got RHS %+v, want a Point constructor with 2 fields", decl.RHS)
	}
}

func TestParseTernary(t *testing.T) {
	// int x = true ? 1 : 2;
	toks := []token.Token{
		kw("int"), ident("x"), tk(token.ASSIGN, "="),
		kw("true"), tk(token.QMARK, "?"), intLit(1), tk(token.COLON, ":"), intLit(2),
		tk(token.EOL, ";"), eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	decl := nodes[0].(*ast.VarDecl)
	if _, ok := decl.RHS.(*ast.Ternary); !ok {
		t.Fatalf("got RHS %T, want *ast.Ternary", decl.RHS)
	}
}

func TestParseRefAndDeref(t *testing.T) {
	// int x = 1; &int rx = &x; int y = *rx;
	toks := []token.Token{
		kw("int"), ident("x"), tk(token.ASSIGN, "="), intLit(1), tk(token.EOL, ";"),
		tk(token.BAND, "&"), kw("int"), ident("rx"), tk(token.ASSIGN, "="),
		tk(token.BAND, "&"), ident("x"), tk(token.EOL, ";"),
		kw("int"), ident("y"), tk(token.ASSIGN, "="),
		tk(token.MUL, "*"), ident("rx"), tk(token.EOL, ";"),
		eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(nodes))
	}
	refDecl := nodes[1].(*ast.VarDecl)
	if _, ok := refDecl.RHS.(*ast.RefExpr); !ok {
		t.Errorf("got RHS %T, want *ast.RefExpr", refDecl.RHS)
	}
	derefDecl := nodes[2].(*ast.VarDecl)
	if _, ok := derefDecl.RHS.(*ast.DerefExpr); !ok {
		t.Errorf("got RHS %T, want *ast.DerefExpr", derefDecl.RHS)
	}
}

func TestParseAsConversion(t *testing.T) {
	// bool b = 1 as bool;
	toks := []token.Token{
		kw("bool"), ident("b"), tk(token.ASSIGN, "="),
		intLit(1), kw("as"), kw("bool"),
		tk(token.EOL, ";"), eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	decl := nodes[0].(*ast.VarDecl)
	if _, ok := decl.RHS.(*ast.Convert); !ok {
		t.Fatalf("got RHS %T, want *ast.Convert", decl.RHS)
	}
}

func TestParseForLoopDesugarsClauses(t *testing.T) {
	// for (int i = 0; i < 3; i += 1) { ezout i; }
	toks := []token.Token{
		kw("for"), tk(token.LPAREN, "("),
		kw("int"), ident("i"), tk(token.ASSIGN, "="), intLit(0), tk(token.EOL, ";"),
		ident("i"), tk(token.LT, "<"), intLit(3), tk(token.EOL, ";"),
		ident("i"), tk(token.ADD_ASSIGN, "+="), intLit(1),
		tk(token.RPAREN, ")"),
		tk(token.LCURLY, "{"), kw("ezout"), ident("i"), tk(token.EOL, ";"), tk(token.RCURLY, "}"),
		eof(),
	}
	nodes, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	forNode, ok := nodes[0].(*ast.For)
	if !ok {
		t.Fatalf("got %T, want *ast.For", nodes[0])
	}
	if _, ok := forNode.Init.(*ast.VarDecl); !ok {
		t.Errorf("got Init %T, want *ast.VarDecl", forNode.Init)
	}
	step, ok := forNode.Step.(*ast.VarReassign)
	if !ok {
		t.Fatalf("got Step %T, want *ast.VarReassign", forNode.Step)
	}
	if _, ok := step.RHS.(*ast.Binary); !ok {
		t.Errorf("got Step.RHS %T, want desugared Binary", step.RHS)
	}
}
