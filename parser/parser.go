// Package parser implements EZ's recursive-descent parser with
// integrated scope tracking: each declaration registers into the current
// scope.Scope as it is parsed, and each reference is resolved or
// recorded as unresolved, with a final fix-up pass once the whole
// program has been read.
//
// Grounded on the teacher's parser/parser.go: the same cursor-over-a-
// token-slice shape (peek/previous/advance/isMatch/consume), generalized
// from the teacher's single equality/comparison/term/factor/unary ladder
// to the deeper precedence ladder spec §4.2 requires, and changed from
// the teacher's error-collecting Parse (which resynchronizes after every
// statement) to fail-fast: §4.2 specifies "first error wins", so the
// pipeline cannot use the teacher's synchronize-and-collect strategy.
package parser

import (
	"ezc/ast"
	"ezc/ezerr"
	"ezc/scope"
	"ezc/token"
	"ezc/types"
)

// Parser walks tokens left to right, building an AST and a parallel
// scope.Scope tree as it goes.
type Parser struct {
	tokens  []token.Token
	pos     int
	root    *scope.Scope
	current *scope.Scope
}

// New creates a Parser over tokens, with a fresh root scope.
func New(tokens []token.Token) *Parser {
	root := scope.New(nil)
	return &Parser{tokens: tokens, pos: 0, root: root, current: root}
}

// Parse parses tokens into a complete program: a flat top-level list of
// declarations and statements. Scope fix-up runs once, at the end; the
// first still-unresolved reference (if any) is reported in
// declaration order: variables, then functions, then structs.
func Parse(tokens []token.Token) ([]ast.Node, error) {
	p := New(tokens)
	return p.Parse()
}

func (p *Parser) Parse() ([]ast.Node, error) {
	var nodes []ast.Node
	for !p.isAtEnd() {
		n, err := p.declaration()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	vars, funcs, structs := p.root.FixUp()
	if len(vars) > 0 {
		u := vars[0]
		return nil, ezerr.New(ezerr.UndefinedVariable, toPos(u.Pos), "undefined variable `%s`", u.Name)
	}
	if len(funcs) > 0 {
		u := funcs[0]
		return nil, ezerr.New(ezerr.UndefinedFunction, toPos(u.Pos), "undefined function `%s`", u.Name)
	}
	if len(structs) > 0 {
		u := structs[0]
		return nil, ezerr.New(ezerr.UndefinedStruct, toPos(u.Pos), "undefined struct `%s`", u.Name)
	}
	return nodes, nil
}

func toPos(p token.Position) ezerr.Position {
	return ezerr.Position{File: p.File, LineStart: p.LineStart, LineEnd: p.LineEnd, ColStart: p.ColStart, ColEnd: p.ColEnd}
}

// --- cursor primitives, ported from the teacher's parser ---

func (p *Parser) peek() token.Token { return p.tokens[p.pos] }

func (p *Parser) previous() token.Token { return p.tokens[p.pos-1] }

func (p *Parser) advance() token.Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) isAtEnd() bool { return p.peek().TokenType == token.EOF }

func (p *Parser) check(tt token.TokenType) bool {
	return !p.isAtEnd() && p.peek().TokenType == tt
}

func (p *Parser) checkKeyword(lexeme string) bool {
	return !p.isAtEnd() && p.peek().TokenType == token.KEYWORD && p.peek().Lexeme == lexeme
}

func (p *Parser) match(types ...token.TokenType) bool {
	for _, tt := range types {
		if p.check(tt) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) matchKeyword(lexeme string) bool {
	if p.checkKeyword(lexeme) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(tt token.TokenType, msg string) (token.Token, error) {
	if p.check(tt) {
		return p.advance(), nil
	}
	cur := p.peek()
	return token.Token{}, ezerr.New(ezerr.SyntaxError, toPos(cur.Pos), "%s (got %q)", msg, cur.Lexeme)
}

// --- declarations ---

func (p *Parser) declaration() (ast.Node, error) {
	if p.matchKeyword("inline") {
		if _, err := p.expectKeyword("ez"); err != nil {
			return nil, err
		}
		return p.funcDef(true)
	}
	if p.matchKeyword("ez") {
		return p.funcDef(false)
	}
	if p.matchKeyword("struct") {
		return p.structDef()
	}
	if p.matchKeyword("static") {
		return p.staticVarDecl()
	}
	return p.statement()
}

func (p *Parser) expectKeyword(lexeme string) (token.Token, error) {
	if p.checkKeyword(lexeme) {
		return p.advance(), nil
	}
	cur := p.peek()
	return token.Token{}, ezerr.New(ezerr.SyntaxError, toPos(cur.Pos), "expected `%s`", lexeme)
}

// funcDef parses `[inline] ez name(a: T, b: T) -> T { ... }`.
func (p *Parser) funcDef(inline bool) (ast.Node, error) {
	nameTok, err := p.consume(token.IDENTIFIER, "expected a function name")
	if err != nil {
		return nil, err
	}
	if !p.current.DeclareFunction(nameTok.Lexeme, nameTok.Pos) {
		return nil, ezerr.New(ezerr.Redefinition, toPos(nameTok.Pos), "function `%s` is already declared", nameTok.Lexeme)
	}

	if _, err := p.consume(token.LPAREN, "expected '(' after function name"); err != nil {
		return nil, err
	}

	funcScope := scope.New(p.current)
	parent := p.current
	p.current = funcScope

	var params []ast.Param
	if !p.check(token.RPAREN) {
		for {
			paramTok, err := p.consume(token.IDENTIFIER, "expected a parameter name")
			if err != nil {
				p.current = parent
				return nil, err
			}
			if _, err := p.consume(token.COLON, "expected ':' after parameter name"); err != nil {
				p.current = parent
				return nil, err
			}
			paramType, err := p.parseType()
			if err != nil {
				p.current = parent
				return nil, err
			}
			p.current.DeclareVariable(paramTok.Lexeme, paramTok.Pos)
			params = append(params, ast.Param{Name: paramTok.Lexeme, Type: paramType})
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after parameters"); err != nil {
		p.current = parent
		return nil, err
	}

	result := types.Unit()
	if p.match(token.ARROW) {
		result, err = p.parseType()
		if err != nil {
			p.current = parent
			return nil, err
		}
	}

	if _, err := p.consume(token.LCURLY, "expected '{' to begin function body"); err != nil {
		p.current = parent
		return nil, err
	}
	body, err := p.blockStatements()
	p.current = parent
	if err != nil {
		return nil, err
	}

	return &ast.FuncDef{
		Name:   nameTok.Lexeme,
		Params: params,
		Result: result,
		Body:   &ast.Block{Statements: body, Pos: nameTok.Pos},
		Inline: inline,
		Pos:    nameTok.Pos,
	}, nil
}

func (p *Parser) structDef() (ast.Node, error) {
	nameTok, err := p.consume(token.IDENTIFIER, "expected a struct name")
	if err != nil {
		return nil, err
	}
	if !p.current.DeclareStruct(nameTok.Lexeme, nameTok.Pos) {
		return nil, ezerr.New(ezerr.Redefinition, toPos(nameTok.Pos), "struct `%s` is already declared", nameTok.Lexeme)
	}
	if _, err := p.consume(token.LCURLY, "expected '{' after struct name"); err != nil {
		return nil, err
	}
	var fields []types.Field
	for !p.check(token.RCURLY) && !p.isAtEnd() {
		fieldTok, err := p.consume(token.IDENTIFIER, "expected a field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.COLON, "expected ':' after field name"); err != nil {
			return nil, err
		}
		fieldType, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, types.Field{Name: fieldTok.Lexeme, Type: fieldType})
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.RCURLY, "expected '}' after struct fields"); err != nil {
		return nil, err
	}
	return &ast.StructDef{Name: nameTok.Lexeme, Fields: fields, Pos: nameTok.Pos}, nil
}

func (p *Parser) staticVarDecl() (ast.Node, error) {
	startPos := p.peek().Pos
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.consume(token.IDENTIFIER, "expected a static variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.ASSIGN, "expected '=' after static variable name"); err != nil {
		return nil, err
	}
	rhs, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EOL, "expected ';' after static variable declaration"); err != nil {
		return nil, err
	}
	if !p.current.DeclareVariable(nameTok.Lexeme, nameTok.Pos) {
		return nil, ezerr.New(ezerr.Redefinition, toPos(nameTok.Pos), "variable `%s` is already declared in this scope", nameTok.Lexeme)
	}
	return &ast.StaticVar{Name: nameTok.Lexeme, Type: typ, RHS: rhs, Pos: startPos}, nil
}

// --- type annotations ---

// parseType reads `int`, `bool`, `char`, `&T`, `*T`, `point T` (an
// alternate spelling for `*T`), `[T; N]`, `(T1, T2) -> T`, or a bare
// identifier naming a previously (or later) declared struct.
func (p *Parser) parseType() (types.Type, error) {
	switch {
	case p.matchKeyword("int"):
		return types.Num(), nil
	case p.matchKeyword("bool"):
		return types.Bool(), nil
	case p.matchKeyword("char"):
		return types.Ch(), nil
	case p.match(token.BAND):
		inner, err := p.parseType()
		if err != nil {
			return types.Type{}, err
		}
		return types.MakeRef(inner), nil
	case p.match(token.MUL):
		inner, err := p.parseType()
		if err != nil {
			return types.Type{}, err
		}
		return types.MakePointer(inner), nil
	case p.matchKeyword("point"):
		inner, err := p.parseType()
		if err != nil {
			return types.Type{}, err
		}
		return types.MakePointer(inner), nil
	case p.match(token.LSQUARE):
		inner, err := p.parseType()
		if err != nil {
			return types.Type{}, err
		}
		if _, err := p.consume(token.EOL, "expected ';' in array type"); err != nil {
			return types.Type{}, err
		}
		lenTok, err := p.consume(token.INT, "expected an array length")
		if err != nil {
			return types.Type{}, err
		}
		if _, err := p.consume(token.RSQUARE, "expected ']' after array type"); err != nil {
			return types.Type{}, err
		}
		return types.MakeArray(inner, int(lenTok.Literal.(int8))), nil
	case p.match(token.LPAREN):
		var params []types.Param
		if !p.check(token.RPAREN) {
			for {
				paramType, err := p.parseType()
				if err != nil {
					return types.Type{}, err
				}
				params = append(params, types.Param{Type: paramType})
				if !p.match(token.COMMA) {
					break
				}
			}
		}
		if _, err := p.consume(token.RPAREN, "expected ')' in function type"); err != nil {
			return types.Type{}, err
		}
		if _, err := p.consume(token.ARROW, "expected '->' in function type"); err != nil {
			return types.Type{}, err
		}
		result, err := p.parseType()
		if err != nil {
			return types.Type{}, err
		}
		return types.MakeFunction(params, result), nil
	case p.check(token.IDENTIFIER):
		nameTok := p.advance()
		p.current.ResolveStruct(nameTok.Lexeme, nameTok.Pos)
		return types.MakeStruct(nameTok.Lexeme, nil), nil
	default:
		cur := p.peek()
		return types.Type{}, ezerr.New(ezerr.SyntaxError, toPos(cur.Pos), "expected a type, got %q", cur.Lexeme)
	}
}

// --- statements ---

func (p *Parser) statement() (ast.Node, error) {
	switch {
	case p.match(token.LCURLY):
		return p.block()
	case p.matchKeyword("if"):
		return p.ifStatement()
	case p.matchKeyword("while"):
		return p.whileStatement()
	case p.matchKeyword("for"):
		return p.forStatement()
	case p.matchKeyword("return"):
		return p.returnStatement()
	case p.matchKeyword("ezout"):
		return p.printStatement(false)
	case p.matchKeyword("ezascii"):
		return p.printStatement(true)
	case p.matchKeyword("let"):
		return p.varDeclStatement()
	case p.startsScalarType():
		return p.varDeclStatement()
	default:
		return p.exprOrAssignStatement()
	}
}

// startsScalarType reports whether the current token unambiguously opens
// a type annotation (so a bare identifier, which could equally start an
// assignment or a call, is deliberately excluded — struct-typed
// declarations must be spelled with a leading `let`).
func (p *Parser) startsScalarType() bool {
	if p.isAtEnd() {
		return false
	}
	tok := p.peek()
	if tok.TokenType == token.KEYWORD {
		return tok.Lexeme == "int" || tok.Lexeme == "bool" || tok.Lexeme == "char" || tok.Lexeme == "point"
	}
	return tok.TokenType == token.BAND || tok.TokenType == token.MUL || tok.TokenType == token.LSQUARE || tok.TokenType == token.LPAREN
}

func (p *Parser) varDeclStatement() (ast.Node, error) {
	startPos := p.peek().Pos
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.consume(token.IDENTIFIER, "expected a variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.ASSIGN, "expected '=' after variable name"); err != nil {
		return nil, err
	}
	rhs, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EOL, "expected ';' after variable declaration"); err != nil {
		return nil, err
	}
	if !p.current.DeclareVariable(nameTok.Lexeme, nameTok.Pos) {
		return nil, ezerr.New(ezerr.Redefinition, toPos(nameTok.Pos), "variable `%s` is already declared in this scope", nameTok.Lexeme)
	}
	return &ast.VarDecl{Name: nameTok.Lexeme, Type: typ, RHS: rhs, Pos: startPos}, nil
}

// block opens a new child scope, parses statements until `}`, and
// restores the enclosing scope. The `{` must already be consumed.
func (p *Parser) block() (ast.Node, error) {
	startPos := p.previous().Pos
	stmts, err := p.blockStatements()
	if err != nil {
		return nil, err
	}
	return &ast.Block{Statements: stmts, Pos: startPos}, nil
}

// blockStatements parses statements until `}` (consuming it), within a
// fresh child scope of p.current, which is restored before returning.
func (p *Parser) blockStatements() ([]ast.Node, error) {
	parent := p.current
	p.current = scope.New(parent)
	defer func() { p.current = parent }()

	var stmts []ast.Node
	for !p.check(token.RCURLY) && !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.consume(token.RCURLY, "expected '}' to close block"); err != nil {
		return nil, err
	}
	return stmts, nil
}

// statementAsBlock wraps a single non-block statement in a one-statement Block,
// so If/While/For bodies are always *ast.Block regardless of whether the
// source wrote braces.
func (p *Parser) statementAsBlock() (*ast.Block, error) {
	stmt, err := p.statement()
	if err != nil {
		return nil, err
	}
	if blk, ok := stmt.(*ast.Block); ok {
		return blk, nil
	}
	return &ast.Block{Statements: []ast.Node{stmt}, Pos: stmt.Position()}, nil
}

func (p *Parser) ifStatement() (ast.Node, error) {
	startPos := p.previous().Pos
	if _, err := p.consume(token.LPAREN, "expected '(' after `if`"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after if condition"); err != nil {
		return nil, err
	}
	then, err := p.statementAsBlock()
	if err != nil {
		return nil, err
	}
	var elseBlock *ast.Block
	if p.matchKeyword("else") {
		elseBlock, err = p.statementAsBlock()
		if err != nil {
			return nil, err
		}
	}
	return &ast.If{Cond: cond, Then: then, Else: elseBlock, Pos: startPos}, nil
}

func (p *Parser) whileStatement() (ast.Node, error) {
	startPos := p.previous().Pos
	if _, err := p.consume(token.LPAREN, "expected '(' after `while`"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.statementAsBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body, Pos: startPos}, nil
}

// forStatement parses `for (init; cond; step) body`. init and step are
// parsed via the assignment/expression-statement machinery but without
// consuming a trailing `;` for step (the closing paren ends it).
func (p *Parser) forStatement() (ast.Node, error) {
	startPos := p.previous().Pos
	if _, err := p.consume(token.LPAREN, "expected '(' after `for`"); err != nil {
		return nil, err
	}

	parent := p.current
	p.current = scope.New(parent)
	defer func() { p.current = parent }()

	init, err := p.forClauseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EOL, "expected ';' after for-loop initializer"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EOL, "expected ';' after for-loop condition"); err != nil {
		return nil, err
	}
	step, err := p.forClauseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after for-loop clauses"); err != nil {
		return nil, err
	}
	body, err := p.statementAsBlock()
	if err != nil {
		return nil, err
	}
	return &ast.For{Init: init, Cond: cond, Step: step, Body: body, Pos: startPos}, nil
}

// forClauseStatement parses one init/step clause of a for-loop: a
// variable declaration or an assignment/expression, without consuming
// the delimiter that follows it (the caller does).
func (p *Parser) forClauseStatement() (ast.Node, error) {
	if p.startsScalarType() {
		return p.forVarDeclClause()
	}
	return p.assignOrExpr()
}

// forVarDeclClause is varDeclStatement without the trailing `;` consume,
// since a for-loop's init clause delimiter is handled by the caller.
func (p *Parser) forVarDeclClause() (ast.Node, error) {
	startPos := p.peek().Pos
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.consume(token.IDENTIFIER, "expected a variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.ASSIGN, "expected '=' after variable name"); err != nil {
		return nil, err
	}
	rhs, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !p.current.DeclareVariable(nameTok.Lexeme, nameTok.Pos) {
		return nil, ezerr.New(ezerr.Redefinition, toPos(nameTok.Pos), "variable `%s` is already declared in this scope", nameTok.Lexeme)
	}
	return &ast.VarDecl{Name: nameTok.Lexeme, Type: typ, RHS: rhs, Pos: startPos}, nil
}

func (p *Parser) returnStatement() (ast.Node, error) {
	startPos := p.previous().Pos
	if p.match(token.EOL) {
		return &ast.Return{Value: nil, Pos: startPos}, nil
	}
	val, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EOL, "expected ';' after return value"); err != nil {
		return nil, err
	}
	return &ast.Return{Value: val, Pos: startPos}, nil
}

// printStatement parses `ezout e1, e2, ...;` or `ezascii e1, e2, ...;`.
func (p *Parser) printStatement(ascii bool) (ast.Node, error) {
	startPos := p.previous().Pos
	var values []ast.Node
	for {
		v, err := p.expression()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.EOL, "expected ';' after print arguments"); err != nil {
		return nil, err
	}
	if ascii {
		return &ast.Ascii{Values: values, Pos: startPos}, nil
	}
	return &ast.Print{Values: values, Pos: startPos}, nil
}

// assignOrExpr parses an expression statement without consuming a
// trailing `;`, desugaring a following assignment/augmented-assignment
// operator per spec §4.2. Shared by ordinary statements and for-loop
// clauses.
func (p *Parser) assignOrExpr() (ast.Node, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !token.AssignmentOperators[p.peek().TokenType] {
		return expr, nil
	}
	opTok := p.advance()
	rhs, err := p.expression()
	if err != nil {
		return nil, err
	}
	if opTok.TokenType != token.ASSIGN {
		base := token.Unaugmented[opTok.TokenType]
		rhs = &ast.Binary{Op: base, Left: expr, Right: rhs, Pos: opTok.Pos}
	}

	switch target := expr.(type) {
	case *ast.VarAccess:
		return &ast.VarReassign{Name: target.Name, RHS: rhs, Pos: target.Pos}, nil
	case *ast.Index:
		return &ast.IndexAssign{Array: target.Array, Idx: target.Idx, RHS: rhs, Pos: target.Pos}, nil
	case *ast.DerefExpr:
		return &ast.DerefAssign{Pointer: target.Operand, RHS: rhs, Pos: target.Pos}, nil
	default:
		return nil, ezerr.New(ezerr.SyntaxError, toPos(opTok.Pos), "invalid assignment target")
	}
}

func (p *Parser) exprOrAssignStatement() (ast.Node, error) {
	node, err := p.assignOrExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EOL, "expected ';' after statement"); err != nil {
		return nil, err
	}
	return node, nil
}

// --- expressions: expression -> ternary -> logical -> comparison ->
// bitwise -> additive -> multiplicative -> unary -> power -> cast ->
// postfix -> atom ---

func (p *Parser) expression() (ast.Node, error) {
	return p.ternary()
}

func (p *Parser) ternary() (ast.Node, error) {
	cond, err := p.logical()
	if err != nil {
		return nil, err
	}
	if !p.match(token.QMARK) {
		return cond, nil
	}
	then, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.COLON, "expected ':' in ternary expression"); err != nil {
		return nil, err
	}
	els, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.Ternary{Cond: cond, Then: then, Else: els, Pos: cond.Position()}, nil
}

func (p *Parser) logical() (ast.Node, error) {
	return p.binaryLeft(p.comparison, token.LAND, token.LOR, token.LXOR)
}

func (p *Parser) comparison() (ast.Node, error) {
	return p.binaryLeft(p.bitwise, token.EQ, token.NEQ, token.LT, token.GT, token.LE, token.GE)
}

func (p *Parser) bitwise() (ast.Node, error) {
	return p.binaryLeft(p.additive, token.BAND, token.BOR, token.BXOR, token.SHL, token.SHR)
}

func (p *Parser) additive() (ast.Node, error) {
	return p.binaryLeft(p.multiplicative, token.ADD, token.SUB)
}

func (p *Parser) multiplicative() (ast.Node, error) {
	return p.binaryLeft(p.unary, token.MUL, token.DIV, token.MOD)
}

// binaryLeft implements one left-associative precedence level: parse
// next, then while the current token is one of ops, consume it and fold
// in another next().
func (p *Parser) binaryLeft(next func() (ast.Node, error), ops ...token.TokenType) (ast.Node, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for p.match(ops...) {
		opTok := p.previous()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Op: opTok.TokenType, Left: expr, Right: right, Pos: opTok.Pos}
	}
	return expr, nil
}

func (p *Parser) unary() (ast.Node, error) {
	if p.match(token.SUB, token.BNOT, token.LNOT, token.INC, token.DEC) {
		opTok := p.previous()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: opTok.TokenType, Operand: operand, Pos: opTok.Pos}, nil
	}
	if p.match(token.BAND) {
		opTok := p.previous()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.RefExpr{Operand: operand, Pos: opTok.Pos}, nil
	}
	if p.match(token.MUL) {
		opTok := p.previous()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.DerefExpr{Operand: operand, Pos: opTok.Pos}, nil
	}
	return p.power()
}

// power is right-associative: `2 ** 3 ** 2` == `2 ** (3 ** 2)`.
func (p *Parser) power() (ast.Node, error) {
	base, err := p.cast()
	if err != nil {
		return nil, err
	}
	if p.match(token.POW) {
		opTok := p.previous()
		exponent, err := p.power()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: opTok.TokenType, Left: base, Right: exponent, Pos: opTok.Pos}, nil
	}
	return base, nil
}

// cast handles the postfix `expr as Type` conversion, which may chain:
// `x as int as bool`.
func (p *Parser) cast() (ast.Node, error) {
	expr, err := p.postfix()
	if err != nil {
		return nil, err
	}
	for p.matchKeyword("as") {
		opTok := p.previous()
		target, err := p.parseType()
		if err != nil {
			return nil, err
		}
		expr = &ast.Convert{Operand: expr, Target: target, Pos: opTok.Pos}
	}
	return expr, nil
}

// postfix handles `.field` and `[index]` chains following an atom.
func (p *Parser) postfix() (ast.Node, error) {
	expr, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(token.DOT):
			fieldTok, err := p.consume(token.IDENTIFIER, "expected a field name after '.'")
			if err != nil {
				return nil, err
			}
			expr = &ast.AttrAccess{Base: expr, Field: fieldTok.Lexeme, Pos: fieldTok.Pos}
		case p.match(token.LSQUARE):
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.RSQUARE, "expected ']' after index"); err != nil {
				return nil, err
			}
			expr = &ast.Index{Array: expr, Idx: idx, Pos: expr.Position()}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) atom() (ast.Node, error) {
	tok := p.peek()
	switch {
	case p.match(token.INT):
		lit := p.previous()
		return &ast.NumberLiteral{Value: lit.Literal.(int8), Pos: lit.Pos}, nil
	case p.matchKeyword("true"):
		return &ast.BoolLiteral{Value: true, Pos: p.previous().Pos}, nil
	case p.matchKeyword("false"):
		return &ast.BoolLiteral{Value: false, Pos: p.previous().Pos}, nil
	case p.match(token.CHAR):
		lit := p.previous()
		return &ast.CharLiteral{Value: lit.Literal.(byte), Pos: lit.Pos}, nil
	case p.match(token.STRING):
		lit := p.previous()
		return &ast.StringLiteral{Value: lit.Literal.(string), Pos: lit.Pos}, nil
	case p.matchKeyword("ezin"):
		return &ast.Input{Pos: p.previous().Pos}, nil
	case p.match(token.LSQUARE):
		return p.arrayLiteral()
	case p.match(token.LPAREN):
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "expected ')' after expression"); err != nil {
			return nil, err
		}
		return inner, nil
	case p.match(token.IDENTIFIER):
		nameTok := p.previous()
		if p.check(token.LPAREN) {
			return p.call(nameTok)
		}
		if p.check(token.LCURLY) {
			return p.structConstructor(nameTok)
		}
		p.current.ResolveVariable(nameTok.Lexeme, nameTok.Pos)
		return &ast.VarAccess{Name: nameTok.Lexeme, Pos: nameTok.Pos}, nil
	default:
		return nil, ezerr.New(ezerr.SyntaxError, toPos(tok.Pos), "unexpected token %q", tok.Lexeme)
	}
}

func (p *Parser) arrayLiteral() (ast.Node, error) {
	startPos := p.previous().Pos
	var elems []ast.Node
	if !p.check(token.RSQUARE) {
		for {
			el, err := p.expression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, el)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RSQUARE, "expected ']' after array literal"); err != nil {
		return nil, err
	}
	return &ast.ArrayLiteral{Elements: elems, Pos: startPos}, nil
}

func (p *Parser) call(nameTok token.Token) (ast.Node, error) {
	p.advance() // consume '('
	var args []ast.Node
	if !p.check(token.RPAREN) {
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after call arguments"); err != nil {
		return nil, err
	}
	p.current.ResolveFunction(nameTok.Lexeme, nameTok.Pos)
	return &ast.Call{Name: nameTok.Lexeme, Args: args, Pos: nameTok.Pos}, nil
}

func (p *Parser) structConstructor(nameTok token.Token) (ast.Node, error) {
	p.advance() // consume '{'
	p.current.ResolveStruct(nameTok.Lexeme, nameTok.Pos)
	fieldVals := make(map[string]ast.Node)
	var order []string
	if !p.check(token.RCURLY) {
		for {
			fieldTok, err := p.consume(token.IDENTIFIER, "expected a field name")
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.COLON, "expected ':' after field name"); err != nil {
				return nil, err
			}
			val, err := p.expression()
			if err != nil {
				return nil, err
			}
			fieldVals[fieldTok.Lexeme] = val
			order = append(order, fieldTok.Lexeme)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RCURLY, "expected '}' after struct constructor"); err != nil {
		return nil, err
	}
	return &ast.StructConstructor{StructName: nameTok.Lexeme, FieldVals: fieldVals, FieldOrder: order, Pos: nameTok.Pos}, nil
}
