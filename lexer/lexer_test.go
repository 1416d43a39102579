package lexer

import (
	"reflect"
	"testing"

	"ezc/ezerr"
	"ezc/token"
)

func typesOf(toks []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.TokenType
	}
	return out
}

func TestOperatorsSuccess(t *testing.T) {
	expected := []token.TokenType{
		token.EQ, token.DIV_ASSIGN, token.MUL, token.ADD, token.GT,
		token.SUB, token.LT, token.NEQ, token.LE, token.GE, token.LNOT,
		token.EOF,
	}
	scanner := New("test.ez", "==/=*+>-<!=<=>=!")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	if !reflect.DeepEqual(typesOf(got), expected) {
		t.Errorf("Scan() types = %v, want %v", typesOf(got), expected)
	}
}

func TestPunctuationSuccess(t *testing.T) {
	expected := []token.TokenType{
		token.LPAREN, token.RPAREN, token.LCURLY, token.RCURLY,
		token.POW, token.EOL, token.ADD, token.NEQ, token.LE, token.EOF,
	}
	scanner := New("test.ez", "(){}**;+!=<=")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	if !reflect.DeepEqual(typesOf(got), expected) {
		t.Errorf("Scan() types = %v, want %v", typesOf(got), expected)
	}
}

func TestAugmentedAssignment(t *testing.T) {
	expected := []token.TokenType{
		token.ADD_ASSIGN, token.SUB_ASSIGN, token.MUL_ASSIGN, token.DIV_ASSIGN,
		token.SHL_ASSIGN, token.SHR_ASSIGN, token.EOF,
	}
	scanner := New("test.ez", "+= -= *= /= <<= >>=")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	if !reflect.DeepEqual(typesOf(got), expected) {
		t.Errorf("Scan() types = %v, want %v", typesOf(got), expected)
	}
}

func TestKeywordVsIdentifier(t *testing.T) {
	got, err := New("test.ez", "if myVar return").Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	want := []token.TokenType{token.KEYWORD, token.IDENTIFIER, token.KEYWORD, token.EOF}
	if !reflect.DeepEqual(typesOf(got), want) {
		t.Errorf("Scan() types = %v, want %v", typesOf(got), want)
	}
	if got[1].Lexeme != "myVar" {
		t.Errorf("identifier lexeme = %q, want %q", got[1].Lexeme, "myVar")
	}
}

func TestIntLiteral(t *testing.T) {
	got, err := New("test.ez", "42").Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	if got[0].TokenType != token.INT || got[0].Literal != int8(42) {
		t.Errorf("got %v, want INT literal 42", got[0])
	}
}

func TestIntLiteralOverflow(t *testing.T) {
	_, err := New("test.ez", "200").Scan()
	if err == nil {
		t.Fatalf("expected an overflow error for a literal larger than int8, got none")
	}
	ezErr, ok := err.(*ezerr.Error)
	if !ok {
		t.Fatalf("got error of type %T, want *ezerr.Error", err)
	}
	if ezErr.Kind != ezerr.NumberTooLarge {
		t.Errorf("got Kind %v, want NumberTooLarge", ezErr.Kind)
	}
}

func TestCharLiteral(t *testing.T) {
	got, err := New("test.ez", "'a'").Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	if got[0].TokenType != token.CHAR || got[0].Literal != byte('a') {
		t.Errorf("got %v, want CHAR literal 'a'", got[0])
	}
}

func TestCharLiteralEscape(t *testing.T) {
	got, err := New("test.ez", `'\n'`).Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	if got[0].TokenType != token.CHAR || got[0].Literal != byte('\n') {
		t.Errorf("got %v, want CHAR literal '\\n'", got[0])
	}
}

func TestStringLiteral(t *testing.T) {
	got, err := New("test.ez", `"path/to/file.ez"`).Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	if got[0].TokenType != token.STRING || got[0].Literal != "path/to/file.ez" {
		t.Errorf("got %v, want STRING literal", got[0])
	}
}

func TestPreprocessorDirective(t *testing.T) {
	got, err := New("test.ez", `!use "lib.ez"`).Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	want := []token.TokenType{token.PREPROCESSOR, token.STRING, token.EOF}
	if !reflect.DeepEqual(typesOf(got), want) {
		t.Errorf("Scan() types = %v, want %v", typesOf(got), want)
	}
	if got[0].Lexeme != "use" {
		t.Errorf("directive lexeme = %q, want %q", got[0].Lexeme, "use")
	}
}

func TestLineComment(t *testing.T) {
	got, err := New("test.ez", "1 // trailing comment\n2").Scan()
	if err != nil {
		t.Fatalf("Scan() raised an error: %v", err)
	}
	want := []token.TokenType{token.INT, token.INT, token.EOF}
	if !reflect.DeepEqual(typesOf(got), want) {
		t.Errorf("Scan() types = %v, want %v", typesOf(got), want)
	}
}

func TestUnterminatedStringError(t *testing.T) {
	_, err := New("test.ez", `"unterminated`).Scan()
	if err == nil {
		t.Fatalf("expected an error for an unterminated string literal")
	}
	ezErr, ok := err.(*ezerr.Error)
	if !ok {
		t.Fatalf("got error of type %T, want *ezerr.Error", err)
	}
	if ezErr.Kind != ezerr.InvalidLiteral {
		t.Errorf("got Kind %v, want InvalidLiteral", ezErr.Kind)
	}
}

func TestIllegalCharacterError(t *testing.T) {
	_, err := New("test.ez", "@").Scan()
	if err == nil {
		t.Fatalf("expected an error for an illegal character")
	}
	ezErr, ok := err.(*ezerr.Error)
	if !ok {
		t.Fatalf("got error of type %T, want *ezerr.Error", err)
	}
	if ezErr.Kind != ezerr.SyntaxError {
		t.Errorf("got Kind %v, want SyntaxError", ezErr.Kind)
	}
}

func TestUnknownPreprocessorDirectiveErrorKind(t *testing.T) {
	_, err := New("test.ez", "!bogus").Scan()
	if err == nil {
		t.Fatalf("expected an error for an unknown preprocessor directive")
	}
	ezErr, ok := err.(*ezerr.Error)
	if !ok {
		t.Fatalf("got error of type %T, want *ezerr.Error", err)
	}
	if ezErr.Kind != ezerr.SyntaxError {
		t.Errorf("got Kind %v, want SyntaxError", ezErr.Kind)
	}
}

func TestUnterminatedCharLiteralErrorKind(t *testing.T) {
	_, err := New("test.ez", "'a").Scan()
	if err == nil {
		t.Fatalf("expected an error for an unterminated character literal")
	}
	ezErr, ok := err.(*ezerr.Error)
	if !ok {
		t.Fatalf("got error of type %T, want *ezerr.Error", err)
	}
	if ezErr.Kind != ezerr.InvalidLiteral {
		t.Errorf("got Kind %v, want InvalidLiteral", ezErr.Kind)
	}
}
