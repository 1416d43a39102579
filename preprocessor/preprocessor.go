// Package preprocessor rewrites a token stream before it reaches the
// parser: file inclusion (`use`), token-level macro replacement
// (`replace`), and conditional compilation (`declare`/`ifdeclared`/
// `else`/`endif`/`error`).
//
// This is grounded closely on the upstream language's preprocessor: a
// single left-to-right cursor over a mutable token slice, splicing and
// draining in place rather than building a second output buffer.
package preprocessor

import (
	"os"

	"ezc/ezerr"
	"ezc/lexer"
	"ezc/token"
)

// ReadFile abstracts filesystem access for `use`, so tests can inject an
// in-memory filesystem without touching disk.
type ReadFile func(path string) (string, error)

func defaultReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

// ifFrame tracks one nested `ifdeclared` region. active means the
// currently-live branch is being kept; when !active, dropFrom records the
// token index the dropped branch began at (so else/endif know how much
// to delete).
type ifFrame struct {
	active   bool
	dropFrom int
}

// Process runs the full preprocessor over tokens, returning the rewritten
// stream (always still EOF-terminated) or the first ezerr.Error
// encountered.
func Process(tokens []token.Token, read ReadFile) ([]token.Token, error) {
	if read == nil {
		read = defaultReadFile
	}
	declared := make(map[string]bool)
	var ifs []ifFrame

	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if tok.TokenType != token.PREPROCESSOR {
			i++
			continue
		}

		switch tok.Lexeme {
		case "use":
			next, err := argAt(tokens, i, "Expected a filename after `use`")
			if err != nil {
				return nil, err
			}
			var path string
			switch next.TokenType {
			case token.STRING:
				path = next.Literal.(string)
			case token.IDENTIFIER:
				path = next.Lexeme + ".ez"
			default:
				return nil, ezerr.New(ezerr.SyntaxError, pos(next.Pos), "Expected a filename after `use`")
			}
			contents, err := read(path)
			if err != nil {
				return nil, ezerr.New(ezerr.FileNotFound, pos(next.Pos), "Could not find file `%s` (%v)", path, err)
			}
			newToks, lerr := lexer.New(path, contents).Scan()
			if lerr != nil {
				return nil, lerr
			}
			newToks = newToks[:len(newToks)-1] // drop the included file's EOF
			tokens = splice(tokens, i, i+2, newToks)

		case "replace":
			find, err := argAt(tokens, i, "Expected find element `replace`")
			if err != nil {
				return nil, err
			}
			replaceTok, err := argAtOffset(tokens, i, 2, "Expected replace element `replace`")
			if err != nil {
				return nil, err
			}
			var replacement []token.Token
			if replaceTok.TokenType == token.STRING {
				lexed, lerr := lexer.New("<replace>", replaceTok.Literal.(string)).Scan()
				if lerr != nil {
					return nil, lerr
				}
				replacement = lexed[:len(lexed)-1]
			} else {
				replacement = []token.Token{replaceTok}
			}
			tokens = drain(tokens, i, i+3)
			rewritten := make([]token.Token, 0, len(tokens))
			for _, t := range tokens {
				if t.Equal(find) {
					rewritten = append(rewritten, replacement...)
				} else {
					rewritten = append(rewritten, t)
				}
			}
			tokens = rewritten

		case "declare":
			next, err := argAt(tokens, i, "Expected an identifier after `declare`")
			if err != nil {
				return nil, err
			}
			if next.TokenType != token.IDENTIFIER {
				return nil, ezerr.New(ezerr.SyntaxError, pos(next.Pos), "Expected an identifier after `declare`")
			}
			declared[next.Lexeme] = true
			tokens = drain(tokens, i, i+2)

		case "ifdeclared":
			next, err := argAt(tokens, i, "Expected an identifier after `ifdeclared`")
			if err != nil {
				return nil, err
			}
			if next.TokenType != token.IDENTIFIER {
				return nil, ezerr.New(ezerr.SyntaxError, pos(next.Pos), "Expected an identifier after `ifdeclared`")
			}
			tokens = drain(tokens, i, i+2)
			ifs = append(ifs, ifFrame{active: declared[next.Lexeme]})
			// i now points one past where the directive used to be; the
			// active frame needs no dropFrom, the inactive one starts
			// dropping from here.
			if !ifs[len(ifs)-1].active {
				ifs[len(ifs)-1].dropFrom = i
			}
			continue

		case "else":
			if len(ifs) == 0 {
				return nil, ezerr.New(ezerr.SyntaxError, pos(tok.Pos), "`else` without `ifdeclared`")
			}
			top := &ifs[len(ifs)-1]
			if top.active {
				tokens = drain(tokens, i, i+1)
				top.active = false
				top.dropFrom = i
				continue
			}
			tokens = drain(tokens, top.dropFrom, i+1)
			i = top.dropFrom
			top.active = true
			continue

		case "endif":
			if len(ifs) == 0 {
				return nil, ezerr.New(ezerr.SyntaxError, pos(tok.Pos), "`endif` without `ifdeclared`")
			}
			top := ifs[len(ifs)-1]
			ifs = ifs[:len(ifs)-1]
			if top.active {
				tokens = drain(tokens, i, i+1)
			} else {
				tokens = drain(tokens, top.dropFrom, i+1)
				i = top.dropFrom
			}
			continue

		case "error":
			msg, err := argAt(tokens, i, "Expected an error message after `error`")
			if err != nil {
				return nil, err
			}
			if msg.TokenType != token.STRING {
				return nil, ezerr.New(ezerr.SyntaxError, pos(msg.Pos), "Expected an error message after `error`")
			}
			active := len(ifs) == 0 || ifs[len(ifs)-1].active
			tokens = drain(tokens, i, i+2)
			if active {
				return nil, ezerr.New(ezerr.PreprocessorError, pos(msg.Pos), "%s", msg.Literal.(string))
			}
		}
	}

	if len(ifs) > 0 {
		last := token.Position{}
		if len(tokens) > 0 {
			last = tokens[len(tokens)-1].Pos
		}
		return nil, ezerr.New(ezerr.SyntaxError, pos(last), "No `endif` after `ifdeclared`")
	}

	return tokens, nil
}

func argAt(tokens []token.Token, i int, msg string) (token.Token, error) {
	return argAtOffset(tokens, i, 1, msg)
}

func argAtOffset(tokens []token.Token, i, offset int, msg string) (token.Token, error) {
	if i+offset >= len(tokens) {
		at := token.Position{}
		if len(tokens) > 0 {
			at = tokens[i].Pos
		}
		return token.Token{}, ezerr.New(ezerr.SyntaxError, pos(at), msg)
	}
	return tokens[i+offset], nil
}

// splice replaces tokens[from:to] with repl, mirroring Rust's
// Vec::splice.
func splice(tokens []token.Token, from, to int, repl []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens)-(to-from)+len(repl))
	out = append(out, tokens[:from]...)
	out = append(out, repl...)
	out = append(out, tokens[to:]...)
	return out
}

// drain removes tokens[from:to], mirroring Rust's Vec::drain.
func drain(tokens []token.Token, from, to int) []token.Token {
	return splice(tokens, from, to, nil)
}

func pos(p token.Position) ezerr.Position {
	return ezerr.Position{File: p.File, LineStart: p.LineStart, LineEnd: p.LineEnd, ColStart: p.ColStart, ColEnd: p.ColEnd}
}
