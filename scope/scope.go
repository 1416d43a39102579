// Package scope implements the two lexical-tracking structures the
// pipeline needs: a parser-time Scope record tree (declarations and
// unresolved references, discarded before codegen) and a codegen-time
// Environment (identifier -> value.Value, with a parent chain), used by
// the code generator to keep its variable bindings.
//
// The teacher's interpreter.Environment was a single flat
// map[string]any with no parent chain; EZ's block-scoped variable
// environment needs lexical lookup through enclosing blocks, so
// Environment below generalizes that shape with a Parent pointer.
package scope

import "ezc/token"

// Unresolved records a reference to a name that could not be resolved in
// the scope where it was encountered, pending the fix-up pass.
type Unresolved struct {
	Name string
	Pos  token.Position
}

// Scope is a parser-time tree node carrying everything the parser learns
// about one lexical block: what it declares, and what it refers to that
// it could not resolve locally (those bubble up to be checked against
// ancestors once parsing finishes).
type Scope struct {
	Parent   *Scope
	Children []*Scope

	Variables map[string]token.Position
	Functions map[string]token.Position
	Structs   map[string]token.Position

	UnresolvedVars   []Unresolved
	UnresolvedFuncs  []Unresolved
	UnresolvedStructs []Unresolved
}

// New creates a root scope (parent == nil) or a child of parent.
func New(parent *Scope) *Scope {
	s := &Scope{
		Parent:    parent,
		Variables: make(map[string]token.Position),
		Functions: make(map[string]token.Position),
		Structs:   make(map[string]token.Position),
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// DeclareVariable records a variable declaration in this scope. ok is
// false if name is already declared directly in this scope (a
// Redefinition).
func (s *Scope) DeclareVariable(name string, pos token.Position) bool {
	if _, exists := s.Variables[name]; exists {
		return false
	}
	s.Variables[name] = pos
	return true
}

func (s *Scope) DeclareFunction(name string, pos token.Position) bool {
	if _, exists := s.Functions[name]; exists {
		return false
	}
	s.Functions[name] = pos
	return true
}

func (s *Scope) DeclareStruct(name string, pos token.Position) bool {
	if _, exists := s.Structs[name]; exists {
		return false
	}
	s.Structs[name] = pos
	return true
}

// ResolveVariable walks s and its ancestors looking for name. If it is
// not found anywhere, the reference is recorded as unresolved on s so the
// final fix-up pass can report it.
func (s *Scope) ResolveVariable(name string, pos token.Position) bool {
	for cur := s; cur != nil; cur = cur.Parent {
		if _, ok := cur.Variables[name]; ok {
			return true
		}
	}
	s.UnresolvedVars = append(s.UnresolvedVars, Unresolved{Name: name, Pos: pos})
	return false
}

func (s *Scope) ResolveFunction(name string, pos token.Position) bool {
	for cur := s; cur != nil; cur = cur.Parent {
		if _, ok := cur.Functions[name]; ok {
			return true
		}
	}
	s.UnresolvedFuncs = append(s.UnresolvedFuncs, Unresolved{Name: name, Pos: pos})
	return false
}

func (s *Scope) ResolveStruct(name string, pos token.Position) bool {
	for cur := s; cur != nil; cur = cur.Parent {
		if _, ok := cur.Structs[name]; ok {
			return true
		}
	}
	s.UnresolvedStructs = append(s.UnresolvedStructs, Unresolved{Name: name, Pos: pos})
	return false
}

// FixUp re-walks the scope tree bottom-up, re-checking every reference
// this scope recorded as unresolved against ancestors that may have
// gained declarations after the reference was first recorded (scopes are
// built depth-first, so a later sibling's declaration can resolve an
// earlier one only through the shared parent, never forward into a
// sibling — this pass simply confirms nothing still dangles once the
// whole tree exists). It returns every reference still unresolved once
// fixed up.
func (s *Scope) FixUp() (vars, funcs, structs []Unresolved) {
	for _, u := range s.UnresolvedVars {
		if !resolvesInAncestors(s, u.Name, func(sc *Scope, n string) bool { _, ok := sc.Variables[n]; return ok }) {
			vars = append(vars, u)
		}
	}
	for _, u := range s.UnresolvedFuncs {
		if !resolvesInAncestors(s, u.Name, func(sc *Scope, n string) bool { _, ok := sc.Functions[n]; return ok }) {
			funcs = append(funcs, u)
		}
	}
	for _, u := range s.UnresolvedStructs {
		if !resolvesInAncestors(s, u.Name, func(sc *Scope, n string) bool { _, ok := sc.Structs[n]; return ok }) {
			structs = append(structs, u)
		}
	}
	for _, child := range s.Children {
		cv, cf, cs := child.FixUp()
		vars = append(vars, cv...)
		funcs = append(funcs, cf...)
		structs = append(structs, cs...)
	}
	return vars, funcs, structs
}

func resolvesInAncestors(s *Scope, name string, found func(*Scope, string) bool) bool {
	for cur := s; cur != nil; cur = cur.Parent {
		if found(cur, name) {
			return true
		}
	}
	return false
}
