package scope

import (
	"testing"

	"ezc/token"
	"ezc/value"
)

func p() token.Position { return token.Position{File: "t.ez", LineStart: 1} }

func TestDeclareVariableRejectsRedeclaration(t *testing.T) {
	s := New(nil)
	if !s.DeclareVariable("x", p()) {
		t.Fatalf("first declaration of x should succeed")
	}
	if s.DeclareVariable("x", p()) {
		t.Fatalf("redeclaring x in the same scope should fail")
	}
}

func TestResolveVariableWalksAncestors(t *testing.T) {
	root := New(nil)
	root.DeclareVariable("x", p())
	child := New(root)
	if !child.ResolveVariable("x", p()) {
		t.Fatalf("x declared in an ancestor scope should resolve")
	}
	if len(child.UnresolvedVars) != 0 {
		t.Errorf("a resolved reference should not be recorded as unresolved")
	}
}

func TestResolveVariableRecordsUnresolved(t *testing.T) {
	root := New(nil)
	if root.ResolveVariable("missing", p()) {
		t.Fatalf("an undeclared name should not resolve")
	}
	if len(root.UnresolvedVars) != 1 || root.UnresolvedVars[0].Name != "missing" {
		t.Fatalf("expected one unresolved reference to `missing`")
	}
}

func TestFixUpResolvesAgainstSiblingsDeclaredLaterViaSharedParent(t *testing.T) {
	root := New(nil)
	childA := New(root)
	childA.ResolveVariable("late", p())
	root.DeclareVariable("late", p())

	vars, funcs, structs := root.FixUp()
	if len(vars) != 0 {
		t.Errorf("got %d still-unresolved vars, want 0 (declared in the shared parent before FixUp)", len(vars))
	}
	if len(funcs) != 0 || len(structs) != 0 {
		t.Errorf("expected no unresolved funcs/structs")
	}
}

func TestFixUpReportsStillDanglingReferences(t *testing.T) {
	root := New(nil)
	root.ResolveVariable("ghost", p())
	vars, _, _ := root.FixUp()
	if len(vars) != 1 || vars[0].Name != "ghost" {
		t.Fatalf("expected `ghost` to remain unresolved")
	}
}

func TestFixUpRecursesIntoChildren(t *testing.T) {
	root := New(nil)
	child := New(root)
	grandchild := New(child)
	grandchild.ResolveFunction("nope", p())
	_, funcs, _ := root.FixUp()
	if len(funcs) != 1 || funcs[0].Name != "nope" {
		t.Fatalf("expected FixUp on root to surface a grandchild's unresolved function")
	}
}

func TestEnvironmentGetWalksParents(t *testing.T) {
	root := NewEnvironment(nil)
	root.Bind("x", value.MakeNum(1))
	child := NewEnvironment(root)
	got, ok := child.Get("x")
	if !ok || got.NumVal != 1 {
		t.Fatalf("expected child to see parent's binding of x")
	}
}

func TestEnvironmentSetMutatesDeclaringFrame(t *testing.T) {
	root := NewEnvironment(nil)
	root.Bind("x", value.MakeNum(1))
	child := NewEnvironment(root)
	if !child.Set("x", value.MakeNum(2)) {
		t.Fatalf("Set on an existing outer binding should succeed")
	}
	got, _ := root.Get("x")
	if got.NumVal != 2 {
		t.Errorf("got %d, want 2 (Set should mutate the outer frame, not shadow it)", got.NumVal)
	}
}

func TestEnvironmentSetUnboundNameFails(t *testing.T) {
	root := NewEnvironment(nil)
	if root.Set("never-declared", value.MakeNum(0)) {
		t.Errorf("Set on an unbound name should fail")
	}
}
