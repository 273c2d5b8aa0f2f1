package scope

import (
	"testing"

	"github.com/kei-lang/kei/internal/compiler/types"
)

func TestDefineAndLookup(t *testing.T) {
	s := New()
	s.Define(&Symbol{Name: "x", Kind: SymVariable, Type: types.Int(32, true)})
	sym, ok := s.Lookup("x")
	if !ok {
		t.Fatal("expected to find 'x'")
	}
	if sym.Type.Kind != types.KInt {
		t.Errorf("x's type kind = %v, want KInt", sym.Type.Kind)
	}
	if _, ok := s.Lookup("y"); ok {
		t.Error("expected 'y' to be undeclared")
	}
}

func TestLookupClimbsParents(t *testing.T) {
	root := New()
	root.Define(&Symbol{Name: "outer", Kind: SymVariable, Type: types.BoolType})
	child := root.Child()
	child.Define(&Symbol{Name: "inner", Kind: SymVariable, Type: types.StringType})

	if _, ok := child.Lookup("outer"); !ok {
		t.Error("child scope should see a parent's definition")
	}
	if _, ok := root.Lookup("inner"); ok {
		t.Error("parent scope should not see a child's definition")
	}
}

func TestLookupLocalDoesNotClimb(t *testing.T) {
	root := New()
	root.Define(&Symbol{Name: "shared", Kind: SymVariable})
	child := root.Child()

	if _, ok := child.LookupLocal("shared"); ok {
		t.Error("LookupLocal should not climb to the parent scope")
	}
	if _, ok := child.Lookup("shared"); !ok {
		t.Error("Lookup should still climb to the parent scope")
	}
}

func TestChildInheritsFunctionAndModeContext(t *testing.T) {
	root := New()
	root.IsInsideUnsafe = true
	root.IsInsideLoop = true
	root.FuncReturnType = types.BoolType
	root.FuncThrows = []*types.Type{types.StringType}

	child := root.Child()
	if !child.IsInsideUnsafe || !child.IsInsideLoop {
		t.Error("child scope should inherit unsafe/loop context")
	}
	if child.FuncReturnType != root.FuncReturnType {
		t.Error("child scope should inherit the enclosing function's return type")
	}
	if len(child.FuncThrows) != 1 {
		t.Error("child scope should inherit the enclosing function's throws set")
	}
}

func TestDeclareFunctionOverloadsAndDuplicates(t *testing.T) {
	s := New()
	oneArg := &Overload{Type: &types.Type{Kind: types.KFunction, Params: []types.Param{{Type: types.Int(32, true)}}, Return: types.VoidType}}
	twoArg := &Overload{Type: &types.Type{Kind: types.KFunction, Params: []types.Param{{Type: types.Int(32, true)}, {Type: types.Int(32, true)}}, Return: types.VoidType}}

	if ok := s.DeclareFunction("f", oneArg); !ok {
		t.Fatal("first declaration of 'f' should succeed")
	}
	if ok := s.DeclareFunction("f", twoArg); !ok {
		t.Fatal("a distinct overload of 'f' should succeed")
	}
	dup := &Overload{Type: &types.Type{Kind: types.KFunction, Params: []types.Param{{Type: types.Int(32, true)}}, Return: types.VoidType}}
	if ok := s.DeclareFunction("f", dup); ok {
		t.Error("re-declaring an identical signature should be rejected")
	}

	sym, ok := s.Lookup("f")
	if !ok || len(sym.Overloads) != 2 {
		t.Fatalf("expected 'f' to have 2 distinct overloads, got %+v", sym)
	}
}

func TestMarkMovedFindsDeclaringScope(t *testing.T) {
	root := New()
	root.Define(&Symbol{Name: "v", Kind: SymVariable})
	child := root.Child()

	child.MarkMoved("v")

	sym, _ := root.Lookup("v")
	if !sym.Moved {
		t.Error("MarkMoved should mark the symbol in the scope where it was actually declared")
	}
}

func TestDefineTypeSeparateNamespace(t *testing.T) {
	s := New()
	s.Define(&Symbol{Name: "Point", Kind: SymVariable, Type: types.Int(32, true)})
	s.DefineType(&Symbol{Name: "Point", Kind: SymType, Type: &types.Type{Kind: types.KStruct, Name: "Point"}})

	val, ok := s.Lookup("Point")
	if !ok || val.Type.Kind != types.KInt {
		t.Error("value namespace lookup of 'Point' should find the variable, not the type")
	}
	typ, ok := s.LookupType("Point")
	if !ok || typ.Type.Kind != types.KStruct {
		t.Error("type namespace lookup of 'Point' should find the struct type")
	}
}
