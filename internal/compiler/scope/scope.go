// Package scope implements nested name resolution: a tree of scopes rooted
// at the module, each holding a values namespace and a separate types
// namespace, with climbing lookup. Per the Design Notes, the scope stack is
// an explicit value threaded through checker calls rather than ambient
// state mutated by push/pop on a receiver.
package scope

import "github.com/kei-lang/kei/internal/compiler/types"

// SymbolKind discriminates what a name in the values namespace refers to.
type SymbolKind int

const (
	SymType SymbolKind = iota
	SymFunction
	SymVariable
	SymModule
)

// Overload is one signature of an overloaded function symbol.
type Overload struct {
	Type *types.Type // KFunction
	Decl interface{} // *ast.Function or *ast.ExternFunction; kept opaque to avoid an import cycle
}

// Symbol is an entry in a scope's values or types namespace.
type Symbol struct {
	Name  string
	Kind  SymbolKind
	Type  *types.Type

	// Function: every overload sharing this name.
	Overloads []*Overload

	// Variable.
	IsMut  bool
	Moved  bool
	Decl   interface{}
}

// Scope is one node in the lexical scope tree.
type Scope struct {
	parent *Scope
	values map[string]*Symbol
	types  map[string]*Symbol

	IsInsideUnsafe bool
	IsInsideLoop   bool

	// Enclosing function context, empty at module scope.
	FuncReturnType *types.Type
	FuncThrows     []*types.Type
}

// New creates a root scope with no parent.
func New() *Scope {
	return &Scope{values: map[string]*Symbol{}, types: map[string]*Symbol{}}
}

// Child creates a new scope nested under s, inheriting unsafe/loop/function
// context unless the caller overrides it afterward.
func (s *Scope) Child() *Scope {
	return &Scope{
		parent:         s,
		values:         map[string]*Symbol{},
		types:          map[string]*Symbol{},
		IsInsideUnsafe: s.IsInsideUnsafe,
		IsInsideLoop:   s.IsInsideLoop,
		FuncReturnType: s.FuncReturnType,
		FuncThrows:     s.FuncThrows,
	}
}

// Parent returns the enclosing scope, or nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Define adds a value symbol (variable or module) to this scope, overwriting
// any prior entry of the same name in this scope only.
func (s *Scope) Define(sym *Symbol) { s.values[sym.Name] = sym }

// DefineType adds a type symbol to this scope's type namespace.
func (s *Scope) DefineType(sym *Symbol) { s.types[sym.Name] = sym }

// DeclareFunction adds name as an overload of the existing function symbol
// in this scope, creating it if absent. It reports false if ov's signature
// duplicates an existing overload (a duplicate declaration error).
func (s *Scope) DeclareFunction(name string, ov *Overload) bool {
	sym, ok := s.values[name]
	if !ok {
		sym = &Symbol{Name: name, Kind: SymFunction}
		s.values[name] = sym
	}
	for _, existing := range sym.Overloads {
		if types.TypesEqual(existing.Type, ov.Type) {
			return false
		}
	}
	sym.Overloads = append(sym.Overloads, ov)
	return true
}

// Lookup climbs parents looking up a value-namespace name.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.values[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupType climbs parents looking up a type-namespace name.
func (s *Scope) LookupType(name string) (*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.types[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal looks up name only in this scope, without climbing parents.
// Used by the checker to detect shadowing-vs-redeclaration within one block.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.values[name]
	return sym, ok
}

// MarkMoved marks the variable symbol in the nearest enclosing scope that
// declares name as moved.
func (s *Scope) MarkMoved(name string) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.values[name]; ok {
			sym.Moved = true
			return
		}
	}
}
