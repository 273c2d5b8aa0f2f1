package checker

import (
	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/types"
)

// monomorphizeStruct instantiates base (a generic struct template) at
// argTypes, caching the result under its mangled name so repeated uses of
// Pair<i32, bool> share one concrete Type (spec.md §4.4, "monomorphic
// generics": each distinct instantiation produces exactly one type).
func (c *Checker) monomorphizeStruct(base *types.Type, baseName string, argTypes []*types.Type, node ast.Node) *types.Type {
	if len(argTypes) != len(base.GenericParams) {
		c.errorf(node.Span(), "'%s' takes %d type argument(s), got %d", baseName, len(base.GenericParams), len(argTypes))
		return types.ErrorType
	}

	// Self-reference inside the template's own body: `Node<T>` used within
	// `struct Node<T> { ... }` refers to the template itself, not a fresh
	// instantiation, since the args are exactly its own type parameters in
	// order.
	if isSelfReference(base, argTypes) {
		return base
	}

	mangled := types.MangleGenericName(baseName, argTypes)
	if existing, ok := c.monomorphizedStructs[mangled]; ok {
		return existing.Concrete
	}

	mapping := make(map[string]*types.Type, len(base.GenericParams))
	for i, p := range base.GenericParams {
		mapping[p] = argTypes[i]
	}

	concrete := &types.Type{
		Kind: types.KStruct, Name: mangled, IsUnsafe: base.IsUnsafe,
		GenericBase: baseName, GenericArgs: argTypes,
		Fields: map[string]*types.Type{}, Methods: map[string]*types.Type{},
		AutoDestroy: base.AutoDestroy, AutoOncopy: base.AutoOncopy,
	}

	// Register before substituting fields/methods so a self-referential
	// pointer field (`next: ptr<Node<T>>`) resolves to this same concrete
	// type instead of recursing forever.
	c.monomorphizedStructs[mangled] = &MonoStruct{
		OriginalName: baseName, TypeArgs: argTypes, Concrete: concrete,
		OriginalDecl: c.structDecls[baseName],
	}

	for _, name := range base.FieldOrder {
		concrete.Fields[name] = types.SubstituteType(base.Fields[name], mapping)
		concrete.FieldOrder = append(concrete.FieldOrder, name)
	}
	for name, mt := range base.Methods {
		concrete.Methods[name] = substituteFunctionType(mt, mapping)
	}

	return concrete
}

func isSelfReference(base *types.Type, argTypes []*types.Type) bool {
	if len(argTypes) != len(base.GenericParams) {
		return false
	}
	for i, p := range base.GenericParams {
		if argTypes[i].Kind != types.KTypeParam || argTypes[i].ParamName != p {
			return false
		}
	}
	return true
}

// substituteFunctionType rebuilds a KFunction type with mapping applied to
// every parameter, the receiver, the return type and each throws type.
// types.SubstituteType's KFunction case already does this, but methods are
// stored directly on the struct's Methods map rather than reachable through
// a parent's Fields, so it is called explicitly here for clarity at each
// monomorphization site.
func substituteFunctionType(ft *types.Type, mapping map[string]*types.Type) *types.Type {
	return types.SubstituteType(ft, mapping)
}

// monomorphizeFunction instantiates a generic free function at argTypes,
// caching the result the same way monomorphizeStruct does so repeated calls
// to identity<i32> share one mangled symbol (spec.md §4.4/§4.7.4).
func (c *Checker) monomorphizeFunction(fn *ast.Function, base *types.Type, argTypes []*types.Type, node ast.Node) (*types.Type, string) {
	mangled := types.MangleGenericName(fn.Name, argTypes)
	if existing, ok := c.monomorphizedFunctions[mangled]; ok {
		return existing.Concrete, mangled
	}
	mapping := make(map[string]*types.Type, len(fn.GenericParams))
	for i, p := range fn.GenericParams {
		if i < len(argTypes) {
			mapping[p] = argTypes[i]
		}
	}
	concrete := substituteFunctionType(base, mapping)
	c.monomorphizedFunctions[mangled] = &MonoFunction{
		OriginalName: fn.Name, TypeArgs: argTypes, Concrete: concrete,
		MangledName: mangled, Declaration: fn,
	}
	return concrete, mangled
}
