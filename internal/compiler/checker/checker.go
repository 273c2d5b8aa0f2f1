// Package checker implements Kei's semantic analyzer: name and type
// resolution, the two-tier struct/lifecycle rules, generic monomorphization,
// the throws/catch contract, move/use-after-move analysis, unsafe gating,
// and exhaustiveness checking. It runs as a sequence of phases over a
// Program and annotates it with side-tables (typeMap, genericResolutions)
// rather than mutating the AST, per the Design Notes' "side-maps keyed by
// node identity" guidance — keyed here by each node's own pointer.
package checker

import (
	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/diag"
	"github.com/kei-lang/kei/internal/compiler/scope"
	"github.com/kei-lang/kei/internal/compiler/source"
	"github.com/kei-lang/kei/internal/compiler/types"
)

// MonoStruct is one entry in the struct monomorphization cache.
type MonoStruct struct {
	OriginalName string
	TypeArgs     []*types.Type
	Concrete     *types.Type
	OriginalDecl *ast.Struct
}

// MonoFunction is one entry in the function monomorphization cache.
type MonoFunction struct {
	OriginalName string
	TypeArgs     []*types.Type
	Concrete     *types.Type
	MangledName  string
	Declaration  *ast.Function
}

// Checker holds all state accumulated while analyzing one Program: the
// module scope, the declaration tables populated during collection, and the
// monomorphization and type side-tables built while checking bodies.
type Checker struct {
	file  *source.File
	diags *diag.Channel

	module *scope.Scope

	structDecls map[string]*ast.Struct
	unsafeDecls map[string]*ast.UnsafeStruct
	enumDecls   map[string]*ast.Enum
	funcDecls   map[*ast.Function]bool // top-level functions already queued for body-checking

	// typeMap records the resolved type of every checked expression node.
	typeMap map[ast.Expr]*types.Type

	// genericResolutions records, for every monomorphized call site or
	// struct-literal site, the mangled name chosen.
	genericResolutions map[ast.Expr]string

	// methodTypes records the resolved KFunction type for every method
	// declaration, keyed by the declaration's own identity, since methods
	// (unlike free functions) are never registered as module-scope overloads.
	methodTypes map[*ast.Function]*types.Type

	monomorphizedStructs   map[string]*MonoStruct
	monomorphizedFunctions map[string]*MonoFunction

	// declOf maps a concrete or template struct type's Name back to its
	// declaring AST node, used when a method body must be checked.
	declOf map[string]ast.Decl

	hadErrors bool
}

// errType reports whether t is absent or already the error sentinel, used
// throughout checkBodies to avoid cascading diagnostics from one mistake.
func errType(t *types.Type) bool { return t == nil || t.Kind == types.KError }

// Result is the outcome of checking one Program: a populated module scope
// and the side-tables the lowerer reads, plus whether checking succeeded.
type Result struct {
	Module                 *scope.Scope
	TypeMap                map[ast.Expr]*types.Type
	GenericResolutions     map[ast.Expr]string
	MethodTypes            map[*ast.Function]*types.Type
	MonomorphizedStructs   map[string]*MonoStruct
	MonomorphizedFunctions map[string]*MonoFunction
	OK                     bool
}

// New creates a Checker over file, reporting diagnostics to diags.
func New(file *source.File, diags *diag.Channel) *Checker {
	return &Checker{
		file:                   file,
		diags:                  diags,
		module:                 scope.New(),
		structDecls:            map[string]*ast.Struct{},
		unsafeDecls:            map[string]*ast.UnsafeStruct{},
		enumDecls:              map[string]*ast.Enum{},
		funcDecls:              map[*ast.Function]bool{},
		typeMap:                map[ast.Expr]*types.Type{},
		genericResolutions:     map[ast.Expr]string{},
		methodTypes:            map[*ast.Function]*types.Type{},
		monomorphizedStructs:   map[string]*MonoStruct{},
		monomorphizedFunctions: map[string]*MonoFunction{},
		declOf:                 map[string]ast.Decl{},
	}
}

// Check runs every phase of spec.md §4.7 over prog and returns the result.
func Check(file *source.File, diags *diag.Channel, prog *ast.Program) *Result {
	c := New(file, diags)
	c.collectDeclarations(prog)
	c.validateStructShapes()
	c.checkBodies(prog)
	return &Result{
		Module:                 c.module,
		TypeMap:                c.typeMap,
		GenericResolutions:     c.genericResolutions,
		MethodTypes:            c.methodTypes,
		MonomorphizedStructs:   c.monomorphizedStructs,
		MonomorphizedFunctions: c.monomorphizedFunctions,
		OK:                     !diags.HasErrors(),
	}
}

func (c *Checker) errorf(span source.Span, format string, args ...interface{}) {
	c.diags.Errorf(c.file, span, format, args...)
	c.hadErrors = true
}

// primitiveType maps a primitive/collection-keyword lexeme used bare (no
// type arguments) to its semantic Type, per spec.md §4.1's keyword set.
func primitiveType(name string) (*types.Type, bool) {
	switch name {
	case "int":
		return types.Int(64, true), true
	case "uint":
		return types.Int(64, false), true
	case "i8":
		return types.Int(8, true), true
	case "i16":
		return types.Int(16, true), true
	case "i32":
		return types.Int(32, true), true
	case "i64":
		return types.Int(64, true), true
	case "u8":
		return types.Int(8, false), true
	case "u16":
		return types.Int(16, false), true
	case "u32":
		return types.Int(32, false), true
	case "u64":
		return types.Int(64, false), true
	case "isize":
		return types.Int(64, true), true
	case "usize":
		return types.Int(64, false), true
	case "byte":
		return types.Int(8, false), true
	case "short":
		return types.Int(16, true), true
	case "long":
		return types.Int(64, true), true
	case "f32", "float":
		return types.Float(32), true
	case "f64", "double":
		return types.Float(64), true
	case "bool":
		return types.BoolType, true
	case "string":
		return types.StringType, true
	case "void":
		return types.VoidType, true
	}
	return nil, false
}

// resolveTypeExpr converts a syntactic TypeExpr into a semantic Type within
// sc, monomorphizing generic struct instantiations eagerly (spec.md §4.4/§4.7.4).
func (c *Checker) resolveTypeExpr(te ast.TypeExpr, sc *scope.Scope) *types.Type {
	nt, ok := te.(*ast.NamedType)
	if !ok || nt == nil {
		return types.ErrorType
	}

	switch nt.Name {
	case "ptr":
		if len(nt.Args) != 1 {
			c.errorf(nt.Span(), "'ptr' requires exactly one type argument")
			return types.ErrorType
		}
		return types.Ptr(c.resolveTypeExpr(nt.Args[0], sc))
	case "slice", "dynarray":
		if len(nt.Args) != 1 {
			c.errorf(nt.Span(), "'%s' requires exactly one type argument", nt.Name)
			return types.ErrorType
		}
		return types.Slice(c.resolveTypeExpr(nt.Args[0], sc))
	case "array":
		if len(nt.Args) != 2 {
			c.errorf(nt.Span(), "'array' requires an element type and a length")
			return types.ErrorType
		}
		elem := c.resolveTypeExpr(nt.Args[0], sc)
		n, ok := parseArrayLength(nt.Args[1])
		if !ok {
			c.errorf(nt.Span(), "array length must be an integer literal")
			return types.ArrayOf(elem, nil)
		}
		return types.ArrayOf(elem, &n)
	}

	if prim, ok := primitiveType(nt.Name); ok {
		if len(nt.Args) > 0 {
			c.errorf(nt.Span(), "primitive type '%s' does not take type arguments", nt.Name)
		}
		return prim
	}

	sym, ok := sc.LookupType(nt.Name)
	if !ok {
		c.errorf(nt.Span(), "undeclared type '%s'", nt.Name)
		return types.ErrorType
	}
	base := sym.Type
	if base.Kind == types.KTypeParam {
		if len(nt.Args) > 0 {
			c.errorf(nt.Span(), "type parameter '%s' does not take type arguments", nt.Name)
		}
		return base
	}
	if len(nt.Args) == 0 {
		if len(base.GenericParams) > 0 {
			c.errorf(nt.Span(), "missing type arguments for generic type '%s'", nt.Name)
			return types.ErrorType
		}
		return base
	}
	argTypes := make([]*types.Type, len(nt.Args))
	for i, a := range nt.Args {
		argTypes[i] = c.resolveTypeExpr(a, sc)
	}
	return c.monomorphizeStruct(base, nt.Name, argTypes, nt)
}

func parseArrayLength(te ast.TypeExpr) (int, bool) {
	nt, ok := te.(*ast.NamedType)
	if !ok {
		return 0, false
	}
	n := 0
	for _, r := range nt.Name {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if len(nt.Name) == 0 {
		return 0, false
	}
	return n, true
}

// containsPtr reports whether t transitively contains a Ptr field, stopping
// at a struct already visited to tolerate self-referential generics.
func containsPtr(t *types.Type, visited map[string]bool) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case types.KPtr:
		return true
	case types.KArray, types.KSlice, types.KRange:
		return containsPtr(t.Elem, visited)
	case types.KStruct:
		if visited[t.Name] {
			return false
		}
		visited[t.Name] = true
		for _, f := range t.FieldOrder {
			if containsPtr(t.Fields[f], visited) {
				return true
			}
		}
	}
	return false
}
