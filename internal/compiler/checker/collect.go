package checker

import (
	"golang.org/x/mod/semver"

	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/scope"
	"github.com/kei-lang/kei/internal/compiler/types"
)

// collectDeclarations implements phase 1: register every type name and
// function signature into the module scope before any body is checked, so
// forward and recursive references resolve (spec.md §4.7.1).
func (c *Checker) collectDeclarations(prog *ast.Program) {
	// Pass 1: register every type name as a shape object (generic params
	// known, fields/methods still empty) so self- and forward-references
	// resolve during pass 2.
	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.Struct:
			c.structDecls[decl.Name] = decl
			c.declOf[decl.Name] = decl
			t := &types.Type{
				Kind: types.KStruct, Name: decl.Name, IsUnsafe: false,
				GenericParams: decl.GenericParams,
				Fields:        map[string]*types.Type{}, Methods: map[string]*types.Type{},
			}
			c.module.DefineType(&scope.Symbol{Name: decl.Name, Kind: scope.SymType, Type: t})
		case *ast.UnsafeStruct:
			c.unsafeDecls[decl.Name] = decl
			c.declOf[decl.Name] = decl
			t := &types.Type{
				Kind: types.KStruct, Name: decl.Name, IsUnsafe: true,
				GenericParams: decl.GenericParams,
				Fields:        map[string]*types.Type{}, Methods: map[string]*types.Type{},
			}
			c.module.DefineType(&scope.Symbol{Name: decl.Name, Kind: scope.SymType, Type: t})
		case *ast.Enum:
			c.enumDecls[decl.Name] = decl
			c.declOf[decl.Name] = decl
			t := &types.Type{Kind: types.KEnum, Name: decl.Name}
			c.module.DefineType(&scope.Symbol{Name: decl.Name, Kind: scope.SymType, Type: t})
		}
	}

	// Pass 2: resolve field/method/variant types now that every name is
	// visible, using a per-template scope that binds each generic parameter
	// to a TypeParam so field types referencing T resolve correctly.
	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.Struct:
			c.resolveStructBody(decl.Name, decl.GenericParams, decl.Fields, decl.Methods)
		case *ast.UnsafeStruct:
			c.resolveStructBody(decl.Name, decl.GenericParams, decl.Fields, decl.Methods)
		case *ast.Enum:
			c.resolveEnumBody(decl)
		case *ast.TypeAlias:
			underlying := c.resolveTypeExpr(decl.Type, c.module)
			c.module.DefineType(&scope.Symbol{Name: decl.Name, Kind: scope.SymType, Type: underlying})
		}
	}

	// Pass 3: imports, top-level function signatures and statics.
	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.Import:
			c.checkImportVersion(decl)
		case *ast.Function:
			c.declareFunctionSignature(decl, c.module)
		case *ast.ExternFunction:
			c.declareExternSignature(decl)
		case *ast.Static:
			ty := types.ErrorType
			if decl.Type != nil {
				ty = c.resolveTypeExpr(decl.Type, c.module)
			}
			c.module.Define(&scope.Symbol{Name: decl.Name, Kind: scope.SymVariable, Type: ty, IsMut: decl.IsMut, Decl: decl})
		}
	}
}

// checkImportVersion validates the optional `@vX.Y.Z` suffix on an import
// declaration against semver, a supplemented feature beyond the distilled
// grammar (SPEC_FULL.md's x/mod/semver wiring).
func (c *Checker) checkImportVersion(decl *ast.Import) {
	if decl.Version == "" {
		return
	}
	v := decl.Version
	if v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		c.errorf(decl.Span(), "invalid import version '@%s': must be a valid semantic version", decl.Version)
	}
}

func templateScope(base *scope.Scope, genericParams []string) *scope.Scope {
	sc := base.Child()
	for _, p := range genericParams {
		sc.DefineType(&scope.Symbol{Name: p, Kind: scope.SymType, Type: types.TypeParam(p)})
	}
	return sc
}

func (c *Checker) resolveStructBody(name string, generics []string, fields []ast.Field, methods []*ast.Function) {
	sym, _ := c.module.LookupType(name)
	t := sym.Type
	sc := templateScope(c.module, generics)

	for _, f := range fields {
		ft := c.resolveTypeExpr(f.Type, sc)
		t.Fields[f.Name] = ft
		t.FieldOrder = append(t.FieldOrder, f.Name)
	}
	for _, m := range methods {
		mt := c.functionType(m, sc)
		c.methodTypes[m] = mt
		if _, dup := t.Methods[m.Name]; dup {
			c.errorf(m.Span(), "duplicate method '%s' on '%s'", m.Name, name)
			continue
		}
		t.Methods[m.Name] = mt
	}
}

func (c *Checker) resolveEnumBody(decl *ast.Enum) {
	sym, _ := c.module.LookupType(decl.Name)
	t := sym.Type
	if decl.BaseType != nil {
		t.BaseType = c.resolveTypeExpr(decl.BaseType, c.module)
	}
	seen := map[string]bool{}
	for _, v := range decl.Variants {
		if seen[v.Name] {
			c.errorf(decl.Span(), "duplicate variant '%s' on enum '%s'", v.Name, decl.Name)
			continue
		}
		seen[v.Name] = true
		ev := types.EnumVariant{Name: v.Name, Fields: map[string]*types.Type{}}
		for _, f := range v.Fields {
			ev.Fields[f.Name] = c.resolveTypeExpr(f.Type, c.module)
			ev.FieldOrder = append(ev.FieldOrder, f.Name)
		}
		t.Variants = append(t.Variants, ev)
	}
}

// functionType builds the semantic Function type for a declaration, without
// checking its body.
func (c *Checker) functionType(fn *ast.Function, outer *scope.Scope) *types.Type {
	sc := templateScope(outer, fn.GenericParams)
	params := make([]types.Param, 0, len(fn.Params)+1)
	if fn.Receiver != nil {
		rt := types.ErrorType
		if fn.Receiver.Type != nil {
			rt = c.resolveTypeExpr(fn.Receiver.Type, sc)
		}
		params = append(params, types.Param{Name: fn.Receiver.Name, Type: rt, IsMut: fn.Receiver.IsMut, IsMove: fn.Receiver.IsMove})
	}
	for _, p := range fn.Params {
		pt := types.ErrorType
		if p.Type != nil {
			pt = c.resolveTypeExpr(p.Type, sc)
		}
		params = append(params, types.Param{Name: p.Name, Type: pt, IsMut: p.IsMut, IsMove: p.IsMove})
	}
	ret := types.VoidType
	if fn.ReturnType != nil {
		ret = c.resolveTypeExpr(fn.ReturnType, sc)
	}
	var throws []*types.Type
	for _, te := range fn.ThrowsTypes {
		throws = append(throws, c.resolveTypeExpr(te, sc))
	}
	return &types.Type{
		Kind: types.KFunction, Params: params, Return: ret,
		ThrowsTypes: throws, FuncGenerics: fn.GenericParams,
	}
}

func (c *Checker) declareFunctionSignature(fn *ast.Function, sc *scope.Scope) {
	ft := c.functionType(fn, sc)
	if !c.module.DeclareFunction(fn.Name, &scope.Overload{Type: ft, Decl: fn}) {
		c.errorf(fn.Span(), "duplicate function overload for '%s'", fn.Name)
	}
}

func (c *Checker) declareExternSignature(fn *ast.ExternFunction) {
	params := make([]types.Param, len(fn.Params))
	for i, p := range fn.Params {
		pt := types.ErrorType
		if p.Type != nil {
			pt = c.resolveTypeExpr(p.Type, c.module)
		}
		params[i] = types.Param{Name: p.Name, Type: pt, IsMut: p.IsMut, IsMove: p.IsMove}
	}
	ret := types.VoidType
	if fn.ReturnType != nil {
		ret = c.resolveTypeExpr(fn.ReturnType, c.module)
	}
	ft := &types.Type{Kind: types.KFunction, Params: params, Return: ret, IsExtern: true}
	if !c.module.DeclareFunction(fn.Name, &scope.Overload{Type: ft, Decl: fn}) {
		c.errorf(fn.Span(), "duplicate function overload for '%s'", fn.Name)
	}
}

// validateStructShapes implements phase 2: plain structs may not transitively
// contain a Ptr field; unsafe structs that do must define both lifecycle
// hooks with the exact required signature. Structs without hooks get
// AutoDestroy/AutoOncopy synthesized for the lowerer.
func (c *Checker) validateStructShapes() {
	for name, decl := range c.structDecls {
		sym, _ := c.module.LookupType(name)
		t := sym.Type
		if containsPtr(t, map[string]bool{}) {
			c.errorf(decl.Span(), "struct '%s' requires 'unsafe struct' because it contains a raw pointer field", name)
			continue
		}
		t.AutoDestroy = true
		t.AutoOncopy = true
	}
	for name, decl := range c.unsafeDecls {
		sym, _ := c.module.LookupType(name)
		t := sym.Type
		if !containsPtr(t, map[string]bool{}) {
			t.AutoDestroy = true
			t.AutoOncopy = true
			continue
		}
		destroy, hasDestroy := t.Methods["__destroy"]
		oncopy, hasOncopy := t.Methods["__oncopy"]
		if !hasDestroy {
			c.errorf(decl.Span(), "unsafe struct '%s' with raw pointer fields must define '__destroy'", name)
		} else {
			c.validateHookSignature(decl.Span(), name, "__destroy", destroy, types.VoidType)
		}
		if !hasOncopy {
			c.errorf(decl.Span(), "unsafe struct '%s' with raw pointer fields must define '__oncopy'", name)
		} else {
			c.validateHookSignature(decl.Span(), name, "__oncopy", oncopy, t)
		}
	}
}

func (c *Checker) validateHookSignature(span ast.Node, name, hook string, fnType *types.Type, wantReturn *types.Type) {
	_ = span
	if len(fnType.Params) != 1 || fnType.Params[0].Name != "self" {
		c.errorf(span.Span(), "'%s' on '%s' must take exactly one parameter named 'self'", hook, name)
	}
	if len(fnType.Params) == 1 {
		// self must be the enclosing struct itself. A generic template's
		// self is not compared, since it may spell out its own type arguments.
		if sym, ok := c.module.LookupType(name); ok && len(sym.Type.GenericParams) == 0 &&
			!errType(fnType.Params[0].Type) && !types.TypesEqual(fnType.Params[0].Type, sym.Type) {
			c.errorf(span.Span(), "'%s' on '%s' must take 'self' of type '%s'", hook, name, name)
		}
	}
	if hook == "__destroy" && fnType.Return.Kind != types.KVoid {
		c.errorf(span.Span(), "'__destroy' on '%s' must return void", name)
	}
	if hook == "__oncopy" && !types.TypesEqual(fnType.Return, wantReturn) {
		c.errorf(span.Span(), "'__oncopy' on '%s' must return '%s'", name, types.TypeToString(wantReturn))
	}
	if len(fnType.ThrowsTypes) > 0 {
		c.errorf(span.Span(), "'%s' on '%s' may not declare 'throws'", hook, name)
	}
}
