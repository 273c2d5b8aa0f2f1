package checker

import (
	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/scope"
	"github.com/kei-lang/kei/internal/compiler/types"
)

// checkExpr infers and records e's type, performing monomorphization,
// move-state, and unsafe-gating checks along the way. It always returns a
// non-nil Type, falling back to types.ErrorType so callers need not nil-check.
func (c *Checker) checkExpr(e ast.Expr, sc *scope.Scope) *types.Type {
	t := c.inferExpr(e, sc)
	if t == nil {
		t = types.ErrorType
	}
	c.typeMap[e] = t
	return t
}

func (c *Checker) inferExpr(e ast.Expr, sc *scope.Scope) *types.Type {
	switch x := e.(type) {
	case *ast.IntLiteral:
		if x.Suffix != "" {
			if t, ok := primitiveType(x.Suffix); ok {
				return t
			}
		}
		return types.Int(64, true)
	case *ast.FloatLiteral:
		if x.Suffix != "" {
			if t, ok := primitiveType(x.Suffix); ok {
				return t
			}
		}
		return types.Float(64)
	case *ast.StringLiteral:
		return types.StringType
	case *ast.BoolLiteral:
		return types.BoolType
	case *ast.NullLiteral:
		return types.NullType
	case *ast.Identifier:
		sym, ok := sc.Lookup(x.Name)
		if !ok {
			c.errorf(x.Span(), "undeclared name '%s'", x.Name)
			return types.ErrorType
		}
		if sym.Kind == scope.SymVariable && sym.Moved {
			c.errorf(x.Span(), "use of moved variable '%s'", x.Name)
		}
		if sym.Kind == scope.SymFunction {
			if len(sym.Overloads) == 1 {
				return sym.Overloads[0].Type
			}
			return types.ErrorType // overloaded function value used bare; resolved at call sites
		}
		return sym.Type

	case *ast.Move:
		id, ok := x.X.(*ast.Identifier)
		if !ok {
			c.errorf(x.Span(), "'move' requires a variable name")
			return c.checkExpr(x.X, sc)
		}
		t := c.checkExpr(x.X, sc)
		sc.MarkMoved(id.Name)
		return t

	case *ast.Group:
		return c.checkExpr(x.X, sc)

	case *ast.Unary:
		xt := c.checkExpr(x.X, sc)
		switch x.Op {
		case ast.OpNot:
			if !errType(xt) && xt.Kind != types.KBool {
				c.errorf(x.Span(), "'!' requires 'bool', got '%s'", types.TypeToString(xt))
			}
			return types.BoolType
		case ast.OpNeg:
			if !errType(xt) && !xt.IsPrimitiveNumeric() {
				c.errorf(x.Span(), "unary '-' requires a numeric type, got '%s'", types.TypeToString(xt))
			}
			return xt
		case ast.OpBitNot:
			if !errType(xt) && xt.Kind != types.KInt {
				c.errorf(x.Span(), "'~' requires an integer type, got '%s'", types.TypeToString(xt))
			}
			return xt
		case ast.OpAddr:
			if !sc.IsInsideUnsafe {
				c.errorf(x.Span(), "'&' requires an 'unsafe' context")
			}
			return types.Ptr(xt)
		}
		return types.ErrorType

	case *ast.Increment, *ast.Decrement:
		var inner ast.Expr
		if inc, ok := x.(*ast.Increment); ok {
			inner = inc.X
		} else {
			inner = x.(*ast.Decrement).X
		}
		t := c.checkExpr(inner, sc)
		if !errType(t) && t.Kind != types.KInt && t.Kind != types.KFloat {
			c.errorf(e.Span(), "'++'/'--' requires a numeric type")
		}
		return t

	case *ast.Binary:
		return c.checkBinary(x, sc)

	case *ast.Range:
		lo := c.checkExpr(x.Lo, sc)
		hi := c.checkExpr(x.Hi, sc)
		if !errType(lo) && !errType(hi) && !types.TypesEqual(lo, hi) {
			c.errorf(x.Span(), "range bounds must share a type, got '%s' and '%s'", types.TypeToString(lo), types.TypeToString(hi))
		}
		return types.RangeOf(lo)

	case *ast.Assign:
		return c.checkAssign(x, sc)

	case *ast.Member:
		return c.checkMember(x, sc)

	case *ast.Index:
		xt := c.checkExpr(x.X, sc)
		idx := c.checkExpr(x.Index, sc)
		if !errType(idx) && idx.Kind != types.KInt {
			c.errorf(x.Index.Span(), "index must be an integer, got '%s'", types.TypeToString(idx))
		}
		if errType(xt) {
			return types.ErrorType
		}
		switch xt.Kind {
		case types.KSlice, types.KArray:
			return xt.Elem
		case types.KPtr:
			if !sc.IsInsideUnsafe {
				c.errorf(x.Span(), "indexing a raw pointer requires an 'unsafe' context")
			}
			return xt.Elem
		}
		c.errorf(x.Span(), "'%s' cannot be indexed", types.TypeToString(xt))
		return types.ErrorType

	case *ast.Deref:
		xt := c.checkExpr(x.X, sc)
		if !sc.IsInsideUnsafe {
			c.errorf(x.Span(), "dereferencing a raw pointer requires an 'unsafe' context")
		}
		if errType(xt) || xt.Kind != types.KPtr {
			if !errType(xt) {
				c.errorf(x.Span(), "'.*' requires a pointer, got '%s'", types.TypeToString(xt))
			}
			return types.ErrorType
		}
		return xt.Elem

	case *ast.Cast:
		c.checkExpr(x.X, sc)
		return c.resolveTypeExpr(x.Type, sc)

	case *ast.ArrayLiteral:
		var elem *types.Type
		for _, el := range x.Elements {
			t := c.checkExpr(el, sc)
			if elem == nil {
				elem = t
			} else if !errType(t) && !errType(elem) && !types.TypesEqual(elem, t) {
				c.errorf(el.Span(), "array element type '%s' does not match '%s'", types.TypeToString(t), types.TypeToString(elem))
			}
		}
		if elem == nil {
			elem = types.ErrorType
		}
		n := len(x.Elements)
		return types.ArrayOf(elem, &n)

	case *ast.StructLiteral:
		return c.checkStructLiteral(x, sc)

	case *ast.IfExpr:
		c.checkCondition(x.Cond, sc)
		thenT := c.checkBlockExpr(x.Then, sc)
		var elseT *types.Type
		if x.Else != nil {
			elseT = c.checkExpr(x.Else, sc)
		}
		if elseT != nil && !errType(thenT) && !errType(elseT) && !types.TypesEqual(thenT, elseT) {
			c.errorf(x.Span(), "if branches have mismatched types '%s' and '%s'", types.TypeToString(thenT), types.TypeToString(elseT))
		}
		return thenT

	case *ast.Unsafe:
		unsafeSc := sc.Child()
		unsafeSc.IsInsideUnsafe = true
		return c.checkBlockExpr(x.Body, unsafeSc)

	case *ast.Throw:
		t := c.checkExpr(x.X, sc)
		found := false
		for _, th := range sc.FuncThrows {
			if types.TypesEqual(th, t) {
				found = true
				break
			}
		}
		if !errType(t) && !found {
			c.errorf(x.Span(), "'throw' of '%s' is not declared in the enclosing function's 'throws' clause", types.TypeToString(t))
		}
		return types.VoidType

	case *ast.Catch:
		return c.checkCatch(x, sc)

	case *ast.Call:
		return c.checkCall(x, sc, false)
	}
	return types.ErrorType
}

// checkBlockExpr checks a block used as a value: every statement but the
// last is checked normally, and the trailing semicolon-less ExprStmt (if
// any) supplies the block's type.
func (c *Checker) checkBlockExpr(b *ast.Block, outer *scope.Scope) *types.Type {
	if b == nil {
		return types.VoidType
	}
	sc := outer.Child()
	result := types.VoidType
	for i, s := range b.Statements {
		if i == len(b.Statements)-1 {
			if es, ok := s.(*ast.ExprStmt); ok && !es.Semicolon {
				result = c.checkExpr(es.X, sc)
				continue
			}
		}
		c.checkStmt(s, sc)
	}
	return result
}

func (c *Checker) checkBinary(x *ast.Binary, sc *scope.Scope) *types.Type {
	lt := c.checkExpr(x.Left, sc)
	rt := c.checkExpr(x.Right, sc)
	switch x.Op {
	case ast.OpAnd, ast.OpOr:
		if !errType(lt) && lt.Kind != types.KBool {
			c.errorf(x.Left.Span(), "operand of logical operator must be 'bool'")
		}
		if !errType(rt) && rt.Kind != types.KBool {
			c.errorf(x.Right.Span(), "operand of logical operator must be 'bool'")
		}
		return types.BoolType
	case ast.OpEq, ast.OpNeq:
		if !errType(lt) && !errType(rt) && !types.TypesEqual(lt, rt) &&
			!assignable(x.Left, lt, rt) && !assignable(x.Right, rt, lt) {
			c.errorf(x.Span(), "cannot compare '%s' and '%s'", types.TypeToString(lt), types.TypeToString(rt))
		}
		return types.BoolType
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		c.requireNumericPair(x, lt, rt)
		return types.BoolType
	case ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor, ast.OpShl, ast.OpShr:
		if !errType(lt) && lt.Kind != types.KInt {
			c.errorf(x.Left.Span(), "bitwise operator requires an integer type, got '%s'", types.TypeToString(lt))
		}
		return lt
	default: // arithmetic
		c.requireNumericPair(x, lt, rt)
		return lt
	}
}

func (c *Checker) requireNumericPair(x *ast.Binary, lt, rt *types.Type) {
	if !errType(lt) && !lt.IsPrimitiveNumeric() {
		c.errorf(x.Left.Span(), "operand must be numeric, got '%s'", types.TypeToString(lt))
	}
	if !errType(rt) && !rt.IsPrimitiveNumeric() {
		c.errorf(x.Right.Span(), "operand must be numeric, got '%s'", types.TypeToString(rt))
	}
	if !errType(lt) && !errType(rt) && !types.TypesEqual(lt, rt) &&
		!assignable(x.Right, rt, lt) && !assignable(x.Left, lt, rt) {
		c.errorf(x.Span(), "mismatched operand types '%s' and '%s'", types.TypeToString(lt), types.TypeToString(rt))
	}
}

func (c *Checker) checkAssign(x *ast.Assign, sc *scope.Scope) *types.Type {
	vt := c.checkExpr(x.Value, sc)
	if id, ok := x.Target.(*ast.Identifier); ok {
		sym, found := sc.Lookup(id.Name)
		if !found {
			c.errorf(x.Target.Span(), "undeclared name '%s'", id.Name)
			return types.ErrorType
		}
		if !sym.IsMut {
			c.errorf(x.Span(), "cannot assign to immutable variable '%s'", id.Name)
		}
		sym.Moved = false
	}
	tt := c.checkExpr(x.Target, sc)
	if !errType(vt) && !errType(tt) && !assignable(x.Value, vt, tt) {
		c.errorf(x.Span(), "cannot assign '%s' to '%s'", types.TypeToString(vt), types.TypeToString(tt))
	}
	return tt
}

func (c *Checker) checkMember(x *ast.Member, sc *scope.Scope) *types.Type {
	// `EnumName.Variant` names a variant as a value (the only way spec.md's
	// closed expression set can construct one, e.g. to `throw` it): the
	// base is a type name, not a value, so it must be recognized before
	// falling into the ordinary checkExpr(x.X) path below — which would
	// otherwise report "undeclared name" for every enum type name used
	// this way, the same class of mistake checkSwitch had.
	if id, ok := x.X.(*ast.Identifier); ok {
		if _, isValue := sc.Lookup(id.Name); !isValue {
			if tsym, ok := sc.LookupType(id.Name); ok && tsym.Type.Kind == types.KEnum {
				return c.checkEnumVariantAccess(x, tsym.Type)
			}
		}
	}

	xt := c.checkExpr(x.X, sc)
	if errType(xt) {
		return types.ErrorType
	}
	base := xt
	if base.Kind == types.KPtr {
		if !sc.IsInsideUnsafe {
			c.errorf(x.Span(), "accessing a field through a raw pointer requires an 'unsafe' context")
		}
		base = base.Elem
	}
	if base == nil || base.Kind != types.KStruct {
		c.errorf(x.Span(), "'%s' has no field '%s'", types.TypeToString(xt), x.Name)
		return types.ErrorType
	}
	if ft, ok := base.Fields[x.Name]; ok {
		return ft
	}
	if _, ok := base.Methods[x.Name]; ok {
		return types.ErrorType // bare method reference, not a value; resolved at call sites
	}
	c.errorf(x.Span(), "'%s' has no field or method '%s'", base.Name, x.Name)
	return types.ErrorType
}

// checkEnumVariantAccess validates `enumType.Variant` and, on success,
// yields enumType itself as the expression's type — the same "variant
// identity" a switch case's bare-identifier pattern resolves to.
func (c *Checker) checkEnumVariantAccess(x *ast.Member, enumType *types.Type) *types.Type {
	for _, v := range enumType.Variants {
		if v.Name == x.Name {
			return enumType
		}
	}
	c.errorf(x.Span(), "'%s' is not a variant of enum '%s'", x.Name, enumType.Name)
	return types.ErrorType
}

func (c *Checker) checkStructLiteral(x *ast.StructLiteral, sc *scope.Scope) *types.Type {
	sym, ok := c.module.LookupType(x.Name)
	if !ok {
		c.errorf(x.Span(), "undeclared type '%s'", x.Name)
		for _, f := range x.Fields {
			c.checkExpr(f.Value, sc)
		}
		return types.ErrorType
	}
	base := sym.Type

	// Field values' types are inferred once, up front, with no comparison
	// against the declared field types yet, so the same types can both drive
	// inference below and feed the final assignability pass.
	fieldTypes := make(map[string]*types.Type, len(x.Fields))
	for _, f := range x.Fields {
		fieldTypes[f.Name] = c.checkExpr(f.Value, sc)
	}

	target := base
	switch {
	case len(x.TypeArgs) > 0:
		argTypes := make([]*types.Type, len(x.TypeArgs))
		for i, te := range x.TypeArgs {
			argTypes[i] = c.resolveTypeExpr(te, sc)
		}
		target = c.monomorphizeStruct(base, x.Name, argTypes, x)
		c.genericResolutions[x] = target.Name
	case len(base.GenericParams) > 0:
		// No explicit type args: infer each generic param by unifying the
		// template's declared field types against the field values' actual
		// types (spec.md §4.7 phase 4).
		mapping := map[string]*types.Type{}
		for _, f := range x.Fields {
			if declared, ok := base.Fields[f.Name]; ok {
				unifyTypeParam(declared, fieldTypes[f.Name], mapping)
			}
		}
		argTypes := make([]*types.Type, len(base.GenericParams))
		for i, p := range base.GenericParams {
			rt, ok := mapping[p]
			if !ok {
				c.errorf(x.Span(), "cannot infer type parameter '%s' for struct '%s'", p, x.Name)
				return types.ErrorType
			}
			argTypes[i] = rt
		}
		target = c.monomorphizeStruct(base, x.Name, argTypes, x)
		c.genericResolutions[x] = target.Name
	}

	seen := map[string]bool{}
	for _, f := range x.Fields {
		vt := fieldTypes[f.Name]
		seen[f.Name] = true
		ft, ok := target.Fields[f.Name]
		if !ok {
			c.errorf(x.Span(), "'%s' has no field '%s'", x.Name, f.Name)
			continue
		}
		if !errType(vt) && !errType(ft) && !assignable(f.Value, vt, ft) {
			c.errorf(x.Span(), "field '%s' expects '%s', got '%s'", f.Name, types.TypeToString(ft), types.TypeToString(vt))
		}
	}
	for _, name := range target.FieldOrder {
		if !seen[name] {
			c.errorf(x.Span(), "missing field '%s' in literal of '%s'", name, x.Name)
		}
	}
	return target
}

// unifyTypeParam walks declared (a template's field/param type, possibly
// containing KTypeParam at any depth) alongside actual (the concrete type
// observed at a use site), recording each type parameter it resolves into
// mapping. It never reports a mismatch itself — an incompatible shape just
// leaves a param unresolved, which the caller turns into a diagnostic, and
// the ordinary assignability check downstream still catches a value passed
// with the wrong shape.
func unifyTypeParam(declared, actual *types.Type, mapping map[string]*types.Type) {
	if declared == nil || actual == nil {
		return
	}
	if declared.Kind == types.KTypeParam {
		if _, ok := mapping[declared.ParamName]; !ok {
			mapping[declared.ParamName] = actual
		}
		return
	}
	switch declared.Kind {
	case types.KPtr, types.KSlice, types.KArray, types.KRange:
		if actual.Kind == declared.Kind {
			unifyTypeParam(declared.Elem, actual.Elem, mapping)
		}
	case types.KStruct:
		if len(declared.GenericArgs) > 0 && len(declared.GenericArgs) == len(actual.GenericArgs) {
			for i := range declared.GenericArgs {
				unifyTypeParam(declared.GenericArgs[i], actual.GenericArgs[i], mapping)
			}
		}
	}
}

// checkCatch checks the guarded expression X (conventionally a throwing
// call) and handles its thrown error per Mode, never propagating it further
// regardless of the enclosing function's own throws clause.
func (c *Checker) checkCatch(x *ast.Catch, sc *scope.Scope) *types.Type {
	var t *types.Type
	if call, ok := x.X.(*ast.Call); ok {
		t = c.checkCall(call, sc, true)
	} else {
		t = c.checkExpr(x.X, sc)
	}
	seen := map[string]bool{}
	for _, cl := range x.Clauses {
		key := cl.ErrorVariant
		if cl.IsDefault {
			key = "default"
		}
		if seen[key] {
			c.errorf(x.Span(), "duplicate catch clause '%s'", key)
		}
		seen[key] = true
		clSc := sc.Child()
		if cl.BindName != "" {
			clSc.Define(&scope.Symbol{Name: cl.BindName, Kind: scope.SymVariable, Type: types.ErrorType})
		}
		for _, s := range cl.Body {
			c.checkStmt(s, clSc)
		}
	}
	return t
}

// checkCall resolves the callee, checks argument arity/types, performs
// function monomorphization, and — unless suppressThrows (set when the call
// is the guarded expression of an enclosing catch) — requires every thrown
// error type to be declared in the enclosing function's throws clause.
func (c *Checker) checkCall(x *ast.Call, sc *scope.Scope, suppressThrows bool) *types.Type {
	ft, fn, isMethod := c.resolveCallee(x, sc)
	if ft == nil {
		for _, a := range x.Args {
			c.checkExpr(a, sc)
		}
		return types.ErrorType
	}

	// A method call's explicit arguments (x.Args) never include the
	// receiver — `recv.m(a, b)` passes recv via the member expression, not
	// as Args[0] — but functionType always puts the receiver at Params[0]
	// (see collect.go), since the lowerer needs it there to prepend recv
	// to the KIR call's argument list. Skip that slot here so arity and
	// per-argument checks line up against the real parameters.
	params := ft.Params
	if isMethod && len(params) > 0 {
		params = params[1:]
	}

	// Argument types are inferred once, up front, with no comparison against
	// the declared param types yet, so the same types both drive inference
	// below and feed the final assignability pass.
	argTypes := make([]*types.Type, len(x.Args))
	for i, a := range x.Args {
		argTypes[i] = c.checkExpr(a, sc)
	}

	if fn != nil && len(fn.GenericParams) > 0 {
		var typeArgs []*types.Type
		if len(x.TypeArgs) > 0 {
			typeArgs = make([]*types.Type, len(x.TypeArgs))
			for i, te := range x.TypeArgs {
				typeArgs[i] = c.resolveTypeExpr(te, sc)
			}
		} else {
			// No explicit type args: infer each generic param by unifying
			// the template's declared param types against the arguments'
			// actual types (spec.md §4.7 phase 4).
			mapping := map[string]*types.Type{}
			for i, p := range params {
				if i < len(argTypes) {
					unifyTypeParam(p.Type, argTypes[i], mapping)
				}
			}
			typeArgs = make([]*types.Type, len(fn.GenericParams))
			for i, p := range fn.GenericParams {
				rt, ok := mapping[p]
				if !ok {
					c.errorf(x.Span(), "cannot infer type parameter '%s' for '%s'", p, fn.Name)
					return types.ErrorType
				}
				typeArgs[i] = rt
			}
		}
		concrete, mangled := c.monomorphizeFunction(fn, ft, typeArgs, x)
		ft = concrete
		c.genericResolutions[x] = mangled
		params = ft.Params
		if isMethod && len(params) > 0 {
			params = params[1:]
		}
	}

	for i, at := range argTypes {
		if i < len(params) {
			pt := params[i].Type
			if !errType(at) && !errType(pt) && !assignable(x.Args[i], at, pt) {
				c.errorf(x.Args[i].Span(), "argument %d: cannot pass '%s' as '%s'", i+1, types.TypeToString(at), types.TypeToString(pt))
			}
		}
	}
	if len(x.Args) != len(params) {
		c.errorf(x.Span(), "expected %d argument(s), got %d", len(params), len(x.Args))
	}

	if ft.IsExtern && !sc.IsInsideUnsafe {
		c.errorf(x.Span(), "calling an 'extern' function requires an 'unsafe' context")
	}

	if len(ft.ThrowsTypes) > 0 && !suppressThrows {
		for _, want := range ft.ThrowsTypes {
			covered := false
			for _, th := range sc.FuncThrows {
				if types.TypesEqual(th, want) {
					covered = true
				}
			}
			if !covered {
				c.errorf(x.Span(), "call to a throwing function must be handled with 'catch' or declared in the enclosing function's 'throws' clause")
				break
			}
		}
	}
	return ft.Return
}

// resolveCallee returns the callee's function type and, when statically
// known, its declaration (so explicit type arguments can be substituted).
// isMethod reports whether ft's Params[0] is a receiver slot rather than a
// real parameter (true whenever the callee is a member access).
func (c *Checker) resolveCallee(x *ast.Call, sc *scope.Scope) (ft *types.Type, fn *ast.Function, isMethod bool) {
	switch callee := x.Callee.(type) {
	case *ast.Identifier:
		sym, ok := sc.Lookup(callee.Name)
		if !ok {
			c.errorf(callee.Span(), "undeclared function '%s'", callee.Name)
			return nil, nil, false
		}
		ov := selectOverload(sym.Overloads, len(x.Args))
		if ov == nil {
			c.errorf(callee.Span(), "no matching overload for '%s'", callee.Name)
			return nil, nil, false
		}
		declFn, _ := ov.Decl.(*ast.Function)
		return ov.Type, declFn, false
	case *ast.Member:
		xt := c.checkExpr(callee.X, sc)
		if errType(xt) {
			return nil, nil, false
		}
		base := xt
		if base.Kind == types.KPtr {
			base = base.Elem
		}
		if base == nil || base.Kind != types.KStruct {
			c.errorf(callee.Span(), "'%s' has no method '%s'", types.TypeToString(xt), callee.Name)
			return nil, nil, false
		}
		mt, ok := base.Methods[callee.Name]
		if !ok {
			c.errorf(callee.Span(), "'%s' has no method '%s'", base.Name, callee.Name)
			return nil, nil, false
		}
		return mt, nil, true
	default:
		c.checkExpr(x.Callee, sc)
		return nil, nil, false
	}
}

func selectOverload(overloads []*scope.Overload, argc int) *scope.Overload {
	if len(overloads) == 0 {
		return nil
	}
	for _, ov := range overloads {
		if len(ov.Type.Params) == argc {
			return ov
		}
	}
	return overloads[0]
}
