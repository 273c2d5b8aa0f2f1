package checker

import (
	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/scope"
	"github.com/kei-lang/kei/internal/compiler/types"
)

// checkBodies implements phases 3-8 of spec.md §4.7 in one recursive walk per
// function/method body: type-checking, monomorphization at use sites,
// throws/catch enforcement, move analysis, unsafe gating and exhaustiveness.
// Combining the phases into a single traversal mirrors the teacher's single
// recursive cfg walk rather than six separate passes over the same tree.
func (c *Checker) checkBodies(prog *ast.Program) {
	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.Function:
			c.checkFunctionBody(decl, c.module, nil)
		case *ast.Struct:
			c.checkMethods(decl.Name, decl.GenericParams, decl.Methods)
		case *ast.UnsafeStruct:
			c.checkMethods(decl.Name, decl.GenericParams, decl.Methods)
		}
	}
}

func (c *Checker) checkMethods(structName string, generics []string, methods []*ast.Function) {
	sym, ok := c.module.LookupType(structName)
	if !ok {
		return
	}
	self := sym.Type
	for _, m := range methods {
		outer := templateScope(c.module, generics)
		c.checkFunctionBody(m, outer, self)
	}
}

// checkFunctionBody checks one function or method body against its already
// collected signature, given selfType for a method receiver (nil for a free
// function).
func (c *Checker) checkFunctionBody(fn *ast.Function, outer *scope.Scope, selfType *types.Type) {
	if fn.Body == nil {
		return // extern or declaration-only
	}
	sc := templateScope(outer, fn.GenericParams)
	sc.FuncReturnType = c.functionType(fn, outer).Return
	var throws []*types.Type
	for _, te := range fn.ThrowsTypes {
		throws = append(throws, c.resolveTypeExpr(te, sc))
	}
	sc.FuncThrows = throws

	if fn.Receiver != nil {
		rt := selfType
		if fn.Receiver.Type != nil {
			rt = c.resolveTypeExpr(fn.Receiver.Type, sc)
		}
		sc.Define(&scope.Symbol{Name: fn.Receiver.Name, Kind: scope.SymVariable, Type: rt, IsMut: fn.Receiver.IsMut})
	}
	for _, p := range fn.Params {
		pt := c.resolveTypeExpr(p.Type, sc)
		sc.Define(&scope.Symbol{Name: p.Name, Kind: scope.SymVariable, Type: pt, IsMut: p.IsMut})
	}

	c.checkBlock(fn.Body, sc)
}

func (c *Checker) checkBlock(b *ast.Block, outer *scope.Scope) {
	if b == nil {
		return
	}
	sc := outer.Child()
	for _, s := range b.Statements {
		c.checkStmt(s, sc)
	}
}

func (c *Checker) checkStmt(s ast.Stmt, sc *scope.Scope) {
	switch st := s.(type) {
	case *ast.Block:
		c.checkBlock(st, sc)
	case *ast.Let:
		vt := c.checkExpr(st.Value, sc)
		declared := vt
		if st.Type != nil {
			declared = c.resolveTypeExpr(st.Type, sc)
			if !errType(vt) && !errType(declared) && !assignable(st.Value, vt, declared) {
				c.errorf(st.Span(), "cannot assign '%s' to '%s'", types.TypeToString(vt), types.TypeToString(declared))
			}
		}
		sc.Define(&scope.Symbol{Name: st.Name, Kind: scope.SymVariable, Type: declared, IsMut: st.IsMut})
	case *ast.ConstStmt:
		vt := c.checkExpr(st.Value, sc)
		declared := vt
		if st.Type != nil {
			declared = c.resolveTypeExpr(st.Type, sc)
		}
		sc.Define(&scope.Symbol{Name: st.Name, Kind: scope.SymVariable, Type: declared})
	case *ast.ReturnStmt:
		if st.Value != nil {
			rt := c.checkExpr(st.Value, sc)
			if !errType(rt) && sc.FuncReturnType != nil && !errType(sc.FuncReturnType) &&
				!assignable(st.Value, rt, sc.FuncReturnType) {
				c.errorf(st.Span(), "return type '%s' does not match declared return type '%s'",
					types.TypeToString(rt), types.TypeToString(sc.FuncReturnType))
			}
		}
	case *ast.IfStmt:
		c.checkCondition(st.Cond, sc)
		c.checkBlock(st.Then, sc)
		if st.Else != nil {
			c.checkStmt(st.Else, sc)
		}
	case *ast.WhileStmt:
		c.checkCondition(st.Cond, sc)
		loopSc := sc.Child()
		loopSc.IsInsideLoop = true
		c.checkBlock(st.Body, loopSc)
	case *ast.ForStmt:
		it := c.checkExpr(st.Iter, sc)
		elemType := types.ErrorType
		if !errType(it) {
			switch it.Kind {
			case types.KRange, types.KSlice, types.KArray:
				elemType = it.Elem
			default:
				c.errorf(st.Span(), "'%s' is not iterable", types.TypeToString(it))
			}
		}
		loopSc := sc.Child()
		loopSc.IsInsideLoop = true
		loopSc.Define(&scope.Symbol{Name: st.Var, Kind: scope.SymVariable, Type: elemType})
		c.checkBlock(st.Body, loopSc)
	case *ast.SwitchStmt:
		c.checkSwitch(st, sc)
	case *ast.DeferStmt:
		c.checkStmt(st.Body, sc)
	case *ast.BreakStmt, *ast.ContinueStmt:
		if !sc.IsInsideLoop {
			c.errorf(st.Span(), "'break'/'continue' outside a loop")
		}
	case *ast.AssertStmt, *ast.RequireStmt:
		c.checkAssertLike(st, sc)
	case *ast.UnsafeBlock:
		unsafeSc := sc.Child()
		unsafeSc.IsInsideUnsafe = true
		c.checkBlock(st.Body, unsafeSc)
	case *ast.ExprStmt:
		c.checkExpr(st.X, sc)
	}
}

func (c *Checker) checkAssertLike(s ast.Stmt, sc *scope.Scope) {
	var cond, msg ast.Expr
	switch st := s.(type) {
	case *ast.AssertStmt:
		cond, msg = st.Cond, st.Msg
	case *ast.RequireStmt:
		cond, msg = st.Cond, st.Msg
	}
	c.checkCondition(cond, sc)
	if msg != nil {
		c.checkExpr(msg, sc)
	}
}

func (c *Checker) checkCondition(e ast.Expr, sc *scope.Scope) {
	t := c.checkExpr(e, sc)
	if !errType(t) && t.Kind != types.KBool {
		c.errorf(e.Span(), "condition must be 'bool', got '%s'", types.TypeToString(t))
	}
}

func (c *Checker) checkSwitch(st *ast.SwitchStmt, sc *scope.Scope) {
	subjType := c.checkExpr(st.Subject, sc)
	isEnumSubject := !errType(subjType) && subjType.Kind == types.KEnum
	hasDefault := false
	seenVariants := map[string]bool{}
	for _, cs := range st.Cases {
		caseSc := sc.Child()
		if cs.IsDefault {
			hasDefault = true
		} else if cs.Pattern != nil {
			// A bare identifier pattern against an enum subject names a
			// variant, not a value in scope: look it up against the
			// enum's own variant list instead of calling checkExpr, which
			// would otherwise report "undeclared name" for every variant.
			if id, ok := cs.Pattern.(*ast.Identifier); ok && isEnumSubject {
				found := false
				for _, v := range subjType.Variants {
					if v.Name == id.Name {
						found = true
						break
					}
				}
				if !found {
					c.errorf(cs.Pattern.Span(), "'%s' is not a variant of enum '%s'", id.Name, subjType.Name)
				}
				seenVariants[id.Name] = true
			} else {
				c.checkExpr(cs.Pattern, caseSc)
			}
		}
		for _, bs := range cs.Body {
			c.checkStmt(bs, caseSc)
		}
	}
	if !errType(subjType) && subjType.Kind == types.KEnum && !hasDefault {
		for _, v := range subjType.Variants {
			if !seenVariants[v.Name] {
				c.errorf(st.Span(), "switch over '%s' is not exhaustive: missing variant '%s'", subjType.Name, v.Name)
			}
		}
	}
}

// assignable reports whether value (of inferred type vt) may be used where
// target is expected, accounting for literal widening (spec.md §4.5).
func assignable(value ast.Expr, vt, target *types.Type) bool {
	if types.IsAssignableTo(vt, target) {
		return true
	}
	switch lit := value.(type) {
	case *ast.IntLiteral:
		return lit.Suffix == "" && types.IsLiteralAssignableTo(false, lit.Value, 0, target)
	case *ast.FloatLiteral:
		return lit.Suffix == "" && types.IsLiteralAssignableTo(true, 0, lit.Value, target)
	}
	return false
}
