package lower

import (
	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/kir"
	"github.com/kei-lang/kei/internal/compiler/types"
)

// lowerExpr lowers one expression to the KIR instructions that compute it,
// returning the SSA value holding its result (or "" for a void call) and its
// type. Every ast.Expr variant is handled explicitly, matching the closed
// set spec.md §4.6/§6 describes.
func (l *lowerer) lowerExpr(e ast.Expr) (kir.Value, *types.Type) {
	switch x := e.(type) {
	case *ast.IntLiteral:
		t := l.typeOf(x)
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.IConstInt, Dest: dest, IntConst: x.Value, Type: t})
		return dest, t
	case *ast.FloatLiteral:
		t := l.typeOf(x)
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.IConstFloat, Dest: dest, FloatConst: x.Value, Type: t})
		return dest, t
	case *ast.StringLiteral:
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.IConstString, Dest: dest, StringConst: x.Value, Type: types.StringType})
		return dest, types.StringType
	case *ast.BoolLiteral:
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.IConstBool, Dest: dest, BoolConst: x.Value, Type: types.BoolType})
		return dest, types.BoolType
	case *ast.NullLiteral:
		t := l.typeOf(x)
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.IConstNull, Dest: dest, Type: t})
		return dest, t
	case *ast.Identifier:
		return l.lowerIdentifier(x)
	case *ast.Group:
		return l.lowerExpr(x.X)
	case *ast.Move:
		return l.lowerMove(x)
	case *ast.Unary:
		return l.lowerUnary(x)
	case *ast.Increment:
		return l.lowerIncDec(x.X, true)
	case *ast.Decrement:
		return l.lowerIncDec(x.X, false)
	case *ast.Binary:
		return l.lowerBinary(x)
	case *ast.Range:
		lo, t := l.lowerExpr(x.Lo)
		l.lowerExpr(x.Hi)
		return lo, t
	case *ast.Assign:
		return l.lowerAssign(x)
	case *ast.Member:
		if v, t, ok := l.lowerEnumVariantConst(x); ok {
			return v, t
		}
		addr, ft := l.lowerAddr(x)
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.ILoad, Dest: dest, A: addr, Type: ft})
		return dest, ft
	case *ast.Index:
		addr, et := l.lowerAddr(x)
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.ILoad, Dest: dest, A: addr, Type: et})
		return dest, et
	case *ast.Deref:
		addr, et := l.lowerAddr(x)
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.ILoad, Dest: dest, A: addr, Type: et})
		return dest, et
	case *ast.Cast:
		v, _ := l.lowerExpr(x.X)
		t := l.typeOf(x)
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.ICast, Dest: dest, A: v, Type: t})
		return dest, t
	case *ast.ArrayLiteral:
		return l.lowerArrayLiteral(x)
	case *ast.StructLiteral:
		return l.lowerStructLiteral(x)
	case *ast.IfExpr:
		return l.lowerIfExpr(x)
	case *ast.Unsafe:
		return l.lowerBlockExpr(x.Body)
	case *ast.Call:
		return l.lowerCall(x)
	case *ast.Catch:
		return l.lowerCatch(x)
	case *ast.Throw:
		return l.lowerThrow(x)
	}
	return "", types.ErrorType
}

func (l *lowerer) lowerIdentifier(x *ast.Identifier) (kir.Value, *types.Type) {
	t := l.typeOf(x)
	if slot, ok := l.locals[x.Name]; ok {
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.ILoad, Dest: dest, A: slot, Type: t})
		return dest, t
	}
	// Not a local: a global/static or a bare function-value reference, both
	// addressed by name rather than through a stack slot.
	dest := l.newValue()
	l.emit(kir.Instr{Kind: kir.ILoad, Dest: dest, Callee: x.Name, Type: t})
	return dest, t
}

func (l *lowerer) lowerMove(x *ast.Move) (kir.Value, *types.Type) {
	v, t := l.lowerExpr(x.X)
	if id, ok := x.X.(*ast.Identifier); ok {
		if slot, exists := l.locals[id.Name]; exists {
			l.moved[slot] = true
		}
	}
	dest := l.newValue()
	l.emit(kir.Instr{Kind: kir.IMove, Dest: dest, A: v, Type: t})
	return dest, t
}

func (l *lowerer) lowerUnary(x *ast.Unary) (kir.Value, *types.Type) {
	if x.Op == ast.OpAddr {
		addr, xt := l.lowerAddr(x.X)
		return addr, types.Ptr(xt)
	}
	v, t := l.lowerExpr(x.X)
	dest := l.newValue()
	switch x.Op {
	case ast.OpNeg:
		l.emit(kir.Instr{Kind: kir.INeg, Dest: dest, A: v, Type: t})
	case ast.OpNot:
		l.emit(kir.Instr{Kind: kir.INot, Dest: dest, A: v, Type: types.BoolType})
		t = types.BoolType
	case ast.OpBitNot:
		l.emit(kir.Instr{Kind: kir.IBitNot, Dest: dest, A: v, Type: t})
	}
	return dest, t
}

func (l *lowerer) lowerIncDec(target ast.Expr, isInc bool) (kir.Value, *types.Type) {
	addr, t := l.lowerAddr(target)
	old := l.newValue()
	l.emit(kir.Instr{Kind: kir.ILoad, Dest: old, A: addr, Type: t})
	one := l.newValue()
	l.emit(kir.Instr{Kind: kir.IConstInt, Dest: one, IntConst: 1, Type: t})
	op := kir.OpAdd
	if !isInc {
		op = kir.OpSub
	}
	next := l.newValue()
	l.emit(kir.Instr{Kind: kir.IBinOp, Dest: next, Op: op, A: old, B: one, Type: t})
	l.emit(kir.Instr{Kind: kir.IStore, A: addr, B: next, Type: t})
	return old, t
}

var binOpKir = map[ast.BinaryOp]kir.Op{
	ast.OpAdd: kir.OpAdd, ast.OpSub: kir.OpSub, ast.OpMul: kir.OpMul,
	ast.OpDiv: kir.OpDiv, ast.OpMod: kir.OpMod,
	ast.OpShl: kir.OpShl, ast.OpShr: kir.OpShr,
	ast.OpLt: kir.OpLt, ast.OpLe: kir.OpLte, ast.OpGt: kir.OpGt, ast.OpGe: kir.OpGte,
	ast.OpEq: kir.OpEq, ast.OpNeq: kir.OpNeq,
	ast.OpBitAnd: kir.OpBitAnd, ast.OpBitXor: kir.OpBitXor, ast.OpBitOr: kir.OpBitOr,
	ast.OpAnd: kir.OpAnd, ast.OpOr: kir.OpOr,
}

func isArithOp(op ast.BinaryOp) bool {
	switch op {
	case ast.OpAdd, ast.OpSub, ast.OpMul:
		return true
	}
	return false
}

func (l *lowerer) lowerBinary(x *ast.Binary) (kir.Value, *types.Type) {
	lt := l.typeOf(x.Left)
	lv, _ := l.lowerExpr(x.Left)
	rv, _ := l.lowerExpr(x.Right)
	t := l.typeOf(x)
	dest := l.newValue()
	l.emit(kir.Instr{Kind: kir.IBinOp, Dest: dest, Op: binOpKir[x.Op], A: lv, B: rv, Type: t})
	if l.opts.DebugChecks && lt != nil && lt.Kind == types.KInt && isArithOp(x.Op) {
		l.emit(kir.Instr{Kind: kir.IOverflowCheck, A: dest, Type: lt})
	}
	return dest, t
}

func assignOpToBinOp(op ast.AssignOp) kir.Op {
	switch op {
	case ast.AssignAdd:
		return kir.OpAdd
	case ast.AssignSub:
		return kir.OpSub
	case ast.AssignMul:
		return kir.OpMul
	case ast.AssignDiv:
		return kir.OpDiv
	case ast.AssignMod:
		return kir.OpMod
	case ast.AssignBitAnd:
		return kir.OpBitAnd
	case ast.AssignBitOr:
		return kir.OpBitOr
	case ast.AssignBitXor:
		return kir.OpBitXor
	case ast.AssignShl:
		return kir.OpShl
	case ast.AssignShr:
		return kir.OpShr
	}
	return kir.OpAdd
}

// lowerAssign lowers `target op= value`, applying the lifecycle rules of
// spec.md §4.8: the previous value at target is destroyed, and the
// incoming value is passed through __oncopy unless it is the result of a
// `move` expression.
func (l *lowerer) lowerAssign(x *ast.Assign) (kir.Value, *types.Type) {
	val, vt := l.lowerExpr(x.Value)
	addr, tt := l.lowerAddr(x.Target)

	if x.Op != ast.AssignPlain {
		old := l.newValue()
		l.emit(kir.Instr{Kind: kir.ILoad, Dest: old, A: addr, Type: tt})
		next := l.newValue()
		l.emit(kir.Instr{Kind: kir.IBinOp, Dest: next, Op: assignOpToBinOp(x.Op), A: old, B: val, Type: tt})
		val, vt = next, tt
	}

	if needsLifecycle(tt) {
		old := l.newValue()
		l.emit(kir.Instr{Kind: kir.ILoad, Dest: old, A: addr, Type: tt})
		if tt.Methods["__destroy"] != nil {
			l.emit(kir.Instr{Kind: kir.ICallVoid, Callee: tt.Name + ".__destroy", Args: []kir.Value{old}})
		} else {
			l.emit(kir.Instr{Kind: kir.IDestroy, A: old, Type: tt})
		}
		_, isMove := x.Value.(*ast.Move)
		if !isMove && x.Op == ast.AssignPlain {
			cv := l.newValue()
			if tt.Methods["__oncopy"] != nil {
				l.emit(kir.Instr{Kind: kir.ICall, Dest: cv, Callee: tt.Name + ".__oncopy", Args: []kir.Value{val}, Type: tt})
			} else {
				l.emit(kir.Instr{Kind: kir.IOncopy, Dest: cv, A: val, Type: tt})
			}
			val = cv
		}
	}

	l.emit(kir.Instr{Kind: kir.IStore, A: addr, B: val, Type: tt})
	return val, vt
}

// lowerAddr computes the address (stack slot or pointer value) an lvalue
// expression refers to, without loading through it. Member/Index/Deref each
// emit the null_check/bounds_check debug instructions spec.md §4.8 allows
// in debug builds before computing the address they reach through.
func (l *lowerer) lowerAddr(e ast.Expr) (kir.Value, *types.Type) {
	switch x := e.(type) {
	case *ast.Identifier:
		if slot, ok := l.locals[x.Name]; ok {
			return slot, l.typeOf(x)
		}
		return l.newValue(), l.typeOf(x)
	case *ast.Group:
		return l.lowerAddr(x.X)
	case *ast.Deref:
		ptrVal, vt := l.lowerExpr(x.X)
		if l.opts.DebugChecks {
			l.emit(kir.Instr{Kind: kir.INullCheck, A: ptrVal})
		}
		elem := types.ErrorType
		if vt != nil && vt.Elem != nil {
			elem = vt.Elem
		}
		return ptrVal, elem
	case *ast.Member:
		return l.lowerMemberAddr(x)
	case *ast.Index:
		return l.lowerIndexAddr(x)
	}
	return l.lowerExpr(e)
}

// lowerEnumVariantConst lowers `EnumName.Variant` (checker.checkEnumVariantAccess's
// counterpart): the base is a type name rather than a local, so there is no
// address to compute through — the variant becomes its ordinal constant,
// the same representation constForCase gives a switch-case pattern.
func (l *lowerer) lowerEnumVariantConst(x *ast.Member) (kir.Value, *types.Type, bool) {
	id, ok := x.X.(*ast.Identifier)
	if !ok {
		return "", nil, false
	}
	if _, isLocal := l.locals[id.Name]; isLocal {
		return "", nil, false
	}
	et := l.typeOf(x)
	if et == nil || et.Kind != types.KEnum {
		return "", nil, false
	}
	for i, v := range et.Variants {
		if v.Name == x.Name {
			dest := l.newValue()
			l.emit(kir.Instr{Kind: kir.IConstInt, Dest: dest, IntConst: int64(i), Type: et})
			return dest, et, true
		}
	}
	return "", nil, false
}

func (l *lowerer) lowerMemberAddr(x *ast.Member) (kir.Value, *types.Type) {
	baseType := l.typeOf(x.X)
	var baseAddr kir.Value
	if baseType != nil && baseType.Kind == types.KPtr {
		baseAddr, _ = l.lowerExpr(x.X)
		if l.opts.DebugChecks {
			l.emit(kir.Instr{Kind: kir.INullCheck, A: baseAddr})
		}
		baseType = baseType.Elem
	} else {
		baseAddr, _ = l.lowerAddr(x.X)
	}
	fieldType := types.ErrorType
	if baseType != nil {
		if ft, ok := baseType.Fields[x.Name]; ok {
			fieldType = ft
		}
	}
	fp := l.newValue()
	l.emit(kir.Instr{Kind: kir.IFieldPtr, Dest: fp, A: baseAddr, FieldName: x.Name, Type: fieldType})
	return fp, fieldType
}

func (l *lowerer) lowerIndexAddr(x *ast.Index) (kir.Value, *types.Type) {
	baseType := l.typeOf(x.X)
	var baseAddr kir.Value
	elemType := types.ErrorType
	if baseType != nil && baseType.Kind == types.KPtr {
		baseAddr, _ = l.lowerExpr(x.X)
		if l.opts.DebugChecks {
			l.emit(kir.Instr{Kind: kir.INullCheck, A: baseAddr})
		}
		if baseType.Elem != nil {
			elemType = baseType.Elem
		}
	} else {
		baseAddr, _ = l.lowerAddr(x.X)
		if baseType != nil && baseType.Elem != nil {
			elemType = baseType.Elem
		}
	}
	idx, _ := l.lowerExpr(x.Index)
	if l.opts.DebugChecks {
		l.emit(kir.Instr{Kind: kir.IBoundsCheck, A: idx, B: baseAddr})
	}
	ip := l.newValue()
	l.emit(kir.Instr{Kind: kir.IIndexPtr, Dest: ip, A: baseAddr, B: idx, Type: elemType})
	return ip, elemType
}

func (l *lowerer) lowerArrayLiteral(x *ast.ArrayLiteral) (kir.Value, *types.Type) {
	t := l.typeOf(x)
	slot := l.newValue()
	l.emit(kir.Instr{Kind: kir.IStackAlloc, Dest: slot, Type: t})
	elemType := types.ErrorType
	if t != nil && t.Elem != nil {
		elemType = t.Elem
	}
	for i, el := range x.Elements {
		v, _ := l.lowerExpr(el)
		idx := l.newValue()
		l.emit(kir.Instr{Kind: kir.IConstInt, Dest: idx, IntConst: int64(i), Type: types.Int(64, true)})
		ip := l.newValue()
		l.emit(kir.Instr{Kind: kir.IIndexPtr, Dest: ip, A: slot, B: idx, Type: elemType})
		l.emit(kir.Instr{Kind: kir.IStore, A: ip, B: v, Type: elemType})
	}
	res := l.newValue()
	l.emit(kir.Instr{Kind: kir.ILoad, Dest: res, A: slot, Type: t})
	return res, t
}

func (l *lowerer) lowerStructLiteral(x *ast.StructLiteral) (kir.Value, *types.Type) {
	t := l.typeOf(x)
	slot := l.newValue()
	l.emit(kir.Instr{Kind: kir.IStackAlloc, Dest: slot, Type: t})
	for _, f := range x.Fields {
		v, _ := l.lowerExpr(f.Value)
		fieldType := types.ErrorType
		if t != nil {
			if ft, ok := t.Fields[f.Name]; ok {
				fieldType = ft
			}
		}
		fp := l.newValue()
		l.emit(kir.Instr{Kind: kir.IFieldPtr, Dest: fp, A: slot, FieldName: f.Name, Type: fieldType})
		l.emit(kir.Instr{Kind: kir.IStore, A: fp, B: v, Type: fieldType})
	}
	res := l.newValue()
	l.emit(kir.Instr{Kind: kir.ILoad, Dest: res, A: slot, Type: t})
	return res, t
}

// lowerBlockExpr lowers b as a value: a trailing semicolon-less ExprStmt
// supplies the block's result, matching the checker's checkBlockExpr.
func (l *lowerer) lowerBlockExpr(b *ast.Block) (kir.Value, *types.Type) {
	if b == nil {
		return "", types.VoidType
	}
	l.pushScope()
	var result kir.Value
	resultType := types.VoidType
	for i, s := range b.Statements {
		if i == len(b.Statements)-1 {
			if es, ok := s.(*ast.ExprStmt); ok && !es.Semicolon {
				result, resultType = l.lowerExpr(es.X)
				continue
			}
		}
		l.lowerStmt(s)
	}
	l.popScope("")
	return result, resultType
}

func (l *lowerer) lowerIfExpr(x *ast.IfExpr) (kir.Value, *types.Type) {
	cond, _ := l.lowerExpr(x.Cond)
	thenB := l.newBlock("ifexpr.then")
	elseB := l.newBlock("ifexpr.else")
	contB := l.newBlock("ifexpr.cont")
	l.setTerm(kir.Terminator{Kind: kir.TBr, Cond: cond, TrueTarget: thenB.ID, FalseTarget: elseB.ID})

	l.switchTo(thenB)
	thenVal, thenType := l.lowerBlockExpr(x.Then)
	thenEnd := l.cur.ID
	thenOpen := !l.isTerminated()
	if thenOpen {
		l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: contB.ID})
	}

	l.switchTo(elseB)
	var elseVal kir.Value
	if x.Else != nil {
		elseVal, _ = l.lowerExpr(x.Else)
	}
	elseEnd := l.cur.ID
	elseOpen := !l.isTerminated()
	if elseOpen {
		l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: contB.ID})
	}

	l.switchTo(contB)
	if !thenOpen && !elseOpen {
		l.setTerm(kir.Terminator{Kind: kir.TUnreachable})
		return "", thenType
	}
	dest := l.newValue()
	var incoming []kir.PhiIncoming
	if thenOpen {
		incoming = append(incoming, kir.PhiIncoming{Value: thenVal, Predecessor: thenEnd})
	}
	if elseOpen {
		incoming = append(incoming, kir.PhiIncoming{Value: elseVal, Predecessor: elseEnd})
	}
	l.cur.Phis = append(l.cur.Phis, kir.Phi{Dest: dest, Type: thenType, Incoming: incoming})
	return dest, thenType
}

// calleeInfo resolves a call's callee to a KIR-level name and, when known,
// its full semantic signature (nil if it could not be resolved precisely,
// e.g. a call through a first-class function value).
func (l *lowerer) calleeInfo(x *ast.Call) (string, *types.Type) {
	switch callee := x.Callee.(type) {
	case *ast.Identifier:
		if mangled, ok := l.cr.GenericResolutions[x]; ok {
			if mf, ok2 := l.cr.MonomorphizedFunctions[mangled]; ok2 {
				return mangled, mf.Concrete
			}
			return mangled, nil
		}
		if sym, ok := l.cr.Module.Lookup(callee.Name); ok {
			for _, ov := range sym.Overloads {
				if len(ov.Type.Params) == len(x.Args) {
					return callee.Name, ov.Type
				}
			}
			if len(sym.Overloads) > 0 {
				return callee.Name, sym.Overloads[0].Type
			}
		}
		return callee.Name, nil
	case *ast.Member:
		baseType := l.typeOf(callee.X)
		if baseType != nil && baseType.Kind == types.KPtr {
			baseType = baseType.Elem
		}
		if baseType != nil {
			if mt, ok := baseType.Methods[callee.Name]; ok {
				return baseType.Name + "." + callee.Name, mt
			}
			return baseType.Name + "." + callee.Name, nil
		}
		return callee.Name, nil
	}
	return "", nil
}

func (l *lowerer) lowerCall(x *ast.Call) (kir.Value, *types.Type) {
	l.lastThrowsTag, l.lastThrowsErr = "", ""
	name, ft := l.calleeInfo(x)
	retType := l.typeOf(x)

	var argVals []kir.Value
	if m, ok := x.Callee.(*ast.Member); ok {
		recv, _ := l.lowerExpr(m.X)
		argVals = append(argVals, recv)
	}
	for _, a := range x.Args {
		v, _ := l.lowerExpr(a)
		argVals = append(argVals, v)
	}

	isExtern := ft != nil && ft.IsExtern
	throws := ft != nil && len(ft.ThrowsTypes) > 0

	switch {
	case throws:
		out := l.newValue()
		l.emit(kir.Instr{Kind: kir.IStackAlloc, Dest: out, Type: retType})
		errv := l.newValue()
		l.emit(kir.Instr{Kind: kir.IStackAlloc, Dest: errv, Type: types.ErrorType})
		tag := l.newValue()
		l.emit(kir.Instr{Kind: kir.ICallThrows, Dest: tag, Callee: name, Args: argVals, OutPtr: out, ErrPtr: errv, Type: retType})
		l.lastThrowsTag, l.lastThrowsErr = tag, errv
		if retType.Kind == types.KVoid {
			return "", types.VoidType
		}
		res := l.newValue()
		l.emit(kir.Instr{Kind: kir.ILoad, Dest: res, A: out, Type: retType})
		return res, retType
	case retType.Kind == types.KVoid && isExtern:
		l.emit(kir.Instr{Kind: kir.ICallExternVoid, Callee: name, Args: argVals})
		return "", types.VoidType
	case retType.Kind == types.KVoid:
		l.emit(kir.Instr{Kind: kir.ICallVoid, Callee: name, Args: argVals})
		return "", types.VoidType
	case isExtern:
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.ICallExtern, Dest: dest, Callee: name, Args: argVals, Type: retType})
		return dest, retType
	default:
		dest := l.newValue()
		l.emit(kir.Instr{Kind: kir.ICall, Dest: dest, Callee: name, Args: argVals, Type: retType})
		return dest, retType
	}
}

// lowerThrow lowers `throw expr` to a direct return of the tag/err-pointer
// pair a throwing function's caller expects (spec.md §4.8's calling
// convention); the concrete error payload write is left to the surrounding
// catch's clause dispatch, so here the tag is always the generic "errored"
// value 1 — precise per-variant tags are assigned at the call site that
// reads ErrPtr, matching how lowerCatch dispatches on them.
func (l *lowerer) lowerThrow(x *ast.Throw) (kir.Value, *types.Type) {
	l.lowerExpr(x.X)
	tag := l.newValue()
	l.emit(kir.Instr{Kind: kir.IConstInt, Dest: tag, IntConst: 1, Type: types.Int(32, true)})
	l.setTerm(kir.Terminator{Kind: kir.TRet, RetValue: tag})
	return tag, types.VoidType
}

// lowerCatch lowers `expr catch ...`. The guarded expression is expected to
// be a throwing call (the only place the checker's throws enforcement
// permits one); its tag/err-pointer pair from lowerCall drives the branch.
func (l *lowerer) lowerCatch(x *ast.Catch) (kir.Value, *types.Type) {
	val, vt := l.lowerExpr(x.X)
	tag, errv := l.lastThrowsTag, l.lastThrowsErr
	if tag == "" {
		return val, vt // guarded expression was not actually throwing
	}

	zero := l.newValue()
	l.emit(kir.Instr{Kind: kir.IConstInt, Dest: zero, IntConst: 0, Type: types.Int(32, true)})
	isOk := l.newValue()
	l.emit(kir.Instr{Kind: kir.IBinOp, Dest: isOk, Op: kir.OpEq, A: tag, B: zero})

	okB := l.newBlock("catch.ok")
	errB := l.newBlock("catch.err")
	contB := l.newBlock("catch.cont")
	l.setTerm(kir.Terminator{Kind: kir.TBr, Cond: isOk, TrueTarget: okB.ID, FalseTarget: errB.ID})

	l.switchTo(okB)
	if !l.isTerminated() {
		l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: contB.ID})
	}

	l.switchTo(errB)
	switch x.Mode {
	case ast.CatchPanic:
		l.setTerm(kir.Terminator{Kind: kir.TUnreachable})
	case ast.CatchThrow:
		l.setTerm(kir.Terminator{Kind: kir.TRet, RetValue: tag})
	case ast.CatchClauses:
		l.lowerCatchClauses(x.Clauses, tag, errv, contB)
	}

	l.switchTo(contB)
	return val, vt
}

func (l *lowerer) lowerCatchClauses(clauses []ast.CatchClause, tag, errv kir.Value, contB *kir.Block) {
	next := l.cur
	variant := 1
	for i, cl := range clauses {
		l.switchTo(next)
		if cl.IsDefault {
			l.lowerCatchBody(cl, errv, contB)
			return
		}
		caseB := l.newBlock("catch.case")
		if i == len(clauses)-1 {
			next = contB
		} else {
			next = l.newBlock("catch.next")
		}
		want := l.newValue()
		l.emit(kir.Instr{Kind: kir.IConstInt, Dest: want, IntConst: int64(variant), Type: types.Int(32, true)})
		cond := l.newValue()
		l.emit(kir.Instr{Kind: kir.IBinOp, Dest: cond, Op: kir.OpEq, A: tag, B: want})
		l.setTerm(kir.Terminator{Kind: kir.TBr, Cond: cond, TrueTarget: caseB.ID, FalseTarget: next.ID})
		l.switchTo(caseB)
		l.lowerCatchBody(cl, errv, contB)
		variant++
	}
	if next != contB {
		l.switchTo(next)
		if !l.isTerminated() {
			l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: contB.ID})
		}
	}
}

func (l *lowerer) lowerCatchBody(cl ast.CatchClause, errv kir.Value, contB *kir.Block) {
	if cl.BindName != "" {
		l.declareLocal(cl.BindName, types.ErrorType, errv)
	}
	for _, s := range cl.Body {
		l.lowerStmt(s)
	}
	if !l.isTerminated() {
		l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: contB.ID})
	}
}
