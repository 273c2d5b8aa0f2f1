// Package lower translates a checked AST into KIR (internal/compiler/kir):
// control flow becomes basic blocks, every local variable becomes a stack
// slot (alloc/load/store) rather than a hand-placed phi — KIR's explicit
// IStackAlloc/ILoad/IStore instructions make the phi-placement pass that a
// register-based SSA builder would need unnecessary for this core, and a
// later optimizer (out of scope) is the natural place for a mem2reg pass.
// Grounded in the teacher's cfg-building walk (breadchris-yaegi/interp/cfg.go):
// one recursive statement/expression walk emitting into a current block,
// same shape as yaegi's node-annotation walk.
package lower

import (
	"fmt"

	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/checker"
	"github.com/kei-lang/kei/internal/compiler/kir"
	"github.com/kei-lang/kei/internal/compiler/types"
)

// Options controls lowering-time behavior.
type Options struct {
	// DebugChecks enables emission of bounds/overflow/null-check
	// instructions (spec.md §4.8), matching KEI_DEBUG_CHECKS.
	DebugChecks bool
}

// Lower builds one KIR Module from a fully checked Program.
func Lower(name string, prog *ast.Program, cr *checker.Result, opts Options) *kir.Module {
	l := &lowerer{cr: cr, opts: opts}
	mod := &kir.Module{Name: name}

	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.Static:
			sym, _ := cr.Module.Lookup(decl.Name)
			t := types.ErrorType
			if sym != nil {
				t = sym.Type
			}
			mod.Globals = append(mod.Globals, kir.Global{Name: decl.Name, Type: t})
		case *ast.ExternFunction:
			mod.Externs = append(mod.Externs, l.lowerExternDecl(decl))
		case *ast.Function:
			if len(decl.GenericParams) > 0 {
				continue // lowered per monomorphized instance below
			}
			mod.Functions = append(mod.Functions, l.lowerFunction(decl, nil, nil, decl.Name))
		case *ast.Struct:
			l.lowerMethods(&mod.Functions, decl.Name, decl.GenericParams, decl.Methods)
		case *ast.UnsafeStruct:
			l.lowerMethods(&mod.Functions, decl.Name, decl.GenericParams, decl.Methods)
		}
	}

	for mangled, mf := range cr.MonomorphizedFunctions {
		if mf.Declaration != nil {
			mod.Functions = append(mod.Functions, l.lowerFunction(mf.Declaration, mf.Declaration.GenericParams, mf.TypeArgs, mangled))
		}
	}
	for _, ms := range cr.MonomorphizedStructs {
		mod.Types = append(mod.Types, ms.Concrete)
		if ms.OriginalDecl == nil {
			continue
		}
		for _, m := range ms.OriginalDecl.Methods {
			mod.Functions = append(mod.Functions, l.lowerFunction(m, ms.OriginalDecl.GenericParams, ms.TypeArgs, ms.Concrete.Name+"."+m.Name))
		}
	}

	return mod
}

func (l *lowerer) lowerMethods(out *[]*kir.Function, structName string, generics []string, methods []*ast.Function) {
	for _, m := range methods {
		if len(generics) > 0 {
			continue // only instantiated alongside a concrete struct monomorphization
		}
		*out = append(*out, l.lowerFunction(m, nil, nil, structName+"."+m.Name))
	}
}

func (l *lowerer) lowerExternDecl(fn *ast.ExternFunction) kir.ExternDecl {
	sym, _ := l.cr.Module.Lookup(fn.Name)
	ft := sym.Overloads[0].Type
	return kir.ExternDecl{Name: fn.Name, Params: ft.Params, ReturnType: ft.Return}
}

// lowerer carries the checker's result (for typeMap lookups) and per-function
// builder state; one lowerer is reused across every function in a module.
type lowerer struct {
	cr   *checker.Result
	opts Options

	valueCount int
	blocks     []*kir.Block
	cur        *kir.Block
	locals     map[string]kir.Value // variable name -> its stack-slot pointer
	deferred   []ast.Stmt           // active defer stack, LIFO at function exit
	loopExit   []string             // break targets, innermost last
	loopCont   []string             // continue targets, innermost last

	// subst carries the generic->concrete type mapping active while lowering
	// one monomorphized function or struct-method instance; nil for a
	// non-generic declaration.
	subst map[string]*types.Type

	// scopeStack mirrors the nested block structure currently being lowered:
	// each frame holds the lifecycle-tracked locals declared directly in
	// that block, for destroy emission on scope exit (spec.md §4.8).
	scopeStack [][]trackedLocal

	// moved records, by stack slot, every local that a `move` has already
	// consumed; destroy emission skips these (spec.md §4.7.6/§4.8).
	moved map[kir.Value]bool

	// lastThrowsTag/lastThrowsErr carry the result-tag and error-pointer
	// values produced by the most recently lowered throwing call, consumed
	// by an immediately enclosing Catch.
	lastThrowsTag kir.Value
	lastThrowsErr kir.Value

	// terminated tracks whether cur already has a terminator, since
	// kir.Terminator holds a slice field and so cannot be compared with ==.
	terminated bool
}

// trackedLocal is one lifecycle-managed local awaiting scope-exit destroy.
type trackedLocal struct {
	name string
	slot kir.Value
	typ  *types.Type
}

// needsLifecycle reports whether t's locals must be destroyed/oncopied,
// i.e. it is a struct with either a user hook or a synthesized auto hook.
func needsLifecycle(t *types.Type) bool {
	return t != nil && t.Kind == types.KStruct && (t.AutoDestroy || t.Methods["__destroy"] != nil)
}

func (l *lowerer) newValue() kir.Value {
	l.valueCount++
	return kir.Value(fmt.Sprintf("%%%d", l.valueCount))
}

func (l *lowerer) newBlock(label string) *kir.Block {
	b := &kir.Block{ID: fmt.Sprintf("%s.%d", label, len(l.blocks))}
	l.blocks = append(l.blocks, b)
	return b
}

// switchTo makes b the current block being appended to.
func (l *lowerer) switchTo(b *kir.Block) {
	l.cur = b
	l.terminated = false
}

// setTerm assigns cur's terminator exactly once; a second call on the same
// block (e.g. falling through after a return already closed it) is ignored.
func (l *lowerer) setTerm(t kir.Terminator) {
	if l.terminated {
		return
	}
	l.cur.Term = t
	l.terminated = true
}

func (l *lowerer) emit(in kir.Instr) kir.Value {
	l.cur.Instructions = append(l.cur.Instructions, in)
	return in.Dest
}

func (l *lowerer) typeOf(e ast.Expr) *types.Type {
	t, ok := l.cr.TypeMap[e]
	if !ok {
		t = types.ErrorType
	}
	if l.subst != nil {
		return types.SubstituteType(t, l.subst)
	}
	return t
}

// funcType resolves fn's full semantic signature. Free functions were
// registered as module-scope overloads during collection; methods were not
// (there is no single enclosing scope for a struct's methods), so those are
// looked up in the checker's per-declaration methodTypes side-table instead.
func (l *lowerer) funcType(fn *ast.Function) *types.Type {
	if fn.Receiver != nil {
		return l.cr.MethodTypes[fn]
	}
	if sym, ok := l.cr.Module.Lookup(fn.Name); ok {
		for _, ov := range sym.Overloads {
			if ov.Decl == fn {
				return ov.Type
			}
		}
	}
	return nil
}

// lowerFunction lowers one function or method declaration to a KIR Function
// under name. genericNames/typeArgs instantiate a generic template: for a
// plain declaration both are nil; for a monomorphized free function they are
// the function's own generic parameters; for a monomorphized struct's method
// they are the struct's generic parameters, since the method body refers to
// the struct's type variables rather than any of its own.
func (l *lowerer) lowerFunction(fn *ast.Function, genericNames []string, typeArgs []*types.Type, name string) *kir.Function {
	l.valueCount = 0
	l.blocks = nil
	l.locals = map[string]kir.Value{}
	l.deferred = nil
	l.loopExit = nil
	l.loopCont = nil
	l.scopeStack = nil
	l.moved = map[kir.Value]bool{}
	l.subst = nil
	if len(genericNames) > 0 && len(genericNames) == len(typeArgs) {
		m := make(map[string]*types.Type, len(genericNames))
		for i, p := range genericNames {
			m[p] = typeArgs[i]
		}
		l.subst = m
	}

	entry := l.newBlock("entry")
	l.switchTo(entry)

	ft := l.funcType(fn)

	var params []types.Param
	pidx := 0
	if fn.Receiver != nil {
		pt := types.ErrorType
		if ft != nil && len(ft.Params) > 0 {
			pt = types.SubstituteType(ft.Params[0].Type, l.subst)
		}
		params = append(params, types.Param{Name: fn.Receiver.Name, Type: pt})
		l.allocParam(fn.Receiver.Name, pt)
		pidx = 1
	}
	for i, p := range fn.Params {
		pt := types.ErrorType
		if ft != nil && i+pidx < len(ft.Params) {
			pt = types.SubstituteType(ft.Params[i+pidx].Type, l.subst)
		}
		params = append(params, types.Param{Name: p.Name, Type: pt})
		l.allocParam(p.Name, pt)
	}

	ret := types.VoidType
	var throws []*types.Type
	if ft != nil {
		ret = types.SubstituteType(ft.Return, l.subst)
		for _, th := range ft.ThrowsTypes {
			throws = append(throws, types.SubstituteType(th, l.subst))
		}
	}

	if fn.Body != nil {
		l.lowerBlock(fn.Body)
	}
	if !l.isTerminated() {
		l.flushDefers()
		if ret.Kind == types.KVoid {
			l.setTerm(kir.Terminator{Kind: kir.TRetVoid})
		} else {
			l.setTerm(kir.Terminator{Kind: kir.TUnreachable})
		}
	}

	return &kir.Function{
		Name: name, Params: params, ReturnType: ret,
		LocalCount: len(l.locals), Blocks: l.blocks, ThrowsTypes: throws,
	}
}

func (l *lowerer) allocParam(name string, t *types.Type) {
	slot := l.newValue()
	l.emit(kir.Instr{Kind: kir.IStackAlloc, Dest: slot, Type: t})
	l.emit(kir.Instr{Kind: kir.IStore, A: slot, B: kir.Value("%arg." + name), Type: t})
	l.locals[name] = slot
}

func (l *lowerer) lowerBlock(b *ast.Block) {
	if b == nil {
		return
	}
	l.pushScope()
	for _, s := range b.Statements {
		l.lowerStmt(s)
	}
	l.popScope("")
}

func (l *lowerer) pushScope() {
	l.scopeStack = append(l.scopeStack, nil)
}

// popScope emits destroy for this block's lifecycle-tracked locals, in
// reverse declaration order, skipping anything already moved (spec.md
// §4.8's "Scope exit" rule). If the block already terminated (e.g. it ended
// in a return, which destroys its own enclosing scopes itself), nothing is
// emitted: appending instructions after a terminator would leave the block
// with more than the one terminator spec.md §4.1 requires.
func (l *lowerer) popScope(skipName string) {
	frame := l.scopeStack[len(l.scopeStack)-1]
	l.scopeStack = l.scopeStack[:len(l.scopeStack)-1]
	if l.terminated {
		return
	}
	l.destroyFrame(frame, skipName)
}

func (l *lowerer) destroyFrame(frame []trackedLocal, skipName string) {
	for i := len(frame) - 1; i >= 0; i-- {
		tl := frame[i]
		if tl.name == skipName || l.moved[tl.slot] {
			continue
		}
		v := l.newValue()
		l.emit(kir.Instr{Kind: kir.ILoad, Dest: v, A: tl.slot, Type: tl.typ})
		if tl.typ.Methods["__destroy"] != nil {
			l.emit(kir.Instr{Kind: kir.ICallVoid, Callee: tl.typ.Name + ".__destroy", Args: []kir.Value{v}})
		} else {
			l.emit(kir.Instr{Kind: kir.IDestroy, A: v, Type: tl.typ})
		}
	}
}

// destroyAllScopes emits destroys for every enclosing block's tracked
// locals, innermost first, skipping skipName — used at a return statement,
// which exits every scope between it and the function body at once.
func (l *lowerer) destroyAllScopes(skipName string) {
	for i := len(l.scopeStack) - 1; i >= 0; i-- {
		l.destroyFrame(l.scopeStack[i], skipName)
	}
}

// declareLocal allocates a stack slot for name, storing value if present
// (without invoking __oncopy; used for loop/catch bindings where the value
// is already freshly produced, not copied from an existing owner).
func (l *lowerer) declareLocal(name string, t *types.Type, value kir.Value) {
	l.declareLocalCopying(name, t, value, true)
}

// declareLocalCopying is declareLocal's general form: when isMove is false
// and t needs lifecycle management, value is passed through __oncopy first
// (spec.md §4.8's "Let/assign with lifecycle" rule); when isMove is true no
// copy hook runs and the source's own destroy is the move's responsibility.
func (l *lowerer) declareLocalCopying(name string, t *types.Type, value kir.Value, isMove bool) {
	slot := l.newValue()
	l.emit(kir.Instr{Kind: kir.IStackAlloc, Dest: slot, Type: t})
	if value != "" {
		if !isMove && needsLifecycle(t) {
			cv := l.newValue()
			if t.Methods["__oncopy"] != nil {
				l.emit(kir.Instr{Kind: kir.ICall, Dest: cv, Callee: t.Name + ".__oncopy", Args: []kir.Value{value}, Type: t})
			} else {
				l.emit(kir.Instr{Kind: kir.IOncopy, Dest: cv, A: value, Type: t})
			}
			value = cv
		}
		l.emit(kir.Instr{Kind: kir.IStore, A: slot, B: value, Type: t})
	}
	l.locals[name] = slot
	if needsLifecycle(t) && len(l.scopeStack) > 0 {
		top := len(l.scopeStack) - 1
		l.scopeStack[top] = append(l.scopeStack[top], trackedLocal{name: name, slot: slot, typ: t})
	}
}

func (l *lowerer) flushDefers() {
	for i := len(l.deferred) - 1; i >= 0; i-- {
		l.lowerStmt(l.deferred[i])
	}
}

func (l *lowerer) lowerStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.Block:
		l.lowerBlock(st)
	case *ast.Let:
		v, t := kir.Value(""), types.ErrorType
		isMove := false
		if st.Value != nil {
			v, t = l.lowerExpr(st.Value)
			_, isMove = st.Value.(*ast.Move)
		}
		l.declareLocalCopying(st.Name, t, v, isMove)
	case *ast.ConstStmt:
		v, t := l.lowerExpr(st.Value)
		l.declareLocal(st.Name, t, v)
	case *ast.ReturnStmt:
		l.flushDefers()
		if st.Value == nil {
			l.destroyAllScopes("")
			l.setTerm(kir.Terminator{Kind: kir.TRetVoid})
			return
		}
		skipName := ""
		if id, ok := st.Value.(*ast.Identifier); ok {
			skipName = id.Name
		}
		v, _ := l.lowerExpr(st.Value)
		l.destroyAllScopes(skipName)
		l.setTerm(kir.Terminator{Kind: kir.TRet, RetValue: v})
	case *ast.ExprStmt:
		l.lowerExpr(st.X)
	case *ast.IfStmt:
		l.lowerIfStmt(st)
	case *ast.WhileStmt:
		l.lowerWhile(st)
	case *ast.ForStmt:
		l.lowerFor(st)
	case *ast.SwitchStmt:
		l.lowerSwitch(st)
	case *ast.DeferStmt:
		l.deferred = append(l.deferred, st.Body)
	case *ast.BreakStmt:
		if len(l.loopExit) > 0 {
			l.flushDefers()
			l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: l.loopExit[len(l.loopExit)-1]})
		}
	case *ast.ContinueStmt:
		if len(l.loopCont) > 0 {
			l.flushDefers()
			l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: l.loopCont[len(l.loopCont)-1]})
		}
	case *ast.AssertStmt:
		l.lowerCheck(kir.IAssertCheck, st.Cond)
	case *ast.RequireStmt:
		l.lowerCheck(kir.IRequireCheck, st.Cond)
	case *ast.UnsafeBlock:
		l.lowerBlock(st.Body)
	}
}

func (l *lowerer) lowerCheck(kind kir.InstrKind, cond ast.Expr) {
	if !l.opts.DebugChecks {
		l.lowerExpr(cond)
		return
	}
	v, _ := l.lowerExpr(cond)
	l.emit(kir.Instr{Kind: kind, A: v})
}

func (l *lowerer) isTerminated() bool { return l.terminated }

func (l *lowerer) lowerIfStmt(st *ast.IfStmt) {
	cond, _ := l.lowerExpr(st.Cond)
	thenB := l.newBlock("if.then")
	contB := l.newBlock("if.cont")
	elseB := contB
	if st.Else != nil {
		elseB = l.newBlock("if.else")
	}
	l.setTerm(kir.Terminator{Kind: kir.TBr, Cond: cond, TrueTarget: thenB.ID, FalseTarget: elseB.ID})

	l.switchTo(thenB)
	l.lowerBlock(st.Then)
	if !l.isTerminated() {
		l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: contB.ID})
	}

	if st.Else != nil {
		l.switchTo(elseB)
		l.lowerStmt(st.Else)
		if !l.isTerminated() {
			l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: contB.ID})
		}
	}

	l.switchTo(contB)
}

func (l *lowerer) lowerWhile(st *ast.WhileStmt) {
	headB := l.newBlock("while.head")
	bodyB := l.newBlock("while.body")
	exitB := l.newBlock("while.exit")

	l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: headB.ID})

	l.switchTo(headB)
	cond, _ := l.lowerExpr(st.Cond)
	l.setTerm(kir.Terminator{Kind: kir.TBr, Cond: cond, TrueTarget: bodyB.ID, FalseTarget: exitB.ID})

	l.loopExit = append(l.loopExit, exitB.ID)
	l.loopCont = append(l.loopCont, headB.ID)
	l.switchTo(bodyB)
	l.lowerBlock(st.Body)
	if !l.isTerminated() {
		l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: headB.ID})
	}
	l.loopExit = l.loopExit[:len(l.loopExit)-1]
	l.loopCont = l.loopCont[:len(l.loopCont)-1]

	l.switchTo(exitB)
}

// lowerFor lowers `for x in lo..hi { ... }` to an index-counter loop; other
// iterable shapes (slice, array) lower the same way over their length.
func (l *lowerer) lowerFor(st *ast.ForStmt) {
	iterType := l.typeOf(st.Iter)
	var lo, hi kir.Value
	if r, ok := st.Iter.(*ast.Range); ok {
		lo, _ = l.lowerExpr(r.Lo)
		hi, _ = l.lowerExpr(r.Hi)
	} else {
		lo = l.emit(kir.Instr{Kind: kir.IConstInt, Dest: l.newValue(), IntConst: 0})
		iv, _ := l.lowerExpr(st.Iter)
		hi = l.emit(kir.Instr{Kind: kir.ISizeof, Dest: l.newValue(), A: iv})
	}

	elemType := types.Int(64, true)
	if iterType.Kind == types.KRange || iterType.Kind == types.KSlice || iterType.Kind == types.KArray {
		elemType = iterType.Elem
	}
	l.declareLocal(st.Var, elemType, lo)
	idxSlot := l.locals[st.Var]

	headB := l.newBlock("for.head")
	bodyB := l.newBlock("for.body")
	exitB := l.newBlock("for.exit")
	l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: headB.ID})

	l.switchTo(headB)
	cur := l.emit(kir.Instr{Kind: kir.ILoad, Dest: l.newValue(), A: idxSlot, Type: elemType})
	cond := l.emit(kir.Instr{Kind: kir.IBinOp, Dest: l.newValue(), Op: kir.OpLt, A: cur, B: hi})
	l.setTerm(kir.Terminator{Kind: kir.TBr, Cond: cond, TrueTarget: bodyB.ID, FalseTarget: exitB.ID})

	l.loopExit = append(l.loopExit, exitB.ID)
	l.loopCont = append(l.loopCont, headB.ID)
	l.switchTo(bodyB)
	l.lowerBlock(st.Body)
	if !l.isTerminated() {
		cur2 := l.emit(kir.Instr{Kind: kir.ILoad, Dest: l.newValue(), A: idxSlot, Type: elemType})
		one := l.emit(kir.Instr{Kind: kir.IConstInt, Dest: l.newValue(), IntConst: 1})
		next := l.emit(kir.Instr{Kind: kir.IBinOp, Dest: l.newValue(), Op: kir.OpAdd, A: cur2, B: one})
		l.emit(kir.Instr{Kind: kir.IStore, A: idxSlot, B: next, Type: elemType})
		l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: headB.ID})
	}
	l.loopExit = l.loopExit[:len(l.loopExit)-1]
	l.loopCont = l.loopCont[:len(l.loopCont)-1]

	l.switchTo(exitB)
}

func (l *lowerer) lowerSwitch(st *ast.SwitchStmt) {
	subj, subjType := l.lowerExpr(st.Subject)
	exitB := l.newBlock("switch.exit")

	next := l.cur
	for _, cs := range st.Cases {
		l.switchTo(next)
		if cs.IsDefault {
			l.lowerCaseBody(cs.Body, exitB)
			continue
		}
		caseB := l.newBlock("switch.case")
		next = l.newBlock("switch.next")
		patVal := l.constForCase(cs.Pattern, subjType)
		cond := l.emit(kir.Instr{Kind: kir.IBinOp, Dest: l.newValue(), Op: kir.OpEq, A: subj, B: patVal})
		l.setTerm(kir.Terminator{Kind: kir.TBr, Cond: cond, TrueTarget: caseB.ID, FalseTarget: next.ID})
		l.switchTo(caseB)
		l.lowerCaseBody(cs.Body, exitB)
	}
	l.switchTo(next)
	if !l.isTerminated() {
		l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: exitB.ID})
	}
	l.switchTo(exitB)
}

func (l *lowerer) lowerCaseBody(body []ast.Stmt, exitB *kir.Block) {
	for _, s := range body {
		l.lowerStmt(s)
	}
	if !l.isTerminated() {
		l.setTerm(kir.Terminator{Kind: kir.TJump, JumpTarget: exitB.ID})
	}
}

// constForCase lowers a case pattern; an enum variant name becomes its
// ordinal constant, anything else lowers as an ordinary expression.
func (l *lowerer) constForCase(pattern ast.Expr, subjType *types.Type) kir.Value {
	if id, ok := pattern.(*ast.Identifier); ok && subjType != nil && subjType.Kind == types.KEnum {
		for i, v := range subjType.Variants {
			if v.Name == id.Name {
				return l.emit(kir.Instr{Kind: kir.IConstInt, Dest: l.newValue(), IntConst: int64(i)})
			}
		}
	}
	v, _ := l.lowerExpr(pattern)
	return v
}
