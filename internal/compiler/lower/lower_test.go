package lower

import (
	"strings"
	"testing"

	"github.com/kei-lang/kei/internal/compiler/checker"
	"github.com/kei-lang/kei/internal/compiler/diag"
	"github.com/kei-lang/kei/internal/compiler/kir"
	"github.com/kei-lang/kei/internal/compiler/lexer"
	"github.com/kei-lang/kei/internal/compiler/parser"
	"github.com/kei-lang/kei/internal/compiler/source"
)

func lowerSrc(t *testing.T, src string) *kir.Module {
	t.Helper()
	f := source.New("t.kei", src)
	diags := diag.New()
	toks := lexer.Scan(f, diags)
	prog := parser.Parse(f, diags, toks)
	cr := checker.Check(f, diags, prog)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics before lowering: %v", diags.All())
	}
	return Lower("t", prog, cr, Options{})
}

func findFn(m *kir.Module, name string) *kir.Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func TestLowerSimpleFunction(t *testing.T) {
	m := lowerSrc(t, `
fn add(a: int, b: int) -> int {
    return a + b;
}
`)
	fn := findFn(m, "add")
	if fn == nil {
		t.Fatal("expected a lowered function named 'add'")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("len(Params) = %d, want 2", len(fn.Params))
	}
	if len(fn.Blocks) == 0 || fn.Blocks[0].Term.Kind != kir.TRet {
		t.Errorf("expected the entry block to terminate in a ret, got %+v", fn.Blocks[0].Term)
	}
}

func TestLowerMethodReceiverBecomesFirstParam(t *testing.T) {
	// Regression coverage for the parser's self-receiver-promotion fix:
	// the lowerer must see exactly one receiver param plus the declared
	// params, never a spurious extra or missing slot.
	m := lowerSrc(t, `
struct Point {
    x: f64;
    y: f64;

    fn scaled(self: Point, factor: f64) -> Point {
        return self;
    }
}
`)
	fn := findFn(m, "Point.scaled")
	if fn == nil {
		t.Fatal("expected a lowered method named 'Point.scaled'")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("len(Params) = %d, want 2 (receiver + factor)", len(fn.Params))
	}
	if fn.Params[0].Name != "self" || fn.Params[1].Name != "factor" {
		t.Errorf("unexpected param shape: %+v", fn.Params)
	}
}

func TestLowerMethodCallPrependsReceiverArgument(t *testing.T) {
	m := lowerSrc(t, `
struct Point {
    x: f64;

    fn addTo(self: Point, n: f64) -> f64 {
        return self.x + n;
    }
}

fn use(p: Point) -> f64 {
    return p.addTo(1.0);
}
`)
	fn := findFn(m, "use")
	if fn == nil {
		t.Fatal("expected a lowered function named 'use'")
	}
	var call *kir.Instr
	for _, b := range fn.Blocks {
		for i := range b.Instructions {
			if b.Instructions[i].Kind == kir.ICall && strings.Contains(b.Instructions[i].Callee, "addTo") {
				call = &b.Instructions[i]
			}
		}
	}
	if call == nil {
		t.Fatal("expected a call instruction to 'Point.addTo'")
	}
	if len(call.Args) != 2 {
		t.Fatalf("addTo call Args = %+v, want 2 (receiver + n)", call.Args)
	}
}

func TestLowerIfStmtEntryEndsInConditionalBranch(t *testing.T) {
	m := lowerSrc(t, `
fn f(flag: bool) -> int {
    if flag {
        return 1;
    }
    return 2;
}
`)
	fn := findFn(m, "f")
	entry := fn.Blocks[0]
	if entry.Term.Kind != kir.TBr {
		t.Fatalf("entry block terminator = %+v, want TBr", entry.Term)
	}
	if entry.Term.TrueTarget == "" || entry.Term.FalseTarget == "" {
		t.Error("expected both branch targets to be set")
	}
}

func TestLowerWhileLoopHasHeadBodyExit(t *testing.T) {
	m := lowerSrc(t, `
fn f() -> void {
    while true {
        break;
    }
}
`)
	fn := findFn(m, "f")
	var sawHead, sawBody, sawExit bool
	for _, b := range fn.Blocks {
		switch {
		case strings.HasPrefix(b.ID, "while.head"):
			sawHead = true
		case strings.HasPrefix(b.ID, "while.body"):
			sawBody = true
		case strings.HasPrefix(b.ID, "while.exit"):
			sawExit = true
		}
	}
	if !sawHead || !sawBody || !sawExit {
		t.Errorf("expected while.head/body/exit blocks, got %d blocks", len(fn.Blocks))
	}
}

func TestLowerGenericStructMonomorphizationProducesConcreteType(t *testing.T) {
	m := lowerSrc(t, `
struct Box<T> {
    value: T;
}

fn f() -> void {
    let b: Box<int> = Box<int>{value: 1};
}
`)
	if len(m.Types) != 1 {
		t.Fatalf("len(m.Types) = %d, want 1 monomorphized struct type", len(m.Types))
	}
	if m.Types[0].Name != "Box_i64" {
		t.Errorf("monomorphized struct name = %q, want %q", m.Types[0].Name, "Box_i64")
	}
}

func TestLowerStructDestroyedAtScopeExit(t *testing.T) {
	m := lowerSrc(t, `
unsafe struct Buffer {
    data: ptr<u8>;

    fn __destroy(self: Buffer) -> void {}
    fn __oncopy(self: Buffer) -> Buffer { return self; }
}

fn f() -> void {
    unsafe {
        let b: Buffer = Buffer{data: null};
    }
}
`)
	fn := findFn(m, "f")
	found := false
	for _, b := range fn.Blocks {
		for _, in := range b.Instructions {
			if in.Kind == kir.ICallVoid && strings.Contains(in.Callee, "__destroy") {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected a __destroy call emitted when 'b' goes out of scope")
	}
}

func TestLowerMoveSuppressesDestroy(t *testing.T) {
	m := lowerSrc(t, `
unsafe struct Buffer {
    data: ptr<u8>;

    fn __destroy(self: Buffer) -> void {}
    fn __oncopy(self: Buffer) -> Buffer { return self; }
}

fn consume(b: Buffer) -> void {}

fn f(b: Buffer) -> void {
    consume(move b);
}
`)
	fn := findFn(m, "f")
	for _, b := range fn.Blocks {
		for _, in := range b.Instructions {
			if in.Kind == kir.ICallVoid && strings.Contains(in.Callee, "__destroy") {
				t.Error("moved-from parameter should not be destroyed at scope exit")
			}
		}
	}
}

func TestLowerThrowingCallUsesCallThrowsConvention(t *testing.T) {
	m := lowerSrc(t, `
enum IoError { NotFound }

fn risky() -> int throws IoError {
    throw IoError.NotFound;
}

fn safe() -> int {
    return risky() catch {
        default: return -1;
    };
}
`)
	fn := findFn(m, "safe")
	found := false
	for _, b := range fn.Blocks {
		for _, in := range b.Instructions {
			if in.Kind == kir.ICallThrows {
				found = true
				if in.OutPtr == "" || in.ErrPtr == "" {
					t.Error("ICallThrows must carry both OutPtr and ErrPtr")
				}
			}
		}
	}
	if !found {
		t.Error("expected risky()'s call site to use the ICallThrows convention")
	}
}
