package parser

import (
	"testing"

	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/diag"
	"github.com/kei-lang/kei/internal/compiler/lexer"
	"github.com/kei-lang/kei/internal/compiler/source"
)

func parseProgram(t *testing.T, src string) (*ast.Program, *diag.Channel) {
	t.Helper()
	f := source.New("t.kei", src)
	diags := diag.New()
	toks := lexer.Scan(f, diags)
	return Parse(f, diags, toks), diags
}

func TestParseFunctionDecl(t *testing.T) {
	prog, diags := parseProgram(t, `
pub fn add(a: int, b: int) -> int {
    a + b
}
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	if len(prog.Declarations) != 1 {
		t.Fatalf("len(Declarations) = %d, want 1", len(prog.Declarations))
	}
	fn, ok := prog.Declarations[0].(*ast.Function)
	if !ok {
		t.Fatalf("decl type = %T, want *ast.Function", prog.Declarations[0])
	}
	if fn.Name != "add" || !fn.IsPub || len(fn.Params) != 2 {
		t.Errorf("unexpected function shape: %+v", fn)
	}
	if fn.Receiver != nil {
		t.Errorf("free function should have nil Receiver, got %+v", fn.Receiver)
	}
}

// This is the regression test for the self-receiver promotion fix: a
// struct method's leading `self` parameter must end up in Receiver, not
// as an ordinary Params[0] entry, or every later pass that resolves a
// method's signature silently falls back to the free-function lookup
// path and gets nothing back.
func TestParseStructMethodPromotesSelfReceiver(t *testing.T) {
	prog, diags := parseProgram(t, `
struct Point {
    x: f64;
    y: f64;

    fn length(self: Point) -> f64 {
        self.x
    }

    fn scaled(self: Point, mut factor: f64) -> Point {
        self
    }
}
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	st, ok := prog.Declarations[0].(*ast.Struct)
	if !ok {
		t.Fatalf("decl type = %T, want *ast.Struct", prog.Declarations[0])
	}
	if len(st.Methods) != 2 {
		t.Fatalf("len(Methods) = %d, want 2", len(st.Methods))
	}

	length := st.Methods[0]
	if length.Receiver == nil {
		t.Fatal("length: Receiver is nil, want populated from 'self'")
	}
	if length.Receiver.Name != "self" {
		t.Errorf("length: Receiver.Name = %q, want %q", length.Receiver.Name, "self")
	}
	if len(length.Params) != 0 {
		t.Errorf("length: Params = %+v, want empty (self must not remain a param)", length.Params)
	}

	scaled := st.Methods[1]
	if scaled.Receiver == nil {
		t.Fatal("scaled: Receiver is nil, want populated from 'self'")
	}
	if len(scaled.Params) != 1 || scaled.Params[0].Name != "factor" {
		t.Errorf("scaled: Params = %+v, want [factor]", scaled.Params)
	}
}

func TestParseFreeFunctionSelfParamIsNotAMethodReceiver(t *testing.T) {
	// A free function is never reshaped, even if its first parameter
	// happens to be named self (this is only meaningful inside a struct
	// body, but guards against over-eager promotion).
	prog, diags := parseProgram(t, `
fn identity(self: int) -> int {
    self
}
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	fn := prog.Declarations[0].(*ast.Function)
	if fn.Receiver != nil {
		t.Errorf("top-level fn should not promote self to Receiver, got %+v", fn.Receiver)
	}
	if len(fn.Params) != 1 {
		t.Errorf("expected self to remain an ordinary param for a free function, got %+v", fn.Params)
	}
}

func TestParseGenericCallVsComparison(t *testing.T) {
	prog, diags := parseProgram(t, `
fn useBox() -> void {
    let b = Box<int>(1);
    let c = a < b;
}
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	fn := prog.Declarations[0].(*ast.Function)
	if len(fn.Body.Statements) != 2 {
		t.Fatalf("len(Statements) = %d, want 2", len(fn.Body.Statements))
	}

	letB := fn.Body.Statements[0].(*ast.Let)
	call, ok := letB.Value.(*ast.Call)
	if !ok {
		t.Fatalf("b's value type = %T, want *ast.Call (generic call)", letB.Value)
	}
	if len(call.TypeArgs) != 1 {
		t.Errorf("call.TypeArgs = %+v, want one type argument", call.TypeArgs)
	}

	letC := fn.Body.Statements[1].(*ast.Let)
	bin, ok := letC.Value.(*ast.Binary)
	if !ok {
		t.Fatalf("c's value type = %T, want *ast.Binary (plain comparison)", letC.Value)
	}
	if bin.Op != ast.OpLt {
		t.Errorf("c's Binary.Op = %v, want OpLt", bin.Op)
	}
}

func TestParseStructLiteral(t *testing.T) {
	prog, diags := parseProgram(t, `
fn makePoint() -> void {
    let p = Point{x: 1, y: 2};
}
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	fn := prog.Declarations[0].(*ast.Function)
	let := fn.Body.Statements[0].(*ast.Let)
	lit, ok := let.Value.(*ast.StructLiteral)
	if !ok {
		t.Fatalf("value type = %T, want *ast.StructLiteral", let.Value)
	}
	if lit.Name != "Point" || len(lit.Fields) != 2 {
		t.Errorf("unexpected struct literal: %+v", lit)
	}
}

func TestParseIfConditionWithoutStructLiteral(t *testing.T) {
	// Inside `if`'s bare condition, `flag { ... }` must parse flag as a
	// plain identifier, not as the start of a struct literal that would
	// swallow the block.
	prog, diags := parseProgram(t, `
fn check(flag: bool) -> void {
    if flag {
        return;
    }
}
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	fn := prog.Declarations[0].(*ast.Function)
	ifStmt, ok := fn.Body.Statements[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("statement type = %T, want *ast.IfStmt", fn.Body.Statements[0])
	}
	if _, ok := ifStmt.Cond.(*ast.Identifier); !ok {
		t.Errorf("condition type = %T, want *ast.Identifier", ifStmt.Cond)
	}
}

func TestParseCatchClauses(t *testing.T) {
	prog, diags := parseProgram(t, `
fn risky() -> int throws IoError, ParseError {
    return 0;
}

fn safe() -> int {
    risky() catch {
        IoError e: return -1;
        default: return -2;
    }
}
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	risky := prog.Declarations[0].(*ast.Function)
	if len(risky.ThrowsTypes) != 2 {
		t.Fatalf("len(ThrowsTypes) = %d, want 2", len(risky.ThrowsTypes))
	}

	safe := prog.Declarations[1].(*ast.Function)
	exprStmt := safe.Body.Statements[0].(*ast.ExprStmt)
	catch, ok := exprStmt.X.(*ast.Catch)
	if !ok {
		t.Fatalf("expr type = %T, want *ast.Catch", exprStmt.X)
	}
	if catch.Mode != ast.CatchClauses || len(catch.Clauses) != 2 {
		t.Fatalf("unexpected catch: %+v", catch)
	}
	if catch.Clauses[0].ErrorVariant != "IoError" || catch.Clauses[0].BindName != "e" {
		t.Errorf("unexpected first clause: %+v", catch.Clauses[0])
	}
	if !catch.Clauses[1].IsDefault {
		t.Errorf("expected second clause to be default: %+v", catch.Clauses[1])
	}
}

func TestParseRecoversFromBadDeclaration(t *testing.T) {
	prog, diags := parseProgram(t, `
}
fn ok() -> void {
}
`)
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic from the stray '}'")
	}
	found := false
	for _, d := range prog.Declarations {
		if fn, ok := d.(*ast.Function); ok && fn.Name == "ok" {
			found = true
		}
	}
	if !found {
		t.Error("expected synchronize to recover and still parse the following 'ok' function")
	}
}
