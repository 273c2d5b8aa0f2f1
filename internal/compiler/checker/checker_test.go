package checker

import (
	"testing"

	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/diag"
	"github.com/kei-lang/kei/internal/compiler/lexer"
	"github.com/kei-lang/kei/internal/compiler/parser"
	"github.com/kei-lang/kei/internal/compiler/source"
	"github.com/kei-lang/kei/internal/compiler/types"
)

func check(t *testing.T, src string) *Result {
	t.Helper()
	f := source.New("t.kei", src)
	diags := diag.New()
	toks := lexer.Scan(f, diags)
	prog := parser.Parse(f, diags, toks)
	return Check(f, diags, prog)
}

func TestCheckSimpleFunctionOK(t *testing.T) {
	res := check(t, `
fn add(a: int, b: int) -> int {
    return a + b;
}
`)
	if !res.OK {
		t.Fatal("expected no diagnostics for a well-typed function")
	}
}

func TestCheckReturnTypeMismatch(t *testing.T) {
	res := check(t, `
fn broken() -> int {
    return "not an int";
}
`)
	if res.OK {
		t.Fatal("expected a diagnostic for a string returned where int is declared")
	}
}

func TestCheckUndeclaredType(t *testing.T) {
	res := check(t, `
fn f(x: Ghost) -> void {}
`)
	if res.OK {
		t.Fatal("expected a diagnostic for an undeclared type 'Ghost'")
	}
}

func TestCheckConditionMustBeBool(t *testing.T) {
	res := check(t, `
fn f() -> void {
    if 1 {
        return;
    }
}
`)
	if res.OK {
		t.Fatal("expected a diagnostic for a non-bool if-condition")
	}
}

func TestCheckSwitchExhaustivenessOverEnum(t *testing.T) {
	res := check(t, `
enum Color {
    Red, Green, Blue
}

fn describe(c: Color) -> void {
    switch c {
    case Red:
        return;
    case Green:
        return;
    }
}
`)
	if res.OK {
		t.Fatal("expected a diagnostic for a non-exhaustive switch missing 'Blue'")
	}
}

func TestCheckSwitchExhaustiveWithDefault(t *testing.T) {
	res := check(t, `
enum Color {
    Red, Green, Blue
}

fn describe(c: Color) -> void {
    switch c {
    case Red:
        return;
    default:
        return;
    }
}
`)
	if !res.OK {
		t.Fatal("a switch with a default clause should be considered exhaustive")
	}
}

func TestCheckGenericStructMonomorphization(t *testing.T) {
	res := check(t, `
struct Box<T> {
    value: T;
}

fn f() -> void {
    let a: Box<int> = Box<int>{value: 1};
    let b: Box<int> = Box<int>{value: 2};
}
`)
	if !res.OK {
		t.Fatalf("unexpected diagnostics checking generic struct usage")
	}
	if len(res.MonomorphizedStructs) != 1 {
		t.Fatalf("len(MonomorphizedStructs) = %d, want 1 (one shared instantiation)", len(res.MonomorphizedStructs))
	}
	for _, ms := range res.MonomorphizedStructs {
		if ms.Concrete.Fields["value"].Kind != types.KInt {
			t.Errorf("Box<int>.value field = %+v, want KInt", ms.Concrete.Fields["value"])
		}
	}
}

// Regression test for the methodTypes side-table: a method's resolved type
// (params, return, throws) must be reachable via Result.MethodTypes keyed
// by the *ast.Function itself, since methods are never registered as
// module-scope function overloads.
func TestCheckMethodTypesSideTable(t *testing.T) {
	res := check(t, `
struct Point {
    x: f64;
    y: f64;

    fn length(self: Point) -> f64 {
        return self.x;
    }
}
`)
	if !res.OK {
		t.Fatalf("unexpected diagnostics on a well-typed method")
	}
	sym, ok := res.Module.LookupType("Point")
	if !ok {
		t.Fatal("struct 'Point' not found in module scope")
	}
	methodType, ok := sym.Type.Methods["length"]
	if !ok {
		t.Fatal("method 'length' not registered on Point's Methods map")
	}
	if methodType.Return.Kind != types.KFloat {
		t.Errorf("length's declared return kind = %v, want KFloat", methodType.Return.Kind)
	}

	var methodDecl *ast.Function
	for fn := range res.MethodTypes {
		if fn.Name == "length" {
			methodDecl = fn
		}
	}
	if methodDecl == nil {
		t.Fatal("no entry in MethodTypes for 'length'")
	}
	if methodDecl.Receiver == nil || methodDecl.Receiver.Name != "self" {
		t.Fatalf("length's Receiver = %+v, want a populated 'self' receiver", methodDecl.Receiver)
	}
	mt := res.MethodTypes[methodDecl]
	if len(mt.Params) != 1 || mt.Params[0].Type.Kind != types.KStruct {
		t.Errorf("length's MethodTypes entry = %+v, want one struct-typed receiver param", mt)
	}
}

func TestCheckUseOfMovedVariable(t *testing.T) {
	res := check(t, `
unsafe struct Buffer {
    data: ptr<u8>;

    fn __destroy(self: Buffer) -> void {}
    fn __oncopy(self: Buffer) -> Buffer { return self; }
}

fn consume(b: Buffer) -> void {}

fn f(a: Buffer) -> void {
    consume(move a);
    consume(a);
}
`)
	if res.OK {
		t.Fatal("expected a diagnostic for using 'a' after it was moved")
	}
}

// Regression test: a generic struct literal with no explicit type args must
// have its type parameter inferred from the field values (spec.md §4.7
// phase 4), not rejected outright.
func TestCheckGenericStructLiteralInfersTypeArgs(t *testing.T) {
	res := check(t, `
struct Box<T> {
    value: T;
}

fn f() -> void {
    let b: Box<int> = Box{value: 1};
}
`)
	if !res.OK {
		t.Fatal("expected Box{value: 1} to infer T = int from the field value")
	}
}

func TestCheckGenericStructLiteralUninferableTypeArgs(t *testing.T) {
	res := check(t, `
struct Pair<A, B> {
    first: A;
}

fn f() -> void {
    let p = Pair{first: 1};
}
`)
	if res.OK {
		t.Fatal("expected a diagnostic: 'B' never appears in a field, so it cannot be inferred")
	}
}

// Regression test: a generic function called with no explicit type args
// must have its type parameter inferred from the argument types.
func TestCheckGenericFunctionCallInfersTypeArgs(t *testing.T) {
	res := check(t, `
fn identity<T>(x: T) -> T {
    return x;
}

fn f() -> void {
    let a: int = identity(1);
}
`)
	if !res.OK {
		t.Fatal("expected identity(1) to infer T = int from the argument")
	}
}

// Regression test: a method call's explicit arguments must line up against
// the method's real parameters, not against the receiver slot that
// functionType prepends to every method's Params (see resolveCallee).
func TestCheckMethodCallArgumentArity(t *testing.T) {
	res := check(t, `
struct Point {
    x: f64;
    y: f64;

    fn scaled(self: Point, factor: f64) -> Point {
        return self;
    }
}

fn use(p: Point) -> void {
    let q: Point = p.scaled(2.0);
}
`)
	if !res.OK {
		t.Fatal("unexpected diagnostics for a correctly-arited method call")
	}
}

func TestCheckMethodCallWrongArgumentType(t *testing.T) {
	res := check(t, `
struct Point {
    x: f64;
    y: f64;

    fn scaled(self: Point, factor: f64) -> Point {
        return self;
    }
}

fn use(p: Point) -> void {
    let q: Point = p.scaled("nope");
}
`)
	if res.OK {
		t.Fatal("expected a diagnostic: scaled's 'factor' parameter is f64, not string")
	}
}

// Regression test: `EnumName.Variant` is the only expression form spec.md's
// closed grammar gives for constructing a variant value (e.g. to throw it),
// so it must resolve against the enum's variant list rather than be treated
// as an ordinary value member access.
func TestCheckEnumVariantMemberAccess(t *testing.T) {
	res := check(t, `
enum IoError {
    NotFound, PermissionDenied
}

fn risky() -> int throws IoError {
    throw IoError.NotFound;
}
`)
	if !res.OK {
		t.Fatal("unexpected diagnostics constructing and throwing a declared enum variant")
	}
}

func TestCheckEnumVariantMemberAccessTypo(t *testing.T) {
	res := check(t, `
enum IoError {
    NotFound
}

fn risky() -> int throws IoError {
    throw IoError.NotFoundTypo;
}
`)
	if res.OK {
		t.Fatal("expected a diagnostic for a non-existent enum variant")
	}
}

func TestCheckUnsafeStructRequiresHooks(t *testing.T) {
	res := check(t, `
unsafe struct Buffer {
    data: ptr<u8>;
}
`)
	if res.OK {
		t.Fatal("expected a diagnostic: unsafe struct with a ptr field missing __destroy/__oncopy")
	}
}

func TestCheckPlainStructRejectsPtrField(t *testing.T) {
	res := check(t, `
struct Bad {
    data: ptr<u8>;
}
`)
	if res.OK {
		t.Fatal("expected a diagnostic: plain struct may not contain a raw pointer field")
	}
}

func TestCheckImportVersionSuffix(t *testing.T) {
	res := check(t, `
import std.io@v1.2.3;
`)
	if !res.OK {
		t.Fatalf("expected a valid semver import suffix to check cleanly")
	}
}

func TestCheckImportInvalidVersionSuffix(t *testing.T) {
	res := check(t, `
import std.io@not-a-version;
`)
	if res.OK {
		t.Fatal("expected a diagnostic for an invalid import version suffix")
	}
}
