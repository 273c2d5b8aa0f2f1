package kei

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

func TestCompileWellTypedProgram(t *testing.T) {
	s := New(Options{})
	res, err := s.Compile("t.kei", `
fn add(a: int, b: int) -> int {
    return a + b;
}
`)
	if err != nil {
		t.Fatalf("Compile returned an error: %v", err)
	}
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %v", res.Diags)
	}
	if res.KIR == nil {
		t.Fatal("expected a lowered KIR module")
	}
	if len(res.KIR.Functions) != 1 || res.KIR.Functions[0].Name != "add" {
		t.Errorf("unexpected KIR functions: %+v", res.KIR.Functions)
	}
}

func TestCompileStopsAtFirstErrorStage(t *testing.T) {
	s := New(Options{})
	res, err := s.Compile("t.kei", `
fn f(x: Ghost) -> void {}
`)
	if err != nil {
		t.Fatalf("Compile returned an error: %v", err)
	}
	if res.OK {
		t.Fatal("expected a diagnostic for the undeclared type 'Ghost'")
	}
	if res.KIR != nil {
		t.Error("lowering should not run once checking has failed")
	}
}

func TestCompileCheckOnlySkipsLowering(t *testing.T) {
	s := New(Options{Env: []string{"KEI_CHECK_ONLY=true"}})
	res, err := s.Compile("t.kei", `
fn add(a: int, b: int) -> int {
    return a + b;
}
`)
	if err != nil {
		t.Fatalf("Compile returned an error: %v", err)
	}
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %v", res.Diags)
	}
	if res.KIR != nil {
		t.Error("KEI_CHECK_ONLY should suppress lowering")
	}
}

func TestCompileAstDotWritesToStderr(t *testing.T) {
	var stderr bytes.Buffer
	s := New(Options{Stderr: &stderr, Env: []string{"KEI_AST_DOT=true"}})
	_, err := s.Compile("t.kei", `fn f() -> void {}`)
	if err != nil {
		t.Fatalf("Compile returned an error: %v", err)
	}
	if !strings.Contains(stderr.String(), "t.kei") {
		t.Errorf("expected the ast dump to mention the filename, got %q", stderr.String())
	}
}

// sourcesFromArchive unpacks a txtar archive into Sources, the same format
// Go's own tooling uses to pack multiple named files into one literal —
// handy here for a multi-file CompileAll fixture without juggling a slice
// of struct literals per file.
func sourcesFromArchive(data string) []Source {
	ar := txtar.Parse([]byte(data))
	srcs := make([]Source, len(ar.Files))
	for i, f := range ar.Files {
		srcs[i] = Source{Name: f.Name, Contents: string(f.Data)}
	}
	return srcs
}

func TestCompileAllRunsEachFileIndependently(t *testing.T) {
	s := New(Options{})
	results, err := s.CompileAll(sourcesFromArchive(`
-- a.kei --
fn okFn() -> void {}
-- b.kei --
fn f(x: Ghost) -> void {}
`))
	if err != nil {
		t.Fatalf("CompileAll returned an error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if !results[0].OK {
		t.Errorf("a.kei: unexpected diagnostics: %v", results[0].Diags)
	}
	if results[1].OK {
		t.Error("b.kei: expected a diagnostic for the undeclared type 'Ghost'")
	}
	if results[0].File.Name() != "a.kei" || results[1].File.Name() != "b.kei" {
		t.Error("CompileAll must preserve per-file identity despite concurrent lex+parse")
	}
}

func TestOptionsEnvOverridesProcessEnv(t *testing.T) {
	s := New(Options{Env: []string{"KEI_CHECK_ONLY=1"}})
	res, _ := s.Compile("t.kei", `fn f() -> void {}`)
	if res.KIR != nil {
		t.Error("Env-provided KEI_CHECK_ONLY=1 should be parsed as true and skip lowering")
	}
}
