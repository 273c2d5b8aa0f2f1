package kir

import (
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kei-lang/kei/internal/compiler/types"
)

// assertDumpEqual compares two full Dump() renderings exactly, reporting a
// unified diff on mismatch rather than an opaque "strings differ" failure —
// useful once a dump spans many lines, the way the teacher's test suite
// diffs multi-line golden output.
func assertDumpEqual(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	}
	text, _ := difflib.GetUnifiedDiffString(diff)
	t.Errorf("Dump() mismatch:\n%s", text)
}

func TestDumpEmptyModule(t *testing.T) {
	m := &Module{Name: "demo"}
	got := m.Dump()
	if !strings.HasPrefix(got, "module demo\n") {
		t.Errorf("Dump() = %q, want it to start with the module header", got)
	}
}

func TestDumpFunctionWithBlocksAndTerm(t *testing.T) {
	m := &Module{
		Name: "demo",
		Functions: []*Function{
			{
				Name:       "add",
				Params:     []types.Param{{Name: "a", Type: types.Int(32, true)}, {Name: "b", Type: types.Int(32, true)}},
				ReturnType: types.Int(32, true),
				Blocks: []*Block{
					{
						ID: "entry",
						Instructions: []Instr{
							{Kind: IBinOp, Dest: "%0", Op: OpAdd, A: "a", B: "b"},
						},
						Term: Terminator{Kind: TRet, RetValue: "%0"},
					},
				},
			},
		},
	}
	got := m.Dump()

	wantSubstrings := []string{
		"fn add(a: i32, b: i32) -> i32 {",
		"entry:",
		"%0 = bin_op",
		"ret %0",
	}
	for _, want := range wantSubstrings {
		if !strings.Contains(got, want) {
			t.Errorf("Dump() = %q, want it to contain %q", got, want)
		}
	}
}

func TestDumpPhiNode(t *testing.T) {
	m := &Module{
		Functions: []*Function{
			{
				Name:       "f",
				ReturnType: types.VoidType,
				Blocks: []*Block{
					{
						ID: "merge",
						Phis: []Phi{
							{Dest: "%2", Type: types.Int(32, true), Incoming: []PhiIncoming{
								{Value: "%0", Predecessor: "then"},
								{Value: "%1", Predecessor: "else"},
							}},
						},
						Term: Terminator{Kind: TRetVoid},
					},
				},
			},
		},
	}
	got := m.Dump()
	if !strings.Contains(got, "%2 = phi i32 [%0, then] [%1, else]") {
		t.Errorf("Dump() = %q, want a rendered phi node", got)
	}
}

func TestDumpAllInstrKindsHaveNames(t *testing.T) {
	for k := IStackAlloc; k <= IRequireCheck; k++ {
		if name := instrKindName(k); name == "unknown" {
			t.Errorf("InstrKind %d has no dump name", k)
		}
	}
}

func TestDumpExternAndGlobal(t *testing.T) {
	m := &Module{
		Name:    "demo",
		Globals: []Global{{Name: "counter", Type: types.Int(64, true)}},
		Externs: []ExternDecl{{Name: "puts", ReturnType: types.VoidType}},
	}
	got := m.Dump()
	if !strings.Contains(got, "global counter i64") {
		t.Errorf("Dump() = %q, want the global rendered", got)
	}
	if !strings.Contains(got, "extern fn puts(...) -> void") {
		t.Errorf("Dump() = %q, want the extern rendered", got)
	}
}
