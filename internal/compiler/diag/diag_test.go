package diag

import (
	"testing"

	"github.com/kei-lang/kei/internal/compiler/source"
)

func TestReportAndHasErrors(t *testing.T) {
	f := source.New("t.kei", "let x = 1;")
	c := New()
	if c.HasErrors() {
		t.Fatal("fresh channel reports HasErrors")
	}
	c.Errorf(f, source.Span{Start: 4, End: 5}, "bad name %q", "x")
	if !c.HasErrors() {
		t.Fatal("expected HasErrors after Errorf")
	}
	all := c.All()
	if len(all) != 1 {
		t.Fatalf("len(All()) = %d, want 1", len(all))
	}
	d := all[0]
	if d.Severity != Error || d.Message != `bad name "x"` || d.Location.Line != 1 || d.Location.Column != 5 {
		t.Errorf("unexpected diagnostic: %+v", d)
	}
}

func TestWarnDoesNotCountAsError(t *testing.T) {
	f := source.New("t.kei", "x")
	c := New()
	c.Warnf(f, source.Span{}, "just a warning")
	if c.HasErrors() {
		t.Error("Warnf should not set HasErrors")
	}
	if len(c.All()) != 1 {
		t.Fatalf("expected one diagnostic, got %d", len(c.All()))
	}
}

func TestSavepointRestore(t *testing.T) {
	f := source.New("t.kei", "abc")
	c := New()
	c.Errorf(f, source.Span{}, "first")
	mark := c.Len()
	c.Errorf(f, source.Span{}, "second")
	c.Errorf(f, source.Span{}, "third")
	if len(c.All()) != 3 {
		t.Fatalf("expected 3 diagnostics before restore, got %d", len(c.All()))
	}
	c.Restore(mark)
	all := c.All()
	if len(all) != 1 || all[0].Message != "first" {
		t.Fatalf("after Restore(%d): %+v", mark, all)
	}
}

func TestSeverityString(t *testing.T) {
	cases := map[Severity]string{Error: "error", Warning: "warning", Info: "info", Severity(99): "unknown"}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Errorf("Severity(%d).String() = %q, want %q", sev, got, want)
		}
	}
}
