package lexer

import (
	"testing"

	"github.com/kei-lang/kei/internal/compiler/diag"
	"github.com/kei-lang/kei/internal/compiler/source"
	"github.com/kei-lang/kei/internal/compiler/token"
)

func scan(t *testing.T, src string) ([]token.Token, *diag.Channel) {
	t.Helper()
	f := source.New("t.kei", src)
	diags := diag.New()
	return Scan(f, diags), diags
}

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, tk := range toks {
		ks[i] = tk.Kind
	}
	return ks
}

func TestScanAlwaysEndsInEof(t *testing.T) {
	toks, _ := scan(t, "")
	if len(toks) != 1 || toks[0].Kind != token.Eof {
		t.Fatalf("empty input: got %v", kinds(toks))
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks, diags := scan(t, "fn add self x1")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.All())
	}
	want := []token.Kind{token.Fn, token.Identifier, token.SelfKw, token.Identifier, token.Eof}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if toks[1].Lexeme != "add" {
		t.Errorf("Lexeme = %q, want %q", toks[1].Lexeme, "add")
	}
}

func TestScanReservedKeywordReportsDiagnostic(t *testing.T) {
	_, diags := scan(t, "match")
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic for reserved keyword 'match'")
	}
}

func TestScanIntegerLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{"42", 42},
		{"0x2A", 42},
		{"0b101010", 42},
		{"0o52", 42},
		{"1_000_000", 1000000},
		{"42i32", 42},
		{"42u64", 42},
	}
	for _, tt := range tests {
		toks, diags := scan(t, tt.src)
		if diags.HasErrors() {
			t.Errorf("%q: unexpected diagnostics: %v", tt.src, diags.All())
			continue
		}
		if toks[0].Kind != token.IntLiteral {
			t.Errorf("%q: kind = %v, want IntLiteral", tt.src, toks[0].Kind)
			continue
		}
		if toks[0].Value.Int != tt.want {
			t.Errorf("%q: value = %d, want %d", tt.src, toks[0].Value.Int, tt.want)
		}
	}
}

func TestScanFloatLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"3.14", 3.14},
		{"1e10", 1e10},
		{"2.5e-3", 2.5e-3},
	}
	for _, tt := range tests {
		toks, diags := scan(t, tt.src)
		if diags.HasErrors() {
			t.Errorf("%q: unexpected diagnostics: %v", tt.src, diags.All())
			continue
		}
		if toks[0].Kind != token.FloatLiteral {
			t.Errorf("%q: kind = %v, want FloatLiteral", tt.src, toks[0].Kind)
			continue
		}
		if toks[0].Value.Float != tt.want {
			t.Errorf("%q: value = %v, want %v", tt.src, toks[0].Value.Float, tt.want)
		}
	}
}

func TestScanStringLiteralWithEscapes(t *testing.T) {
	toks, diags := scan(t, `"line1\nline2\t\"quoted\""`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	want := "line1\nline2\t\"quoted\""
	if toks[0].Value.String != want {
		t.Errorf("string value = %q, want %q", toks[0].Value.String, want)
	}
}

func TestScanUnterminatedStringRecovers(t *testing.T) {
	toks, diags := scan(t, "\"no closing quote\nlet x = 1;")
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic for unterminated string")
	}
	if toks[0].Kind != token.Illegal {
		t.Errorf("first token kind = %v, want Illegal", toks[0].Kind)
	}
	// scanning resumes on the next line
	found := false
	for _, tk := range toks {
		if tk.Kind == token.Let {
			found = true
		}
	}
	if !found {
		t.Error("expected scanning to recover and find the 'let' keyword")
	}
}

func TestScanUnterminatedBlockComment(t *testing.T) {
	_, diags := scan(t, "/* never closed")
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic for unterminated block comment")
	}
}

func TestScanLineComment(t *testing.T) {
	toks, diags := scan(t, "let x = 1; // trailing comment\nlet y = 2;")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	count := 0
	for _, tk := range toks {
		if tk.Kind == token.Let {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected 2 'let' tokens, got %d", count)
	}
}

func TestScanOperatorsLongestMatchFirst(t *testing.T) {
	toks, diags := scan(t, "<<= >>= ..= << .. < <=")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	want := []token.Kind{
		token.ShlEq, token.ShrEq, token.DotDotEq, token.Shl, token.DotDot, token.Lt, token.Le, token.Eof,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanUnexpectedCharacter(t *testing.T) {
	_, diags := scan(t, "let x = `;")
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic for an unrecognized character")
	}
}

func TestScanGenericCallTokenStream(t *testing.T) {
	// Confirms the lexer makes no attempt to disambiguate `<`/`>` itself —
	// that speculative work belongs entirely to the parser.
	toks, diags := scan(t, "Box<int>(1)")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	want := []token.Kind{token.Identifier, token.Lt, token.KwInt, token.Gt, token.LParen, token.IntLiteral, token.RParen, token.Eof}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
