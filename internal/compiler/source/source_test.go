package source

import "testing"

func TestLineCol(t *testing.T) {
	f := New("t.kei", "ab\ncd\r\nef")
	tests := []struct {
		offset int
		want   Pos
	}{
		{0, Pos{1, 1}},
		{2, Pos{1, 3}},
		{3, Pos{2, 1}},
		{5, Pos{2, 3}},
		{7, Pos{3, 1}},
		{8, Pos{3, 2}},
	}
	for _, tt := range tests {
		if got := f.LineCol(tt.offset); got != tt.want {
			t.Errorf("LineCol(%d) = %+v, want %+v", tt.offset, got, tt.want)
		}
	}
}

func TestLineColClampsOutOfRange(t *testing.T) {
	f := New("t.kei", "abc")
	if got := f.LineCol(-5); got != (Pos{1, 1}) {
		t.Errorf("LineCol(-5) = %+v, want {1 1}", got)
	}
	if got := f.LineCol(100); got != (Pos{1, 4}) {
		t.Errorf("LineCol(100) = %+v, want {1 4}", got)
	}
}

func TestSlice(t *testing.T) {
	f := New("t.kei", "hello world")
	if got := f.Slice(Span{Start: 6, End: 11}); got != "world" {
		t.Errorf("Slice = %q, want %q", got, "world")
	}
	if got := f.Slice(Span{Start: 6, End: 1000}); got != "world" {
		t.Errorf("Slice clamp = %q, want %q", got, "world")
	}
	if got := f.Slice(Span{Start: 9, End: 3}); got != "" {
		t.Errorf("Slice inverted = %q, want empty", got)
	}
}

func TestCharAt(t *testing.T) {
	f := New("t.kei", "xyz")
	if got := f.CharAt(1); got != "y" {
		t.Errorf("CharAt(1) = %q, want %q", got, "y")
	}
	if got := f.CharAt(10); got != "" {
		t.Errorf("CharAt(10) = %q, want empty", got)
	}
}
