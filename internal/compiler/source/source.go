// Package source tracks file contents and maps byte offsets to line/column
// positions, the way every other pass refers back into the original text.
package source

import "sort"

// Span is a half-open byte range [Start, End) into a File's contents.
type Span struct {
	Start int
	End   int
}

// Pos is a 1-based line/column pair.
type Pos struct {
	Line   int
	Column int
}

// File owns an immutable source buffer plus a precomputed line-start table,
// enabling O(log N) offset -> (line, column) lookups.
type File struct {
	name       string
	contents   string
	lineStarts []int
}

// New builds a File from its name and contents, precomputing line starts.
// \n, \r, and \r\n are all treated as line terminators; \r\n counts once.
func New(name, contents string) *File {
	f := &File{name: name, contents: contents, lineStarts: []int{0}}
	for i := 0; i < len(contents); i++ {
		switch contents[i] {
		case '\n':
			f.lineStarts = append(f.lineStarts, i+1)
		case '\r':
			if i+1 < len(contents) && contents[i+1] == '\n' {
				i++
			}
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
	return f
}

// Name returns the file's name, as given to New.
func (f *File) Name() string { return f.name }

// Contents returns the full source text.
func (f *File) Contents() string { return f.contents }

// Len returns the number of bytes in the file.
func (f *File) Len() int { return len(f.contents) }

// CharAt returns the single-byte string at offset, or "" past end.
func (f *File) CharAt(offset int) string {
	if offset < 0 || offset >= len(f.contents) {
		return ""
	}
	return f.contents[offset : offset+1]
}

// Slice returns contents[span.Start:span.End], clamped to file bounds.
func (f *File) Slice(span Span) string {
	start, end := span.Start, span.End
	if start < 0 {
		start = 0
	}
	if end > len(f.contents) {
		end = len(f.contents)
	}
	if start > end {
		return ""
	}
	return f.contents[start:end]
}

// LineCol converts a byte offset into a 1-based (line, column) pair via
// binary search over the line-start table.
func (f *File) LineCol(offset int) Pos {
	if offset < 0 {
		offset = 0
	}
	if offset > len(f.contents) {
		offset = len(f.contents)
	}
	// sort.Search finds the first lineStart > offset; the line containing
	// offset is the one before that.
	i := sort.Search(len(f.lineStarts), func(i int) bool {
		return f.lineStarts[i] > offset
	})
	line := i // 1-based because lineStarts[0] == 0 is line 1
	col := offset - f.lineStarts[i-1] + 1
	return Pos{Line: line, Column: col}
}
