// Package diag implements the shared diagnostic channel every compiler pass
// appends to. It is an append-only vector with a save/restore savepoint API,
// used both for ordinary error reporting and to discard diagnostics emitted
// during a speculative parse that is later abandoned.
package diag

import (
	"fmt"

	"github.com/kei-lang/kei/internal/compiler/source"
)

// Severity classifies a diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Location pinpoints a diagnostic in a source file.
type Location struct {
	File   string
	Line   int
	Column int
	Offset int
}

// Diagnostic is a single severity-tagged, located message.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location Location
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Location.File, d.Location.Line, d.Location.Column, d.Severity, d.Message)
}

// Channel is an append-only collection of diagnostics shared across passes.
type Channel struct {
	items []Diagnostic
}

// New returns an empty diagnostic channel.
func New() *Channel { return &Channel{} }

// Report appends a diagnostic located at span.Start within file.
func (c *Channel) Report(file *source.File, span source.Span, sev Severity, format string, args ...interface{}) {
	pos := file.LineCol(span.Start)
	c.items = append(c.items, Diagnostic{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Location: Location{File: file.Name(), Line: pos.Line, Column: pos.Column, Offset: span.Start},
	})
}

// Errorf is shorthand for Report with Error severity.
func (c *Channel) Errorf(file *source.File, span source.Span, format string, args ...interface{}) {
	c.Report(file, span, Error, format, args...)
}

// Warnf is shorthand for Report with Warning severity.
func (c *Channel) Warnf(file *source.File, span source.Span, format string, args ...interface{}) {
	c.Report(file, span, Warning, format, args...)
}

// All returns every diagnostic reported so far, in report order.
func (c *Channel) All() []Diagnostic { return c.items }

// HasErrors reports whether any Error-severity diagnostic was produced.
func (c *Channel) HasErrors() bool {
	for _, d := range c.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Len is a savepoint: the current number of recorded diagnostics.
func (c *Channel) Len() int { return len(c.items) }

// Restore discards every diagnostic recorded since the given savepoint. Used
// by the parser's speculative generic-argument disambiguation to roll back
// diagnostics from an abandoned attempt.
func (c *Channel) Restore(mark int) {
	if mark < len(c.items) {
		c.items = c.items[:mark]
	}
}
