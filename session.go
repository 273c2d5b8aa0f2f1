// Package kei is the front-end entrypoint for the Kei compiler core: lex,
// parse, check and lower one or more source files to KIR. A Session mirrors
// the teacher's Interpreter/Options shape — it holds the resolved Options
// (each compiled file gets its own diagnostic channel) and exposes Compile/CompileAll as the only entrypoints external
// collaborators (a driver, an emitter) use.
package kei

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/checker"
	"github.com/kei-lang/kei/internal/compiler/diag"
	"github.com/kei-lang/kei/internal/compiler/kir"
	"github.com/kei-lang/kei/internal/compiler/lexer"
	"github.com/kei-lang/kei/internal/compiler/lower"
	"github.com/kei-lang/kei/internal/compiler/parser"
	"github.com/kei-lang/kei/internal/compiler/source"
)

// Options configures a Session, mirroring the teacher's Options struct:
// stream fields for diagnostic/debug output, Env for feature toggles read
// the same way the teacher reads its YAEGI_* variables.
type Options struct {
	Stdout, Stderr interface {
		Write(p []byte) (int, error)
	}

	// Env holds "key=value" entries consulted instead of the process
	// environment when non-nil, for hermetic tests.
	Env []string

	astDot      bool
	checkOnly   bool
	debugChecks bool
}

func (o *Options) getenv(key string) string {
	for _, kv := range o.Env {
		if len(kv) > len(key) && kv[len(key)] == '=' && kv[:len(key)] == key {
			return kv[len(key)+1:]
		}
	}
	return os.Getenv(key)
}

func (o *Options) resolve() {
	o.astDot, _ = strconv.ParseBool(o.getenv("KEI_AST_DOT"))
	o.checkOnly, _ = strconv.ParseBool(o.getenv("KEI_CHECK_ONLY"))
	o.debugChecks, _ = strconv.ParseBool(o.getenv("KEI_DEBUG_CHECKS"))
}

// Source is one named, in-memory input file for CompileAll.
type Source struct {
	Name     string
	Contents string
}

// Result is the outcome of compiling one file: every diagnostic produced,
// the parsed AST, the checker's result, and (absent KEI_CHECK_ONLY) the
// lowered KIR module.
type Result struct {
	File  *source.File
	Diags []diag.Diagnostic
	AST   *ast.Program
	Check *checker.Result
	KIR   *kir.Module
	OK    bool
}

// Session owns the state shared across a series of Compile calls: the
// chosen Options and, when KEI_AST_DOT is set, the stream debug dumps are
// written to.
type Session struct {
	opt Options
}

// New creates a Session, resolving debug toggles from Options.Env or the
// process environment exactly once.
func New(opts Options) *Session {
	opts.resolve()
	return &Session{opt: opts}
}

// Compile lexes, parses, checks, and (unless KEI_CHECK_ONLY is set) lowers
// one file to KIR. Diagnostics always accumulate in the returned Result
// regardless of whether checking succeeded; OK is false if any stage
// reported an error-severity diagnostic.
func (s *Session) Compile(filename, contents string) (*Result, error) {
	file := source.New(filename, contents)
	diags := diag.New()

	tokens := lexer.Scan(file, diags)
	prog := parser.Parse(file, diags, tokens)

	if s.opt.astDot {
		fmt.Fprintf(s.opt.Stderr, "-- ast: %s --\n%s\n", filename, dumpProgram(prog))
	}

	res := &Result{File: file, AST: prog}

	checkResult := checker.Check(file, diags, prog)
	res.Check = checkResult

	res.Diags = diags.All()
	res.OK = !diags.HasErrors()
	if !res.OK || s.opt.checkOnly {
		return res, nil
	}

	mod := lower.Lower(filename, prog, checkResult, lower.Options{DebugChecks: s.opt.debugChecks})
	res.KIR = mod
	return res, nil
}

// CompileAll compiles multiple independent files concurrently through
// lex+parse — embarrassingly parallel per file — then checks and lowers
// each sequentially, since spec.md's checker is single-threaded within one
// compilation unit. Each file still gets its own diagnostic channel and
// Result; the returned error is non-nil only on an internal failure, never
// on ordinary diagnostics.
func (s *Session) CompileAll(files []Source) ([]*Result, error) {
	results := make([]*Result, len(files))

	parsedFiles := make([]struct {
		file  *source.File
		diags *diag.Channel
		prog  *ast.Program
	}, len(files))

	var g errgroup.Group
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			file := source.New(f.Name, f.Contents)
			diags := diag.New()
			tokens := lexer.Scan(file, diags)
			prog := parser.Parse(file, diags, tokens)
			parsedFiles[i].file = file
			parsedFiles[i].diags = diags
			parsedFiles[i].prog = prog
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, pf := range parsedFiles {
		if s.opt.astDot {
			fmt.Fprintf(s.opt.Stderr, "-- ast: %s --\n%s\n", pf.file.Name(), dumpProgram(pf.prog))
		}
		res := &Result{File: pf.file, AST: pf.prog}
		checkResult := checker.Check(pf.file, pf.diags, pf.prog)
		res.Check = checkResult
		res.Diags = pf.diags.All()
		res.OK = !pf.diags.HasErrors()
		if res.OK && !s.opt.checkOnly {
			res.KIR = lower.Lower(pf.file.Name(), pf.prog, checkResult, lower.Options{DebugChecks: s.opt.debugChecks})
		}
		results[i] = res
	}
	return results, nil
}

func dumpProgram(prog *ast.Program) string {
	return fmt.Sprintf("%d top-level declarations", len(prog.Declarations))
}
