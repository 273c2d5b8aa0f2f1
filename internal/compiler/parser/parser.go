// Package parser implements Kei's recursive-descent + Pratt parser: tokens
// to AST with error recovery and speculative generic-argument
// disambiguation. Parse methods return (node, ok) instead of throwing an
// exception for recovery; the one exception is the speculative generic-arg
// attempt, which still uses a plain save/restore of the cursor and the
// diagnostics savepoint (see tryParseGenericArgs in expr.go).
package parser

import (
	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/diag"
	"github.com/kei-lang/kei/internal/compiler/source"
	"github.com/kei-lang/kei/internal/compiler/token"
)

// Parser holds the token cursor and shared diagnostic channel.
type Parser struct {
	file   *source.File
	diags  *diag.Channel
	tokens []token.Token
	pos    int

	// noStructLit suppresses `Name{...}` struct-literal parsing while true,
	// used for the bare, unparenthesized condition/iterable positions of
	// if/while/for/switch so `if flag { ... }` parses flag as a plain
	// identifier rather than a struct literal consuming the block.
	noStructLit bool
}

// New creates a Parser over a pre-lexed token stream.
func New(file *source.File, diags *diag.Channel, tokens []token.Token) *Parser {
	return &Parser{file: file, diags: diags, tokens: tokens}
}

// Parse parses an already-lexed token stream in one call, returning the
// resulting Program. Diagnostics accumulate in diags regardless of success.
func Parse(file *source.File, diags *diag.Channel, tokens []token.Token) *ast.Program {
	p := New(file, diags, tokens)
	return p.ParseProgram()
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // Eof
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

// match advances and returns true if the current token has kind k.
func (p *Parser) match(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

// expect consumes the current token if it has kind k; otherwise records a
// diagnostic and returns ok=false without advancing, so the caller can
// decide whether to recover.
func (p *Parser) expect(k token.Kind, what string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.errorf("expected %s, got %s", what, p.cur().Kind)
	return token.Token{}, false
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.diags.Errorf(p.file, p.cur().Span, format, args...)
}

// save/restore support the single point of backtracking in the parser: the
// speculative generic-argument-list attempt in expr.go.
type savepoint struct {
	pos      int
	diagMark int
}

func (p *Parser) save() savepoint {
	return savepoint{pos: p.pos, diagMark: p.diags.Len()}
}

func (p *Parser) restore(s savepoint) {
	p.pos = s.pos
	p.diags.Restore(s.diagMark)
}

// synchronize advances until it has just consumed a ';' or '}', or the
// current token starts a new statement or declaration, per spec.md §4.4.
func (p *Parser) synchronize() {
	for !p.at(token.Eof) {
		prev := p.advance()
		if prev.Kind == token.Semicolon || prev.Kind == token.RBrace {
			return
		}
		switch p.cur().Kind {
		case token.Fn, token.Struct, token.Enum, token.Type, token.Static, token.Import, token.Extern, token.Pub,
			token.Let, token.Const, token.If, token.While, token.For, token.Switch, token.Return, token.Break,
			token.Continue, token.Defer, token.Assert, token.Require, token.Unsafe:
			return
		}
	}
}

func spanFrom(start, end source.Span) source.Span {
	return source.Span{Start: start.Start, End: end.End}
}

func spanTok(t token.Token) source.Span { return t.Span }

// ParseProgram parses the whole token stream into a Program, recovering
// from declaration-level errors via synchronize so a single bad declaration
// does not prevent the rest of the file from being parsed.
func (p *Parser) ParseProgram() *ast.Program {
	start := p.cur().Span
	var decls []ast.Decl
	for !p.at(token.Eof) {
		before := p.pos
		d, ok := p.parseDecl()
		if ok {
			decls = append(decls, d)
		} else {
			p.synchronize()
		}
		if p.pos == before {
			// Guarantee forward progress even if neither parseDecl nor
			// synchronize consumed anything (e.g. a lone stray token).
			p.advance()
		}
	}
	end := p.cur().Span
	return &ast.Program{Base: ast.NewBase(spanFrom(start, end)), Declarations: decls}
}
