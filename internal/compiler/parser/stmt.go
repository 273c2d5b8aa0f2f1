package parser

import (
	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/source"
	"github.com/kei-lang/kei/internal/compiler/token"
)

// parseBlock parses a brace-enclosed statement sequence.
func (p *Parser) parseBlock() (*ast.Block, bool) {
	start := p.cur().Span
	if _, ok := p.expect(token.LBrace, "'{'"); !ok {
		return nil, false
	}
	var stmts []ast.Stmt
	for !p.at(token.RBrace) && !p.at(token.Eof) {
		before := p.pos
		s, ok := p.parseStmt()
		if ok {
			stmts = append(stmts, s)
		} else {
			p.synchronize()
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(token.RBrace, "'}'")
	end := p.prevSpan()
	return &ast.Block{StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))}, Statements: stmts}, true
}

func (p *Parser) parseStmt() (ast.Stmt, bool) {
	start := p.cur().Span
	switch p.cur().Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.Let:
		return p.parseLet(start)
	case token.Const:
		return p.parseConstStmt(start)
	case token.Return:
		return p.parseReturn(start)
	case token.If:
		return p.parseIfStmt(start)
	case token.While:
		return p.parseWhile(start)
	case token.For:
		return p.parseFor(start)
	case token.Switch:
		return p.parseSwitch(start)
	case token.Defer:
		return p.parseDefer(start)
	case token.Break:
		p.advance()
		p.expect(token.Semicolon, "';'")
		return &ast.BreakStmt{StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}}, true
	case token.Continue:
		p.advance()
		p.expect(token.Semicolon, "';'")
		return &ast.ContinueStmt{StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}}, true
	case token.Assert:
		return p.parseAssert(start)
	case token.Require:
		return p.parseRequire(start)
	case token.Unsafe:
		if p.peekAt(1).Kind == token.LBrace {
			return p.parseUnsafeBlock(start)
		}
		return p.parseExprStmt(start)
	default:
		return p.parseExprStmt(start)
	}
}

func (p *Parser) parseLet(start source.Span) (ast.Stmt, bool) {
	p.advance() // let
	isMut := p.match(token.Mut)
	name := ""
	if p.at(token.Identifier) {
		name = p.advance().Lexeme
	} else {
		p.errorf("expected variable name")
	}
	var ty ast.TypeExpr
	if p.match(token.Colon) {
		ty = p.parseType()
	}
	p.expect(token.Assign, "'='")
	value := p.parseExpr()
	p.expect(token.Semicolon, "';'")
	end := p.prevSpan()
	return &ast.Let{
		StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))},
		Name:     name, IsMut: isMut, Type: ty, Value: value,
	}, true
}

func (p *Parser) parseConstStmt(start source.Span) (ast.Stmt, bool) {
	p.advance() // const
	name := ""
	if p.at(token.Identifier) {
		name = p.advance().Lexeme
	}
	var ty ast.TypeExpr
	if p.match(token.Colon) {
		ty = p.parseType()
	}
	p.expect(token.Assign, "'='")
	value := p.parseExpr()
	p.expect(token.Semicolon, "';'")
	end := p.prevSpan()
	return &ast.ConstStmt{
		StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))},
		Name:     name, Type: ty, Value: value,
	}, true
}

func (p *Parser) parseReturn(start source.Span) (ast.Stmt, bool) {
	p.advance() // return
	var value ast.Expr
	if !p.at(token.Semicolon) {
		value = p.parseExpr()
	}
	p.expect(token.Semicolon, "';'")
	end := p.prevSpan()
	return &ast.ReturnStmt{StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))}, Value: value}, true
}

func (p *Parser) parseIfStmt(start source.Span) (ast.Stmt, bool) {
	p.advance() // if
	cond := p.parseExprNoStructLit()
	then, ok := p.parseBlock()
	if !ok {
		return nil, false
	}
	var elseStmt ast.Stmt
	if p.match(token.Else) {
		if p.at(token.If) {
			elseStart := p.cur().Span
			s, ok := p.parseIfStmt(elseStart)
			if !ok {
				return nil, false
			}
			elseStmt = s
		} else {
			b, ok := p.parseBlock()
			if !ok {
				return nil, false
			}
			elseStmt = b
		}
	}
	end := p.prevSpan()
	return &ast.IfStmt{
		StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))},
		Cond:     cond, Then: then, Else: elseStmt,
	}, true
}

func (p *Parser) parseWhile(start source.Span) (ast.Stmt, bool) {
	p.advance() // while
	cond := p.parseExprNoStructLit()
	body, ok := p.parseBlock()
	if !ok {
		return nil, false
	}
	end := p.prevSpan()
	return &ast.WhileStmt{StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))}, Cond: cond, Body: body}, true
}

func (p *Parser) parseFor(start source.Span) (ast.Stmt, bool) {
	p.advance() // for
	name := ""
	if p.at(token.Identifier) {
		name = p.advance().Lexeme
	} else {
		p.errorf("expected loop variable name")
	}
	p.expect(token.In, "'in'")
	iter := p.parseExprNoStructLit()
	body, ok := p.parseBlock()
	if !ok {
		return nil, false
	}
	end := p.prevSpan()
	return &ast.ForStmt{
		StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))},
		Var:      name, Iter: iter, Body: body,
	}, true
}

func (p *Parser) parseSwitch(start source.Span) (ast.Stmt, bool) {
	p.advance() // switch
	subject := p.parseExprNoStructLit()
	p.expect(token.LBrace, "'{'")
	var cases []ast.SwitchCase
	for !p.at(token.RBrace) && !p.at(token.Eof) {
		if p.match(token.Case) {
			pattern := p.parseExpr()
			p.expect(token.Colon, "':'")
			body := p.parseCaseBody()
			cases = append(cases, ast.SwitchCase{Pattern: pattern, Body: body})
		} else if p.match(token.Default) {
			p.expect(token.Colon, "':'")
			body := p.parseCaseBody()
			cases = append(cases, ast.SwitchCase{IsDefault: true, Body: body})
		} else {
			p.errorf("expected 'case' or 'default'")
			p.synchronize()
		}
	}
	p.expect(token.RBrace, "'}'")
	end := p.prevSpan()
	return &ast.SwitchStmt{
		StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))},
		Subject:  subject, Cases: cases,
	}, true
}

func (p *Parser) parseCaseBody() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.at(token.Case) && !p.at(token.Default) && !p.at(token.RBrace) && !p.at(token.Eof) {
		before := p.pos
		s, ok := p.parseStmt()
		if ok {
			stmts = append(stmts, s)
		} else {
			p.synchronize()
		}
		if p.pos == before {
			p.advance()
		}
	}
	return stmts
}

func (p *Parser) parseDefer(start source.Span) (ast.Stmt, bool) {
	p.advance() // defer
	inner, ok := p.parseStmt()
	if !ok {
		return nil, false
	}
	end := p.prevSpan()
	return &ast.DeferStmt{StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))}, Body: inner}, true
}

func (p *Parser) parseAssert(start source.Span) (ast.Stmt, bool) {
	p.advance() // assert
	p.expect(token.LParen, "'('")
	cond := p.parseExpr()
	var msg ast.Expr
	if p.match(token.Comma) {
		msg = p.parseExpr()
	}
	p.expect(token.RParen, "')'")
	p.expect(token.Semicolon, "';'")
	end := p.prevSpan()
	return &ast.AssertStmt{StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))}, Cond: cond, Msg: msg}, true
}

func (p *Parser) parseRequire(start source.Span) (ast.Stmt, bool) {
	p.advance() // require
	p.expect(token.LParen, "'('")
	cond := p.parseExpr()
	var msg ast.Expr
	if p.match(token.Comma) {
		msg = p.parseExpr()
	}
	p.expect(token.RParen, "')'")
	p.expect(token.Semicolon, "';'")
	end := p.prevSpan()
	return &ast.RequireStmt{StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))}, Cond: cond, Msg: msg}, true
}

func (p *Parser) parseUnsafeBlock(start source.Span) (ast.Stmt, bool) {
	p.advance() // unsafe
	body, ok := p.parseBlock()
	if !ok {
		return nil, false
	}
	end := p.prevSpan()
	return &ast.UnsafeBlock{StmtBase: ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))}, Body: body}, true
}

// parseExprStmt parses an expression used as a statement. If it is not
// followed by a semicolon and appears immediately before the enclosing
// block's closing '}', it becomes that expression block's trailing value
// (spec.md §4.4): the span recorded here excludes any semicolon either way.
func (p *Parser) parseExprStmt(start source.Span) (ast.Stmt, bool) {
	x := p.parseExpr()
	hasSemi := p.match(token.Semicolon)
	end := p.prevSpan()
	return &ast.ExprStmt{
		StmtBase:  ast.StmtBase{Base: ast.NewBase(spanFrom(start, end))},
		X:         x,
		Semicolon: hasSemi,
	}, true
}
