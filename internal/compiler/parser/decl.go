package parser

import (
	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/source"
	"github.com/kei-lang/kei/internal/compiler/token"
)

// parseDecl dispatches on an optional `pub` modifier followed by one of
// `fn`, `struct`, `unsafe struct`, `enum`, `type`, `static`, `import`,
// `extern fn`.
func (p *Parser) parseDecl() (ast.Decl, bool) {
	start := p.cur().Span
	isPub := p.match(token.Pub)

	switch {
	case p.at(token.Fn):
		return p.parseFunction(start, isPub, nil)
	case p.at(token.Extern):
		if isPub {
			p.diags.Errorf(p.file, start, "'pub' is not allowed on an extern declaration")
		}
		return p.parseExternFunction(start)
	case p.at(token.Struct):
		return p.parseStruct(start, isPub, false)
	case p.at(token.Unsafe) && p.peekAt(1).Kind == token.Struct:
		p.advance() // unsafe
		return p.parseStruct(start, isPub, true)
	case p.at(token.Enum):
		return p.parseEnum(start, isPub)
	case p.at(token.Type):
		return p.parseTypeAlias(start, isPub)
	case p.at(token.Static):
		return p.parseStatic(start, isPub)
	case p.at(token.Import):
		if isPub {
			p.diags.Errorf(p.file, start, "'pub' is not allowed on an import")
		}
		return p.parseImport(start)
	default:
		p.errorf("expected a declaration, got %s", p.cur().Kind)
		return nil, false
	}
}

func (p *Parser) parseGenericParams() []string {
	if !p.match(token.Lt) {
		return nil
	}
	var names []string
	for {
		if p.at(token.Identifier) {
			names = append(names, p.advance().Lexeme)
		} else {
			p.errorf("expected type parameter name")
			break
		}
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.Gt, "'>'")
	return names
}

func (p *Parser) parseParams() []ast.Param {
	p.expect(token.LParen, "'('")
	var params []ast.Param
	for !p.at(token.RParen) && !p.at(token.Eof) {
		isMove := p.match(token.Move)
		isMut := p.match(token.Mut)
		name := ""
		if p.at(token.Identifier) || p.at(token.SelfKw) {
			name = p.advance().Lexeme
		} else {
			p.errorf("expected parameter name")
		}
		var ty ast.TypeExpr
		if p.match(token.Colon) {
			ty = p.parseType()
		}
		params = append(params, ast.Param{Name: name, Type: ty, IsMut: isMut, IsMove: isMove})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return params
}

func (p *Parser) parseReturnType() ast.TypeExpr {
	if p.match(token.Arrow) {
		return p.parseType()
	}
	return nil
}

func (p *Parser) parseThrows() []ast.TypeExpr {
	if !p.match(token.Throws) {
		return nil
	}
	var list []ast.TypeExpr
	list = append(list, p.parseType())
	for p.match(token.Comma) {
		list = append(list, p.parseType())
	}
	return list
}

func (p *Parser) parseFunction(start source.Span, isPub bool, receiver *ast.Param) (*ast.Function, bool) {
	p.advance() // fn
	name := ""
	if p.at(token.Identifier) {
		name = p.advance().Lexeme
	} else {
		p.errorf("expected function name")
	}
	generics := p.parseGenericParams()
	params := p.parseParams()
	ret := p.parseReturnType()
	throws := p.parseThrows()
	body, ok := p.parseBlock()
	if !ok {
		return nil, false
	}
	end := p.prevSpan()
	return &ast.Function{
		DeclBase: ast.DeclBase{Base: ast.NewBase(spanFrom(start, end))},
		Name:     name, IsPub: isPub, GenericParams: generics, Receiver: receiver,
		Params: params, ReturnType: ret, ThrowsTypes: throws, Body: body,
	}, true
}

func (p *Parser) parseExternFunction(start source.Span) (*ast.ExternFunction, bool) {
	p.advance() // extern
	p.expect(token.Fn, "'fn'")
	name := ""
	if p.at(token.Identifier) {
		name = p.advance().Lexeme
	}
	params := p.parseParams()
	ret := p.parseReturnType()
	p.expect(token.Semicolon, "';'")
	end := p.prevSpan()
	return &ast.ExternFunction{
		DeclBase: ast.DeclBase{Base: ast.NewBase(spanFrom(start, end))},
		Name:     name, Params: params, ReturnType: ret,
	}, true
}

func (p *Parser) parseStructBody() ([]ast.Field, []*ast.Function) {
	p.expect(token.LBrace, "'{'")
	var fields []ast.Field
	var methods []*ast.Function
	for !p.at(token.RBrace) && !p.at(token.Eof) {
		if p.at(token.Fn) {
			mstart := p.cur().Span
			m, ok := p.parseFunction(mstart, false, nil)
			if ok {
				promoteSelfReceiver(m)
				methods = append(methods, m)
			} else {
				p.synchronize()
			}
			continue
		}
		if p.at(token.Identifier) {
			fname := p.advance().Lexeme
			p.expect(token.Colon, "':'")
			ftype := p.parseType()
			fields = append(fields, ast.Field{Name: fname, Type: ftype})
			p.match(token.Semicolon)
			p.match(token.Comma)
			continue
		}
		p.errorf("expected a field or method")
		p.synchronize()
	}
	p.expect(token.RBrace, "'}'")
	return fields, methods
}

func (p *Parser) parseStruct(start source.Span, isPub, isUnsafe bool) (ast.Decl, bool) {
	p.advance() // struct
	name := ""
	if p.at(token.Identifier) {
		name = p.advance().Lexeme
	} else {
		p.errorf("expected struct name")
	}
	generics := p.parseGenericParams()
	fields, methods := p.parseStructBody()
	end := p.prevSpan()
	span := spanFrom(start, end)
	if isUnsafe {
		return &ast.UnsafeStruct{
			DeclBase: ast.DeclBase{Base: ast.NewBase(span)},
			Name:     name, IsPub: isPub, GenericParams: generics, Fields: fields, Methods: methods,
		}, true
	}
	return &ast.Struct{
		DeclBase: ast.DeclBase{Base: ast.NewBase(span)},
		Name:     name, IsPub: isPub, GenericParams: generics, Fields: fields, Methods: methods,
	}, true
}

func (p *Parser) parseEnum(start source.Span, isPub bool) (ast.Decl, bool) {
	p.advance() // enum
	name := ""
	if p.at(token.Identifier) {
		name = p.advance().Lexeme
	}
	var base ast.TypeExpr
	if p.match(token.Colon) {
		base = p.parseType()
	}
	p.expect(token.LBrace, "'{'")
	var variants []ast.EnumVariant
	for !p.at(token.RBrace) && !p.at(token.Eof) {
		if !p.at(token.Identifier) {
			p.errorf("expected enum variant name")
			p.synchronize()
			continue
		}
		vname := p.advance().Lexeme
		var fields []ast.Field
		if p.match(token.LParen) {
			for !p.at(token.RParen) && !p.at(token.Eof) {
				fname := ""
				if p.at(token.Identifier) {
					fname = p.advance().Lexeme
				}
				p.expect(token.Colon, "':'")
				ftype := p.parseType()
				fields = append(fields, ast.Field{Name: fname, Type: ftype})
				if !p.match(token.Comma) {
					break
				}
			}
			p.expect(token.RParen, "')'")
		}
		variants = append(variants, ast.EnumVariant{Name: vname, Fields: fields})
		p.match(token.Comma)
	}
	p.expect(token.RBrace, "'}'")
	end := p.prevSpan()
	return &ast.Enum{
		DeclBase: ast.DeclBase{Base: ast.NewBase(spanFrom(start, end))},
		Name:     name, IsPub: isPub, BaseType: base, Variants: variants,
	}, true
}

func (p *Parser) parseTypeAlias(start source.Span, isPub bool) (ast.Decl, bool) {
	p.advance() // type
	name := ""
	if p.at(token.Identifier) {
		name = p.advance().Lexeme
	}
	p.expect(token.Assign, "'='")
	ty := p.parseType()
	p.expect(token.Semicolon, "';'")
	end := p.prevSpan()
	return &ast.TypeAlias{
		DeclBase: ast.DeclBase{Base: ast.NewBase(spanFrom(start, end))},
		Name:     name, Type: ty,
	}, true
}

func (p *Parser) parseStatic(start source.Span, isPub bool) (ast.Decl, bool) {
	p.advance() // static
	isMut := p.match(token.Mut)
	name := ""
	if p.at(token.Identifier) {
		name = p.advance().Lexeme
	}
	var ty ast.TypeExpr
	if p.match(token.Colon) {
		ty = p.parseType()
	}
	var value ast.Expr
	if p.match(token.Assign) {
		value = p.parseExpr()
	}
	p.expect(token.Semicolon, "';'")
	end := p.prevSpan()
	return &ast.Static{
		DeclBase: ast.DeclBase{Base: ast.NewBase(spanFrom(start, end))},
		Name:     name, IsPub: isPub, IsMut: isMut, Type: ty, Value: value,
	}, true
}

func (p *Parser) parseImport(start source.Span) (ast.Decl, bool) {
	p.advance() // import
	var names []string
	if p.match(token.LBrace) {
		for !p.at(token.RBrace) && !p.at(token.Eof) {
			if p.at(token.Identifier) {
				names = append(names, p.advance().Lexeme)
			}
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RBrace, "'}'")
		p.expect(token.From, "'from'")
	}
	var path []string
	if p.at(token.Identifier) {
		path = append(path, p.advance().Lexeme)
		for p.match(token.Dot) {
			if p.at(token.Identifier) {
				path = append(path, p.advance().Lexeme)
			}
		}
	} else {
		p.errorf("expected import path")
	}
	version := ""
	if p.match(token.At) {
		version = p.parseVersionSuffix()
	}
	p.expect(token.Semicolon, "';'")
	end := p.prevSpan()
	return &ast.Import{
		DeclBase: ast.DeclBase{Base: ast.NewBase(spanFrom(start, end))},
		Path:     path, Names: names, Version: version,
	}, true
}

// parseVersionSuffix reads the supplemented `@vX.Y.Z` import-version suffix
// (see SPEC_FULL.md's x/mod/semver wiring); validation against semver
// happens in the checker, which has access to the diagnostic channel tied
// to a specific declaration rather than a mid-expression cursor position.
func (p *Parser) parseVersionSuffix() string {
	if !p.at(token.Identifier) {
		p.errorf("expected version after '@'")
		return ""
	}
	return p.advance().Lexeme
}

// promoteSelfReceiver splits a method's leading `self` parameter out into
// Receiver. parseParams has no way to know it is parsing a method (struct
// bodies and free functions share the same param list grammar), so every
// method is reshaped here once its signature is complete.
func promoteSelfReceiver(fn *ast.Function) {
	if len(fn.Params) == 0 || fn.Params[0].Name != "self" {
		return
	}
	recv := fn.Params[0]
	fn.Receiver = &recv
	fn.Params = fn.Params[1:]
}

func (p *Parser) prevSpan() source.Span {
	if p.pos == 0 {
		return p.tokens[0].Span
	}
	return p.tokens[p.pos-1].Span
}
