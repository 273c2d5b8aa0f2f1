package parser

import (
	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/token"
)

// parseType parses a named type (`identifier | primitive-keyword`) or a
// generic type (`name < T (, T)* >`). `array<T, N>` accepts a literal
// integer in the second slot, represented as a NamedType whose name is the
// integer lexeme.
func (p *Parser) parseType() ast.TypeExpr {
	start := p.cur().Span
	name := p.typeName()
	if name == "" {
		p.errorf("expected a type")
		end := p.prevSpan()
		return &ast.NamedType{TypeExprBase: ast.TypeExprBase{Base: ast.NewBase(spanFrom(start, end))}, Name: "<error>"}
	}

	var args []ast.TypeExpr
	if p.match(token.Lt) {
		for !p.at(token.Gt) && !p.at(token.Eof) {
			if p.at(token.IntLiteral) {
				t := p.advance()
				lit := &ast.NamedType{
					TypeExprBase: ast.TypeExprBase{Base: ast.NewBase(t.Span)},
					Name:         t.Lexeme,
				}
				args = append(args, lit)
			} else {
				args = append(args, p.parseType())
			}
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.Gt, "'>'")
	}

	end := p.prevSpan()
	return &ast.NamedType{
		TypeExprBase: ast.TypeExprBase{Base: ast.NewBase(spanFrom(start, end))},
		Name:         name,
		Args:         args,
	}
}

// typeName consumes a single identifier or primitive/collection keyword and
// returns its text, or "" if the current token cannot start a type.
func (p *Parser) typeName() string {
	k := p.cur().Kind
	switch k {
	case token.Identifier,
		token.KwInt, token.KwUint, token.KwBool, token.KwString, token.KwVoid,
		token.KwI8, token.KwI16, token.KwI32, token.KwI64,
		token.KwU8, token.KwU16, token.KwU32, token.KwU64,
		token.KwF32, token.KwF64, token.KwIsize, token.KwUsize,
		token.KwByte, token.KwShort, token.KwLong, token.KwFloat, token.KwDouble,
		token.KwPtr, token.KwArray, token.KwSlice, token.KwDynarray:
		return p.advance().Lexeme
	default:
		return ""
	}
}
