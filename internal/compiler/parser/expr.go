package parser

import (
	"github.com/kei-lang/kei/internal/compiler/ast"
	"github.com/kei-lang/kei/internal/compiler/source"
	"github.com/kei-lang/kei/internal/compiler/token"
)

// Binary operator precedence levels, tightest to loosest per spec.md §4.4:
// postfix > unary > muldiv > additive > range > shift > relational >
// equality > & > ^ > | > && > || > assignment (handled separately, as it is
// right-associative and sits below every binary level).
const (
	precNone = iota
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precRange
	precAdditive
	precMultiplicative
)

var binaryOps = map[token.Kind]struct {
	level int
	op    ast.BinaryOp
}{
	token.PipePipe: {precOr, ast.OpOr},
	token.AmpAmp:   {precAnd, ast.OpAnd},
	token.Pipe:     {precBitOr, ast.OpBitOr},
	token.Caret:    {precBitXor, ast.OpBitXor},
	token.Amp:      {precBitAnd, ast.OpBitAnd},
	token.EqEq:     {precEquality, ast.OpEq},
	token.NotEq:    {precEquality, ast.OpNeq},
	token.Lt:       {precRelational, ast.OpLt},
	token.Le:       {precRelational, ast.OpLe},
	token.Gt:       {precRelational, ast.OpGt},
	token.Ge:       {precRelational, ast.OpGe},
	token.Shl:      {precShift, ast.OpShl},
	token.Shr:      {precShift, ast.OpShr},
	token.Plus:     {precAdditive, ast.OpAdd},
	token.Minus:    {precAdditive, ast.OpSub},
	token.Star:     {precMultiplicative, ast.OpMul},
	token.Slash:    {precMultiplicative, ast.OpDiv},
	token.Percent:  {precMultiplicative, ast.OpMod},
}

var compoundAssignOps = map[token.Kind]ast.AssignOp{
	token.PlusEq:    ast.AssignAdd,
	token.MinusEq:   ast.AssignSub,
	token.StarEq:    ast.AssignMul,
	token.SlashEq:   ast.AssignDiv,
	token.PercentEq: ast.AssignMod,
	token.AmpEq:     ast.AssignBitAnd,
	token.PipeEq:    ast.AssignBitOr,
	token.CaretEq:   ast.AssignBitXor,
	token.ShlEq:     ast.AssignShl,
	token.ShrEq:     ast.AssignShr,
}

// parseExpr is the expression entry point: assignment, the loosest level.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

// parseExprNoStructLit parses an expression with `Name{...}` struct literals
// suppressed, for the bare condition/iterable position before a block.
func (p *Parser) parseExprNoStructLit() ast.Expr {
	prev := p.noStructLit
	p.noStructLit = true
	x := p.parseExpr()
	p.noStructLit = prev
	return x
}

// parseExprAllowStructLit re-enables struct-literal parsing for a
// subexpression enclosed in its own brackets (parens, call args, array
// elements), where the enclosing bracket already resolves the ambiguity
// that noStructLit exists to avoid.
func (p *Parser) parseExprAllowStructLit() ast.Expr {
	prev := p.noStructLit
	p.noStructLit = false
	x := p.parseExpr()
	p.noStructLit = prev
	return x
}

// parseAssignment parses `target = value` and compound forms,
// right-associative.
func (p *Parser) parseAssignment() ast.Expr {
	start := p.cur().Span
	left := p.parseRange()

	if p.at(token.Assign) {
		p.advance()
		value := p.parseAssignment()
		return &ast.Assign{
			ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))},
			Op:       ast.AssignPlain, Target: left, Value: value,
		}
	}
	if op, ok := compoundAssignOps[p.cur().Kind]; ok {
		p.advance()
		value := p.parseAssignment()
		return &ast.Assign{
			ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))},
			Op:       op, Target: left, Value: value,
		}
	}
	return left
}

// parseRange handles `..`/`..=` sitting below the full binary-operator
// table: its operands are parsed through parseBinary(precOr), so every
// operator from `||` down through additive/shift groups tighter than a
// range, and a plain comparison like `a < b` still reaches parseBinary
// from here rather than being left for the statement parser to choke on.
func (p *Parser) parseRange() ast.Expr {
	start := p.cur().Span
	left := p.parseBinary(precOr)
	if p.at(token.DotDot) || p.at(token.DotDotEq) {
		inclusive := p.cur().Kind == token.DotDotEq
		p.advance()
		right := p.parseBinary(precOr)
		return &ast.Range{
			ExprBase:  ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))},
			Lo:        left, Hi: right, Inclusive: inclusive,
		}
	}
	return left
}

// parseBinary is a standard precedence-climbing loop over the table above,
// bottoming out in parseUnary.
func (p *Parser) parseBinary(minLevel int) ast.Expr {
	start := p.cur().Span
	left := p.parseUnary()
	for {
		info, ok := binaryOps[p.cur().Kind]
		if !ok || info.level < minLevel {
			return left
		}
		p.advance()
		right := p.parseBinary(info.level + 1)
		left = &ast.Binary{
			ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))},
			Op:       info.op, Left: left, Right: right,
		}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	start := p.cur().Span
	switch p.cur().Kind {
	case token.Bang:
		p.advance()
		x := p.parseUnary()
		return &ast.Unary{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, Op: ast.OpNot, X: x}
	case token.Tilde:
		p.advance()
		x := p.parseUnary()
		return &ast.Unary{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, Op: ast.OpBitNot, X: x}
	case token.Minus:
		p.advance()
		x := p.parseUnary()
		return &ast.Unary{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, Op: ast.OpNeg, X: x}
	case token.Amp:
		p.advance()
		x := p.parseUnary()
		return &ast.Unary{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, Op: ast.OpAddr, X: x}
	case token.Move:
		p.advance()
		x := p.parseUnary()
		return &ast.Move{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: x}
	case token.Throw:
		p.advance()
		x := p.parseUnary()
		return &ast.Throw{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: x}
	case token.If:
		return p.parseIfExpr(start)
	case token.Unsafe:
		if p.peekAt(1).Kind == token.LBrace {
			return p.parseUnsafeExpr(start)
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parseIfExpr(start source.Span) ast.Expr {
	p.advance() // if
	cond := p.parseExprNoStructLit()
	then, _ := p.parseBlock()
	var elseExpr ast.Expr
	if p.match(token.Else) {
		if p.at(token.If) {
			elseExpr = p.parseIfExpr(p.cur().Span)
		} else if block, ok := p.parseBlock(); ok {
			elseExpr = blockAsExpr(block)
		}
	}
	return &ast.IfExpr{
		ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))},
		Cond:     cond, Then: then, Else: elseExpr,
	}
}

// blockAsExpr wraps a Block so it satisfies Expr for IfExpr.Else; the block
// itself still holds the real statement sequence and trailing-value rule.
type blockExpr struct {
	ast.ExprBase
	Block *ast.Block
}

func blockAsExpr(b *ast.Block) ast.Expr {
	return &blockExpr{ExprBase: ast.ExprBase{Base: ast.NewBase(b.Span())}, Block: b}
}

func (p *Parser) parseUnsafeExpr(start source.Span) ast.Expr {
	p.advance() // unsafe
	body, _ := p.parseBlock()
	return &ast.Unsafe{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, Body: body}
}

// parsePostfix handles the postfix chain: `.name`, `.*`, `[e]`, `(args)`,
// `++`, `--`, `as Type`, `catch ...`, and `Name{fields}` struct literals, as
// well as the speculative generic-argument disambiguation.
func (p *Parser) parsePostfix() ast.Expr {
	start := p.cur().Span
	x := p.parsePrimary(start)
	for {
		switch p.cur().Kind {
		case token.Dot:
			p.advance()
			if p.at(token.Star) {
				p.advance()
				x = &ast.Deref{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: x}
				continue
			}
			name := ""
			if p.at(token.Identifier) || p.cur().Kind.IsKeyword() {
				name = p.advance().Lexeme
			} else {
				p.errorf("expected field or method name after '.'")
			}
			x = &ast.Member{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: x, Name: name}
		case token.DotStar:
			p.advance()
			x = &ast.Deref{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: x}
		case token.LBracket:
			p.advance()
			idx := p.parseExprAllowStructLit()
			p.expect(token.RBracket, "']'")
			x = &ast.Index{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: x, Index: idx}
		case token.LParen:
			x = p.parseCallArgs(start, x, nil)
		case token.PlusPlus:
			p.advance()
			x = &ast.Increment{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: x}
		case token.MinusMinus:
			p.advance()
			x = &ast.Decrement{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: x}
		case token.As:
			p.advance()
			ty := p.parseType()
			x = &ast.Cast{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: x, Type: ty}
		case token.Catch:
			x = p.parseCatch(start, x)
		case token.Lt:
			if typeArgs, ok := p.tryParseGenericArgs(); ok {
				switch p.cur().Kind {
				case token.LParen:
					x = p.parseCallArgs(start, x, typeArgs)
				case token.LBrace:
					if p.noStructLit {
						return x
					}
					if id, ok := x.(*ast.Identifier); ok {
						x = p.parseStructLiteralBody(start, id.Name, typeArgs)
					} else {
						p.errorf("generic struct literal requires a bare name")
					}
				}
				continue
			}
			return x
		default:
			return x
		}
	}
}

func (p *Parser) parseCallArgs(start source.Span, callee ast.Expr, typeArgs []ast.TypeExpr) ast.Expr {
	p.advance() // (
	var args []ast.Expr
	for !p.at(token.RParen) && !p.at(token.Eof) {
		args = append(args, p.parseExprAllowStructLit())
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return &ast.Call{
		ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))},
		Callee:   callee, TypeArgs: typeArgs, Args: args,
	}
}

// tryParseGenericArgs speculatively parses a comma-separated type-argument
// list after a postfix '<'. It commits only if the list closes with '>' and
// the next token is '(' or '{'; otherwise it restores the cursor and
// diagnostics length and the caller treats '<' as the comparison operator.
// This is the parser's single point of backtracking (spec.md §4.4).
func (p *Parser) tryParseGenericArgs() ([]ast.TypeExpr, bool) {
	mark := p.save()
	p.advance() // '<'

	var args []ast.TypeExpr
	for !p.at(token.Gt) {
		if !p.looksLikeTypeStart() {
			p.restore(mark)
			return nil, false
		}
		args = append(args, p.parseType())
		if !p.match(token.Comma) {
			break
		}
	}
	if !p.match(token.Gt) {
		p.restore(mark)
		return nil, false
	}
	if p.at(token.LParen) || p.at(token.LBrace) {
		return args, true
	}
	p.restore(mark)
	return nil, false
}

func (p *Parser) looksLikeTypeStart() bool {
	switch p.cur().Kind {
	case token.Identifier, token.IntLiteral,
		token.KwInt, token.KwUint, token.KwBool, token.KwString, token.KwVoid,
		token.KwI8, token.KwI16, token.KwI32, token.KwI64,
		token.KwU8, token.KwU16, token.KwU32, token.KwU64,
		token.KwF32, token.KwF64, token.KwIsize, token.KwUsize,
		token.KwByte, token.KwShort, token.KwLong, token.KwFloat, token.KwDouble,
		token.KwPtr, token.KwArray, token.KwSlice, token.KwDynarray:
		return true
	}
	return false
}

func (p *Parser) parseStructLiteralBody(start source.Span, name string, typeArgs []ast.TypeExpr) ast.Expr {
	p.advance() // {
	var fields []ast.FieldInit
	for !p.at(token.RBrace) && !p.at(token.Eof) {
		fname := ""
		if p.at(token.Identifier) {
			fname = p.advance().Lexeme
		} else {
			p.errorf("expected field name in struct literal")
		}
		p.expect(token.Colon, "':'")
		val := p.parseExprAllowStructLit()
		fields = append(fields, ast.FieldInit{Name: fname, Value: val})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, "'}'")
	return &ast.StructLiteral{
		ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))},
		Name:     name, TypeArgs: typeArgs, Fields: fields,
	}
}

func (p *Parser) parseCatch(start source.Span, x ast.Expr) ast.Expr {
	p.advance() // catch
	if p.match(token.Panic) {
		return &ast.Catch{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: x, Mode: ast.CatchPanic}
	}
	if p.match(token.Throw) {
		return &ast.Catch{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: x, Mode: ast.CatchThrow}
	}
	p.expect(token.LBrace, "'{'")
	var clauses []ast.CatchClause
	for !p.at(token.RBrace) && !p.at(token.Eof) {
		clauses = append(clauses, p.parseCatchClause())
	}
	p.expect(token.RBrace, "'}'")
	return &ast.Catch{
		ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))},
		X:        x, Mode: ast.CatchClauses, Clauses: clauses,
	}
}

func (p *Parser) parseCatchClause() ast.CatchClause {
	isDefault := false
	variant := ""
	if p.match(token.Default) {
		isDefault = true
	} else if p.at(token.Identifier) {
		variant = p.advance().Lexeme
	} else {
		p.errorf("expected error variant or 'default'")
	}
	bind := ""
	if p.at(token.Identifier) {
		bind = p.advance().Lexeme
	}
	p.expect(token.Colon, "':'")
	var body []ast.Stmt
	if p.at(token.LBrace) {
		block, _ := p.parseBlock()
		if block != nil {
			body = block.Statements
		}
	} else if s, ok := p.parseStmt(); ok {
		body = []ast.Stmt{s}
	}
	return ast.CatchClause{ErrorVariant: variant, IsDefault: isDefault, BindName: bind, Body: body}
}

func (p *Parser) parsePrimary(start source.Span) ast.Expr {
	t := p.cur()
	switch t.Kind {
	case token.IntLiteral:
		p.advance()
		return &ast.IntLiteral{ExprBase: ast.ExprBase{Base: ast.NewBase(t.Span)}, Value: t.Value.Int}
	case token.FloatLiteral:
		p.advance()
		return &ast.FloatLiteral{ExprBase: ast.ExprBase{Base: ast.NewBase(t.Span)}, Value: t.Value.Float}
	case token.StringLiteral:
		p.advance()
		return &ast.StringLiteral{ExprBase: ast.ExprBase{Base: ast.NewBase(t.Span)}, Value: t.Value.String}
	case token.True:
		p.advance()
		return &ast.BoolLiteral{ExprBase: ast.ExprBase{Base: ast.NewBase(t.Span)}, Value: true}
	case token.False:
		p.advance()
		return &ast.BoolLiteral{ExprBase: ast.ExprBase{Base: ast.NewBase(t.Span)}, Value: false}
	case token.Null:
		p.advance()
		return &ast.NullLiteral{ExprBase: ast.ExprBase{Base: ast.NewBase(t.Span)}}
	case token.SelfKw:
		p.advance()
		return &ast.Identifier{ExprBase: ast.ExprBase{Base: ast.NewBase(t.Span)}, Name: "self"}
	case token.Identifier:
		p.advance()
		if p.at(token.LBrace) && !p.noStructLit {
			return p.parseStructLiteralBody(start, t.Lexeme, nil)
		}
		return &ast.Identifier{ExprBase: ast.ExprBase{Base: ast.NewBase(t.Span)}, Name: t.Lexeme}
	case token.LParen:
		p.advance()
		inner := p.parseExprAllowStructLit()
		p.expect(token.RParen, "')'")
		return &ast.Group{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, X: inner}
	case token.LBracket:
		p.advance()
		var elems []ast.Expr
		for !p.at(token.RBracket) && !p.at(token.Eof) {
			elems = append(elems, p.parseExprAllowStructLit())
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RBracket, "']'")
		return &ast.ArrayLiteral{ExprBase: ast.ExprBase{Base: ast.NewBase(spanFrom(start, p.prevSpan()))}, Elements: elems}
	default:
		p.errorf("expected an expression, got %s", t.Kind)
		p.advance()
		return &ast.Identifier{ExprBase: ast.ExprBase{Base: ast.NewBase(t.Span)}, Name: "<error>"}
	}
}
