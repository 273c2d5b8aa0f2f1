// Package lexer turns Kei source text into a token stream. Scanning never
// aborts: every input, however malformed, produces a token vector ending in
// Eof, with diagnostics recorded for anything that could not be scanned
// cleanly. The lexer is a single state record with scanning routines as
// methods on it, not a set of prototype-patched helpers.
package lexer

import (
	"strings"

	"github.com/kei-lang/kei/internal/compiler/diag"
	"github.com/kei-lang/kei/internal/compiler/source"
	"github.com/kei-lang/kei/internal/compiler/token"
)

// Lexer holds scanning state over a single source file.
type Lexer struct {
	file   *source.File
	diags  *diag.Channel
	src    string
	offset int
}

// New creates a Lexer over file, reporting diagnostics to diags.
func New(file *source.File, diags *diag.Channel) *Lexer {
	return &Lexer{file: file, diags: diags, src: file.Contents()}
}

// Scan lexes the entire file and returns its token stream, always ending in
// a token.Eof token.
func Scan(file *source.File, diags *diag.Channel) []token.Token {
	l := New(file, diags)
	var toks []token.Token
	for {
		t := l.next()
		toks = append(toks, t)
		if t.Kind == token.Eof {
			break
		}
	}
	return toks
}

func (l *Lexer) peek() byte {
	if l.offset >= len(l.src) {
		return 0
	}
	return l.src[l.offset]
}

func (l *Lexer) peekAt(n int) byte {
	if l.offset+n >= len(l.src) {
		return 0
	}
	return l.src[l.offset+n]
}

func (l *Lexer) advance() byte {
	c := l.src[l.offset]
	l.offset++
	return c
}

func (l *Lexer) eof() bool { return l.offset >= len(l.src) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLetter(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isAlnum(c byte) bool { return isLetter(c) || isDigit(c) }
func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// skipWhitespaceAndComments consumes whitespace, line comments, and
// (non-nesting) block comments. An unterminated block comment is reported
// at the position of its opening "/*".
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.eof() {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			for !l.eof() && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekAt(1) == '*':
			start := l.offset
			l.advance()
			l.advance()
			closed := false
			for !l.eof() {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				l.diags.Errorf(l.file, source.Span{Start: start, End: l.offset}, "Unterminated multi-line comment")
			}
		default:
			return
		}
	}
}

func (l *Lexer) makeToken(kind token.Kind, start int, value token.Value) token.Token {
	span := source.Span{Start: start, End: l.offset}
	pos := l.file.LineCol(start)
	return token.Token{
		Kind:   kind,
		Lexeme: l.src[start:l.offset],
		Span:   span,
		Line:   pos.Line,
		Column: pos.Column,
		Value:  value,
	}
}

// next scans and returns the single next token.
func (l *Lexer) next() token.Token {
	l.skipWhitespaceAndComments()
	if l.eof() {
		return l.makeToken(token.Eof, l.offset, token.Value{})
	}

	start := l.offset
	c := l.peek()

	switch {
	case isLetter(c):
		return l.scanIdentifier(start)
	case isDigit(c) || (c == '.' && isDigit(l.peekAt(1))):
		return l.scanNumber(start)
	case c == '"':
		return l.scanString(start)
	default:
		return l.scanOperator(start)
	}
}

func (l *Lexer) scanIdentifier(start int) token.Token {
	for !l.eof() && isAlnum(l.peek()) {
		l.advance()
	}
	text := l.src[start:l.offset]

	if kind, ok := token.LookupActiveKeyword(text); ok {
		v := token.Value{}
		if kind == token.True {
			v.Bool = true
		}
		return l.makeToken(kind, start, v)
	}
	if kind, ok := token.LookupReservedKeyword(text); ok {
		t := l.makeToken(kind, start, token.Value{})
		l.diags.Errorf(l.file, t.Span, "'%s' is reserved for future use", text)
		return t
	}
	return l.makeToken(token.Identifier, start, token.Value{})
}

func (l *Lexer) scanNumber(start int) token.Token {
	isFloat := false

	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.advance()
		l.advance()
		l.scanDigits(isHex)
		return l.finishInt(start)
	}
	if l.peek() == '0' && (l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		l.advance()
		l.advance()
		l.scanDigits(func(c byte) bool { return c == '0' || c == '1' })
		return l.finishInt(start)
	}
	if l.peek() == '0' && (l.peekAt(1) == 'o' || l.peekAt(1) == 'O') {
		l.advance()
		l.advance()
		l.scanDigits(func(c byte) bool { return c >= '0' && c <= '7' })
		return l.finishInt(start)
	}

	l.scanDigits(isDigit)
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		l.scanDigits(isDigit)
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		save := l.offset
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if isDigit(l.peek()) {
			isFloat = true
			l.scanDigits(isDigit)
		} else {
			l.offset = save
		}
	}
	l.scanSuffix()

	if isFloat {
		text := stripSeparators(l.src[start:l.offset])
		text = stripSuffix(text)
		f, err := parseFloat(text)
		if err != nil {
			t := l.makeToken(token.Illegal, start, token.Value{})
			l.diags.Errorf(l.file, t.Span, "malformed floating-point literal %q", t.Lexeme)
			return t
		}
		return l.makeToken(token.FloatLiteral, start, token.Value{Float: f})
	}
	return l.finishInt(start)
}

func (l *Lexer) scanDigits(pred func(byte) bool) {
	for !l.eof() && (pred(l.peek()) || l.peek() == '_') {
		l.advance()
	}
}

// scanSuffix consumes an optional trailing type suffix such as i32, u64, f32.
func (l *Lexer) scanSuffix() {
	save := l.offset
	if !l.eof() && isLetter(l.peek()) {
		for !l.eof() && isAlnum(l.peek()) {
			l.advance()
		}
		if !isKnownSuffix(l.src[save:l.offset]) {
			l.offset = save
		}
	}
}

func isKnownSuffix(s string) bool {
	switch s {
	case "i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "f32", "f64", "isize", "usize":
		return true
	}
	return false
}

func (l *Lexer) finishInt(start int) token.Token {
	text := stripSeparators(l.src[start:l.offset])
	text = stripSuffix(text)
	n, err := parseIntLiteral(text)
	if err != nil {
		t := l.makeToken(token.Illegal, start, token.Value{})
		l.diags.Errorf(l.file, t.Span, "malformed integer literal %q", t.Lexeme)
		return t
	}
	return l.makeToken(token.IntLiteral, start, token.Value{Int: n})
}

func stripSeparators(s string) string { return strings.ReplaceAll(s, "_", "") }

func stripSuffix(s string) string {
	for _, suf := range []string{"isize", "usize", "i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "f32", "f64"} {
		if strings.HasSuffix(s, suf) && len(s) > len(suf) {
			return s[:len(s)-len(suf)]
		}
	}
	return s
}

// scanString reads a double-quoted string literal with standard escapes. An
// unterminated string yields an Error token and scanning resumes on the
// next line.
func (l *Lexer) scanString(start int) token.Token {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.eof() || l.peek() == '\n' {
			t := l.makeToken(token.Illegal, start, token.Value{})
			l.diags.Errorf(l.file, t.Span, "unterminated string literal")
			if !l.eof() && l.peek() == '\n' {
				l.advance()
			}
			return t
		}
		c := l.advance()
		if c == '"' {
			return l.makeToken(token.StringLiteral, start, token.Value{String: sb.String()})
		}
		if c == '\\' {
			sb.WriteString(l.scanEscape())
			continue
		}
		sb.WriteByte(c)
	}
}

func (l *Lexer) scanEscape() string {
	if l.eof() {
		return ""
	}
	c := l.advance()
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '\\':
		return "\\"
	case '"':
		return "\""
	case '0':
		return "\x00"
	case 'x':
		h := ""
		for i := 0; i < 2 && !l.eof() && isHex(l.peek()); i++ {
			h += string(l.advance())
		}
		return decodeHexByte(h)
	case 'u':
		if !l.eof() && l.peek() == '{' {
			l.advance()
			h := ""
			for !l.eof() && l.peek() != '}' {
				h += string(l.advance())
			}
			if !l.eof() {
				l.advance()
			}
			return decodeUnicodeEscape(h)
		}
		return ""
	default:
		return string(c)
	}
}

// scanOperator performs longest-match lookahead (up to three characters)
// over operators and punctuation; any unrecognized character becomes an
// Error token and scanning continues.
func (l *Lexer) scanOperator(start int) token.Token {
	three := peekN(l.src, l.offset, 3)
	switch three {
	case "<<=":
		l.offset += 3
		return l.makeToken(token.ShlEq, start, token.Value{})
	case ">>=":
		l.offset += 3
		return l.makeToken(token.ShrEq, start, token.Value{})
	case "..=":
		l.offset += 3
		return l.makeToken(token.DotDotEq, start, token.Value{})
	}

	two := peekN(l.src, l.offset, 2)
	if kind, ok := twoCharOps[two]; ok {
		l.offset += 2
		return l.makeToken(kind, start, token.Value{})
	}

	c := l.advance()
	if kind, ok := oneCharOps[c]; ok {
		return l.makeToken(kind, start, token.Value{})
	}

	t := l.makeToken(token.Illegal, start, token.Value{})
	l.diags.Errorf(l.file, t.Span, "Unexpected character %q", string(c))
	return t
}

func peekN(s string, offset, n int) string {
	end := offset + n
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end]
}

var twoCharOps = map[string]token.Kind{
	"->": token.Arrow, "=>": token.FatArrow, ".*": token.DotStar,
	"++": token.PlusPlus, "--": token.MinusMinus,
	"==": token.EqEq, "!=": token.NotEq, "<=": token.Le, ">=": token.Ge,
	"&&": token.AmpAmp, "||": token.PipePipe, "<<": token.Shl, ">>": token.Shr,
	"+=": token.PlusEq, "-=": token.MinusEq, "*=": token.StarEq, "/=": token.SlashEq,
	"%=": token.PercentEq, "&=": token.AmpEq, "|=": token.PipeEq, "^=": token.CaretEq,
	"..": token.DotDot,
}

var oneCharOps = map[byte]token.Kind{
	'+': token.Plus, '-': token.Minus, '*': token.Star, '/': token.Slash, '%': token.Percent,
	'&': token.Amp, '|': token.Pipe, '^': token.Caret, '~': token.Tilde, '!': token.Bang,
	'=': token.Assign, '<': token.Lt, '>': token.Gt, '.': token.Dot,
	',': token.Comma, ':': token.Colon, ';': token.Semicolon,
	'(': token.LParen, ')': token.RParen, '{': token.LBrace, '}': token.RBrace,
	'[': token.LBracket, ']': token.RBracket, '@': token.At,
}
