// Package token defines the closed set of lexical token kinds produced by
// the lexer and consumed by the parser.
package token

import "github.com/kei-lang/kei/internal/compiler/source"

// Kind is a closed enumeration of token kinds.
type Kind int

const (
	Illegal Kind = iota
	Eof

	// Literals.
	IntLiteral
	FloatLiteral
	StringLiteral
	Identifier

	keywordsStart
	// Active keywords.
	Fn
	Let
	Const
	Mut
	Move
	Pub
	Static
	Extern
	Struct
	Unsafe
	Enum
	Type
	Import
	From
	In
	If
	Else
	While
	For
	Switch
	Case
	Default
	Defer
	Break
	Continue
	Return
	Assert
	Require
	Throw
	Throws
	Catch
	Panic
	As
	SelfKw
	True
	False
	Null

	// Primitive / collection type keywords.
	KwInt
	KwUint
	KwBool
	KwString
	KwVoid
	KwI8
	KwI16
	KwI32
	KwI64
	KwU8
	KwU16
	KwU32
	KwU64
	KwF32
	KwF64
	KwIsize
	KwUsize
	KwByte
	KwShort
	KwLong
	KwFloat
	KwDouble
	KwPtr
	KwArray
	KwSlice
	KwDynarray
	keywordsEnd

	reservedStart
	// Reserved keywords: accepted lexically, rejected with a diagnostic.
	RAsync
	RAwait
	RClosure
	RGeneric
	RImpl
	RInterface
	RMacro
	RMatch
	ROverride
	RPrivate
	RProtected
	RRef
	RShared
	RSuper
	RTrait
	RVirtual
	RWhere
	RYield
	reservedEnd

	// Operators and punctuation.
	Plus       // +
	Minus      // -
	Star       // *
	Slash      // /
	Percent    // %
	Amp        // &
	Pipe       // |
	Caret      // ^
	Tilde      // ~
	Bang       // !
	Assign     // =
	Lt         // <
	Gt         // >
	Le         // <=
	Ge         // >=
	EqEq       // ==
	NotEq      // !=
	AmpAmp     // &&
	PipePipe   // ||
	Shl        // <<
	Shr        // >>
	PlusEq     // +=
	MinusEq    // -=
	StarEq     // *=
	SlashEq    // /=
	PercentEq  // %=
	AmpEq      // &=
	PipeEq     // |=
	CaretEq    // ^=
	ShlEq      // <<=
	ShrEq      // >>=
	PlusPlus   // ++
	MinusMinus // --
	Arrow      // ->
	FatArrow   // =>
	DotStar    // .*
	Dot        // .
	DotDot     // ..
	DotDotEq   // ..=
	Comma      // ,
	Colon      // :
	Semicolon  // ;
	LParen     // (
	RParen     // )
	LBrace     // {
	RBrace     // }
	LBracket   // [
	RBracket   // ]
	At         // @ (used by versioned import suffix)
)

var names = map[Kind]string{
	Illegal: "illegal", Eof: "eof",
	IntLiteral: "int-literal", FloatLiteral: "float-literal", StringLiteral: "string-literal", Identifier: "identifier",
	Fn: "fn", Let: "let", Const: "const", Mut: "mut", Move: "move", Pub: "pub", Static: "static", Extern: "extern",
	Struct: "struct", Unsafe: "unsafe", Enum: "enum", Type: "type", Import: "import", From: "from", In: "in",
	If: "if", Else: "else", While: "while", For: "for", Switch: "switch", Case: "case", Default: "default",
	Defer: "defer", Break: "break", Continue: "continue", Return: "return", Assert: "assert", Require: "require",
	Throw: "throw", Throws: "throws", Catch: "catch", Panic: "panic", As: "as", SelfKw: "self",
	True: "true", False: "false", Null: "null",
	KwInt: "int", KwUint: "uint", KwBool: "bool", KwString: "string", KwVoid: "void",
	KwI8: "i8", KwI16: "i16", KwI32: "i32", KwI64: "i64",
	KwU8: "u8", KwU16: "u16", KwU32: "u32", KwU64: "u64",
	KwF32: "f32", KwF64: "f64", KwIsize: "isize", KwUsize: "usize",
	KwByte: "byte", KwShort: "short", KwLong: "long", KwFloat: "float", KwDouble: "double",
	KwPtr: "ptr", KwArray: "array", KwSlice: "slice", KwDynarray: "dynarray",
	RAsync: "async", RAwait: "await", RClosure: "closure", RGeneric: "generic", RImpl: "impl",
	RInterface: "interface", RMacro: "macro", RMatch: "match", ROverride: "override", RPrivate: "private",
	RProtected: "protected", RRef: "ref", RShared: "shared", RSuper: "super", RTrait: "trait",
	RVirtual: "virtual", RWhere: "where", RYield: "yield",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", Amp: "&", Pipe: "|", Caret: "^", Tilde: "~", Bang: "!",
	Assign: "=", Lt: "<", Gt: ">", Le: "<=", Ge: ">=", EqEq: "==", NotEq: "!=", AmpAmp: "&&", PipePipe: "||",
	Shl: "<<", Shr: ">>", PlusEq: "+=", MinusEq: "-=", StarEq: "*=", SlashEq: "/=", PercentEq: "%=",
	AmpEq: "&=", PipeEq: "|=", CaretEq: "^=", ShlEq: "<<=", ShrEq: ">>=",
	PlusPlus: "++", MinusMinus: "--", Arrow: "->", FatArrow: "=>", DotStar: ".*",
	Dot: ".", DotDot: "..", DotDotEq: "..=", Comma: ",", Colon: ":", Semicolon: ";",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]", At: "@",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown"
}

// IsKeyword reports whether k is one of the active keywords.
func (k Kind) IsKeyword() bool { return k > keywordsStart && k < keywordsEnd }

// IsReserved reports whether k is a reserved-for-future-use keyword.
func (k Kind) IsReserved() bool { return k > reservedStart && k < reservedEnd }

// activeKeywords maps identifier text to its active keyword Kind.
var activeKeywords = map[string]Kind{
	"fn": Fn, "let": Let, "const": Const, "mut": Mut, "move": Move, "pub": Pub, "static": Static, "extern": Extern,
	"struct": Struct, "unsafe": Unsafe, "enum": Enum, "type": Type, "import": Import, "from": From, "in": In,
	"if": If, "else": Else, "while": While, "for": For, "switch": Switch, "case": Case, "default": Default,
	"defer": Defer, "break": Break, "continue": Continue, "return": Return, "assert": Assert, "require": Require,
	"throw": Throw, "throws": Throws, "catch": Catch, "panic": Panic, "as": As, "self": SelfKw,
	"true": True, "false": False, "null": Null,
	"int": KwInt, "uint": KwUint, "bool": KwBool, "string": KwString, "void": KwVoid,
	"i8": KwI8, "i16": KwI16, "i32": KwI32, "i64": KwI64,
	"u8": KwU8, "u16": KwU16, "u32": KwU32, "u64": KwU64,
	"f32": KwF32, "f64": KwF64, "isize": KwIsize, "usize": KwUsize,
	"byte": KwByte, "short": KwShort, "long": KwLong, "float": KwFloat, "double": KwDouble,
	"ptr": KwPtr, "array": KwArray, "slice": KwSlice, "dynarray": KwDynarray,
}

// reservedKeywords maps identifier text to its reserved Kind.
var reservedKeywords = map[string]Kind{
	"async": RAsync, "await": RAwait, "closure": RClosure, "generic": RGeneric, "impl": RImpl,
	"interface": RInterface, "macro": RMacro, "match": RMatch, "override": ROverride, "private": RPrivate,
	"protected": RProtected, "ref": RRef, "shared": RShared, "super": RSuper, "trait": RTrait,
	"virtual": RVirtual, "where": RWhere, "yield": RYield,
}

// LookupActiveKeyword returns the active keyword Kind for ident, if any.
func LookupActiveKeyword(ident string) (Kind, bool) {
	k, ok := activeKeywords[ident]
	return k, ok
}

// LookupReservedKeyword returns the reserved keyword Kind for ident, if any.
func LookupReservedKeyword(ident string) (Kind, bool) {
	k, ok := reservedKeywords[ident]
	return k, ok
}

// Value holds a pre-parsed literal value attached to a token.
type Value struct {
	Int    int64
	Float  float64
	String string
	Bool   bool
}

// Token is a single lexical unit with its source span and pre-parsed value.
type Token struct {
	Kind   Kind
	Lexeme string
	Span   source.Span
	Line   int
	Column int
	Value  Value
}
