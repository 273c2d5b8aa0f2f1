// Package ast defines the closed, discriminated syntax tree produced by the
// parser. Every node carries a Span. The tree is built once by the parser
// and never mutated afterward; later passes attach their own side-tables
// keyed by node identity (a node's own pointer, since Go pointers are
// already stable and hashable).
package ast

import "github.com/kei-lang/kei/internal/compiler/source"

// Node is implemented by every AST node. Side-tables that must be keyed by
// node identity (the checker's typeMap, genericResolutions, and similar) use
// the node's own pointer as the map key: unlike the dynamic languages the
// Design Notes were written against, Go pointers already give every node a
// stable, hashable identity, so no separate integer NodeID is threaded
// through construction.
type Node interface {
	Span() source.Span
	node()
}

// Base carries the span every node embeds. Its field is exported so
// constructors in other packages (chiefly the parser) can build node
// literals directly; use NewBase for brevity.
type Base struct {
	SrcSpan source.Span
}

// NewBase wraps a span for embedding in a concrete node literal.
func NewBase(span source.Span) Base { return Base{SrcSpan: span} }

func (b Base) Span() source.Span { return b.SrcSpan }

// Program is the top-level node: an ordered list of declarations.
type Program struct {
	Base
	Declarations []Decl
}

func (*Program) node() {}

// Decl is implemented by every top-level declaration node.
type Decl interface {
	Node
	decl()
}

// DeclBase is embedded by every declaration node.
type DeclBase struct{ Base }

func (*DeclBase) decl() {}
func (*DeclBase) node() {}

// Param describes a single function parameter.
type Param struct {
	Name   string
	Type   TypeExpr
	IsMut  bool
	IsMove bool
}

// Function is a named function or method declaration.
type Function struct {
	DeclBase
	Name          string
	IsPub         bool
	GenericParams []string
	Receiver      *Param // non-nil for methods
	Params        []Param
	ReturnType    TypeExpr
	ThrowsTypes   []TypeExpr
	Body          *Block
}

// ExternFunction is an `extern fn` declaration with no body.
type ExternFunction struct {
	DeclBase
	Name       string
	Params     []Param
	ReturnType TypeExpr
}

// Field is a single struct field.
type Field struct {
	Name string
	Type TypeExpr
}

// Struct is a plain `struct` declaration (no raw pointer fields allowed).
type Struct struct {
	DeclBase
	Name          string
	IsPub         bool
	GenericParams []string
	Fields        []Field
	Methods       []*Function
}

// UnsafeStruct is an `unsafe struct` declaration, which may hold `ptr<T>`
// fields and must define `__destroy`/`__oncopy` if it does.
type UnsafeStruct struct {
	DeclBase
	Name          string
	IsPub         bool
	GenericParams []string
	Fields        []Field
	Methods       []*Function
}

// EnumVariant is a single sum-type arm, optionally carrying data fields.
type EnumVariant struct {
	Name   string
	Fields []Field
}

// Enum is a sum-typed `enum` declaration.
type Enum struct {
	DeclBase
	Name     string
	IsPub    bool
	BaseType TypeExpr // optional backing type for C-like enums
	Variants []EnumVariant
}

// TypeAlias is a `type Name = Type;` declaration.
type TypeAlias struct {
	DeclBase
	Name string
	Type TypeExpr
}

// Import is an `import path.segment.…;` or `import { a, b } from path…;`
// declaration. Version is the optional `@vX.Y.Z` suffix (supplemented
// feature, see SPEC_FULL.md).
type Import struct {
	DeclBase
	Path    []string
	Names   []string // empty for a bare `import path;`
	Version string
}

// Static is a top-level `static` variable declaration.
type Static struct {
	DeclBase
	Name  string
	IsPub bool
	IsMut bool
	Type  TypeExpr
	Value Expr
}

// TypeExpr is the syntactic representation of a type reference.
type TypeExpr interface {
	Node
	typeExpr()
}

type TypeExprBase struct{ Base }

func (*TypeExprBase) typeExpr() {}
func (*TypeExprBase) node()     {}

// NamedType is `identifier` or a primitive keyword, used bare or as the
// element of a generic instantiation (e.g. `array<T, N>`'s `N` is encoded as
// a NamedType whose Name is the integer lexeme).
type NamedType struct {
	TypeExprBase
	Name string
	Args []TypeExpr // non-empty for `Name<T, ...>`
}

// Statements.

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmt()
}

type StmtBase struct{ Base }

func (*StmtBase) stmt() {}
func (*StmtBase) node() {}

// Block is a brace-enclosed statement sequence. When used as an expression
// block, a trailing ExprStmt without a semicolon is the block's value.
type Block struct {
	StmtBase
	Statements []Stmt
}

// Let is a `let name = expr;` (or `let name: Type = expr;`) binding.
type Let struct {
	StmtBase
	Name  string
	IsMut bool
	Type  TypeExpr // optional
	Value Expr
}

// ConstStmt is a local `const name = expr;` binding.
type ConstStmt struct {
	StmtBase
	Name  string
	Type  TypeExpr
	Value Expr
}

// ReturnStmt is `return [expr];`.
type ReturnStmt struct {
	StmtBase
	Value Expr // nil for bare `return;`
}

// IfStmt is `if cond { ... } else { ... }` used as a statement.
type IfStmt struct {
	StmtBase
	Cond Expr
	Then *Block
	Else Stmt // *Block or *IfStmt, nil if absent
}

// WhileStmt is `while cond { ... }`.
type WhileStmt struct {
	StmtBase
	Cond Expr
	Body *Block
}

// ForStmt is `for name in expr { ... }`.
type ForStmt struct {
	StmtBase
	Var  string
	Iter Expr
	Body *Block
}

// SwitchCase is a single `case pattern: stmts` or `default: stmts` arm.
type SwitchCase struct {
	Pattern   Expr // nil for default
	IsDefault bool
	Body      []Stmt
}

// SwitchStmt is a `switch expr { case ...: ...; default: ...; }`.
type SwitchStmt struct {
	StmtBase
	Subject Expr
	Cases   []SwitchCase
}

// DeferStmt is `defer stmt;`, run LIFO at every scope-exit path.
type DeferStmt struct {
	StmtBase
	Body Stmt
}

// BreakStmt is `break;`.
type BreakStmt struct{ StmtBase }

// ContinueStmt is `continue;`.
type ContinueStmt struct{ StmtBase }

// ExprStmt wraps an expression used as a statement, or as an expression
// block's trailing value when Semicolon is false.
type ExprStmt struct {
	StmtBase
	X         Expr
	Semicolon bool
}

// AssertStmt is `assert(cond, msg);`.
type AssertStmt struct {
	StmtBase
	Cond Expr
	Msg  Expr
}

// RequireStmt is `require(cond, msg);`. The lowerer emits a require_check
// on the condition when debug checks are enabled and otherwise only
// evaluates the condition; no early return is synthesized.
type RequireStmt struct {
	StmtBase
	Cond Expr
	Msg  Expr
}

// UnsafeBlock is `unsafe { ... }` used as a statement.
type UnsafeBlock struct {
	StmtBase
	Body *Block
}

// Expressions.

// Expr is implemented by every expression node.
type Expr interface {
	Node
	expr()
}

type ExprBase struct{ Base }

func (*ExprBase) expr() {}
func (*ExprBase) node() {}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNeq
	OpBitAnd
	OpBitXor
	OpBitOr
	OpAnd
	OpOr
)

// Binary is a binary expression.
type Binary struct {
	ExprBase
	Op          BinaryOp
	Left, Right Expr
}

// UnaryOp enumerates prefix unary operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
	OpBitNot
	OpAddr
)

// Unary is a prefix unary expression.
type Unary struct {
	ExprBase
	Op UnaryOp
	X  Expr
}

// Call is a function or method call, with optional explicit generic type
// arguments disambiguated by the parser's speculative parse.
type Call struct {
	ExprBase
	Callee   Expr
	TypeArgs []TypeExpr
	Args     []Expr
}

// Member is `x.name`.
type Member struct {
	ExprBase
	X    Expr
	Name string
}

// Index is `x[e]`.
type Index struct {
	ExprBase
	X     Expr
	Index Expr
}

// Deref is `x.*`.
type Deref struct {
	ExprBase
	X Expr
}

// AssignOp enumerates assignment operators, including compound forms.
type AssignOp int

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod
	AssignBitAnd
	AssignBitOr
	AssignBitXor
	AssignShl
	AssignShr
)

// Assign is `target op= value`, right-associative.
type Assign struct {
	ExprBase
	Op     AssignOp
	Target Expr
	Value  Expr
}

// FieldInit is a single `name: value` entry in a struct literal.
type FieldInit struct {
	Name  string
	Value Expr
}

// StructLiteral is `Name{field: value, ...}`, optionally with explicit
// generic type arguments.
type StructLiteral struct {
	ExprBase
	Name     string
	TypeArgs []TypeExpr
	Fields   []FieldInit
}

// IfExpr is `if cond { expr } else { expr }` used as a value.
type IfExpr struct {
	ExprBase
	Cond Expr
	Then *Block
	Else Expr // *IfExpr, the parser's expression wrapper around an else Block, or nil
}

// IntLiteral is an integer literal expression.
type IntLiteral struct {
	ExprBase
	Value  int64
	Suffix string // optional type suffix, e.g. "i32"
}

// FloatLiteral is a floating-point literal expression.
type FloatLiteral struct {
	ExprBase
	Value  float64
	Suffix string
}

// StringLiteral is a string literal expression.
type StringLiteral struct {
	ExprBase
	Value string
}

// BoolLiteral is `true` or `false`.
type BoolLiteral struct {
	ExprBase
	Value bool
}

// NullLiteral is `null`.
type NullLiteral struct{ ExprBase }

// Identifier is a bare name reference.
type Identifier struct {
	ExprBase
	Name string
}

// Move is `move x`.
type Move struct {
	ExprBase
	X Expr
}

// CatchClause is one `Err name: stmts` or `default name: stmts` arm of a
// brace-enclosed catch.
type CatchClause struct {
	ErrorVariant string // empty for default
	IsDefault    bool
	BindName     string
	Body         []Stmt
}

// CatchMode selects which form of `catch` follows the guarded expression.
type CatchMode int

const (
	CatchPanic CatchMode = iota
	CatchThrow
	CatchClauses
)

// Catch is `expr catch panic`, `expr catch throw`, or
// `expr catch { Err name: ...; default name: ...; }`.
type Catch struct {
	ExprBase
	X       Expr
	Mode    CatchMode
	Clauses []CatchClause
}

// Throw is `throw expr`.
type Throw struct {
	ExprBase
	X Expr
}

// Group is a parenthesized expression, kept distinct so span-enclosure and
// re-lexing properties hold even though it carries no other semantics.
type Group struct {
	ExprBase
	X Expr
}

// Increment is postfix `x++`.
type Increment struct {
	ExprBase
	X Expr
}

// Decrement is postfix `x--`.
type Decrement struct {
	ExprBase
	X Expr
}

// Range is `lo..hi` or `lo..=hi`.
type Range struct {
	ExprBase
	Lo, Hi    Expr
	Inclusive bool
}

// Unsafe is `unsafe { expr }` used as a value.
type Unsafe struct {
	ExprBase
	Body *Block
}

// Cast is `expr as Type`.
type Cast struct {
	ExprBase
	X    Expr
	Type TypeExpr
}

// ArrayLiteral is `[e1, e2, ...]`.
type ArrayLiteral struct {
	ExprBase
	Elements []Expr
}
