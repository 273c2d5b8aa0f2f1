// Package types implements Kei's semantic type representation: a closed
// variant plus the predicates (assignability, equality, mangling) the
// checker and lowerer need. It is pure data and pure functions — no
// dependency on the AST or the checker.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the closed Type variant.
type Kind int

const (
	KInt Kind = iota
	KFloat
	KBool
	KVoid
	KString
	KCChar
	KNull
	KError
	KPtr
	KArray
	KSlice
	KRange
	KStruct
	KEnum
	KFunction
	KTypeParam
	KModule
)

// Param describes one function-type parameter.
type Param struct {
	Name   string
	Type   *Type
	IsMut  bool
	IsMove bool
}

// EnumVariant is one arm of an Enum type's closed variant set.
type EnumVariant struct {
	Name   string
	Fields map[string]*Type
	// Order preserves declaration order for exhaustiveness diagnostics and
	// mangling; Fields alone would not be deterministic to iterate.
	FieldOrder []string
}

// Type is the closed semantic type variant described in spec.md §3.
type Type struct {
	Kind Kind

	// Int / Float
	Bits   int
	Signed bool // Int only

	// Ptr / Array / Slice / Range
	Elem *Type

	// Array
	Length *int // nil for an unsized array type

	// Struct / Enum
	Name string

	// Struct
	Fields       map[string]*Type
	FieldOrder   []string
	Methods      map[string]*Type // name -> KFunction type
	IsUnsafe     bool
	GenericParams []string
	GenericBase   string // non-empty for a monomorphized instance
	GenericArgs   []*Type
	AutoDestroy   bool
	AutoOncopy    bool

	// Enum
	BaseType *Type
	Variants []EnumVariant

	// Function
	Params        []Param
	Return        *Type
	ThrowsTypes   []*Type
	FuncGenerics  []string
	IsExtern      bool

	// TypeParam
	ParamName string

	// Module
	ModuleName string
	Exports    map[string]*Type
}

// Builtin primitive constructors.
func Int(bits int, signed bool) *Type { return &Type{Kind: KInt, Bits: bits, Signed: signed} }
func Float(bits int) *Type            { return &Type{Kind: KFloat, Bits: bits} }

var (
	BoolType   = &Type{Kind: KBool}
	VoidType   = &Type{Kind: KVoid}
	StringType = &Type{Kind: KString}
	CCharType  = &Type{Kind: KCChar}
	NullType   = &Type{Kind: KNull}
	ErrorType  = &Type{Kind: KError}
)

func Ptr(elem *Type) *Type              { return &Type{Kind: KPtr, Elem: elem} }
func Slice(elem *Type) *Type            { return &Type{Kind: KSlice, Elem: elem} }
func RangeOf(elem *Type) *Type          { return &Type{Kind: KRange, Elem: elem} }
func ArrayOf(elem *Type, length *int) *Type {
	return &Type{Kind: KArray, Elem: elem, Length: length}
}
func TypeParam(name string) *Type { return &Type{Kind: KTypeParam, ParamName: name} }

// IsPrimitiveNumeric reports whether t is an Int or Float variant.
func (t *Type) IsPrimitiveNumeric() bool {
	return t != nil && (t.Kind == KInt || t.Kind == KFloat)
}

// typesEqual reports structural equality: name-based for nominal types
// (Struct, Enum), deep for compound types.
func TypesEqual(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KInt:
		return a.Bits == b.Bits && a.Signed == b.Signed
	case KFloat:
		return a.Bits == b.Bits
	case KBool, KVoid, KString, KCChar, KNull, KError:
		return true
	case KPtr, KSlice, KRange:
		return TypesEqual(a.Elem, b.Elem)
	case KArray:
		if !TypesEqual(a.Elem, b.Elem) {
			return false
		}
		if (a.Length == nil) != (b.Length == nil) {
			return false
		}
		return a.Length == nil || *a.Length == *b.Length
	case KStruct, KEnum:
		return a.Name == b.Name
	case KFunction:
		if len(a.Params) != len(b.Params) || !TypesEqual(a.Return, b.Return) {
			return false
		}
		for i := range a.Params {
			if !TypesEqual(a.Params[i].Type, b.Params[i].Type) {
				return false
			}
		}
		return true
	case KTypeParam:
		return a.ParamName == b.ParamName
	case KModule:
		return a.ModuleName == b.ModuleName
	}
	return false
}

// IsAssignableTo implements spec.md §4.5's assignability predicate: identity;
// Null to any Ptr<_>; integer widening (same signedness, smaller-or-equal
// bit width); Error assignable both ways to suppress cascading diagnostics.
func IsAssignableTo(from, to *Type) bool {
	if TypesEqual(from, to) {
		return true
	}
	if from == nil || to == nil {
		return false
	}
	if from.Kind == KError || to.Kind == KError {
		return true
	}
	if from.Kind == KNull && to.Kind == KPtr {
		return true
	}
	if from.Kind == KInt && to.Kind == KInt {
		return from.Signed == to.Signed && from.Bits <= to.Bits
	}
	return false
}

// IsLiteralAssignableTo implements spec.md §4.5: an int literal whose value
// fits target's range is assignable to any integer type or to a float type;
// a float literal is assignable to any float type.
func IsLiteralAssignableTo(isFloatLiteral bool, intValue int64, floatValue float64, target *Type) bool {
	if target == nil {
		return false
	}
	if isFloatLiteral {
		return target.Kind == KFloat
	}
	switch target.Kind {
	case KFloat:
		return true
	case KInt:
		return intFitsIn(intValue, target.Bits, target.Signed)
	}
	return false
}

func intFitsIn(v int64, bits int, signed bool) bool {
	if signed {
		lo := -(int64(1) << (bits - 1))
		hi := (int64(1) << (bits - 1)) - 1
		return v >= lo && v <= hi
	}
	if v < 0 {
		return false
	}
	if bits >= 64 {
		return true
	}
	hi := (int64(1) << bits) - 1
	return v <= hi
}

// TypeToString renders t for diagnostics.
func TypeToString(t *Type) string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KInt:
		return fmt.Sprintf("%s%d", signPrefix(t.Signed), t.Bits)
	case KFloat:
		return fmt.Sprintf("f%d", t.Bits)
	case KBool:
		return "bool"
	case KVoid:
		return "void"
	case KString:
		return "string"
	case KCChar:
		return "cchar"
	case KNull:
		return "null"
	case KError:
		return "<error>"
	case KPtr:
		return "ptr<" + TypeToString(t.Elem) + ">"
	case KArray:
		if t.Length != nil {
			return fmt.Sprintf("array<%s, %d>", TypeToString(t.Elem), *t.Length)
		}
		return "array<" + TypeToString(t.Elem) + ">"
	case KSlice:
		return "slice<" + TypeToString(t.Elem) + ">"
	case KRange:
		return "range<" + TypeToString(t.Elem) + ">"
	case KStruct, KEnum:
		return t.Name
	case KFunction:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = TypeToString(p.Type)
		}
		return fmt.Sprintf("fn(%s) -> %s", strings.Join(parts, ", "), TypeToString(t.Return))
	case KTypeParam:
		return t.ParamName
	case KModule:
		return "module " + t.ModuleName
	}
	return "<unknown>"
}

func signPrefix(signed bool) string {
	if signed {
		return "i"
	}
	return "u"
}

// MangleTypeName produces the deterministic short name used in mangled
// generic instance names (e.g. "i32", "u64", "ptr_i32").
func MangleTypeName(t *Type) string {
	if t == nil {
		return "error"
	}
	switch t.Kind {
	case KInt:
		return fmt.Sprintf("%s%d", signPrefix(t.Signed), t.Bits)
	case KFloat:
		return fmt.Sprintf("f%d", t.Bits)
	case KBool:
		return "bool"
	case KVoid:
		return "void"
	case KString:
		return "string"
	case KCChar:
		return "cchar"
	case KPtr:
		return "ptr_" + MangleTypeName(t.Elem)
	case KArray:
		if t.Length != nil {
			return fmt.Sprintf("array_%s_%d", MangleTypeName(t.Elem), *t.Length)
		}
		return "array_" + MangleTypeName(t.Elem)
	case KSlice:
		return "slice_" + MangleTypeName(t.Elem)
	case KRange:
		return "range_" + MangleTypeName(t.Elem)
	case KStruct, KEnum:
		return t.Name
	default:
		return "t"
	}
}

// MangleGenericName produces base's mangled name for the given type
// arguments, e.g. mangleGenericName("Pair", [i32, bool]) = "Pair_i32_bool".
func MangleGenericName(base string, args []*Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = MangleTypeName(a)
	}
	if len(parts) == 0 {
		return base
	}
	return base + "_" + strings.Join(parts, "_")
}

// SubstituteType walks Ptr/Array/Slice/Range/Struct/Function and replaces
// TypeParam{name} by mapping[name]. It returns t by identity (the same
// pointer) when no substitution applied anywhere in the tree, which the
// checker uses as a cheap change-detection signal.
func SubstituteType(t *Type, mapping map[string]*Type) *Type {
	if t == nil || len(mapping) == 0 {
		return t
	}
	switch t.Kind {
	case KTypeParam:
		if repl, ok := mapping[t.ParamName]; ok {
			return repl
		}
		return t
	case KPtr:
		elem := SubstituteType(t.Elem, mapping)
		if elem == t.Elem {
			return t
		}
		return Ptr(elem)
	case KSlice:
		elem := SubstituteType(t.Elem, mapping)
		if elem == t.Elem {
			return t
		}
		return Slice(elem)
	case KRange:
		elem := SubstituteType(t.Elem, mapping)
		if elem == t.Elem {
			return t
		}
		return RangeOf(elem)
	case KArray:
		elem := SubstituteType(t.Elem, mapping)
		if elem == t.Elem {
			return t
		}
		return ArrayOf(elem, t.Length)
	case KStruct:
		if len(t.GenericParams) == 0 {
			return t
		}
		changed := false
		newFields := make(map[string]*Type, len(t.Fields))
		for _, name := range t.FieldOrder {
			nf := SubstituteType(t.Fields[name], mapping)
			if nf != t.Fields[name] {
				changed = true
			}
			newFields[name] = nf
		}
		if !changed {
			return t
		}
		clone := *t
		clone.Fields = newFields
		return &clone
	case KFunction:
		changed := false
		newParams := make([]Param, len(t.Params))
		for i, p := range t.Params {
			np := SubstituteType(p.Type, mapping)
			if np != p.Type {
				changed = true
			}
			newParams[i] = Param{Name: p.Name, Type: np, IsMut: p.IsMut, IsMove: p.IsMove}
		}
		newReturn := SubstituteType(t.Return, mapping)
		if newReturn != t.Return {
			changed = true
		}
		var newThrows []*Type
		if len(t.ThrowsTypes) > 0 {
			newThrows = make([]*Type, len(t.ThrowsTypes))
			for i, th := range t.ThrowsTypes {
				newThrows[i] = SubstituteType(th, mapping)
				if newThrows[i] != th {
					changed = true
				}
			}
		}
		if !changed {
			return t
		}
		clone := *t
		clone.Params = newParams
		clone.Return = newReturn
		clone.ThrowsTypes = newThrows
		return &clone
	default:
		return t
	}
}
