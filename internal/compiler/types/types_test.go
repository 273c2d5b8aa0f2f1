package types

import "testing"

func TestTypesEqualPrimitives(t *testing.T) {
	if !TypesEqual(Int(32, true), Int(32, true)) {
		t.Error("i32 should equal i32")
	}
	if TypesEqual(Int(32, true), Int(32, false)) {
		t.Error("i32 should not equal u32")
	}
	if TypesEqual(Int(32, true), Int(64, true)) {
		t.Error("i32 should not equal i64")
	}
	if !TypesEqual(Float(64), Float(64)) {
		t.Error("f64 should equal f64")
	}
}

func TestTypesEqualStructsAreNominal(t *testing.T) {
	a := &Type{Kind: KStruct, Name: "Point", Fields: map[string]*Type{"x": Int(32, true)}}
	b := &Type{Kind: KStruct, Name: "Point", Fields: map[string]*Type{"x": Float(64)}}
	if !TypesEqual(a, b) {
		t.Error("structs with the same name should be considered equal regardless of field shape")
	}
	c := &Type{Kind: KStruct, Name: "Other"}
	if TypesEqual(a, c) {
		t.Error("differently-named structs should not be equal")
	}
}

func TestTypesEqualCompound(t *testing.T) {
	if !TypesEqual(Ptr(Int(32, true)), Ptr(Int(32, true))) {
		t.Error("ptr<i32> should equal ptr<i32>")
	}
	if TypesEqual(Ptr(Int(32, true)), Ptr(Int(64, true))) {
		t.Error("ptr<i32> should not equal ptr<i64>")
	}
	n3, n4 := 3, 4
	if TypesEqual(ArrayOf(Int(32, true), &n3), ArrayOf(Int(32, true), &n4)) {
		t.Error("array<i32,3> should not equal array<i32,4>")
	}
	if !TypesEqual(ArrayOf(Int(32, true), &n3), ArrayOf(Int(32, true), &n3)) {
		t.Error("array<i32,3> should equal array<i32,3>")
	}
}

func TestIsAssignableToIntWidening(t *testing.T) {
	if !IsAssignableTo(Int(32, true), Int(64, true)) {
		t.Error("i32 should widen to i64")
	}
	if IsAssignableTo(Int(64, true), Int(32, true)) {
		t.Error("i64 should not narrow to i32")
	}
	if IsAssignableTo(Int(32, true), Int(32, false)) {
		t.Error("signed and unsigned ints of the same width are not assignable")
	}
}

func TestIsAssignableToNullAndError(t *testing.T) {
	if !IsAssignableTo(NullType, Ptr(Int(8, false))) {
		t.Error("null should be assignable to any ptr<_>")
	}
	if IsAssignableTo(NullType, StringType) {
		t.Error("null should not be assignable to string")
	}
	if !IsAssignableTo(ErrorType, StringType) || !IsAssignableTo(StringType, ErrorType) {
		t.Error("error type should be assignable both ways to suppress cascades")
	}
}

func TestIsLiteralAssignableToIntRange(t *testing.T) {
	if !IsLiteralAssignableTo(false, 200, 0, Int(8, false)) {
		t.Error("200 should fit in u8")
	}
	if IsLiteralAssignableTo(false, 200, 0, Int(8, true)) {
		t.Error("200 should not fit in i8 (max 127)")
	}
	if !IsLiteralAssignableTo(false, -5, 0, Int(8, true)) {
		t.Error("-5 should fit in i8")
	}
	if IsLiteralAssignableTo(false, -5, 0, Int(8, false)) {
		t.Error("-5 should not fit in u8")
	}
	if !IsLiteralAssignableTo(false, 1, 0, Float(64)) {
		t.Error("an int literal should be assignable to a float type")
	}
}

func TestIsLiteralAssignableToFloat(t *testing.T) {
	if !IsLiteralAssignableTo(true, 0, 3.14, Float(32)) {
		t.Error("a float literal should be assignable to any float type")
	}
	if IsLiteralAssignableTo(true, 0, 3.14, Int(32, true)) {
		t.Error("a float literal should never be assignable to an int type")
	}
}

func TestMangleGenericName(t *testing.T) {
	got := MangleGenericName("Pair", []*Type{Int(32, true), BoolType})
	want := "Pair_i32_bool"
	if got != want {
		t.Errorf("MangleGenericName = %q, want %q", got, want)
	}
	if got := MangleGenericName("Box", nil); got != "Box" {
		t.Errorf("MangleGenericName with no args = %q, want %q", got, "Box")
	}
}

func TestTypeToString(t *testing.T) {
	tests := []struct {
		t    *Type
		want string
	}{
		{Int(32, true), "i32"},
		{Int(8, false), "u8"},
		{Float(64), "f64"},
		{Ptr(Int(8, false)), "ptr<u8>"},
		{Slice(StringType), "slice<string>"},
		{&Type{Kind: KFunction, Params: []Param{{Type: Int(32, true)}}, Return: BoolType}, "fn(i32) -> bool"},
	}
	for _, tt := range tests {
		if got := TypeToString(tt.t); got != tt.want {
			t.Errorf("TypeToString(%+v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestSubstituteTypeReturnsSameIdentityWhenUnchanged(t *testing.T) {
	base := Slice(Int(32, true))
	got := SubstituteType(base, map[string]*Type{"T": BoolType})
	if got != base {
		t.Error("SubstituteType should return the identical pointer when nothing in the tree changed")
	}
}

func TestSubstituteTypeReplacesTypeParam(t *testing.T) {
	tp := TypeParam("T")
	got := SubstituteType(Slice(tp), map[string]*Type{"T": Int(32, true)})
	if got.Kind != KSlice || !TypesEqual(got.Elem, Int(32, true)) {
		t.Errorf("SubstituteType(slice<T>, T=i32) = %+v, want slice<i32>", got)
	}
}

func TestSubstituteTypeStruct(t *testing.T) {
	boxT := &Type{
		Kind:          KStruct,
		Name:          "Box",
		GenericParams: []string{"T"},
		Fields:        map[string]*Type{"value": TypeParam("T")},
		FieldOrder:    []string{"value"},
	}
	got := SubstituteType(boxT, map[string]*Type{"T": Int(64, true)})
	if got == boxT {
		t.Fatal("expected a distinct clone once a field substitution changed something")
	}
	if !TypesEqual(got.Fields["value"], Int(64, true)) {
		t.Errorf("substituted Box.value = %+v, want i64", got.Fields["value"])
	}
	if !TypesEqual(boxT.Fields["value"], TypeParam("T")) {
		t.Error("SubstituteType must not mutate the original generic template")
	}
}
