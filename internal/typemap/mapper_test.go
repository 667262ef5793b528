package typemap

import (
	"testing"

	"github.com/depyler-lang/depyler/internal/hir"
)

func TestMapCanonical(t *testing.T) {
	tests := []struct {
		name string
		ty   hir.Type
		want string
	}{
		{"int", hir.Int(), "i32"},
		{"float", hir.Float(), "f64"},
		{"bool", hir.Bool(), "bool"},
		{"str", hir.Str(), "String"},
		{"none", hir.NoneType(), "()"},
		{"unknown", hir.Unknown(), "_"},
		{"list", hir.ListOf(hir.Int()), "Vec<i32>"},
		{"dict", hir.DictOf(hir.Str(), hir.Int()), "HashMap<String, i32>"},
		{"set", hir.SetOf(hir.Str()), "HashSet<String>"},
		{"tuple", hir.TupleOf(hir.Int(), hir.Str()), "(i32, String)"},
		{"optional", hir.OptionalOf(hir.Int()), "Option<i32>"},
		{"nested", hir.ListOf(hir.OptionalOf(hir.Float())), "Vec<Option<f64>>"},
		{"custom", hir.Custom("Point"), "Point"},
		{"typevar", hir.TypeVar("T"), "T"},
		{"function", hir.FunctionOf([]hir.Type{hir.Int()}, hir.Bool()), "fn(i32) -> bool"},
		{"array", hir.Type{Kind: hir.KindArray, Params: []hir.Type{hir.Int()}, Size: 4}, "[i32; 4]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(nil)
			if got := m.Map(tt.ty); got != tt.want {
				t.Errorf("Map(%s) = %q, want %q", tt.ty, got, tt.want)
			}
		})
	}
}

func TestMapSetsNeeds(t *testing.T) {
	needs := &Needs{}
	m := New(needs)

	m.Map(hir.DictOf(hir.Str(), hir.Int()))

	if !needs.HashMap {
		t.Error("dict mapping must set needs.HashMap")
	}

	m.Map(hir.SetOf(hir.Int()))

	if !needs.HashSet {
		t.Error("set mapping must set needs.HashSet")
	}
}

func TestMapUnionWidening(t *testing.T) {
	m := New(nil)

	if got := m.Map(hir.UnionOf(hir.Int(), hir.NoneType())); got != "Option<i32>" {
		t.Errorf("Union[int, None] = %q, want Option<i32>", got)
	}

	needs := &Needs{}
	m = New(needs)

	if got := m.Map(hir.UnionOf(hir.Int(), hir.Str())); got != "i32" {
		t.Errorf("Union[int, str] = %q, want first arm i32", got)
	}

	if !needs.UnionFallback {
		t.Error("non-optional union must flag UnionFallback")
	}
}

func TestMapDatetime(t *testing.T) {
	needs := &Needs{}
	m := New(needs)

	if got := m.Map(hir.Custom("datetime")); got != "chrono::NaiveDateTime" {
		t.Errorf("datetime = %q", got)
	}

	if !needs.Chrono {
		t.Error("datetime mapping must set needs.Chrono")
	}

	nasa := &Needs{}
	m = New(nasa)
	m.NASAMode = true

	if got := m.Map(hir.Custom("datetime")); got != "DepylerDateTime" {
		t.Errorf("NASA datetime = %q", got)
	}

	if nasa.Chrono {
		t.Error("NASA mode must not require chrono")
	}

	if !nasa.DateTimeShims {
		t.Error("NASA mode must request shim types")
	}
}

func TestMapCallable(t *testing.T) {
	m := New(nil)
	ty := hir.GenericOf("Callable", hir.TupleOf(hir.Int(), hir.Int()), hir.Int())

	if got := m.Map(ty); got != "impl Fn(i32, i32) -> i32" {
		t.Errorf("Callable = %q", got)
	}
}

func TestMapParamModes(t *testing.T) {
	m := New(nil)

	// Copy types pass by value.
	if ty, mode := m.MapParam(hir.Int(), false, false); ty != "i32" || mode != ByValue {
		t.Errorf("int param = %q/%v", ty, mode)
	}

	// Non-Copy unmutated passes by reference; strings become &str.
	if ty, mode := m.MapParam(hir.Str(), false, false); ty != "&str" || mode != ByRef {
		t.Errorf("str param = %q/%v", ty, mode)
	}

	if ty, mode := m.MapParam(hir.ListOf(hir.Int()), false, false); ty != "&Vec<i32>" || mode != ByRef {
		t.Errorf("list param = %q/%v", ty, mode)
	}

	// Mutated non-Copy passes by &mut.
	if ty, mode := m.MapParam(hir.ListOf(hir.Int()), true, false); ty != "&mut Vec<i32>" || mode != ByMutRef {
		t.Errorf("mutated list param = %q/%v", ty, mode)
	}

	// Consumed passes by value.
	if ty, mode := m.MapParam(hir.Str(), false, true); ty != "String" || mode != ByValue {
		t.Errorf("consumed str param = %q/%v", ty, mode)
	}
}

func TestIsCopy(t *testing.T) {
	m := New(nil)

	if !m.IsCopy(hir.TupleOf(hir.Int(), hir.Bool())) {
		t.Error("tuple of Copy should be Copy")
	}

	if m.IsCopy(hir.TupleOf(hir.Int(), hir.Str())) {
		t.Error("tuple with String is not Copy")
	}
}
