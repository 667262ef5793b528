package hir

import (
	"testing"

	"github.com/depyler-lang/depyler/internal/position"
)

func TestTypeEquals(t *testing.T) {
	tests := []struct {
		name string
		a    Type
		b    Type
		want bool
	}{
		{"int == int", Int(), Int(), true},
		{"int != float", Int(), Float(), false},
		{"list[int] == list[int]", ListOf(Int()), ListOf(Int()), true},
		{"list[int] != list[str]", ListOf(Int()), ListOf(Str()), false},
		{"dict keys matter", DictOf(Str(), Int()), DictOf(Int(), Int()), false},
		{"tuple arity matters", TupleOf(Int(), Int()), TupleOf(Int()), false},
		{"custom by name", Custom("File"), Custom("File"), true},
		{"typevar by name", TypeVar("T"), TypeVar("U"), false},
		{
			"function types",
			FunctionOf([]Type{Int()}, Bool()),
			FunctionOf([]Type{Int()}, Bool()),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equals(tt.b); got != tt.want {
				t.Errorf("Equals(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTypeNormalizeOptionalNeverContainsNone(t *testing.T) {
	got := OptionalOf(NoneType()).Normalize()
	if got.Elem().Kind != KindUnknown {
		t.Errorf("Optional[None].Normalize() = %s, want Optional[Unknown]", got)
	}
}

func TestTypeNormalizeUnionWithNone(t *testing.T) {
	got := UnionOf(Int(), NoneType()).Normalize()
	if got.Kind != KindOptional || got.Elem().Kind != KindInt {
		t.Errorf("Union[int, None].Normalize() = %s, want Optional[int]", got)
	}
}

func TestTypeString(t *testing.T) {
	ty := DictOf(Str(), ListOf(OptionalOf(Int())))
	if got := ty.String(); got != "dict[str, list[Optional[int]]]" {
		t.Errorf("String() = %q", got)
	}
}

func TestWalkStmtsDescends(t *testing.T) {
	span := position.Span{}
	inner := &Assign{Target: AssignTarget{Kind: TargetSymbol, Name: "x"}, Value: NewIntLit(span, 1)}
	tryStmt := &Try{
		Body:     []Stmt{inner},
		Handlers: []ExceptHandler{{Body: []Stmt{&Pass{}}}},
	}
	loop := &While{Cond: NewBoolLit(span, true), Body: []Stmt{tryStmt}}

	var seen int

	WalkStmts([]Stmt{loop}, func(s Stmt) bool {
		seen++

		return true
	})

	// while, try, assign, pass
	if seen != 4 {
		t.Errorf("visited %d statements, want 4", seen)
	}
}

func TestModuleArena(t *testing.T) {
	m := &Module{Name: "m"}

	cid := m.AddClass(&Class{Name: "Point"})
	fid := m.AddFunction(&Function{Name: "norm", Class: cid})
	m.Classes[cid].Methods = append(m.Classes[cid].Methods, fid)

	free := m.AddFunction(&Function{Name: "main", Class: InvalidClass})

	if m.Function(fid).Name != "norm" {
		t.Error("method lookup by id failed")
	}

	if m.Function(FunctionID(99)) != nil {
		t.Error("out-of-range id should be nil")
	}

	tops := m.TopLevelFunctions()
	if len(tops) != 1 || tops[0] != m.Function(free) {
		t.Errorf("TopLevelFunctions = %v", tops)
	}
}
