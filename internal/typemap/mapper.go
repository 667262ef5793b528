// Package typemap maps HIR types to Rust type syntax and tracks the
// imports and helper shims the emitted module will need.
package typemap

import (
	"fmt"
	"strings"

	"github.com/depyler-lang/depyler/internal/hir"
)

// Needs accumulates module-level requirements discovered during mapping and
// code generation. It lives on the code-gen context; never global.
type Needs struct {
	HashMap    bool
	HashSet    bool
	Chrono     bool
	SerdeJson  bool
	FlooredDiv bool
	PyModulo   bool
	ErrorTrait bool
	Regex      bool
	// UnionFallback marks that a Union was widened to its first arm; the
	// module generator surfaces a TODO comment for it.
	UnionFallback bool
	// DateTimeShims requests the internal DepylerDateTime family instead
	// of chrono (NASA mode).
	DateTimeShims bool
}

// Merge folds another Needs into this one.
func (n *Needs) Merge(other Needs) {
	n.HashMap = n.HashMap || other.HashMap
	n.HashSet = n.HashSet || other.HashSet
	n.Chrono = n.Chrono || other.Chrono
	n.SerdeJson = n.SerdeJson || other.SerdeJson
	n.FlooredDiv = n.FlooredDiv || other.FlooredDiv
	n.PyModulo = n.PyModulo || other.PyModulo
	n.ErrorTrait = n.ErrorTrait || other.ErrorTrait
	n.Regex = n.Regex || other.Regex
	n.UnionFallback = n.UnionFallback || other.UnionFallback
	n.DateTimeShims = n.DateTimeShims || other.DateTimeShims
}

// Mapper converts HIR types to Rust. The zero value is not usable; use New.
type Mapper struct {
	Needs *Needs
	// IntType is the Rust integer type used for Int when no overflow
	// evidence widens it. Defaults to i32.
	IntType string
	// NASAMode substitutes internal datetime shims for chrono.
	NASAMode bool
}

// New constructs a Mapper with default configuration.
func New(needs *Needs) *Mapper {
	if needs == nil {
		needs = &Needs{}
	}

	return &Mapper{Needs: needs, IntType: "i32"}
}

// datetime type names recognized from Python's datetime module.
var datetimeTypes = map[string][2]string{
	"datetime":  {"chrono::NaiveDateTime", "DepylerDateTime"},
	"date":      {"chrono::NaiveDate", "DepylerDate"},
	"timedelta": {"chrono::Duration", "DepylerTimeDelta"},
}

// Map renders a type in owned position. The mapping is total: Unknown maps
// to `_`, which is only legal where Rust accepts inference; callers that
// need a nameable type must resolve Unknown first.
func (m *Mapper) Map(t hir.Type) string {
	switch t.Kind {
	case hir.KindInt:
		return m.IntType
	case hir.KindFloat:
		return "f64"
	case hir.KindBool:
		return "bool"
	case hir.KindString:
		return "String"
	case hir.KindNone:
		return "()"
	case hir.KindUnknown:
		return "_"
	case hir.KindList:
		return "Vec<" + m.Map(t.Elem()) + ">"
	case hir.KindSet:
		m.Needs.HashSet = true

		return "HashSet<" + m.Map(t.Elem()) + ">"
	case hir.KindDict:
		m.Needs.HashMap = true

		if len(t.Params) == 2 {
			return "HashMap<" + m.Map(t.Params[0]) + ", " + m.Map(t.Params[1]) + ">"
		}

		return "HashMap<_, _>"
	case hir.KindTuple:
		if len(t.Params) == 0 {
			return "()"
		}

		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = m.Map(p)
		}

		return "(" + strings.Join(parts, ", ") + ")"
	case hir.KindOptional:
		return "Option<" + m.Map(t.Elem()) + ">"
	case hir.KindUnion:
		return m.mapUnion(t)
	case hir.KindTypeVar:
		return t.Name
	case hir.KindGeneric:
		return m.mapGeneric(t)
	case hir.KindArray:
		return fmt.Sprintf("[%s; %d]", m.Map(t.Elem()), t.Size)
	case hir.KindFunction:
		return m.mapFunction(t)
	case hir.KindCustom:
		return m.mapCustom(t.Name)
	default:
		return "_"
	}
}

// mapUnion widens unions: [T, None] becomes Option<T>; anything else
// collapses to the first non-None arm with a module-level TODO note.
func (m *Mapper) mapUnion(t hir.Type) string {
	norm := t.Normalize()
	if norm.Kind == hir.KindOptional {
		return "Option<" + m.Map(norm.Elem()) + ">"
	}

	for _, arm := range norm.Params {
		if arm.Kind != hir.KindNone {
			m.Needs.UnionFallback = true

			return m.Map(arm)
		}
	}

	return "()"
}

func (m *Mapper) mapGeneric(t hir.Type) string {
	if t.Name == "Callable" && len(t.Params) == 2 && t.Params[0].Kind == hir.KindTuple {
		args := make([]string, len(t.Params[0].Params))
		for i, p := range t.Params[0].Params {
			args[i] = m.Map(p)
		}

		return "impl Fn(" + strings.Join(args, ", ") + ") -> " + m.Map(t.Params[1])
	}

	args := make([]string, len(t.Params))
	for i, p := range t.Params {
		args[i] = m.Map(p)
	}

	return m.mapCustom(t.Name) + "<" + strings.Join(args, ", ") + ">"
}

func (m *Mapper) mapFunction(t hir.Type) string {
	args := make([]string, len(t.Params))
	for i, p := range t.Params {
		args[i] = m.Map(p)
	}

	ret := "()"
	if t.Ret != nil {
		ret = m.Map(*t.Ret)
	}

	return "fn(" + strings.Join(args, ", ") + ") -> " + ret
}

func (m *Mapper) mapCustom(name string) string {
	if pair, ok := datetimeTypes[name]; ok {
		if m.NASAMode {
			m.Needs.DateTimeShims = true

			return pair[1]
		}

		m.Needs.Chrono = true

		return pair[0]
	}

	if name == "serde_json::Value" {
		m.Needs.SerdeJson = true
	}

	if name == "File" {
		return "std::fs::File"
	}

	return name
}

// IsCopy reports whether the mapped Rust type is Copy, which decides
// pass-by-value against pass-by-reference for parameters.
func (m *Mapper) IsCopy(t hir.Type) bool {
	switch t.Kind {
	case hir.KindInt, hir.KindFloat, hir.KindBool, hir.KindNone:
		return true
	case hir.KindTuple:
		for _, p := range t.Params {
			if !m.IsCopy(p) {
				return false
			}
		}

		return true
	case hir.KindOptional:
		return m.IsCopy(t.Elem())
	default:
		return false
	}
}

// ParamMode describes how a parameter is passed.
type ParamMode int

const (
	ByValue ParamMode = iota
	ByRef
	ByValueMut
	ByMutRef
)

// MapParam decides the parameter rendering. Non-Copy types pass by
// reference unless the body mutates or consumes them.
func (m *Mapper) MapParam(t hir.Type, mutated, consumed bool) (string, ParamMode) {
	base := m.Map(t)

	if m.IsCopy(t) {
		if mutated {
			return base, ByValueMut
		}

		return base, ByValue
	}

	switch {
	case consumed:
		if mutated {
			return base, ByValueMut
		}

		return base, ByValue
	case mutated:
		return "&mut " + base, ByMutRef
	default:
		if t.Kind == hir.KindString {
			return "&str", ByRef
		}

		return "&" + base, ByRef
	}
}
