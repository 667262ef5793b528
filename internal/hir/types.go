// Package hir defines the High-level Intermediate Representation (HIR) for
// the Depyler transpiler. HIR is a typed, language-neutral program model
// sitting between the Python AST and Rust emission. It preserves high-level
// constructs (comprehensions, f-strings, try/except) so the code generator
// can pick semantics-preserving Rust shapes for them.
package hir

import (
	"fmt"
	"strings"
)

// TypeKind discriminates the variants of Type.
type TypeKind int

const (
	KindUnknown TypeKind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindNone
	KindList
	KindSet
	KindDict
	KindTuple
	KindOptional
	KindUnion
	KindTypeVar
	KindGeneric
	KindArray
	KindFunction
	KindCustom
)

// Type is the HIR type model. A single struct with a Kind tag keeps equality
// and copying cheap; kind-specific payload lives in Name/Params/Ret/Size.
//
//   - KindList/KindSet/KindOptional: Params[0] is the element type.
//   - KindDict: Params[0] is the key, Params[1] the value.
//   - KindTuple/KindUnion: Params are the arms in order.
//   - KindTypeVar/KindCustom: Name holds the identifier.
//   - KindGeneric: Name is the base, Params the type arguments.
//   - KindArray: Params[0] is the element type, Size the length.
//   - KindFunction: Params are the parameter types, Ret the return type.
type Type struct {
	Ret    *Type
	Name   string
	Params []Type
	Size   int
	Kind   TypeKind
}

// Constructors for the common shapes.

func Int() Type                { return Type{Kind: KindInt} }
func Float() Type              { return Type{Kind: KindFloat} }
func Bool() Type               { return Type{Kind: KindBool} }
func Str() Type                { return Type{Kind: KindString} }
func NoneType() Type           { return Type{Kind: KindNone} }
func Unknown() Type            { return Type{Kind: KindUnknown} }
func ListOf(elem Type) Type    { return Type{Kind: KindList, Params: []Type{elem}} }
func SetOf(elem Type) Type     { return Type{Kind: KindSet, Params: []Type{elem}} }
func OptionalOf(t Type) Type   { return Type{Kind: KindOptional, Params: []Type{t}} }
func TypeVar(name string) Type { return Type{Kind: KindTypeVar, Name: name} }
func Custom(name string) Type  { return Type{Kind: KindCustom, Name: name} }

func DictOf(key, value Type) Type {
	return Type{Kind: KindDict, Params: []Type{key, value}}
}

func TupleOf(elems ...Type) Type {
	return Type{Kind: KindTuple, Params: elems}
}

func UnionOf(arms ...Type) Type {
	return Type{Kind: KindUnion, Params: arms}
}

func GenericOf(base string, params ...Type) Type {
	return Type{Kind: KindGeneric, Name: base, Params: params}
}

func FunctionOf(params []Type, ret Type) Type {
	return Type{Kind: KindFunction, Params: params, Ret: &ret}
}

// IsUnknown reports whether the type is still unresolved.
func (t Type) IsUnknown() bool { return t.Kind == KindUnknown }

// IsNumeric reports whether the type is Int or Float.
func (t Type) IsNumeric() bool { return t.Kind == KindInt || t.Kind == KindFloat }

// IsContainer reports whether the type is a List, Set, Dict or Tuple.
func (t Type) IsContainer() bool {
	switch t.Kind {
	case KindList, KindSet, KindDict, KindTuple:
		return true
	default:
		return false
	}
}

// Elem returns the element type of a List, Set, Optional or Array.
// For every other kind it returns Unknown.
func (t Type) Elem() Type {
	switch t.Kind {
	case KindList, KindSet, KindOptional, KindArray:
		if len(t.Params) > 0 {
			return t.Params[0]
		}
	}

	return Unknown()
}

// Equals reports structural type equality.
func (t Type) Equals(other Type) bool {
	if t.Kind != other.Kind || t.Name != other.Name || t.Size != other.Size {
		return false
	}

	if len(t.Params) != len(other.Params) {
		return false
	}

	for i := range t.Params {
		if !t.Params[i].Equals(other.Params[i]) {
			return false
		}
	}

	if (t.Ret == nil) != (other.Ret == nil) {
		return false
	}

	if t.Ret != nil && !t.Ret.Equals(*other.Ret) {
		return false
	}

	return true
}

// String renders the type in Python-ish surface syntax, for diagnostics.
func (t Type) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "str"
	case KindNone:
		return "None"
	case KindUnknown:
		return "Unknown"
	case KindList:
		return "list[" + t.Elem().String() + "]"
	case KindSet:
		return "set[" + t.Elem().String() + "]"
	case KindDict:
		if len(t.Params) == 2 {
			return "dict[" + t.Params[0].String() + ", " + t.Params[1].String() + "]"
		}

		return "dict"
	case KindTuple:
		return "tuple[" + joinTypes(t.Params) + "]"
	case KindOptional:
		return "Optional[" + t.Elem().String() + "]"
	case KindUnion:
		return "Union[" + joinTypes(t.Params) + "]"
	case KindTypeVar:
		return t.Name
	case KindGeneric:
		return t.Name + "[" + joinTypes(t.Params) + "]"
	case KindArray:
		return fmt.Sprintf("array[%s; %d]", t.Elem().String(), t.Size)
	case KindFunction:
		ret := "None"
		if t.Ret != nil {
			ret = t.Ret.String()
		}

		return "Callable[[" + joinTypes(t.Params) + "], " + ret + "]"
	case KindCustom:
		return t.Name
	default:
		return "<?>"
	}
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, p := range ts {
		parts[i] = p.String()
	}

	return strings.Join(parts, ", ")
}

// Normalize enforces the Optional invariant: Optional(T) never contains None,
// and Union collapsing follows the type-mapper widening rules upstream of it.
// Optional(None) degenerates to Optional(Unknown).
func (t Type) Normalize() Type {
	switch t.Kind {
	case KindOptional:
		inner := t.Elem().Normalize()
		if inner.Kind == KindNone {
			inner = Unknown()
		}

		return OptionalOf(inner)
	case KindUnion:
		arms := make([]Type, 0, len(t.Params))

		hasNone := false
		for _, a := range t.Params {
			a = a.Normalize()
			if a.Kind == KindNone {
				hasNone = true
				continue
			}

			arms = append(arms, a)
		}

		if hasNone && len(arms) == 1 {
			return OptionalOf(arms[0])
		}

		if hasNone {
			arms = append(arms, NoneType())
		}

		return Type{Kind: KindUnion, Params: arms}
	default:
		out := t
		if len(t.Params) > 0 {
			out.Params = make([]Type, len(t.Params))
			for i, p := range t.Params {
				out.Params[i] = p.Normalize()
			}
		}

		return out
	}
}
