package astbridge

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depyler-lang/depyler/internal/hir"
	"github.com/depyler-lang/depyler/internal/pyparse"
)

// primitiveTypes maps Python annotation names to HIR primitives.
var primitiveTypes = map[string]hir.Type{
	"int":   hir.Int(),
	"float": hir.Float(),
	"bool":  hir.Bool(),
	"str":   hir.Str(),
	"None":  hir.NoneType(),
	"Any":   hir.Unknown(),
	"bytes": hir.ListOf(hir.Int()),
}

// convertTypeExpr lowers a type annotation node to an HIR type.
func (c *converter) convertTypeExpr(n *sitter.Node) (hir.Type, error) {
	if n == nil {
		return hir.Unknown(), nil
	}

	switch n.Type() {
	case "type":
		return c.convertTypeExpr(firstExprChild(n))

	case "identifier":
		return c.namedType(c.tree.Text(n)), nil

	case "attribute":
		// typing.Optional, datetime.datetime — keyed by the final attribute.
		return c.namedType(c.tree.Text(n.ChildByFieldName("attribute"))), nil

	case "none":
		return hir.NoneType(), nil

	case "string":
		// Forward reference: "Node"
		return hir.Custom(decodePyString(c.tree.Text(n))), nil

	case "integer":
		// Only meaningful as an Array size argument; carried as Custom text
		// and resolved by genericType.
		return hir.Custom(c.tree.Text(n)), nil

	case "subscript":
		base := n.ChildByFieldName("value")

		var args []*sitter.Node

		sub := n.ChildByFieldName("subscript")
		if sub != nil && sub.Type() == "expression_list" {
			args = pyparse.NamedChildren(sub)
		} else if sub != nil {
			args = []*sitter.Node{sub}
		}

		return c.genericType(c.tree.Text(base), args)

	case "generic_type":
		ident := pyparse.FirstChildOfType(n, "identifier")
		if ident == nil {
			ident = pyparse.FirstChildOfType(n, "attribute")
		}

		params := pyparse.FirstChildOfType(n, "type_parameter")

		return c.genericType(c.tree.Text(ident), pyparse.NamedChildren(params))

	case "union_type":
		children := pyparse.NamedChildren(n)

		arms := make([]hir.Type, 0, len(children))
		for _, ch := range children {
			arm, err := c.convertTypeExpr(ch)
			if err != nil {
				return hir.Unknown(), err
			}

			arms = append(arms, arm)
		}

		return hir.UnionOf(arms...).Normalize(), nil

	case "binary_operator":
		// X | Y in expression position (module-level aliases).
		if c.tree.Text(n.ChildByFieldName("operator")) != "|" {
			return hir.Unknown(), c.unsupported(n, n.Type(), "not a type expression")
		}

		left, err := c.convertTypeExpr(n.ChildByFieldName("left"))
		if err != nil {
			return hir.Unknown(), err
		}

		right, err := c.convertTypeExpr(n.ChildByFieldName("right"))
		if err != nil {
			return hir.Unknown(), err
		}

		return hir.UnionOf(left, right).Normalize(), nil

	default:
		return hir.Unknown(), c.unsupported(n, n.Type(), "unsupported type annotation")
	}
}

// namedType resolves a bare annotation name. Single uppercase letters are
// type variables; recognized aliases resolve through the module table.
func (c *converter) namedType(name string) hir.Type {
	if t, ok := primitiveTypes[name]; ok {
		return t
	}

	switch name {
	case "list", "List":
		return hir.ListOf(hir.Unknown())
	case "set", "Set":
		return hir.SetOf(hir.Unknown())
	case "dict", "Dict":
		return hir.DictOf(hir.Unknown(), hir.Unknown())
	case "tuple", "Tuple":
		return hir.TupleOf()
	}

	for _, alias := range c.module.TypeAliases {
		if alias.Name == name {
			return alias.Target
		}
	}

	if isTypeVarName(name) {
		return hir.TypeVar(name)
	}

	return hir.Custom(name)
}

func isTypeVarName(name string) bool {
	return len(name) == 1 && name[0] >= 'A' && name[0] <= 'Z'
}

// genericType lowers Base[args...] annotations.
func (c *converter) genericType(base string, argNodes []*sitter.Node) (hir.Type, error) {
	args := make([]hir.Type, 0, len(argNodes))

	for _, a := range argNodes {
		if a.Type() == "comment" {
			continue
		}

		// Callable's parameter list arrives as a list node.
		if a.Type() == "list" {
			inner := make([]hir.Type, 0, int(a.NamedChildCount()))

			for _, el := range pyparse.NamedChildren(a) {
				t, err := c.convertTypeExpr(el)
				if err != nil {
					return hir.Unknown(), err
				}

				inner = append(inner, t)
			}

			args = append(args, hir.TupleOf(inner...))

			continue
		}

		t, err := c.convertTypeExpr(a)
		if err != nil {
			return hir.Unknown(), err
		}

		args = append(args, t)
	}

	switch base {
	case "list", "List":
		if len(args) == 1 {
			return hir.ListOf(args[0]), nil
		}

	case "set", "Set", "frozenset", "FrozenSet":
		if len(args) == 1 {
			return hir.SetOf(args[0]), nil
		}

	case "dict", "Dict":
		if len(args) == 2 {
			return hir.DictOf(args[0], args[1]), nil
		}

	case "tuple", "Tuple":
		return hir.TupleOf(args...), nil

	case "Optional":
		if len(args) == 1 {
			return hir.OptionalOf(args[0]).Normalize(), nil
		}

	case "Union":
		return hir.UnionOf(args...).Normalize(), nil

	case "Callable":
		if len(args) == 2 && args[0].Kind == hir.KindTuple {
			return hir.FunctionOf(args[0].Params, args[1]), nil
		}

	case "Array":
		// Annotated fixed-size arrays: Array[int, 4]
		if len(args) == 2 && args[1].Kind == hir.KindCustom {
			if size, err := strconv.Atoi(args[1].Name); err == nil {
				return hir.Type{Kind: hir.KindArray, Params: []hir.Type{args[0]}, Size: size}, nil
			}
		}
	}

	return hir.GenericOf(strings.TrimSpace(base), args...), nil
}
