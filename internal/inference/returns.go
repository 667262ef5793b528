package inference

import (
	"github.com/depyler-lang/depyler/internal/hir"
)

// InferReturn fills in an unannotated return type from the returned
// expressions, using parameter types and simple local bindings as the
// environment. Runs after InferParams so tuple-unpack evidence is typed.
func InferReturn(fn *hir.Function) {
	if fn.RetType.Kind != hir.KindUnknown {
		return
	}

	env := make(map[string]hir.Type, len(fn.Params))
	for _, p := range fn.Params {
		env[p.Name] = p.Type
	}

	result := hir.Unknown()

	hir.WalkStmts(fn.Body, func(s hir.Stmt) bool {
		switch n := s.(type) {
		case *hir.Assign:
			bindAssign(env, n)
		case *hir.Return:
			if n.Value == nil {
				break
			}

			if result.Kind == hir.KindUnknown {
				result = exprType(env, n.Value)
			}
		}

		return true
	})

	if result.Kind != hir.KindUnknown {
		fn.RetType = result
	}
}

// bindAssign records the types simple assignments give to local names.
func bindAssign(env map[string]hir.Type, n *hir.Assign) {
	switch n.Target.Kind {
	case hir.TargetSymbol:
		if n.Annotation != nil {
			env[n.Target.Name] = *n.Annotation

			return
		}

		if n.Value != nil {
			if t := exprType(env, n.Value); t.Kind != hir.KindUnknown {
				env[n.Target.Name] = t
			}
		}
	case hir.TargetTuple:
		if n.Value == nil {
			return
		}

		t := exprType(env, n.Value)
		if t.Kind == hir.KindTuple && len(t.Params) == len(n.Target.Elems) {
			for i, name := range n.Target.Elems {
				env[name] = t.Params[i]
			}
		}
	}
}

// exprType computes a best-effort type for an expression under env. It
// returns Unknown rather than guessing.
func exprType(env map[string]hir.Type, e hir.Expr) hir.Type {
	switch n := e.(type) {
	case *hir.Literal:
		switch n.Kind {
		case hir.LitInt:
			return hir.Int()
		case hir.LitFloat:
			return hir.Float()
		case hir.LitStr:
			return hir.Str()
		case hir.LitBool:
			return hir.Bool()
		default:
			return hir.NoneType()
		}
	case *hir.Var:
		if t, ok := env[n.Name]; ok {
			return t
		}
	case *hir.Binary:
		if n.Op.IsComparison() || n.Op == hir.OpAnd || n.Op == hir.OpOr ||
			n.Op == hir.OpIn || n.Op == hir.OpNotIn {
			return hir.Bool()
		}

		if n.Op == hir.OpDiv {
			return hir.Float()
		}

		if left := exprType(env, n.Left); left.Kind != hir.KindUnknown {
			return left
		}

		return exprType(env, n.Right)
	case *hir.Unary:
		if n.Op == hir.OpNot {
			return hir.Bool()
		}

		return exprType(env, n.Operand)
	case *hir.IfExpr:
		if t := exprType(env, n.Then); t.Kind != hir.KindUnknown {
			return t
		}

		return exprType(env, n.Else)
	case *hir.Call:
		switch n.Func {
		case "len", "int", "abs", "sum":
			return hir.Int()
		case "float":
			return hir.Float()
		case "str":
			return hir.Str()
		case "bool":
			return hir.Bool()
		}
	case *hir.FString:
		return hir.Str()
	case *hir.Index:
		if base := exprType(env, n.Base); base.Kind == hir.KindList {
			return base.Elem()
		} else if base.Kind == hir.KindDict && len(base.Params) == 2 {
			return base.Params[1]
		} else if base.Kind == hir.KindString {
			return hir.Str()
		}
	case *hir.SliceExpr:
		return exprType(env, n.Base)
	case *hir.ListLit:
		if len(n.Elems) > 0 {
			return hir.ListOf(exprType(env, n.Elems[0]))
		}
	case *hir.TupleLit:
		parts := make([]hir.Type, len(n.Elems))
		for i, el := range n.Elems {
			parts[i] = exprType(env, el)
		}

		return hir.TupleOf(parts...)
	case *hir.ListComp:
		return hir.ListOf(hir.Unknown())
	case *hir.MethodCall:
		if recv := exprType(env, n.Object); recv.Kind == hir.KindString {
			switch n.Method {
			case "upper", "lower", "strip", "lstrip", "rstrip", "replace", "join":
				return hir.Str()
			case "startswith", "endswith", "isdigit", "isalpha":
				return hir.Bool()
			case "split":
				return hir.ListOf(hir.Str())
			case "find":
				return hir.Int()
			}
		}
	}

	return hir.Unknown()
}
