package inference

import (
	"sort"

	"github.com/depyler-lang/depyler/internal/hir"
)

// Synthetic marker bounds. They capture usage evidence that has no direct
// trait equivalent; emission decides whether to map or drop them.
const (
	BoundHasLen  = "HasLen"
	BoundVecLike = "VecLike"
)

// GenericInfo is the result of generic inference for one function.
type GenericInfo struct {
	// TypeParams are the inferred type variables, sorted.
	TypeParams []string
	// Bounds maps each type variable to its deduplicated, sorted bounds.
	Bounds map[string][]string
}

// IsGeneric reports whether any type parameters were found.
func (g GenericInfo) IsGeneric() bool { return len(g.TypeParams) > 0 }

// InferGenerics runs the two-pass generic inference: collect type
// variables from the signature, then derive trait bounds from body usage.
// Every type variable carries Clone as a default bound.
func InferGenerics(fn *hir.Function) GenericInfo {
	vars := collectTypeVars(fn)
	if len(vars) == 0 {
		return GenericInfo{}
	}

	bounds := make(map[string]map[string]bool, len(vars))
	for v := range vars {
		bounds[v] = map[string]bool{"Clone": true}
	}

	// Map parameter names to their type variable, for usage scanning.
	paramVar := make(map[string]string)

	for _, p := range fn.Params {
		if v, ok := typeVarOf(p.Type); ok {
			paramVar[p.Name] = v
		}
	}

	deriveBounds(fn.Body, paramVar, bounds)

	info := GenericInfo{
		TypeParams: make([]string, 0, len(vars)),
		Bounds:     make(map[string][]string, len(vars)),
	}

	for v := range vars {
		info.TypeParams = append(info.TypeParams, v)
	}

	sort.Strings(info.TypeParams)

	for v, set := range bounds {
		list := make([]string, 0, len(set))
		for b := range set {
			list = append(list, b)
		}

		sort.Strings(list)
		info.Bounds[v] = list
	}

	return info
}

// collectTypeVars scans parameter types and the return type for type
// variables: explicit TypeVar nodes and single uppercase letters.
func collectTypeVars(fn *hir.Function) map[string]bool {
	vars := make(map[string]bool)

	var scan func(t hir.Type)
	scan = func(t hir.Type) {
		switch t.Kind {
		case hir.KindTypeVar:
			vars[t.Name] = true
		case hir.KindCustom:
			if len(t.Name) == 1 && t.Name[0] >= 'A' && t.Name[0] <= 'Z' {
				vars[t.Name] = true
			}
		}

		for _, p := range t.Params {
			scan(p)
		}

		if t.Ret != nil {
			scan(*t.Ret)
		}
	}

	for _, p := range fn.Params {
		scan(p.Type)
	}

	scan(fn.RetType)

	return vars
}

// typeVarOf returns the type variable name if the type is (or directly
// wraps) a type variable.
func typeVarOf(t hir.Type) (string, bool) {
	switch t.Kind {
	case hir.KindTypeVar:
		return t.Name, true
	case hir.KindCustom:
		if len(t.Name) == 1 && t.Name[0] >= 'A' && t.Name[0] <= 'Z' {
			return t.Name, true
		}
	}

	return "", false
}

var arithmeticBounds = map[hir.BinOp]string{
	hir.OpAdd: "std::ops::Add",
	hir.OpSub: "std::ops::Sub",
	hir.OpMul: "std::ops::Mul",
	hir.OpDiv: "std::ops::Div",
}

func deriveBounds(body []hir.Stmt, paramVar map[string]string, bounds map[string]map[string]bool) {
	addBound := func(e hir.Expr, bound string) {
		v, ok := e.(*hir.Var)
		if !ok {
			return
		}

		tv, ok := paramVar[v.Name]
		if !ok {
			return
		}

		bounds[tv][bound] = true
	}

	hir.WalkStmts(body, func(s hir.Stmt) bool {
		for _, root := range hir.StmtExprs(s) {
			hir.WalkExpr(root, func(e hir.Expr) bool {
				switch n := e.(type) {
				case *hir.Binary:
					if b, ok := arithmeticBounds[n.Op]; ok {
						addBound(n.Left, b)
						addBound(n.Right, b)
					}

					if n.Op == hir.OpEq || n.Op == hir.OpNotEq {
						addBound(n.Left, "PartialEq")
						addBound(n.Right, "PartialEq")
					}

					if n.Op == hir.OpLt || n.Op == hir.OpLtEq || n.Op == hir.OpGt || n.Op == hir.OpGtEq {
						addBound(n.Left, "PartialOrd")
						addBound(n.Right, "PartialOrd")
					}

				case *hir.MethodCall:
					switch n.Method {
					case "len", "__len__":
						addBound(n.Object, BoundHasLen)
					case "push", "pop", "append":
						addBound(n.Object, BoundVecLike)
					case "clone", "copy":
						addBound(n.Object, "Clone")
					}

				case *hir.Call:
					if n.Func == "len" && len(n.Args) == 1 {
						addBound(n.Args[0], BoundHasLen)
					}
				}

				return true
			})
		}

		return true
	})
}
