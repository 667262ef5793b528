// Package inference enriches HIR in place: parameter types recovered from
// body usage patterns, and generic type parameters with trait bounds
// derived from how values are used.
package inference

import (
	"strings"

	"github.com/depyler-lang/depyler/internal/hir"
)

// jsonValueType is the default value type for dicts recognized by string
// indexing. Leaks a serialization dependency into general code; kept for
// compatibility with the established output shape.
var jsonValueType = hir.Custom("serde_json::Value")

// InferParams fills in each parameter whose type is Unknown by scanning the
// function body for usage patterns. Parameters that stay Unknown are left
// for generic inference to absorb.
func InferParams(fn *hir.Function) {
	for i := range fn.Params {
		if !fn.Params[i].Type.IsUnknown() {
			continue
		}

		if t, ok := inferParam(fn, fn.Params[i].Name); ok {
			fn.Params[i].Type = t
		}
	}
}

// inferParam scans statements depth-first in source order. Within one
// statement the patterns are checked in priority order; the first
// conclusive match wins and no reconciliation is attempted.
func inferParam(fn *hir.Function, name string) (hir.Type, bool) {
	var (
		found hir.Type
		ok    bool
	)

	hir.WalkStmts(fn.Body, func(s hir.Stmt) bool {
		if ok {
			return false
		}

		if t, hit := matchStmt(s, name); hit {
			found, ok = t, true

			return false
		}

		return true
	})

	return found, ok
}

// matchStmt applies the ordered pattern list to a single statement.
func matchStmt(s hir.Stmt, name string) (hir.Type, bool) {
	// Pattern 1: tuple unpacking `a, b, c = p`.
	if assign, isAssign := s.(*hir.Assign); isAssign {
		if assign.Target.Kind == hir.TargetTuple {
			if v, isVar := assign.Value.(*hir.Var); isVar && v.Name == name {
				elems := make([]hir.Type, len(assign.Target.Elems))
				for i := range elems {
					elems[i] = hir.Str()
				}

				return hir.TupleOf(elems...), true
			}
		}
	}

	type hit struct {
		ty       hir.Type
		priority int
	}

	best := hit{priority: 99}

	record := func(priority int, ty hir.Type) {
		if priority < best.priority {
			best = hit{ty: ty, priority: priority}
		}
	}

	for _, root := range hir.StmtExprs(s) {
		hir.WalkExpr(root, func(e hir.Expr) bool {
			switch n := e.(type) {
			case *hir.Call:
				// Pattern 2: parameter called as a function.
				if n.Func == name {
					record(2, hir.GenericOf("Callable", hir.TupleOf(intTimes(len(n.Args))...), hir.Int()))

					return true
				}

				// Pattern 3: print/println argument.
				if n.Func == "print" || n.Func == "println" {
					for _, a := range n.Args {
						if isVar(a, name) {
							record(3, hir.Str())
						}
					}
				}

			case *hir.MethodCall:
				matchMethodCall(n, name, record)

			case *hir.FString:
				// Pattern 8: f-string interpolation.
				for _, p := range n.Parts {
					if p.Expr != nil && isVar(p.Expr, name) {
						record(8, hir.Str())
					}
				}

			case *hir.Index:
				// Pattern 9: indexing p[k].
				if isVar(n.Base, name) {
					if isStringKey(n.Idx) {
						record(9, hir.DictOf(hir.Str(), jsonValueType))
					} else {
						record(9, hir.ListOf(hir.Int()))
					}
				}

			case *hir.SliceExpr:
				// Pattern 10: slicing the parameter.
				if isVar(n.Base, name) {
					record(10, hir.Str())
				}

			case *hir.Binary:
				matchBinary(n, name, record)

			case *hir.ListComp:
				matchComprehensions(n.Generators, name, record)
			case *hir.SetComp:
				matchComprehensions(n.Generators, name, record)
			case *hir.GeneratorExp:
				matchComprehensions(n.Generators, name, record)
			}

			return true
		})
	}

	if best.priority < 99 {
		return best.ty, true
	}

	return hir.Unknown(), false
}

func matchMethodCall(n *hir.MethodCall, name string, record func(int, hir.Type)) {
	obj, objIsVar := n.Object.(*hir.Var)

	// Pattern 4: re./regex. first two positional args.
	if objIsVar && (obj.Name == "re" || obj.Name == "regex") {
		for i, a := range n.Args {
			if i > 1 {
				break
			}

			if isVar(a, name) {
				record(4, hir.Str())
			}
		}
	}

	// Pattern 5: subprocess.run(..., cwd=p).
	if objIsVar && obj.Name == "subprocess" && n.Method == "run" {
		if cwd, ok := n.Kwargs["cwd"]; ok && isVar(cwd, name) {
			record(5, hir.Str())
		}
	}

	// Pattern 6: method called on the parameter itself.
	if objIsVar && obj.Name == name {
		switch {
		case fileMethods[n.Method]:
			record(6, hir.Custom("File"))
		case stringMethods[n.Method]:
			record(6, hir.Str())
		case dictMethods[n.Method]:
			record(6, hir.DictOf(hir.Str(), hir.Str()))
		}
	}

	// Pattern 7: module functions taking the parameter.
	if objIsVar && obj.Name == "datetime" && n.Method == "fromtimestamp" {
		if len(n.Args) > 0 && isVar(n.Args[0], name) {
			record(7, hir.Float())
		}
	}

	// Pattern 7 also covers regex module calls at any argument position,
	// not just the two pattern-4 slots.
	if objIsVar && (obj.Name == "re" || obj.Name == "regex") {
		for _, a := range n.Args {
			if isVar(a, name) {
				record(7, hir.Str())
			}
		}
	}
}

func matchBinary(n *hir.Binary, name string, record func(int, hir.Type)) {
	left := isVar(n.Left, name)
	right := isVar(n.Right, name)

	if !left && !right {
		return
	}

	switch {
	case n.Op == hir.OpEq || n.Op == hir.OpNotEq:
		// Pattern 11a: equality against a string literal.
		other := n.Right
		if right {
			other = n.Left
		}

		if lit, ok := other.(*hir.Literal); ok && lit.Kind == hir.LitStr {
			record(11, hir.Str())
		}

	case n.Op == hir.OpAnd || n.Op == hir.OpOr:
		record(11, hir.Bool())

	case n.Op == hir.OpIn || n.Op == hir.OpNotIn:
		record(11, hir.Str())

	case n.Op.IsArithmetic():
		record(11, hir.Int())
	}
}

// matchComprehensions handles pattern 12: iterating the parameter treats it
// as an iterable of characters by default.
func matchComprehensions(gens []hir.Comprehension, name string, record func(int, hir.Type)) {
	for _, g := range gens {
		if isVar(g.Iter, name) {
			record(12, hir.Str())
		}
	}
}

func isVar(e hir.Expr, name string) bool {
	v, ok := e.(*hir.Var)

	return ok && v.Name == name
}

// isStringKey recognizes keys that indicate a string-keyed mapping: string
// literals, f-strings, and variables conventionally named key/k/*_key.
func isStringKey(e hir.Expr) bool {
	switch n := e.(type) {
	case *hir.Literal:
		return n.Kind == hir.LitStr
	case *hir.FString:
		return true
	case *hir.Var:
		return n.Name == "key" || n.Name == "k" || strings.HasSuffix(n.Name, "_key")
	default:
		return false
	}
}

func intTimes(n int) []hir.Type {
	out := make([]hir.Type, n)
	for i := range out {
		out[i] = hir.Int()
	}

	return out
}

var fileMethods = map[string]bool{
	"read":       true,
	"readline":   true,
	"readlines":  true,
	"write":      true,
	"writelines": true,
	"close":      true,
	"seek":       true,
	"tell":       true,
	"flush":      true,
}

var stringMethods = map[string]bool{
	"strip":      true,
	"lstrip":     true,
	"rstrip":     true,
	"upper":      true,
	"lower":      true,
	"title":      true,
	"capitalize": true,
	"split":      true,
	"rsplit":     true,
	"splitlines": true,
	"join":       true,
	"replace":    true,
	"startswith": true,
	"endswith":   true,
	"find":       true,
	"rfind":      true,
	"encode":     true,
	"format":     true,
	"zfill":      true,
	"isdigit":    true,
	"isalpha":    true,
}

var dictMethods = map[string]bool{
	"get":        true,
	"items":      true,
	"keys":       true,
	"values":     true,
	"setdefault": true,
	"update":     true,
}
