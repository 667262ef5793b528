package hir

// WalkExpr calls fn for e and every subexpression in source order. fn
// returning false prunes the subtree.
func WalkExpr(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}

	switch n := e.(type) {
	case *Binary:
		WalkExpr(n.Left, fn)
		WalkExpr(n.Right, fn)
	case *Unary:
		WalkExpr(n.Operand, fn)
	case *Call:
		for _, a := range n.Args {
			WalkExpr(a, fn)
		}

		for _, v := range n.Kwargs {
			WalkExpr(v, fn)
		}
	case *MethodCall:
		WalkExpr(n.Object, fn)

		for _, a := range n.Args {
			WalkExpr(a, fn)
		}

		for _, v := range n.Kwargs {
			WalkExpr(v, fn)
		}
	case *Index:
		WalkExpr(n.Base, fn)
		WalkExpr(n.Idx, fn)
	case *SliceExpr:
		WalkExpr(n.Base, fn)
		WalkExpr(n.Start, fn)
		WalkExpr(n.Stop, fn)
		WalkExpr(n.Step, fn)
	case *Attribute:
		WalkExpr(n.Value, fn)
	case *ListLit:
		for _, el := range n.Elems {
			WalkExpr(el, fn)
		}
	case *SetLit:
		for _, el := range n.Elems {
			WalkExpr(el, fn)
		}
	case *FrozenSetLit:
		for _, el := range n.Elems {
			WalkExpr(el, fn)
		}
	case *TupleLit:
		for _, el := range n.Elems {
			WalkExpr(el, fn)
		}
	case *DictLit:
		for i := range n.Keys {
			WalkExpr(n.Keys[i], fn)
			WalkExpr(n.Values[i], fn)
		}
	case *ListComp:
		WalkExpr(n.Element, fn)
		walkGenerators(n.Generators, fn)
	case *SetComp:
		WalkExpr(n.Element, fn)
		walkGenerators(n.Generators, fn)
	case *GeneratorExp:
		WalkExpr(n.Element, fn)
		walkGenerators(n.Generators, fn)
	case *DictComp:
		WalkExpr(n.Key, fn)
		WalkExpr(n.Value, fn)
		walkGenerators(n.Generators, fn)
	case *Lambda:
		WalkExpr(n.Body, fn)
	case *IfExpr:
		WalkExpr(n.Then, fn)
		WalkExpr(n.Cond, fn)
		WalkExpr(n.Else, fn)
	case *Await:
		WalkExpr(n.Value, fn)
	case *FString:
		for _, p := range n.Parts {
			if p.Expr != nil {
				WalkExpr(p.Expr, fn)
			}
		}
	case *Borrow:
		WalkExpr(n.Inner, fn)
	}
}

func walkGenerators(gens []Comprehension, fn func(Expr) bool) {
	for _, g := range gens {
		WalkExpr(g.Iter, fn)

		for _, c := range g.Conditions {
			WalkExpr(c, fn)
		}
	}
}

// StmtExprs returns the expressions directly owned by a statement, in
// source order, without descending into nested statement bodies.
func StmtExprs(s Stmt) []Expr {
	switch n := s.(type) {
	case *Assign:
		out := []Expr{}

		if n.Target.Base != nil {
			out = append(out, n.Target.Base, n.Target.Idx)
		}

		if n.Target.Value != nil {
			out = append(out, n.Target.Value)
		}

		return append(out, n.Value)
	case *Return:
		if n.Value != nil {
			return []Expr{n.Value}
		}
	case *If:
		return []Expr{n.Cond}
	case *While:
		return []Expr{n.Cond}
	case *For:
		return []Expr{n.Iter}
	case *With:
		return []Expr{n.Context}
	case *Raise:
		out := []Expr{}

		if n.Exception != nil {
			out = append(out, n.Exception)
		}

		if n.Cause != nil {
			out = append(out, n.Cause)
		}

		return out
	case *Assert:
		out := []Expr{n.Test}
		if n.Msg != nil {
			out = append(out, n.Msg)
		}

		return out
	case *ExprStmt:
		return []Expr{n.Value}
	}

	return nil
}
