package astbridge

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depyler-lang/depyler/internal/hir"
	"github.com/depyler-lang/depyler/internal/position"
	"github.com/depyler-lang/depyler/internal/pyparse"
)

// convertBody lowers a statement list.
func (c *converter) convertBody(nodes []*sitter.Node, fn *hir.Function) ([]hir.Stmt, error) {
	out := make([]hir.Stmt, 0, len(nodes))

	for _, n := range nodes {
		stmt, err := c.convertStmt(n, fn)
		if err != nil {
			return nil, err
		}

		if stmt != nil {
			out = append(out, stmt)
		}
	}

	return out, nil
}

func (c *converter) convertStmt(n *sitter.Node, fn *hir.Function) (hir.Stmt, error) {
	switch n.Type() {
	case "comment":
		return nil, nil

	case "expression_statement":
		return c.convertExprStmt(n, fn)

	case "return_statement":
		ret := &hir.Return{}
		setStmtSpan(ret, c, n)

		if v := firstExprChild(n); v != nil {
			value, err := c.convertExpr(v)
			if err != nil {
				return nil, err
			}

			ret.Value = value
		}

		return ret, nil

	case "if_statement":
		return c.convertIf(n, fn)

	case "while_statement":
		cond, err := c.convertExpr(n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}

		body, err := c.convertBody(pyparse.NamedChildren(n.ChildByFieldName("body")), fn)
		if err != nil {
			return nil, err
		}

		w := &hir.While{Cond: cond, Body: body}
		setStmtSpan(w, c, n)

		return w, nil

	case "for_statement":
		return c.convertFor(n, fn)

	case "break_statement":
		b := &hir.Break{}
		setStmtSpan(b, c, n)

		return b, nil

	case "continue_statement":
		ct := &hir.Continue{}
		setStmtSpan(ct, c, n)

		return ct, nil

	case "with_statement":
		return c.convertWith(n, fn)

	case "try_statement":
		return c.convertTry(n, fn)

	case "raise_statement":
		return c.convertRaise(n)

	case "assert_statement":
		return c.convertAssert(n)

	case "pass_statement":
		p := &hir.Pass{}
		setStmtSpan(p, c, n)

		return p, nil

	case "function_definition":
		fid, err := c.convertFunction(n, nil, hir.InvalidClass)
		if err != nil {
			return nil, err
		}

		def := &hir.FunctionDef{Def: c.module.Function(fid)}
		setStmtSpan(def, c, n)

		return def, nil

	case "global_statement", "nonlocal_statement":
		return nil, c.unsupported(n, n.Type(), "scope declarations are not supported")

	case "delete_statement":
		return nil, c.unsupported(n, "del", "del statements are not supported")

	case "import_statement", "import_from_statement":
		return nil, c.unsupported(n, "import", "imports are only allowed at module scope")

	default:
		return nil, c.unsupported(n, n.Type(), "unsupported statement")
	}
}

// convertExprStmt lowers expression statements: assignments, augmented
// assignments, and effectful expressions.
func (c *converter) convertExprStmt(n *sitter.Node, fn *hir.Function) (hir.Stmt, error) {
	inner := n.NamedChild(0)
	if inner == nil {
		return nil, c.loweringErr(n, "empty expression statement")
	}

	switch inner.Type() {
	case "assignment":
		return c.convertAssignment(inner)

	case "augmented_assignment":
		return c.convertAugmented(inner)

	case "yield":
		if !fn.Properties.IsGenerator {
			return nil, c.unsupported(inner, "yield", "generators are not supported in this backend")
		}

		return nil, c.unsupported(inner, "yield", "generator backend is not enabled")

	default:
		value, err := c.convertExpr(inner)
		if err != nil {
			return nil, err
		}

		es := &hir.ExprStmt{Value: value}
		setStmtSpan(es, c, n)

		return es, nil
	}
}

func (c *converter) convertAssignment(n *sitter.Node) (hir.Stmt, error) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	tyNode := n.ChildByFieldName("type")

	if right == nil {
		// Bare annotation (`x: int`) declares without assigning; lowered to
		// nothing — the first real assignment introduces the binding.
		return nil, nil
	}

	if right.Type() == "assignment" {
		return nil, c.unsupported(n, "chained assignment", "a = b = value is not supported")
	}

	target, err := c.convertTarget(left, right)
	if err != nil {
		return nil, err
	}

	value, err := c.convertExpr(right)
	if err != nil {
		return nil, err
	}

	assign := &hir.Assign{Target: *target, Value: value}
	setStmtSpan(assign, c, n)

	if tyNode != nil {
		ty, err := c.convertTypeExpr(tyNode)
		if err != nil {
			return nil, err
		}

		assign.Annotation = &ty
	}

	return assign, nil
}

// convertTarget lowers an assignment left-hand side. Tuple targets are
// allowed only when the right-hand side is a single expression; unpacking a
// literal tuple in statement position is rejected.
func (c *converter) convertTarget(left, right *sitter.Node) (*hir.AssignTarget, error) {
	switch left.Type() {
	case "identifier":
		return &hir.AssignTarget{Kind: hir.TargetSymbol, Name: c.tree.Text(left)}, nil

	case "pattern_list", "tuple_pattern":
		if right != nil && right.Type() == "expression_list" {
			return nil, c.unsupported(left, "multi-target assignment", "unpacking a literal tuple in statement position is not supported")
		}

		var names []string

		for _, el := range pyparse.NamedChildren(left) {
			if el.Type() != "identifier" {
				return nil, c.unsupported(el, el.Type(), "tuple targets must be plain names")
			}

			names = append(names, c.tree.Text(el))
		}

		return &hir.AssignTarget{Kind: hir.TargetTuple, Elems: names}, nil

	case "subscript":
		base, err := c.convertExpr(left.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}

		idx, err := c.convertExpr(left.ChildByFieldName("subscript"))
		if err != nil {
			return nil, err
		}

		return &hir.AssignTarget{Kind: hir.TargetIndex, Base: base, Idx: idx}, nil

	case "attribute":
		obj, err := c.convertExpr(left.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}

		return &hir.AssignTarget{
			Kind:  hir.TargetAttribute,
			Value: obj,
			Attr:  c.tree.Text(left.ChildByFieldName("attribute")),
		}, nil

	default:
		return nil, c.unsupported(left, left.Type(), "unsupported assignment target")
	}
}

// convertAugmented desugars `x += v` into `x = x + v`.
func (c *converter) convertAugmented(n *sitter.Node) (hir.Stmt, error) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	opNode := n.ChildByFieldName("operator")

	target, err := c.convertTarget(left, nil)
	if err != nil {
		return nil, err
	}

	lhs, err := c.convertExpr(left)
	if err != nil {
		return nil, err
	}

	rhs, err := c.convertExpr(right)
	if err != nil {
		return nil, err
	}

	opText := c.tree.Text(opNode)

	op, ok := augmentedOps[opText]
	if !ok {
		return nil, c.unsupported(n, opText, "unsupported augmented assignment operator")
	}

	assign := &hir.Assign{
		Target: *target,
		Value:  hir.NewBinary(c.span(n), op, lhs, rhs),
	}
	setStmtSpan(assign, c, n)

	return assign, nil
}

var augmentedOps = map[string]hir.BinOp{
	"+=":  hir.OpAdd,
	"-=":  hir.OpSub,
	"*=":  hir.OpMul,
	"/=":  hir.OpDiv,
	"//=": hir.OpFloorDiv,
	"%=":  hir.OpMod,
	"**=": hir.OpPow,
	"&=":  hir.OpBitAnd,
	"|=":  hir.OpBitOr,
	"^=":  hir.OpBitXor,
	"<<=": hir.OpLShift,
	">>=": hir.OpRShift,
}

// convertIf folds elif chains into nested else blocks.
func (c *converter) convertIf(n *sitter.Node, fn *hir.Function) (hir.Stmt, error) {
	cond, err := c.convertExpr(n.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}

	then, err := c.convertBody(pyparse.NamedChildren(n.ChildByFieldName("consequence")), fn)
	if err != nil {
		return nil, err
	}

	stmt := &hir.If{Cond: cond, Then: then}
	setStmtSpan(stmt, c, n)

	// Alternatives appear in order: zero or more elif_clause, then at most
	// one else_clause.
	current := stmt

	for _, alt := range pyparse.NamedChildren(n) {
		switch alt.Type() {
		case "elif_clause":
			econd, err := c.convertExpr(alt.ChildByFieldName("condition"))
			if err != nil {
				return nil, err
			}

			ebody, err := c.convertBody(pyparse.NamedChildren(alt.ChildByFieldName("consequence")), fn)
			if err != nil {
				return nil, err
			}

			next := &hir.If{Cond: econd, Then: ebody}
			setStmtSpan(next, c, alt)
			current.Else = []hir.Stmt{next}
			current = next

		case "else_clause":
			ebody, err := c.convertBody(pyparse.NamedChildren(alt.ChildByFieldName("body")), fn)
			if err != nil {
				return nil, err
			}

			current.Else = ebody
		}
	}

	return stmt, nil
}

func (c *converter) convertFor(n *sitter.Node, fn *hir.Function) (hir.Stmt, error) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")

	var targets []string

	switch left.Type() {
	case "identifier":
		targets = []string{c.tree.Text(left)}
	case "pattern_list", "tuple_pattern":
		for _, el := range pyparse.NamedChildren(left) {
			if el.Type() != "identifier" {
				return nil, c.unsupported(el, el.Type(), "loop targets must be plain names")
			}

			targets = append(targets, c.tree.Text(el))
		}
	default:
		return nil, c.unsupported(left, left.Type(), "unsupported loop target")
	}

	iter, err := c.convertExpr(right)
	if err != nil {
		return nil, err
	}

	body, err := c.convertBody(pyparse.NamedChildren(n.ChildByFieldName("body")), fn)
	if err != nil {
		return nil, err
	}

	loop := &hir.For{Targets: targets, Iter: iter, Body: body}
	setStmtSpan(loop, c, n)

	return loop, nil
}

// convertWith nests multiple context items into nested With statements.
func (c *converter) convertWith(n *sitter.Node, fn *hir.Function) (hir.Stmt, error) {
	clause := pyparse.FirstChildOfType(n, "with_clause")
	if clause == nil {
		return nil, c.loweringErr(n, "with statement without clause")
	}

	items := pyparse.ChildrenOfType(clause, "with_item")
	if len(items) == 0 {
		return nil, c.loweringErr(n, "with statement without items")
	}

	body, err := c.convertBody(pyparse.NamedChildren(n.ChildByFieldName("body")), fn)
	if err != nil {
		return nil, err
	}

	// Innermost-out: the last item wraps the body directly.
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		value := item.ChildByFieldName("value")

		w := &hir.With{Body: body}
		setStmtSpan(w, c, item)

		ctxNode := value
		if value != nil && value.Type() == "as_pattern" {
			ctxNode = value.NamedChild(0)
			if alias := value.ChildByFieldName("alias"); alias != nil {
				w.Target = c.tree.Text(alias)
			}
		}

		ctxExpr, err := c.convertExpr(ctxNode)
		if err != nil {
			return nil, err
		}

		w.Context = ctxExpr
		body = []hir.Stmt{w}
	}

	return body[0], nil
}

func (c *converter) convertTry(n *sitter.Node, fn *hir.Function) (hir.Stmt, error) {
	stmt := &hir.Try{}
	setStmtSpan(stmt, c, n)

	body, err := c.convertBody(pyparse.NamedChildren(n.ChildByFieldName("body")), fn)
	if err != nil {
		return nil, err
	}

	stmt.Body = body

	for _, clause := range pyparse.NamedChildren(n) {
		switch clause.Type() {
		case "except_clause":
			handler := hir.ExceptHandler{}

			for _, ch := range pyparse.NamedChildren(clause) {
				switch ch.Type() {
				case "block":
					hbody, err := c.convertBody(pyparse.NamedChildren(ch), fn)
					if err != nil {
						return nil, err
					}

					handler.Body = hbody

				case "as_pattern":
					handler.ExceptionType = c.tree.Text(ch.NamedChild(0))
					if alias := ch.ChildByFieldName("alias"); alias != nil {
						handler.Name = c.tree.Text(alias)
					}

				case "identifier", "attribute":
					handler.ExceptionType = c.tree.Text(ch)

				case "tuple":
					return nil, c.unsupported(ch, "except (A, B)", "multi-exception handlers are not supported")
				}
			}

			stmt.Handlers = append(stmt.Handlers, handler)

		case "else_clause":
			ebody, err := c.convertBody(pyparse.NamedChildren(clause.ChildByFieldName("body")), fn)
			if err != nil {
				return nil, err
			}

			stmt.OrElse = ebody

		case "finally_clause":
			fbody, err := c.convertBody(pyparse.NamedChildren(pyparse.FirstChildOfType(clause, "block")), fn)
			if err != nil {
				return nil, err
			}

			stmt.FinalBody = fbody
		}
	}

	return stmt, nil
}

func (c *converter) convertRaise(n *sitter.Node) (hir.Stmt, error) {
	stmt := &hir.Raise{}
	setStmtSpan(stmt, c, n)

	cause := n.ChildByFieldName("cause")
	if cause != nil {
		cexpr, err := c.convertExpr(cause)
		if err != nil {
			return nil, err
		}

		stmt.Cause = cexpr
	}

	for _, ch := range pyparse.NamedChildren(n) {
		if cause != nil && ch.StartByte() == cause.StartByte() && ch.EndByte() == cause.EndByte() {
			continue
		}

		if ch.Type() == "comment" {
			continue
		}

		exc, err := c.convertExpr(ch)
		if err != nil {
			return nil, err
		}

		stmt.Exception = exc

		break
	}

	return stmt, nil
}

func (c *converter) convertAssert(n *sitter.Node) (hir.Stmt, error) {
	children := pyparse.NamedChildren(n)
	if len(children) == 0 {
		return nil, c.loweringErr(n, "assert without condition")
	}

	test, err := c.convertExpr(children[0])
	if err != nil {
		return nil, err
	}

	stmt := &hir.Assert{Test: test}
	setStmtSpan(stmt, c, n)

	if len(children) > 1 {
		msg, err := c.convertExpr(children[1])
		if err != nil {
			return nil, err
		}

		stmt.Msg = msg
	}

	return stmt, nil
}

// firstExprChild returns the first named child that is not a comment.
func firstExprChild(n *sitter.Node) *sitter.Node {
	for _, c := range pyparse.NamedChildren(n) {
		if c.Type() != "comment" {
			return c
		}
	}

	return nil
}

// setStmtSpan threads spans onto statements without repeating the plumbing
// at every construction site.
func setStmtSpan(s hir.Stmt, c *converter, n *sitter.Node) {
	if v, ok := s.(interface{ SetSpan(position.Span) }); ok {
		v.SetSpan(c.span(n))
	}
}
