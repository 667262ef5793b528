package astbridge

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/depyler-lang/depyler/internal/hir"
	"github.com/depyler-lang/depyler/internal/pyparse"
)

func (c *converter) convertExpr(n *sitter.Node) (hir.Expr, error) {
	if n == nil {
		return nil, c.loweringErr(n, "missing expression node")
	}

	span := c.span(n)

	switch n.Type() {
	case "identifier":
		return hir.NewVar(span, c.tree.Text(n)), nil

	case "integer":
		text := strings.ReplaceAll(c.tree.Text(n), "_", "")

		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, c.loweringErr(n, "integer literal out of range: %s", text)
		}

		return hir.NewIntLit(span, v), nil

	case "float":
		text := strings.ReplaceAll(c.tree.Text(n), "_", "")

		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, c.loweringErr(n, "bad float literal: %s", text)
		}

		return hir.NewFloatLit(span, v), nil

	case "true":
		return hir.NewBoolLit(span, true), nil

	case "false":
		return hir.NewBoolLit(span, false), nil

	case "none":
		return hir.NewNoneLit(span), nil

	case "string":
		return c.convertString(n)

	case "concatenated_string":
		// Adjacent literals merge; interpolation inside any part keeps the
		// whole thing an f-string, which is not worth supporting here.
		var sb strings.Builder

		for _, part := range pyparse.ChildrenOfType(n, "string") {
			if isFStringNode(c.tree.Text(part)) {
				return nil, c.unsupported(n, "concatenated f-string", "implicit concatenation with f-strings is not supported")
			}

			sb.WriteString(decodePyString(c.tree.Text(part)))
		}

		return hir.NewStrLit(span, sb.String()), nil

	case "binary_operator":
		return c.convertBinary(n)

	case "boolean_operator":
		return c.convertBoolean(n)

	case "comparison_operator":
		return c.convertComparison(n)

	case "not_operator":
		operand, err := c.convertExpr(firstExprChild(n))
		if err != nil {
			return nil, err
		}

		return hir.NewUnary(span, hir.OpNot, operand), nil

	case "unary_operator":
		return c.convertUnary(n)

	case "call":
		return c.convertCall(n)

	case "attribute":
		obj, err := c.convertExpr(n.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}

		return hir.NewAttribute(span, obj, c.tree.Text(n.ChildByFieldName("attribute"))), nil

	case "subscript":
		return c.convertSubscript(n)

	case "list":
		elems, err := c.convertExprList(pyparse.NamedChildren(n))
		if err != nil {
			return nil, err
		}

		lit := &hir.ListLit{Elems: elems}
		lit.SetSpan(span)

		return lit, nil

	case "set":
		elems, err := c.convertExprList(pyparse.NamedChildren(n))
		if err != nil {
			return nil, err
		}

		lit := &hir.SetLit{Elems: elems}
		lit.SetSpan(span)

		return lit, nil

	case "tuple", "expression_list":
		elems, err := c.convertExprList(pyparse.NamedChildren(n))
		if err != nil {
			return nil, err
		}

		lit := &hir.TupleLit{Elems: elems}
		lit.SetSpan(span)

		return lit, nil

	case "dictionary":
		return c.convertDict(n)

	case "list_comprehension":
		elt, gens, err := c.convertComprehension(n)
		if err != nil {
			return nil, err
		}

		comp := &hir.ListComp{Element: elt, Generators: gens}
		comp.SetSpan(span)

		return comp, nil

	case "set_comprehension":
		elt, gens, err := c.convertComprehension(n)
		if err != nil {
			return nil, err
		}

		comp := &hir.SetComp{Element: elt, Generators: gens}
		comp.SetSpan(span)

		return comp, nil

	case "generator_expression":
		elt, gens, err := c.convertComprehension(n)
		if err != nil {
			return nil, err
		}

		comp := &hir.GeneratorExp{Element: elt, Generators: gens}
		comp.SetSpan(span)

		return comp, nil

	case "dictionary_comprehension":
		return c.convertDictComp(n)

	case "lambda":
		return c.convertLambda(n)

	case "conditional_expression":
		return c.convertConditional(n)

	case "await":
		value, err := c.convertExpr(firstExprChild(n))
		if err != nil {
			return nil, err
		}

		aw := &hir.Await{Value: value}
		aw.SetSpan(span)

		return aw, nil

	case "parenthesized_expression":
		return c.convertExpr(firstExprChild(n))

	case "yield":
		return nil, c.unsupported(n, "yield", "yield in expression position is not supported")

	case "ellipsis":
		return nil, c.unsupported(n, "...", "ellipsis is not supported")

	case "named_expression":
		return nil, c.unsupported(n, ":=", "assignment expressions are not supported")

	case "slice":
		return nil, c.loweringErr(n, "slice outside subscript position")

	default:
		return nil, c.unsupported(n, n.Type(), "unsupported expression")
	}
}

func (c *converter) convertExprList(nodes []*sitter.Node) ([]hir.Expr, error) {
	out := make([]hir.Expr, 0, len(nodes))

	for _, n := range nodes {
		if n.Type() == "comment" {
			continue
		}

		e, err := c.convertExpr(n)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	return out, nil
}

var binaryOps = map[string]hir.BinOp{
	"+":  hir.OpAdd,
	"-":  hir.OpSub,
	"*":  hir.OpMul,
	"/":  hir.OpDiv,
	"//": hir.OpFloorDiv,
	"%":  hir.OpMod,
	"**": hir.OpPow,
	"&":  hir.OpBitAnd,
	"|":  hir.OpBitOr,
	"^":  hir.OpBitXor,
	"<<": hir.OpLShift,
	">>": hir.OpRShift,
}

var comparisonOps = map[string]hir.BinOp{
	"==":     hir.OpEq,
	"!=":     hir.OpNotEq,
	"<":      hir.OpLt,
	"<=":     hir.OpLtEq,
	">":      hir.OpGt,
	">=":     hir.OpGtEq,
	"in":     hir.OpIn,
	"not in": hir.OpNotIn,
}

func (c *converter) convertBinary(n *sitter.Node) (hir.Expr, error) {
	opText := c.tree.Text(n.ChildByFieldName("operator"))

	op, ok := binaryOps[opText]
	if !ok {
		return nil, c.unsupported(n, opText, "unsupported binary operator")
	}

	left, err := c.convertExpr(n.ChildByFieldName("left"))
	if err != nil {
		return nil, err
	}

	right, err := c.convertExpr(n.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}

	return hir.NewBinary(c.span(n), op, left, right), nil
}

func (c *converter) convertBoolean(n *sitter.Node) (hir.Expr, error) {
	opText := c.tree.Text(n.ChildByFieldName("operator"))

	var op hir.BinOp

	switch opText {
	case "and":
		op = hir.OpAnd
	case "or":
		op = hir.OpOr
	default:
		return nil, c.unsupported(n, opText, "unsupported boolean operator")
	}

	left, err := c.convertExpr(n.ChildByFieldName("left"))
	if err != nil {
		return nil, err
	}

	right, err := c.convertExpr(n.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}

	return hir.NewBinary(c.span(n), op, left, right), nil
}

// convertComparison lowers a single comparison. Chained comparisons
// (a < b < c) are rejected. `is` survives only in the None-test forms, which
// lower to is_none()/is_some() method calls on the Optional-shaped operand.
func (c *converter) convertComparison(n *sitter.Node) (hir.Expr, error) {
	var (
		operands []*sitter.Node
		opTokens []string
	)

	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if ch == nil {
			continue
		}

		if ch.IsNamed() {
			if ch.Type() == "comment" {
				continue
			}

			operands = append(operands, ch)
		} else {
			opTokens = append(opTokens, ch.Type())
		}
	}

	if len(operands) != 2 {
		return nil, c.unsupported(n, "chained comparison", "a < b < c must be split into explicit conjunctions")
	}

	opText := strings.Join(opTokens, " ")

	// `is None` / `is not None`
	if opText == "is" || opText == "is not" {
		if operands[1].Type() != "none" {
			return nil, c.unsupported(n, "is", "identity comparison is only supported against None")
		}

		obj, err := c.convertExpr(operands[0])
		if err != nil {
			return nil, err
		}

		method := "is_none"
		if opText == "is not" {
			method = "is_some"
		}

		return hir.NewMethodCall(c.span(n), obj, method, nil), nil
	}

	op, ok := comparisonOps[opText]
	if !ok {
		return nil, c.unsupported(n, opText, "unsupported comparison operator")
	}

	left, err := c.convertExpr(operands[0])
	if err != nil {
		return nil, err
	}

	right, err := c.convertExpr(operands[1])
	if err != nil {
		return nil, err
	}

	return hir.NewBinary(c.span(n), op, left, right), nil
}

func (c *converter) convertUnary(n *sitter.Node) (hir.Expr, error) {
	opText := c.tree.Text(n.ChildByFieldName("operator"))

	var op hir.UnaryOp

	switch opText {
	case "-":
		op = hir.OpNeg
	case "+":
		op = hir.OpPos
	case "~":
		op = hir.OpBitNot
	default:
		return nil, c.unsupported(n, opText, "unsupported unary operator")
	}

	operand, err := c.convertExpr(n.ChildByFieldName("argument"))
	if err != nil {
		return nil, err
	}

	// Fold negated numeric literals so downstream consumers (slice bound
	// normalization in particular) see plain negative constants.
	if lit, ok := operand.(*hir.Literal); ok && op == hir.OpNeg {
		switch lit.Kind {
		case hir.LitInt:
			return hir.NewIntLit(c.span(n), -lit.Int), nil
		case hir.LitFloat:
			return hir.NewFloatLit(c.span(n), -lit.Float), nil
		}
	}

	return hir.NewUnary(c.span(n), op, operand), nil
}

func (c *converter) convertCall(n *sitter.Node) (hir.Expr, error) {
	fnNode := n.ChildByFieldName("function")
	argsNode := n.ChildByFieldName("arguments")

	args, kwargs, err := c.convertArguments(argsNode)
	if err != nil {
		return nil, err
	}

	span := c.span(n)

	switch fnNode.Type() {
	case "identifier":
		name := c.tree.Text(fnNode)

		if name == "eval" || name == "exec" {
			return nil, c.unsupported(n, name, "dynamic code execution is not supported")
		}

		// frozenset({...}) folds its set literal into a FrozenSetLit.
		if name == "frozenset" && len(args) == 1 {
			if set, ok := args[0].(*hir.SetLit); ok {
				lit := &hir.FrozenSetLit{Elems: set.Elems}
				lit.SetSpan(span)

				return lit, nil
			}
		}

		call := hir.NewCall(span, name, args)
		call.Kwargs = kwargs

		return call, nil

	case "attribute":
		obj, err := c.convertExpr(fnNode.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}

		method := c.tree.Text(fnNode.ChildByFieldName("attribute"))

		mc := hir.NewMethodCall(span, obj, method, args)
		mc.Kwargs = kwargs

		return mc, nil

	default:
		return nil, c.unsupported(fnNode, fnNode.Type(), "calls must target a name or attribute")
	}
}

func (c *converter) convertArguments(n *sitter.Node) ([]hir.Expr, map[string]hir.Expr, error) {
	if n == nil {
		return nil, nil, nil
	}

	var (
		args   []hir.Expr
		kwargs map[string]hir.Expr
	)

	for _, a := range pyparse.NamedChildren(n) {
		switch a.Type() {
		case "comment":
			continue

		case "keyword_argument":
			name := c.tree.Text(a.ChildByFieldName("name"))

			value, err := c.convertExpr(a.ChildByFieldName("value"))
			if err != nil {
				return nil, nil, err
			}

			if kwargs == nil {
				kwargs = make(map[string]hir.Expr)
			}

			kwargs[name] = value

		case "list_splat", "dictionary_splat":
			return nil, nil, c.unsupported(a, "argument splat", "*/** call-site splats are not supported")

		default:
			value, err := c.convertExpr(a)
			if err != nil {
				return nil, nil, err
			}

			args = append(args, value)
		}
	}

	return args, kwargs, nil
}

// convertSubscript lowers base[index] and base[a:b:c].
func (c *converter) convertSubscript(n *sitter.Node) (hir.Expr, error) {
	base, err := c.convertExpr(n.ChildByFieldName("value"))
	if err != nil {
		return nil, err
	}

	sub := n.ChildByFieldName("subscript")
	if sub != nil && sub.Type() == "slice" {
		return c.convertSlice(n, base, sub)
	}

	idx, err := c.convertExpr(sub)
	if err != nil {
		return nil, err
	}

	return hir.NewIndex(c.span(n), base, idx), nil
}

// convertSlice walks the slice node's children, splitting bounds on the
// `:` tokens; any bound may be absent.
func (c *converter) convertSlice(parent *sitter.Node, base hir.Expr, n *sitter.Node) (hir.Expr, error) {
	bounds := [3]hir.Expr{}
	slot := 0

	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if ch == nil {
			continue
		}

		if !ch.IsNamed() {
			if ch.Type() == ":" {
				slot++
			}

			continue
		}

		if ch.Type() == "comment" {
			continue
		}

		if slot > 2 {
			return nil, c.loweringErr(n, "slice with more than three bounds")
		}

		b, err := c.convertExpr(ch)
		if err != nil {
			return nil, err
		}

		bounds[slot] = b
	}

	slice := &hir.SliceExpr{Base: base, Start: bounds[0], Stop: bounds[1], Step: bounds[2]}
	slice.SetSpan(c.span(parent))

	return slice, nil
}

func (c *converter) convertDict(n *sitter.Node) (hir.Expr, error) {
	lit := &hir.DictLit{}
	lit.SetSpan(c.span(n))

	for _, pair := range pyparse.ChildrenOfType(n, "pair") {
		key, err := c.convertExpr(pair.ChildByFieldName("key"))
		if err != nil {
			return nil, err
		}

		value, err := c.convertExpr(pair.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}

		lit.Keys = append(lit.Keys, key)
		lit.Values = append(lit.Values, value)
	}

	return lit, nil
}

// convertComprehension extracts the element expression and ordered
// for-in/if clauses shared by list/set/generator comprehensions.
func (c *converter) convertComprehension(n *sitter.Node) (hir.Expr, []hir.Comprehension, error) {
	body := n.ChildByFieldName("body")

	elt, err := c.convertExpr(body)
	if err != nil {
		return nil, nil, err
	}

	gens, err := c.convertClauses(n)
	if err != nil {
		return nil, nil, err
	}

	return elt, gens, nil
}

func (c *converter) convertClauses(n *sitter.Node) ([]hir.Comprehension, error) {
	var gens []hir.Comprehension

	for _, clause := range pyparse.NamedChildren(n) {
		switch clause.Type() {
		case "for_in_clause":
			gen := hir.Comprehension{}

			left := clause.ChildByFieldName("left")
			switch left.Type() {
			case "identifier":
				gen.Targets = []string{c.tree.Text(left)}
			case "pattern_list", "tuple_pattern":
				for _, el := range pyparse.NamedChildren(left) {
					gen.Targets = append(gen.Targets, c.tree.Text(el))
				}
			default:
				return nil, c.unsupported(left, left.Type(), "comprehension targets must be plain names")
			}

			iter, err := c.convertExpr(clause.ChildByFieldName("right"))
			if err != nil {
				return nil, err
			}

			gen.Iter = iter
			gens = append(gens, gen)

		case "if_clause":
			if len(gens) == 0 {
				return nil, c.loweringErr(clause, "comprehension filter before generator")
			}

			cond, err := c.convertExpr(firstExprChild(clause))
			if err != nil {
				return nil, err
			}

			gens[len(gens)-1].Conditions = append(gens[len(gens)-1].Conditions, cond)
		}
	}

	return gens, nil
}

func (c *converter) convertDictComp(n *sitter.Node) (hir.Expr, error) {
	pair := pyparse.FirstChildOfType(n, "pair")
	if pair == nil {
		return nil, c.loweringErr(n, "dictionary comprehension without pair")
	}

	key, err := c.convertExpr(pair.ChildByFieldName("key"))
	if err != nil {
		return nil, err
	}

	value, err := c.convertExpr(pair.ChildByFieldName("value"))
	if err != nil {
		return nil, err
	}

	gens, err := c.convertClauses(n)
	if err != nil {
		return nil, err
	}

	comp := &hir.DictComp{Key: key, Value: value, Generators: gens}
	comp.SetSpan(c.span(n))

	return comp, nil
}

func (c *converter) convertLambda(n *sitter.Node) (hir.Expr, error) {
	lam := &hir.Lambda{}
	lam.SetSpan(c.span(n))

	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range pyparse.NamedChildren(params) {
			if p.Type() != "identifier" {
				return nil, c.unsupported(p, p.Type(), "lambda parameters must be plain names")
			}

			lam.Params = append(lam.Params, c.tree.Text(p))
		}
	}

	body, err := c.convertExpr(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}

	lam.Body = body

	return lam, nil
}

func (c *converter) convertConditional(n *sitter.Node) (hir.Expr, error) {
	// `then if cond else els` — three named children in source order.
	parts := pyparse.NamedChildren(n)
	if len(parts) != 3 {
		return nil, c.loweringErr(n, "malformed conditional expression")
	}

	then, err := c.convertExpr(parts[0])
	if err != nil {
		return nil, err
	}

	cond, err := c.convertExpr(parts[1])
	if err != nil {
		return nil, err
	}

	els, err := c.convertExpr(parts[2])
	if err != nil {
		return nil, err
	}

	expr := &hir.IfExpr{Cond: cond, Then: then, Else: els}
	expr.SetSpan(c.span(n))

	return expr, nil
}

// convertString handles plain and formatted string literals.
func (c *converter) convertString(n *sitter.Node) (hir.Expr, error) {
	raw := c.tree.Text(n)
	span := c.span(n)

	if !isFStringNode(raw) {
		return hir.NewStrLit(span, decodePyString(raw)), nil
	}

	fs := &hir.FString{}
	fs.SetSpan(span)

	var literal strings.Builder

	for _, part := range pyparse.NamedChildren(n) {
		switch part.Type() {
		case "interpolation":
			if literal.Len() > 0 {
				fs.Parts = append(fs.Parts, hir.FStringPart{Literal: unescapeStringBody(literal.String())})
				literal.Reset()
			}

			inner, err := c.convertExpr(firstExprChild(part))
			if err != nil {
				return nil, err
			}

			fs.Parts = append(fs.Parts, hir.FStringPart{Expr: inner})

		case "string_content", "escape_sequence":
			literal.WriteString(c.tree.Text(part))

		case "string_start", "string_end":
			// delimiters
		}
	}

	if literal.Len() > 0 {
		fs.Parts = append(fs.Parts, hir.FStringPart{Literal: unescapeStringBody(literal.String())})
	}

	return fs, nil
}

// isFStringNode checks the literal prefix for an f flag.
func isFStringNode(raw string) bool {
	for _, r := range raw {
		switch r {
		case 'f', 'F':
			return true
		case '"', '\'':
			return false
		}
	}

	return false
}

// decodePyString strips prefix and quotes from a Python string literal and
// resolves the common escape sequences.
func decodePyString(raw string) string {
	s := raw

	// Drop prefix letters (r, b, u, f in any case).
	for len(s) > 0 && s[0] != '"' && s[0] != '\'' {
		s = s[1:]
	}

	isRaw := strings.ContainsAny(strings.ToLower(raw[:len(raw)-len(s)]), "r")

	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]

			break
		}
	}

	if isRaw {
		return s
	}

	return unescapeStringBody(s)
}

func unescapeStringBody(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])

			continue
		}

		i++

		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\\', '\'', '"':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}

	return b.String()
}
