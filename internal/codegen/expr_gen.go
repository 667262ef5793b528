package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/depyler-lang/depyler/internal/diagnostics"
	"github.com/depyler-lang/depyler/internal/hir"
)

// genExpr lowers one HIR expression to Rust expression text.
func (c *Ctx) genExpr(e hir.Expr) (string, error) {
	switch n := e.(type) {
	case *hir.Literal:
		return c.genLiteral(n), nil
	case *hir.Var:
		return n.Name, nil
	case *hir.Binary:
		return c.genBinary(n)
	case *hir.Unary:
		return c.genUnary(n)
	case *hir.Call:
		return c.genCall(n)
	case *hir.MethodCall:
		return c.genMethodCall(n)
	case *hir.Index:
		return c.genIndexRead(n)
	case *hir.SliceExpr:
		return c.genSlice(n)
	case *hir.Attribute:
		return c.genAttribute(n)
	case *hir.ListLit:
		return c.genListLit(n)
	case *hir.DictLit:
		return c.genDictLit(n)
	case *hir.SetLit:
		return c.genSetLit(n.Elems, n.InferredType())
	case *hir.FrozenSetLit:
		return c.genSetLit(n.Elems, n.InferredType())
	case *hir.TupleLit:
		return c.genTupleLit(n)
	case *hir.ListComp:
		return c.genComprehension(n.Element, nil, n.Generators, "Vec<_>")
	case *hir.SetComp:
		c.Needs.HashSet = true

		return c.genComprehension(n.Element, nil, n.Generators, "HashSet<_>")
	case *hir.DictComp:
		c.Needs.HashMap = true

		return c.genComprehension(n.Key, n.Value, n.Generators, "HashMap<_, _>")
	case *hir.GeneratorExp:
		return c.genComprehension(n.Element, nil, n.Generators, "")
	case *hir.Lambda:
		body, err := c.genExpr(n.Body)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("|%s| %s", strings.Join(n.Params, ", "), body), nil
	case *hir.IfExpr:
		return c.genIfExpr(n)
	case *hir.Await:
		inner, err := c.genExpr(n.Value)
		if err != nil {
			return "", err
		}

		return inner + ".await", nil
	case *hir.FString:
		return c.genFString(n)
	case *hir.Borrow:
		inner, err := c.genExpr(n.Inner)
		if err != nil {
			return "", err
		}

		if n.Mutable {
			return "&mut " + inner, nil
		}

		return "&" + inner, nil
	default:
		return "", diagnostics.Lowering(e.GetSpan(), fmt.Sprintf("no lowering for %T", e))
	}
}

func (c *Ctx) genLiteral(n *hir.Literal) string {
	switch n.Kind {
	case hir.LitInt:
		return strconv.FormatInt(n.Int, 10)
	case hir.LitFloat:
		s := strconv.FormatFloat(n.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}

		return s
	case hir.LitStr:
		return fmt.Sprintf("%q.to_string()", n.Str)
	case hir.LitBool:
		if n.Bool {
			return "true"
		}

		return "false"
	default:
		return "()"
	}
}

// strLit renders a literal without the .to_string() suffix, for positions
// that want &str (format strings, method arguments).
func (c *Ctx) strLit(e hir.Expr) (string, bool) {
	if lit, ok := e.(*hir.Literal); ok && lit.Kind == hir.LitStr {
		return fmt.Sprintf("%q", lit.Str), true
	}

	return "", false
}

func (c *Ctx) genBinary(n *hir.Binary) (string, error) {
	switch n.Op {
	case hir.OpAnd, hir.OpOr:
		left, err := c.genCond(n.Left)
		if err != nil {
			return "", err
		}

		right, err := c.genCond(n.Right)
		if err != nil {
			return "", err
		}

		op := "&&"
		if n.Op == hir.OpOr {
			op = "||"
		}

		return fmt.Sprintf("%s %s %s", left, op, right), nil
	case hir.OpIn, hir.OpNotIn:
		return c.genMembership(n)
	case hir.OpFloorDiv:
		return c.genFloorDiv(n)
	case hir.OpMod:
		return c.genMod(n)
	case hir.OpPow:
		return c.genPow(n)
	}

	left, err := c.genExpr(n.Left)
	if err != nil {
		return "", err
	}

	right, err := c.genExpr(n.Right)
	if err != nil {
		return "", err
	}

	// String concatenation goes through format! so owned/borrowed
	// operand mixes never matter.
	if n.Op == hir.OpAdd && c.paramType(n.Left).Kind == hir.KindString {
		return fmt.Sprintf("format!(\"{}{}\", %s, %s)", left, right), nil
	}

	op := rustBinOp(n.Op)
	if op == "" {
		return "", diagnostics.Lowering(n.GetSpan(), fmt.Sprintf("operator %s has no direct lowering", n.Op))
	}

	return fmt.Sprintf("%s %s %s", left, op, right), nil
}

func rustBinOp(op hir.BinOp) string {
	switch op {
	case hir.OpAdd:
		return "+"
	case hir.OpSub:
		return "-"
	case hir.OpMul:
		return "*"
	case hir.OpDiv:
		return "/"
	case hir.OpEq:
		return "=="
	case hir.OpNotEq:
		return "!="
	case hir.OpLt:
		return "<"
	case hir.OpLtEq:
		return "<="
	case hir.OpGt:
		return ">"
	case hir.OpGtEq:
		return ">="
	case hir.OpBitAnd:
		return "&"
	case hir.OpBitOr:
		return "|"
	case hir.OpBitXor:
		return "^"
	case hir.OpLShift:
		return "<<"
	case hir.OpRShift:
		return ">>"
	default:
		return ""
	}
}

func (c *Ctx) genMembership(n *hir.Binary) (string, error) {
	container, err := c.genExpr(n.Right)
	if err != nil {
		return "", err
	}

	var needle string
	if lit, ok := c.strLit(n.Left); ok && c.paramType(n.Right).Kind == hir.KindString {
		needle = lit
	} else {
		needle, err = c.genExpr(n.Left)
		if err != nil {
			return "", err
		}

		needle = "&" + needle
	}

	var out string
	if c.paramType(n.Right).Kind == hir.KindDict {
		out = fmt.Sprintf("%s.contains_key(%s)", container, needle)
	} else {
		out = fmt.Sprintf("%s.contains(%s)", container, needle)
	}

	if n.Op == hir.OpNotIn {
		out = "!" + out
	}

	return out, nil
}

// genFloorDiv emits Python floored division. Integer operands round toward
// negative infinity, which differs from Rust's truncating `/`.
func (c *Ctx) genFloorDiv(n *hir.Binary) (string, error) {
	left, err := c.genExpr(n.Left)
	if err != nil {
		return "", err
	}

	right, err := c.genExpr(n.Right)
	if err != nil {
		return "", err
	}

	if c.paramType(n.Left).Kind == hir.KindFloat || c.paramType(n.Right).Kind == hir.KindFloat {
		return fmt.Sprintf("(%s / %s).floor()", left, right), nil
	}

	c.Needs.FlooredDiv = true

	return fmt.Sprintf("floored_div(%s, %s)", left, right), nil
}

// genMod emits Python remainder, which carries the sign of the divisor.
func (c *Ctx) genMod(n *hir.Binary) (string, error) {
	left, err := c.genExpr(n.Left)
	if err != nil {
		return "", err
	}

	right, err := c.genExpr(n.Right)
	if err != nil {
		return "", err
	}

	if c.paramType(n.Left).Kind == hir.KindFloat || c.paramType(n.Right).Kind == hir.KindFloat {
		return fmt.Sprintf("%s %% %s", left, right), nil
	}

	c.Needs.PyModulo = true

	return fmt.Sprintf("py_mod(%s, %s)", left, right), nil
}

// genPow lowers ** only when the exponent is an integer literal, matching
// what pow/powi can express without a runtime dispatch.
func (c *Ctx) genPow(n *hir.Binary) (string, error) {
	exp, ok := n.Right.(*hir.Literal)
	if !ok || exp.Kind != hir.LitInt {
		return "", diagnostics.Lowering(n.GetSpan(), "** requires an integer literal exponent")
	}

	if base, ok := n.Left.(*hir.Literal); ok {
		switch base.Kind {
		case hir.LitInt:
			return fmt.Sprintf("i32::pow(%d, %d)", base.Int, exp.Int), nil
		case hir.LitFloat:
			return fmt.Sprintf("f64::powi(%s, %d)", c.genLiteral(base), exp.Int), nil
		}
	}

	if c.paramType(n.Left).Kind == hir.KindFloat {
		left, err := c.genExpr(n.Left)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%s.powi(%d)", left, exp.Int), nil
	}

	left, err := c.genExpr(n.Left)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("i32::pow(%s, %d)", left, exp.Int), nil
}

func (c *Ctx) genUnary(n *hir.Unary) (string, error) {
	if n.Op == hir.OpNot {
		inner, err := c.genCond(n.Operand)
		if err != nil {
			return "", err
		}

		return "!(" + inner + ")", nil
	}

	inner, err := c.genExpr(n.Operand)
	if err != nil {
		return "", err
	}

	switch n.Op {
	case hir.OpNeg:
		return "-" + inner, nil
	case hir.OpPos:
		return inner, nil
	case hir.OpBitNot:
		return "!" + inner, nil
	}

	return "", diagnostics.Lowering(n.GetSpan(), "unknown unary operator")
}

// genCond coerces an expression into a Rust bool for condition position:
// integers compare against zero, strings and containers test emptiness,
// options test is_some, bools pass through.
func (c *Ctx) genCond(e hir.Expr) (string, error) {
	if b, ok := e.(*hir.Binary); ok {
		if b.Op.IsComparison() || b.Op == hir.OpAnd || b.Op == hir.OpOr ||
			b.Op == hir.OpIn || b.Op == hir.OpNotIn {
			return c.genExpr(e)
		}
	}

	if u, ok := e.(*hir.Unary); ok && u.Op == hir.OpNot {
		return c.genExpr(e)
	}

	if mc, ok := e.(*hir.MethodCall); ok {
		switch mc.Method {
		case "is_none", "is_some", "startswith", "endswith", "isdigit", "isalpha":
			return c.genExpr(e)
		}
	}

	text, err := c.genExpr(e)
	if err != nil {
		return "", err
	}

	switch c.paramType(e).Kind {
	case hir.KindBool:
		return text, nil
	case hir.KindInt:
		return text + " != 0", nil
	case hir.KindFloat:
		return text + " != 0.0", nil
	case hir.KindString, hir.KindList, hir.KindSet, hir.KindDict:
		return "!" + text + ".is_empty()", nil
	case hir.KindOptional:
		return text + ".is_some()", nil
	default:
		if lit, ok := e.(*hir.Literal); ok {
			switch lit.Kind {
			case hir.LitInt:
				return text + " != 0", nil
			case hir.LitStr:
				return "!" + text + ".is_empty()", nil
			}
		}

		return text, nil
	}
}

func (c *Ctx) genArgs(args []hir.Expr) ([]string, error) {
	out := make([]string, len(args))

	for i, a := range args {
		text, err := c.genExpr(a)
		if err != nil {
			return nil, err
		}

		out[i] = text
	}

	return out, nil
}

func (c *Ctx) genCall(n *hir.Call) (string, error) {
	if out, done, err := c.genBuiltinCall(n); done || err != nil {
		return out, err
	}

	args, err := c.genArgs(n.Args)
	if err != nil {
		return "", err
	}

	if c.Varargs[n.Func] {
		return fmt.Sprintf("%s(vec![%s])", n.Func, strings.Join(args, ", ")), nil
	}

	// Class names called as constructors route through new().
	for _, cls := range c.Module.Classes {
		if cls.Name == n.Func {
			return fmt.Sprintf("%s::new(%s)", n.Func, strings.Join(args, ", ")), nil
		}
	}

	return fmt.Sprintf("%s(%s)", n.Func, strings.Join(args, ", ")), nil
}

// genBuiltinCall handles Python builtins with dedicated lowerings. The
// bool result reports whether the call was handled.
func (c *Ctx) genBuiltinCall(n *hir.Call) (string, bool, error) {
	switch n.Func {
	case "print":
		return c.genPrint(n)
	case "len":
		if len(n.Args) != 1 {
			break
		}

		arg, err := c.genExpr(n.Args[0])
		if err != nil {
			return "", true, err
		}

		return fmt.Sprintf("%s.len() as i32", arg), true, nil
	case "str":
		if len(n.Args) != 1 {
			break
		}

		arg, err := c.genExpr(n.Args[0])
		if err != nil {
			return "", true, err
		}

		return fmt.Sprintf("%s.to_string()", arg), true, nil
	case "int", "float":
		return c.genNumericCast(n)
	case "bool":
		if len(n.Args) != 1 {
			break
		}

		out, err := c.genCond(n.Args[0])

		return out, true, err
	case "abs":
		if len(n.Args) != 1 {
			break
		}

		arg, err := c.genExpr(n.Args[0])
		if err != nil {
			return "", true, err
		}

		return fmt.Sprintf("(%s).abs()", arg), true, nil
	case "min", "max":
		if len(n.Args) != 2 {
			break
		}

		args, err := c.genArgs(n.Args)
		if err != nil {
			return "", true, err
		}

		return fmt.Sprintf("std::cmp::%s(%s, %s)", n.Func, args[0], args[1]), true, nil
	case "sum":
		if len(n.Args) != 1 {
			break
		}

		arg, err := c.genExpr(n.Args[0])
		if err != nil {
			return "", true, err
		}

		return fmt.Sprintf("%s.iter().sum::<i32>()", arg), true, nil
	case "sorted":
		if len(n.Args) != 1 {
			break
		}

		arg, err := c.genExpr(n.Args[0])
		if err != nil {
			return "", true, err
		}

		return fmt.Sprintf("{ let mut v = %s.clone(); v.sort(); v }", arg), true, nil
	case "range":
		out, err := c.genRange(n)

		return out, true, err
	case "eval", "exec":
		return "", true, diagnostics.Lowering(n.GetSpan(), n.Func+" cannot be lowered")
	}

	return "", false, nil
}

func (c *Ctx) genPrint(n *hir.Call) (string, bool, error) {
	if len(n.Args) == 0 {
		return `println!()`, true, nil
	}

	args, err := c.genArgs(n.Args)
	if err != nil {
		return "", true, err
	}

	holes := make([]string, len(args))
	for i := range args {
		holes[i] = "{}"
	}

	return fmt.Sprintf("println!(\"%s\", %s)", strings.Join(holes, " "), strings.Join(args, ", ")), true, nil
}

// genNumericCast lowers int(x)/float(x). String arguments parse; inside a
// try closure the parse propagates with `?`, otherwise it unwraps.
func (c *Ctx) genNumericCast(n *hir.Call) (string, bool, error) {
	if len(n.Args) != 1 {
		return "", true, diagnostics.Lowering(n.GetSpan(), n.Func+" takes one argument")
	}

	target := "i32"
	if n.Func == "float" {
		target = "f64"
	}

	arg, err := c.genExpr(n.Args[0])
	if err != nil {
		return "", true, err
	}

	// An unknown-typed argument to int()/float() is treated as text to
	// parse; a numeric one would already be numeric.
	if k := c.paramType(n.Args[0]).Kind; k == hir.KindString || k == hir.KindUnknown {
		if c.inTry {
			return fmt.Sprintf("%s.parse::<%s>()?", arg, target), true, nil
		}

		return fmt.Sprintf("%s.parse::<%s>().unwrap()", arg, target), true, nil
	}

	return fmt.Sprintf("(%s) as %s", arg, target), true, nil
}

func (c *Ctx) genRange(n *hir.Call) (string, error) {
	args, err := c.genArgs(n.Args)
	if err != nil {
		return "", err
	}

	switch len(args) {
	case 1:
		return fmt.Sprintf("(0..%s)", args[0]), nil
	case 2:
		return fmt.Sprintf("(%s..%s)", args[0], args[1]), nil
	case 3:
		return fmt.Sprintf("(%s..%s).step_by(%s as usize)", args[0], args[1], args[2]), nil
	default:
		return "", diagnostics.Lowering(n.GetSpan(), "range takes 1-3 arguments")
	}
}

func (c *Ctx) genMethodCall(n *hir.MethodCall) (string, error) {
	// Module functions (re.match, json.dumps, math.sqrt, ...) resolve
	// through the stdlib tables.
	if mod, ok := c.moduleOf(n.Object); ok {
		return c.genStdlibCall(mod, n)
	}

	recv, err := c.genExpr(n.Object)
	if err != nil {
		return "", err
	}

	args, err := c.genArgs(n.Args)
	if err != nil {
		return "", err
	}

	recvType := c.paramType(n.Object)

	if out, ok, err := c.genStringMethod(recv, recvType, n, args); ok || err != nil {
		return out, err
	}

	if out, ok, err := c.genContainerMethod(recv, recvType, n, args); ok || err != nil {
		return out, err
	}

	// Fallback: same method name, same arity.
	return fmt.Sprintf("%s.%s(%s)", recv, n.Method, strings.Join(args, ", ")), nil
}

func (c *Ctx) genStringMethod(recv string, recvType hir.Type, n *hir.MethodCall, args []string) (string, bool, error) {
	if recvType.Kind != hir.KindString {
		return "", false, nil
	}

	strArg := func(i int) string {
		if lit, ok := c.strLit(n.Args[i]); ok {
			return lit
		}

		return "&" + args[i]
	}

	switch n.Method {
	case "upper":
		return recv + ".to_uppercase()", true, nil
	case "lower":
		return recv + ".to_lowercase()", true, nil
	case "strip":
		return recv + ".trim().to_string()", true, nil
	case "lstrip":
		return recv + ".trim_start().to_string()", true, nil
	case "rstrip":
		return recv + ".trim_end().to_string()", true, nil
	case "startswith":
		return fmt.Sprintf("%s.starts_with(%s)", recv, strArg(0)), true, nil
	case "endswith":
		return fmt.Sprintf("%s.ends_with(%s)", recv, strArg(0)), true, nil
	case "find":
		return fmt.Sprintf("%s.find(%s).map_or(-1, |i| i as i32)", recv, strArg(0)), true, nil
	case "replace":
		return fmt.Sprintf("%s.replace(%s, %s)", recv, strArg(0), strArg(1)), true, nil
	case "split":
		if len(args) == 0 {
			return fmt.Sprintf("%s.split_whitespace().map(|s| s.to_string()).collect::<Vec<String>>()", recv), true, nil
		}

		return fmt.Sprintf("%s.split(%s).map(|s| s.to_string()).collect::<Vec<String>>()", recv, strArg(0)), true, nil
	case "join":
		if len(args) != 1 {
			break
		}

		if lit, ok := c.strLit(n.Object); ok {
			return fmt.Sprintf("%s.join(%s)", args[0], lit), true, nil
		}

		return fmt.Sprintf("%s.join(&%s)", args[0], recv), true, nil
	case "isdigit":
		return fmt.Sprintf("%s.chars().all(|ch| ch.is_ascii_digit()) && !%s.is_empty()", recv, recv), true, nil
	case "isalpha":
		return fmt.Sprintf("%s.chars().all(|ch| ch.is_alphabetic()) && !%s.is_empty()", recv, recv), true, nil
	}

	return "", false, nil
}

func (c *Ctx) genContainerMethod(recv string, recvType hir.Type, n *hir.MethodCall, args []string) (string, bool, error) {
	switch n.Method {
	case "append":
		return fmt.Sprintf("%s.push(%s)", recv, args[0]), true, nil
	case "get":
		// Dict get with and without a default.
		if recvType.Kind == hir.KindDict || len(args) == 2 {
			key := "&" + args[0]
			if lit, ok := c.strLit(n.Args[0]); ok {
				key = lit
			}

			if len(args) == 2 {
				return fmt.Sprintf("%s.get(%s).cloned().unwrap_or(%s)", recv, key, args[1]), true, nil
			}

			return fmt.Sprintf("%s.get(%s).cloned()", recv, key), true, nil
		}
	case "items":
		return fmt.Sprintf("%s.iter()", recv), true, nil
	case "keys":
		return fmt.Sprintf("%s.keys()", recv), true, nil
	case "values":
		return fmt.Sprintf("%s.values()", recv), true, nil
	case "add":
		if recvType.Kind == hir.KindSet {
			return fmt.Sprintf("%s.insert(%s)", recv, args[0]), true, nil
		}
	case "extend":
		return fmt.Sprintf("%s.extend(%s)", recv, args[0]), true, nil
	case "pop":
		if recvType.Kind == hir.KindList && len(args) == 0 {
			return fmt.Sprintf("%s.pop().unwrap()", recv), true, nil
		}
	case "copy":
		return fmt.Sprintf("%s.clone()", recv), true, nil
	case "index":
		if recvType.Kind == hir.KindList {
			return fmt.Sprintf("%s.iter().position(|x| *x == %s).unwrap() as i32", recv, args[0]), true, nil
		}
	case "count":
		if recvType.Kind == hir.KindList {
			return fmt.Sprintf("%s.iter().filter(|x| **x == %s).count() as i32", recv, args[0]), true, nil
		}
	}

	return "", false, nil
}

// genIndexRead emits bounds-checked element access for read sites. Write
// targets go through the statement generator, which emits plain indexed
// assignment.
func (c *Ctx) genIndexRead(n *hir.Index) (string, error) {
	base, err := c.genExpr(n.Base)
	if err != nil {
		return "", err
	}

	idx, err := c.genExpr(n.Idx)
	if err != nil {
		return "", err
	}

	// Negative constant indexes count from the end.
	if lit, ok := n.Idx.(*hir.Literal); ok && lit.Kind == hir.LitInt && lit.Int < 0 {
		back := fmt.Sprintf("%s.len().saturating_sub(%d)", base, -lit.Int)
		switch c.paramType(n.Base).Kind {
		case hir.KindString:
			return fmt.Sprintf("%s.chars().nth(%s).unwrap_or_default()", base, back), nil
		case hir.KindTuple:
			return "", diagnostics.Lowering(n.GetSpan(), "tuple index must be a non-negative constant")
		case hir.KindDict:
			// Negative integers are ordinary map keys.
		default:
			return fmt.Sprintf("%s.get(%s).copied().unwrap_or_default()", base, back), nil
		}
	}

	switch c.paramType(n.Base).Kind {
	case hir.KindDict:
		key := "&" + idx
		if lit, ok := c.strLit(n.Idx); ok {
			key = lit
		}

		return fmt.Sprintf("%s.get(%s).cloned().unwrap_or_default()", base, key), nil
	case hir.KindString:
		return fmt.Sprintf("%s.chars().nth(%s as usize).unwrap_or_default()", base, idx), nil
	case hir.KindTuple:
		if lit, ok := n.Idx.(*hir.Literal); ok && lit.Kind == hir.LitInt {
			return fmt.Sprintf("%s.%d", base, lit.Int), nil
		}

		return "", diagnostics.Lowering(n.GetSpan(), "tuple index must be a constant")
	default:
		return fmt.Sprintf("%s.get(%s as usize).copied().unwrap_or_default()", base, idx), nil
	}
}

// sliceBound renders one slice bound as a usize expression over the base.
// Negative literals count from the end; nil falls back to def.
func (c *Ctx) sliceBound(base string, bound hir.Expr, def string, clamp bool) (string, error) {
	if bound == nil {
		return def, nil
	}

	if lit, ok := bound.(*hir.Literal); ok && lit.Kind == hir.LitInt {
		if lit.Int < 0 {
			return fmt.Sprintf("%s.len().saturating_sub(%d)", base, -lit.Int), nil
		}

		if clamp {
			return fmt.Sprintf("(%d as usize).min(%s.len())", lit.Int, base), nil
		}

		return strconv.FormatInt(lit.Int, 10), nil
	}

	text, err := c.genExpr(bound)
	if err != nil {
		return "", err
	}

	if clamp {
		return fmt.Sprintf("((%s) as usize).min(%s.len())", text, base), nil
	}

	return fmt.Sprintf("(%s) as usize", text), nil
}

func (c *Ctx) genSlice(n *hir.SliceExpr) (string, error) {
	base, err := c.genExpr(n.Base)
	if err != nil {
		return "", err
	}

	isString := c.paramType(n.Base).Kind == hir.KindString

	start, err := c.sliceBound(base, n.Start, "0", false)
	if err != nil {
		return "", err
	}

	stop, err := c.sliceBound(base, n.Stop, base+".len()", true)
	if err != nil {
		return "", err
	}

	step := int64(1)
	if n.Step != nil {
		lit, ok := n.Step.(*hir.Literal)
		if !ok || lit.Kind != hir.LitInt {
			return "", diagnostics.Lowering(n.GetSpan(), "slice step must be a constant")
		}

		step = lit.Int
	}

	if isString {
		switch step {
		case 1:
			return fmt.Sprintf("%s.chars().skip(%s).take((%s).saturating_sub(%s)).collect::<String>()",
				base, start, stop, start), nil
		case -1:
			return fmt.Sprintf("%s.chars().rev().collect::<String>()", base), nil
		default:
			return "", diagnostics.Lowering(n.GetSpan(), "string slice step must be 1 or -1")
		}
	}

	switch {
	case step == 1:
		return fmt.Sprintf("%s[%s..%s].to_vec()", base, start, stop), nil
	case step == -1:
		return fmt.Sprintf("{ let mut v = %s[%s..%s].to_vec(); v.reverse(); v }", base, start, stop), nil
	case step > 1:
		return fmt.Sprintf("%s[%s..%s].iter().step_by(%d).cloned().collect::<Vec<_>>()",
			base, start, stop, step), nil
	default:
		return "", diagnostics.Lowering(n.GetSpan(), "slice step must be a positive constant or -1")
	}
}

func (c *Ctx) genAttribute(n *hir.Attribute) (string, error) {
	if mod, ok := c.moduleOf(n.Value); ok {
		if out, ok := stdlibAttr(mod, n.Attr); ok {
			return out, nil
		}
	}

	value, err := c.genExpr(n.Value)
	if err != nil {
		return "", err
	}

	return value + "." + n.Attr, nil
}

func (c *Ctx) genListLit(n *hir.ListLit) (string, error) {
	if len(n.Elems) == 0 {
		if t := n.InferredType(); t.Kind == hir.KindList && t.Elem().Kind != hir.KindUnknown {
			return fmt.Sprintf("Vec::<%s>::new()", c.Mapper.Map(t.Elem())), nil
		}

		return "Vec::new()", nil
	}

	elems, err := c.genArgs(n.Elems)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("vec![%s]", strings.Join(elems, ", ")), nil
}

// genDictLit emits an immediately-invoked block building a HashMap.
func (c *Ctx) genDictLit(n *hir.DictLit) (string, error) {
	c.Needs.HashMap = true

	if len(n.Keys) == 0 {
		if t := n.InferredType(); t.Kind == hir.KindDict && len(t.Params) == 2 &&
			t.Params[0].Kind != hir.KindUnknown {
			return fmt.Sprintf("HashMap::<%s, %s>::new()",
				c.Mapper.Map(t.Params[0]), c.Mapper.Map(t.Params[1])), nil
		}

		return "HashMap::new()", nil
	}

	var b strings.Builder
	b.WriteString("{ let mut m = HashMap::new(); ")

	for i := range n.Keys {
		key, err := c.genExpr(n.Keys[i])
		if err != nil {
			return "", err
		}

		val, err := c.genExpr(n.Values[i])
		if err != nil {
			return "", err
		}

		fmt.Fprintf(&b, "m.insert(%s, %s); ", key, val)
	}

	b.WriteString("m }")

	return b.String(), nil
}

func (c *Ctx) genSetLit(elems []hir.Expr, t hir.Type) (string, error) {
	c.Needs.HashSet = true

	if len(elems) == 0 {
		if t.Kind == hir.KindSet && t.Elem().Kind != hir.KindUnknown {
			return fmt.Sprintf("HashSet::<%s>::new()", c.Mapper.Map(t.Elem())), nil
		}

		return "HashSet::new()", nil
	}

	parts, err := c.genArgs(elems)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("{ let mut s = HashSet::new(); ")

	for _, p := range parts {
		fmt.Fprintf(&b, "s.insert(%s); ", p)
	}

	b.WriteString("s }")

	return b.String(), nil
}

func (c *Ctx) genTupleLit(n *hir.TupleLit) (string, error) {
	elems, err := c.genArgs(n.Elems)
	if err != nil {
		return "", err
	}

	return "(" + strings.Join(elems, ", ") + ")", nil
}

// iterSource renders the iterator for a generator or for-loop. A range
// call stays a range; dict views map to their iterators; a string
// parameter iterates characters; parameters held by reference clone their
// elements so the loop body owns them.
func (c *Ctx) iterSource(iter hir.Expr) (string, error) {
	if call, ok := iter.(*hir.Call); ok && call.Func == "range" {
		return c.genRange(call)
	}

	if mc, ok := iter.(*hir.MethodCall); ok {
		recv, err := c.genExpr(mc.Object)
		if err != nil {
			return "", err
		}

		switch mc.Method {
		case "items":
			return recv + ".iter()", nil
		case "keys":
			return recv + ".keys().cloned()", nil
		case "values":
			return recv + ".values().cloned()", nil
		}
	}

	text, err := c.genExpr(iter)
	if err != nil {
		return "", err
	}

	switch c.paramType(iter).Kind {
	case hir.KindString:
		return text + ".chars()", nil
	case hir.KindList, hir.KindSet:
		return text + ".iter().cloned()", nil
	default:
		return "(" + text + ").into_iter()", nil
	}
}

// genComprehension lowers list/set/dict comprehensions and generator
// expressions to an iterator chain. Generators after the first become
// flat_map stages; value is non-nil for dict comprehensions.
func (c *Ctx) genComprehension(element, value hir.Expr, gens []hir.Comprehension, collect string) (string, error) {
	if len(gens) == 0 {
		return "", diagnostics.Lowering(element.GetSpan(), "comprehension with no generators")
	}

	pattern := func(targets []string) string {
		if len(targets) == 1 {
			return targets[0]
		}

		return "(" + strings.Join(targets, ", ") + ")"
	}

	chain, err := c.iterSource(gens[0].Iter)
	if err != nil {
		return "", err
	}

	for i, g := range gens {
		pat := pattern(g.Targets)

		if i > 0 {
			inner, err := c.iterSource(g.Iter)
			if err != nil {
				return "", err
			}

			chain = fmt.Sprintf("%s.flat_map(|%s| %s)", chain, pattern(gens[i-1].Targets), inner)
		}

		for _, cond := range g.Conditions {
			test, err := c.genCond(cond)
			if err != nil {
				return "", err
			}

			chain = fmt.Sprintf("%s.filter(|%s| %s)", chain, pat, test)
		}
	}

	pat := pattern(gens[len(gens)-1].Targets)

	var body string
	if value != nil {
		key, err := c.genExpr(element)
		if err != nil {
			return "", err
		}

		val, err := c.genExpr(value)
		if err != nil {
			return "", err
		}

		body = fmt.Sprintf("(%s, %s)", key, val)
	} else {
		body, err = c.genExpr(element)
		if err != nil {
			return "", err
		}
	}

	chain = fmt.Sprintf("%s.map(|%s| %s)", chain, pat, body)

	if collect != "" {
		chain = fmt.Sprintf("%s.collect::<%s>()", chain, collect)
	}

	return chain, nil
}

func (c *Ctx) genIfExpr(n *hir.IfExpr) (string, error) {
	cond, err := c.genCond(n.Cond)
	if err != nil {
		return "", err
	}

	then, err := c.genExpr(n.Then)
	if err != nil {
		return "", err
	}

	els, err := c.genExpr(n.Else)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("if %s { %s } else { %s }", cond, then, els), nil
}

func (c *Ctx) genFString(n *hir.FString) (string, error) {
	var (
		format strings.Builder
		args   []string
	)

	for _, part := range n.Parts {
		if part.Expr == nil {
			format.WriteString(escapeFormat(part.Literal))

			continue
		}

		text, err := c.genExpr(part.Expr)
		if err != nil {
			return "", err
		}

		format.WriteString("{}")
		args = append(args, text)
	}

	if len(args) == 0 {
		return fmt.Sprintf("%q.to_string()", format.String()), nil
	}

	return fmt.Sprintf("format!(%q, %s)", format.String(), strings.Join(args, ", ")), nil
}

// escapeFormat doubles braces in literal f-string fragments so format!
// does not treat them as placeholders.
func escapeFormat(s string) string {
	s = strings.ReplaceAll(s, "{", "{{")

	return strings.ReplaceAll(s, "}", "}}")
}
