package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/depyler-lang/depyler/internal/diagnostics"
	"github.com/depyler-lang/depyler/internal/hir"
	"github.com/depyler-lang/depyler/internal/typemap"
)

func (c *Ctx) genBody(w *writer, stmts []hir.Stmt) error {
	for _, s := range stmts {
		if err := c.genStmt(w, s); err != nil {
			return err
		}
	}

	return nil
}

func (c *Ctx) genStmt(w *writer, s hir.Stmt) error {
	switch n := s.(type) {
	case *hir.Assign:
		return c.genAssign(w, n)
	case *hir.Return:
		return c.genReturn(w, n)
	case *hir.If:
		return c.genIf(w, n)
	case *hir.While:
		cond, err := c.genCond(n.Cond)
		if err != nil {
			return err
		}

		w.open("while %s {", cond)

		if err := c.genBody(w, n.Body); err != nil {
			return err
		}

		w.close("}")

		return nil
	case *hir.For:
		return c.genFor(w, n)
	case *hir.Break:
		if n.Label != "" {
			w.line("break '%s;", n.Label)
		} else {
			w.line("break;")
		}

		return nil
	case *hir.Continue:
		if n.Label != "" {
			w.line("continue '%s;", n.Label)
		} else {
			w.line("continue;")
		}

		return nil
	case *hir.With:
		return c.genWith(w, n)
	case *hir.Try:
		return c.genTry(w, n)
	case *hir.Raise:
		return c.genRaise(w, n)
	case *hir.Assert:
		return c.genAssert(w, n)
	case *hir.ExprStmt:
		text, err := c.genExpr(n.Value)
		if err != nil {
			return err
		}

		w.line("%s;", text)

		return nil
	case *hir.Pass:
		return nil
	case *hir.Block:
		return c.genBody(w, n.Stmts)
	case *hir.FunctionDef:
		return c.genClosure(w, n.Def)
	default:
		return diagnostics.Lowering(s.GetSpan(), fmt.Sprintf("no lowering for %T", s))
	}
}

func (c *Ctx) genAssign(w *writer, n *hir.Assign) error {
	// A bare annotation declares nothing; the binding appears at the
	// first real assignment.
	if n.Value == nil {
		return nil
	}

	// Annotations type otherwise-untypable empty literals.
	if n.Annotation != nil {
		switch lit := n.Value.(type) {
		case *hir.ListLit:
			lit.SetInferredType(*n.Annotation)
		case *hir.DictLit:
			lit.SetInferredType(*n.Annotation)
		case *hir.SetLit:
			lit.SetInferredType(*n.Annotation)
		}
	}

	value, err := c.genExpr(n.Value)
	if err != nil {
		return err
	}

	switch n.Target.Kind {
	case hir.TargetSymbol:
		name := n.Target.Name
		if c.declared[name] {
			w.line("%s = %s;", name, value)

			return nil
		}

		c.declared[name] = true

		kw := "let"
		if c.Mutable[name] {
			kw = "let mut"
		}

		if n.Annotation != nil {
			w.line("%s %s: %s = %s;", kw, name, c.Mapper.Map(*n.Annotation), value)
		} else {
			w.line("%s %s = %s;", kw, name, value)
		}

		return nil
	case hir.TargetTuple:
		parts := make([]string, len(n.Target.Elems))
		for i, name := range n.Target.Elems {
			if c.Mutable[name] {
				parts[i] = "mut " + name
			} else {
				parts[i] = name
			}

			c.declared[name] = true
		}

		w.line("let (%s) = %s;", strings.Join(parts, ", "), value)

		return nil
	case hir.TargetIndex:
		base, err := c.genExpr(n.Target.Base)
		if err != nil {
			return err
		}

		idx, err := c.genExpr(n.Target.Idx)
		if err != nil {
			return err
		}

		if c.paramType(n.Target.Base).Kind == hir.KindDict {
			w.line("%s.insert(%s, %s);", base, idx, value)
		} else {
			w.line("%s[%s as usize] = %s;", base, idx, value)
		}

		return nil
	case hir.TargetAttribute:
		obj, err := c.genExpr(n.Target.Value)
		if err != nil {
			return err
		}

		w.line("%s.%s = %s;", obj, n.Target.Attr, value)

		return nil
	}

	return diagnostics.Lowering(n.GetSpan(), "unknown assignment target")
}

func (c *Ctx) genReturn(w *writer, n *hir.Return) error {
	if n.Value == nil {
		if c.inTry {
			w.line("return Ok(());")
		} else {
			w.line("return;")
		}

		return nil
	}

	value, err := c.genExpr(n.Value)
	if err != nil {
		return err
	}

	// Borrowed string parameters returned as owned values re-own here.
	if v, ok := n.Value.(*hir.Var); ok {
		if c.ParamModes[v.Name] == typemap.ByRef && c.ParamTypes[v.Name].Kind == hir.KindString &&
			c.Fn.RetType.Kind == hir.KindString && c.retLifetime == "" {
			value += ".to_string()"
		}
	}

	if c.inTry {
		w.line("return Ok(%s);", value)
	} else {
		w.line("return %s;", value)
	}

	return nil
}

func (c *Ctx) genIf(w *writer, n *hir.If) error {
	cond, err := c.genCond(n.Cond)
	if err != nil {
		return err
	}

	w.open("if %s {", cond)

	if err := c.genBody(w, n.Then); err != nil {
		return err
	}

	// elif chains fold into `else if`.
	for len(n.Else) == 1 {
		next, ok := n.Else[0].(*hir.If)
		if !ok {
			break
		}

		cond, err := c.genCond(next.Cond)
		if err != nil {
			return err
		}

		w.close("} else if " + cond + " {")
		w.indent++

		if err := c.genBody(w, next.Then); err != nil {
			return err
		}

		n = next
	}

	if len(n.Else) > 0 {
		w.close("} else {")
		w.indent++

		if err := c.genBody(w, n.Else); err != nil {
			return err
		}
	}

	w.close("}")

	return nil
}

func (c *Ctx) genFor(w *writer, n *hir.For) error {
	iter, err := c.iterSource(n.Iter)
	if err != nil {
		return err
	}

	pattern := n.Targets[0]
	if len(n.Targets) > 1 {
		pattern = "(" + strings.Join(n.Targets, ", ") + ")"
	}

	for _, t := range n.Targets {
		c.declared[t] = true
	}

	w.open("for %s in %s {", pattern, iter)

	if err := c.genBody(w, n.Body); err != nil {
		return err
	}

	w.close("}")

	return nil
}

func (c *Ctx) genWith(w *writer, n *hir.With) error {
	// with open(path) as f: scopes a File handle; the block end drops it.
	if call, ok := n.Context.(*hir.Call); ok && call.Func == "open" && len(call.Args) >= 1 {
		path, err := c.genExpr(call.Args[0])
		if err != nil {
			return err
		}

		w.open("{")

		if n.Target != "" {
			c.declared[n.Target] = true
			w.line("let mut %s = std::fs::File::open(&%s).unwrap();", n.Target, path)
		} else {
			w.line("let _file = std::fs::File::open(&%s).unwrap();", path)
		}

		if err := c.genBody(w, n.Body); err != nil {
			return err
		}

		w.close("}")

		return nil
	}

	ctxExpr, err := c.genExpr(n.Context)
	if err != nil {
		return err
	}

	w.open("{")

	if n.Target != "" {
		c.declared[n.Target] = true
		w.line("let mut %s = %s;", n.Target, ctxExpr)
	} else {
		w.line("%s;", ctxExpr)
	}

	if err := c.genBody(w, n.Body); err != nil {
		return err
	}

	w.close("}")

	return nil
}

// parseFallbackHandler reports whether a handler's exception type is one
// the int/float parse-fallback rewrite may absorb.
func parseFallbackHandler(t string) bool {
	return t == "" || t == "Exception" || t == "ValueError"
}

// singleReturnLiteral extracts the literal from a body of exactly one
// `return <literal>` statement.
func singleReturnLiteral(body []hir.Stmt) (*hir.Literal, bool) {
	if len(body) != 1 {
		return nil, false
	}

	ret, ok := body[0].(*hir.Return)
	if !ok || ret.Value == nil {
		return nil, false
	}

	lit, ok := ret.Value.(*hir.Literal)

	return lit, ok
}

func (c *Ctx) genTry(w *writer, n *hir.Try) error {
	if done, err := c.tryParseFallback(w, n); done || err != nil {
		return err
	}

	if done, err := c.tryZeroDivision(w, n); done || err != nil {
		return err
	}

	return c.genTryGeneral(w, n)
}

// tryParseFallback rewrites `try: return int(s) / except ValueError:
// return fallback` into a parse with unwrap_or, with no try block at all.
func (c *Ctx) tryParseFallback(w *writer, n *hir.Try) (bool, error) {
	if len(n.Handlers) != 1 || len(n.Body) != 1 || len(n.OrElse) > 0 || len(n.FinalBody) > 0 {
		return false, nil
	}

	if !parseFallbackHandler(n.Handlers[0].ExceptionType) {
		return false, nil
	}

	fallback, ok := singleReturnLiteral(n.Handlers[0].Body)
	if !ok {
		return false, nil
	}

	ret, ok := n.Body[0].(*hir.Return)
	if !ok || ret.Value == nil {
		return false, nil
	}

	call, ok := ret.Value.(*hir.Call)
	if !ok || (call.Func != "int" && call.Func != "float") || len(call.Args) != 1 {
		return false, nil
	}

	if k := c.paramType(call.Args[0]).Kind; k != hir.KindString && k != hir.KindUnknown {
		return false, nil
	}

	target := "i32"

	if call.Func == "float" {
		target = "f64"
		if fallback.Kind != hir.LitFloat && fallback.Kind != hir.LitInt {
			return false, nil
		}
	} else if fallback.Kind != hir.LitInt {
		return false, nil
	}

	arg, err := c.genExpr(call.Args[0])
	if err != nil {
		return true, err
	}

	w.line("return %s.parse::<%s>().unwrap_or(%s);", arg, target, c.genLiteral(fallback))

	return true, nil
}

// tryZeroDivision rewrites `try: return a // b / except ZeroDivisionError:
// return fallback` into a branch, keeping floored-division semantics.
func (c *Ctx) tryZeroDivision(w *writer, n *hir.Try) (bool, error) {
	if len(n.Handlers) != 1 || len(n.Body) != 1 || len(n.OrElse) > 0 || len(n.FinalBody) > 0 {
		return false, nil
	}

	if n.Handlers[0].ExceptionType != "ZeroDivisionError" {
		return false, nil
	}

	fallback, ok := singleReturnLiteral(n.Handlers[0].Body)
	if !ok {
		return false, nil
	}

	ret, ok := n.Body[0].(*hir.Return)
	if !ok || ret.Value == nil {
		return false, nil
	}

	div, ok := ret.Value.(*hir.Binary)
	if !ok || (div.Op != hir.OpFloorDiv && div.Op != hir.OpDiv && div.Op != hir.OpMod) {
		return false, nil
	}

	divisor, err := c.genExpr(div.Right)
	if err != nil {
		return true, err
	}

	quotient, err := c.genExpr(ret.Value)
	if err != nil {
		return true, err
	}

	w.open("if %s == 0 {", divisor)
	w.line("return %s;", c.genLiteral(fallback))
	w.close("}")
	w.blank()
	w.line("return %s;", quotient)

	return true, nil
}

// returnsOnAllPaths reports whether every statement path ends in a return.
// It only inspects the top-level statement list and if/else arms, which
// covers the bodies the try lowering accepts.
func returnsOnAllPaths(stmts []hir.Stmt) bool {
	if len(stmts) == 0 {
		return false
	}

	switch last := stmts[len(stmts)-1].(type) {
	case *hir.Return:
		return true
	case *hir.Raise:
		return true
	case *hir.If:
		return returnsOnAllPaths(last.Then) && returnsOnAllPaths(last.Else)
	default:
		return false
	}
}

func containsReturn(stmts []hir.Stmt) bool {
	found := false

	hir.WalkStmts(stmts, func(s hir.Stmt) bool {
		if _, ok := s.(*hir.Return); ok {
			found = true
		}

		return !found
	})

	return found
}

// genTryGeneral lowers try/except/else/finally through an immediately
// invoked closure returning Result. Names assigned in both the try body
// and a handler are hoisted to a Default binding that dominates all reads.
func (c *Ctx) genTryGeneral(w *writer, n *hir.Try) error {
	c.Needs.ErrorTrait = true

	hoisted := make([]string, 0)
	for name := range hoistedNames(n) {
		hoisted = append(hoisted, name)
	}

	sort.Strings(hoisted)

	for _, name := range hoisted {
		if !c.declared[name] {
			w.line("let mut %s = Default::default();", name)
			c.declared[name] = true
		}
	}

	hasReturn := containsReturn(n.Body)
	if hasReturn && !returnsOnAllPaths(n.Body) {
		return diagnostics.Lowering(n.GetSpan(), "try body mixes returning and falling through")
	}

	retType := "()"
	if hasReturn {
		retType = c.Mapper.Map(c.Fn.RetType)
	}

	w.open("let __result: Result<%s, Box<dyn std::error::Error>> = (|| {", retType)

	wasInTry := c.inTry
	c.inTry = true

	if err := c.genBody(w, n.Body); err != nil {
		c.inTry = wasInTry

		return err
	}

	c.inTry = wasInTry

	if !hasReturn {
		w.line("Ok(())")
	}

	w.close("})();")
	w.blank()

	if hasReturn {
		w.open("match __result {")
		w.open("Ok(value) => {")

		if err := c.genBody(w, n.OrElse); err != nil {
			return err
		}

		w.line("return value;")
		w.close("}")
		w.open("Err(err) => {")

		if err := c.genHandlers(w, n.Handlers); err != nil {
			return err
		}

		w.close("}")
		w.close("}")
	} else {
		if len(n.OrElse) > 0 {
			w.open("if __result.is_ok() {")

			if err := c.genBody(w, n.OrElse); err != nil {
				return err
			}

			w.close("}")
			w.blank()
		}

		w.open("if let Err(err) = __result {")

		if err := c.genHandlers(w, n.Handlers); err != nil {
			return err
		}

		w.close("}")
	}

	if len(n.FinalBody) > 0 {
		w.blank()

		if err := c.genBody(w, n.FinalBody); err != nil {
			return err
		}
	}

	return nil
}

// genHandlers dispatches on the caught error. Typed handlers chain
// downcast_ref tests; the error-binding name, when present, binds the
// message text.
func (c *Ctx) genHandlers(w *writer, handlers []hir.ExceptHandler) error {
	if len(handlers) == 0 {
		w.line("panic!(\"{}\", err);")

		return nil
	}

	catchAll := func(h hir.ExceptHandler) bool {
		return h.ExceptionType == "" || h.ExceptionType == "Exception"
	}

	// A single catch-all handler needs no dispatch.
	if len(handlers) == 1 && catchAll(handlers[0]) {
		if handlers[0].Name != "" {
			c.declared[handlers[0].Name] = true
			w.line("let %s = err.to_string();", handlers[0].Name)
		} else {
			w.line("let _ = &err;")
		}

		return c.genBody(w, handlers[0].Body)
	}

	for i, h := range handlers {
		if catchAll(h) {
			if i > 0 {
				w.close("} else {")
				w.indent++
			}

			if h.Name != "" {
				c.declared[h.Name] = true
				w.line("let %s = err.to_string();", h.Name)
			}

			if err := c.genBody(w, h.Body); err != nil {
				return err
			}

			w.close("}")

			return nil
		}

		test := fmt.Sprintf("err.downcast_ref::<%s>().is_some()", h.ExceptionType)
		if i == 0 {
			w.open("if %s {", test)
		} else {
			w.close("} else if " + test + " {")
			w.indent++
		}

		if h.Name != "" {
			c.declared[h.Name] = true
			w.line("let %s = err.to_string();", h.Name)
		}

		if err := c.genBody(w, h.Body); err != nil {
			return err
		}
	}

	w.close("} else {")
	w.indent++
	w.line("panic!(\"{}\", err);")
	w.close("}")

	return nil
}

func (c *Ctx) genRaise(w *writer, n *hir.Raise) error {
	// Bare raise re-raises the caught error.
	if n.Exception == nil {
		if c.inTry {
			w.line("return Err(err);")
		} else {
			w.line("panic!(\"re-raise outside handler\");")
		}

		return nil
	}

	call, isCall := n.Exception.(*hir.Call)

	if c.inTry {
		if isCall && c.isExceptionClass(call.Func) {
			args, err := c.genArgs(call.Args)
			if err != nil {
				return err
			}

			w.line("return Err(Box::new(%s::new(%s)));", call.Func, strings.Join(args, ", "))

			return nil
		}

		msg, err := c.raiseMessage(n.Exception)
		if err != nil {
			return err
		}

		w.line("return Err(%s.into());", msg)

		return nil
	}

	msg, err := c.raiseMessage(n.Exception)
	if err != nil {
		return err
	}

	w.line("panic!(\"{}\", %s);", msg)

	return nil
}

// raiseMessage renders the message text of a raised builtin exception,
// e.g. ValueError("bad input").
func (c *Ctx) raiseMessage(e hir.Expr) (string, error) {
	if call, ok := e.(*hir.Call); ok && len(call.Args) == 1 {
		arg, err := c.genExpr(call.Args[0])
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("format!(\"%s: {}\", %s)", call.Func, arg), nil
	}

	if call, ok := e.(*hir.Call); ok && len(call.Args) == 0 {
		return fmt.Sprintf("%q.to_string()", call.Func), nil
	}

	return c.genExpr(e)
}

// isExceptionClass reports whether the name is a user exception class in
// this module.
func (c *Ctx) isExceptionClass(name string) bool {
	for _, cls := range c.Module.Classes {
		if cls.Name != name {
			continue
		}

		for _, base := range cls.Bases {
			if strings.Contains(base, "Exception") || strings.Contains(base, "Error") {
				return true
			}
		}
	}

	return false
}

func (c *Ctx) genAssert(w *writer, n *hir.Assert) error {
	cond, err := c.genCond(n.Test)
	if err != nil {
		return err
	}

	if n.Msg != nil {
		msg, err := c.genExpr(n.Msg)
		if err != nil {
			return err
		}

		w.line("assert!(%s, \"{}\", %s);", cond, msg)

		return nil
	}

	w.line("assert!(%s);", cond)

	return nil
}

// genClosure lowers a nested def to a move closure binding.
func (c *Ctx) genClosure(w *writer, fn *hir.Function) error {
	params := make([]string, len(fn.Params))

	for i, p := range fn.Params {
		if p.Type.Kind == hir.KindUnknown {
			params[i] = p.Name
		} else {
			params[i] = p.Name + ": " + c.Mapper.Map(p.Type)
		}

		c.declared[p.Name] = true
		c.ParamTypes[p.Name] = p.Type
	}

	ret := ""
	if fn.RetType.Kind != hir.KindUnknown && fn.RetType.Kind != hir.KindNone {
		ret = " -> " + c.Mapper.Map(fn.RetType)
	}

	c.declared[fn.Name] = true

	w.open("let %s = move |%s|%s {", fn.Name, strings.Join(params, ", "), ret)

	if err := c.genBody(w, fn.Body); err != nil {
		return err
	}

	w.close("};")

	return nil
}
