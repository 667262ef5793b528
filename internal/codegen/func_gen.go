package codegen

import (
	"fmt"
	"strings"

	"github.com/depyler-lang/depyler/internal/hir"
	"github.com/depyler-lang/depyler/internal/inference"
	"github.com/depyler-lang/depyler/internal/lifetime"
	"github.com/depyler-lang/depyler/internal/typemap"
)

// syntheticBounds are inference markers with no trait equivalent; they are
// dropped at emission.
var syntheticBounds = map[string]bool{
	inference.BoundHasLen:  true,
	inference.BoundVecLike: true,
}

// consumesParam reports whether the body takes ownership of the parameter:
// returning it whole, unpacking it, or handing it to another call.
func consumesParam(fn *hir.Function, name string) bool {
	consumed := false

	hir.WalkStmts(fn.Body, func(s hir.Stmt) bool {
		switch n := s.(type) {
		case *hir.Return:
			if isVarNamed(n.Value, name) {
				consumed = true
			}
		case *hir.Assign:
			if n.Target.Kind == hir.TargetTuple && isVarNamed(n.Value, name) {
				consumed = true
			}
		}

		for _, e := range hir.StmtExprs(s) {
			hir.WalkExpr(e, func(x hir.Expr) bool {
				switch call := x.(type) {
				case *hir.Call:
					for _, a := range call.Args {
						if isVarNamed(a, name) {
							consumed = true
						}
					}
				case *hir.MethodCall:
					for _, a := range call.Args {
						if isVarNamed(a, name) {
							consumed = true
						}
					}
				case *hir.FString:
					for _, p := range call.Parts {
						if p.Expr != nil && isVarNamed(p.Expr, name) {
							consumed = true
						}
					}
				}

				return !consumed
			})
		}

		return !consumed
	})

	return consumed
}

func isVarNamed(e hir.Expr, name string) bool {
	v, ok := e.(*hir.Var)

	return ok && v.Name == name
}

// isTypeVarLike reports types that stand for inferred generics; those
// parameters pass by value since Clone is always in their bounds.
func isTypeVarLike(t hir.Type) bool {
	if t.Kind == hir.KindTypeVar {
		return true
	}

	return t.Kind == hir.KindCustom && len(t.Name) == 1 &&
		t.Name[0] >= 'A' && t.Name[0] <= 'Z'
}

// GenFunction emits one free function or method.
func GenFunction(mod *hir.Module, fn *hir.Function, mapper *typemap.Mapper) (string, error) {
	c := NewCtx(mod, fn, mapper)
	generics := inference.InferGenerics(fn)

	type paramRender struct {
		name string
		typ  string
		mode typemap.ParamMode
	}

	params := make([]paramRender, 0, len(fn.Params))
	borrowed := make([]string, 0, len(fn.Params))

	for _, p := range fn.Params {
		var (
			typ  string
			mode typemap.ParamMode
		)

		if isTypeVarLike(p.Type) {
			typ, mode = mapper.Map(p.Type), typemap.ByValue
		} else {
			typ, mode = mapper.MapParam(p.Type, c.Mutable[p.Name], consumesParam(fn, p.Name))
		}

		c.ParamModes[p.Name] = mode

		if mode == typemap.ByRef || mode == typemap.ByMutRef {
			borrowed = append(borrowed, p.Name)
		}

		params = append(params, paramRender{name: p.Name, typ: typ, mode: mode})
	}

	analysis := lifetime.Analyze(fn, borrowed)
	c.retLifetime = analysis.ReturnLifetime

	// Splice lifetimes into borrowed parameter types.
	for i := range params {
		lt, ok := analysis.ParamLifetimes[params[i].name]
		if !ok {
			continue
		}

		switch {
		case strings.HasPrefix(params[i].typ, "&mut "):
			params[i].typ = "&" + lt + " mut " + params[i].typ[len("&mut "):]
		case strings.HasPrefix(params[i].typ, "&"):
			params[i].typ = "&" + lt + " " + params[i].typ[1:]
		}
	}

	typeParams := make([]string, 0, len(generics.TypeParams))

	for _, tp := range generics.TypeParams {
		bounds := make([]string, 0, len(generics.Bounds[tp]))

		for _, b := range generics.Bounds[tp] {
			if !syntheticBounds[b] {
				bounds = append(bounds, b)
			}
		}

		if len(bounds) > 0 {
			typeParams = append(typeParams, tp+": "+strings.Join(bounds, " + "))
		} else {
			typeParams = append(typeParams, tp)
		}
	}

	var sig strings.Builder

	for _, line := range docLines(fn) {
		sig.WriteString(line)
		sig.WriteByte('\n')
	}

	sig.WriteString("pub ")

	if fn.Properties.IsAsync {
		sig.WriteString("async ")
	}

	sig.WriteString("fn " + fn.Name)
	sig.WriteString(analysis.GenericList(typeParams))
	sig.WriteByte('(')

	rendered := make([]string, 0, len(params)+1)
	if fn.Class != hir.InvalidClass && !fn.Properties.IsStaticMethod && !fn.Properties.IsClassMethod {
		if methodMutatesSelf(fn) {
			rendered = append(rendered, "&mut self")
		} else {
			rendered = append(rendered, "&self")
		}
	}

	for _, p := range params {
		rendered = append(rendered, p.name+": "+p.typ)
	}

	sig.WriteString(strings.Join(rendered, ", "))
	sig.WriteByte(')')

	if ret := returnType(c, analysis); ret != "" {
		sig.WriteString(" -> " + ret)
	}

	if wc := analysis.WhereClause(); wc != "" {
		sig.WriteByte('\n')
		sig.WriteString(wc)
	}

	w := &writer{}
	w.open("%s {", sig.String())

	if err := c.genBody(w, fn.Body); err != nil {
		return "", err
	}

	w.close("}")

	return w.String(), nil
}

// returnType renders the function's Rust return type, or "" when the
// function returns nothing nameable.
func returnType(c *Ctx, analysis lifetime.Analysis) string {
	ret := c.Fn.RetType
	if ret.Kind == hir.KindNone {
		return ""
	}

	if ret.Kind == hir.KindUnknown {
		return ""
	}

	mapped := c.Mapper.Map(ret)

	if analysis.ReturnLifetime != "" {
		if ret.Kind == hir.KindString {
			return "&" + analysis.ReturnLifetime + " str"
		}

		return "&" + analysis.ReturnLifetime + " " + mapped
	}

	return mapped
}

// docLines renders attribute and doc-comment lines above a signature.
func docLines(fn *hir.Function) []string {
	var out []string

	if fn.Docstring != "" {
		for _, line := range strings.Split(strings.TrimRight(fn.Docstring, "\n"), "\n") {
			out = append(out, "/// "+strings.TrimRight(line, " "))
		}
	}

	if fn.Properties.PanicFree {
		out = append(out, `#[doc = " Depyler: verified panic-free"]`)
	}

	if fn.Properties.AlwaysTerminates {
		out = append(out, `#[doc = " Depyler: proven to terminate"]`)
	}

	for _, attr := range fn.Properties.CustomAttributes {
		out = append(out, fmt.Sprintf("#[%s]", attr))
	}

	return out
}

// methodMutatesSelf reports whether a method writes any self attribute or
// calls a mutating method on one.
func methodMutatesSelf(fn *hir.Function) bool {
	mutates := false

	hir.WalkStmts(fn.Body, func(s hir.Stmt) bool {
		if a, ok := s.(*hir.Assign); ok && a.Target.Kind == hir.TargetAttribute {
			if isVarNamed(a.Target.Value, "self") {
				mutates = true
			}
		}

		for _, e := range hir.StmtExprs(s) {
			hir.WalkExpr(e, func(x hir.Expr) bool {
				if mc, ok := x.(*hir.MethodCall); ok && mutatingMethods[mc.Method] {
					if attr, ok := mc.Object.(*hir.Attribute); ok && isVarNamed(attr.Value, "self") {
						mutates = true
					}
				}

				return !mutates
			})
		}

		return !mutates
	})

	return mutates
}
