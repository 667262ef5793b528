// Package codegen lowers HIR to Rust source text. Each compilation unit
// owns one Ctx; nothing here is shared across units.
package codegen

import (
	"fmt"
	"strings"

	"github.com/depyler-lang/depyler/internal/hir"
	"github.com/depyler-lang/depyler/internal/typemap"
)

// Ctx is the per-function code generation context. It carries the
// information the expression and statement generators consult: parameter
// types and passing modes, the mutability set, which names accept varargs,
// and the accumulated module needs.
type Ctx struct {
	Module *hir.Module
	Fn     *hir.Function
	Mapper *typemap.Mapper
	Needs  *typemap.Needs

	// ParamTypes maps parameter names to their HIR types.
	ParamTypes map[string]hir.Type
	// ParamModes records how each parameter is passed.
	ParamModes map[string]typemap.ParamMode
	// Mutable is the exact set of names emitted with `let mut`.
	Mutable map[string]bool
	// declared tracks names already introduced, so a second write becomes
	// plain assignment instead of a new binding.
	declared map[string]bool
	// Varargs names functions declared with *args; call sites wrap the
	// trailing arguments in a vec.
	Varargs map[string]bool
	// modules names imported Python modules (by binding name), so method
	// calls on them route through the stdlib tables.
	modules map[string]string

	IsClassMethod bool
	// inTry marks that statements are being lowered inside the synthetic
	// try closure, where fallible expressions may use `?` and raise
	// lowers to an Err return.
	inTry bool
	// retLifetime is set when the function's return type borrows from a
	// parameter; it suppresses re-owning coercions on return.
	retLifetime string
}

// NewCtx builds a context for one function of a module.
func NewCtx(mod *hir.Module, fn *hir.Function, mapper *typemap.Mapper) *Ctx {
	c := &Ctx{
		Module:     mod,
		Fn:         fn,
		Mapper:     mapper,
		Needs:      mapper.Needs,
		ParamTypes: make(map[string]hir.Type, len(fn.Params)),
		ParamModes: make(map[string]typemap.ParamMode, len(fn.Params)),
		Mutable:    computeMutable(fn),
		declared:   make(map[string]bool),
		Varargs:    make(map[string]bool),
		modules:    make(map[string]string),
	}

	for _, p := range fn.Params {
		c.ParamTypes[p.Name] = p.Type
		c.declared[p.Name] = true
	}

	c.IsClassMethod = fn.Properties.IsClassMethod

	for _, f := range mod.Functions {
		if _, ok := f.Annotations["varargs"]; ok {
			c.Varargs[f.Name] = true
		}
	}

	for _, imp := range mod.Imports {
		name := imp.Module
		if imp.Alias != "" {
			name = imp.Alias
		}

		if len(imp.Names) == 0 {
			c.modules[name] = imp.Module
		}
	}

	return c
}

// stringProducing are string methods whose result is again a string, so
// chained calls keep their receiver typing.
var stringProducing = map[string]bool{
	"upper":   true,
	"lower":   true,
	"strip":   true,
	"lstrip":  true,
	"rstrip":  true,
	"replace": true,
	"join":    true,
}

// paramType returns the HIR type of a parameter variable, or Unknown.
func (c *Ctx) paramType(e hir.Expr) hir.Type {
	switch n := e.(type) {
	case *hir.Var:
		if t, ok := c.ParamTypes[n.Name]; ok {
			return t
		}
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
		}
	case *hir.MethodCall:
		if stringProducing[n.Method] && c.paramType(n.Object).Kind == hir.KindString {
			return hir.Str()
		}
	}

	return e.InferredType()
}

// moduleOf resolves an expression to an imported Python module path, if it
// is one. `os.path` style chains resolve through attribute nodes.
func (c *Ctx) moduleOf(e hir.Expr) (string, bool) {
	switch n := e.(type) {
	case *hir.Var:
		if mod, ok := c.modules[n.Name]; ok {
			return mod, true
		}
	case *hir.Attribute:
		if base, ok := c.moduleOf(n.Value); ok {
			return base + "." + n.Attr, true
		}
	}

	return "", false
}

// writer accumulates indented Rust lines.
type writer struct {
	b      strings.Builder
	indent int
}

func (w *writer) line(format string, args ...any) {
	for i := 0; i < w.indent; i++ {
		w.b.WriteString("    ")
	}

	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

// open writes a line and increases the indent, for `... {` lines.
func (w *writer) open(format string, args ...any) {
	w.line(format, args...)
	w.indent++
}

// close decreases the indent and writes a closing line.
func (w *writer) close(text string) {
	w.indent--
	w.line("%s", text)
}

func (w *writer) blank() { w.b.WriteByte('\n') }

func (w *writer) String() string { return w.b.String() }

// mutatingMethods are receiver methods that require `let mut` on the
// receiver binding.
var mutatingMethods = map[string]bool{
	"append":     true,
	"extend":     true,
	"insert":     true,
	"add":        true,
	"remove":     true,
	"discard":    true,
	"pop":        true,
	"popleft":    true,
	"appendleft": true,
	"push":       true,
	"clear":      true,
	"sort":       true,
	"reverse":    true,
	"update":     true,
	"setdefault": true,
}

// computeMutable finds the names a body rebinds or mutates. The result is
// exact: emission uses `let mut` for these names and plain `let` otherwise.
func computeMutable(fn *hir.Function) map[string]bool {
	assigned := make(map[string]int)
	mutable := make(map[string]bool)

	markExpr := func(e hir.Expr) {
		hir.WalkExpr(e, func(x hir.Expr) bool {
			if mc, ok := x.(*hir.MethodCall); ok && mutatingMethods[mc.Method] {
				if v, ok := mc.Object.(*hir.Var); ok {
					mutable[v.Name] = true
				}
			}

			return true
		})
	}

	hir.WalkStmts(fn.Body, func(s hir.Stmt) bool {
		switch n := s.(type) {
		case *hir.Assign:
			switch n.Target.Kind {
			case hir.TargetSymbol:
				assigned[n.Target.Name]++
				// Desugared augmented assignment reads the name it
				// writes, which makes the binding mutable even on a
				// single occurrence.
				if refersTo(n.Value, n.Target.Name) {
					mutable[n.Target.Name] = true
				}
			case hir.TargetTuple:
				for _, name := range n.Target.Elems {
					assigned[name]++
				}
			case hir.TargetIndex:
				if v, ok := n.Target.Base.(*hir.Var); ok {
					mutable[v.Name] = true
				}
			case hir.TargetAttribute:
				if v, ok := n.Target.Value.(*hir.Var); ok {
					mutable[v.Name] = true
				}
			}

			if n.Value != nil {
				markExpr(n.Value)
			}
		case *hir.For:
			if n.Iter != nil {
				markExpr(n.Iter)
			}
		default:
			for _, e := range hir.StmtExprs(s) {
				markExpr(e)
			}
		}

		return true
	})

	params := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		params[p.Name] = true
	}

	for name, n := range assigned {
		if n > 1 || params[name] {
			mutable[name] = true
		}
	}

	// Names assigned in both a try body and one of its handlers are
	// hoisted and assigned on both arms.
	hir.WalkStmts(fn.Body, func(s hir.Stmt) bool {
		if t, ok := s.(*hir.Try); ok {
			for name := range hoistedNames(t) {
				mutable[name] = true
			}
		}

		return true
	})

	return mutable
}

// refersTo reports whether e reads the given name.
func refersTo(e hir.Expr, name string) bool {
	found := false

	hir.WalkExpr(e, func(x hir.Expr) bool {
		if v, ok := x.(*hir.Var); ok && v.Name == name {
			found = true
		}

		return !found
	})

	return found
}

// assignedNames collects symbol targets assigned anywhere in stmts.
func assignedNames(stmts []hir.Stmt) map[string]bool {
	out := make(map[string]bool)

	hir.WalkStmts(stmts, func(s hir.Stmt) bool {
		if a, ok := s.(*hir.Assign); ok && a.Target.Kind == hir.TargetSymbol {
			out[a.Target.Name] = true
		}

		return true
	})

	return out
}

// hoistedNames are the names assigned both inside a try body and in at
// least one handler; they get a Default binding before the try.
func hoistedNames(t *hir.Try) map[string]bool {
	inTry := assignedNames(t.Body)
	out := make(map[string]bool)

	for _, h := range t.Handlers {
		for name := range assignedNames(h.Body) {
			if inTry[name] {
				out[name] = true
			}
		}
	}

	return out
}
