// Package lifetime decides which by-reference parameters need explicit
// lifetime parameters and what outlives relations the signature carries.
package lifetime

import (
	"fmt"
	"strings"

	"github.com/depyler-lang/depyler/internal/hir"
)

// Analysis is the lifetime assignment for one function.
type Analysis struct {
	// ParamLifetimes maps borrowed parameter names to their lifetime
	// (e.g. "'a"). Parameters covered by elision are absent.
	ParamLifetimes map[string]string
	// ReturnLifetime is the lifetime the return type borrows with, or "".
	ReturnLifetime string
	// Lifetimes lists declared lifetime params in emission order.
	Lifetimes []string
	// Outlives lists "'a: 'b" relations in insertion order.
	Outlives [][2]string
}

// NeedsExplicit reports whether the signature carries lifetime parameters.
func (a Analysis) NeedsExplicit() bool { return len(a.Lifetimes) > 0 }

// GenericList renders the combined generic parameter list, lifetimes
// first, then type parameters. Empty when neither is present.
func (a Analysis) GenericList(typeParams []string) string {
	if len(a.Lifetimes) == 0 && len(typeParams) == 0 {
		return ""
	}

	parts := make([]string, 0, len(a.Lifetimes)+len(typeParams))
	parts = append(parts, a.Lifetimes...)
	parts = append(parts, typeParams...)

	return "<" + strings.Join(parts, ", ") + ">"
}

// WhereClause renders the outlives bounds, or "" when there are none.
func (a Analysis) WhereClause() string {
	if len(a.Outlives) == 0 {
		return ""
	}

	parts := make([]string, 0, len(a.Outlives))
	for _, o := range a.Outlives {
		parts = append(parts, o[0]+": "+o[1])
	}

	return "where " + strings.Join(parts, ", ")
}

// Analyze assigns lifetimes. borrowed lists the names of parameters passed
// by reference, in declaration order.
//
// Elision covers a single borrowed parameter with no borrowing return;
// explicit lifetimes appear when the return borrows from a parameter, or
// when multiple parameters are borrowed and the return is itself a borrow
// the compiler could not disambiguate. 'static is never invented.
func Analyze(fn *hir.Function, borrowed []string) Analysis {
	if len(borrowed) == 0 {
		return Analysis{}
	}

	returnsBorrow, source := returnBorrowSource(fn, borrowed)

	// One borrowed parameter: elision handles both shapes.
	if len(borrowed) == 1 && !returnsBorrow {
		return Analysis{}
	}

	// Multiple borrows without a borrowing return also elide: each
	// parameter gets its own anonymous lifetime.
	if !returnsBorrow {
		return Analysis{}
	}

	a := Analysis{ParamLifetimes: make(map[string]string, len(borrowed))}

	next := 0
	fresh := func() string {
		lt := fmt.Sprintf("'%c", 'a'+next)
		next++
		a.Lifetimes = append(a.Lifetimes, lt)

		return lt
	}

	// The borrow source takes 'a so the return can name it.
	primary := fresh()
	a.ReturnLifetime = primary

	for _, name := range borrowed {
		if name == source {
			a.ParamLifetimes[name] = primary

			continue
		}

		lt := fresh()
		a.ParamLifetimes[name] = lt
		// Secondary borrows must outlive the returned one when the body
		// can splice them into the result.
		a.Outlives = append(a.Outlives, [2]string{lt, primary})
	}

	return a
}

// returnBorrowSource detects whether the function returns a borrow of one
// of its by-reference parameters and which parameter it is. A direct
// `return p` or `return &p` tail on a borrowed parameter is the evidence
// used.
func returnBorrowSource(fn *hir.Function, borrowed []string) (bool, string) {
	borrowedSet := make(map[string]bool, len(borrowed))
	for _, b := range borrowed {
		borrowedSet[b] = true
	}

	// A return type that is itself Copy never borrows.
	switch fn.RetType.Kind {
	case hir.KindInt, hir.KindFloat, hir.KindBool, hir.KindNone:
		return false, ""
	}

	var (
		found  bool
		source string
	)

	hir.WalkStmts(fn.Body, func(s hir.Stmt) bool {
		ret, ok := s.(*hir.Return)
		if !ok || ret.Value == nil || found {
			return true
		}

		// Slice tails are not borrow evidence: slicing emits an owned
		// collect/to_vec conversion, never a subslice borrow.
		switch v := ret.Value.(type) {
		case *hir.Var:
			if borrowedSet[v.Name] {
				found, source = true, v.Name
			}
		case *hir.Borrow:
			if inner, ok := v.Inner.(*hir.Var); ok && borrowedSet[inner.Name] {
				found, source = true, inner.Name
			}
		}

		return true
	})

	return found, source
}
