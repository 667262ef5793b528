package lifetime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depyler-lang/depyler/internal/hir"
	"github.com/depyler-lang/depyler/internal/position"
)

func fnReturning(ret hir.Type, value hir.Expr) *hir.Function {
	return &hir.Function{
		Name:    "f",
		RetType: ret,
		Body:    []hir.Stmt{&hir.Return{Value: value}},
		Class:   hir.InvalidClass,
	}
}

func TestNoBorrowedParams(t *testing.T) {
	fn := fnReturning(hir.Int(), hir.NewIntLit(position.Span{}, 1))

	a := Analyze(fn, nil)
	assert.False(t, a.NeedsExplicit())
	assert.Empty(t, a.ReturnLifetime)
}

func TestSingleBorrowElides(t *testing.T) {
	fn := fnReturning(hir.Int(), hir.NewIntLit(position.Span{}, 0))

	a := Analyze(fn, []string{"items"})
	assert.False(t, a.NeedsExplicit())
}

func TestMultipleBorrowsWithoutBorrowingReturnElide(t *testing.T) {
	fn := fnReturning(hir.Bool(), hir.NewVar(position.Span{}, "ok"))

	a := Analyze(fn, []string{"a", "b"})
	assert.False(t, a.NeedsExplicit())
	assert.Empty(t, a.Outlives)
}

func TestReturnedParamGetsExplicitLifetime(t *testing.T) {
	fn := fnReturning(hir.Str(), hir.NewVar(position.Span{}, "text"))

	a := Analyze(fn, []string{"text"})
	require.True(t, a.NeedsExplicit())
	assert.Equal(t, []string{"'a"}, a.Lifetimes)
	assert.Equal(t, "'a", a.ReturnLifetime)
	assert.Equal(t, "'a", a.ParamLifetimes["text"])
	assert.Empty(t, a.Outlives)
}

func TestSecondaryBorrowsOutliveReturned(t *testing.T) {
	fn := fnReturning(hir.Str(), hir.NewVar(position.Span{}, "left"))

	a := Analyze(fn, []string{"left", "right"})
	require.True(t, a.NeedsExplicit())
	assert.Equal(t, []string{"'a", "'b"}, a.Lifetimes)
	assert.Equal(t, "'a", a.ParamLifetimes["left"])
	assert.Equal(t, "'b", a.ParamLifetimes["right"])
	require.Len(t, a.Outlives, 1)
	assert.Equal(t, [2]string{"'b", "'a"}, a.Outlives[0])
	assert.Equal(t, "where 'b: 'a", a.WhereClause())
}

func TestSliceReturnStaysOwned(t *testing.T) {
	// Slicing lowers to an owned collect/to_vec value, so a sliced tail
	// must not promote the signature to explicit lifetimes.
	slice := &hir.SliceExpr{Base: hir.NewVar(position.Span{}, "items"), Stop: hir.NewIntLit(position.Span{}, 3)}
	fn := fnReturning(hir.ListOf(hir.Int()), slice)

	a := Analyze(fn, []string{"items", "other"})
	assert.False(t, a.NeedsExplicit())
	assert.Empty(t, a.ReturnLifetime)
}

func TestCopyReturnNeverBorrows(t *testing.T) {
	fn := fnReturning(hir.Int(), hir.NewVar(position.Span{}, "nums"))

	a := Analyze(fn, []string{"nums", "more"})
	assert.False(t, a.NeedsExplicit())
}

func TestGenericListOrdering(t *testing.T) {
	fn := fnReturning(hir.Str(), hir.NewVar(position.Span{}, "s"))

	a := Analyze(fn, []string{"s", "t"})
	assert.Equal(t, "<'a, 'b, T, U>", a.GenericList([]string{"T", "U"}))
	assert.Equal(t, "<'a, 'b>", a.GenericList(nil))

	var none Analysis
	assert.Equal(t, "", none.GenericList(nil))
	assert.Equal(t, "<T>", none.GenericList([]string{"T"}))
}

func TestNeverStatic(t *testing.T) {
	fn := fnReturning(hir.Str(), hir.NewVar(position.Span{}, "a"))

	a := Analyze(fn, []string{"a", "b", "c"})
	for _, lt := range a.Lifetimes {
		assert.NotEqual(t, "'static", lt)
	}
}
