package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/depyler-lang/depyler/internal/astbridge"
)

func genericsOf(t *testing.T, src string) GenericInfo {
	t.Helper()

	mod, err := astbridge.ConvertSource(context.Background(), "test.py", []byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, mod.Functions)

	return InferGenerics(mod.Functions[0])
}

func TestGenericMax2(t *testing.T) {
	info := genericsOf(t, `
def max2(a: T, b: T) -> T:
    return a if a > b else b
`)

	require.Equal(t, []string{"T"}, info.TypeParams)
	require.Equal(t, []string{"Clone", "PartialOrd"}, info.Bounds["T"])
}

func TestGenericArithmeticBound(t *testing.T) {
	info := genericsOf(t, `
def total(a: T, b: T) -> T:
    return a + b
`)

	require.Equal(t, []string{"Clone", "std::ops::Add"}, info.Bounds["T"])
}

func TestGenericEqualityBound(t *testing.T) {
	info := genericsOf(t, `
def same(a: T, b: T) -> bool:
    return a == b
`)

	require.Equal(t, []string{"Clone", "PartialEq"}, info.Bounds["T"])
}

func TestGenericMarkerBounds(t *testing.T) {
	info := genericsOf(t, `
def measure(xs: T) -> int:
    xs.push(1)
    return len(xs)
`)

	require.Equal(t, []string{"Clone", BoundHasLen, BoundVecLike}, info.Bounds["T"])
}

func TestGenericCloneBound(t *testing.T) {
	info := genericsOf(t, `
def dup(x: T) -> T:
    return x.clone()
`)

	// Clone is the default bound; explicit .clone() must not duplicate it.
	require.Equal(t, []string{"Clone"}, info.Bounds["T"])
}

func TestMultipleTypeVarsSorted(t *testing.T) {
	info := genericsOf(t, `
def pair(a: U, b: T) -> T:
    return b
`)

	require.Equal(t, []string{"T", "U"}, info.TypeParams)
}

func TestNonGenericFunction(t *testing.T) {
	info := genericsOf(t, `
def f(n: int) -> int:
    return n
`)

	require.False(t, info.IsGeneric())
}
