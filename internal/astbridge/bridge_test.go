package astbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/depyler-lang/depyler/internal/diagnostics"
	"github.com/depyler-lang/depyler/internal/hir"
)

func convert(t *testing.T, src string) *hir.Module {
	t.Helper()

	mod, err := ConvertSource(context.Background(), "test.py", []byte(src))
	require.NoError(t, err)

	return mod
}

func convertErr(t *testing.T, src string) error {
	t.Helper()

	_, err := ConvertSource(context.Background(), "test.py", []byte(src))
	require.Error(t, err)

	return err
}

func TestConvertSimpleFunction(t *testing.T) {
	mod := convert(t, `
def add(a: int, b: int) -> int:
    return a + b
`)

	require.Len(t, mod.Functions, 1)

	fn := mod.Functions[0]
	require.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	require.True(t, fn.Params[0].Type.Equals(hir.Int()))
	require.True(t, fn.RetType.Equals(hir.Int()))

	require.Len(t, fn.Body, 1)

	ret, ok := fn.Body[0].(*hir.Return)
	require.True(t, ok)

	bin, ok := ret.Value.(*hir.Binary)
	require.True(t, ok)
	require.Equal(t, hir.OpAdd, bin.Op)
}

func TestDocstringExtraction(t *testing.T) {
	mod := convert(t, `
def f():
    """Adds numbers."""
    pass
`)

	require.Equal(t, "Adds numbers.", mod.Functions[0].Docstring)
	require.Len(t, mod.Functions[0].Body, 1)
	require.IsType(t, &hir.Pass{}, mod.Functions[0].Body[0])
}

func TestIsNoneLowersToMethodCall(t *testing.T) {
	mod := convert(t, `
def f(x):
    if x is None:
        return 1
    if x is not None:
        return 2
    return 0
`)

	body := mod.Functions[0].Body

	first, ok := body[0].(*hir.If)
	require.True(t, ok)

	mc, ok := first.Cond.(*hir.MethodCall)
	require.True(t, ok)
	require.Equal(t, "is_none", mc.Method)

	second := body[1].(*hir.If)
	require.Equal(t, "is_some", second.Cond.(*hir.MethodCall).Method)
}

func TestIsAgainstNonNoneFails(t *testing.T) {
	err := convertErr(t, `
def f(a, b):
    return a is b
`)

	var diag *diagnostics.Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Equal(t, diagnostics.KindUnsupportedConstruct, diag.Kind)
}

func TestChainedComparisonFails(t *testing.T) {
	err := convertErr(t, `
def f(a, b, c):
    return a < b < c
`)

	var diag *diagnostics.Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Equal(t, "chained comparison", diag.Construct)
}

func TestEvalFails(t *testing.T) {
	err := convertErr(t, `
def f(s):
    return eval(s)
`)

	var diag *diagnostics.Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Equal(t, "eval", diag.Construct)
}

func TestMultiTargetLiteralUnpackFails(t *testing.T) {
	err := convertErr(t, `
def f():
    a, b = 1, 2
`)

	var diag *diagnostics.Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Equal(t, "multi-target assignment", diag.Construct)
}

func TestTupleTargetSingleRHSAllowed(t *testing.T) {
	mod := convert(t, `
def f(p):
    a, b, c = p
    return a
`)

	assign, ok := mod.Functions[0].Body[0].(*hir.Assign)
	require.True(t, ok)
	require.Equal(t, hir.TargetTuple, assign.Target.Kind)
	require.Equal(t, []string{"a", "b", "c"}, assign.Target.Elems)
}

func TestYieldFails(t *testing.T) {
	err := convertErr(t, `
def gen():
    yield 1
`)

	var diag *diagnostics.Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Equal(t, "yield", diag.Construct)
}

func TestUnknownDecoratorFails(t *testing.T) {
	err := convertErr(t, `
@lru_cache
def f():
    pass
`)

	var diag *diagnostics.Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Equal(t, "@lru_cache", diag.Construct)
}

func TestElifChainFolds(t *testing.T) {
	mod := convert(t, `
def f(x: int) -> int:
    if x > 0:
        return 1
    elif x < 0:
        return -1
    else:
        return 0
`)

	outer, ok := mod.Functions[0].Body[0].(*hir.If)
	require.True(t, ok)
	require.Len(t, outer.Else, 1)

	inner, ok := outer.Else[0].(*hir.If)
	require.True(t, ok)
	require.Len(t, inner.Else, 1)
}

func TestAugmentedAssignDesugars(t *testing.T) {
	mod := convert(t, `
def f():
    x = 0
    x += 5
`)

	body := mod.Functions[0].Body
	require.Len(t, body, 2)

	second, ok := body[1].(*hir.Assign)
	require.True(t, ok)

	bin, ok := second.Value.(*hir.Binary)
	require.True(t, ok)
	require.Equal(t, hir.OpAdd, bin.Op)
}

func TestComprehensionPreservesFilter(t *testing.T) {
	mod := convert(t, `
def f(xs):
    return [x * 2 for x in xs if x > 0]
`)

	ret := mod.Functions[0].Body[0].(*hir.Return)

	comp, ok := ret.Value.(*hir.ListComp)
	require.True(t, ok)
	require.Len(t, comp.Generators, 1)
	require.Equal(t, []string{"x"}, comp.Generators[0].Targets)
	require.Len(t, comp.Generators[0].Conditions, 1)
}

func TestTryExceptShape(t *testing.T) {
	mod := convert(t, `
def safe(s: str) -> int:
    try:
        return int(s)
    except ValueError:
        return 0
    finally:
        pass
`)

	try, ok := mod.Functions[0].Body[0].(*hir.Try)
	require.True(t, ok)
	require.Len(t, try.Handlers, 1)
	require.Equal(t, "ValueError", try.Handlers[0].ExceptionType)
	require.Len(t, try.FinalBody, 1)
}

func TestFStringParts(t *testing.T) {
	mod := convert(t, `
def f(name):
    return f"hello {name}!"
`)

	ret := mod.Functions[0].Body[0].(*hir.Return)

	fs, ok := ret.Value.(*hir.FString)
	require.True(t, ok)
	require.Len(t, fs.Parts, 3)
	require.Equal(t, "hello ", fs.Parts[0].Literal)
	require.NotNil(t, fs.Parts[1].Expr)
	require.Equal(t, "!", fs.Parts[2].Literal)
}

func TestClassLowering(t *testing.T) {
	mod := convert(t, `
class Point:
    x: int
    y: int

    def norm(self) -> int:
        return self.x * self.x + self.y * self.y
`)

	require.Len(t, mod.Classes, 1)

	cls := mod.Classes[0]
	require.Equal(t, "Point", cls.Name)
	require.Len(t, cls.Fields, 2)
	require.Len(t, cls.Methods, 1)

	method := mod.Function(cls.Methods[0])
	require.Equal(t, "norm", method.Name)
	require.Equal(t, hir.ClassID(0), method.Class)
	// self receiver dropped from the parameter list
	require.Empty(t, method.Params)
}

func TestAsyncFunction(t *testing.T) {
	mod := convert(t, `
async def fetch(url: str) -> str:
    return await get(url)
`)

	fn := mod.Functions[0]
	require.True(t, fn.Properties.IsAsync)

	ret := fn.Body[0].(*hir.Return)
	require.IsType(t, &hir.Await{}, ret.Value)
}

func TestWithStatement(t *testing.T) {
	mod := convert(t, `
def f(path):
    with open(path) as fh:
        data = fh.read()
    return data
`)

	with, ok := mod.Functions[0].Body[0].(*hir.With)
	require.True(t, ok)
	require.Equal(t, "fh", with.Target)
	require.IsType(t, &hir.Call{}, with.Context)
}

func TestModuleTypeVarAndImports(t *testing.T) {
	mod := convert(t, `
import re
from typing import Optional

T = TypeVar("T")

def first(xs: list[T]) -> Optional[T]:
    if xs:
        return xs[0]
    return None
`)

	require.Len(t, mod.Imports, 2)
	require.Equal(t, "re", mod.Imports[0].Module)
	require.Equal(t, []string{"Optional"}, mod.Imports[1].Names)

	require.Len(t, mod.TypeAliases, 1)
	require.Equal(t, "T", mod.TypeAliases[0].Name)

	fn := mod.Functions[0]
	require.Equal(t, hir.KindList, fn.Params[0].Type.Kind)
	require.Equal(t, hir.KindTypeVar, fn.Params[0].Type.Elem().Kind)
	require.Equal(t, hir.KindOptional, fn.RetType.Kind)
}

func TestSliceLowering(t *testing.T) {
	mod := convert(t, `
def f(s: str) -> str:
    return s[1:3]
`)

	ret := mod.Functions[0].Body[0].(*hir.Return)

	slice, ok := ret.Value.(*hir.SliceExpr)
	require.True(t, ok)
	require.NotNil(t, slice.Start)
	require.NotNil(t, slice.Stop)
	require.Nil(t, slice.Step)
}

func TestMainGuardIgnored(t *testing.T) {
	mod := convert(t, `
def main():
    pass

if __name__ == "__main__":
    main()
`)

	require.Len(t, mod.Functions, 1)
}
