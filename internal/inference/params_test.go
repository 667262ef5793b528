package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/depyler-lang/depyler/internal/astbridge"
	"github.com/depyler-lang/depyler/internal/hir"
)

func inferFirst(t *testing.T, src string) *hir.Function {
	t.Helper()

	mod, err := astbridge.ConvertSource(context.Background(), "test.py", []byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, mod.Functions)

	fn := mod.Functions[0]
	InferParams(fn)

	return fn
}

func TestInferTupleUnpacking(t *testing.T) {
	fn := inferFirst(t, `
def g(p):
    a, b, c = p
    return a
`)

	want := hir.TupleOf(hir.Str(), hir.Str(), hir.Str())
	require.True(t, fn.Params[0].Type.Equals(want), "got %s", fn.Params[0].Type)
}

func TestInferCallable(t *testing.T) {
	fn := inferFirst(t, `
def apply(f):
    return f(1, 2)
`)

	ty := fn.Params[0].Type
	require.Equal(t, hir.KindGeneric, ty.Kind)
	require.Equal(t, "Callable", ty.Name)
	require.Len(t, ty.Params[0].Params, 2)
}

func TestInferPrintArgument(t *testing.T) {
	fn := inferFirst(t, `
def f(x):
    print(x)
`)

	require.True(t, fn.Params[0].Type.Equals(hir.Str()))
}

func TestInferRegexArgument(t *testing.T) {
	fn := inferFirst(t, `
def f(pattern):
    return re.match(pattern, "abc")
`)

	require.True(t, fn.Params[0].Type.Equals(hir.Str()))
}

func TestInferRegexLaterArgument(t *testing.T) {
	// re.sub's replacement sits in slot three, past the positional window,
	// but any re.* argument position is still string evidence.
	fn := inferFirst(t, `
def f(repl):
    return re.sub("a+", repl, "banana")
`)

	require.True(t, fn.Params[0].Type.Equals(hir.Str()))
}

func TestInferSubprocessCwd(t *testing.T) {
	fn := inferFirst(t, `
def f(workdir):
    subprocess.run(["ls"], cwd=workdir)
`)

	require.True(t, fn.Params[0].Type.Equals(hir.Str()))
}

func TestInferMethodOnParameter(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want hir.Type
	}{
		{
			"file method",
			"def f(fh):\n    return fh.read()\n",
			hir.Custom("File"),
		},
		{
			"string method",
			"def f(s):\n    return s.strip()\n",
			hir.Str(),
		},
		{
			"dict method",
			"def f(d):\n    return d.items()\n",
			hir.DictOf(hir.Str(), hir.Str()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := inferFirst(t, tt.src)
			require.True(t, fn.Params[0].Type.Equals(tt.want), "got %s", fn.Params[0].Type)
		})
	}
}

func TestInferDatetimeTimestamp(t *testing.T) {
	fn := inferFirst(t, `
def f(ts):
    return datetime.fromtimestamp(ts)
`)

	require.True(t, fn.Params[0].Type.Equals(hir.Float()))
}

func TestInferFStringInterpolation(t *testing.T) {
	fn := inferFirst(t, `
def f(name):
    return f"hi {name}"
`)

	require.True(t, fn.Params[0].Type.Equals(hir.Str()))
}

func TestInferIndexing(t *testing.T) {
	t.Run("string key means dict", func(t *testing.T) {
		fn := inferFirst(t, `
def f(cfg):
    return cfg["host"]
`)

		ty := fn.Params[0].Type
		require.Equal(t, hir.KindDict, ty.Kind)
		require.True(t, ty.Params[1].Equals(hir.Custom("serde_json::Value")))
	})

	t.Run("key named variable means dict", func(t *testing.T) {
		fn := inferFirst(t, `
def f(cfg, item_key):
    return cfg[item_key]
`)

		require.Equal(t, hir.KindDict, fn.Params[0].Type.Kind)
	})

	t.Run("numeric index means list", func(t *testing.T) {
		fn := inferFirst(t, `
def f(xs):
    return xs[0]
`)

		require.True(t, fn.Params[0].Type.Equals(hir.ListOf(hir.Int())))
	})
}

func TestInferSlice(t *testing.T) {
	fn := inferFirst(t, `
def f(s):
    return s[1:]
`)

	require.True(t, fn.Params[0].Type.Equals(hir.Str()))
}

func TestInferBinaryOps(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want hir.Type
	}{
		{
			"eq string literal",
			"def f(mode):\n    if mode == \"fast\":\n        return 1\n    return 0\n",
			hir.Str(),
		},
		{
			"bool operand",
			"def f(flag):\n    return flag and True\n",
			hir.Bool(),
		},
		{
			"membership",
			"def f(needle):\n    return needle in \"haystack\"\n",
			hir.Str(),
		},
		{
			"arithmetic",
			"def f(n):\n    return n + 1\n",
			hir.Int(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := inferFirst(t, tt.src)
			require.True(t, fn.Params[0].Type.Equals(tt.want), "got %s", fn.Params[0].Type)
		})
	}
}

func TestInferComprehensionIteration(t *testing.T) {
	fn := inferFirst(t, `
def f(chars):
    return [c for c in chars]
`)

	require.True(t, fn.Params[0].Type.Equals(hir.Str()))
}

func TestAnnotatedParamUnchanged(t *testing.T) {
	fn := inferFirst(t, `
def f(n: float):
    return n + 1
`)

	require.True(t, fn.Params[0].Type.Equals(hir.Float()))
}

func TestFirstPatternWins(t *testing.T) {
	// Statement order decides: the tuple unpack on line one beats the
	// arithmetic evidence below it.
	fn := inferFirst(t, `
def f(p):
    a, b = p
    return p + 1
`)

	require.Equal(t, hir.KindTuple, fn.Params[0].Type.Kind)
}

func TestNoEvidenceLeavesUnknown(t *testing.T) {
	fn := inferFirst(t, `
def f(x):
    return x
`)

	require.True(t, fn.Params[0].Type.IsUnknown())
}
