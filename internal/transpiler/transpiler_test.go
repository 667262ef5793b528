package transpiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspile(t *testing.T) {
	rust, err := Transpile(context.Background(), "add.py", []byte(`
def add(a: int, b: int) -> int:
    return a + b
`), Options{})
	require.NoError(t, err)
	assert.Contains(t, rust, "pub fn add(a: i32, b: i32) -> i32 {")
}

func TestTranspileReportsUnsupported(t *testing.T) {
	_, err := Transpile(context.Background(), "bad.py", []byte(`
def f():
    yield 1
`), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yield")
}

func TestTranspileDirCollectsErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.py"),
		[]byte("def one() -> int:\n    return 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.py"),
		[]byte("def g():\n    yield 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
		[]byte("ignored"), 0o644))

	units, err := TranspileDir(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.Len(t, units, 2)

	// Sorted by path: bad.py before ok.py.
	assert.Error(t, units[0].Err)
	assert.NoError(t, units[1].Err)
	assert.Contains(t, units[1].Rust, "pub fn one()")

	// Failed units render with the offending source line.
	require.NotNil(t, units[0].Source)
	rendered := units[0].RenderError()
	assert.Contains(t, rendered, "yield")
	assert.Contains(t, rendered, "    yield 2")
}

func TestTranspileFileWritesOutput(t *testing.T) {
	dir := t.TempDir()
	py := filepath.Join(dir, "double.py")
	require.NoError(t, os.WriteFile(py,
		[]byte("def double(n: int) -> int:\n    return n * 2\n"), 0o644))

	out, err := TranspileFile(context.Background(), py, "", Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "double.rs"), out)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pub fn double(n: i32) -> i32 {")
}
