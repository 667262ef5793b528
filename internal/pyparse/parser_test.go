package pyparse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWellFormed(t *testing.T) {
	src := []byte("def f(x: int) -> int:\n    return x + 1\n")

	tree, err := Parse(context.Background(), "f.py", src)
	require.NoError(t, err)

	defer tree.Close()

	require.Equal(t, "module", tree.Root.Type())

	fn := FirstChildOfType(tree.Root, "function_definition")
	require.NotNil(t, fn)

	name := fn.ChildByFieldName("name")
	require.Equal(t, "f", tree.Text(name))

	span := tree.Span(fn)
	require.Equal(t, 1, span.Start.Line)
	require.Equal(t, "f.py", span.Start.Filename)

	require.NotNil(t, tree.File)
	require.Equal(t, "    return x + 1", tree.File.GetLine(2))
}

func TestParseSyntaxError(t *testing.T) {
	src := []byte("def f(:\n    pass\n")

	_, err := Parse(context.Background(), "bad.py", src)
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "bad.py", perr.Filename)
	require.Greater(t, perr.Line, 0)
	require.Greater(t, perr.Column, 0)
	require.Contains(t, perr.Error(), "def f(:")
}

func TestNamedChildrenAndFilters(t *testing.T) {
	src := []byte("x = 1\ny = 2\n\ndef g():\n    pass\n")

	tree, err := Parse(context.Background(), "m.py", src)
	require.NoError(t, err)

	defer tree.Close()

	exprs := ChildrenOfType(tree.Root, "expression_statement")
	require.Len(t, exprs, 2)

	require.Nil(t, FirstChildOfType(tree.Root, "class_definition"))
	require.Len(t, NamedChildren(tree.Root), 3)
}
