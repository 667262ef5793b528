package lineage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndAncestors(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(Record{ModelID: "base", Source: "fib.py"}))
	require.NoError(t, g.Add(Record{ModelID: "v2", Parents: []string{"base"}}))
	require.NoError(t, g.Add(Record{ModelID: "v3", Parents: []string{"v2", "base"}}))

	assert.Equal(t, []string{"base", "v2"}, g.Ancestors("v3"))
	assert.Empty(t, g.Ancestors("base"))

	assert.Error(t, g.Add(Record{ModelID: "v2"}), "duplicate id")
	assert.Error(t, g.Add(Record{ModelID: "v4", Parents: []string{"ghost"}}), "unknown parent")
	assert.Error(t, g.Add(Record{}), "empty id")
	assert.False(t, g.Records["v2"].CreatedAt.IsZero())
}

func TestSaveLoadRoundtrip(t *testing.T) {
	root := t.TempDir()
	g := NewGraph()
	require.NoError(t, g.Add(Record{ModelID: "base", Source: "a.py", Note: "first emit"}))
	require.NoError(t, g.Add(Record{ModelID: "child", Parents: []string{"base"}}))
	require.NoError(t, g.Save(root))

	got, err := Load(root)
	require.NoError(t, err)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "a.py", got.Records["base"].Source)
	assert.Equal(t, []string{"base"}, got.Records["child"].Parents)
}

func TestLoadMissing(t *testing.T) {
	g, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, g.Records)
}
