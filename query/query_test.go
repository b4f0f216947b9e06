package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseScalar(t *testing.T) {
	v := Parse("a=1&b=two")
	require.Equal(t, "1", v.Get("a"))
	require.Equal(t, "two", v.Get("b"))
	require.True(t, v.Has("a"))
	require.False(t, v.Has("c"))
}

func TestParseList(t *testing.T) {
	v := Parse("tag[]=go&tag[]=http")
	require.Equal(t, []string{"go", "http"}, v.GetList("tag"))
}

func TestParseDict(t *testing.T) {
	v := Parse("point[x]=1&point[y]=2")
	d := v.GetDict("point")
	require.Equal(t, "1", d["x"])
	require.Equal(t, "2", d["y"])
	require.ElementsMatch(t, []string{"x", "y"}, v.DictKeys("point"))
}

func TestPercentDecodeLenient(t *testing.T) {
	v := Parse("q=a%20b&bad=%zz")
	require.Equal(t, "a b", v.Get("q"))
	// malformed escape left verbatim rather than erroring.
	require.Equal(t, "%zz", v.Get("bad"))
}

func TestPopRemovesKey(t *testing.T) {
	v := Parse("a=1&b=2")
	require.Equal(t, "1", v.Pop("a"))
	require.False(t, v.Has("a"))
	require.True(t, v.Has("b"))
}

func TestKeysPreservesOrder(t *testing.T) {
	v := Parse("z=1&a=2&m=3")
	require.Equal(t, []string{"z", "a", "m"}, v.Keys())
}
