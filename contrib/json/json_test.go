package json

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildObjectMarshal(t *testing.T) {
	v := NewObject().Set("name", "crow").Set("stars", 42).Set("active", true)
	out, err := v.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"crow","stars":42,"active":true}`, string(out))
}

func TestObjectPreservesFieldOrder(t *testing.T) {
	v := NewObject().Set("z", 1).Set("a", 2).Set("m", 3)
	out, _ := v.MarshalJSON()
	require.Equal(t, `{"z":1,"a":2,"m":3}`, string(out))
}

func TestListAppend(t *testing.T) {
	v := NewList().Append(1).Append("two").Append(true)
	out, err := v.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `[1,"two",true]`, string(out))
}

func TestParseRoundTrip(t *testing.T) {
	v, err := Parse([]byte(`{"a":1,"b":[1,2,3],"c":{"d":"e"}}`))
	require.NoError(t, err)
	require.True(t, v.Has("a"))
	require.Equal(t, float64(1), v.Get("a").Number())
	require.Equal(t, 3, v.Get("b").Len())
	require.Equal(t, "e", v.Get("c").Get("d").String())
}

func TestBoolTruthiness(t *testing.T) {
	require.False(t, Of(nil).Bool())
	require.False(t, Of(false).Bool())
	require.False(t, Of("").Bool())
	require.False(t, Of(0).Bool())
	require.True(t, Of(1).Bool())
	require.True(t, Of("x").Bool())
	require.True(t, NewList().Append(1).Bool())
	require.False(t, NewList().Bool())
}
