package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchLiteralAndTyped(t *testing.T) {
	r := New()
	_, err := r.Handle("GET", "/users/<int:id>", "h1")
	require.NoError(t, err)
	_, err = r.Handle("GET", "/users/me", "h2")
	require.NoError(t, err)

	rt, params, err := r.Match("GET", "/users/42")
	require.NoError(t, err)
	require.Equal(t, "h1", rt.Handler)
	id, ok := params.Int("id")
	require.True(t, ok)
	require.Equal(t, int64(42), id)

	rt, _, err = r.Match("GET", "/users/me")
	require.NoError(t, err)
	require.Equal(t, "h2", rt.Handler)
}

func TestMatchMethodNotAllowed(t *testing.T) {
	r := New()
	_, err := r.Handle("GET", "/things", "h")
	require.NoError(t, err)
	_, _, err = r.Match("POST", "/things")
	var mnae *ErrMethodNotAllowed
	require.ErrorAs(t, err, &mnae)
	require.Equal(t, []string{"GET"}, mnae.Allowed)
}

func TestMatchNotFound(t *testing.T) {
	r := New()
	_, _, err := r.Match("GET", "/nope")
	var nf *ErrNotFound
	require.ErrorAs(t, err, &nf)
}

func TestOptionsAutoAnswer(t *testing.T) {
	r := New()
	_, _ = r.Handle("GET", "/x", "h")
	_, _ = r.Handle("POST", "/x", "h")
	_, _, err := r.Match("OPTIONS", "/x")
	var ao *autoOptions
	require.ErrorAs(t, err, &ao)
	require.Equal(t, []string{"GET", "POST"}, ao.Methods())
}

func TestAmbiguousSiblingRejected(t *testing.T) {
	r := New()
	_, err := r.Handle("GET", "/a/<int:id>", "h1")
	require.NoError(t, err)
	_, err = r.Handle("GET", "/a/<string:name>", "h2")
	require.Error(t, err)
}

func TestPathSegmentGreedy(t *testing.T) {
	r := New()
	_, err := r.Handle("GET", "/files/<path:rest>", "h")
	require.NoError(t, err)
	rt, params, err := r.Match("GET", "/files/a/b/c.txt")
	require.NoError(t, err)
	require.Equal(t, "h", rt.Handler)
	require.Equal(t, "a/b/c.txt", params.String("rest"))
}

func TestURLFor(t *testing.T) {
	r := New()
	rt, err := r.Handle("GET", "/users/<int:id>/posts/<string:slug>", "h")
	require.NoError(t, err)
	require.NoError(t, r.Name(rt, "user_post"))

	u, err := r.URLFor("user_post", 7, "hello-world")
	require.NoError(t, err)
	require.Equal(t, "/users/7/posts/hello-world", u)
}

func TestBlueprintMount(t *testing.T) {
	r := New()
	bp := NewBlueprint("api", "/api")
	bp.Named("GET", "/widgets/<int:id>", "widget", "h")
	require.NoError(t, r.Mount(bp))

	rt, params, err := r.Match("GET", "/api/widgets/9")
	require.NoError(t, err)
	require.Equal(t, "h", rt.Handler)
	id, _ := params.Int("id")
	require.Equal(t, int64(9), id)

	u, err := r.URLFor("widget", 9)
	require.NoError(t, err)
	require.Equal(t, "/api/widgets/9", u)
}

func TestCatchAll(t *testing.T) {
	r := New()
	r.CatchAll("fallback")
	rt, _, err := r.Match("GET", "/whatever/nothing/matches")
	require.NoError(t, err)
	require.Equal(t, "fallback", rt.Handler)
}
