package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreCreateAndLoad(t *testing.T) {
	st := NewStore("sid", time.Hour)
	s, id := st.create()
	require.NotEmpty(t, id)

	s.Set("user", "alice")
	loaded := st.load(id)
	require.NotNil(t, loaded)
	require.Equal(t, "alice", loaded.Get("user"))
}

func TestStoreLoadExpired(t *testing.T) {
	st := NewStore("sid", time.Millisecond)
	_, id := st.create()
	time.Sleep(5 * time.Millisecond)
	require.Nil(t, st.load(id))
}

func TestStoreLoadUnknownID(t *testing.T) {
	st := NewStore("sid", time.Hour)
	require.Nil(t, st.load("nonexistent"))
}

func TestSessionGetSetDelete(t *testing.T) {
	s := &Session{values: make(map[string]any)}
	require.Nil(t, s.Get("x"))
	s.Set("x", 1)
	require.Equal(t, 1, s.Get("x"))
	s.Delete("x")
	require.Nil(t, s.Get("x"))
}
