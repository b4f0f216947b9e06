// Package session implements an in-memory, cookie-keyed session store,
// grounded on the original core's middlewares/session.h (a pluggable
// store behind a single middleware; here just the in-memory backend is
// implemented, since SPEC_FULL.md does not call for a Redis/file-backed
// variant).
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crowgo/crow"
	"github.com/crowgo/crow/contrib/cookie"
)

// Session holds arbitrary per-client state, guarded by its own mutex so
// concurrent requests for the same client don't race on its fields.
type Session struct {
	mu      sync.Mutex
	id      string
	values  map[string]any
	expires time.Time
}

func (s *Session) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

func (s *Session) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
}

func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Store is an in-memory session store. The zero value is not usable; use
// NewStore.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	ttl        time.Duration
	cookieName string
}

// NewStore returns a Store whose sessions expire ttl after last access,
// identified by a cookie named cookieName.
func NewStore(cookieName string, ttl time.Duration) *Store {
	return &Store{sessions: make(map[string]*Session), ttl: ttl, cookieName: cookieName}
}

func newID() string {
	return uuid.NewString()
}

// Middleware loads (or creates) the client's Session before the handler
// runs and writes its id cookie back if it's new, grounded on session.h's
// before_handle/after_handle pair.
type Middleware struct {
	Store *Store
	index int
}

func (m *Middleware) SetIndex(i int) { m.index = i }

func (m *Middleware) Before(req *crow.Request, w crow.ResponseWriter) (any, bool) {
	cookies := cookie.ParseRequestCookies(req.Header)
	if c := cookie.Get(cookies, m.Store.cookieName); c != nil {
		if s := m.Store.load(c.Value); s != nil {
			return s, true
		}
	}
	s, id := m.Store.create()
	cookie.SetCookie(w, &cookie.Cookie{Name: m.Store.cookieName, Value: id, Path: "/", HttpOnly: true})
	return s, true
}

func (m *Middleware) After(*crow.Request, crow.ResponseWriter, any) {}

func (st *Store) load(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil
	}
	if st.ttl > 0 && time.Now().After(s.expires) {
		delete(st.sessions, id)
		return nil
	}
	if st.ttl > 0 {
		s.expires = time.Now().Add(st.ttl)
	}
	return s
}

func (st *Store) create() (*Session, string) {
	id := newID()
	s := &Session{id: id, values: make(map[string]any)}
	if st.ttl > 0 {
		s.expires = time.Now().Add(st.ttl)
	}
	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	return s, id
}

// Of retrieves the Session from a Before-returned ctxVal.
func Of(ctxVal any) *Session {
	s, _ := ctxVal.(*Session)
	return s
}
