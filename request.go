package crow

import (
	"context"
	"io"

	"github.com/crowgo/crow/hdr"
	"github.com/crowgo/crow/query"
	"github.com/crowgo/crow/router"
)

// Request is the value handlers and middleware see for one HTTP exchange.
// The connection builds a fresh Request for each exchange (see conn.go's
// toRequest); its Body reads the request body, which the connection has
// already read in full before the handler runs.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Major    int
	Minor    int

	Header hdr.Header
	Host   string
	Remote string

	Body io.Reader

	// Params holds the typed path parameters the router extracted for
	// the matched route, in declaration order.
	Params router.Params

	// query is parsed lazily: most handlers never touch it.
	query     query.Values
	queryDone bool

	ctx context.Context

	shouldClose bool
	expect100   bool
	upgrade     string
}

// Upgrade returns the protocol named by a Connection: Upgrade request
// (e.g. "websocket"), or "" if this request did not ask for one.
func (r *Request) Upgrade() string { return r.upgrade }

// Context returns the request's context, never nil. Requests built by the
// server carry no context of their own, so this is context.Background()
// unless WithContext supplied one; the server never cancels it.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context replaced.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic("crow: nil context")
	}
	r2 := new(Request)
	*r2 = *r
	r2.ctx = ctx
	return r2
}

// Query returns the request's parsed query string, computing it on first
// use and caching the result for subsequent calls on the same Request.
func (r *Request) Query() query.Values {
	if !r.queryDone {
		r.query = query.Parse(r.RawQuery)
		r.queryDone = true
	}
	return r.query
}

// Param returns the raw text of the matched route's parameter named key,
// whatever its type, or "" if absent. For typed values use
// r.Params.Int/Uint/Float.
func (r *Request) Param(key string) string {
	return r.Params.String(key)
}

// reset clears a Request for reuse on the next exchange of the same
// connection, giving it a fresh Header and no Params.
func (r *Request) reset() {
	r.Method = ""
	r.Path = ""
	r.RawQuery = ""
	r.Major, r.Minor = 0, 0
	r.Header = hdr.MakeSize(16)
	r.Host = ""
	r.Body = nil
	r.Params = nil
	r.query = query.Values{}
	r.queryDone = false
	r.ctx = nil
}
