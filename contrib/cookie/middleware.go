package cookie

import (
	"github.com/crowgo/crow"
	"github.com/crowgo/crow/hdr"
)

// Middleware parses the incoming Cookie header before the handler runs,
// storing the result as this stage's context value, grounded on the
// original core's cookie_parser.h middleware. The pipeline hands that value
// back only to this stage's After; handlers and other middleware do not
// receive it and parse the header themselves with ParseRequestCookies.
type Middleware struct{ index int }

// SetIndex implements middleware.AllContextAware.
func (m *Middleware) SetIndex(i int) { m.index = i }

// Before implements middleware.Middleware.
func (m *Middleware) Before(req *crow.Request, _ crow.ResponseWriter) (any, bool) {
	return ParseRequestCookies(req.Header), true
}

// After implements middleware.Middleware; it is a no-op, cookie writing
// is done explicitly by handlers via SetCookie.
func (m *Middleware) After(*crow.Request, crow.ResponseWriter, any) {}

// Cookies retrieves the request's parsed cookies from ctxVal, as handed
// back by the pipeline for this middleware's slot.
func Cookies(ctxVal any) []*Cookie {
	cs, _ := ctxVal.([]*Cookie)
	return cs
}

// Get returns the named cookie from a parsed set, or nil.
func Get(cookies []*Cookie, name string) *Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// SetCookie appends a Set-Cookie header to w for c.
func SetCookie(w crow.ResponseWriter, c *Cookie) {
	w.Header().Add(hdr.SetCookieHeader, c.String())
}
