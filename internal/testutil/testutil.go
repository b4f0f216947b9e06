// Package testutil provides helpers for constructing requests and
// spinning up a throwaway server in the engine's own package tests,
// grounded on the teacher's th package (NewTRequest/NewServer), rewired
// against this module's own Request/App/Server types since th's copy
// dot-imports types deleted along with src/http.
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/crowgo/crow"
	"github.com/crowgo/crow/hdr"
)

// NewRequest builds a *crow.Request suitable for passing directly to an
// App's registered handler or middleware pipeline in a test, without
// going through a real connection. An empty method means GET; a nil
// body produces an empty one.
func NewRequest(method, target string, body io.Reader) *crow.Request {
	if method == "" {
		method = "GET"
	}
	path, rawQuery := target, ""
	if i := strings.IndexByte(target, '?'); i >= 0 {
		path, rawQuery = target[:i], target[i+1:]
	}

	req := &crow.Request{
		Method:   method,
		Path:     path,
		RawQuery: rawQuery,
		Major:    1,
		Minor:    1,
		Header:   hdr.MakeSize(8),
		Host:     "example.com",
		Remote:   "192.0.2.1:1234",
	}
	if body != nil {
		req.Body = body
	} else {
		req.Body = bytes.NewReader(nil)
	}
	return req
}

// Server runs a *crow.App on a local loopback listener for the lifetime
// of a test, grounded on th's NewUnstartedServer/newLocalListener
// pattern but driving this module's own crow.Server instead of a
// dot-imported one.
type Server struct {
	URL string

	app *crow.App
	srv *crow.Server
	ln  net.Listener
}

// NewServer starts app on an ephemeral loopback port and returns a
// Server whose URL is ready to use. Call Close when the test is done.
func NewServer(app *crow.App) *Server {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(fmt.Sprintf("testutil: failed to listen: %v", err))
	}
	srv := &crow.Server{App: app, Workers: 4}
	go func() { _ = srv.Serve(ln) }()
	return &Server{
		URL: "http://" + ln.Addr().String(),
		app: app,
		srv: srv,
		ln:  ln,
	}
}

// Close shuts down the listener and the app's background timer.
func (s *Server) Close() {
	_ = s.srv.Shutdown()
	s.app.Close()
}
