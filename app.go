package crow

import (
	"crypto/tls"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crowgo/crow/middleware"
	"github.com/crowgo/crow/router"
	"github.com/crowgo/crow/timer"
)

// App wires a router, a middleware pipeline, a task timer and a logger
// into one reusable handle that Server drives per connection. It is the
// top-level type a program built on this package constructs once at
// startup, analogous to the original core's crow::SimpleApp.
type App struct {
	Router *router.Router
	mw     *middleware.Pipeline[*Request, ResponseWriter]
	Logger *logrus.Logger
	Timer  *timer.Queue

	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	Exception        ExceptionHandler
	ServerHeaderName string

	// StreamThreshold is the body size at/above which a response is
	// written to the socket in writeBatchSize pieces instead of one call.
	// It never changes how the body is framed on the wire: every response
	// always carries an explicit Content-Length. Zero means
	// DefaultStreamThreshold.
	StreamThreshold int

	// WebSocketMaxPayload bounds a single inbound WebSocket frame's
	// payload, in bytes. Zero (the default) means unbounded.
	WebSocketMaxPayload int64

	// TLSConfig, if non-nil, makes Server.ListenAndServe terminate TLS on
	// the listener (see Server.ListenAndServe / ssl_file / ssl_chainfile).
	TLSConfig *tls.Config

	optionsStatus int
}

// New returns a ready-to-configure App with sane defaults: a 5-second idle
// timeout (matching the original core's default connection_timeout_), the
// parser's default header-size cap, a 1MiB stream threshold, an unbounded
// WebSocket payload, and a logrus.Logger writing structured text to
// stderr.
func New() *App {
	logger := logrus.New()
	a := &App{
		Router:           router.New(),
		mw:               middleware.New[*Request, ResponseWriter](),
		Logger:           logger,
		Timer:            timer.New(),
		IdleTimeout:      5 * time.Second,
		ServerHeaderName: "Crow",
		StreamThreshold:  DefaultStreamThreshold,
	}
	a.Exception = DefaultExceptionHandler(func(format string, args ...any) {
		logger.Errorf(format, args...)
	})
	a.optionsStatus = 204
	return a
}

// Route registers handler for method and pattern, running any mws after
// the global before-chain and before the global after-chain, in the order
// given. It returns the underlying Route so the caller can name it for
// URLFor (a.Router.Name(rt, name)) or chain WithMiddleware for additional
// local stages.
func (a *App) Route(method, pattern string, handler HandlerFunc, mws ...middleware.Middleware[*Request, ResponseWriter]) (*router.Route, error) {
	rt, err := a.Router.Handle(method, pattern, handler)
	if err != nil {
		return nil, err
	}
	for _, m := range mws {
		rt.Middlewares = append(rt.Middlewares, m)
	}
	return rt, nil
}

// Use appends a middleware stage to the app's pipeline.
func (a *App) Use(m middleware.Middleware[*Request, ResponseWriter]) {
	a.mw.Use(m)
}

// Mount registers every route a Blueprint declares.
func (a *App) Mount(bp *router.Blueprint) error {
	return a.Router.Mount(bp)
}

// Tick schedules fn to run every interval on the app's background task
// timer, rescheduling itself after each fire, until the app is closed.
// This is the engine's equivalent of the original core's CROW_app.tick().
func (a *App) Tick(interval time.Duration, fn func()) {
	var schedule func()
	schedule = func() {
		fn()
		a.Timer.Schedule(interval, schedule)
	}
	a.Timer.Schedule(interval, schedule)
}

// Close stops the app's background task timer. Call it after the server
// has stopped accepting connections.
func (a *App) Close() {
	a.Timer.Stop()
}

// dispatch runs the middleware pipeline around the matched route's
// handler, recovering a handler panic into a.Exception. Match errors are
// answered by handleMatchError: 404 when no route matches the path, 405
// when the path matches only under other methods.
func (a *App) dispatch(req *Request, w ResponseWriter) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		handled := false
		if a.Exception != nil {
			func() {
				defer func() { _ = recover() }()
				a.Exception(req, w, rec)
				handled = true
			}()
		}
		if r, ok := w.(*response); ok && !handled {
			// conn.serve sends nothing for a hijacked response and closes it.
			r.hijacked = true
		}
	}()

	if req.Method == "OPTIONS" && req.Path == "*" {
		a.dispatchServerWideOptions(w)
		return
	}

	rt, params, err := a.Router.Match(req.Method, req.Path)
	if err != nil {
		a.handleMatchError(req, w, err)
		return
	}
	req.Params = params

	handler, _ := rt.Handler.(HandlerFunc)
	if handler == nil {
		w.WriteHeader(500)
		_, _ = w.Write([]byte("Internal Server Error"))
		return
	}

	final := handler
	if len(rt.Middlewares) > 0 {
		local := middleware.New[*Request, ResponseWriter]()
		for _, m := range rt.Middlewares {
			mw, ok := m.(middleware.Middleware[*Request, ResponseWriter])
			if !ok {
				continue
			}
			local.Use(mw)
		}
		final = func(req *Request, w ResponseWriter) {
			local.Run(req, w, handler)
		}
	}

	a.mw.Run(req, w, final)
}

// dispatchServerWideOptions answers "OPTIONS *" with the union of methods
// registered anywhere in the router, per RFC 7231 §4.3.7: such a request
// applies to the server as a whole, not to any one resource, so it is
// handled before any per-route matching.
func (a *App) dispatchServerWideOptions(w ResponseWriter) {
	for _, m := range a.Router.AllMethods() {
		w.Header().Add("Allow", m)
	}
	w.WriteHeader(a.optionsStatus)
}

func (a *App) handleMatchError(req *Request, w ResponseWriter, err error) {
	type methodsReporter interface{ Methods() []string }
	if mr, ok := err.(methodsReporter); ok {
		for _, m := range mr.Methods() {
			w.Header().Add("Allow", m)
		}
		w.WriteHeader(a.Router_OptionsStatus())
		return
	}
	switch e := err.(type) {
	case *router.ErrMethodNotAllowed:
		for _, m := range e.Allowed {
			w.Header().Add("Allow", m)
		}
		w.WriteHeader(405)
		_, _ = w.Write([]byte("Method Not Allowed"))
	default:
		w.WriteHeader(404)
		_, _ = w.Write([]byte("Not Found"))
	}
}

// Router_OptionsStatus exposes the router's configured auto-OPTIONS
// status without forcing callers to reach into the router package.
func (a *App) Router_OptionsStatus() int {
	return a.optionsStatus
}

// OptionsStatus overrides the status code used for an auto-answered
// OPTIONS request; App tracks the value alongside Router's own copy since
// Router only exposes a setter.
func (a *App) OptionsStatus(code int) {
	a.optionsStatus = code
	a.Router.OptionsStatus(code)
}
