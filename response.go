package crow

import (
	"bufio"
	"fmt"
	"io"
	"net"

	"github.com/crowgo/crow/hdr"
)

// DefaultStreamThreshold is the stream_threshold used when an App does not
// configure one: bodies at or above this size are written to the socket in
// writeBatchSize chunks instead of one call, matching the teacher's default
// res_stream_threshold_ of 1MiB. This only ever affects how many syscalls
// the body takes to leave the process — the wire framing is always a
// Content-Length response computed from the whole, already-buffered body.
const DefaultStreamThreshold = 1 << 20 // 1 MiB

// writeBatchSize is the size of each synchronous write once a body crosses
// its stream threshold, matching the teacher's fixed 16KiB batching loop.
const writeBatchSize = 16384

// ResponseWriter is the per-exchange handle handlers and middleware use to
// build the response. It is only valid for the duration of the handler
// call that received it, unless Defer is used.
type ResponseWriter interface {
	// Header returns the header map. Headers are sent only when the
	// response finishes, so changes made at any point before then,
	// including after Write, are sent.
	Header() *hdr.Header
	// WriteHeader sets the status code. It may be called more than once,
	// before or after Write; the last call before the response finishes
	// decides the status sent.
	WriteHeader(status int)
	// Write appends p to the buffered response body; nothing is sent on
	// the connection until the response finishes.
	Write(p []byte) (int, error)
	// Defer hands off completion of this response to the returned
	// Responder and tells the connection loop not to auto-finish it when
	// the handler returns: use this for responses a handler completes
	// from another goroutine or after an async operation.
	Defer() Responder
}

// Responder completes a deferred response (see ResponseWriter.Defer).
type Responder interface {
	Header() *hdr.Header
	WriteHeader(status int)
	Write(p []byte) (int, error)
	// Close flushes any buffered body and finishes the exchange. It must
	// be called exactly once.
	Close() error
}

// response is the concrete ResponseWriter/Responder implementation. The
// whole body is buffered in memory, exactly as the teacher's http_connection
// does (res_body_copy_), so Content-Length is always known before any byte
// of the response reaches the socket: there is no wire-level streaming
// mode, only a write-batching strategy picked once the body is complete.
type response struct {
	w      io.Writer // the connection's buffered writer
	header hdr.Header
	status int

	reqMajor, reqMinor int
	headRequest        bool // true for a HEAD request: body bytes are counted but never written

	wroteHeader     bool
	buf             []byte
	streamThreshold int // body size at/above which the body is written in writeBatchSize chunks

	deferred bool
	done     chan struct{}

	onFinish func(r *response) // invoked once, when the exchange completes

	hijacked bool
	hijack   func() (net.Conn, *bufio.ReadWriter, []byte, error)
}

// Hijacker is implemented by ResponseWriter values that support taking
// the underlying connection over for a protocol switch (WebSocket), the
// same pattern net/http uses. Trailing is any bytes already read past the
// request's header block that belong to the new protocol, not the HTTP
// exchange (e.g. the first WebSocket frame if the client didn't wait for
// the 101 response before sending one).
type Hijacker interface {
	Hijack() (conn net.Conn, rw *bufio.ReadWriter, trailing []byte, err error)
}

// Hijack implements Hijacker.
func (r *response) Hijack() (net.Conn, *bufio.ReadWriter, []byte, error) {
	if r.hijack == nil {
		return nil, nil, nil, errNoHijack
	}
	c, rw, trailing, err := r.hijack()
	if err == nil {
		r.hijacked = true
	}
	return c, rw, trailing, err
}

var errNoHijack = fmt.Errorf("crow: connection does not support hijacking")

func newResponse(w io.Writer, reqMajor, reqMinor int, headRequest bool, streamThreshold int) *response {
	if streamThreshold <= 0 {
		streamThreshold = DefaultStreamThreshold
	}
	return &response{
		w:               w,
		header:          hdr.MakeSize(8),
		status:          200,
		reqMajor:        reqMajor,
		reqMinor:        reqMinor,
		headRequest:     headRequest,
		streamThreshold: streamThreshold,
	}
}

func (r *response) Header() *hdr.Header { return &r.header }

// Status returns the status code that will be (or was) sent, for
// introspection by collaborators like metrics.Collector.
func (r *response) Status() int { return r.status }

func (r *response) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
}

// Write buffers p. The body is never sent piecemeal: stream_threshold only
// decides, once the handler is done, whether finish writes it in one call
// or in writeBatchSize pieces.
func (r *response) Write(p []byte) (int, error) {
	r.buf = append(r.buf, p...)
	return len(p), nil
}

// finish sends the status line, headers and body. Content-Length always
// reflects the buffered body's final length; stream_threshold only governs
// how many socket writes the body costs.
func (r *response) finish() error {
	r.header.Set(hdr.ContentLength, fmt.Sprintf("%d", len(r.buf)))
	if err := r.writeStatusAndHeaders(); err != nil {
		return err
	}
	r.wroteHeader = true

	var err error
	if !r.headRequest {
		err = r.writeBody()
	}
	if r.onFinish != nil {
		r.onFinish(r)
	}
	return err
}

// writeBody writes r.buf to the connection, batching into writeBatchSize
// synchronous writes once the body is at least streamThreshold bytes, the
// same split the teacher's do_write_general makes between a single
// scatter-write and a loop of fixed-size writes. Either way the bytes on
// the wire are identical; only the number of Write calls differs.
func (r *response) writeBody() error {
	body := r.buf
	if len(body) < r.streamThreshold {
		_, err := r.w.Write(body)
		return err
	}
	for len(body) > writeBatchSize {
		if _, err := r.w.Write(body[:writeBatchSize]); err != nil {
			return err
		}
		body = body[writeBatchSize:]
	}
	if len(body) > 0 {
		if _, err := r.w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

func (r *response) writeStatusAndHeaders() error {
	if _, err := fmt.Fprintf(r.w, "HTTP/%d.%d %d %s\r\n", r.reqMajor, r.reqMinor, r.status, StatusText(r.status)); err != nil {
		return err
	}
	return r.header.Write(r.w)
}

// Defer implements ResponseWriter.
func (r *response) Defer() Responder {
	r.deferred = true
	r.done = make(chan struct{})
	return r
}

// Close implements Responder.
func (r *response) Close() error {
	defer close(r.done)
	return r.finish()
}
