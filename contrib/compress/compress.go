// Package compress wraps a handler so its response body is transparently
// gzip- or deflate-compressed when the client advertises support for it,
// using klauspost/compress for both codecs (faster than the standard
// library's compress/gzip and compress/flate at matching compression
// levels, the reason the rest of the pack reaches for it over stdlib).
package compress

import (
	"bufio"
	"net"
	"strings"

	kgzip "github.com/klauspost/compress/gzip"
	kflate "github.com/klauspost/compress/flate"

	"github.com/crowgo/crow"
	"github.com/crowgo/crow/hdr"
)

// Wrap returns a handler that compresses h's output when the request's
// Accept-Encoding allows it. The decision is made purely on client
// capability: bodies of every size, however small, are compressed.
func Wrap(h crow.HandlerFunc) crow.HandlerFunc {
	return func(req *crow.Request, w crow.ResponseWriter) {
		accept := req.Header.Get(hdr.AcceptEncoding)
		switch {
		case strings.Contains(accept, "gzip"):
			cw := &compressingWriter{ResponseWriter: w, encoding: "gzip"}
			defer cw.Close()
			h(req, cw)
		case strings.Contains(accept, "deflate"):
			cw := &compressingWriter{ResponseWriter: w, encoding: "deflate"}
			defer cw.Close()
			h(req, cw)
		default:
			h(req, w)
		}
	}
}

// compressingWriter wraps a crow.ResponseWriter, compressing every Write
// through a klauspost codec and setting Content-Encoding on the first
// Write (the wrapped response sends its headers only when it finishes).
type compressingWriter struct {
	crow.ResponseWriter
	encoding string

	started bool
	gz      *kgzip.Writer
	fl      *kflate.Writer
}

func (c *compressingWriter) start() {
	if c.started {
		return
	}
	c.started = true
	c.Header().Del(hdr.ContentLength)
	c.Header().Set(hdr.ContentEncoding, c.encoding)
	switch c.encoding {
	case "gzip":
		c.gz, _ = kgzip.NewWriterLevel(c.ResponseWriter, kgzip.DefaultCompression)
	case "deflate":
		c.fl, _ = kflate.NewWriter(c.ResponseWriter, kflate.DefaultCompression)
	}
}

func (c *compressingWriter) Write(p []byte) (int, error) {
	c.start()
	if c.gz != nil {
		return c.gz.Write(p)
	}
	if c.fl != nil {
		return c.fl.Write(p)
	}
	return c.ResponseWriter.Write(p)
}

// Close flushes and closes whichever codec was used. It is safe to call
// even if no byte was ever written (start never ran).
func (c *compressingWriter) Close() error {
	if c.gz != nil {
		return c.gz.Close()
	}
	if c.fl != nil {
		return c.fl.Close()
	}
	return nil
}

// Hijack delegates to the wrapped writer if it supports it, so a
// WebSocket upgrade handler still works when reached through Wrap (in
// practice an upgrade response is never compressed, since the switch
// statement above only wraps once Accept-Encoding says to, and upgrade
// requests don't carry body compression semantics — this exists so the
// Hijacker type assertion in App.UpgradeWebSocket keeps working either way).
func (c *compressingWriter) Hijack() (net.Conn, *bufio.ReadWriter, []byte, error) {
	if h, ok := c.ResponseWriter.(crow.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, nil, errNotHijackable
}

var errNotHijackable = &hijackError{}

type hijackError struct{}

func (*hijackError) Error() string { return "compress: underlying writer is not hijackable" }
