package crow

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"time"

	"github.com/crowgo/crow/hdr"
	"github.com/crowgo/crow/internal/parser"
	"github.com/crowgo/crow/url"
)

// connBufSize is the buffered reader/writer size for a connection's raw
// socket I/O. It is unrelated to App.StreamThreshold, which governs body
// write batching, not this buffer.
const connBufSize = 16 * 1024

// conn drives one accepted TCP connection through repeated
// Idle -> Reading -> Parsing -> Handling -> Writing -> (Reading | Closing)
// cycles, one request at a time: this engine does not pipeline handler
// execution, only byte reading, matching the original core's one
// in-flight request per connection model.
type conn struct {
	rwc  net.Conn
	app  *App
	p    *parser.Parser
	bufr *bufio.Reader
	bufw *bufio.Writer

	remoteAddr string
	idleTimer  *connIdleTimer
}

func serveConn(rwc net.Conn, app *App) {
	c := &conn{
		rwc:        rwc,
		app:        app,
		p:          parser.New(),
		bufr:       bufio.NewReaderSize(rwc, connBufSize),
		bufw:       bufio.NewWriterSize(rwc, connBufSize),
		remoteAddr: rwc.RemoteAddr().String(),
	}
	if app.IdleTimeout > 0 {
		c.idleTimer = newConnIdleTimer(app.Timer, app.IdleTimeout, func() { _ = rwc.Close() })
	}
	defer func() {
		if c.idleTimer != nil {
			c.idleTimer.cancel()
		}
		_ = rwc.Close()
	}()
	c.serve()
}

func (c *conn) serve() {
	for {
		if c.idleTimer != nil {
			c.idleTimer.arm()
		}
		req, body, upgradeTrailing, err := c.readOneRequest()
		if c.idleTimer != nil {
			c.idleTimer.disarm()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.writeSimpleError(400, "Bad Request")
			}
			return
		}
		if req == nil {
			return // clean EOF between requests
		}

		if req.Header.Get(hdr.Host) != "" && !url.ValidHostHeader(req.Header.Get(hdr.Host)) {
			c.writeSimpleError(400, "Bad Request")
			return
		}

		if req.expect100 {
			if _, err := c.bufw.WriteString("HTTP/1.1 100 Continue\r\n\r\n"); err != nil {
				return
			}
			if err := c.bufw.Flush(); err != nil {
				return
			}
		}

		req.Body = bytes.NewReader(body)
		w := newResponse(c.bufw, req.Major, req.Minor, req.Method == "HEAD", c.app.StreamThreshold)
		w.header.Set(hdr.ServerHeader, c.app.ServerHeaderName)
		w.header.Set(hdr.Date, time.Now().UTC().Format(hdr.TimeFormat))
		if req.shouldClose {
			w.header.Set(hdr.Connection, "close")
		}
		w.hijack = func() (net.Conn, *bufio.ReadWriter, []byte, error) {
			if err := c.bufw.Flush(); err != nil {
				return nil, nil, nil, err
			}
			rw := bufio.NewReadWriter(c.bufr, bufio.NewWriter(c.rwc))
			return c.rwc, rw, upgradeTrailing, nil
		}

		c.app.dispatch(req, w)

		if w.hijacked {
			return
		}
		if w.deferred {
			<-w.done
		} else if err := w.finish(); err != nil {
			return
		}
		if err := c.bufw.Flush(); err != nil {
			return
		}
		if req.shouldClose {
			return
		}
		c.p.Reset()
	}
}

// requestBuildError is returned by readOneRequest when the client stream
// is malformed in a way that warrants a 400 rather than a silent close.
type requestBuildError struct{ error }

// readOneRequest reads and parses exactly one request (request line,
// headers, and body in full) from the connection, returning nil, nil, nil,
// io.EOF if the peer closed the connection cleanly before sending
// anything.
func (c *conn) readOneRequest() (req *Request, body []byte, upgradeTrailing []byte, err error) {
	readBuf := make([]byte, 4096)
	var bodyBuf bytes.Buffer
	var parsed *parser.Request

	for {
		n, rerr := c.bufr.Read(readBuf)
		if n > 0 {
			events, perr := c.p.Feed(readBuf[:n])
			for _, e := range events {
				switch e.Kind {
				case parser.EventRequest:
					parsed = e.Request
				case parser.EventBody:
					bodyBuf.Write(e.Body)
				case parser.EventBodyEnd:
					return toRequest(parsed, bodyBuf.Bytes(), c.remoteAddr), bodyBuf.Bytes(), nil, nil
				case parser.EventUpgrade:
					return toRequest(parsed, nil, c.remoteAddr), nil, e.Trailing, nil
				}
			}
			if perr != nil {
				return nil, nil, nil, requestBuildError{perr}
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) && parsed == nil {
				return nil, nil, nil, io.EOF
			}
			return nil, nil, nil, rerr
		}
	}
}

func toRequest(pr *parser.Request, body []byte, remote string) *Request {
	return &Request{
		Method:      pr.Method,
		Path:        pr.Path,
		RawQuery:    pr.RawQuery,
		Major:       pr.Major,
		Minor:       pr.Minor,
		Header:      pr.Header,
		Host:        pr.Host,
		Remote:      remote,
		shouldClose: pr.Close,
		expect100:   pr.Expect100,
		upgrade:     pr.Upgrade,
	}
}

func (c *conn) writeSimpleError(status int, text string) {
	w := newResponse(c.bufw, 1, 1, false, c.app.StreamThreshold)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
	_ = w.finish()
	_ = c.bufw.Flush()
}
