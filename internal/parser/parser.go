// Package parser implements the push-style HTTP/1.1 request parser at the
// core of the engine. It consumes raw bytes as they arrive off the wire and
// emits high-level Events (a complete request line + headers, a body
// chunk, end-of-body, or a fatal error) without ever blocking on I/O
// itself: the connection loop owns the socket, the Parser only owns state.
package parser

import (
	"errors"
	"fmt"

	"github.com/crowgo/crow/hdr"
)

// MaxHeaderBytes bounds the total size of the request line plus headers,
// matching the conservative default most embeddable servers in the pack
// use before an X-large-request becomes a resource-exhaustion vector.
const MaxHeaderBytes = 80 * 1024

// EventKind distinguishes the events a Parser can emit from a single Feed
// call.
type EventKind int

const (
	// EventRequest fires once headers are fully parsed; Event.Request is
	// populated.
	EventRequest EventKind = iota
	// EventBody fires for each chunk of body data as it becomes
	// available; Event.Body holds the chunk (may be reused by the next
	// Feed call, copy if retained).
	EventBody
	// EventBodyEnd fires once the full body (if any) has been delivered.
	EventBodyEnd
	// EventUpgrade fires instead of EventBodyEnd when the request asked
	// for a protocol upgrade (e.g. WebSocket) and the parser has
	// finished recognizing it; bytes following the empty line are NOT
	// consumed as body and are returned in Event.Trailing.
	EventUpgrade
)

// Event is one unit of progress reported by Feed.
type Event struct {
	Kind     EventKind
	Request  *Request
	Body     []byte
	Trailing []byte
}

// Request is the parsed request line and header block. It intentionally
// does not include the body: body bytes stream through separate EventBody
// events so arbitrarily large bodies never have to be buffered whole by
// the parser itself.
type Request struct {
	Method        string
	Target        string
	Path          string
	RawQuery      string
	Major, Minor  int
	Header        hdr.Header
	Host          string
	ContentLength int64 // -1 when unknown (chunked or identity-to-EOF)
	Chunked       bool
	Close         bool // connection should close after this exchange
	Expect100     bool
	Upgrade       string // non-empty when Connection/Upgrade asked for a protocol switch
}

// ErrLatched is returned by Feed once the parser has entered a terminal
// error state; the connection must be closed and the Parser discarded.
var ErrLatched = errors.New("parser: latched after previous error")

// state enumerates the parser's internal phase.
type state int

const (
	stateRequestLine state = iota
	stateHeaders
	stateBodyIdentity
	stateBodyChunkSize
	stateBodyChunkData
	stateBodyChunkCRLF
	stateBodyTrailer
	stateBodyToEOF
	stateUpgraded
	stateError
	stateDone
)

// Parser is a single-use, single-connection HTTP/1.1 request decoder. The
// zero value is not usable; use New. Once it reports EventBodyEnd for one
// request, call Reset before parsing the next request on the same
// connection; Reset reuses the Parser instead of allocating a new one.
type Parser struct {
	state state
	buf   []byte // unconsumed bytes carried across Feed calls
	err   error

	req      *Request
	headerSz int

	remaining int64 // bytes left to deliver for identity-length / chunk-data bodies
	trailer   bool

	maxHeaderBytes int
}

// New returns a ready-to-use Parser.
func New() *Parser {
	p := &Parser{maxHeaderBytes: MaxHeaderBytes}
	p.Reset()
	return p
}

// Reset returns the Parser to its initial state so it can parse the next
// request on a keep-alive connection. Any bytes still pending from a
// previous Feed (e.g. pipelined data) are preserved.
func (p *Parser) Reset() {
	p.state = stateRequestLine
	p.err = nil
	p.req = nil
	p.headerSz = 0
	p.remaining = 0
	p.trailer = false
}

// SetMaxHeaderBytes overrides MaxHeaderBytes for this Parser.
func (p *Parser) SetMaxHeaderBytes(n int) { p.maxHeaderBytes = n }

// Feed appends data to the parser's internal buffer and drives state
// transitions as far as possible, returning every Event produced. Feed
// never retains data beyond what it could not yet consume; callers may
// reuse/overwrite data's backing array after Feed returns, except for
// bytes referenced by an emitted Event.Body/Event.Trailing slice, which
// alias into the parser's own buffer and are only valid until the next
// Feed call.
func (p *Parser) Feed(data []byte) ([]Event, error) {
	if p.state == stateError {
		return nil, ErrLatched
	}
	if len(data) > 0 {
		p.buf = append(p.buf, data...)
	}

	var events []Event
	for {
		switch p.state {
		case stateRequestLine:
			line, ok, err := p.takeLine()
			if err != nil {
				return p.fail(events, err)
			}
			if !ok {
				return events, nil
			}
			if len(line) == 0 {
				// Tolerate a leading blank line before the request line,
				// as RFC 7230 §3.5 recommends.
				continue
			}
			req, err := parseRequestLine(line)
			if err != nil {
				return p.fail(events, err)
			}
			p.req = req
			p.headerSz = len(line)
			p.state = stateHeaders

		case stateHeaders:
			line, ok, err := p.takeLine()
			if err != nil {
				return p.fail(events, err)
			}
			if !ok {
				return events, nil
			}
			p.headerSz += len(line) + 2
			if p.headerSz > p.maxHeaderBytes {
				return p.fail(events, fmt.Errorf("parser: header block exceeds %d bytes", p.maxHeaderBytes))
			}
			if len(line) == 0 {
				if err := p.finishHeaders(); err != nil {
					return p.fail(events, err)
				}
				events = append(events, Event{Kind: EventRequest, Request: p.req})
				if p.req.Upgrade != "" {
					p.state = stateUpgraded
					continue
				}
				p.state = p.initialBodyState()
				if p.state == stateDone {
					// No body to wait for: the request is complete now.
					events = append(events, Event{Kind: EventBodyEnd})
				}
				continue
			}
			if err := addHeaderLine(&p.req.Header, line); err != nil {
				return p.fail(events, err)
			}

		case stateBodyIdentity:
			if p.remaining == 0 {
				p.state = stateDone
				events = append(events, Event{Kind: EventBodyEnd})
				continue
			}
			n := p.remaining
			if int64(len(p.buf)) < n {
				n = int64(len(p.buf))
			}
			if n == 0 {
				return events, nil
			}
			chunk := p.buf[:n]
			p.buf = p.buf[n:]
			p.remaining -= n
			events = append(events, Event{Kind: EventBody, Body: chunk})

		case stateBodyToEOF:
			if len(p.buf) == 0 {
				return events, nil
			}
			chunk := p.buf
			p.buf = nil
			events = append(events, Event{Kind: EventBody, Body: chunk})

		case stateBodyChunkSize:
			line, ok, err := p.takeLine()
			if err != nil {
				return p.fail(events, err)
			}
			if !ok {
				return events, nil
			}
			size, err := parseChunkSizeLine(line)
			if err != nil {
				return p.fail(events, err)
			}
			if size == 0 {
				p.state = stateBodyTrailer
				continue
			}
			p.remaining = size
			p.state = stateBodyChunkData

		case stateBodyChunkData:
			if p.remaining == 0 {
				p.state = stateBodyChunkCRLF
				continue
			}
			n := p.remaining
			if int64(len(p.buf)) < n {
				n = int64(len(p.buf))
			}
			if n == 0 {
				return events, nil
			}
			chunk := p.buf[:n]
			p.buf = p.buf[n:]
			p.remaining -= n
			events = append(events, Event{Kind: EventBody, Body: chunk})

		case stateBodyChunkCRLF:
			line, ok, err := p.takeLine()
			if err != nil {
				return p.fail(events, err)
			}
			if !ok {
				return events, nil
			}
			if len(line) != 0 {
				return p.fail(events, errors.New("parser: malformed chunk terminator"))
			}
			p.state = stateBodyChunkSize

		case stateBodyTrailer:
			line, ok, err := p.takeLine()
			if err != nil {
				return p.fail(events, err)
			}
			if !ok {
				return events, nil
			}
			if len(line) == 0 {
				p.state = stateDone
				events = append(events, Event{Kind: EventBodyEnd})
				continue
			}
			// Trailers are parsed but folded into the request header so
			// handlers see them the same way as leading headers.
			if err := addHeaderLine(&p.req.Header, line); err != nil {
				return p.fail(events, err)
			}

		case stateUpgraded:
			trailing := p.buf
			p.buf = nil
			p.state = stateDone
			events = append(events, Event{Kind: EventUpgrade, Trailing: trailing})
			return events, nil

		case stateDone:
			return events, nil

		case stateError:
			return events, p.err
		}
	}
}

func (p *Parser) initialBodyState() state {
	req := p.req
	switch {
	case req.Chunked:
		return stateBodyChunkSize
	case req.ContentLength > 0:
		p.remaining = req.ContentLength
		return stateBodyIdentity
	case req.ContentLength == 0:
		return stateDone
	default:
		if req.Method == "GET" || req.Method == "HEAD" {
			return stateDone
		}
		return stateBodyToEOF
	}
}

func (p *Parser) finishHeaders() error {
	req := p.req
	req.Host = req.Header.Get(hdr.Host)

	cl := req.Header.Get(hdr.ContentLength)
	te := req.Header.Get(hdr.TransferEncoding)
	req.Chunked = isTokenEqualFold(te, "chunked")
	if req.Chunked {
		req.ContentLength = -1
	} else if cl != "" {
		n, err := parseContentLength(cl)
		if err != nil {
			return err
		}
		req.ContentLength = n
	} else {
		req.ContentLength = -1
	}

	conn := req.Header.Get(hdr.Connection)
	req.Close = shouldClose(req.Major, req.Minor, conn)

	req.Expect100 = isTokenEqualFold(req.Header.Get(hdr.Expect), "100-continue")

	if isTokenEqualFold(conn, "upgrade") {
		req.Upgrade = req.Header.Get(hdr.UpgradeHeader)
	}
	return nil
}

func (p *Parser) fail(events []Event, err error) ([]Event, error) {
	p.state = stateError
	p.err = err
	return events, err
}

// takeLine extracts the next CRLF- or LF-terminated line from the internal
// buffer, not including the terminator. ok is false if no full line is
// buffered yet.
func (p *Parser) takeLine() (line []byte, ok bool, err error) {
	for i := 0; i < len(p.buf); i++ {
		if p.buf[i] != '\n' {
			continue
		}
		end := i
		if end > 0 && p.buf[end-1] == '\r' {
			end--
		}
		line = p.buf[:end]
		p.buf = p.buf[i+1:]
		return line, true, nil
	}
	return nil, false, nil
}
