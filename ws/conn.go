package ws

import (
	"bufio"
	"encoding/binary"
	"net"
	"sync"
)

// Handler bundles the callbacks a Conn's read loop drives. Every callback
// runs on the goroutine that called Serve, matching the teacher's
// single-strand-of-execution-per-connection model: a slow handler delays
// further reads on the same connection, it does not block other
// connections.
type Handler struct {
	// OnOpen runs once, immediately after the handshake response has been
	// written and before the read loop starts. Optional.
	OnOpen func(c *Conn)
	// OnMessage runs for each complete text or binary message, already
	// reassembled from any continuation frames. Optional.
	OnMessage func(c *Conn, data []byte, binary bool)
	// OnClose runs exactly once, before the connection is torn down,
	// regardless of which side initiated the close handshake or whether
	// the socket simply dropped.
	OnClose func(c *Conn, reason string, code int)
	// OnError runs when the read loop terminates on a protocol violation
	// or socket error, just before OnClose fires for the same event.
	OnError func(c *Conn, err error)
}

// Conn is one upgraded WebSocket connection. It owns the socket after a
// successful Hijack, serializes outbound frames, and runs the read state
// machine RFC 6455 §5 describes (MiniHeader -> Len16|Len64|Mask|Payload ->
// MiniHeader on a clean frame), reassembling continuation frames,
// answering pings automatically, and invoking OnClose exactly once no
// matter which side started the close handshake.
type Conn struct {
	rwc net.Conn
	br  *bufio.Reader
	h   Handler

	writeMu sync.Mutex // serializes frame writes so they leave the socket FIFO

	closeMu     sync.Mutex
	sentClose   bool
	recvClose   bool
	closeCalled bool
}

// Serve drives conn as a WebSocket connection until the close handshake
// completes or the socket errors, then returns. trailing is any bytes the
// HTTP layer already read past the handshake request that belong to the
// WebSocket stream (see Hijacker.Hijack); maxPayload bounds a single
// frame's payload, 0 meaning unbounded. Serve blocks for the life of the
// connection; callers run it in its own goroutine.
func Serve(conn net.Conn, br *bufio.Reader, trailing []byte, maxPayload int64, h Handler) {
	c := &Conn{rwc: conn, br: br, h: h}
	if h.OnOpen != nil {
		h.OnOpen(c)
	}
	c.readLoop(trailing, maxPayload)
}

// SendText sends msg as a single, final text frame.
func (c *Conn) SendText(msg string) error { return c.writeFrame(Encode(true, OpText, []byte(msg))) }

// SendBinary sends msg as a single, final binary frame.
func (c *Conn) SendBinary(msg []byte) error { return c.writeFrame(Encode(true, OpBinary, msg)) }

// SendPing sends a ping control frame carrying msg.
func (c *Conn) SendPing(msg []byte) error { return c.writeFrame(Encode(true, OpPing, msg)) }

// SendPong sends a pong control frame carrying msg, usually in reply to a
// ping; the read loop already does this automatically for peer pings, so
// handlers only need this for an unsolicited pong.
func (c *Conn) SendPong(msg []byte) error { return c.writeFrame(Encode(true, OpPong, msg)) }

// Close starts (or, if the peer already started it, completes) the close
// handshake with the given reason and status code. OnClose fires exactly
// once, whether that happens here (the peer's close frame already
// arrived) or later from the read loop (the peer's close frame arrives
// afterward).
func (c *Conn) Close(reason string, code int) error {
	c.closeMu.Lock()
	alreadySent := c.sentClose
	c.sentClose = true
	recv := c.recvClose
	c.closeMu.Unlock()
	if alreadySent {
		return nil
	}
	err := c.writeFrame(EncodeClose(code, reason))
	if recv {
		c.fireCloseOnce(reason, code)
		_ = c.rwc.Close()
	}
	return err
}

func (c *Conn) writeFrame(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.rwc.Write(b)
	return err
}

// readLoop implements the MiniHeader -> Len16|Len64|Mask|Payload ->
// MiniHeader cycle by repeatedly filling a Decoder from the socket and
// draining whatever complete frames it yields; frame.go's Decoder already
// does the per-frame state tracking, so this loop only needs to handle
// what a complete Frame means at the message level: continuation-frame
// reassembly, auto-pong, and the close handshake.
func (c *Conn) readLoop(trailing []byte, maxPayload int64) {
	dec := &Decoder{MaxPayload: maxPayload}
	if len(trailing) > 0 {
		dec.Feed(trailing)
	}

	var msg []byte
	var msgBinary bool
	readBuf := make([]byte, 4096)

	for {
		frames, err := dec.Decode()
		if err != nil {
			c.abort(err)
			return
		}
		for _, f := range frames {
			switch f.Opcode {
			case OpText, OpBinary:
				msg = append(msg[:0], f.Payload...)
				msgBinary = f.Opcode == OpBinary
				if f.Fin {
					c.deliver(msg, msgBinary)
					msg = nil
				}
			case OpContinuation:
				msg = append(msg, f.Payload...)
				if f.Fin {
					c.deliver(msg, msgBinary)
					msg = nil
				}
			case OpPing:
				_ = c.SendPong(f.Payload)
			case OpPong:
				// No application-visible hook for an unsolicited pong;
				// receiving one is enough to know the peer is alive.
			case OpClose:
				if done := c.handleClose(f.Payload); done {
					_ = c.rwc.Close()
					return
				}
			}
		}

		n, rerr := c.br.Read(readBuf)
		if rerr != nil {
			c.teardown(rerr)
			return
		}
		dec.Feed(readBuf[:n])
	}
}

func (c *Conn) deliver(msg []byte, binary bool) {
	if c.h.OnMessage != nil {
		cp := append([]byte(nil), msg...)
		c.h.OnMessage(c, cp, binary)
	}
}

// handleClose processes a peer-originated close frame: it echoes a close
// frame back if this side hasn't already sent one, fires OnClose exactly
// once, and reports whether both directions have now closed (so the
// caller can tear the socket down).
func (c *Conn) handleClose(payload []byte) bool {
	code, reason := CloseNormal, ""
	if len(payload) >= 2 {
		code = int(binary.BigEndian.Uint16(payload[:2]))
		reason = string(payload[2:])
	}

	c.closeMu.Lock()
	c.recvClose = true
	alreadySent := c.sentClose
	c.closeMu.Unlock()

	if !alreadySent {
		_ = c.writeFrame(EncodeClose(code, reason))
		c.closeMu.Lock()
		c.sentClose = true
		c.closeMu.Unlock()
	}
	c.fireCloseOnce(reason, code)
	return true
}

// abort tears the connection down after a protocol violation: it replies
// with the appropriate close code, fires OnError then OnClose, and closes
// the socket.
func (c *Conn) abort(err error) {
	code := CloseProtocolError
	switch err {
	case ErrPayloadTooLarge:
		code = CloseMessageTooBig
	case ErrUnmaskedFrame:
		code = CloseUnsupportedData
	case ErrReservedBitsSet, ErrFragmentedCtrl:
		code = CloseProtocolError
	}
	_ = c.writeFrame(EncodeClose(code, err.Error()))
	if c.h.OnError != nil {
		c.h.OnError(c, err)
	}
	c.fireCloseOnce(err.Error(), code)
	_ = c.rwc.Close()
}

// teardown handles the socket dropping outside of a clean close handshake
// (a read error, most commonly EOF): OnClose still fires exactly once,
// with CloseAbnormal, since nothing will call it otherwise.
func (c *Conn) teardown(err error) {
	if c.h.OnError != nil {
		c.h.OnError(c, err)
	}
	c.fireCloseOnce("uncleanly", CloseAbnormal)
	_ = c.rwc.Close()
}

func (c *Conn) fireCloseOnce(reason string, code int) {
	c.closeMu.Lock()
	if c.closeCalled {
		c.closeMu.Unlock()
		return
	}
	c.closeCalled = true
	c.closeMu.Unlock()
	if c.h.OnClose != nil {
		c.h.OnClose(c, reason, code)
	}
}
