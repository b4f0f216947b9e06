// Package ws implements the WebSocket handshake (RFC 6455 §4) and frame
// codec (RFC 6455 §5) the engine uses once a connection has been upgraded.
// Framing is hand-rolled rather than delegated to a third-party codec,
// deliberately mirroring the rest of this engine's hand-rolled HTTP/1.1
// stack: the wire format is simple enough, and small enough, that owning
// it end to end keeps the connection state machine in one place.
package ws

import (
	"crypto/sha1"
	"encoding/base64"
	"strings"

	"github.com/crowgo/crow/hdr"
)

// magicGUID is the fixed string RFC 6455 §1.3 defines for computing
// Sec-WebSocket-Accept from the client's Sec-WebSocket-Key.
const magicGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// Accept computes the Sec-WebSocket-Accept value for a given
// Sec-WebSocket-Key.
func Accept(key string) string {
	sum := sha1.Sum([]byte(key + magicGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// HandshakeRequest is the subset of an upgrade request the handshake
// needs.
type HandshakeRequest struct {
	Header     hdr.Header
	Protocols  []string // requested Sec-WebSocket-Protocol values, in order
}

// ParseHandshakeRequest extracts the handshake-relevant fields from h.
func ParseHandshakeRequest(h hdr.Header) HandshakeRequest {
	var protos []string
	if v := h.Get(hdr.SecWebSocketProtocol); v != "" {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				protos = append(protos, p)
			}
		}
	}
	return HandshakeRequest{Header: h, Protocols: protos}
}

// Key returns the client's Sec-WebSocket-Key, or "" if absent. The value
// is returned as sent; its format is not checked.
func (r HandshakeRequest) Key() string {
	return r.Header.Get(hdr.SecWebSocketKey)
}

// Version returns the client's Sec-WebSocket-Version.
func (r HandshakeRequest) Version() string {
	return r.Header.Get(hdr.SecWebSocketVersion)
}

// HandshakeResponse is what the server sends back to complete the
// upgrade.
type HandshakeResponse struct {
	Accept   string
	Protocol string // chosen subprotocol, "" if none
}

// Negotiate builds the response for req, choosing the first of
// acceptedProtocols (server's supported list, in preference order) that
// the client also offered. ok is false only if the key is missing; a
// present key is accepted whatever its format, and there is no hook to
// reject a handshake.
func Negotiate(req HandshakeRequest, acceptedProtocols []string) (resp HandshakeResponse, ok bool) {
	key := req.Key()
	if key == "" {
		return HandshakeResponse{}, false
	}
	resp.Accept = Accept(key)
	for _, want := range acceptedProtocols {
		for _, have := range req.Protocols {
			if want == have {
				resp.Protocol = want
				return resp, true
			}
		}
	}
	return resp, true
}

// WriteResponse renders the HTTP/1.1 101 Switching Protocols response
// line and headers for resp as raw bytes, ready to write directly to the
// connection.
func WriteResponse(resp HandshakeResponse) []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Accept: " + resp.Accept + "\r\n")
	if resp.Protocol != "" {
		b.WriteString("Sec-WebSocket-Protocol: " + resp.Protocol + "\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}
