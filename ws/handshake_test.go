package ws

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crowgo/crow/hdr"
)

func TestAcceptKnownVector(t *testing.T) {
	// RFC 6455 §1.3 worked example.
	require.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", Accept("dGhlIHNhbXBsZSBub25jZQ=="))
}

func TestNegotiatePicksFirstSharedProtocol(t *testing.T) {
	h := hdr.MakeSize(2)
	h.Set(hdr.SecWebSocketKey, "dGhlIHNhbXBsZSBub25jZQ==")
	h.Set(hdr.SecWebSocketProtocol, "chat, superchat")
	req := ParseHandshakeRequest(h)

	resp, ok := Negotiate(req, []string{"superchat", "chat"})
	require.True(t, ok)
	require.Equal(t, "superchat", resp.Protocol)
	require.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", resp.Accept)
}

func TestNegotiateMissingKeyFails(t *testing.T) {
	h := hdr.MakeSize(1)
	req := ParseHandshakeRequest(h)
	_, ok := Negotiate(req, nil)
	require.False(t, ok)
}

func TestWriteResponseIncludesProtocol(t *testing.T) {
	raw := string(WriteResponse(HandshakeResponse{Accept: "abc", Protocol: "chat"}))
	require.Contains(t, raw, "HTTP/1.1 101 Switching Protocols\r\n")
	require.Contains(t, raw, "Sec-WebSocket-Accept: abc\r\n")
	require.Contains(t, raw, "Sec-WebSocket-Protocol: chat\r\n")
}
