package ws

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// readServerFrame parses one unmasked server-to-client frame (the format
// Encode produces) directly off r, without going through Decoder, which
// only accepts masked client frames.
func readServerFrame(t *testing.T, r io.Reader) (Opcode, []byte) {
	t.Helper()
	var head [2]byte
	_, err := io.ReadFull(r, head[:])
	require.NoError(t, err)
	opcode := Opcode(head[0] & 0x0f)
	plen := int(head[1] & 0x7f)
	switch plen {
	case 126:
		var ext [2]byte
		_, err := io.ReadFull(r, ext[:])
		require.NoError(t, err)
		plen = int(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		_, err := io.ReadFull(r, ext[:])
		require.NoError(t, err)
		plen = int(binary.BigEndian.Uint64(ext[:]))
	}
	payload := make([]byte, plen)
	_, err = io.ReadFull(r, payload)
	require.NoError(t, err)
	return opcode, payload
}

func TestConnPingReceivesPong(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		Serve(server, bufio.NewReader(server), nil, 0, Handler{
			OnClose: func(c *Conn, reason string, code int) { close(done) },
		})
	}()

	_, err := client.Write(maskedClientFrame(true, OpPing, []byte("are-you-there"), [4]byte{7, 7, 7, 7}))
	require.NoError(t, err)

	opcode, payload := readServerFrame(t, client)
	require.Equal(t, OpPong, opcode)
	require.Equal(t, "are-you-there", string(payload))

	_, err = client.Write(maskedClientFrame(true, OpClose, EncodeClose(CloseNormal, "bye")[2:], [4]byte{1, 2, 3, 4}))
	require.NoError(t, err)
	opcode, _ = readServerFrame(t, client)
	require.Equal(t, OpClose, opcode)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose did not fire")
	}
}

func TestConnCloseWithCodeFiresOnCloseOnce(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	var closeCount int
	var gotCode int
	var gotReason string
	done := make(chan struct{})
	go func() {
		Serve(server, bufio.NewReader(server), nil, 0, Handler{
			OnClose: func(c *Conn, reason string, code int) {
				closeCount++
				gotCode = code
				gotReason = reason
				close(done)
			},
		})
	}()

	closePayload := EncodeClose(CloseGoingAway, "server maintenance")[2:]
	_, err := client.Write(maskedClientFrame(true, OpClose, closePayload, [4]byte{9, 8, 7, 6}))
	require.NoError(t, err)

	opcode, _ := readServerFrame(t, client)
	require.Equal(t, OpClose, opcode)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose did not fire")
	}
	require.Equal(t, 1, closeCount)
	require.Equal(t, CloseGoingAway, gotCode)
	require.Equal(t, "server maintenance", gotReason)
}

func TestConnReassemblesContinuationFrames(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	msgCh := make(chan string, 1)
	go func() {
		Serve(server, bufio.NewReader(server), nil, 0, Handler{
			OnMessage: func(c *Conn, data []byte, binary bool) {
				msgCh <- string(data)
			},
		})
	}()

	_, err := client.Write(maskedClientFrame(false, OpText, []byte("hello "), [4]byte{1, 1, 1, 1}))
	require.NoError(t, err)
	_, err = client.Write(maskedClientFrame(true, OpContinuation, []byte("world"), [4]byte{2, 2, 2, 2}))
	require.NoError(t, err)

	select {
	case msg := <-msgCh:
		require.Equal(t, "hello world", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("OnMessage did not fire")
	}
}
