package crow

import (
	"fmt"

	"github.com/crowgo/crow/ws"
)

// UpgradeWebSocket completes the WebSocket handshake for req (RFC 6455
// §4) using w's Hijacker, then blocks running h's read loop until the
// close handshake completes or the socket drops. protocols lists the
// subprotocols this handler accepts, in preference order, negotiated
// against the client's Sec-WebSocket-Protocol list. Call this as (or
// from) a route handler registered for a request that set
// req.Upgrade() == "websocket" — it takes over the connection for the
// life of the WebSocket, so the handler should not write to w afterward.
func (a *App) UpgradeWebSocket(req *Request, w ResponseWriter, protocols []string, h ws.Handler) error {
	if req.Upgrade() != "websocket" {
		return fmt.Errorf("crow: request did not ask for a websocket upgrade")
	}

	hreq := ws.ParseHandshakeRequest(req.Header)
	resp, ok := ws.Negotiate(hreq, protocols)
	if !ok {
		w.WriteHeader(400)
		_, _ = w.Write([]byte("Bad Request: missing or invalid Sec-WebSocket-Key"))
		return fmt.Errorf("crow: missing or invalid Sec-WebSocket-Key")
	}

	hijacker, ok := w.(Hijacker)
	if !ok {
		return fmt.Errorf("crow: response does not support hijacking")
	}
	conn, rw, trailing, err := hijacker.Hijack()
	if err != nil {
		return err
	}
	if _, err := rw.Writer.Write(ws.WriteResponse(resp)); err != nil {
		_ = conn.Close()
		return err
	}
	if err := rw.Writer.Flush(); err != nil {
		_ = conn.Close()
		return err
	}

	ws.Serve(conn, rw.Reader, trailing, a.WebSocketMaxPayload, h)
	return nil
}
