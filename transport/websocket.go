package transport

import (
	"errors"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luma/relay/client"
)

// websocketConn adapts a gorilla websocket to client.Conn.
type websocketConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func newWebsocketConn(ws *websocket.Conn, writeTimeout time.Duration) *websocketConn {
	return &websocketConn{ws: ws, writeTimeout: writeTimeout}
}

func (w *websocketConn) ReadMessage() ([]byte, error) {
	_, data, err := w.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived) || errors.Is(err, net.ErrClosed) {
			return nil, client.ErrConnClosed
		}

		return nil, err
	}

	return data, nil
}

func (w *websocketConn) WriteMessage(data []byte) error {
	if err := w.ws.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}

	return w.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame, best effort, then closes the socket.
func (w *websocketConn) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = w.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

	err := w.ws.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

func (w *websocketConn) RemoteAddr() string {
	return w.ws.RemoteAddr().String()
}

var _ client.Conn = (*websocketConn)(nil)
