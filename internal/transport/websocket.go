package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vcampus/internal/protocol"
)

const closeGracePeriod = time.Second

// wsConn carries one frame per binary WebSocket message; WebSocket messages
// are already delimited so no length prefix is added.
type wsConn struct {
	conn         *websocket.Conn
	maxFrameSize int
	wmu          sync.Mutex
}

// NewWebSocketConn wraps an established WebSocket (client or server side).
func NewWebSocketConn(conn *websocket.Conn, maxFrameSize int) FrameConn {
	if maxFrameSize <= 0 {
		maxFrameSize = protocol.DefaultMaxFrameSize
	}
	conn.SetReadLimit(int64(maxFrameSize))
	return &wsConn{conn: conn, maxFrameSize: maxFrameSize}
}

func DialWebSocket(ctx context.Context, url string, maxFrameSize int) (FrameConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewWebSocketConn(conn, maxFrameSize), nil
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			if errors.Is(err, websocket.ErrReadLimit) {
				return nil, fmt.Errorf("%w: %v", protocol.ErrFrameTooLarge, err)
			}
			return nil, err
		}
		if mt != websocket.BinaryMessage {
			continue // text frames are not part of the protocol
		}
		return data, nil
	}
}

func (c *wsConn) WriteFrame(payload []byte, deadline time.Time) error {
	if len(payload) > c.maxFrameSize {
		return fmt.Errorf("%w: %d > %d", protocol.ErrFrameTooLarge, len(payload), c.maxFrameSize)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, payload)
}

func (c *wsConn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }

func (c *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }
