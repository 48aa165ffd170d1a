package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"vcampus/internal/protocol"
)

// FrameConn is a duplex stream of whole frames. ReadFrame is called from one
// goroutine only; WriteFrame may be called concurrently.
type FrameConn interface {
	ReadFrame() ([]byte, error)
	// WriteFrame writes one frame; a zero deadline means no deadline.
	WriteFrame(payload []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	Close() error
	RemoteAddr() string
}

// DialFunc opens a FrameConn to address. ctx carries the connect timeout.
type DialFunc func(ctx context.Context, address string) (FrameConn, error)

type tcpConn struct {
	conn net.Conn
	r    *protocol.FrameReader
	w    *protocol.FrameWriter
	wmu  sync.Mutex
}

// NewTCPConn wraps a stream connection with length-prefixed framing.
func NewTCPConn(conn net.Conn, maxFrameSize int) FrameConn {
	return &tcpConn{
		conn: conn,
		r:    protocol.NewFrameReader(conn, maxFrameSize),
		w:    protocol.NewFrameWriter(conn, maxFrameSize),
	}
}

func (c *tcpConn) ReadFrame() ([]byte, error) {
	return c.r.ReadFrame()
}

func (c *tcpConn) WriteFrame(payload []byte, deadline time.Time) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	return c.w.WriteFrame(payload)
}

func (c *tcpConn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }

func (c *tcpConn) Close() error { return c.conn.Close() }

func (c *tcpConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

// Dialer returns a DialFunc choosing the transport from the address scheme:
// ws:// and wss:// use WebSocket, tcp:// or a bare host:port use TCP.
func Dialer(maxFrameSize int) DialFunc {
	return func(ctx context.Context, address string) (FrameConn, error) {
		switch {
		case strings.HasPrefix(address, "ws://"), strings.HasPrefix(address, "wss://"):
			return DialWebSocket(ctx, address, maxFrameSize)
		default:
			return DialTCP(ctx, strings.TrimPrefix(address, "tcp://"), maxFrameSize)
		}
	}
}

func DialTCP(ctx context.Context, address string, maxFrameSize int) (FrameConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return NewTCPConn(conn, maxFrameSize), nil
}
