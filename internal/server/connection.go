package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"vcampus/internal/protocol"
	"vcampus/internal/protocol/codec"
	"vcampus/internal/transport"
)

const (
	MaxIdleDuration = 5 * time.Minute // read deadline, reset after every frame
	WriteTimeout    = 5 * time.Second // default per-frame write deadline
)

type ClientConnection struct {
	ID           string // unique identifier = key in the manager map
	conn         transport.FrameConn
	codec        codec.Codec
	Manager      *ConnectionManager
	Limiter      *rate.Limiter // the limiter refills over time and Allow consumes a token
	router       *Router
	writeTimeout time.Duration
	ConnectedAt  time.Time
}

func NewClientConnection(conn transport.FrameConn, s *TCPServer) *ClientConnection {
	return &ClientConnection{
		ID:           uuid.NewString(),
		conn:         conn,
		codec:        s.codec,
		Manager:      s.Manager,
		Limiter:      rate.NewLimiter(rate.Limit(s.opts.RateLimit), s.opts.RateBurst),
		router:       s.router,
		writeTimeout: s.opts.WriteTimeout,
		ConnectedAt:  time.Now(),
	}
}

func (c *ClientConnection) RemoteAddr() string { return c.conn.RemoteAddr() }

// Listen serves requests until the peer goes away, the stream breaks or ctx
// is cancelled. Requests from one client are served in arrival order.
func (c *ClientConnection) Listen(ctx context.Context) {
	defer c.conn.Close()
	logger := c.Manager.logger

	logger.Info("client_started_listening",
		"client_id", c.ID,
		"remote_addr", c.conn.RemoteAddr(),
	)
	c.conn.SetReadDeadline(time.Now().Add(MaxIdleDuration))

	for {
		data, err := c.conn.ReadFrame()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Info("client_disconnected", "client_id", c.ID)
			case errors.Is(err, net.ErrClosed):
				// closed by CloseAllConnections during shutdown
			case errors.Is(err, protocol.ErrFrameTooLarge):
				logger.Warn("message_too_large", "client_id", c.ID, "error", err.Error())
			default:
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					logger.Warn("client_read_timeout", "client_id", c.ID)
				} else {
					logger.Error("client_read_error", "client_id", c.ID, "error", err)
				}
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(MaxIdleDuration))
		c.Manager.received.Add(1)

		// a bad envelope inside an intact frame does not break the stream
		msg, err := c.codec.Decode(data)
		if err != nil {
			logger.Warn("invalid_message_received", "client_id", c.ID, "error", err.Error())
			c.Send(ErrorReply(&protocol.Message{}, fmt.Sprintf("invalid message: %v", err)))
			continue
		}

		if !c.Limiter.Allow() {
			logger.Warn("rate_limit_exceeded", "client_id", c.ID, "type", msg.Type)
			c.Send(ErrorReply(msg, "rate limit exceeded"))
			continue
		}

		if !protocol.IsRequest(msg.Type) {
			c.Send(ErrorReply(msg, fmt.Sprintf("%s is not a request", msg.Type)))
			continue
		}

		if err := c.Send(c.router.Serve(ctx, c.ID, msg)); err != nil {
			logger.Warn("reply_failed", "client_id", c.ID, "type", msg.Type, "error", err.Error())
			return
		}
	}
}

// Send encodes msg and writes it as one frame. Safe for concurrent use.
func (c *ClientConnection) Send(msg *protocol.Message) error {
	data, err := c.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.Type, err)
	}
	if err := c.conn.WriteFrame(data, time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	c.Manager.sent.Add(1)
	return nil
}

func (c *ClientConnection) Close() {
	c.conn.Close()
}
