package transport

import (
	"context"
	"errors"
	"fmt"
	"net"

	"vcampus/internal/protocol"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrConnectAborted   = errors.New("connect aborted by disconnect")
)

// ConnectError is returned by Connect when the stream could not be established.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string { return fmt.Sprintf("connect %s: %v", e.Addr, e.Err) }

func (e *ConnectError) Unwrap() error { return e.Err }

// Timeout reports whether the attempt failed because the connect timeout expired.
func (e *ConnectError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// SendError is returned by Send when a message was not written.
type SendError struct {
	Type protocol.MessageType
	Err  error
}

func (e *SendError) Error() string { return fmt.Sprintf("send %s: %v", e.Type, e.Err) }

func (e *SendError) Unwrap() error { return e.Err }
