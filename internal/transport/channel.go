package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"vcampus/internal/protocol"
	"vcampus/internal/protocol/codec"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultSendTimeout    = 5 * time.Second
)

// Config configures a Channel. OnMessage is invoked on the receive goroutine
// in arrival order and must not block for long; OnStateChange is invoked
// after every transition, outside the channel's lock.
type Config struct {
	Codec          codec.Codec
	Dial           DialFunc
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	MaxFrameSize   int
	Logger         *slog.Logger
	OnMessage      func(*protocol.Message)
	OnStateChange  func(State)
}

// Stats is a snapshot of connection counters.
type Stats struct {
	State            State
	RemoteAddr       string
	ConnectedAt      time.Time
	Uptime           time.Duration
	MessagesSent     int64
	MessagesReceived int64
	LastError        string
}

// Channel owns a single stream to the server: it serializes outbound
// messages, runs the receive loop and tracks the lifecycle state.
type Channel struct {
	cfg    Config
	logger *slog.Logger

	state atomic.Int32

	mu          sync.Mutex
	attempt     uint64 // bumped by every Connect and Disconnect
	conn        FrameConn
	remoteAddr  string
	readerDone  chan struct{}
	connectedAt time.Time
	lastErr     error

	sent     atomic.Int64
	received atomic.Int64
}

func NewChannel(cfg Config) *Channel {
	if cfg.Codec == nil {
		cfg.Codec = codec.JSON()
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	if cfg.Dial == nil {
		cfg.Dial = Dialer(cfg.MaxFrameSize)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		cfg:    cfg,
		logger: logger.With("component", "channel"),
	}
}

// State never blocks.
func (c *Channel) State() State { return State(c.state.Load()) }

func (c *Channel) IsConnected() bool { return c.State() == StateConnected }

// Connect establishes the stream and starts the receive loop. It fails with
// ErrAlreadyConnected unless the channel is disconnected.
func (c *Channel) Connect(ctx context.Context, address string) error {
	c.mu.Lock()
	if c.State() != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.attempt++
	attempt := c.attempt
	c.setState(StateConnecting)
	c.mu.Unlock()
	c.notify(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, err := c.cfg.Dial(dialCtx, address)
	if err != nil {
		c.mu.Lock()
		aborted := c.attempt != attempt
		if !aborted {
			c.lastErr = err
			c.setState(StateDisconnected)
		}
		c.mu.Unlock()
		if !aborted {
			c.notify(StateDisconnected)
		}
		c.logger.Warn("channel_connect_failed", "address", address, "error", err)
		return &ConnectError{Addr: address, Err: err}
	}

	c.mu.Lock()
	if c.attempt != attempt {
		// Disconnect, and maybe a newer Connect, ran while dialing.
		c.mu.Unlock()
		_ = conn.Close()
		return &ConnectError{Addr: address, Err: ErrConnectAborted}
	}
	done := make(chan struct{})
	c.conn = conn
	c.remoteAddr = conn.RemoteAddr()
	c.readerDone = done
	c.connectedAt = time.Now()
	c.lastErr = nil
	c.setState(StateConnected)
	c.mu.Unlock()

	c.logger.Info("channel_connected", "address", address, "remote_addr", c.remoteAddr)
	c.notify(StateConnected)

	go c.receive(conn, done)
	return nil
}

// Send encodes msg and writes it as one frame. Writes are serialized by the
// underlying FrameConn so concurrent callers never interleave frames.
func (c *Channel) Send(msg *protocol.Message) error {
	if msg == nil {
		return &SendError{Err: errors.New("nil message")}
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || c.State() != StateConnected {
		return &SendError{Type: msg.Type, Err: ErrNotConnected}
	}

	data, err := c.cfg.Codec.Encode(msg)
	if err != nil {
		return &SendError{Type: msg.Type, Err: err}
	}

	deadline := time.Now().Add(c.cfg.SendTimeout)
	if err := conn.WriteFrame(data, deadline); err != nil {
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			// Nothing reached the wire; the stream is still usable.
			return &SendError{Type: msg.Type, Err: err}
		}
		c.logger.Warn("channel_send_failed", "type", msg.Type, "error", err)
		c.teardown(conn, err)
		return &SendError{Type: msg.Type, Err: err}
	}
	c.sent.Add(1)
	return nil
}

// Disconnect closes the stream and waits for the receive loop to exit. It is
// idempotent. It must not be called from OnMessage.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	prev := c.State()
	conn := c.conn
	done := c.readerDone
	c.attempt++
	c.conn = nil
	c.readerDone = nil
	c.setState(StateDisconnected)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
		<-done
		c.logger.Info("channel_closed", "remote_addr", conn.RemoteAddr())
	}
	if prev != StateDisconnected {
		c.notify(StateDisconnected)
	}
}

func (c *Channel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Stats{
		State:            c.State(),
		RemoteAddr:       c.remoteAddr,
		MessagesSent:     c.sent.Load(),
		MessagesReceived: c.received.Load(),
	}
	if st.State == StateConnected {
		st.ConnectedAt = c.connectedAt
		st.Uptime = time.Since(c.connectedAt)
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

func (c *Channel) receive(conn FrameConn, done chan struct{}) {
	defer close(done)
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			c.teardown(conn, err)
			return
		}
		msg, err := c.cfg.Codec.Decode(data)
		if err != nil {
			c.logger.Warn("channel_decode_failed", "error", err, "frame_size", len(data))
			c.teardown(conn, err)
			return
		}
		c.received.Add(1)
		if c.cfg.OnMessage != nil {
			c.cfg.OnMessage(msg)
		}
	}
}

// teardown moves to Disconnected if conn is still the active stream.
func (c *Channel) teardown(conn FrameConn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.readerDone = nil
	c.lastErr = cause
	c.setState(StateDisconnected)
	c.mu.Unlock()

	_ = conn.Close()
	if isClosedErr(cause) {
		c.logger.Info("channel_peer_closed", "remote_addr", conn.RemoteAddr())
	} else {
		c.logger.Warn("channel_lost", "remote_addr", conn.RemoteAddr(), "error", cause)
	}
	c.notify(StateDisconnected)
}

func (c *Channel) setState(s State) { c.state.Store(int32(s)) }

func (c *Channel) notify(s State) {
	if c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(s)
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
