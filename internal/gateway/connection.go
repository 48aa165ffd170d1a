// Package gateway is the connection object every feature depends on. It
// composes the transport channel, the per-type listener registry and the
// correlated request table, and delivers every callback on the event loop.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vcampus/internal/dispatch"
	"vcampus/internal/eventloop"
	"vcampus/internal/protocol"
	"vcampus/internal/protocol/codec"
	"vcampus/internal/transport"
)

const DefaultRequestTimeout = 10 * time.Second

var ErrDisconnected = errors.New("connection closed")

type Options struct {
	Codec          codec.Codec
	Loop           *eventloop.Loop // a private loop is started when nil
	Logger         *slog.Logger
	Dial           transport.DialFunc
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	RequestTimeout time.Duration
	MaxFrameSize   int
}

// Connection is safe for concurrent use. Listeners, status callbacks and Go
// completions run on the event loop, never on the receive goroutine.
type Connection struct {
	logger   *slog.Logger
	loop     *eventloop.Loop
	ownsLoop bool
	timeout  time.Duration

	channel  *transport.Channel
	registry *dispatch.Registry
	pending  *dispatch.Pending

	statusMu sync.RWMutex
	onStatus func(transport.State)
}

func New(opts Options) *Connection {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Connection{
		logger:   logger.With("component", "gateway"),
		loop:     opts.Loop,
		timeout:  opts.RequestTimeout,
		registry: dispatch.NewRegistry(logger),
		pending:  dispatch.NewPending(),
	}
	if c.timeout <= 0 {
		c.timeout = DefaultRequestTimeout
	}
	if c.loop == nil {
		c.loop = eventloop.New(logger)
		c.loop.Start()
		c.ownsLoop = true
	}
	c.channel = transport.NewChannel(transport.Config{
		Codec:          opts.Codec,
		Dial:           opts.Dial,
		ConnectTimeout: opts.ConnectTimeout,
		SendTimeout:    opts.SendTimeout,
		MaxFrameSize:   opts.MaxFrameSize,
		Logger:         logger,
		OnMessage:      c.inbound,
		OnStateChange:  c.stateChanged,
	})
	return c
}

// Loop returns the event loop callbacks are delivered on.
func (c *Connection) Loop() *eventloop.Loop { return c.loop }

func (c *Connection) Connect(ctx context.Context, address string) error {
	return c.channel.Connect(ctx, address)
}

// IsConnected never blocks.
func (c *Connection) IsConnected() bool { return c.channel.IsConnected() }

func (c *Connection) State() transport.State { return c.channel.State() }

func (c *Connection) Stats() transport.Stats { return c.channel.Stats() }

// SendMessage writes msg as is, assigning an id and send time when missing.
// It does not queue or retry: a disconnected connection fails immediately.
func (c *Connection) SendMessage(msg *protocol.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Stamp(time.Now())
	return c.channel.Send(msg)
}

// SetMessageListener installs h for t, replacing any previous listener.
func (c *Connection) SetMessageListener(t protocol.MessageType, h dispatch.Handler) {
	c.registry.Register(t, h)
}

func (c *Connection) RemoveMessageListener(t protocol.MessageType) {
	c.registry.Unregister(t)
}

// OnStatusChange sets the passive status indicator callback.
func (c *Connection) OnStatusChange(fn func(transport.State)) {
	c.statusMu.Lock()
	c.onStatus = fn
	c.statusMu.Unlock()
}

// Request sends msg and waits for the reply carrying its id. The wait ends
// with the reply, dispatch.ErrRequestTimeout, ErrDisconnected or ctx's error.
// A failure reply is returned as a message, not as an error.
func (c *Connection) Request(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
	call, err := c.start(msg, nil)
	if err != nil {
		return nil, err
	}
	select {
	case done := <-call.Done:
		return done.Reply, done.Error
	case <-ctx.Done():
		c.pending.Cancel(call.ID, ctx.Err())
		return nil, ctx.Err()
	}
}

// Go sends msg and returns without waiting. cb runs on the event loop once,
// with the reply or the error that ended the wait. A reply is queued from the
// receive goroutine, so cb runs before any listener for a later message.
// Send failures are returned directly and cb is not called.
func (c *Connection) Go(msg *protocol.Message, cb func(*protocol.Message, error)) error {
	_, err := c.start(msg, func(done *dispatch.Call) {
		if cb == nil {
			return
		}
		if !c.loop.Post(func() { cb(done.Reply, done.Error) }) {
			c.logger.Debug("completion_dropped", "type", done.Type, "id", done.ID)
		}
	})
	return err
}

func (c *Connection) start(msg *protocol.Message, notify func(*dispatch.Call)) (*dispatch.Call, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}
	if !protocol.IsRequest(msg.Type) {
		return nil, fmt.Errorf("%s is not a request type", msg.Type)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	call, err := c.pending.AddFunc(msg.ID, msg.Type, c.timeout, notify)
	if err != nil {
		return nil, err
	}
	if err := c.SendMessage(msg); err != nil {
		c.pending.Discard(msg.ID)
		return nil, err
	}
	return call, nil
}

// Disconnect closes the channel, drops every listener and fails every
// outstanding request with ErrDisconnected. Safe to call repeatedly.
func (c *Connection) Disconnect() {
	c.channel.Disconnect()
	c.registry.Clear()
	c.pending.FailAll(ErrDisconnected)
}

// Close disconnects and stops the event loop if the connection created it.
func (c *Connection) Close() {
	c.Disconnect()
	if c.ownsLoop {
		c.loop.Stop()
		<-c.loop.Done()
	}
}

// inbound runs on the receive goroutine and must not block. Resolve posts a Go
// completion before returning, so replies and listeners share one FIFO.
func (c *Connection) inbound(msg *protocol.Message) {
	if c.pending.Resolve(msg) {
		return
	}
	if !c.loop.Post(func() { c.registry.Dispatch(msg) }) {
		c.logger.Debug("inbound_dropped", "type", msg.Type, "reason", "event loop stopped")
	}
}

func (c *Connection) stateChanged(s transport.State) {
	if s == transport.StateDisconnected {
		if n := c.pending.FailAll(ErrDisconnected); n > 0 {
			c.logger.Info("pending_requests_failed", "count", n)
		}
	}
	c.statusMu.RLock()
	fn := c.onStatus
	c.statusMu.RUnlock()
	if fn != nil {
		c.loop.Post(func() { fn(s) })
	}
}
