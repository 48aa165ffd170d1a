// Package server is the reference campus server: it accepts framed
// connections over TCP and WebSocket and answers every request through a
// Router.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"vcampus/internal/protocol"
	"vcampus/internal/protocol/codec"
	"vcampus/internal/transport"
)

type Options struct {
	Addr          string
	Codec         codec.Codec
	MaxFrameSize  int
	RateLimit     float64 // requests per second per client
	RateBurst     int
	WriteTimeout  time.Duration // per-frame write deadline
	ShutdownGrace time.Duration // time between the shutdown notice and closing connections
	AdminSecret   string        // HMAC key for admin API tokens; empty leaves the API open
	Logger        *slog.Logger
}

type TCPServer struct {
	Addr    string
	Manager *ConnectionManager
	// shared by every client goroutine

	opts   Options
	codec  codec.Codec
	router *Router
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	started  time.Time
	stopping bool // guarded by mu; no wg.Add once set

	ctx      context.Context // cancelled on Stop, passed to handlers
	cancel   context.CancelFunc
	quitChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	// wait group for client goroutines
}

func NewServer(opts Options, router *Router) *TCPServer {
	if opts.Codec == nil {
		opts.Codec = codec.JSON()
	}
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = WriteTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TCPServer{
		Addr:     opts.Addr,
		Manager:  NewConnectionManager(logger),
		opts:     opts,
		codec:    opts.Codec,
		router:   router,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		quitChan: make(chan struct{}),
	}
}

// Listen binds the TCP listener. ListenAddr is valid afterwards.
func (s *TCPServer) Listen() error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.started = time.Now()
	s.mu.Unlock()
	s.logger.Info("tcp_server_started", "addr", listener.Addr().String(), "codec", s.codec.Name())
	return nil
}

// ListenAddr returns the bound address, or "" before Listen.
func (s *TCPServer) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Uptime is zero before Listen.
func (s *TCPServer) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started.IsZero() {
		return 0
	}
	return time.Since(s.started)
}

// Start listens and accepts connections until Stop.
func (s *TCPServer) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Serve runs the accept loop on a listener bound by Listen.
func (s *TCPServer) Serve() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return errors.New("server is not listening")
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.quitChan:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept_failed", "error", err.Error())
			continue
		}
		if !s.acquire() {
			conn.Close()
			return nil
		}
		go func(conn net.Conn) {
			defer s.wg.Done()
			s.ServeConn(transport.NewTCPConn(conn, s.opts.MaxFrameSize))
		}(conn)
	}
}

// ServeConn runs the lifecycle of one client connection and returns when it
// ends. The WebSocket handler calls it for upgraded connections.
func (s *TCPServer) ServeConn(conn transport.FrameConn) {
	select {
	case <-s.quitChan:
		conn.Close()
		return
	default:
	}
	client := NewClientConnection(conn, s)
	if !s.Manager.AddConnection(client) {
		conn.Close()
		return
	}
	client.Listen(s.ctx)
	s.Manager.RemoveConnection(client)
}

// Track runs fn as a client goroutine that Stop waits for. It returns false
// without running fn once Stop has begun.
func (s *TCPServer) Track(fn func()) bool {
	if !s.acquire() {
		return false
	}
	defer s.wg.Done()
	fn()
	return true
}

// acquire adds one to wg unless Stop has begun.
func (s *TCPServer) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.wg.Add(1)
	return true
}

// Stop notifies clients, closes every connection and waits for the client
// goroutines. It is safe to call more than once.
func (s *TCPServer) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopping = true
		close(s.quitChan)
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()

		s.Manager.BroadcastNotice("server is shutting down")
		if s.opts.ShutdownGrace > 0 {
			// give clients a moment to process the notice
			time.Sleep(s.opts.ShutdownGrace)
		}
		s.cancel()
		s.Manager.CloseAllConnections()
		s.wg.Wait()
		s.logger.Info("tcp_server_stopped")
	})
}
