package server

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcampus/internal/transport"
)

func pipeClient(t *testing.T, s *TCPServer) (*ClientConnection, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() {
		local.Close()
		remote.Close()
	})
	return NewClientConnection(transport.NewTCPConn(local, 0), s), remote
}

func assertClosed(t *testing.T, remote net.Conn) {
	t.Helper()
	require.NoError(t, remote.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := remote.Read(make([]byte, 1))
	require.Error(t, err)
	var netErr net.Error
	assert.False(t, errors.As(err, &netErr) && netErr.Timeout(), "connection left open")
}

func TestManagerRefusesClientsAfterClose(t *testing.T) {
	s := NewServer(Options{}, NewRouter(nil))
	before, beforeRemote := pipeClient(t, s)
	require.True(t, s.Manager.AddConnection(before))

	s.Manager.CloseAllConnections()
	assertClosed(t, beforeRemote)

	after, _ := pipeClient(t, s)
	assert.False(t, s.Manager.AddConnection(after))
	assert.Zero(t, s.Manager.Count())
}

func TestServeConnAfterManagerClosedReturns(t *testing.T) {
	s := NewServer(Options{}, NewRouter(nil))
	// the window between the quit check in ServeConn and registration
	s.Manager.CloseAllConnections()

	local, remote := net.Pipe()
	defer remote.Close()
	done := make(chan struct{})
	go func() {
		s.ServeConn(transport.NewTCPConn(local, 0))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeConn kept serving a refused client")
	}
	assertClosed(t, remote)
}

func TestTrackAfterStop(t *testing.T) {
	s := NewServer(Options{}, NewRouter(nil))
	s.Stop()

	ran := false
	assert.False(t, s.Track(func() { ran = true }))
	assert.False(t, ran)
}

func TestBroadcastDoesNotBlockRegistration(t *testing.T) {
	s := NewServer(Options{WriteTimeout: 1500 * time.Millisecond}, NewRouter(nil))
	// nobody reads the remote end, so the broadcast write blocks until its deadline
	stuck, _ := pipeClient(t, s)
	require.True(t, s.Manager.AddConnection(stuck))

	delivered := make(chan int, 1)
	go func() { delivered <- s.Manager.BroadcastNotice("library closes early") }()
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	other, _ := pipeClient(t, s)
	require.True(t, s.Manager.AddConnection(other))
	s.Manager.RemoveConnection(other)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	select {
	case n := <-delivered:
		assert.Zero(t, n)
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast never finished")
	}
}
