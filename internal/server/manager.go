package server

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"vcampus/internal/campus"
	"vcampus/internal/protocol"
)

type ConnectionManager struct {
	clients map[string]*ClientConnection
	// key: client ID, value: ClientConnection pointer
	mu     sync.RWMutex
	closed bool // set by CloseAllConnections, refuses later clients
	logger *slog.Logger

	received atomic.Int64
	sent     atomic.Int64
}

func NewConnectionManager(logger *slog.Logger) *ConnectionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionManager{
		clients: make(map[string]*ClientConnection),
		logger:  logger,
	}
}

// AddConnection registers client. It returns false once the manager has been
// closed; the caller owns the connection then.
func (m *ConnectionManager) AddConnection(client *ClientConnection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.logger.Info("client_refused", "client_id", client.ID, "reason", "shutting down")
		return false
	}
	m.clients[client.ID] = client
	m.logger.Info("client_added",
		"client_id", client.ID,
		"clients", len(m.clients),
	)
	return true
}

func (m *ConnectionManager) RemoveConnection(client *ClientConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, client.ID)
	m.logger.Info("client_removed",
		"client_id", client.ID,
		"clients", len(m.clients),
	)
}

func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// CloseAllConnections closes every client and refuses new ones from then on.
func (m *ConnectionManager) CloseAllConnections() {
	m.mu.Lock()
	m.closed = true
	clients := m.clients
	// reset the map so closed clients can be collected
	m.clients = make(map[string]*ClientConnection)
	m.mu.Unlock()

	for id, client := range clients {
		client.Close()
		m.logger.Info("client_connection_closed", "client_id", id)
	}
}

func (m *ConnectionManager) snapshot() []*ClientConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clients := make([]*ClientConnection, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	return clients
}

// BroadcastNotice sends a NOTICE to every client and returns how many got it.
func (m *ConnectionManager) BroadcastNotice(text string) int {
	msg, err := protocol.NewMessage(protocol.TypeNotice, campus.Notice{Text: text, SentAt: time.Now()})
	if err != nil {
		m.logger.Error("failed_to_build_notice", "error", err.Error())
		return 0
	}
	msg.Stamp(time.Now())
	return m.Broadcast(msg)
}

// Broadcast sends outside the lock so a slow client cannot stall registration.
func (m *ConnectionManager) Broadcast(msg *protocol.Message) int {
	delivered := 0
	for _, c := range m.snapshot() {
		if err := c.Send(msg); err != nil {
			m.logger.Warn("failed_to_send_broadcast",
				"client_id", c.ID,
				"error", err.Error(),
			)
			continue
		}
		delivered++
	}
	return delivered
}

// ClientInfo describes a connected client for the admin API.
type ClientInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

type ManagerStats struct {
	Clients          []ClientInfo `json:"clients"`
	MessagesReceived int64        `json:"messages_received"`
	MessagesSent     int64        `json:"messages_sent"`
}

func (m *ConnectionManager) Stats() ManagerStats {
	m.mu.RLock()
	clients := make([]ClientInfo, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, ClientInfo{ID: c.ID, RemoteAddr: c.RemoteAddr(), ConnectedAt: c.ConnectedAt})
	}
	m.mu.RUnlock()
	sort.Slice(clients, func(i, j int) bool { return clients[i].ConnectedAt.Before(clients[j].ConnectedAt) })
	return ManagerStats{
		Clients:          clients,
		MessagesReceived: m.received.Load(),
		MessagesSent:     m.sent.Load(),
	}
}
