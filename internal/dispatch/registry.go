// Package dispatch routes inbound messages: by type through Registry, and by
// correlation id through Pending.
package dispatch

import (
	"log/slog"
	"sync"

	"vcampus/internal/protocol"
)

// Handler consumes one inbound message.
type Handler func(msg *protocol.Message)

// Registry maps a message type to the one handler currently listening for it.
// Registering again for a type replaces the previous handler.
//
// Register and Unregister may run concurrently with Dispatch. Dispatch reads
// the handler under the lock and calls it after releasing it, so an Unregister
// that lands while a handler is already running does not stop that call.
type Registry struct {
	mu       sync.RWMutex
	handlers map[protocol.MessageType]Handler
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[protocol.MessageType]Handler),
		logger:   logger,
	}
}

func (r *Registry) Register(t protocol.MessageType, h Handler) {
	if h == nil {
		r.Unregister(t)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, replaced := r.handlers[t]; replaced {
		r.logger.Debug("listener_replaced", "type", string(t))
	}
	r.handlers[t] = h
}

func (r *Registry) Unregister(t protocol.MessageType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, t)
}

// Dispatch invokes the handler registered for msg.Type once. Messages nobody
// listens for are dropped and Dispatch returns false.
func (r *Registry) Dispatch(msg *protocol.Message) bool {
	r.mu.RLock()
	h, ok := r.handlers[msg.Type]
	r.mu.RUnlock()

	if !ok {
		r.logger.Debug("message_unrouted",
			"type", string(msg.Type),
			"id", msg.ID,
		)
		return false
	}
	h(msg)
	return true
}

func (r *Registry) Has(t protocol.MessageType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[t]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Clear removes every handler.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[protocol.MessageType]Handler)
}
