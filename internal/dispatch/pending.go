package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"vcampus/internal/protocol"
)

var (
	ErrRequestTimeout = errors.New("request timed out")
	ErrDuplicateID    = errors.New("request id already pending")
)

// Call is one outstanding request waiting for the reply that carries its id.
type Call struct {
	ID      string
	Type    protocol.MessageType
	Reply   *protocol.Message // set on success
	Error   error             // set on timeout, cancel or connection loss
	Started time.Time
	Done    chan *Call // receives the call exactly once

	timer  *time.Timer
	notify func(*Call)
}

// done runs notify on the completing goroutine before signalling Done. For a
// reply that is the receive goroutine, so completions keep arrival order.
func (c *Call) done() {
	if c.notify != nil {
		c.notify(c)
	}
	c.Done <- c
}

// Pending tracks in-flight requests by correlation id. Every call added is
// completed at most once, by Resolve, its timer, Cancel or FailAll, and only
// Discard drops a call without completing it.
type Pending struct {
	mu    sync.Mutex
	calls map[string]*Call
}

func NewPending() *Pending {
	return &Pending{calls: make(map[string]*Call)}
}

// Add registers a call for id. A positive timeout arms a timer that completes
// the call with ErrRequestTimeout.
func (p *Pending) Add(id string, t protocol.MessageType, timeout time.Duration) (*Call, error) {
	return p.AddFunc(id, t, timeout, nil)
}

// AddFunc is Add with a completion hook. notify runs synchronously on whichever
// goroutine completes the call and must not block.
func (p *Pending) AddFunc(id string, t protocol.MessageType, timeout time.Duration, notify func(*Call)) (*Call, error) {
	call := &Call{
		ID:      id,
		Type:    t,
		Started: time.Now(),
		Done:    make(chan *Call, 1),
		notify:  notify,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.calls[id]; dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	p.calls[id] = call
	if timeout > 0 {
		call.timer = time.AfterFunc(timeout, func() {
			p.Cancel(id, fmt.Errorf("%w after %s: %s", ErrRequestTimeout, timeout, t))
		})
	}
	return call, nil
}

// remove detaches the call for id, stopping its timer. It returns nil when the
// call was already completed.
func (p *Pending) remove(id string) *Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	call, ok := p.calls[id]
	if !ok {
		return nil
	}
	delete(p.calls, id)
	if call.timer != nil {
		call.timer.Stop()
	}
	return call
}

// Resolve completes the call that msg answers. It returns false when msg is
// not a reply or its call is no longer pending (late reply after a timeout).
func (p *Pending) Resolve(msg *protocol.Message) bool {
	if msg.ReplyTo == "" {
		return false
	}
	call := p.remove(msg.ReplyTo)
	if call == nil {
		return false
	}
	call.Reply = msg
	call.done()
	return true
}

// Cancel completes the call for id with err.
func (p *Pending) Cancel(id string, err error) bool {
	call := p.remove(id)
	if call == nil {
		return false
	}
	call.Error = err
	call.done()
	return true
}

// Discard forgets the call for id without completing it. It is meant for
// requests that never reached the wire.
func (p *Pending) Discard(id string) bool {
	return p.remove(id) != nil
}

// FailAll completes every pending call with err.
func (p *Pending) FailAll(err error) int {
	p.mu.Lock()
	calls := p.calls
	p.calls = make(map[string]*Call)
	p.mu.Unlock()

	for _, call := range calls {
		if call.timer != nil {
			call.timer.Stop()
		}
		call.Error = err
		call.done()
	}
	return len(calls)
}

func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
