package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"krishi-advisor/internal/models"
)

// RequestTracker enforces most-recent-wins per client: starting a request cancels
// the client's previous one, and a request that finishes after being replaced
// reports ErrSuperseded instead of its result.
type RequestTracker struct {
	mu     sync.Mutex
	latest map[string]*Ticket
}

func NewRequestTracker() *RequestTracker {
	return &RequestTracker{latest: make(map[string]*Ticket)}
}

// Ticket is one tracked request.
type Ticket struct {
	ID       string
	clientID string
	ctx      context.Context
	cancel   context.CancelFunc
	tracker  *RequestTracker
}

// Begin registers a request. An empty clientID is not tracked.
func (t *RequestTracker) Begin(parent context.Context, clientID string) *Ticket {
	ctx, cancel := context.WithCancel(parent)
	tk := &Ticket{
		ID:       uuid.NewString(),
		clientID: clientID,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  t,
	}
	if clientID == "" {
		return tk
	}

	t.mu.Lock()
	prev := t.latest[clientID]
	t.latest[clientID] = tk
	t.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	return tk
}

// Context is canceled when the request is superseded or its parent ends.
func (tk *Ticket) Context() context.Context {
	return tk.ctx
}

// Finish releases the ticket and maps the outcome: a replaced request returns
// ErrSuperseded whatever its own error was.
func (tk *Ticket) Finish(err error) error {
	defer tk.cancel()
	if tk.clientID == "" {
		return err
	}

	t := tk.tracker
	t.mu.Lock()
	current := t.latest[tk.clientID]
	superseded := current != tk
	if !superseded {
		delete(t.latest, tk.clientID)
	}
	t.mu.Unlock()

	if superseded {
		return models.ErrSuperseded
	}
	return err
}

// InFlight counts tracked clients with an unfinished request.
func (t *RequestTracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.latest)
}
