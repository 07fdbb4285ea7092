package transfer

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSessionActive is returned when a session is already running for the
// agent. Exactly one session may be active per agent identifier.
var ErrSessionActive = errors.New("transfer session already active")

// Tracker enforces per-agent session exclusivity. The caller acquires a
// handle before starting a session and releases it when the session reaches
// a terminal state; presence of a live handle is the "in progress" check.
type Tracker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]struct{})}
}

// Acquire claims the agent for a new session. Fails with ErrSessionActive
// if a handle for the agent is still live.
func (t *Tracker) Acquire(agentID string) (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.active[agentID]; exists {
		return nil, fmt.Errorf("%w: agent %s", ErrSessionActive, agentID)
	}
	t.active[agentID] = struct{}{}
	return &Handle{tracker: t, agentID: agentID}, nil
}

// Active reports whether a session handle is live for the agent.
func (t *Tracker) Active(agentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.active[agentID]
	return exists
}

// Handle represents one claimed session slot. Release when the session
// terminates; releasing twice is safe.
type Handle struct {
	tracker *Tracker
	agentID string
	once    sync.Once
}

// AgentID returns the agent this handle claims.
func (h *Handle) AgentID() string {
	return h.agentID
}

// Release frees the agent for a future session.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.tracker.mu.Lock()
		defer h.tracker.mu.Unlock()
		delete(h.tracker.active, h.agentID)
	})
}
