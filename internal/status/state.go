package status

import (
	"fmt"
	"slices"
	"sync"

	"voxcrm/internal/bus"
)

// State represents the client session's connectivity state.
type State string

const (
	SignedOut  State = "SIGNED_OUT"
	SigningIn  State = "SIGNING_IN"
	Refreshing State = "REFRESHING"
	Ready      State = "READY"
	Degraded   State = "DEGRADED"
	Error      State = "ERROR"
)

// validTransitions defines allowed state transitions. Degraded is entered when
// remote calls start failing; the session stays usable on cached/optimistic
// state and returns to Ready on the first successful remote call.
var validTransitions = map[State][]State{
	SignedOut:  {SigningIn, Error},
	SigningIn:  {Refreshing, SignedOut, Error},
	Refreshing: {Ready, Degraded, SignedOut, Error},
	Ready:      {Refreshing, Degraded, SignedOut, Error},
	Degraded:   {Ready, Refreshing, SignedOut, Error},
	Error:      {SignedOut, SigningIn},
}

// Machine tracks and enforces client session state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in SignedOut state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: SignedOut,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == to {
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Emit("session.status_changed", StatusChange{From: from, To: to})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
