package status

import (
	"testing"

	"voxcrm/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != SignedOut {
		t.Errorf("initial state = %s, want SIGNED_OUT", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{SignedOut, SigningIn},
		{SigningIn, Refreshing},
		{Refreshing, Ready},
		{Ready, Degraded},
		{Degraded, Ready},
		{Ready, SignedOut},
		{Degraded, Refreshing},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Ready); err == nil {
		t.Error("Transition(SIGNED_OUT -> READY) should fail")
	}
}

func TestSelfTransitionIsNoop(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Degraded)

	// Repeated remote failures re-assert Degraded; must not error.
	if err := m.Transition(Degraded); err != nil {
		t.Errorf("Transition(DEGRADED -> DEGRADED) error = %v", err)
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(SigningIn); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != "session.status_changed" {
		t.Errorf("event kind = %q, want session.status_changed", evt.Kind)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != SignedOut || change.To != SigningIn {
		t.Errorf("change = %v -> %v, want SIGNED_OUT -> SIGNING_IN", change.From, change.To)
	}
}

// TestLoginLifecycle simulates the full sign-in flow:
// SIGNED_OUT → SIGNING_IN → REFRESHING → READY
func TestLoginLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{SigningIn, Refreshing, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Ready {
		t.Errorf("final state = %s, want READY", m.Current())
	}
}

// TestDegradedRecoveryCycle verifies the flaky-network loop:
// READY → DEGRADED → REFRESHING → READY
func TestDegradedRecoveryCycle(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Ready)

	steps := []State{Degraded, Refreshing, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Ready {
		t.Errorf("final state = %s, want READY", m.Current())
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		SignedOut:  {},
		SigningIn:  {SigningIn},
		Refreshing: {SigningIn, Refreshing},
		Ready:      {SigningIn, Refreshing, Ready},
		Degraded:   {SigningIn, Refreshing, Ready, Degraded},
		Error:      {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
