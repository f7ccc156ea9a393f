package executor

import "testing"

func TestMachineValidTransitions(t *testing.T) {
	m := NewMachine(nil)

	path := []State{Starting, Running, Pausing, Paused, Running, Stopping, Stopped}
	for _, to := range path {
		if !m.Transition(to) {
			t.Fatalf("transition to %s from %s rejected", to, m.State())
		}
	}
	if m.State() != Stopped {
		t.Fatalf("final state=%s, expected STOPPED", m.State())
	}
}

func TestMachineInvalidTransitionsAreNoOps(t *testing.T) {
	tests := []struct {
		name string
		from []State // path to reach the starting state
		to   State
	}{
		{name: "stopped to running", to: Running},
		{name: "stopped to paused", to: Paused},
		{name: "running to starting", from: []State{Starting, Running}, to: Starting},
		{name: "running to paused directly", from: []State{Starting, Running}, to: Paused},
		{name: "paused to pausing", from: []State{Starting, Running, Pausing, Paused}, to: Pausing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(nil)
			for _, s := range tt.from {
				if !m.Transition(s) {
					t.Fatalf("setup transition to %s failed", s)
				}
			}
			before := m.State()
			if m.Transition(tt.to) {
				t.Fatalf("transition %s -> %s accepted", before, tt.to)
			}
			if m.State() != before {
				t.Fatalf("state changed to %s on rejected transition", m.State())
			}
		})
	}
}

func TestMachineErroredReachability(t *testing.T) {
	// Errored is valid from every state except Stopped and Errored itself
	reachable := [][]State{
		{Starting},
		{Starting, Running},
		{Starting, Running, Pausing},
		{Starting, Running, Pausing, Paused},
		{Starting, Running, Stopping},
	}
	for _, path := range reachable {
		m := NewMachine(nil)
		for _, s := range path {
			m.Transition(s)
		}
		if !m.Transition(Errored) {
			t.Fatalf("Errored rejected from %s", path[len(path)-1])
		}
	}

	m := NewMachine(nil)
	if m.Transition(Errored) {
		t.Fatalf("Errored accepted from STOPPED")
	}
	m.Transition(Starting)
	m.Transition(Errored)
	if m.Transition(Errored) {
		t.Fatalf("Errored accepted from ERROR")
	}
}

func TestMachineResetOnlyFromErrored(t *testing.T) {
	m := NewMachine(nil)
	if m.Reset() {
		t.Fatalf("Reset accepted from STOPPED")
	}

	m.Transition(Starting)
	if m.Reset() {
		t.Fatalf("Reset accepted from STARTING")
	}

	m.Transition(Errored)
	if !m.Reset() {
		t.Fatalf("Reset rejected from ERROR")
	}
	if m.State() != Stopped {
		t.Fatalf("state after Reset=%s, expected STOPPED", m.State())
	}
	// machine is usable again
	if !m.Transition(Starting) {
		t.Fatalf("cannot start after Reset")
	}
}

func TestMachineOnChangeCallback(t *testing.T) {
	var calls []string
	m := NewMachine(func(from, to State) {
		calls = append(calls, from.String()+">"+to.String())
	})

	m.Transition(Starting)
	m.Transition(Running)
	m.Transition(Starting) // invalid, must not fire the callback

	if len(calls) != 2 {
		t.Fatalf("onChange fired %d times, expected 2 (invalid transitions are silent)", len(calls))
	}
	if calls[0] != "STOPPED>STARTING" || calls[1] != "STARTING>RUNNING" {
		t.Fatalf("calls=%v", calls)
	}
}
