package executor

import (
	"sync"
)

// State is the engine lifecycle state.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Pausing
	Paused
	Stopping
	Errored
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Starting:
		return "STARTING"
	case Running:
		return "RUNNING"
	case Pausing:
		return "PAUSING"
	case Paused:
		return "PAUSED"
	case Stopping:
		return "STOPPING"
	case Errored:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// transitions lists the valid targets per state. Errored is reachable from
// every non-terminal state and handled separately in Transition.
var transitions = map[State][]State{
	Stopped:  {Starting},
	Starting: {Running},
	Running:  {Pausing, Stopping},
	Pausing:  {Paused},
	Paused:   {Running, Stopping},
	Stopping: {Stopped},
	Errored:  {},
}

// Machine guards lifecycle transitions. Invalid transitions are no-ops that
// report false, never panics.
type Machine struct {
	mu       sync.RWMutex
	state    State
	onChange func(from, to State)
}

func NewMachine(onChange func(from, to State)) *Machine {
	return &Machine{state: Stopped, onChange: onChange}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Transition moves to the target state if the move is valid.
func (m *Machine) Transition(to State) bool {
	m.mu.Lock()
	from := m.state

	valid := false
	if to == Errored {
		valid = from != Errored && from != Stopped
	} else {
		for _, t := range transitions[from] {
			if t == to {
				valid = true
				break
			}
		}
	}
	if !valid {
		m.mu.Unlock()
		return false
	}

	m.state = to
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(from, to)
	}
	return true
}

// Reset forces the machine back to Stopped from Errored. This is the
// external-restart escape hatch, not a normal transition.
func (m *Machine) Reset() bool {
	m.mu.Lock()
	if m.state != Errored {
		m.mu.Unlock()
		return false
	}
	from := m.state
	m.state = Stopped
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(from, Stopped)
	}
	return true
}
