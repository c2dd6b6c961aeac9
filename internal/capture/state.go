package capture

import (
	"fmt"
	"sync"
)

type State string

const (
	StateIdle       State = "idle"
	StatePreparing  State = "preparing"
	StateRecording  State = "recording"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

type Event string

const (
	EventPrepare    Event = "prepare"
	EventRecord     Event = "record"
	EventAudioEnded Event = "audio_ended"
	EventFlushed    Event = "flushed"
	EventFail       Event = "fail"
)

// transitions is the complete state table of a capture session.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventPrepare: StatePreparing,
	},
	StatePreparing: {
		EventRecord: StateRecording,
		EventFail:   StateFailed,
	},
	StateRecording: {
		EventAudioEnded: StateFinalizing,
		EventFail:       StateFailed,
	},
	StateFinalizing: {
		EventFlushed: StateDone,
		EventFail:    StateFailed,
	},
}

// Machine tracks one capture session through its states.
type Machine struct {
	mu       sync.Mutex
	state    State
	onChange func(from, to State, ev Event)
}

// NewMachine creates a machine in the idle state. onChange, if set, is called
// after every accepted transition.
func NewMachine(onChange func(from, to State, ev Event)) *Machine {
	return &Machine{state: StateIdle, onChange: onChange}
}

// Fire applies ev and returns the new state. Events the current state does
// not accept are rejected and leave the state unchanged.
func (m *Machine) Fire(ev Event) (State, error) {
	m.mu.Lock()
	from := m.state
	to, ok := transitions[from][ev]
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("invalid transition: %s on %s", from, ev)
	}
	m.state = to
	m.mu.Unlock()

	if m.onChange != nil {
		m.onChange(from, to, ev)
	}
	return to, nil
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Terminal reports whether the session has finished, successfully or not.
func (m *Machine) Terminal() bool {
	s := m.State()
	return s == StateDone || s == StateFailed
}
