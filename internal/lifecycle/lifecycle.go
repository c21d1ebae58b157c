// Package lifecycle implements the Index Manager's explicit state machine
// (spec §4.7): a small, closed set of states with enforced transitions, a
// bounded transition history, and panic/error-isolated observers.
package lifecycle

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cortexlabs/codeindex/internal/storage"
)

// State is one of the manager's five lifecycle states.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateIndexing       State = "indexing"
	StateReady          State = "ready"
	StatePartial        State = "partial"
	StateError          State = "error"
)

var permitted = map[State]map[State]bool{
	StateUninitialized: {StateIndexing: true},
	StateIndexing:       {StateReady: true, StatePartial: true, StateError: true},
	StateReady:          {StateIndexing: true, StateUninitialized: true},
	StatePartial:        {StateIndexing: true, StateUninitialized: true},
	StateError:          {StateUninitialized: true, StateIndexing: true},
}

// Transition is one ring-buffer entry.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Progress reports current/total/phase during StateIndexing. It is cleared
// (zero value) the instant the manager leaves StateIndexing.
type Progress struct {
	Current int
	Total   int
	Phase   string
}

// Observer is notified after every committed transition. Panics and errors
// from an observer are caught and logged, never propagated to the caller of
// Transition (spec §4.7).
type Observer func(from, to State)

const ringSize = 100

// Manager owns the current state, transition history, and progress.
type Manager struct {
	mu        sync.Mutex
	state     State
	progress  Progress
	history   []Transition
	observers []Observer
}

// New returns a Manager starting in StateUninitialized.
func New() *Manager {
	return &Manager{state: StateUninitialized}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Progress returns the current progress snapshot (zero value outside
// StateIndexing).
func (m *Manager) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

// History returns a copy of the retained transition ring buffer, oldest
// first.
func (m *Manager) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// OnStateChange registers an observer, invoked synchronously after each
// transition commits.
func (m *Manager) OnStateChange(obs Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, obs)
}

// Transition moves the manager from its current state to to, failing loudly
// (ErrInvalidTransition) if the move isn't permitted. Progress is cleared on
// leaving StateIndexing.
func (m *Manager) Transition(to State) error {
	m.mu.Lock()
	from := m.state
	if !permitted[from][to] {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, from, to)
	}

	m.state = to
	if to != StateIndexing {
		m.progress = Progress{}
	}
	m.history = append(m.history, Transition{From: from, To: to, At: time.Now()})
	if len(m.history) > ringSize {
		m.history = m.history[len(m.history)-ringSize:]
	}
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	for _, obs := range observers {
		notifyObserver(obs, from, to)
	}
	return nil
}

func notifyObserver(obs Observer, from, to State) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("lifecycle: observer panicked: %v", r)
		}
	}()
	obs(from, to)
}

// UpdateProgress records progress; legal only while StateIndexing.
func (m *Manager) UpdateProgress(p Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIndexing {
		return fmt.Errorf("%w: progress update outside indexing (current state %s)", storage.ErrInvalidTransition, m.state)
	}
	m.progress = p
	return nil
}

// Reset unconditionally returns to StateUninitialized, regardless of the
// current state's permitted-transition table.
func (m *Manager) Reset() {
	m.mu.Lock()
	from := m.state
	m.state = StateUninitialized
	m.progress = Progress{}
	m.history = append(m.history, Transition{From: from, To: StateUninitialized, At: time.Now()})
	if len(m.history) > ringSize {
		m.history = m.history[len(m.history)-ringSize:]
	}
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	for _, obs := range observers {
		notifyObserver(obs, from, StateUninitialized)
	}
}
