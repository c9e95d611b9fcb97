package lifecycle

import "time"

// State is the lifecycle state of a link.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	// StateFailed means a stream exhausted its retries. The link must be
	// stopped before it can start again.
	StateFailed
)

var stateNames = [...]string{"Stopped", "Starting", "Running", "Stopping", "Failed"}

// String returns a human-readable representation of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateFailed},
	StateRunning:  {StateStopping, StateFailed},
	StateStopping: {StateStopped, StateFailed},
	StateFailed:   {StateStopping},
}

// CanTransition reports whether from -> to is a valid transition.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Manager manages the lifecycle state machine of a link.
type Manager interface {
	// State returns the current lifecycle state.
	State() State

	// CanStart returns true if Start() can be called.
	CanStart() bool

	// CanStop returns true if Stop() can be called.
	CanStop() bool

	// TransitionTo attempts to transition to a new state.
	// Returns an error if the transition is not valid.
	TransitionTo(newState State, reason string) error

	// TransitionIf transitions only from the given state.
	TransitionIf(from, to State, reason string) bool

	// Go runs fn in a worker goroutine that WaitWithTimeout waits for.
	Go(fn func())

	// WaitWithTimeout waits for all workers to finish with a timeout.
	// Returns ErrShutdownTimeout if the timeout expires.
	WaitWithTimeout(timeout time.Duration) error
}
