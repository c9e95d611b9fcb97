package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/linkarq/pkg/log"
)

// Common lifecycle errors.
var (
	ErrNotRunning      = errors.New("lifecycle: not running")
	ErrAlreadyRunning  = errors.New("lifecycle: already running")
	ErrShutdownTimeout = errors.New("lifecycle: shutdown timeout")
)

// ShutdownTimeout bounds how long Stop waits for workers.
const ShutdownTimeout = 5 * time.Second

// DefaultManager is the Manager used by a link. Workers started with Go
// are waited for by WaitWithTimeout.
type DefaultManager struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	workers sync.WaitGroup
	logger  log.Logger
	emitter EventEmitter
}

// NewManager returns a manager in StateStopped. A nil logger discards
// output and a nil emitter drops events.
func NewManager(logger log.Logger, emitter EventEmitter) *DefaultManager {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &DefaultManager{logger: logger, emitter: emitter}
}

// State returns the current state.
func (m *DefaultManager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// TransitionTo moves to next. An invalid transition leaves the state
// unchanged and returns ErrNotRunning from Stopped or Failed and
// ErrAlreadyRunning otherwise.
func (m *DefaultManager) TransitionTo(next State, reason string) error {
	m.mu.Lock()
	prev := m.state
	if !CanTransition(prev, next) {
		m.mu.Unlock()
		if prev == StateStopped || prev == StateFailed {
			return ErrNotRunning
		}
		return ErrAlreadyRunning
	}
	m.state = next
	m.mu.Unlock()

	m.changed(prev, next, reason)
	return nil
}

// TransitionIf moves from "from" to "to" only if the current state is
// from. It reports whether the transition happened.
func (m *DefaultManager) TransitionIf(from, to State, reason string) bool {
	m.mu.Lock()
	if m.state != from || !CanTransition(from, to) {
		m.mu.Unlock()
		return false
	}
	m.state = to
	m.mu.Unlock()

	m.changed(from, to, reason)
	return true
}

// changed runs outside m.mu so emitters may query the manager.
func (m *DefaultManager) changed(prev, next State, reason string) {
	if m.emitter != nil {
		m.emitter.OnStateChange(prev, next, reason)
	}
	m.logger.Info("state transition",
		log.String("from", prev.String()),
		log.String("to", next.String()),
		log.String("reason", reason),
	)
}

// CanStart reports whether the link may be started.
func (m *DefaultManager) CanStart() bool {
	return m.State() == StateStopped
}

// CanStop reports whether the link may be stopped.
func (m *DefaultManager) CanStop() bool {
	switch m.State() {
	case StateStarting, StateRunning, StateFailed:
		return true
	}
	return false
}

// SetCancel stores the function that Cancel calls.
func (m *DefaultManager) SetCancel(cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancel = cancel
}

// Cancel calls the function stored by SetCancel, if any.
func (m *DefaultManager) Cancel() {
	m.mu.RLock()
	cancel := m.cancel
	m.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// Go runs fn in a tracked worker goroutine.
func (m *DefaultManager) Go(fn func()) {
	m.workers.Add(1)
	go func() {
		defer m.workers.Done()
		fn()
	}()
}

// WaitWithTimeout waits for every worker started with Go. It returns
// ErrShutdownTimeout if they are still running after timeout.
func (m *DefaultManager) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		m.workers.Wait()
		close(done)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-t.C:
		m.logger.Warn("workers still running after timeout",
			log.Duration("timeout", timeout),
		)
		return ErrShutdownTimeout
	}
}
