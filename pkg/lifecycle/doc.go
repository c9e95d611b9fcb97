// Package lifecycle provides the state machine that governs a link.
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopping, Failed
//   - Running -> Stopping, Failed
//   - Stopping -> Stopped, Failed
//   - Failed -> Stopping
//
// A link enters Failed when one of its streams reports a delivery
// failure. Stop moves it back to Stopped through Stopping.
//
//	manager := lifecycle.NewManager(logger, emitter)
//	if err := manager.TransitionTo(lifecycle.StateStarting, "start requested"); err != nil {
//		return err
//	}
//
// Goroutines owned by the link are started with Go so
// that stopping can wait for them with WaitWithTimeout.
package lifecycle
