// Package log provides the structured logging abstraction used by linkarq
// components.
//
// Engines, channels and plugins accept a Logger so the host application
// decides where records go. A zerolog adapter and a no-op logger are
// included:
//
//	logger := log.NewZerologAdapter()
//	engineLogger := log.With(logger, log.String("stream", id.String()))
//
// Implement Logger to route records elsewhere:
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
package log
