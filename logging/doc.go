// Package logging provides a minimal logging interface and adapters for answermesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the dispatcher, agents and capabilities use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging (NewLogger builds JSON or text handlers)
//   - ZapAdapter wrapping go.uber.org/zap
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - With for attaching fixed key/value pairs (agent name, task id)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "text"})
//	logger = logging.With(logger, "agent", "manager")
package logging
