// Package logging provides structured logging for the security event worker.
//
// It wraps Go's standard log/slog package to provide consistent, structured
// logging across the application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("worker started", "broker", "localhost:1883")
//	logger.Error("failed to connect", "error", err)
//
// Never log secrets, tokens or broker passwords.
package logging
