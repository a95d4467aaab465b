// Package logging provides structured logging for the mobile core.
//
// This package wraps Go's standard log/slog package to provide consistent,
// structured logging across the library. The embedding application shell
// constructs one Logger at startup and hands component-scoped children to
// each service.
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
//	logger.Info("session hydrated", "state", state)
//	logger.Error("request failed", "error", err)
//
// # Security
//
// Never log tokens, passwords, or credential-store contents. Log token
// presence, not token values.
package logging
