// Package logging provides structured logging for starvectl.
//
// This package wraps a global zap logger with convenience functions for the
// events the client cares about: gateway calls, lifecycle transitions and
// swallowed poll failures.
//
// # Log Levels
//
//   - Debug: every gateway call (method, path, status, duration, request id)
//   - Info: lifecycle transitions, discovery and release results
//   - Warn: per-tick poll failures (the attack keeps running)
//   - Error: failures that abort a command
//
// # Configuration
//
// Logging is silent unless a level is given by flag or by the
// STARVECTL_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize(levelFlag, logFileFlag); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// The interactive console owns the terminal, so it only logs when a file is
// given.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and
// SetLogger are meant to be called once before any goroutine starts.
package logging
