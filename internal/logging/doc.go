// Package logging provides structured logging utilities for taskpulse.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from level/format settings (text or JSON)
//   - Consistent attribute naming across the codebase
//   - PII sanitization (username hashing, token masking)
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "tasks.list")
//	logger.Info("listing tasks",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("login succeeded",
//	    logging.UserHash(username))
//
// # Security Considerations
//
//   - Usernames are hashed to prevent PII leakage while allowing correlation
//   - Access and refresh tokens are never logged directly
package logging
