// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Log Levels:
//   - Debug: Verbose debugging information (per-entry extraction detail)
//   - Info: General informational messages (jobs started and settled)
//   - Warn: Warning messages and security events (path escapes, rejected entries)
//   - Error: Error messages (failed rollbacks, failed cleanup)
//
// Example Usage:
//
//	logger := logging.NewDefault().Named("filesystem")
//	logger.Info("extraction settled", zap.String("tenant", tenantID))
//	logger.Security("path_escape", zap.String("path", rel))
package logging
