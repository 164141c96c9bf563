// Package logging provides structured logging utilities for talendar.
//
// All packages log through log/slog. This package keeps attribute names
// consistent, builds the process handler from the configured level, and
// offers the small Logger interface the sync engine depends on.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "sync.pass")
//	logger.Info("calendar synced",
//	    logging.Calendar(id),
//	    logging.Status(logging.StatusSuccess))
//
// Never log OAuth tokens or sync tokens verbatim:
//
//	logger.Debug("using stored sync token", "token", logging.SanitizeToken(tok))
package logging
