/*
Package log provides structured logging for hsync using zerolog.

All components log through child loggers carrying a component field, so
a multi-week run can be filtered by subsystem after the fact:

	logger := log.WithComponent("writer")
	logger.Info().Str("dest", path).Msg("File finalized")

# Output streams

Diagnostic logs go to stderr (console format by default, JSON with
--log-json); the progress renderer owns stdout; the audit trail is a
separate append-only file handled by pkg/audit. Keeping the three
streams apart means cron redirection and terminal use both behave.

# Levels

debug, info, warn, error, selected once at startup via --log-level.
Per-file transfer failures are logged at error level but never abort
the run; see the error taxonomy in the engine packages.
*/
package log
