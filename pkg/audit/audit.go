package audit

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Status classifies a terminal file event
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusSkip    Status = "skip"
	StatusDelete  Status = "delete"
)

// Log is the append-only audit trail: one JSON line per terminal file
// event, carrying an ISO-8601 timestamp, the event status, both paths,
// the hash when known, and the session id so events from different
// runs against the same log can be told apart.
type Log struct {
	f       *os.File
	logger  zerolog.Logger
	session string
}

// Open appends to the audit log at path, creating it if missing
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	session := uuid.New().String()
	logger := zerolog.New(f).With().
		Str("session", session).
		Logger()

	return &Log{f: f, logger: logger, session: session}, nil
}

// Session returns the run's session id
func (l *Log) Session() string {
	return l.session
}

// Close closes the underlying file
func (l *Log) Close() error {
	return l.f.Close()
}

func (l *Log) event(status Status) *zerolog.Event {
	return l.logger.Log().
		Str("time", time.Now().Format(time.RFC3339Nano)).
		Str("status", string(status))
}

// Success records a completed transfer
func (l *Log) Success(sourcePath, destPath, hash string) {
	l.event(StatusSuccess).
		Str("source", sourcePath).
		Str("dest", destPath).
		Str("hash", hash).
		Send()
}

// Failure records a per-file transfer failure; the file stays pending
func (l *Log) Failure(sourcePath, destPath string, err error) {
	l.event(StatusFailure).
		Str("source", sourcePath).
		Str("dest", destPath).
		Str("error", err.Error()).
		Send()
}

// Skip records a file left untouched because the destination already
// matches, or a special file the engine does not transfer
func (l *Log) Skip(sourcePath, destPath, hash, reason string) {
	ev := l.event(StatusSkip).
		Str("source", sourcePath).
		Str("dest", destPath).
		Str("reason", reason)
	if hash != "" {
		ev = ev.Str("hash", hash)
	}
	ev.Send()
}

// Delete records a mirror-sweep deletion at the destination
func (l *Log) Delete(destPath string) {
	l.event(StatusDelete).
		Str("dest", destPath).
		Send()
}
