// Package logging writes the provisioning transcript: an append-only,
// timestamped record of every step the setup procedure attempts and how
// it ended.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// DefaultPath is where setup writes its transcript. The path is not
// configurable; operators and support tooling rely on finding it here.
const DefaultPath = "/var/log/devstrap.log"

// Transcript appends timestamped lines to a log file. Nothing ever
// truncates or rewrites it; successive runs accumulate.
type Transcript struct {
	logger *log.Logger
	file   *os.File
	path   string
}

// Open opens the transcript at path for appending, creating it if
// needed. Setup refuses to start when the transcript cannot be opened,
// so the error carries the path for the operator.
func Open(path string) (*Transcript, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}
	return &Transcript{
		logger: newLogger(f),
		file:   f,
		path:   path,
	}, nil
}

// Discard returns a Transcript that drops everything, for callers that
// need the interface without a file behind it.
func Discard() *Transcript {
	return &Transcript{logger: newLogger(io.Discard)}
}

// newLogger creates the transcript logger. Timestamps carry the full
// date: the file spans runs that may be days apart.
func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
		Level:           log.InfoLevel,
	})
}

// Path returns the file path the transcript writes to, or "" for a
// discarded transcript.
func (t *Transcript) Path() string {
	return t.path
}

// Infof records a step or result line.
func (t *Transcript) Infof(format string, args ...interface{}) {
	t.logger.Infof(format, args...)
}

// Warnf records a non-fatal degradation, such as a skipped step.
func (t *Transcript) Warnf(format string, args ...interface{}) {
	t.logger.Warnf(format, args...)
}

// Errorf records the failure that ends a run.
func (t *Transcript) Errorf(format string, args ...interface{}) {
	t.logger.Errorf(format, args...)
}

// Close flushes and closes the underlying file.
func (t *Transcript) Close() error {
	if t.file == nil {
		return nil
	}
	return t.file.Close()
}
