// Package runlog records what a migration run did: a plain-text line log
// for operators and a YAML summary for later inspection.
package runlog

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// DefaultPath is where the text log is written unless configured otherwise.
const DefaultPath = "migration_log.txt"

// Log is a line-oriented text log. It is safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// New wraps w. A nil writer discards everything.
func New(w io.Writer) *Log {
	if w == nil {
		w = io.Discard
	}
	return &Log{w: w}
}

// Open appends to the file at path, creating it if needed.
func Open(path string) (*Log, error) {
	if path == "" {
		path = DefaultPath
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log %s: %w", path, err)
	}
	return &Log{w: f, closer: f}, nil
}

// Printf writes one formatted line. A trailing newline is added.
func (l *Log) Printf(format string, args ...any) {
	l.Println(fmt.Sprintf(format, args...))
}

// Println writes one line.
func (l *Log) Println(line string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, line+"\n")
}

// Close closes the underlying file, if any.
func (l *Log) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
