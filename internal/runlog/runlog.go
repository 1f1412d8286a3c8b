// Package runlog provides the run-scoped log sink: one file per export run,
// optionally mirrored to stderr, created at run start and closed at run end.
package runlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Sink writes timestamped run messages. The zero value is unusable; create
// one with Open or Discard.
type Sink struct {
	logger  *log.Logger
	file    *os.File
	verbose bool
}

// Open creates (or truncates) the log file at path. When mirror is true,
// messages are also written to stderr. verbose enables Debugf output.
func Open(path string, mirror, verbose bool) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("runlog: create %s: %w", path, err)
	}
	var w io.Writer = f
	if mirror {
		w = io.MultiWriter(f, os.Stderr)
	}
	return &Sink{
		logger:  log.New(w, "", log.LstdFlags),
		file:    f,
		verbose: verbose,
	}, nil
}

// Discard returns a sink that drops everything. Used by tests.
func Discard() *Sink {
	return &Sink{logger: log.New(io.Discard, "", 0)}
}

func (s *Sink) Debugf(format string, args ...any) {
	if s.verbose {
		s.logger.Printf("DEBUG "+format, args...)
	}
}

func (s *Sink) Infof(format string, args ...any) {
	s.logger.Printf("INFO  "+format, args...)
}

func (s *Sink) Errorf(format string, args ...any) {
	s.logger.Printf("ERROR "+format, args...)
}

// Close flushes and closes the underlying file, if any.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return fmt.Errorf("runlog: sync: %w", err)
	}
	return s.file.Close()
}
