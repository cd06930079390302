package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

const defaultBufSize = 64 * 1024

var ErrSinkClosed = errors.New("audit sink closed")

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// FileSink appends one JSON audit record per line to a file.
// Writes are serialized so concurrent records never interleave.
type FileSink struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

// OpenFileSink opens (or creates) path for appending. Existing content is kept.
func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("audit sink: open %s: %w", path, err)
	}
	return &FileSink{
		f:    f,
		w:    bufio.NewWriterSize(f, defaultBufSize),
		path: path,
	}, nil
}

// Path returns the file the sink appends to.
func (s *FileSink) Path() string {
	return s.path
}

// Record writes entry.Record as a single newline-terminated line and flushes it.
func (s *FileSink) Record(_ context.Context, entry Entry) error {
	data, err := json.Marshal(entry.Record)
	if err != nil {
		return fmt.Errorf("audit sink: marshal: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrSinkClosed
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("audit sink: write: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("audit sink: flush: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the file. It is safe to call on a
// nil sink and more than once.
func (s *FileSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil
	if err := s.w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("audit sink: flush: %w", err)
	}
	return f.Close()
}
