package sink

import (
	"io"
	"sync"
)

// Writer writes each delivered payload to an io.Writer. After the first
// write error further payloads are dropped.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	written int64
	err     error
}

// NewWriter returns a sink writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Deliver writes payload.
func (s *Writer) Deliver(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	n, err := s.w.Write(payload)
	s.written += int64(n)
	if err == nil && n < len(payload) {
		err = io.ErrShortWrite
	}
	s.err = err
}

// Written returns the number of bytes written.
func (s *Writer) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Err returns the first write error.
func (s *Writer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
