// Package relay adapts a live response body into an upload body.
//
// A Stream is a lazy, single-pass byte sequence over any io.ReadCloser. It owns
// no buffer: each Read is served straight from the upstream reader into the
// caller's slice, so peak memory is bounded by the consumer's read size and the
// transport, never by the content length. It does not implement io.Seeker,
// so SDKs cannot rewind or re-read it.
package relay

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// ErrUpstream wraps every non-EOF error returned by the upstream reader.
var ErrUpstream = errors.New("relay: upstream read failed")

// Stream forwards bytes from an upstream reader exactly once.
type Stream struct {
	src io.ReadCloser
	n   atomic.Int64

	mu  sync.Mutex
	err error // sticky: io.EOF or a wrapped upstream error

	closeOnce sync.Once
	closeErr  error
}

// New wraps src. The Stream takes ownership of src and closes it on Close.
func New(src io.ReadCloser) *Stream {
	return &Stream{src: src}
}

// Read implements io.Reader. Once the upstream reports EOF or an error, every
// later call returns the same result.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, s.err
	}

	n, err := s.src.Read(p)
	s.n.Add(int64(n))
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		s.err = io.EOF
	default:
		s.err = fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return n, s.err
}

// Close releases the upstream reader. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.src.Close()
	})
	return s.closeErr
}

// BytesRead reports how many bytes have been handed to the consumer.
func (s *Stream) BytesRead() int64 {
	return s.n.Load()
}

// Err returns the mapped upstream error, if any. EOF is not an error.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(s.err, io.EOF) {
		return nil
	}
	return s.err
}
