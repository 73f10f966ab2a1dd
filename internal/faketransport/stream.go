// Package faketransport
// Author: momentics <momentics@gmail.com>
//
// A fake api.Stream for tests, adapted from hioload-ws's fake.Transport
// (which fakes a frame-buffer transport) into a byte-stream: reads are
// served from a queue of pushed chunks, one Read call per queued chunk, so
// tests can control exactly how a frame gets split across reads.
package faketransport

import (
	"io"
	"sync"
)

// Stream is a controllable api.Stream double.
type Stream struct {
	mu   sync.Mutex
	cond *sync.Cond

	readQueue [][]byte
	readErr   error // returned once the queue is drained, defaults to io.EOF
	blocking  bool  // if true, Read waits instead of returning EOF on an empty queue

	writes   [][]byte
	writeErr error

	closed   bool
	closeErr error
}

// New creates an empty Stream. Push queues bytes for Read; Writes captures
// everything written.
func New() *Stream {
	s := &Stream{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// SetBlocking controls what Read does when the queue is empty and no
// read error has been set: false (the default) returns io.EOF immediately;
// true blocks until Push, SetReadError, or Close wakes it, for tests that
// need a Read to still be in flight when something else happens.
func (s *Stream) SetBlocking(blocking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocking = blocking
	s.cond.Broadcast()
}

// Push queues a chunk to be returned by a future Read call. Read never
// merges or splits chunks across calls: one Push is exactly one Read's
// worth of data (or fewer, if the caller's buffer is smaller).
func (s *Stream) Push(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.readQueue = append(s.readQueue, cp)
	s.cond.Broadcast()
}

// SetReadError sets the error returned once the read queue is exhausted.
// Defaults to io.EOF.
func (s *Stream) SetReadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
	s.cond.Broadcast()
}

// SetWriteError makes every subsequent Write fail with err.
func (s *Stream) SetWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// SetCloseError makes Close fail with err.
func (s *Stream) SetCloseError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeErr = err
}

// Read implements api.Stream.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.readQueue) == 0 && s.readErr == nil && s.blocking && !s.closed {
		s.cond.Wait()
	}
	if len(s.readQueue) == 0 {
		if s.readErr != nil {
			return 0, s.readErr
		}
		if s.closed {
			return 0, io.ErrClosedPipe
		}
		return 0, io.EOF
	}
	chunk := s.readQueue[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		s.readQueue[0] = chunk[n:]
	} else {
		s.readQueue = s.readQueue[1:]
	}
	return n, nil
}

// Write implements api.Stream.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	s.writes = append(s.writes, cp)
	return len(p), nil
}

// Close implements api.Stream.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr != nil {
		return s.closeErr
	}
	s.closed = true
	s.cond.Broadcast()
	return nil
}

// Writes returns every buffer passed to Write so far, in order.
func (s *Stream) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.writes))
	copy(out, s.writes)
	return out
}

// Closed reports whether Close has succeeded.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
