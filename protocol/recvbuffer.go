// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The Receive Engine's staging buffer: bytes read off the stream ahead of
// what a given ReceiveMessage call needed, kept around (offset/count, like
// hioload-ws's WSConnection inbox bookkeeping) for the next call instead of
// being discarded.

package protocol

import (
	"io"

	"github.com/momentics/wscore/api"
)

// recvBuffer holds unconsumed bytes read from the stream between offset and
// offset+count. external buffers (caller-supplied via
// Config.ExternalReceiveBuffer) are never grown or replaced.
type recvBuffer struct {
	buf    []byte
	offset int
	count  int
}

func newRecvBuffer(size int) *recvBuffer {
	if size < api.MinReceiveBufferSize {
		size = api.MinReceiveBufferSize
	}
	return &recvBuffer{buf: make([]byte, size)}
}

func newExternalRecvBuffer(b []byte) *recvBuffer {
	return &recvBuffer{buf: b}
}

func (b *recvBuffer) capacity() int { return len(b.buf) }

func (b *recvBuffer) pending() []byte { return b.buf[b.offset : b.offset+b.count] }

// advance marks n bytes at the front of the pending region as consumed.
func (b *recvBuffer) advance(n int) {
	b.offset += n
	b.count -= n
}

func (b *recvBuffer) compact() {
	if b.offset == 0 {
		return
	}
	copy(b.buf, b.buf[b.offset:b.offset+b.count])
	b.offset = 0
}

// ensureAtLeast blocks on read until at least n bytes are buffered,
// compacting first if the pending region needs to move to make room. n must
// not exceed the buffer's capacity.
//
// If allowGracefulEOF is true and the stream reports io.EOF while nothing
// at all is buffered yet, ensureAtLeast reports (true, nil) instead of an
// error: this is the one place (header prefetch at a frame boundary) where
// the peer simply closing the TCP connection isn't itself a violation, only
// the caller's business to translate into a connection-closed failure.
func (b *recvBuffer) ensureAtLeast(n int, allowGracefulEOF bool, read func([]byte) (int, error)) (gracefulEOF bool, err error) {
	if n > b.capacity() {
		return false, protocolErr("required read size exceeds receive buffer capacity")
	}
	if b.count >= n {
		return false, nil
	}
	b.compact()
	for b.count < n {
		m, rerr := read(b.buf[b.count:])
		if m > 0 {
			b.count += m
		}
		if rerr != nil {
			if rerr == io.EOF {
				if allowGracefulEOF && b.count == 0 {
					return true, nil
				}
				return false, api.WrapError(api.ErrKindConnectionClosedPrematurely, "stream closed mid-frame", rerr)
			}
			return false, api.WrapError(api.ErrKindConnectionClosedPrematurely, "stream read failed", rerr)
		}
		if m == 0 {
			return false, api.NewError(api.ErrKindConnectionClosedPrematurely, "stream read returned no data and no error")
		}
	}
	return false, nil
}
