// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
//
// SendBufferPool rents []byte buffers for the Send Engine. It is a
// sync.Pool wrapper the way hioload-ws's original BytePool wrapped a
// NUMA-aware allocator with a plain-Go fallback; this module has no NUMA
// concept, so the fallback is the whole implementation.

package pool

import "sync"

// SendBufferPool implements api.BytePool for the send path's per-frame
// rented encode buffer.
type SendBufferPool struct {
	pool sync.Pool
}

// NewSendBufferPool creates an empty pool. New buffers start at
// initialCap capacity and grow on demand; grown buffers are retained in
// the pool at their new capacity rather than shrunk back.
func NewSendBufferPool(initialCap int) *SendBufferPool {
	if initialCap <= 0 {
		initialCap = 256
	}
	return &SendBufferPool{
		pool: sync.Pool{
			New: func() any {
				buf := make([]byte, initialCap)
				return &buf
			},
		},
	}
}

// Acquire returns a slice of length exactly n, reusing a pooled backing
// array when it is large enough.
func (p *SendBufferPool) Acquire(n int) []byte {
	bufp := p.pool.Get().(*[]byte)
	buf := *bufp
	if cap(buf) < n {
		buf = make([]byte, n)
	} else {
		buf = buf[:n]
	}
	return buf
}

// Release returns buf to the pool. buf must not be used afterward.
func (p *SendBufferPool) Release(buf []byte) {
	buf = buf[:0]
	p.pool.Put(&buf)
}
