// File: pool/default.go
// Author: momentics <momentics@gmail.com>
//
// A process-wide default SendBufferPool, mirroring hioload-ws's
// DefaultManager/DefaultPool shortcut so callers that don't need a
// dedicated pool per Core don't have to construct one.

package pool

import "sync"

var (
	defaultOnce sync.Once
	defaultPool *SendBufferPool
)

// Default returns a shared process-wide SendBufferPool.
func Default() *SendBufferPool {
	defaultOnce.Do(func() {
		defaultPool = NewSendBufferPool(256)
	})
	return defaultPool
}
