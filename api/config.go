// File: api/config.go
// Author: momentics <momentics@gmail.com>
//
// Construction-time configuration for a Core. Fixed for the connection's
// lifetime; there is no hot-reload path here the way control.ConfigStore
// offers one for the teacher's long-running server listener, because a
// per-connection protocol engine has nothing to reload.

package api

import (
	"fmt"
	"time"
)

// MinReceiveBufferSize is the smallest capacity a receive buffer may have:
// the largest possible frame header (2 base + 8 extended length + 4 mask).
const MinReceiveBufferSize = 14

// KeepAliveDisabled, when set as Config.KeepAliveInterval, turns the
// keep-alive timer off entirely (spec's "0 or infinity" is expressed as
// either the zero duration or this sentinel; both disable the timer).
const KeepAliveDisabled time.Duration = -1

// Config controls how a Core drives its stream.
type Config struct {
	// IsClient selects masking discipline: true masks every outgoing
	// frame and rejects masked ingress frames; false is the mirror image.
	// DefaultConfig sets it to true; Core plays the server role when it
	// is false, since the codec underneath is symmetric.
	IsClient bool

	// SubProtocol is the already-negotiated subprotocol name, carried
	// through for observability only; this core has no subprotocol
	// semantics of its own.
	SubProtocol string

	// KeepAliveInterval is how often an unsolicited Ping is sent while the
	// send path is idle. Zero or KeepAliveDisabled turns it off.
	KeepAliveInterval time.Duration

	// ReceiveBufferSize sizes the internally allocated receive buffer.
	// Ignored if ExternalReceiveBuffer is set. Must be >= MinReceiveBufferSize.
	ReceiveBufferSize int

	// ExternalReceiveBuffer, if non-nil, is used verbatim as the receive
	// buffer (no offset/sub-range) instead of allocating one. Its whole
	// length must be >= MinReceiveBufferSize. Not returned to any pool on
	// Dispose since the caller owns it.
	ExternalReceiveBuffer []byte
}

// DefaultConfig returns a Config with client-role masking, a 4KiB receive
// buffer, and a 30s keep-alive interval.
func DefaultConfig() Config {
	return Config{
		IsClient:          true,
		KeepAliveInterval: 30 * time.Second,
		ReceiveBufferSize: 4096,
	}
}

// Validate checks the invariants Config must satisfy before a Core can be
// constructed from it.
func (c Config) Validate() error {
	if c.ExternalReceiveBuffer != nil {
		if len(c.ExternalReceiveBuffer) < MinReceiveBufferSize {
			return fmt.Errorf("api: external receive buffer must be at least %d bytes, got %d",
				MinReceiveBufferSize, len(c.ExternalReceiveBuffer))
		}
		return nil
	}
	if c.ReceiveBufferSize < MinReceiveBufferSize {
		return fmt.Errorf("api: receive buffer size must be at least %d bytes, got %d",
			MinReceiveBufferSize, c.ReceiveBufferSize)
	}
	return nil
}

// KeepAliveEnabled reports whether the keep-alive timer should run.
func (c Config) KeepAliveEnabled() bool {
	return c.KeepAliveInterval > 0
}
