// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection state is derived, not stored: deriveState computes the
// public api.ConnectionState from the four booleans that actually change
// (sentCloseFrame, receivedCloseFrame, aborted, disposed), guarded by
// stateMu. Close coordination lives in close.go; this file owns lifecycle
// transitions (Abort/Dispose/teardown) and the read side of state.

package protocol

import (
	"context"

	"github.com/momentics/wscore/api"
)

// State reports the connection's current lifecycle state.
func (c *Core) State() api.ConnectionState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return deriveState(c.sentCloseFrame, c.receivedCloseFrame, c.aborted, c.disposed)
}

// CloseStatus returns the status code carried by the peer's Close frame,
// if one has been received.
func (c *Core) CloseStatus() (uint16, bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.closeInfo.Status, c.closeInfo.HasStatus
}

// CloseStatusDescription returns the peer's Close frame reason text, if any.
func (c *Core) CloseStatusDescription() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.closeInfo.Description
}

// deriveState is a pure function over the four independent facts that
// determine connection lifecycle: an abort always wins, disposal or a
// completed two-way close handshake means Closed, and otherwise the state
// reflects which side of the close handshake (if any) has happened.
func deriveState(sentClose, receivedClose, aborted, disposed bool) api.ConnectionState {
	switch {
	case aborted:
		return api.StateAborted
	case disposed || (sentClose && receivedClose):
		return api.StateClosed
	case sentClose:
		return api.StateCloseSent
	case receivedClose:
		return api.StateCloseReceived
	default:
		return api.StateOpen
	}
}

// requireState fails op with ErrDisposed once Dispose has run, and otherwise
// with ErrInvalidState unless the connection is currently in one of allowed.
func (c *Core) requireState(op string, allowed ...api.ConnectionState) error {
	c.stateMu.Lock()
	disposed := c.disposed
	c.stateMu.Unlock()
	if disposed {
		return api.NewError(api.ErrKindDisposed, op+": connection has been disposed")
	}
	cur := c.State()
	for _, s := range allowed {
		if cur == s {
			return nil
		}
	}
	return api.NewError(api.ErrKindInvalidState, op+": invalid in state "+cur.String())
}

// protocolMisuse handles a detected violation of the single-reader/
// single-writer contract (e.g. two concurrent SendMessage calls). It is
// distinguished from ordinary contention (which blocks on sendSem/recvSem)
// by aborting the whole connection instead of waiting.
func (c *Core) protocolMisuse() {
	c.Abort()
}

// Abort tears the connection down immediately and marks it Aborted,
// unblocking any goroutine parked in readCtx/writeCtx or waiting on
// sendSem/recvSem. Safe to call more than once and from any goroutine.
func (c *Core) Abort() {
	c.abortOnce.Do(func() {
		c.stateMu.Lock()
		c.aborted = true
		c.stateMu.Unlock()
		close(c.abortCh)
		c.teardown()
	})
}

func (c *Core) abortErrOrDefault() error {
	return api.NewError(api.ErrKindConnectionClosedPrematurely, "connection aborted")
}

// Dispose releases the connection's resources without attempting a close
// handshake. Idempotent.
func (c *Core) Dispose() {
	c.stateMu.Lock()
	already := c.disposed
	c.disposed = true
	c.stateMu.Unlock()
	if already {
		return
	}
	c.abortOnce.Do(func() {
		close(c.abortCh)
		c.teardown()
	})
}

func (c *Core) teardown() {
	if c.keepAlive != nil {
		c.keepAlive.stop()
	}
	_ = c.stream.Close()
}

// failProtocol makes a best-effort attempt to notify the peer of a
// protocol violation before returning err to the caller. The CloseOutput
// failure, if any, is intentionally swallowed: err is the fact that
// matters to the caller.
func (c *Core) failProtocol(ctx context.Context, err error) error {
	_ = c.CloseOutput(ctx, 1002, "")
	return err
}

// failInvalidPayload is failProtocol's counterpart for payload data that
// violates the message type's encoding rules (e.g. invalid UTF-8 in a
// Text message).
func (c *Core) failInvalidPayload(ctx context.Context, err error) error {
	_ = c.CloseOutput(ctx, 1007, "")
	return err
}
