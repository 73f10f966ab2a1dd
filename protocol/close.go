// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Close Coordinator. CloseOutput sends this side's Close frame in isolation;
// Close drives the full handshake to completion. Two mutexes are involved
// (stateMu for the flag pair, closeMu for "who is driving the handshake")
// and they are never held at once: closeMu is taken only long enough to
// decide whether this call or an already-running one owns the handshake,
// then released before any actual send/receive work (which touches stateMu
// internally, via CloseOutput/receiveLocked) begins.

package protocol

import (
	"context"
	"encoding/binary"

	"github.com/momentics/wscore/api"
)

// CloseOutput sends this side's Close frame without waiting for the peer's.
// Use Close instead to run the full handshake to completion.
func (c *Core) CloseOutput(ctx context.Context, status uint16, description string) error {
	if err := c.requireState("CloseOutput", api.StateOpen, api.StateCloseReceived); err != nil {
		return err
	}
	descBytes := []byte(description)
	if len(descBytes) > 123 {
		return api.NewError(api.ErrKindInvalidState, "close description exceeds 123 bytes after the status code")
	}

	payload := make([]byte, 2+len(descBytes))
	binary.BigEndian.PutUint16(payload, status)
	copy(payload[2:], descBytes)

	if err := c.sendFrame(ctx, api.OpcodeClose, true, payload); err != nil {
		return err
	}

	c.stateMu.Lock()
	c.sentCloseFrame = true
	c.stateMu.Unlock()
	return nil
}

// Close drives the close handshake to completion: sending this side's Close
// frame if it hasn't gone out yet, then pumping ReceiveMessage (taking over
// from, or waiting behind, any caller already inside ReceiveMessage) until
// the peer's Close frame arrives. Concurrent callers of Close all wait for
// and share the outcome of whichever one actually drives it. Close is
// idempotent: once the connection has already reached Closed, a further
// call is a clean no-op rather than an InvalidState error.
func (c *Core) Close(ctx context.Context, status uint16, description string) error {
	if c.State() == api.StateClosed {
		return nil
	}
	if err := c.requireState("Close", api.StateOpen, api.StateCloseReceived, api.StateCloseSent); err != nil {
		return err
	}

	c.closeMu.Lock()
	if c.closeActive {
		done := c.closeDoneCh
		c.closeMu.Unlock()
		select {
		case <-done:
			return c.closeErr
		case <-ctx.Done():
			return api.WrapError(api.ErrKindCanceled, "close canceled while waiting on an in-progress close", ctx.Err())
		}
	}
	c.closeActive = true
	c.closeDoneCh = make(chan struct{})
	c.closeMu.Unlock()

	err := c.runCloseHandshake(ctx, status, description)

	c.closeMu.Lock()
	c.closeErr = err
	c.closeActive = false
	close(c.closeDoneCh)
	c.closeMu.Unlock()

	return err
}

func (c *Core) runCloseHandshake(ctx context.Context, status uint16, description string) error {
	c.stateMu.Lock()
	alreadyDone := c.aborted || c.disposed || (c.sentCloseFrame && c.receivedCloseFrame)
	needSend := !c.sentCloseFrame
	c.stateMu.Unlock()

	if alreadyDone {
		return nil
	}
	if needSend {
		if err := c.CloseOutput(ctx, status, description); err != nil {
			return err
		}
	}

	scratch := make([]byte, 256)
	for {
		c.stateMu.Lock()
		done := c.receivedCloseFrame
		c.stateMu.Unlock()
		if done {
			break
		}

		select {
		case c.recvSem <- struct{}{}:
		case <-ctx.Done():
			return api.WrapError(api.ErrKindCanceled, "close canceled while awaiting the peer's close frame", ctx.Err())
		case <-c.abortCh:
			return c.abortErrOrDefault()
		}

		// The receive we were about to drive may have been the one that
		// consumed the peer's Close frame while we were still blocked
		// acquiring recvSem above: re-examine state before touching the
		// socket again, or a completed handshake spuriously blocks on (or
		// aborts from) a receive nobody needs.
		c.stateMu.Lock()
		done = c.receivedCloseFrame
		c.stateMu.Unlock()
		if done {
			<-c.recvSem
			break
		}

		_, err := c.receiveLocked(ctx, scratch)
		<-c.recvSem
		if err != nil {
			return err
		}
	}

	c.teardown()
	return nil
}
