// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Send Engine. sendFrame is the single choke point every outbound frame
// passes through, whether it's a user SendMessage, a Pong/Close control
// echo, or a keep-alive Ping; sendSem is a capacity-1 channel rather than a
// sync.Mutex specifically so a caller can abandon a blocked send on context
// cancellation instead of waiting for the lock unconditionally.

package protocol

import (
	"context"
	"sync/atomic"

	"github.com/momentics/wscore/api"
)

// sendFrame blocks until the send mutex is free (or ctx is done / the
// connection aborts), then writes exactly one frame.
func (c *Core) sendFrame(ctx context.Context, opcode api.Opcode, fin bool, payload []byte) error {
	select {
	case c.sendSem <- struct{}{}:
	case <-ctx.Done():
		return api.WrapError(api.ErrKindCanceled, "send canceled before acquiring send mutex", ctx.Err())
	case <-c.abortCh:
		return c.abortErrOrDefault()
	}
	defer func() { <-c.sendSem }()
	return c.sendFrameLocked(ctx, opcode, fin, payload)
}

// sendFrameLocked writes one frame; the caller must already hold sendSem.
func (c *Core) sendFrameLocked(ctx context.Context, opcode api.Opcode, fin bool, payload []byte) error {
	masked := c.cfg.IsClient
	hlen := headerLen(len(payload), masked)
	buf := c.bufPool.Acquire(hlen + len(payload))
	release := func() { c.bufPool.Release(buf) }

	encodeHeader(buf, fin, opcode, len(payload), masked)
	if masked {
		key := newMaskKey()
		copy(buf[hlen-4:hlen], key[:])
		n := copy(buf[hlen:], payload)
		applyMask(buf[hlen:hlen+n], key, 0)
	} else {
		copy(buf[hlen:], payload)
	}

	if _, err := c.writeCtx(ctx, buf, release); err != nil {
		return err
	}
	c.addSentStats(len(payload))
	return nil
}

// SendMessage sends payload as a Text or Binary message, or one fragment of
// one, per the RFC 6455 fragmentation rule: a message is a run of frames
// where every frame but the first is Continuation, and fin marks the last.
// kind is only meaningful on the first fragment; subsequent calls with
// fin==false from the same caller automatically continue the message
// opened by the previous call.
func (c *Core) SendMessage(ctx context.Context, payload []byte, kind api.Opcode, fin bool) error {
	if kind == api.OpcodeClose {
		return api.NewError(api.ErrKindInvalidMessageType, "use CloseOutput to send a Close frame")
	}
	if kind != api.OpcodeText && kind != api.OpcodeBinary {
		return api.NewError(api.ErrKindInvalidMessageType, "messageKind must be Text or Binary")
	}
	if err := c.requireState("SendMessage", api.StateOpen, api.StateCloseReceived); err != nil {
		return err
	}
	if !atomic.CompareAndSwapInt32(&c.sendBusy, 0, 1) {
		c.protocolMisuse()
		return api.NewError(api.ErrKindInvalidState, "a SendMessage call is already in flight")
	}
	defer atomic.StoreInt32(&c.sendBusy, 0)

	opcode := kind
	if c.lastSendWasFragment {
		opcode = api.OpcodeContinuation
	}
	if err := c.sendFrame(ctx, opcode, fin, payload); err != nil {
		return err
	}
	c.lastSendWasFragment = !fin
	return nil
}

// keepAlivePing sends an unsolicited empty Ping only if the send mutex can
// be acquired without blocking; if a send is already in flight, that send
// itself is proof of liveness and the ping is skipped rather than queued.
func (c *Core) keepAlivePing(ctx context.Context) error {
	select {
	case c.sendSem <- struct{}{}:
	default:
		return nil
	}
	defer func() { <-c.sendSem }()
	return c.sendFrameLocked(ctx, api.OpcodePing, true, nil)
}
