// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Receive Engine. recvSem gives ReceiveMessage fail-fast-on-contention
// semantics (a second concurrent caller is API misuse, not a queueable
// request) while still letting Close's internal loop block waiting for an
// in-flight ReceiveMessage to finish before it takes over the socket.
//
// pendingControl is an eapache/queue FIFO: a single ReceiveMessage call can
// observe more than one Ping needing a Pong echo before it reaches the data
// frame the caller actually asked for. Each Pong is queued and the queue is
// drained right after that Ping's payload is read, before the next header is
// parsed, so echoes go out in the order their Pings arrived.

package protocol

import (
	"context"
	"encoding/binary"
	"log"

	"github.com/momentics/wscore/api"
)

type controlEcho struct {
	opcode  api.Opcode
	payload []byte
}

// ReceiveMessage copies up to len(dst) bytes of the current or next message
// into dst. A message may span several calls if dst is smaller than a
// frame's payload, or several frames if the peer fragmented it; EndOfMessage
// in the result distinguishes the two.
func (c *Core) ReceiveMessage(ctx context.Context, dst []byte) (api.ReceiveResult, error) {
	if err := c.requireState("ReceiveMessage", api.StateOpen, api.StateCloseSent); err != nil {
		return api.ReceiveResult{}, err
	}
	select {
	case c.recvSem <- struct{}{}:
	default:
		c.protocolMisuse()
		return api.ReceiveResult{}, api.NewError(api.ErrKindInvalidState, "a ReceiveMessage call is already in flight")
	}
	defer func() { <-c.recvSem }()
	return c.receiveLocked(ctx, dst)
}

// receiveLocked implements the receive algorithm; the caller must already
// hold recvSem.
func (c *Core) receiveLocked(ctx context.Context, dst []byte) (api.ReceiveResult, error) {
	if !c.havePendingHeader {
		result, terminal, err := c.readHeaderOrControlResult(ctx)
		if err != nil {
			return api.ReceiveResult{}, err
		}
		if terminal {
			return result, nil
		}
	}
	return c.copyPendingPayload(ctx, dst)
}

// readHeaderOrControlResult parses headers and transparently handles
// Ping/Pong frames until it either finds a data-frame header to hand back
// to receiveLocked (leaving it in c.pendingHeader) or a Close frame, whose
// ingest produces a terminal ReceiveResult of its own.
func (c *Core) readHeaderOrControlResult(ctx context.Context) (api.ReceiveResult, bool, error) {
	for {
		hdr, err := c.parseNextHeader(ctx)
		if err != nil {
			return api.ReceiveResult{}, false, err
		}
		switch hdr.Opcode {
		case api.OpcodePing:
			payload, err := c.readControlPayload(ctx, hdr)
			if err != nil {
				return api.ReceiveResult{}, false, err
			}
			c.pendingControl.Add(&controlEcho{opcode: api.OpcodePong, payload: payload})
			c.drainPendingControl(ctx)
		case api.OpcodePong:
			if _, err := c.readControlPayload(ctx, hdr); err != nil {
				return api.ReceiveResult{}, false, err
			}
		case api.OpcodeClose:
			result, err := c.ingestClose(ctx, hdr)
			return result, err == nil, err
		default:
			c.pendingHeader = hdr
			c.havePendingHeader = true
			return api.ReceiveResult{}, false, nil
		}
	}
}

func (c *Core) drainPendingControl(ctx context.Context) {
	for c.pendingControl.Length() > 0 {
		item := c.pendingControl.Remove().(*controlEcho)
		if err := c.sendFrame(ctx, item.opcode, true, item.payload); err != nil {
			log.Printf("wscore: failed to send %s response: %v", item.opcode, err)
			return
		}
	}
}

// parseNextHeader reads and validates the next frame header, resolving a
// Continuation opcode to the in-progress message's real opcode and updating
// fragmentation state (fragmentOpen) for the header after it.
func (c *Core) parseNextHeader(ctx context.Context) (frameHeader, error) {
	graceful, err := c.recvBuf.ensureAtLeast(2, !c.fragmentOpen, func(p []byte) (int, error) { return c.readCtx(ctx, p) })
	if err != nil {
		return frameHeader{}, err
	}
	if graceful {
		c.Abort()
		return frameHeader{}, api.NewError(api.ErrKindConnectionClosedPrematurely, "stream closed at a message boundary")
	}

	peek := c.recvBuf.pending()
	if need := headerPeekSize(peek); need > 0 {
		if _, err := c.recvBuf.ensureAtLeast(len(peek)+need, false, func(p []byte) (int, error) { return c.readCtx(ctx, p) }); err != nil {
			return frameHeader{}, err
		}
		peek = c.recvBuf.pending()
	}

	hdr, size, err := decodeHeader(peek, c.role(), c.fragmentOpen)
	if err != nil {
		return frameHeader{}, c.failProtocol(ctx, err)
	}
	c.recvBuf.advance(size)

	if !hdr.Opcode.IsControl() {
		if hdr.Opcode == api.OpcodeContinuation {
			hdr.Opcode = c.currentMessageOpcode
		} else {
			c.currentMessageOpcode = hdr.Opcode
			if hdr.Opcode == api.OpcodeText {
				c.utf8.reset()
			}
		}
		c.fragmentOpen = !hdr.Fin
	}
	return hdr, nil
}

// readControlPayload fully reads and (if masked) unmasks a control frame's
// payload, chunk by chunk against whatever the receive buffer's capacity
// allows, so a minimally sized receive buffer never fails on a legally
// sized (<=125 byte) control frame.
func (c *Core) readControlPayload(ctx context.Context, hdr frameHeader) ([]byte, error) {
	remaining := hdr.Remaining
	payload := make([]byte, 0, remaining)
	rollOff := uint8(0)
	for remaining > 0 {
		if len(c.recvBuf.pending()) == 0 {
			if _, err := c.recvBuf.ensureAtLeast(1, false, func(p []byte) (int, error) { return c.readCtx(ctx, p) }); err != nil {
				return nil, err
			}
		}
		avail := c.recvBuf.pending()
		toCopy := int64(len(avail))
		if toCopy > remaining {
			toCopy = remaining
		}
		chunk := avail[:toCopy]
		if hdr.Masked {
			rollOff = applyMask(chunk, hdr.Mask, rollOff)
		}
		payload = append(payload, chunk...)
		c.recvBuf.advance(int(toCopy))
		remaining -= toCopy
	}
	return payload, nil
}

// copyPendingPayload implements the data-copy half of the receive
// algorithm against the header left pending by parseNextHeader or by a
// previous, partially satisfied ReceiveMessage call.
func (c *Core) copyPendingPayload(ctx context.Context, dst []byte) (api.ReceiveResult, error) {
	hdr := &c.pendingHeader

	if len(dst) > 0 && len(c.recvBuf.pending()) == 0 && hdr.Remaining > 0 {
		if _, err := c.recvBuf.ensureAtLeast(1, false, func(p []byte) (int, error) { return c.readCtx(ctx, p) }); err != nil {
			return api.ReceiveResult{}, err
		}
	}

	bufferedAvail := int64(len(c.recvBuf.pending()))
	toCopy := int64(len(dst))
	if bufferedAvail < toCopy {
		toCopy = bufferedAvail
	}
	if hdr.Remaining < toCopy {
		toCopy = hdr.Remaining
	}

	var written int
	if toCopy > 0 {
		chunk := c.recvBuf.pending()[:toCopy]
		if hdr.Masked {
			hdr.MaskOffset = applyMask(chunk, hdr.Mask, hdr.MaskOffset)
		}
		written = copy(dst, chunk)
		c.recvBuf.advance(written)
		hdr.Remaining -= int64(written)
	}

	if hdr.Opcode == api.OpcodeText && written > 0 {
		for _, b := range dst[:written] {
			if err := c.utf8.step(b); err != nil {
				return api.ReceiveResult{}, c.failInvalidPayload(ctx, err)
			}
		}
	}

	frameDone := hdr.Remaining == 0
	endOfMessage := hdr.Fin && frameDone
	c.havePendingHeader = !frameDone

	if endOfMessage && hdr.Opcode == api.OpcodeText {
		if err := c.utf8.finish(); err != nil {
			return api.ReceiveResult{}, c.failInvalidPayload(ctx, err)
		}
	}

	c.addReceivedStats(written)

	return api.ReceiveResult{
		BytesWritten: written,
		MessageKind:  hdr.Opcode,
		EndOfMessage: endOfMessage,
	}, nil
}

// ingestClose parses a received Close frame's payload and records it,
// per RFC 6455 §5.5.1: a zero-length payload means no status was given at
// all (recorded as NormalClosure), a length of exactly 1 is illegal, and
// any reason text beyond the 2-byte status must itself be valid UTF-8.
func (c *Core) ingestClose(ctx context.Context, hdr frameHeader) (api.ReceiveResult, error) {
	payload, err := c.readControlPayload(ctx, hdr)
	if err != nil {
		return api.ReceiveResult{}, err
	}

	c.stateMu.Lock()
	c.receivedCloseFrame = true
	c.stateMu.Unlock()

	var status uint16
	hasStatus := false
	var desc string

	switch {
	case len(payload) == 0:
		status, hasStatus = 1000, true
	case len(payload) == 1:
		return api.ReceiveResult{}, c.failProtocol(ctx, protocolErr("close frame payload of length 1"))
	default:
		status = binary.BigEndian.Uint16(payload[:2])
		hasStatus = true
		if !isValidCloseStatus(status) {
			return api.ReceiveResult{}, c.failProtocol(ctx, protocolErr("invalid close status code"))
		}
		if len(payload) > 2 {
			d, err := decodeStrictUTF8(payload[2:])
			if err != nil {
				return api.ReceiveResult{}, c.failProtocol(ctx, protocolErr("invalid UTF-8 in close reason"))
			}
			desc = d
		}
	}

	c.stateMu.Lock()
	c.closeInfo = api.CloseInfo{Status: status, HasStatus: hasStatus, Description: desc}
	c.stateMu.Unlock()

	c.addReceivedStats(len(payload))

	return api.ReceiveResult{
		MessageKind:      api.OpcodeClose,
		EndOfMessage:     true,
		CloseStatus:      status,
		HasCloseStatus:   hasStatus,
		CloseDescription: desc,
	}, nil
}
