// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Core is the public protocol engine, generalizing hioload-ws's
// WSConnection (an async inbox/outbox channel pair driven by background
// recvLoop/sendLoop goroutines) into a synchronous, caller-buffer-driven
// shape: SendMessage/ReceiveMessage/CloseOutput/Close/Abort/Dispose, each
// doing its own I/O inline on the caller's goroutine.

package protocol

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/momentics/wscore/api"
	"github.com/momentics/wscore/pool"
)

// Core drives one WebSocket connection's framing, fragmentation, control
// handling, and close handshake over an api.Stream.
type Core struct {
	stream  api.Stream
	cfg     api.Config
	bufPool api.BytePool

	stateMu            sync.Mutex
	sentCloseFrame     bool
	receivedCloseFrame bool
	aborted            bool
	disposed           bool
	closeInfo          api.CloseInfo

	abortCh   chan struct{}
	abortOnce sync.Once

	sendSem             chan struct{}
	sendBusy            int32
	lastSendWasFragment bool

	recvSem              chan struct{}
	recvBuf              *recvBuffer
	havePendingHeader    bool
	pendingHeader        frameHeader
	fragmentOpen         bool
	currentMessageOpcode api.Opcode
	utf8                 utf8State
	pendingControl       *queue.Queue

	closeMu     sync.Mutex
	closeActive bool
	closeDoneCh chan struct{}
	closeErr    error

	keepAlive *keepAliveTimer

	framesSent, framesReceived uint64
	bytesSent, bytesReceived   uint64
}

// New constructs a Core driving stream according to cfg. cfg is validated;
// an invalid Config is a programmer error and panics, matching the
// teacher's constructor style of failing fast on malformed wiring rather
// than returning a zero-value engine.
func New(stream api.Stream, cfg api.Config) *Core {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	c := &Core{
		stream:         stream,
		cfg:            cfg,
		bufPool:        pool.Default(),
		abortCh:        make(chan struct{}),
		sendSem:        make(chan struct{}, 1),
		recvSem:        make(chan struct{}, 1),
		pendingControl: queue.New(),
	}
	if cfg.ExternalReceiveBuffer != nil {
		c.recvBuf = newExternalRecvBuffer(cfg.ExternalReceiveBuffer)
	} else {
		c.recvBuf = newRecvBuffer(cfg.ReceiveBufferSize)
	}
	if cfg.KeepAliveEnabled() {
		c.keepAlive = newKeepAliveTimer(cfg.KeepAliveInterval, c.keepAlivePing)
	} else {
		c.keepAlive = newKeepAliveTimer(0, nil)
	}
	return c
}

func (c *Core) role() Role {
	if c.cfg.IsClient {
		return RoleClient
	}
	return RoleServer
}

// SubProtocol returns the negotiated subprotocol name passed in Config.
func (c *Core) SubProtocol() string { return c.cfg.SubProtocol }

// readCtx runs stream.Read on a helper goroutine so ctx cancellation (which
// the Stream interface itself can't express) can still abort it. There is
// no resume point for a read that raced past cancellation, so a cancellation
// here aborts the whole connection, the same way database/sql bolts context
// support onto a driver that doesn't support it natively.
func (c *Core) readCtx(ctx context.Context, p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := c.stream.Read(p)
		done <- result{n, err}
	}()
	select {
	case r := <-done:
		return r.n, r.err
	case <-ctx.Done():
		c.Abort()
		return 0, api.WrapError(api.ErrKindCanceled, "receive canceled mid I/O", ctx.Err())
	case <-c.abortCh:
		return 0, c.abortErrOrDefault()
	}
}

// writeCtx is readCtx's write-side counterpart. A short write is treated as
// a fatal transport error, since the Core always writes one frame per call
// and has no notion of resuming a partial one.
//
// release, if non-nil, is called exactly once, after c.stream.Write(p) has
// actually returned — never earlier. On the ctx.Done()/abortCh paths the
// background goroutine is still inside Write when writeCtx returns to its
// caller, so p is still live; releasing p (e.g. back to a shared byte pool)
// before that goroutine's Write call has returned would let an unrelated
// caller reacquire and overwrite the same backing array while this Write is
// still reading or writing it.
func (c *Core) writeCtx(ctx context.Context, p []byte, release func()) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := c.stream.Write(p)
		done <- result{n, err}
		if release != nil {
			release()
		}
	}()
	select {
	case r := <-done:
		if r.err == nil && r.n != len(p) {
			r.err = api.NewError(api.ErrKindConnectionClosedPrematurely, "short write to stream")
		}
		if r.err != nil {
			c.Abort()
		}
		return r.n, r.err
	case <-ctx.Done():
		c.Abort()
		return 0, api.WrapError(api.ErrKindCanceled, "send canceled mid I/O", ctx.Err())
	case <-c.abortCh:
		return 0, c.abortErrOrDefault()
	}
}

func (c *Core) addSentStats(n int) {
	atomic.AddUint64(&c.framesSent, 1)
	atomic.AddUint64(&c.bytesSent, uint64(n))
}

func (c *Core) addReceivedStats(n int) {
	atomic.AddUint64(&c.framesReceived, 1)
	atomic.AddUint64(&c.bytesReceived, uint64(n))
}

// Stats is a point-in-time snapshot of frame/byte counters, mirroring the
// atomic counters hioload-ws's WSConnection.GetStats exposes.
type Stats struct {
	FramesSent     uint64
	FramesReceived uint64
	BytesSent      uint64
	BytesReceived  uint64
}

// Stats returns a snapshot of the connection's traffic counters.
func (c *Core) Stats() Stats {
	return Stats{
		FramesSent:     atomic.LoadUint64(&c.framesSent),
		FramesReceived: atomic.LoadUint64(&c.framesReceived),
		BytesSent:      atomic.LoadUint64(&c.bytesSent),
		BytesReceived:  atomic.LoadUint64(&c.bytesReceived),
	}
}
