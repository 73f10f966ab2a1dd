package protocol_test

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/momentics/wscore/api"
	"github.com/momentics/wscore/internal/faketransport"
	"github.com/momentics/wscore/protocol"
)

// buildFrame hand-encodes a single unmasked frame, standing in for what a
// peer server (never obligated to mask) would put on the wire.
func buildFrame(fin bool, opcode byte, payload []byte) []byte {
	var b0 byte = opcode
	if fin {
		b0 |= 0x80
	}
	var header []byte
	switch {
	case len(payload) <= 125:
		header = []byte{b0, byte(len(payload))}
	case len(payload) <= 0xFFFF:
		header = make([]byte, 4)
		header[0], header[1] = b0, 126
		binary.BigEndian.PutUint16(header[2:], uint16(len(payload)))
	default:
		header = make([]byte, 10)
		header[0], header[1] = b0, 127
		binary.BigEndian.PutUint64(header[2:], uint64(len(payload)))
	}
	return append(header, payload...)
}

func newTestCore(t *testing.T, stream *faketransport.Stream) *protocol.Core {
	t.Helper()
	return protocol.New(stream, api.Config{
		IsClient:          true,
		ReceiveBufferSize: 64,
		KeepAliveInterval: api.KeepAliveDisabled,
	})
}

func TestReceiveUnfragmentedText(t *testing.T) {
	stream := faketransport.New()
	stream.Push(buildFrame(true, 0x1, []byte("hello")))
	core := newTestCore(t, stream)

	buf := make([]byte, 64)
	res, err := core.ReceiveMessage(context.Background(), buf)
	if err != nil {
		t.Fatal(err)
	}
	if res.BytesWritten != 5 || !res.EndOfMessage || res.MessageKind != api.OpcodeText {
		t.Fatalf("unexpected result: %+v", res)
	}
	if string(buf[:res.BytesWritten]) != "hello" {
		t.Fatalf("payload = %q", buf[:res.BytesWritten])
	}
}

func TestSendMaskedBinary(t *testing.T) {
	stream := faketransport.New()
	core := newTestCore(t, stream)

	if err := core.SendMessage(context.Background(), []byte("data"), api.OpcodeBinary, true); err != nil {
		t.Fatal(err)
	}

	writes := stream.Writes()
	if len(writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(writes))
	}
	frame := writes[0]
	if frame[0] != 0x80|0x02 {
		t.Fatalf("byte0 = %#x, want FIN+Binary", frame[0])
	}
	if frame[1]&0x80 == 0 {
		t.Fatal("expected the masked bit set on a client frame")
	}
	length := int(frame[1] & 0x7F)
	if length != 4 {
		t.Fatalf("length = %d, want 4", length)
	}
	var key [4]byte
	copy(key[:], frame[2:6])
	got := append([]byte(nil), frame[6:10]...)
	for i := range got {
		got[i] ^= key[i%4]
	}
	if string(got) != "data" {
		t.Fatalf("unmasked payload = %q, want %q", got, "data")
	}
}

func TestReceiveFragmentedText(t *testing.T) {
	stream := faketransport.New()
	stream.Push(buildFrame(false, 0x1, []byte("Hel")))
	stream.Push(buildFrame(true, 0x0, []byte("lo")))
	core := newTestCore(t, stream)

	buf := make([]byte, 64)
	res1, err := core.ReceiveMessage(context.Background(), buf)
	if err != nil {
		t.Fatal(err)
	}
	if res1.EndOfMessage || string(buf[:res1.BytesWritten]) != "Hel" {
		t.Fatalf("first fragment = %+v %q", res1, buf[:res1.BytesWritten])
	}

	res2, err := core.ReceiveMessage(context.Background(), buf)
	if err != nil {
		t.Fatal(err)
	}
	if !res2.EndOfMessage || res2.MessageKind != api.OpcodeText || string(buf[:res2.BytesWritten]) != "lo" {
		t.Fatalf("second fragment = %+v %q", res2, buf[:res2.BytesWritten])
	}
}

func TestReceiveEchoesPingDuringFragmentation(t *testing.T) {
	stream := faketransport.New()
	stream.Push(buildFrame(false, 0x1, []byte("Hel")))
	stream.Push(buildFrame(true, 0x9, []byte("ping")))
	stream.Push(buildFrame(true, 0x0, []byte("lo")))
	core := newTestCore(t, stream)

	buf := make([]byte, 64)
	if _, err := core.ReceiveMessage(context.Background(), buf); err != nil {
		t.Fatal(err)
	}
	res2, err := core.ReceiveMessage(context.Background(), buf)
	if err != nil {
		t.Fatal(err)
	}
	if !res2.EndOfMessage || string(buf[:res2.BytesWritten]) != "lo" {
		t.Fatalf("second fragment after ping = %+v %q", res2, buf[:res2.BytesWritten])
	}

	writes := stream.Writes()
	if len(writes) != 1 {
		t.Fatalf("expected exactly one Pong echo write, got %d", len(writes))
	}
	pong := writes[0]
	if pong[0] != 0x80|0x0A {
		t.Fatalf("echoed frame opcode byte = %#x, want FIN+Pong", pong[0])
	}
}

func TestCloseHandshakeCompletes(t *testing.T) {
	stream := faketransport.New()
	closePayload := make([]byte, 2)
	binary.BigEndian.PutUint16(closePayload, 1000)
	stream.Push(buildFrame(true, 0x8, closePayload))
	core := newTestCore(t, stream)

	if err := core.Close(context.Background(), 1000, "bye"); err != nil {
		t.Fatal(err)
	}
	if core.State() != api.StateClosed {
		t.Fatalf("state = %v, want Closed", core.State())
	}
	if !stream.Closed() {
		t.Fatal("expected the underlying stream to be closed")
	}
	status, has := core.CloseStatus()
	if !has || status != 1000 {
		t.Fatalf("CloseStatus = %d, %v", status, has)
	}
}

func TestReceiveUnknownOpcodeFailsProtocolAndSendsClose(t *testing.T) {
	stream := faketransport.New()
	stream.Push([]byte{0x80 | 0x03, 0x00}) // reserved/unknown opcode
	core := newTestCore(t, stream)

	buf := make([]byte, 64)
	_, err := core.ReceiveMessage(context.Background(), buf)
	if err == nil {
		t.Fatal("expected a protocol error")
	}
	werr, ok := err.(*api.Error)
	if !ok || werr.Kind != api.ErrKindProtocolError {
		t.Fatalf("unexpected error: %v", err)
	}
	if core.State() != api.StateCloseSent {
		t.Fatalf("state = %v, want CloseSent (best-effort close should have been sent)", core.State())
	}
	if len(stream.Writes()) != 1 {
		t.Fatalf("expected one best-effort close frame written, got %d", len(stream.Writes()))
	}
}

func TestSendMessageRejectsCloseOpcode(t *testing.T) {
	stream := faketransport.New()
	core := newTestCore(t, stream)
	err := core.SendMessage(context.Background(), nil, api.OpcodeClose, true)
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestReceiveMessageFailsFastOnConcurrentCalls(t *testing.T) {
	stream := faketransport.New()
	core := newTestCore(t, stream)

	stream.SetBlocking(true)

	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		buf := make([]byte, 8)
		close(started)
		_, _ = core.ReceiveMessage(context.Background(), buf)
		close(release)
	}()
	<-started
	time.Sleep(10 * time.Millisecond)

	buf := make([]byte, 8)
	_, err := core.ReceiveMessage(context.Background(), buf)
	if err == nil {
		t.Fatal("expected the second concurrent ReceiveMessage to fail")
	}
	if core.State() != api.StateAborted {
		t.Fatalf("state = %v, want Aborted after API misuse", core.State())
	}
	<-release
}
