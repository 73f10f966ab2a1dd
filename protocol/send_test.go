package protocol

import (
	"bytes"
	"context"
	"testing"

	"github.com/momentics/wscore/api"
	"github.com/momentics/wscore/internal/faketransport"
)

// TestSendMessageWithZeroMask pins newMaskKey to the literal all-zero key
// and checks the frame on the wire byte-for-byte: with a zero mask, XOR is
// a no-op, so the masked payload bytes equal the plaintext bytes even
// though the masked bit is still set.
func TestSendMessageWithZeroMask(t *testing.T) {
	prev := newMaskKey
	newMaskKey = func() [4]byte { return [4]byte{} }
	defer func() { newMaskKey = prev }()

	stream := faketransport.New()
	c := New(stream, api.Config{
		IsClient:          true,
		ReceiveBufferSize: 64,
		KeepAliveInterval: api.KeepAliveDisabled,
	})

	if err := c.SendMessage(context.Background(), []byte("data"), api.OpcodeText, true); err != nil {
		t.Fatal(err)
	}

	writes := stream.Writes()
	if len(writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(writes))
	}
	frame := writes[0]
	if frame[1]&0x80 == 0 {
		t.Fatal("expected the masked bit set on a client frame")
	}
	var key [4]byte
	copy(key[:], frame[2:6])
	if key != [4]byte{} {
		t.Fatalf("mask key = %x, want the literal zero key", key)
	}
	// With an all-zero mask, XOR is a no-op: the "masked" payload on the
	// wire equals the plaintext.
	if !bytes.Equal(frame[6:10], []byte("data")) {
		t.Fatalf("payload on wire = %q, want unchanged plaintext %q", frame[6:10], "data")
	}
}
