package protocol

import (
	"testing"

	"github.com/momentics/wscore/api"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload int
	}{
		{"empty", 0},
		{"small", 10},
		{"boundary125", 125},
		{"extended16", 1000},
		{"boundary65535", 65535},
		{"extended64", 70000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, headerLen(tc.payload, true))
			n := encodeHeader(buf, true, api.OpcodeBinary, tc.payload, true)
			if n != len(buf) {
				t.Fatalf("encodeHeader returned %d, want %d", n, len(buf))
			}
			// Fill the mask slot with a recognizable key before decoding.
			copy(buf[n-4:n], []byte{1, 2, 3, 4})

			hdr, size, err := decodeHeader(buf, RoleServer, false)
			if err != nil {
				t.Fatal(err)
			}
			if size != len(buf) {
				t.Fatalf("decoded size %d, want %d", size, len(buf))
			}
			if hdr.Remaining != int64(tc.payload) {
				t.Fatalf("Remaining = %d, want %d", hdr.Remaining, tc.payload)
			}
			if !hdr.Fin || hdr.Opcode != api.OpcodeBinary || !hdr.Masked {
				t.Fatalf("unexpected header %+v", hdr)
			}
		})
	}
}

func TestDecodeHeaderRejectsReservedBits(t *testing.T) {
	raw := []byte{0x80 | 0x40 | byte(api.OpcodeText), 0x00}
	if _, _, err := decodeHeader(raw, RoleClient, false); err == nil {
		t.Fatal("expected error for reserved bits")
	}
}

func TestDecodeHeaderRejectsUnknownOpcode(t *testing.T) {
	raw := []byte{0x80 | 0x03, 0x00}
	if _, _, err := decodeHeader(raw, RoleClient, false); err == nil {
		t.Fatal("expected error for unknown opcode")
	}
}

func TestDecodeHeaderRejectsFragmentedControlFrame(t *testing.T) {
	raw := []byte{byte(api.OpcodePing), 0x00} // FIN not set
	if _, _, err := decodeHeader(raw, RoleClient, false); err == nil {
		t.Fatal("expected error for fragmented control frame")
	}
}

func TestDecodeHeaderRejectsOversizedControlFrame(t *testing.T) {
	raw := []byte{0x80 | byte(api.OpcodePing), 126, 0x00, 126}
	if _, _, err := decodeHeader(raw, RoleClient, false); err == nil {
		t.Fatal("expected error for oversized control frame")
	}
}

func TestDecodeHeaderContinuationRules(t *testing.T) {
	continuationHdr := []byte{0x80 | byte(api.OpcodeContinuation), 0x00}
	if _, _, err := decodeHeader(continuationHdr, RoleClient, false); err == nil {
		t.Fatal("expected error: continuation with no message open")
	}
	if _, _, err := decodeHeader(continuationHdr, RoleClient, true); err != nil {
		t.Fatalf("unexpected error for valid continuation: %v", err)
	}

	textHdr := []byte{0x80 | byte(api.OpcodeText), 0x00}
	if _, _, err := decodeHeader(textHdr, RoleClient, true); err == nil {
		t.Fatal("expected error: new data frame while continuation expected")
	}
}

func TestDecodeHeaderMaskingDiscipline(t *testing.T) {
	masked := []byte{byte(api.OpcodeBinary), 0x80 | 0x00, 0, 0, 0, 0}
	if _, _, err := decodeHeader(masked, RoleClient, false); err == nil {
		t.Fatal("expected error: client received masked frame")
	}

	unmasked := []byte{byte(api.OpcodeBinary), 0x00}
	if _, _, err := decodeHeader(unmasked, RoleServer, false); err == nil {
		t.Fatal("expected error: server received unmasked frame")
	}
}

func TestHeaderPeekSize(t *testing.T) {
	if got := headerPeekSize([]byte{0x80}); got != 1 {
		t.Fatalf("need 1 more byte, got %d", got)
	}
	if got := headerPeekSize([]byte{0x80, 126}); got != 2 {
		t.Fatalf("need 2 more bytes for extended16 length, got %d", got)
	}
	if got := headerPeekSize([]byte{0x80, 0x80 | 5}); got != 4 {
		t.Fatalf("need 4 more bytes for mask key, got %d", got)
	}
	if got := headerPeekSize([]byte{0x80, 5}); got != 0 {
		t.Fatalf("header already complete, got need=%d", got)
	}
}
