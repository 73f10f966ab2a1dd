package protocol

import (
	"bytes"
	"testing"
)

func TestApplyMaskRoundTrip(t *testing.T) {
	key := [4]byte{0x37, 0xfa, 0x21, 0x3d}
	payload := []byte("Hello, WebSocket!")

	masked := append([]byte(nil), payload...)
	applyMask(masked, key, 0)
	if bytes.Equal(masked, payload) {
		t.Fatal("masking did not change the payload")
	}

	unmasked := append([]byte(nil), masked...)
	applyMask(unmasked, key, 0)
	if !bytes.Equal(unmasked, payload) {
		t.Fatalf("unmask(mask(x)) != x: got %q, want %q", unmasked, payload)
	}
}

func TestApplyMaskRollingOffsetAcrossChunks(t *testing.T) {
	key := [4]byte{0xde, 0xad, 0xbe, 0xef}
	payload := []byte("the quick brown fox jumps over the lazy dog")

	wholeMasked := append([]byte(nil), payload...)
	applyMask(wholeMasked, key, 0)

	// Masking the same payload in irregularly sized chunks, carrying the
	// rolling offset between calls, must produce byte-for-byte the same
	// result as masking it in one call.
	chunked := append([]byte(nil), payload...)
	off, pos := uint8(0), 0
	for _, size := range []int{1, 3, 7, 11, 1000} {
		end := pos + size
		if end > len(chunked) {
			end = len(chunked)
		}
		off = applyMask(chunked[pos:end], key, off)
		pos = end
		if pos >= len(chunked) {
			break
		}
	}
	if !bytes.Equal(wholeMasked, chunked) {
		t.Fatalf("chunked masking diverged from single-call masking:\n got  %x\n want %x", chunked, wholeMasked)
	}
}

func TestGenerateMaskIsRandomized(t *testing.T) {
	a := generateMask()
	b := generateMask()
	if a == b {
		t.Fatal("two consecutive generateMask() calls produced the same key; either crypto/rand is broken or this is a 1-in-4-billion coincidence")
	}
}
