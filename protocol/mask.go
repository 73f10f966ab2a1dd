// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-frame masking. Each outgoing frame gets a fresh cryptographically
// random key from crypto/rand: the teacher's EncodeFrame hardcodes example
// keys (0xDEADBEEF, 0x12345678) with an explicit "Example key" comment
// marking them as placeholders, not an idiom worth carrying forward.

package protocol

import "crypto/rand"

// newMaskKey is the seam sendFrameLocked calls through to obtain a
// per-frame masking key; tests may override it to pin a specific key
// (e.g. the literal all-zero mask) instead of a real random one.
var newMaskKey = generateMask

// generateMask returns a fresh random 4-byte masking key.
func generateMask() [4]byte {
	var key [4]byte
	_, _ = rand.Read(key[:])
	return key
}

// applyMask XORs buf in place against key, treating buf as a slice of a
// masked payload whose first byte sits at position rollingOffset within
// the 4-byte key cycle. It returns the rolling offset for the next call,
// letting a single frame's payload be unmasked across several Read-sized
// chunks without buffering the whole frame.
func applyMask(buf []byte, key [4]byte, rollingOffset uint8) uint8 {
	off := int(rollingOffset)
	for i := range buf {
		buf[i] ^= key[(off+i)&3]
	}
	return uint8((off + len(buf)) & 3)
}
