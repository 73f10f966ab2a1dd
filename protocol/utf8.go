// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Streaming UTF-8 validation for Text messages, byte at a time and
// independent of frame boundaries, so a multi-byte sequence may legally
// split across two Read-sized chunks or two fragments of the same message.

package protocol

import "github.com/momentics/wscore/api"

func invalidUTF8(reason string) error {
	return api.NewError(api.ErrKindInvalidPayloadData, reason)
}

// utf8State is a streaming UTF-8 decoder that validates without materializing
// runes. Overlong encodings are caught generically by comparing the fully
// accumulated code point against a per-length minimum at sequence
// completion; surrogates (3-byte sequences) and out-of-range code points
// (4-byte sequences) are caught one byte early, against a partial code
// point, so that no lead-byte needs special-casing (0xC0/0xC1 fail the
// overlong check, 0xF5-0xF7 fail the range check, both for free).
type utf8State struct {
	remaining      int
	codepoint      uint32
	minValue       uint32
	checkSurrogate bool
	checkRange     bool
}

// reset clears validator state at the start of a new Text message.
func (s *utf8State) reset() {
	*s = utf8State{}
}

// step feeds one byte of payload into the validator.
func (s *utf8State) step(b byte) error {
	if s.remaining == 0 {
		switch {
		case b < 0x80:
			return nil
		case b&0xE0 == 0xC0:
			s.codepoint = uint32(b & 0x1F)
			s.remaining = 1
			s.minValue = 0x80
			s.checkSurrogate = false
			s.checkRange = false
		case b&0xF0 == 0xE0:
			s.codepoint = uint32(b & 0x0F)
			s.remaining = 2
			s.minValue = 0x800
			s.checkSurrogate = true
			s.checkRange = false
		case b&0xF8 == 0xF0:
			s.codepoint = uint32(b & 0x07)
			s.remaining = 3
			s.minValue = 0x10000
			s.checkSurrogate = false
			s.checkRange = true
		default:
			return invalidUTF8("invalid UTF-8 lead byte")
		}
		return nil
	}

	if b&0xC0 != 0x80 {
		return invalidUTF8("invalid UTF-8 continuation byte")
	}
	s.codepoint = (s.codepoint << 6) | uint32(b&0x3F)
	s.remaining--

	if s.remaining == 1 {
		if s.checkSurrogate && s.codepoint >= 0x360 && s.codepoint <= 0x37F {
			return invalidUTF8("UTF-8 surrogate code point")
		}
		if s.checkRange && s.codepoint >= 0x4400 {
			return invalidUTF8("UTF-8 code point out of range")
		}
	}

	if s.remaining == 0 && s.codepoint < s.minValue {
		return invalidUTF8("overlong UTF-8 encoding")
	}
	return nil
}

// finish reports whether the validator ended mid-sequence: legal only if
// more payload is still coming in a later fragment. Callers invoke it only
// at the true end of a Text message (the final, FIN frame).
func (s *utf8State) finish() error {
	if s.remaining != 0 {
		return invalidUTF8("truncated UTF-8 sequence at end of message")
	}
	return nil
}

// decodeStrictUTF8 validates b as a complete, standalone UTF-8 string (used
// for Close frame reason text, which is never fragmented) and returns it.
func decodeStrictUTF8(b []byte) (string, error) {
	var st utf8State
	for _, c := range b {
		if err := st.step(c); err != nil {
			return "", err
		}
	}
	if err := st.finish(); err != nil {
		return "", err
	}
	return string(b), nil
}
