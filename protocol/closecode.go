// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

// validCloseStatuses lists the close codes in [1000, 2999] that are legal
// to appear on the wire. 1005 and 1006 are deliberately absent: both are
// library-internal placeholders per RFC 6455 §7.4 and must never be sent
// or accepted in a Close frame's payload.
var validCloseStatuses = map[uint16]struct{}{
	1000: {},
	1001: {},
	1002: {},
	1003: {},
	1007: {},
	1008: {},
	1009: {},
	1010: {},
	1011: {},
}

// isValidCloseStatus reports whether code may legally appear in a Close
// frame's payload: the registered subset of [1000, 2999], or anything in
// the application-defined range [3000, 4999].
func isValidCloseStatus(code uint16) bool {
	switch {
	case code >= 3000 && code <= 4999:
		return true
	case code >= 1000 && code <= 2999:
		_, ok := validCloseStatuses[code]
		return ok
	default:
		return false
	}
}
