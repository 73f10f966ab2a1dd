// Package pool
// Author: momentics <momentics@gmail.com>
//
// Send-buffer pooling for the WebSocket core. Every SendFrame call rents a
// []byte sized to header+mask+payload, writes it in one Stream.Write call,
// and releases it unconditionally once that Write call has returned (which,
// on cancellation or abort, can be after the send itself has returned). See
// bytepool.go.
package pool
