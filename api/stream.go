// File: api/stream.go
// Author: momentics <momentics@gmail.com>
//
// Defines the byte-stream abstraction the core drives. Everything that
// produces this stream (dialing, TLS, the HTTP Upgrade exchange, DNS,
// proxy selection) lives outside this module; Stream is the seam.

package api

// Stream is an already-connected, full-duplex byte stream to a peer that
// has completed the WebSocket opening handshake. A net.Conn, a tls.Conn,
// or any test double satisfies it directly.
type Stream interface {
	// Read behaves like io.Reader: it may return fewer bytes than len(p)
	// and must be safe to call repeatedly until io.EOF or another error.
	Read(p []byte) (n int, err error)

	// Write behaves like io.Writer. The core issues exactly one Write per
	// frame, so a partial write is treated as a fatal transport error.
	Write(p []byte) (n int, err error)

	// Close shuts the stream down and unblocks any pending Read/Write.
	Close() error
}
