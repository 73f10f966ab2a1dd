// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT
//
// Concrete api.Stream adapter over a real net.Conn, so callers don't each
// need to write their own one-line wrapper.

package transport

import "net"

// NetConn adapts a net.Conn (the result of the caller's own dial + TLS +
// HTTP Upgrade sequence, all outside this module's scope) to api.Stream.
type NetConn struct {
	conn net.Conn
}

// NewNetConn wraps an already-connected net.Conn.
func NewNetConn(conn net.Conn) *NetConn {
	return &NetConn{conn: conn}
}

// Read implements api.Stream.
func (n *NetConn) Read(p []byte) (int, error) {
	return n.conn.Read(p)
}

// Write implements api.Stream.
func (n *NetConn) Write(p []byte) (int, error) {
	return n.conn.Write(p)
}

// Close implements api.Stream.
func (n *NetConn) Close() error {
	return n.conn.Close()
}
