// Package protocol implements the client-side RFC 6455 WebSocket protocol
// core: frame codec, UTF-8 validation, fragmentation, control-frame
// handling, the close handshake, and the Core type that exposes all of it
// as SendMessage/ReceiveMessage/CloseOutput/Close/Abort/Dispose.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package protocol
