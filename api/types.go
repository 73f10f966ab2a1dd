// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared wire-level and lifecycle types for the WebSocket core.

package api

import "fmt"

// Opcode identifies a frame's semantics. The low 4 bits of byte 0 of the
// frame header.
type Opcode byte

const (
	OpcodeContinuation Opcode = 0x0
	OpcodeText         Opcode = 0x1
	OpcodeBinary       Opcode = 0x2
	OpcodeClose        Opcode = 0x8
	OpcodePing         Opcode = 0x9
	OpcodePong         Opcode = 0xA
)

// IsControl reports whether the opcode identifies a control frame (Close,
// Ping, Pong): payload <= 125 bytes, never fragmented.
func (o Opcode) IsControl() bool {
	return o >= OpcodeClose
}

// IsKnown reports whether the opcode is one of the six RFC 6455 values this
// core understands. Anything else is a protocol error on ingress.
func (o Opcode) IsKnown() bool {
	switch o {
	case OpcodeContinuation, OpcodeText, OpcodeBinary, OpcodeClose, OpcodePing, OpcodePong:
		return true
	default:
		return false
	}
}

func (o Opcode) String() string {
	switch o {
	case OpcodeContinuation:
		return "continuation"
	case OpcodeText:
		return "text"
	case OpcodeBinary:
		return "binary"
	case OpcodeClose:
		return "close"
	case OpcodePing:
		return "ping"
	case OpcodePong:
		return "pong"
	default:
		return fmt.Sprintf("opcode(0x%x)", byte(o))
	}
}

// ConnectionState is the externally observable lifecycle state of a Core.
// It is derived from the (sentCloseFrame, receivedCloseFrame) pair plus the
// abort/dispose flags rather than tracked as an independent value, since
// CloseSent and CloseReceived are not mutually exclusive orderings.
type ConnectionState int

const (
	StateNone ConnectionState = iota
	StateConnecting
	StateOpen
	StateCloseSent
	StateCloseReceived
	StateClosed
	StateAborted
)

func (s ConnectionState) String() string {
	switch s {
	case StateNone:
		return "None"
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	case StateCloseSent:
		return "CloseSent"
	case StateCloseReceived:
		return "CloseReceived"
	case StateClosed:
		return "Closed"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// ReceiveResult describes the outcome of a single ReceiveMessage call: it
// may deliver only part of a message if the caller's buffer was smaller
// than the frame's remaining payload.
type ReceiveResult struct {
	// BytesWritten is the number of bytes copied into the caller's buffer.
	BytesWritten int

	// MessageKind is Text or Binary for data, or Close for a Close frame.
	// Continuation frames resolve to the in-progress message's opcode.
	MessageKind Opcode

	// EndOfMessage is true iff the current frame's FIN bit is set and its
	// remaining payload reached zero during this call.
	EndOfMessage bool

	// CloseStatus and CloseDescription are populated only when MessageKind
	// is OpcodeClose.
	CloseStatus     uint16
	HasCloseStatus  bool
	CloseDescription string
}

// CloseInfo records the status/description observed on the Close frame
// received from the peer. It is set once, when that frame is ingested; a
// protocol error detected locally does not set it.
type CloseInfo struct {
	Status      uint16
	HasStatus   bool
	Description string
}
