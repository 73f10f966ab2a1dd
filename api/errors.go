// Package api
// Author: momentics <momentics@gmail.com>
//
// Structured error kinds surfaced by the WebSocket core, and the sentinels
// callers compare against with errors.Is.

package api

import "fmt"

// ErrorKind classifies why a Core operation failed.
type ErrorKind int

const (
	ErrKindNone ErrorKind = iota

	// ErrKindInvalidMessageType is returned when SendMessage is asked to
	// send a Close opcode; use CloseOutput instead.
	ErrKindInvalidMessageType

	// ErrKindInvalidState is returned when an operation is attempted from
	// a ConnectionState that does not permit it, or when a second
	// concurrent Send/Receive is attempted (API misuse).
	ErrKindInvalidState

	// ErrKindProtocolError (aka Faulted) is returned when the remote peer
	// violates RFC 6455 framing, sends invalid UTF-8 in a Close frame's
	// reason text, an invalid close status, or a masked frame to a client.
	ErrKindProtocolError

	// ErrKindConnectionClosedPrematurely is returned on transport EOF or
	// I/O error while a frame or header was only partially read.
	ErrKindConnectionClosedPrematurely

	// ErrKindCanceled is returned when the caller's context is canceled
	// before the operation completes.
	ErrKindCanceled

	// ErrKindInvalidPayloadData is returned when a Text message's payload
	// fails streaming UTF-8 validation.
	ErrKindInvalidPayloadData

	// ErrKindDisposed is returned for any operation attempted after
	// Dispose.
	ErrKindDisposed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindInvalidMessageType:
		return "InvalidMessageType"
	case ErrKindInvalidState:
		return "InvalidState"
	case ErrKindProtocolError:
		return "ProtocolError"
	case ErrKindConnectionClosedPrematurely:
		return "ConnectionClosedPrematurely"
	case ErrKindCanceled:
		return "Canceled"
	case ErrKindInvalidPayloadData:
		return "InvalidPayloadData"
	case ErrKindDisposed:
		return "Disposed"
	default:
		return "None"
	}
}

// Error is a structured error carrying a classifiable Kind plus free-form
// diagnostic context, in the shape of hioload-ws's api.Error/ErrorCode pair.
type Error struct {
	Kind    ErrorKind
	Message string
	Context map[string]any

	// Cause is the underlying error, if any (a transport I/O error, a
	// context.Canceled, a decode failure). Unwrap exposes it.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, api.ErrProtocolError) match any *Error sharing the
// same Kind, without requiring pointer identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates a structured error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a structured error of the given kind wrapping cause.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithContext adds context information to the error and returns it for
// chaining, mirroring hioload-ws's api.Error.WithContext.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Sentinel errors, one per ErrorKind, for errors.Is comparisons that don't
// need a custom message.
var (
	ErrInvalidMessageType          = NewError(ErrKindInvalidMessageType, "invalid message type")
	ErrInvalidState                = NewError(ErrKindInvalidState, "invalid state for operation")
	ErrProtocolError               = NewError(ErrKindProtocolError, "protocol error")
	ErrConnectionClosedPrematurely = NewError(ErrKindConnectionClosedPrematurely, "connection closed prematurely")
	ErrCanceled                    = NewError(ErrKindCanceled, "operation canceled")
	ErrInvalidPayloadData          = NewError(ErrKindInvalidPayloadData, "invalid payload data")
	ErrDisposed                    = NewError(ErrKindDisposed, "operation attempted after dispose")
)
