package rsocket

import (
	"fmt"

	"go.cryptoscope.co/rsocket/frame"
)

// ErrorCode is the wire error code carried by an ERROR frame.
type ErrorCode = frame.ErrorCode

// FrameTooLargeError and IllegalFrameError are the codec's own error
// types; the responder deals in them directly via errors.As rather
// than redeclaring equivalents here.

// ConnectionError marks a fatal, connection-level protocol violation:
// a SETUP frame received past the setup phase, a raw PAYLOAD frame
// with neither N nor C set reaching the multiplexer, or a LEASE frame
// observed on the responder side. The multiplexer replies with an
// ERROR frame on stream 0 and disposes the connection. It is also the
// termination cause handed to receivers when the connection simply
// closes ("closed channel").
type ConnectionError struct {
	Code    ErrorCode
	Message string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("rsocket: connection error: %s", e.Message)
}

// ApplicationError is an error scoped to a single interaction rather
// than the whole connection. The responder builds one from an inbound
// ERROR frame and delivers it to that stream's receiver, and uses one
// when a stream's Source yields a value that is not a Payload, sending
// its message in an ERROR frame. Errors returned by handlers are
// encoded into ERROR frames directly, without this type.
type ApplicationError struct {
	StreamID uint32
	Message  string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("rsocket: application error on stream %d: %s", e.StreamID, e.Message)
}
