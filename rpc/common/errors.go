package common

import (
	"errors"
	"fmt"
)

// Errors returned by the client. Use errors.Is to test for them, the returned
// errors usually wrap one of these with the endpoint or message id.
var (
	// ErrConnection is returned when the connection cannot be established or
	// an operation is attempted on a closed client
	ErrConnection = errors.New("connection error")

	// ErrTimeout is returned when no matching reply arrived within the deadline
	ErrTimeout = errors.New("timeout")

	// ErrConnectionLost fails all pending requests when the reader observes
	// the end of the stream or a fatal read error
	ErrConnectionLost = fmt.Errorf("%w: connection lost", ErrConnection)

	// ErrConnectionClosed fails all pending requests when the client is closed
	ErrConnectionClosed = fmt.Errorf("%w: client closed", ErrConnection)

	// ErrMalformedFrame is returned by the decoder for a frame that was read
	// completely but could not be parsed. The stream is still usable.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrFrameTooLarge is returned when a message does not fit into a frame
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrDuplicateMsgID is returned when a msg_id is registered twice
	ErrDuplicateMsgID = errors.New("duplicate msg_id")
)

// ResponseError is the error returned for a reply of type "error"
type ResponseError struct {
	ReplyTo uint64
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("peer returned error for request %d: %s", e.ReplyTo, e.Message)
}
